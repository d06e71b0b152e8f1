// Package extract implements the metadata-extraction worker: it derives
// photo metadata from object-store attributes and message hints, writes the
// metadata record, and advances the upload lifecycle.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/snapdraft/photoblog-backend/internal/compose"
	"github.com/snapdraft/photoblog-backend/internal/ddb"
	"github.com/snapdraft/photoblog-backend/internal/models"
	"github.com/snapdraft/photoblog-backend/internal/s3io"
)

// UploadStore is the slice of the uploads repo the worker needs.
type UploadStore interface {
	SetStatus(ctx context.Context, uploadID string, status models.UploadStatus, reason, now string) error
}

// MetadataStore writes derived metadata records.
type MetadataStore interface {
	Put(ctx context.Context, m models.PhotoMetadata) error
}

// ObjectHeader reads object attributes from the store.
type ObjectHeader interface {
	Head(ctx context.Context, bucket, key string) (*s3io.Attributes, error)
}

// Geocoder resolves coordinates to places. Failures are non-fatal.
type Geocoder interface {
	Resolve(ctx context.Context, lat, lng float64) (*models.Place, error)
}

// Worker processes extraction messages. Every step is safe to repeat: the
// metadata write is a keyed overwrite and the upload transition re-writes
// the same terminal value on redelivery.
type Worker struct {
	Uploads  UploadStore
	Metadata MetadataStore
	Objects  ObjectHeader
	Geo      Geocoder // nil when no place index is configured
}

// Process handles one message body. A returned error without terminal
// classification means the delivery should be retried.
func (w *Worker) Process(ctx context.Context, body string, _ int) error {
	var msg models.ExtractionMessage
	if err := json.Unmarshal([]byte(body), &msg); err != nil || msg.UploadID == "" {
		// Malformed payloads cannot improve with redelivery.
		log.Printf("extract: dropping malformed message: %v", err)
		return nil
	}

	attrs, err := w.Objects.Head(ctx, msg.Bucket, msg.Key)
	if err != nil {
		return fmt.Errorf("object attributes for %s: %w", msg.UploadID, err)
	}

	now := ddb.NowISO()
	md := w.derive(ctx, msg, attrs, now)
	if err := w.Metadata.Put(ctx, md); err != nil {
		return fmt.Errorf("put metadata for %s: %w", msg.UploadID, err)
	}
	if err := w.Uploads.SetStatus(ctx, msg.UploadID, models.UploadMetadataReady, "", now); err != nil {
		return fmt.Errorf("mark metadata ready for %s: %w", msg.UploadID, err)
	}
	return nil
}

// derive builds the metadata record from store attributes and message
// hints. The derivation is deterministic for a given message and object, so
// reprocessing overwrites the record with identical content (modulo the
// update timestamp).
func (w *Worker) derive(ctx context.Context, msg models.ExtractionMessage, attrs *s3io.Attributes, now string) models.PhotoMetadata {
	md := models.PhotoMetadata{
		UploadID:     msg.UploadID,
		ObjectBucket: msg.Bucket,
		ObjectKey:    msg.Key,
		ObjectURI:    s3io.URI(msg.Bucket, msg.Key),
		CapturedAt:   msg.CapturedAt,
		ContentType:  attrs.ContentType,
		SizeKB:       attrs.Size / 1024,
		UpdatedAt:    now,
	}
	if !attrs.StoredAt.IsZero() {
		md.UploadedAt = attrs.StoredAt.UTC().Format(time.RFC3339)
	}

	// Camera facts come from message hints or object metadata; nothing is
	// parsed out of the image itself.
	md.CameraMake = firstOf(msg.CameraMake, attrs.Meta["camera_make"], compose.Unknown)
	md.CameraModel = firstOf(msg.CameraModel, attrs.Meta["camera_model"], compose.Unknown)

	if msg.GPS != nil {
		lat, lng := msg.GPS.Lat, msg.GPS.Lng
		md.GPSLat = &lat
		md.GPSLng = &lng
		if w.Geo != nil {
			place, err := w.Geo.Resolve(ctx, lat, lng)
			if err != nil {
				// Best effort: the article simply says "unspecified".
				log.Printf("extract: geocode failed for %s: %v", msg.UploadID, err)
			} else {
				md.Geocode = place
			}
		}
	}
	return md
}

// Exhausted records the terminal failure once the retry budget is spent.
func (w *Worker) Exhausted(ctx context.Context, body string, cause error) {
	var msg models.ExtractionMessage
	if err := json.Unmarshal([]byte(body), &msg); err != nil || msg.UploadID == "" {
		return
	}
	reason := "metadata extraction failed"
	if cause != nil {
		reason = cause.Error()
	}
	if err := w.Uploads.SetStatus(ctx, msg.UploadID, models.UploadMetadataFailed, reason, ddb.NowISO()); err != nil {
		log.Printf("extract: failed to mark %s METADATA_FAILED: %v", msg.UploadID, err)
	}
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
