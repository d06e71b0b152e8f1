package extract_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snapdraft/photoblog-backend/internal/extract"
	"github.com/snapdraft/photoblog-backend/internal/models"
	"github.com/snapdraft/photoblog-backend/internal/s3io"
)

type fakeUploads struct {
	statuses []models.UploadStatus
	reasons  []string
	err      error
}

func (f *fakeUploads) SetStatus(_ context.Context, _ string, status models.UploadStatus, reason, _ string) error {
	f.statuses = append(f.statuses, status)
	f.reasons = append(f.reasons, reason)
	return f.err
}

type fakeMetadata struct {
	puts []models.PhotoMetadata
	err  error
}

func (f *fakeMetadata) Put(_ context.Context, m models.PhotoMetadata) error {
	f.puts = append(f.puts, m)
	return f.err
}

type fakeObjects struct {
	attrs *s3io.Attributes
	err   error
}

func (f *fakeObjects) Head(_ context.Context, _, _ string) (*s3io.Attributes, error) {
	return f.attrs, f.err
}

type fakeGeo struct {
	place *models.Place
	err   error
	calls int
}

func (f *fakeGeo) Resolve(_ context.Context, _, _ float64) (*models.Place, error) {
	f.calls++
	return f.place, f.err
}

func message(t *testing.T, msg models.ExtractionMessage) string {
	t.Helper()
	b, err := json.Marshal(msg)
	require.NoError(t, err)
	return string(b)
}

func TestProcess_WritesMetadataAndAdvancesUpload(t *testing.T) {
	uploads := &fakeUploads{}
	metadata := &fakeMetadata{}
	stored := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	objects := &fakeObjects{attrs: &s3io.Attributes{
		Size:        4096,
		ContentType: "image/jpeg",
		StoredAt:    stored,
		Meta:        map[string]string{"camera_make": "Canon", "camera_model": "EOS R5"},
	}}
	geo := &fakeGeo{place: &models.Place{City: "Springfield", Region: "State", Country: "USA"}}
	w := &extract.Worker{Uploads: uploads, Metadata: metadata, Objects: objects, Geo: geo}

	body := message(t, models.ExtractionMessage{
		UploadID: "u1",
		Bucket:   "b",
		Key:      "uploads/u1/photo.jpg",
		GPS:      &models.GPSPoint{Lat: 35.0, Lng: 139.0},
	})

	require.NoError(t, w.Process(context.Background(), body, 1))

	require.Len(t, metadata.puts, 1)
	md := metadata.puts[0]
	assert.Equal(t, "u1", md.UploadID)
	assert.Equal(t, "s3://b/uploads/u1/photo.jpg", md.ObjectURI)
	assert.Equal(t, "Canon", md.CameraMake)
	assert.Equal(t, "EOS R5", md.CameraModel)
	assert.Equal(t, int64(4), md.SizeKB)
	assert.Equal(t, "2026-08-01T10:00:00Z", md.UploadedAt)
	require.NotNil(t, md.GPSLat)
	assert.Equal(t, 35.0, *md.GPSLat)
	require.NotNil(t, md.Geocode)
	assert.Equal(t, "Springfield", md.Geocode.City)
	assert.Equal(t, 1, geo.calls)

	require.Len(t, uploads.statuses, 1)
	assert.Equal(t, models.UploadMetadataReady, uploads.statuses[0])
}

func TestProcess_MessageHintsWinOverObjectMeta(t *testing.T) {
	metadata := &fakeMetadata{}
	objects := &fakeObjects{attrs: &s3io.Attributes{
		Meta: map[string]string{"camera_make": "Canon"},
	}}
	w := &extract.Worker{Uploads: &fakeUploads{}, Metadata: metadata, Objects: objects}

	body := message(t, models.ExtractionMessage{UploadID: "u1", Bucket: "b", Key: "k", CameraMake: "Nikon"})
	require.NoError(t, w.Process(context.Background(), body, 1))

	require.Len(t, metadata.puts, 1)
	assert.Equal(t, "Nikon", metadata.puts[0].CameraMake)
	assert.Equal(t, "unknown", metadata.puts[0].CameraModel)
}

func TestProcess_NoGPSSkipsGeocode(t *testing.T) {
	metadata := &fakeMetadata{}
	geo := &fakeGeo{}
	w := &extract.Worker{
		Uploads:  &fakeUploads{},
		Metadata: metadata,
		Objects:  &fakeObjects{attrs: &s3io.Attributes{ContentType: "image/png"}},
		Geo:      geo,
	}

	body := message(t, models.ExtractionMessage{UploadID: "u1", Bucket: "b", Key: "k"})
	require.NoError(t, w.Process(context.Background(), body, 1))

	assert.Equal(t, 0, geo.calls)
	require.Len(t, metadata.puts, 1)
	assert.Nil(t, metadata.puts[0].GPSLat)
	assert.Nil(t, metadata.puts[0].Geocode)
}

func TestProcess_GeocodeFailureIsNonFatal(t *testing.T) {
	metadata := &fakeMetadata{}
	w := &extract.Worker{
		Uploads:  &fakeUploads{},
		Metadata: metadata,
		Objects:  &fakeObjects{attrs: &s3io.Attributes{}},
		Geo:      &fakeGeo{err: errors.New("index unavailable")},
	}

	body := message(t, models.ExtractionMessage{
		UploadID: "u1", Bucket: "b", Key: "k",
		GPS: &models.GPSPoint{Lat: 1, Lng: 2},
	})
	require.NoError(t, w.Process(context.Background(), body, 1))

	require.Len(t, metadata.puts, 1)
	assert.Nil(t, metadata.puts[0].Geocode)
	require.NotNil(t, metadata.puts[0].GPSLat)
}

func TestProcess_MalformedMessageIsDropped(t *testing.T) {
	metadata := &fakeMetadata{}
	w := &extract.Worker{Uploads: &fakeUploads{}, Metadata: metadata, Objects: &fakeObjects{}}

	assert.NoError(t, w.Process(context.Background(), "not json", 1))
	assert.NoError(t, w.Process(context.Background(), `{"bucket":"b"}`, 1))
	assert.Empty(t, metadata.puts)
}

func TestProcess_HeadFailureIsRetryable(t *testing.T) {
	w := &extract.Worker{
		Uploads:  &fakeUploads{},
		Metadata: &fakeMetadata{},
		Objects:  &fakeObjects{err: errors.New("no such key")},
	}

	body := message(t, models.ExtractionMessage{UploadID: "u1", Bucket: "b", Key: "k"})
	err := w.Process(context.Background(), body, 1)
	require.Error(t, err)
}

func TestExhausted_MarksUploadFailed(t *testing.T) {
	uploads := &fakeUploads{}
	w := &extract.Worker{Uploads: uploads, Metadata: &fakeMetadata{}, Objects: &fakeObjects{}}

	body := message(t, models.ExtractionMessage{UploadID: "u1", Bucket: "b", Key: "k"})
	w.Exhausted(context.Background(), body, errors.New("object attributes for u1: no such key"))

	require.Len(t, uploads.statuses, 1)
	assert.Equal(t, models.UploadMetadataFailed, uploads.statuses[0])
	assert.Contains(t, uploads.reasons[0], "no such key")
}

func TestExhausted_IgnoresMalformedBody(t *testing.T) {
	uploads := &fakeUploads{}
	w := &extract.Worker{Uploads: uploads}

	w.Exhausted(context.Background(), "not json", errors.New("x"))
	assert.Empty(t, uploads.statuses)
}
