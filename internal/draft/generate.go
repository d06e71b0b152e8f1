package draft

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/snapdraft/photoblog-backend/internal/compose"
	"github.com/snapdraft/photoblog-backend/internal/ddb"
	"github.com/snapdraft/photoblog-backend/internal/gemini"
	"github.com/snapdraft/photoblog-backend/internal/models"
	"github.com/snapdraft/photoblog-backend/internal/s3io"
)

// photoInput pairs an upload record (possibly absent) with its metadata
// (always required).
type photoInput struct {
	upload *models.Upload
	md     *models.PhotoMetadata
}

// loadInputs loads metadata for every upload id. A missing metadata record
// is a retryable failure: redelivery waits for the extractor, and the retry
// ceiling turns persistent absence into a FAILED run. The drafting
// collaborator is never reached while any record is missing.
func (w *Worker) loadInputs(ctx context.Context, uploadIDs []string) ([]photoInput, error) {
	inputs := make([]photoInput, 0, len(uploadIDs))
	for _, id := range uploadIDs {
		md, err := w.Metadata.Get(ctx, id)
		if err != nil {
			if errors.Is(err, ddb.ErrNotFound) {
				return nil, fmt.Errorf("metadata not ready for upload %s", id)
			}
			return nil, fmt.Errorf("load metadata for %s: %w", id, err)
		}
		upload, err := w.Uploads.Get(ctx, id)
		if err != nil {
			// The upload record only contributes the uploaded_at fact.
			log.Printf("draft: upload record unavailable for %s: %v", id, err)
			upload = nil
		}
		inputs = append(inputs, photoInput{upload: upload, md: md})
	}
	return inputs, nil
}

// drafted is the outcome of a successful collaborator exchange.
type drafted struct {
	body     *models.ArticleBody
	markdown string
	warning  string
}

// generate runs the drafting exchange: initial prompt, a stricter retry
// when the body comes back under the minimum length, then an expansion pass
// on the best draft so far.
func (w *Worker) generate(ctx context.Context, msg models.GenerationMessage, inputs []photoInput) (*drafted, error) {
	now := ddb.NowISO()
	fallbackTitle := "Auto draft " + shortID(msg.ArticleID)
	redacted := redactedLocation(inputs, msg.PrivacyLevel)
	capturedAt := firstCapturedAt(inputs)
	minChars := compose.MinChars(msg.Length)

	fb := compose.Fallback{
		Title:    fallbackTitle,
		Date:     now,
		Location: valueOr(redacted, compose.Unspecified),
	}

	facts := make([]compose.PhotoFacts, 0, len(inputs))
	for _, in := range inputs {
		facts = append(facts, compose.FactsFor(in.upload, in.md, msg.PrivacyLevel))
	}
	photoContext := compose.ContextLines(facts)
	images := w.loadImages(ctx, inputs)

	prompt, maxTokens := compose.BuildPrompt(msg.Parameters, len(inputs), photoContext, minChars, false)
	body, warning, err := w.draftOnce(ctx, msg.RunID, prompt, maxTokens, images, fb)
	if err != nil {
		return nil, err
	}

	if len(body.BodyMarkdown) < minChars {
		retryPrompt, retryTokens := compose.BuildPrompt(msg.Parameters, len(inputs), photoContext, minChars, true)
		if retryTokens < 1200 {
			retryTokens = 1200
		}
		if retryBody, retryWarning, err := w.draftOnce(ctx, msg.RunID, retryPrompt, retryTokens, images, fb); err == nil {
			body, warning = retryBody, retryWarning
		} else {
			log.Printf("draft: retry pass failed for run %s: %v", msg.RunID, err)
		}
	}

	if len(body.BodyMarkdown) < minChars {
		expandPrompt, expandTokens := compose.BuildExpandPrompt(msg.Parameters, body, minChars)
		if expandTokens < 1200 {
			expandTokens = 1200
		}
		if expanded, expandWarning, err := w.draftOnce(ctx, msg.RunID, expandPrompt, expandTokens, images, fb); err == nil {
			if len(expanded.BodyMarkdown) >= len(body.BodyMarkdown) {
				body, warning = expanded, expandWarning
			}
		} else {
			log.Printf("draft: expand pass failed for run %s: %v", msg.RunID, err)
		}
	}

	if len(body.BodyMarkdown) < minChars {
		warning = joinWarnings(warning, "Output shorter than requested.")
	}

	// Privacy and no-fabrication guarantees are enforced on the output, not
	// just requested in the prompt.
	body.Location = valueOr(redacted, valueOr(body.Location, compose.Unspecified))
	body.CaptureInfo.Location = valueOr(redacted, compose.Unspecified)
	body.CaptureInfo.CapturedAt = valueOr(capturedAt, compose.Unknown)
	if body.Title == "" {
		body.Title = fallbackTitle
	}

	return &drafted{
		body:     body,
		markdown: compose.RenderMarkdown(body),
		warning:  warning,
	}, nil
}

// draftOnce invokes the collaborator and parses the response. Both a failed
// call and unusable output are retryable.
func (w *Worker) draftOnce(ctx context.Context, runID, prompt string, maxTokens int, images []gemini.ImagePart, fb compose.Fallback) (*models.ArticleBody, string, error) {
	text, err := w.Drafter.Draft(ctx, prompt, maxTokens, images)
	if err != nil {
		return nil, "", fmt.Errorf("drafting collaborator for run %s: %w", runID, err)
	}
	body, warning, err := compose.ParseArticle(text, fb)
	if err != nil {
		return nil, "", fmt.Errorf("run %s: %w", runID, err)
	}
	if warning != "" {
		log.Printf("draft: run %s: %s", runID, warning)
	}
	return body, warning, nil
}

// loadImages fetches photo bytes for prompt attachment. Per-image failures
// are logged and skipped; a draft from metadata alone beats no draft.
func (w *Worker) loadImages(ctx context.Context, inputs []photoInput) []gemini.ImagePart {
	var parts []gemini.ImagePart
	for _, in := range inputs {
		bucket, key := in.md.ObjectBucket, in.md.ObjectKey
		if bucket == "" || key == "" {
			uri := in.md.ObjectURI
			if uri == "" && in.upload != nil {
				uri = in.upload.ImageURI
			}
			var ok bool
			if bucket, key, ok = s3io.ParseURI(uri); !ok {
				log.Printf("draft: no object location for upload %s", in.md.UploadID)
				continue
			}
		}
		data, contentType, err := w.Objects.Bytes(ctx, bucket, key)
		if err != nil {
			log.Printf("draft: failed to load image for %s: %v", in.md.UploadID, err)
			continue
		}
		if len(data) == 0 {
			log.Printf("draft: empty image for %s", in.md.UploadID)
			continue
		}
		parts = append(parts, gemini.ImagePart{MIMEType: contentType, Data: data})
	}
	return parts
}

// redactedLocation returns the privacy-coarsened place of the first input
// that resolved one.
func redactedLocation(inputs []photoInput, level string) string {
	for _, in := range inputs {
		if s := compose.RedactPlace(in.md.Geocode, level); s != "" {
			return s
		}
	}
	return ""
}

func firstCapturedAt(inputs []photoInput) string {
	for _, in := range inputs {
		if in.md.CapturedAt != "" {
			return in.md.CapturedAt
		}
	}
	return ""
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func valueOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func joinWarnings(a, b string) string {
	if a == "" {
		return b
	}
	return a + " " + b
}
