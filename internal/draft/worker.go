// Package draft implements the generation worker: it assembles a drafting
// request from photo metadata and style parameters, invokes the drafting
// collaborator, and persists the resulting article.
package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/snapdraft/photoblog-backend/internal/compose"
	"github.com/snapdraft/photoblog-backend/internal/ddb"
	"github.com/snapdraft/photoblog-backend/internal/gemini"
	"github.com/snapdraft/photoblog-backend/internal/models"
	"github.com/snapdraft/photoblog-backend/internal/queue"
)

// RunStore is the slice of the runs repo the worker needs.
type RunStore interface {
	Get(ctx context.Context, runID string) (*models.GenerationRun, error)
	MarkRunning(ctx context.Context, runID, now string) error
	Finish(ctx context.Context, runID string, status models.RunStatus, model, errMsg, completedAt string) error
}

// ArticleStore reads and overwrites article records.
type ArticleStore interface {
	Get(ctx context.Context, articleID string) (*models.Article, error)
	SaveDraft(ctx context.Context, articleID, title, markdown string, body *models.ArticleBody, runID, now string) error
}

// UploadStore reads upload records.
type UploadStore interface {
	Get(ctx context.Context, uploadID string) (*models.Upload, error)
}

// MetadataStore reads derived metadata records.
type MetadataStore interface {
	Get(ctx context.Context, uploadID string) (*models.PhotoMetadata, error)
}

// ObjectStore reads photo bytes for prompt attachment.
type ObjectStore interface {
	Bytes(ctx context.Context, bucket, key string) ([]byte, string, error)
}

// Drafter is the drafting collaborator: prompt and images in, raw
// structured text out.
type Drafter interface {
	Draft(ctx context.Context, prompt string, maxOutputTokens int, images []gemini.ImagePart) (string, error)
	Model() string
}

// Worker processes generation messages. Steps are individually idempotent:
// a redelivered message for a terminal run exits without side effects, and
// the article/run writes are keyed overwrites.
type Worker struct {
	Runs     RunStore
	Articles ArticleStore
	Uploads  UploadStore
	Metadata MetadataStore
	Objects  ObjectStore
	Drafter  Drafter
}

// Process handles one message body. A plain error means the delivery
// should be retried; a terminal error means the run already records its
// failure and the message must be acknowledged.
func (w *Worker) Process(ctx context.Context, body string, _ int) error {
	var msg models.GenerationMessage
	if err := json.Unmarshal([]byte(body), &msg); err != nil || msg.RunID == "" || msg.ArticleID == "" {
		log.Printf("draft: dropping malformed message: %v", err)
		return nil
	}
	compose.ApplyDefaults(&msg.Parameters)

	run, err := w.Runs.Get(ctx, msg.RunID)
	if err != nil {
		return fmt.Errorf("load run %s: %w", msg.RunID, err)
	}
	if run.Status.Terminal() {
		// Duplicate delivery after completion: ack, no side effects.
		log.Printf("draft: run %s already %s, skipping", msg.RunID, run.Status)
		return nil
	}
	if err := w.Runs.MarkRunning(ctx, msg.RunID, ddb.NowISO()); err != nil {
		if errors.Is(err, ddb.ErrConflict) {
			// Lost the race to a concurrent delivery that finished first.
			log.Printf("draft: run %s finished concurrently, skipping", msg.RunID)
			return nil
		}
		return fmt.Errorf("mark run %s running: %w", msg.RunID, err)
	}

	uploadIDs, err := w.resolveUploadIDs(ctx, msg, run)
	if err != nil {
		return err
	}
	if len(uploadIDs) == 0 {
		return w.failRun(ctx, msg.RunID, "no upload ids for generation")
	}

	// Every referenced metadata record must exist before a prompt is
	// composed; the collaborator is never invoked on partial inputs.
	inputs, err := w.loadInputs(ctx, uploadIDs)
	if err != nil {
		return err
	}

	article, err := w.generate(ctx, msg, inputs)
	if err != nil {
		return err
	}

	now := ddb.NowISO()
	if err := w.Articles.SaveDraft(ctx, msg.ArticleID, article.body.Title, article.markdown, article.body, msg.RunID, now); err != nil {
		return fmt.Errorf("save article %s: %w", msg.ArticleID, err)
	}
	if err := w.Runs.Finish(ctx, msg.RunID, models.RunSucceeded, w.Drafter.Model(), article.warning, now); err != nil {
		return fmt.Errorf("finish run %s: %w", msg.RunID, err)
	}
	return nil
}

// Exhausted marks the run FAILED once the retry budget is spent.
func (w *Worker) Exhausted(ctx context.Context, body string, cause error) {
	var msg models.GenerationMessage
	if err := json.Unmarshal([]byte(body), &msg); err != nil || msg.RunID == "" {
		return
	}
	reason := "generation failed"
	if cause != nil {
		reason = cause.Error()
	}
	if err := w.Runs.Finish(ctx, msg.RunID, models.RunFailed, w.Drafter.Model(), reason, ddb.NowISO()); err != nil {
		log.Printf("draft: failed to mark run %s FAILED: %v", msg.RunID, err)
	}
}

// failRun records a terminal failure on the run and returns the matching
// terminal error so the message is acknowledged.
func (w *Worker) failRun(ctx context.Context, runID, cause string) error {
	if err := w.Runs.Finish(ctx, runID, models.RunFailed, w.Drafter.Model(), cause, ddb.NowISO()); err != nil {
		// Could not record the failure; retry the delivery instead of
		// acking a run that still looks RUNNING.
		return fmt.Errorf("record failure for run %s: %w", runID, err)
	}
	return queue.Terminal("run %s failed: %s", runID, cause)
}

// resolveUploadIDs prefers the message, then the run record, then the
// owning article's derivation list.
func (w *Worker) resolveUploadIDs(ctx context.Context, msg models.GenerationMessage, run *models.GenerationRun) ([]string, error) {
	if ids := trimmed(msg.UploadIDs); len(ids) > 0 {
		return ids, nil
	}
	if ids := trimmed(run.UploadIDs); len(ids) > 0 {
		return ids, nil
	}
	article, err := w.Articles.Get(ctx, msg.ArticleID)
	if err != nil {
		if errors.Is(err, ddb.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load article %s: %w", msg.ArticleID, err)
	}
	return trimmed(article.UploadIDs), nil
}

func trimmed(ids []string) []string {
	var out []string
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}
