package draft_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snapdraft/photoblog-backend/internal/ddb"
	"github.com/snapdraft/photoblog-backend/internal/draft"
	"github.com/snapdraft/photoblog-backend/internal/gemini"
	"github.com/snapdraft/photoblog-backend/internal/models"
	"github.com/snapdraft/photoblog-backend/internal/queue"
)

type finishCall struct {
	status models.RunStatus
	model  string
	errMsg string
}

type fakeRuns struct {
	run            *models.GenerationRun
	getErr         error
	markRunningErr error
	running        int
	finishes       []finishCall
}

func (f *fakeRuns) Get(_ context.Context, _ string) (*models.GenerationRun, error) {
	return f.run, f.getErr
}

func (f *fakeRuns) MarkRunning(_ context.Context, _, _ string) error {
	if f.markRunningErr != nil {
		return f.markRunningErr
	}
	f.running++
	return nil
}

func (f *fakeRuns) Finish(_ context.Context, _ string, status models.RunStatus, model, errMsg, _ string) error {
	f.finishes = append(f.finishes, finishCall{status: status, model: model, errMsg: errMsg})
	return nil
}

type savedDraft struct {
	articleID string
	title     string
	markdown  string
	body      *models.ArticleBody
	runID     string
}

type fakeArticles struct {
	article *models.Article
	getErr  error
	saves   []savedDraft
}

func (f *fakeArticles) Get(_ context.Context, _ string) (*models.Article, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.article == nil {
		return nil, ddb.ErrNotFound
	}
	return f.article, nil
}

func (f *fakeArticles) SaveDraft(_ context.Context, articleID, title, markdown string, body *models.ArticleBody, runID, _ string) error {
	f.saves = append(f.saves, savedDraft{articleID: articleID, title: title, markdown: markdown, body: body, runID: runID})
	return nil
}

type fakeUploads struct {
	records map[string]*models.Upload
}

func (f *fakeUploads) Get(_ context.Context, id string) (*models.Upload, error) {
	if u, ok := f.records[id]; ok {
		return u, nil
	}
	return nil, ddb.ErrNotFound
}

type fakeMetadata struct {
	records map[string]*models.PhotoMetadata
}

func (f *fakeMetadata) Get(_ context.Context, id string) (*models.PhotoMetadata, error) {
	if m, ok := f.records[id]; ok {
		return m, nil
	}
	return nil, ddb.ErrNotFound
}

type fakeObjects struct {
	data []byte
	err  error
}

func (f *fakeObjects) Bytes(_ context.Context, _, _ string) ([]byte, string, error) {
	return f.data, "image/jpeg", f.err
}

type fakeDrafter struct {
	responses []string
	err       error
	calls     int
	prompts   []string
	images    [][]gemini.ImagePart
}

func (f *fakeDrafter) Draft(_ context.Context, prompt string, _ int, images []gemini.ImagePart) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	f.images = append(f.images, images)
	if f.err != nil {
		return "", f.err
	}
	resp := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return resp, nil
}

func (f *fakeDrafter) Model() string { return "gemini-test" }

func modelJSON(t *testing.T, body *models.ArticleBody) string {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	return string(b)
}

func genMessage(t *testing.T, msg models.GenerationMessage) string {
	t.Helper()
	b, err := json.Marshal(msg)
	require.NoError(t, err)
	return string(b)
}

func newWorker(runs *fakeRuns, articles *fakeArticles, metadata *fakeMetadata, drafter *fakeDrafter) *draft.Worker {
	return &draft.Worker{
		Runs:     runs,
		Articles: articles,
		Uploads:  &fakeUploads{},
		Metadata: metadata,
		Objects:  &fakeObjects{data: []byte{0xff, 0xd8}},
		Drafter:  drafter,
	}
}

func TestProcess_HappyPath(t *testing.T) {
	runs := &fakeRuns{run: &models.GenerationRun{RunID: "r1", Status: models.RunQueued}}
	articles := &fakeArticles{}
	metadata := &fakeMetadata{records: map[string]*models.PhotoMetadata{
		"u1": {
			UploadID:     "u1",
			ObjectBucket: "b",
			ObjectKey:    "uploads/u1/photo.jpg",
			CapturedAt:   "2026-07-30 06:12",
			Geocode:      &models.Place{Label: "123 Main St, Springfield, State", City: "Springfield", Region: "State", Country: "USA"},
		},
	}}
	drafter := &fakeDrafter{responses: []string{modelJSON(t, &models.ArticleBody{
		Title:        "Morning at the lake",
		Date:         "2026-07-30",
		Location:     "123 Main St, Springfield, State",
		Tags:         []string{"travel"},
		BodyMarkdown: strings.Repeat("The water was still when we arrived. ", 10),
	})}}
	w := newWorker(runs, articles, metadata, drafter)

	body := genMessage(t, models.GenerationMessage{
		RunID:      "r1",
		ArticleID:  "a1",
		UploadIDs:  []string{"u1"},
		Parameters: models.Parameters{Length: "short", PrivacyLevel: "area"},
	})

	require.NoError(t, w.Process(context.Background(), body, 1))

	assert.Equal(t, 1, runs.running)
	assert.Equal(t, 1, drafter.calls)
	require.Len(t, drafter.images[0], 1)

	require.Len(t, articles.saves, 1)
	saved := articles.saves[0]
	assert.Equal(t, "a1", saved.articleID)
	assert.Equal(t, "r1", saved.runID)
	assert.Equal(t, "Morning at the lake", saved.title)
	assert.Contains(t, saved.markdown, "# Morning at the lake")

	// Output-side privacy enforcement: a street address from the model
	// never survives an "area" run.
	assert.Equal(t, "State, USA", saved.body.Location)
	assert.Equal(t, "State, USA", saved.body.CaptureInfo.Location)
	assert.Equal(t, "2026-07-30 06:12", saved.body.CaptureInfo.CapturedAt)
	assert.NotContains(t, saved.markdown, "123 Main St")

	require.Len(t, runs.finishes, 1)
	assert.Equal(t, models.RunSucceeded, runs.finishes[0].status)
	assert.Equal(t, "gemini-test", runs.finishes[0].model)
	assert.Empty(t, runs.finishes[0].errMsg)
}

func TestProcess_TerminalRunIsNoOp(t *testing.T) {
	runs := &fakeRuns{run: &models.GenerationRun{RunID: "r1", Status: models.RunSucceeded}}
	drafter := &fakeDrafter{}
	w := newWorker(runs, &fakeArticles{}, &fakeMetadata{}, drafter)

	body := genMessage(t, models.GenerationMessage{RunID: "r1", ArticleID: "a1", UploadIDs: []string{"u1"}})
	require.NoError(t, w.Process(context.Background(), body, 2))

	assert.Equal(t, 0, runs.running)
	assert.Equal(t, 0, drafter.calls)
	assert.Empty(t, runs.finishes)
}

func TestProcess_ConcurrentFinishIsNoOp(t *testing.T) {
	runs := &fakeRuns{
		run:            &models.GenerationRun{RunID: "r1", Status: models.RunQueued},
		markRunningErr: ddb.ErrConflict,
	}
	drafter := &fakeDrafter{}
	w := newWorker(runs, &fakeArticles{}, &fakeMetadata{}, drafter)

	body := genMessage(t, models.GenerationMessage{RunID: "r1", ArticleID: "a1", UploadIDs: []string{"u1"}})
	require.NoError(t, w.Process(context.Background(), body, 1))
	assert.Equal(t, 0, drafter.calls)
}

func TestProcess_MissingMetadataRetriesWithoutDrafting(t *testing.T) {
	runs := &fakeRuns{run: &models.GenerationRun{RunID: "r1", Status: models.RunQueued}}
	drafter := &fakeDrafter{}
	w := newWorker(runs, &fakeArticles{}, &fakeMetadata{}, drafter)

	body := genMessage(t, models.GenerationMessage{RunID: "r1", ArticleID: "a1", UploadIDs: []string{"u1"}})
	err := w.Process(context.Background(), body, 1)

	require.Error(t, err)
	assert.False(t, queue.IsTerminal(err))
	assert.Contains(t, err.Error(), "metadata not ready")
	assert.Equal(t, 0, drafter.calls)
	assert.Empty(t, runs.finishes)
}

func TestProcess_NoUploadIDsFailsRunTerminally(t *testing.T) {
	runs := &fakeRuns{run: &models.GenerationRun{RunID: "r1", Status: models.RunQueued}}
	drafter := &fakeDrafter{}
	w := newWorker(runs, &fakeArticles{}, &fakeMetadata{}, drafter)

	body := genMessage(t, models.GenerationMessage{RunID: "r1", ArticleID: "a1"})
	err := w.Process(context.Background(), body, 1)

	require.Error(t, err)
	assert.True(t, queue.IsTerminal(err))
	require.Len(t, runs.finishes, 1)
	assert.Equal(t, models.RunFailed, runs.finishes[0].status)
	assert.Equal(t, 0, drafter.calls)
}

func TestProcess_UploadIDsFallBackToRunRecord(t *testing.T) {
	runs := &fakeRuns{run: &models.GenerationRun{
		RunID:     "r1",
		Status:    models.RunQueued,
		UploadIDs: []string{"u1"},
	}}
	metadata := &fakeMetadata{records: map[string]*models.PhotoMetadata{
		"u1": {UploadID: "u1", ObjectBucket: "b", ObjectKey: "k"},
	}}
	drafter := &fakeDrafter{responses: []string{modelJSON(t, &models.ArticleBody{
		Title:        "T",
		BodyMarkdown: strings.Repeat("body text ", 40),
	})}}
	w := newWorker(runs, &fakeArticles{}, metadata, drafter)

	body := genMessage(t, models.GenerationMessage{
		RunID:      "r1",
		ArticleID:  "a1",
		Parameters: models.Parameters{Length: "short"},
	})
	require.NoError(t, w.Process(context.Background(), body, 1))
	assert.Equal(t, 1, drafter.calls)
}

func TestProcess_DrafterFailureIsRetryable(t *testing.T) {
	runs := &fakeRuns{run: &models.GenerationRun{RunID: "r1", Status: models.RunQueued}}
	metadata := &fakeMetadata{records: map[string]*models.PhotoMetadata{
		"u1": {UploadID: "u1", ObjectBucket: "b", ObjectKey: "k"},
	}}
	drafter := &fakeDrafter{err: fmt.Errorf("request timed out")}
	w := newWorker(runs, &fakeArticles{}, metadata, drafter)

	body := genMessage(t, models.GenerationMessage{RunID: "r1", ArticleID: "a1", UploadIDs: []string{"u1"}})
	err := w.Process(context.Background(), body, 1)

	require.Error(t, err)
	assert.False(t, queue.IsTerminal(err))
	assert.Empty(t, runs.finishes)
}

func TestProcess_ShortOutputRecordsWarning(t *testing.T) {
	runs := &fakeRuns{run: &models.GenerationRun{RunID: "r1", Status: models.RunQueued}}
	metadata := &fakeMetadata{records: map[string]*models.PhotoMetadata{
		"u1": {UploadID: "u1", ObjectBucket: "b", ObjectKey: "k"},
	}}
	drafter := &fakeDrafter{responses: []string{modelJSON(t, &models.ArticleBody{
		Title:        "T",
		BodyMarkdown: "Too short.",
	})}}
	articles := &fakeArticles{}
	w := newWorker(runs, articles, metadata, drafter)

	body := genMessage(t, models.GenerationMessage{
		RunID:      "r1",
		ArticleID:  "a1",
		UploadIDs:  []string{"u1"},
		Parameters: models.Parameters{Length: "short"},
	})
	require.NoError(t, w.Process(context.Background(), body, 1))

	// Initial, retry, and expand passes all ran before giving up.
	assert.Equal(t, 3, drafter.calls)
	require.Len(t, articles.saves, 1)
	require.Len(t, runs.finishes, 1)
	assert.Equal(t, models.RunSucceeded, runs.finishes[0].status)
	assert.Contains(t, runs.finishes[0].errMsg, "shorter than requested")
}

func TestProcess_MalformedMessageIsDropped(t *testing.T) {
	runs := &fakeRuns{}
	drafter := &fakeDrafter{}
	w := newWorker(runs, &fakeArticles{}, &fakeMetadata{}, drafter)

	assert.NoError(t, w.Process(context.Background(), "not json", 1))
	assert.NoError(t, w.Process(context.Background(), `{"run_id":"r1"}`, 1))
	assert.Equal(t, 0, drafter.calls)
}

func TestExhausted_MarksRunFailed(t *testing.T) {
	runs := &fakeRuns{}
	w := newWorker(runs, &fakeArticles{}, &fakeMetadata{}, &fakeDrafter{})

	body := genMessage(t, models.GenerationMessage{RunID: "r1", ArticleID: "a1"})
	w.Exhausted(context.Background(), body, errors.New("metadata not ready for upload u1"))

	require.Len(t, runs.finishes, 1)
	assert.Equal(t, models.RunFailed, runs.finishes[0].status)
	assert.Contains(t, runs.finishes[0].errMsg, "metadata not ready")
}
