// Package main creates an article and its first generation run, then
// enqueues the drafting work.
package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/snapdraft/photoblog-backend/internal/awsutil"
	"github.com/snapdraft/photoblog-backend/internal/compose"
	"github.com/snapdraft/photoblog-backend/internal/config"
	"github.com/snapdraft/photoblog-backend/internal/ddb"
	"github.com/snapdraft/photoblog-backend/internal/httpx"
	"github.com/snapdraft/photoblog-backend/internal/ident"
	"github.com/snapdraft/photoblog-backend/internal/models"
	"github.com/snapdraft/photoblog-backend/internal/queue"
	"github.com/snapdraft/photoblog-backend/internal/validate"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/oklog/ulid/v2"
)

// generateRequest is the expected JSON body.
type generateRequest struct {
	UploadIDs []string `json:"upload_ids"`
	OwnerID   string   `json:"owner_id"`
	models.Parameters
}

// generateResponse returns the ids the caller polls.
type generateResponse struct {
	ArticleID string `json:"article_id"`
	RunID     string `json:"run_id"`
	Status    string `json:"status"`
}

// App holds the application state, including configuration and AWS clients.
type App struct {
	env      config.Env
	articles *ddb.Articles
	runs     *ddb.Runs
	generate *queue.Publisher
}

func main() {
	config.Require("ARTICLES_TABLE", "GENERATION_RUNS_TABLE", "GENERATION_QUEUE_URL")
	env := config.Load()
	cfg, _, err := awsutil.Load(context.Background(), env.Region)
	if err != nil {
		log.Fatal(err)
	}
	db := dynamodb.NewFromConfig(cfg)
	app := &App{
		env:      env,
		articles: &ddb.Articles{DB: db, Table: env.ArticlesTable},
		runs:     &ddb.Runs{DB: db, Table: env.RunsTable},
		generate: &queue.Publisher{SQS: sqs.NewFromConfig(cfg), URL: env.GenerateQueueURL},
	}
	lambda.Start(app.handler)
}

// handler validates the request, writes the initial records, and enqueues
// one generation message.
func (a *App) handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	var body generateRequest
	if req.Body == "" {
		return httpx.Error(http.StatusBadRequest, "upload_ids is required.")
	}
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
		return httpx.Error(http.StatusBadRequest, "Invalid JSON body.")
	}
	if err := validateParams(body.UploadIDs, body.Parameters); err != nil {
		return httpx.Error(http.StatusBadRequest, err.Error())
	}
	compose.ApplyDefaults(&body.Parameters)

	articleID := ulid.Make().String()
	runID := ulid.Make().String()
	now := ddb.NowISO()
	owner := ident.Owner(req, body.OwnerID)

	article := models.Article{
		ArticleID:    articleID,
		OwnerID:      owner,
		Status:       models.ArticleDraftPending,
		CreatedAt:    now,
		UpdatedAt:    now,
		UploadIDs:    body.UploadIDs,
		PrivacyLevel: body.PrivacyLevel,
	}
	if err := a.articles.Create(ctx, article); err != nil {
		log.Printf("generate: create article: %v", err)
		return httpx.Error(http.StatusInternalServerError, "db error")
	}

	run := models.GenerationRun{
		RunID:     runID,
		ArticleID: articleID,
		UploadIDs: body.UploadIDs,
		Params:    body.Parameters,
		Status:    models.RunQueued,
		CreatedAt: now,
	}
	if err := a.runs.Create(ctx, run); err != nil {
		log.Printf("generate: create run: %v", err)
		return httpx.Error(http.StatusInternalServerError, "db error")
	}

	msg := models.GenerationMessage{
		RunID:      runID,
		ArticleID:  articleID,
		UploadIDs:  body.UploadIDs,
		Parameters: body.Parameters,
	}
	if err := a.generate.Publish(ctx, msg); err != nil {
		log.Printf("generate: enqueue: %v", err)
		return httpx.Error(http.StatusInternalServerError, "queue error")
	}

	return httpx.JSON(http.StatusOK, generateResponse{
		ArticleID: articleID,
		RunID:     runID,
		Status:    string(models.RunQueued),
	})
}

// validateParams checks the upload list and every style parameter.
func validateParams(uploadIDs []string, p models.Parameters) error {
	checks := []func() error{
		func() error { return validate.UploadIDsOK(uploadIDs) },
		func() error { return validate.ToneOK(p.Tone) },
		func() error { return validate.LengthOK(p.Length) },
		func() error { return validate.LanguageOK(p.Language) },
		func() error { return validate.PrivacyLevelOK(p.PrivacyLevel) },
		func() error { return validate.InstructionOK(p.Instruction) },
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}
