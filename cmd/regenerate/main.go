// Package main creates a fresh generation run for an existing article and
// enqueues the drafting work.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/snapdraft/photoblog-backend/internal/awsutil"
	"github.com/snapdraft/photoblog-backend/internal/compose"
	"github.com/snapdraft/photoblog-backend/internal/config"
	"github.com/snapdraft/photoblog-backend/internal/ddb"
	"github.com/snapdraft/photoblog-backend/internal/httpx"
	"github.com/snapdraft/photoblog-backend/internal/models"
	"github.com/snapdraft/photoblog-backend/internal/queue"
	"github.com/snapdraft/photoblog-backend/internal/validate"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/oklog/ulid/v2"
)

// regenerateRequest carries only style parameters; the upload set comes
// from the article record.
type regenerateRequest struct {
	models.Parameters
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

// handler validates the article exists, records a new QUEUED run, flips the
// article back to draft_pending, and enqueues the work. Concurrent
// regenerations are allowed to race; the last run to finish owns the
// article body.
func (a *App) handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	articleID := req.PathParameters["articleId"]
	if articleID == "" {
		return httpx.Error(http.StatusBadRequest, "articleId is required.")
	}
	var body regenerateRequest
	if req.Body != "" {
		if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
			return httpx.Error(http.StatusBadRequest, "Invalid JSON body.")
		}
	}
	if err := validateParams(body.Parameters); err != nil {
		return httpx.Error(http.StatusBadRequest, err.Error())
	}
	compose.ApplyDefaults(&body.Parameters)

	article, err := a.articles.Get(ctx, articleID)
	if err != nil {
		if errors.Is(err, ddb.ErrNotFound) {
			return httpx.Error(http.StatusNotFound, "Article not found.")
		}
		log.Printf("regenerate: load article: %v", err)
		return httpx.Error(http.StatusInternalServerError, "db error")
	}

	runID := ulid.Make().String()
	now := ddb.NowISO()
	run := models.GenerationRun{
		RunID:     runID,
		ArticleID: articleID,
		UploadIDs: article.UploadIDs,
		Params:    body.Parameters,
		Status:    models.RunQueued,
		CreatedAt: now,
	}
	if err := a.runs.Create(ctx, run); err != nil {
		log.Printf("regenerate: create run: %v", err)
		return httpx.Error(http.StatusInternalServerError, "db error")
	}
	if err := a.articles.MarkPending(ctx, articleID, now); err != nil {
		log.Printf("regenerate: mark pending: %v", err)
		return httpx.Error(http.StatusInternalServerError, "db error")
	}

	msg := models.GenerationMessage{
		RunID:      runID,
		ArticleID:  articleID,
		UploadIDs:  article.UploadIDs,
		Parameters: body.Parameters,
	}
	if err := a.generate.Publish(ctx, msg); err != nil {
		log.Printf("regenerate: enqueue: %v", err)
		return httpx.Error(http.StatusInternalServerError, "queue error")
	}

	return httpx.JSON(http.StatusOK, map[string]string{
		"article_id": articleID,
		"run_id":     runID,
		"status":     string(models.RunQueued),
	})
}

// validateParams checks every style parameter.
func validateParams(p models.Parameters) error {
	checks := []func() error{
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
