// Package main serves generation-run status reads: callers poll these to
// observe QUEUED/RUNNING/SUCCEEDED/FAILED and, on failure, the recorded
// cause.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/snapdraft/photoblog-backend/internal/awsutil"
	"github.com/snapdraft/photoblog-backend/internal/config"
	"github.com/snapdraft/photoblog-backend/internal/ddb"
	"github.com/snapdraft/photoblog-backend/internal/httpx"
	"github.com/snapdraft/photoblog-backend/internal/models"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// App holds the application state, including configuration and AWS clients.
type App struct {
	env  config.Env
	runs *ddb.Runs
}

func main() {
	config.Require("GENERATION_RUNS_TABLE")
	env := config.Load()
	cfg, _, err := awsutil.Load(context.Background(), env.Region)
	if err != nil {
		log.Fatal(err)
	}
	app := &App{
		env:  env,
		runs: &ddb.Runs{DB: dynamodb.NewFromConfig(cfg), Table: env.RunsTable},
	}
	lambda.Start(app.handler)
}

// handler returns the run record.
func (a *App) handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	runID := req.PathParameters["runId"]
	if runID == "" {
		return httpx.Error(http.StatusBadRequest, "runId is required.")
	}
	run, err := a.runs.Get(ctx, runID)
	if err != nil {
		if errors.Is(err, ddb.ErrNotFound) {
			return httpx.Error(http.StatusNotFound, "Run not found.")
		}
		log.Printf("run: load: %v", err)
		return httpx.Error(http.StatusInternalServerError, "db error")
	}
	return httpx.JSON(http.StatusOK, map[string]*models.GenerationRun{"run": run})
}
