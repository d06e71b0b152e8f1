// Package main serves article reads, including the recorded draft body and
// latest run pointer.
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
	env      config.Env
	articles *ddb.Articles
}

func main() {
	config.Require("ARTICLES_TABLE")
	env := config.Load()
	cfg, _, err := awsutil.Load(context.Background(), env.Region)
	if err != nil {
		log.Fatal(err)
	}
	app := &App{
		env:      env,
		articles: &ddb.Articles{DB: dynamodb.NewFromConfig(cfg), Table: env.ArticlesTable},
	}
	lambda.Start(app.handler)
}

// handler returns the article record. Callers poll this after generate;
// failure detail for an unfinished draft lives on the run record.
func (a *App) handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	articleID := req.PathParameters["articleId"]
	if articleID == "" {
		return httpx.Error(http.StatusBadRequest, "articleId is required.")
	}
	article, err := a.articles.Get(ctx, articleID)
	if err != nil {
		if errors.Is(err, ddb.ErrNotFound) {
			return httpx.Error(http.StatusNotFound, "Article not found.")
		}
		log.Printf("article: load: %v", err)
		return httpx.Error(http.StatusInternalServerError, "db error")
	}
	return httpx.JSON(http.StatusOK, map[string]*models.Article{"article": article})
}
