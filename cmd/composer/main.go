// Package main runs the generation worker against the generation queue.
package main

import (
	"context"
	"log"

	"github.com/snapdraft/photoblog-backend/internal/awsutil"
	"github.com/snapdraft/photoblog-backend/internal/config"
	"github.com/snapdraft/photoblog-backend/internal/ddb"
	"github.com/snapdraft/photoblog-backend/internal/draft"
	"github.com/snapdraft/photoblog-backend/internal/gemini"
	"github.com/snapdraft/photoblog-backend/internal/queue"
	"github.com/snapdraft/photoblog-backend/internal/s3io"
	"github.com/snapdraft/photoblog-backend/internal/secrets"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

func main() {
	config.Require("UPLOADS_TABLE", "METADATA_TABLE", "ARTICLES_TABLE",
		"GENERATION_RUNS_TABLE", "GEMINI_API_KEY_SECRET_ARN")
	env := config.Load()
	ctx := context.Background()
	cfg, endpoint, err := awsutil.Load(ctx, env.Region)
	if err != nil {
		log.Fatal(err)
	}

	// The secret aliases collapse to one canonical key at cold start; a
	// failed lookup fails the start rather than poisoning every message.
	apiKey, err := secrets.APIKey(ctx, secretsmanager.NewFromConfig(cfg), env.GeminiSecretARN)
	if err != nil {
		log.Fatalf("composer: resolve api key: %v", err)
	}

	s3c := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.UsePathStyle = true
		}
	})
	db := dynamodb.NewFromConfig(cfg)

	worker := &draft.Worker{
		Runs:     &ddb.Runs{DB: db, Table: env.RunsTable},
		Articles: &ddb.Articles{DB: db, Table: env.ArticlesTable},
		Uploads:  &ddb.Uploads{DB: db, Table: env.UploadsTable},
		Metadata: &ddb.Metadata{DB: db, Table: env.MetadataTable},
		Objects:  &s3io.Store{Client: s3c},
		Drafter:  gemini.NewClient(env.GeminiModel, apiKey, env.GeminiTimeout, env.GeminiRetries),
	}

	consumer := &queue.Consumer{
		Name:        "composer",
		Ceiling:     env.MaxReceiveCount,
		DeadLetter:  &queue.Publisher{SQS: sqs.NewFromConfig(cfg), URL: env.GenerateDLQURL},
		Process:     worker.Process,
		OnExhausted: worker.Exhausted,
	}
	lambda.Start(consumer.Handle)
}
