// Package main runs the metadata-extraction worker against the extraction
// queue.
package main

import (
	"context"
	"log"

	"github.com/snapdraft/photoblog-backend/internal/awsutil"
	"github.com/snapdraft/photoblog-backend/internal/config"
	"github.com/snapdraft/photoblog-backend/internal/ddb"
	"github.com/snapdraft/photoblog-backend/internal/extract"
	"github.com/snapdraft/photoblog-backend/internal/geocode"
	"github.com/snapdraft/photoblog-backend/internal/queue"
	"github.com/snapdraft/photoblog-backend/internal/s3io"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/location"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

func main() {
	config.Require("UPLOADS_TABLE", "METADATA_TABLE")
	env := config.Load()
	cfg, endpoint, err := awsutil.Load(context.Background(), env.Region)
	if err != nil {
		log.Fatal(err)
	}

	s3c := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.UsePathStyle = true
		}
	})
	db := dynamodb.NewFromConfig(cfg)

	worker := &extract.Worker{
		Uploads:  &ddb.Uploads{DB: db, Table: env.UploadsTable},
		Metadata: &ddb.Metadata{DB: db, Table: env.MetadataTable},
		Objects:  &s3io.Store{Client: s3c},
	}
	if env.PlaceIndexName != "" {
		worker.Geo = &geocode.Resolver{Client: location.NewFromConfig(cfg), Index: env.PlaceIndexName}
	}

	consumer := &queue.Consumer{
		Name:        "extractor",
		Ceiling:     env.MaxReceiveCount,
		DeadLetter:  &queue.Publisher{SQS: sqs.NewFromConfig(cfg), URL: env.ExtractDLQURL},
		Process:     worker.Process,
		OnExhausted: worker.Exhausted,
	}
	lambda.Start(consumer.Handle)
}
