// Package main finalizes an upload after the client PUT and enqueues
// metadata extraction.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/snapdraft/photoblog-backend/internal/awsutil"
	"github.com/snapdraft/photoblog-backend/internal/config"
	"github.com/snapdraft/photoblog-backend/internal/ddb"
	"github.com/snapdraft/photoblog-backend/internal/httpx"
	"github.com/snapdraft/photoblog-backend/internal/models"
	"github.com/snapdraft/photoblog-backend/internal/queue"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// completeRequest is the expected JSON body. The optional hint fields ride
// along to the extraction queue; the pipeline never parses image tags
// itself.
type completeRequest struct {
	ObjectKey   string           `json:"object_key"`
	GPS         *models.GPSPoint `json:"gps"`
	CapturedAt  string           `json:"datetime_original"`
	CameraMake  string           `json:"camera_make"`
	CameraModel string           `json:"camera_model"`
}

// App holds the application state, including configuration and AWS clients.
type App struct {
	env     config.Env
	uploads *ddb.Uploads
	extract *queue.Publisher
}

func main() {
	config.Require("UPLOADS_BUCKET", "UPLOADS_TABLE", "EXIF_QUEUE_URL")
	env := config.Load()
	cfg, _, err := awsutil.Load(context.Background(), env.Region)
	if err != nil {
		log.Fatal(err)
	}
	app := &App{
		env:     env,
		uploads: &ddb.Uploads{DB: dynamodb.NewFromConfig(cfg), Table: env.UploadsTable},
		extract: &queue.Publisher{SQS: sqs.NewFromConfig(cfg), URL: env.ExtractQueueURL},
	}
	lambda.Start(app.handler)
}

// handler validates the upload state, marks it complete, and enqueues one
// extraction message. Duplicate completion calls are accepted and enqueue
// again; the extractor is idempotent.
func (a *App) handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	uploadID := req.PathParameters["uploadId"]
	if uploadID == "" {
		return httpx.Error(http.StatusBadRequest, "uploadId is required.")
	}
	var body completeRequest
	if req.Body != "" {
		if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
			return httpx.Error(http.StatusBadRequest, "Invalid JSON body.")
		}
	}

	upload, err := a.uploads.Get(ctx, uploadID)
	if err != nil {
		if errors.Is(err, ddb.ErrNotFound) {
			return httpx.Error(http.StatusNotFound, "Upload not found.")
		}
		log.Printf("complete: load upload: %v", err)
		return httpx.Error(http.StatusInternalServerError, "db error")
	}
	if body.ObjectKey != "" && body.ObjectKey != upload.ObjectKey {
		return httpx.Error(http.StatusConflict, "object_key does not match this upload.")
	}

	if err := a.uploads.MarkUploaded(ctx, uploadID, ddb.NowISO()); err != nil {
		if errors.Is(err, ddb.ErrConflict) {
			return httpx.Error(http.StatusConflict, "upload is not awaiting completion")
		}
		log.Printf("complete: mark uploaded: %v", err)
		return httpx.Error(http.StatusInternalServerError, "db error")
	}

	msg := models.ExtractionMessage{
		UploadID:    uploadID,
		Bucket:      a.env.Bucket,
		Key:         upload.ObjectKey,
		GPS:         body.GPS,
		CapturedAt:  body.CapturedAt,
		CameraMake:  body.CameraMake,
		CameraModel: body.CameraModel,
	}
	if err := a.extract.Publish(ctx, msg); err != nil {
		log.Printf("complete: enqueue extraction: %v", err)
		return httpx.Error(http.StatusInternalServerError, "queue error")
	}

	return httpx.JSON(http.StatusOK, map[string]string{"upload_id": uploadID, "status": "queued"})
}
