// Package main issues presigned upload targets and creates the upload
// lifecycle record.
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
	"github.com/snapdraft/photoblog-backend/internal/ident"
	"github.com/snapdraft/photoblog-backend/internal/models"
	"github.com/snapdraft/photoblog-backend/internal/s3io"
	"github.com/snapdraft/photoblog-backend/internal/validate"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// createUploadRequest is the expected JSON body.
type createUploadRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	OwnerID     string `json:"owner_id"`
}

// createUploadResponse carries the presigned target back to the client.
type createUploadResponse struct {
	UploadID  string `json:"upload_id"`
	UploadURL string `json:"upload_url"`
	ObjectKey string `json:"object_key"`
	ExpiresIn int    `json:"expires_in"`
}

// App holds the application state, including configuration and AWS clients.
type App struct {
	env     config.Env
	s3p     *s3.PresignClient
	uploads *ddb.Uploads
}

func main() {
	config.Require("UPLOADS_BUCKET", "UPLOADS_TABLE")
	env := config.Load()
	cfg, endpoint, err := awsutil.Load(context.Background(), env.Region)
	if err != nil {
		log.Fatal(err)
	}

	s3c := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.UsePathStyle = true // localstack/dev friendliness
		}
	})

	app := &App{
		env:     env,
		s3p:     s3.NewPresignClient(s3c),
		uploads: &ddb.Uploads{DB: dynamodb.NewFromConfig(cfg), Table: env.UploadsTable},
	}
	lambda.Start(app.handler)
}

// handler creates the upload record and presigns the PUT target.
func (a *App) handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	var body createUploadRequest
	if req.Body != "" {
		if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
			return httpx.Error(http.StatusBadRequest, "Invalid JSON body.")
		}
	}
	if body.ContentType == "" {
		body.ContentType = "image/jpeg"
	}
	if err := validate.FilenameImage(body.Filename); err != nil {
		return httpx.Error(http.StatusBadRequest, err.Error())
	}
	if err := validate.ContentTypeImage(body.ContentType); err != nil {
		return httpx.Error(http.StatusBadRequest, err.Error())
	}

	uploadID := uuid.NewString()
	owner := ident.Owner(req, body.OwnerID)
	key := s3io.BuildKey(a.env.UploadPrefix, uploadID, body.Filename)
	now := ddb.NowISO()

	upload := models.Upload{
		UploadID:    uploadID,
		OwnerID:     owner,
		ObjectKey:   key,
		ImageURI:    s3io.URI(a.env.Bucket, key),
		ContentType: body.ContentType,
		Status:      models.UploadCreated,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := a.uploads.Create(ctx, upload); err != nil {
		if errors.Is(err, ddb.ErrConflict) {
			return httpx.Error(http.StatusConflict, "upload id collision")
		}
		log.Printf("presign: create upload: %v", err)
		return httpx.Error(http.StatusInternalServerError, "db error")
	}

	meta := map[string]string{"upload_id": uploadID, "owner_id": owner}
	url, ttl, err := s3io.PresignPut(ctx, a.s3p, a.env.Bucket, key, body.ContentType, meta, a.env.PresignTTL)
	if err != nil {
		log.Printf("presign: %v", err)
		return httpx.Error(http.StatusInternalServerError, "presign error")
	}

	return httpx.JSON(http.StatusOK, createUploadResponse{
		UploadID:  uploadID,
		UploadURL: url,
		ObjectKey: key,
		ExpiresIn: int(ttl.Seconds()),
	})
}
