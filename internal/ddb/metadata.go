package ddb

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/snapdraft/photoblog-backend/internal/models"
)

// Metadata is the repository for extracted photo metadata, keyed 1:1 by
// upload id.
type Metadata struct {
	DB    Client
	Table string
}

// Put overwrites the metadata record for an upload. Unconditional: the
// extractor derives the same item on every delivery, so replaying a
// message is safe.
func (r *Metadata) Put(ctx context.Context, m models.PhotoMetadata) error {
	item, err := attributevalue.MarshalMap(m)
	if err != nil {
		return err
	}
	_, err = r.DB.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: awsStr(r.Table),
		Item:      item,
	})
	return err
}

// Get loads metadata for an upload.
func (r *Metadata) Get(ctx context.Context, uploadID string) (*models.PhotoMetadata, error) {
	var m models.PhotoMetadata
	if err := getItem(ctx, r.DB, r.Table, "upload_id", uploadID, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
