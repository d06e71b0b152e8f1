package ddb

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/snapdraft/photoblog-backend/internal/models"
)

// Uploads is the repository for upload lifecycle records.
type Uploads struct {
	DB    Client
	Table string
}

// Create inserts a new upload record, refusing to overwrite an existing id.
func (r *Uploads) Create(ctx context.Context, u models.Upload) error {
	item, err := attributevalue.MarshalMap(u)
	if err != nil {
		return err
	}
	_, err = r.DB.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           awsStr(r.Table),
		Item:                item,
		ConditionExpression: awsStr("attribute_not_exists(upload_id)"),
	})
	return conflictOr(err)
}

// Get loads an upload by id.
func (r *Uploads) Get(ctx context.Context, uploadID string) (*models.Upload, error) {
	var u models.Upload
	if err := getItem(ctx, r.DB, r.Table, "upload_id", uploadID, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// MarkUploaded transitions CREATED -> UPLOAD_COMPLETE. The condition also
// accepts UPLOAD_COMPLETE so duplicate completion calls are no-ops rather
// than conflicts.
func (r *Uploads) MarkUploaded(ctx context.Context, uploadID, now string) error {
	_, err := r.DB.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: awsStr(r.Table),
		Key: map[string]types.AttributeValue{
			"upload_id": &types.AttributeValueMemberS{Value: uploadID},
		},
		UpdateExpression:    awsStr("SET #status = :status, updated_at = :updated_at"),
		ConditionExpression: awsStr("attribute_exists(upload_id) AND #status IN (:created, :status)"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status":     &types.AttributeValueMemberS{Value: string(models.UploadComplete)},
			":created":    &types.AttributeValueMemberS{Value: string(models.UploadCreated)},
			":updated_at": &types.AttributeValueMemberS{Value: now},
		},
	})
	return conflictOr(err)
}

// SetStatus records a metadata outcome (METADATA_READY or METADATA_FAILED).
// The write is monotonic in practice: the extractor only calls it with
// terminal metadata states, so a redelivered message re-writes the same
// value.
func (r *Uploads) SetStatus(ctx context.Context, uploadID string, status models.UploadStatus, reason, now string) error {
	expr := "SET #status = :status, updated_at = :updated_at"
	values := map[string]types.AttributeValue{
		":status":     &types.AttributeValueMemberS{Value: string(status)},
		":updated_at": &types.AttributeValueMemberS{Value: now},
	}
	if reason != "" {
		expr += ", failure_reason = :reason"
		values[":reason"] = &types.AttributeValueMemberS{Value: reason}
	}
	_, err := r.DB.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: awsStr(r.Table),
		Key: map[string]types.AttributeValue{
			"upload_id": &types.AttributeValueMemberS{Value: uploadID},
		},
		UpdateExpression:          awsStr(expr),
		ExpressionAttributeNames:  map[string]string{"#status": "status"},
		ExpressionAttributeValues: values,
	})
	return err
}
