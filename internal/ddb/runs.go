package ddb

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/snapdraft/photoblog-backend/internal/models"
)

// Runs is the repository for generation-run records.
type Runs struct {
	DB    Client
	Table string
}

// Create inserts a new run, refusing to overwrite an existing id.
func (r *Runs) Create(ctx context.Context, run models.GenerationRun) error {
	item, err := attributevalue.MarshalMap(run)
	if err != nil {
		return err
	}
	_, err = r.DB.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           awsStr(r.Table),
		Item:                item,
		ConditionExpression: awsStr("attribute_not_exists(run_id)"),
	})
	return conflictOr(err)
}

// Get loads a run by id.
func (r *Runs) Get(ctx context.Context, runID string) (*models.GenerationRun, error) {
	var run models.GenerationRun
	if err := getItem(ctx, r.DB, r.Table, "run_id", runID, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// MarkRunning records that the worker picked the run up. The condition
// refuses to resurrect a run that already reached a terminal status, so a
// duplicate delivery racing the first one cannot flip SUCCEEDED back to
// RUNNING.
func (r *Runs) MarkRunning(ctx context.Context, runID, now string) error {
	_, err := r.DB.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: awsStr(r.Table),
		Key: map[string]types.AttributeValue{
			"run_id": &types.AttributeValueMemberS{Value: runID},
		},
		UpdateExpression:         awsStr("SET #status = :running"),
		ConditionExpression:      awsStr("attribute_exists(run_id) AND #status IN (:queued, :running)"),
		ExpressionAttributeNames: map[string]string{"#status": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":running": &types.AttributeValueMemberS{Value: string(models.RunRunning)},
			":queued":  &types.AttributeValueMemberS{Value: string(models.RunQueued)},
		},
	})
	return conflictOr(err)
}

// Finish records the terminal outcome of a run.
func (r *Runs) Finish(ctx context.Context, runID string, status models.RunStatus, model, errMsg, completedAt string) error {
	_, err := r.DB.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: awsStr(r.Table),
		Key: map[string]types.AttributeValue{
			"run_id": &types.AttributeValueMemberS{Value: runID},
		},
		UpdateExpression: awsStr(
			"SET #status = :status, completed_at = :completed_at, model = :model, error_message = :error"),
		ExpressionAttributeNames: map[string]string{"#status": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status":       &types.AttributeValueMemberS{Value: string(status)},
			":completed_at": &types.AttributeValueMemberS{Value: completedAt},
			":model":        &types.AttributeValueMemberS{Value: model},
			":error":        &types.AttributeValueMemberS{Value: errMsg},
		},
	})
	return err
}
