package ddb

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/snapdraft/photoblog-backend/internal/models"
)

// Articles is the repository for article records.
type Articles struct {
	DB    Client
	Table string
}

// Create inserts a new article, refusing to overwrite an existing id.
func (r *Articles) Create(ctx context.Context, a models.Article) error {
	item, err := attributevalue.MarshalMap(a)
	if err != nil {
		return err
	}
	_, err = r.DB.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           awsStr(r.Table),
		Item:                item,
		ConditionExpression: awsStr("attribute_not_exists(article_id)"),
	})
	return conflictOr(err)
}

// Get loads an article by id.
func (r *Articles) Get(ctx context.Context, articleID string) (*models.Article, error) {
	var a models.Article
	if err := getItem(ctx, r.DB, r.Table, "article_id", articleID, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// MarkPending flips an existing article back to draft_pending ahead of a
// regeneration run.
func (r *Articles) MarkPending(ctx context.Context, articleID, now string) error {
	_, err := r.DB.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: awsStr(r.Table),
		Key: map[string]types.AttributeValue{
			"article_id": &types.AttributeValueMemberS{Value: articleID},
		},
		UpdateExpression:         awsStr("SET #status = :status, updated_at = :updated_at"),
		ConditionExpression:      awsStr("attribute_exists(article_id)"),
		ExpressionAttributeNames: map[string]string{"#status": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status":     &types.AttributeValueMemberS{Value: string(models.ArticleDraftPending)},
			":updated_at": &types.AttributeValueMemberS{Value: now},
		},
	})
	if err := conflictOr(err); err == ErrConflict {
		return ErrNotFound
	} else if err != nil {
		return err
	}
	return nil
}

// SaveDraft overwrites the article body after a successful run. Last writer
// wins when concurrent runs race; each run's own outcome stays in the run
// record.
func (r *Articles) SaveDraft(ctx context.Context, articleID, title, markdown string, body *models.ArticleBody, runID, now string) error {
	bodyAttr, err := attributevalue.Marshal(body)
	if err != nil {
		return err
	}
	_, err = r.DB.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: awsStr(r.Table),
		Key: map[string]types.AttributeValue{
			"article_id": &types.AttributeValueMemberS{Value: articleID},
		},
		UpdateExpression: awsStr(
			"SET #status = :status, updated_at = :updated_at, title = :title, " +
				"body_markdown = :body, body_json = :body_json, latest_run_id = :run_id"),
		ExpressionAttributeNames: map[string]string{"#status": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status":     &types.AttributeValueMemberS{Value: string(models.ArticleDraft)},
			":updated_at": &types.AttributeValueMemberS{Value: now},
			":title":      &types.AttributeValueMemberS{Value: title},
			":body":       &types.AttributeValueMemberS{Value: markdown},
			":body_json":  bodyAttr,
			":run_id":     &types.AttributeValueMemberS{Value: runID},
		},
	})
	return err
}
