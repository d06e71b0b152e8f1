// Package ddb provides one small repository per record table. All writes
// are keyed overwrites; the pipeline relies on idempotent re-writes, not
// optimistic concurrency.
package ddb

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Client defines the DynamoDB operations the repos use.
type Client interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// ErrNotFound is returned when a referenced record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrConflict is returned when a conditional write loses to existing state.
var ErrConflict = errors.New("state conflict")

// NowISO returns the current time in ISO8601 format.
func NowISO() string { return time.Now().UTC().Format(time.RFC3339) }

// awsStr is a helper to get a pointer to a string literal.
func awsStr(s string) *string { return &s }

// conflictOr maps a conditional-check failure to ErrConflict.
func conflictOr(err error) error {
	var cfe *types.ConditionalCheckFailedException
	if errors.As(err, &cfe) {
		return ErrConflict
	}
	return err
}

// getItem loads and unmarshals one item by a single string key.
func getItem(ctx context.Context, db Client, table, keyName, keyValue string, out any) error {
	resp, err := db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: awsStr(table),
		Key: map[string]types.AttributeValue{
			keyName: &types.AttributeValueMemberS{Value: keyValue},
		},
	})
	if err != nil {
		return err
	}
	if len(resp.Item) == 0 {
		return ErrNotFound
	}
	return attributevalue.UnmarshalMap(resp.Item, out)
}
