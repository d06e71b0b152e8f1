// Package secrets resolves the drafting-collaborator API key from Secrets
// Manager. The secret may be a bare string or a JSON object carrying the
// key under any of several historical field names; the aliases are resolved
// once at startup into a single canonical value.
package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// keyAliases are the accepted field names, in priority order.
var keyAliases = []string{"apiKey", "api_key", "key", "GEMINI_API_KEY"}

// Fetcher defines the Secrets Manager operation the resolver uses.
type Fetcher interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// APIKey fetches the secret and returns the canonical API key value.
func APIKey(ctx context.Context, f Fetcher, secretARN string) (string, error) {
	if secretARN == "" {
		return "", fmt.Errorf("secret ARN not configured")
	}
	out, err := f.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretARN),
	})
	if err != nil {
		return "", fmt.Errorf("get secret: %w", err)
	}
	raw := aws.ToString(out.SecretString)
	if raw == "" && len(out.SecretBinary) > 0 {
		raw = string(out.SecretBinary)
	}
	key := FromString(raw)
	if key == "" {
		return "", fmt.Errorf("secret is empty")
	}
	return key, nil
}

// FromString extracts the API key from a raw secret value, trying the JSON
// alias names first and falling back to the whole value.
func FromString(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(raw), &payload); err == nil {
		for _, name := range keyAliases {
			if v, ok := payload[name].(string); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
		// JSON object without a recognized field name carries no key.
		return ""
	}
	return raw
}
