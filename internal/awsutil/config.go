// Package awsutil provides utilities for loading AWS configuration.
package awsutil

import (
	"context"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsCfg "github.com/aws/aws-sdk-go-v2/config"
)

// Load loads the AWS configuration. When AWS_ENDPOINT_URL is set (e.g.
// http://localstack:4566) every client built from the returned config talks
// to that endpoint instead of AWS; the endpoint is also returned so callers
// can enable path-style S3 addressing in that case.
func Load(ctx context.Context, region string) (aws.Config, string, error) {
	opts := []func(*awsCfg.LoadOptions) error{awsCfg.WithRegion(region)}
	endpoint := os.Getenv("AWS_ENDPOINT_URL")
	if endpoint != "" {
		opts = append(opts, awsCfg.WithBaseEndpoint(endpoint))
	}
	cfg, err := awsCfg.LoadDefaultConfig(ctx, opts...)
	return cfg, endpoint, err
}
