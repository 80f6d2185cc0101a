// Package aws provides the S3-backed configuration source, so that course
// staff can share one configuration document from a bucket
// (--config s3://bucket/key).
package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
)

// Option is a marker interface for all AWS source options.
type Option interface {
	awsSourceOption()
}

// clientConfig holds shared AWS client configuration.
type clientConfig struct {
	awsConfig *aws.Config
	region    string
}

// ClientOption configures AWS client behavior.
type ClientOption func(*clientConfig)

func (ClientOption) awsSourceOption() {}

// WithAWSConfig sets a custom AWS configuration.
// If not provided, the default configuration is loaded from the environment.
//
//	cfg, _ := config.LoadDefaultConfig(ctx, config.WithRegion("us-west-2"))
//	src := aws.NewS3Source("bucket", "cs1001/_config.yml", aws.WithAWSConfig(cfg))
func WithAWSConfig(cfg aws.Config) ClientOption {
	return func(c *clientConfig) {
		c.awsConfig = &cfg
	}
}

// WithRegion overrides the region of the default configuration.
func WithRegion(region string) ClientOption {
	return func(c *clientConfig) {
		c.region = region
	}
}

// loadAWSConfig returns the AWS config, loading the default if not set.
func loadAWSConfig(ctx context.Context, cfg *clientConfig) (aws.Config, error) {
	if cfg.awsConfig != nil {
		return *cfg.awsConfig, nil
	}

	var opts []func(*config.LoadOptions) error
	if cfg.region != "" {
		opts = append(opts, config.WithRegion(cfg.region))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return awsCfg, nil
}
