// Command riverlevel-lambda is the AWS Lambda entry point. Each invocation
// runs one update cycle and uploads the outputs to S3.
//
// Environment:
//
//	BUCKET_NAME  destination bucket (required)
//	KEY_PREFIX   key prefix, "" by default
//	CONFIG_FILE  YAML configuration layered over the defaults (optional)
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/riverlevel/riverlevel/config"
	"github.com/riverlevel/riverlevel/pipeline"
	"github.com/riverlevel/riverlevel/publish"
	"github.com/riverlevel/riverlevel/river"
)

// Response is returned to the invoker.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

type wrote struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

type responseBody struct {
	Wrote wrote `json:"wrote"`
	*river.Document
}

type handler struct {
	cfg    config.Configuration
	sink   *publish.S3Sink
	logger *zap.Logger
}

func newHandler(ctx context.Context) (*handler, error) {
	bucket := os.Getenv("BUCKET_NAME")
	if bucket == "" {
		return nil, errors.New("BUCKET_NAME is not set")
	}

	cfg := config.Default()
	if fname := os.Getenv("CONFIG_FILE"); fname != "" {
		var err error
		if cfg, err = config.LoadFiles(fname); err != nil {
			return nil, err
		}
	}
	cfg.S3.Bucket = bucket
	cfg.S3.KeyPrefix = os.Getenv("KEY_PREFIX")

	logger, err := cfg.Logging.BuildLogger()
	if err != nil {
		return nil, err
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.S3.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.S3.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS configuration: %w", err)
	}

	return &handler{
		cfg: cfg,
		sink: &publish.S3Sink{
			Client:    s3.NewFromConfig(awsCfg),
			Bucket:    cfg.S3.Bucket,
			KeyPrefix: cfg.S3.KeyPrefix,
		},
		logger: logger,
	}, nil
}

func (h *handler) handle(ctx context.Context) (Response, error) {
	res, err := pipeline.Run(ctx, h.cfg, h.sink, pipeline.Options{Logger: h.logger})
	if err != nil {
		return Response{}, err
	}

	body, err := json.Marshal(responseBody{
		Wrote:    wrote{Bucket: h.sink.Bucket, Key: h.sink.Key(publish.DocumentName)},
		Document: res.Document,
	})
	if err != nil {
		return Response{}, err
	}
	return Response{StatusCode: 200, Body: string(body)}, nil
}

func main() {
	h, err := newHandler(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "riverlevel-lambda: %v\n", err)
		os.Exit(1)
	}
	defer h.logger.Sync()

	lambda.Start(h.handle)
}
