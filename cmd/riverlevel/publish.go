package main

import (
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/riverlevel/riverlevel/pipeline"
	"github.com/riverlevel/riverlevel/publish"
)

var bucket string

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "upload latest.json, latest.png and latest.bin to S3",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		if cmd.Flags().Changed("bucket") {
			cfg.S3.Bucket = bucket
		}
		var loadOpts []func(*awsconfig.LoadOptions) error
		if cfg.S3.Region != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.S3.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(cmd.Context(), loadOpts...)
		if err != nil {
			return fmt.Errorf("unable to load AWS configuration: %w", err)
		}

		sink := &publish.S3Sink{
			Client:    s3.NewFromConfig(awsCfg),
			Bucket:    cfg.S3.Bucket,
			KeyPrefix: cfg.S3.KeyPrefix,
		}
		if _, err := pipeline.Run(cmd.Context(), cfg, sink, pipeline.Options{Logger: logger}); err != nil {
			return err
		}
		logger.Info("uploaded",
			zap.String("bucket", sink.Bucket),
			zap.String("key", sink.Key(publish.DocumentName)),
			zap.String("region", awsCfg.Region))
		return nil
	},
}

func init() {
	publishCmd.Flags().StringVar(&bucket, "bucket", "", "S3 bucket (overrides s3.bucket)")
}
