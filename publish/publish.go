// Package publish writes the rendered outputs to a local directory or an S3
// bucket.
package publish

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/riverlevel/riverlevel/framebuf"
	"github.com/riverlevel/riverlevel/render"
	"github.com/riverlevel/riverlevel/river"
)

// Names of the published objects.
const (
	DocumentName    = "latest.json"
	ImageName       = "latest.png"
	FramebufferName = "latest.bin"
)

// Prefix prepended to every S3 key, after the configured key prefix.
const keyNamespace = "walking-skeleton/"

// Sink stores named objects.
type Sink interface {
	Put(ctx context.Context, name, contentType string, body []byte) error
}

// FileSink writes objects as files in Dir.
type FileSink struct {
	Dir string
}

// Put writes body to Dir/name, replacing any existing file.
func (s *FileSink) Put(ctx context.Context, name, contentType string, body []byte) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	tmp, err := os.CreateTemp(s.Dir, "."+name+"-*")
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return fmt.Errorf("publish: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.Dir, name)); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// PutObjectAPI is the subset of the S3 client used by S3Sink.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink uploads objects to <KeyPrefix>/walking-skeleton/<name> in Bucket.
type S3Sink struct {
	Client    PutObjectAPI
	Bucket    string
	KeyPrefix string
}

// Key returns the object key of name.
func (s *S3Sink) Key(name string) string {
	prefix := s.KeyPrefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix + keyNamespace + name
}

// Put uploads body.
func (s *S3Sink) Put(ctx context.Context, name, contentType string, body []byte) error {
	if s.Bucket == "" {
		return errors.New("publish: no bucket configured")
	}
	_, err := s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.Bucket),
		Key:           aws.String(s.Key(name)),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return fmt.Errorf("publish: put s3://%s/%s: %w", s.Bucket, s.Key(name), err)
	}
	return nil
}

// Publish writes the document, the PNG preview and the device framebuffer of
// frame to sink. The framebuffer is validated before anything is written.
func Publish(ctx context.Context, sink Sink, doc *river.Document, frame *render.Frame, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("publish")

	fb, err := frame.Bytes()
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	planes, err := framebuf.Validate(fb)
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	js, err := doc.Marshal()
	if err != nil {
		return fmt.Errorf("publish: encode document: %w", err)
	}
	var img bytes.Buffer
	if err := frame.PNG(&img); err != nil {
		return fmt.Errorf("publish: encode png: %w", err)
	}

	objects := []struct {
		name        string
		contentType string
		body        []byte
	}{
		{DocumentName, "application/json", js},
		{ImageName, "image/png", img.Bytes()},
		{FramebufferName, "application/octet-stream", fb},
	}
	for _, o := range objects {
		if err := sink.Put(ctx, o.name, o.contentType, o.body); err != nil {
			return err
		}
		logger.Debug("published object", zap.String("name", o.name), zap.Int("bytes", len(o.body)))
	}
	logger.Info("published outputs", zap.Int("stations", len(doc.Stations)), zap.Int("planes", planes))
	return nil
}
