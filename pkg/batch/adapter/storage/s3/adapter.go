// Package s3 provides an Amazon S3 (and S3-compatible) implementation of the storage adapter interfaces.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"

	storageAdapter "github.com/tigerroll/dimtime/pkg/batch/adapter/storage"
	storageConfig "github.com/tigerroll/dimtime/pkg/batch/adapter/storage/config"
	coreConfig "github.com/tigerroll/dimtime/pkg/batch/core/config"
	"github.com/tigerroll/dimtime/pkg/batch/support/util/logger"
)

const (
	// ProviderType defines the type identifier for this S3 storage provider.
	ProviderType = "s3"
)

type s3Adapter struct {
	cfg      storageConfig.StorageConfig
	name     string
	client   s3iface.S3API
	uploader s3manageriface.UploaderAPI
}

// Verify that s3Adapter implements the storage.StorageConnection interface.
var _ storageAdapter.StorageConnection = (*s3Adapter)(nil)

// NewS3Adapter opens an S3 session from the default credential chain.
// Endpoint and ForcePathStyle allow S3-compatible stores such as MinIO.
func NewS3Adapter(cfg storageConfig.StorageConfig, name string) (storageAdapter.StorageConnection, error) {
	awsCfg := &aws.Config{
		S3ForcePathStyle: aws.Bool(cfg.ForcePathStyle),
	}
	if cfg.Region != "" {
		awsCfg.Region = aws.String(cfg.Region)
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("s3 storage adapter '%s': failed to create session: %w", name, err)
	}
	client := s3.New(sess)
	return NewS3AdapterWithClient(cfg, name, client, s3manager.NewUploaderWithClient(client)), nil
}

// NewS3AdapterWithClient builds an adapter over existing clients.
func NewS3AdapterWithClient(cfg storageConfig.StorageConfig, name string, client s3iface.S3API, uploader s3manageriface.UploaderAPI) storageAdapter.StorageConnection {
	return &s3Adapter{cfg: cfg, name: name, client: client, uploader: uploader}
}

// Close is a no-op; the SDK session holds no resources that need releasing.
func (a *s3Adapter) Close() error {
	logger.Debugf("S3 storage adapter '%s' closed.", a.name)
	return nil
}

// Type returns "s3".
func (a *s3Adapter) Type() string {
	return ProviderType
}

// Name returns the name of this connection.
func (a *s3Adapter) Name() string {
	return a.name
}

func (a *s3Adapter) bucket(bucket string) string {
	if bucket == "" {
		return a.cfg.BucketName
	}
	return bucket
}

// Upload uploads data with the multipart-capable s3manager uploader.
func (a *s3Adapter) Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error {
	bucket = a.bucket(bucket)
	_, err := a.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(objectName),
		Body:        data,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload s3://%s/%s: %w", bucket, objectName, err)
	}
	logger.Debugf("Uploaded s3://%s/%s (s3 adapter '%s').", bucket, objectName, a.name)
	return nil
}

// Download returns the body of s3://bucket/objectName.
func (a *s3Adapter) Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error) {
	bucket = a.bucket(bucket)
	out, err := a.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(objectName),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get s3://%s/%s: %w", bucket, objectName, err)
	}
	return out.Body, nil
}

// ListObjects pages through ListObjectsV2 under prefix.
func (a *s3Adapter) ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error {
	bucket = a.bucket(bucket)
	var fnErr error
	err := a.client.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	}, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, obj := range page.Contents {
			if fnErr = fn(aws.StringValue(obj.Key)); fnErr != nil {
				return false
			}
		}
		return true
	})
	if err != nil {
		return fmt.Errorf("failed to list s3://%s/%s: %w", bucket, prefix, err)
	}
	return fnErr
}

// DeleteObject deletes s3://bucket/objectName. S3 itself treats a missing key as success;
// NoSuchKey from compatible stores is ignored as well.
func (a *s3Adapter) DeleteObject(ctx context.Context, bucket, objectName string) error {
	bucket = a.bucket(bucket)
	_, err := a.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(objectName),
	})
	var aerr awserr.Error
	if errors.As(err, &aerr) && aerr.Code() == s3.ErrCodeNoSuchKey {
		logger.Warnf("Attempted to delete non-existent object s3://%s/%s (s3 adapter '%s').", bucket, objectName, a.name)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete s3://%s/%s: %w", bucket, objectName, err)
	}
	logger.Debugf("Deleted s3://%s/%s (s3 adapter '%s').", bucket, objectName, a.name)
	return nil
}

// NewS3Provider creates the provider for "s3" storage connections.
func NewS3Provider(cfg *coreConfig.Config) storageAdapter.StorageProvider {
	return storageAdapter.NewPooledProvider(ProviderType, cfg.DimTime.StorageConfigs, NewS3Adapter)
}
