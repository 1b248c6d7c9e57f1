package s3_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	awss3 "github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storageAdapter "github.com/tigerroll/dimtime/pkg/batch/adapter/storage"
	storageConfig "github.com/tigerroll/dimtime/pkg/batch/adapter/storage/config"
	"github.com/tigerroll/dimtime/pkg/batch/adapter/storage/s3"
)

type fakeS3 struct {
	s3iface.S3API
	objects   map[string][]byte
	deleteErr error
}

func (f *fakeS3) ListObjectsV2PagesWithContext(ctx aws.Context, in *awss3.ListObjectsV2Input, fn func(*awss3.ListObjectsV2Output, bool) bool, _ ...request.Option) error {
	// one key per page
	var pages []*awss3.ListObjectsV2Output
	for key := range f.objects {
		if strings.HasPrefix(key, aws.StringValue(in.Prefix)) {
			pages = append(pages, &awss3.ListObjectsV2Output{Contents: []*awss3.Object{{Key: aws.String(key)}}})
		}
	}
	for i, p := range pages {
		if !fn(p, i == len(pages)-1) {
			break
		}
	}
	return nil
}

func (f *fakeS3) GetObjectWithContext(ctx aws.Context, in *awss3.GetObjectInput, _ ...request.Option) (*awss3.GetObjectOutput, error) {
	data, ok := f.objects[aws.StringValue(in.Key)]
	if !ok {
		return nil, awserr.New(awss3.ErrCodeNoSuchKey, "missing", nil)
	}
	return &awss3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) DeleteObjectWithContext(ctx aws.Context, in *awss3.DeleteObjectInput, _ ...request.Option) (*awss3.DeleteObjectOutput, error) {
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	delete(f.objects, aws.StringValue(in.Key))
	return &awss3.DeleteObjectOutput{}, nil
}

type fakeUploader struct {
	objects map[string][]byte
	bucket  string
}

func (u *fakeUploader) Upload(in *s3manager.UploadInput, opts ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error) {
	return u.UploadWithContext(context.Background(), in, opts...)
}

func (u *fakeUploader) UploadWithContext(ctx aws.Context, in *s3manager.UploadInput, _ ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	u.bucket = aws.StringValue(in.Bucket)
	u.objects[aws.StringValue(in.Key)] = data
	return &s3manager.UploadOutput{}, nil
}

func newAdapter(objects map[string][]byte) (*fakeS3, *fakeUploader, storageAdapter.StorageConnection) {
	client := &fakeS3{objects: objects}
	uploader := &fakeUploader{objects: objects}
	conn := s3.NewS3AdapterWithClient(storageConfig.StorageConfig{Type: "s3", BucketName: "default-bucket"}, "lake", client, uploader)
	return client, uploader, conn
}

func TestUploadDownloadRoundTrip(t *testing.T) {
	ctx := context.Background()
	_, uploader, conn := newAdapter(map[string][]byte{})

	require.NoError(t, conn.Upload(ctx, "", "dim/a.parquet", strings.NewReader("PAR1"), "application/octet-stream"))
	assert.Equal(t, "default-bucket", uploader.bucket)

	rc, err := conn.Download(ctx, "lake", "dim/a.parquet")
	require.NoError(t, err)
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	assert.Equal(t, "PAR1", string(body))
}

func TestListObjectsStopsOnCallbackError(t *testing.T) {
	_, _, conn := newAdapter(map[string][]byte{
		"dim/d=1/a.parquet":  nil,
		"dim/d=1/b.parquet":  nil,
		"dim/d=10/c.parquet": nil,
	})

	var seen []string
	err := conn.ListObjects(context.Background(), "lake", "dim/d=1/", func(name string) error {
		seen = append(seen, name)
		return nil
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"dim/d=1/a.parquet", "dim/d=1/b.parquet"}, seen)

	stop := errors.New("stop")
	calls := 0
	err = conn.ListObjects(context.Background(), "lake", "dim/", func(string) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestDeleteObject(t *testing.T) {
	client, _, conn := newAdapter(map[string][]byte{"dim/a.parquet": nil})

	require.NoError(t, conn.DeleteObject(context.Background(), "lake", "dim/a.parquet"))
	assert.Empty(t, client.objects)

	client.deleteErr = awserr.New(awss3.ErrCodeNoSuchKey, "gone", nil)
	assert.NoError(t, conn.DeleteObject(context.Background(), "lake", "dim/a.parquet"))

	client.deleteErr = awserr.New("AccessDenied", "denied", nil)
	assert.Error(t, conn.DeleteObject(context.Background(), "lake", "dim/a.parquet"))
}
