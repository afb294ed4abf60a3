// Copyright 2025 AI Services Demos Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package staging

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/ai-services-demos/internal/config"
	"github.com/your-org/ai-services-demos/internal/resilience"
)

type fakeS3 struct {
	puts    map[string][]byte
	types   map[string]string
	deletes []string
	headErr error
	putErr  error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{puts: make(map[string][]byte), types: make(map[string]string)}
}

func (f *fakeS3) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.puts[aws.ToString(params.Key)] = data
	f.types[aws.ToString(params.Key)] = aws.ToString(params.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, params *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deletes = append(f.deletes, aws.ToString(params.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) HeadBucket(_ context.Context, _ *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, f.headErr
}

func TestS3Store_PutAndDelete(t *testing.T) {
	client := newFakeS3()
	store, err := NewS3Store(client, "claims-bucket")
	require.NoError(t, err)

	obj, err := store.Put(context.Background(), "textract-temp/a.pdf", []byte("%PDF"), "application/pdf")
	require.NoError(t, err)

	assert.Equal(t, Object{Bucket: "claims-bucket", Key: "textract-temp/a.pdf", URL: "s3://claims-bucket/textract-temp/a.pdf"}, obj)
	assert.Equal(t, []byte("%PDF"), client.puts["textract-temp/a.pdf"])
	assert.Equal(t, "application/pdf", client.types["textract-temp/a.pdf"])

	require.NoError(t, store.Delete(context.Background(), "textract-temp/a.pdf"))
	assert.Equal(t, []string{"textract-temp/a.pdf"}, client.deletes)
}

func TestS3Store_Errors(t *testing.T) {
	_, err := NewS3Store(newFakeS3(), "")
	assert.ErrorIs(t, err, ErrBucketRequired)

	client := newFakeS3()
	client.putErr = errors.New("AccessDenied")
	client.headErr = errors.New("NotFound")
	store, err := NewS3Store(client, "bucket")
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "k", []byte("x"), "")
	assert.ErrorIs(t, err, resilience.ErrDependency)

	assert.ErrorIs(t, store.Ping(context.Background()), resilience.ErrDependency)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore("mem")
	ctx := context.Background()

	obj, err := store.Put(ctx, "claims/1/photo.jpg", []byte{1, 2, 3}, "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "mem", obj.Bucket)

	data, ok := store.Get("claims/1/photo.jpg")
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, data)
	assert.Equal(t, 1, store.Len())

	require.NoError(t, store.Delete(ctx, "claims/1/photo.jpg"))
	assert.Equal(t, 0, store.Len())
	assert.Equal(t, 1, store.DeleteCount("claims/1/photo.jpg"))
	assert.NoError(t, store.Ping(ctx))
}

func TestNew(t *testing.T) {
	store, err := New(config.StagingConfig{Backend: BackendMemory}, aws.Config{}, "bucket")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)

	store, err = New(config.StagingConfig{Backend: BackendS3}, aws.Config{Region: "us-east-1"}, "bucket")
	require.NoError(t, err)
	assert.Equal(t, "bucket", store.Bucket())

	_, err = New(config.StagingConfig{Backend: "ftp"}, aws.Config{}, "bucket")
	assert.Error(t, err)

	_, err = New(config.StagingConfig{Backend: BackendMemory}, aws.Config{}, "")
	assert.ErrorIs(t, err, ErrBucketRequired)
}

func TestNewMinIOStore(t *testing.T) {
	store, err := NewMinIOStore(config.StagingConfig{
		Endpoint:  "https://minio.local:9000",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
	}, "claims")
	require.NoError(t, err)

	assert.Equal(t, "claims", store.Bucket())
	assert.Equal(t, "https://minio.local:9000/claims/claims/7/car.png", store.objectURL("claims/7/car.png"))

	plain, err := NewMinIOStore(config.StagingConfig{Endpoint: "localhost:9000"}, "claims")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/claims/k", plain.objectURL("k"))

	_, err = NewMinIOStore(config.StagingConfig{}, "claims")
	assert.Error(t, err)
}
