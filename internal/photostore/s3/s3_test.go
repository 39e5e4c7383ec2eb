package s3

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platelens/platelens/internal/photostore"
)

// stubClient records objects in memory and mimics the S3 API surface the
// store relies on.
type stubClient struct {
	objects map[string][]byte
	mimes   map[string]string
	puts    int
}

func newStubClient() *stubClient {
	return &stubClient{
		objects: make(map[string][]byte),
		mimes:   make(map[string]string),
	}
}

func (c *stubClient) PutObject(_ context.Context, params *awss3.PutObjectInput, _ ...func(*awss3.Options)) (*awss3.PutObjectOutput, error) {
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	c.puts++
	c.objects[aws.ToString(params.Key)] = data
	c.mimes[aws.ToString(params.Key)] = aws.ToString(params.ContentType)
	return &awss3.PutObjectOutput{}, nil
}

func (c *stubClient) GetObject(_ context.Context, params *awss3.GetObjectInput, _ ...func(*awss3.Options)) (*awss3.GetObjectOutput, error) {
	key := aws.ToString(params.Key)
	data, ok := c.objects[key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &awss3.GetObjectOutput{
		Body:        io.NopCloser(bytes.NewReader(data)),
		ContentType: aws.String(c.mimes[key]),
	}, nil
}

func (c *stubClient) DeleteObject(_ context.Context, params *awss3.DeleteObjectInput, _ ...func(*awss3.Options)) (*awss3.DeleteObjectOutput, error) {
	key := aws.ToString(params.Key)
	delete(c.objects, key)
	delete(c.mimes, key)
	return &awss3.DeleteObjectOutput{}, nil
}

func TestS3PhotoStoreSaveAndGet(t *testing.T) {
	client := newStubClient()
	store := NewS3PhotoStoreWithClient(client, "photos-bucket", "meal-photos")

	ctx := context.Background()
	imageData := []byte("fake jpeg data")

	key, err := store.Save(ctx, "session_abc", "image/jpeg", bytes.NewReader(imageData))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "meal-photos/session_abc_"))
	assert.True(t, strings.HasSuffix(key, ".jpg"))

	reader, mimeType, err := store.Get(ctx, key)
	require.NoError(t, err)
	defer reader.Close()

	assert.Equal(t, "image/jpeg", mimeType)

	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, imageData, data)
}

func TestS3PhotoStorePNGKey(t *testing.T) {
	client := newStubClient()
	store := NewS3PhotoStoreWithClient(client, "photos-bucket", "")

	key, err := store.Save(context.Background(), "session_abc", "image/png", bytes.NewReader([]byte("png")))
	require.NoError(t, err)
	// No key prefix configured, so the key is the bare filename.
	assert.False(t, strings.Contains(key, "/"))
	assert.True(t, strings.HasSuffix(key, ".png"))
}

func TestS3PhotoStoreGetNotFound(t *testing.T) {
	store := NewS3PhotoStoreWithClient(newStubClient(), "photos-bucket", "meal-photos")

	_, _, err := store.Get(context.Background(), "meal-photos/missing.jpg")
	assert.ErrorIs(t, err, photostore.ErrNotFound)
}

func TestS3PhotoStoreDelete(t *testing.T) {
	client := newStubClient()
	store := NewS3PhotoStoreWithClient(client, "photos-bucket", "meal-photos")

	ctx := context.Background()
	key, err := store.Save(ctx, "session_abc", "image/jpeg", bytes.NewReader([]byte("data")))
	require.NoError(t, err)

	err = store.Delete(ctx, key)
	require.NoError(t, err)

	_, _, err = store.Get(ctx, key)
	assert.ErrorIs(t, err, photostore.ErrNotFound)
}

func TestS3PhotoStoreRequiresBucket(t *testing.T) {
	_, err := NewS3PhotoStore(context.Background(), "", "us-east-1", "meal-photos")
	assert.Error(t, err)
}
