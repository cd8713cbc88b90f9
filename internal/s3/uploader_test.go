package s3

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	input *s3.PutObjectInput
	body  string
	err   error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = in
	b, _ := io.ReadAll(in.Body)
	f.body = string(b)
	return &s3.PutObjectOutput{}, f.err
}

func TestUploadFileReturnsCloudFrontURL(t *testing.T) {
	fake := &fakeS3{}
	u := &Uploader{Client: fake, Bucket: "photos", Region: "eu-central-1", CloudFrontDomain: "cdn.example.com"}

	url, err := u.UploadFile(context.Background(), strings.NewReader("jpeg"), "routes/a.jpg", "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/routes/a.jpg", url)
	assert.Equal(t, "photos", aws.ToString(fake.input.Bucket))
	assert.Equal(t, "image/jpeg", aws.ToString(fake.input.ContentType))
	assert.Equal(t, "jpeg", fake.body)
}

func TestUploadFileFallsBackToBucketURL(t *testing.T) {
	u := &Uploader{Client: &fakeS3{}, Bucket: "photos", Region: "eu-central-1"}

	url, err := u.UploadFile(context.Background(), strings.NewReader("x"), "a.png", "")
	require.NoError(t, err)
	assert.Equal(t, "https://photos.s3.eu-central-1.amazonaws.com/a.png", url)
}

func TestUploadFileError(t *testing.T) {
	u := &Uploader{Client: &fakeS3{err: errors.New("denied")}, Bucket: "photos", Region: "eu-central-1"}

	_, err := u.UploadFile(context.Background(), strings.NewReader("x"), "a.png", "image/png")
	assert.ErrorContains(t, err, "denied")
}

func TestObjectKeyKeepsExtension(t *testing.T) {
	key := ObjectKey("routes", "IMG_001.JPG")
	assert.True(t, strings.HasPrefix(key, "routes/"))
	assert.True(t, strings.HasSuffix(key, ".jpg"))
	assert.NotEqual(t, key, ObjectKey("routes", "IMG_001.JPG"))
}
