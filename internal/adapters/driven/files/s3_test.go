package files

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

// apiError implements smithy.APIError for test assertions.
type apiError struct {
	code string
}

func (e *apiError) Error() string                 { return e.code }
func (e *apiError) ErrorCode() string             { return e.code }
func (e *apiError) ErrorMessage() string          { return e.code }
func (e *apiError) ErrorFault() smithy.ErrorFault { return smithy.FaultClient }

// mockS3 is a thread-safe in-memory S3 backend.
type mockS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newMockS3() *mockS3 {
	return &mockS3{objects: make(map[string][]byte)}
}

func (m *mockS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[*in.Key]
	if !ok {
		return nil, &apiError{code: "NoSuchKey"}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (m *mockS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func (m *mockS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[*in.Key]; !ok {
		return nil, &apiError{code: "NotFound"}
	}
	return &s3.HeadObjectOutput{}, nil
}

func TestS3Store_RoundTrip(t *testing.T) {
	ctx := context.Background()
	mock := newMockS3()
	store := NewS3(mock, "laws", "uploads")

	require.NoError(t, store.Write(ctx, "doc-1/act.pdf", []byte("pdf bytes")))
	assert.Contains(t, mock.objects, "uploads/doc-1/act.pdf")

	ok, err := store.Exists(ctx, "doc-1/act.pdf")
	require.NoError(t, err)
	assert.True(t, ok)

	data, err := store.Read(ctx, "doc-1/act.pdf")
	require.NoError(t, err)
	assert.Equal(t, []byte("pdf bytes"), data)

	require.NoError(t, store.Delete(ctx, "doc-1/act.pdf"))
	ok, err = store.Exists(ctx, "doc-1/act.pdf")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.Read(ctx, "doc-1/act.pdf")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestS3Store_NoPrefixAndErrors(t *testing.T) {
	ctx := context.Background()
	mock := newMockS3()
	store := NewS3(mock, "laws", "")

	require.NoError(t, store.Write(ctx, "a.txt", []byte("x")))
	assert.Contains(t, mock.objects, "a.txt")

	mock.putErr = errors.New("access denied")
	assert.ErrorIs(t, store.Write(ctx, "b.txt", []byte("y")), domain.ErrStorage)
}

func TestIsS3NotFound(t *testing.T) {
	assert.True(t, isS3NotFound(&apiError{code: "NoSuchKey"}))
	assert.True(t, isS3NotFound(&apiError{code: "NotFound"}))
	assert.False(t, isS3NotFound(&apiError{code: "AccessDenied"}))
	assert.False(t, isS3NotFound(errors.New("boom")))
}

func TestNewS3Client(t *testing.T) {
	client := NewS3Client(S3Config{Region: "ap-south-1", Endpoint: "http://localhost:9000", AccessKeyID: "a", SecretAccessKey: "b"})
	require.NotNil(t, client)
	opts := client.Options()
	assert.Equal(t, "ap-south-1", opts.Region)
	assert.True(t, opts.UsePathStyle)

	creds, err := opts.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a", creds.AccessKeyID)
}
