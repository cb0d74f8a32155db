package vault

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"fonttrack/internal/ft"
)

type fakeObject struct {
	body     []byte
	metadata map[string]string
}

// fakeS3 keeps objects in memory. Multipart calls fail since snapshot
// documents always fit in a single part.
type fakeS3 struct {
	mu        sync.Mutex
	objects   map[string]fakeObject
	bucketErr error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string]fakeObject)}
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(params.Bucket)+"/"+aws.ToString(params.Key)] = fakeObject{body: body, metadata: params.Metadata}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[aws.ToString(params.Bucket)+"/"+aws.ToString(params.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(obj.body)), Metadata: obj.metadata}, nil
}

func (f *fakeS3) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[aws.ToString(params.Bucket)+"/"+aws.ToString(params.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{Metadata: obj.metadata}, nil
}

func (f *fakeS3) HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if f.bucketErr != nil {
		return nil, f.bucketErr
	}
	return &s3.HeadBucketOutput{}, nil
}

var errMultipart = errors.New("multipart upload not supported by fake")

func (f *fakeS3) UploadPart(context.Context, *s3.UploadPartInput, ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	return nil, errMultipart
}

func (f *fakeS3) CreateMultipartUpload(context.Context, *s3.CreateMultipartUploadInput, ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	return nil, errMultipart
}

func (f *fakeS3) CompleteMultipartUpload(context.Context, *s3.CompleteMultipartUploadInput, ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	return nil, errMultipart
}

func (f *fakeS3) AbortMultipartUpload(context.Context, *s3.AbortMultipartUploadInput, ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	return nil, errMultipart
}

func TestS3Vault_RoundTrip(t *testing.T) {
	client := newFakeS3()
	v := NewS3Vault("remote", client, "fonts-bucket", "agents")

	doc := `{"/usr/share/fonts/a.ttf":{"family":"A"}}`
	if err := v.PutSnapshot("host-1", strings.NewReader(doc), int64(len(doc)), 12); err != nil {
		t.Fatalf("PutSnapshot() error = %v", err)
	}

	if _, ok := client.objects["fonts-bucket/agents/snapshots/host-1"]; !ok {
		t.Fatalf("object not stored under expected key; have %v", client.objects)
	}

	var buf bytes.Buffer
	if err := v.GetSnapshot("host-1", &buf); err != nil {
		t.Fatalf("GetSnapshot() error = %v", err)
	}
	if buf.String() != doc {
		t.Errorf("GetSnapshot() = %q, want %q", buf.String(), doc)
	}

	version, err := v.GetSnapshotVersion("host-1")
	if err != nil {
		t.Fatalf("GetSnapshotVersion() error = %v", err)
	}
	if version != 12 {
		t.Errorf("GetSnapshotVersion() = %d, want 12", version)
	}
}

func TestS3Vault_Missing(t *testing.T) {
	v := NewS3Vault("remote", newFakeS3(), "fonts-bucket", "")

	version, err := v.GetSnapshotVersion("nobody")
	if err != nil || version != 0 {
		t.Errorf("GetSnapshotVersion() = %d, %v; want 0, nil", version, err)
	}

	var buf bytes.Buffer
	if err := v.GetSnapshot("nobody", &buf); !errors.Is(err, ft.ErrSnapshotNotFound) {
		t.Errorf("GetSnapshot() error = %v, want ErrSnapshotNotFound", err)
	}
}

func TestS3Vault_SizeMismatch(t *testing.T) {
	client := newFakeS3()
	v := NewS3Vault("remote", client, "fonts-bucket", "")

	if err := v.PutSnapshot("host-1", strings.NewReader("abc"), 10, 1); err == nil {
		t.Error("PutSnapshot() expected size mismatch error")
	}
	if len(client.objects) != 0 {
		t.Errorf("objects stored after failed put: %d", len(client.objects))
	}
}

func TestS3Vault_ValidateSetup(t *testing.T) {
	client := newFakeS3()
	v := NewS3Vault("remote", client, "fonts-bucket", "")

	if err := v.ValidateSetup(); err != nil {
		t.Errorf("ValidateSetup() error = %v", err)
	}

	client.bucketErr = errors.New("forbidden")
	if err := v.ValidateSetup(); err == nil {
		t.Error("ValidateSetup() expected error for inaccessible bucket")
	}
}
