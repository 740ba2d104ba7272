package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	lgerrors "github.com/logflow/loggen/pkg/errors"
)

func TestParseURI(t *testing.T) {
	tests := []struct {
		in      string
		want    URI
		wantErr bool
	}{
		{"s3://logs/2024/run.xlsx", URI{Bucket: "logs", Key: "2024/run.xlsx"}, false},
		{"s3://logs/run.csv", URI{Bucket: "logs", Key: "run.csv"}, false},
		{"s3://logs", URI{}, true},
		{"s3://logs/", URI{}, true},
		{"s3://logs/dir/", URI{}, true},
		{"/tmp/run.csv", URI{}, true},
	}
	for _, tt := range tests {
		got, err := ParseURI(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseURI(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseURI(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}

	u := URI{Bucket: "b", Key: "k/x.parquet"}
	if u.String() != "s3://b/k/x.parquet" {
		t.Errorf("String() = %q", u.String())
	}
}

// fakeAPI keeps objects in memory and records multipart calls.
type fakeAPI struct {
	mu       sync.Mutex
	objects  map[string][]byte
	meta     map[string]map[string]string
	pending  map[string][][]byte
	aborted  int
	failPart int32
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		objects: make(map[string][]byte),
		meta:    make(map[string]map[string]string),
		pending: make(map[string][][]byte),
	}
}

func (f *fakeAPI) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = data
	f.meta[aws.ToString(in.Key)] = in.Metadata
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeAPI) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeAPI) CreateMultipartUpload(_ context.Context, in *s3.CreateMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := fmt.Sprintf("upload-%d", len(f.pending)+1)
	f.pending[id] = nil
	f.meta[aws.ToString(in.Key)] = in.Metadata
	return &s3.CreateMultipartUploadOutput{UploadId: aws.String(id)}, nil
}

func (f *fakeAPI) UploadPart(_ context.Context, in *s3.UploadPartInput, _ ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	if aws.ToInt32(in.PartNumber) == f.failPart {
		return nil, errors.New("connection reset")
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id := aws.ToString(in.UploadId)
	f.pending[id] = append(f.pending[id], data)
	return &s3.UploadPartOutput{ETag: aws.String(fmt.Sprintf("etag-%d", aws.ToInt32(in.PartNumber)))}, nil
}

func (f *fakeAPI) CompleteMultipartUpload(_ context.Context, in *s3.CompleteMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := aws.ToString(in.UploadId)
	if len(in.MultipartUpload.Parts) != len(f.pending[id]) {
		return nil, errors.New("InvalidPart")
	}
	f.objects[aws.ToString(in.Key)] = bytes.Join(f.pending[id], nil)
	delete(f.pending, id)
	return &s3.CompleteMultipartUploadOutput{}, nil
}

func (f *fakeAPI) AbortMultipartUpload(_ context.Context, in *s3.AbortMultipartUploadInput, _ ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.pending, aws.ToString(in.UploadId))
	f.aborted++
	return &s3.AbortMultipartUploadOutput{}, nil
}

func TestWriter_Uploads(t *testing.T) {
	small := "Case ID,Activity\nR1_01,Create order\n"
	large := strings.Repeat("R1_01,Create order,2024-01-01 08:00:00\n", (2*MinPartSize)/40+10)

	tests := []struct {
		name      string
		content   string
		chunk     int
		multipart bool
	}{
		{"single put", small, 7, false},
		{"multipart", large, 64 << 10, true},
		{"exact part", strings.Repeat("x", MinPartSize), MinPartSize, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI()
			c := newClient(DefaultConfig("us-east-1"), api)
			uri := URI{Bucket: "logs", Key: "run.csv"}

			w := c.Writer(context.Background(), uri, WriteOptions{
				ContentType: "text/csv",
				Metadata:    map[string]string{"run-id": "abc"},
			})
			data := []byte(tt.content)
			for len(data) > 0 {
				n := tt.chunk
				if n > len(data) {
					n = len(data)
				}
				if _, err := w.Write(data[:n]); err != nil {
					t.Fatalf("Write() error = %v", err)
				}
				data = data[n:]
			}
			if tt.multipart != (w.uploadID != "") {
				t.Errorf("multipart started = %v, want %v", w.uploadID != "", tt.multipart)
			}
			if err := w.Close(); err != nil {
				t.Fatalf("Close() error = %v", err)
			}

			if got := string(api.objects["run.csv"]); got != tt.content {
				t.Errorf("object has %d bytes, want %d", len(got), len(tt.content))
			}
			if api.meta["run.csv"]["run-id"] != "abc" {
				t.Errorf("metadata = %v", api.meta["run.csv"])
			}

			var buf bytes.Buffer
			n, err := c.Download(context.Background(), uri, &buf)
			if err != nil {
				t.Fatalf("Download() error = %v", err)
			}
			if n != int64(len(tt.content)) || buf.String() != tt.content {
				t.Errorf("Download() = %d bytes", n)
			}
		})
	}
}

func TestWriter_PartFailureAborts(t *testing.T) {
	api := newFakeAPI()
	api.failPart = 2
	c := newClient(DefaultConfig(""), api)

	w := c.Writer(context.Background(), URI{Bucket: "logs", Key: "run.parquet"}, WriteOptions{})
	chunk := make([]byte, MinPartSize)
	if _, err := w.Write(chunk); err != nil {
		t.Fatalf("first part: %v", err)
	}
	if _, err := w.Write(chunk); !lgerrors.IsCode(err, lgerrors.CodeUploadFailed) {
		t.Fatalf("second part error = %v, want %s", err, lgerrors.CodeUploadFailed)
	}
	if err := w.Close(); err == nil {
		t.Error("Close() after a failed part should fail")
	}

	if api.aborted != 1 {
		t.Errorf("aborted = %d, want 1", api.aborted)
	}
	if _, ok := api.objects["run.parquet"]; ok {
		t.Error("object must not exist after a failed upload")
	}
}

func TestWriter_Abort(t *testing.T) {
	api := newFakeAPI()
	c := newClient(DefaultConfig(""), api)

	w := c.Writer(context.Background(), URI{Bucket: "logs", Key: "run.xlsx"}, WriteOptions{})
	if _, err := w.Write([]byte("partial")); err != nil {
		t.Fatal(err)
	}
	w.Abort()

	if err := w.Close(); !lgerrors.IsCode(err, lgerrors.CodeUploadFailed) {
		t.Errorf("Close() after Abort = %v", err)
	}
	if _, err := w.Write([]byte("more")); err == nil {
		t.Error("Write() after Abort should fail")
	}
	if len(api.objects) != 0 {
		t.Errorf("objects = %v", api.objects)
	}
}

func TestDownload_Missing(t *testing.T) {
	c := newClient(DefaultConfig(""), newFakeAPI())
	_, err := c.Download(context.Background(), URI{Bucket: "logs", Key: "nope.csv"}, io.Discard)
	if !lgerrors.IsCode(err, lgerrors.CodeFileNotFound) {
		t.Errorf("Download() error = %v, want %s", err, lgerrors.CodeFileNotFound)
	}
}
