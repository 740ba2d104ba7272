package s3

import (
	"bytes"
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	lgerrors "github.com/logflow/loggen/pkg/errors"
)

// Writer is an io.WriteCloser that uploads to one object. Nothing is
// visible at the key until Close succeeds.
type Writer struct {
	ctx  context.Context
	api  objectAPI
	uri  URI
	cfg  Config
	opts WriteOptions

	mu       sync.Mutex
	buf      []byte
	uploadID string
	parts    []types.CompletedPart
	done     bool
	err      error
}

func (w *Writer) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.done {
		return 0, lgerrors.New(lgerrors.CodeUploadFailed, "write after close").WithContext("uri", w.uri.String())
	}
	if w.err != nil {
		return 0, w.err
	}

	w.buf = append(w.buf, p...)
	size := int(w.cfg.PartSize)
	for len(w.buf) >= size {
		if err := w.sendPart(w.buf[:size]); err != nil {
			w.err = err
			return len(p), err
		}
		w.buf = append(w.buf[:0], w.buf[size:]...)
	}
	return len(p), nil
}

func (w *Writer) sendPart(data []byte) error {
	ctx, cancel := context.WithTimeout(w.ctx, w.cfg.Timeout)
	defer cancel()

	if w.uploadID == "" {
		out, err := w.api.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
			Bucket:      aws.String(w.uri.Bucket),
			Key:         aws.String(w.uri.Key),
			ContentType: w.contentType(),
			Metadata:    w.opts.Metadata,
		})
		if err != nil {
			return w.fail(err, "failed to start multipart upload")
		}
		w.uploadID = aws.ToString(out.UploadId)
	}

	num := int32(len(w.parts) + 1)
	out, err := w.api.UploadPart(ctx, &s3.UploadPartInput{
		Bucket:     aws.String(w.uri.Bucket),
		Key:        aws.String(w.uri.Key),
		UploadId:   aws.String(w.uploadID),
		PartNumber: aws.Int32(num),
		Body:       bytes.NewReader(data),
	})
	if err != nil {
		return w.fail(err, "failed to upload part").WithContext("part", num)
	}
	w.parts = append(w.parts, types.CompletedPart{ETag: out.ETag, PartNumber: aws.Int32(num)})
	return nil
}

// Close flushes buffered data and completes the upload. A failed Close
// aborts any multipart upload it started.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.done {
		return w.err
	}
	w.done = true

	if w.err == nil {
		w.err = w.finish()
	}
	if w.err != nil {
		w.abort()
	}
	return w.err
}

func (w *Writer) finish() error {
	if w.uploadID == "" {
		ctx, cancel := context.WithTimeout(w.ctx, w.cfg.Timeout)
		defer cancel()
		_, err := w.api.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(w.uri.Bucket),
			Key:         aws.String(w.uri.Key),
			Body:        bytes.NewReader(w.buf),
			ContentType: w.contentType(),
			Metadata:    w.opts.Metadata,
		})
		if err != nil {
			return w.fail(err, "failed to put object")
		}
		return nil
	}

	if len(w.buf) > 0 {
		if err := w.sendPart(w.buf); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(w.ctx, w.cfg.Timeout)
	defer cancel()
	_, err := w.api.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(w.uri.Bucket),
		Key:             aws.String(w.uri.Key),
		UploadId:        aws.String(w.uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{Parts: w.parts},
	})
	if err != nil {
		return w.fail(err, "failed to complete multipart upload")
	}
	w.uploadID = ""
	return nil
}

// Abort discards the upload. No object is created.
func (w *Writer) Abort() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.done = true
	if w.err == nil {
		w.err = lgerrors.New(lgerrors.CodeUploadFailed, "upload aborted").WithContext("uri", w.uri.String())
	}
	w.abort()
}

func (w *Writer) abort() {
	if w.uploadID == "" {
		return
	}
	// the writer's context may already be canceled
	ctx, cancel := context.WithTimeout(context.Background(), w.cfg.Timeout)
	defer cancel()
	w.api.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(w.uri.Bucket),
		Key:      aws.String(w.uri.Key),
		UploadId: aws.String(w.uploadID),
	})
	w.uploadID = ""
}

func (w *Writer) contentType() *string {
	if w.opts.ContentType == "" {
		return nil
	}
	return aws.String(w.opts.ContentType)
}

func (w *Writer) fail(err error, msg string) *lgerrors.Error {
	return lgerrors.Wrap(err, lgerrors.CodeUploadFailed, msg).WithContext("uri", w.uri.String())
}
