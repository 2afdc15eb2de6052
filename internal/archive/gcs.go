package archive

import (
	"context"
	"net/http"

	"cloud.google.com/go/storage"
	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/googleapi"
)

// objectWriter is the part of a GCS object writer used by GCSStore.
type objectWriter interface {
	Write(p []byte) (int, error)
	Close() error
}

// GCSStore archives uploads as objects <category>/<name> in a bucket. Objects are
// written only if they do not exist yet, so concurrent uploads never overwrite
// each other.
type GCSStore struct {
	bucket    string
	newWriter func(ctx context.Context, object, contentType string) objectWriter
	log       *logrus.Entry
}

func NewGCSStore(client *storage.Client, bucket string, log *logrus.Entry) *GCSStore {
	handle := client.Bucket(bucket)
	return &GCSStore{
		bucket: bucket,
		newWriter: func(ctx context.Context, object, contentType string) objectWriter {
			w := handle.Object(object).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
			w.ContentType = contentType
			return w
		},
		log: log.WithField("component", "archive"),
	}
}

func (s *GCSStore) Save(ctx context.Context, category, name string, data []byte) (Stored, error) {
	if err := validCategory(category); err != nil {
		return Stored{}, err
	}
	base := SanitizeName(name)
	sum, contentType := describe(data)

	for n := 0; n < maxAttempts; n++ {
		if err := ctx.Err(); err != nil {
			return Stored{}, err
		}
		candidate := candidateName(base, n)
		object := category + "/" + candidate

		err := s.write(ctx, object, contentType, data)
		if isPreconditionFailed(err) {
			s.log.WithField("object", object).Debug("object exists, trying next name")
			continue
		}
		if err != nil {
			return Stored{}, errors.Wrapf(err, "write gs://%s/%s", s.bucket, object)
		}
		return Stored{
			Path:        "gs://" + s.bucket + "/" + object,
			Name:        candidate,
			Checksum:    sum,
			ContentType: contentType,
			Size:        len(data),
		}, nil
	}
	return Stored{}, errors.Errorf("no free object name for %s/%s", category, base)
}

func (s *GCSStore) write(ctx context.Context, object, contentType string, data []byte) error {
	w := s.newWriter(ctx, object, contentType)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}
