package archive

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
)

// LocalStore archives uploads on the local filesystem under root/<category>.
type LocalStore struct {
	root    string
	baseURL string
	log     *logrus.Entry
}

func NewLocalStore(root, baseURL string, log *logrus.Entry) *LocalStore {
	return &LocalStore{
		root:    root,
		baseURL: strings.TrimSuffix(baseURL, "/") + "/",
		log:     log.WithField("component", "archive"),
	}
}

func (s *LocalStore) Root() string {
	return s.root
}

// Init creates the category directories. It must run before the first Save.
func (s *LocalStore) Init(categories ...string) error {
	for _, c := range categories {
		if err := validCategory(c); err != nil {
			return err
		}
		dir := filepath.Join(s.root, c)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create archive dir %s", dir)
		}
	}
	return nil
}

// Save writes data as root/category/name, appending _1, _2, ... to the name
// until it does not collide with an existing file.
func (s *LocalStore) Save(ctx context.Context, category, name string, data []byte) (Stored, error) {
	if err := validCategory(category); err != nil {
		return Stored{}, err
	}
	dir := filepath.Join(s.root, category)
	base := SanitizeName(name)

	for n := 0; n < maxAttempts; n++ {
		if err := ctx.Err(); err != nil {
			return Stored{}, err
		}
		candidate := candidateName(base, n)
		full := filepath.Join(dir, candidate)

		f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return Stored{}, errors.Wrapf(err, "create %s", full)
		}
		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			_ = os.Remove(full)
			return Stored{}, errors.Wrapf(err, "write %s", full)
		}
		if err := f.Close(); err != nil {
			_ = os.Remove(full)
			return Stored{}, errors.Wrapf(err, "close %s", full)
		}

		sum, contentType := describe(data)
		stored := Stored{
			Path:        s.baseURL + category + "/" + candidate,
			Name:        candidate,
			Checksum:    sum,
			ContentType: contentType,
			Size:        len(data),
		}
		s.log.WithFields(logrus.Fields{
			"category": category,
			"file":     candidate,
			"bytes":    len(data),
		}).Debug("archived upload")
		return stored, nil
	}
	return Stored{}, errors.Errorf("no free name for %s in %s", base, dir)
}
