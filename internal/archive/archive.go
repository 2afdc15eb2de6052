package archive

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-faster/errors"

	"github.com/ThiagoRGoveia/sheet-ingestion/pkg/checksum"
)

// maxAttempts bounds the collision suffixes tried for one name.
const maxAttempts = 10000

var ErrInvalidCategory = errors.New("invalid archive category")

// Stored describes an archived upload.
type Stored struct {
	// Path is the reference used to retrieve the file later.
	Path        string
	Name        string
	Checksum    string
	ContentType string
	Size        int
}

// FileStore persists original upload bytes under a category.
type FileStore interface {
	Save(ctx context.Context, category, name string, data []byte) (Stored, error)
}

// SanitizeName reduces an uploaded file name to a safe base name.
func SanitizeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f || r == '/' || r == ':' {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." {
		return "upload"
	}
	return name
}

// candidateName returns name for n == 0 and name_n otherwise, with the suffix
// placed before the extension.
func candidateName(name string, n int) string {
	if n == 0 {
		return name
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	if stem == "" {
		stem, ext = ext, ""
	}
	return fmt.Sprintf("%s_%d%s", stem, n, ext)
}

func validCategory(category string) error {
	if category == "" || category == "." || category == ".." || strings.ContainsAny(category, `/\`) {
		return errors.Wrapf(ErrInvalidCategory, "%q", category)
	}
	return nil
}

func describe(data []byte) (string, string) {
	return checksum.Sum(data), mimetype.Detect(data).String()
}
