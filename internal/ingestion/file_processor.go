package ingestion

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ThiagoRGoveia/sheet-ingestion/internal/models"
)

// Processor collects files from disk for a batch ingestion.
type Processor interface {
	ScanForFiles(rootPath string) ([]models.UploadedFile, error)
}

// FileProcessor reads the regular files under a directory into memory so that
// they can go through the same pipeline as uploads.
type FileProcessor struct {
	maxSize int64
	log     *logrus.Entry
}

// NewFileProcessor returns a processor skipping files larger than maxSize bytes.
// A maxSize of zero disables the limit.
func NewFileProcessor(maxSize int64, log *logrus.Entry) *FileProcessor {
	return &FileProcessor{maxSize: maxSize, log: log.WithField("component", "scanner")}
}

// ScanForFiles walks rootPath in lexical order and returns every regular file.
// Hidden files and directories are skipped.
func (fp *FileProcessor) ScanForFiles(rootPath string) ([]models.UploadedFile, error) {
	var files []models.UploadedFile
	fp.log.WithField("path", rootPath).Info("scanning for files")

	err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != rootPath && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if fp.maxSize > 0 && info.Size() > fp.maxSize {
			fp.log.WithFields(logrus.Fields{"file": path, "bytes": info.Size()}).Warn("file exceeds maximum size, skipping")
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read file %s: %w", path, err)
		}
		files = append(files, models.UploadedFile{Name: d.Name(), Data: data})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking directory %s: %w", rootPath, err)
	}

	fp.log.WithField("count", len(files)).Info("scan finished")
	return files, nil
}
