package ingestion

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const poHeader = "po_no,supplier,po_date,total"

// TestFileProcessor_ScanForFiles tests the ScanForFiles method of FileProcessor.
func TestFileProcessor_ScanForFiles(t *testing.T) {
	tempDir := t.TempDir()
	logger, _ := test.NewNullLogger()

	file1Path := filepath.Join(tempDir, "a_orders.csv")
	assert.NoError(t, os.WriteFile(file1Path, []byte(poHeader+"\nPO-1,Acme,2024-01-05,1\n"), 0644))

	nested := filepath.Join(tempDir, "march")
	require.NoError(t, os.Mkdir(nested, 0755))
	file2Path := filepath.Join(nested, "b_orders.csv")
	assert.NoError(t, os.WriteFile(file2Path, []byte(poHeader+"\n"), 0644))

	assert.NoError(t, os.WriteFile(filepath.Join(tempDir, "notes.txt"), []byte("not a sheet"), 0644))
	assert.NoError(t, os.WriteFile(filepath.Join(tempDir, ".DS_Store"), []byte("x"), 0644))
	hidden := filepath.Join(tempDir, ".cache")
	require.NoError(t, os.Mkdir(hidden, 0755))
	assert.NoError(t, os.WriteFile(filepath.Join(hidden, "c.csv"), []byte(poHeader), 0644))

	t.Run("Success", func(t *testing.T) {
		fileProcessor := NewFileProcessor(0, logrus.NewEntry(logger))

		files, err := fileProcessor.ScanForFiles(tempDir)

		require.NoError(t, err)
		require.Len(t, files, 3)
		assert.Equal(t, "a_orders.csv", files[0].Name)
		assert.Equal(t, []byte(poHeader+"\nPO-1,Acme,2024-01-05,1\n"), files[0].Data)
		assert.Equal(t, "b_orders.csv", files[1].Name)
		assert.Equal(t, "notes.txt", files[2].Name, "unsupported files are left to the pipeline to report")
	})

	t.Run("SizeLimit", func(t *testing.T) {
		fileProcessor := NewFileProcessor(int64(len(poHeader)+1), logrus.NewEntry(logger))

		files, err := fileProcessor.ScanForFiles(tempDir)

		require.NoError(t, err)
		names := make([]string, len(files))
		for i, f := range files {
			names[i] = f.Name
		}
		assert.Equal(t, []string{"b_orders.csv", "notes.txt"}, names)
	})

	t.Run("DirectoryNotFound", func(t *testing.T) {
		fileProcessor := NewFileProcessor(0, logrus.NewEntry(logger))

		_, err := fileProcessor.ScanForFiles(filepath.Join(tempDir, "non_existent_dir"))

		assert.Error(t, err)
	})
}
