package storage

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"CaseScanner/internal/domain"
	"CaseScanner/internal/ports"
)

// FileStore keeps downloaded documents under root/<case folder>/<file>.
type FileStore struct {
	root string
}

var _ ports.DocumentStore = (*FileStore)(nil)

// NewFileStore roots downloads at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{root: dir}
}

// Save writes body and returns the slash-separated path relative to the root.
// An existing file with the same name is overwritten.
func (f *FileStore) Save(caseID domain.CaseID, filename string, body io.Reader) (string, error) {
	name := sanitizeFilename(filename)
	if name == "" {
		return "", fmt.Errorf("invalid file name %q", filename)
	}

	folder := caseID.Folder()
	dir := filepath.Join(f.root, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create case folder: %w", err)
	}

	target := filepath.Join(dir, name)
	file, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}

	if _, err := io.Copy(file, body); err != nil {
		_ = file.Close()
		_ = os.Remove(target)
		return "", fmt.Errorf("write file: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("close file: %w", err)
	}

	return path.Join(folder, name), nil
}

func sanitizeFilename(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	name = path.Base(name)
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return name
}
