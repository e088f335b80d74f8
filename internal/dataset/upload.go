package dataset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Extensions lists the accepted upload file types. Only CSV content is
// profiled; spreadsheets are accepted and described minimally.
var Extensions = []string{".csv", ".xls", ".xlsx"}

// ErrUnsupportedFile is returned for uploads with an unaccepted extension.
var ErrUnsupportedFile = errors.New("dataset: unsupported file type")

// CheckExtension reports whether name carries an accepted extension.
func CheckExtension(name string) error {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return nil
		}
	}
	return fmt.Errorf("%w %q (want one of %s)", ErrUnsupportedFile, ext, strings.Join(Extensions, ", "))
}

// ReadUpload reads an accepted upload file from disk.
func ReadUpload(path string) ([]byte, error) {
	if err := CheckExtension(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: read upload: %w", err)
	}
	return data, nil
}
