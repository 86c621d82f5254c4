package source

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// ErrMissingFile is wrapped by every missing-file error from RequiredFiles.
var ErrMissingFile = errors.New("source file not found")

// RequiredFiles resolves <dir>/<stem><ext> for every stem. All missing
// files are reported together; the returned map is nil on error.
func RequiredFiles(dir, ext string, stems ...string) (map[string]string, error) {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	paths := make(map[string]string, len(stems))
	var result *multierror.Error

	for _, stem := range stems {
		path := filepath.Join(dir, stem+ext)
		info, err := os.Stat(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			result = multierror.Append(result, fmt.Errorf("%w: %s", ErrMissingFile, path))
		case err != nil:
			result = multierror.Append(result, fmt.Errorf("stat %s: %w", path, err))
		case info.IsDir():
			result = multierror.Append(result, fmt.Errorf("%w: %s is a directory", ErrMissingFile, path))
		default:
			paths[stem] = path
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return paths, nil
}
