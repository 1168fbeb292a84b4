package neuprep

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ConvertToAbsolute returns path as an absolute path.  Relative paths are
// taken relative to dir.  Blob references (anything with "://") are left alone.
func ConvertToAbsolute(path, dir string) (string, error) {
	if path == "" || strings.Contains(path, "://") || filepath.IsAbs(path) {
		return path, nil
	}
	abs, err := filepath.Abs(filepath.Join(dir, path))
	if err != nil {
		return "", fmt.Errorf("unable to make %q absolute relative to %q: %v", path, dir, err)
	}
	return abs, nil
}
