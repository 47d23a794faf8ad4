package files

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// pathExists reports whether path exists, distinguishing a clean miss from a
// stat failure.
func pathExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// SafePath resolves an output path that will not clobber an existing file.
// A free path comes back unchanged; a taken one gets a numbered stem
// (book_1.epub, book_2.epub, ...) and, past 20 collisions, a short random
// suffix. The bool reports whether the path was adjusted.
func SafePath(path string) (string, bool, error) {
	if path == "" {
		return "", false, fmt.Errorf("output path is empty")
	}
	taken, err := pathExists(path)
	if err != nil {
		return "", false, err
	}
	if !taken {
		return path, false, nil
	}

	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for n := 1; n <= 20; n++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, n, ext)
		taken, err := pathExists(candidate)
		if err != nil {
			return "", false, err
		}
		if !taken {
			return candidate, true, nil
		}
	}
	return fmt.Sprintf("%s_%s%s", stem, uuid.NewString()[:8], ext), true, nil
}
