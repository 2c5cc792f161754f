package flex

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yurifrl/ibcompare/pkg/models"
)

// DefaultPattern matches the cash transaction exports in a reports directory.
const DefaultPattern = "*_cash-tx.xml"

// ResolveReport picks the export to read. An explicit path takes precedence;
// otherwise the most recently modified file matching pattern in dir is used.
func ResolveReport(path, dir, pattern string) (string, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("%w: report file %s", models.ErrSourceNotFound, path)
		}
		return path, nil
	}
	if dir == "" {
		return "", errors.New("either a report file or a reports directory is required")
	}
	if pattern == "" {
		pattern = DefaultPattern
	}
	return LatestReport(dir, pattern)
}

// LatestReport returns the newest file in dir whose name matches pattern.
func LatestReport(dir, pattern string) (string, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: reports directory %s", models.ErrSourceNotFound, dir)
	}

	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return "", fmt.Errorf("invalid report pattern %q: %w", pattern, err)
	}

	var latest string
	var latestInfo os.FileInfo
	for _, match := range matches {
		fi, err := os.Stat(match)
		if err != nil || fi.IsDir() {
			continue
		}
		if latestInfo == nil || fi.ModTime().After(latestInfo.ModTime()) {
			latest, latestInfo = match, fi
		}
	}
	if latest == "" {
		return "", fmt.Errorf("%w: no files matching %s in %s", models.ErrSourceNotFound, pattern, dir)
	}
	return latest, nil
}
