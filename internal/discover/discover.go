package discover

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/msgkit/genlisp/internal/resolve"
)

// Messages lists the base names (extension stripped) of every schema file in
// dir, in directory iteration order. The order is whatever the filesystem
// yields; callers must not rely on it being stable across platforms.
//
// Entries whose metadata cannot be read are skipped with a debug log rather
// than failing the scan: a sibling invocation may delete or replace files
// between listing and stat, and that race is benign here.
func Messages(dir string, logger *zap.Logger) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan source directory %s: %w", dir, err)
	}

	var messages []string
	for _, entry := range entries {
		name := entry.Name()
		if len(name) <= len(resolve.Extension) || !strings.HasSuffix(name, resolve.Extension) {
			continue
		}
		// Stat the full path rather than using the entry's lstat info:
		// schema files are routinely symlinked into a package's source
		// directory, and a link to a regular .msg file counts.
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			logger.Debug("skipping unreadable directory entry",
				zap.String("dir", dir),
				zap.String("entry", name),
				zap.Error(err))
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		messages = append(messages, strings.TrimSuffix(name, resolve.Extension))
	}
	return messages, nil
}
