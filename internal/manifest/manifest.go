package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"github.com/msgkit/genlisp/internal/symbol"
)

const (
	// FileName is the shared per-package manifest, rewritten in full on
	// every invocation touching the package.
	FileName = "_package.lisp"

	// lockName guards scan+write against concurrent invocations for the
	// same package. It is not a .msg file, so discovery never sees it.
	lockName = ".package.lock"
)

// ScanFunc produces the package's current message membership. The assembler
// invokes it with the package lock held, so the snapshot it returns cannot
// go stale before the manifest lands.
type ScanFunc func() ([]string, error)

// Assembler rebuilds a package's shared manifest from a discovery snapshot.
// The manifest is a pure function of the snapshot: it is never read, merged,
// or patched, so consecutive runs over the same directory converge to
// identical content.
type Assembler struct {
	logger *zap.Logger
}

func NewAssembler(logger *zap.Logger) *Assembler {
	return &Assembler{logger: logger}
}

// Write renders the manifest for pkg from a fresh scan and atomically
// replaces <baseDir>/lisp/<pkg>/_package.lisp with it.
//
// Concurrent invocations for the same package serialize on a per-package
// file lock held across scan, render, and rename; a sibling that wins the
// lock later re-scans and therefore writes at least as new a snapshot, and
// the rename guarantees a reader never observes a partially written
// manifest.
func (a *Assembler) Write(baseDir, pkg string, scan ScanFunc) error {
	outDir := filepath.Join(baseDir, "lisp", pkg)

	lock := flock.New(filepath.Join(outDir, lockName))
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock package %s: %w", pkg, err)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			a.logger.Warn("failed to release package lock",
				zap.String("package", pkg),
				zap.Error(err))
		}
	}()

	messages, err := scan()
	if err != nil {
		return err
	}

	content := Render(baseDir, pkg, messages)

	tmp, err := os.CreateTemp(outDir, FileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to open manifest for package %s: %w", pkg, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write manifest for package %s: %w", pkg, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write manifest for package %s: %w", pkg, err)
	}

	if err := os.Rename(tmpName, filepath.Join(outDir, FileName)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace manifest for package %s: %w", pkg, err)
	}

	a.logger.Debug("rewrote package manifest",
		zap.String("package", pkg),
		zap.Int("messages", len(messages)))
	return nil
}

// Render builds the manifest content: the package declaration with one
// exported symbol per message, followed by one load directive per message
// referencing its registration fragment. Messages render in the order
// given; the consuming runtime memoizes loads, so directive order does not
// affect the loaded result.
func Render(baseDir, pkg string, messages []string) string {
	var b strings.Builder

	b.WriteString("(defpackage ")
	b.WriteString(pkg)
	b.WriteString("\n  (:use cl\n        roslisp)\n  (:export\n")
	for _, msg := range messages {
		b.WriteString("   \"")
		b.WriteString(symbol.Exported(msg))
		b.WriteString("\"\n")
	}
	b.WriteString("  ))\n\n")

	for _, msg := range messages {
		b.WriteString("(roslisp:load-if-necessary \"")
		b.WriteString(filepath.Join(baseDir, "lisp", pkg, symbol.FragmentFile(msg)))
		b.WriteString("\")\n")
	}

	return b.String()
}
