package emit

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/msgkit/genlisp/internal/discover"
	"github.com/msgkit/genlisp/internal/exitcode"
	"github.com/msgkit/genlisp/internal/manifest"
	"github.com/msgkit/genlisp/internal/resolve"
	"github.com/msgkit/genlisp/internal/symbol"
)

// Model is the parsed form of one schema file, able to emit its binding
// source and its package-registration fragment.
type Model interface {
	EmitBinding(w io.Writer) error
	EmitFragment(w io.Writer) error
}

// ParseFunc parses the schema file at path into a Model for the given
// package and message name.
type ParseFunc func(path, pkg, name string) (Model, error)

// Emitter runs the per-file generation pipeline: resolve the schema path,
// ensure output directories, emit the binding and fragment files, then
// rebuild the owning package's manifest from a fresh directory scan.
type Emitter struct {
	parse     ParseFunc
	assembler *manifest.Assembler
	logger    *zap.Logger
}

func New(parse ParseFunc, logger *zap.Logger) *Emitter {
	return &Emitter{
		parse:     parse,
		assembler: manifest.NewAssembler(logger),
		logger:    logger,
	}
}

// ProcessFile generates all artifacts for one schema file. Fatal failures
// carry the exit status the build system expects: 5 for output directory
// creation, 7 for output file opening, 8 for the source directory scan.
func (e *Emitter) ProcessFile(rawPath string) error {
	ref, err := resolve.SchemaFile(rawPath)
	if err != nil {
		return err
	}

	outDir, err := ensureOutputDirs(ref.Dir, ref.Package)
	if err != nil {
		return exitcode.Wrap(exitcode.MkdirFailed, err)
	}

	model, err := e.parse(filepath.Join(ref.Dir, ref.Name+resolve.Extension), ref.Package, ref.Name)
	if err != nil {
		return err
	}

	bindingPath := filepath.Join(outDir, ref.Name+".lisp")
	if err := writeArtifact(bindingPath, model.EmitBinding); err != nil {
		return err
	}
	fragmentPath := filepath.Join(outDir, symbol.FragmentFile(ref.Name))
	if err := writeArtifact(fragmentPath, model.EmitFragment); err != nil {
		return err
	}

	e.logger.Debug("emitted binding",
		zap.String("package", ref.Package),
		zap.String("message", ref.Name),
		zap.String("path", bindingPath))

	// The manifest lists every sibling schema file, not just the one that
	// triggered this invocation, so membership is re-derived from the
	// directory on every call. The scan runs under the package lock:
	// scanning first and locking later would let a sibling invocation that
	// saw a newer directory state write in between, and the stale snapshot
	// would then overwrite it.
	scan := func() ([]string, error) {
		messages, err := discover.Messages(ref.Dir, e.logger)
		if err != nil {
			return nil, exitcode.Wrap(exitcode.ScanFailed, err)
		}
		return messages, nil
	}
	if err := e.assembler.Write(ref.Dir, ref.Package, scan); err != nil {
		var statusErr *exitcode.Error
		if errors.As(err, &statusErr) {
			return err
		}
		return exitcode.Wrap(exitcode.OpenFailed, err)
	}
	return nil
}

// ensureOutputDirs guarantees <base>/lisp/<pkg> exists and returns it.
// Pre-existing directories are not an error; any other creation failure is
// an unrecoverable environment defect.
func ensureOutputDirs(baseDir, pkg string) (string, error) {
	outDir := filepath.Join(baseDir, "lisp", pkg)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", outDir, err)
	}
	return outDir, nil
}

// writeArtifact creates or truncates path and streams the artifact into it.
// The write is deliberately not staged through a temp file: per-message
// outputs are owned by this invocation alone, only the shared manifest
// needs atomic replacement.
func writeArtifact(path string, emitFn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return exitcode.Errorf(exitcode.OpenFailed, "failed to open %s for writing: %w", path, err)
	}
	if err := emitFn(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
