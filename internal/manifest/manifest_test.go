package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/msgkit/genlisp/internal/discover"
)

// fixedScan returns a ScanFunc yielding a precomputed snapshot.
func fixedScan(messages []string) ScanFunc {
	return func() ([]string, error) {
		return messages, nil
	}
}

func TestRender(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		pkg      string
		messages []string
		want     string
	}{
		{
			name:     "two messages",
			pkg:      "pkgX",
			messages: []string{"Foo", "Bar"},
			want: `(defpackage pkgX
  (:use cl
        roslisp)
  (:export
   "<FOO>"
   "<BAR>"
  ))

(roslisp:load-if-necessary "/base/lisp/pkgX/_package_Foo.lisp")
(roslisp:load-if-necessary "/base/lisp/pkgX/_package_Bar.lisp")
`,
		},
		{
			name:     "no messages",
			pkg:      "empty",
			messages: nil,
			want: `(defpackage empty
  (:use cl
        roslisp)
  (:export
  ))

`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Render("/base", tt.pkg, tt.messages)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Render() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestWrite(t *testing.T) {
	base := t.TempDir()
	outDir := filepath.Join(base, "lisp", "pkgX")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		t.Fatal(err)
	}

	a := NewAssembler(zap.NewNop())
	messages := []string{"Foo", "Bar"}
	if err := a.Write(base, "pkgX", fixedScan(messages)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := os.ReadFile(filepath.Join(outDir, FileName))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Render(base, "pkgX", messages), string(got)); diff != "" {
		t.Errorf("manifest mismatch (-want +got):\n%s", diff)
	}

	// A second write over the same snapshot must be byte-identical: the
	// manifest is a pure function of the snapshot, never a merge.
	if err := a.Write(base, "pkgX", fixedScan(messages)); err != nil {
		t.Fatalf("Write() second run error = %v", err)
	}
	again, err := os.ReadFile(filepath.Join(outDir, FileName))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(string(got), string(again)); diff != "" {
		t.Errorf("second write not idempotent (-first +second):\n%s", diff)
	}
}

func TestWriteScanError(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "lisp", "pkgX"), 0o755))

	scanErr := fmt.Errorf("opendir failed")
	err := NewAssembler(zap.NewNop()).Write(base, "pkgX", func() ([]string, error) {
		return nil, scanErr
	})
	require.ErrorIs(t, err, scanErr)
	_, statErr := os.Stat(filepath.Join(base, "lisp", "pkgX", FileName))
	require.True(t, os.IsNotExist(statErr), "manifest must not be written when the scan fails")
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	base := t.TempDir()
	outDir := filepath.Join(base, "lisp", "pkgX")
	require.NoError(t, os.MkdirAll(outDir, 0o755))

	a := NewAssembler(zap.NewNop())
	require.NoError(t, a.Write(base, "pkgX", fixedScan([]string{"Foo"})))

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	for _, entry := range entries {
		require.NotContains(t, entry.Name(), ".tmp-", "staging file left behind")
	}
}

// Concurrent rewrites for the same package must serialize on the package
// lock and land atomically: whichever snapshot wins, the manifest on disk is
// always one complete rendering, never interleaved or truncated.
func TestWriteConcurrent(t *testing.T) {
	base := t.TempDir()
	outDir := filepath.Join(base, "lisp", "pkgX")
	require.NoError(t, os.MkdirAll(outDir, 0o755))

	snapshots := make([][]string, 8)
	valid := make(map[string]bool, len(snapshots))
	for i := range snapshots {
		snapshots[i] = []string{"Foo", "Bar", fmt.Sprintf("Extra%d", i)}
		valid[Render(base, "pkgX", snapshots[i])] = true
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(snapshots))
	for _, msgs := range snapshots {
		wg.Add(1)
		go func(msgs []string) {
			defer wg.Done()
			errs <- NewAssembler(zap.NewNop()).Write(base, "pkgX", fixedScan(msgs))
		}(msgs)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := os.ReadFile(filepath.Join(outDir, FileName))
	require.NoError(t, err)
	require.True(t, valid[string(got)], "manifest is not a complete rendering of any snapshot:\n%s", got)
}

// A schema file that appears while one writer already holds the lock must
// end up in the manifest: the blocked writer re-scans only after acquiring
// the lock, so its snapshot reflects the directory as of its own critical
// section, never an earlier one.
func TestWriteScansUnderLock(t *testing.T) {
	base := t.TempDir()
	outDir := filepath.Join(base, "lisp", "pkgX")
	require.NoError(t, os.MkdirAll(outDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "Foo.msg"), []byte("int32 x\n"), 0o644))

	scanDir := func() ([]string, error) {
		return discover.Messages(base, zap.NewNop())
	}

	scanning := make(chan struct{})
	release := make(chan struct{})
	firstErr := make(chan error, 1)
	lateErr := make(chan error, 1)

	go func() {
		firstErr <- NewAssembler(zap.NewNop()).Write(base, "pkgX", func() ([]string, error) {
			close(scanning)
			// Bar.msg lands and a sibling invocation for it starts while
			// this writer is mid-critical-section.
			<-release
			return scanDir()
		})
	}()

	<-scanning
	require.NoError(t, os.WriteFile(filepath.Join(base, "Bar.msg"), []byte("string label\n"), 0o644))
	go func() {
		lateErr <- NewAssembler(zap.NewNop()).Write(base, "pkgX", scanDir)
	}()
	close(release)

	require.NoError(t, <-firstErr)
	require.NoError(t, <-lateErr)

	got, err := os.ReadFile(filepath.Join(outDir, FileName))
	require.NoError(t, err)
	require.Contains(t, string(got), `"<FOO>"`)
	require.Contains(t, string(got), `"<BAR>"`, "snapshot taken outside the critical section lost Bar")
}

func TestWriteMissingOutputDir(t *testing.T) {
	a := NewAssembler(zap.NewNop())
	if err := a.Write(t.TempDir(), "pkgX", fixedScan([]string{"Foo"})); err == nil {
		t.Fatal("Write() expected error when output directory is missing")
	}
}
