// Package testutil provides shared helpers for integration-style tests:
// a thread-safe output buffer and a harness that stands up a fully
// configured application over a temporary shelf.
package testutil

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/datashelf/internal/app"
	"github.com/vk/datashelf/internal/hclcfg"
)

// SafeBuffer is a thread-safe buffer for capturing output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// HarnessResult holds the outcomes of one harness command run.
type HarnessResult struct {
	Output string
	Err    error
	App    *app.App
}

// Harness is a temporary shelf with its configuration on disk, ready to run
// app commands against.
type Harness struct {
	t   *testing.T
	dir string

	// Tag, when set, narrows read commands the way the -tag flag does.
	Tag string
}

// NewHarness creates a temporary directory and writes the given files into
// it. Paths are relative to the directory; parent directories are created
// as needed. Configuration files should use the .hcl extension.
func NewHarness(t *testing.T, files map[string]string) *Harness {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return &Harness{t: t, dir: dir}
}

// Dir returns the harness root directory.
func (h *Harness) Dir() string {
	return h.dir
}

// Path joins name onto the harness root directory.
func (h *Harness) Path(name string) string {
	return filepath.Join(h.dir, name)
}

// Run stands up a fresh application over the harness directory and executes
// one command. Startup panics are recovered into the result's Err.
func (h *Harness) Run(commandArgs ...string) *HarnessResult {
	h.t.Helper()

	appConfig, err := app.NewConfig(app.Config{
		ConfigPath: h.dir,
		Tag:        h.Tag,
		LogFormat:  "text",
		LogLevel:   "error",
	})
	require.NoError(h.t, err)

	out := &SafeBuffer{}

	var testApp *app.App
	var panicErr any
	func() {
		defer func() {
			if r := recover(); r != nil {
				panicErr = r
			}
		}()
		testApp = app.NewApp(out, appConfig, hclcfg.NewLoader())
	}()
	if panicErr != nil {
		return &HarnessResult{
			Output: out.String(),
			Err:    fmt.Errorf("application startup panicked | %v", panicErr),
		}
	}

	runErr := testApp.Run(context.Background(), commandArgs)
	return &HarnessResult{
		Output: out.String(),
		Err:    runErr,
		App:    testApp,
	}
}
