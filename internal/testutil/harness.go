package testutil

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/agentconfgen/internal/app"
)

// DirPlaceholder is replaced with the test's temporary directory in every
// file the harness writes, so configurations can point at sibling fixtures.
const DirPlaceholder = "$TESTDIR"

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
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

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	LogOutput string
	Err       error
	App       *app.App
	Result    *app.Result
	// Dir is the temporary directory holding the fixtures; OutputDir is
	// where the run wrote its documents.
	Dir       string
	OutputDir string
}

// Run describes one integration run.
type Run struct {
	Flavor string
	// Config is the run configuration's file name within Files, or a
	// directory name for HCL directory configurations.
	Config string
	Files  map[string]string
	// OutputDir defaults to "out" under the temporary directory.
	OutputDir string
}

// RunIntegrationTest writes the run's files into a temporary directory and
// runs the application end to end with a background context.
func RunIntegrationTest(t *testing.T, run Run) *HarnessResult {
	t.Helper()
	return RunIntegrationTestWithContext(context.Background(), t, run)
}

// RunIntegrationTestWithContext is RunIntegrationTest with a caller context.
func RunIntegrationTestWithContext(ctx context.Context, t *testing.T, run Run) *HarnessResult {
	t.Helper()

	tmpDir := t.TempDir()
	for name, content := range run.Files {
		filePath := filepath.Join(tmpDir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0o755))
		content = strings.ReplaceAll(content, DirPlaceholder, filepath.ToSlash(tmpDir))
		require.NoError(t, os.WriteFile(filePath, []byte(content), 0o644))
	}

	outDir := run.OutputDir
	if outDir == "" {
		outDir = filepath.Join(tmpDir, "out")
	}
	configPath := filepath.Join(tmpDir, run.Config)
	appConfig, err := app.NewConfig(app.Config{
		ConfigPath: configPath,
		Flavor:     run.Flavor,
		OutputDir:  outDir,
		LogLevel:   "debug",
		LogFormat:  "text",
	})
	require.NoError(t, err)

	logBuffer := &SafeBuffer{}
	res := &HarnessResult{Dir: tmpDir, OutputDir: outDir}

	testApp, err := app.NewApp(logBuffer, appConfig, app.LoaderFor(configPath))
	if err != nil {
		res.Err = err
		res.LogOutput = logBuffer.String()
		return res
	}
	res.App = testApp
	res.Result, res.Err = testApp.Run(ctx)
	res.LogOutput = logBuffer.String()

	if os.Getenv("AGENTCONFGEN_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), res.LogOutput)
	}
	return res
}
