package logging

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/acarl005/stripansi"
	"github.com/spf13/afero"

	"github.com/ethereum-optimism/infra/weathertop/types"
)

const (
	RunDirectoryPrefix = "testrun-" // Standardized prefix for run directories
	SummaryFilename    = "summary.log"
)

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// FileLogger writes the captured output of every native step to its own
// file under a per-run directory, split by whether the step failed.
type FileLogger struct {
	fs        afero.Fs
	baseDir   string // Base directory for logs
	logDir    string // Root log directory for this run
	passedDir string
	failedDir string
	runID     string
	mu        sync.Mutex // Protects concurrent file operations
}

// NewFileLogger creates the run directory layout under baseDir.
func NewFileLogger(fs afero.Fs, baseDir string, runID string) (*FileLogger, error) {
	if runID == "" {
		return nil, fmt.Errorf("runID cannot be empty")
	}
	if baseDir == "" {
		return nil, fmt.Errorf("baseDir cannot be empty")
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}

	logDir := filepath.Join(baseDir, RunDirectoryPrefix+runID)
	l := &FileLogger{
		fs:        fs,
		baseDir:   baseDir,
		logDir:    logDir,
		passedDir: filepath.Join(logDir, "passed"),
		failedDir: filepath.Join(logDir, "failed"),
		runID:     runID,
	}
	for _, dir := range []string{baseDir, logDir, l.passedDir, l.failedDir} {
		if err := fs.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return l, nil
}

// LogExecution stores one step's output. Steps that failed, timed out or
// produced failures go to the failed directory.
func (l *FileLogger) LogExecution(unit types.ServiceUnit, raw *types.RawExecution, failed bool) error {
	if raw == nil {
		return nil
	}
	dir := l.passedDir
	if failed || raw.Failed() || raw.TimedOut {
		dir = l.failedDir
	}
	path := filepath.Join(dir, getReadableFilename(unit, raw.Label))

	var b strings.Builder
	fmt.Fprintf(&b, "# service: %s (order %d)\n", unit.Name, unit.Order)
	fmt.Fprintf(&b, "# command: %s\n", raw.Command)
	fmt.Fprintf(&b, "# exit code: %d\n", raw.ExitCode)
	fmt.Fprintf(&b, "# duration: %s\n", raw.Duration)
	if raw.TimedOut {
		b.WriteString("# timed out\n")
	}
	b.WriteString("\n")
	b.WriteString(stripansi.Strip(raw.Stdout))
	if raw.Stderr != "" {
		b.WriteString("\n--- stderr ---\n")
		b.WriteString(stripansi.Strip(raw.Stderr))
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := afero.WriteFile(l.fs, path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("failed to write step log %s: %w", path, err)
	}
	return nil
}

// LogSummary writes the rendered results table for the run.
func (l *FileLogger) LogSummary(summary string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	path := filepath.Join(l.logDir, SummaryFilename)
	if err := afero.WriteFile(l.fs, path, []byte(summary), 0644); err != nil {
		return fmt.Errorf("failed to write summary %s: %w", path, err)
	}
	return nil
}

// GetRunID returns the run this logger writes for.
func (l *FileLogger) GetRunID() string {
	return l.runID
}

// GetBaseDir returns the directory for this run.
func (l *FileLogger) GetBaseDir() string {
	return l.logDir
}

// GetFailedDir returns the directory containing logs for failed steps
func (l *FileLogger) GetFailedDir() string {
	return l.failedDir
}

// GetPassedDir returns the directory containing logs for passed steps
func (l *FileLogger) GetPassedDir() string {
	return l.passedDir
}

// getReadableFilename builds "<order>-<service>-<step>.log" with anything
// unsafe for a file name replaced.
func getReadableFilename(unit types.ServiceUnit, label string) string {
	name := fmt.Sprintf("%03d-%s", unit.Order, unit.Name)
	if label != "" {
		name += "-" + label
	}
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	return strings.Trim(name, "_") + ".log"
}
