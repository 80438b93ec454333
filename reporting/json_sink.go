// Package reporting writes the finished run report: the canonical JSON
// document on local disk, and a copy in object storage.
package reporting

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/spf13/afero"

	"github.com/ethereum-optimism/infra/weathertop/types"
)

// filenameLayout keeps report names sortable and free of colons.
const filenameLayout = "2006-01-02T15-04"

// ReportFilename returns "<prefix>-YYYY-MM-DDTHH-MM.json" for t in UTC.
func ReportFilename(prefix string, t time.Time) string {
	return fmt.Sprintf("%s-%s.json", prefix, t.UTC().Format(filenameLayout))
}

// JSONSink writes run reports to a local directory.
type JSONSink struct {
	log    log.Logger
	fs     afero.Fs
	dir    string
	prefix string
	now    func() time.Time
}

// NewJSONSink creates a sink writing into dir with names starting with prefix.
func NewJSONSink(lgr log.Logger, fs afero.Fs, dir, prefix string) *JSONSink {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &JSONSink{log: lgr, fs: fs, dir: dir, prefix: prefix, now: time.Now}
}

// Write stores the report and returns its path. The file is written under a
// temporary name and renamed, so a reader never sees a partial report.
func (s *JSONSink) Write(report *types.RunReport) (string, error) {
	path := filepath.Join(s.dir, ReportFilename(s.prefix, s.now()))
	if report == nil {
		return "", types.NewSinkError(false, path, fmt.Errorf("nil report"))
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", types.NewSinkError(false, path, fmt.Errorf("encoding report: %w", err))
	}
	data = append(data, '\n')

	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return "", types.NewSinkError(false, path, err)
	}
	tmp := path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return "", types.NewSinkError(false, path, err)
	}
	if err := s.fs.Rename(tmp, path); err != nil {
		_ = s.fs.Remove(tmp)
		return "", types.NewSinkError(false, path, err)
	}
	s.log.Info("Report written", "path", path, "bytes", len(data))
	s.log.Debug("Report contents", "json", string(data))
	return path, nil
}
