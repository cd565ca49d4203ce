package fs

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/bft-labs/fragship/internal/domain"
)

const reportFileName = "status.json"

// ReportFile implements ports.ReportRepository using a JSON file.
type ReportFile struct {
	dir string
}

// NewReportFile creates a repository storing status.json in dir.
func NewReportFile(dir string) *ReportFile {
	return &ReportFile{dir: dir}
}

// Load reads the last saved report. The bool is false if none was saved.
func (r *ReportFile) Load(ctx context.Context) (domain.TransferReport, bool, error) {
	data, err := os.ReadFile(r.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return domain.TransferReport{}, false, nil
		}
		return domain.TransferReport{}, false, err
	}

	var report domain.TransferReport
	if err := json.Unmarshal(data, &report); err != nil {
		return domain.TransferReport{}, false, err
	}
	return report, true, nil
}

// Save persists the report atomically (temp file, then rename).
func (r *ReportFile) Save(ctx context.Context, report domain.TransferReport) error {
	if err := os.MkdirAll(r.dir, 0o700); err != nil {
		return err
	}

	path := r.Path()
	tmp := path + ".tmp"

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Path returns the full path to the report file.
func (r *ReportFile) Path() string {
	return filepath.Join(r.dir, reportFileName)
}
