// Package results persists the terminal status of every account in pipe-delimited outcome logs.
package results

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/speedrun-hq/zora-runner/pkg/models"
)

// DirLayout is the time layout of per-run result and log directories
const DirLayout = "02-01-2006-15-04-05"

var fileNames = map[models.Status]string{
	models.StatusAlreadyDone: "already.txt",
	models.StatusPending:     "pending.txt",
	models.StatusSuccess:     "success.txt",
	models.StatusFailed:      "failed.txt",
}

// FileName returns the outcome log of status
func FileName(status models.Status) string {
	return fileNames[status]
}

// RunDir returns root/<dd-mm-YYYY-HH-MM-SS> for the run started at t
func RunDir(root string, t time.Time) string {
	return filepath.Join(root, t.Format(DirLayout))
}

// Writer appends one row per account to the outcome log of its status
type Writer struct {
	dir    string
	mu     sync.Mutex
	counts map[models.Status]int
}

// NewWriter creates dir and returns a writer into it
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create results directory: %w", err)
	}
	return &Writer{
		dir:    dir,
		counts: make(map[models.Status]int),
	}, nil
}

// Dir returns the directory the outcome logs are written to
func (w *Writer) Dir() string {
	return w.dir
}

// Record appends address followed by fields to the outcome log of status
func (w *Writer) Record(status models.Status, address string, fields []string) error {
	name := FileName(status)
	if name == "" {
		return fmt.Errorf("no outcome log for status %d", status)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	file, err := os.OpenFile(filepath.Join(w.dir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer file.Close()

	row := append([]string{address}, fields...)
	if _, err := fmt.Fprintln(file, strings.Join(row, "|")); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}

	w.counts[status]++
	return nil
}

// Counts returns the number of rows written per status by this writer
func (w *Writer) Counts() map[models.Status]int {
	w.mu.Lock()
	defer w.mu.Unlock()
	counts := make(map[models.Status]int, len(w.counts))
	for status, n := range w.counts {
		counts[status] = n
	}
	return counts
}
