package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Exporter persists metrics reports.
type Exporter interface {
	Export(r Report) error
	Close() error
}

// Report is one exported line: the counters at a point in a chat session.
type Report struct {
	At       time.Time              `json:"at"`
	Event    string                 `json:"event"`
	Counters map[string]interface{} `json:"counters"`
	Labels   map[string]string      `json:"labels,omitempty"`
}

// JSONLExporter appends reports to a JSON-lines file. The file is created on
// the first export, so a session that never reports leaves nothing behind.
type JSONLExporter struct {
	path string

	mu   sync.Mutex
	file *os.File
}

// NewJSONLExporter returns an exporter writing to path.
func NewJSONLExporter(path string) *JSONLExporter {
	return &JSONLExporter{path: path}
}

// Path returns the target file.
func (e *JSONLExporter) Path() string { return e.path }

func (e *JSONLExporter) Export(r Report) error {
	line, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.file == nil {
		if err := os.MkdirAll(filepath.Dir(e.path), 0755); err != nil {
			return fmt.Errorf("metrics dir: %w", err)
		}
		f, err := os.OpenFile(e.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("open metrics file: %w", err)
		}
		e.file = f
	}
	_, err = e.file.Write(append(line, '\n'))
	return err
}

func (e *JSONLExporter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.file == nil {
		return nil
	}
	err := e.file.Close()
	e.file = nil
	return err
}
