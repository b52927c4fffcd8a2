package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/relabs-tech/serve_sense/internal/packet"
)

// csvHeader matches the column order the training tooling expects.
var csvHeader = []string{
	"millis", "session", "sequence",
	"ax", "ay", "az", "gx", "gy", "gz",
	"capture", "marker",
}

// CSVRecorder appends decoded packets to a per-run CSV file. Writes are
// buffered and concurrency-safe; the owner flushes periodically and on
// shutdown.
type CSVRecorder struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
	rows   int
}

// NewCSVRecorder creates a timestamped CSV file under dir and writes the
// header row.
func NewCSVRecorder(dir string) (*CSVRecorder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: create %s: %w", dir, err)
	}

	name := fmt.Sprintf("serves_%s.csv", time.Now().Format("20060102_150405"))
	path := filepath.Join(dir, name)
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("store: create %s: %w", path, err)
	}

	r := &CSVRecorder{file: file, writer: csv.NewWriter(file)}
	if err := r.writer.Write(csvHeader); err != nil {
		file.Close()
		return nil, fmt.Errorf("store: write header: %w", err)
	}
	return r, nil
}

// Append writes one packet as a CSV row.
func (r *CSVRecorder) Append(p packet.ServePacket) error {
	row := []string{
		strconv.FormatUint(uint64(p.Millis), 10),
		strconv.FormatUint(uint64(p.Session), 10),
		strconv.FormatUint(uint64(p.Sequence), 10),
		formatFloat(p.Sample.Ax),
		formatFloat(p.Sample.Ay),
		formatFloat(p.Sample.Az),
		formatFloat(p.Sample.Gx),
		formatFloat(p.Sample.Gy),
		formatFloat(p.Sample.Gz),
		strconv.Itoa(boolToInt(p.Capture())),
		strconv.Itoa(boolToInt(p.Marker())),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows++
	if err := r.writer.Write(row); err != nil {
		return fmt.Errorf("store: write row: %w", err)
	}
	return nil
}

// Rows returns the number of data rows appended so far.
func (r *CSVRecorder) Rows() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows
}

// Flush pushes buffered rows to disk.
func (r *CSVRecorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writer.Flush()
	return r.writer.Error()
}

// Path returns the file the recorder writes to.
func (r *CSVRecorder) Path() string {
	return r.file.Name()
}

// Close flushes and closes the file.
func (r *CSVRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writer.Flush()
	if err := r.writer.Error(); err != nil {
		r.file.Close()
		return err
	}
	return r.file.Close()
}

func formatFloat(v float32) string {
	return strconv.FormatFloat(float64(v), 'f', 4, 32)
}
