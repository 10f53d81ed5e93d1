// Package journal writes the simulation event stream as zstd-compressed JSON
// lines, one file per simulated year.
package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// TicksPerYear sets the rotation period.
const TicksPerYear = 360

// Entry is one journal line.
type Entry struct {
	Tick uint64          `json:"tick"`
	Data json.RawMessage `json:"data"`
}

// Writer appends entries to <dir>/<prefix>-yNNNN.jsonl.zst.
type Writer struct {
	dir    string
	prefix string

	mu      sync.Mutex
	curYear uint64
	open    bool
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

// NewWriter returns a writer rooted at dir. Files are created lazily.
func NewWriter(dir, prefix string) *Writer {
	return &Writer{dir: dir, prefix: prefix}
}

// Write appends v stamped with tick, rotating when the sim year changes.
func (w *Writer) Write(tick uint64, v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	year := YearOf(tick)
	if !w.open || year != w.curYear {
		if err := w.rotateLocked(year); err != nil {
			return err
		}
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal journal entry: %w", err)
	}
	b, err := json.Marshal(Entry{Tick: tick, Data: data})
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	return w.w.WriteByte('\n')
}

// Flush pushes buffered entries through the encoder to disk.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.open {
		return nil
	}
	if err := w.w.Flush(); err != nil {
		return err
	}
	return w.enc.Flush()
}

// Close finishes the current file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

// Path returns the file holding the given sim year.
func (w *Writer) Path(year uint64) string {
	return filepath.Join(w.dir, fmt.Sprintf("%s-y%04d.jsonl.zst", w.prefix, year))
}

// YearOf returns the 1-based sim year of a tick.
func YearOf(tick uint64) uint64 {
	return tick/TicksPerYear + 1
}

func (w *Writer) rotateLocked(year uint64) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("journal dir: %w", err)
	}
	f, err := os.OpenFile(w.Path(year), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 64*1024)
	w.curYear = year
	w.open = true
	return nil
}

func (w *Writer) closeLocked() error {
	if !w.open {
		return nil
	}
	var err error
	if ferr := w.w.Flush(); ferr != nil {
		err = ferr
	}
	if cerr := w.enc.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if cerr := w.f.Close(); cerr != nil && err == nil {
		err = cerr
	}
	w.f, w.enc, w.w = nil, nil, nil
	w.open = false
	return err
}

// ReadFile decodes every entry in one journal file. Appended sessions are
// separate zstd frames; the decoder reads them back to back.
func ReadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

// Read decodes entries from a zstd-compressed JSONL stream.
func Read(r io.Reader) ([]Entry, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []Entry
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return out, fmt.Errorf("journal line %d: %w", len(out)+1, err)
		}
		out = append(out, e)
	}
	return out, sc.Err()
}
