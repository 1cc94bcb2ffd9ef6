// Package fasta reads and writes the consensus FASTA files the refiner
// round-trips: records carry an optional "#class" suffix on the identifier,
// and consensus sequences may be flanked by the reserved 'H' extension
// marker. The marker form never leaves this package; everything above works
// with the Padded value type.
package fasta

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Record is one FASTA entry.
type Record struct {
	ID    string
	Class string
	Desc  string
	Seq   string
}

// Buffer reports whether the record's class marks it as a decoy family:
// one included only to compete for instances, never itself refined.
func (r *Record) Buffer() bool {
	return strings.Contains(strings.ToLower(r.Class), "buffer")
}

// Header reconstructs the ">id#class desc" header line body.
func (r *Record) Header() string {
	h := r.ID
	if r.Class != "" {
		h += "#" + r.Class
	}
	if r.Desc != "" {
		h += " " + r.Desc
	}
	return h
}

// Read parses FASTA records from r. Sequence characters are uppercased;
// anything after the first '#' in the identifier becomes the class, and
// anything after the first space becomes the description.
func Read(r io.Reader) ([]*Record, error) {
	var recs []*Record
	var cur *Record
	var seq strings.Builder

	flush := func() {
		if cur != nil {
			cur.Seq = seq.String()
			recs = append(recs, cur)
			seq.Reset()
		}
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ">") {
			flush()
			cur = parseHeader(line[1:])
			continue
		}
		if cur == nil {
			return nil, fmt.Errorf("sequence data before any FASTA header")
		}
		seq.WriteString(strings.ToUpper(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed reading FASTA: %w", err)
	}
	flush()
	return recs, nil
}

func parseHeader(h string) *Record {
	rec := &Record{}
	if i := strings.IndexByte(h, ' '); i >= 0 {
		rec.Desc = strings.TrimSpace(h[i+1:])
		h = h[:i]
	}
	if i := strings.IndexByte(h, '#'); i >= 0 {
		rec.Class = h[i+1:]
		h = h[:i]
	}
	rec.ID = h
	return rec
}

// ReadFile reads all records from a FASTA file.
func ReadFile(path string) ([]*Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open FASTA file: %w", err)
	}
	defer f.Close()
	recs, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return recs, nil
}

// Write serializes records with sequence lines wrapped at 60 columns.
func Write(w io.Writer, recs []*Record) error {
	bw := bufio.NewWriter(w)
	for _, rec := range recs {
		if _, err := fmt.Fprintf(bw, ">%s\n", rec.Header()); err != nil {
			return err
		}
		for i := 0; i < len(rec.Seq); i += 60 {
			end := i + 60
			if end > len(rec.Seq) {
				end = len(rec.Seq)
			}
			if _, err := fmt.Fprintln(bw, rec.Seq[i:end]); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

// WriteFile writes records to path via a temp file + rename, so a crash
// mid-write leaves either the old file or the new one, never a torn one.
func WriteFile(path string, recs []*Record) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmp, err)
	}
	if err := Write(f, recs); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed writing %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed closing %s: %w", tmp, err)
	}
	return os.Rename(tmp, path)
}

// Backup archives path under the next free numbered suffix (path.1, path.2,
// ...) and returns the backup path. Backups are never overwritten; the
// previous consensus must stay recoverable even if the run dies between
// computing a new consensus and writing it.
func Backup(path string) (string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return "", nil
	}
	for n := 1; ; n++ {
		bak := fmt.Sprintf("%s.%d", path, n)
		if _, err := os.Stat(bak); err == nil {
			continue
		}
		in, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read %s for backup: %w", path, err)
		}
		if err := os.WriteFile(bak, in, 0644); err != nil {
			return "", fmt.Errorf("failed to write backup %s: %w", bak, err)
		}
		return bak, nil
	}
}
