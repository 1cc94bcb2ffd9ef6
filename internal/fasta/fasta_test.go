package fasta

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRead(t *testing.T) {
	in := `>rep1#LINE/L1 a long family
ACGTACGT
acgt
>rep2#SINE-buffer
TTTT
>plain
GGGG
`
	recs, err := Read(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("Read() returned %d records, want 3", len(recs))
	}

	tests := []struct {
		i      int
		id     string
		class  string
		desc   string
		seq    string
		buffer bool
	}{
		{0, "rep1", "LINE/L1", "a long family", "ACGTACGTACGT", false},
		{1, "rep2", "SINE-buffer", "", "TTTT", true},
		{2, "plain", "", "", "GGGG", false},
	}
	for _, tt := range tests {
		r := recs[tt.i]
		if r.ID != tt.id || r.Class != tt.class || r.Desc != tt.desc || r.Seq != tt.seq {
			t.Errorf("record %d = %+v", tt.i, r)
		}
		if r.Buffer() != tt.buffer {
			t.Errorf("record %d Buffer() = %v, want %v", tt.i, r.Buffer(), tt.buffer)
		}
	}
}

func TestWriteRoundTrip(t *testing.T) {
	recs := []*Record{
		{ID: "rep1", Class: "LTR", Desc: "desc here", Seq: strings.Repeat("ACGT", 40)},
		{ID: "rep2", Seq: "ACGT"},
	}
	var buf bytes.Buffer
	if err := Write(&buf, recs); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	back, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(back) != 2 {
		t.Fatalf("round trip lost records")
	}
	for i := range recs {
		if *back[i] != *recs[i] {
			t.Errorf("record %d mismatch: %+v != %+v", i, back[i], recs[i])
		}
	}
}

func TestBackupNumbering(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "consensi.fa")
	if err := os.WriteFile(path, []byte(">a\nACGT\n"), 0644); err != nil {
		t.Fatal(err)
	}

	b1, err := Backup(path)
	if err != nil {
		t.Fatalf("Backup() error = %v", err)
	}
	if b1 != path+".1" {
		t.Errorf("first backup = %s, want %s.1", b1, path)
	}
	b2, err := Backup(path)
	if err != nil {
		t.Fatal(err)
	}
	if b2 != path+".2" {
		t.Errorf("second backup = %s, want %s.2", b2, path)
	}

	// backups are never clobbered
	data, _ := os.ReadFile(b1)
	if string(data) != ">a\nACGT\n" {
		t.Errorf("backup 1 content changed: %q", data)
	}
}

func TestBackupMissingFile(t *testing.T) {
	b, err := Backup(filepath.Join(t.TempDir(), "nope.fa"))
	if err != nil {
		t.Fatalf("Backup() of missing file error = %v", err)
	}
	if b != "" {
		t.Errorf("Backup() of missing file = %q, want empty", b)
	}
}

func TestParsePadded(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		core  string
		left  int
		right int
	}{
		{"no pad", "ACGT", "ACGT", 0, 0},
		{"both sides", "HHACGTHHH", "ACGT", 2, 3},
		{"left only", "HACGT", "ACGT", 1, 0},
		{"all pad", "HHHH", "", 4, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ParsePadded(tt.in)
			if p.Core != tt.core || p.LeftPad != tt.left || p.RightPad != tt.right {
				t.Errorf("ParsePadded(%q) = %+v", tt.in, p)
			}
			if p.Flat() != tt.in {
				t.Errorf("Flat() = %q, want %q", p.Flat(), tt.in)
			}
		})
	}
}

func TestPaddedAbsorb(t *testing.T) {
	p := Padded{Core: "ACGT", LeftPad: 2, RightPad: 2}

	// open ends: voted bases under the markers are recruited into the core
	got := p.Absorb("HGACGTCH")
	if got.Core != "GACGTC" || got.LeftPad != 1 || got.RightPad != 1 {
		t.Errorf("Absorb open = %+v", got)
	}

	// finalized ends: marker-region changes are discarded
	fin := Padded{Core: "ACGT", LeftPad: 2, RightPad: 2, LeftFinal: true, RightFinal: true}
	got = fin.Absorb("TTACGTGG")
	if got.Core != "ACGT" || got.LeftPad != 2 || got.RightPad != 2 {
		t.Errorf("Absorb finalized = %+v", got)
	}
}
