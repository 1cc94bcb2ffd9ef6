package align

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseHits(t *testing.T) {
	out := `
cross_match version 1.090518

  2310  5.26 0.00 1.75 inst1            1      58 (942) consRep1           1      57 (43)
   800 12.00 2.00 0.00 inst2          101     150 (0) C consRep1           (7) 50 1

Score histogram:
`
	c, err := ParseHits(strings.NewReader(out))
	if err != nil {
		t.Fatalf("ParseHits() error = %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("ParseHits() returned %d hits, want 2", c.Len())
	}

	fwd := c.Instances[0]
	if fwd.ID != "inst1" || fwd.Score != 2310 || fwd.Reverse {
		t.Errorf("forward hit parsed wrong: %+v", fwd)
	}
	if fwd.QStart != 1 || fwd.QEnd != 58 || fwd.QRemain != 942 {
		t.Errorf("forward query coords wrong: %+v", fwd)
	}
	if fwd.SName != "consRep1" || fwd.SStart != 1 || fwd.SEnd != 57 || fwd.SRemain != 43 {
		t.Errorf("forward subject coords wrong: %+v", fwd)
	}

	rev := c.Instances[1]
	if !rev.Reverse {
		t.Errorf("C hit not marked reverse: %+v", rev)
	}
	if rev.SStart != 1 || rev.SEnd != 50 || rev.SRemain != 7 {
		t.Errorf("reverse subject coords wrong: %+v", rev)
	}
	if rev.PctDiv != 12.0 {
		t.Errorf("reverse pctDiv = %v, want 12.0", rev.PctDiv)
	}
}

// Reverse hits mark their complemented query block lines with a leading
// "C"; those lines must still land in QAln.
func TestParseHitsReverseAlignmentBlocks(t *testing.T) {
	out := `
   800 12.00 0.00 0.00 inst2          101     108 (0) C consRep1           (0) 8 1

C inst2               108 ACGTTACT 101
  consRep1              1 ACGTAACT 8
`
	c, err := ParseHits(strings.NewReader(out))
	if err != nil {
		t.Fatalf("ParseHits() error = %v", err)
	}
	if c.Len() != 1 {
		t.Fatalf("ParseHits() returned %d hits, want 1", c.Len())
	}
	in := c.Instances[0]
	if !in.Reverse {
		t.Errorf("hit not marked reverse: %+v", in)
	}
	if in.QAln != "ACGTTACT" {
		t.Errorf("QAln = %q, want ACGTTACT", in.QAln)
	}
	if in.SAln != "ACGTAACT" {
		t.Errorf("SAln = %q, want ACGTAACT", in.SAln)
	}
}

// Round-trip: parse -> serialize -> parse preserves coordinates,
// orientation and gapped strings. Field widths are cosmetic and may differ.
func TestHitsRoundTrip(t *testing.T) {
	in := &Collection{}
	in.Add(&Instance{
		ID: "inst1", Score: 500, PctDiv: 4.5, PctDel: 1.0, PctIns: 0.5,
		QStart: 1, QEnd: 9, QRemain: 10,
		SName: "rep1", SStart: 1, SEnd: 8, SRemain: 0,
		QAln: "ACGTAACGT", SAln: "ACGT-ACGT",
	})
	in.Add(&Instance{
		ID: "inst2", Reverse: true, Score: 321, PctDiv: 10.0,
		QStart: 5, QEnd: 12, QRemain: 3,
		SName: "rep1", SStart: 1, SEnd: 8, SRemain: 0,
		QAln: "ACGTACGT", SAln: "ACGTACGT",
	})

	var buf bytes.Buffer
	if err := WriteHits(&buf, in); err != nil {
		t.Fatalf("WriteHits() error = %v", err)
	}
	got, err := ParseHits(&buf)
	if err != nil {
		t.Fatalf("ParseHits() error = %v", err)
	}
	if got.Len() != in.Len() {
		t.Fatalf("round trip lost hits: %d != %d", got.Len(), in.Len())
	}
	for i := range in.Instances {
		want, have := in.Instances[i], got.Instances[i]
		if *want != *have {
			t.Errorf("instance %d round trip mismatch:\nwant %+v\nhave %+v", i, want, have)
		}
	}
}

// Long alignments must survive the 50-column block chunking.
func TestHitsRoundTripChunked(t *testing.T) {
	q := strings.Repeat("ACGTACGTAC", 13) // 130 columns
	s := q[:64] + "-" + q[65:]
	qAdj := q[:64] + q[65:] + "A" // keep equal length, one insertion
	in := &Collection{}
	in.Add(&Instance{
		ID: "long1", Score: 900, PctDiv: 2.0,
		QStart: 1, QEnd: 130, QRemain: 0,
		SName: "rep1", SStart: 1, SEnd: 129, SRemain: 0,
		QAln: qAdj, SAln: s,
	})

	var buf bytes.Buffer
	if err := WriteHits(&buf, in); err != nil {
		t.Fatalf("WriteHits() error = %v", err)
	}
	got, err := ParseHits(&buf)
	if err != nil {
		t.Fatalf("ParseHits() error = %v", err)
	}
	if got.Len() != 1 {
		t.Fatalf("got %d hits, want 1", got.Len())
	}
	if got.Instances[0].QAln != qAdj || got.Instances[0].SAln != s {
		t.Errorf("chunked gapped strings did not round trip")
	}
}
