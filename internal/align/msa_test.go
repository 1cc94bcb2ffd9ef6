package align

import (
	"testing"

	"github.com/Dfam-consortium/RepeatModeler-sub000/internal/matrix"
)

// fullMatch builds an instance that aligns a query to the reference with
// identical sequence over [start,end] (1-based).
func fullMatch(id, ref string, start, end int) *Instance {
	sub := ref[start-1 : end]
	return &Instance{
		ID: id, Score: 100,
		QStart: 1, QEnd: len(sub),
		SName: "ref", SStart: start, SEnd: end,
		QAln: sub, SAln: sub,
	}
}

func TestNewMSALayout(t *testing.T) {
	ref := "ACGTACGT"
	withIns := &Instance{
		ID: "ins1", Score: 90,
		QStart: 1, QEnd: 10,
		SName: "ref", SStart: 1, SEnd: 8,
		QAln: "ACGTAAACGT", SAln: "ACGT--ACGT",
	}
	m, err := NewMSA("ref", ref, []*Instance{fullMatch("m1", ref, 1, 8), withIns})
	if err != nil {
		t.Fatalf("NewMSA() error = %v", err)
	}

	if m.Width() != 10 {
		t.Fatalf("Width() = %d, want 10", m.Width())
	}
	if m.GappedRef != "ACGT--ACGT" {
		t.Errorf("GappedRef = %q, want ACGT--ACGT", m.GappedRef)
	}
	if m.RefToCol(4) != 6 {
		t.Errorf("RefToCol(4) = %d, want 6", m.RefToCol(4))
	}
	if m.ColToRef(4) != -1 || m.ColToRef(6) != 4 {
		t.Errorf("column map wrong: ColToRef(4)=%d ColToRef(6)=%d", m.ColToRef(4), m.ColToRef(6))
	}

	// the exact-match row is padded through the insertion columns
	if m.Rows[0].Seq != "ACGT--ACGT" {
		t.Errorf("match row = %q, want ACGT--ACGT", m.Rows[0].Seq)
	}
	if m.Rows[1].Seq != "ACGTAAACGT" {
		t.Errorf("insertion row = %q, want ACGTAAACGT", m.Rows[1].Seq)
	}
}

func TestConsensusDeterminism(t *testing.T) {
	ref := "ACGTACGT"
	insts := []*Instance{
		fullMatch("a", ref, 1, 8),
		fullMatch("b", ref, 1, 8),
		{
			ID: "c", Score: 80, QStart: 1, QEnd: 8,
			SName: "ref", SStart: 1, SEnd: 8,
			QAln: "ACGTACGA", SAln: ref,
		},
	}
	m, err := NewMSA("ref", ref, insts)
	if err != nil {
		t.Fatal(err)
	}
	mat := matrix.Default()

	first := m.Consensus(mat, false)
	for i := 0; i < 10; i++ {
		if got := m.Consensus(mat, false); got != first {
			t.Fatalf("Consensus() not deterministic: %q != %q", got, first)
		}
	}
	if first != ref {
		t.Errorf("Consensus() = %q, want %q", first, ref)
	}
}

func TestConsensusUncoveredColumnsKeepReference(t *testing.T) {
	ref := "ACGTACGT"
	m, err := NewMSA("ref", ref, []*Instance{fullMatch("a", ref, 1, 4)})
	if err != nil {
		t.Fatal(err)
	}
	got := m.Consensus(matrix.Default(), false)
	if got != ref {
		t.Errorf("Consensus() = %q, want %q", got, ref)
	}
}

func TestBlockExcludesPartialRows(t *testing.T) {
	ref := "ACGTACGT"
	m, err := NewMSA("ref", ref, []*Instance{
		fullMatch("span", ref, 1, 8),
		fullMatch("half", ref, 1, 4),
	})
	if err != nil {
		t.Fatal(err)
	}
	refSlice, rows := m.Block(0, 7)
	if refSlice != ref {
		t.Errorf("Block ref slice = %q, want %q", refSlice, ref)
	}
	if len(rows) != 1 {
		t.Fatalf("Block returned %d rows, want 1 (partial rows excluded)", len(rows))
	}
	if rows[0] != ref {
		t.Errorf("Block row = %q, want %q", rows[0], ref)
	}
}

func TestCoverageUnionsPerQuery(t *testing.T) {
	c := &Collection{}
	// one query split into two overlapping sub-alignments: positions in
	// the overlap must count once
	c.Add(&Instance{ID: "q1", SName: "ref", SStart: 1, SEnd: 6, QStart: 1, QEnd: 6})
	c.Add(&Instance{ID: "q1", SName: "ref", SStart: 4, SEnd: 10, QStart: 7, QEnd: 13})
	c.Add(&Instance{ID: "q2", SName: "ref", SStart: 2, SEnd: 5, QStart: 1, QEnd: 4})

	depth := c.Coverage("ref", 10)
	want := []int{1, 2, 2, 2, 2, 1, 1, 1, 1, 1}
	for i := range want {
		if depth[i] != want[i] {
			t.Errorf("depth[%d] = %d, want %d", i, depth[i], want[i])
		}
	}
}
