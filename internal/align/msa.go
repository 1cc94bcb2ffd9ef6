package align

import (
	"fmt"
	"strings"

	"github.com/Dfam-consortium/RepeatModeler-sub000/internal/matrix"
)

// voteBases is the fixed candidate set for column voting. IUB ambiguity
// codes are accepted as established input but never produced here. Order
// matters: ties go to the first candidate encountered.
var voteBases = []byte("ACGTN")

// Row is one instance's slice of the induced multiple alignment, expressed
// in global gapped-column coordinates.
type Row struct {
	Inst *Instance

	// StartCol and EndCol are the 0-based inclusive gapped columns the
	// instance covers
	StartCol int
	EndCol   int

	// Seq is the gapped sequence over [StartCol,EndCol]
	Seq string
}

// Covers reports whether the row fully spans the column range.
func (r *Row) Covers(start, end int) bool {
	return r.StartCol <= start && r.EndCol >= end
}

// MSA is a multiple alignment induced transitively from pairwise alignments
// against one reference: every instance was aligned to the reference
// independently, and column correspondence is inferred by merging the
// insertion columns each alignment demands.
type MSA struct {
	RefName string

	// Ref is the ungapped reference/consensus
	Ref string

	// GappedRef is the reference padded with '-' in insertion columns
	GappedRef string

	// colToRef maps gapped column -> 0-based reference index, -1 for
	// insertion columns
	colToRef []int

	// refToCol maps 0-based reference index -> gapped column
	refToCol []int

	Rows []Row
}

// NewMSA builds the induced multiple alignment of the given instances
// against the reference. Instances whose subject coordinates fall outside
// the reference, or whose gapped strings are missing, are rejected with an
// error; the caller is expected to have filtered those already.
func NewMSA(refName, ref string, instances []*Instance) (*MSA, error) {
	refLen := len(ref)

	// first pass: the widest insertion demanded before each reference
	// index. inserts[p] is the number of columns between ref base p-1 and
	// p; insertions hanging off an alignment's ends have no anchor on both
	// sides and are dropped with the span.
	inserts := make([]int, refLen+1)
	for _, in := range instances {
		if in.SAln == "" || in.QAln == "" {
			return nil, fmt.Errorf("%s: no gapped alignment strings", in.ID)
		}
		if in.SEnd > refLen {
			return nil, fmt.Errorf("%s: subject end %d beyond reference length %d (inconsistent consensus length)",
				in.ID, in.SEnd, refLen)
		}
		pos := in.SStart - 1 // ref index of the next subject base
		run := 0
		for i := 0; i < len(in.SAln); i++ {
			if in.SAln[i] == '-' {
				run++
				continue
			}
			if run > 0 && pos > in.SStart-1 && inserts[pos] < run {
				inserts[pos] = run
			}
			run = 0
			pos++
		}
	}

	m := &MSA{RefName: refName, Ref: ref}
	m.layout(inserts)

	for _, in := range instances {
		m.Rows = append(m.Rows, m.placeRow(in, inserts))
	}
	return m, nil
}

// layout computes the gapped reference and the column maps from the
// insertion widths. Called once per snapshot; the maps are invalidated by
// any structural change to the reference (callers rebuild the MSA).
func (m *MSA) layout(inserts []int) {
	refLen := len(m.Ref)
	var g strings.Builder
	m.colToRef = m.colToRef[:0]
	m.refToCol = make([]int, refLen)

	writeGaps := func(n int) {
		for i := 0; i < n; i++ {
			g.WriteByte('-')
			m.colToRef = append(m.colToRef, -1)
		}
	}
	for i := 0; i < refLen; i++ {
		writeGaps(inserts[i])
		m.refToCol[i] = g.Len()
		g.WriteByte(m.Ref[i])
		m.colToRef = append(m.colToRef, i)
	}
	writeGaps(inserts[refLen])
	m.GappedRef = g.String()
}

// placeRow re-expresses one pairwise alignment in global column space. The
// row covers exactly the columns between its first and last aligned subject
// base; each inter-base insertion point is filled with the row's inserted
// query bases, left-aligned and gap-padded to the width the layout reserved.
func (m *MSA) placeRow(in *Instance, inserts []int) Row {
	var b strings.Builder
	n := len(in.SAln)
	i := 0
	for i < n && in.SAln[i] == '-' {
		i++ // unanchored leading insertion
	}
	pos := in.SStart - 1
	for i < n {
		b.WriteByte(upperBase(in.QAln[i]))
		i++
		if pos == in.SEnd-1 {
			break // unanchored trailing insertion, if any, is dropped
		}
		run := 0
		for i+run < n && in.SAln[i+run] == '-' {
			run++
		}
		b.WriteString(strings.ToUpper(in.QAln[i : i+run]))
		if pad := inserts[pos+1] - run; pad > 0 {
			b.WriteString(strings.Repeat("-", pad))
		}
		i += run
		pos++
	}
	startCol := m.refToCol[in.SStart-1]
	seq := b.String()
	return Row{Inst: in, StartCol: startCol, EndCol: startCol + len(seq) - 1, Seq: seq}
}

// Width is the gapped (column) length of the alignment.
func (m *MSA) Width() int {
	return len(m.GappedRef)
}

// RefLen is the ungapped reference length.
func (m *MSA) RefLen() int {
	return len(m.Ref)
}

// ColToRef maps a gapped column to its 0-based reference index, or -1 for
// an insertion column.
func (m *MSA) ColToRef(col int) int {
	return m.colToRef[col]
}

// RefToCol maps a 0-based reference index to its gapped column.
func (m *MSA) RefToCol(i int) int {
	return m.refToCol[i]
}

// CharAt returns the row's character at a global column, or 0 if the row
// doesn't cover it.
func (r *Row) CharAt(col int) byte {
	if col < r.StartCol || col > r.EndCol {
		return 0
	}
	return r.Seq[col-r.StartCol]
}

// Consensus derives the per-column majority consensus over the reference
// columns. For every reference column the score-maximizing candidate from
// {A,C,G,T,N} is chosen by summing matrix[candidate][observed] over the
// bases the covering instances contribute (gaps don't vote; deletions are
// the block evaluator's problem, not the column vote's). withRef adds the
// reference's own base to the observations. Columns nothing covers keep
// the reference base. The result always has the reference's ungapped
// length, and the function is pure: same snapshot, same matrix, same bytes
// out.
func (m *MSA) Consensus(mat *matrix.Matrix, withRef bool) string {
	out := make([]byte, len(m.Ref))
	var obs []byte
	for i := 0; i < len(m.Ref); i++ {
		col := m.refToCol[i]
		obs = obs[:0]
		for r := range m.Rows {
			ch := m.Rows[r].CharAt(col)
			if ch != 0 && ch != '-' {
				obs = append(obs, ch)
			}
		}
		if withRef {
			obs = append(obs, m.Ref[i])
		}
		if len(obs) == 0 {
			out[i] = m.Ref[i]
			continue
		}
		out[i] = voteColumn(obs, mat)
	}
	return string(out)
}

// voteColumn picks the score-maximizing candidate base for one column's
// observations. First candidate wins ties.
func voteColumn(obs []byte, mat *matrix.Matrix) byte {
	best := voteBases[0]
	bestScore := 0
	for ci, cand := range voteBases {
		s := 0
		for _, o := range obs {
			s += mat.Score(cand, o)
		}
		if ci == 0 || s > bestScore {
			best = cand
			bestScore = s
		}
	}
	return best
}

// Block returns the reference slice and the slices of every row that fully
// spans the gapped column range [start,end], gaps preserved. Partially
// overlapping rows are excluded: a truncated subsequence would corrupt the
// length histogram the block evaluator builds from these.
func (m *MSA) Block(start, end int) (string, []string) {
	ref := m.GappedRef[start : end+1]
	var rows []string
	for r := range m.Rows {
		if m.Rows[r].Covers(start, end) {
			off := start - m.Rows[r].StartCol
			rows = append(rows, m.Rows[r].Seq[off:off+end-start+1])
		}
	}
	return ref, rows
}

// ColumnScores computes the per-column alignment quality profile: for each
// gapped column, the sum of matrix scores of every observed base against
// the reference base, with gap mismatches (deletion under a reference base,
// or a base in an insertion column) scored at gapScore. This is the input
// profile for low-scoring subalignment detection.
func (m *MSA) ColumnScores(mat *matrix.Matrix, gapScore int) []int {
	scores := make([]int, m.Width())
	for col := 0; col < m.Width(); col++ {
		ref := m.GappedRef[col]
		total := 0
		for r := range m.Rows {
			ch := m.Rows[r].CharAt(col)
			if ch == 0 {
				continue
			}
			switch {
			case ch == '-' && ref == '-':
				// padding inside someone else's insertion: neutral
			case ch == '-' || ref == '-':
				total += gapScore
			default:
				total += mat.Score(ref, ch)
			}
		}
		scores[col] = total
	}
	return scores
}

func upperBase(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - 32
	}
	return b
}
