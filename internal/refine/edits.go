package refine

import (
	"fmt"
	"sort"

	"github.com/Dfam-consortium/RepeatModeler-sub000/internal/align"
)

// Edit is one accepted consensus rewrite in ungapped reference coordinates:
// replace positions [RefStart,RefEnd] (0-based inclusive) with Seq. A pure
// insertion has RefEnd = RefStart-1 and inserts before RefStart.
type Edit struct {
	RefStart int
	RefEnd   int
	Seq      string
}

// String renders the edit for the change report.
func (e Edit) String() string {
	if e.RefEnd < e.RefStart {
		return fmt.Sprintf("ins @%d +%q", e.RefStart+1, e.Seq)
	}
	return fmt.Sprintf("%d-%d -> %q", e.RefStart+1, e.RefEnd+1, e.Seq)
}

// EditFromCandidate converts an accepted candidate's gapped column range
// into reference coordinates against the MSA it was evaluated on.
func EditFromCandidate(m *align.MSA, c Candidate) Edit {
	refStart, refEnd := -1, -2
	for col := c.Start; col <= c.End; col++ {
		if r := m.ColToRef(col); r >= 0 {
			if refStart < 0 {
				refStart = r
			}
			refEnd = r
		}
	}
	if refStart < 0 {
		// pure insertion columns: anchor before the next reference base
		anchor := m.RefLen()
		for col := c.End + 1; col < m.Width(); col++ {
			if r := m.ColToRef(col); r >= 0 {
				anchor = r
				break
			}
		}
		return Edit{RefStart: anchor, RefEnd: anchor - 1, Seq: c.Seq}
	}
	return Edit{RefStart: refStart, RefEnd: refEnd, Seq: c.Seq}
}

// ApplyEdits rewrites the consensus with the accepted edits. Edits are
// collected first and applied in descending start order, so an earlier
// replacement can't shift the coordinates a later one was computed in; the
// consensus is never spliced while walking it in ascending order.
func ApplyEdits(cons string, edits []Edit) (string, error) {
	ordered := make([]Edit, len(edits))
	copy(ordered, edits)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].RefStart > ordered[j].RefStart })

	out := cons
	for _, e := range ordered {
		if e.RefStart < 0 || e.RefStart > len(out) || e.RefEnd >= len(out) {
			return "", fmt.Errorf("edit %s outside consensus of length %d", e, len(out))
		}
		end := e.RefEnd + 1
		if end < e.RefStart {
			end = e.RefStart
		}
		out = out[:e.RefStart] + e.Seq + out[end:]
	}
	return out, nil
}
