// Package align models a set of pairwise alignments of genomic repeat
// instances against one reference/consensus sequence, the multiple alignment
// induced from them, and the cross_match tabular text format they travel in.
package align

import (
	"fmt"
	"sort"
	"strings"
)

// Instance is one pairwise alignment of a genomic copy (the query) to the
// reference or consensus it was searched against (the subject).
type Instance struct {
	// ID of the query instance
	ID string

	// Reverse is true for reverse-complement orientation ("C" hits)
	Reverse bool

	// Score is the raw (or complexity-adjusted) alignment score
	Score int

	// PctDiv, PctDel, PctIns are percent substitutions, deletions and
	// insertions relative to the subject
	PctDiv float64
	PctDel float64
	PctIns float64

	// QStart and QEnd are 1-based inclusive query coordinates; QRemain is
	// the number of query bases beyond the alignment
	QStart  int
	QEnd    int
	QRemain int

	// SName is the subject (consensus/family) the instance aligned to
	SName string

	// SStart and SEnd are 1-based inclusive subject coordinates; SRemain is
	// the number of subject bases beyond the alignment
	SStart  int
	SEnd    int
	SRemain int

	// QAln and SAln are the gapped alignment strings ('-' for gaps), both
	// in subject-forward orientation and of equal length
	QAln string
	SAln string
}

// SpanLen is the ungapped subject span of the alignment.
func (in *Instance) SpanLen() int {
	return in.SEnd - in.SStart + 1
}

// Validate checks the structural invariants of a parsed instance.
func (in *Instance) Validate() error {
	if in.QAln != "" && len(in.QAln) != len(in.SAln) {
		return fmt.Errorf("%s: gapped strings differ in length (%d vs %d)", in.ID, len(in.QAln), len(in.SAln))
	}
	if in.SAln != "" {
		ungapped := len(in.SAln) - strings.Count(in.SAln, "-")
		if ungapped != in.SpanLen() {
			return fmt.Errorf("%s: subject span %d-%d disagrees with gapped string (%d bases)",
				in.ID, in.SStart, in.SEnd, ungapped)
		}
	}
	if in.SStart > in.SEnd || (in.QStart > in.QEnd && !in.Reverse) {
		return fmt.Errorf("%s: inverted coordinates", in.ID)
	}
	return nil
}

// Collection is an ordered set of instances, possibly against multiple
// subjects (one per family in multi-family runs).
type Collection struct {
	Instances []*Instance
}

// Add appends an instance. No dedup is applied here; callers that need it
// use Dedupe.
func (c *Collection) Add(in *Instance) {
	c.Instances = append(c.Instances, in)
}

// Len returns the number of instances held.
func (c *Collection) Len() int {
	return len(c.Instances)
}

// ForSubject returns the instances aligned to the named subject, in input
// order.
func (c *Collection) ForSubject(name string) []*Instance {
	var out []*Instance
	for _, in := range c.Instances {
		if in.SName == name {
			out = append(out, in)
		}
	}
	return out
}

// Dedupe removes duplicate alignments. A duplicate is defined by query name
// plus query coordinates plus subject span: the same genomic interval hit
// the same consensus region twice. (An alternate definition by identical
// score/divergence was considered and rejected: distinct hits can share
// stats by coincidence, and coverage math needs the coordinate identity.)
// Returns the number removed.
func (c *Collection) Dedupe() int {
	seen := make(map[string]bool, len(c.Instances))
	kept := c.Instances[:0]
	removed := 0
	for _, in := range c.Instances {
		key := fmt.Sprintf("%s:%d-%d/%s:%d-%d", in.ID, in.QStart, in.QEnd, in.SName, in.SStart, in.SEnd)
		if seen[key] {
			removed++
			continue
		}
		seen[key] = true
		kept = append(kept, in)
	}
	c.Instances = kept
	return removed
}

// SortByScore orders instances by descending score, breaking ties by query
// name then query start so the order is reproducible.
func (c *Collection) SortByScore() {
	sort.SliceStable(c.Instances, func(i, j int) bool {
		a, b := c.Instances[i], c.Instances[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.ID != b.ID {
			return a.ID < b.ID
		}
		return a.QStart < b.QStart
	})
}

// Coverage computes per-subject-position alignment depth for the named
// subject, over positions 1..length. Multiple sub-alignments of the same
// query count once per position: spans are unioned per query name before
// depth is accumulated, so a query split into two overlapping hits doesn't
// double-count.
func (c *Collection) Coverage(name string, length int) []int {
	spans := make(map[string][][2]int)
	for _, in := range c.Instances {
		if in.SName != name {
			continue
		}
		spans[in.ID] = append(spans[in.ID], [2]int{in.SStart, in.SEnd})
	}

	depth := make([]int, length)
	for _, ss := range spans {
		sort.Slice(ss, func(i, j int) bool { return ss[i][0] < ss[j][0] })
		// merge overlapping/adjacent spans of one query
		merged := ss[:1]
		for _, s := range ss[1:] {
			last := &merged[len(merged)-1]
			if s[0] <= last[1]+1 {
				if s[1] > last[1] {
					last[1] = s[1]
				}
				continue
			}
			merged = append(merged, s)
		}
		for _, s := range merged {
			lo, hi := s[0], s[1]
			if lo < 1 {
				lo = 1
			}
			if hi > length {
				hi = length
			}
			for p := lo; p <= hi; p++ {
				depth[p-1]++
			}
		}
	}
	return depth
}
