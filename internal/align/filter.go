package align

import "sort"

// ExclusionCounts tallies instances dropped by the quality filters. Nothing
// is ever dropped silently: callers report these at the end of a run.
type ExclusionCounts struct {
	OverDiverged  int
	OverlapLosers int
	TooShort      int
	Duplicates    int
}

// Total is the number of instances excluded across all reasons.
func (e ExclusionCounts) Total() int {
	return e.OverDiverged + e.OverlapLosers + e.TooShort + e.Duplicates
}

// FilterDivergence drops instances whose percent divergence exceeds maxDiv.
func (c *Collection) FilterDivergence(maxDiv float64, counts *ExclusionCounts) {
	kept := c.Instances[:0]
	for _, in := range c.Instances {
		if in.PctDiv > maxDiv {
			counts.OverDiverged++
			continue
		}
		kept = append(kept, in)
	}
	c.Instances = kept
}

// FilterMinLength drops instances whose subject span is shorter than min.
func (c *Collection) FilterMinLength(min int, counts *ExclusionCounts) {
	kept := c.Instances[:0]
	for _, in := range c.Instances {
		if in.SpanLen() < min {
			counts.TooShort++
			continue
		}
		kept = append(kept, in)
	}
	c.Instances = kept
}

// FilterOverlapping drops the lower-scoring alignment whenever two
// alignments of the same query overlap on the query range or on the
// subject range of the same subject. Overlap means either endpoint of one
// falls inside the other, or one contains the other. Higher-scoring
// alignments win; among equals the earlier one wins, so the result is
// deterministic for a fixed input order.
func (c *Collection) FilterOverlapping(counts *ExclusionCounts) {
	order := make([]*Instance, len(c.Instances))
	copy(order, c.Instances)
	sort.SliceStable(order, func(i, j int) bool { return order[i].Score > order[j].Score })

	dropped := make(map[*Instance]bool)
	accepted := make(map[string][]*Instance)
	for _, in := range order {
		conflict := false
		for _, a := range accepted[in.ID] {
			if spansOverlap(in.QStart, in.QEnd, a.QStart, a.QEnd) ||
				(in.SName == a.SName && spansOverlap(in.SStart, in.SEnd, a.SStart, a.SEnd)) {
				conflict = true
				break
			}
		}
		if conflict {
			dropped[in] = true
			counts.OverlapLosers++
			continue
		}
		accepted[in.ID] = append(accepted[in.ID], in)
	}

	kept := c.Instances[:0]
	for _, in := range c.Instances {
		if !dropped[in] {
			kept = append(kept, in)
		}
	}
	c.Instances = kept
}

func spansOverlap(aStart, aEnd, bStart, bEnd int) bool {
	return (aStart >= bStart && aStart <= bEnd) ||
		(aEnd >= bStart && aEnd <= bEnd) ||
		(aStart < bStart && aEnd > bEnd)
}
