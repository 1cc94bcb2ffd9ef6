package refine

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/Dfam-consortium/RepeatModeler-sub000/internal/align"
)

// AggregationMethod selects how overlapping candidate ranges are merged.
type AggregationMethod string

const (
	Tiling     AggregationMethod = "tiling"
	Clustering AggregationMethod = "clustering"
)

// IndelOptions configure one indel-resolution pass.
type IndelOptions struct {
	Window WindowSpec
	Block  BlockOptions
	Method AggregationMethod

	// MinGap is the tiling proximity exclusion distance (columns)
	MinGap int

	// GapAllowedDist is the clustering merge distance (columns)
	GapAllowedDist int
}

// IndelReport is the full outcome of a resolution pass, including the
// rejected tiling candidates for the audit report.
type IndelReport struct {
	Candidates []Candidate
	Accepted   []Candidate
	Rejected   []RejectedCandidate
	Edits      []Edit
	Consensus  string
}

// ResolveIndels runs one windowed indel-resolution pass over an induced
// multiple alignment: generate candidate ranges, aggregate them into a
// disjoint accepted set, and apply the replacements to the consensus.
func ResolveIndels(m *align.MSA, opts IndelOptions) (*IndelReport, error) {
	rep := &IndelReport{}

	if opts.Window.RTThreshold != 0 {
		rep.Candidates = LowScoringCandidates(m, opts.Window, opts.Block)
	} else {
		rep.Candidates = SlidingCandidates(m, opts.Window, opts.Block)
	}
	log.WithField("candidates", len(rep.Candidates)).Debug("candidate ranges generated")

	switch opts.Method {
	case Clustering:
		rep.Accepted = ClusterCandidates(m, rep.Candidates, opts.GapAllowedDist, opts.Block)
	case Tiling, "":
		rep.Accepted, rep.Rejected = TileCandidates(rep.Candidates, opts.MinGap)
	default:
		return nil, fmt.Errorf("unknown aggregation method %q", opts.Method)
	}

	for _, c := range rep.Accepted {
		rep.Edits = append(rep.Edits, EditFromCandidate(m, c))
	}
	cons, err := ApplyEdits(m.Ref, rep.Edits)
	if err != nil {
		return nil, err
	}
	rep.Consensus = cons
	return rep, nil
}
