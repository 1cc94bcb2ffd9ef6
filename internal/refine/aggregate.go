package refine

import (
	"sort"

	"github.com/Dfam-consortium/RepeatModeler-sub000/internal/align"
)

// RejectedCandidate records a candidate that lost a tiling conflict, and
// which accepted range blocked it, for the change report.
type RejectedCandidate struct {
	Candidate Candidate
	BlockedBy Candidate
}

// TileCandidates greedily accepts candidates in descending ratio order,
// excluding any candidate that comes within minGap columns of an already
// accepted range (endpoint containment either way, or full containment of
// the gap-extended accepted range). The accepted set is therefore disjoint
// with at least minGap columns between neighbors.
func TileCandidates(cands []Candidate, minGap int) (accepted []Candidate, rejected []RejectedCandidate) {
	order := make([]Candidate, len(cands))
	copy(order, cands)
	sort.SliceStable(order, func(i, j int) bool {
		if order[i].Ratio != order[j].Ratio {
			return order[i].Ratio > order[j].Ratio
		}
		return order[i].Start < order[j].Start
	})

	for _, c := range order {
		conflictAt := -1
		for i, a := range accepted {
			lo, hi := a.Start-minGap, a.End+minGap
			if (c.Start >= lo && c.Start <= hi) ||
				(c.End >= lo && c.End <= hi) ||
				(c.Start < lo && c.End > hi) {
				conflictAt = i
				break
			}
		}
		if conflictAt >= 0 {
			rejected = append(rejected, RejectedCandidate{Candidate: c, BlockedBy: accepted[conflictAt]})
			continue
		}
		accepted = append(accepted, c)
	}

	sort.Slice(accepted, func(i, j int) bool { return accepted[i].Start < accepted[j].Start })
	return accepted, rejected
}

// ClusterCandidates merges nearby candidates instead of discarding them:
// walking by (start asc, end desc), each candidate within gapAllowedDist of
// the running cluster is provisionally unioned in and the block evaluator
// re-run over the union span; if the union still passes, the cluster
// grows, otherwise the cluster is closed and a new one starts. Every
// emitted cluster's replacement sequence comes from a final evaluation of
// its full span.
func ClusterCandidates(m *align.MSA, cands []Candidate, gapAllowedDist int, opts BlockOptions) []Candidate {
	if len(cands) == 0 {
		return nil
	}
	order := make([]Candidate, len(cands))
	copy(order, cands)
	sort.SliceStable(order, func(i, j int) bool {
		if order[i].Start != order[j].Start {
			return order[i].Start < order[j].Start
		}
		return order[i].End > order[j].End
	})

	var out []Candidate
	cluster := order[0]

	emit := func(c Candidate) {
		res := EvaluateBlock(m, c.Start, c.End, opts)
		if !res.Accepted() || res.NewLen == ungappedLen(m, c.Start, c.End) {
			return
		}
		out = append(out, Candidate{
			Ratio:     ratioScore(res.BestCount, res.ConsCount),
			Start:     c.Start,
			End:       c.End,
			Seq:       res.Seq,
			NewLen:    res.NewLen,
			BestCount: res.BestCount,
			ConsCount: res.ConsCount,
		})
	}

	for _, c := range order[1:] {
		if c.Start <= cluster.End+gapAllowedDist {
			unionEnd := cluster.End
			if c.End > unionEnd {
				unionEnd = c.End
			}
			if EvaluateBlock(m, cluster.Start, unionEnd, opts).Accepted() {
				cluster.End = unionEnd
				continue
			}
		}
		emit(cluster)
		cluster = c
	}
	emit(cluster)
	return out
}
