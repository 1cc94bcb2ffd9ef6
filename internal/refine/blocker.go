// Package refine implements the consensus refinement core: the windowed
// block evaluator that detects spurious indels introduced by transitive
// alignment, the candidate-range generators and aggregation policies built
// on it, and the iterative alignment/consensus stabilization loop.
package refine

import (
	"strings"

	"github.com/Dfam-consortium/RepeatModeler-sub000/internal/align"
	"github.com/Dfam-consortium/RepeatModeler-sub000/internal/matrix"
)

// BlockOptions parameterize one block evaluation.
type BlockOptions struct {
	// CopyMin is the minimum number of instances that must agree on the
	// majority length before a change can be accepted
	CopyMin int

	// Ratio is the required majority-length/reference-length support ratio
	Ratio float64

	// Matrix scores the per-position majority vote
	Matrix *matrix.Matrix
}

// BlockResult is the outcome of evaluating one column range. The zero value
// is the rejection sentinel: no length change is proposed.
type BlockResult struct {
	// BestCount instances agree on the dominant subsequence length
	BestCount int

	// ConsCount instances match the current reference length (no indel)
	ConsCount int

	// Seq is the re-voted replacement subsequence (gap-free)
	Seq string

	// NewLen is len(Seq)
	NewLen int

	// NCount is the number of 'N' bases in Seq
	NCount int
}

// Accepted reports whether the evaluation proposed a change.
func (r BlockResult) Accepted() bool {
	return r.BestCount > 0
}

// EvaluateBlock is the atomic indel-detection primitive. Over the gapped
// column range [start,end] it tallies the gap-stripped lengths of every
// instance subsequence spanning the range, finds the dominant length, and
// re-votes a replacement subsequence from the instances that carry it.
//
// A proposal survives only if enough copies back it (CopyMin), it
// out-numbers the reference-length population by the required ratio, and it
// isn't mostly N. When the proposal is longer than the reference span the
// ratio requirement drops by 0.5 and the N cutoff by (newLen-consLen)/4;
// these constants are empirical and deliberately left as-is, since long
// N-heavy insertions are the classic artifact of stacking one-reference
// alignments.
func EvaluateBlock(m *align.MSA, start, end int, opts BlockOptions) BlockResult {
	ref, rows := m.Block(start, end)
	consLen := len(ref) - strings.Count(ref, "-")

	// length histogram over spanning instances
	counts := make(map[int]int)
	stripped := make([]string, 0, len(rows))
	for _, row := range rows {
		s := strings.ReplaceAll(row, "-", "")
		stripped = append(stripped, s)
		counts[len(s)]++
	}
	if len(stripped) == 0 {
		return BlockResult{}
	}

	// dominant length; ties prefer the reference length, then the shorter
	// candidate, so the outcome never depends on map iteration order
	bestLen, bestCount := -1, 0
	for l, n := range counts {
		switch {
		case n > bestCount:
			bestLen, bestCount = l, n
		case n == bestCount && l == consLen:
			bestLen = l
		case n == bestCount && bestLen != consLen && l < bestLen:
			bestLen = l
		}
	}
	consCount := counts[consLen]

	seq := voteBlock(stripped, bestLen, opts.Matrix)
	nCount := strings.Count(seq, "N")

	adjRatio := opts.Ratio
	cutoff := 10.0
	if bestLen > consLen {
		adjRatio -= 0.5
		cutoff -= float64(bestLen-consLen) / 4
	}

	if bestCount < opts.CopyMin {
		return BlockResult{}
	}
	if consCount != 0 && float64(bestCount)/float64(consCount) < adjRatio {
		return BlockResult{}
	}
	if nCount >= 2 && float64(bestLen)/float64(nCount) <= cutoff {
		return BlockResult{}
	}

	return BlockResult{
		BestCount: bestCount,
		ConsCount: consCount,
		Seq:       seq,
		NewLen:    bestLen,
		NCount:    nCount,
	}
}

// voteBlock builds the replacement subsequence by per-position
// matrix-weighted majority vote over the instances whose stripped length
// equals the dominant length. Same-length members are compared positionally
// without further alignment: the dominant-length group is assumed to be
// internally gap-consistent, which holds for the single-indel artifacts
// this detects.
func voteBlock(stripped []string, bestLen int, mat *matrix.Matrix) string {
	members := stripped[:0:0]
	for _, s := range stripped {
		if len(s) == bestLen {
			members = append(members, s)
		}
	}
	out := make([]byte, bestLen)
	obs := make([]byte, 0, len(members))
	for p := 0; p < bestLen; p++ {
		obs = obs[:0]
		for _, s := range members {
			obs = append(obs, s[p])
		}
		out[p] = voteBase(obs, mat)
	}
	return string(out)
}

var voteBases = []byte("ACGTN")

func voteBase(obs []byte, mat *matrix.Matrix) byte {
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
