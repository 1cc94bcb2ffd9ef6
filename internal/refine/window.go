package refine

import (
	log "github.com/sirupsen/logrus"

	"github.com/Dfam-consortium/RepeatModeler-sub000/internal/align"
)

// Candidate is a proposed consensus edit over a gapped column range.
type Candidate struct {
	// Ratio ranks the candidate: bestCount / consCount, with consCount
	// replaced by 0.1 when zero so unopposed candidates rank highest
	// without dividing by zero
	Ratio float64

	// Start and End are inclusive gapped column bounds
	Start int
	End   int

	// Seq is the gap-free replacement subsequence
	Seq string

	// NewLen, BestCount, ConsCount echo the block evaluation
	NewLen    int
	BestCount int
	ConsCount int
}

const zeroConsDivisor = 0.1

func ratioScore(bestCount, consCount int) float64 {
	if consCount == 0 {
		return float64(bestCount) / zeroConsDivisor
	}
	return float64(bestCount) / float64(consCount)
}

// WindowSpec selects the candidate-generation strategy: an explicit list of
// window sizes, a contiguous MinSize..MaxSize range, or (when RTThreshold
// is nonzero) low-scoring subalignment detection.
type WindowSpec struct {
	Sizes       []int
	MinSize     int
	MaxSize     int
	RTThreshold int

	// GapScore is the per-base penalty charged to gap columns when
	// building the score profile for low-scoring detection
	GapScore int
}

func (w WindowSpec) sizes() []int {
	if len(w.Sizes) > 0 {
		return w.Sizes
	}
	var out []int
	for s := w.MinSize; s <= w.MaxSize; s++ {
		out = append(out, s)
	}
	return out
}

// SlidingCandidates evaluates the block evaluator over every configured
// window size anchored at every ungapped consensus position and returns the
// accepted length-changing proposals. A window's gapped span runs from its
// first reference column through the insertion columns that trail its last
// reference column, so insertions at the right edge are inside the window.
func SlidingCandidates(m *align.MSA, spec WindowSpec, opts BlockOptions) []Candidate {
	var out []Candidate
	refLen := m.RefLen()
	for _, w := range spec.sizes() {
		if w < 1 {
			continue
		}
		for i := 0; i+w <= refLen; i++ {
			start := m.RefToCol(i)
			var end int
			if i+w < refLen {
				end = m.RefToCol(i+w) - 1
			} else {
				end = m.Width() - 1
			}
			res := EvaluateBlock(m, start, end, opts)
			if !res.Accepted() || res.NewLen == w {
				continue
			}
			out = append(out, Candidate{
				Ratio:     ratioScore(res.BestCount, res.ConsCount),
				Start:     start,
				End:       end,
				Seq:       res.Seq,
				NewLen:    res.NewLen,
				BestCount: res.BestCount,
				ConsCount: res.ConsCount,
			})
		}
	}
	return out
}

// LowScoringCandidates builds the per-column quality profile, scans it for
// maximal low-scoring runs (Ruzzo-Tompa over the negated profile), and
// keeps the runs the block evaluator accepts as length changes. Rejected
// runs are still logged for audit.
func LowScoringCandidates(m *align.MSA, spec WindowSpec, opts BlockOptions) []Candidate {
	profile := m.ColumnScores(opts.Matrix, spec.GapScore)
	neg := make([]int, len(profile))
	for i, s := range profile {
		neg[i] = -s
	}

	var out []Candidate
	for _, sp := range maximalSubsequences(neg) {
		if sp.score < spec.RTThreshold {
			continue
		}
		res := EvaluateBlock(m, sp.start, sp.end, opts)
		consLen := ungappedLen(m, sp.start, sp.end)
		if !res.Accepted() || res.NewLen == consLen {
			log.WithFields(log.Fields{
				"start": sp.start, "end": sp.end, "score": -sp.score,
			}).Debug("low-scoring range not accepted as an indel")
			continue
		}
		out = append(out, Candidate{
			Ratio:     ratioScore(res.BestCount, res.ConsCount),
			Start:     sp.start,
			End:       sp.end,
			Seq:       res.Seq,
			NewLen:    res.NewLen,
			BestCount: res.BestCount,
			ConsCount: res.ConsCount,
		})
	}
	return out
}

func ungappedLen(m *align.MSA, start, end int) int {
	n := 0
	for c := start; c <= end; c++ {
		if m.ColToRef(c) >= 0 {
			n++
		}
	}
	return n
}

type span struct {
	start, end int // inclusive columns
	score      int
}

// maximalSubsequences is the Ruzzo-Tompa linear-time scan for all maximal
// scoring subsequences of a score sequence. Only positive-scoring runs can
// appear in the output.
func maximalSubsequences(scores []int) []span {
	type entry struct {
		start, end int
		lCum, rCum int // cumulative totals just before start / at end
	}
	var stack []entry
	cum := 0
	for i, s := range scores {
		prev := cum
		cum += s
		if s <= 0 {
			continue
		}
		cur := entry{start: i, end: i, lCum: prev, rCum: cum}
		for {
			// rightmost listed subsequence whose left total is smaller
			// than the current one's
			j := len(stack) - 1
			for j >= 0 && stack[j].lCum >= cur.lCum {
				j--
			}
			if j < 0 || stack[j].rCum >= cur.rCum {
				stack = append(stack, cur)
				break
			}
			// extend leftward through the found subsequence, drop
			// everything it subsumes, and reconsider
			cur.start = stack[j].start
			cur.lCum = stack[j].lCum
			stack = stack[:j]
		}
	}
	if len(stack) == 0 {
		return nil
	}
	out := make([]span, len(stack))
	for i, e := range stack {
		out[i] = span{start: e.start, end: e.end, score: e.rCum - e.lCum}
	}
	return out
}
