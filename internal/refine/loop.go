package refine

import (
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/Dfam-consortium/RepeatModeler-sub000/internal/align"
	"github.com/Dfam-consortium/RepeatModeler-sub000/internal/fasta"
	"github.com/Dfam-consortium/RepeatModeler-sub000/internal/matrix"
	"github.com/Dfam-consortium/RepeatModeler-sub000/internal/search"
)

// Mode selects the loop's termination policy.
type Mode int

const (
	// SinglePass runs exactly one iteration regardless of changes
	SinglePass Mode = iota

	// Refine iterates until no family changes or the cap is hit
	Refine

	// Interactive is Refine with operator-driven accept/reject
	Interactive
)

// Family is the per-consensus bookkeeping of a multi-family run. Families
// are processed in consensus-file declaration order, which is their
// priority order.
type Family struct {
	Name  string
	Class string
	Desc  string
	Seq   fasta.Padded

	// Buffer families are decoys: they compete for instances but are
	// never edited, and round-trip byte-identical
	Buffer bool

	// Stable is the terminal state: the last vote reproduced the
	// consensus exactly
	Stable bool

	// Iterations counts accepted changes
	Iterations int
}

// LoopOptions configure the stabilization loop.
type LoopOptions struct {
	Mode              Mode
	MaxIterations     int
	MaxDiv            float64
	MinLength         int
	FilterOverlapping bool
	Dedupe            bool
	PruneCutoff       int
	Pad               int
	WithRef           bool
	Matrix            *matrix.Matrix
	WorkDir           string

	// FinalLeft and FinalRight mark the consensus ends finished: markers
	// on a finalized side still anchor alignments, but votes under them
	// never reach the core
	FinalLeft  bool
	FinalRight bool
}

// Result summarizes a finished run.
type Result struct {
	Iterations int
	Converged  bool
	Changes    map[string]int
	Excluded   align.ExclusionCounts
}

// Loop is the top-level iterative driver: search the instance pool against
// the current consensi, filter, re-vote each family, and repeat until every
// family reproduces itself. In-memory state is mutated between iterations;
// the consensus file on disk is the system of record, archived under a
// numbered backup before every overwrite.
type Loop struct {
	engine        search.Engine
	families      []*Family
	decider       Decider
	opts          LoopOptions
	consensusPath string
	instancesPath string
	watch         *Stopwatch
}

// NewLoop loads the consensus file and prepares a run. Family order in the
// file is preserved.
func NewLoop(engine search.Engine, consensusPath, instancesPath string, decider Decider, opts LoopOptions) (*Loop, error) {
	recs, err := fasta.ReadFile(consensusPath)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("%s: no consensus records", consensusPath)
	}
	if opts.Matrix == nil {
		opts.Matrix = matrix.Default()
	}
	if opts.MaxIterations < 1 {
		opts.MaxIterations = 1
	}

	l := &Loop{
		engine:        engine,
		decider:       decider,
		opts:          opts,
		consensusPath: consensusPath,
		instancesPath: instancesPath,
		watch:         NewStopwatch(),
	}
	for _, rec := range recs {
		p := fasta.ParsePadded(rec.Seq)
		if !rec.Buffer() {
			p.LeftFinal = opts.FinalLeft
			p.RightFinal = opts.FinalRight
			if opts.Pad > 0 {
				p = p.WithPad(opts.Pad)
			}
		}
		l.families = append(l.families, &Family{
			Name:   rec.ID,
			Class:  rec.Class,
			Desc:   rec.Desc,
			Seq:    p,
			Buffer: rec.Buffer(),
		})
	}
	return l, nil
}

// Families exposes the family records (for reporting and tests).
func (l *Loop) Families() []*Family {
	return l.families
}

// Watch returns the run's phase stopwatch.
func (l *Loop) Watch() *Stopwatch {
	return l.watch
}

func (l *Loop) workFile() string {
	dir := l.opts.WorkDir
	if dir == "" {
		dir = filepath.Dir(l.consensusPath)
	}
	return filepath.Join(dir, filepath.Base(l.consensusPath)+".work")
}

// writeWork writes the current consensi (flat, pads included) for the
// engine to search against.
func (l *Loop) writeWork() error {
	recs := make([]*fasta.Record, 0, len(l.families))
	for _, f := range l.families {
		recs = append(recs, &fasta.Record{ID: f.Name, Seq: f.Seq.Flat()})
	}
	return fasta.WriteFile(l.workFile(), recs)
}

func (l *Loop) runSearch() (*align.Collection, error) {
	l.watch.Start("search")
	defer l.watch.Stop("search")

	l.engine.SetQuery(l.instancesPath)
	l.engine.SetSubject(l.workFile())
	status, results, err := l.engine.Search()
	if err != nil {
		return nil, err
	}
	if status != 0 {
		return nil, fmt.Errorf("search engine returned status %d", status)
	}
	return results, nil
}

// Run executes the stabilization loop to completion.
func (l *Loop) Run() (*Result, error) {
	res := &Result{Changes: make(map[string]int)}
	quit := false

	for iter := 1; ; iter++ {
		res.Iterations = iter
		if err := l.writeWork(); err != nil {
			return nil, err
		}
		results, err := l.runSearch()
		if err != nil {
			return nil, err
		}

		if l.opts.PruneCutoff > 0 {
			if pruned := l.prunePass(results); pruned {
				if err := l.writeWork(); err != nil {
					return nil, err
				}
				if results, err = l.runSearch(); err != nil {
					return nil, err
				}
			}
		}

		l.filterPass(results, &res.Excluded)

		changedAny := false
		for _, fam := range l.families {
			if fam.Buffer || fam.Stable {
				continue
			}
			changed, q, err := l.refineFamily(fam, results)
			if err != nil {
				return nil, err
			}
			if changed {
				changedAny = true
				res.Changes[fam.Name]++
			}
			if q {
				quit = true
				break
			}
		}

		if changedAny {
			if err := l.persist(); err != nil {
				return nil, err
			}
		}

		log.WithFields(log.Fields{
			"iteration": iter,
			"instances": results.Len(),
			"excluded":  res.Excluded.Total(),
			"changed":   changedAny,
		}).Info("refinement iteration complete")

		if l.opts.Mode == SinglePass || quit {
			res.Converged = !changedAny
			break
		}
		if !changedAny || l.allStable() {
			res.Converged = true
			break
		}
		if iter >= l.opts.MaxIterations {
			log.Warnf("consensus still changing after %d iterations; keeping the last computed consensus", iter)
			break
		}
	}

	os.Remove(l.workFile())
	return res, nil
}

func (l *Loop) allStable() bool {
	for _, f := range l.families {
		if !f.Buffer && !f.Stable {
			return false
		}
	}
	return true
}

// prunePass trims low-coverage consensus edges. Coverage counts each
// query's aligned span once (spans are unioned per query). Returns whether
// any family shrank; the caller re-searches once if so, since all
// coordinates moved.
func (l *Loop) prunePass(results *align.Collection) bool {
	pruned := false
	for _, fam := range l.families {
		if fam.Buffer || fam.Stable {
			continue
		}
		flat := fam.Seq.Flat()
		depth := results.Coverage(fam.Name, len(flat))
		trimL, trimR := pruneBounds(depth, l.opts.PruneCutoff, len(flat))
		if trimL == 0 && trimR == 0 {
			continue
		}
		log.WithFields(log.Fields{
			"family": fam.Name, "left": trimL, "right": trimR,
		}).Info("pruning low-coverage consensus edges")
		trimmed := fasta.ParsePadded(flat[trimL : len(flat)-trimR])
		trimmed.LeftFinal = fam.Seq.LeftFinal
		trimmed.RightFinal = fam.Seq.RightFinal
		if l.opts.Pad > 0 {
			trimmed = trimmed.WithPad(l.opts.Pad)
		}
		fam.Seq = trimmed
		pruned = true
	}
	return pruned
}

// pruneBounds removes one base at a time from whichever end has coverage at
// or below the cutoff, refusing any trim that would leave fewer than 25
// bases.
func pruneBounds(depth []int, cutoff, length int) (trimL, trimR int) {
	lo, hi := 0, length-1
	for lo <= hi && hi-lo+1 > 25 && depth[lo] <= cutoff {
		lo++
		trimL++
	}
	for hi >= lo && hi-lo+1 > 25 && depth[hi] <= cutoff {
		hi--
		trimR++
	}
	return trimL, trimR
}

func (l *Loop) filterPass(results *align.Collection, counts *align.ExclusionCounts) {
	if l.opts.Dedupe {
		counts.Duplicates += results.Dedupe()
	}
	if l.opts.MaxDiv > 0 {
		results.FilterDivergence(l.opts.MaxDiv, counts)
	}
	if l.opts.MinLength > 0 {
		results.FilterMinLength(l.opts.MinLength, counts)
	}
	if l.opts.FilterOverlapping {
		results.FilterOverlapping(counts)
	}
}

// refineFamily votes a fresh consensus for one family from the frozen
// search snapshot and reconciles it with the pad semantics. Returns whether
// the family changed and whether the decider asked to end the run.
func (l *Loop) refineFamily(fam *Family, results *align.Collection) (bool, bool, error) {
	insts := results.ForSubject(fam.Name)
	if len(insts) == 0 {
		// nothing aligned: nothing left to learn from the pool
		fam.Stable = true
		return false, false, nil
	}

	flat := fam.Seq.Flat()
	msa, err := align.NewMSA(fam.Name, flat, insts)
	if err != nil {
		return false, false, err
	}

	l.watch.Start("consensus")
	voted := msa.Consensus(l.opts.Matrix, l.opts.WithRef)
	l.watch.Stop("consensus")

	next := fam.Seq.Absorb(voted)
	if next.Core == fam.Seq.Core {
		fam.Stable = true
		return false, false, nil
	}

	// locate the previous core inside the new one: Absorb prepends any
	// bases recruited from the left pad, shrinking LeftPad by the same
	// amount
	coreStart := 0
	if !fam.Seq.LeftFinal {
		coreStart = fam.Seq.LeftPad - next.LeftPad
	}
	dec := l.decider.Decide(Proposal{
		Family:    fam.Name,
		Old:       fam.Seq.Core,
		New:       next.Core,
		CoreStart: coreStart,
		CoreEnd:   coreStart + len(fam.Seq.Core) - 1,
	})
	if !dec.Accept {
		return false, dec.Quit, nil
	}
	if dec.Partial != nil {
		lo, hi := dec.Partial[0], dec.Partial[1]
		if lo < 0 || hi >= len(next.Core) || lo > hi {
			log.Warnf("family %s: range %d-%d not found in the new consensus; skipping", fam.Name, lo+1, hi+1)
			return false, dec.Quit, nil
		}
		next.Core = next.Core[lo : hi+1]
	}
	if l.opts.Pad > 0 {
		next = next.WithPad(l.opts.Pad)
	}
	fam.Seq = next
	fam.Iterations++
	return true, dec.Quit, nil
}

// persist archives the previous consensus file under the next numbered
// backup and writes the new combined consensi.
func (l *Loop) persist() error {
	if bak, err := fasta.Backup(l.consensusPath); err != nil {
		return err
	} else if bak != "" {
		log.WithField("backup", bak).Debug("archived previous consensus")
	}
	recs := make([]*fasta.Record, 0, len(l.families))
	for _, f := range l.families {
		recs = append(recs, &fasta.Record{ID: f.Name, Class: f.Class, Desc: f.Desc, Seq: f.Seq.Flat()})
	}
	return fasta.WriteFile(l.consensusPath, recs)
}
