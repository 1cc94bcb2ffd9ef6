package refine

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dfam-consortium/RepeatModeler-sub000/internal/align"
	"github.com/Dfam-consortium/RepeatModeler-sub000/internal/fasta"
	"github.com/Dfam-consortium/RepeatModeler-sub000/internal/search"
)

// fakeEngine satisfies search.Engine with canned results, rebuilt per call
// because the loop's filters mutate the returned collection.
type fakeEngine struct {
	search.Params
	results func() *align.Collection
}

func (f *fakeEngine) Search() (int, *align.Collection, error) {
	return 0, f.results(), nil
}

func matchInstance(id, subject, qaln, saln string) *align.Instance {
	return &align.Instance{
		ID: id, Score: 200, PctDiv: 5,
		QStart: 1, QEnd: len(qaln) - strings.Count(qaln, "-"),
		SName: subject, SStart: 1, SEnd: len(saln) - strings.Count(saln, "-"),
		QAln: qaln, SAln: saln,
	}
}

func writeConsensi(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "consensi.fa")
	recs := []*fasta.Record{
		{ID: "fam1", Seq: "ACGTACGT"},
		{ID: "fam2", Seq: "TTTTCCCC"},
		{ID: "decoy", Class: "SINE-Buffer", Seq: "GGGGGGGG"},
	}
	require.NoError(t, fasta.WriteFile(path, recs))
	return path
}

// A consensus that already equals the per-column majority vote must come
// back unchanged, with every non-buffer family stable after one iteration.
func TestLoopFixedPoint(t *testing.T) {
	dir := t.TempDir()
	consPath := writeConsensi(t, dir)

	engine := &fakeEngine{results: func() *align.Collection {
		c := &align.Collection{}
		for _, id := range []string{"a", "b", "c"} {
			c.Add(matchInstance(id, "fam1", "ACGTACGT", "ACGTACGT"))
			c.Add(matchInstance(id+"2", "fam2", "TTTTCCCC", "TTTTCCCC"))
			c.Add(matchInstance(id+"3", "decoy", "GGGGGGGG", "GGGGGGGG"))
		}
		return c
	}}

	loop, err := NewLoop(engine, consPath, filepath.Join(dir, "instances.fa"), BatchDecider{}, LoopOptions{
		Mode:          Refine,
		MaxIterations: 5,
		MaxDiv:        60,
	})
	require.NoError(t, err)

	res, err := loop.Run()
	require.NoError(t, err)

	assert.Equal(t, 1, res.Iterations, "fixed point must converge in one iteration")
	assert.True(t, res.Converged)
	assert.Empty(t, res.Changes)
	for _, fam := range loop.Families() {
		if !fam.Buffer {
			assert.True(t, fam.Stable, "family %s should be stable", fam.Name)
		}
	}
	// nothing changed, so no backup was taken
	_, err = os.Stat(consPath + ".1")
	assert.True(t, os.IsNotExist(err))
}

// A disagreeing instance pool changes the consensus, archives a numbered
// backup, and leaves the buffer family byte-identical in the output file.
func TestLoopAcceptsChangeAndPreservesBuffer(t *testing.T) {
	dir := t.TempDir()
	consPath := writeConsensi(t, dir)

	engine := &fakeEngine{results: func() *align.Collection {
		c := &align.Collection{}
		for _, id := range []string{"a", "b", "c"} {
			// all three instances carry T->A at position 4 of fam1
			c.Add(matchInstance(id, "fam1", "ACGAACGT", "ACGTACGT"))
			c.Add(matchInstance(id+"2", "fam2", "TTTTCCCC", "TTTTCCCC"))
			c.Add(matchInstance(id+"3", "decoy", "GGGGCGGG", "GGGGGGGG"))
		}
		return c
	}}

	loop, err := NewLoop(engine, consPath, filepath.Join(dir, "instances.fa"), BatchDecider{}, LoopOptions{
		Mode:          Refine,
		MaxIterations: 5,
		MaxDiv:        60,
	})
	require.NoError(t, err)

	res, err := loop.Run()
	require.NoError(t, err)

	assert.True(t, res.Converged)
	assert.Equal(t, 2, res.Iterations, "change then fixed point")
	assert.Equal(t, 1, res.Changes["fam1"])

	recs, err := fasta.ReadFile(consPath)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "ACGAACGT", recs[0].Seq)
	assert.Equal(t, "TTTTCCCC", recs[1].Seq)
	assert.Equal(t, "GGGGGGGG", recs[2].Seq, "buffer family must round-trip byte-identical")

	// the pre-change consensus was archived
	bak, err := os.ReadFile(consPath + ".1")
	require.NoError(t, err)
	assert.Contains(t, string(bak), "ACGTACGT")
}

// A "c" (core-only) reply must strip the extension bases recruited from the
// pads and keep the previous core boundaries.
func TestLoopCoreOnlyAcceptStripsExtensions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "consensi.fa")
	require.NoError(t, fasta.WriteFile(path, []*fasta.Record{{ID: "fam1", Seq: "ACGTACGT"}}))

	engine := &fakeEngine{results: func() *align.Collection {
		c := &align.Collection{}
		for _, id := range []string{"a", "b", "c"} {
			// extension bases over both open pads
			c.Add(matchInstance(id, "fam1", "GGACGTACGTCC", "HHACGTACGTHH"))
		}
		return c
	}}

	var prompts bytes.Buffer
	dec := &PromptDecider{In: strings.NewReader("c\n"), Out: &prompts}
	loop, err := NewLoop(engine, path, filepath.Join(dir, "instances.fa"), dec, LoopOptions{
		Mode: SinglePass,
		Pad:  2,
	})
	require.NoError(t, err)

	_, err = loop.Run()
	require.NoError(t, err)

	fam := loop.Families()[0]
	assert.Equal(t, "ACGTACGT", fam.Seq.Core, "core-only accept must drop recruited extensions")
	assert.Equal(t, 2, fam.Seq.LeftPad)
	assert.Equal(t, 2, fam.Seq.RightPad)
}

// A finalized side keeps its markers anchoring alignments, but votes under
// them never register as a consensus change.
func TestLoopFinalizedEndSuppressesMarkerVotes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "consensi.fa")
	require.NoError(t, fasta.WriteFile(path, []*fasta.Record{{ID: "fam1", Seq: "ACGTACGTHH"}}))

	engine := &fakeEngine{results: func() *align.Collection {
		c := &align.Collection{}
		for _, id := range []string{"a", "b", "c"} {
			c.Add(matchInstance(id, "fam1", "ACGTACGTCC", "ACGTACGTHH"))
		}
		return c
	}}

	loop, err := NewLoop(engine, path, filepath.Join(dir, "instances.fa"), BatchDecider{}, LoopOptions{
		Mode:          Refine,
		MaxIterations: 5,
		FinalRight:    true,
	})
	require.NoError(t, err)

	res, err := loop.Run()
	require.NoError(t, err)

	assert.True(t, res.Converged)
	assert.Equal(t, 1, res.Iterations, "marker-only votes must not register as a change")
	assert.Equal(t, "ACGTACGT", loop.Families()[0].Seq.Core)
	_, err = os.Stat(path + ".1")
	assert.True(t, os.IsNotExist(err))
}

func TestLoopSinglePass(t *testing.T) {
	dir := t.TempDir()
	consPath := writeConsensi(t, dir)

	calls := 0
	engine := &fakeEngine{results: func() *align.Collection {
		calls++
		c := &align.Collection{}
		c.Add(matchInstance("a", "fam1", "ACGAACGT", "ACGTACGT"))
		c.Add(matchInstance("b", "fam1", "ACGAACGT", "ACGTACGT"))
		return c
	}}

	loop, err := NewLoop(engine, consPath, filepath.Join(dir, "instances.fa"), BatchDecider{}, LoopOptions{
		Mode: SinglePass,
	})
	require.NoError(t, err)

	res, err := loop.Run()
	require.NoError(t, err)
	assert.Equal(t, 1, res.Iterations)
	assert.Equal(t, 1, calls, "single pass must search exactly once")
}

// Coverage [2,3,4] then 6 with cutoff 5: exactly the first three positions
// go, because coverage first exceeds the cutoff at position 4.
func TestPruneBounds(t *testing.T) {
	depth := make([]int, 40)
	for i := range depth {
		depth[i] = 6
	}
	depth[0], depth[1], depth[2] = 2, 3, 4

	trimL, trimR := pruneBounds(depth, 5, len(depth))
	assert.Equal(t, 3, trimL)
	assert.Equal(t, 0, trimR)
}

func TestPruneBoundsRefusesBelow25(t *testing.T) {
	depth := make([]int, 26)
	for i := range depth {
		depth[i] = 1 // everything prunable
	}
	trimL, trimR := pruneBounds(depth, 5, len(depth))
	assert.Equal(t, 1, trimL+trimR, "trimming must stop at 25 bases")
}

func TestLoopEngineFailure(t *testing.T) {
	dir := t.TempDir()
	consPath := writeConsensi(t, dir)

	engine := search.NewCrossMatch(filepath.Join(dir, "no-such-cross_match"))
	loop, err := NewLoop(engine, consPath, filepath.Join(dir, "instances.fa"), BatchDecider{}, LoopOptions{Mode: SinglePass})
	require.NoError(t, err)

	_, err = loop.Run()
	assert.Error(t, err)
}
