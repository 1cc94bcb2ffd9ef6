package cmd

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Dfam-consortium/RepeatModeler-sub000/config"
	"github.com/Dfam-consortium/RepeatModeler-sub000/internal/matrix"
	"github.com/Dfam-consortium/RepeatModeler-sub000/internal/refine"
	"github.com/Dfam-consortium/RepeatModeler-sub000/internal/search"
)

var refineCmd = &cobra.Command{
	Use:   "refine",
	Short: "Iterate alignment and consensus calling until the consensi stop changing",
	Long: `Refine one or more family consensi against a pool of genomic instances.

Each iteration searches the instance pool against the current consensi with
the configured engine, filters the alignments, re-votes every family's
consensus column by column, and compares it with the previous one. The loop
ends when no family changes, or after --maxiter iterations (a warning is
printed if the consensi are still moving). The consensus file is archived
under a numbered backup before every overwrite.

Families whose class contains "buffer" are decoys: they compete for
instances but are never modified.`,
	Run: func(cmd *cobra.Command, args []string) {
		consensusPath, err := cmd.Flags().GetString("consensus")
		if err != nil || consensusPath == "" {
			log.Fatal("failed without a consensus FASTA (-c)")
		}
		instancesPath, err := cmd.Flags().GetString("instances")
		if err != nil || instancesPath == "" {
			log.Fatal("failed without an instances FASTA (-i)")
		}
		onePass, _ := cmd.Flags().GetBool("onepass")

		if _, err := execRefine(consensusPath, instancesPath, onePass); err != nil {
			log.Fatalf("refinement failed: %v", err)
		}
	},
}

// execRefine wires the configuration into a stabilization loop and runs it.
// It returns the result for e2e tests.
func execRefine(consensusPath, instancesPath string, onePass bool) (*refine.Result, error) {
	conf, err := config.New()
	if err != nil {
		return nil, err
	}

	engine := search.New(conf.Search.Engine, conf.Search.Binary)
	applySearchConfig(engine, conf.Search)
	engine.SetGenerateAlignments(true)

	mat := matrix.Default()
	if conf.Search.Matrix != "" {
		if mat, err = matrix.Load(conf.Search.Matrix); err != nil {
			return nil, err
		}
		if conf.Search.Engine == "rmblast" {
			// rmblast reports matrices in the transposed convention
			mat = mat.Transpose()
		}
	}

	mode := refine.Refine
	var decider refine.Decider = refine.BatchDecider{}
	if conf.Refine.Interactive {
		mode = refine.Interactive
		decider = &refine.PromptDecider{In: os.Stdin, Out: os.Stdout}
	}
	if onePass {
		mode = refine.SinglePass
	}

	loop, err := refine.NewLoop(engine, consensusPath, instancesPath, decider, refine.LoopOptions{
		Mode:              mode,
		MaxIterations:     conf.Refine.MaxIterations,
		MaxDiv:            conf.Refine.MaxDiv,
		MinLength:         conf.Refine.MinLength,
		FilterOverlapping: conf.Refine.FilterOverlapping,
		Dedupe:            conf.Refine.Dedupe,
		PruneCutoff:       conf.Refine.PruneCutoff,
		Pad:               conf.Refine.Pad,
		WithRef:           conf.Refine.WithRef,
		FinalLeft:         conf.Refine.FinalLeft,
		FinalRight:        conf.Refine.FinalRight,
		Matrix:            mat,
	})
	if err != nil {
		return nil, err
	}

	res, err := loop.Run()
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"iterations": res.Iterations,
		"converged":  res.Converged,
	}).Info("refinement finished")
	log.WithFields(log.Fields{
		"overdiverged": res.Excluded.OverDiverged,
		"overlapping":  res.Excluded.OverlapLosers,
		"too-short":    res.Excluded.TooShort,
		"duplicates":   res.Excluded.Duplicates,
	}).Infof("excluded %d alignment(s)", res.Excluded.Total())
	for fam, n := range res.Changes {
		log.Infof("  %s: %d accepted change(s)", fam, n)
	}
	fmt.Print(loop.Watch().Report())
	return res, nil
}

func applySearchConfig(e search.Engine, c config.SearchConfig) {
	e.SetMatrix(c.Matrix)
	e.SetMinScore(c.MinScore)
	e.SetMinMatch(c.MinMatch)
	e.SetBandwidth(c.Bandwidth)
	e.SetMaskLevel(c.MaskLevel)
	e.SetGapInit(c.GapInit)
	e.SetInsGapExt(c.InsGapExt)
	e.SetDelGapExt(c.DelGapExt)
	e.SetCores(c.Cores)
	e.SetScoreMode(search.ComplexityAdjusted)
}

func init() {
	rootCmd.AddCommand(refineCmd)

	refineCmd.Flags().StringP("consensus", "c", "", "path to the consensus FASTA (system of record, backed up per change)")
	refineCmd.Flags().StringP("instances", "i", "", "path to the genomic instance pool FASTA")
	refineCmd.Flags().Bool("onepass", false, "run a single iteration regardless of changes")

	refineCmd.Flags().String("engine", "crossmatch", "search engine: crossmatch or rmblast")
	refineCmd.Flags().String("matrix", "", "substitution matrix file")
	refineCmd.Flags().Int("minscore", 200, "minimum alignment score")
	refineCmd.Flags().Int("minmatch", 7, "minimum match word length")
	refineCmd.Flags().Int("bandwidth", 40, "alignment bandwidth")
	refineCmd.Flags().Int("masklevel", 80, "engine mask level")
	refineCmd.Flags().Int("gapinit", -25, "gap open score")
	refineCmd.Flags().Int("insgapext", -5, "insertion gap extension score")
	refineCmd.Flags().Int("delgapext", -5, "deletion gap extension score")
	refineCmd.Flags().Int("cores", 1, "worker threads passed through to the engine")
	refineCmd.Flags().Float64("maxdiv", 60, "maximum percent divergence of a usable alignment")
	refineCmd.Flags().Int("minlength", 0, "minimum subject span of a usable alignment")
	refineCmd.Flags().Int("maxiter", 5, "refinement iteration cap")
	refineCmd.Flags().Int("prune", 0, "trim consensus edges with coverage at or below this")
	refineCmd.Flags().Int("pad", 0, "extension-marker bases kept on each open consensus end")
	refineCmd.Flags().Bool("final-left", false, "treat the left consensus end as finished (markers anchor only)")
	refineCmd.Flags().Bool("final-right", false, "treat the right consensus end as finished (markers anchor only)")
	refineCmd.Flags().Bool("interactive", false, "prompt before accepting each proposed change")
	refineCmd.Flags().Bool("filter-overlapping", false, "drop lower-scoring overlapping alignments of the same query")
	refineCmd.Flags().Bool("dedupe", false, "drop coordinate-identical duplicate alignments")
	refineCmd.Flags().Bool("with-ref", false, "include the current consensus base in each column vote")

	bind("search.engine", refineCmd, "engine")
	bind("search.matrix", refineCmd, "matrix")
	bind("search.minscore", refineCmd, "minscore")
	bind("search.minmatch", refineCmd, "minmatch")
	bind("search.bandwidth", refineCmd, "bandwidth")
	bind("search.masklevel", refineCmd, "masklevel")
	bind("search.gapinit", refineCmd, "gapinit")
	bind("search.insgapext", refineCmd, "insgapext")
	bind("search.delgapext", refineCmd, "delgapext")
	bind("search.cores", refineCmd, "cores")
	bind("refine.maxdiv", refineCmd, "maxdiv")
	bind("refine.minlength", refineCmd, "minlength")
	bind("refine.maxiter", refineCmd, "maxiter")
	bind("refine.prune", refineCmd, "prune")
	bind("refine.pad", refineCmd, "pad")
	bind("refine.final-left", refineCmd, "final-left")
	bind("refine.final-right", refineCmd, "final-right")
	bind("refine.interactive", refineCmd, "interactive")
	bind("refine.filter-overlapping", refineCmd, "filter-overlapping")
	bind("refine.dedupe", refineCmd, "dedupe")
	bind("refine.with-ref", refineCmd, "with-ref")
}
