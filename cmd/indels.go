package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Dfam-consortium/RepeatModeler-sub000/config"
	"github.com/Dfam-consortium/RepeatModeler-sub000/internal/align"
	"github.com/Dfam-consortium/RepeatModeler-sub000/internal/fasta"
	"github.com/Dfam-consortium/RepeatModeler-sub000/internal/matrix"
	"github.com/Dfam-consortium/RepeatModeler-sub000/internal/refine"
)

var indelsCmd = &cobra.Command{
	Use:   "indels",
	Short: "Detect and correct rare indel artifacts in an existing alignment",
	Long: `Resolve spurious insertions and deletions in a transitively built
multiple alignment.

The alignment file (cross_match format with alignments) is read along with
the consensus it is anchored to. Candidate ranges come either from sliding
windows (--windows or --window-range) or from low-scoring subalignment
detection (--rt-threshold), are merged by the chosen aggregation method, and
the accepted replacements are applied to the consensus, which is written to
--out.

Example usage:
	refiner indels -a family.cm -c family.fa --windows 7,10,14 --method tiling --out family.refined.fa`,
	Run: func(cmd *cobra.Command, args []string) {
		alignPath, err := cmd.Flags().GetString("alignments")
		if err != nil || alignPath == "" {
			log.Fatal("failed without an alignment file argument (-a)")
		}
		consPath, err := cmd.Flags().GetString("consensus")
		if err != nil || consPath == "" {
			log.Fatal("failed without a consensus FASTA argument (-c)")
		}
		outPath, _ := cmd.Flags().GetString("out")
		if outPath == "" {
			outPath = consPath + ".refined"
		}
		matrixPath, _ := cmd.Flags().GetString("matrix")
		if err := execIndels(alignPath, consPath, outPath, matrixPath); err != nil {
			log.Fatalf("indel resolution failed: %v", err)
		}
	},
}

func execIndels(alignPath, consPath, outPath, matrixPath string) error {
	conf, err := config.New()
	if err != nil {
		return err
	}

	spec, err := windowSpec(conf.Indel)
	if err != nil {
		return err
	}

	if matrixPath == "" {
		matrixPath = conf.Search.Matrix
	}
	mat := matrix.Default()
	if matrixPath != "" {
		if mat, err = matrix.Load(matrixPath); err != nil {
			return err
		}
	}

	recs, err := fasta.ReadFile(consPath)
	if err != nil {
		return err
	}
	if len(recs) != 1 {
		return fmt.Errorf("%s: expected one consensus record, found %d", consPath, len(recs))
	}
	cons := recs[0]

	f, err := os.Open(alignPath)
	if err != nil {
		return fmt.Errorf("failed to open alignment file: %w", err)
	}
	hits, err := align.ParseHits(f)
	f.Close()
	if err != nil {
		return err
	}

	msa, err := align.NewMSA(cons.ID, cons.Seq, hits.ForSubject(cons.ID))
	if err != nil {
		return err
	}

	rep, err := refine.ResolveIndels(msa, refine.IndelOptions{
		Window: spec,
		Block: refine.BlockOptions{
			CopyMin: conf.Indel.CopyMin,
			Ratio:   conf.Indel.Ratio,
			Matrix:  mat,
		},
		Method:         refine.AggregationMethod(conf.Indel.Method),
		MinGap:         conf.Indel.MinGap,
		GapAllowedDist: conf.Indel.GapDist,
	})
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"candidates": len(rep.Candidates),
		"accepted":   len(rep.Accepted),
		"rejected":   len(rep.Rejected),
	}).Info("indel resolution complete")
	for _, e := range rep.Edits {
		log.Infof("  edit %s", e)
	}
	for _, r := range rep.Rejected {
		log.Debugf("  rejected %d-%d (blocked by %d-%d)",
			r.Candidate.Start, r.Candidate.End, r.BlockedBy.Start, r.BlockedBy.End)
	}

	out := &fasta.Record{ID: cons.ID, Class: cons.Class, Desc: cons.Desc, Seq: rep.Consensus}
	return fasta.WriteFile(outPath, []*fasta.Record{out})
}

// windowSpec resolves the mutually exclusive window-selection flags.
func windowSpec(c config.IndelConfig) (refine.WindowSpec, error) {
	spec := refine.WindowSpec{RTThreshold: c.RTThreshold, GapScore: c.GapScore}
	set := 0
	if c.Windows != "" {
		set++
		for _, s := range strings.Split(c.Windows, ",") {
			w, err := strconv.Atoi(strings.TrimSpace(s))
			if err != nil || w < 1 {
				return spec, fmt.Errorf("bad window size %q", s)
			}
			spec.Sizes = append(spec.Sizes, w)
		}
	}
	if c.WindowRange != "" {
		set++
		r := strings.Trim(c.WindowRange, "[] ")
		parts := strings.SplitN(r, ",", 2)
		if len(parts) != 2 {
			return spec, fmt.Errorf("bad window range %q, want [min,max]", c.WindowRange)
		}
		min, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
		max, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err1 != nil || err2 != nil || min < 1 || max < min {
			return spec, fmt.Errorf("bad window range %q", c.WindowRange)
		}
		spec.MinSize, spec.MaxSize = min, max
	}
	if c.RTThreshold != 0 {
		set++
	}
	if set == 0 {
		spec.Sizes = []int{7, 10, 14}
	}
	if set > 1 {
		return spec, fmt.Errorf("--windows, --window-range and --rt-threshold are mutually exclusive")
	}
	return spec, nil
}

func init() {
	rootCmd.AddCommand(indelsCmd)

	indelsCmd.Flags().StringP("alignments", "a", "", "alignment file (cross_match format with alignments)")
	indelsCmd.Flags().StringP("consensus", "c", "", "consensus FASTA the alignment is anchored to")
	indelsCmd.Flags().String("out", "", "where to write the corrected consensus")

	indelsCmd.Flags().String("windows", "", "comma-separated window sizes, e.g. 7,10,14")
	indelsCmd.Flags().String("window-range", "", "contiguous window size range, e.g. [7,14]")
	indelsCmd.Flags().Int("rt-threshold", 0, "low-scoring subalignment score threshold (enables profile scan)")
	indelsCmd.Flags().String("method", "tiling", "aggregation method: tiling or clustering")
	indelsCmd.Flags().Int("mingap", 5, "minimum columns between tiled ranges")
	indelsCmd.Flags().Int("gapdist", 5, "maximum distance for clustering merges")
	indelsCmd.Flags().Int("copymin", 3, "minimum instances agreeing on the majority length")
	indelsCmd.Flags().Float64("ratio", 2.0, "required majority/reference length support ratio")
	indelsCmd.Flags().String("matrix", "", "substitution matrix file")

	bind("indel.windows", indelsCmd, "windows")
	bind("indel.window-range", indelsCmd, "window-range")
	bind("indel.rt-threshold", indelsCmd, "rt-threshold")
	bind("indel.method", indelsCmd, "method")
	bind("indel.mingap", indelsCmd, "mingap")
	bind("indel.gapdist", indelsCmd, "gapdist")
	bind("indel.copymin", indelsCmd, "copymin")
	bind("indel.ratio", indelsCmd, "ratio")
}
