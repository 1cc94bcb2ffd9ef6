package cmd

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Dfam-consortium/RepeatModeler-sub000/config"
	"github.com/Dfam-consortium/RepeatModeler-sub000/internal/align"
	"github.com/Dfam-consortium/RepeatModeler-sub000/internal/fasta"
	"github.com/Dfam-consortium/RepeatModeler-sub000/internal/matrix"
)

var consensusCmd = &cobra.Command{
	Use:   "consensus",
	Short: "Call a column-vote consensus from an existing alignment",
	Long: `Derive a single consensus sequence from a cross_match alignment file
anchored to the given reference, by per-column matrix-weighted majority
vote. The output has exactly the reference's ungapped length; indel
correction is the indels command's job.`,
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
		matrixPath, _ := cmd.Flags().GetString("matrix")
		withRef, _ := cmd.Flags().GetBool("with-ref")
		if err := execConsensus(alignPath, consPath, outPath, matrixPath, withRef); err != nil {
			log.Fatalf("consensus calling failed: %v", err)
		}
	},
}

func execConsensus(alignPath, consPath, outPath, matrixPath string, withRef bool) error {
	conf, err := config.New()
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
	voted := msa.Consensus(mat, withRef)

	out := &fasta.Record{ID: cons.ID, Class: cons.Class, Desc: cons.Desc, Seq: voted}
	if outPath == "" {
		return fasta.Write(os.Stdout, []*fasta.Record{out})
	}
	return fasta.WriteFile(outPath, []*fasta.Record{out})
}

func init() {
	rootCmd.AddCommand(consensusCmd)

	consensusCmd.Flags().StringP("alignments", "a", "", "alignment file (cross_match format with alignments)")
	consensusCmd.Flags().StringP("consensus", "c", "", "reference/consensus FASTA the alignment is anchored to")
	consensusCmd.Flags().String("out", "", "output FASTA path (stdout if empty)")
	consensusCmd.Flags().Bool("with-ref", false, "include the reference base in each column vote")
	consensusCmd.Flags().String("matrix", "", "substitution matrix file")
}
