package search

import (
	"bytes"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/Dfam-consortium/RepeatModeler-sub000/internal/align"
)

// RMBlast drives rmblastn with a tabular output format mapped onto the
// same hit model cross_match produces. rmblast reports substitution
// matrices in the transposed row/column convention, so matrices prepared
// for cross_match must be transposed before being handed to this engine.
type RMBlast struct {
	Params
	binary string
}

// NewRMBlast returns an rmblast engine ("rmblastn" from PATH when empty).
func NewRMBlast(binary string) *RMBlast {
	if binary == "" {
		binary = "rmblastn"
	}
	return &RMBlast{binary: binary}
}

func (r *RMBlast) args() []string {
	args := []string{
		"-query", r.Query,
		"-subject", r.Subject,
		"-outfmt", "6 score ppos qseqid qstart qend qlen sstrand sseqid sstart send slen qseq sseq",
		"-min_raw_gapped_score", strconv.Itoa(r.MinScore),
		"-word_size", strconv.Itoa(r.MinMatch),
		"-xdrop_gap_final", strconv.Itoa(r.Bandwidth),
		"-gapopen", strconv.Itoa(-r.GapInit),
		"-gapextend", strconv.Itoa(-r.InsGapExt),
		"-num_threads", strconv.Itoa(maxInt(r.Cores, 1)),
	}
	if r.Matrix != "" {
		args = append(args, "-matrix", r.Matrix)
	}
	if r.Mode == ComplexityAdjusted {
		args = append(args, "-complexity_adjust")
	}
	return args
}

// Search runs rmblastn and converts its tabular rows into instances.
func (r *RMBlast) Search() (int, *align.Collection, error) {
	cmd := exec.Command(r.binary, r.args()...)
	cmdline := strings.Join(cmd.Args, " ")
	log.WithField("cmd", cmdline).Debug("running search engine")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		status := 1
		if ee, ok := err.(*exec.ExitError); ok {
			status = ee.ExitCode()
		}
		return status, nil, fmt.Errorf("search engine failed (exit %d): %s: %v: %s",
			status, cmdline, err, stderr.String())
	}

	results, err := r.parse(stdout.String())
	if err != nil {
		return 0, nil, fmt.Errorf("failed to parse output of %s: %w", cmdline, err)
	}
	return 0, results, nil
}

func (r *RMBlast) parse(out string) (*align.Collection, error) {
	c := &align.Collection{}
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		f := strings.Fields(line)
		if len(f) < 13 {
			continue
		}
		score, err := strconv.Atoi(f[0])
		if err != nil {
			continue
		}
		ppos, _ := strconv.ParseFloat(f[1], 64)
		qstart, _ := strconv.Atoi(f[3])
		qend, _ := strconv.Atoi(f[4])
		qlen, _ := strconv.Atoi(f[5])
		sstart, _ := strconv.Atoi(f[8])
		send, _ := strconv.Atoi(f[9])
		slen, _ := strconv.Atoi(f[10])
		qseq, sseq := strings.ToUpper(f[11]), strings.ToUpper(f[12])

		reverse := f[6] == "minus"
		if sstart > send {
			sstart, send = send, sstart
		}
		if reverse {
			// blast reports minus-strand subjects reverse-complemented;
			// the instance model keeps both strings subject-forward
			qseq = revComp(qseq)
			sseq = revComp(sseq)
		}

		in := &align.Instance{
			ID:      f[2],
			Reverse: reverse,
			Score:   score,
			PctDiv:  100 - ppos,
			QStart:  qstart,
			QEnd:    qend,
			QRemain: qlen - qend,
			SName:   f[7],
			SStart:  sstart,
			SEnd:    send,
			SRemain: slen - send,
			QAln:    qseq,
			SAln:    sseq,
		}
		if err := in.Validate(); err != nil {
			return nil, err
		}
		c.Add(in)
	}
	return c, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// revComp reverse-complements a gapped alignment string. Ambiguity codes
// beyond N are collapsed to N, matching the vote alphabet.
func revComp(s string) string {
	out := make([]byte, len(s))
	for i := range out {
		switch s[len(s)-1-i] {
		case 'A':
			out[i] = 'T'
		case 'C':
			out[i] = 'G'
		case 'G':
			out[i] = 'C'
		case 'T':
			out[i] = 'A'
		case '-':
			out[i] = '-'
		default:
			out[i] = 'N'
		}
	}
	return string(out)
}
