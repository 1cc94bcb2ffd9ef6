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

// CrossMatch drives the cross_match binary. Output is captured from stdout
// in full before parsing; cross_match pads its report with headers and a
// score histogram that the hit parser skips over.
type CrossMatch struct {
	Params
	binary string
}

// NewCrossMatch returns a cross_match engine using the given binary path
// ("cross_match" resolved from PATH when empty).
func NewCrossMatch(binary string) *CrossMatch {
	if binary == "" {
		binary = "cross_match"
	}
	return &CrossMatch{binary: binary}
}

func (c *CrossMatch) args() []string {
	args := []string{
		c.Query,
		c.Subject,
		"-minscore", strconv.Itoa(c.MinScore),
		"-minmatch", strconv.Itoa(c.MinMatch),
		"-bandwidth", strconv.Itoa(c.Bandwidth),
		"-masklevel", strconv.Itoa(c.MaskLevel),
		"-gap_init", strconv.Itoa(c.GapInit),
		"-ins_gap_ext", strconv.Itoa(c.InsGapExt),
		"-del_gap_ext", strconv.Itoa(c.DelGapExt),
	}
	if c.Matrix != "" {
		args = append(args, "-matrix", c.Matrix)
	}
	if c.Alignments {
		args = append(args, "-alignments")
	}
	if c.Mode == RawScore {
		args = append(args, "-raw")
	}
	return args
}

// Search runs cross_match and parses its report. The engine's exact command
// line is logged and embedded in any failure, since these runs are long and
// the operator needs to reproduce failures by hand.
func (c *CrossMatch) Search() (int, *align.Collection, error) {
	cmd := exec.Command(c.binary, c.args()...)
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

	results, err := align.ParseHits(&stdout)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to parse output of %s: %w", cmdline, err)
	}
	log.WithFields(log.Fields{"hits": results.Len(), "subject": c.Subject}).Debug("search complete")
	return 0, results, nil
}
