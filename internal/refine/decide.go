package refine

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Proposal is one family's proposed consensus change, presented to a
// Decider before it is applied.
type Proposal struct {
	Family string
	Old    string
	New    string

	// CoreStart and CoreEnd locate the previous core inside New (0-based
	// inclusive); everything outside is newly recruited extension, so a
	// core-only accept keeps the old boundaries
	CoreStart int
	CoreEnd   int
}

// Decision is a Decider's verdict on a proposal.
type Decision struct {
	Accept bool

	// Partial restricts acceptance to a sub-range of the new consensus
	// (0-based inclusive); nil accepts the whole proposal
	Partial *[2]int

	// Quit ends the refinement run after this family
	Quit bool
}

// Decider is the accept/reject strategy for proposed edits. The batch
// implementation accepts everything; the prompt implementation asks the
// operator. Separating this from the loop keeps terminal I/O out of the
// refinement algorithm.
type Decider interface {
	Decide(p Proposal) Decision
}

// BatchDecider accepts every proposal unconditionally.
type BatchDecider struct{}

func (BatchDecider) Decide(Proposal) Decision {
	return Decision{Accept: true}
}

// PromptDecider asks for a line of operator input per proposal:
//
//	y          accept
//	n          skip
//	c          accept the core region only
//	l / r      accept the left / right half only
//	start-end  accept an explicit 1-based range
//	q          skip and end the run
//
// A range that doesn't fall inside the new consensus is reported and the
// proposal skipped; the run continues.
type PromptDecider struct {
	In  io.Reader
	Out io.Writer

	reader *bufio.Reader
}

func (d *PromptDecider) Decide(p Proposal) Decision {
	if d.reader == nil {
		d.reader = bufio.NewReader(d.In)
	}
	fmt.Fprintf(d.Out, "family %s: consensus changed (%d -> %d bp)\n", p.Family, len(p.Old), len(p.New))
	fmt.Fprintf(d.Out, "  old: %s\n  new: %s\n", p.Old, p.New)
	fmt.Fprintf(d.Out, "accept? [y/n/c/l/r/start-end/q] ")

	line, err := d.reader.ReadString('\n')
	if err != nil {
		return Decision{Quit: true}
	}
	ans := strings.TrimSpace(strings.ToLower(line))
	switch ans {
	case "y", "":
		return Decision{Accept: true}
	case "n":
		return Decision{}
	case "q":
		return Decision{Quit: true}
	case "c":
		r := [2]int{p.CoreStart, p.CoreEnd}
		return Decision{Accept: true, Partial: &r}
	case "l":
		r := [2]int{0, len(p.New)/2 - 1}
		return Decision{Accept: true, Partial: &r}
	case "r":
		r := [2]int{len(p.New) / 2, len(p.New) - 1}
		return Decision{Accept: true, Partial: &r}
	}

	lo, hi, ok := parseRange(ans)
	if !ok || lo < 1 || hi > len(p.New) || lo > hi {
		fmt.Fprintf(d.Out, "range %q not found in the new consensus; skipping\n", ans)
		return Decision{}
	}
	r := [2]int{lo - 1, hi - 1}
	return Decision{Accept: true, Partial: &r}
}

func parseRange(s string) (lo, hi int, ok bool) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	lo, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	hi, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return lo, hi, true
}
