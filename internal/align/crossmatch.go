package align

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// cross_match writes one hit per line:
//
//	score pctSub pctDel pctIns qName qStart qEnd (qRemain) sName sStart sEnd (sRemain)
//
// and for reverse-complement hits the subject fields flip around a "C"
// marker:
//
//	score pctSub pctDel pctIns qName qStart qEnd (qRemain) C sName (sRemain) sEnd sStart
//
// Parenthesized fields are the bases remaining beyond the alignment. With
// alignments enabled, each hit line is followed by paired gapped-sequence
// block lines (query then subject, chunked), which we fold back into the
// instance's QAln/SAln.

const blockWidth = 50

// ParseHits reads cross_match tabular output into a Collection. Lines that
// aren't hit lines or alignment block lines (headers, score histograms,
// blank lines) are skipped, matching how the engines pad their output.
func ParseHits(r io.Reader) (*Collection, error) {
	c := &Collection{}
	var cur *Instance
	var qParts, sParts []string
	nextIsQuery := true

	flush := func() {
		if cur == nil {
			return
		}
		cur.QAln = strings.Join(qParts, "")
		cur.SAln = strings.Join(sParts, "")
		qParts, sParts = nil, nil
		nextIsQuery = true
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 64*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		if in, ok := parseHitLine(fields); ok {
			flush()
			cur = in
			c.Add(in)
			continue
		}

		// alignment block line: name start seq end, with a leading "C"
		// on complemented lines
		if cur != nil && (len(fields) == 4 || (len(fields) == 5 && fields[0] == "C")) {
			f := fields[len(fields)-4:]
			if !isSeq(f[2]) {
				continue
			}
			if _, err := strconv.Atoi(f[1]); err != nil {
				continue
			}
			// route by name: complemented blocks reorder the lines, so
			// strict query/subject alternation can't be trusted
			switch {
			case f[0] == cur.ID && cur.ID != cur.SName:
				qParts = append(qParts, f[2])
			case f[0] == cur.SName && cur.ID != cur.SName:
				sParts = append(sParts, f[2])
			case f[0] == cur.ID:
				// self-alignment: names coincide, alternate
				if nextIsQuery {
					qParts = append(qParts, f[2])
				} else {
					sParts = append(sParts, f[2])
				}
				nextIsQuery = !nextIsQuery
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed reading alignment output: %w", err)
	}
	flush()

	for _, in := range c.Instances {
		if err := in.Validate(); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func parseHitLine(fields []string) (*Instance, bool) {
	if len(fields) < 12 || len(fields) > 14 {
		return nil, false
	}
	score, err := strconv.Atoi(fields[0])
	if err != nil {
		return nil, false
	}
	pctDiv, err1 := strconv.ParseFloat(fields[1], 64)
	pctDel, err2 := strconv.ParseFloat(fields[2], 64)
	pctIns, err3 := strconv.ParseFloat(fields[3], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return nil, false
	}

	in := &Instance{
		ID:     fields[4],
		Score:  score,
		PctDiv: pctDiv,
		PctDel: pctDel,
		PctIns: pctIns,
	}
	in.QStart, err = strconv.Atoi(fields[5])
	if err != nil {
		return nil, false
	}
	if in.QEnd, err = strconv.Atoi(fields[6]); err != nil {
		return nil, false
	}
	if in.QRemain, err = parseParen(fields[7]); err != nil {
		return nil, false
	}

	rest := fields[8:]
	if rest[0] == "C" {
		// C sName (sRemain) sEnd sStart
		if len(rest) < 5 {
			return nil, false
		}
		in.Reverse = true
		in.SName = rest[1]
		if in.SRemain, err = parseParen(rest[2]); err != nil {
			return nil, false
		}
		if in.SEnd, err = strconv.Atoi(rest[3]); err != nil {
			return nil, false
		}
		if in.SStart, err = strconv.Atoi(rest[4]); err != nil {
			return nil, false
		}
	} else {
		// sName sStart sEnd (sRemain)
		if len(rest) < 4 {
			return nil, false
		}
		in.SName = rest[0]
		if in.SStart, err = strconv.Atoi(rest[1]); err != nil {
			return nil, false
		}
		if in.SEnd, err = strconv.Atoi(rest[2]); err != nil {
			return nil, false
		}
		if in.SRemain, err = parseParen(rest[3]); err != nil {
			return nil, false
		}
	}
	return in, true
}

func parseParen(s string) (int, error) {
	return strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(s, "("), ")"))
}

func isSeq(s string) bool {
	for i := 0; i < len(s); i++ {
		switch b := s[i]; {
		case b == '-':
		case b >= 'A' && b <= 'Z':
		case b >= 'a' && b <= 'z':
		default:
			return false
		}
	}
	return true
}

// WriteHits serializes a collection back into the tabular format, including
// alignment blocks for instances that carry gapped strings. Column widths
// are cosmetic; the field order and parenthesization are what the parsers
// (ours and the engines') key on.
func WriteHits(w io.Writer, c *Collection) error {
	bw := bufio.NewWriter(w)
	for _, in := range c.Instances {
		var err error
		if in.Reverse {
			_, err = fmt.Fprintf(bw, "%6d %5.2f %5.2f %5.2f %-16s %7d %7d (%d) C %-16s (%d) %7d %7d\n",
				in.Score, in.PctDiv, in.PctDel, in.PctIns,
				in.ID, in.QStart, in.QEnd, in.QRemain,
				in.SName, in.SRemain, in.SEnd, in.SStart)
		} else {
			_, err = fmt.Fprintf(bw, "%6d %5.2f %5.2f %5.2f %-16s %7d %7d (%d) %-16s %7d %7d (%d)\n",
				in.Score, in.PctDiv, in.PctDel, in.PctIns,
				in.ID, in.QStart, in.QEnd, in.QRemain,
				in.SName, in.SStart, in.SEnd, in.SRemain)
		}
		if err != nil {
			return err
		}
		if in.QAln != "" {
			if err := writeBlocks(bw, in); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

func writeBlocks(w io.Writer, in *Instance) error {
	qPos, sPos := in.QStart, in.SStart
	if in.Reverse {
		qPos = in.QEnd // complemented query lines count down
	}
	for off := 0; off < len(in.QAln); off += blockWidth {
		end := off + blockWidth
		if end > len(in.QAln) {
			end = len(in.QAln)
		}
		qChunk, sChunk := in.QAln[off:end], in.SAln[off:end]
		qLen := len(qChunk) - strings.Count(qChunk, "-")
		sLen := len(sChunk) - strings.Count(sChunk, "-")
		if in.Reverse {
			if _, err := fmt.Fprintf(w, "C %-16s %7d %s %d\n", in.ID, qPos, qChunk, qPos-qLen+1); err != nil {
				return err
			}
			qPos -= qLen
		} else {
			if _, err := fmt.Fprintf(w, "  %-16s %7d %s %d\n", in.ID, qPos, qChunk, qPos+qLen-1); err != nil {
				return err
			}
			qPos += qLen
		}
		if _, err := fmt.Fprintf(w, "  %-16s %7d %s %d\n", in.SName, sPos, sChunk, sPos+sLen-1); err != nil {
			return err
		}
		sPos += sLen
	}
	_, err := fmt.Fprintln(w)
	return err
}
