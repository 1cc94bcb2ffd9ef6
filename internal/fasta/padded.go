package fasta

import "strings"

// PadChar is the reserved extension-marker base. Runs of it flanking a
// consensus score favorably against anything in the aligner's matrix, which
// pulls genuine flanking sequence from the instances into the alignment
// window so the consensus can grow past its current ends.
const PadChar = 'H'

// Padded is the explicit form of a pad-flanked consensus: the core sequence
// plus pad widths and per-side finalization flags. Once a side is
// finalized, alignment over its marker region is anchoring-only and must
// not perturb the core.
type Padded struct {
	Core       string
	LeftPad    int
	RightPad   int
	LeftFinal  bool
	RightFinal bool
}

// ParsePadded splits a flat marker-character sequence into its Padded form.
func ParsePadded(s string) Padded {
	left := 0
	for left < len(s) && s[left] == PadChar {
		left++
	}
	right := 0
	for right < len(s)-left && s[len(s)-1-right] == PadChar {
		right++
	}
	return Padded{
		Core:     s[left : len(s)-right],
		LeftPad:  left,
		RightPad: right,
	}
}

// Flat renders the padded sequence back to its flat marker form.
func (p Padded) Flat() string {
	return strings.Repeat(string(PadChar), p.LeftPad) + p.Core + strings.Repeat(string(PadChar), p.RightPad)
}

// Len is the flat length including pads.
func (p Padded) Len() int {
	return p.LeftPad + len(p.Core) + p.RightPad
}

// WithPad returns a copy re-padded to n markers on each non-finalized side.
func (p Padded) WithPad(n int) Padded {
	out := p
	if !p.LeftFinal {
		out.LeftPad = n
	}
	if !p.RightFinal {
		out.RightPad = n
	}
	return out
}

// Absorb reconciles a freshly voted flat sequence (same flat length as p)
// with the pad semantics. Voted bases inside a non-finalized pad region are
// recruited into the core; on a finalized side the old boundary is kept and
// any changes under the markers are discarded, so pad-only differences
// never register as consensus changes.
func (p Padded) Absorb(voted string) Padded {
	if len(voted) != p.Len() {
		// caller rebuilt the consensus at a different length; treat the
		// whole thing as the new core
		return ParsePadded(voted)
	}
	left := voted[:p.LeftPad]
	core := voted[p.LeftPad : p.LeftPad+len(p.Core)]
	right := voted[p.LeftPad+len(p.Core):]

	out := Padded{Core: core, LeftFinal: p.LeftFinal, RightFinal: p.RightFinal}

	if p.LeftFinal {
		out.LeftPad = p.LeftPad
	} else {
		// markers that received votes become core sequence
		i := 0
		for i < len(left) && left[i] == PadChar {
			i++
		}
		out.LeftPad = i
		out.Core = left[i:] + out.Core
	}
	if p.RightFinal {
		out.RightPad = p.RightPad
	} else {
		j := len(right)
		for j > 0 && right[j-1] == PadChar {
			j--
		}
		out.RightPad = len(right) - j
		out.Core = out.Core + right[:j]
	}
	return out
}
