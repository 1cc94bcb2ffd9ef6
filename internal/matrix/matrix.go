// Package matrix holds the nucleotide substitution-score tables used for
// weighted column voting and for rescoring alignments. Tables are loaded
// from the whitespace-delimited text format used by cross_match and rmblast.
package matrix

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Alphabet is the base order used by the built-in default matrix. Loaded
// matrices use whatever order their header row declares.
const Alphabet = "ACGTN"

// Matrix is a substitution-score table over an enumerated base alphabet.
// It may be asymmetric: rows are the "top" (candidate/consensus) base and
// columns are the "bottom" (observed) base. Bases absent from the table
// score as N-vs-N, matching the behavior of the aligners this table is
// shared with.
type Matrix struct {
	bases  []byte
	index  [256]int // base -> row/col index, -1 if unlisted
	scores [][]int
	nIdx   int
}

// New builds a matrix from an explicit base order and square score table.
func New(bases string, scores [][]int) (*Matrix, error) {
	if len(scores) != len(bases) {
		return nil, fmt.Errorf("matrix has %d rows for %d bases", len(scores), len(bases))
	}
	m := &Matrix{bases: []byte(bases), scores: scores, nIdx: -1}
	for i := range m.index {
		m.index[i] = -1
	}
	for i, b := range m.bases {
		if len(scores[i]) != len(bases) {
			return nil, fmt.Errorf("matrix row %c has %d columns for %d bases", b, len(scores[i]), len(bases))
		}
		m.index[b] = i
		m.index[lower(b)] = i
		if b == 'N' {
			m.nIdx = i
		}
	}
	if m.nIdx < 0 {
		return nil, fmt.Errorf("matrix alphabet %q has no N entry", bases)
	}
	return m, nil
}

// Score returns the substitution score of candidate base a against observed
// base b. Bases the table doesn't list (rare IUB codes, masked runs) fall
// back to the N self-score rather than failing.
func (m *Matrix) Score(a, b byte) int {
	ia, ib := m.index[a], m.index[b]
	if ia < 0 || ib < 0 {
		return m.scores[m.nIdx][m.nIdx]
	}
	return m.scores[ia][ib]
}

// Bases returns the alphabet in table order.
func (m *Matrix) Bases() []byte {
	return append([]byte(nil), m.bases...)
}

// Transpose swaps the row/column roles of the table. Aligners differ on
// whether the query or the subject indexes the rows, and rescoring must use
// the orientation the alignment was produced with.
func (m *Matrix) Transpose() *Matrix {
	n := len(m.bases)
	scores := make([][]int, n)
	for i := range scores {
		scores[i] = make([]int, n)
		for j := 0; j < n; j++ {
			scores[i][j] = m.scores[j][i]
		}
	}
	t, _ := New(string(m.bases), scores)
	return t
}

// Parse reads a whitespace-delimited score table: a header row listing the
// column bases, then one row per base of "base score score ...". Comment
// lines starting with '#' and FREQS lines are skipped.
func Parse(lines []string) (*Matrix, error) {
	var bases []byte
	var scores [][]int
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "FREQS") {
			continue
		}
		fields := strings.Fields(line)
		if bases == nil {
			for _, f := range fields {
				if len(f) != 1 {
					return nil, fmt.Errorf("bad matrix header field %q", f)
				}
				bases = append(bases, upper(f[0]))
			}
			continue
		}
		if len(fields) != len(bases)+1 {
			return nil, fmt.Errorf("matrix row %q has %d fields, want %d", line, len(fields), len(bases)+1)
		}
		row := make([]int, len(bases))
		for i, f := range fields[1:] {
			v, err := strconv.Atoi(f)
			if err != nil {
				return nil, fmt.Errorf("bad matrix score %q: %v", f, err)
			}
			row[i] = v
		}
		scores = append(scores, row)
	}
	if bases == nil {
		return nil, fmt.Errorf("matrix file has no header row")
	}
	return New(string(bases), scores)
}

// Load reads a matrix file from disk.
func Load(path string) (*Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open matrix file: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read matrix file %s: %w", path, err)
	}
	m, err := Parse(lines)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Default returns the comparison matrix used when none is configured:
// match +9, transition -6, transversion -15, N neutral-ish. These are the
// 14p35g values cross_match ships for moderately diverged repeats.
func Default() *Matrix {
	m, err := New(Alphabet, [][]int{
		// A    C    G    T   N
		{9, -15, -6, -15, -1},  // A
		{-15, 9, -15, -6, -1},  // C
		{-6, -15, 9, -15, -1},  // G
		{-15, -6, -15, 9, -1},  // T
		{-1, -1, -1, -1, 0},    // N
	})
	if err != nil {
		panic(err)
	}
	return m
}

func upper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - 32
	}
	return b
}

func lower(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + 32
	}
	return b
}
