// Package search wraps the external pairwise search engines (cross_match,
// rmblast) behind one capability interface. The refinement core never sees
// engine-specific flags or output: it sets parameters, calls Search, and
// gets back a parsed alignment collection.
package search

import (
	"github.com/Dfam-consortium/RepeatModeler-sub000/internal/align"
)

// ScoreMode selects raw or complexity-adjusted alignment scores.
type ScoreMode int

const (
	RawScore ScoreMode = iota
	ComplexityAdjusted
)

// Engine is the uniform search-engine surface. Implementations block until
// the external process exits and its output is fully captured; a nonzero
// returned status means engine failure and is fatal for the current
// iteration (the error carries the exact command line for reproduction).
type Engine interface {
	SetQuery(path string)
	SetSubject(path string)
	SetMatrix(path string)
	SetMinScore(n int)
	SetGapInit(n int)
	SetInsGapExt(n int)
	SetDelGapExt(n int)
	SetBandwidth(n int)
	SetMinMatch(n int)
	SetMaskLevel(n int)
	SetGenerateAlignments(b bool)
	SetScoreMode(m ScoreMode)
	SetCores(n int)

	Search() (status int, results *align.Collection, err error)
}

// Params holds the shared engine parameters; both implementations embed it.
type Params struct {
	Query      string
	Subject    string
	Matrix     string
	MinScore   int
	GapInit    int
	InsGapExt  int
	DelGapExt  int
	Bandwidth  int
	MinMatch   int
	MaskLevel  int
	Alignments bool
	Mode       ScoreMode
	Cores      int
}

func (p *Params) SetQuery(path string)         { p.Query = path }
func (p *Params) SetSubject(path string)       { p.Subject = path }
func (p *Params) SetMatrix(path string)        { p.Matrix = path }
func (p *Params) SetMinScore(n int)            { p.MinScore = n }
func (p *Params) SetGapInit(n int)             { p.GapInit = n }
func (p *Params) SetInsGapExt(n int)           { p.InsGapExt = n }
func (p *Params) SetDelGapExt(n int)           { p.DelGapExt = n }
func (p *Params) SetBandwidth(n int)           { p.Bandwidth = n }
func (p *Params) SetMinMatch(n int)            { p.MinMatch = n }
func (p *Params) SetMaskLevel(n int)           { p.MaskLevel = n }
func (p *Params) SetGenerateAlignments(b bool) { p.Alignments = b }
func (p *Params) SetScoreMode(m ScoreMode)     { p.Mode = m }
func (p *Params) SetCores(n int)               { p.Cores = n }

// New returns an engine by name: "crossmatch" or "rmblast".
func New(name, binary string) Engine {
	switch name {
	case "rmblast":
		return NewRMBlast(binary)
	default:
		return NewCrossMatch(binary)
	}
}
