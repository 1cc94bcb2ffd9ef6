// Package config is for app wide settings that are unmarshalled
// from Viper (see: /cmd)
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// SearchConfig holds the parameters forwarded to the external search
// engine.
type SearchConfig struct {
	// Engine names the aligner: "crossmatch" or "rmblast"
	Engine string `mapstructure:"engine"`

	// Binary overrides the engine executable path
	Binary string `mapstructure:"binary"`

	// Matrix is the substitution matrix file path (engine default if empty)
	Matrix string `mapstructure:"matrix"`

	MinScore  int `mapstructure:"minscore"`
	MinMatch  int `mapstructure:"minmatch"`
	Bandwidth int `mapstructure:"bandwidth"`
	MaskLevel int `mapstructure:"masklevel"`
	GapInit   int `mapstructure:"gapinit"`
	InsGapExt int `mapstructure:"insgapext"`
	DelGapExt int `mapstructure:"delgapext"`
	Cores     int `mapstructure:"cores"`
}

// RefineConfig holds the stabilization-loop settings.
type RefineConfig struct {
	// MaxDiv is the maximum percent divergence an instance may have
	MaxDiv float64 `mapstructure:"maxdiv"`

	// MinLength is the minimum subject span of a usable alignment
	MinLength int `mapstructure:"minlength"`

	// MaxIterations caps the refinement loop
	MaxIterations int `mapstructure:"maxiter"`

	// PruneCutoff trims consensus edges with coverage at or below it
	PruneCutoff int `mapstructure:"prune"`

	// Pad is the number of extension-marker bases kept on each open end
	Pad int `mapstructure:"pad"`

	// Interactive prompts per proposed change instead of auto-accepting
	Interactive bool `mapstructure:"interactive"`

	// FilterOverlapping drops lower-scoring same-query overlaps
	FilterOverlapping bool `mapstructure:"filter-overlapping"`

	// Dedupe removes coordinate-identical duplicate alignments
	Dedupe bool `mapstructure:"dedupe"`

	// WithRef includes the current consensus base in each column vote
	WithRef bool `mapstructure:"with-ref"`

	// FinalLeft and FinalRight mark the consensus ends finished: markers
	// on a finalized side anchor alignments but votes under them never
	// reach the core
	FinalLeft  bool `mapstructure:"final-left"`
	FinalRight bool `mapstructure:"final-right"`
}

// IndelConfig holds the indel-resolution settings.
type IndelConfig struct {
	// Windows is a comma-separated list of window sizes
	Windows string `mapstructure:"windows"`

	// WindowRange is a contiguous "[min,max]" size range
	WindowRange string `mapstructure:"window-range"`

	// RTThreshold switches to low-scoring subalignment detection
	RTThreshold int `mapstructure:"rt-threshold"`

	// Method is the aggregation policy: tiling or clustering
	Method string `mapstructure:"method"`

	// MinGap is the tiling proximity distance
	MinGap int `mapstructure:"mingap"`

	// GapDist is the clustering merge distance
	GapDist int `mapstructure:"gapdist"`

	// CopyMin is the minimum instance support for a length change
	CopyMin int `mapstructure:"copymin"`

	// Ratio is the required majority/reference support ratio
	Ratio float64 `mapstructure:"ratio"`

	// GapScore penalizes gap columns in the quality profile
	GapScore int `mapstructure:"gapscore"`
}

// Config is the root-level settings struct, a mix of settings.yaml values
// and command line flags bound through viper.
type Config struct {
	Search SearchConfig `mapstructure:"search"`
	Refine RefineConfig `mapstructure:"refine"`
	Indel  IndelConfig  `mapstructure:"indel"`
}

// SetDefaults registers the documented defaults with viper. Call once
// before binding flags.
func SetDefaults() {
	viper.SetDefault("search.engine", "crossmatch")
	viper.SetDefault("search.minscore", 200)
	viper.SetDefault("search.minmatch", 7)
	viper.SetDefault("search.bandwidth", 40)
	viper.SetDefault("search.masklevel", 80)
	viper.SetDefault("search.gapinit", -25)
	viper.SetDefault("search.insgapext", -5)
	viper.SetDefault("search.delgapext", -5)
	viper.SetDefault("search.cores", 1)

	viper.SetDefault("refine.maxdiv", 60.0)
	viper.SetDefault("refine.minlength", 0)
	viper.SetDefault("refine.maxiter", 5)
	viper.SetDefault("refine.prune", 0)
	viper.SetDefault("refine.pad", 0)

	viper.SetDefault("indel.method", "tiling")
	viper.SetDefault("indel.mingap", 5)
	viper.SetDefault("indel.gapdist", 5)
	viper.SetDefault("indel.copymin", 3)
	viper.SetDefault("indel.ratio", 2.0)
	viper.SetDefault("indel.gapscore", -5)
}

// New returns a Config populated from viper.
func New() (Config, error) {
	var c Config
	if err := viper.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("unable to decode settings: %w", err)
	}
	return c, nil
}
