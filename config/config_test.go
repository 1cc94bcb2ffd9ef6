// Package config is for app wide settings that are unmarshalled
// from Viper (see: /cmd)
package config

import (
	"testing"

	"github.com/spf13/viper"
)

func TestNewDefaults(t *testing.T) {
	viper.Reset()
	SetDefaults()

	c, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if got, want := c.Search.Engine, "crossmatch"; got != want {
		t.Errorf("Search.Engine = %v, want %v", got, want)
	}
	if got, want := c.Search.MinScore, 200; got != want {
		t.Errorf("Search.MinScore = %v, want %v", got, want)
	}
	if got, want := c.Search.GapInit, -25; got != want {
		t.Errorf("Search.GapInit = %v, want %v", got, want)
	}
	if got, want := c.Refine.MaxDiv, 60.0; got != want {
		t.Errorf("Refine.MaxDiv = %v, want %v", got, want)
	}
	if got, want := c.Refine.MaxIterations, 5; got != want {
		t.Errorf("Refine.MaxIterations = %v, want %v", got, want)
	}
	if got, want := c.Indel.Method, "tiling"; got != want {
		t.Errorf("Indel.Method = %v, want %v", got, want)
	}
	if got, want := c.Indel.Ratio, 2.0; got != want {
		t.Errorf("Indel.Ratio = %v, want %v", got, want)
	}
}

func TestNewOverrides(t *testing.T) {
	viper.Reset()
	SetDefaults()
	viper.Set("search.engine", "rmblast")
	viper.Set("refine.prune", 5)
	viper.Set("indel.windows", "7,10,14")

	c, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if got, want := c.Search.Engine, "rmblast"; got != want {
		t.Errorf("Search.Engine = %v, want %v", got, want)
	}
	if got, want := c.Refine.PruneCutoff, 5; got != want {
		t.Errorf("Refine.PruneCutoff = %v, want %v", got, want)
	}
	if got, want := c.Indel.Windows, "7,10,14"; got != want {
		t.Errorf("Indel.Windows = %v, want %v", got, want)
	}
}
