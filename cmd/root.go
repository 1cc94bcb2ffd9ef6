// Package cmd is for command line interactions with the refiner toolkit.
package cmd

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Dfam-consortium/RepeatModeler-sub000/config"
)

var verbose bool

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use: "refiner",
	Short: `Build and refine consensus sequences for transposable-element families
from alignments of their genomic copies`,
	Version: "0.1.0",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			log.SetLevel(log.DebugLevel)
		}
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main() and only happens once.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("%v", err)
	}
}

func init() {
	config.SetDefaults()
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log per-window and per-phase detail")
}

// bind attaches a command flag to its viper key, failing loudly on
// programmer error.
func bind(key string, cmd *cobra.Command, flag string) {
	if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
		log.Fatalf("failed to bind flag %s: %v", flag, err)
	}
}
