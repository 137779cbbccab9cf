package cmd

import (
	"os"

	"github.com/encodeous/dvsim/state"
	"github.com/spf13/cobra"
)

var (
	topologyPath = state.DefaultTopoPath
	verbose      bool
	logPath      string
	traceTables  bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dvsim",
	Short: "Distance-vector routing simulator",
	Long: `dvsim runs distributed Bellman-Ford routing over a small, fixed set of routers.
Each router only talks to its direct neighbours, and the network converges on shortest paths.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddGroup(&cobra.Group{
		ID:    "init",
		Title: "Topology",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "dv",
		Title: "Simulation",
	})
	rootCmd.PersistentFlags().StringVarP(&topologyPath, "config", "c", topologyPath, "topology config")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().StringVar(&logPath, "log", "", "also write logs to this file")
	rootCmd.PersistentFlags().BoolVarP(&traceTables, "trace", "t", false, "print every distance table change")
}
