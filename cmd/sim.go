package cmd

import (
	"fmt"
	"os"

	"github.com/encodeous/dvsim/core"
	"github.com/encodeous/dvsim/sim"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var simCmd = &cobra.Command{
	Use:   "sim",
	Short: "Run the topology in deterministic simulated time",
	Long:  `Runs every router inside a single discrete-event simulation. Packet delay, loss and corruption are drawn from a named random stream, so the same config always produces the same run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		topo := loadTopology()
		if until, _ := cmd.Flags().GetFloat64("until"); until > 0 {
			topo.Sim.Until = until
		}
		file, closeLog, err := openLog()
		if err != nil {
			return err
		}
		defer closeLog()
		logger := core.NewLogger(os.Stderr, "sim", logLevel(), file)

		tracer, stopTrace := startTrace(topo)
		engine, err := sim.New(topo, logger, tracer)
		if err != nil {
			return err
		}
		stats := engine.Run()
		stopTrace()

		fmt.Printf("Finished at t=%.3f: %d updates sent, %d delivered, %d lost, %d corrupted, %d rejected, last update at t=%.3f\n",
			stats.EndTime, stats.Sent, stats.Delivered, stats.Lost, stats.Corrupted, stats.Rejected, stats.LastUpdate)
		for _, r := range topo.Routers {
			fmt.Printf("  %s sent %d updates\n", r.Name, stats.SentBy[r.Id])
		}
		final := topo.AfterEvents()
		ok, err := renderVectors(&final, engine.Vectors())
		if err != nil {
			return err
		}
		if !ok {
			pterm.Warning.Println("some routers did not settle on shortest paths")
		}
		return nil
	},
	GroupID: "dv",
}

func init() {
	rootCmd.AddCommand(simCmd)
	simCmd.Flags().Float64("until", 0, "override the simulation time limit")
}
