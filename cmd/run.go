package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/encodeous/dvsim/core"
	"github.com/encodeous/dvsim/state"
	"github.com/encodeous/dvsim/vnet"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every router on its own goroutine",
	Long: `Runs each router concurrently, connected by in-memory links with real latency and jitter.
Link events fire at their configured offset, in milliseconds. To exit early, send SIGINT or Ctrl+C.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		topo := loadTopology()
		file, closeLog, err := openLog()
		if err != nil {
			return err
		}
		defer closeLog()

		if addr, _ := cmd.Flags().GetString("debug-addr"); addr != "" {
			go func() {
				log.Println(http.ListenAndServe(addr, nil))
			}()
		}

		tracer, stopTrace := startTrace(topo)
		defer stopTrace()
		network, err := vnet.New(topo, func(r state.RouterCfg) *slog.Logger {
			return core.NewLogger(os.Stderr, r.Name, logLevel(), file)
		}, tracer)
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()
		errs := network.Start()
		defer network.Stop()
		go func() {
			select {
			case err := <-errs:
				slog.Error("router stopped", "err", err)
				cancel()
			case <-ctx.Done():
			}
		}()

		err = network.WaitConverged(ctx)
		if err != nil {
			return err
		}
		current := *topo
		if err := printConverged("initial topology", &current, network); err != nil {
			return err
		}

		err = network.RunEvents(ctx, topo.Events, func(ev state.LinkEventCfg) {
			current = current.WithCost(ev.A, ev.B, ev.Cost)
			label := fmt.Sprintf("link %s-%s cost %d", topo.Name(ev.A), topo.Name(ev.B), ev.Cost)
			if err := printConverged(label, &current, network); err != nil {
				slog.Warn("failed to print vectors", "err", err)
			}
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
	GroupID: "dv",
}

func printConverged(label string, topo *state.TopologyCfg, network *vnet.Network) error {
	vecs, err := network.Vectors()
	if err != nil {
		return err
	}
	pterm.DefaultSection.Println("converged: " + label)
	ok, err := renderVectors(topo, vecs)
	if err != nil {
		return err
	}
	if !ok {
		pterm.Warning.Println("some routers did not settle on shortest paths")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("debug-addr", "", "serve /debug/metrics and /debug/vars on this address")
}
