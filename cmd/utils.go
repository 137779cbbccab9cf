package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/encodeous/dvsim/core"
	"github.com/encodeous/dvsim/oracle"
	"github.com/encodeous/dvsim/state"
	"github.com/pterm/pterm"
)

func logLevel() slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// openLog returns the shared log file, or nil when --log is not set. The
// returned closer is always safe to call.
func openLog() (io.Writer, func(), error) {
	if logPath == "" {
		return nil, func() {}, nil
	}
	f, err := core.OpenLogFile(logPath)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}

// startTrace prints every table change as a dest x via grid when --trace is
// set. The returned function flushes and stops tracing.
func startTrace(topo *state.TopologyCfg) (*core.Tracer, func()) {
	tracer := core.NewTracer()
	if traceTables {
		tracer.Listen(func(snap state.TableSnapshot) {
			fmt.Printf("[%.3f] %s (%s)\n%s\n", snap.At, topo.Name(snap.Router), snap.Event, core.FormatTable(snap))
		})
	}
	return tracer, func() { _ = tracer.Close() }
}

func costString(c uint32) string {
	if c >= state.INF {
		return "inf"
	}
	return strconv.FormatUint(uint64(c), 10)
}

// renderVectors prints each router's final vector next to the shortest path
// costs, and reports whether they all agree.
func renderVectors(topo *state.TopologyCfg, vecs [][]uint32) (bool, error) {
	want := oracle.ShortestCosts(topo)
	header := []string{"router"}
	for _, r := range topo.Routers {
		header = append(header, r.Name)
	}
	data := pterm.TableData{header}
	for _, r := range topo.Routers {
		row := []string{r.Name}
		for d := range vecs[r.Id] {
			cell := costString(vecs[r.Id][d])
			if vecs[r.Id][d] != want[r.Id][d] {
				cell = pterm.Red(fmt.Sprintf("%s (want %s)", cell, costString(want[r.Id][d])))
			}
			row = append(row, cell)
		}
		data = append(data, row)
	}
	err := pterm.DefaultTable.WithHasHeader().WithHeaderRowSeparator("-").WithData(data).Render()
	if err != nil {
		return false, err
	}
	return len(oracle.Compare(topo, vecs)) == 0, nil
}

func loadTopology() *state.TopologyCfg {
	topo, err := state.ReadTopology(topologyPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load topology: %v\n", err)
		os.Exit(1)
	}
	return topo
}
