package cmd

import (
	"fmt"

	"github.com/encodeous/dvsim/oracle"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Validate a topology and print its shortest path costs",
	RunE: func(cmd *cobra.Command, args []string) error {
		topo := loadTopology()
		fmt.Printf("Topology is valid: %d routers, %d links, %d events\n", topo.Nodes(), len(topo.Links), len(topo.Events))

		costs := oracle.ShortestCosts(topo)
		header := []string{"from \\ to"}
		for _, r := range topo.Routers {
			header = append(header, r.Name)
		}
		data := pterm.TableData{header}
		for _, r := range topo.Routers {
			row := []string{r.Name}
			for _, c := range costs[r.Id] {
				row = append(row, costString(c))
			}
			data = append(data, row)
		}
		return pterm.DefaultTable.WithHasHeader().WithHeaderRowSeparator("-").WithData(data).Render()
	},
	GroupID: "init",
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
