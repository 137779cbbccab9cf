package cmd

import (
	"fmt"
	"os"

	"github.com/encodeous/dvsim/state"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default four router topology",
	RunE: func(cmd *cobra.Command, args []string) error {
		outPath, _ := cmd.Flags().GetString("output")
		yes, _ := cmd.Flags().GetBool("yes")
		if err := state.PathValidator(outPath); err != nil {
			return err
		}

		if _, err := os.Stat(outPath); err == nil && !yes {
			fmt.Printf("Warning: topology already exists: %s\n", outPath)
			if !promptYN("Overwrite?", false) {
				return nil
			}
		}

		topo := state.DefaultTopology()
		err := state.WriteTopology(outPath, &topo)
		if err != nil {
			return err
		}
		fmt.Printf("Wrote topology with %d routers and %d links to %s\n", topo.Nodes(), len(topo.Links), outPath)
		return nil
	},
	GroupID: "init",
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringP("output", "o", state.DefaultTopoPath, "topology output file path")
	initCmd.Flags().BoolP("yes", "y", false, "overwrite without asking")
}
