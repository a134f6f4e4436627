package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var nogoodLimit int

var nogoodsCmd = &cobra.Command{
	Use:   "nogoods",
	Short: "List the clauses in the nogood journal",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cfg)
		if err != nil {
			return err
		}
		defer rt.Close()

		total, err := rt.journal.Len()
		if err != nil {
			return err
		}
		all, err := rt.journal.All("")
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Total nogoods: %d (%s)\n", total, cfg.Store.Backend)
		for i, ng := range all {
			if nogoodLimit > 0 && i >= nogoodLimit {
				break
			}
			fmt.Fprintf(out, "[%d] %s\n", i+1, ng)
		}
		return nil
	},
}

func init() {
	nogoodsCmd.Flags().IntVarP(&nogoodLimit, "limit", "n", 0, "Show at most this many clauses")
}
