package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild the index from a full record scan",
		Long:  "Reconstruct the index and stats files by scanning every record on disk. Use after manual edits or a corrupted index.",
		Run:   runRebuild,
	}

	RootCmd.AddCommand(cmd)
}

func runRebuild(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	count, err := s.RebuildIndex(cmd.Context())
	if err != nil {
		exitErr("rebuild", err)
	}

	fmt.Printf(`{"ok":true,"indexed":%d}`+"\n", count)
}
