package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/memkeep/memkeep/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "chain [id]",
		Short: "Traverse the related-memory graph",
		Long:  "Breadth-first traversal of relatedMemories edges from a root memory, bounded by depth. Cycles are handled; each memory appears once.",
		Args:  cobra.ExactArgs(1),
		Run:   runChain,
	}

	cmd.Flags().Int("depth", 2, "Max hops from the root")
	cmd.Flags().Bool("content", false, "Include full content (default: summaries only)")

	RootCmd.AddCommand(cmd)
}

func runChain(cmd *cobra.Command, args []string) {
	depth, _ := cmd.Flags().GetInt("depth")
	includeContent, _ := cmd.Flags().GetBool("content")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	chain, err := s.Chain(cmd.Context(), store.ChainParams{
		ID:             args[0],
		Depth:          depth,
		IncludeContent: includeContent,
	})
	if err != nil {
		exitErr("chain", err)
	}

	b, _ := json.MarshalIndent(chain, "", "  ")
	fmt.Println(string(b))
}
