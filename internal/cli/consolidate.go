package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/memkeep/memkeep/internal/model"
	"github.com/memkeep/memkeep/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "consolidate",
		Short: "Merge near-duplicate memories",
		Long: "Detect near-duplicate memories by weighted text similarity within one type/tag/project bucket and merge them.\n" +
			"The higher-confidence memory survives with the union of tags; the merge is lossy for the discarded content.",
		Run: runConsolidate,
	}

	cmd.Flags().StringP("type", "T", "", "Scope to one type bucket")
	cmd.Flags().StringP("tag", "t", "", "Scope to one tag bucket")
	cmd.Flags().StringP("project", "p", "", "Scope to one project bucket")

	RootCmd.AddCommand(cmd)
}

func runConsolidate(cmd *cobra.Command, args []string) {
	memType, _ := cmd.Flags().GetString("type")
	tag, _ := cmd.Flags().GetString("tag")
	project, _ := cmd.Flags().GetString("project")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	result, err := s.Consolidate(cmd.Context(), store.ConsolidateScope{
		Type:      model.MemoryType(memType),
		Tag:       tag,
		ProjectID: project,
	})
	if err != nil {
		exitErr("consolidate", err)
	}

	b, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(b))
}
