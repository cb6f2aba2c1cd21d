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
		Use:   "update [id]",
		Short: "Update fields of a memory",
		Long:  "Merge the given fields into an existing memory. Unset flags leave fields unchanged; the version is bumped.",
		Args:  cobra.ExactArgs(1),
		Run:   runUpdate,
	}

	cmd.Flags().String("content", "", "Replace content")
	cmd.Flags().StringP("summary", "s", "", "Replace summary")
	cmd.Flags().StringP("type", "T", "", "Replace type")
	cmd.Flags().Float64("confidence", 0, "Replace confidence")
	cmd.Flags().StringP("tags", "t", "", "Replace tags (comma-separated)")
	cmd.Flags().StringP("entities", "e", "", "Replace entities (comma-separated)")
	cmd.Flags().String("related", "", "Replace related memory ids (comma-separated)")
	cmd.Flags().StringP("project", "p", "", "Replace project id")
	cmd.Flags().String("task", "", "Replace task id")
	cmd.Flags().String("meta", "", "Replace metadata (JSON object of strings)")
	cmd.Flags().Bool("archived", false, "Set the archived flag")

	RootCmd.AddCommand(cmd)
}

func runUpdate(cmd *cobra.Command, args []string) {
	var p store.UpdateParams

	if cmd.Flags().Changed("content") {
		v, _ := cmd.Flags().GetString("content")
		p.Content = &v
	}
	if cmd.Flags().Changed("summary") {
		v, _ := cmd.Flags().GetString("summary")
		p.Summary = &v
	}
	if cmd.Flags().Changed("type") {
		v, _ := cmd.Flags().GetString("type")
		t := model.MemoryType(v)
		p.Type = &t
	}
	if cmd.Flags().Changed("confidence") {
		v, _ := cmd.Flags().GetFloat64("confidence")
		p.Confidence = &v
	}
	if cmd.Flags().Changed("tags") {
		v, _ := cmd.Flags().GetString("tags")
		p.Tags = splitCSV(v)
	}
	if cmd.Flags().Changed("entities") {
		v, _ := cmd.Flags().GetString("entities")
		p.Entities = splitCSV(v)
	}
	if cmd.Flags().Changed("related") {
		v, _ := cmd.Flags().GetString("related")
		p.RelatedMemories = splitCSV(v)
	}
	if cmd.Flags().Changed("project") {
		v, _ := cmd.Flags().GetString("project")
		p.ProjectID = &v
	}
	if cmd.Flags().Changed("task") {
		v, _ := cmd.Flags().GetString("task")
		p.TaskID = &v
	}
	if cmd.Flags().Changed("meta") {
		v, _ := cmd.Flags().GetString("meta")
		var meta map[string]string
		if err := json.Unmarshal([]byte(v), &meta); err != nil {
			exitErr("parse meta", err)
		}
		p.Metadata = meta
	}
	if cmd.Flags().Changed("archived") {
		v, _ := cmd.Flags().GetBool("archived")
		p.Archived = &v
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	mem, err := s.Update(cmd.Context(), args[0], p)
	if err != nil {
		exitErr("update", err)
	}

	b, _ := json.MarshalIndent(mem, "", "  ")
	fmt.Println(string(b))
}
