package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/memkeep/memkeep/internal/model"
	"github.com/memkeep/memkeep/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "create [content]",
		Short: "Store a memory",
		Long:  "Store a memory. Content can be a positional arg or piped via stdin.",
		Run:   runCreate,
	}

	cmd.Flags().StringP("summary", "s", "", "Short title (required)")
	cmd.Flags().StringP("type", "T", "", "Type: breakthrough, decision, feedback, error_recovery, pattern, user_preference (required)")
	cmd.Flags().Float64("confidence", 0.5, "Confidence estimate in [0,1]")
	cmd.Flags().StringP("tags", "t", "", "Comma-separated tags")
	cmd.Flags().StringP("entities", "e", "", "Comma-separated entities (files, symbols, packages)")
	cmd.Flags().String("related", "", "Comma-separated related memory ids")
	cmd.Flags().StringP("project", "p", "", "Project id")
	cmd.Flags().String("task", "", "Task id")
	cmd.Flags().StringP("author", "a", "", "Author (default: $USER)")
	cmd.Flags().String("meta", "", "JSON object of string metadata")
	cmd.Flags().String("ctx-task", "", "Context snapshot: current task id")
	cmd.Flags().String("ctx-files", "", "Context snapshot: comma-separated open files")
	cmd.Flags().String("ctx-actions", "", "Context snapshot: comma-separated recent actions")

	cmd.MarkFlagRequired("summary")
	cmd.MarkFlagRequired("type")

	RootCmd.AddCommand(cmd)
}

func runCreate(cmd *cobra.Command, args []string) {
	summary, _ := cmd.Flags().GetString("summary")
	memType, _ := cmd.Flags().GetString("type")
	confidence, _ := cmd.Flags().GetFloat64("confidence")
	tagsStr, _ := cmd.Flags().GetString("tags")
	entitiesStr, _ := cmd.Flags().GetString("entities")
	relatedStr, _ := cmd.Flags().GetString("related")
	project, _ := cmd.Flags().GetString("project")
	task, _ := cmd.Flags().GetString("task")
	author, _ := cmd.Flags().GetString("author")
	metaStr, _ := cmd.Flags().GetString("meta")
	ctxTask, _ := cmd.Flags().GetString("ctx-task")
	ctxFiles, _ := cmd.Flags().GetString("ctx-files")
	ctxActions, _ := cmd.Flags().GetString("ctx-actions")

	// Content: positional arg first, then stdin.
	var content string
	if len(args) > 0 {
		content = strings.Join(args, " ")
	} else {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) == 0 {
			b, err := io.ReadAll(os.Stdin)
			if err != nil {
				exitErr("read stdin", err)
			}
			content = string(b)
		}
	}
	if strings.TrimSpace(content) == "" {
		exitErr("create", fmt.Errorf("content is required (positional arg or stdin)"))
	}

	if author == "" {
		author = os.Getenv("USER")
	}

	var metadata map[string]string
	if metaStr != "" {
		if err := json.Unmarshal([]byte(metaStr), &metadata); err != nil {
			exitErr("parse meta", err)
		}
	}

	var snapshot *model.ContextSnapshot
	if ctxTask != "" || ctxFiles != "" || ctxActions != "" {
		snapshot = &model.ContextSnapshot{
			CurrentTask:   ctxTask,
			Files:         splitCSV(ctxFiles),
			RecentActions: splitCSV(ctxActions),
		}
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	mem, err := s.Create(cmd.Context(), store.CreateParams{
		Content:         strings.TrimSpace(content),
		Summary:         summary,
		Type:            model.MemoryType(memType),
		Confidence:      confidence,
		Tags:            splitCSV(tagsStr),
		Entities:        splitCSV(entitiesStr),
		RelatedMemories: splitCSV(relatedStr),
		ContextSnapshot: snapshot,
		ProjectID:       project,
		TaskID:          task,
		Author:          author,
		Metadata:        metadata,
	})
	if err != nil {
		exitErr("create", err)
	}

	b, _ := json.Marshal(mem)
	fmt.Println(string(b))
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(s, ",") {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
