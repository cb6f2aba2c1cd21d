package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/memkeep/memkeep/internal/model"
	"github.com/memkeep/memkeep/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "query [search text]",
		Short: "Query memories",
		Long:  "Filter by project/type/tag/entity, search free text, optionally boost by current working context, then sort and paginate.",
		Run:   runQuery,
	}

	cmd.Flags().StringP("project", "p", "", "Filter by project id")
	cmd.Flags().StringP("types", "T", "", "Filter by types (comma-separated)")
	cmd.Flags().StringP("tags", "t", "", "Filter by tags (comma-separated)")
	cmd.Flags().StringP("entities", "e", "", "Filter by entities (comma-separated)")
	cmd.Flags().String("after", "", "Created on or after (RFC3339 or 2006-01-02)")
	cmd.Flags().String("before", "", "Created on or before (RFC3339 or 2006-01-02)")
	cmd.Flags().Float64("min-relevance", 0, "Minimum persisted relevance score")
	cmd.Flags().Bool("archived", false, "Include archived memories")
	cmd.Flags().String("sort", "relevance", "Sort: relevance, recency, access_count")
	cmd.Flags().IntP("limit", "l", 0, "Max results (0 = configured default)")
	cmd.Flags().String("ctx-task", "", "Current task id for context boosting")
	cmd.Flags().String("ctx-files", "", "Current open files (comma-separated) for context boosting")
	cmd.Flags().String("ctx-actions", "", "Recent actions (comma-separated) for context boosting")

	RootCmd.AddCommand(cmd)
}

func runQuery(cmd *cobra.Command, args []string) {
	project, _ := cmd.Flags().GetString("project")
	typesStr, _ := cmd.Flags().GetString("types")
	tagsStr, _ := cmd.Flags().GetString("tags")
	entitiesStr, _ := cmd.Flags().GetString("entities")
	afterStr, _ := cmd.Flags().GetString("after")
	beforeStr, _ := cmd.Flags().GetString("before")
	minRelevance, _ := cmd.Flags().GetFloat64("min-relevance")
	includeArchived, _ := cmd.Flags().GetBool("archived")
	sortBy, _ := cmd.Flags().GetString("sort")
	limit, _ := cmd.Flags().GetInt("limit")
	ctxTask, _ := cmd.Flags().GetString("ctx-task")
	ctxFiles, _ := cmd.Flags().GetString("ctx-files")
	ctxActions, _ := cmd.Flags().GetString("ctx-actions")

	var types []model.MemoryType
	for _, t := range splitCSV(typesStr) {
		types = append(types, model.MemoryType(t))
	}

	after, err := parseDateFlag(afterStr)
	if err != nil {
		exitErr("parse --after", err)
	}
	before, err := parseDateFlag(beforeStr)
	if err != nil {
		exitErr("parse --before", err)
	}

	var qc *store.QueryContext
	if ctxTask != "" || ctxFiles != "" || ctxActions != "" {
		qc = &store.QueryContext{
			CurrentTask:   ctxTask,
			CurrentFiles:  splitCSV(ctxFiles),
			RecentActions: splitCSV(ctxActions),
		}
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	results, err := s.Query(cmd.Context(), store.QueryParams{
		Filters: store.Filters{
			ProjectID:       project,
			Types:           types,
			Tags:            splitCSV(tagsStr),
			Entities:        splitCSV(entitiesStr),
			CreatedAfter:    after,
			CreatedBefore:   before,
			MinRelevance:    minRelevance,
			IncludeArchived: includeArchived,
		},
		SearchText: strings.Join(args, " "),
		Context:    qc,
		SortBy:     store.SortBy(sortBy),
		Limit:      limit,
	})
	if err != nil {
		exitErr("query", err)
	}

	if len(results) == 0 {
		fmt.Println("[]")
		return
	}

	b, _ := json.MarshalIndent(results, "", "  ")
	fmt.Println(string(b))
}

func parseDateFlag(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
