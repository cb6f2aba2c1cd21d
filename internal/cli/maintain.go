package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "maintain [decay|archive]",
		Short: "Run a maintenance pass",
		Long: "Run a relevance maintenance pass once, or keep running it on a cron schedule.\n" +
			"decay lowers relevance scores by staleness; archive soft-deletes old, low-value memories.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"decay", "archive"},
		Run:       runMaintain,
	}

	cmd.Flags().Int("days", 90, "Age cutoff in days for the archive pass")
	cmd.Flags().String("schedule", "", "Cron expression; when set, runs the pass on schedule until interrupted")

	RootCmd.AddCommand(cmd)
}

func runMaintain(cmd *cobra.Command, args []string) {
	op := args[0]
	days, _ := cmd.Flags().GetInt("days")
	schedule, _ := cmd.Flags().GetString("schedule")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	pass := func(ctx context.Context) (int, error) {
		switch op {
		case "decay":
			return s.Decay(ctx)
		case "archive":
			return s.Archive(ctx, days)
		default:
			return 0, fmt.Errorf("unknown operation %q (use decay or archive)", op)
		}
	}

	if schedule == "" {
		affected, err := pass(cmd.Context())
		if err != nil {
			exitErr("maintain", err)
		}
		fmt.Printf(`{"ok":true,"operation":%q,"affected":%d}`+"\n", op, affected)
		return
	}

	c := cron.New()
	_, err = c.AddFunc(schedule, func() {
		if _, err := pass(context.Background()); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "maintain %s: %v\n", op, err)
		}
	})
	if err != nil {
		exitErr("parse schedule", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c.Start()
	fmt.Fprintf(cmd.ErrOrStderr(), "running %s on schedule %q, ctrl-c to stop\n", op, schedule)
	<-ctx.Done()
	<-c.Stop().Done()
}
