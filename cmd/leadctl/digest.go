package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mysqft/leadcapture/internal/app"
	"github.com/mysqft/leadcapture/internal/queue"
	"github.com/mysqft/leadcapture/internal/storage/redis"
)

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Daily lead digest",
}

var digestRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the daily digest now",
	Long:  `Exports, emails and purges today's leads for every tenant with a current plan.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, zapLogger, err := loadConfig()
		if err != nil {
			return err
		}
		defer zapLogger.Sync()

		a, err := app.New(cmd.Context(), cfg, zapLogger)
		if err != nil {
			return err
		}
		defer a.Close()

		summary, err := a.Reporter.Run(cmd.Context())
		if err != nil {
			return err
		}

		type row struct {
			Tenant  string `json:"tenant"`
			Leads   int    `json:"leads"`
			Purged  int64  `json:"purged"`
			Outcome string `json:"outcome"`
			Error   string `json:"error,omitempty"`
		}
		rows := make([]row, 0, len(summary.Tenants))
		var text strings.Builder
		fmt.Fprintf(&text, "run %s for %s took %s\n", summary.RunID, summary.Day.Format(time.DateOnly), summary.Duration.Round(time.Millisecond))
		for _, t := range summary.Tenants {
			r := row{Tenant: t.Tenant, Leads: t.Leads, Purged: t.Purged, Outcome: string(t.Outcome)}
			if t.Err != nil {
				r.Error = t.Err.Error()
			}
			rows = append(rows, r)
			fmt.Fprintf(&text, "  %-20s %-16s leads=%d purged=%d %s\n", r.Tenant, r.Outcome, r.Leads, r.Purged, r.Error)
		}

		return printResult(cmd, map[string]any{
			"run_id":  summary.RunID,
			"day":     summary.Day.Format(time.DateOnly),
			"tenants": rows,
		}, strings.TrimRight(text.String(), "\n"))
	},
}

var digestLostCmd = &cobra.Command{
	Use:   "lost",
	Short: "Show daily reports that could not be delivered",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Redis.URL == "" {
			return fmt.Errorf("lost reports are only recorded when REDIS_URL is set")
		}

		client := redis.NewClient(cfg.Redis.URL)
		defer client.Close()

		limit, _ := cmd.Flags().GetInt64("limit")
		drain, _ := cmd.Flags().GetBool("drain")

		reports, remaining, err := readLostReports(cmd.Context(), queue.NewRedisQueue(client.Client), limit, drain)
		if err != nil {
			return err
		}

		var text strings.Builder
		for _, r := range reports {
			fmt.Fprintf(&text, "%s  %-20s day=%s leads=%d retained=%t run=%s: %s\n",
				r.At.Format(time.RFC3339), r.Tenant, r.Day, r.Leads, r.Retained, r.RunID, r.Error)
		}
		if len(reports) == 0 {
			text.WriteString("no lost reports\n")
		}
		fmt.Fprintf(&text, "%d remaining in log", remaining)

		return printResult(cmd, map[string]any{
			"reports":   reports,
			"remaining": remaining,
		}, text.String())
	},
}

type lostReportLog interface {
	Pop(ctx context.Context, timeout time.Duration) (*queue.LostReport, error)
	List(ctx context.Context, limit int64) ([]*queue.LostReport, error)
	Length(ctx context.Context) (int64, error)
}

// readLostReports lists (or with drain, removes) up to limit reports and
// returns how many are left in the log afterwards.
func readLostReports(ctx context.Context, q lostReportLog, limit int64, drain bool) ([]*queue.LostReport, int64, error) {
	var reports []*queue.LostReport
	if drain {
		for int64(len(reports)) < limit {
			report, err := q.Pop(ctx, time.Second)
			if errors.Is(err, queue.ErrTimeout) {
				break
			}
			if err != nil {
				return nil, 0, err
			}
			reports = append(reports, report)
		}
	} else {
		var err error
		reports, err = q.List(ctx, limit)
		if err != nil {
			return nil, 0, err
		}
	}

	remaining, err := q.Length(ctx)
	if err != nil {
		return nil, 0, err
	}
	return reports, remaining, nil
}

func init() {
	digestLostCmd.Flags().Int64("limit", 100, "Maximum reports to show")
	digestLostCmd.Flags().Bool("drain", false, "Remove the reports after showing them")

	digestCmd.AddCommand(digestLostCmd)
	digestCmd.AddCommand(digestRunCmd)
	rootCmd.AddCommand(digestCmd)
}
