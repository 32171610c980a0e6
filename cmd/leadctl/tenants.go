package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mysqft/leadcapture/internal/core"
	"github.com/mysqft/leadcapture/internal/storage/postgres"
)

var tenantsCmd = &cobra.Command{
	Use:   "tenants",
	Short: "Inspect tenants",
}

var tenantsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active tenants as the API directory would load them",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}

		db, err := postgres.NewConnection(cfg.Database, cfg.Tenancy.Timezone)
		if err != nil {
			return err
		}
		defer db.Close()

		tenants, err := db.ListActiveTenants(cmd.Context())
		if err != nil {
			return err
		}

		today := core.DateOf(time.Now().In(cfg.Tenancy.Location()))

		var text strings.Builder
		w := tabwriter.NewWriter(&text, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tNAME\tPLAN\tEXPIRES\tDAYS LEFT\tFIELDS")
		for _, t := range tenants {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
				t.Key, t.Name, t.Plan, t.PlanExpiry.Format(time.DateOnly), t.DaysLeft(today), strings.Join(t.Fields, ","))
		}
		if err := w.Flush(); err != nil {
			return err
		}

		return printResult(cmd, tenants, strings.TrimRight(text.String(), "\n"))
	},
}

func init() {
	tenantsCmd.AddCommand(tenantsListCmd)
	rootCmd.AddCommand(tenantsCmd)
}
