package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/gatekeeper/internal/observability/logger"
	"github.com/dropDatabas3/gatekeeper/internal/store/pg"
	migrations "github.com/dropDatabas3/gatekeeper/migrations/postgres"
)

func newMigrateCmd(load loadFunc) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate up|down [steps]",
		Short:     "Apply or roll back the embedded PostgreSQL migrations",
		Args:      cobra.RangeArgs(1, 2),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			action := strings.ToLower(args[0])
			steps := 0
			if len(args) == 2 {
				n, err := strconv.Atoi(args[1])
				if err != nil || n < 0 {
					return fmt.Errorf("steps must be a non-negative integer")
				}
				steps = n
			}

			cfg, err := load()
			if err != nil {
				return err
			}
			if cfg.Storage.Driver != "postgres" {
				return errors.New("migrate requires storage.driver=postgres")
			}
			ctx := cmd.Context()
			st, err := pg.New(ctx, cfg.Storage.DSN, pg.PoolConfig{})
			if err != nil {
				return err
			}
			defer st.Close()

			m := pg.NewMigrator(st.Pool(), migrations.FS)
			var n int
			switch action {
			case "up":
				n, err = m.Up(ctx, steps)
			case "down":
				n, err = m.Down(ctx, steps)
			default:
				return fmt.Errorf("unknown action %q (use up or down)", action)
			}
			if err != nil {
				return err
			}
			logger.L().Info("migrations applied", logger.String("action", action), logger.Int("count", n))
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d migration(s)\n", action, n)
			return nil
		},
	}
}
