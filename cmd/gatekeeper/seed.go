package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/gatekeeper/internal/app"
	"github.com/dropDatabas3/gatekeeper/internal/bootstrap"
)

func newSeedCmd(load loadFunc) *cobra.Command {
	var interactive bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed the default RBAC catalog and the first Super Admin (idempotent)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			st, err := app.OpenStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			res, err := bootstrap.SeedCatalog(ctx, st.RBAC())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "catalog: %d permission(s), %d role(s) created\n", res.Permissions, res.Roles)

			u, err := bootstrap.EnsureAdmin(ctx, bootstrap.AdminConfig{
				Users:    st.Users(),
				Policy:   app.PasswordPolicy(cfg),
				Email:    cfg.Bootstrap.AdminEmail,
				Password: cfg.Bootstrap.AdminPassword,
				Name:     cfg.Bootstrap.AdminName,
				Prompt:   interactive,
				In:       cmd.InOrStdin(),
				Out:      cmd.OutOrStdout(),
			})
			if err != nil {
				return err
			}
			if u != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "super admin: %s (%s)\n", u.Email, u.ID)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Prompt for admin credentials when not configured")
	return cmd
}
