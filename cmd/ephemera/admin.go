package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dukerupert/ephemera/internal/model"
	"github.com/dukerupert/ephemera/internal/store"
)

func newAdminCmd(a *app) *cobra.Command {
	admin := &cobra.Command{
		Use:   "admin",
		Short: "Administrative tasks",
	}
	admin.AddCommand(
		newAdminNotesCmd(a),
		newStaffCmd(a, "grant-staff", true),
		newStaffCmd(a, "revoke-staff", false),
	)
	return admin
}

func newAdminNotesCmd(a *app) *cobra.Command {
	var owner int64

	cmd := &cobra.Command{
		Use:   "notes",
		Short: "List note metadata, expired notes included",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			summaries, err := store.NewNoteStore(db, nil).ListSummaries(cmd.Context(), model.NoteSummaryFilter{OwnerID: owner})
			if err != nil {
				return err
			}

			now := time.Now()
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tOWNER\tCREATED\tEXPIRES\tSTATUS")
			for _, s := range summaries {
				status := "active"
				if !s.ExpiresAt.After(now) {
					status = "expired"
				}
				fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\n", s.ID, s.OwnerID,
					s.CreatedAt.Format(time.RFC3339), s.ExpiresAt.Format(time.RFC3339), status)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().Int64Var(&owner, "owner", 0, "only show notes of this user id")
	return cmd
}

func newStaffCmd(a *app, use string, staff bool) *cobra.Command {
	short := "Allow a user to view note metadata"
	if !staff {
		short = "Remove a user's access to note metadata"
	}
	return &cobra.Command{
		Use:   use + " <username>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := store.NewUserStore(db).SetStaff(cmd.Context(), args[0], staff); err != nil {
				if errors.Is(err, model.ErrNotFound) {
					return fmt.Errorf("no user named %q", args[0])
				}
				return err
			}
			a.logger.Info("staff flag updated", "username", args[0], "is_staff", staff)
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s (staff=%t)\n", args[0], staff)
			return nil
		},
	}
}
