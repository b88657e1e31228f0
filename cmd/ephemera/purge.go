package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dukerupert/ephemera/internal/purge"
	"github.com/dukerupert/ephemera/internal/store"
)

func newPurgeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "purge-expired",
		Short: "Delete every note whose expiry has passed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			// Purging never reads the encrypted columns, so no cipher is needed.
			notes := store.NewNoteStore(db, nil)
			n, err := purge.NewScheduler(notes, 0, a.logger).RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Successfully deleted %d expired notes\n", n)
			return nil
		},
	}
}
