package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/MakerOfWyverns/dcc-plug-ins/internal/validation"
)

func newJournalCmd(a *app) *cobra.Command {
	var (
		limit   int
		offset  int
		session string
	)
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "List journaled repairs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.openJournal()
			if err != nil {
				return err
			}
			if db == nil {
				return errors.New("journal is disabled (journal.enabled: false)")
			}
			defer db.Close()

			rows, err := db.List(cmd.Context(), session, limit, offset)
			if err != nil {
				return err
			}
			sum, err := db.Summary(cmd.Context(), session)
			if err != nil {
				return err
			}

			w := out(cmd)
			fmt.Fprintf(w, "Repairs: %d repaired, %d failed, %d faults\n",
				sum[validation.OutcomeRepaired], sum[validation.OutcomeFailed], sum[validation.OutcomeFault])
			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTIME\tSESSION\tRULE\tOUTCOME\tMESSAGE")
			for _, r := range rows {
				fmt.Fprintf(tw, "%d\t%s\t%.8s\t%s\t%s\t%s\n",
					r.ID, r.At.Format("2006-01-02 15:04:05"), r.SessionID, r.Rule, r.Outcome, r.Message)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "Rows to show")
	cmd.Flags().IntVar(&offset, "offset", 0, "Rows to skip")
	cmd.Flags().StringVar(&session, "session", "", "Only this session id")
	return cmd
}
