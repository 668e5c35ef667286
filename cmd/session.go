package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSessionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect or clear persisted session state",
		Long: `Sessions persist only whether the results panel was showing and the name
of the last loaded file. Browser sessions are keyed by their cookie ID; the
CLI uses the key "cli" unless --session is given.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show [key]",
		Short: "Show the persisted state for a session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := sessionKeyArg(args)
			store, err := a.store()
			if err != nil {
				return err
			}
			st, ok, err := store.Load(key)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintf(cmd.OutOrStdout(), "No state stored for session %q\n", key)
				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Session:         %s\n", key)
			fmt.Fprintf(cmd.OutOrStdout(), "Results visible: %t\n", st.ResultsVisible)
			fmt.Fprintf(cmd.OutOrStdout(), "Last file:       %s\n", st.FileName)
			fmt.Fprintf(cmd.OutOrStdout(), "Updated:         %s\n", st.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset [key]",
		Short: "Clear the persisted state for a session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := sessionKeyArg(args)
			factory, err := a.sessionFactory()
			if err != nil {
				return err
			}
			sess, err := factory(key)
			if err != nil {
				return err
			}
			// Reset clears the stored state through the persistence binding
			sess.Reset()
			fmt.Fprintf(cmd.OutOrStdout(), "Session %q reset\n", key)
			return nil
		},
	})

	return cmd
}

func sessionKeyArg(args []string) string {
	if len(args) == 1 {
		return args[0]
	}
	return defaultSessionKey
}
