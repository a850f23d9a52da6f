package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAuditCommand() *cobra.Command {
	var (
		action string
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "List the audit trail",
		Long: `List audit entries newest first. The audit trail records schema changes,
instance mutations, handler registrations, and workflow executions. Requires
persistence to be enabled.`,
		Example: `  ontoflow audit
  ontoflow audit --action workflow.executed --limit 20`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			if a.store == nil {
				return fmt.Errorf("persistence is disabled, no audit trail available")
			}

			entries, err := a.store.ListAudit(ctx, action, limit, offset)
			if err != nil {
				return err
			}
			return printResult(entries, func() {
				if len(entries) == 0 {
					fmt.Println("No audit entries")
					return
				}
				for _, e := range entries {
					subject := e.InstanceID
					if subject == "" {
						subject = e.Class
					}
					if subject == "" {
						subject = e.Handler
					}
					fmt.Printf("%d\t%s\t%s\t%s\n",
						e.ID, e.Timestamp.Format("2006-01-02 15:04:05"), e.Action, subject)
				}
			})
		},
	}

	cmd.Flags().StringVar(&action, "action", "", "filter by audit action")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum entries (0 for all)")
	cmd.Flags().IntVar(&offset, "offset", 0, "entries to skip")
	return cmd
}
