package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ontoflow/ontoflow/pkg/ontology"
)

func newSearchCommand() *cobra.Command {
	var (
		searchType string
		topK       int
	)

	cmd := &cobra.Command{
		Use:   "search <text>",
		Short: "Search the knowledge base",
		Long: `Search class names, property names and labels, and instance property
values. Schema hits rank above instance value hits; results come back
highest score first.`,
		Example: `  ontoflow search client
  ontoflow search "Jane" --type instances --top 5`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			a.tel.Metrics.RecordSearch(searchType)

			results := ontology.NewIntrospector(a.schema, a.instances).
				SearchSemantic(ctx, strings.Join(args, " "), ontology.SearchType(searchType), topK)
			return printResult(results, func() {
				if len(results) == 0 {
					fmt.Println("No matches")
					return
				}
				for _, r := range results {
					if r.Detail != "" {
						fmt.Printf("%.2f\t%s\t%s\t%s\n", r.Score, r.Kind, r.Name, r.Detail)
						continue
					}
					fmt.Printf("%.2f\t%s\t%s\n", r.Score, r.Kind, r.Name)
				}
			})
		},
	}

	cmd.Flags().StringVar(&searchType, "type", string(ontology.SearchAll), "search scope (all, classes, properties, instances)")
	cmd.Flags().IntVar(&topK, "top", 10, "maximum number of results")
	return cmd
}
