package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ontoflow/ontoflow/pkg/ontology"
)

func newDescribeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "describe",
		Short: "Describe the whole ontology",
		Long: `Print every class with its properties and instance count, plus the
flattened property list across classes. The description is computed from
live state, never cached.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			desc := ontology.NewIntrospector(a.schema, a.instances).DescribeOntology()
			return printResult(desc, func() {
				if len(desc.Classes) == 0 {
					fmt.Println("Ontology is empty")
					return
				}
				for _, class := range desc.Classes {
					fmt.Printf("%s (%d instances)\n", class.Name, class.InstanceCount)
					for _, p := range class.Properties {
						printProperty(p)
					}
				}
			})
		},
	}
}

func newQueryCommand() *cobra.Command {
	var class string

	cmd := &cobra.Command{
		Use:   "query <kind>",
		Short: "Run a structured introspection query",
		Long: `Query the knowledge base structurally. Kind is one of classes,
properties, or instances; --class narrows properties and instances to one
class. An unknown kind is an error, not an empty result.`,
		Example: `  ontoflow query classes
  ontoflow query properties --class Client
  ontoflow query instances --class Order`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			result, err := ontology.NewIntrospector(a.schema, a.instances).
				Query(ontology.QueryKind(args[0]), class)
			if err != nil {
				return err
			}
			return printResult(result, func() {
				switch v := result.(type) {
				case []*ontology.ClassDefinition:
					for _, c := range v {
						fmt.Printf("%s\t%d properties\n", c.Name, len(c.Properties))
					}
				case []ontology.PropertySummary:
					for _, p := range v {
						fmt.Printf("%s.%s\t%s\n", p.Class, p.Name, p.Type)
					}
				case []*ontology.Instance:
					for _, inst := range v {
						fmt.Printf("%s\t%s\n", inst.ID, inst.Class)
					}
				}
			})
		},
	}

	cmd.Flags().StringVar(&class, "class", "", "restrict to one class")
	return cmd
}
