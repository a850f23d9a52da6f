package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ontoflow/ontoflow/pkg/ontology"
	"github.com/ontoflow/ontoflow/pkg/stores"
	"github.com/ontoflow/ontoflow/pkg/telemetry"
)

func newClassCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "class",
		Short: "Manage ontology classes",
	}
	cmd.AddCommand(newClassDefineCommand())
	cmd.AddCommand(newClassListCommand())
	cmd.AddCommand(newClassShowCommand())
	return cmd
}

func newClassDefineCommand() *cobra.Command {
	var properties []string

	cmd := &cobra.Command{
		Use:   "define <name>",
		Short: "Define a class or add properties to an existing one",
		Long: `Define a class with typed properties. Defining an existing class again
merges: new properties are appended, matching redeclarations are ignored,
and a type conflict on an existing property fails the whole call.

Property syntax is name:type with type one of string, integer, float,
boolean, or reference. Reference properties take the referenced class as a
third segment; the class may be defined later.`,
		Example: `  # Define a class
  ontoflow class define Client -p name:string -p age:integer

  # Grow it later
  ontoflow class define Client -p balance:float

  # Reference another class
  ontoflow class define Order -p client:reference:Client -p total:float`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name := args[0]

			props, err := parsePropertyFlags(properties)
			if err != nil {
				return err
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			def, err := a.schema.DefineClass(name, props)
			if err != nil {
				return err
			}
			if a.store != nil {
				if err := a.store.SaveClass(ctx, def); err != nil {
					return err
				}
			}

			a.tel.Metrics.RecordClassDefined()
			a.tel.Events.Publish(telemetry.Event{
				Type: telemetry.EventTypeClassDefined, Class: def.Name,
			})
			a.audit(ctx, &stores.AuditEntry{Action: stores.AuditClassDefined, Class: def.Name})
			a.tel.Logger.WithClass(def.Name).Info("Class defined")

			return printResult(def, func() {
				fmt.Printf("Class %s (%d properties)\n", def.Name, len(def.Properties))
				for _, p := range def.Properties {
					printProperty(p)
				}
			})
		},
	}

	cmd.Flags().StringSliceVarP(&properties, "property", "p", nil, "property (name:type[:ref_class])")
	return cmd
}

func newClassListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List defined classes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			classes := a.schema.ListClasses()
			return printResult(classes, func() {
				if len(classes) == 0 {
					fmt.Println("No classes defined")
					return
				}
				for _, class := range classes {
					fmt.Printf("%s\t%d properties\t%d instances\n",
						class.Name, len(class.Properties), a.instances.CountInstances(class.Name))
				}
			})
		},
	}
}

func newClassShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show a class definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			def, ok := a.schema.GetClass(args[0])
			if !ok {
				return fmt.Errorf("class %q is not defined", args[0])
			}
			return printResult(def, func() {
				fmt.Printf("Class %s (defined %s)\n", def.Name, def.CreatedAt.Format("2006-01-02 15:04:05"))
				for _, p := range def.Properties {
					printProperty(p)
				}
			})
		},
	}
}

func printProperty(p ontology.PropertyDefinition) {
	if p.Type == ontology.TypeReference {
		fmt.Printf("  %s\t%s -> %s\n", p.Name, p.Type, p.RefClass)
		return
	}
	fmt.Printf("  %s\t%s\n", p.Name, p.Type)
}

// parsePropertyFlags converts name:type[:ref_class] flags into property
// definitions.
func parsePropertyFlags(flags []string) ([]ontology.PropertyDefinition, error) {
	props := make([]ontology.PropertyDefinition, 0, len(flags))
	for _, flag := range flags {
		parts := strings.SplitN(flag, ":", 3)
		if len(parts) < 2 {
			return nil, fmt.Errorf("property %q is not in name:type form", flag)
		}
		prop := ontology.PropertyDefinition{
			Name: parts[0],
			Type: ontology.PropertyType(parts[1]),
		}
		if len(parts) == 3 {
			prop.RefClass = parts[2]
		}
		if prop.Type == ontology.TypeReference && prop.RefClass == "" {
			return nil, fmt.Errorf("property %q: reference type requires a referenced class", prop.Name)
		}
		props = append(props, prop)
	}
	return props, nil
}
