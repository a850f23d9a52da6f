package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ontoflow/ontoflow/pkg/ontology"
	"github.com/ontoflow/ontoflow/pkg/stores"
	"github.com/ontoflow/ontoflow/pkg/telemetry"
)

func newInstanceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "instance",
		Short: "Manage class instances",
	}
	cmd.AddCommand(newInstanceCreateCommand())
	cmd.AddCommand(newInstanceGetCommand())
	cmd.AddCommand(newInstanceListCommand())
	cmd.AddCommand(newInstanceUpdateCommand())
	cmd.AddCommand(newInstanceDeleteCommand())
	return cmd
}

func newInstanceCreateCommand() *cobra.Command {
	var properties []string

	cmd := &cobra.Command{
		Use:   "create <class>",
		Short: "Create an instance of a class",
		Long: `Create an instance with the given property values. Values are parsed
against the declared property types; reference values must name an existing
instance of the referenced class.`,
		Example: `  ontoflow instance create Client -p name="Jane Doe" -p age=42
  ontoflow instance create Order -p client=client_1a2b3c4d -p total=99.5`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			class, ok := a.schema.GetClass(args[0])
			if !ok {
				return fmt.Errorf("class %q is not defined", args[0])
			}
			props, err := parseTypedProperties(class, properties)
			if err != nil {
				return err
			}

			id, err := a.instances.CreateInstance(class.Name, props)
			if err != nil {
				var oerr *ontology.Error
				if errors.As(err, &oerr) {
					a.tel.Metrics.RecordValidationFailure(oerr.Code)
				}
				return err
			}
			inst, _ := a.instances.GetInstance(id)
			if a.store != nil {
				if err := a.store.SaveInstance(ctx, inst); err != nil {
					return err
				}
			}

			a.tel.Metrics.RecordInstanceCreated(class.Name)
			a.tel.Events.Publish(telemetry.Event{
				Type: telemetry.EventTypeInstanceCreated, Class: class.Name, InstanceID: id,
			})
			a.audit(ctx, &stores.AuditEntry{
				Action: stores.AuditInstanceCreated, Class: class.Name, InstanceID: id,
			})
			a.tel.Logger.WithClass(class.Name).WithInstanceID(id).Info("Instance created")

			return printResult(inst, func() { printInstance(inst) })
		},
	}

	cmd.Flags().StringSliceVarP(&properties, "property", "p", nil, "property value (key=value)")
	return cmd
}

func newInstanceGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show an instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			inst, ok := a.instances.GetInstance(args[0])
			if !ok {
				return fmt.Errorf("instance %q does not exist", args[0])
			}
			return printResult(inst, func() { printInstance(inst) })
		},
	}
}

func newInstanceListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list [class]",
		Short: "List instances, optionally filtered by class",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			className := ""
			if len(args) > 0 {
				className = args[0]
			}
			insts := a.instances.ListInstances(className)
			return printResult(insts, func() {
				if len(insts) == 0 {
					fmt.Println("No instances")
					return
				}
				for _, inst := range insts {
					fmt.Printf("%s\t%s\n", inst.ID, inst.Class)
				}
			})
		},
	}
}

func newInstanceUpdateCommand() *cobra.Command {
	var properties []string

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update property values on an instance",
		Example: `  ontoflow instance update client_1a2b3c4d -p balance=120.5`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			existing, ok := a.instances.GetInstance(args[0])
			if !ok {
				return fmt.Errorf("instance %q does not exist", args[0])
			}
			class, ok := a.schema.GetClass(existing.Class)
			if !ok {
				return fmt.Errorf("class %q is not defined", existing.Class)
			}
			props, err := parseTypedProperties(class, properties)
			if err != nil {
				return err
			}

			if err := a.instances.UpdateInstance(existing.ID, props); err != nil {
				var oerr *ontology.Error
				if errors.As(err, &oerr) {
					a.tel.Metrics.RecordValidationFailure(oerr.Code)
				}
				return err
			}
			inst, _ := a.instances.GetInstance(existing.ID)
			if a.store != nil {
				if err := a.store.SaveInstance(ctx, inst); err != nil {
					return err
				}
			}

			a.tel.Events.Publish(telemetry.Event{
				Type: telemetry.EventTypeInstanceUpdated, Class: inst.Class, InstanceID: inst.ID,
			})
			a.audit(ctx, &stores.AuditEntry{
				Action: stores.AuditInstanceUpdated, Class: inst.Class, InstanceID: inst.ID,
			})

			return printResult(inst, func() { printInstance(inst) })
		},
	}

	cmd.Flags().StringSliceVarP(&properties, "property", "p", nil, "property value (key=value)")
	return cmd
}

func newInstanceDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an instance",
		Long: `Delete an instance. Deletion fails while any other instance still holds
a reference to it; delete the referrers first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			inst, ok := a.instances.GetInstance(args[0])
			if !ok {
				return fmt.Errorf("instance %q does not exist", args[0])
			}
			if err := a.instances.DeleteInstance(inst.ID); err != nil {
				return err
			}
			if a.store != nil {
				if err := a.store.DeleteInstance(ctx, inst.ID); err != nil {
					return err
				}
			}

			a.tel.Metrics.RecordInstanceDeleted(inst.Class)
			a.tel.Events.Publish(telemetry.Event{
				Type: telemetry.EventTypeInstanceDeleted, Class: inst.Class, InstanceID: inst.ID,
			})
			a.audit(ctx, &stores.AuditEntry{
				Action: stores.AuditInstanceDeleted, Class: inst.Class, InstanceID: inst.ID,
			})

			fmt.Printf("Deleted %s\n", inst.ID)
			return nil
		},
	}
}

func printInstance(inst *ontology.Instance) {
	fmt.Printf("%s (%s)\n", inst.ID, inst.Class)
	for name, value := range inst.Properties {
		fmt.Printf("  %s = %v\n", name, value)
	}
}
