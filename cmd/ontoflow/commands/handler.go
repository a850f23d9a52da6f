package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ontoflow/ontoflow/pkg/config"
	"github.com/ontoflow/ontoflow/pkg/handlers"
	"github.com/ontoflow/ontoflow/pkg/stores"
	"github.com/ontoflow/ontoflow/pkg/telemetry"
)

func newHandlerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "handler",
		Short: "Manage business handlers",
	}
	cmd.AddCommand(newHandlerRegisterCommand())
	cmd.AddCommand(newHandlerListCommand())
	cmd.AddCommand(newHandlerShowCommand())
	return cmd
}

func newHandlerRegisterCommand() *cobra.Command {
	var (
		file string
		dir  string
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register handlers from YAML definition files",
		Long: `Register one handler from a file, or every handler found in a directory.
Registering a handler whose name is taken replaces the previous definition.
Handlers reference actions by name; the actions only have to exist when the
handler executes.`,
		Example: `  # Register a single handler
  ontoflow handler register -f handlers/create_order.yaml

  # Register a whole directory
  ontoflow handler register -d handlers/`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if (file == "") == (dir == "") {
				return fmt.Errorf("exactly one of --file or --dir is required")
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			var defs []*handlers.Definition
			if file != "" {
				def, err := config.LoadHandlerDefinition(file)
				if err != nil {
					return err
				}
				defs = []*handlers.Definition{def}
			} else {
				defs, err = config.LoadHandlerDefinitions(dir)
				if err != nil {
					return err
				}
			}

			for _, def := range defs {
				if err := a.handlers.Register(def); err != nil {
					return err
				}
				if a.store != nil {
					if err := a.store.SaveHandler(ctx, def); err != nil {
						return err
					}
				}
				a.tel.Events.Publish(telemetry.Event{
					Type: telemetry.EventTypeHandlerRegistered, Handler: def.Name,
				})
				a.audit(ctx, &stores.AuditEntry{
					Action: stores.AuditHandlerRegistered, Handler: def.Name,
				})
				a.tel.Logger.WithHandler(def.Name).Info("Handler registered")
				fmt.Printf("Registered %s\n", def.Name)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "handler definition file")
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "directory of handler definition files")
	return cmd
}

func newHandlerListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered handlers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			summaries := a.handlers.List()
			return printResult(summaries, func() {
				if len(summaries) == 0 {
					fmt.Println("No handlers registered")
					return
				}
				for _, s := range summaries {
					fmt.Printf("%s\t%s\n", s.Name, s.Description)
				}
			})
		},
	}
}

func newHandlerShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show a handler definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			def, ok := a.handlers.Get(args[0])
			if !ok {
				return fmt.Errorf("handler %q is not registered", args[0])
			}
			return printResult(def, func() {
				fmt.Printf("Handler %s\n", def.Name)
				if def.Description != "" {
					fmt.Printf("  %s\n", def.Description)
				}
				for slot, patterns := range def.Extraction {
					fmt.Printf("  extract %s from %v\n", slot, patterns)
				}
				for _, step := range def.OrderedSteps() {
					fmt.Printf("  step %d: %s %v\n", step.Position, step.Action, step.RequiredParams)
				}
				for _, rule := range def.Rules {
					fmt.Printf("  rule: if %s then %s\n", rule.Condition, rule.Action)
				}
			})
		},
	}
}
