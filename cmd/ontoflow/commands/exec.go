package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ontoflow/ontoflow/pkg/stores"
	"github.com/ontoflow/ontoflow/pkg/telemetry"
	"github.com/ontoflow/ontoflow/pkg/workflow"
)

func newExecCommand() *cobra.Command {
	var params []string

	cmd := &cobra.Command{
		Use:   "exec <handler> [input text]",
		Short: "Execute a business handler",
		Long: `Execute a handler against free-form input text. Parameters are extracted
from the text by the handler's patterns; values passed with --param override
extracted ones. Steps run in position order and the whole execution fails on
the first step error. Rules run afterwards and never affect the result.`,
		Example: `  # Let extraction pull the parameters out of the text
  ontoflow exec create_order "new order for Jane Doe"

  # Override or supply parameters directly
  ontoflow exec create_order --param client_name="John Smith"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			handlerName := args[0]
			input := strings.Join(args[1:], " ")

			callerParams := make(map[string]any, len(params))
			for _, pair := range params {
				key, value, ok := strings.Cut(pair, "=")
				if !ok {
					return fmt.Errorf("parameter %q is not in key=value form", pair)
				}
				callerParams[key] = value
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			engine, err := a.newEngine()
			if err != nil {
				return err
			}
			toolset, err := a.newToolset()
			if err != nil {
				return err
			}

			a.tel.Events.Publish(telemetry.Event{
				Type: telemetry.EventTypeExecutionStarted, Handler: handlerName,
			})

			outcome := engine.Execute(ctx, handlerName, input, callerParams, toolset)

			a.tel.Events.Publish(telemetry.Event{
				Type: telemetry.EventTypeExecutionFinished, Handler: handlerName,
				ExecutionID: outcome.ExecutionID,
			})
			details := marshalOutcomeDetails(outcome)
			a.audit(ctx, &stores.AuditEntry{
				Action:      stores.AuditWorkflowExecuted,
				Handler:     handlerName,
				ExecutionID: outcome.ExecutionID,
				Details:     details,
			})

			if err := printResult(outcome, func() { printOutcome(outcome) }); err != nil {
				return err
			}
			if !outcome.Success {
				return outcome.Err
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&params, "param", "p", nil, "parameter (key=value), overrides extraction")
	return cmd
}

// marshalOutcomeDetails summarizes an outcome for the audit trail.
func marshalOutcomeDetails(outcome *workflow.Outcome) *string {
	summary := map[string]any{
		"phase":   outcome.Phase,
		"success": outcome.Success,
		"notes":   len(outcome.Notes),
	}
	if outcome.Err != nil {
		summary["error"] = outcome.Err.Code
	}
	blob, err := json.Marshal(summary)
	if err != nil {
		return nil
	}
	s := string(blob)
	return &s
}

func printOutcome(outcome *workflow.Outcome) {
	status := "succeeded"
	if !outcome.Success {
		status = "failed"
	}
	fmt.Printf("Execution %s %s (%s)\n", outcome.ExecutionID, status,
		outcome.FinishedAt.Sub(outcome.StartedAt).Round(0))

	if len(outcome.Extracted) > 0 {
		fmt.Println("Extracted:")
		for slot, value := range outcome.Extracted {
			fmt.Printf("  %s = %s\n", slot, value)
		}
	}
	if len(outcome.Results) > 0 {
		fmt.Println("Results:")
		for action, result := range outcome.Results {
			fmt.Printf("  %s = %v\n", action, result)
		}
	}
	if outcome.Payload != nil {
		fmt.Printf("Payload: %v\n", outcome.Payload)
	}
	for _, note := range outcome.Notes {
		fmt.Printf("Note: %s/%s: %s\n", note.Condition, note.Action, note.Message)
	}
	if outcome.Err != nil {
		fmt.Printf("Error: %v\n", outcome.Err)
	}
}
