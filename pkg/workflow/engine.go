package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ontoflow/ontoflow/pkg/handlers"
	"github.com/ontoflow/ontoflow/pkg/telemetry"
)

// Engine interprets handler definitions. It is safe for concurrent use:
// every execution accumulates its own Outcome and the engine itself carries
// no per-execution state. Side effects happen only inside toolset actions.
type Engine struct {
	handlers   *handlers.Registry
	conditions ConditionSet
	logger     *telemetry.Logger
	metrics    *telemetry.Metrics
	tracer     *telemetry.Tracer
}

// Option configures an Engine.
type Option func(*Engine)

// WithConditions sets the condition set rules are evaluated against. Without
// one, every rule condition is unknown and recorded as a note.
func WithConditions(cs ConditionSet) Option {
	return func(e *Engine) { e.conditions = cs }
}

// WithMetrics enables execution metrics.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithTracer enables execution tracing.
func WithTracer(t *telemetry.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

// NewEngine creates a workflow engine over the given handler registry.
func NewEngine(registry *handlers.Registry, logger *telemetry.Logger, opts ...Option) *Engine {
	e := &Engine{
		handlers: registry,
		logger:   logger.NewComponentLogger("workflow"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs the named handler against the input text and caller-supplied
// parameters, invoking actions on the given toolset. The returned Outcome is
// always non-nil; Err is set when the run failed.
func (e *Engine) Execute(ctx context.Context, handlerName, input string, params map[string]any, toolset Toolset) *Outcome {
	outcome := &Outcome{
		ExecutionID: uuid.New().String(),
		Handler:     handlerName,
		Phase:       PhaseIdle,
		Results:     make(map[string]any),
		StartedAt:   time.Now(),
	}

	log := e.logger.WithHandler(handlerName).WithExecutionID(outcome.ExecutionID)

	if e.tracer != nil {
		var span telemetry.Span
		ctx, span = e.tracer.StartExecution(ctx, handlerName, outcome.ExecutionID)
		defer func() { span.End(outcome.Success, outcome.Err) }()
	}

	def, ok := e.handlers.Get(handlerName)
	if !ok {
		e.fail(outcome, log, NewError(CodeUnknownHandler,
			fmt.Sprintf("handler %q is not registered", handlerName)).WithHandler(handlerName))
		return outcome
	}

	outcome.Phase = PhaseExtracting
	outcome.Extracted = extract(def, input)

	// Caller-supplied parameters override extracted ones.
	merged := make(map[string]any, len(outcome.Extracted)+len(params))
	for slot, value := range outcome.Extracted {
		merged[slot] = value
	}
	for name, value := range params {
		merged[name] = value
	}

	outcome.Phase = PhaseValidating
	steps := def.OrderedSteps()
	for _, step := range steps {
		for _, param := range step.RequiredParams {
			if _, ok := merged[param]; !ok {
				e.fail(outcome, log, NewError(CodeMissingParameter,
					fmt.Sprintf("required parameter %q is missing", param)).
					WithHandler(handlerName).WithStep(step.Position).
					WithAction(step.Action).WithParameter(param))
				return outcome
			}
		}
	}

	outcome.Phase = PhaseExecuting
	for _, step := range steps {
		action, ok := toolset.Action(step.Action)
		if !ok {
			e.fail(outcome, log, NewError(CodeUnknownAction,
				fmt.Sprintf("action %q is not available on the toolset", step.Action)).
				WithHandler(handlerName).WithStep(step.Position).WithAction(step.Action))
			return outcome
		}

		stepStart := time.Now()
		result, err := action(ctx, stepParams(merged, outcome.Results))
		if e.metrics != nil {
			e.metrics.RecordStep(step.Action, time.Since(stepStart))
		}
		if err != nil {
			e.fail(outcome, log, NewError(CodeStepFailed,
				fmt.Sprintf("step %d failed", step.Position)).
				WithHandler(handlerName).WithStep(step.Position).
				WithAction(step.Action).WithCause(err))
			return outcome
		}

		outcome.Results[step.Action] = result
		outcome.Payload = result
		log.WithField("action", step.Action).Debug("step completed")
	}

	outcome.Phase = PhaseEvaluatingRules
	e.evaluateRules(ctx, def, toolset, merged, outcome, log)

	outcome.Phase = PhaseSucceeded
	outcome.Success = true
	outcome.FinishedAt = time.Now()
	if e.metrics != nil {
		e.metrics.RecordExecution(handlerName, true, outcome.FinishedAt.Sub(outcome.StartedAt))
	}
	log.Info("execution succeeded")
	return outcome
}

// evaluateRules runs every declared rule. Rules are advisory: an unknown
// condition, a condition error, an unknown rule action, or a failing rule
// action is recorded as a note and never fails the run.
func (e *Engine) evaluateRules(ctx context.Context, def *handlers.Definition, toolset Toolset, merged map[string]any, outcome *Outcome, log *telemetry.Logger) {
	for _, rule := range def.Rules {
		var cond ConditionFunc
		ok := false
		if e.conditions != nil {
			cond, ok = e.conditions.Condition(rule.Condition)
		}
		if !ok {
			outcome.Notes = append(outcome.Notes, Note{
				Condition: rule.Condition,
				Action:    rule.Action,
				Message:   "condition is not registered",
			})
			continue
		}

		holds, err := cond(ctx, outcome.Results)
		if err != nil {
			outcome.Notes = append(outcome.Notes, Note{
				Condition: rule.Condition,
				Action:    rule.Action,
				Message:   "condition evaluation failed: " + err.Error(),
			})
			continue
		}
		if !holds {
			continue
		}

		action, ok := toolset.Action(rule.Action)
		if !ok {
			outcome.Notes = append(outcome.Notes, Note{
				Condition: rule.Condition,
				Action:    rule.Action,
				Message:   "rule action is not available on the toolset",
			})
			continue
		}

		result, err := action(ctx, stepParams(merged, outcome.Results))
		if err != nil {
			outcome.Notes = append(outcome.Notes, Note{
				Condition: rule.Condition,
				Action:    rule.Action,
				Message:   "rule action failed: " + err.Error(),
			})
			log.WithField("action", rule.Action).WithError(err).Warn("rule action failed")
			continue
		}
		outcome.Results[rule.Action] = result
	}
}

func (e *Engine) fail(outcome *Outcome, log *telemetry.Logger, err *Error) {
	outcome.Phase = PhaseFailed
	outcome.Success = false
	outcome.Err = err
	outcome.FinishedAt = time.Now()
	if e.metrics != nil {
		e.metrics.RecordExecution(outcome.Handler, false, outcome.FinishedAt.Sub(outcome.StartedAt))
	}
	log.WithError(err).Error("execution failed")
}

// extract runs the handler's extraction patterns against the input text.
// First matching pattern wins per slot; capture group 1 supplies the value
// when present, otherwise the whole match does. Slots with no match are
// simply absent. Extraction never fails the run.
func extract(def *handlers.Definition, input string) map[string]string {
	extracted := make(map[string]string)
	for slot := range def.Extraction {
		for _, re := range def.CompiledPatterns(slot) {
			m := re.FindStringSubmatch(input)
			if m == nil {
				continue
			}
			if len(m) > 1 {
				extracted[slot] = m[1]
			} else {
				extracted[slot] = m[0]
			}
			break
		}
	}
	return extracted
}

// stepParams builds the parameter map an action sees: merged extraction and
// caller parameters, plus earlier results keyed by action identifier.
func stepParams(merged map[string]any, results map[string]any) map[string]any {
	params := make(map[string]any, len(merged)+len(results))
	for k, v := range merged {
		params[k] = v
	}
	for k, v := range results {
		params[k] = v
	}
	return params
}
