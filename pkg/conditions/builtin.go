package conditions

// builtinConditions are always available without explicit registration.
// Each is a Rego module whose allow rule decides whether the condition holds
// for the input document {"results": <intermediate step results>}.
var builtinConditions = map[string]string{
	// always holds unconditionally, useful for unconditional advisory actions.
	"always": `package ontoflow.conditions.always

import rego.v1

allow := true
`,

	// never is the complement, useful for disabling a rule without removing it.
	"never": `package ontoflow.conditions.never

import rego.v1

allow := false
`,

	// has_results holds when at least one step produced a result.
	"has_results": `package ontoflow.conditions.has_results

import rego.v1

default allow := false

allow if {
	count(input.results) > 0
}
`,
}
