// Package checker statically inspects submitted code against declarative
// substring rules and produces an ordered pass/fail report.
package checker

import "strings"

// PlaceholderMarker flags code the learner has not finished yet.
const PlaceholderMarker = "todo!"

const (
	NoTodoCheck       = "no_todo"
	StaticChecksCheck = "static_checks"

	mustIncludePrefix    = "must include: "
	mustNotIncludePrefix = "must not include: "

	noTodoMessage       = "Replace todo! with working Rust code."
	staticChecksMessage = "Static checks passed."
	okMessage           = "ok"
)

// Spec lists the substrings a submission must or must not contain.
// A nil slice behaves like an empty one.
type Spec struct {
	MustInclude    []string
	MustNotInclude []string
}

// CheckKind identifies which rule produced a result.
type CheckKind string

const (
	KindNoTodo         CheckKind = "no_todo"
	KindMustInclude    CheckKind = "must_include"
	KindMustNotInclude CheckKind = "must_not_include"
	KindStaticChecks   CheckKind = "static_checks"
)

// Result is the outcome of a single check.
type Result struct {
	Name    string
	Kind    CheckKind
	Pass    bool
	Message string
}

// Report is the ordered set of results for one submission.
type Report struct {
	Success bool
	Results []Result
}

// Evaluate runs the placeholder rule, then every must-include and
// must-not-include rule in input order. When no rule produced a result a
// single passing static_checks entry is reported, so Results is never empty.
func Evaluate(code string, spec Spec) Report {
	results := make([]Result, 0, 1+len(spec.MustInclude)+len(spec.MustNotInclude))

	if strings.Contains(code, PlaceholderMarker) {
		results = append(results, Result{Name: NoTodoCheck, Kind: KindNoTodo, Pass: false, Message: noTodoMessage})
	}

	for _, snippet := range spec.MustInclude {
		pass := strings.Contains(code, snippet)
		message := okMessage
		if !pass {
			message = "Missing required snippet: " + snippet
		}
		results = append(results, Result{Name: mustIncludePrefix + snippet, Kind: KindMustInclude, Pass: pass, Message: message})
	}

	for _, snippet := range spec.MustNotInclude {
		pass := !strings.Contains(code, snippet)
		message := okMessage
		if !pass {
			message = "Remove forbidden snippet: " + snippet
		}
		results = append(results, Result{Name: mustNotIncludePrefix + snippet, Kind: KindMustNotInclude, Pass: pass, Message: message})
	}

	if len(results) == 0 {
		results = append(results, Result{Name: StaticChecksCheck, Kind: KindStaticChecks, Pass: true, Message: staticChecksMessage})
	}

	success := true
	for _, result := range results {
		if !result.Pass {
			success = false
			break
		}
	}

	return Report{Success: success, Results: results}
}
