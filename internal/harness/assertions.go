package harness

import (
	"fmt"
	"reflect"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes the trace to help debug the failure.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s %s\n", event.Seq, event.Op, event.Code)
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion and returns the failure
// messages, in assertion order.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for _, a := range assertions {
		if err := evaluate(result, a); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion) error {
	switch a.Type {
	case AssertTraceContains:
		return assertTraceContains(result.Trace, a)
	case AssertTraceCount:
		return assertTraceCount(result.Trace, a)
	case AssertFinalState:
		return assertFinalState(result.Trace, a)
	case AssertFileLines:
		return assertFileLines(result, a)
	case AssertHistoryCount:
		return assertHistoryCount(result, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// matches reports whether an event has the assertion's op and, when set,
// its code.
func matches(event TraceEvent, a Assertion) bool {
	return event.Op == a.Op && (a.Code == "" || event.Code == a.Code)
}

func describe(a Assertion) string {
	if a.Code == "" {
		return a.Op
	}
	return a.Op + " with code " + a.Code
}

func assertTraceContains(trace []TraceEvent, a Assertion) error {
	for _, event := range trace {
		if matches(event, a) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: describe(a),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, event := range trace {
		if matches(event, a) {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%s %d times", describe(a), a.Count),
			Actual:   fmt.Sprintf("%d times", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalState compares against the state after the last event.
func assertFinalState(trace []TraceEvent, a Assertion) error {
	if len(trace) == 0 {
		return &AssertionError{Type: AssertFinalState, Expected: "at least one event", Actual: "empty trace"}
	}
	last := trace[len(trace)-1]
	if a.Order != nil && !reflect.DeepEqual(a.Order, last.Order) {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("order %v", a.Order),
			Actual:   fmt.Sprintf("order %v", last.Order),
			Trace:    trace,
		}
	}
	if a.Active != nil && !reflect.DeepEqual(a.Active, last.Active) {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("active %v", a.Active),
			Actual:   fmt.Sprintf("active %v", last.Active),
			Trace:    trace,
		}
	}
	return nil
}

func assertFileLines(result *Result, a Assertion) error {
	got, ok := result.Files[a.File]
	if !ok {
		return &AssertionError{
			Type:     AssertFileLines,
			Expected: fmt.Sprintf("%s file with %v", a.File, a.Lines),
			Actual:   "file not found",
			Trace:    result.Trace,
		}
	}
	want := a.Lines
	if want == nil {
		want = []string{}
	}
	if !reflect.DeepEqual(want, got) {
		return &AssertionError{
			Type:     AssertFileLines,
			Expected: fmt.Sprintf("%s file with %v", a.File, want),
			Actual:   fmt.Sprintf("%v", got),
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertHistoryCount(result *Result, a Assertion) error {
	if len(result.Journal) != a.Count {
		return &AssertionError{
			Type:     AssertHistoryCount,
			Expected: fmt.Sprintf("%d journal entries", a.Count),
			Actual:   fmt.Sprintf("%d: %v", len(result.Journal), result.Journal),
			Trace:    result.Trace,
		}
	}
	return nil
}
