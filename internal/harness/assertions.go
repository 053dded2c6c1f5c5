package harness

import (
	"fmt"
	"slices"
	"strings"
)

// AssertionError is returned when an assertion fails. It carries the trace
// so a failure can be read without rerunning the scenario.
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
	for i, ev := range e.Trace {
		switch ev.Type {
		case TraceForwarded, TraceRejected:
			fmt.Fprintf(&buf, "  [%d] step %d %s %s %v\n", i+1, ev.Step, ev.Type, ev.Method, ev.Args)
		default:
			fmt.Fprintf(&buf, "  [%d] step %d %s %q\n", i+1, ev.Step, ev.Type, ev.Records)
		}
	}

	return buf.String()
}

// EvaluateAssertions evaluates every assertion against the result and
// returns one message per failure.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertForwardedContains:
			err = assertForwardedContains(result.Trace, a)
		case AssertForwardedCount:
			err = assertForwardedCount(result.Trace, a)
		case AssertQueued:
			err = assertRecords(AssertQueued, result.Pending, a, result.Trace)
		case AssertDrained:
			err = assertRecords(AssertDrained, result.Drained(), a, result.Trace)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, a.Type)
		}
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func assertForwardedContains(trace []TraceEvent, a Assertion) error {
	for _, ev := range trace {
		if ev.Type == TraceForwarded && ev.Method == a.Method && matchArgs(ev.Args, a.Args) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertForwardedContains,
		Expected: fmt.Sprintf("call %s with args %v", a.Method, a.Args),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

func assertForwardedCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range trace {
		if ev.Type == TraceForwarded && ev.Method == a.Method {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertForwardedCount,
			Expected: fmt.Sprintf("%s forwarded %d times", a.Method, a.Count),
			Actual:   fmt.Sprintf("%d times", count),
			Trace:    trace,
		}
	}
	return nil
}

func assertRecords(kind string, actual []string, a Assertion, trace []TraceEvent) error {
	want := a.Records
	if want == nil {
		want = []string{}
	}
	got := actual
	if got == nil {
		got = []string{}
	}
	if !slices.Equal(got, want) {
		return &AssertionError{
			Type:     kind,
			Expected: fmt.Sprintf("%q", want),
			Actual:   fmt.Sprintf("%q", got),
			Trace:    trace,
		}
	}
	return nil
}

// matchArgs reports whether every expected key is present in actual with an
// equal value. Extra keys in actual are fine.
func matchArgs(actual, expected map[string]any) bool {
	for key, want := range expected {
		got, ok := actual[key]
		if !ok || !valuesEqual(got, want) {
			return false
		}
	}
	return true
}

// valuesEqual compares a forwarded value with a YAML-decoded one. YAML
// integers decode as int while payload timestamps are int64, so scalars are
// compared by their printed form.
func valuesEqual(actual, expected any) bool {
	if actual == nil || expected == nil {
		return actual == nil && expected == nil
	}
	return fmt.Sprint(actual) == fmt.Sprint(expected)
}
