package harness

// Trace event types.
const (
	TraceForwarded = "forwarded"
	TraceRejected  = "rejected"
	TraceQueued    = "queued"
	TraceDrained   = "drained"
)

// TraceEvent is one observable effect of a scenario step.
type TraceEvent struct {
	Type    string         `json:"type"`
	Step    int            `json:"step"`
	Method  string         `json:"method,omitempty"`
	Args    map[string]any `json:"args,omitempty"`
	Records []string       `json:"records,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Trace holds consumer calls, queue insertions and drains in step order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Pending is the queue content after the last step, oldest first.
	Pending []string `json:"pending"`

	drained []string
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Trace:   []TraceEvent{},
		Errors:  []string{},
		Pending: []string{},
	}
}

// AddError records an assertion failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Drained returns every record returned by drain steps, in order.
func (r *Result) Drained() []string {
	return r.drained
}

func (r *Result) addCall(kind string, step int, method string, args map[string]any) {
	r.Trace = append(r.Trace, TraceEvent{Type: kind, Step: step, Method: method, Args: args})
}

func (r *Result) addQueued(step int, records []string) {
	r.Trace = append(r.Trace, TraceEvent{Type: TraceQueued, Step: step, Records: records})
}

func (r *Result) addDrained(step int, records []string) {
	r.drained = append(r.drained, records...)
	r.Trace = append(r.Trace, TraceEvent{Type: TraceDrained, Step: step, Records: records})
}
