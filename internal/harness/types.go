package harness

// TraceEvent is the outcome of one operation.
type TraceEvent struct {
	Seq      int      `json:"seq"`
	Op       string   `json:"op"`
	Name     string   `json:"name,omitempty"`
	Names    []string `json:"names,omitempty"`
	Index    *int     `json:"index,omitempty"`
	Code     string   `json:"code"`
	Warnings []string `json:"warnings,omitempty"`
	Order    []string `json:"order"`
	Active   []string `json:"active"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expect clause and assertion matched.
	Pass bool `json:"pass"`

	// Trace holds one event per operation, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors holds expectation and assertion failures. Empty if Pass is
	// true.
	Errors []string `json:"errors,omitempty"`

	// Files holds the final content of the order and active files, split
	// into lines.
	Files map[string][]string `json:"files,omitempty"`

	// Journal holds the operations recorded in history, oldest first.
	Journal []string `json:"journal,omitempty"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		Files:  map[string][]string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
