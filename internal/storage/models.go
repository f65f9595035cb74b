/*
Package storage provides data models for tool history and preferences.

Both record kinds are partitioned by tool, a lower-case identifier chosen by
the page that produced them. Timestamps are epoch milliseconds.
*/
package storage

// HistoryRecord is a stored snapshot of one tool invocation.
type HistoryRecord struct {
	// ID is assigned on insert and increases monotonically.
	ID int64 `json:"id"`

	// Tool is the grouping key.
	Tool string `json:"tool"`

	// Input is the raw input payload.
	Input []byte `json:"-"`

	// Output is the raw output payload.
	Output []byte `json:"-"`

	// InputType is the MIME type of Input.
	InputType string `json:"inputType"`

	// OutputType is the MIME type of Output.
	OutputType string `json:"outputType"`

	// Params is the JSON-encoded query state at creation time.
	Params string `json:"params"`

	// Label is an optional caller-supplied description.
	Label string `json:"label,omitempty"`

	// CreatedAt is the creation time in epoch milliseconds.
	CreatedAt int64 `json:"createdAt"`
}

// PreferenceRecord holds the preferences of a single tool.
type PreferenceRecord struct {
	// Tool is the primary key.
	Tool string `json:"tool"`

	// Data is a JSON-encoded object.
	Data string `json:"data"`

	// UpdatedAt is the last write time in epoch milliseconds.
	UpdatedAt int64 `json:"updatedAt"`
}

// ToolStat summarizes the history of one tool.
type ToolStat struct {
	Tool     string `json:"tool"`
	Count    int    `json:"count"`
	LastUsed int64  `json:"lastUsed"`
}

// Order selects the creation-time ordering of ListHistory.
type Order int

const (
	// Ascending returns the oldest records first.
	Ascending Order = iota
	// Descending returns the newest records first.
	Descending
)
