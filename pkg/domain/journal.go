package domain

import "time"

// TransitionEntry is one record in a lifecycle journal. Entries are appended
// for every settled transition, committed or failed, including vetoes.
type TransitionEntry struct {
	Module    string         `json:"module"`
	Op        Operation      `json:"op"`
	From      LifecycleState `json:"from"`
	To        LifecycleState `json:"to"`
	Error     string         `json:"error,omitempty"`
	Veto      bool           `json:"veto,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}
