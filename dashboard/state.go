package dashboard

import (
	"encoding/json"
	"fmt"
)

// Kind names one of the five dashboard view states.
type Kind int

const (
	KindUnconfigured Kind = iota
	KindLoading
	KindError
	KindEmpty
	KindReady
)

var kindNames = [...]string{
	KindUnconfigured: "unconfigured",
	KindLoading:      "loading",
	KindError:        "error",
	KindEmpty:        "empty",
	KindReady:        "ready",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// MarshalText renders the kind by name in JSON and logs.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ViewState is what the rendering layer should display right now. It is a
// value: the controller replaces it wholesale on every transition.
type ViewState struct {
	Kind       Kind
	Message    string // set for KindError only
	Generation uint64 // fetch generation that produced this state
	snapshot   *Snapshot
}

// Snapshot returns a copy of the snapshot for KindReady states.
func (s ViewState) Snapshot() (Snapshot, bool) {
	if s.Kind != KindReady || s.snapshot == nil {
		return Snapshot{}, false
	}
	return s.snapshot.clone(), true
}

func (s ViewState) String() string {
	if s.Kind == KindError {
		return fmt.Sprintf("%s(%s)", s.Kind, s.Message)
	}
	return s.Kind.String()
}

// MarshalJSON exposes the state with its snapshot for the JSON endpoint.
func (s ViewState) MarshalJSON() ([]byte, error) {
	out := struct {
		Kind       Kind      `json:"kind"`
		Message    string    `json:"message,omitempty"`
		Generation uint64    `json:"generation"`
		Snapshot   *Snapshot `json:"snapshot,omitempty"`
	}{
		Kind:       s.Kind,
		Message:    s.Message,
		Generation: s.Generation,
	}
	if snap, ok := s.Snapshot(); ok {
		out.Snapshot = &snap
	}
	return json.Marshal(out)
}

func unconfiguredState(gen uint64) ViewState {
	return ViewState{Kind: KindUnconfigured, Generation: gen}
}

func loadingState(gen uint64) ViewState {
	return ViewState{Kind: KindLoading, Generation: gen}
}

func errorState(gen uint64, msg string) ViewState {
	return ViewState{Kind: KindError, Message: msg, Generation: gen}
}

func emptyState(gen uint64) ViewState {
	return ViewState{Kind: KindEmpty, Generation: gen}
}

func readyState(gen uint64, snap *Snapshot) ViewState {
	return ViewState{Kind: KindReady, Generation: gen, snapshot: snap}
}
