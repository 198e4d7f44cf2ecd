package core

// diff.go builds the structured payload stored with every audit entry.
//
// AuditPayload is a closed sum type: CreatedPayload, UpdatedPayload and
// ImportedPayload are its only members. Stores never see the Go types; they
// persist the JSON produced by MarshalPayload, which is tagged by "action".

import (
	"encoding/json"
	"fmt"
	"slices"
)

// AuditAction discriminates audit payloads.
type AuditAction string

const (
	ActionCreated  AuditAction = "created"
	ActionUpdated  AuditAction = "updated"
	ActionImported AuditAction = "imported"
)

// AuditPayload is implemented only by the payload types in this file.
type AuditPayload interface {
	Action() AuditAction
	sealed()
}

// CreatedPayload records a lead created through the API.
type CreatedPayload struct {
	Snapshot Record
}

// UpdatedPayload records the tracked fields that changed in an update.
type UpdatedPayload struct {
	Changes map[string]FieldChange
}

// ImportedPayload records a lead created by a bulk import.
type ImportedPayload struct {
	Source   ImportFormat
	Snapshot Record
}

func (CreatedPayload) Action() AuditAction  { return ActionCreated }
func (UpdatedPayload) Action() AuditAction  { return ActionUpdated }
func (ImportedPayload) Action() AuditAction { return ActionImported }

func (CreatedPayload) sealed()  {}
func (UpdatedPayload) sealed()  {}
func (ImportedPayload) sealed() {}

// FieldChange holds the absent-normalized before and after values of one
// field. nil means absent.
type FieldChange struct {
	From any `json:"from"`
	To   any `json:"to"`
}

// Diff returns the tracked fields whose absent-normalized values differ
// between prev and next. Unchanged fields are omitted.
func Diff(prev, next Record) map[string]FieldChange {
	changes := make(map[string]FieldChange)
	for _, field := range TrackedFields {
		from := prev.trackedValue(field)
		to := next.trackedValue(field)
		if !valuesEqual(from, to) {
			changes[field] = FieldChange{From: from, To: to}
		}
	}
	return changes
}

// trackedValue returns a field as string, int or []string, or nil when absent.
func (r Record) trackedValue(field string) any {
	switch field {
	case FieldBudgetMin:
		if r.BudgetMin == nil {
			return nil
		}
		return *r.BudgetMin
	case FieldBudgetMax:
		if r.BudgetMax == nil {
			return nil
		}
		return *r.BudgetMax
	case FieldTags:
		if len(r.Tags) == 0 {
			return nil
		}
		return slices.Clone(r.Tags)
	}
	if s := r.FieldString(field); s != "" {
		return s
	}
	return nil
}

func valuesEqual(a, b any) bool {
	as, aList := a.([]string)
	bs, bList := b.([]string)
	if aList || bList {
		return aList && bList && slices.Equal(as, bs)
	}
	return a == b
}

// payloadJSON is the uniform wire form for every payload variant.
type payloadJSON struct {
	Action   AuditAction            `json:"action"`
	Source   ImportFormat           `json:"source,omitempty"`
	Snapshot *Record                `json:"snapshot,omitempty"`
	Changes  map[string]FieldChange `json:"changes,omitempty"`
}

// MarshalPayload serializes p for storage.
func MarshalPayload(p AuditPayload) ([]byte, error) {
	wire := payloadJSON{Action: p.Action()}
	switch v := p.(type) {
	case CreatedPayload:
		snap := v.Snapshot
		wire.Snapshot = &snap
	case ImportedPayload:
		snap := v.Snapshot
		wire.Snapshot = &snap
		wire.Source = v.Source
	case UpdatedPayload:
		wire.Changes = v.Changes
		if wire.Changes == nil {
			wire.Changes = map[string]FieldChange{}
		}
	default:
		return nil, fmt.Errorf("marshal payload: unknown type %T", p)
	}
	return json.Marshal(wire)
}

// UnmarshalPayload restores a payload written by MarshalPayload. Numbers in
// UpdatedPayload changes decode as float64, as with any JSON object.
func UnmarshalPayload(data []byte) (AuditPayload, error) {
	var wire payloadJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}

	switch wire.Action {
	case ActionCreated:
		if wire.Snapshot == nil {
			return nil, fmt.Errorf("unmarshal payload: %s without snapshot", wire.Action)
		}
		return CreatedPayload{Snapshot: *wire.Snapshot}, nil
	case ActionImported:
		if wire.Snapshot == nil {
			return nil, fmt.Errorf("unmarshal payload: %s without snapshot", wire.Action)
		}
		return ImportedPayload{Source: wire.Source, Snapshot: *wire.Snapshot}, nil
	case ActionUpdated:
		changes := wire.Changes
		if changes == nil {
			changes = map[string]FieldChange{}
		}
		return UpdatedPayload{Changes: changes}, nil
	default:
		return nil, fmt.Errorf("unmarshal payload: unknown action %q", wire.Action)
	}
}
