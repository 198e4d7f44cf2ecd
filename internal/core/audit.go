package core

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AuditEntry is one immutable change record for a lead.
type AuditEntry struct {
	ID          string       `json:"id"`
	LeadID      string       `json:"leadId"`
	ActorUserID string       `json:"changedBy"`
	ChangedAt   time.Time    `json:"changedAt"`
	Payload     AuditPayload `json:"-"`
}

// NewAuditEntry builds an entry for lead with a fresh ID.
func NewAuditEntry(leadID, actor string, at time.Time, payload AuditPayload) AuditEntry {
	return AuditEntry{
		ID:          uuid.NewString(),
		LeadID:      leadID,
		ActorUserID: actor,
		ChangedAt:   at,
		Payload:     payload,
	}
}

// Action returns the payload's action, or "" if the entry has no payload.
func (e AuditEntry) Action() AuditAction {
	if e.Payload == nil {
		return ""
	}
	return e.Payload.Action()
}

// MarshalJSON flattens the payload into the entry as "diff".
func (e AuditEntry) MarshalJSON() ([]byte, error) {
	type plain AuditEntry
	out := struct {
		plain
		Diff json.RawMessage `json:"diff"`
	}{plain: plain(e)}

	if e.Payload != nil {
		raw, err := MarshalPayload(e.Payload)
		if err != nil {
			return nil, fmt.Errorf("audit entry %s: %w", e.ID, err)
		}
		out.Diff = raw
	} else {
		out.Diff = json.RawMessage("null")
	}
	return json.Marshal(out)
}
