package documents

import "encoding/json"

// AuditTrail is an append-only, receipt-ordered list of tracking events.
// Entries can be added but never changed, removed or reordered.
type AuditTrail struct {
	entries []TrackingEvent
}

// NewAuditTrail builds a trail from already-recorded entries.
func NewAuditTrail(entries ...TrackingEvent) AuditTrail {
	return AuditTrail{entries: append([]TrackingEvent(nil), entries...)}
}

// Append records e after every existing entry.
func (a *AuditTrail) Append(e TrackingEvent) {
	n := len(a.entries)
	// cap the slice so copies of the trail never share an append target
	a.entries = append(a.entries[:n:n], e)
}

// Len returns the number of entries.
func (a AuditTrail) Len() int {
	return len(a.entries)
}

// Entries returns a copy of all entries in receipt order.
func (a AuditTrail) Entries() []TrackingEvent {
	return append([]TrackingEvent(nil), a.entries...)
}

// Since returns a copy of the entries recorded after the first n.
func (a AuditTrail) Since(n int) []TrackingEvent {
	if n < 0 {
		n = 0
	}
	if n >= len(a.entries) {
		return nil
	}
	return append([]TrackingEvent(nil), a.entries[n:]...)
}

// Last returns the most recent entry.
func (a AuditTrail) Last() (TrackingEvent, bool) {
	if len(a.entries) == 0 {
		return TrackingEvent{}, false
	}
	return a.entries[len(a.entries)-1], true
}

// Clone returns an independent copy.
func (a AuditTrail) Clone() AuditTrail {
	return NewAuditTrail(a.entries...)
}

// MarshalJSON implements json.Marshaler.
func (a AuditTrail) MarshalJSON() ([]byte, error) {
	if a.entries == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(a.entries)
}
