package core

import "encoding/json"

// Ref is the resolved side of a weak reference: either a Known lookup or Unknown.
// The zero value is Unknown.
type Ref struct {
	known *Lookup
}

// Known wraps a resolved lookup.
func Known(l Lookup) Ref {
	return Ref{known: &l}
}

// Unknown is the ref of records with no reference or a dangling one.
func Unknown() Ref {
	return Ref{}
}

// Lookup returns the referenced lookup and true, or false when the ref is Unknown.
func (r Ref) Lookup() (Lookup, bool) {
	if r.known == nil {
		return Lookup{}, false
	}
	return *r.known, true
}

func (r Ref) IsKnown() bool {
	return r.known != nil
}

// Key identifies the group the ref belongs to. All Unknown refs share the empty key.
func (r Ref) Key() string {
	if r.known == nil {
		return ""
	}
	return r.known.ID
}

// SortName is the name used for deterministic ordering; Unknown sorts as "".
func (r Ref) SortName() string {
	if r.known == nil {
		return ""
	}
	return r.known.Name
}

type refJSON struct {
	Known bool   `json:"known"`
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Icon  string `json:"icon,omitempty"`
}

func (r Ref) MarshalJSON() ([]byte, error) {
	l, ok := r.Lookup()
	if !ok {
		return json.Marshal(refJSON{Known: false})
	}
	return json.Marshal(refJSON{Known: true, ID: l.ID, Name: l.Name, Icon: l.Icon})
}
