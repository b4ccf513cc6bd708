// Package mapping records the outcome of every rename decision.
package mapping

import (
	"obscura/internal/engine/keys"
)

type Status int

const (
	StatusUnknown Status = iota
	StatusRenamed
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusRenamed:
		return "renamed"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Thing is the record for one named entity. StatusText holds the new name for
// renamed entities and the original name for skipped ones; Reason explains a skip.
type Thing struct {
	Name       string
	Status     Status
	StatusText string
	Reason     string
}

// Update sets the outcome. Skipped entities keep their name as status text.
func (t *Thing) Update(status Status, text string) {
	t.Status = status
	switch status {
	case StatusSkipped:
		t.StatusText = t.Name
		t.Reason = text
	default:
		t.StatusText = text
		t.Reason = ""
	}
}

// Class is the record for a type and its members, each kept in first-seen order.
type Class struct {
	Thing
	Key        keys.TypeKey
	Methods    *Ordered[keys.MethodKey, *Thing]
	Fields     *Ordered[keys.FieldKey, *Thing]
	Properties *Ordered[keys.PropertyKey, *Thing]
	Events     *Ordered[keys.EventKey, *Thing]
}

type Resource struct {
	Thing
}

// Map is the rename plan and report, built up phase by phase.
type Map struct {
	classes   *Ordered[keys.TypeKey, *Class]
	resources []*Resource
}

func New() *Map {
	return &Map{classes: NewOrdered[keys.TypeKey, *Class]()}
}

// GetClass returns the record for k, creating an Unknown one on first access.
func (m *Map) GetClass(k keys.TypeKey) *Class {
	return m.classes.GetOrCreate(k, func() *Class {
		return &Class{
			Thing:      Thing{Name: k.String()},
			Key:        k,
			Methods:    NewOrdered[keys.MethodKey, *Thing](),
			Fields:     NewOrdered[keys.FieldKey, *Thing](),
			Properties: NewOrdered[keys.PropertyKey, *Thing](),
			Events:     NewOrdered[keys.EventKey, *Thing](),
		}
	})
}

func (m *Map) GetMethod(k keys.MethodKey) *Thing {
	return m.GetClass(k.Type).Methods.GetOrCreate(k, func() *Thing { return &Thing{Name: k.String()} })
}

func (m *Map) GetField(k keys.FieldKey) *Thing {
	return m.GetClass(k.Type).Fields.GetOrCreate(k, func() *Thing { return &Thing{Name: k.String()} })
}

func (m *Map) GetProperty(k keys.PropertyKey) *Thing {
	return m.GetClass(k.Type).Properties.GetOrCreate(k, func() *Thing { return &Thing{Name: k.String()} })
}

func (m *Map) GetEvent(k keys.EventKey) *Thing {
	return m.GetClass(k.Type).Events.GetOrCreate(k, func() *Thing { return &Thing{Name: k.String()} })
}

func (m *Map) UpdateType(k keys.TypeKey, status Status, text string) {
	m.GetClass(k).Update(status, text)
}

func (m *Map) UpdateMethod(k keys.MethodKey, status Status, text string) {
	m.GetMethod(k).Update(status, text)
}

func (m *Map) UpdateField(k keys.FieldKey, status Status, text string) {
	m.GetField(k).Update(status, text)
}

func (m *Map) UpdateProperty(k keys.PropertyKey, status Status, text string) {
	m.GetProperty(k).Update(status, text)
}

func (m *Map) UpdateEvent(k keys.EventKey, status Status, text string) {
	m.GetEvent(k).Update(status, text)
}

// AddResource records a manifest resource outcome.
func (m *Map) AddResource(name string, status Status, text string) {
	r := &Resource{Thing: Thing{Name: name}}
	r.Update(status, text)
	m.resources = append(m.resources, r)
}

func (m *Map) Classes() []*Class {
	return m.classes.Values()
}

func (m *Map) Resources() []*Resource {
	return append([]*Resource(nil), m.resources...)
}

// Counts summarizes a map by outcome.
type Counts struct {
	Renamed int
	Skipped int
	Unknown int
}

func (c *Counts) add(s Status) {
	switch s {
	case StatusRenamed:
		c.Renamed++
	case StatusSkipped:
		c.Skipped++
	default:
		c.Unknown++
	}
}

// Counts tallies types, members and resources by status.
func (m *Map) Counts() map[Kind]Counts {
	out := make(map[Kind]Counts)
	for _, e := range m.Entries() {
		c := out[e.Kind]
		c.add(e.Status)
		out[e.Kind] = c
	}
	return out
}
