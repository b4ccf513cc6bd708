package mapping

type Kind string

const (
	KindType     Kind = "type"
	KindMethod   Kind = "method"
	KindField    Kind = "field"
	KindProperty Kind = "property"
	KindEvent    Kind = "event"
	KindResource Kind = "resource"
)

// Entry is a flattened map record, used for persistence and lookups.
type Entry struct {
	Kind     Kind
	Original string
	NewName  string
	Status   Status
	Reason   string
}

func entry(kind Kind, t *Thing) Entry {
	e := Entry{Kind: kind, Original: t.Name, Status: t.Status, Reason: t.Reason}
	if t.Status == StatusRenamed {
		e.NewName = t.StatusText
	}
	return e
}

// Entries flattens the map in report order: each type followed by its
// methods, fields, properties and events, then resources.
func (m *Map) Entries() []Entry {
	var out []Entry
	for _, c := range m.Classes() {
		out = append(out, entry(KindType, &c.Thing))
		for _, t := range c.Methods.Values() {
			out = append(out, entry(KindMethod, t))
		}
		for _, t := range c.Fields.Values() {
			out = append(out, entry(KindField, t))
		}
		for _, t := range c.Properties.Values() {
			out = append(out, entry(KindProperty, t))
		}
		for _, t := range c.Events.Values() {
			out = append(out, entry(KindEvent, t))
		}
	}
	for _, r := range m.resources {
		out = append(out, entry(KindResource, &r.Thing))
	}
	return out
}
