package mapping

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
)

// Format selects the DumpMap output.
type Format string

const (
	FormatText Format = "text"
	FormatXML  Format = "xml"
)

// DumpMap writes the human-readable report, grouping renamed then skipped
// types, each with its member outcomes, then resources.
func (m *Map) DumpMap(w io.Writer) error {
	bw := bufio.NewWriter(w)
	classes := m.Classes()

	fmt.Fprint(bw, "Renamed Types:\n")
	for _, c := range classes {
		if c.Status == StatusRenamed {
			writeClass(bw, c)
		}
	}
	fmt.Fprint(bw, "\nSkipped Types:\n")
	for _, c := range classes {
		if c.Status != StatusRenamed {
			writeClass(bw, c)
		}
	}

	fmt.Fprint(bw, "\nRenamed Resources:\n\n")
	for _, r := range m.resources {
		if r.Status == StatusRenamed {
			fmt.Fprintf(bw, "%s -> %s\n", r.Name, r.StatusText)
		}
	}
	fmt.Fprint(bw, "\nSkipped Resources:\n\n")
	for _, r := range m.resources {
		if r.Status != StatusRenamed {
			fmt.Fprintf(bw, "%s\n", line(&r.Thing))
		}
	}
	return bw.Flush()
}

func writeClass(w io.Writer, c *Class) {
	fmt.Fprintf(w, "\n%s\n{\n", line(&c.Thing))
	sections := [][]*Thing{
		c.Methods.Values(),
		c.Fields.Values(),
		c.Properties.Values(),
		c.Events.Values(),
	}
	first := true
	for _, things := range sections {
		if len(things) == 0 {
			continue
		}
		if !first {
			fmt.Fprint(w, "\n")
		}
		first = false
		renamed, rest := byStatus(things)
		for _, t := range renamed {
			fmt.Fprintf(w, "\t%s\n", line(t))
		}
		if len(renamed) > 0 && len(rest) > 0 {
			fmt.Fprint(w, "\n")
		}
		for _, t := range rest {
			fmt.Fprintf(w, "\t%s\n", line(t))
		}
	}
	fmt.Fprint(w, "}\n")
}

func line(t *Thing) string {
	switch t.Status {
	case StatusRenamed:
		return fmt.Sprintf("%s -> %s", t.Name, t.StatusText)
	case StatusSkipped:
		return fmt.Sprintf("%s skipped: %s", t.Name, t.Reason)
	default:
		return fmt.Sprintf("%s unprocessed", t.Name)
	}
}

// byStatus splits entries into renamed and the rest, keeping relative order.
func byStatus(things []*Thing) (renamed, rest []*Thing) {
	for _, t := range things {
		if t.Status == StatusRenamed {
			renamed = append(renamed, t)
		} else {
			rest = append(rest, t)
		}
	}
	return renamed, rest
}

type xmlMapping struct {
	XMLName          xml.Name     `xml:"mapping"`
	RenamedTypes     []xmlClass   `xml:"renamedTypes>renamedClass"`
	SkippedTypes     []xmlClass   `xml:"skippedTypes>skippedClass"`
	RenamedResources []xmlRenamed `xml:"renamedResources>renamedResource"`
	SkippedResources []xmlSkipped `xml:"skippedResources>skippedResource"`
}

type xmlClass struct {
	OldName string      `xml:"oldName,attr,omitempty"`
	NewName string      `xml:"newName,attr,omitempty"`
	Name    string      `xml:"name,attr,omitempty"`
	Reason  string      `xml:"reason,attr,omitempty"`
	Members []xmlMember `xml:",any"`
}

type xmlMember struct {
	XMLName xml.Name
	OldName string `xml:"oldName,attr,omitempty"`
	NewName string `xml:"newName,attr,omitempty"`
	Name    string `xml:"name,attr,omitempty"`
	Reason  string `xml:"reason,attr,omitempty"`
}

type xmlRenamed struct {
	OldName string `xml:"oldName,attr"`
	NewName string `xml:"newName,attr"`
}

type xmlSkipped struct {
	Name   string `xml:"name,attr"`
	Reason string `xml:"reason,attr,omitempty"`
}

// DumpXML writes the machine-readable form of the report.
func (m *Map) DumpXML(w io.Writer) error {
	doc := xmlMapping{}
	for _, c := range m.Classes() {
		xc := xmlClass{}
		if c.Status == StatusRenamed {
			xc.OldName, xc.NewName = c.Name, c.StatusText
		} else {
			xc.Name, xc.Reason = c.Name, c.Reason
		}
		xc.Members = append(xc.Members, members("Method", c.Methods.Values())...)
		xc.Members = append(xc.Members, members("Field", c.Fields.Values())...)
		xc.Members = append(xc.Members, members("Property", c.Properties.Values())...)
		xc.Members = append(xc.Members, members("Event", c.Events.Values())...)
		if c.Status == StatusRenamed {
			doc.RenamedTypes = append(doc.RenamedTypes, xc)
		} else {
			doc.SkippedTypes = append(doc.SkippedTypes, xc)
		}
	}
	for _, r := range m.resources {
		if r.Status == StatusRenamed {
			doc.RenamedResources = append(doc.RenamedResources, xmlRenamed{OldName: r.Name, NewName: r.StatusText})
		} else {
			doc.SkippedResources = append(doc.SkippedResources, xmlSkipped{Name: r.Name, Reason: r.Reason})
		}
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func members(kind string, things []*Thing) []xmlMember {
	out := make([]xmlMember, 0, len(things))
	renamed, rest := byStatus(things)
	for _, t := range renamed {
		out = append(out, xmlMember{XMLName: xml.Name{Local: "renamed" + kind}, OldName: t.Name, NewName: t.StatusText})
	}
	for _, t := range rest {
		out = append(out, xmlMember{XMLName: xml.Name{Local: "skipped" + kind}, Name: t.Name, Reason: t.Reason})
	}
	return out
}
