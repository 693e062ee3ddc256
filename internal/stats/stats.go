// Package stats collects and formats tape statistics.
//
// Values is filled section by section by the tape and the data streams it
// owns. Memory entries flagged as used or allocated are summed into the
// totals that head the formatted report.
package stats

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
)

type kind int

const (
	kindCount kind = iota
	kindMemory
)

// Entry is one named value inside a section.
type Entry struct {
	Name string
	// Value is an item count or a number of bytes.
	Value uint64

	kind      kind
	used      bool
	allocated bool
}

// Section groups entries under a heading.
type Section struct {
	Name    string
	Entries []Entry
}

// Values is a titled list of sections.
type Values struct {
	Title    string
	Sections []Section
}

// New creates an empty report.
func New(title string) *Values {
	return &Values{Title: title}
}

// AddSection starts a new section. Entries added afterwards belong to it.
func (v *Values) AddSection(name string) {
	v.Sections = append(v.Sections, Section{Name: name})
}

// AddCount adds an item count to the current section.
func (v *Values) AddCount(name string, n int) {
	v.add(Entry{Name: name, Value: uint64(max(n, 0)), kind: kindCount})
}

// AddMemory adds a byte count to the current section. used and allocated
// control whether it contributes to the report totals.
func (v *Values) AddMemory(name string, bytes uint64, used, allocated bool) {
	v.add(Entry{Name: name, Value: bytes, kind: kindMemory, used: used, allocated: allocated})
}

func (v *Values) add(e Entry) {
	if len(v.Sections) == 0 {
		v.AddSection("General")
	}
	s := &v.Sections[len(v.Sections)-1]
	s.Entries = append(s.Entries, e)
}

// UsedMemory sums every memory entry flagged as used.
func (v *Values) UsedMemory() uint64 {
	var total uint64
	v.each(func(_ string, e Entry) {
		if e.kind == kindMemory && e.used {
			total += e.Value
		}
	})
	return total
}

// AllocatedMemory sums every memory entry flagged as allocated.
func (v *Values) AllocatedMemory() uint64 {
	var total uint64
	v.each(func(_ string, e Entry) {
		if e.kind == kindMemory && e.allocated {
			total += e.Value
		}
	})
	return total
}

// Lookup returns the value of the named entry in the named section.
func (v *Values) Lookup(section, name string) (uint64, bool) {
	var (
		value uint64
		found bool
	)
	v.each(func(s string, e Entry) {
		if !found && s == section && e.Name == name {
			value, found = e.Value, true
		}
	})
	return value, found
}

func (v *Values) each(fn func(section string, e Entry)) {
	for _, s := range v.Sections {
		for _, e := range s.Entries {
			fn(s.Name, e)
		}
	}
}

// Format writes the report as an aligned text table.
func (v *Values) Format(w io.Writer) error {
	width := len("Total memory allocated")
	v.each(func(_ string, e Entry) {
		width = max(width, len(e.Name))
	})
	rule := strings.Repeat("-", width+20)

	var b strings.Builder
	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, v.Title)
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "  %-*s : %12s\n", width, "Total memory used", humanize.IBytes(v.UsedMemory()))
	fmt.Fprintf(&b, "  %-*s : %12s\n", width, "Total memory allocated", humanize.IBytes(v.AllocatedMemory()))
	for _, s := range v.Sections {
		fmt.Fprintln(&b, rule)
		fmt.Fprintln(&b, s.Name)
		fmt.Fprintln(&b, rule)
		for _, e := range s.Entries {
			fmt.Fprintf(&b, "  %-*s : %12s\n", width, e.Name, e.format())
		}
	}
	fmt.Fprintln(&b, rule)

	_, err := io.WriteString(w, b.String())
	return err
}

func (v *Values) String() string {
	var b strings.Builder
	_ = v.Format(&b)
	return b.String()
}

func (e Entry) format() string {
	if e.kind == kindMemory {
		return humanize.IBytes(e.Value)
	}
	return humanize.Comma(int64(e.Value))
}
