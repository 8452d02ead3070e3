package memmap

import (
	"fmt"
	"io"
	"strings"
	"text/template"
)

var ldTemplate = template.Must(template.New("ld").Parse(`/* Generated by memmap. Do not edit. */
MEMORY
{
{{- range .Memory}}
    {{printf "%-12s" .Name}} ({{.Perm}}) : ORIGIN = {{printf "0x%08x" .Start}}, LENGTH = {{.Length}}
{{- end}}
}
{{range .Symbols}}
{{.Name}} = {{printf "0x%08x" .Value}};
{{- end}}
`))

type ldMemory struct {
	Name   string
	Perm   string
	Start  uint64
	Length string
}

// Symbol is a link-time symbol exported by the layout.
type Symbol struct {
	Name  string
	Value uint64
}

// StackTopSymbol holds the initial stack pointer.
const StackTopSymbol = "_stack_top"

// Symbols returns the symbols exported to the link: the stack top, the
// bounds of every region's free space and the bounds of each labeled
// reservation.
func Symbols(t *Table) ([]Symbol, error) {
	sp, err := ComputeInitialStack(t)
	if err != nil {
		return nil, err
	}
	syms := []Symbol{{Name: StackTopSymbol, Value: sp}}
	for _, r := range t.Regions() {
		span, err := t.Resolve(r.Name)
		if err != nil {
			return nil, err
		}
		prefix := "__" + symbolPart(r.Name)
		syms = append(syms,
			Symbol{Name: prefix + "_start", Value: span.Base},
			Symbol{Name: prefix + "_end", Value: span.Top()})
		for _, res := range t.Reservations(r.Name) {
			if res.Label == "" {
				continue
			}
			p := prefix + "_" + symbolPart(res.Label)
			syms = append(syms,
				Symbol{Name: p + "_start", Value: r.Base + res.Offset},
				Symbol{Name: p + "_size", Value: res.Size})
		}
	}
	return syms, nil
}

func symbolPart(s string) string {
	return strings.Map(func(c rune) rune {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
			return c
		}
		return '_'
	}, strings.ToLower(s))
}

// WriteLinkerScript writes a GNU ld MEMORY block holding the free space of
// every region, followed by the exported symbols. A region split by a
// reservation gets one entry per free extent; the first keeps the region
// name, the rest are suffixed _1, _2 and so on.
func WriteLinkerScript(w io.Writer, t *Table) error {
	syms, err := Symbols(t)
	if err != nil {
		return err
	}
	var mem []ldMemory
	for _, r := range t.Regions() {
		span, err := t.Resolve(r.Name)
		if err != nil {
			return err
		}
		for i, e := range span.Extents {
			name := r.Name
			if i > 0 {
				name = fmt.Sprintf("%s_%d", r.Name, i)
			}
			mem = append(mem, ldMemory{Name: name, Perm: r.Perm.String(), Start: e.Start, Length: FormatLength(e.Len())})
		}
	}
	return ldTemplate.Execute(w, struct {
		Memory  []ldMemory
		Symbols []Symbol
	}{mem, syms})
}
