package memmap

import (
	"fmt"
	"strings"
)

// Perm is a set of access permissions.
type Perm uint8

const (
	Read Perm = 1 << iota
	Write
	Exec
)

// ParsePerm parses linker style flags such as "rx" or "rwx".
func ParsePerm(s string) (Perm, error) {
	var p Perm
	for _, c := range strings.ToLower(s) {
		switch c {
		case 'r':
			p |= Read
		case 'w':
			p |= Write
		case 'x':
			p |= Exec
		default:
			return 0, fmt.Errorf("memmap: invalid access flag %q in %q", c, s)
		}
	}
	return p, nil
}

func (p Perm) Has(f Perm) bool {
	return p&f == f
}

func (p Perm) String() string {
	var b strings.Builder
	if p.Has(Read) {
		b.WriteByte('r')
	}
	if p.Has(Write) {
		b.WriteByte('w')
	}
	if p.Has(Exec) {
		b.WriteByte('x')
	}
	return b.String()
}

// Range is the half-open address range [Start, End).
type Range struct {
	Start uint64
	End   uint64
}

func (r Range) Len() uint64 {
	return r.End - r.Start
}

func (r Range) Contains(o Range) bool {
	return o.Start >= r.Start && o.End <= r.End
}

func (r Range) Overlaps(o Range) bool {
	return r.Start < o.End && o.Start < r.End
}

func (r Range) intersect(o Range) Range {
	return Range{Start: max(r.Start, o.Start), End: min(r.End, o.End)}
}

// Region is one contiguous, named address range.
type Region struct {
	Name   string
	Base   uint64
	Length uint64
	Perm   Perm
}

func (r *Region) Range() Range {
	return Range{Start: r.Base, End: r.Base + r.Length}
}

// Reservation is a sub-range of a region held by a fixed external occupant,
// such as a bootloader. Offset is relative to the region base.
type Reservation struct {
	Region string
	Label  string
	Offset uint64
	Size   uint64
}

func (r Reservation) name() string {
	if r.Label != "" {
		return r.Region + "." + r.Label
	}
	return fmt.Sprintf("%s+%#x", r.Region, r.Offset)
}

// Span is the available part of a region once reservations are removed.
type Span struct {
	Region string
	// Base is the first free address.
	Base uint64
	// Length is the number of free bytes.
	Length uint64
	// Extents lists the free sub-ranges in address order.
	Extents []Range
}

// Top returns the end of the highest free extent.
func (s Span) Top() uint64 {
	if len(s.Extents) == 0 {
		return s.Base
	}
	return s.Extents[len(s.Extents)-1].End
}

// Contiguous reports whether the free space is a single extent.
func (s Span) Contiguous() bool {
	return len(s.Extents) == 1
}
