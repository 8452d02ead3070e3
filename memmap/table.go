package memmap

import (
	"fmt"
	"math"
	"sort"
)

// DefaultAddrBits is the width of the address space of a 32-bit MCU.
const DefaultAddrBits = 32

const (
	// StackRegionName and CodeRegionName are the default names for the
	// regions that supply the stack and the code.
	StackRegionName = "RAM"
	CodeRegionName  = "FLASH"
)

// Table is the memory region table of a target. It is built sequentially
// with Define and Reserve, then sealed and only read afterwards.
type Table struct {
	addrBits uint
	regions  []*Region
	byName   map[string]*Region
	reserved map[string][]Reservation

	stackName string
	codeName  string
	sealed    bool
}

// NewTable returns an empty table for an address space of addrBits bits.
// Zero selects DefaultAddrBits.
func NewTable(addrBits uint) *Table {
	if addrBits == 0 {
		addrBits = DefaultAddrBits
	}
	if addrBits > 64 {
		addrBits = 64
	}
	return &Table{
		addrBits: addrBits,
		byName:   map[string]*Region{},
		reserved: map[string][]Reservation{},
	}
}

// AddrBits returns the width of the address space.
func (t *Table) AddrBits() uint {
	return t.addrBits
}

// limit returns the highest address a range may end at.
func (t *Table) limit() uint64 {
	if t.addrBits >= 64 {
		return math.MaxUint64
	}
	return uint64(1) << t.addrBits
}

// Define registers a region.
func (t *Table) Define(name string, base, length uint64, perm Perm) error {
	if t.sealed {
		return ErrSealed
	}
	if name == "" {
		return fmt.Errorf("memmap: region name is empty")
	}
	if _, ok := t.byName[name]; ok {
		return &OverlapError{Kind: "region", Name: name, Other: name, Duplicate: true}
	}
	if length == 0 {
		return &RangeError{Name: name, Offset: base, Limit: t.limit(), Reason: "length is zero"}
	}
	end := base + length
	if end < base || end > t.limit() {
		return &RangeError{Name: name, Offset: base, Size: length, Limit: t.limit(),
			Reason: fmt.Sprintf("exceeds %d-bit address space", t.addrBits)}
	}
	r := &Region{Name: name, Base: base, Length: length, Perm: perm}
	for _, o := range t.regions {
		if r.Range().Overlaps(o.Range()) {
			in := r.Range().intersect(o.Range())
			return &OverlapError{Kind: "region", Name: name, Other: o.Name, Start: in.Start, End: in.End}
		}
	}
	t.regions = append(t.regions, r)
	sort.Slice(t.regions, func(i, j int) bool {
		return t.regions[i].Base < t.regions[j].Base
	})
	t.byName[name] = r
	return nil
}

// Reserve carves [offset, offset+size) of a region out for an external
// occupant.
func (t *Table) Reserve(region string, offset, size uint64) error {
	return t.ReserveLabel(region, "", offset, size)
}

// ReserveLabel is Reserve with a descriptive label, e.g. "bootloader".
func (t *Table) ReserveLabel(region, label string, offset, size uint64) error {
	if t.sealed {
		return ErrSealed
	}
	res := Reservation{Region: region, Label: label, Offset: offset, Size: size}
	r, ok := t.byName[region]
	if !ok {
		return &UnknownRegionError{Name: region, Ref: "reservation " + res.name()}
	}
	if size == 0 {
		return &RangeError{Name: res.name(), Offset: offset, Limit: r.Length, Reason: "reservation size is zero"}
	}
	if offset > r.Length || size > r.Length-offset {
		return &RangeError{Name: res.name(), Offset: offset, Size: size, Limit: r.Length,
			Reason: fmt.Sprintf("reservation exceeds region %s", region)}
	}
	rr := Range{Start: offset, End: offset + size}
	for _, o := range t.reserved[region] {
		or := Range{Start: o.Offset, End: o.Offset + o.Size}
		if rr.Overlaps(or) {
			in := rr.intersect(or)
			return &OverlapError{Kind: "reservation", Name: res.name(), Other: o.name(),
				Start: r.Base + in.Start, End: r.Base + in.End}
		}
	}
	list := append(t.reserved[region], res)
	sort.Slice(list, func(i, j int) bool {
		return list[i].Offset < list[j].Offset
	})
	t.reserved[region] = list
	return nil
}

// Resolve returns the available part of a region.
func (t *Table) Resolve(region string) (Span, error) {
	r, ok := t.byName[region]
	if !ok {
		return Span{}, &UnknownRegionError{Name: region}
	}
	span := Span{Region: region}
	cur := r.Base
	for _, res := range t.reserved[region] {
		start := r.Base + res.Offset
		if start > cur {
			span.Extents = append(span.Extents, Range{Start: cur, End: start})
		}
		cur = start + res.Size
	}
	if end := r.Base + r.Length; end > cur {
		span.Extents = append(span.Extents, Range{Start: cur, End: end})
	}
	for _, e := range span.Extents {
		span.Length += e.Len()
	}
	if len(span.Extents) > 0 {
		span.Base = span.Extents[0].Start
	} else {
		span.Base = r.Base + r.Length
	}
	return span, nil
}

// Region returns the named region.
func (t *Table) Region(name string) (Region, bool) {
	r, ok := t.byName[name]
	if !ok {
		return Region{}, false
	}
	return *r, true
}

// Regions returns all regions in address order.
func (t *Table) Regions() []Region {
	out := make([]Region, 0, len(t.regions))
	for _, r := range t.regions {
		out = append(out, *r)
	}
	return out
}

// Reservations returns the reservations of a region in offset order.
func (t *Table) Reservations(region string) []Reservation {
	return append([]Reservation(nil), t.reserved[region]...)
}

// SetStackRegion names the region that supplies the stack, overriding the
// default lookup.
func (t *Table) SetStackRegion(name string) error {
	if t.sealed {
		return ErrSealed
	}
	t.stackName = name
	return nil
}

// SetCodeRegion names the region that holds code and read-only data.
func (t *Table) SetCodeRegion(name string) error {
	if t.sealed {
		return ErrSealed
	}
	t.codeName = name
	return nil
}

// StackRegion returns the region the stack pointer is derived from: the
// region set with SetStackRegion, the region named RAM or the only writable
// region, in that order.
func (t *Table) StackRegion() (Region, error) {
	r, err := t.lookupRole("stack", t.stackName, StackRegionName, func(r *Region) bool {
		return r.Perm.Has(Write)
	})
	if err != nil {
		return Region{}, err
	}
	if !r.Perm.Has(Write) {
		return Region{}, &MissingRegionError{Role: "stack",
			Reason: fmt.Sprintf("region %s is not writable", r.Name)}
	}
	return *r, nil
}

// CodeRegion returns the region holding code: the region set with
// SetCodeRegion, the region named FLASH or the only executable read-only
// region, in that order.
func (t *Table) CodeRegion() (Region, error) {
	r, err := t.lookupRole("code", t.codeName, CodeRegionName, func(r *Region) bool {
		return r.Perm.Has(Exec) && !r.Perm.Has(Write)
	})
	if err != nil {
		return Region{}, err
	}
	if r.Perm.Has(Write) {
		return Region{}, &MissingRegionError{Role: "code",
			Reason: fmt.Sprintf("region %s is writable", r.Name)}
	}
	return *r, nil
}

func (t *Table) lookupRole(role, explicit, def string, fits func(*Region) bool) (*Region, error) {
	if explicit != "" {
		r, ok := t.byName[explicit]
		if !ok {
			return nil, &MissingRegionError{Role: role,
				Reason: fmt.Sprintf("region %s is not defined", explicit)}
		}
		return r, nil
	}
	if r, ok := t.byName[def]; ok {
		return r, nil
	}
	var found *Region
	for _, r := range t.regions {
		if !fits(r) {
			continue
		}
		if found != nil {
			return nil, &MissingRegionError{Role: role,
				Reason: fmt.Sprintf("ambiguous between %s and %s", found.Name, r.Name)}
		}
		found = r
	}
	if found == nil {
		return nil, &MissingRegionError{Role: role,
			Reason: fmt.Sprintf("no region named %s and none with matching access", def)}
	}
	return found, nil
}

// Seal makes the table read-only.
func (t *Table) Seal() {
	t.sealed = true
}

// Sealed reports whether Seal was called.
func (t *Table) Sealed() bool {
	return t.sealed
}
