package memmap

import (
	"fmt"
	"sort"
)

// Section is a piece of compiled output placed at an address.
type Section struct {
	Name string
	// Region is the target region. When empty, the region containing Addr
	// is used.
	Region string
	Addr   uint64
	Size   uint64
	// Align is only used by Place. Zero and one mean no alignment.
	Align uint64
}

func (s Section) Range() Range {
	return Range{Start: s.Addr, End: s.Addr + s.Size}
}

// regionAt returns the region containing addr.
func (t *Table) regionAt(addr uint64) (*Region, bool) {
	i := sort.Search(len(t.regions), func(i int) bool {
		r := t.regions[i]
		return r.Base+r.Length > addr
	})
	if i < len(t.regions) && t.regions[i].Base <= addr {
		return t.regions[i], true
	}
	return nil, false
}

// ValidatePlacement checks that every section lies inside the free space of
// its region and that no two sections overlap.
func ValidatePlacement(t *Table, sections []Section) error {
	placed := make([]Section, 0, len(sections))
	for _, s := range sections {
		if s.Size == 0 {
			continue
		}
		r, err := t.sectionRegion(s)
		if err != nil {
			return err
		}
		s.Region = r.Name
		if err := t.checkSection(r, s); err != nil {
			return err
		}
		placed = append(placed, s)
	}
	sort.SliceStable(placed, func(i, j int) bool {
		return placed[i].Addr < placed[j].Addr
	})
	for i := 1; i < len(placed); i++ {
		prev, cur := placed[i-1], placed[i]
		if prev.Range().Overlaps(cur.Range()) {
			in := prev.Range().intersect(cur.Range())
			return &OverlapError{Kind: "section", Name: cur.Name, Other: prev.Name, Start: in.Start, End: in.End}
		}
	}
	return nil
}

func (t *Table) sectionRegion(s Section) (*Region, error) {
	if s.Region != "" {
		r, ok := t.byName[s.Region]
		if !ok {
			return nil, &UnknownRegionError{Name: s.Region, Ref: "section " + s.Name}
		}
		return r, nil
	}
	r, ok := t.regionAt(s.Addr)
	if !ok {
		return nil, &UnknownRegionError{Name: fmt.Sprintf("%#x", s.Addr), Ref: "section " + s.Name}
	}
	return r, nil
}

func (t *Table) checkSection(r *Region, s Section) error {
	end := s.Addr + s.Size
	if end < s.Addr {
		return &RangeError{Name: s.Name, Offset: s.Addr, Size: s.Size, Limit: t.limit(),
			Reason: "section wraps the address space"}
	}
	if !r.Range().Contains(Range{Start: s.Addr, End: s.Addr + 1}) {
		return &RangeError{Name: s.Name, Offset: s.Addr, Size: s.Size, Limit: r.Base + r.Length,
			Reason: fmt.Sprintf("section starts outside region %s", r.Name)}
	}
	span, err := t.Resolve(r.Name)
	if err != nil {
		return err
	}
	for _, e := range span.Extents {
		if !e.Contains(Range{Start: s.Addr, End: s.Addr + 1}) {
			continue
		}
		if end <= e.End {
			return nil
		}
		return &PlacementOverflowError{Section: s.Name, Region: r.Name,
			Requested: s.Size, Available: e.End - s.Addr}
	}
	// The start lies in a reservation.
	for _, res := range t.reserved[r.Name] {
		rr := Range{Start: r.Base + res.Offset, End: r.Base + res.Offset + res.Size}
		if rr.Overlaps(s.Range()) {
			in := rr.intersect(s.Range())
			return &OverlapError{Kind: "section", Name: s.Name, Other: res.name(), Start: in.Start, End: in.End}
		}
	}
	return &PlacementOverflowError{Section: s.Name, Region: r.Name, Requested: s.Size}
}

// Place assigns addresses to sections in order, starting at the first free
// address of region and honoring each section's alignment. Sections never
// straddle a reservation; a section that does not fit in the remainder of a
// free extent moves to the next one.
func Place(t *Table, region string, sections []Section) ([]Section, error) {
	span, err := t.Resolve(region)
	if err != nil {
		return nil, err
	}
	var total uint64
	for _, s := range sections {
		total += s.Size
	}
	if total > span.Length {
		var cum uint64
		name := ""
		for _, s := range sections {
			cum += s.Size
			if cum > span.Length {
				name = s.Name
				break
			}
		}
		return nil, &PlacementOverflowError{Section: name, Region: region,
			Requested: total, Available: span.Length}
	}
	out := make([]Section, 0, len(sections))
	ext := 0
	var cur, remain uint64
	if len(span.Extents) > 0 {
		cur = span.Extents[0].Start
	}
	for _, s := range sections {
		for {
			if ext >= len(span.Extents) {
				return nil, &PlacementOverflowError{Section: s.Name, Region: region,
					Requested: s.Size, Available: remain}
			}
			e := span.Extents[ext]
			addr := alignUp(cur, s.Align)
			if addr >= cur && addr <= e.End && s.Size <= e.End-addr {
				s.Addr = addr
				s.Region = region
				cur = addr + s.Size
				break
			}
			remain = e.End - cur
			ext++
			if ext < len(span.Extents) {
				cur = span.Extents[ext].Start
			}
		}
		out = append(out, s)
	}
	return out, nil
}

func alignUp(addr, align uint64) uint64 {
	if align <= 1 {
		return addr
	}
	return (addr + align - 1) / align * align
}
