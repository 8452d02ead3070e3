package memmap

import (
	"errors"
	"fmt"
)

// ErrSealed is returned when a sealed table is modified.
var ErrSealed = errors.New("memmap: region table is sealed")

// OverlapError reports two address ranges that intersect. Kind names what
// collided: "region", "reservation" or "section".
type OverlapError struct {
	Kind  string
	Name  string
	Other string
	// Start and End bound the intersection [Start, End).
	Start, End uint64
	// Duplicate is set when the same region name was defined twice.
	Duplicate bool
}

func (e *OverlapError) Error() string {
	if e.Duplicate {
		return fmt.Sprintf("memmap: region %s defined twice", e.Name)
	}
	return fmt.Sprintf("memmap: %s %s overlaps %s in [%#x, %#x) (%d bytes)",
		e.Kind, e.Name, e.Other, e.Start, e.End, e.End-e.Start)
}

// RangeError reports an address computation that leaves the addressable space
// or a region/reservation bound, or a zero length.
type RangeError struct {
	Name   string
	Offset uint64
	Size   uint64
	// Limit is the bound that was exceeded.
	Limit  uint64
	Reason string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("memmap: %s: %s (offset %#x, size %d bytes, limit %#x)",
		e.Name, e.Reason, e.Offset, e.Size, e.Limit)
}

// UnknownRegionError reports a reference to a region that is not defined.
type UnknownRegionError struct {
	Name string
	// Ref is what referenced the region, e.g. a reservation or section name.
	Ref string
}

func (e *UnknownRegionError) Error() string {
	if e.Ref == "" {
		return fmt.Sprintf("memmap: unknown region %q", e.Name)
	}
	return fmt.Sprintf("memmap: %s: unknown region %q", e.Ref, e.Name)
}

// MissingRegionError reports that no region fills a required role.
type MissingRegionError struct {
	Role   string
	Reason string
}

func (e *MissingRegionError) Error() string {
	return fmt.Sprintf("memmap: no %s region: %s", e.Role, e.Reason)
}

// PlacementOverflowError reports output that does not fit its target region.
type PlacementOverflowError struct {
	Section   string
	Region    string
	Requested uint64
	Available uint64
}

// Excess returns the number of bytes that did not fit.
func (e *PlacementOverflowError) Excess() uint64 {
	if e.Requested < e.Available {
		return 0
	}
	return e.Requested - e.Available
}

func (e *PlacementOverflowError) Error() string {
	return fmt.Sprintf("memmap: section %s overflows region %s by %d bytes (requested %d, available %d)",
		e.Section, e.Region, e.Excess(), e.Requested, e.Available)
}

// StateError reports an Initializer operation called in the wrong state.
type StateError struct {
	Op    string
	State State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("memmap: %s not allowed in state %s", e.Op, e.State)
}
