package memmap

import (
	"context"
	"errors"
	"fmt"

	"github.com/q0jt/go-memmap/memmap/config"
	"github.com/q0jt/go-memmap/memmap/config/access"
)

func loadMemConfig(ctx context.Context, path string) (*config.MemoryMap, error) {
	mem, err := config.LoadFile(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("load memory map %s: %w", path, err)
	}
	return mem, nil
}

// LoadTable reads a memory map (Pkl or YAML) and builds its region table.
func LoadTable(ctx context.Context, path string) (*Table, error) {
	mem, err := loadMemConfig(ctx, path)
	if err != nil {
		return nil, err
	}
	return TableFromConfig(mem)
}

// TableFromConfig builds a region table from a decoded memory map. Regions
// are defined in declaration order, then reservations.
func TableFromConfig(mem *config.MemoryMap) (*Table, error) {
	if mem == nil {
		return nil, errors.New("memory map is nil")
	}
	t := NewTable(uint(mem.AddressBits))
	for _, r := range mem.Regions {
		if r == nil {
			continue
		}
		length, err := ParseLength(r.Length)
		if err != nil {
			return nil, fmt.Errorf("region %s: %w", r.Name, err)
		}
		if err := t.Define(r.Name, uint64(r.Origin), length, permFromFlags(r.AccessFlags)); err != nil {
			return nil, err
		}
	}
	for _, res := range mem.Reservations {
		if res == nil {
			continue
		}
		offset, err := ParseLength(res.Offset)
		if err != nil {
			return nil, fmt.Errorf("reservation in %s: offset: %w", res.Region, err)
		}
		size, err := ParseLength(res.Size)
		if err != nil {
			return nil, fmt.Errorf("reservation in %s: size: %w", res.Region, err)
		}
		var label string
		if res.Label != nil {
			label = *res.Label
		}
		if err := t.ReserveLabel(res.Region, label, offset, size); err != nil {
			return nil, err
		}
	}
	if mem.StackRegion != nil {
		if err := t.SetStackRegion(*mem.StackRegion); err != nil {
			return nil, err
		}
	}
	if mem.CodeRegion != nil {
		if err := t.SetCodeRegion(*mem.CodeRegion); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func permFromFlags(flags []access.Access) Perm {
	var p Perm
	for _, f := range flags {
		switch f {
		case access.R:
			p |= Read
		case access.W:
			p |= Write
		case access.X:
			p |= Exec
		}
	}
	return p
}
