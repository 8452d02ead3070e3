package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/q0jt/go-memmap/memmap/config/access"
	"gopkg.in/yaml.v2"
)

type yamlMap struct {
	AddressBits  uint8             `yaml:"address_bits"`
	Regions      []yamlRegion      `yaml:"regions"`
	Reservations []yamlReservation `yaml:"reservations"`
	StackRegion  string            `yaml:"stack_region"`
	CodeRegion   string            `yaml:"code_region"`
}

type yamlRegion struct {
	Name        string   `yaml:"name"`
	AccessFlags []string `yaml:"access_flags"`
	Origin      uint     `yaml:"origin"`
	Length      string   `yaml:"length"`
}

type yamlReservation struct {
	Region string `yaml:"region"`
	Label  string `yaml:"label"`
	Offset string `yaml:"offset"`
	Size   string `yaml:"size"`
}

// ParseYAML decodes the YAML form of a memory map. Field names are the
// snake_case forms of the Pkl properties.
func ParseYAML(b []byte) (*MemoryMap, error) {
	var doc yamlMap
	if err := yaml.UnmarshalStrict(b, &doc); err != nil {
		return nil, err
	}
	m := &MemoryMap{AddressBits: doc.AddressBits}
	for _, r := range doc.Regions {
		region := &Region{Name: r.Name, Origin: r.Origin, Length: r.Length}
		for _, f := range r.AccessFlags {
			// "rx" style strings are accepted as well as single flags.
			for _, c := range f {
				var a access.Access
				if err := a.UnmarshalBinary([]byte(string(c))); err != nil {
					return nil, fmt.Errorf("region %s: %w", r.Name, err)
				}
				region.AccessFlags = append(region.AccessFlags, a)
			}
		}
		m.Regions = append(m.Regions, region)
	}
	for _, r := range doc.Reservations {
		res := &Reservation{Region: r.Region, Offset: r.Offset, Size: r.Size}
		if r.Label != "" {
			label := r.Label
			res.Label = &label
		}
		if res.Offset == "" {
			res.Offset = "0"
		}
		m.Reservations = append(m.Reservations, res)
	}
	if doc.StackRegion != "" {
		m.StackRegion = &doc.StackRegion
	}
	if doc.CodeRegion != "" {
		m.CodeRegion = &doc.CodeRegion
	}
	return m, nil
}

// LoadYAML reads a YAML memory map from path.
func LoadYAML(path string) (*MemoryMap, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseYAML(b)
}

// LoadFile loads a memory map, picking the format from the file extension.
func LoadFile(ctx context.Context, path string) (*MemoryMap, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".pkl":
		return LoadFromPath(ctx, path)
	case ".yaml", ".yml":
		return LoadYAML(path)
	default:
		return nil, fmt.Errorf("config: unsupported memory map format %q", ext)
	}
}
