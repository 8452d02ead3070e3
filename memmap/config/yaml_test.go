package config

import (
	"context"
	"strings"
	"testing"

	"github.com/q0jt/go-memmap/memmap/config/access"
)

const feather = `
address_bits: 32
regions:
  - name: FLASH
    access_flags: [r, x]
    origin: 0x00000000
    length: "512K"
  - name: RAM
    access_flags: [rwx]
    origin: 0x20000000
    length: "0x30000"
reservations:
  - region: FLASH
    label: bootloader
    size: "16K"
stack_region: RAM
`

func TestParseYAML(t *testing.T) {
	m, err := ParseYAML([]byte(feather))
	if err != nil {
		t.Fatal(err)
	}
	if m.AddressBits != 32 || len(m.Regions) != 2 || len(m.Reservations) != 1 {
		t.Fatalf("unexpected map %+v", m)
	}
	ram := m.Regions[1]
	if ram.Origin != 0x20000000 || ram.Length != "0x30000" {
		t.Errorf("RAM %+v", ram)
	}
	want := []access.Access{access.R, access.W, access.X}
	if len(ram.AccessFlags) != len(want) {
		t.Fatalf("RAM access %v", ram.AccessFlags)
	}
	for i := range want {
		if ram.AccessFlags[i] != want[i] {
			t.Errorf("RAM access %v", ram.AccessFlags)
		}
	}
	res := m.Reservations[0]
	if res.Label == nil || *res.Label != "bootloader" || res.Offset != "0" || res.Size != "16K" {
		t.Errorf("reservation %+v", res)
	}
	if m.StackRegion == nil || *m.StackRegion != "RAM" || m.CodeRegion != nil {
		t.Errorf("roles %v %v", m.StackRegion, m.CodeRegion)
	}
}

func TestParseYAMLErrors(t *testing.T) {
	for name, doc := range map[string]string{
		"bad flag":      "regions:\n  - {name: FLASH, access_flags: [rq], origin: 0, length: 1K}\n",
		"unknown field": "regions:\n  - {name: FLASH, perms: rx, origin: 0, length: 1K}\n",
		"not yaml":      "regions: [",
	} {
		if _, err := ParseYAML([]byte(doc)); err == nil {
			t.Errorf("%s: accepted", name)
		}
	}
}

func TestLoadFileFormat(t *testing.T) {
	_, err := LoadFile(context.Background(), "memory.json")
	if err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Errorf("unexpected error %v", err)
	}
}

func TestAccessUnmarshal(t *testing.T) {
	var a access.Access
	if err := a.UnmarshalBinary([]byte("x")); err != nil || a != access.X {
		t.Errorf("got %v, %v", a, err)
	}
	if err := a.UnmarshalBinary([]byte("rx")); err == nil {
		t.Error("multi-flag string accepted")
	}
}
