package memmap

import (
	"errors"
	"testing"
)

func TestValidatePlacementOverflow(t *testing.T) {
	tbl := pyportal(t)
	// firmware grown past the end of flash
	err := ValidatePlacement(tbl, []Section{
		{Name: ".text", Addr: 0x4000, Size: 0xfc000 + 0x200},
	})
	var pe *PlacementOverflowError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PlacementOverflowError, got %v", err)
	}
	if pe.Section != ".text" || pe.Region != "FLASH" || pe.Available != 0xfc000 || pe.Excess() != 0x200 {
		t.Errorf("unexpected error %+v (excess %d)", pe, pe.Excess())
	}
}

func TestValidatePlacementIntoReservation(t *testing.T) {
	tbl := pyportal(t)
	tbl.ReserveLabel("FLASH", "settings", 0xff000, 0x1000)
	err := ValidatePlacement(tbl, []Section{
		{Name: ".text", Addr: 0x4000, Size: 0xfb100},
	})
	var pe *PlacementOverflowError
	if !errors.As(err, &pe) || pe.Excess() != 0x100 {
		t.Errorf("expected overflow by 0x100 into settings, got %v", err)
	}
}

func TestValidatePlacementOverlap(t *testing.T) {
	tbl := pyportal(t)
	err := ValidatePlacement(tbl, []Section{
		{Name: ".rodata", Addr: 0x5000, Size: 0x1000},
		{Name: ".text", Addr: 0x4000, Size: 0x1800},
	})
	var oe *OverlapError
	if !errors.As(err, &oe) {
		t.Fatalf("expected OverlapError, got %v", err)
	}
	if oe.Kind != "section" || oe.Start != 0x5000 || oe.End != 0x5800 {
		t.Errorf("unexpected overlap %+v", oe)
	}
}

func TestValidatePlacementUnknownRegion(t *testing.T) {
	tbl := pyportal(t)
	var ue *UnknownRegionError
	if err := ValidatePlacement(tbl, []Section{{Name: ".ccm", Region: "CCM", Addr: 0x10000000, Size: 4}}); !errors.As(err, &ue) {
		t.Errorf("named region: %v", err)
	}
	if err := ValidatePlacement(tbl, []Section{{Name: ".ext", Addr: 0x90000000, Size: 4}}); !errors.As(err, &ue) {
		t.Errorf("address outside every region: %v", err)
	}
	var re *RangeError
	if err := ValidatePlacement(tbl, []Section{{Name: ".data", Region: "RAM", Addr: 0x4000, Size: 4}}); !errors.As(err, &re) {
		t.Errorf("section outside its named region: %v", err)
	}
}

func TestValidatePlacementOK(t *testing.T) {
	tbl := pyportal(t)
	err := ValidatePlacement(tbl, []Section{
		{Name: ".text", Addr: 0x4000, Size: 0x10000},
		{Name: ".empty", Addr: 0, Size: 0},
		{Name: ".rodata", Addr: 0x14000, Size: 0x100},
		{Name: ".bss", Addr: 0x20000000, Size: 0x40000},
	})
	if err != nil {
		t.Error(err)
	}
}

func TestPlaceImageTooLarge(t *testing.T) {
	tbl := pyportal(t)
	_, err := Place(tbl, "FLASH", []Section{
		{Name: ".text", Size: 0xf0000},
		{Name: ".rodata", Size: 0xc000},
		{Name: ".data", Size: 0x800},
	})
	var pe *PlacementOverflowError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PlacementOverflowError, got %v", err)
	}
	if pe.Section != ".data" || pe.Requested != 0xfc800 || pe.Available != 0xfc000 || pe.Excess() != 0x800 {
		t.Errorf("unexpected error %+v", pe)
	}
}

func TestPlace(t *testing.T) {
	tbl := pyportal(t)
	tbl.ReserveLabel("FLASH", "config", 0x8000, 0x1000)
	out, err := Place(tbl, "FLASH", []Section{
		{Name: ".isr_vector", Size: 0x100, Align: 0x100},
		{Name: ".text", Size: 0x3000, Align: 4},
		{Name: ".rodata", Size: 0x1002, Align: 4},
		{Name: ".data", Size: 0x10, Align: 8},
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []uint64{0x4000, 0x4100, 0x9000, 0xa008}
	for i, s := range out {
		if s.Addr != want[i] || s.Region != "FLASH" {
			t.Errorf("%s at %s %#x, want %#x", s.Name, s.Region, s.Addr, want[i])
		}
	}
	if err := ValidatePlacement(tbl, out); err != nil {
		t.Errorf("placed sections do not validate: %v", err)
	}
}

func TestPlaceFragmented(t *testing.T) {
	tbl := NewTable(0)
	tbl.Define("FLASH", 0, 0x3000, Read|Exec)
	tbl.Reserve("FLASH", 0x1000, 0x1000)
	_, err := Place(tbl, "FLASH", []Section{
		{Name: ".a", Size: 0x800},
		{Name: ".b", Size: 0x1000},
		{Name: ".c", Size: 0x400},
	})
	var pe *PlacementOverflowError
	if !errors.As(err, &pe) || pe.Section != ".c" || pe.Available != 0 {
		t.Errorf("expected .c to overflow the fragmented region, got %v", err)
	}
}
