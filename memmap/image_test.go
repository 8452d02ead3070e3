package memmap

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func flashDump() []byte {
	b := bytes.Repeat([]byte{0xff}, 0x6000)
	copy(b, bytes.Repeat([]byte{0xb0}, 0x3000))      // bootloader
	copy(b[0x4000:], bytes.Repeat([]byte{0xa0}, 0x80)) // application
	return b
}

func TestImageExtract(t *testing.T) {
	img, err := NewImage(pyportal(t), "FLASH", flashDump())
	if err != nil {
		t.Fatal(err)
	}
	bl, err := img.ExtractReservation("bootloader")
	if err != nil {
		t.Fatal(err)
	}
	if len(bl) != 0x4000 || bl[0] != 0xb0 || bl[0x3fff] != 0xff {
		t.Errorf("bootloader of %d bytes", len(bl))
	}
	app, err := img.ExtractApp()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(app, bytes.Repeat([]byte{0xa0}, 0x80)) {
		t.Errorf("application of %d bytes", len(app))
	}
	if _, err := img.ExtractReservation("settings"); err == nil {
		t.Error("missing reservation extracted")
	}
}

func TestOpenImageHex(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "dump.hex")
	hex := buildHex(t, 0, map[uint32][]byte{
		0x0000: bytes.Repeat([]byte{0xb0}, 0x10),
		0x4000: {0xa0, 0xa1},
	})
	if err := os.WriteFile(name, hex, 0644); err != nil {
		t.Fatal(err)
	}
	img, err := OpenImage(pyportal(t), "FLASH", name)
	if err != nil {
		t.Fatal(err)
	}
	app, err := img.ExtractApp()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(app, []byte{0xa0, 0xa1}) {
		t.Errorf("application % x", app)
	}
}

func TestImageTooLarge(t *testing.T) {
	tbl := NewTable(0)
	tbl.Define("FLASH", 0, 0x100, Read|Exec)
	var pe *PlacementOverflowError
	if _, err := NewImage(tbl, "FLASH", make([]byte, 0x101)); !errors.As(err, &pe) || pe.Excess() != 1 {
		t.Errorf("expected overflow by 1 byte, got %v", err)
	}
}
