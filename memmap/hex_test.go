package memmap

import (
	"bytes"
	"errors"
	"testing"

	"github.com/marcinbor85/gohex"
)

func buildHex(t *testing.T, start uint32, segments map[uint32][]byte) []byte {
	t.Helper()
	mem := gohex.NewMemory()
	for addr, data := range segments {
		if err := mem.AddBinary(addr, data); err != nil {
			t.Fatal(err)
		}
	}
	if start != 0 {
		mem.SetStartAddress(start)
	}
	var buf bytes.Buffer
	if err := mem.DumpIntelHex(&buf, 16); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestSectionsFromHex(t *testing.T) {
	b := buildHex(t, 0x4101, map[uint32][]byte{
		0x4000: bytes.Repeat([]byte{0xaa}, 0x200),
		0x8000: bytes.Repeat([]byte{0x55}, 0x10),
	})
	sections, entry, ok, err := SectionsFromHex(bytes.NewReader(b))
	if err != nil {
		t.Fatal(err)
	}
	if !ok || entry != 0x4101 {
		t.Errorf("entry %#x, %v", entry, ok)
	}
	if len(sections) != 2 {
		t.Fatalf("got %d sections", len(sections))
	}
	if sections[0].Addr != 0x4000 || sections[0].Size != 0x200 || sections[1].Addr != 0x8000 || sections[1].Size != 0x10 {
		t.Errorf("unexpected sections %+v", sections)
	}
	if err := ValidatePlacement(pyportal(t), sections); err != nil {
		t.Errorf("image should fit: %v", err)
	}
}

func TestHexOverBootloader(t *testing.T) {
	// image linked for a target without bootloader
	b := buildHex(t, 0, map[uint32][]byte{0: make([]byte, 0x100)})
	sections, _, _, err := SectionsFromHex(bytes.NewReader(b))
	if err != nil {
		t.Fatal(err)
	}
	var oe *OverlapError
	if err := ValidatePlacement(pyportal(t), sections); !errors.As(err, &oe) {
		t.Errorf("expected OverlapError with the bootloader, got %v", err)
	}
}

func TestHexFileToBinary(t *testing.T) {
	b := buildHex(t, 0, map[uint32][]byte{
		0x0: {1, 2},
		0x4: {3},
	})
	bin, err := HexFileToBinary(b)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{1, 2, 0xff, 0xff, 3}
	if !bytes.Equal(bin, want) {
		t.Errorf("got % x, want % x", bin, want)
	}
}

func TestVectorImageInstall(t *testing.T) {
	tbl := pyportal(t)
	b := buildHex(t, 0, map[uint32][]byte{0x4000: make([]byte, 0x100)})
	img, err := ReadVectorImage(tbl, bytes.NewReader(b), 0x4000)
	if err != nil {
		t.Fatal(err)
	}
	in := NewInitializer()
	if err := in.Configure(tbl); err != nil {
		t.Fatal(err)
	}
	if err := in.Place([]Section{{Name: ".text", Addr: 0x4000, Size: 0x100}}); err != nil {
		t.Fatal(err)
	}
	if err := in.Start(0x40c1, img); err != nil {
		t.Fatal(err)
	}
	sp, entry := img.Slot()
	if sp != 0x20040000 || entry != 0x40c1 {
		t.Errorf("reset slot holds sp %#x entry %#x", sp, entry)
	}

	var out bytes.Buffer
	if err := img.WriteHex(&out); err != nil {
		t.Fatal(err)
	}
	back, err := ReadVectorImage(tbl, &out, 0x4000)
	if err != nil {
		t.Fatal(err)
	}
	if sp2, entry2 := back.Slot(); sp2 != sp || entry2 != entry {
		t.Errorf("written image holds sp %#x entry %#x", sp2, entry2)
	}
}

func TestVectorImageInReservation(t *testing.T) {
	tbl := pyportal(t)
	img := NewVectorImage(tbl, nil, 0)
	var oe *OverlapError
	if err := img.Install(0x20040000, 0x4001); !errors.As(err, &oe) {
		t.Errorf("reset slot in the bootloader accepted: %v", err)
	}
	var re *RangeError
	if err := img.Install(1<<33, 0x4001); !errors.As(err, &re) {
		t.Errorf("64-bit stack pointer accepted: %v", err)
	}
}
