package memmap

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/marcinbor85/gohex"
)

// HexFileToBinary flattens an Intel HEX image, starting at address 0 and
// padding gaps with 0xFF.
func HexFileToBinary(b []byte) ([]byte, error) {
	r := bytes.NewReader(b)
	mem, err := parseHex(r)
	if err != nil {
		return nil, err
	}
	return hexToBinary(mem, 0), nil
}

func parseHex(r io.Reader) (*gohex.Memory, error) {
	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(r); err != nil {
		return nil, err
	}
	return mem, nil
}

func hexToBinary(mem *gohex.Memory, base uint32) []byte {
	var size uint32
	for _, segment := range mem.GetDataSegments() {
		end := segment.Address + uint32(len(segment.Data))
		if end > base+size {
			size = end - base
		}
	}
	return mem.ToBinary(base, size, 0xFF)
}

// SectionsFromHex turns the data segments of an Intel HEX image into
// sections. The returned entry is the start address record, if present.
func SectionsFromHex(r io.Reader) (sections []Section, entry uint64, ok bool, err error) {
	mem, err := parseHex(r)
	if err != nil {
		return nil, 0, false, err
	}
	for _, segment := range mem.GetDataSegments() {
		sections = append(sections, Section{
			Name: fmt.Sprintf("hex@%#08x", segment.Address),
			Addr: uint64(segment.Address),
			Size: uint64(len(segment.Data)),
		})
	}
	sort.Slice(sections, func(i, j int) bool {
		return sections[i].Addr < sections[j].Addr
	})
	if addr, found := mem.GetStartAddress(); found {
		entry, ok = uint64(addr), true
	}
	return sections, entry, ok, nil
}

// VectorSlotSize is the size of the reset slot: the initial stack pointer
// word followed by the reset vector word.
const VectorSlotSize = 8

// VectorImage is a Machine that writes the initial state into the reset slot
// of an Intel HEX image, the way a Cortex-M core reads it at reset.
type VectorImage struct {
	mem    *gohex.Memory
	table  *Table
	vector uint64
}

// NewVectorImage returns a VectorImage writing at vector. The slot must lie
// in the free space of a region of t.
func NewVectorImage(t *Table, mem *gohex.Memory, vector uint64) *VectorImage {
	if mem == nil {
		mem = gohex.NewMemory()
	}
	return &VectorImage{mem: mem, table: t, vector: vector}
}

// ReadVectorImage parses an Intel HEX image for patching.
func ReadVectorImage(t *Table, r io.Reader, vector uint64) (*VectorImage, error) {
	mem, err := parseHex(r)
	if err != nil {
		return nil, err
	}
	return NewVectorImage(t, mem, vector), nil
}

func (v *VectorImage) Install(sp, entry uint64) error {
	if sp > math.MaxUint32 || entry > math.MaxUint32 || v.vector > math.MaxUint32-VectorSlotSize {
		return &RangeError{Name: "reset slot", Offset: v.vector, Size: VectorSlotSize,
			Limit: math.MaxUint32, Reason: "does not fit 32-bit vector words"}
	}
	slot := Section{Name: "reset slot", Addr: v.vector, Size: VectorSlotSize}
	if err := ValidatePlacement(v.table, []Section{slot}); err != nil {
		return err
	}
	var b [VectorSlotSize]byte
	binary.LittleEndian.PutUint32(b[0:], uint32(sp))
	binary.LittleEndian.PutUint32(b[4:], uint32(entry))
	v.mem.SetBinary(uint32(v.vector), b[:])
	v.mem.SetStartAddress(uint32(entry))
	return nil
}

// Slot reads back the stack pointer and entry words of the reset slot.
func (v *VectorImage) Slot() (sp, entry uint32) {
	b := v.mem.ToBinary(uint32(v.vector), VectorSlotSize, 0xFF)
	return binary.LittleEndian.Uint32(b[0:]), binary.LittleEndian.Uint32(b[4:])
}

// WriteHex writes the image as Intel HEX.
func (v *VectorImage) WriteHex(w io.Writer) error {
	return v.mem.DumpIntelHex(w, 16)
}
