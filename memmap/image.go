package memmap

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Image is a full dump of a region, e.g. a flash readout that contains the
// bootloader as well as the application.
type Image struct {
	r      io.ReaderAt
	size   uint64
	region Region
	t      *Table
}

// OpenImage opens a dump of region. Intel HEX files are flattened from the
// region base, anything else is read as raw bytes starting at the base.
func OpenImage(t *Table, region, name string) (*Image, error) {
	r, ok := t.Region(region)
	if !ok {
		return nil, &UnknownRegionError{Name: region, Ref: "image " + name}
	}
	b, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(name), ".hex") {
		mem, err := parseHex(bytes.NewReader(b))
		if err != nil {
			return nil, err
		}
		if r.Base > uint64(^uint32(0)) {
			return nil, &RangeError{Name: name, Offset: r.Base, Limit: uint64(^uint32(0)),
				Reason: "intel hex only addresses 32 bits"}
		}
		b = hexToBinary(mem, uint32(r.Base))
	}
	return NewImage(t, region, b)
}

// NewImage wraps the bytes of a dump of region.
func NewImage(t *Table, region string, b []byte) (*Image, error) {
	r, ok := t.Region(region)
	if !ok {
		return nil, &UnknownRegionError{Name: region, Ref: "image"}
	}
	if uint64(len(b)) > r.Length {
		return nil, &PlacementOverflowError{Section: "image", Region: region,
			Requested: uint64(len(b)), Available: r.Length}
	}
	return &Image{r: bytes.NewReader(b), size: uint64(len(b)), region: r, t: t}, nil
}

// ExtractReservation returns the bytes held by the reservation with label,
// e.g. the bootloader.
func (f *Image) ExtractReservation(label string) ([]byte, error) {
	for _, res := range f.t.Reservations(f.region.Name) {
		if res.Label != label {
			continue
		}
		return f.read(res.Offset, res.Size)
	}
	return nil, fmt.Errorf("memmap: region %s has no reservation %q", f.region.Name, label)
}

// ExtractApp returns the contents of the first free extent of the region
// with trailing erased bytes (0xFF) removed.
func (f *Image) ExtractApp() ([]byte, error) {
	span, err := f.t.Resolve(f.region.Name)
	if err != nil {
		return nil, err
	}
	if len(span.Extents) == 0 {
		return nil, errors.New("memmap: region has no free space")
	}
	e := span.Extents[0]
	b, err := f.read(e.Start-f.region.Base, e.Len())
	if err != nil {
		return nil, err
	}
	return bytes.TrimRight(b, "\xff"), nil
}

// read returns size bytes at offset, padding past the end of the dump with
// erased bytes.
func (f *Image) read(offset, size uint64) ([]byte, error) {
	out := bytes.Repeat([]byte{0xff}, int(size))
	if offset >= f.size {
		return out, nil
	}
	n := min(size, f.size-offset)
	if _, err := f.r.ReadAt(out[:n], int64(offset)); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return out, nil
}
