package memmap

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sigurn/crc16"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

var crcTable = crc16.MakeTable(crc16.CRC16_CCITT_FALSE)

// Manifest is the resolved layout in a form the build tooling can consume.
type Manifest struct {
	st *structpb.Struct
	// Digest is the CRC-16/CCITT-FALSE of the deterministic encoding of the
	// layout, without the digest field itself.
	Digest uint16
}

// NewManifest describes the resolved layout of t.
func NewManifest(t *Table) (*Manifest, error) {
	sp, err := ComputeInitialStack(t)
	if err != nil {
		return nil, err
	}
	var regions []any
	for _, r := range t.Regions() {
		span, err := t.Resolve(r.Name)
		if err != nil {
			return nil, err
		}
		var extents, reservations []any
		for _, e := range span.Extents {
			extents = append(extents, map[string]any{"start": hexValue(e.Start), "length": hexValue(e.Len())})
		}
		for _, res := range t.Reservations(r.Name) {
			reservations = append(reservations, map[string]any{
				"label":  res.Label,
				"offset": hexValue(res.Offset),
				"size":   hexValue(res.Size),
			})
		}
		regions = append(regions, map[string]any{
			"name":         r.Name,
			"access":       r.Perm.String(),
			"origin":       hexValue(r.Base),
			"length":       hexValue(r.Length),
			"available":    hexValue(span.Length),
			"extents":      extents,
			"reservations": reservations,
		})
	}
	st, err := structpb.NewStruct(map[string]any{
		"address_bits": uint64(t.AddrBits()),
		"stack_top":    hexValue(sp),
		"regions":      regions,
	})
	if err != nil {
		return nil, fmt.Errorf("memmap: build manifest: %w", err)
	}
	digest, err := layoutDigest(st)
	if err != nil {
		return nil, err
	}
	st.Fields["digest"] = structpb.NewNumberValue(float64(digest))
	return &Manifest{st: st, Digest: digest}, nil
}

func layoutDigest(st *structpb.Struct) (uint16, error) {
	c := proto.Clone(st).(*structpb.Struct)
	delete(c.Fields, "digest")
	b, err := proto.MarshalOptions{Deterministic: true}.Marshal(c)
	if err != nil {
		return 0, err
	}
	return crc16.Checksum(b, crcTable), nil
}

// Marshal returns the binary protobuf encoding.
func (m *Manifest) Marshal() ([]byte, error) {
	return proto.MarshalOptions{Deterministic: true}.Marshal(m.st)
}

// MarshalJSON returns the protobuf JSON encoding.
func (m *Manifest) MarshalJSON() ([]byte, error) {
	return protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(m.st)
}

// StackTop returns the stack pointer recorded in the manifest.
func (m *Manifest) StackTop() (uint64, error) {
	return parseHexValue(m.st.Fields["stack_top"])
}

// Addresses and lengths are stored as hex strings: a protobuf number is a
// double and cannot hold every 64-bit address.
func hexValue(v uint64) string {
	return "0x" + strconv.FormatUint(v, 16)
}

func parseHexValue(v *structpb.Value) (uint64, error) {
	s := v.GetStringValue()
	if !strings.HasPrefix(s, "0x") {
		return 0, fmt.Errorf("memmap: manifest value %q is not a hex address", s)
	}
	return strconv.ParseUint(s[2:], 16, 64)
}

// AsMap returns the manifest as plain Go values.
func (m *Manifest) AsMap() map[string]any {
	return m.st.AsMap()
}

var errDigest = errors.New("memmap: manifest digest mismatch")

// DecodeManifest parses a binary manifest and verifies its digest.
func DecodeManifest(b []byte) (*Manifest, error) {
	var st structpb.Struct
	if err := proto.Unmarshal(b, &st); err != nil {
		return nil, err
	}
	want, ok := st.Fields["digest"]
	if !ok {
		return nil, errors.New("memmap: manifest has no digest")
	}
	digest, err := layoutDigest(&st)
	if err != nil {
		return nil, err
	}
	if uint16(want.GetNumberValue()) != digest {
		return nil, errDigest
	}
	return &Manifest{st: &st, Digest: digest}, nil
}
