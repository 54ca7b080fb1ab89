// Copyright 2025 Certen Protocol
//
// Guest linear-memory regions. Grounded on original_source/host/src/lib.rs's
// test usage (instance.call("allocate", len), write_region, read_region,
// instance.call("deallocate", ptr)) — no region.rs was retrieved in the
// pack, so the wire layout here is this repo's own design: a guest-owned
// 12-byte header (offset, capacity, length, all u32 little-endian) followed
// by the data itself, matching the allocate/deallocate contract the guest
// module is expected to export.

package host

import (
	"encoding/binary"
	"fmt"
)

// regionHeaderSize is the byte width of a Region header in guest memory.
const regionHeaderSize = 12

// Region describes a byte buffer living in the guest's linear memory, as
// read from or written to a 12-byte header the guest allocated.
type Region struct {
	Offset   uint32
	Capacity uint32
	Length   uint32
}

// ReadRegionHeader decodes the Region header stored at ptr in mem.
func ReadRegionHeader(mem []byte, ptr uint32) (Region, error) {
	if uint64(ptr)+regionHeaderSize > uint64(len(mem)) {
		return Region{}, fmt.Errorf("host: region header at %d out of bounds", ptr)
	}
	b := mem[ptr : ptr+regionHeaderSize]
	return Region{
		Offset:   binary.LittleEndian.Uint32(b[0:4]),
		Capacity: binary.LittleEndian.Uint32(b[4:8]),
		Length:   binary.LittleEndian.Uint32(b[8:12]),
	}, nil
}

// WriteRegionHeader encodes r back into the 12-byte header at ptr, used
// after the host has filled the guest-allocated buffer and needs to update
// its reported length.
func WriteRegionHeader(mem []byte, ptr uint32, r Region) error {
	if uint64(ptr)+regionHeaderSize > uint64(len(mem)) {
		return fmt.Errorf("host: region header at %d out of bounds", ptr)
	}
	b := mem[ptr : ptr+regionHeaderSize]
	binary.LittleEndian.PutUint32(b[0:4], r.Offset)
	binary.LittleEndian.PutUint32(b[4:8], r.Capacity)
	binary.LittleEndian.PutUint32(b[8:12], r.Length)
	return nil
}

// ReadRegionData copies the bytes described by the Region header at ptr out
// of guest memory.
func ReadRegionData(mem []byte, ptr uint32) ([]byte, error) {
	r, err := ReadRegionHeader(mem, ptr)
	if err != nil {
		return nil, err
	}
	if uint64(r.Offset)+uint64(r.Length) > uint64(len(mem)) {
		return nil, fmt.Errorf("host: region data [%d:%d] out of bounds", r.Offset, r.Offset+r.Length)
	}
	out := make([]byte, r.Length)
	copy(out, mem[r.Offset:r.Offset+r.Length])
	return out, nil
}

// WriteRegionData copies data into the guest buffer described by the Region
// header at ptr and updates the header's length. It fails if data doesn't
// fit in the guest-declared capacity — the guest is responsible for
// allocating a large enough buffer before calling the host function.
func WriteRegionData(mem []byte, ptr uint32, data []byte) error {
	r, err := ReadRegionHeader(mem, ptr)
	if err != nil {
		return err
	}
	if uint32(len(data)) > r.Capacity {
		return fmt.Errorf("host: region at %d has capacity %d, need %d", ptr, r.Capacity, len(data))
	}
	if uint64(r.Offset)+uint64(len(data)) > uint64(len(mem)) {
		return fmt.Errorf("host: region data write [%d:%d] out of bounds", r.Offset, uint64(r.Offset)+uint64(len(data)))
	}
	copy(mem[r.Offset:], data)
	r.Length = uint32(len(data))
	return WriteRegionHeader(mem, ptr, r)
}
