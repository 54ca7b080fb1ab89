// Copyright 2025 Certen Protocol

package host

import "testing"

func TestRegionWriteAndReadRoundTrip(t *testing.T) {
	mem := make([]byte, 256)
	// Guest "allocates" a 64-byte buffer at offset 100 with header at 0.
	if err := WriteRegionHeader(mem, 0, Region{Offset: 100, Capacity: 64}); err != nil {
		t.Fatalf("WriteRegionHeader: %v", err)
	}

	payload := []byte("hello contract")
	if err := WriteRegionData(mem, 0, payload); err != nil {
		t.Fatalf("WriteRegionData: %v", err)
	}

	got, err := ReadRegionData(mem, 0)
	if err != nil {
		t.Fatalf("ReadRegionData: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("expected %q, got %q", payload, got)
	}

	hdr, err := ReadRegionHeader(mem, 0)
	if err != nil {
		t.Fatalf("ReadRegionHeader: %v", err)
	}
	if hdr.Length != uint32(len(payload)) {
		t.Errorf("expected length %d, got %d", len(payload), hdr.Length)
	}
}

func TestWriteRegionDataRejectsOverCapacity(t *testing.T) {
	mem := make([]byte, 64)
	if err := WriteRegionHeader(mem, 0, Region{Offset: 20, Capacity: 4}); err != nil {
		t.Fatalf("WriteRegionHeader: %v", err)
	}
	if err := WriteRegionData(mem, 0, []byte("too big")); err == nil {
		t.Errorf("expected error writing data larger than capacity")
	}
}

func TestReadRegionHeaderOutOfBounds(t *testing.T) {
	mem := make([]byte, 8)
	if _, err := ReadRegionHeader(mem, 4); err == nil {
		t.Errorf("expected out-of-bounds error")
	}
}
