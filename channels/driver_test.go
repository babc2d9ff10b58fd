package channels

import "testing"

func TestSubmitDiscardedWhenNotAllowing(t *testing.T) {
	allowing := false
	d := NewDriver(2, func() bool { return allowing }, nil)
	buf := d.Allocate(4, Float64)

	delivered, err := d.Submit(buf, 0, 1, 0, 0, nil)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if delivered {
		t.Error("Submit delivered while allowingData is false")
	}
}

func TestSubmitDelivers(t *testing.T) {
	d := NewDriver(2, func() bool { return true }, nil)
	buf := d.Allocate(4, Float64)
	copy(buf.Samples(), []float64{1, 2, 3, 4})

	delivered, err := d.Submit(buf, 1, 42, 1.5, 1.6, nil)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !delivered {
		t.Fatal("Submit should have delivered")
	}
	meta := d.LastMeta(1)
	if meta.UniqueID != 42 || meta.NumSamples != 4 {
		t.Errorf("LastMeta = %+v, want UniqueID=42 NumSamples=4", meta)
	}
	if meta.CRC32 == 0 {
		t.Error("CRC32 should be non-zero for non-empty sample data")
	}
}

func TestSubmitInvalidChannel(t *testing.T) {
	d := NewDriver(2, func() bool { return true }, nil)
	buf := d.Allocate(1, Float64)
	if _, err := d.Submit(buf, 5, 0, 0, 0, nil); err == nil {
		t.Error("Submit to out-of-range channel should fail")
	}
}

func TestCompletionCanInhibitDelivery(t *testing.T) {
	d := NewDriver(1, func() bool { return true }, nil)
	buf := d.Allocate(2, Float64)

	delivered, err := d.Submit(buf, 0, 0, 0, 0, func(meta *Meta, b *Buffer) bool {
		return false
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if delivered {
		t.Error("completion callback returned false, Submit should report not delivered")
	}
}

func TestChecksumStable(t *testing.T) {
	a := checksum([]float64{1, 2, 3})
	b := checksum([]float64{1, 2, 3})
	c := checksum([]float64{1, 2, 4})
	if a != b {
		t.Error("checksum of identical data should match")
	}
	if a == c {
		t.Error("checksum of different data should not match")
	}
}
