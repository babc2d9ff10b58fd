package timeaxis

import "testing"

func TestReadBeforeConfigure(t *testing.T) {
	p := NewPort()
	if got := p.Read(0); len(got) != 0 {
		t.Errorf("Read before Configure = %v, want empty", got)
	}
}

func TestConfigureAndRead(t *testing.T) {
	p := NewPort()
	p.Configure(0.001, 2, 3)

	got := p.Read(0)
	want := []float64{-0.002, -0.001, 0, 0.001, 0.002}
	if len(got) != len(want) {
		t.Fatalf("Read length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Read[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	if c := p.UpdateCounter(); c != 1 {
		t.Errorf("UpdateCounter = %d, want 1", c)
	}
}

func TestReadTruncation(t *testing.T) {
	p := NewPort()
	p.Configure(1, 1, 4)

	got := p.Read(2)
	if len(got) != 2 {
		t.Fatalf("Read(2) length = %d, want 2", len(got))
	}
}

func TestConfigureBumpsCounter(t *testing.T) {
	p := NewPort()
	p.Configure(1, 0, 10)
	p.Configure(1, 5, 10)
	if c := p.UpdateCounter(); c != 2 {
		t.Errorf("UpdateCounter after two Configure calls = %d, want 2", c)
	}
}
