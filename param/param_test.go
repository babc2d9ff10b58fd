package param

import (
	"math"
	"testing"
)

func TestTypedParamLifecycle(t *testing.T) {
	reg := NewRegistry()
	var p TypedParam[int, float64]
	p.Init(reg, "NUM_BURSTS", math.NaN(), false)

	if got := p.DesiredName(); got != "DESIRED_NUM_BURSTS" {
		t.Errorf("DesiredName = %q, want DESIRED_NUM_BURSTS", got)
	}
	if got := p.EffectiveName(); got != "EFFECTIVE_NUM_BURSTS" {
		t.Errorf("EffectiveName = %q, want EFFECTIVE_NUM_BURSTS", got)
	}
	if !math.IsNaN(p.EffectiveFloat()) {
		t.Errorf("effective at init = %v, want NaN", p.EffectiveFloat())
	}
	if !reg.Gate().IsProtected(p.EffectiveName()) {
		t.Error("effective name not protected after Init")
	}
	if reg.Gate().IsProtected(p.DesiredName()) {
		t.Error("desired name of non-internal param should not be protected")
	}
}

func TestTypedParamInitTwicePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on second Init call")
		}
	}()
	reg := NewRegistry()
	var p TypedParam[int, float64]
	p.Init(reg, "NUM_BURSTS", math.NaN(), false)
	p.Init(reg, "NUM_BURSTS", math.NaN(), false)
}

func TestInternalParamRejectsExternalWrite(t *testing.T) {
	reg := NewRegistry()
	var p TypedParam[float64, float64]
	p.Init(reg, "ACHIEVABLE_SAMPLE_RATE", math.NaN(), true)

	if !reg.Gate().IsProtected(p.DesiredName()) {
		t.Error("internal param's desired name must be protected")
	}
	if err := p.SetDesiredFloat(42); err == nil {
		t.Error("SetDesiredFloat on internal param should fail")
	}

	p.SetDesired(42) // adapter-side write is legal
	if got := p.GetDesired(); got != 42 {
		t.Errorf("GetDesired = %v, want 42", got)
	}
}

func TestCaptureAndPushEffective(t *testing.T) {
	reg := NewRegistry()
	var p TypedParam[int, float64]
	p.Init(reg, "NUM_BURSTS", math.NaN(), false)
	if err := p.SetDesiredFloat(3); err != nil {
		t.Fatalf("SetDesiredFloat: %v", err)
	}

	reg.Capture()
	if got := p.GetSnapshot(); got != 3 {
		t.Fatalf("snapshot after capture = %v, want 3", got)
	}

	// A later external write must not disturb the frozen snapshot.
	if err := p.SetDesiredFloat(99); err != nil {
		t.Fatalf("SetDesiredFloat: %v", err)
	}
	if got := p.GetSnapshot(); got != 3 {
		t.Errorf("snapshot mutated by later desired write: got %v, want 3", got)
	}

	reg.PushEffectiveFromSnapshot()
	if got := p.EffectiveFloat(); got != 3 {
		t.Errorf("effective after push = %v, want 3", got)
	}

	reg.PushEffectiveInvalid()
	if !math.IsNaN(p.EffectiveFloat()) {
		t.Errorf("effective after push-invalid = %v, want NaN", p.EffectiveFloat())
	}
}

func TestIrrelevantParamPushesInvalid(t *testing.T) {
	reg := NewRegistry()
	var p TypedParam[int, float64]
	p.Init(reg, "NUM_PRE_POST_SAMPLES", math.NaN(), false)

	reg.Capture()
	p.SetSnapshot(0)
	p.SetIrrelevant()
	reg.PushEffectiveFromSnapshot()

	if !math.IsNaN(p.EffectiveFloat()) {
		t.Errorf("irrelevant param effective = %v, want NaN", p.EffectiveFloat())
	}
	if got := p.GetSnapshot(); got != 0 {
		t.Errorf("snapshot override = %v, want 0", got)
	}
}

func TestRegistryByName(t *testing.T) {
	reg := NewRegistry()
	var bursts TypedParam[int, float64]
	bursts.Init(reg, "NUM_BURSTS", math.NaN(), false)
	var rate TypedParam[float64, float64]
	rate.Init(reg, "REQUESTED_SAMPLE_RATE", math.NaN(), false)

	if _, ok := reg.ByName("DESIRED_NUM_BURSTS"); !ok {
		t.Error("expected to find DESIRED_NUM_BURSTS")
	}
	if _, ok := reg.ByName("EFFECTIVE_REQUESTED_SAMPLE_RATE"); !ok {
		t.Error("expected to find EFFECTIVE_REQUESTED_SAMPLE_RATE")
	}
	if _, ok := reg.ByName("NOPE"); ok {
		t.Error("unexpected hit for unregistered name")
	}
	if got := len(reg.Params()); got != 2 {
		t.Errorf("Params() length = %d, want 2", got)
	}
}
