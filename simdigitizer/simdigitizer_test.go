package simdigitizer

import (
	"testing"
	"time"

	"github.jpl.nasa.gov/bdube/transrec/armctl"
	"github.jpl.nasa.gov/bdube/transrec/channels"
)

func newTestController(t *testing.T, opts Options) (*armctl.Controller, *channels.Driver) {
	t.Helper()
	var ctrl *armctl.Controller
	drv := channels.NewDriver(opts.NumChannels, func() bool { return ctrl.AllowingData() }, nil)

	adapterFactory, _ := New(drv, opts)
	var err error
	ctrl, err = armctl.NewController(armctl.Options{
		Adapter:         adapterFactory,
		ChannelsFactory: ChannelsFactory(drv),
	})
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	return ctrl, drv
}

func TestHappyArmingProducesBursts(t *testing.T) {
	ctrl, drv := newTestController(t, Options{NumChannels: 2})

	if err := ctrl.WriteParam("DESIRED_NUM_BURSTS", 3); err != nil {
		t.Fatalf("write NUM_BURSTS: %v", err)
	}
	if err := ctrl.WriteParam("DESIRED_NUM_POST_SAMPLES", 64); err != nil {
		t.Fatalf("write NUM_POST_SAMPLES: %v", err)
	}

	if err := ctrl.HandleArmRequest(armctl.PostTrigger); err != nil {
		t.Fatalf("HandleArmRequest: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for ctrl.ArmState() != armctl.Disarm && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if ctrl.IsArmed() {
		t.Fatal("controller never disarmed on its own; NUM_BURSTS exhaustion should end the arming")
	}

	meta := drv.LastMeta(0)
	if meta.NumSamples != 64 {
		t.Errorf("last submitted burst had %d samples, want 64", meta.NumSamples)
	}
}

func TestOverflowInjectionRecovers(t *testing.T) {
	ctrl, _ := newTestController(t, Options{
		NumChannels:            1,
		OverflowAfterBursts:    2,
		OverflowBufferedBursts: 2,
	})

	if err := ctrl.WriteParam("DESIRED_NUM_BURSTS", 5); err != nil {
		t.Fatalf("write NUM_BURSTS: %v", err)
	}
	if err := ctrl.WriteParam("DESIRED_NUM_POST_SAMPLES", 16); err != nil {
		t.Fatalf("write NUM_POST_SAMPLES: %v", err)
	}

	if err := ctrl.HandleArmRequest(armctl.PostTrigger); err != nil {
		t.Fatalf("HandleArmRequest: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for ctrl.ArmState() != armctl.Disarm && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if ctrl.IsArmed() {
		t.Fatal("controller never disarmed after an overflow-recovery cycle")
	}
	if ctrl.ArmState() == armctl.Error {
		t.Error("arm state left in Error after a recoverable overflow")
	}
}

func TestSetSimOptionsPreservesNumChannels(t *testing.T) {
	_, digitizer := New(channels.NewDriver(4, func() bool { return true }, nil), Options{
		NumChannels:    4,
		NoiseAmplitude: 0.1,
	})

	digitizer.SetSimOptions(Options{
		NumChannels:    1,
		NoiseAmplitude: 0.5,
		Calibration:    []float64{2.0},
	})

	got := digitizer.getOpts()
	if got.NumChannels != 4 {
		t.Errorf("NumChannels = %d after SetSimOptions, want 4 (carried over, not caller-supplied)", got.NumChannels)
	}
	if got.NoiseAmplitude != 0.5 {
		t.Errorf("NoiseAmplitude = %v after SetSimOptions, want 0.5", got.NoiseAmplitude)
	}
	if len(got.Calibration) != 1 || got.Calibration[0] != 2.0 {
		t.Errorf("Calibration = %v after SetSimOptions, want [2.0]", got.Calibration)
	}
}

func TestWarmupDelayDelaysFirstArming(t *testing.T) {
	ctrl, _ := newTestController(t, Options{NumChannels: 1, WarmupDelay: 30 * time.Millisecond})

	if err := ctrl.WriteParam("DESIRED_NUM_BURSTS", 1); err != nil {
		t.Fatalf("write NUM_BURSTS: %v", err)
	}
	if err := ctrl.WriteParam("DESIRED_NUM_POST_SAMPLES", 4); err != nil {
		t.Fatalf("write NUM_POST_SAMPLES: %v", err)
	}

	start := time.Now()
	if err := ctrl.HandleArmRequest(armctl.PostTrigger); err != nil {
		t.Fatalf("HandleArmRequest: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for ctrl.ArmState() != armctl.Disarm && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Error("arming completed faster than the configured warm-up delay allows")
	}
}
