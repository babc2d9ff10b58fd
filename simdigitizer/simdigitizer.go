// Package simdigitizer implements a software-only armctl.DigitizerAdapter:
// no hardware, just synthetic bursts paced at the achievable sample rate and
// an optional scripted buffer-overflow injection, for exercising the
// arming controller and the HTTP bus without a real transient recorder.
package simdigitizer

import (
	"context"
	"math"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff"
	"golang.org/x/time/rate"

	"github.jpl.nasa.gov/bdube/transrec/armctl"
	"github.jpl.nasa.gov/bdube/transrec/channels"
	"github.jpl.nasa.gov/bdube/transrec/mathx"
)

// Options configures a Digitizer. Calibration scales each channel's
// synthetic samples; a nil or short slice means unity gain on the
// channels it doesn't cover.
type Options struct {
	NumChannels    int
	NoiseAmplitude float64
	Calibration    []float64

	// OverflowAfterBursts, when > 0, makes CheckOverflow report an
	// overflow the first time it is consulted on or after this many
	// bursts within a single start/stop cycle; 0 disables injection.
	OverflowAfterBursts int
	// OverflowBufferedBursts is the numBufferBursts CheckOverflow
	// reports alongside the injected overflow.
	OverflowBufferedBursts int

	// WarmupDelay is how long WaitForPreconditions waits before its
	// first successful poll, simulating a warm-up interlock.
	WarmupDelay time.Duration
}

// Digitizer is a simulated DigitizerAdapter. It embeds *armctl.BaseAdapter
// so it only needs to override the callbacks that do real work; the rest
// (OnDisarmed, RequestedSampleRateChanged) fall back to the base defaults.
type Digitizer struct {
	*armctl.BaseAdapter

	opts    atomic.Pointer[Options]
	drv     *channels.Driver
	rng     *rand.Rand
	burstID uint64

	// limiter paces ReadBurst: a token bucket with a burst size of 1 is
	// the standard idiom for "admit at most once per interval," which is
	// exactly the fixed-cadence schedule a burst loop needs.
	limiter    *rate.Limiter
	cancelRead atomic.Pointer[context.CancelFunc]

	burstsThisCycle int
	warmedUp        bool
	overflowFired   bool
}

// New builds a Digitizer bound to driver, the channels collaborator
// ProcessBurstData submits to, and returns both the AdapterFactory that
// installs it as a controller's DigitizerAdapter and the Digitizer itself,
// so a caller can push updated Options to it later (SetSimOptions) without
// reaching into the controller.
func New(driver *channels.Driver, opts Options) (armctl.AdapterFactory, *Digitizer) {
	d := &Digitizer{
		drv:     driver,
		rng:     rand.New(rand.NewSource(1)),
		limiter: rate.NewLimiter(rate.Inf, 1),
	}
	d.opts.Store(&opts)
	factory := func(c *armctl.Controller) armctl.DigitizerAdapter {
		d.BaseAdapter = &armctl.BaseAdapter{Controller: c}
		return d
	}
	return factory, d
}

// getOpts returns the currently installed Options.
func (d *Digitizer) getOpts() Options {
	return *d.opts.Load()
}

// SetSimOptions installs new simulation parameters (Calibration,
// NoiseAmplitude, OverflowAfterBursts, OverflowBufferedBursts,
// WarmupDelay), taking effect on the next CheckOverflow/WaitForPreconditions/
// fill consult. NumChannels is carried over from the Digitizer's existing
// options rather than accepted from opts, since the channel count is fixed
// by the channels.Driver this Digitizer was constructed with.
func (d *Digitizer) SetSimOptions(opts Options) {
	opts.NumChannels = d.getOpts().NumChannels
	d.opts.Store(&opts)
}

// ChannelsFactory wraps driver so it can also be installed as the
// controller's Channels collaborator without a second allocation.
func ChannelsFactory(driver *channels.Driver) armctl.ChannelsFactory {
	return func(c *armctl.Controller) armctl.Channels { return driver }
}

// SupportsPreSamples reports true; the simulator can back-fill pre-trigger
// samples trivially since it generates the whole waveform synthetically.
func (d *Digitizer) SupportsPreSamples() bool { return true }

// NumChannels reports the configured channel count.
func (d *Digitizer) NumChannels() int { return d.getOpts().NumChannels }

// WaitForPreconditions simulates a warm-up interlock: the first arming
// after construction waits WarmupDelay behind an exponential backoff poll,
// matching the retry idiom a flaky serial link would need; every later
// arming returns immediately since the simulated hardware stays warm. The
// poll runs with the controller mutex dropped via UnlockDuring, so a bus
// read or write is not blocked out for the whole warm-up.
func (d *Digitizer) WaitForPreconditions() bool {
	warmupDelay := d.getOpts().WarmupDelay
	if d.warmedUp || warmupDelay <= 0 {
		d.warmedUp = true
		return true
	}

	var warmed bool
	d.Controller.UnlockDuring(func() {
		deadline := time.Now().Add(warmupDelay)
		op := func() error {
			if time.Now().Before(deadline) {
				return errNotWarm
			}
			return nil
		}
		err := backoff.Retry(op, &backoff.ExponentialBackOff{
			InitialInterval:     5 * time.Millisecond,
			RandomizationFactor: 0,
			Multiplier:          2,
			MaxInterval:         100 * time.Millisecond,
			MaxElapsedTime:      warmupDelay + time.Second,
			Clock:               backoff.SystemClock,
		})
		warmed = err == nil
	})
	d.warmedUp = warmed
	return warmed
}

// CheckSettings reports a display rate and lets every channel and
// pre/post count through unmodified (info's custom sample counts stay
// nil, so the controller falls back to the snapshot values).
func (d *Digitizer) CheckSettings(info *armctl.ArmInfo) bool {
	rate := d.Controller.AchievableSampleRate()
	if math.IsNaN(rate) || rate <= 0 {
		rate = 1000
	}
	// the simulated rate is exact, but round to 0.01 Hz anyway so display
	// values don't carry meaningless float noise, same as a real digitizer's
	// clock-divider-derived rate would.
	info.RateForDisplay = mathx.Round(rate, 0.01)
	return true
}

// StartAcquisition resets the per-cycle overflow bookkeeping on a fresh
// (non-overflow-recovery) start, reconfigures the pacing limiter from the
// achievable sample rate and the snapshot post-sample count, and always
// succeeds.
func (d *Digitizer) StartAcquisition(overflow bool) bool {
	if !overflow {
		d.burstsThisCycle = 0
		d.overflowFired = false

		interval := burstInterval(d.Controller.AchievableSampleRate(), d.Controller.NumPostSamplesSnapshot())
		d.limiter.SetLimit(rate.Every(interval))
		d.limiter.SetBurst(1)
	}
	return true
}

// ReadBurst blocks on the pacing limiter until a token is available, so
// bursts are admitted at the cadence burstInterval derives. InterruptReading
// cancels the context of this wait, so an in-flight wait returns promptly
// instead of blocking out the rest of the interval; ReadBurst's contract is
// to return true either way.
func (d *Digitizer) ReadBurst() bool {
	ctx, cancel := context.WithCancel(context.Background())
	d.cancelRead.Store(&cancel)
	defer cancel()

	d.limiter.Wait(ctx) // error (context canceled) just means "interrupted"
	d.burstsThisCycle++
	return true
}

// InterruptReading cancels the context of the most recent ReadBurst's
// limiter wait, so an in-flight ReadBurst returns without waiting out its
// interval. A ReadBurst that starts after this call gets a fresh context
// and is not interrupted.
func (d *Digitizer) InterruptReading() {
	if p := d.cancelRead.Load(); p != nil {
		(*p)()
	}
}

// burstInterval derives a fixed-cadence burst period from a sample rate and
// post-sample count, capped at 50ms (5ms when either input is unusable).
func burstInterval(sampleRate float64, numPost int) time.Duration {
	if math.IsNaN(sampleRate) || sampleRate <= 0 || numPost <= 0 {
		return 5 * time.Millisecond
	}
	secs := float64(numPost) / sampleRate
	if secs > 0.05 {
		secs = 0.05
	}
	return time.Duration(secs * float64(time.Second))
}

// CheckOverflow injects a scripted overflow once burstsThisCycle reaches
// OverflowAfterBursts, firing at most once per arming.
func (d *Digitizer) CheckOverflow() (bool, int) {
	opts := d.getOpts()
	if opts.OverflowAfterBursts <= 0 || d.overflowFired {
		return false, 0
	}
	if d.burstsThisCycle >= opts.OverflowAfterBursts {
		d.overflowFired = true
		n := opts.OverflowBufferedBursts
		if n <= 0 {
			n = 1
		}
		return true, n
	}
	return false, 0
}

// ProcessBurstData synthesizes one waveform per channel and submits it to
// the channels driver, then publishes burst metadata.
func (d *Digitizer) ProcessBurstData() bool {
	numPost := d.Controller.NumPostSamplesSnapshot()
	if numPost <= 0 {
		numPost = 1
	}
	now := float64(time.Now().UnixNano()) / 1e9
	d.burstID++

	numChannels := d.getOpts().NumChannels
	for ch := 0; ch < numChannels; ch++ {
		buf := d.drv.Allocate(numPost, channels.Float64)
		d.fill(buf.Samples(), ch)
		d.drv.Submit(buf, ch, d.burstID, now, now, nil)
	}

	d.Controller.PublishBurstMeta(armctl.BurstMetaInfo{
		BurstID:  int(d.burstID % math.MaxInt32),
		TBurst:   now,
		TRead:    now,
		TProcess: now,
	})
	return true
}

// fill writes a synthetic sine-plus-noise waveform into samples, scaled by
// the channel's calibration gain.
func (d *Digitizer) fill(samples []float64, ch int) {
	opts := d.getOpts()
	gain := 1.0
	if ch < len(opts.Calibration) {
		gain = opts.Calibration[ch]
	}
	for i := range samples {
		phase := float64(i) / float64(len(samples)) * 2 * math.Pi
		noise := 0.0
		if opts.NoiseAmplitude > 0 {
			noise = opts.NoiseAmplitude * (2*d.rng.Float64() - 1)
		}
		samples[i] = gain * (math.Sin(phase) + noise)
	}
}

// StopAcquisition resets the burst counter so the next arming's
// CheckOverflow injection, if still armed with one, evaluates fresh.
func (d *Digitizer) StopAcquisition() {
	d.burstsThisCycle = 0
}
