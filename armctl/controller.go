// Package armctl implements the arming-sequence state machine: the
// wait-for-preconditions → validate → start → read-loop → stop controller
// that drives a DigitizerAdapter through a burst acquisition, including
// hardware-buffer-overflow recovery and a cancellation protocol safe
// against data races with external parameter writes.
package armctl

import (
	"math"
	"sync"

	"github.com/pkg/errors"

	"github.jpl.nasa.gov/bdube/transrec/param"
)

// Options configures a new Controller. Adapter is required; Logger,
// TimeAxis and ChannelsFactory are optional collaborators.
type Options struct {
	Logger          Logger
	Adapter         AdapterFactory
	TimeAxis        TimeAxisPort
	ChannelsFactory ChannelsFactory
}

// TimeAxisPort is the consumer-side facet of the relative-time-axis
// generator (§6.4): the controller configures it once per arming, after
// check_settings returns.
type TimeAxisPort interface {
	Configure(unit float64, numPre, numPost int)
}

// Controller is the arming-sequence state machine (C5). The zero value is
// not usable; construct with NewController.
type Controller struct {
	mu     sync.Mutex
	cancel *cancelToken

	reg      *param.Registry
	logger   Logger
	adapter  DigitizerAdapter
	timeAxis TimeAxisPort
	channels Channels

	onChange func()
	sleeper  SleepFunc

	// state machine bookkeeping, all guarded by mu
	state           ArmState
	armed           bool
	disarmRequested bool
	inReadLoop      bool
	interruptCalled bool
	allowingData    bool
	startAttempted  bool
	pendingRearm    *ArmState

	rateForDisplay float64

	burstID  int
	tBurst   float64
	tRead    float64
	tProcess float64

	sleepAfterBurst  float64
	digitizerName    string
	timeArrayUnitInv float64

	numBursts            param.TypedParam[int, float64]
	numPostSamples       param.TypedParam[int, float64]
	numPrePostSamples    param.TypedParam[int, float64]
	requestedSampleRate  param.TypedParam[float64, float64]
	achievableSampleRate param.TypedParam[float64, float64]
}

// NewController registers every base parameter, constructs the adapter and
// (if supplied) the downstream collaborator, and returns a controller ready
// to accept arm requests. A non-nil error here is a fatal init failure per
// the error-handling design: parameter/adapter construction cannot fail
// partway through and leave a usable controller, so the caller is expected
// to log and terminate rather than retry.
func NewController(opts Options) (*Controller, error) {
	if opts.Adapter == nil {
		return nil, errors.New("armctl: Options.Adapter is required")
	}

	c := &Controller{
		reg:              param.NewRegistry(),
		logger:           opts.Logger,
		timeAxis:         opts.TimeAxis,
		sleeper:          defaultSleepFunc,
		state:            Disarm,
		rateForDisplay:   math.NaN(),
		tBurst:           math.NaN(),
		tRead:            math.NaN(),
		tProcess:         math.NaN(),
		timeArrayUnitInv: 1.0,
	}
	if c.logger == nil {
		c.logger = defaultLogger()
	}
	c.cancel = newCancelToken(&c.mu)

	c.numBursts.Init(c.reg, "NUM_BURSTS", math.NaN(), false)
	c.numPostSamples.Init(c.reg, "NUM_POST_SAMPLES", math.NaN(), false)
	c.numPrePostSamples.Init(c.reg, "NUM_PRE_POST_SAMPLES", math.NaN(), false)
	c.requestedSampleRate.Init(c.reg, "REQUESTED_SAMPLE_RATE", math.NaN(), false)
	c.achievableSampleRate.Init(c.reg, "ACHIEVABLE_SAMPLE_RATE", math.NaN(), true)

	gate := c.reg.Gate()
	gate.Protect("ARM_STATE")
	gate.Protect("EFFECTIVE_SAMPLE_RATE")
	gate.Protect("BURST_ID")
	gate.Protect("BURST_TIME_BURST")
	gate.Protect("BURST_TIME_READ")
	gate.Protect("BURST_TIME_PROCESS")

	// The adapter and the channels collaborator are constructed last,
	// after every base parameter exists, matching the ordering
	// constraint the original's completeInit enforced.
	c.adapter = opts.Adapter(c)
	if opts.ChannelsFactory != nil {
		c.channels = opts.ChannelsFactory(c)
	}

	return c, nil
}

// SetChangeNotifier registers a callback invoked after any burst-meta
// publish or arm-state transition, for a bus layer that wants to push
// updates rather than poll. May be called at most once, before the
// controller is armed for the first time.
func (c *Controller) SetChangeNotifier(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

func (c *Controller) notify() {
	c.mu.Lock()
	fn := c.onChange
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Registry exposes the parameter registry, for the bus layer to enumerate
// and bind HTTP routes to TypedParam-backed names.
func (c *Controller) Registry() *param.Registry { return c.reg }

// NumChannels reports the adapter's advertised channel count.
func (c *Controller) NumChannels() int { return c.adapter.NumChannels() }

// SupportsPreSamples reports whether the adapter can deliver pre-trigger
// samples.
func (c *Controller) SupportsPreSamples() bool { return c.adapter.SupportsPreSamples() }

// ArmState reads the current state.
func (c *Controller) ArmState() ArmState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsArmed reports true from the start of wait_for_preconditions until
// stop_acquisition has returned, or until an early-stage failure (one that
// never attempted a start) is observed.
func (c *Controller) IsArmed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.armed
}

// AllowingData reports whether burst data may currently be pushed
// downstream. Read both by the acquisition thread and by data submitters,
// always under the controller's lock.
func (c *Controller) AllowingData() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.allowingData
}

// EffectiveSampleRate reads EFFECTIVE_SAMPLE_RATE (rate_for_display), NaN
// when not armed.
func (c *Controller) EffectiveSampleRate() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rateForDisplay
}

// BurstMeta reads the last-published burst-meta record.
func (c *Controller) BurstMeta() BurstMetaInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return BurstMetaInfo{BurstID: c.burstID, TBurst: c.tBurst, TRead: c.tRead, TProcess: c.tProcess}
}

// SleepAfterBurst reads SLEEP_AFTER_BURST, in seconds.
func (c *Controller) SleepAfterBurst() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sleepAfterBurst
}

// SetSleepAfterBurst writes SLEEP_AFTER_BURST.
func (c *Controller) SetSleepAfterBurst(v float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleepAfterBurst = v
}

// DigitizerName reads DIGITIZER_NAME.
func (c *Controller) DigitizerName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.digitizerName
}

// SetDigitizerName writes DIGITIZER_NAME. It takes the controller mutex
// itself, so it must not be called with the mutex already held (for
// example from an adapter callback that runs with it held).
func (c *Controller) SetDigitizerName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.digitizerName = name
}

// TimeArrayUnitInv reads TIME_ARRAY_UNIT_INV.
func (c *Controller) TimeArrayUnitInv() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timeArrayUnitInv
}

// SetTimeArrayUnitInv writes TIME_ARRAY_UNIT_INV.
func (c *Controller) SetTimeArrayUnitInv(v float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeArrayUnitInv = v
}

// NumBurstsSnapshot reads the frozen num_bursts value. Legal only in the
// snapshot window.
func (c *Controller) NumBurstsSnapshot() int { return c.numBursts.GetSnapshot() }

// NumPostSamplesSnapshot reads the frozen num_post_samples value.
func (c *Controller) NumPostSamplesSnapshot() int { return c.numPostSamples.GetSnapshot() }

// NumPrePostSamplesSnapshot reads the frozen num_pre_post_samples value.
func (c *Controller) NumPrePostSamplesSnapshot() int { return c.numPrePostSamples.GetSnapshot() }

// RequestedSampleRateSnapshot reads the frozen requested_sample_rate value.
func (c *Controller) RequestedSampleRateSnapshot() float64 {
	return c.requestedSampleRate.GetSnapshot()
}

// AchievableSampleRate reads ACHIEVABLE_SAMPLE_RATE's desired side (the
// adapter is its only writer).
func (c *Controller) AchievableSampleRate() float64 { return c.achievableSampleRate.GetDesired() }

// SetAchievableSampleRate writes ACHIEVABLE_SAMPLE_RATE. Called by the
// adapter from RequestedSampleRateChanged, with the mutex held.
func (c *Controller) SetAchievableSampleRate(v float64) { c.achievableSampleRate.SetDesired(v) }

// MaybeSleepForTesting sleeps for SLEEP_AFTER_BURST seconds if positive.
// Must be invoked with the mutex NOT held. This is the TestingSleep
// facility (C8): an optional post-burst delay that gives integration tests
// room to inject a simulated hardware-buffer overflow between bursts.
func (c *Controller) MaybeSleepForTesting() {
	c.mu.Lock()
	d := c.sleepAfterBurst
	c.mu.Unlock()
	if d > 0 {
		c.sleeper(durationFromSeconds(d))
	}
}

// RequestDisarmFromDriver requests disarm on the adapter's behalf. Must be
// called with the controller mutex already held; it is a no-op if the
// controller is already disarmed. Adapter code must not call back into the
// controller from within InterruptReading: InterruptReading runs mid-disarm
// with the mutex held, so any controller method that takes the mutex
// deadlocks there, and this one returns without effect because the
// disarm-requested latch is already set by then.
func (c *Controller) RequestDisarmFromDriver() {
	if c.state == Disarm {
		return
	}
	c.requestDisarmLocked()
}

func (c *Controller) waitForDisarmSignal() {
	c.mu.Lock()
	for !c.disarmRequested {
		c.cancel.wait()
	}
	c.mu.Unlock()
}

// UnlockDuring releases the controller mutex for the duration of fn and
// re-acquires it before returning. WaitForPreconditions is the one
// adapter callback documented as running with the mutex held that may
// also need to block for a real (possibly slow) condition; implementations
// that must wait call this instead of blocking with the lock held, so a
// concurrent bus read or write is not starved for the duration of the
// wait. The caller must already hold the mutex; on return, it does again.
func (c *Controller) UnlockDuring(fn func()) {
	c.mu.Unlock()
	fn()
	c.mu.Lock()
}

// HandleArmRequest implements the ARM_REQUEST write handler (§4.3).
func (c *Controller) HandleArmRequest(req ArmState) error {
	if !validArmRequest(req) {
		return ErrInvalidArmRequest
	}

	c.mu.Lock()
	if c.state == Disarm {
		if req == Disarm {
			c.mu.Unlock()
			return nil
		}
		c.state = Busy
		c.mu.Unlock()
		go c.notify()
		go c.acquisitionThread(req)
		return nil
	}
	c.requestDisarmLocked()
	r := req
	c.pendingRearm = &r
	c.mu.Unlock()
	return nil
}

// WriteParam routes a generic named write through the protected-param gate
// (§4.3's final rule), special-casing REQUESTED_SAMPLE_RATE so its write
// also triggers the adapter's rate recompute.
func (c *Controller) WriteParam(name string, v float64) error {
	if name == c.requestedSampleRate.DesiredName() {
		return c.setRequestedSampleRate(v)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reg.Gate().IsProtected(name) {
		c.logger.Printf("rejected write to protected parameter %s", name)
		return ErrProtectedWrite
	}
	p, ok := c.reg.ByName(name)
	if !ok {
		return ErrUnknownParam
	}
	return p.SetDesiredFloat(v)
}

func (c *Controller) setRequestedSampleRate(v float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requestedSampleRate.SetDesiredFloat(v); err != nil {
		return err
	}
	c.adapter.RequestedSampleRateChanged(v)
	return nil
}

// ReadParam reads a named parameter's current value: registry-backed
// TypedParams resolve by desired/effective name; the controller's own fixed
// scalars resolve by their bus name.
func (c *Controller) ReadParam(name string) (float64, bool) {
	if p, ok := c.reg.ByName(name); ok {
		if name == p.DesiredName() {
			return p.DesiredFloat(), true
		}
		return p.EffectiveFloat(), true
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	switch name {
	case "ARM_STATE":
		return float64(c.state), true
	case "EFFECTIVE_SAMPLE_RATE":
		return c.rateForDisplay, true
	case "BURST_ID":
		return float64(c.burstID), true
	case "BURST_TIME_BURST":
		return c.tBurst, true
	case "BURST_TIME_READ":
		return c.tRead, true
	case "BURST_TIME_PROCESS":
		return c.tProcess, true
	case "SLEEP_AFTER_BURST":
		return c.sleepAfterBurst, true
	case "TIME_ARRAY_UNIT_INV":
		return c.timeArrayUnitInv, true
	default:
		return 0, false
	}
}

func (c *Controller) requestDisarmLocked() {
	if c.disarmRequested {
		return
	}
	c.disarmRequested = true
	c.allowingData = false
	c.state = Busy
	if c.pendingRearm == nil {
		d := Disarm
		c.pendingRearm = &d
	}
	c.cancel.broadcast()
	if c.inReadLoop && !c.interruptCalled {
		c.adapter.InterruptReading()
		c.interruptCalled = true
	}
	// requestDisarmLocked runs with the mutex already held (callers include
	// RequestDisarmFromDriver), so notify (which takes the mutex) must run
	// asynchronously rather than deadlock against the caller's own lock.
	go c.notify()
}
