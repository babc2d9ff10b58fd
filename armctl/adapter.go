package armctl

// ArmInfo is filled in by CheckSettings. RateForDisplay is mandatory and
// must be finite; the two custom sample counts are optional overrides of
// the snapshot-derived pre/post sample counts used to program the time
// axis (nil means "use the snapshot values").
type ArmInfo struct {
	RateForDisplay float64

	CustomNumPreSamples  *int
	CustomNumPostSamples *int
}

// DigitizerAdapter is the hardware-specific collaborator the controller
// drives through the arming sequence. Implementations are constructed by
// an AdapterFactory, which receives the owning Controller so callback
// bodies can call back into it (RequestDisarmFromDriver, PublishBurstMeta,
// SetAchievableSampleRate, the base-param snapshot getters, ...).
//
// The mutex discipline for each method is fixed and is not enforced by the
// type system; it is a contract documented per-method below and restated in
// full in the package doc.
type DigitizerAdapter interface {
	// SupportsPreSamples reports whether this adapter can deliver
	// pre-trigger samples, gating whether PrePostTrigger may be
	// requested.
	SupportsPreSamples() bool
	// NumChannels reports the channel count the channels collaborator
	// should be sized for.
	NumChannels() int

	// WaitForPreconditions is called with the mutex held; it may drop
	// and retake it internally. Returning false aborts arming.
	WaitForPreconditions() bool
	// CheckSettings is called with the mutex held throughout and must
	// not release it. It fills in info.
	CheckSettings(info *ArmInfo) bool
	// StartAcquisition is called with the mutex NOT held; it may take
	// and release its own locks. overflow is true when this call is an
	// overflow-recovery restart.
	StartAcquisition(overflow bool) bool
	// ReadBurst is called with the mutex NOT held. It must return true
	// even when interrupted by a disarm request; it does not
	// distinguish interruption from success.
	ReadBurst() bool
	// CheckOverflow is called with the mutex NOT held, once per burst
	// while not already in an overflow cycle. numBufferBursts includes
	// the burst just read and must be > 0 when had is true.
	CheckOverflow() (had bool, numBufferBursts int)
	// ProcessBurstData is called with the mutex NOT held. Implementations
	// use this callback to push per-channel arrays and call
	// PublishBurstMeta.
	ProcessBurstData() bool
	// InterruptReading is called with the mutex held, at most once per
	// arming, only while in_read_loop. It must not block and must not
	// release the mutex; its job is to make any ongoing and future
	// ReadBurst call return promptly.
	InterruptReading()
	// StopAcquisition is called with the mutex NOT held, exactly once
	// per arming that attempted a start, before ARM_STATE leaves
	// Busy/Error for Disarm.
	StopAcquisition()
	// OnDisarmed is called with the mutex held and must not block or
	// release it.
	OnDisarmed()
	// RequestedSampleRateChanged is called with the mutex held in
	// response to an external write to the desired side of
	// REQUESTED_SAMPLE_RATE.
	RequestedSampleRateChanged(desired float64)
}

// AdapterFactory constructs a DigitizerAdapter bound to c. It is called
// once, from NewController, after every base parameter has been registered
// — the same ordering guarantee the original's two-phase
// construction/completeInit split existed to provide.
type AdapterFactory func(c *Controller) DigitizerAdapter

// BaseAdapter supplies the default callback bodies the original's virtual
// base class provided, for embedding by concrete adapters that only need to
// override a subset. Concrete adapters embed *BaseAdapter and override the
// methods they need; ProcessBurstData's default always fails, since a
// driver that intends to use the built-in read loop must implement it.
type BaseAdapter struct {
	Controller *Controller
}

// SupportsPreSamples defaults to false.
func (b *BaseAdapter) SupportsPreSamples() bool { return false }

// NumChannels defaults to 0.
func (b *BaseAdapter) NumChannels() int { return 0 }

// WaitForPreconditions defaults to an immediate success.
func (b *BaseAdapter) WaitForPreconditions() bool { return true }

// CheckSettings defaults to rate_for_display=1 and success.
func (b *BaseAdapter) CheckSettings(info *ArmInfo) bool {
	info.RateForDisplay = 1
	return true
}

// StartAcquisition defaults to success.
func (b *BaseAdapter) StartAcquisition(overflow bool) bool { return true }

// ReadBurst defaults to blocking until disarm is requested, matching the
// original's documented default: drivers that do not supply their own read
// loop block on the disarm-requested signal.
func (b *BaseAdapter) ReadBurst() bool {
	b.Controller.waitForDisarmSignal()
	return true
}

// CheckOverflow defaults to reporting no overflow.
func (b *BaseAdapter) CheckOverflow() (bool, int) { return false, 0 }

// ProcessBurstData has no sensible default; returning false signals "this
// driver must not use the built-in read loop without implementing this."
func (b *BaseAdapter) ProcessBurstData() bool { return false }

// InterruptReading defaults to a no-op; the default ReadBurst already wakes
// from the disarm-requested broadcast, so nothing further is required.
func (b *BaseAdapter) InterruptReading() {}

// StopAcquisition defaults to a no-op.
func (b *BaseAdapter) StopAcquisition() {}

// OnDisarmed defaults to a no-op.
func (b *BaseAdapter) OnDisarmed() {}

// RequestedSampleRateChanged defaults to echoing desired straight through to
// achievable.
func (b *BaseAdapter) RequestedSampleRateChanged(desired float64) {
	b.Controller.SetAchievableSampleRate(desired)
}
