package armctl

import "math"

// acquisitionThread is T-acq: the single dedicated goroutine that drives one
// or more back-to-back armings (a rearm requested during cleanup starts a
// fresh arming in place, without an observable return to Disarm).
func (c *Controller) acquisitionThread(requested ArmState) {
	for {
		rearm := c.runOneArming(requested)
		if rearm == nil {
			return
		}
		requested = *rearm
	}
}

// runOneArming runs the staged sequence of §4.4 for one arming, through
// cleanup, and returns the pending re-arm target (nil to settle in Disarm).
func (c *Controller) runOneArming(requested ArmState) *ArmState {
	c.mu.Lock()
	c.armed = true
	c.disarmRequested = false
	c.interruptCalled = false
	c.inReadLoop = false
	c.startAttempted = false
	c.pendingRearm = nil

	// Stage 1: wait_for_preconditions, mutex held on entry.
	ok := c.adapter.WaitForPreconditions()
	if !ok {
		c.logger.Printf("wait_for_preconditions failed")
		c.mu.Unlock()
		return c.cleanup(true)
	}
	if c.disarmRequested {
		c.mu.Unlock()
		return c.cleanup(false)
	}

	// Stage 2: capture snapshots.
	c.reg.Capture()

	// Stage 3: check_basic_settings.
	if err := c.checkBasicSettings(requested); err != nil {
		c.logger.Printf("basic settings rejected: %v", err)
		c.mu.Unlock()
		return c.cleanup(true)
	}

	// Stage 4: check_settings, mutex held throughout.
	info := &ArmInfo{RateForDisplay: math.NaN()}
	ok = c.adapter.CheckSettings(info)
	if !ok || math.IsNaN(info.RateForDisplay) || math.IsInf(info.RateForDisplay, 0) {
		c.logger.Printf("check_settings failed or produced a non-finite rate")
		c.mu.Unlock()
		return c.cleanup(true)
	}
	if err := checkArmInfo(info); err != nil {
		c.logger.Printf("check_settings produced invalid arm info: %v", err)
		c.mu.Unlock()
		return c.cleanup(true)
	}

	// Stage 5: store rate, push effective values, program the time axis.
	c.rateForDisplay = info.RateForDisplay
	c.reg.PushEffectiveFromSnapshot()
	numPre := 0
	if requested == PrePostTrigger {
		numPre = c.numPrePostSamples.GetSnapshot()
	}
	if info.CustomNumPreSamples != nil {
		numPre = *info.CustomNumPreSamples
	}
	numPost := c.numPostSamples.GetSnapshot()
	if info.CustomNumPostSamples != nil {
		numPost = *info.CustomNumPostSamples
	}
	if c.timeAxis != nil {
		c.timeAxis.Configure(c.timeArrayUnitInv/c.rateForDisplay, numPre, numPost)
	}
	if c.channels != nil {
		c.channels.Reset()
	}

	// Stage 6: outer loop setup.
	remainingBursts := c.numBursts.GetSnapshot()
	if remainingBursts == 0 {
		remainingBursts = -1
	}
	overflow := false
	c.mu.Unlock()

	errored := c.runOuterLoop(requested, remainingBursts, overflow)
	return c.cleanup(errored)
}

// runOuterLoop runs the acquire-and-read outer loop: start acquisition,
// drain the burst loop, and either settle (clean stop or unrecoverable
// error) or restart for overflow recovery. Returns whether arming ended in
// error.
func (c *Controller) runOuterLoop(requested ArmState, remainingBursts int, overflow bool) bool {
	for {
		c.mu.Lock()
		if c.disarmRequested {
			c.mu.Unlock()
			return false
		}
		c.allowingData = true
		c.startAttempted = true
		c.mu.Unlock()

		started := c.adapter.StartAcquisition(overflow)

		c.mu.Lock()
		if !started {
			c.logger.Printf("start_acquisition failed")
			c.mu.Unlock()
			return true
		}
		if c.disarmRequested {
			c.mu.Unlock()
			return false
		}
		if !overflow {
			c.state = requested
			go c.notify()
		}
		c.inReadLoop = true
		c.mu.Unlock()

		currentRemaining := remainingBursts
		overflow = false

		errored, clean := c.runBurstLoop(&remainingBursts, &currentRemaining, &overflow)
		if errored {
			return true
		}
		if clean {
			return false
		}

		c.mu.Lock()
		c.inReadLoop = false
		disarming := c.disarmRequested
		c.mu.Unlock()
		if !disarming {
			c.logger.Printf("restarting acquisition after overflow recovery, %d bursts remaining", remainingBursts)
		}
	}
}

// runBurstLoop runs the burst loop for one start/stop cycle (mutex not held
// during hardware calls). Returns with the mutex NOT held in every case.
// clean is true only when remainingBursts reached exactly zero; when both
// return values are false, the outer loop should restart acquisition for
// overflow recovery (or simply observe disarm and exit on its next
// iteration, if a disarm raced the restart decision).
func (c *Controller) runBurstLoop(remainingBursts, currentRemaining *int, overflow *bool) (errored, clean bool) {
	for {
		readOK := c.adapter.ReadBurst()
		c.mu.Lock()
		if !readOK {
			c.logger.Printf("read_burst failed")
			c.mu.Unlock()
			return true, false
		}
		if c.disarmRequested {
			// Stop before processing: no data is pushed after disarm.
			c.mu.Unlock()
			return false, false
		}

		checkThisBurst := !*overflow
		c.mu.Unlock()

		if checkThisBurst {
			had, numBufferBursts := c.adapter.CheckOverflow()
			c.mu.Lock()
			if had {
				if numBufferBursts <= 0 {
					c.logger.Printf("adapter reported overflow with non-positive buffered burst count %d", numBufferBursts)
					c.mu.Unlock()
					return true, false
				}
				*overflow = true
				*currentRemaining = numBufferBursts
				c.logger.Printf("hardware buffer overflow detected, %d bursts buffered", numBufferBursts)
			}
			c.mu.Unlock()
		}

		processOK := c.adapter.ProcessBurstData()
		c.mu.Lock()
		if !processOK {
			c.logger.Printf("process_burst_data failed")
			c.mu.Unlock()
			return true, false
		}
		if *currentRemaining > 0 {
			*currentRemaining--
		}
		if *remainingBursts > 0 {
			*remainingBursts--
		}
		isClean := *remainingBursts == 0
		isOverflowDone := *overflow && *currentRemaining == 0 && !isClean
		c.mu.Unlock()

		c.MaybeSleepForTesting()

		if isClean {
			return false, true
		}
		if isOverflowDone {
			return false, false
		}
	}
}

// cleanup implements the shared cleanup path (§4.4) for both clean stop and
// error. Returns the pending re-arm target, or nil to settle in Disarm.
func (c *Controller) cleanup(errored bool) *ArmState {
	c.mu.Lock()
	c.inReadLoop = false
	if errored && !c.disarmRequested {
		c.state = Error
		// An early-stage failure (one that never attempted a start) must
		// report IsArmed() == false immediately, not only once the caller
		// gets around to disarming the sticky Error state.
		if !c.startAttempted {
			c.armed = false
		}
		go c.notify()
		for !c.disarmRequested {
			c.cancel.wait()
		}
	}
	c.allowingData = false
	startAttempted := c.startAttempted
	if !startAttempted {
		c.armed = false
	}
	c.mu.Unlock()

	if startAttempted {
		c.adapter.StopAcquisition()
	}

	c.mu.Lock()
	if startAttempted {
		c.armed = false
	}
	c.reg.PushEffectiveInvalid()
	c.rateForDisplay = math.NaN()
	c.startAttempted = false
	c.interruptCalled = false
	c.disarmRequested = false

	rearm := c.pendingRearm
	c.pendingRearm = nil

	if rearm != nil && *rearm != Disarm {
		next := *rearm
		c.mu.Unlock()
		go c.notify()
		return &next
	}

	c.state = Disarm
	c.adapter.OnDisarmed()
	c.mu.Unlock()
	go c.notify()
	return nil
}

// checkBasicSettings implements §4.5.
func (c *Controller) checkBasicSettings(requested ArmState) error {
	if c.numBursts.GetSnapshot() < 0 {
		return errNumBurstsNegative
	}
	if c.numPostSamples.GetSnapshot() <= 0 {
		return errNumPostSamplesNotPositive
	}
	if requested == PrePostTrigger {
		if !c.adapter.SupportsPreSamples() {
			return errPrePostUnsupported
		}
		if c.numPrePostSamples.GetSnapshot() <= c.numPostSamples.GetSnapshot() {
			return errNumPrePostTooSmall
		}
		return nil
	}
	c.numPrePostSamples.SetIrrelevant()
	c.numPrePostSamples.SetSnapshot(0)
	return nil
}

// checkArmInfo validates the optional custom time-array fields
// check_settings may have filled in (supplemented feature: the original
// validates these independently of the basic-settings check).
func checkArmInfo(info *ArmInfo) error {
	if info.CustomNumPreSamples != nil && *info.CustomNumPreSamples < 0 {
		return errCustomPreSamplesNegative
	}
	if info.CustomNumPostSamples != nil && *info.CustomNumPostSamples < 0 {
		return errCustomPostSamplesNegative
	}
	return nil
}
