package armctl

// ArmState is the finite state of the arm-request/arm-state pair presented
// on the parameter bus. Transitions are authored only by the acquisition
// thread and by the arm-request write handler.
type ArmState int

const (
	// Disarm is the quiescent state: no acquisition thread is running.
	Disarm ArmState = iota
	// PostTrigger is the armed state for a plain post-trigger burst
	// sequence (no pre-samples).
	PostTrigger
	// PrePostTrigger is the armed state for a burst sequence that
	// includes pre-trigger samples; requires adapter pre-sample support.
	PrePostTrigger
	// Busy is a transitional state: disarm has been requested, or arming
	// is still in its early stages, and the acquisition thread has not
	// yet settled into PostTrigger/PrePostTrigger or Disarm.
	Busy
	// Error is sticky: it persists until a disarm (or disarm-then-arm)
	// request is received.
	Error
)

func (s ArmState) String() string {
	switch s {
	case Disarm:
		return "Disarm"
	case PostTrigger:
		return "PostTrigger"
	case PrePostTrigger:
		return "PrePostTrigger"
	case Busy:
		return "Busy"
	case Error:
		return "Error"
	default:
		return "Unknown"
	}
}

// validArmRequest reports whether v is one of the three values writable to
// ARM_REQUEST (0=Disarm, 1=PostTrigger, 2=PrePostTrigger).
func validArmRequest(v ArmState) bool {
	return v == Disarm || v == PostTrigger || v == PrePostTrigger
}
