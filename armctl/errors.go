package armctl

import "github.com/pkg/errors"

// ErrProtectedWrite is returned (optionally wrapped with errors.Wrap at the
// bus boundary) when an external write targets a parameter in the
// ProtectedParamGate.
var ErrProtectedWrite = errors.New("armctl: parameter is protected; external write rejected")

// ErrUnknownParam is returned when a write or read targets a name the
// registry and the controller's fixed parameters both fail to recognise.
var ErrUnknownParam = errors.New("armctl: unknown parameter name")

// ErrInvalidArmRequest is returned when ARM_REQUEST is written a value
// outside {Disarm, PostTrigger, PrePostTrigger}.
var ErrInvalidArmRequest = errors.New("armctl: arm request value is not one of Disarm/PostTrigger/PrePostTrigger")

// basic-settings and arm-info validation errors (§4.5, checkArmInfo).
var (
	errNumBurstsNegative         = errors.New("num_bursts snapshot is negative")
	errNumPostSamplesNotPositive = errors.New("num_post_samples snapshot is not positive")
	errPrePostUnsupported        = errors.New("PrePostTrigger requested but adapter does not support pre-samples")
	errNumPrePostTooSmall        = errors.New("num_pre_post_samples snapshot does not exceed num_post_samples")
	errCustomPreSamplesNegative  = errors.New("check_settings: custom pre-sample count is negative")
	errCustomPostSamplesNegative = errors.New("check_settings: custom post-sample count is negative")
)
