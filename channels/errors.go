package channels

import "errors"

var (
	errInvalidChannel = errors.New("channels: channel index out of range")
	errChannelBusy     = errors.New("channels: channel already has a submission in flight")
)
