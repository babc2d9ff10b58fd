package simdigitizer

import "errors"

var errNotWarm = errors.New("simdigitizer: still warming up")
