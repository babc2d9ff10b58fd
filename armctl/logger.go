package armctl

import (
	"log"
	"os"
)

// Logger is the narrow sink the controller logs through. *log.Logger
// satisfies it directly; NewController defaults to a stderr sink when nil
// is supplied.
type Logger interface {
	Printf(format string, args ...interface{})
}

func defaultLogger() Logger {
	return log.New(os.Stderr, "armctl: ", log.LstdFlags|log.Lmicroseconds)
}
