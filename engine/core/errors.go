package core

import (
	"github.com/cockroachdb/errors"
)

var (
	// ErrFatal marks conditions the process cannot recover from. Test with
	// errors.Is(err, ErrFatal).
	ErrFatal = errors.New("fatal")

	ErrNoSuitableDevice            = errors.New("failed to find a suitable GPU")
	ErrUnsupportedLayoutTransition = errors.New("unsupported image layout transition")
	ErrSwapchainNotReady           = errors.New("drawable extent is zero, swapchain not ready")
	ErrSlotBusy                    = errors.New("frame slot is still in flight")
	ErrWindowClosed                = errors.New("window closed")
	ErrUnknown                     = errors.New("unknown")
)

// Fatal marks err as unrecoverable while keeping its original chain intact.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(err, ErrFatal)
}

func IsFatal(err error) bool {
	return errors.Is(err, ErrFatal)
}
