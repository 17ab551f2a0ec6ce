package shutdown

import (
	"context"
	"os"
)

// Shutdowner is implemented by every long-running component so graceful
// shutdown can walk them in reverse start order.
type Shutdowner interface {
	Name() string
	Shutdown(ctx context.Context) error
}

// quiter provides the signal channel the handler waits on.
type quiter interface {
	Quit() <-chan os.Signal
}
