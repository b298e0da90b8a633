//go:build windows

package lifecycle

import "context"

// WatchSignals blocks until ctx is done; Windows consoles have no job control.
func WatchSignals(ctx context.Context, _ *Notifier) {
	<-ctx.Done()
}
