//go:build !windows

package lifecycle

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// WatchSignals maps job-control signals onto n until ctx is done: SIGTSTP backgrounds,
// SIGCONT foregrounds. SIGTSTP is consumed, so the process itself keeps running.
func WatchSignals(ctx context.Context, n *Notifier) {
	ch := make(chan os.Signal, 4)
	signal.Notify(ch, syscall.SIGTSTP, syscall.SIGCONT)
	defer signal.Stop(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-ch:
			switch sig {
			case syscall.SIGTSTP:
				n.EnterBackground()
			case syscall.SIGCONT:
				n.EnterForeground()
			}
		}
	}
}
