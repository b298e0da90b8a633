package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/anisan-cli/adplay/adplayer"
	"github.com/anisan-cli/adplay/color"
	"github.com/anisan-cli/adplay/icon"
	"github.com/anisan-cli/adplay/log"
	"github.com/anisan-cli/adplay/style"
	"github.com/anisan-cli/adplay/util"
)

var _ adplayer.Observer = (*sessionObserver)(nil)

// sessionObserver prints playback events and signals the start of the stream.
type sessionObserver struct {
	out io.Writer

	once    sync.Once
	started chan struct{}
	errs    chan error
}

func newSessionObserver() *sessionObserver {
	return &sessionObserver{
		out:     os.Stdout,
		started: make(chan struct{}),
		errs:    make(chan error, 1),
	}
}

func (o *sessionObserver) println(i icon.Icon, fg func(string) string, msg string) {
	_, _ = fmt.Fprintf(o.out, "%s %s\n", icon.Get(i), fg(msg))
}

func (o *sessionObserver) StreamStarted() {
	o.once.Do(func() {
		o.println(icon.Content, style.Fg(color.Green), "stream started")
		close(o.started)
	})
}

func (o *sessionObserver) AdPlaying(start, duration float64) {
	o.println(icon.Ad, style.Fg(color.Yellow), fmt.Sprintf(
		"ad break at %s (%s)",
		util.FormatSeconds(start),
		util.FormatSeconds(duration),
	))
}

func (o *sessionObserver) AdPaused() {
	o.println(icon.Ad, style.Faint, "ad paused")
}

func (o *sessionObserver) AdResumed() {
	o.println(icon.Ad, style.Faint, "ad resumed")
}

func (o *sessionObserver) AdCompleted() {
	o.println(icon.Content, style.Fg(color.Green), "back to content")
}

func (o *sessionObserver) TimedMetadataReceived(metadata map[string]string) {
	keys := make([]string, 0, len(metadata))
	for k, v := range metadata {
		if v != "" {
			keys = append(keys, k+"="+v)
		}
	}
	sort.Strings(keys)
	log.Debugf("timed metadata: %s", strings.Join(keys, " "))
}

func (o *sessionObserver) PlaybackError(err error) {
	log.Error(err)
	o.println(icon.Fail, style.Fg(color.Red), err.Error())

	select {
	case o.errs <- err:
	default:
	}
}
