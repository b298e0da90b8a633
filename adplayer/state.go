package adplayer

import (
	"fmt"

	"github.com/anisan-cli/adplay/log"
	"github.com/anisan-cli/adplay/metrics"
)

// State is the preparation state of one prepare cycle.
type State int

const (
	// StateStart is the idle state before Prepare and after Stop.
	StateStart State = iota
	// StateWaitingForPrepare waits for the ads plugin to load or fail.
	StateWaitingForPrepare
	// StatePreparing means the engine is being prepared.
	StatePreparing
	// StatePrepared means engine commands are allowed.
	StatePrepared
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateWaitingForPrepare:
		return "waiting_for_prepare"
	case StatePreparing:
		return "preparing"
	case StatePrepared:
		return "prepared"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type transition struct {
	from, to State
}

// setStateLocked must be called with p.mu held. The returned transition is
// reported with p.report once the lock is released.
func (p *Player) setStateLocked(to State) transition {
	t := transition{from: p.state, to: to}
	p.state = to
	return t
}

func (p *Player) report(transitions ...transition) {
	for _, t := range transitions {
		if t.from == t.to {
			continue
		}

		metrics.RecordTransition(t.from.String(), t.to.String())
		log.Debugf("player state %s -> %s", t.from, t.to)

		if p.opts.OnTransition != nil {
			p.opts.OnTransition(t.from, t.to)
		}
	}
}
