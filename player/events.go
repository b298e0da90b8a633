package player

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"sync"

	"github.com/anisan-cli/adplay/log"
)

// Observed mpv properties.
const (
	PropertyTimePos    = "time-pos"
	PropertyPause      = "pause"
	PropertyEOFReached = "eof-reached"
)

// PropertyChange is a single observe_property notification.
type PropertyChange struct {
	Name string
	Data interface{}
}

// Float returns Data as seconds when the property is numeric.
func (c PropertyChange) Float() (float64, bool) {
	v, ok := c.Data.(float64)
	return v, ok
}

// Bool returns Data for flag properties.
func (c PropertyChange) Bool() (bool, bool) {
	v, ok := c.Data.(bool)
	return v, ok
}

// EventCallback receives property changes on the listener's read goroutine.
type EventCallback func(PropertyChange)

// EventListener streams mpv property changes over a dedicated IPC connection.
// Property observers are per connection in mpv, so they are registered on the
// same connection that is read.
type EventListener struct {
	socketPath string
	callback   EventCallback

	mu        sync.Mutex
	conn      net.Conn
	done      chan struct{}
	listening bool
}

// NewEventListener creates a listener for the given socket.
func NewEventListener(socketPath string, callback EventCallback) *EventListener {
	return &EventListener{
		socketPath: socketPath,
		callback:   callback,
	}
}

// Start connects, subscribes to time-pos, pause and eof-reached, and starts the read loop.
func (el *EventListener) Start() error {
	el.mu.Lock()
	defer el.mu.Unlock()

	if el.listening {
		return nil
	}

	conn, err := net.Dial("unix", el.socketPath)
	if err != nil {
		return fmt.Errorf("event listener connect: %w", err)
	}

	for id, name := range []string{PropertyTimePos, PropertyPause, PropertyEOFReached} {
		payload, err := json.Marshal(ipcCommand{Command: []interface{}{"observe_property", id + 1, name}})
		if err != nil {
			conn.Close()
			return fmt.Errorf("observe %s: %w", name, err)
		}
		if _, err := conn.Write(append(payload, '\n')); err != nil {
			conn.Close()
			return fmt.Errorf("observe %s: %w", name, err)
		}
	}

	el.conn = conn
	el.done = make(chan struct{})
	el.listening = true

	go el.readLoop(conn, el.done)

	log.Infof("mpv event listener started on %s", el.socketPath)
	return nil
}

// Stop closes the connection and waits for the read loop to exit.
func (el *EventListener) Stop() {
	el.mu.Lock()
	if !el.listening {
		el.mu.Unlock()
		return
	}
	el.listening = false
	conn, done := el.conn, el.done
	el.mu.Unlock()

	conn.Close()
	<-done
}

func (el *EventListener) readLoop(conn net.Conn, done chan struct{}) {
	defer close(done)

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		if change, ok := parsePropertyChange(scanner.Bytes()); ok && el.callback != nil {
			el.callback(change)
		}
	}

	el.mu.Lock()
	stopped := !el.listening
	el.listening = false
	el.mu.Unlock()

	if err := scanner.Err(); err != nil && !stopped {
		log.Warnf("event listener read error: %v", err)
	}
}

// parsePropertyChange decodes one newline-delimited mpv message.
// Command replies and events other than property-change are ignored.
func parsePropertyChange(line []byte) (PropertyChange, bool) {
	var event struct {
		Event string      `json:"event"`
		Name  string      `json:"name"`
		Data  interface{} `json:"data"`
	}
	if err := json.Unmarshal(line, &event); err != nil {
		return PropertyChange{}, false
	}
	if event.Event != "property-change" || event.Name == "" {
		return PropertyChange{}, false
	}
	return PropertyChange{Name: event.Name, Data: event.Data}, true
}
