package player

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"go.uber.org/atomic"
)

// ipcCommand is the JSON structure sent to mpv's IPC socket.
type ipcCommand struct {
	Command   []interface{} `json:"command"`
	RequestID int64         `json:"request_id"`
}

// ipcResponse is the JSON structure received from mpv's IPC socket.
// Lines carrying Event are asynchronous notifications, not replies.
type ipcResponse struct {
	Data      interface{} `json:"data"`
	Error     string      `json:"error"`
	Event     string      `json:"event"`
	RequestID int64       `json:"request_id"`
}

const (
	maxRetries   = 3
	retryDelay   = 100 * time.Millisecond
	readDeadline = 1 * time.Second
)

var requestIDs = atomic.NewInt64(0)

// sendCommand sends a JSON-IPC command to mpv, retrying transient connection errors.
func (m *MPV) sendCommand(command ...interface{}) (interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(retryDelay)
		}

		result, err := doSendCommand(m.socketPath, command)
		if err == nil {
			return result, nil
		}
		lastErr = err
	}

	return nil, fmt.Errorf("ipc command %v failed after %d attempts: %w", command[0], maxRetries, lastErr)
}

// doSendCommand performs a single request/reply exchange on a fresh connection.
func doSendCommand(socketPath string, command []interface{}) (interface{}, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	return exchange(conn, command)
}

// exchange writes command on conn and waits for the reply with the matching request id,
// skipping any event lines mpv interleaves on the same connection.
func exchange(conn net.Conn, command []interface{}) (interface{}, error) {
	id := requestIDs.Inc()

	payload, err := json.Marshal(ipcCommand{Command: command, RequestID: id})
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	// mpv requires newline-delimited JSON
	if _, err := conn.Write(append(payload, '\n')); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}

	if err := conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
		return nil, fmt.Errorf("set deadline: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		var resp ipcResponse
		if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
			return nil, fmt.Errorf("unmarshal: %w", err)
		}
		if resp.Event != "" || resp.RequestID != id {
			continue
		}
		if resp.Error != "" && resp.Error != "success" {
			return nil, fmt.Errorf("mpv error: %s", resp.Error)
		}
		return resp.Data, nil
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return nil, fmt.Errorf("read: connection closed before reply %d", id)
}
