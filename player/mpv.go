package player

import (
	"crypto/rand"
	"fmt"
	"net"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/anisan-cli/adplay/log"
	"github.com/anisan-cli/adplay/where"
	"go.uber.org/atomic"
)

const (
	socketWaitRetries = 10
	socketWaitDelay   = 300 * time.Millisecond
	quitTimeout       = 3 * time.Second
)

var _ Engine = (*MPV)(nil)

// MPV implements Engine using mpv's JSON-IPC protocol.
type MPV struct {
	socketPath string
	cmd        *exec.Cmd
	exited     chan struct{} // closed when mpv process exits
	mu         sync.Mutex    // Protects socket writes

	lastPos      *atomic.Float64
	lastDuration *atomic.Float64
}

// NewMPV creates a new MPV engine instance (does not start mpv).
func NewMPV() *MPV {
	exited := make(chan struct{})
	close(exited)

	return &MPV{
		exited:       exited,
		lastPos:      atomic.NewFloat64(0),
		lastDuration: atomic.NewFloat64(0),
	}
}

// Prepare loads cfg paused at cfg.StartTime. A running mpv instance is reused.
func (m *MPV) Prepare(cfg MediaConfig) error {
	safeURL, err := sanitizeMediaTarget(cfg.Source)
	if err != nil {
		return fmt.Errorf("invalid media target: %w", err)
	}

	m.lastPos.Store(cfg.StartTime)
	m.lastDuration.Store(0)

	if m.IsRunning() {
		if err := m.set("pause", true); err != nil {
			return err
		}
		if err := m.set("start", formatStart(cfg.StartTime)); err != nil {
			return err
		}
		if _, err := m.sendCommand("loadfile", safeURL, "replace"); err != nil {
			return fmt.Errorf("loadfile: %w", err)
		}
		return nil
	}

	return m.launch(safeURL, cfg)
}

func (m *MPV) launch(safeURL string, cfg MediaConfig) error {
	safeTitle := sanitizeTitle(cfg.Title)

	if m.socketPath == "" {
		randomBytes := make([]byte, 4)
		if _, err := rand.Read(randomBytes); err != nil {
			return fmt.Errorf("generate socket name: %w", err)
		}
		m.socketPath = filepath.Join(where.Temp(), fmt.Sprintf("mpv-%x.sock", randomBytes))
	}

	// Pass only what the session needs; --vo, --profile and --hwdec stay in the user's mpv.conf.
	args := []string{
		"--no-terminal",
		"--really-quiet",
		fmt.Sprintf("--input-ipc-server=%s", m.socketPath),
		"--force-window=yes",
		"--idle=yes",
		"--pause=yes",
		fmt.Sprintf("--start=%s", formatStart(cfg.StartTime)),
	}

	if safeTitle != "" {
		args = append(args,
			fmt.Sprintf("--force-media-title=%s", safeTitle),
			fmt.Sprintf("--title=%s", safeTitle),
		)
	}

	if headers := headerFields(cfg.Headers); headers != "" {
		args = append(args, fmt.Sprintf("--http-header-fields=%s", headers))
	}

	args = append(args, safeURL)

	m.cmd = exec.Command("mpv", args...)

	// Detach from parent process group to prevent cascading shell signals.
	m.cmd.SysProcAttr = sysProcAttr()
	m.cmd.Stdout = nil
	m.cmd.Stderr = nil
	m.cmd.Stdin = nil

	if err := m.cmd.Start(); err != nil {
		return fmt.Errorf("start mpv: %w", err)
	}

	exited := make(chan struct{})
	m.exited = exited
	go func(cmd *exec.Cmd) {
		_ = cmd.Wait()
		close(exited)
	}(m.cmd)

	if err := m.waitForSocket(); err != nil {
		select {
		case <-m.exited:
		default:
			log.Warnf("killing mpv: socket never became ready")
			_ = killProcess(m.cmd)
		}
		return fmt.Errorf("mpv socket not ready: %w", err)
	}

	return nil
}

// Exited returns a channel that is closed when the mpv process exits.
func (m *MPV) Exited() <-chan struct{} {
	return m.exited
}

// Socket returns the IPC socket path.
func (m *MPV) Socket() string {
	return m.socketPath
}

func (m *MPV) waitForSocket() error {
	for i := 0; i < socketWaitRetries; i++ {
		time.Sleep(socketWaitDelay)

		select {
		case <-m.exited:
			return fmt.Errorf("mpv exited before socket was ready")
		default:
		}

		conn, err := net.Dial("unix", m.socketPath)
		if err == nil {
			conn.Close()
			return nil
		}
	}
	return fmt.Errorf("socket %s not ready after %d attempts", m.socketPath, socketWaitRetries)
}

func (m *MPV) Play() error {
	return m.set("pause", false)
}

func (m *MPV) Pause() error {
	return m.set("pause", true)
}

func (m *MPV) Resume() error {
	return m.set("pause", false)
}

// Stop unloads the current file but keeps mpv running for the next Prepare.
func (m *MPV) Stop() error {
	if !m.IsRunning() {
		return nil
	}
	_, err := m.sendCommand("stop")
	return err
}

// Seek moves playback to the given absolute position in seconds.
func (m *MPV) Seek(seconds float64) error {
	if _, err := m.sendCommand("seek", seconds, "absolute"); err != nil {
		return err
	}
	m.lastPos.Store(seconds)
	return nil
}

func (m *MPV) Replay() error {
	if err := m.Seek(0); err != nil {
		return err
	}
	return m.Play()
}

// CurrentPosition returns time-pos, or the last known position when mpv cannot answer.
func (m *MPV) CurrentPosition() float64 {
	if pos, err := m.getFloatProperty("time-pos"); err == nil {
		m.lastPos.Store(pos)
	}
	return m.lastPos.Load()
}

// Duration returns the media duration, or the last known one.
func (m *MPV) Duration() float64 {
	if dur, err := m.getFloatProperty("duration"); err == nil {
		m.lastDuration.Store(dur)
	}
	return m.lastDuration.Load()
}

// IsPlaying reports whether media is loaded and not paused.
func (m *MPV) IsPlaying() bool {
	if !m.IsRunning() {
		return false
	}

	data, err := m.sendCommand("get_property", "pause")
	if err != nil {
		return false
	}
	paused, ok := data.(bool)
	return ok && !paused
}

// IsRunning reports whether mpv is responding to IPC commands.
func (m *MPV) IsRunning() bool {
	if m.socketPath == "" {
		return false
	}

	select {
	case <-m.exited:
		return false
	default:
	}

	_, err := m.sendCommand("get_property", "pid")
	return err == nil
}

// Destroy shuts down the mpv process and removes the socket.
func (m *MPV) Destroy() error {
	if m.socketPath == "" {
		return nil
	}

	_, _ = m.sendCommand("quit")

	select {
	case <-m.exited:
	case <-time.After(quitTimeout):
		_ = killProcess(m.cmd)
	}

	_ = os.Remove(m.socketPath)
	m.socketPath = ""

	return nil
}

func (m *MPV) set(property string, value interface{}) error {
	_, err := m.sendCommand("set_property", property, value)
	return err
}

func (m *MPV) getFloatProperty(name string) (float64, error) {
	data, err := m.sendCommand("get_property", name)
	if err != nil {
		return 0, err
	}

	if data == nil {
		return 0, fmt.Errorf("property %s: nil response", name)
	}

	val, ok := data.(float64)
	if !ok {
		return 0, fmt.Errorf("property %s: expected float64, got %T", name, data)
	}

	return val, nil
}

func formatStart(seconds float64) string {
	if seconds <= 0 {
		return "0"
	}
	return fmt.Sprintf("%.3f", seconds)
}

// headerFields renders headers for --http-header-fields in a stable order.
// Commas separate fields, so they are escaped inside values.
func headerFields(headers map[string]string) string {
	if len(headers) == 0 {
		return ""
	}

	names := make([]string, 0, len(headers))
	for k := range headers {
		names = append(names, k)
	}
	sort.Strings(names)

	fields := make([]string, 0, len(names))
	for _, k := range names {
		fields = append(fields, fmt.Sprintf("%s: %s", k, strings.ReplaceAll(headers[k], ",", "%2C")))
	}
	return strings.Join(fields, ",")
}

// sanitizeMediaTarget validates that a URL is safe to pass to mpv.
func sanitizeMediaTarget(link string) (string, error) {
	l := strings.TrimSpace(link)
	if l == "" {
		return "", fmt.Errorf("empty URL")
	}

	if strings.ContainsAny(l, "\x00\n\r") {
		return "", fmt.Errorf("invalid control characters in URL")
	}

	// Prevent flag injection: URLs must not start with -
	if strings.HasPrefix(l, "-") {
		return "", fmt.Errorf("url must not start with '-' (looks like a flag)")
	}

	if strings.Contains(l, "://") {
		u, err := url.Parse(l)
		if err != nil {
			return "", fmt.Errorf("invalid URL: %w", err)
		}
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			return l, nil
		default:
			return "", fmt.Errorf("unsupported URL scheme: %s", u.Scheme)
		}
	}

	return filepath.Clean(l), nil
}

func sanitizeTitle(title string) string {
	t := strings.NewReplacer("\n", " ", "\r", " ", "\t", " ", "\x00", "").Replace(title)
	return strings.TrimSpace(t)
}
