// Package muxtest provides an in-memory mux.Backend for tests.
package muxtest

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/timvw/pane-runner/internal/model"
	"github.com/timvw/pane-runner/internal/mux"
)

// Sent records one SendCommand call.
type Sent struct {
	Session string
	Text    string
}

// Fake is a scripted Backend. Each session holds a queue of screens:
// every CaptureText call pops the next one, and the last screen repeats.
type Fake struct {
	mu       sync.Mutex
	sessions map[string]*session
	sent     []Sent

	// OnSend runs after a command is recorded, while no lock is held.
	// Tests use it to script the screens a command produces.
	OnSend func(session, text string)
	// SendErr and CaptureErr force failures when set.
	SendErr    error
	CaptureErr error
}

type session struct {
	screens []string
	cwd     string
	created time.Time
	capture int
}

// New returns an empty Fake.
func New() *Fake {
	return &Fake{sessions: make(map[string]*session)}
}

// AddSession creates a session showing a bare prompt.
func (f *Fake) AddSession(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addLocked(name)
}

func (f *Fake) addLocked(name string) *session {
	s, ok := f.sessions[name]
	if !ok {
		s = &session{screens: []string{"$ "}, cwd: "/home/user", created: time.Now().UTC()}
		f.sessions[name] = s
	}
	return s
}

// SetScreens replaces the session's capture queue.
func (f *Fake) SetScreens(name string, screens ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.addLocked(name)
	s.screens = append([]string(nil), screens...)
}

// SetCwd sets the path returned by CurrentPath.
func (f *Fake) SetCwd(name, cwd string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addLocked(name).cwd = cwd
}

// Sent returns a copy of all recorded commands.
func (f *Fake) Sent() []Sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Sent(nil), f.sent...)
}

// Captures returns how many times the session was captured.
func (f *Fake) Captures(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[name]; ok {
		return s.capture
	}
	return 0
}

func (f *Fake) Name() string { return "fake" }

func (f *Fake) Exists(_ context.Context, name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.sessions[name]
	return ok
}

func (f *Fake) Create(_ context.Context, name string) error {
	if err := mux.ValidateSessionName(name); err != nil {
		return &mux.Error{Op: "new-session", Session: name, Err: err}
	}
	f.AddSession(name)
	return nil
}

func (f *Fake) SendCommand(_ context.Context, name, text string) error {
	f.mu.Lock()
	if f.SendErr != nil {
		f.mu.Unlock()
		return &mux.Error{Op: "send-keys", Session: name, Err: f.SendErr}
	}
	if _, ok := f.sessions[name]; !ok {
		f.mu.Unlock()
		return &mux.Error{Op: "send-keys", Session: name, Err: errors.New("can't find session: " + name)}
	}
	f.sent = append(f.sent, Sent{Session: name, Text: text})
	hook := f.OnSend
	f.mu.Unlock()

	if hook != nil {
		hook(name, text)
	}
	return nil
}

func (f *Fake) CaptureText(_ context.Context, name string, _ int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CaptureErr != nil {
		return "", &mux.Error{Op: "capture-pane", Session: name, Err: f.CaptureErr}
	}
	s, ok := f.sessions[name]
	if !ok {
		return "", &mux.Error{Op: "capture-pane", Session: name, Err: errors.New("can't find session: " + name)}
	}
	s.capture++
	if len(s.screens) == 0 {
		return "", nil
	}
	screen := s.screens[0]
	if len(s.screens) > 1 {
		s.screens = s.screens[1:]
	}
	return screen, nil
}

func (f *Fake) Destroy(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[name]; !ok {
		return &mux.Error{Op: "kill-session", Session: name, Err: errors.New("can't find session: " + name)}
	}
	delete(f.sessions, name)
	return nil
}

func (f *Fake) ListSessions(_ context.Context) ([]model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Session, 0, len(f.sessions))
	for name, s := range f.sessions {
		out = append(out, model.Session{Name: name, Windows: 1, Created: s.created})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *Fake) CurrentPath(_ context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[name]
	if !ok {
		return "", &mux.Error{Op: "display-message", Session: name, Err: errors.New("can't find session: " + name)}
	}
	return s.cwd, nil
}

var _ mux.Backend = (*Fake)(nil)
