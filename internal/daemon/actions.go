package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/timvw/pane-runner/internal/history"
	"github.com/timvw/pane-runner/internal/model"
	"github.com/timvw/pane-runner/internal/runner"
)

// Action handles one request action.
type Action interface {
	Name() string
	Handle(ctx context.Context, data json.RawMessage) model.Response
}

// action adapts a function over decoded params to Action.
type action struct {
	name string
	fn   func(ctx context.Context, p params) model.Response
}

func (a action) Name() string { return a.name }

func (a action) Handle(ctx context.Context, data json.RawMessage) model.Response {
	p, err := decodeParams(data)
	if err != nil {
		return failure(fmt.Sprintf("Invalid data: %v", err))
	}
	return a.fn(ctx, p)
}

// actions builds the action table served by s.
func (s *Server) actions() map[string]Action {
	list := []Action{
		action{"execute", s.execute},
		action{"execute_and_wait", s.executeAndWait},
		action{"execute_analyzed", s.executeAnalyzed},
		action{"capture", s.capture},
		action{"capture_analyzed", s.captureAnalyzed},
		action{"wait_for_prompt", s.waitForPrompt},
		action{"check_session", s.checkSession},
		action{"close_session", s.closeSession},
		action{"list_sessions", s.listSessions},
		action{"extract_directory", s.extractDirectory},
		action{"check_command", s.checkCommand},
		action{"get_system_info", s.getSystemInfo},
		action{"execute_batch", s.executeBatch},
		action{"history", s.history},
	}
	table := make(map[string]Action, len(list))
	for _, a := range list {
		table[a.Name()] = a
	}
	return table
}

// ActionNames lists the served actions in sorted order.
func (s *Server) ActionNames() []string {
	names := make([]string, 0, len(s.table))
	for name := range s.table {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func failure(msg string) model.Response {
	return model.Response{Success: false, Error: msg}
}

func (s *Server) session(p params) string {
	if p.Session != "" {
		return p.Session
	}
	return s.opts.DefaultSession
}

func (s *Server) execute(ctx context.Context, p params) model.Response {
	if p.Command == "" {
		return failure(missingCommandParameter)
	}
	return s.opts.Runner.Execute(ctx, s.session(p), p.Command)
}

func (s *Server) executeAndWait(ctx context.Context, p params) model.Response {
	if p.Command == "" {
		return failure(missingCommandParameter)
	}
	return s.opts.Runner.Run(ctx, runner.Exec{
		Session:       s.session(p),
		Command:       p.Command,
		CreateSession: true,
		MaxWait:       p.maxWait(executeAndWaitDefault),
		PollInterval:  p.interval(),
	})
}

func (s *Server) executeAnalyzed(ctx context.Context, p params) model.Response {
	if p.Command == "" {
		return failure(missingCommandParameter)
	}
	return s.opts.Runner.Run(ctx, runner.Exec{
		Session:      s.session(p),
		Command:      p.Command,
		MaxWait:      p.maxWait(executeAnalyzedDefault),
		PollInterval: p.interval(),
	})
}

func (s *Server) capture(ctx context.Context, p params) model.Response {
	return s.opts.Runner.Capture(ctx, s.session(p), p.Lines)
}

func (s *Server) captureAnalyzed(ctx context.Context, p params) model.Response {
	return s.opts.Runner.CaptureAnalyzed(ctx, s.session(p), p.Command, p.Lines)
}

func (s *Server) waitForPrompt(ctx context.Context, p params) model.Response {
	return s.opts.Runner.WaitForPrompt(ctx, s.session(p), p.Command, p.maxWait(waitForPromptDefault), p.interval())
}

func (s *Server) checkSession(ctx context.Context, p params) model.Response {
	exists := s.opts.Runner.Backend.Exists(ctx, s.session(p))
	return model.Response{Success: true, Exists: model.BoolPtr(exists)}
}

func (s *Server) closeSession(ctx context.Context, p params) model.Response {
	session := s.session(p)
	if err := s.opts.Runner.Backend.Destroy(ctx, session); err != nil {
		s.logger.Debug("close session failed", zap.String("session", session), zap.Error(err))
		return failure("Session not found or already closed")
	}
	s.opts.Runner.Cache.Invalidate(session)
	return model.Response{Success: true, Output: "✓ Session closed"}
}

func (s *Server) listSessions(ctx context.Context, _ params) model.Response {
	sessions, err := s.opts.Runner.Backend.ListSessions(ctx)
	if err != nil {
		return failure(err.Error())
	}
	if sessions == nil {
		sessions = []model.Session{}
	}
	return model.Response{Success: true, Output: fmt.Sprintf("%d session(s)", len(sessions)), Sessions: sessions}
}

func (s *Server) extractDirectory(ctx context.Context, p params) model.Response {
	if p.TerminalOutput != nil {
		if dir, ok := directoryFromPrompt(*p.TerminalOutput); ok {
			return model.Response{Success: true, Output: dir}
		}
		if p.Session == "" {
			return failure("Could not extract directory from prompt")
		}
	}
	dir, err := s.opts.Runner.Backend.CurrentPath(ctx, s.session(p))
	if err != nil {
		return failure("Could not extract directory from prompt")
	}
	return model.Response{Success: true, Output: dir}
}

func (s *Server) checkCommand(_ context.Context, p params) model.Response {
	if p.Command == "" {
		return failure(missingCommandParameter)
	}
	_, err := exec.LookPath(p.Command)
	return model.Response{Success: true, Exists: model.BoolPtr(err == nil)}
}

func (s *Server) getSystemInfo(_ context.Context, _ params) model.Response {
	info, err := systemInfo()
	if err != nil {
		return model.Response{Success: false, Output: "System info unavailable", Error: err.Error()}
	}
	return model.Response{Success: true, Output: "System: " + info}
}

func (s *Server) executeBatch(ctx context.Context, p params) model.Response {
	if len(p.Commands) == 0 {
		return failure("Missing commands parameter")
	}
	res, err := s.opts.Runner.RunBatch(ctx, runner.Batch{
		Session:      s.session(p),
		Commands:     p.Commands,
		Explanations: p.Explanations,
		MaxWait:      p.maxWait(0),
		PollInterval: p.interval(),
	})
	if err != nil {
		return failure(err.Error())
	}
	return model.Response{Success: res.Failed == 0, Output: res.Summary, Batch: &res}
}

func (s *Server) history(ctx context.Context, p params) model.Response {
	if s.opts.History == nil {
		return failure("History is disabled")
	}
	q := history.Query{
		Session:      p.Session,
		Format:       p.Format,
		OnlyCritical: p.OnlyCritical,
		Limit:        p.Limit,
	}
	if p.SinceMinutes > 0 {
		q.Since = time.Now().Add(-time.Duration(p.SinceMinutes) * time.Minute)
	}
	entries, err := s.opts.History.Recent(ctx, q)
	if err != nil {
		return failure(err.Error())
	}
	return model.Response{Success: true, Output: fmt.Sprintf("%d execution(s)", len(entries)), History: entries}
}
