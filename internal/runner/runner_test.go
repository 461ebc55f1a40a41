package runner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/timvw/pane-runner/internal/model"
	"github.com/timvw/pane-runner/internal/mux"
	"github.com/timvw/pane-runner/internal/mux/muxtest"
)

const dfScreen = "$ df -h\n" +
	"Filesystem      Size  Used Avail Use% Mounted on\n" +
	"/dev/sda1       100G   96G    2G  96% /\n" +
	"$ "

// testClock advances only when something sleeps.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
	return ctx.Err()
}

type memoryRecorder struct {
	mu      sync.Mutex
	entries []model.Execution
	err     error
}

func (m *memoryRecorder) Record(_ context.Context, e model.Execution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return m.err
}

func newTestRunner(t *testing.T) (*Runner, *muxtest.Fake) {
	t.Helper()
	fake := muxtest.New()
	clock := &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}

	r := New(fake, zaptest.NewLogger(t))
	r.Detector.Now = clock.Now
	r.Detector.Sleep = clock.Sleep
	r.Now = clock.Now
	r.Sleep = clock.Sleep
	return r, fake
}

// respondWith makes every command sent to the fake produce screen.
func respondWith(fake *muxtest.Fake, screen string) {
	fake.OnSend = func(session, _ string) {
		fake.SetScreens(session, screen)
	}
}

func TestRun_AnalyzesStableOutput(t *testing.T) {
	r, fake := newTestRunner(t)
	fake.AddSession("work")
	respondWith(fake, dfScreen)

	resp := r.Run(context.Background(), Exec{Session: "work", Command: "df -h"})

	require.NotNil(t, resp.Analysis)
	assert.True(t, resp.Success)
	assert.Equal(t, model.StatusSuccess, resp.Status)
	assert.Equal(t, "df -h", resp.Command)
	assert.Equal(t, "disk_usage", resp.Metadata.FormatDetected)
	require.Len(t, resp.Findings, 1)
	assert.Equal(t, model.Critical, resp.Findings[0].Importance)
	assert.Equal(t, "/dev/sda1 is 96% full", resp.Findings[0].Message)
	assert.Contains(t, resp.DisplayPlain, "✓ Summary: 1 critical issue(s) found")

	// One changing capture, then three identical ones.
	require.NotNil(t, resp.Metadata.DurationMs)
	assert.Equal(t, int64(2000), *resp.Metadata.DurationMs)

	assert.Equal(t, []muxtest.Sent{{Session: "work", Text: "df -h"}}, fake.Sent())
	assert.False(t, r.Locks.Held("work"), "lock must be released")
}

func TestRun_CreatesMissingSession(t *testing.T) {
	r, fake := newTestRunner(t)
	respondWith(fake, "$ echo hi\nhi\n$ ")

	resp := r.Run(context.Background(), Exec{Session: "fresh", Command: "echo hi", CreateSession: true})

	assert.True(t, resp.Success)
	assert.True(t, fake.Exists(context.Background(), "fresh"))
	assert.Equal(t, "plain_text", resp.Metadata.FormatDetected)
}

func TestRun_MissingSessionWithoutCreate(t *testing.T) {
	r, fake := newTestRunner(t)

	resp := r.Run(context.Background(), Exec{Session: "ghost", Command: "ls"})

	require.NotNil(t, resp.Analysis)
	assert.False(t, resp.Success)
	assert.Equal(t, model.StatusError, resp.Status)
	assert.Equal(t, -1, resp.ExitCode)
	assert.Contains(t, resp.Error, "can't find session")
	assert.Empty(t, fake.Sent())
}

func TestRun_RejectedCommandIsNeverSent(t *testing.T) {
	r, fake := newTestRunner(t)
	fake.AddSession("work")

	for _, cmd := range []string{"", "   ", "tmux kill-server", "exit"} {
		resp := r.Run(context.Background(), Exec{Session: "work", Command: cmd})
		assert.False(t, resp.Success, cmd)
		assert.Equal(t, model.StatusError, resp.Status, cmd)
	}
	assert.Empty(t, fake.Sent())
}

func TestRun_PasswordPromptTimesOut(t *testing.T) {
	r, fake := newTestRunner(t)
	fake.AddSession("work")
	respondWith(fake, "$ sudo ls\n[sudo] password for tim: ")

	resp := r.Run(context.Background(), Exec{Session: "work", Command: "sudo ls", MaxWait: 5 * time.Second})

	require.NotNil(t, resp.Analysis)
	assert.False(t, resp.Success)
	assert.Equal(t, model.StatusTimeout, resp.Status)
	assert.Equal(t, "Command timeout", resp.Summary)
	assert.Equal(t, "$ sudo ls\n[sudo] password for tim: ", resp.RawOutput)
	assert.Equal(t, "timeout", resp.Metadata.FormatDetected)
	require.NotNil(t, resp.Metadata.DurationMs)
	assert.GreaterOrEqual(t, *resp.Metadata.DurationMs, int64(5000))
}

func TestRun_CaptureFailureIsError(t *testing.T) {
	r, fake := newTestRunner(t)
	fake.AddSession("work")
	fake.CaptureErr = errors.New("server exited")

	resp := r.Run(context.Background(), Exec{Session: "work", Command: "ls"})

	assert.False(t, resp.Success)
	assert.Equal(t, model.StatusError, resp.Status)
	assert.Contains(t, resp.Error, "server exited")
}

func TestRun_CancelledContextIsTimeout(t *testing.T) {
	r, fake := newTestRunner(t)
	fake.AddSession("work")

	ctx, cancel := context.WithCancel(context.Background())
	fake.OnSend = func(session, _ string) {
		fake.SetScreens(session, "building...")
		cancel()
	}

	resp := r.Run(ctx, Exec{Session: "work", Command: "make"})
	assert.Equal(t, model.StatusTimeout, resp.Status)
}

func TestRun_RecordsHistory(t *testing.T) {
	r, fake := newTestRunner(t)
	rec := &memoryRecorder{}
	r.History = rec
	fake.AddSession("work")
	respondWith(fake, dfScreen)

	r.Run(context.Background(), Exec{Session: "work", Command: "df -h"})

	require.Len(t, rec.entries, 1)
	e := rec.entries[0]
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "work", e.Session)
	assert.Equal(t, "df -h", e.Command)
	assert.Equal(t, "disk_usage", e.Format)
	assert.Equal(t, 1, e.FindingCount)
	assert.Equal(t, 1, e.CriticalCount)
	assert.Equal(t, int64(2000), e.DurationMs)
}

func TestRun_HistoryFailureDoesNotFailCommand(t *testing.T) {
	r, fake := newTestRunner(t)
	r.History = &memoryRecorder{err: errors.New("disk full")}
	fake.AddSession("work")
	respondWith(fake, dfScreen)

	resp := r.Run(context.Background(), Exec{Session: "work", Command: "df -h"})
	assert.True(t, resp.Success)
}

func TestExecute(t *testing.T) {
	r, fake := newTestRunner(t)

	resp := r.Execute(context.Background(), "work", "  ls -la\r ")

	assert.True(t, resp.Success)
	assert.Equal(t, "✓ Executed: ls -la", resp.Output)
	assert.Nil(t, resp.Analysis)
	assert.Equal(t, []muxtest.Sent{{Session: "work", Text: "ls -la"}}, fake.Sent())
}

func TestExecute_InvalidSessionName(t *testing.T) {
	r, _ := newTestRunner(t)

	resp := r.Execute(context.Background(), "bad name;rm", "ls")

	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, mux.ErrInvalidSession.Error())
}

func TestWaitForPrompt(t *testing.T) {
	r, fake := newTestRunner(t)
	fake.AddSession("work")

	resp := r.WaitForPrompt(context.Background(), "work", "", time.Minute, 0)
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Exists)
	assert.True(t, *resp.Exists)
	assert.Equal(t, "$ ", resp.Output)

	fake.SetScreens("work", "compiling")
	resp = r.WaitForPrompt(context.Background(), "work", "", 2*time.Second, 0)
	assert.False(t, resp.Success)
	assert.Equal(t, "Command timeout - may still be running", resp.Error)
	assert.Equal(t, "compiling", resp.Output)
}

func TestCapture(t *testing.T) {
	r, fake := newTestRunner(t)
	fake.SetScreens("work", "line1\nline2")

	resp := r.Capture(context.Background(), "work", 10)
	assert.True(t, resp.Success)
	assert.Equal(t, "line1\nline2", resp.Output)

	resp = r.Capture(context.Background(), "nope", 10)
	assert.False(t, resp.Success)
}

func TestCaptureAnalyzed_UsesCache(t *testing.T) {
	r, fake := newTestRunner(t)
	r.Cache = NewAnalysisCache(time.Minute)
	fake.SetScreens("work", `{"ok": true}`)

	first := r.CaptureAnalyzed(context.Background(), "work", "", 0)
	second := r.CaptureAnalyzed(context.Background(), "work", "", 0)

	assert.Equal(t, "json", first.Metadata.FormatDetected)
	assert.Equal(t, first.Structured, second.Structured)
	assert.Equal(t, 1, r.Cache.entries[cacheKey("work", "")].hitCount)
}

func TestCaptureAnalyzed_InvalidatedBySend(t *testing.T) {
	r, fake := newTestRunner(t)
	r.Cache = NewAnalysisCache(time.Minute)
	fake.AddSession("work")

	r.CaptureAnalyzed(context.Background(), "work", "", 0)
	require.Equal(t, 1, r.Cache.Len())

	r.Execute(context.Background(), "work", "ls")
	assert.Equal(t, 0, r.Cache.Len())
}

func TestCaptureAnalyzed_Error(t *testing.T) {
	r, _ := newTestRunner(t)

	resp := r.CaptureAnalyzed(context.Background(), "missing", "ps", 0)
	assert.False(t, resp.Success)
	assert.Equal(t, model.StatusError, resp.Status)
	assert.Contains(t, resp.Summary, "Failed to capture output")
}

// --- Batch Tests ---

func TestRunBatch(t *testing.T) {
	r, fake := newTestRunner(t)
	fake.OnSend = func(session, text string) {
		fake.SetScreens(session, "$ "+text+"\nok\n$ ")
	}

	res, err := r.RunBatch(context.Background(), Batch{
		Session:      "batch",
		Commands:     []string{"echo one", "  ", "tmux kill-server", "echo two"},
		Explanations: []string{"first"},
	})
	require.NoError(t, err)

	assert.Equal(t, 4, res.TotalCommands)
	assert.Equal(t, 2, res.Successful)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, "Batch executed 4 commands: 2 succeeded, 1 failed", res.Summary)

	require.Len(t, res.Commands, 3)
	assert.Equal(t, 1, res.Commands[0].Index)
	assert.Equal(t, "first", res.Commands[0].Explanation)
	assert.Equal(t, model.StatusSuccess, res.Commands[0].Status)
	assert.Equal(t, "plain_text", res.Commands[0].Format)
	assert.Contains(t, res.Commands[0].OutputPreview, "ok")

	assert.Equal(t, 3, res.Commands[1].Index)
	assert.Equal(t, model.StatusError, res.Commands[1].Status)
	assert.NotEmpty(t, res.Commands[1].Error)

	assert.Equal(t, 4, res.Commands[2].Index)
	assert.True(t, res.Commands[2].Success)

	assert.Len(t, fake.Sent(), 2)
}

func TestRunBatch_Timeout(t *testing.T) {
	r, fake := newTestRunner(t)
	respondWith(fake, "still going")

	res, err := r.RunBatch(context.Background(), Batch{
		Session:  "batch",
		Commands: []string{"sleep 100"},
		MaxWait:  time.Second,
	})
	require.NoError(t, err)
	require.Len(t, res.Commands, 1)
	assert.Equal(t, model.StatusTimeout, res.Commands[0].Status)
	assert.Equal(t, 1, res.Failed)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "1\n2\n3\n4\n5\n6", preview("1\n2\n3\n4\n5\n6\n7\n8", 6))
	assert.Equal(t, "a", preview("a\n", 6))
	assert.Equal(t, "", preview("", 6))
}
