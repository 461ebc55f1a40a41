package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/timvw/pane-runner/internal/model"
)

// Client sends single requests to a running daemon.
type Client struct {
	SocketPath string
	// Timeout bounds the whole exchange when ctx has no deadline. Zero
	// waits as long as ctx allows.
	Timeout time.Duration
}

// Do sends action with data encoded as the request's data object and
// returns the decoded response.
func (c *Client) Do(ctx context.Context, action string, data any) (model.Response, error) {
	var resp model.Response

	raw, err := json.Marshal(data)
	if err != nil {
		return resp, fmt.Errorf("encode request data: %w", err)
	}
	req := model.Request{Action: action, Data: raw}

	if _, ok := ctx.Deadline(); !ok && c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", c.SocketPath)
	if err != nil {
		return resp, fmt.Errorf("connect to %s: %w", c.SocketPath, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return resp, fmt.Errorf("send request: %w", err)
	}
	if uc, ok := conn.(*net.UnixConn); ok {
		_ = uc.CloseWrite()
	}

	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		if ctx.Err() != nil {
			return resp, fmt.Errorf("read response: %w", ctx.Err())
		}
		return resp, fmt.Errorf("read response: %w", err)
	}
	return resp, nil
}
