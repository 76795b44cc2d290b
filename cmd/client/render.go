package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/Tyrowin/relaychat/internal/message"
	"github.com/Tyrowin/relaychat/internal/session"
	"github.com/gookit/color"
)

var (
	timeStyle   = color.New(color.FgDarkGray)
	selfStyle   = color.New(color.FgGreen, color.OpBold)
	otherStyle  = color.New(color.FgCyan, color.OpBold)
	noticeStyle = color.New(color.FgYellow)
)

// renderer prints the session's messages as they arrive.
type renderer struct {
	mu       sync.Mutex
	out      io.Writer
	username string
	printed  int
	status   session.Status
	now      func() time.Time
}

func newRenderer(out io.Writer, username string) *renderer {
	return &renderer{out: out, username: username, status: session.StatusConnecting, now: time.Now}
}

func (r *renderer) follow(ctx context.Context, s *session.Session) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.Changes():
			r.update(s.Status(), s.Messages())
		}
	}
}

// update prints the status if it changed and every message not yet printed.
func (r *renderer) update(status session.Status, messages []message.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if status != r.status {
		r.status = status
		fmt.Fprintln(r.out, noticeStyle.Render("* "+status.String()))
	}
	for _, msg := range messages[min(r.printed, len(messages)):] {
		fmt.Fprintln(r.out, r.line(msg))
	}
	r.printed = max(r.printed, len(messages))
}

func (r *renderer) line(msg message.Message) string {
	style := otherStyle
	if msg.Sender == r.username {
		style = selfStyle
	}
	stamp := timeStyle.Render("[" + session.FormatTime(msg.Timestamp, r.now()) + "]")
	return fmt.Sprintf("%s %s %s", stamp, style.Render(msg.Sender+":"), msg.Content)
}

func (r *renderer) notice(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, noticeStyle.Render("* "+text))
}
