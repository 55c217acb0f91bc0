package channels

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/haasonsaas/agentcore/pkg/models"
)

// ConsoleAdapter is the reference channel adapter: it reads lines from an
// input reader as inbound user messages and writes outbound assistant
// messages to an output writer. It satisfies FullAdapter.
// consoleSendRate caps outbound console writes, standing in for the
// per-platform send throttles the teacher applies to its chat adapters.
const consoleSendRate = 20.0

type ConsoleAdapter struct {
	*BaseHealthAdapter

	in      *bufio.Scanner
	out     io.Writer
	sinkID  string
	msgs    chan *models.Message
	cancel  context.CancelFunc
	done    chan struct{}
	limiter *RateLimiter
}

// NewConsoleAdapter creates a console adapter reading from in and writing
// to out. sinkID identifies the channel instance (e.g. "console:local").
func NewConsoleAdapter(in io.Reader, out io.Writer, sinkID string) *ConsoleAdapter {
	return &ConsoleAdapter{
		BaseHealthAdapter: NewBaseHealthAdapter(models.ChannelConsole, slog.Default()),
		in:                bufio.NewScanner(in),
		out:               out,
		sinkID:            sinkID,
		msgs:              make(chan *models.Message),
		limiter:           NewRateLimiter(consoleSendRate, int(consoleSendRate)),
	}
}

func (c *ConsoleAdapter) Type() models.ChannelType { return models.ChannelConsole }

// Start begins scanning stdin in a background goroutine, emitting one
// inbound Message per non-empty line until ctx is cancelled or input ends.
func (c *ConsoleAdapter) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	c.SetStatus(true, "")

	go func() {
		defer close(c.done)
		defer close(c.msgs)
		for c.in.Scan() {
			line := c.in.Text()
			if line == "" {
				continue
			}
			msg := &models.Message{
				ID:        uuid.NewString(),
				Role:      models.RoleUser,
				Content:   line,
				CreatedAt: time.Now(),
			}
			c.RecordMessageReceived()
			select {
			case c.msgs <- msg:
			case <-runCtx.Done():
				return
			}
		}
	}()
	return nil
}

// Stop cancels the input scanning goroutine and waits for it to exit.
func (c *ConsoleAdapter) Stop(ctx context.Context) error {
	if c.cancel != nil {
		c.cancel()
	}
	if c.done != nil {
		select {
		case <-c.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	c.SetStatus(false, "")
	return nil
}

// Send waits for a send token, then writes msg's content to the output
// writer.
func (c *ConsoleAdapter) Send(ctx context.Context, msg *models.Message) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return ErrRateLimit("console send throttled", err)
	}
	if _, err := fmt.Fprintln(c.out, msg.Content); err != nil {
		return fmt.Errorf("console adapter: write: %w", err)
	}
	c.RecordMessageSent()
	return nil
}

// Messages returns the channel of inbound user messages.
func (c *ConsoleAdapter) Messages() <-chan *models.Message { return c.msgs }

// HealthCheck always reports healthy for the console adapter; there is no
// remote dependency to probe.
func (c *ConsoleAdapter) HealthCheck(_ context.Context) HealthStatus {
	return HealthStatus{Healthy: true, LastCheck: time.Now()}
}

var _ FullAdapter = (*ConsoleAdapter)(nil)
