package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/matzehuels/modgraph/pkg/observability"
)

// Spinner provides a progress indicator with context cancellation support.
// The message can be replaced while the spinner runs.
type Spinner struct {
	w       io.Writer
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	stopped chan struct{}
	frames  []string

	mu      sync.Mutex
	message string
	width   int
}

func newSpinner(w io.Writer, message string) *Spinner {
	return newSpinnerWithContext(context.Background(), w, message)
}

// newSpinnerWithContext creates a spinner that will stop when the context is cancelled.
func newSpinnerWithContext(ctx context.Context, w io.Writer, message string) *Spinner {
	spinnerCtx, cancel := context.WithCancel(ctx)
	return &Spinner{
		w:       w,
		message: message,
		ctx:     spinnerCtx,
		cancel:  cancel,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		frames:  []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
	}
}

// Start begins the spinner animation.
func (s *Spinner) Start() {
	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		i := 0
		for {
			select {
			case <-s.ctx.Done():
				s.clearLine()
				return
			case <-s.done:
				return
			case <-ticker.C:
				s.mu.Lock()
				line := fmt.Sprintf("%s %s", styleIconSpinner.Render(s.frames[i%len(s.frames)]), StyleDim.Render(s.message))
				// pad over a longer previous message
				if n := len(s.message) + 2; n > s.width {
					s.width = n
				} else {
					line += strings.Repeat(" ", s.width-n)
				}
				fmt.Fprintf(s.w, "\r%s", line)
				s.mu.Unlock()
				i++
			}
		}
	}()
}

// SetMessage replaces the text shown next to the spinner.
func (s *Spinner) SetMessage(message string) {
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}

// Stop stops the spinner and clears the line. It is safe to call more than once.
func (s *Spinner) Stop() {
	s.cancel()
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	<-s.stopped
	s.clearLine()
}

func (s *Spinner) clearLine() {
	s.mu.Lock()
	defer s.mu.Unlock()
	width := max(s.width, len(s.message)+4)
	fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", width))
}

// Cancelled returns true if the spinner was stopped due to context cancellation.
func (s *Spinner) Cancelled() bool {
	select {
	case <-s.done:
		return false
	default:
		return s.ctx.Err() != nil
	}
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// =============================================================================
// Rule Progress
// =============================================================================

// ruleProgress feeds pipeline run hooks into a spinner message.
type ruleProgress struct {
	observability.NoopRunHooks
	spinner *Spinner
	total   atomic.Int64
	done    atomic.Int64
}

func newRuleProgress(s *Spinner) *ruleProgress {
	return &ruleProgress{spinner: s}
}

func (p *ruleProgress) OnRunStart(_ context.Context, _ string, rules int) {
	p.total.Store(int64(rules))
	p.done.Store(0)
	p.spinner.SetMessage(fmt.Sprintf("Checking %d rules...", rules))
}

func (p *ruleProgress) OnRuleComplete(_ context.Context, _, rule string, _ int, _ time.Duration, _ error) {
	n := p.done.Add(1)
	p.spinner.SetMessage(fmt.Sprintf("Checking rules %d/%d (%s)", n, p.total.Load(), rule))
}

var _ observability.RunHooks = (*ruleProgress)(nil)
