package paginator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Session is one pagination lifecycle bound to one message.
type Session struct {
	surface Surface
	waiter  Waiter
	opts    Options
	pages   []string
	log     zerolog.Logger

	mu        sync.Mutex
	running   bool
	started   bool
	index     int
	messageID string
	parent    context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	err       error

	// stopDelete is the Stop request seen while the first page was sending.
	stopDelete bool
}

// New lays out the pages and, unless opts.Deferred is set, sends the first
// page and starts the navigation loop. A failed initial send is returned and
// no loop is started.
func New(ctx context.Context, surface Surface, waiter Waiter, opts Options) (*Session, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}

	log := zerolog.Nop()
	if opts.Logger != nil {
		log = opts.Logger.With().Str("component", "paginator").Str("channel", opts.ChannelID).Logger()
	}

	s := &Session{
		surface: surface,
		waiter:  waiter,
		opts:    opts,
		pages:   Layout(opts),
		log:     log,
		done:    make(chan struct{}),
	}

	if !opts.Deferred {
		if err := s.Start(ctx); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Start sends page 0 and launches the navigation loop. Calling Start on a
// running session is a no-op; a finished session cannot be restarted.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	if s.started {
		s.mu.Unlock()
		return ErrFinished
	}
	s.started = true
	s.running = true
	s.index = 0
	s.mu.Unlock()

	messageID, err := s.surface.Send(ctx, s.opts.ChannelID, s.render(0))
	if err != nil {
		s.mu.Lock()
		s.running = false
		s.err = err
		s.mu.Unlock()
		close(s.done)
		return fmt.Errorf("send pagination message: %w", err)
	}

	loopCtx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	if !s.running {
		deleteMessage := s.stopDelete
		s.mu.Unlock()
		cancel()
		close(s.done)
		return s.discard(ctx, messageID, deleteMessage)
	}
	s.messageID = messageID
	s.parent = ctx
	s.cancel = cancel
	s.mu.Unlock()

	s.log.Debug().Str("message", messageID).Int("pages", len(s.pages)).Msg("Pagination started")

	go s.run(loopCtx)
	return nil
}

// Stop ends the session. It is idempotent. The navigation reactions are
// cleared, or the message is deleted when deleteMessage is set, and any
// pending wait is cancelled. It is safe to call from any goroutine.
func (s *Session) Stop(ctx context.Context, deleteMessage bool) error {
	return s.stop(ctx, deleteMessage, true)
}

func (s *Session) stop(ctx context.Context, deleteMessage, waitLoop bool) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.stopDelete = deleteMessage
	messageID := s.messageID
	s.messageID = ""
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		if waitLoop {
			// let the loop finish touching the message before cleaning up
			<-s.done
		}
	}

	if messageID == "" {
		return nil
	}
	return s.discard(ctx, messageID, deleteMessage)
}

// discard deletes the message or strips its navigation reactions.
func (s *Session) discard(ctx context.Context, messageID string, deleteMessage bool) error {
	if deleteMessage {
		if err := s.surface.Delete(ctx, s.opts.ChannelID, messageID); err != nil {
			return fmt.Errorf("delete pagination message: %w", err)
		}
	} else {
		if err := s.surface.ClearReactions(ctx, s.opts.ChannelID, messageID); err != nil {
			return fmt.Errorf("clear pagination reactions: %w", err)
		}
	}

	s.log.Debug().Str("message", messageID).Bool("deleted", deleteMessage).Msg("Pagination stopped")
	return nil
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)
	defer s.abandon()

	for {
		index, messageID, ok := s.snapshot()
		if !ok {
			return
		}

		if err := s.resetReactions(ctx, messageID, index); err != nil {
			if ctx.Err() == nil {
				s.fail(err)
			}
			return
		}

		reaction, err := s.wait(ctx, messageID)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				s.timedOut()
			}
			return
		}

		last := len(s.pages) - 1
		switch {
		case sameGlyph(reaction.Emoji, s.opts.Glyphs.Stop):
			if err := s.stop(s.parentContext(), false, false); err != nil {
				s.log.Warn().Err(err).Msg("Failed to stop pagination")
			}
			return
		case sameGlyph(reaction.Emoji, s.opts.Glyphs.Previous):
			if index > 0 {
				index--
			}
		case sameGlyph(reaction.Emoji, s.opts.Glyphs.Next):
			if index < last {
				index++
			}
		}

		s.mu.Lock()
		s.index = index
		s.mu.Unlock()

		if err := s.surface.Edit(ctx, s.opts.ChannelID, messageID, s.render(index)); err != nil {
			if ctx.Err() == nil {
				s.fail(fmt.Errorf("edit pagination message: %w", err))
			}
			return
		}
	}
}

func (s *Session) wait(ctx context.Context, messageID string) (Reaction, error) {
	waitCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	glyphs := s.opts.Glyphs
	filter := s.opts.Filter
	return s.waiter.WaitForReaction(waitCtx, func(r Reaction) bool {
		if r.MessageID != messageID || !glyphs.contains(r.Emoji) {
			return false
		}
		return filter == nil || filter(r)
	})
}

func (s *Session) timedOut() {
	ctx := s.parentContext()
	if s.opts.TimeoutMessage != "" {
		if _, err := s.surface.Send(ctx, s.opts.ChannelID, s.opts.TimeoutMessage); err != nil {
			s.log.Warn().Err(err).Msg("Failed to send pagination timeout message")
		}
	}
	if err := s.stop(ctx, false, false); err != nil {
		s.log.Warn().Err(err).Msg("Failed to stop pagination after timeout")
	}
}

// resetReactions leaves only the navigation reactions that make sense for
// the current page.
func (s *Session) resetReactions(ctx context.Context, messageID string, index int) error {
	if err := s.surface.ClearReactions(ctx, s.opts.ChannelID, messageID); err != nil {
		return fmt.Errorf("clear reactions: %w", err)
	}

	glyphs := make([]string, 0, 3)
	if index > 0 {
		glyphs = append(glyphs, s.opts.Glyphs.Previous)
	}
	if index < len(s.pages)-1 {
		glyphs = append(glyphs, s.opts.Glyphs.Next)
	}
	glyphs = append(glyphs, s.opts.Glyphs.Stop)

	for _, g := range glyphs {
		if err := s.surface.AddReaction(ctx, s.opts.ChannelID, messageID, g); err != nil {
			return fmt.Errorf("add reaction %s: %w", g, err)
		}
	}
	return nil
}

// fail marks the session defunct after a mid-loop error.
func (s *Session) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.running = false
	s.messageID = ""
	s.mu.Unlock()
	s.log.Error().Err(err).Msg("Pagination aborted")
}

// abandon forgets the message when the loop exits because its parent context
// went away.
func (s *Session) abandon() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.running = false
		s.messageID = ""
	}
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Session) snapshot() (index int, messageID string, running bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index, s.messageID, s.running
}

func (s *Session) parentContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.parent == nil {
		return context.Background()
	}
	return context.WithoutCancel(s.parent)
}

func (s *Session) render(index int) string {
	return Render(s.opts, s.pages[index])
}

// Done is closed once the navigation loop has finished.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the loop finishes or ctx is done and returns the error
// that ended the session, if any.
func (s *Session) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return s.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the error that made the session defunct.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Running reports whether the session is still paginating.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Page returns the current page index.
func (s *Session) Page() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// PageCount returns the number of pages.
func (s *Session) PageCount() int {
	return len(s.pages)
}

// Pages returns a copy of the laid-out pages.
func (s *Session) Pages() []string {
	return append([]string(nil), s.pages...)
}

// MessageID returns the pagination message, or "" once stopped.
func (s *Session) MessageID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messageID
}
