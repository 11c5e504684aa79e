package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/keshon/jingler/internal/jingle"
)

// HumanDuration renders whole minutes or seconds the way replies show them.
func HumanDuration(d time.Duration) string {
	switch {
	case d >= time.Minute && d%time.Minute == 0:
		if d == time.Minute {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", int(d/time.Minute))
	case d == time.Second:
		return "1 second"
	default:
		return fmt.Sprintf("%d seconds", int(d.Round(time.Second)/time.Second))
	}
}

// Await waits up to timeout for a message accepted by match. When the author
// runs out of time they are told so and ok is false.
func (e *Env) Await(ctx context.Context, m *Message, timeout time.Duration, match func(*Message) bool) (reply *Message, ok bool, err error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	reply, err = e.Messages.WaitForMessage(waitCtx, match)
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		_, err := e.Reply(ctx, m, "%s Timed out (`%s`), try again.", EmojiAlarm, HumanDuration(timeout))
		return nil, false, err
	}
	if err != nil {
		return nil, false, err
	}
	return reply, true, nil
}

// ResolveCode looks up a user-typed code, replying when it is not valid.
func (e *Env) ResolveCode(ctx context.Context, m *Message, raw string) (jingle.Jingle, bool, error) {
	code := jingle.SanitizeCode(raw)
	j, ok := e.Catalog.Get(code)
	if !ok || len(code) != jingle.IDLength {
		_, err := e.Reply(ctx, m, "%s Invalid jingle code.", EmojiWarning)
		return jingle.Jingle{}, false, err
	}
	return j, true, nil
}

// PickJingle lists the catalog and waits for the author to reply with a code.
// It reports false when the author timed out or typed an unknown code; the
// author has already been told why.
func (e *Env) PickJingle(ctx context.Context, m *Message, header, footer string) (jingle.Jingle, bool, error) {
	session, err := e.Paginate(ctx, m, header, footer, 10)
	if err != nil {
		return jingle.Jingle{}, false, err
	}
	defer func() {
		if err := session.Stop(context.WithoutCancel(ctx), false); err != nil {
			e.Log.Warn().Err(err).Msg("Failed to stop jingle picker")
		}
	}()

	fromAuthor := FromAuthorIn(m.Author.ID, m.ChannelID)
	reply, ok, err := e.Await(ctx, m, e.ReplyTimeout, func(r *Message) bool {
		return fromAuthor(r) && len(jingle.SanitizeCode(r.Content)) == jingle.IDLength
	})
	if !ok || err != nil {
		return jingle.Jingle{}, false, err
	}

	return e.ResolveCode(ctx, m, reply.Content)
}
