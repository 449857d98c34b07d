// Package moderation holds the decision core of the comment pipeline:
// submission validation, the anti-abuse gates keyed off the identity
// token's issuance time, the initial status policy, and the scope
// authorization rules.  The package performs no I/O of its own; all
// cross-request state is read through the History interface, so a
// decision is a pure function of (submission, token, now, history).
package moderation

import (
	"context"
	"time"

	"github.com/iliyamo/blog-comment-service/internal/model"
)

// History exposes the store reads the engine needs.  The key argument
// of the correlation reads is "user" (token subject) or "ip".
type History interface {
	// LatestStatus returns the status of the most recent non-deleted
	// comment for the correlation key; ok is false when none exists.
	LatestStatus(ctx context.Context, key, value string) (status model.Status, ok bool, err error)
	// HasPending reports whether an outstanding pending comment exists
	// for the correlation key.
	HasPending(ctx context.Context, key, value string) (bool, error)
	// FindByID resolves a comment by id for parent validation; ok is
	// false when no such comment exists.
	FindByID(ctx context.Context, id uint64) (c *model.Comment, ok bool, err error)
}

// Submission carries everything the engine may consult about a create
// request.  The IP is extracted once at the boundary and passed in
// explicitly; the engine never reads ambient request state.
type Submission struct {
	Post    string
	Author  string
	Email   string
	Website string
	Text    string
	Parent  *uint64
	IP      string
}

// Default token-age window.  Tokens are minted when the comment form
// loads: a sub-30-second round trip implies automation, and a form
// older than two hours must be reloaded to limit replay windows.
const (
	DefaultMinTokenAge = 30 * time.Second
	DefaultMaxTokenAge = 7200 * time.Second
)

// Engine evaluates create requests.  Zero-value age bounds fall back
// to the defaults above.  When RequireToken is set, sessionless
// submissions are rejected outright; otherwise they skip the age gates
// (there is no issuance time to measure) and are still subject to the
// IP gates.
type Engine struct {
	History      History
	MinTokenAge  time.Duration
	MaxTokenAge  time.Duration
	RequireToken bool
}

func (e *Engine) minAge() time.Duration {
	if e.MinTokenAge > 0 {
		return e.MinTokenAge
	}
	return DefaultMinTokenAge
}

func (e *Engine) maxAge() time.Duration {
	if e.MaxTokenAge > 0 {
		return e.MaxTokenAge
	}
	return DefaultMaxTokenAge
}

// Decide runs the full creation-time pipeline: validation, the
// anti-abuse gates, then the initial status policy.  It returns the
// status the new comment must be created with, or the first error any
// stage produced.  Nothing is written here; the one-outstanding-pending
// rule is re-checked atomically by the store on insert.
func (e *Engine) Decide(ctx context.Context, sub Submission, tok *Token, now time.Time) (model.Status, error) {
	if err := e.Validate(ctx, sub); err != nil {
		return "", err
	}
	// Admin submissions bypass every gate and are published immediately.
	if tok.IsAdmin() {
		return model.StatusApproved, nil
	}
	if err := e.rateLimit(ctx, sub, tok, now); err != nil {
		return "", err
	}
	return e.initialStatus(ctx, sub, tok)
}

// Validate checks the submission shape: post, author and text must be
// non-empty, and a parent reference must resolve to an existing comment
// under the same post.  Violated parent references are rejected, never
// silently dropped.
func (e *Engine) Validate(ctx context.Context, sub Submission) error {
	for _, f := range []struct{ name, value string }{
		{"post", sub.Post},
		{"author", sub.Author},
		{"text", sub.Text},
	} {
		if f.value == "" {
			return Validation("field '%s' is required", f.name)
		}
	}
	if sub.Parent != nil {
		parent, ok, err := e.History.FindByID(ctx, *sub.Parent)
		if err != nil {
			return err
		}
		if !ok || parent.Post != sub.Post {
			return NotFound("parent comment not found")
		}
	}
	return nil
}

// rateLimit applies the four independent anti-abuse gates.  Any one
// failing aborts creation before a write occurs.
func (e *Engine) rateLimit(ctx context.Context, sub Submission, tok *Token, now time.Time) error {
	if tok == nil {
		if e.RequireToken {
			return Authentication("authentication required")
		}
	} else {
		age := now.Sub(tok.IssuedAt)
		if age < e.minAge() {
			return RateLimited(TagTooSoon, "you are commenting too quickly")
		}
		if age > e.maxAge() {
			return RateLimited(TagTooLate, "your session expired, reload the page")
		}
		if tok.Subject != "" {
			busy, err := e.History.HasPending(ctx, "user", tok.Subject)
			if err != nil {
				return err
			}
			if busy {
				return RateLimited(TagPending, "you already have a comment awaiting moderation")
			}
		}
	}
	if sub.IP != "" {
		busy, err := e.History.HasPending(ctx, "ip", sub.IP)
		if err != nil {
			return err
		}
		if busy {
			return RateLimited(TagPending, "a comment from this address is awaiting moderation")
		}
	}
	return nil
}

// initialStatus computes the status a non-admin comment starts in.  A
// returning token subject inherits the status of their most recent
// non-deleted comment.  With no subject history, a shared IP whose
// latest comment was spam marks this one spam too; the comment is
// still accepted because addresses are frequently reused by unrelated
// people.  Everything else starts pending.
func (e *Engine) initialStatus(ctx context.Context, sub Submission, tok *Token) (model.Status, error) {
	if tok != nil && tok.Subject != "" {
		status, ok, err := e.History.LatestStatus(ctx, "user", tok.Subject)
		if err != nil {
			return "", err
		}
		if ok {
			return status, nil
		}
	}
	if sub.IP != "" {
		status, ok, err := e.History.LatestStatus(ctx, "ip", sub.IP)
		if err != nil {
			return "", err
		}
		if ok && status == model.StatusSpam {
			return model.StatusSpam, nil
		}
	}
	return model.StatusPending, nil
}
