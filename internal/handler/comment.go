package handler

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/blog-comment-service/internal/markdown"
	"github.com/iliyamo/blog-comment-service/internal/middleware"
	"github.com/iliyamo/blog-comment-service/internal/model"
	"github.com/iliyamo/blog-comment-service/internal/moderation"
	"github.com/iliyamo/blog-comment-service/internal/queue"
	"github.com/iliyamo/blog-comment-service/internal/repository"
)

// dbTimeout bounds every store round-trip made from a handler.
const dbTimeout = 5 * time.Second

// CommentHandler bundles dependencies for the comment endpoints.
type CommentHandler struct {
	Store  CommentStore
	Engine *moderation.Engine
	Events EventPublisher
}

func NewCommentHandler(store CommentStore, engine *moderation.Engine, events EventPublisher) *CommentHandler {
	return &CommentHandler{Store: store, Engine: engine, Events: events}
}

// ----- DTOs -----

// Payloads are typed: unknown keys in a request body are dropped by
// the JSON decoder, never merged into the record.

type createReq struct {
	Post    string  `json:"post"`
	Author  string  `json:"author"`
	Email   string  `json:"email"`
	Website string  `json:"website"`
	Text    string  `json:"text"`
	Parent  *uint64 `json:"parent"`
}

type editReq struct {
	Author  *string `json:"author"`
	Email   *string `json:"email"`
	Website *string `json:"website"`
	Text    *string `json:"text"`
}

type statusReq struct {
	Status string `json:"status"`
}

// writeError maps a pipeline error onto the {message, code} envelope.
// Moderation errors surface verbatim; store failures are logged with
// context and surfaced as a generic 500.
func writeError(c echo.Context, err error) error {
	if me, ok := moderation.AsError(err); ok {
		return c.JSON(me.Code, me)
	}
	if errors.Is(err, repository.ErrPendingExists) {
		me := moderation.RateLimited(moderation.TagPending, "a comment is already awaiting moderation")
		return c.JSON(me.Code, me)
	}
	if errors.Is(err, sql.ErrNoRows) {
		me := moderation.NotFound("comment not found")
		return c.JSON(me.Code, me)
	}
	log.Printf("handler: %s %s failed: %v", c.Request().Method, c.Path(), err)
	me := moderation.Internal()
	return c.JSON(me.Code, me)
}

// Create accepts a new comment submission.  The moderation engine
// decides acceptance and initial status; the sanitized HTML is derived
// server-side and a comment.created event is published best-effort
// after the row is persisted.
func (h *CommentHandler) Create(c echo.Context) error {
	var req createReq
	if err := c.Bind(&req); err != nil {
		return writeError(c, moderation.Validation("invalid body"))
	}

	tok := middleware.CurrentToken(c)
	sub := moderation.Submission{
		Post:    req.Post,
		Author:  req.Author,
		Email:   req.Email,
		Website: req.Website,
		Text:    req.Text,
		Parent:  req.Parent,
		IP:      c.RealIP(),
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	status, err := h.Engine.Decide(ctx, sub, tok, time.Now().UTC())
	if err != nil {
		return writeError(c, err)
	}

	cmt := &model.Comment{
		Post:    sub.Post,
		Parent:  sub.Parent,
		Author:  sub.Author,
		Email:   sub.Email,
		Website: sub.Website,
		Text:    sub.Text,
		HTML:    markdown.Render(sub.Text),
		IP:      sub.IP,
		Status:  status,
	}
	if tok != nil {
		cmt.User = tok.Subject
	}

	if err := h.Store.Create(ctx, cmt, !tok.IsAdmin()); err != nil {
		return writeError(c, err)
	}

	if h.Events != nil {
		// Fire-and-forget: the publisher logs its own failures.
		_ = h.Events.PublishCommentCreated(ctx, queue.CommentCreatedEvent{
			CommentID: cmt.ID,
			Post:      cmt.Post,
			Author:    cmt.Author,
			Excerpt:   excerpt(cmt.Text),
			Status:    string(cmt.Status),
			CreatedAt: cmt.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	return c.JSON(http.StatusCreated, cmt.View())
}

// Get returns a single comment by id.
func (h *CommentHandler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return writeError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	cmt, err := h.Store.GetByID(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, cmt.View())
}

// Edit updates the mutable fields of a comment: author, email, website
// and text.  A text change forces html recomputation.  Status, token
// subject, IP and creation time cannot change through this path; any
// such keys in the payload are discarded by the typed DTO.
func (h *CommentHandler) Edit(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return writeError(c, err)
	}
	var req editReq
	if err := c.Bind(&req); err != nil {
		return writeError(c, moderation.Validation("invalid body"))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	cmt, err := h.Store.GetByID(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	if req.Author != nil {
		cmt.Author = *req.Author
	}
	if req.Email != nil {
		cmt.Email = *req.Email
	}
	if req.Website != nil {
		cmt.Website = *req.Website
	}
	if req.Text != nil {
		if *req.Text == "" {
			return writeError(c, moderation.Validation("field 'text' is required"))
		}
		cmt.Text = *req.Text
		cmt.HTML = markdown.Render(cmt.Text)
	}

	if err := h.Store.Update(ctx, cmt); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, cmt.View())
}

// SetStatus overwrites the moderation status of a comment.  Any of the
// four values may be written regardless of the current state.
func (h *CommentHandler) SetStatus(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return writeError(c, err)
	}
	var req statusReq
	if err := c.Bind(&req); err != nil {
		return writeError(c, moderation.Validation("invalid body"))
	}
	status := model.Status(req.Status)
	if !status.Valid() {
		return writeError(c, moderation.Validation("invalid status %q", req.Status))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Store.UpdateStatus(ctx, id, status); err != nil {
		return writeError(c, err)
	}
	cmt, err := h.Store.GetByID(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, cmt.View())
}

// Delete hard-removes a comment and reports how many rows went away.
func (h *CommentHandler) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return writeError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	n, err := h.Store.Delete(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	if n == 0 {
		return writeError(c, moderation.NotFound("comment not found"))
	}
	return c.JSON(http.StatusOK, echo.Map{"deleted": n})
}

// ListByPost returns the comments of a post ordered oldest first.
// Anonymous and user-scoped callers see approved comments only; admins
// see everything except tombstoned rows.
func (h *CommentHandler) ListByPost(c echo.Context) error {
	post := c.QueryParam("post")
	if post == "" {
		return writeError(c, moderation.Validation("field 'post' is required"))
	}

	statuses := []model.Status{model.StatusApproved}
	if middleware.CurrentToken(c).IsAdmin() {
		statuses = []model.Status{model.StatusPending, model.StatusApproved, model.StatusSpam}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	comments, err := h.Store.ListByPost(ctx, post, statuses)
	if err != nil {
		return writeError(c, err)
	}
	views := make([]model.View, 0, len(comments))
	for _, cmt := range comments {
		views = append(views, cmt.View())
	}
	return c.JSON(http.StatusOK, views)
}

func parseID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, moderation.Validation("invalid comment id")
	}
	return id, nil
}

// excerpt trims the raw text for the notification event.
func excerpt(text string) string {
	const max = 200
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "…"
}
