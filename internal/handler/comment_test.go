package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/blog-comment-service/internal/middleware"
	"github.com/iliyamo/blog-comment-service/internal/model"
	"github.com/iliyamo/blog-comment-service/internal/moderation"
	"github.com/iliyamo/blog-comment-service/internal/queue"
	"github.com/iliyamo/blog-comment-service/internal/repository"
	"github.com/iliyamo/blog-comment-service/internal/utils"
)

const testSecret = "handler-test-secret"

// mockStore implements CommentStore and moderation.History for tests.
type mockStore struct {
	CreateFunc       func(ctx context.Context, c *model.Comment, enforcePending bool) error
	GetByIDFunc      func(ctx context.Context, id uint64) (*model.Comment, error)
	UpdateFunc       func(ctx context.Context, c *model.Comment) error
	UpdateStatusFunc func(ctx context.Context, id uint64, status model.Status) error
	DeleteFunc       func(ctx context.Context, id uint64) (int64, error)
	ListByPostFunc   func(ctx context.Context, post string, statuses []model.Status) ([]model.Comment, error)

	LatestStatusFunc func(ctx context.Context, key, value string) (model.Status, bool, error)
	HasPendingFunc   func(ctx context.Context, key, value string) (bool, error)
	FindByIDFunc     func(ctx context.Context, id uint64) (*model.Comment, bool, error)
}

func (m *mockStore) Create(ctx context.Context, c *model.Comment, enforcePending bool) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, c, enforcePending)
	}
	c.ID = 1
	c.CreatedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return nil
}

func (m *mockStore) GetByID(ctx context.Context, id uint64) (*model.Comment, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, sql.ErrNoRows
}

func (m *mockStore) Update(ctx context.Context, c *model.Comment) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, c)
	}
	return nil
}

func (m *mockStore) UpdateStatus(ctx context.Context, id uint64, status model.Status) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, id, status)
	}
	return nil
}

func (m *mockStore) Delete(ctx context.Context, id uint64) (int64, error) {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return 0, nil
}

func (m *mockStore) ListByPost(ctx context.Context, post string, statuses []model.Status) ([]model.Comment, error) {
	if m.ListByPostFunc != nil {
		return m.ListByPostFunc(ctx, post, statuses)
	}
	return []model.Comment{}, nil
}

func (m *mockStore) LatestStatus(ctx context.Context, key, value string) (model.Status, bool, error) {
	if m.LatestStatusFunc != nil {
		return m.LatestStatusFunc(ctx, key, value)
	}
	return "", false, nil
}

func (m *mockStore) HasPending(ctx context.Context, key, value string) (bool, error) {
	if m.HasPendingFunc != nil {
		return m.HasPendingFunc(ctx, key, value)
	}
	return false, nil
}

func (m *mockStore) FindByID(ctx context.Context, id uint64) (*model.Comment, bool, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, false, nil
}

func newHandler(store *mockStore) *CommentHandler {
	return NewCommentHandler(store, &moderation.Engine{History: store}, nil)
}

// mintToken signs a real identity token so requests travel through the
// same decode path production uses.
func mintToken(t *testing.T, scopes []string, issuedAt time.Time) string {
	t.Helper()
	tok, err := utils.NewIdentityToken(testSecret, scopes, "test-subject", issuedAt)
	require.NoError(t, err)
	return tok.Token
}

// invoke runs a handler behind the token-decode middleware against a
// JSON request and returns the recorder.
func invoke(t *testing.T, h echo.HandlerFunc, method, target string, body interface{}, bearer string, params map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader = bytes.NewReader(nil)
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	for k, v := range params {
		c.SetParamNames(k)
		c.SetParamValues(v)
	}
	require.NoError(t, middleware.TokenDecode(testSecret)(h)(c))
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestCreateComment(t *testing.T) {
	var gotEnforce *bool
	store := &mockStore{
		CreateFunc: func(_ context.Context, c *model.Comment, enforce bool) error {
			gotEnforce = &enforce
			c.ID = 42
			c.CreatedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
			return nil
		},
	}
	var published []queue.CommentCreatedEvent
	h := newHandler(store)
	h.Events = PublisherFunc(func(_ context.Context, ev queue.CommentCreatedEvent) error {
		published = append(published, ev)
		return nil
	})

	bearer := mintToken(t, []string{moderation.ScopeUser}, time.Now().Add(-time.Minute))
	rec := invoke(t, h.Create, http.MethodPost, "/api/comments",
		map[string]interface{}{"post": "/blog/a", "author": "jane", "text": "**hi**"},
		bearer, nil)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)

	_, hasUser := body["user"]
	assert.False(t, hasUser, "subject must be stripped from the response")
	assert.Equal(t, float64(42), body["id"])
	assert.Equal(t, "pending", body["status"])
	assert.Contains(t, body["html"], "<strong>hi</strong>")
	assert.Equal(t, "2026-01-02T03:04:05+00:00", body["created_at"])
	assert.NotEmpty(t, body["hash"])

	require.NotNil(t, gotEnforce)
	assert.True(t, *gotEnforce, "non-admin creates enforce the pending rule")
	require.Len(t, published, 1)
	assert.Equal(t, uint64(42), published[0].CommentID)
	assert.Equal(t, "pending", published[0].Status)
}

func TestCreateCommentMissingField(t *testing.T) {
	h := newHandler(&mockStore{})
	bearer := mintToken(t, []string{moderation.ScopeUser}, time.Now().Add(-time.Minute))

	rec := invoke(t, h.Create, http.MethodPost, "/api/comments",
		map[string]interface{}{"post": "/blog/a", "author": "jane"},
		bearer, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "field 'text' is required", body["message"])
	assert.Equal(t, float64(http.StatusBadRequest), body["code"])
}

func TestCreateCommentAdmin(t *testing.T) {
	var gotEnforce *bool
	store := &mockStore{
		CreateFunc: func(_ context.Context, c *model.Comment, enforce bool) error {
			gotEnforce = &enforce
			c.ID = 7
			c.CreatedAt = time.Now().UTC()
			return nil
		},
	}
	h := newHandler(store)

	// A token minted this instant: admins bypass the age gates.
	bearer := mintToken(t, []string{moderation.ScopeAdmin, moderation.ScopeUser}, time.Now())
	rec := invoke(t, h.Create, http.MethodPost, "/api/comments",
		map[string]interface{}{"post": "/blog/a", "author": "admin", "text": "reply"},
		bearer, nil)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, "approved", body["status"])
	require.NotNil(t, gotEnforce)
	assert.False(t, *gotEnforce, "admin creates skip the pending rule")
}

func TestCreateCommentParentLookup(t *testing.T) {
	store := &mockStore{
		FindByIDFunc: func(_ context.Context, id uint64) (*model.Comment, bool, error) {
			if id == 7 {
				return &model.Comment{ID: 7, Post: "/blog/a", Status: model.StatusApproved}, true, nil
			}
			return nil, false, nil
		},
	}
	h := newHandler(store)
	bearer := mintToken(t, []string{moderation.ScopeUser}, time.Now().Add(-time.Minute))

	t.Run("existing parent accepted", func(t *testing.T) {
		rec := invoke(t, h.Create, http.MethodPost, "/api/comments",
			map[string]interface{}{"post": "/blog/a", "author": "jane", "text": "hi", "parent": 7},
			bearer, nil)
		assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	})

	t.Run("absent parent is a 404", func(t *testing.T) {
		rec := invoke(t, h.Create, http.MethodPost, "/api/comments",
			map[string]interface{}{"post": "/blog/a", "author": "jane", "text": "hi", "parent": 99},
			bearer, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "parent comment not found", body["message"])
	})
}

func TestCreateCommentFreshTokenRejected(t *testing.T) {
	h := newHandler(&mockStore{})
	bearer := mintToken(t, []string{moderation.ScopeUser}, time.Now())

	rec := invoke(t, h.Create, http.MethodPost, "/api/comments",
		map[string]interface{}{"post": "/blog/a", "author": "jane", "text": "hi"},
		bearer, nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decodeBody(t, rec)
	assert.Contains(t, body["message"], "toosoon")
}

func TestCreateCommentPendingConflictFromStore(t *testing.T) {
	store := &mockStore{
		CreateFunc: func(context.Context, *model.Comment, bool) error {
			return repository.ErrPendingExists
		},
	}
	h := newHandler(store)
	bearer := mintToken(t, []string{moderation.ScopeUser}, time.Now().Add(-time.Minute))

	rec := invoke(t, h.Create, http.MethodPost, "/api/comments",
		map[string]interface{}{"post": "/blog/a", "author": "jane", "text": "hi"},
		bearer, nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decodeBody(t, rec)
	assert.Contains(t, body["message"], "pending")
}

func TestCreateCommentRequiresSession(t *testing.T) {
	store := &mockStore{}
	h := NewCommentHandler(store, &moderation.Engine{History: store, RequireToken: true}, nil)

	rec := invoke(t, h.Create, http.MethodPost, "/api/comments",
		map[string]interface{}{"post": "/blog/a", "author": "jane", "text": "hi"},
		"", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetCommentNotFound(t *testing.T) {
	h := newHandler(&mockStore{})
	rec := invoke(t, h.Get, http.MethodGet, "/api/comments/5", nil, "", map[string]string{"id": "5"})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "comment not found", body["message"])
	assert.Equal(t, float64(http.StatusNotFound), body["code"])
}

func TestEditCommentImmutableFields(t *testing.T) {
	existing := &model.Comment{
		ID: 5, Post: "/blog/a", Author: "jane", Text: "old", HTML: "<p>old</p>",
		IP: "10.0.0.1", User: "subject-x", Status: model.StatusApproved,
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	var updated *model.Comment
	store := &mockStore{
		GetByIDFunc: func(_ context.Context, id uint64) (*model.Comment, error) {
			cp := *existing
			return &cp, nil
		},
		UpdateFunc: func(_ context.Context, c *model.Comment) error {
			updated = c
			return nil
		},
	}
	h := newHandler(store)

	// The payload tries to smuggle immutable fields; the typed DTO
	// silently discards them.
	payload := map[string]interface{}{
		"author":     "janet",
		"text":       "**new**",
		"status":     "deleted",
		"user":       "other-subject",
		"ip":         "99.99.99.99",
		"created_at": "1999-01-01T00:00:00+00:00",
	}
	rec := invoke(t, h.Edit, http.MethodPut, "/api/comments/5", payload, "", map[string]string{"id": "5"})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, updated)
	assert.Equal(t, "janet", updated.Author)
	assert.Contains(t, updated.HTML, "<strong>new</strong>")
	assert.Equal(t, model.StatusApproved, updated.Status)
	assert.Equal(t, "subject-x", updated.User)
	assert.Equal(t, "10.0.0.1", updated.IP)
	assert.Equal(t, existing.CreatedAt, updated.CreatedAt)
}

func TestEditCommentWithoutTextKeepsHTML(t *testing.T) {
	existing := &model.Comment{ID: 5, Post: "/blog/a", Author: "jane", Text: "old", HTML: "<p>old</p>"}
	var updated *model.Comment
	store := &mockStore{
		GetByIDFunc: func(_ context.Context, id uint64) (*model.Comment, error) {
			cp := *existing
			return &cp, nil
		},
		UpdateFunc: func(_ context.Context, c *model.Comment) error {
			updated = c
			return nil
		},
	}
	h := newHandler(store)

	rec := invoke(t, h.Edit, http.MethodPut, "/api/comments/5",
		map[string]interface{}{"website": "https://jane.example"}, "", map[string]string{"id": "5"})

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, updated)
	assert.Equal(t, "<p>old</p>", updated.HTML)
	assert.Equal(t, "https://jane.example", updated.Website)
}

func TestSetStatus(t *testing.T) {
	state := &model.Comment{ID: 5, Post: "/blog/a", Author: "jane", Status: model.StatusPending}
	store := &mockStore{
		UpdateStatusFunc: func(_ context.Context, id uint64, status model.Status) error {
			state.Status = status
			return nil
		},
		GetByIDFunc: func(context.Context, uint64) (*model.Comment, error) {
			cp := *state
			return &cp, nil
		},
	}
	h := newHandler(store)

	rec := invoke(t, h.SetStatus, http.MethodPut, "/api/comments/5/status",
		map[string]interface{}{"status": "approved"}, "", map[string]string{"id": "5"})

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "approved", body["status"])
}

func TestSetStatusInvalidValue(t *testing.T) {
	h := newHandler(&mockStore{})
	rec := invoke(t, h.SetStatus, http.MethodPut, "/api/comments/5/status",
		map[string]interface{}{"status": "archived"}, "", map[string]string{"id": "5"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Contains(t, body["message"], "invalid status")
}

func TestDeleteComment(t *testing.T) {
	t.Run("existing row", func(t *testing.T) {
		store := &mockStore{
			DeleteFunc: func(_ context.Context, id uint64) (int64, error) { return 1, nil },
		}
		h := newHandler(store)
		rec := invoke(t, h.Delete, http.MethodDelete, "/api/comments/5", nil, "", map[string]string{"id": "5"})

		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, float64(1), body["deleted"])
	})

	t.Run("missing row", func(t *testing.T) {
		h := newHandler(&mockStore{})
		rec := invoke(t, h.Delete, http.MethodDelete, "/api/comments/5", nil, "", map[string]string{"id": "5"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestListByPostVisibility(t *testing.T) {
	var gotStatuses []model.Status
	store := &mockStore{
		ListByPostFunc: func(_ context.Context, post string, statuses []model.Status) ([]model.Comment, error) {
			gotStatuses = statuses
			return []model.Comment{{ID: 1, Post: post, Author: "jane", Status: statuses[0]}}, nil
		},
	}
	h := newHandler(store)

	t.Run("anonymous callers see approved only", func(t *testing.T) {
		rec := invoke(t, h.ListByPost, http.MethodGet, "/api/comments?post=/blog/a", nil, "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []model.Status{model.StatusApproved}, gotStatuses)
	})

	t.Run("admins see everything except deleted", func(t *testing.T) {
		bearer := mintToken(t, []string{moderation.ScopeAdmin}, time.Now())
		rec := invoke(t, h.ListByPost, http.MethodGet, "/api/comments?post=/blog/a", nil, bearer, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []model.Status{model.StatusPending, model.StatusApproved, model.StatusSpam}, gotStatuses)
		assert.NotContains(t, gotStatuses, model.StatusDeleted)
	})

	t.Run("post is required", func(t *testing.T) {
		rec := invoke(t, h.ListByPost, http.MethodGet, "/api/comments", nil, "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "field 'post' is required", body["message"])
	})
}
