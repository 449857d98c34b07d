package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusApproved, StatusSpam, StatusDeleted} {
		assert.True(t, s.Valid(), string(s))
	}
	assert.False(t, Status("archived").Valid())
	assert.False(t, Status("").Valid())
}

func TestStatusCanTransition(t *testing.T) {
	assert.True(t, StatusPending.CanTransition(StatusApproved))
	assert.True(t, StatusApproved.CanTransition(StatusSpam))
	assert.True(t, StatusSpam.CanTransition(StatusApproved))
	assert.True(t, StatusSpam.CanTransition(StatusDeleted))
	assert.False(t, StatusDeleted.CanTransition(StatusApproved), "deleted is terminal")
	assert.False(t, StatusApproved.CanTransition(StatusPending))
	assert.False(t, StatusPending.CanTransition(Status("archived")))
}

func TestViewStripsSubject(t *testing.T) {
	parent := uint64(3)
	c := Comment{
		ID:        10,
		Post:      "/blog/hello",
		Parent:    &parent,
		Author:    "jane",
		Email:     "Jane@Example.COM",
		Text:      "**hi**",
		HTML:      "<p><strong>hi</strong></p>",
		IP:        "10.0.0.1",
		User:      "secret-subject",
		Status:    StatusApproved,
		CreatedAt: time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
	}

	raw, err := json.Marshal(c.View())
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))

	_, hasUser := out["user"]
	assert.False(t, hasUser, "token subject must never be serialized")
	_, hasIP := out["ip"]
	assert.False(t, hasIP, "submitter address must never be serialized")
	assert.Equal(t, "2026-03-14T09:26:53+00:00", out["created_at"])
	assert.Equal(t, float64(3), out["parent"])
	assert.Equal(t, "approved", out["status"])
	// md5("jane@example.com")
	assert.Equal(t, "9e26471d35a78862c17e467d87cddedf", out["hash"])
}

func TestViewTimestampHasFixedOffset(t *testing.T) {
	loc := time.FixedZone("CEST", 2*60*60)
	c := Comment{CreatedAt: time.Date(2026, 7, 1, 14, 0, 0, 0, loc)}
	v := c.View()
	assert.Equal(t, "2026-07-01T12:00:00+00:00", v.CreatedAt, "rendered in UTC with explicit offset")
}

func TestAvatarHashFallsBackToIP(t *testing.T) {
	withEmail := AvatarHash("jane@example.com", "10.0.0.1")
	noEmail := AvatarHash("", "10.0.0.1")
	assert.NotEmpty(t, noEmail)
	assert.NotEqual(t, withEmail, noEmail)
	assert.Equal(t, AvatarHash(" Jane@Example.com ", ""), withEmail, "email is trimmed and lowercased")
}
