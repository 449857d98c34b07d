package model

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"time"
)

// Status enumerates the moderation states a comment moves through.
// A comment is created with a status computed by the moderation engine
// and may afterwards be rewritten by an admin status operation.
type Status string

const (
	StatusPending  Status = "pending"  // awaiting moderation, hidden from public lists
	StatusApproved Status = "approved" // visible to everyone
	StatusSpam     Status = "spam"     // kept for history correlation, hidden from public lists
	StatusDeleted  Status = "deleted"  // tombstone: row preserved, hidden everywhere
)

// Valid reports whether s is one of the four known statuses.  The
// persistence layer must never store anything outside this set.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusSpam, StatusDeleted:
		return true
	}
	return false
}

// CanTransition reports whether the conceptual moderation graph allows
// moving from s to the given status: pending may go anywhere, approved
// and spam may swap or be tombstoned, and deleted is terminal.  The
// admin status operation is an unrestricted overwrite and does not
// consult this graph; it exists for callers that want the stricter
// semantics.
func (s Status) CanTransition(to Status) bool {
	if !to.Valid() {
		return false
	}
	switch s {
	case StatusPending:
		return to != StatusPending
	case StatusApproved:
		return to == StatusSpam || to == StatusDeleted
	case StatusSpam:
		return to == StatusApproved || to == StatusDeleted
	case StatusDeleted:
		return false
	}
	return false
}

// Comment is the central entity of the service: a visitor-submitted
// comment attached to a post path.
//
// Fields:
//
//	ID        – store-assigned primary key, immutable once set.
//	Post      – opaque "post path" the comment belongs to.
//	Parent    – optional id of another comment under the same post.
//	Author    – display name supplied by the submitter.
//	Email     – optional contact address, used only for the avatar hash.
//	Website   – optional URL supplied by the submitter.
//	Text      – raw markup exactly as submitted.
//	HTML      – sanitized rendering of Text, recomputed on every text change.
//	IP        – submitter's network address at creation time, immutable.
//	User      – opaque token subject set once at creation; empty for
//	            sessionless submitters.  Used only for abuse correlation
//	            and stripped from every outward projection.
//	Status    – moderation status, see Status.
//	CreatedAt – store-assigned creation time in UTC, immutable.
type Comment struct {
	ID        uint64
	Post      string
	Parent    *uint64
	Author    string
	Email     string
	Website   string
	Text      string
	HTML      string
	IP        string
	User      string
	Status    Status
	CreatedAt time.Time
}

// View is the outward projection of a comment returned by the API.  It
// carries everything a client may see: the token subject and the
// submitter's IP are dropped (the IP survives only as the avatar-hash
// fallback input), and the creation time is rendered with an explicit
// fixed offset.
type View struct {
	ID        uint64  `json:"id"`
	Post      string  `json:"post"`
	Parent    *uint64 `json:"parent,omitempty"`
	Author    string  `json:"author"`
	Email     string  `json:"email,omitempty"`
	Website   string  `json:"website,omitempty"`
	Text      string  `json:"text"`
	HTML      string  `json:"html"`
	Status    Status  `json:"status"`
	Hash      string  `json:"hash"`
	CreatedAt string  `json:"created_at"`
}

// createdAtLayout renders timestamps with a numeric offset so clients
// always receive "+00:00" rather than the "Z" shorthand.
const createdAtLayout = "2006-01-02T15:04:05-07:00"

// View builds the outward projection of the comment.
func (c Comment) View() View {
	return View{
		ID:        c.ID,
		Post:      c.Post,
		Parent:    c.Parent,
		Author:    c.Author,
		Email:     c.Email,
		Website:   c.Website,
		Text:      c.Text,
		HTML:      c.HTML,
		Status:    c.Status,
		Hash:      AvatarHash(c.Email, c.IP),
		CreatedAt: c.CreatedAt.UTC().Format(createdAtLayout),
	}
}

// AvatarHash returns the gravatar-compatible md5 hex of the lowercased
// email address.  When no email was supplied the hash is derived from
// the submitter's IP so threads still render distinct avatars.
func AvatarHash(email, ip string) string {
	src := strings.ToLower(strings.TrimSpace(email))
	if src == "" {
		src = ip
	}
	sum := md5.Sum([]byte(src))
	return hex.EncodeToString(sum[:])
}
