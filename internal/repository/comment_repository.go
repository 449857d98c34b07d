package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/blog-comment-service/internal/model"
)

// CommentRepo provides CRUD operations for comments plus the history
// reads the moderation engine needs (latest status and outstanding
// pending probes by token subject or IP).  All timestamp fields are
// stored in UTC.
type CommentRepo struct {
	db *sql.DB
}

// NewCommentRepo returns a new CommentRepo bound to the given database.
func NewCommentRepo(db *sql.DB) *CommentRepo { return &CommentRepo{db: db} }

// historyColumn maps a correlation key to its column expression.  Keys
// are whitelisted so a filter name can never reach the SQL text
// unchecked.
func historyColumn(key string) (string, error) {
	switch key {
	case "user":
		return "`user`", nil
	case "ip":
		return "ip", nil
	}
	return "", ErrInvalidFilter
}

// Create inserts a new comment and populates the generated ID and
// creation timestamp on the provided record.  When enforcePending is
// true the one-outstanding-pending rule is re-checked for both the
// token subject and the IP inside the insert transaction; a conflict
// returns ErrPendingExists and nothing is written.  Admin submissions
// pass enforcePending=false and skip the check.
func (r *CommentRepo) Create(ctx context.Context, c *model.Comment, enforcePending bool) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if enforcePending {
		if c.User != "" {
			busy, err := pendingExistsTx(ctx, tx, "`user`", c.User)
			if err != nil {
				return err
			}
			if busy {
				return ErrPendingExists
			}
		}
		if c.IP != "" {
			busy, err := pendingExistsTx(ctx, tx, "ip", c.IP)
			if err != nil {
				return err
			}
			if busy {
				return ErrPendingExists
			}
		}
	}

	const q = "INSERT INTO comments (post, parent, author, email, website, text, html, ip, `user`, status) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
	result, err := tx.ExecContext(ctx, q,
		c.Post, c.Parent, c.Author, c.Email, c.Website, c.Text, c.HTML, c.IP, c.User, string(c.Status),
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)

	// Query back the row to populate the store-assigned timestamp.
	const sel = `SELECT created_at FROM comments WHERE id = ?`
	if err := tx.QueryRowContext(ctx, sel, c.ID).Scan(&c.CreatedAt); err != nil {
		return err
	}
	return tx.Commit()
}

// pendingExistsTx reports whether a pending comment exists for the
// given column/value pair.  A locking read keeps the probe and the
// subsequent insert atomic with respect to concurrent submissions.
func pendingExistsTx(ctx context.Context, tx *sql.Tx, col, value string) (bool, error) {
	q := `SELECT 1 FROM comments WHERE ` + col + ` = ? AND status = 'pending' LIMIT 1 FOR UPDATE`
	var one int
	err := tx.QueryRowContext(ctx, q, value).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetByID returns a single comment by its primary key.  When no row
// matches, sql.ErrNoRows is returned.
func (r *CommentRepo) GetByID(ctx context.Context, id uint64) (*model.Comment, error) {
	const q = "SELECT id, post, parent, author, email, website, text, html, ip, `user`, status, created_at FROM comments WHERE id = ?"
	return r.scanOne(r.db.QueryRowContext(ctx, q, id))
}

// FindByID is the driver-agnostic lookup the moderation engine reads
// through: an absent row comes back as ok=false, never as a sentinel.
func (r *CommentRepo) FindByID(ctx context.Context, id uint64) (*model.Comment, bool, error) {
	c, err := r.GetByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return c, true, nil
}

func (r *CommentRepo) scanOne(row *sql.Row) (*model.Comment, error) {
	var c model.Comment
	var parent sql.NullInt64
	var status string
	if err := row.Scan(
		&c.ID, &c.Post, &parent, &c.Author, &c.Email, &c.Website,
		&c.Text, &c.HTML, &c.IP, &c.User, &status, &c.CreatedAt,
	); err != nil {
		return nil, err
	}
	if parent.Valid {
		p := uint64(parent.Int64)
		c.Parent = &p
	}
	c.Status = model.Status(status)
	return &c, nil
}

// Update persists the mutable identity fields and the text/html pair of
// an existing comment.  Status, token subject, IP and creation time are
// deliberately absent from the statement; they cannot change through
// this path.  sql.ErrNoRows is returned when the id matched nothing.
func (r *CommentRepo) Update(ctx context.Context, c *model.Comment) error {
	const q = `UPDATE comments SET author = ?, email = ?, website = ?, text = ?, html = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, q, c.Author, c.Email, c.Website, c.Text, c.HTML, c.ID)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Distinguish "no such row" from "nothing changed": UPDATE with
		// identical values reports zero affected rows on MySQL.
		var one int
		if err := r.db.QueryRowContext(ctx, `SELECT 1 FROM comments WHERE id = ?`, c.ID).Scan(&one); err != nil {
			return err
		}
	}
	return nil
}

// UpdateStatus overwrites the moderation status of a comment.  The
// caller is responsible for validating the status value; this is an
// unrestricted write, not a graph-constrained transition.  It returns
// sql.ErrNoRows when no row matched the id.
func (r *CommentRepo) UpdateStatus(ctx context.Context, id uint64, status model.Status) error {
	const q = `UPDATE comments SET status = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, q, string(status), id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var one int
		if err := r.db.QueryRowContext(ctx, `SELECT 1 FROM comments WHERE id = ?`, id).Scan(&one); err != nil {
			return err
		}
	}
	return nil
}

// Delete hard-removes a comment row and returns the number of rows
// removed (0 or 1).  Tombstoning is done through UpdateStatus instead.
func (r *CommentRepo) Delete(ctx context.Context, id uint64) (int64, error) {
	const q = `DELETE FROM comments WHERE id = ?`
	result, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ListByPost returns all comments for a post whose status is in the
// given set, ordered oldest first so threads render as a natural
// conversation.  An empty status set yields an empty result.
func (r *CommentRepo) ListByPost(ctx context.Context, post string, statuses []model.Status) ([]model.Comment, error) {
	if len(statuses) == 0 {
		return []model.Comment{}, nil
	}
	placeholders := make([]string, 0, len(statuses))
	args := make([]interface{}, 0, len(statuses)+1)
	args = append(args, post)
	for _, s := range statuses {
		placeholders = append(placeholders, "?")
		args = append(args, string(s))
	}
	q := "SELECT id, post, parent, author, email, website, text, html, ip, `user`, status, created_at FROM comments" +
		` WHERE post = ? AND status IN (` + strings.Join(placeholders, ",") + `)
		 ORDER BY created_at ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Comment, 0)
	for rows.Next() {
		var c model.Comment
		var parent sql.NullInt64
		var status string
		if err := rows.Scan(
			&c.ID, &c.Post, &parent, &c.Author, &c.Email, &c.Website,
			&c.Text, &c.HTML, &c.IP, &c.User, &status, &c.CreatedAt,
		); err != nil {
			return nil, err
		}
		if parent.Valid {
			p := uint64(parent.Int64)
			c.Parent = &p
		}
		c.Status = model.Status(status)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// LatestStatus returns the status of the most recent non-deleted
// comment matching the correlation key ("user" or "ip").  The second
// return value is false when no matching history exists.
func (r *CommentRepo) LatestStatus(ctx context.Context, key, value string) (model.Status, bool, error) {
	col, err := historyColumn(key)
	if err != nil {
		return "", false, err
	}
	q := `SELECT status FROM comments WHERE ` + col + ` = ? AND status <> 'deleted'
	      ORDER BY created_at DESC, id DESC LIMIT 1`
	var status string
	err = r.db.QueryRowContext(ctx, q, value).Scan(&status)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return model.Status(status), true, nil
}

// HasPending reports whether an outstanding pending comment exists for
// the correlation key.  This read backs the advisory gate in the
// moderation engine; the authoritative check runs inside Create.
func (r *CommentRepo) HasPending(ctx context.Context, key, value string) (bool, error) {
	col, err := historyColumn(key)
	if err != nil {
		return false, err
	}
	q := `SELECT 1 FROM comments WHERE ` + col + ` = ? AND status = 'pending' LIMIT 1`
	var one int
	err = r.db.QueryRowContext(ctx, q, value).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
