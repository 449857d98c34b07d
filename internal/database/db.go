package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Open connects to MySQL and verifies the connection.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, host, port, name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// EnsureSchema creates the comments table and its indexes when they do
// not exist yet.  The (user, status) and (ip, status) indexes back the
// moderation engine's history reads; (post, status) backs the public
// list.
func EnsureSchema(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	const q = "CREATE TABLE IF NOT EXISTS comments (" +
		" id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY," +
		" post VARCHAR(255) NOT NULL," +
		" parent BIGINT UNSIGNED NULL," +
		" author VARCHAR(255) NOT NULL," +
		" email VARCHAR(255) NOT NULL DEFAULT ''," +
		" website VARCHAR(255) NOT NULL DEFAULT ''," +
		" text TEXT NOT NULL," +
		" html TEXT NOT NULL," +
		" ip VARCHAR(45) NOT NULL DEFAULT ''," +
		" `user` VARCHAR(64) NOT NULL DEFAULT ''," +
		" status VARCHAR(16) NOT NULL," +
		" created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP," +
		" KEY idx_comments_post_status (post, status)," +
		" KEY idx_comments_user_status (`user`, status)," +
		" KEY idx_comments_ip_status (ip, status)" +
		") ENGINE=InnoDB DEFAULT CHARSET=utf8mb4"

	_, err := db.ExecContext(ctx, q)
	return err
}
