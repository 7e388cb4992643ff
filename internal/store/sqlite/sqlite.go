package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/vovakirdan/channelchat/internal/store"
)

// Schema is applied by New. Statements are idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS channels (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	title      TEXT NOT NULL,
	owner_id   INTEGER NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (owner_id) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS messages (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	channel_id INTEGER NOT NULL,
	user_id    INTEGER NOT NULL,
	body       TEXT NOT NULL,
	sent_at    INTEGER NOT NULL,
	FOREIGN KEY (channel_id) REFERENCES channels(id),
	FOREIGN KEY (user_id) REFERENCES users(id)
);

CREATE INDEX IF NOT EXISTS idx_messages_channel ON messages(channel_id, id);

CREATE TABLE IF NOT EXISTS cookies (
	name      TEXT PRIMARY KEY,
	value     TEXT NOT NULL,
	path      TEXT NOT NULL DEFAULT '',
	expires   INTEGER NOT NULL,
	secure    BOOLEAN NOT NULL DEFAULT 0,
	same_site INTEGER NOT NULL DEFAULT 0
);
`

// SQLiteStore implements store.Store and store.CookieStore for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var (
	_ store.Store       = (*SQLiteStore)(nil)
	_ store.CookieStore = (*SQLiteStore)(nil)
)

// New opens the database at dbPath and applies the schema.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, func(db *sql.DB) error {
		_, err := db.Exec(Schema)
		return err
	})
}

// NewWithSetup opens the database and runs setup instead of the default
// schema. Useful for tests that need a custom schema or seed data.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection; it also keeps ":memory:"
	// databases shared across calls.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// ==== UserStore implementation ====

// CreateUser creates a new user with hashed password.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, passwordHash string) (*store.User, error) {
	query := `
		INSERT INTO users (username, password_hash)
		VALUES (?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, username, passwordHash)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("insert user %q: %w", username, store.ErrConflict)
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*store.User, error) {
	query := `
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE id = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, id))
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	query := `
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE username = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, username))
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*store.User, error) {
	var user store.User
	err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &user, nil
}

// ==== ChannelStore implementation ====

// CreateChannel creates a channel owned by ownerID.
func (s *SQLiteStore) CreateChannel(ctx context.Context, title string, ownerID int64) (*store.Channel, error) {
	query := `
		INSERT INTO channels (title, owner_id)
		VALUES (?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, title, ownerID)
	if err != nil {
		return nil, fmt.Errorf("insert channel: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetChannelByID(ctx, id)
}

// GetChannelByID retrieves a channel by ID.
func (s *SQLiteStore) GetChannelByID(ctx context.Context, id int64) (*store.Channel, error) {
	query := `
		SELECT c.id, c.title, c.owner_id, u.username, c.created_at
		FROM channels c
		JOIN users u ON u.id = c.owner_id
		WHERE c.id = ?
	`
	var ch store.Channel
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&ch.ID,
		&ch.Title,
		&ch.OwnerID,
		&ch.OwnerUsername,
		&ch.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("channel %d: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query channel: %w", err)
	}

	return &ch, nil
}

// ListChannels lists every channel in creation order.
func (s *SQLiteStore) ListChannels(ctx context.Context) ([]*store.Channel, error) {
	query := `
		SELECT c.id, c.title, c.owner_id, u.username, c.created_at
		FROM channels c
		JOIN users u ON u.id = c.owner_id
		ORDER BY c.id ASC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query channels: %w", err)
	}
	defer rows.Close()

	channels := make([]*store.Channel, 0)
	for rows.Next() {
		var ch store.Channel
		if err := rows.Scan(&ch.ID, &ch.Title, &ch.OwnerID, &ch.OwnerUsername, &ch.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		channels = append(channels, &ch)
	}

	return channels, rows.Err()
}

// ==== MessageStore implementation ====

// SaveMessage persists a message to storage.
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *store.Message) error {
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now()
	}

	query := `
		INSERT INTO messages (channel_id, user_id, body, sent_at)
		VALUES (?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, msg.ChannelID, msg.UserID, msg.Body, msg.SentAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	msg.ID = id

	if msg.SenderUsername == "" {
		user, err := s.GetUserByID(ctx, msg.UserID)
		if err != nil {
			return fmt.Errorf("load sender: %w", err)
		}
		msg.SenderUsername = user.Username
	}
	return nil
}

// ListMessages returns the latest limit messages of a channel, oldest first.
// A limit of zero or less returns the whole history.
func (s *SQLiteStore) ListMessages(ctx context.Context, channelID int64, limit int) ([]*store.Message, error) {
	if limit <= 0 {
		// SQLite reads a negative LIMIT as no limit.
		limit = -1
	}
	query := `
		SELECT id, channel_id, user_id, username, body, sent_at FROM (
			SELECT m.id, m.channel_id, m.user_id, u.username, m.body, m.sent_at
			FROM messages m
			JOIN users u ON u.id = m.user_id
			WHERE m.channel_id = ?
			ORDER BY m.id DESC
			LIMIT ?
		) ORDER BY id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, channelID, limit)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*store.Message, 0)
	for rows.Next() {
		var msg store.Message
		var sentAt int64
		if err := rows.Scan(&msg.ID, &msg.ChannelID, &msg.UserID, &msg.SenderUsername, &msg.Body, &sentAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.SentAt = time.UnixMilli(sentAt)
		messages = append(messages, &msg)
	}

	return messages, rows.Err()
}

// ==== CookieStore implementation ====

// SetCookie inserts or replaces the cookie with the same name.
func (s *SQLiteStore) SetCookie(ctx context.Context, cookie *http.Cookie) error {
	query := `
		INSERT INTO cookies (name, value, path, expires, secure, same_site)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			value = excluded.value,
			path = excluded.path,
			expires = excluded.expires,
			secure = excluded.secure,
			same_site = excluded.same_site
	`
	_, err := s.db.ExecContext(ctx, query,
		cookie.Name,
		cookie.Value,
		cookie.Path,
		cookie.Expires.Unix(),
		cookie.Secure,
		int(cookie.SameSite),
	)
	if err != nil {
		return fmt.Errorf("upsert cookie %s: %w", cookie.Name, err)
	}
	return nil
}

// GetCookie returns the stored cookie, expired or not.
func (s *SQLiteStore) GetCookie(ctx context.Context, name string) (*http.Cookie, error) {
	query := `
		SELECT name, value, path, expires, secure, same_site
		FROM cookies
		WHERE name = ?
	`
	var (
		cookie   http.Cookie
		expires  int64
		sameSite int
	)
	err := s.db.QueryRowContext(ctx, query, name).Scan(
		&cookie.Name,
		&cookie.Value,
		&cookie.Path,
		&expires,
		&cookie.Secure,
		&sameSite,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("cookie %s: %w", name, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query cookie: %w", err)
	}

	cookie.Expires = time.Unix(expires, 0)
	cookie.SameSite = http.SameSite(sameSite)
	return &cookie, nil
}
