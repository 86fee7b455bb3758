package db

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/hpungsan/wortal/internal/host"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = stderrors.New("not found")

// ErrUniqueConstraint is returned when an insert violates a UNIQUE constraint.
var ErrUniqueConstraint = stderrors.New("unique constraint violation")

// Querier is satisfied by *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// InTx runs fn in a transaction, committing when fn returns nil.
func InTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// isUniqueConstraintError reports a UNIQUE or PRIMARY KEY violation.
func isUniqueConstraintError(err error) bool {
	var se *sqlite.Error
	if !stderrors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		// Connection without extended result codes.
		return strings.Contains(se.Error(), "UNIQUE constraint failed")
	}
	return false
}

// =============================================================================
// Players and connections
// =============================================================================

// InsertPlayer stores a new player.
func InsertPlayer(ctx context.Context, q Querier, p host.Player, now int64) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO players (id, name, photo, has_played, created_at) VALUES (?, ?, ?, 0, ?)`,
		p.ID, p.Name, p.Photo, now)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return fmt.Errorf("insert player: %w", err)
	}
	return nil
}

// GetPlayer retrieves a player by ID.
func GetPlayer(ctx context.Context, q Querier, id string) (*host.Player, error) {
	var p host.Player
	err := q.QueryRowContext(ctx, `SELECT id, name, photo FROM players WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.Photo)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get player: %w", err)
	}
	return &p, nil
}

// MarkPlayed flags the player as having played and reports whether this was
// the first time.
func MarkPlayed(ctx context.Context, q Querier, id string) (bool, error) {
	res, err := q.ExecContext(ctx, `UPDATE players SET has_played = 1 WHERE id = ? AND has_played = 0`, id)
	if err != nil {
		return false, fmt.Errorf("mark played: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark played: %w", err)
	}
	return n == 1, nil
}

// Connect links two players in both directions. Existing links are kept.
func Connect(ctx context.Context, q Querier, a, b string, now int64) error {
	for _, pair := range [][2]string{{a, b}, {b, a}} {
		_, err := q.ExecContext(ctx,
			`INSERT OR IGNORE INTO connections (player_id, friend_id, created_at) VALUES (?, ?, ?)`,
			pair[0], pair[1], now)
		if err != nil {
			return fmt.Errorf("connect players: %w", err)
		}
	}
	return nil
}

// ConnectionQuery filters ConnectedPlayers.
type ConnectionQuery struct {
	// Played restricts to players who have (true) or have not (false) played.
	Played *bool
	// Since restricts to connections made at or after this unix time.
	Since  int64
	Limit  int
	Offset int
}

// ConnectedPlayers lists the players connected to playerID, oldest link first.
func ConnectedPlayers(ctx context.Context, q Querier, playerID string, cq ConnectionQuery) ([]host.Player, error) {
	query := `
		SELECT p.id, p.name, p.photo
		FROM connections c
		JOIN players p ON p.id = c.friend_id
		WHERE c.player_id = ?
	`
	args := []any{playerID}
	if cq.Played != nil {
		query += " AND p.has_played = ?"
		args = append(args, boolToInt(*cq.Played))
	}
	if cq.Since > 0 {
		query += " AND c.created_at >= ?"
		args = append(args, cq.Since)
	}
	query += " ORDER BY c.created_at ASC, p.id ASC LIMIT ? OFFSET ?"
	args = append(args, cq.Limit, cq.Offset)

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("connected players: %w", err)
	}
	return scanPlayers(rows)
}

// =============================================================================
// Contexts and session
// =============================================================================

// InsertContext creates a context with the given members.
func InsertContext(ctx context.Context, q Querier, id string, typ host.ContextType, members []string, now int64) error {
	_, err := q.ExecContext(ctx, `INSERT INTO contexts (id, type, created_at) VALUES (?, ?, ?)`, id, string(typ), now)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return fmt.Errorf("insert context: %w", err)
	}
	for _, m := range members {
		if err := AddMember(ctx, q, id, m, now); err != nil {
			return err
		}
	}
	return nil
}

// AddMember adds a player to a context. Existing members are kept.
func AddMember(ctx context.Context, q Querier, contextID, playerID string, now int64) error {
	_, err := q.ExecContext(ctx,
		`INSERT OR IGNORE INTO context_members (context_id, player_id, joined_at) VALUES (?, ?, ?)`,
		contextID, playerID, now)
	if err != nil {
		return fmt.Errorf("add context member: %w", err)
	}
	return nil
}

// GetContextType returns the type of a context.
func GetContextType(ctx context.Context, q Querier, id string) (host.ContextType, error) {
	var typ string
	err := q.QueryRowContext(ctx, `SELECT type FROM contexts WHERE id = ?`, id).Scan(&typ)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get context: %w", err)
	}
	return host.ContextType(typ), nil
}

// ContextMembers lists the players of a context in join order.
func ContextMembers(ctx context.Context, q Querier, contextID string) ([]host.Player, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT p.id, p.name, p.photo
		FROM context_members m
		JOIN players p ON p.id = m.player_id
		WHERE m.context_id = ?
		ORDER BY m.joined_at ASC, p.id ASC
	`, contextID)
	if err != nil {
		return nil, fmt.Errorf("context members: %w", err)
	}
	return scanPlayers(rows)
}

// FindThread returns the THREAD context whose only members are a and b.
func FindThread(ctx context.Context, q Querier, a, b string) (string, error) {
	var id string
	err := q.QueryRowContext(ctx, `
		SELECT c.id
		FROM contexts c
		WHERE c.type = ?
		  AND (SELECT COUNT(*) FROM context_members m WHERE m.context_id = c.id) = 2
		  AND EXISTS (SELECT 1 FROM context_members m WHERE m.context_id = c.id AND m.player_id = ?)
		  AND EXISTS (SELECT 1 FROM context_members m WHERE m.context_id = c.id AND m.player_id = ?)
		ORDER BY c.created_at ASC
		LIMIT 1
	`, string(host.ContextThread), a, b).Scan(&id)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("find thread: %w", err)
	}
	return id, nil
}

// Session is the persisted sandbox session.
type Session struct {
	PlayerID  string
	ContextID string
}

// GetSession loads the session row.
func GetSession(ctx context.Context, q Querier) (*Session, error) {
	var s Session
	err := q.QueryRowContext(ctx, `SELECT player_id, context_id FROM session WHERE id = 1`).
		Scan(&s.PlayerID, &s.ContextID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &s, nil
}

// SaveSession writes the session row.
func SaveSession(ctx context.Context, q Querier, s Session) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO session (id, player_id, context_id) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET player_id = excluded.player_id, context_id = excluded.context_id
	`, s.PlayerID, s.ContextID)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// =============================================================================
// Player data
// =============================================================================

// GetData returns the stored JSON values for keys. Missing keys are absent.
func GetData(ctx context.Context, q Querier, playerID string, keys []string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]any, 0, len(keys)+1)
	args = append(args, playerID)
	for _, k := range keys {
		args = append(args, k)
	}

	rows, err := q.QueryContext(ctx,
		`SELECT key, value_json FROM player_data WHERE player_id = ? AND key IN (`+placeholders+`)`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("get player data: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("get player data: %w", err)
		}
		out[k] = v
	}
	return out, rows.Err()
}

// PutData writes one JSON value.
func PutData(ctx context.Context, q Querier, playerID, key, valueJSON string, now int64) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO player_data (player_id, key, value_json, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(player_id, key) DO UPDATE SET value_json = excluded.value_json, updated_at = excluded.updated_at
	`, playerID, key, valueJSON, now)
	if err != nil {
		return fmt.Errorf("put player data: %w", err)
	}
	return nil
}

// =============================================================================
// Messages
// =============================================================================

// Message kinds.
const (
	MessageInvite    = "invite"
	MessageShare     = "share"
	MessageShareLink = "share_link"
	MessageUpdate    = "update"
)

// Message records a dialog the sandbox completed.
type Message struct {
	ID          string `json:"id"`
	ContextID   string `json:"context_id"`
	SenderID    string `json:"sender_id"`
	Kind        string `json:"kind"`
	PayloadJSON string `json:"payload"`
	CreatedAt   int64  `json:"created_at"`
}

// InsertMessage stores a message.
func InsertMessage(ctx context.Context, q Querier, m Message) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO messages (id, context_id, sender_id, kind, payload_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, m.ID, m.ContextID, m.SenderID, m.Kind, m.PayloadJSON, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// ListMessages returns the newest messages of a context first.
func ListMessages(ctx context.Context, q Querier, contextID string, limit int) ([]Message, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, context_id, sender_id, kind, payload_json, created_at
		FROM messages
		WHERE context_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, contextID, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ContextID, &m.SenderID, &m.Kind, &m.PayloadJSON, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("list messages: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanPlayers(rows *sql.Rows) ([]host.Player, error) {
	defer rows.Close()
	out := []host.Player{}
	for rows.Next() {
		var p host.Player
		if err := rows.Scan(&p.ID, &p.Name, &p.Photo); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
