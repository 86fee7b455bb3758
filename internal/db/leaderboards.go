package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/hpungsan/wortal/internal/host"
)

// Ranking order: higher score first, earlier submission breaks ties.
const rankOrder = "e.score DESC, e.timestamp ASC, e.rowid ASC"

// InsertLeaderboard creates a leaderboard, bound to contextID when non-empty.
func InsertLeaderboard(ctx context.Context, q Querier, name, contextID string, now int64) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO leaderboards (name, context_id, created_at) VALUES (?, ?, ?)`,
		name, contextID, now)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return fmt.Errorf("insert leaderboard: %w", err)
	}
	return nil
}

// GetLeaderboard retrieves a leaderboard by name.
func GetLeaderboard(ctx context.Context, q Querier, name string) (*host.Leaderboard, error) {
	var lb host.Leaderboard
	err := q.QueryRowContext(ctx, `SELECT name, context_id FROM leaderboards WHERE name = ?`, name).
		Scan(&lb.Name, &lb.ContextID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get leaderboard: %w", err)
	}
	return &lb, nil
}

// UpsertEntry records score for playerID. An existing entry is replaced only
// by a strictly better score. Reports whether the stored entry changed.
func UpsertEntry(ctx context.Context, q Querier, board, playerID string, score int64, details string, now int64) (bool, error) {
	res, err := q.ExecContext(ctx, `
		INSERT INTO leaderboard_entries (leaderboard, player_id, score, details, timestamp)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(leaderboard, player_id) DO UPDATE
		SET score = excluded.score, details = excluded.details, timestamp = excluded.timestamp
		WHERE excluded.score > leaderboard_entries.score
	`, board, playerID, score, details, now)
	if err != nil {
		return false, fmt.Errorf("upsert entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("upsert entry: %w", err)
	}
	return n > 0, nil
}

// GetEntry returns playerID's ranked entry on board.
func GetEntry(ctx context.Context, q Querier, board, playerID string) (*host.LeaderboardEntry, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT pos, score, details, timestamp, id, name, photo FROM (
			SELECT ROW_NUMBER() OVER (ORDER BY `+rankOrder+`) AS pos,
				e.score, e.details, e.timestamp, p.id, p.name, p.photo
			FROM leaderboard_entries e
			JOIN players p ON p.id = e.player_id
			WHERE e.leaderboard = ?
		) WHERE id = ?
	`, board, playerID)
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	entries, err := scanEntries(rows)
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	if len(entries) == 0 {
		return nil, ErrNotFound
	}
	return &entries[0], nil
}

// ListEntries returns a page of ranked entries.
func ListEntries(ctx context.Context, q Querier, board string, limit, offset int) ([]host.LeaderboardEntry, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT ROW_NUMBER() OVER (ORDER BY `+rankOrder+`) AS pos,
			e.score, e.details, e.timestamp, p.id, p.name, p.photo
		FROM leaderboard_entries e
		JOIN players p ON p.id = e.player_id
		WHERE e.leaderboard = ?
		ORDER BY pos
		LIMIT ? OFFSET ?
	`, board, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	entries, err := scanEntries(rows)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

// ListConnectedEntries returns entries of playerID and their connections,
// ranked among themselves.
func ListConnectedEntries(ctx context.Context, q Querier, board, playerID string, limit, offset int) ([]host.LeaderboardEntry, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT ROW_NUMBER() OVER (ORDER BY `+rankOrder+`) AS pos,
			e.score, e.details, e.timestamp, p.id, p.name, p.photo
		FROM leaderboard_entries e
		JOIN players p ON p.id = e.player_id
		WHERE e.leaderboard = ?
		  AND (e.player_id = ? OR e.player_id IN (SELECT friend_id FROM connections WHERE player_id = ?))
		ORDER BY pos
		LIMIT ? OFFSET ?
	`, board, playerID, playerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list connected entries: %w", err)
	}
	entries, err := scanEntries(rows)
	if err != nil {
		return nil, fmt.Errorf("list connected entries: %w", err)
	}
	return entries, nil
}

// CountEntries returns the number of entries on board.
func CountEntries(ctx context.Context, q Querier, board string) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM leaderboard_entries WHERE leaderboard = ?`, board).Scan(&n); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

func scanEntries(rows *sql.Rows) ([]host.LeaderboardEntry, error) {
	defer rows.Close()
	out := []host.LeaderboardEntry{}
	for rows.Next() {
		var e host.LeaderboardEntry
		if err := rows.Scan(&e.Rank, &e.Score, &e.Details, &e.Timestamp, &e.Player.ID, &e.Player.Name, &e.Player.Photo); err != nil {
			return nil, err
		}
		e.FormattedScore = strconv.FormatInt(e.Score, 10)
		out = append(out, e)
	}
	return out, rows.Err()
}
