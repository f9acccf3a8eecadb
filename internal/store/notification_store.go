package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/nhle/humhub-notify/internal/model"
)

// notificationRow mirrors the notifications table.
type notificationRow struct {
	ID            string        `db:"id"`
	Position      int           `db:"position"`
	Message       string        `db:"message"`
	Seen          int           `db:"seen"`
	Originator    string        `db:"originator"`
	CreatedAt     int64         `db:"created_at"`
	SourceURL     string        `db:"source_url"`
	SeenLocallyAt sql.NullInt64 `db:"seen_locally_at"`
	FetchedAt     int64         `db:"fetched_at"`
}

func (r notificationRow) toModel() model.Notification {
	return model.Notification{
		ID:            r.ID,
		Message:       r.Message,
		Seen:          r.Seen != 0,
		Originator:    r.Originator,
		CreatedAt:     r.CreatedAt,
		SourceURL:     r.SourceURL,
		SeenLocallyAt: fromMillis(r.SeenLocallyAt),
	}
}

// ReplaceNotifications replaces the whole list in one transaction and
// clears the last error.
//
// A row the viewer marked seen at or after startedAt keeps seen=1 even if
// the payload says otherwise: the payload was requested before the
// mark-read reached the server. Older local marks yield to the server.
// A repeated id keeps its first position and takes the later data.
func (s *SQLiteStore) ReplaceNotifications(
	ctx context.Context,
	list []model.Notification,
	startedAt time.Time,
	fetchedAt time.Time,
) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := replaceList(ctx, tx, list, startedAt, fetchedAt); err != nil {
		return err
	}
	return tx.Commit()
}

// BadgeFunc derives the badge from the previous poll's unread count and
// the unread rows of the list just stored.
type BadgeFunc func(previous int, unread []model.Notification) model.Badge

// ApplyFetch stores a successful poll in one transaction: the list as
// ReplaceNotifications does, the badge returned by eval, and the new
// unread count. It returns the unread rows eval was given.
func (s *SQLiteStore) ApplyFetch(
	ctx context.Context,
	list []model.Notification,
	startedAt time.Time,
	fetchedAt time.Time,
	eval BadgeFunc,
) ([]model.Notification, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var previous int
	if err := tx.GetContext(ctx, &previous,
		"SELECT last_unread_count FROM fetch_state WHERE id = 1"); err != nil {
		return nil, fmt.Errorf("reading last unread count: %w", err)
	}

	if err := replaceList(ctx, tx, list, startedAt, fetchedAt); err != nil {
		return nil, err
	}

	var rows []notificationRow
	if err := tx.SelectContext(ctx, &rows,
		"SELECT * FROM notifications WHERE seen = 0 ORDER BY position"); err != nil {
		return nil, fmt.Errorf("querying unread notifications: %w", err)
	}
	unread := make([]model.Notification, 0, len(rows))
	for _, r := range rows {
		unread = append(unread, r.toModel())
	}

	b := eval(previous, unread)
	_, err = tx.ExecContext(ctx, `
		UPDATE fetch_state SET
			badge_text = ?, badge_color = ?, last_unread_count = ?
		WHERE id = 1`,
		b.Text, b.Color, len(unread),
	)
	if err != nil {
		return nil, fmt.Errorf("updating badge: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing fetch: %w", err)
	}
	return unread, nil
}

func replaceList(
	ctx context.Context,
	tx *sqlx.Tx,
	list []model.Notification,
	startedAt time.Time,
	fetchedAt time.Time,
) error {
	var marked []notificationRow
	err := tx.SelectContext(ctx, &marked, `
		SELECT * FROM notifications
		WHERE seen_locally_at IS NOT NULL AND seen_locally_at >= ?`,
		startedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("reading local marks: %w", err)
	}
	kept := make(map[string]sql.NullInt64, len(marked))
	for _, r := range marked {
		kept[r.ID] = r.SeenLocallyAt
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM notifications"); err != nil {
		return fmt.Errorf("clearing notifications: %w", err)
	}

	const query = `
		INSERT INTO notifications (
			id, position, message, seen, originator,
			created_at, source_url, seen_locally_at, fetched_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			message = excluded.message,
			seen = excluded.seen,
			originator = excluded.originator,
			created_at = excluded.created_at,
			source_url = excluded.source_url,
			seen_locally_at = excluded.seen_locally_at`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing insert statement: %w", err)
	}
	defer stmt.Close()

	for i, n := range list {
		seen := n.Seen
		var seenLocally sql.NullInt64
		if at, ok := kept[n.ID]; ok {
			seen = true
			seenLocally = at
		}

		_, err := stmt.ExecContext(ctx,
			n.ID, i, n.Message, boolToInt(seen), n.Originator,
			n.CreatedAt, n.SourceURL, seenLocally, fetchedAt.UnixMilli(),
		)
		if err != nil {
			return fmt.Errorf("inserting notification %s: %w", n.ID, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE fetch_state SET
			last_fetched = ?, last_error = '', last_error_at = NULL,
			version = version + 1
		WHERE id = 1`,
		millis(fetchedAt),
	)
	if err != nil {
		return fmt.Errorf("updating fetch state: %w", err)
	}
	return nil
}

// GetNotifications returns every stored notification in server order.
func (s *SQLiteStore) GetNotifications(ctx context.Context) ([]model.Notification, error) {
	return s.queryNotifications(ctx, "SELECT * FROM notifications ORDER BY position")
}

// GetUnreadNotifications returns the notifications with seen = 0 in
// server order.
func (s *SQLiteStore) GetUnreadNotifications(ctx context.Context) ([]model.Notification, error) {
	return s.queryNotifications(ctx,
		"SELECT * FROM notifications WHERE seen = 0 ORDER BY position")
}

func (s *SQLiteStore) queryNotifications(
	ctx context.Context,
	query string,
	args ...interface{},
) ([]model.Notification, error) {
	var rows []notificationRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("querying notifications: %w", err)
	}

	list := make([]model.Notification, 0, len(rows))
	for _, r := range rows {
		list = append(list, r.toModel())
	}
	return list, nil
}

// MarkNotificationsSeen flips seen for exactly the given ids and stamps
// them with at. It returns how many rows changed.
func (s *SQLiteStore) MarkNotificationsSeen(
	ctx context.Context,
	ids []string,
	at time.Time,
) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query, args, err := sqlx.In(
		"UPDATE notifications SET seen = 1, seen_locally_at = ? WHERE id IN (?)",
		at.UnixMilli(), ids,
	)
	if err != nil {
		return 0, fmt.Errorf("building mark-seen query: %w", err)
	}

	return s.markSeen(ctx, s.db.Rebind(query), args...)
}

// MarkAllNotificationsSeen flips every unread row and stamps it with at.
func (s *SQLiteStore) MarkAllNotificationsSeen(ctx context.Context, at time.Time) (int, error) {
	return s.markSeen(ctx,
		"UPDATE notifications SET seen = 1, seen_locally_at = ? WHERE seen = 0",
		at.UnixMilli(),
	)
}

func (s *SQLiteStore) markSeen(ctx context.Context, query string, args ...interface{}) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("marking notifications seen: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking affected rows: %w", err)
	}

	if n > 0 {
		if _, err := tx.ExecContext(ctx,
			"UPDATE fetch_state SET version = version + 1 WHERE id = 1"); err != nil {
			return 0, fmt.Errorf("bumping version: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing mark-seen: %w", err)
	}
	return int(n), nil
}
