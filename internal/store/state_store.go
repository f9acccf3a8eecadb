package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nhle/humhub-notify/internal/model"
)

type fetchStateRow struct {
	ID              int           `db:"id"`
	LastFetched     sql.NullInt64 `db:"last_fetched"`
	LastError       string        `db:"last_error"`
	LastErrorAt     sql.NullInt64 `db:"last_error_at"`
	LastUnreadCount int           `db:"last_unread_count"`
	BadgeText       string        `db:"badge_text"`
	BadgeColor      string        `db:"badge_color"`
	Version         int64         `db:"version"`
}

// GetFetchState returns the single bookkeeping row.
func (s *SQLiteStore) GetFetchState(ctx context.Context) (model.FetchState, error) {
	var row fetchStateRow
	if err := s.db.GetContext(ctx, &row, "SELECT * FROM fetch_state WHERE id = 1"); err != nil {
		return model.FetchState{}, fmt.Errorf("reading fetch state: %w", err)
	}

	return model.FetchState{
		LastFetched:     fromMillis(row.LastFetched),
		LastError:       row.LastError,
		LastErrorAt:     fromMillis(row.LastErrorAt),
		LastUnreadCount: row.LastUnreadCount,
		Badge: model.Badge{
			Text:  row.BadgeText,
			Color: row.BadgeColor,
		},
		Version: row.Version,
	}, nil
}

// RecordFetchError stores a failed poll and switches the badge to the
// error marker. The notification list is left as it was.
func (s *SQLiteStore) RecordFetchError(ctx context.Context, msg string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE fetch_state SET
			last_error = ?, last_error_at = ?,
			badge_text = ?, badge_color = ?,
			version = version + 1
		WHERE id = 1`,
		msg, millis(at), model.BadgeErrorText, model.BadgeColorError,
	)
	if err != nil {
		return fmt.Errorf("recording fetch error: %w", err)
	}
	return nil
}

// SetBadge stores the badge text and color.
func (s *SQLiteStore) SetBadge(ctx context.Context, badge model.Badge) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE fetch_state SET badge_text = ?, badge_color = ?, version = version + 1 WHERE id = 1",
		badge.Text, badge.Color,
	)
	if err != nil {
		return fmt.Errorf("setting badge: %w", err)
	}
	return nil
}
