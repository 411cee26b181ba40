package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmynk/splitledger/internal/models"
)

// CreateActivity persists an activity feed entry.
func (s *SQLiteStore) CreateActivity(ctx context.Context, activity *models.Activity) error {
	if activity.ID == "" {
		activity.ID = models.NewID(models.PrefixActivity)
	}
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO activities (id, user_id, action, description, is_read, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		activity.ID, activity.UserID, activity.Action, activity.Description,
		activity.Read, toNanos(activity.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert activity: %w", err)
	}
	return nil
}

// ListActivities returns a user's feed, oldest first.
func (s *SQLiteStore) ListActivities(ctx context.Context, user string, unreadOnly bool) ([]*models.Activity, error) {
	query := `SELECT id, user_id, action, description, is_read, created_at
		FROM activities WHERE user_id = ?`
	if unreadOnly {
		query += " AND is_read = 0"
	}
	query += " ORDER BY created_at, id"

	rows, err := s.db.QueryContext(ctx, query, user)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	defer rows.Close()

	var activities []*models.Activity
	for rows.Next() {
		a := &models.Activity{}
		var createdAt int64
		if err := rows.Scan(&a.ID, &a.UserID, &a.Action, &a.Description, &a.Read, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		a.CreatedAt = fromNanos(createdAt)
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate activities: %w", err)
	}
	return activities, nil
}

// MarkActivitiesRead marks the given activities of user as read. No ids marks all.
func (s *SQLiteStore) MarkActivitiesRead(ctx context.Context, user string, ids []string) error {
	query := "UPDATE activities SET is_read = 1 WHERE user_id = ?"
	args := []any{user}
	if len(ids) > 0 {
		query += " AND id IN (?" + strings.Repeat(", ?", len(ids)-1) + ")"
		for _, id := range ids {
			args = append(args, id)
		}
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to mark activities read: %w", err)
	}
	return nil
}
