package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"medialens.io/internal/audit"
)

// Activity adapts the shared Store to audit.Store.
type Activity struct {
	db *sql.DB
}

var _ audit.Store = (*Activity)(nil)

// ActivityStore returns the activity-log persistence view.
func (s *Store) ActivityStore() *Activity { return &Activity{db: s.db} }

func (s *Activity) Append(ctx context.Context, entry *audit.Entry) error {
	metaJSON := []byte("{}")
	if len(entry.Metadata) > 0 {
		raw, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		metaJSON = raw
	}
	_, err := s.db.ExecContext(ctx, `
		insert into activity_log (id, occurred_at, actor_id, actor_email, action, resource_type, resource_id, metadata, request_id)
		values ($1, $2, $3, nullif($4, ''), $5, $6, $7, $8, nullif($9, ''))
	`, entry.ID, entry.OccurredAt, entry.ActorID, entry.ActorEmail, entry.Action,
		entry.ResourceType, entry.ResourceID, metaJSON, entry.RequestID)
	return err
}

func (s *Activity) List(ctx context.Context, limit int, before string) ([]audit.Entry, error) {
	query := `
		select id, occurred_at, actor_id, coalesce(actor_email, ''), action, resource_type, resource_id, metadata, coalesce(request_id, '')
		from activity_log`
	var args []any
	idx := 1
	if before != "" {
		query += fmt.Sprintf(" where id < $%d", idx)
		args = append(args, before)
		idx++
	}
	query += fmt.Sprintf(" order by id desc limit $%d", idx)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []audit.Entry
	for rows.Next() {
		var (
			entry   audit.Entry
			rawMeta []byte
		)
		if err := rows.Scan(&entry.ID, &entry.OccurredAt, &entry.ActorID, &entry.ActorEmail,
			&entry.Action, &entry.ResourceType, &entry.ResourceID, &rawMeta, &entry.RequestID); err != nil {
			return nil, err
		}
		if len(rawMeta) > 0 {
			if err := json.Unmarshal(rawMeta, &entry.Metadata); err != nil {
				return nil, err
			}
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
