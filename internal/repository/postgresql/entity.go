package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/presencehq/presence-backend-go/internal/domain/entity"
	"github.com/presencehq/presence-backend-go/internal/pkg/database"
)

// entityRepository implements entity.Store over the entities table. Each
// repository instance is bound to one entity type at construction, so the
// attendance core never resolves collections dynamically by name.
type entityRepository struct {
	db         *database.DB
	entityType string
}

func NewEntityRepository(db *database.DB, entityType string) entity.Store {
	return &entityRepository{db: db, entityType: entityType}
}

const entityColumns = `
	id, tenant_id, entity_type, name, status, attendance_enabled,
	schedule,
	session_is_active, session_check_in_id, session_check_in_at,
	session_expected_out_at, session_method,
	stats,
	created_at, updated_at`

// GetByID implements entity.Store.
func (r *entityRepository) GetByID(ctx context.Context, tenantID, entityID string) (entity.Entity, error) {
	q := database.GetQuerier(ctx, r.db)

	query := `
		SELECT ` + entityColumns + `
		FROM entities
		WHERE tenant_id = $1
		  AND entity_type = $2
		  AND id = $3
	`

	ent, err := scanEntity(q.QueryRow(ctx, query, tenantID, r.entityType, entityID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.Entity{}, entity.ErrEntityNotFound
		}
		return entity.Entity{}, fmt.Errorf("failed to get entity: %w", err)
	}
	return ent, nil
}

// UpdateSession implements entity.Store.
func (r *entityRepository) UpdateSession(ctx context.Context, tenantID, entityID string, session entity.CurrentSession) error {
	q := database.GetQuerier(ctx, r.db)

	query := `
		UPDATE entities SET
			session_is_active = $1,
			session_check_in_id = $2,
			session_check_in_at = $3,
			session_expected_out_at = $4,
			session_method = $5,
			updated_at = NOW()
		WHERE tenant_id = $6
		  AND entity_type = $7
		  AND id = $8
	`

	tag, err := q.Exec(ctx, query,
		session.IsActive,
		session.CheckInID,
		session.CheckInAt,
		session.ExpectedCheckOutAt,
		session.Method,
		tenantID, r.entityType, entityID,
	)
	if err != nil {
		return fmt.Errorf("failed to update session projection: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrEntityNotFound
	}
	return nil
}

// UpdateStats implements entity.Store.
func (r *entityRepository) UpdateStats(ctx context.Context, tenantID, entityID string, stats entity.Stats) error {
	q := database.GetQuerier(ctx, r.db)

	encoded, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to encode entity stats: %w", err)
	}

	query := `
		UPDATE entities SET
			stats = $1,
			updated_at = NOW()
		WHERE tenant_id = $2
		  AND entity_type = $3
		  AND id = $4
	`

	tag, err := q.Exec(ctx, query, encoded, tenantID, r.entityType, entityID)
	if err != nil {
		return fmt.Errorf("failed to update entity stats: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrEntityNotFound
	}
	return nil
}

// ListActiveSessions implements entity.Store.
func (r *entityRepository) ListActiveSessions(ctx context.Context, tenantID string, cutoff time.Time) ([]entity.Entity, error) {
	q := database.GetQuerier(ctx, r.db)

	query := `
		SELECT ` + entityColumns + `
		FROM entities
		WHERE tenant_id = $1
		  AND entity_type = $2
		  AND session_is_active = TRUE
		  AND session_expected_out_at < $3
		ORDER BY session_expected_out_at ASC
	`

	rows, err := q.Query(ctx, query, tenantID, r.entityType, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list active sessions: %w", err)
	}
	defer rows.Close()

	var entities []entity.Entity
	for rows.Next() {
		ent, err := scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entity: %w", err)
		}
		entities = append(entities, ent)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list active sessions: %w", err)
	}
	return entities, nil
}

func scanEntity(row pgx.Row) (entity.Entity, error) {
	var (
		ent      entity.Entity
		schedule []byte
		stats    []byte
	)
	err := row.Scan(
		&ent.ID, &ent.TenantID, &ent.Type, &ent.Name, &ent.Status, &ent.AttendanceEnabled,
		&schedule,
		&ent.Session.IsActive, &ent.Session.CheckInID, &ent.Session.CheckInAt,
		&ent.Session.ExpectedCheckOutAt, &ent.Session.Method,
		&stats,
		&ent.CreatedAt, &ent.UpdatedAt,
	)
	if err != nil {
		return entity.Entity{}, err
	}

	if len(schedule) > 0 {
		if err := json.Unmarshal(schedule, &ent.Schedule); err != nil {
			return entity.Entity{}, fmt.Errorf("failed to decode schedule: %w", err)
		}
	}
	if len(stats) > 0 {
		if err := json.Unmarshal(stats, &ent.Stats); err != nil {
			return entity.Entity{}, fmt.Errorf("failed to decode stats: %w", err)
		}
	}
	return ent, nil
}
