package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/presencehq/presence-backend-go/internal/domain/attendance"
	"github.com/presencehq/presence-backend-go/internal/pkg/database"
)

const uniqueViolationCode = "23505"

type recordRepository struct {
	db *database.DB
}

func NewRecordRepository(db *database.DB) attendance.RecordRepository {
	return &recordRepository{db: db}
}

const recordColumns = `
	id, tenant_id, entity_type, entity_id, year, month,
	check_ins, correction_requests,
	monthly_total, unique_days_visited, visited_days,
	full_days, half_days, paid_leave_days, overtime_days, total_work_days,
	time_slots, weekdays,
	created_at, updated_at`

// Create implements attendance.RecordRepository. ON CONFLICT DO NOTHING keeps
// the transaction usable when two first-check-ins race to create the same
// period record: the loser gets ErrRecordExists instead of an aborted
// transaction, and retries the append against the existing row.
func (r *recordRepository) Create(ctx context.Context, record attendance.Record) (attendance.Record, error) {
	q := database.GetQuerier(ctx, r.db)

	checkIns, corrections, err := marshalEmbedded(record)
	if err != nil {
		return attendance.Record{}, err
	}
	visitedDays, timeSlots, weekdays, err := marshalCounters(record.Counters)
	if err != nil {
		return attendance.Record{}, err
	}

	query := `
		INSERT INTO period_records (
			tenant_id, entity_type, entity_id, year, month,
			check_ins, correction_requests,
			monthly_total, unique_days_visited, visited_days,
			full_days, half_days, paid_leave_days, overtime_days, total_work_days,
			time_slots, weekdays
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17
		)
		ON CONFLICT (tenant_id, entity_type, entity_id, year, month) DO NOTHING
		RETURNING id, created_at, updated_at
	`

	err = q.QueryRow(ctx, query,
		record.TenantID,
		record.EntityType,
		record.EntityID,
		record.Year,
		int(record.Month),
		checkIns,
		corrections,
		record.Counters.MonthlyTotal,
		record.Counters.UniqueDaysVisited,
		visitedDays,
		record.Counters.FullDays,
		record.Counters.HalfDays,
		record.Counters.PaidLeaveDays,
		record.Counters.OvertimeDays,
		record.Counters.TotalWorkDays,
		timeSlots,
		weekdays,
	).Scan(&record.ID, &record.CreatedAt, &record.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.Record{}, attendance.ErrRecordExists
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return attendance.Record{}, attendance.ErrRecordExists
		}
		return attendance.Record{}, fmt.Errorf("failed to create period record: %w", err)
	}

	return record, nil
}

// Get implements attendance.RecordRepository.
func (r *recordRepository) Get(ctx context.Context, key attendance.RecordKey) (attendance.Record, error) {
	return r.get(ctx, key, false)
}

// GetForUpdate implements attendance.RecordRepository.
func (r *recordRepository) GetForUpdate(ctx context.Context, key attendance.RecordKey) (attendance.Record, error) {
	return r.get(ctx, key, true)
}

func (r *recordRepository) get(ctx context.Context, key attendance.RecordKey, forUpdate bool) (attendance.Record, error) {
	q := database.GetQuerier(ctx, r.db)

	query := `
		SELECT ` + recordColumns + `
		FROM period_records
		WHERE tenant_id = $1
		  AND entity_type = $2
		  AND entity_id = $3
		  AND year = $4
		  AND month = $5
	`
	if forUpdate {
		query += " FOR UPDATE"
	}

	var (
		record      attendance.Record
		month       int
		checkIns    []byte
		corrections []byte
		visitedDays []byte
		timeSlots   []byte
		weekdays    []byte
	)
	err := q.QueryRow(ctx, query,
		key.TenantID, key.EntityType, key.EntityID, key.Year, int(key.Month),
	).Scan(
		&record.ID, &record.TenantID, &record.EntityType, &record.EntityID, &record.Year, &month,
		&checkIns, &corrections,
		&record.Counters.MonthlyTotal, &record.Counters.UniqueDaysVisited, &visitedDays,
		&record.Counters.FullDays, &record.Counters.HalfDays, &record.Counters.PaidLeaveDays,
		&record.Counters.OvertimeDays, &record.Counters.TotalWorkDays,
		&timeSlots, &weekdays,
		&record.CreatedAt, &record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.Record{}, attendance.ErrRecordNotFound
		}
		return attendance.Record{}, fmt.Errorf("failed to get period record: %w", err)
	}
	record.Month = time.Month(month)

	if err := json.Unmarshal(checkIns, &record.CheckIns); err != nil {
		return attendance.Record{}, fmt.Errorf("failed to decode check-ins: %w", err)
	}
	if err := json.Unmarshal(corrections, &record.CorrectionRequests); err != nil {
		return attendance.Record{}, fmt.Errorf("failed to decode correction requests: %w", err)
	}
	if err := json.Unmarshal(visitedDays, &record.Counters.VisitedDays); err != nil {
		return attendance.Record{}, fmt.Errorf("failed to decode visited days: %w", err)
	}
	if err := json.Unmarshal(timeSlots, &record.Counters.TimeSlots); err != nil {
		return attendance.Record{}, fmt.Errorf("failed to decode time slots: %w", err)
	}
	if err := json.Unmarshal(weekdays, &record.Counters.Weekdays); err != nil {
		return attendance.Record{}, fmt.Errorf("failed to decode weekdays: %w", err)
	}

	return record, nil
}

// Update implements attendance.RecordRepository. A single statement persists
// the entry list, the embedded corrections and every counter so the record
// can never be observed partially updated.
func (r *recordRepository) Update(ctx context.Context, record attendance.Record) error {
	q := database.GetQuerier(ctx, r.db)

	checkIns, corrections, err := marshalEmbedded(record)
	if err != nil {
		return err
	}
	visitedDays, timeSlots, weekdays, err := marshalCounters(record.Counters)
	if err != nil {
		return err
	}

	query := `
		UPDATE period_records SET
			check_ins = $1,
			correction_requests = $2,
			monthly_total = $3,
			unique_days_visited = $4,
			visited_days = $5,
			full_days = $6,
			half_days = $7,
			paid_leave_days = $8,
			overtime_days = $9,
			total_work_days = $10,
			time_slots = $11,
			weekdays = $12,
			updated_at = NOW()
		WHERE id = $13
	`

	tag, err := q.Exec(ctx, query,
		checkIns,
		corrections,
		record.Counters.MonthlyTotal,
		record.Counters.UniqueDaysVisited,
		visitedDays,
		record.Counters.FullDays,
		record.Counters.HalfDays,
		record.Counters.PaidLeaveDays,
		record.Counters.OvertimeDays,
		record.Counters.TotalWorkDays,
		timeSlots,
		weekdays,
		record.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update period record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return attendance.ErrRecordNotFound
	}

	return nil
}

func marshalEmbedded(record attendance.Record) (checkIns, corrections []byte, err error) {
	checkIns, err = json.Marshal(emptySlice(record.CheckIns))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode check-ins: %w", err)
	}
	corrections, err = json.Marshal(emptySlice(record.CorrectionRequests))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode correction requests: %w", err)
	}
	return checkIns, corrections, nil
}

func marshalCounters(c attendance.Counters) (visitedDays, timeSlots, weekdays []byte, err error) {
	visitedDays, err = json.Marshal(c.VisitedDays)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to encode visited days: %w", err)
	}
	timeSlots, err = json.Marshal(c.TimeSlots)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to encode time slots: %w", err)
	}
	weekdays, err = json.Marshal(c.Weekdays)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to encode weekdays: %w", err)
	}
	return visitedDays, timeSlots, weekdays, nil
}

// emptySlice keeps JSONB columns as [] instead of null.
func emptySlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
