package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/presencehq/presence-backend-go/internal/domain/attendance"
	"github.com/presencehq/presence-backend-go/internal/domain/entity"
	"github.com/presencehq/presence-backend-go/internal/domain/notification"
	"github.com/presencehq/presence-backend-go/internal/pkg/database"
	"github.com/presencehq/presence-backend-go/internal/pkg/validator"
	calc "github.com/presencehq/presence-backend-go/internal/service/attendance"
)

// SweeperActor is recorded on entries the expiry sweeper closes.
var SweeperActor = attendance.Actor{ID: "system", Name: "expiry sweeper", Role: "system"}

type SessionServiceImpl struct {
	tx        database.TxManager
	records   attendance.RecordRepository
	entities  *entity.Registry
	publisher notification.Publisher
	settings  attendance.SettingsProvider
	clock     func() time.Time
}

func NewSessionService(
	tx database.TxManager,
	records attendance.RecordRepository,
	entities *entity.Registry,
	publisher notification.Publisher,
	settings attendance.SettingsProvider,
) attendance.SessionService {
	return &SessionServiceImpl{
		tx:        tx,
		records:   records,
		entities:  entities,
		publisher: publisher,
		settings:  settings,
		clock:     time.Now,
	}
}

// WithClock overrides the service clock. Tests use it to pin time.
func (s *SessionServiceImpl) WithClock(clock func() time.Time) *SessionServiceImpl {
	s.clock = clock
	return s
}

// CheckIn implements attendance.SessionService.
func (s *SessionServiceImpl) CheckIn(ctx context.Context, req attendance.CheckInRequest, actor attendance.Actor) (attendance.CheckInResult, error) {
	if err := req.Validate(); err != nil {
		return attendance.CheckInResult{}, err
	}

	store, err := s.entities.Resolve(req.EntityType)
	if err != nil {
		return attendance.CheckInResult{}, err
	}

	ent, err := store.GetByID(ctx, req.TenantID, req.EntityID)
	if err != nil {
		if errors.Is(err, entity.ErrEntityNotFound) {
			return attendance.CheckInResult{}, entity.ErrEntityNotFound
		}
		return attendance.CheckInResult{}, fmt.Errorf("failed to get entity: %w", err)
	}

	if !ent.AttendanceEnabled {
		return attendance.CheckInResult{}, attendance.ErrAttendanceNotEnabled
	}

	cfg := s.settings(req.EntityType)
	if !validator.IsInSlice(string(ent.Status), cfg.AllowedStatuses) {
		return attendance.CheckInResult{}, attendance.ErrEntityNotEligible
	}

	now := s.clock().UTC()
	if ent.Stats.LastVisitAt != nil {
		if next := ent.Stats.LastVisitAt.Add(cfg.DuplicateWindow); now.Before(next) {
			return attendance.CheckInResult{}, &attendance.DuplicateCheckInError{
				LastCheckInAt: *ent.Stats.LastVisitAt,
				NextAllowedAt: next,
			}
		}
	}

	// The id is generated before the write so a retried append stays
	// idempotent with respect to which entry was intended.
	checkInID := uuid.NewString()
	expectedOut := now.Add(cfg.MaxSessionDuration)
	method := string(req.Method)
	entry := attendance.CheckInEntry{
		ID:                 checkInID,
		CheckInAt:          now,
		ExpectedCheckOutAt: &expectedOut,
		Method:             req.Method,
		Status:             attendance.EntryValid,
		TimeSlot:           attendance.SlotFor(now),
		RecordedBy:         actor,
		Notes:              req.Notes,
	}

	key := attendance.PeriodKeyFor(req.TenantID, req.EntityType, req.EntityID, now)

	var result attendance.CheckInResult
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		rec, err := s.lockOrCreate(ctx, key)
		if err != nil {
			return err
		}

		rec.CheckIns = append(rec.CheckIns, entry)
		rec.Recount()

		lastMonth, err := s.previousRecord(ctx, key)
		if err != nil {
			return err
		}

		stats := calc.Recalculate(ent.Stats, rec, lastMonth, now)

		if err := s.records.Update(ctx, rec); err != nil {
			return fmt.Errorf("failed to update attendance record: %w", err)
		}
		session := entity.CurrentSession{
			IsActive:           true,
			CheckInID:          &checkInID,
			CheckInAt:          &now,
			ExpectedCheckOutAt: &expectedOut,
			Method:             &method,
		}
		if err := store.UpdateSession(ctx, req.TenantID, req.EntityID, session); err != nil {
			return fmt.Errorf("failed to update session projection: %w", err)
		}
		if err := store.UpdateStats(ctx, req.TenantID, req.EntityID, stats); err != nil {
			return fmt.Errorf("failed to update entity stats: %w", err)
		}

		result = attendance.CheckInResult{
			Entry:      entry,
			Record:     rec,
			Stats:      stats,
			Milestones: crossedMilestones(ent.Stats, stats, cfg),
		}
		return nil
	})
	if err != nil {
		return attendance.CheckInResult{}, err
	}

	s.publishCheckIn(ctx, ent, result, now)
	return result, nil
}

// lockOrCreate fetches the period record under a row lock, creating it on
// first check-in of the month. A uniqueness violation on create means another
// writer created the record concurrently; the intended append is retried
// against the now-existing record exactly once.
func (s *SessionServiceImpl) lockOrCreate(ctx context.Context, key attendance.RecordKey) (attendance.Record, error) {
	rec, err := s.records.GetForUpdate(ctx, key)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, attendance.ErrRecordNotFound) {
		return attendance.Record{}, fmt.Errorf("failed to get attendance record: %w", err)
	}

	created, err := s.records.Create(ctx, attendance.NewRecord(key))
	if err == nil {
		return created, nil
	}
	if errors.Is(err, attendance.ErrRecordExists) {
		rec, err := s.records.GetForUpdate(ctx, key)
		if err != nil {
			return attendance.Record{}, fmt.Errorf("failed to refetch attendance record after create race: %w", err)
		}
		return rec, nil
	}
	return attendance.Record{}, fmt.Errorf("failed to create attendance record: %w", err)
}

func (s *SessionServiceImpl) previousRecord(ctx context.Context, key attendance.RecordKey) (*attendance.Record, error) {
	prev, err := s.records.Get(ctx, key.Previous())
	if err != nil {
		if errors.Is(err, attendance.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get previous period record: %w", err)
	}
	return &prev, nil
}

// CheckOut implements attendance.SessionService.
func (s *SessionServiceImpl) CheckOut(ctx context.Context, req attendance.CheckOutRequest, actor attendance.Actor) (attendance.CheckOutResult, error) {
	if err := req.Validate(); err != nil {
		return attendance.CheckOutResult{}, err
	}

	store, err := s.entities.Resolve(req.EntityType)
	if err != nil {
		return attendance.CheckOutResult{}, err
	}

	ent, err := store.GetByID(ctx, req.TenantID, req.EntityID)
	if err != nil {
		if errors.Is(err, entity.ErrEntityNotFound) {
			return attendance.CheckOutResult{}, entity.ErrEntityNotFound
		}
		return attendance.CheckOutResult{}, fmt.Errorf("failed to get entity: %w", err)
	}

	cfg := s.settings(req.EntityType)
	now := s.clock().UTC()

	// The projection tells us which period the session opened in; sessions
	// spanning midnight on the last day of a month live in the previous
	// period's record. Without a matching projection, fall back to the
	// current period.
	key := attendance.PeriodKeyFor(req.TenantID, req.EntityType, req.EntityID, now)
	if ent.Session.IsActive && ent.Session.CheckInID != nil &&
		*ent.Session.CheckInID == req.CheckInID && ent.Session.CheckInAt != nil {
		key = attendance.PeriodKeyFor(req.TenantID, req.EntityType, req.EntityID, *ent.Session.CheckInAt)
	}

	var result attendance.CheckOutResult
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		rec, err := s.records.GetForUpdate(ctx, key)
		if err != nil {
			if errors.Is(err, attendance.ErrRecordNotFound) {
				return attendance.ErrNoActiveSession
			}
			return fmt.Errorf("failed to get attendance record: %w", err)
		}

		entry := rec.FindCheckIn(req.CheckInID)
		if entry == nil {
			return attendance.ErrNoActiveSession
		}
		if !entry.Open() {
			return attendance.ErrAlreadyCheckedOut
		}

		duration := int(now.Sub(entry.CheckInAt).Minutes())
		checkedOutBy := actor
		entry.CheckOutAt = &now
		entry.DurationMinutes = &duration
		entry.Type = calc.Classify(duration, entry.CheckInAt, ent.Schedule, cfg)
		entry.CheckedOutBy = &checkedOutBy
		entry.AutoCheckedOut = req.AutoCheckedOut

		// Full fold, not an incremental patch: later corrections must
		// never leave stale totals behind.
		rec.Recount()

		if err := s.records.Update(ctx, rec); err != nil {
			return fmt.Errorf("failed to update attendance record: %w", err)
		}
		if err := store.UpdateSession(ctx, req.TenantID, req.EntityID, entity.CurrentSession{}); err != nil {
			return fmt.Errorf("failed to clear session projection: %w", err)
		}

		result = attendance.CheckOutResult{
			Entry:           *entry,
			DurationMinutes: duration,
			Record:          rec,
		}
		return nil
	})
	if err != nil {
		return attendance.CheckOutResult{}, err
	}

	s.publisher.Publish(ctx, notification.Event{
		Type:       notification.EventCheckOutRecorded,
		TenantID:   req.TenantID,
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
		EntityName: ent.Name,
		OccurredAt: now,
		Data: map[string]any{
			"check_in_id":      result.Entry.ID,
			"duration_minutes": result.DurationMinutes,
			"attendance_type":  result.Entry.Type,
			"auto_checked_out": result.Entry.AutoCheckedOut,
		},
	})
	return result, nil
}

// Toggle implements attendance.SessionService.
func (s *SessionServiceImpl) Toggle(ctx context.Context, req attendance.ToggleRequest, actor attendance.Actor) (attendance.ToggleResult, error) {
	if err := req.Validate(); err != nil {
		return attendance.ToggleResult{}, err
	}

	store, err := s.entities.Resolve(req.EntityType)
	if err != nil {
		return attendance.ToggleResult{}, err
	}
	ent, err := store.GetByID(ctx, req.TenantID, req.EntityID)
	if err != nil {
		if errors.Is(err, entity.ErrEntityNotFound) {
			return attendance.ToggleResult{}, entity.ErrEntityNotFound
		}
		return attendance.ToggleResult{}, fmt.Errorf("failed to get entity: %w", err)
	}

	if ent.Session.IsActive && ent.Session.CheckInID != nil {
		out, err := s.CheckOut(ctx, attendance.CheckOutRequest{
			TenantID:   req.TenantID,
			EntityType: req.EntityType,
			EntityID:   req.EntityID,
			CheckInID:  *ent.Session.CheckInID,
		}, actor)
		if err != nil {
			return attendance.ToggleResult{}, err
		}
		return attendance.ToggleResult{Action: attendance.ToggledCheckOut, CheckOut: &out}, nil
	}

	in, err := s.CheckIn(ctx, attendance.CheckInRequest{
		TenantID:   req.TenantID,
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
		Method:     req.Method,
	}, actor)
	if err != nil {
		return attendance.ToggleResult{}, err
	}
	return attendance.ToggleResult{Action: attendance.ToggledCheckIn, CheckIn: &in}, nil
}

// SweepExpired implements attendance.SessionService.
func (s *SessionServiceImpl) SweepExpired(ctx context.Context, req attendance.SweepRequest) (attendance.SweepSummary, error) {
	if err := req.Validate(); err != nil {
		return attendance.SweepSummary{}, err
	}

	types := req.EntityTypes
	if len(types) == 0 {
		types = s.entities.Types()
	}

	var summary attendance.SweepSummary
	for _, entityType := range types {
		store, err := s.entities.Resolve(entityType)
		if err != nil {
			summary.Failures = append(summary.Failures, attendance.SweepFailure{
				EntityType: entityType,
				Reason:     err.Error(),
			})
			continue
		}

		candidates, err := store.ListActiveSessions(ctx, req.TenantID, req.Cutoff)
		if err != nil {
			summary.Failures = append(summary.Failures, attendance.SweepFailure{
				EntityType: entityType,
				Reason:     fmt.Sprintf("failed to list active sessions: %v", err),
			})
			continue
		}

		for _, candidate := range candidates {
			summary.Candidates++
			if candidate.Session.CheckInID == nil {
				summary.Failures = append(summary.Failures, attendance.SweepFailure{
					EntityType: entityType,
					EntityID:   candidate.ID,
					Reason:     "active session projection has no check-in id",
				})
				continue
			}

			_, err := s.CheckOut(ctx, attendance.CheckOutRequest{
				TenantID:       req.TenantID,
				EntityType:     entityType,
				EntityID:       candidate.ID,
				CheckInID:      *candidate.Session.CheckInID,
				AutoCheckedOut: true,
			}, SweeperActor)
			if err != nil {
				slog.Error("sweep: failed to force check-out",
					"tenant_id", req.TenantID,
					"entity_type", entityType,
					"entity_id", candidate.ID,
					"error", err)
				summary.Failures = append(summary.Failures, attendance.SweepFailure{
					EntityType: entityType,
					EntityID:   candidate.ID,
					Reason:     err.Error(),
				})
				continue
			}
			summary.SweptCount++
		}
	}

	return summary, nil
}

// GetRecord implements attendance.SessionService.
func (s *SessionServiceImpl) GetRecord(ctx context.Context, key attendance.RecordKey) (attendance.Record, error) {
	rec, err := s.records.Get(ctx, key)
	if err != nil {
		if errors.Is(err, attendance.ErrRecordNotFound) {
			return attendance.Record{}, attendance.ErrRecordNotFound
		}
		return attendance.Record{}, fmt.Errorf("failed to get attendance record: %w", err)
	}
	return rec, nil
}

func crossedMilestones(before, after entity.Stats, cfg attendance.Settings) []string {
	var milestones []string
	for _, m := range cfg.VisitMilestones {
		if after.TotalVisits == m {
			milestones = append(milestones, fmt.Sprintf("visits:%d", m))
		}
	}
	for _, m := range cfg.StreakMilestones {
		if after.CurrentStreak == m && before.CurrentStreak < m {
			milestones = append(milestones, fmt.Sprintf("streak:%d", m))
		}
	}
	return milestones
}

func (s *SessionServiceImpl) publishCheckIn(ctx context.Context, ent entity.Entity, result attendance.CheckInResult, now time.Time) {
	s.publisher.Publish(ctx, notification.Event{
		Type:       notification.EventCheckInRecorded,
		TenantID:   ent.TenantID,
		EntityType: ent.Type,
		EntityID:   ent.ID,
		EntityName: ent.Name,
		OccurredAt: now,
		Data: map[string]any{
			"check_in_id":  result.Entry.ID,
			"method":       result.Entry.Method,
			"check_in_at":  result.Entry.CheckInAt,
			"total_visits": result.Stats.TotalVisits,
		},
	})

	for _, milestone := range result.Milestones {
		s.publisher.Publish(ctx, notification.Event{
			Type:       notification.EventMilestoneAchieved,
			TenantID:   ent.TenantID,
			EntityType: ent.Type,
			EntityID:   ent.ID,
			EntityName: ent.Name,
			OccurredAt: now,
			Data: map[string]any{
				"milestone":      milestone,
				"total_visits":   result.Stats.TotalVisits,
				"current_streak": result.Stats.CurrentStreak,
			},
		})
	}

	if ent.Stats.EngagementLevel != "" && result.Stats.EngagementLevel != ent.Stats.EngagementLevel {
		s.publisher.Publish(ctx, notification.Event{
			Type:       notification.EventEngagementChanged,
			TenantID:   ent.TenantID,
			EntityType: ent.Type,
			EntityID:   ent.ID,
			EntityName: ent.Name,
			OccurredAt: now,
			Data: map[string]any{
				"previous": ent.Stats.EngagementLevel,
				"current":  result.Stats.EngagementLevel,
			},
		})
	}
}
