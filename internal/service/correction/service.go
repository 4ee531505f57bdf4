package correction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/presencehq/presence-backend-go/internal/domain/attendance"
	"github.com/presencehq/presence-backend-go/internal/domain/entity"
	"github.com/presencehq/presence-backend-go/internal/pkg/database"
	"github.com/presencehq/presence-backend-go/internal/pkg/validator"
	calc "github.com/presencehq/presence-backend-go/internal/service/attendance"
)

type CorrectionServiceImpl struct {
	tx       database.TxManager
	records  attendance.RecordRepository
	entities *entity.Registry
	settings attendance.SettingsProvider
	clock    func() time.Time
}

func NewCorrectionService(
	tx database.TxManager,
	records attendance.RecordRepository,
	entities *entity.Registry,
	settings attendance.SettingsProvider,
) attendance.CorrectionService {
	return &CorrectionServiceImpl{
		tx:       tx,
		records:  records,
		entities: entities,
		settings: settings,
		clock:    time.Now,
	}
}

// WithClock overrides the service clock. Tests use it to pin time.
func (s *CorrectionServiceImpl) WithClock(clock func() time.Time) *CorrectionServiceImpl {
	s.clock = clock
	return s
}

// Submit implements attendance.CorrectionService.
func (s *CorrectionServiceImpl) Submit(ctx context.Context, req attendance.SubmitCorrectionRequest, actor attendance.Actor) (attendance.CorrectionRequest, error) {
	if err := req.Validate(); err != nil {
		return attendance.CorrectionRequest{}, err
	}

	now := s.clock().UTC()
	key := attendance.RecordKey{
		TenantID:   req.TenantID,
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
		Year:       req.Year,
		Month:      time.Month(req.Month),
	}

	correction := attendance.CorrectionRequest{
		ID:                  uuid.NewString(),
		Type:                req.Type,
		Status:              attendance.CorrectionPending,
		CheckInID:           req.CheckInID,
		RequestedCheckInAt:  req.RequestedCheckInAt,
		RequestedCheckOutAt: req.RequestedCheckOutAt,
		RequestedType:       req.RequestedType,
		Reason:              req.Reason,
		Priority:            req.Priority,
		RequestedBy:         actor,
		RequestedAt:         now,
	}

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		rec, err := s.findOrCreate(ctx, key)
		if err != nil {
			return err
		}

		// The referenced check-in must actually exist in the record, not
		// merely look well-formed. Only add-missing may target a period
		// with no matching entry.
		if req.Type.NeedsCheckInRef() {
			if rec.FindCheckIn(*req.CheckInID) == nil {
				return validator.ValidationErrors{{
					Field:   "check_in_id",
					Message: "referenced check-in entry does not exist in the target period",
				}}
			}
		}

		rec.CorrectionRequests = append(rec.CorrectionRequests, correction)
		if err := s.records.Update(ctx, rec); err != nil {
			return fmt.Errorf("failed to save correction request: %w", err)
		}
		return nil
	})
	if err != nil {
		return attendance.CorrectionRequest{}, err
	}

	return correction, nil
}

// findOrCreate fetches the period record under a row lock, creating it when
// absent: a correction may be submitted for a period before the underlying
// record otherwise exists. A creation race retries the fetch exactly once.
func (s *CorrectionServiceImpl) findOrCreate(ctx context.Context, key attendance.RecordKey) (attendance.Record, error) {
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

// Review implements attendance.CorrectionService.
func (s *CorrectionServiceImpl) Review(ctx context.Context, req attendance.ReviewCorrectionRequest, actor attendance.Actor) (attendance.CorrectionRequest, error) {
	if err := req.Validate(); err != nil {
		return attendance.CorrectionRequest{}, err
	}

	now := s.clock().UTC()
	key := attendance.RecordKey{
		TenantID:   req.TenantID,
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
		Year:       req.Year,
		Month:      time.Month(req.Month),
	}

	var reviewed attendance.CorrectionRequest
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		rec, err := s.records.GetForUpdate(ctx, key)
		if err != nil {
			if errors.Is(err, attendance.ErrRecordNotFound) {
				return attendance.ErrCorrectionNotFound
			}
			return fmt.Errorf("failed to get attendance record: %w", err)
		}

		correction := rec.FindCorrection(req.CorrectionID)
		if correction == nil {
			return attendance.ErrCorrectionNotFound
		}
		if correction.Status != attendance.CorrectionPending {
			return attendance.ErrCorrectionNotPending
		}

		reviewer := actor
		correction.ReviewedBy = &reviewer
		correction.ReviewerNotes = req.Notes
		correction.ReviewedAt = &now
		if req.Approve {
			correction.Status = attendance.CorrectionApproved
		} else {
			correction.Status = attendance.CorrectionRejected
		}

		if err := s.records.Update(ctx, rec); err != nil {
			return fmt.Errorf("failed to save correction review: %w", err)
		}
		reviewed = *correction
		return nil
	})
	if err != nil {
		return attendance.CorrectionRequest{}, err
	}

	return reviewed, nil
}

// Apply implements attendance.CorrectionService.
func (s *CorrectionServiceImpl) Apply(ctx context.Context, req attendance.ApplyCorrectionRequest, actor attendance.Actor) (attendance.CorrectionRequest, error) {
	if err := req.Validate(); err != nil {
		return attendance.CorrectionRequest{}, err
	}

	now := s.clock().UTC()
	key := attendance.RecordKey{
		TenantID:   req.TenantID,
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
		Year:       req.Year,
		Month:      time.Month(req.Month),
	}

	var applied attendance.CorrectionRequest
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		rec, err := s.records.GetForUpdate(ctx, key)
		if err != nil {
			if errors.Is(err, attendance.ErrRecordNotFound) {
				return attendance.ErrCorrectionNotFound
			}
			return fmt.Errorf("failed to get attendance record: %w", err)
		}

		correction := rec.FindCorrection(req.CorrectionID)
		if correction == nil {
			return attendance.ErrCorrectionNotFound
		}
		// Applied is reachable only from approved; a second apply on an
		// already-applied request fails here.
		if correction.Status != attendance.CorrectionApproved {
			return attendance.ErrCorrectionNotApproved
		}

		if err := s.applyMutation(ctx, &rec, correction, actor, now); err != nil {
			return err
		}

		correction.Status = attendance.CorrectionApplied
		correction.AppliedAt = &now

		// Corrections must never leave derived aggregates stale: refold
		// everything from the full entry list.
		rec.Recount()

		if err := s.records.Update(ctx, rec); err != nil {
			return fmt.Errorf("failed to save applied correction: %w", err)
		}
		applied = *correction
		return nil
	})
	if err != nil {
		return attendance.CorrectionRequest{}, err
	}

	return applied, nil
}

// applyMutation dispatches on the correction type and mutates the record's
// entries. Every mutation appends an audit entry on the affected check-in.
func (s *CorrectionServiceImpl) applyMutation(ctx context.Context, rec *attendance.Record, correction *attendance.CorrectionRequest, actor attendance.Actor, now time.Time) error {
	if correction.Type == attendance.CorrectionAddMissing {
		return s.applyAddMissing(ctx, rec, correction, actor, now)
	}

	entry := rec.FindCheckIn(*correction.CheckInID)
	if entry == nil {
		return attendance.ErrCheckInNotFound
	}

	audit := func(field, before, after string) {
		entry.Corrections = append(entry.Corrections, attendance.AuditEntry{
			Field:  field,
			Before: before,
			After:  after,
			Reason: correction.Reason,
			Actor:  actor,
			At:     now,
		})
	}

	switch correction.Type {
	case attendance.CorrectionUpdateCheckInTime:
		requested := correction.RequestedCheckInAt.UTC()
		audit("check_in_at", entry.CheckInAt.Format(time.RFC3339), requested.Format(time.RFC3339))
		entry.CheckInAt = requested
		entry.TimeSlot = attendance.SlotFor(requested)
		if entry.CheckOutAt != nil {
			duration := int(entry.CheckOutAt.Sub(requested).Minutes())
			entry.DurationMinutes = &duration
		}
		entry.Status = attendance.EntryCorrected

	case attendance.CorrectionUpdateCheckOutTime:
		requested := correction.RequestedCheckOutAt.UTC()
		before := ""
		if entry.CheckOutAt != nil {
			before = entry.CheckOutAt.Format(time.RFC3339)
		}
		audit("check_out_at", before, requested.Format(time.RFC3339))
		entry.CheckOutAt = &requested
		duration := int(requested.Sub(entry.CheckInAt).Minutes())
		entry.DurationMinutes = &duration
		entry.Status = attendance.EntryCorrected

	case attendance.CorrectionOverrideType:
		// Manual override bypasses the classifier on purpose.
		audit("attendance_type", string(entry.Type), string(*correction.RequestedType))
		entry.Type = *correction.RequestedType
		entry.Status = attendance.EntryCorrected

	case attendance.CorrectionDeleteDuplicate:
		// Marked invalid rather than physically removed: the audit trail
		// must survive the deletion.
		audit("status", string(entry.Status), string(attendance.EntryInvalid))
		entry.Status = attendance.EntryInvalid

	default:
		return validator.ValidationErrors{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported correction type %q", correction.Type),
		}}
	}

	return nil
}

// applyAddMissing appends a brand-new entry built from the requested pair,
// classified through the regular classifier unless a type was explicitly
// requested.
func (s *CorrectionServiceImpl) applyAddMissing(ctx context.Context, rec *attendance.Record, correction *attendance.CorrectionRequest, actor attendance.Actor, now time.Time) error {
	checkInAt := correction.RequestedCheckInAt.UTC()
	checkOutAt := correction.RequestedCheckOutAt.UTC()
	duration := int(checkOutAt.Sub(checkInAt).Minutes())

	entryType := attendance.Type("")
	if correction.RequestedType != nil {
		entryType = *correction.RequestedType
	} else {
		schedule, err := s.entitySchedule(ctx, rec.TenantID, rec.EntityType, rec.EntityID)
		if err != nil {
			return err
		}
		entryType = calc.Classify(duration, checkInAt, schedule, s.settings(rec.EntityType))
	}

	recordedBy := actor
	entry := attendance.CheckInEntry{
		ID:              uuid.NewString(),
		CheckInAt:       checkInAt,
		CheckOutAt:      &checkOutAt,
		DurationMinutes: &duration,
		Type:            entryType,
		Method:          attendance.MethodManual,
		Status:          attendance.EntryValid,
		TimeSlot:        attendance.SlotFor(checkInAt),
		RecordedBy:      recordedBy,
		CheckedOutBy:    &recordedBy,
		Notes:           correction.Reason,
		Corrections: []attendance.AuditEntry{{
			Field:  "entry",
			Before: "",
			After:  "added_missing_attendance",
			Reason: correction.Reason,
			Actor:  actor,
			At:     now,
		}},
	}

	rec.CheckIns = append(rec.CheckIns, entry)
	return nil
}

func (s *CorrectionServiceImpl) entitySchedule(ctx context.Context, tenantID, entityType, entityID string) (*entity.Schedule, error) {
	store, err := s.entities.Resolve(entityType)
	if err != nil {
		return nil, err
	}
	ent, err := store.GetByID(ctx, tenantID, entityID)
	if err != nil {
		if errors.Is(err, entity.ErrEntityNotFound) {
			// The entity may have been archived since; classify with no
			// schedule rather than refusing the correction.
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get entity: %w", err)
	}
	return ent.Schedule, nil
}

// List implements attendance.CorrectionService.
func (s *CorrectionServiceImpl) List(ctx context.Context, key attendance.RecordKey, status *attendance.CorrectionStatus) ([]attendance.CorrectionRequest, error) {
	rec, err := s.records.Get(ctx, key)
	if err != nil {
		if errors.Is(err, attendance.ErrRecordNotFound) {
			return nil, attendance.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get attendance record: %w", err)
	}

	if status == nil {
		return rec.CorrectionRequests, nil
	}
	filtered := make([]attendance.CorrectionRequest, 0, len(rec.CorrectionRequests))
	for _, c := range rec.CorrectionRequests {
		if c.Status == *status {
			filtered = append(filtered, c)
		}
	}
	return filtered, nil
}
