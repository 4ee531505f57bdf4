package correction

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/presencehq/presence-backend-go/internal/domain/attendance"
	"github.com/presencehq/presence-backend-go/internal/domain/entity"
	"github.com/presencehq/presence-backend-go/internal/pkg/validator"
)

// ===== FAKES =====

type fakeTx struct{}

func (fakeTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeRecordRepo struct {
	mu      sync.Mutex
	records map[attendance.RecordKey]attendance.Record
	nextID  int
}

func newFakeRecordRepo() *fakeRecordRepo {
	return &fakeRecordRepo{records: map[attendance.RecordKey]attendance.Record{}}
}

func (f *fakeRecordRepo) Create(ctx context.Context, record attendance.Record) (attendance.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := record.Key()
	if _, exists := f.records[key]; exists {
		return attendance.Record{}, attendance.ErrRecordExists
	}
	f.nextID++
	record.ID = fmt.Sprintf("rec-%d", f.nextID)
	f.records[key] = record
	return record, nil
}

func (f *fakeRecordRepo) Get(ctx context.Context, key attendance.RecordKey) (attendance.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rec, ok := f.records[key]
	if !ok {
		return attendance.Record{}, attendance.ErrRecordNotFound
	}
	return rec, nil
}

func (f *fakeRecordRepo) GetForUpdate(ctx context.Context, key attendance.RecordKey) (attendance.Record, error) {
	return f.Get(ctx, key)
}

func (f *fakeRecordRepo) Update(ctx context.Context, record attendance.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := record.Key()
	if _, ok := f.records[key]; !ok {
		return attendance.ErrRecordNotFound
	}
	f.records[key] = record
	return nil
}

type fakeStore struct {
	ent entity.Entity
}

func (f *fakeStore) GetByID(ctx context.Context, tenantID, entityID string) (entity.Entity, error) {
	if f.ent.ID != entityID {
		return entity.Entity{}, entity.ErrEntityNotFound
	}
	return f.ent, nil
}

func (f *fakeStore) UpdateSession(ctx context.Context, tenantID, entityID string, session entity.CurrentSession) error {
	return nil
}

func (f *fakeStore) UpdateStats(ctx context.Context, tenantID, entityID string, stats entity.Stats) error {
	return nil
}

func (f *fakeStore) ListActiveSessions(ctx context.Context, tenantID string, cutoff time.Time) ([]entity.Entity, error) {
	return nil, nil
}

// ===== HELPERS =====

var (
	requester = attendance.Actor{ID: "u1", Name: "Member Services", Role: "staff"}
	reviewer  = attendance.Actor{ID: "u2", Name: "Site Manager", Role: "manager"}
)

var testKey = attendance.RecordKey{
	TenantID:   "t1",
	EntityType: "member",
	EntityID:   "m1",
	Year:       2026,
	Month:      time.March,
}

func newFixture(t *testing.T) (*CorrectionServiceImpl, *fakeRecordRepo) {
	t.Helper()

	records := newFakeRecordRepo()
	hours := 8.0
	registry := entity.NewRegistry()
	registry.Register("member", &fakeStore{ent: entity.Entity{
		ID:       "m1",
		TenantID: "t1",
		Type:     "member",
		Status:   entity.StatusActive,
		Schedule: &entity.Schedule{HoursPerDay: &hours},
	}})

	now := time.Date(2026, time.March, 20, 10, 0, 0, 0, time.UTC)
	svc := NewCorrectionService(
		fakeTx{},
		records,
		registry,
		attendance.StaticSettings(attendance.DefaultSettings(), nil),
	).(*CorrectionServiceImpl).WithClock(func() time.Time { return now })

	return svc, records
}

// seedRecord stores a record holding one closed full-day entry and returns
// the entry id.
func seedRecord(t *testing.T, records *fakeRecordRepo) string {
	t.Helper()

	checkIn := time.Date(2026, time.March, 5, 9, 0, 0, 0, time.UTC)
	checkOut := checkIn.Add(7 * time.Hour)
	duration := 420

	rec := attendance.NewRecord(testKey)
	rec.CheckIns = []attendance.CheckInEntry{{
		ID:              "ci-1",
		CheckInAt:       checkIn,
		CheckOutAt:      &checkOut,
		DurationMinutes: &duration,
		Type:            attendance.TypeFullDay,
		Method:          attendance.MethodQR,
		Status:          attendance.EntryValid,
		TimeSlot:        attendance.SlotFor(checkIn),
		RecordedBy:      requester,
	}}
	rec.Recount()

	_, err := records.Create(context.Background(), rec)
	require.NoError(t, err)
	return "ci-1"
}

func submitOverride(t *testing.T, svc *CorrectionServiceImpl, checkInID string, requested attendance.Type) attendance.CorrectionRequest {
	t.Helper()

	correction, err := svc.Submit(context.Background(), attendance.SubmitCorrectionRequest{
		TenantID:      testKey.TenantID,
		EntityType:    testKey.EntityType,
		EntityID:      testKey.EntityID,
		Year:          testKey.Year,
		Month:         int(testKey.Month),
		Type:          attendance.CorrectionOverrideType,
		CheckInID:     &checkInID,
		RequestedType: &requested,
		Reason:        "left early for a medical appointment",
	}, requester)
	require.NoError(t, err)
	return correction
}

func approve(t *testing.T, svc *CorrectionServiceImpl, correctionID string) attendance.CorrectionRequest {
	t.Helper()

	reviewed, err := svc.Review(context.Background(), attendance.ReviewCorrectionRequest{
		TenantID:     testKey.TenantID,
		EntityType:   testKey.EntityType,
		EntityID:     testKey.EntityID,
		Year:         testKey.Year,
		Month:        int(testKey.Month),
		CorrectionID: correctionID,
		Approve:      true,
	}, reviewer)
	require.NoError(t, err)
	return reviewed
}

func apply(svc *CorrectionServiceImpl, correctionID string) (attendance.CorrectionRequest, error) {
	return svc.Apply(context.Background(), attendance.ApplyCorrectionRequest{
		TenantID:     testKey.TenantID,
		EntityType:   testKey.EntityType,
		EntityID:     testKey.EntityID,
		Year:         testKey.Year,
		Month:        int(testKey.Month),
		CorrectionID: correctionID,
	}, reviewer)
}

// ===== SUBMIT TESTS =====

func TestCorrectionService_Submit_Pending(t *testing.T) {
	t.Parallel()
	svc, records := newFixture(t)
	checkInID := seedRecord(t, records)

	correction := submitOverride(t, svc, checkInID, attendance.TypeHalfDayMorning)

	assert.NotEmpty(t, correction.ID)
	assert.Equal(t, attendance.CorrectionPending, correction.Status)
	assert.Equal(t, requester, correction.RequestedBy)

	rec, err := records.Get(context.Background(), testKey)
	require.NoError(t, err)
	require.Len(t, rec.CorrectionRequests, 1)
	assert.Equal(t, correction.ID, rec.CorrectionRequests[0].ID)
}

func TestCorrectionService_Submit_UnknownCheckInRejected(t *testing.T) {
	t.Parallel()
	svc, records := newFixture(t)
	seedRecord(t, records)

	checkInID := "49d6f0e5-2dc8-4f35-8e97-1f29a95c20b1"
	requested := attendance.TypeHalfDayMorning
	_, err := svc.Submit(context.Background(), attendance.SubmitCorrectionRequest{
		TenantID:      testKey.TenantID,
		EntityType:    testKey.EntityType,
		EntityID:      testKey.EntityID,
		Year:          testKey.Year,
		Month:         int(testKey.Month),
		Type:          attendance.CorrectionOverrideType,
		CheckInID:     &checkInID,
		RequestedType: &requested,
		Reason:        "typo in the roster",
	}, requester)

	var validationErrs validator.ValidationErrors
	require.ErrorAs(t, err, &validationErrs)
}

func TestCorrectionService_Submit_CreatesMissingRecord(t *testing.T) {
	t.Parallel()
	svc, records := newFixture(t)

	checkInAt := time.Date(2026, time.March, 5, 9, 0, 0, 0, time.UTC)
	checkOutAt := checkInAt.Add(7 * time.Hour)
	correction, err := svc.Submit(context.Background(), attendance.SubmitCorrectionRequest{
		TenantID:            testKey.TenantID,
		EntityType:          testKey.EntityType,
		EntityID:            testKey.EntityID,
		Year:                testKey.Year,
		Month:               int(testKey.Month),
		Type:                attendance.CorrectionAddMissing,
		RequestedCheckInAt:  &checkInAt,
		RequestedCheckOutAt: &checkOutAt,
		Reason:              "scanner was offline that morning",
	}, requester)
	require.NoError(t, err)
	assert.Equal(t, attendance.CorrectionPending, correction.Status)

	rec, err := records.Get(context.Background(), testKey)
	require.NoError(t, err)
	assert.Empty(t, rec.CheckIns)
	assert.Len(t, rec.CorrectionRequests, 1)
}

// ===== REVIEW TESTS =====

func TestCorrectionService_Review_Approve(t *testing.T) {
	t.Parallel()
	svc, records := newFixture(t)
	checkInID := seedRecord(t, records)
	correction := submitOverride(t, svc, checkInID, attendance.TypeHalfDayMorning)

	reviewed := approve(t, svc, correction.ID)

	assert.Equal(t, attendance.CorrectionApproved, reviewed.Status)
	require.NotNil(t, reviewed.ReviewedBy)
	assert.Equal(t, reviewer, *reviewed.ReviewedBy)
	assert.NotNil(t, reviewed.ReviewedAt)
}

func TestCorrectionService_Review_Reject(t *testing.T) {
	t.Parallel()
	svc, records := newFixture(t)
	checkInID := seedRecord(t, records)
	correction := submitOverride(t, svc, checkInID, attendance.TypeHalfDayMorning)

	notes := "no supporting evidence"
	rejected, err := svc.Review(context.Background(), attendance.ReviewCorrectionRequest{
		TenantID:     testKey.TenantID,
		EntityType:   testKey.EntityType,
		EntityID:     testKey.EntityID,
		Year:         testKey.Year,
		Month:        int(testKey.Month),
		CorrectionID: correction.ID,
		Approve:      false,
		Notes:        &notes,
	}, reviewer)
	require.NoError(t, err)

	assert.Equal(t, attendance.CorrectionRejected, rejected.Status)
	require.NotNil(t, rejected.ReviewerNotes)
	assert.Equal(t, notes, *rejected.ReviewerNotes)

	// Rejected is terminal.
	_, err = svc.Review(context.Background(), attendance.ReviewCorrectionRequest{
		TenantID:     testKey.TenantID,
		EntityType:   testKey.EntityType,
		EntityID:     testKey.EntityID,
		Year:         testKey.Year,
		Month:        int(testKey.Month),
		CorrectionID: correction.ID,
		Approve:      true,
	}, reviewer)
	assert.ErrorIs(t, err, attendance.ErrCorrectionNotPending)
}

func TestCorrectionService_Review_NotFound(t *testing.T) {
	t.Parallel()
	svc, records := newFixture(t)
	seedRecord(t, records)

	_, err := svc.Review(context.Background(), attendance.ReviewCorrectionRequest{
		TenantID:     testKey.TenantID,
		EntityType:   testKey.EntityType,
		EntityID:     testKey.EntityID,
		Year:         testKey.Year,
		Month:        int(testKey.Month),
		CorrectionID: "b0b54b0a-86f5-4c6d-9f3a-6f3d0a29b761",
		Approve:      true,
	}, reviewer)
	assert.ErrorIs(t, err, attendance.ErrCorrectionNotFound)
}

// ===== APPLY TESTS =====

func TestCorrectionService_Apply_OverrideRecomputesCounters(t *testing.T) {
	t.Parallel()
	svc, records := newFixture(t)
	checkInID := seedRecord(t, records)
	correction := submitOverride(t, svc, checkInID, attendance.TypeHalfDayMorning)
	approve(t, svc, correction.ID)

	applied, err := apply(svc, correction.ID)
	require.NoError(t, err)
	assert.Equal(t, attendance.CorrectionApplied, applied.Status)
	assert.NotNil(t, applied.AppliedAt)

	rec, err := records.Get(context.Background(), testKey)
	require.NoError(t, err)

	entry := rec.FindCheckIn(checkInID)
	require.NotNil(t, entry)
	assert.Equal(t, attendance.TypeHalfDayMorning, entry.Type)
	assert.Equal(t, attendance.EntryCorrected, entry.Status)
	require.Len(t, entry.Corrections, 1)
	assert.Equal(t, "attendance_type", entry.Corrections[0].Field)
	assert.Equal(t, string(attendance.TypeFullDay), entry.Corrections[0].Before)

	// full_day -> half_day_morning drops the work-day weight to 0.5.
	assert.Equal(t, 0, rec.Counters.FullDays)
	assert.Equal(t, 1, rec.Counters.HalfDays)
	assert.Equal(t, 0.5, rec.Counters.TotalWorkDays)
}

func TestCorrectionService_Apply_RequiresApproval(t *testing.T) {
	t.Parallel()
	svc, records := newFixture(t)
	checkInID := seedRecord(t, records)
	correction := submitOverride(t, svc, checkInID, attendance.TypeHalfDayMorning)

	_, err := apply(svc, correction.ID)
	assert.ErrorIs(t, err, attendance.ErrCorrectionNotApproved)
}

func TestCorrectionService_Apply_OnlyOnce(t *testing.T) {
	t.Parallel()
	svc, records := newFixture(t)
	checkInID := seedRecord(t, records)
	correction := submitOverride(t, svc, checkInID, attendance.TypeHalfDayMorning)
	approve(t, svc, correction.ID)

	_, err := apply(svc, correction.ID)
	require.NoError(t, err)

	_, err = apply(svc, correction.ID)
	assert.ErrorIs(t, err, attendance.ErrCorrectionNotApproved)
}

func TestCorrectionService_Apply_UpdateCheckOutTime(t *testing.T) {
	t.Parallel()
	svc, records := newFixture(t)
	checkInID := seedRecord(t, records)

	// Push the check-out to 18:30: 9.5 hours on an 8 hour schedule is
	// overtime once reclassified manually via a second override; the time
	// update itself only fixes times and duration.
	requested := time.Date(2026, time.March, 5, 18, 30, 0, 0, time.UTC)
	correction, err := svc.Submit(context.Background(), attendance.SubmitCorrectionRequest{
		TenantID:            testKey.TenantID,
		EntityType:          testKey.EntityType,
		EntityID:            testKey.EntityID,
		Year:                testKey.Year,
		Month:               int(testKey.Month),
		Type:                attendance.CorrectionUpdateCheckOutTime,
		CheckInID:           &checkInID,
		RequestedCheckOutAt: &requested,
		Reason:              "badge reader missed the exit",
	}, requester)
	require.NoError(t, err)
	approve(t, svc, correction.ID)

	_, err = apply(svc, correction.ID)
	require.NoError(t, err)

	rec, err := records.Get(context.Background(), testKey)
	require.NoError(t, err)
	entry := rec.FindCheckIn(checkInID)
	require.NotNil(t, entry)
	assert.Equal(t, requested, *entry.CheckOutAt)
	assert.Equal(t, 570, *entry.DurationMinutes)
	assert.Equal(t, attendance.EntryCorrected, entry.Status)
}

func TestCorrectionService_Apply_DeleteDuplicate(t *testing.T) {
	t.Parallel()
	svc, records := newFixture(t)
	checkInID := seedRecord(t, records)

	correction, err := svc.Submit(context.Background(), attendance.SubmitCorrectionRequest{
		TenantID:   testKey.TenantID,
		EntityType: testKey.EntityType,
		EntityID:   testKey.EntityID,
		Year:       testKey.Year,
		Month:      int(testKey.Month),
		Type:       attendance.CorrectionDeleteDuplicate,
		CheckInID:  &checkInID,
		Reason:     "double scan at the turnstile",
	}, requester)
	require.NoError(t, err)
	approve(t, svc, correction.ID)

	_, err = apply(svc, correction.ID)
	require.NoError(t, err)

	rec, err := records.Get(context.Background(), testKey)
	require.NoError(t, err)

	// The entry survives as audit trail but counts for nothing.
	entry := rec.FindCheckIn(checkInID)
	require.NotNil(t, entry)
	assert.Equal(t, attendance.EntryInvalid, entry.Status)
	assert.Equal(t, 1, rec.Counters.MonthlyTotal)
	assert.Equal(t, 0, rec.Counters.UniqueDaysVisited)
	assert.Equal(t, 0.0, rec.Counters.TotalWorkDays)
}

func TestCorrectionService_Apply_AddMissingClassifies(t *testing.T) {
	t.Parallel()
	svc, records := newFixture(t)
	seedRecord(t, records)

	// 6.5 hours on the member's 8 hour schedule classifies as a full day.
	checkInAt := time.Date(2026, time.March, 6, 9, 0, 0, 0, time.UTC)
	checkOutAt := checkInAt.Add(6*time.Hour + 30*time.Minute)
	correction, err := svc.Submit(context.Background(), attendance.SubmitCorrectionRequest{
		TenantID:            testKey.TenantID,
		EntityType:          testKey.EntityType,
		EntityID:            testKey.EntityID,
		Year:                testKey.Year,
		Month:               int(testKey.Month),
		Type:                attendance.CorrectionAddMissing,
		RequestedCheckInAt:  &checkInAt,
		RequestedCheckOutAt: &checkOutAt,
		Reason:              "scanner was offline that morning",
	}, requester)
	require.NoError(t, err)
	approve(t, svc, correction.ID)

	_, err = apply(svc, correction.ID)
	require.NoError(t, err)

	rec, err := records.Get(context.Background(), testKey)
	require.NoError(t, err)
	require.Len(t, rec.CheckIns, 2)

	added := rec.CheckIns[1]
	assert.Equal(t, attendance.TypeFullDay, added.Type)
	assert.Equal(t, attendance.MethodManual, added.Method)
	assert.Equal(t, 390, *added.DurationMinutes)
	assert.Equal(t, 2, rec.Counters.MonthlyTotal)
	assert.Equal(t, 2, rec.Counters.UniqueDaysVisited)
}

// ===== LIST TESTS =====

func TestCorrectionService_List_FilterByStatus(t *testing.T) {
	t.Parallel()
	svc, records := newFixture(t)
	checkInID := seedRecord(t, records)

	first := submitOverride(t, svc, checkInID, attendance.TypeHalfDayMorning)
	approve(t, svc, first.ID)
	submitOverride(t, svc, checkInID, attendance.TypeOvertime)

	pending := attendance.CorrectionPending
	got, err := svc.List(context.Background(), testKey, &pending)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, attendance.TypeOvertime, *got[0].RequestedType)

	all, err := svc.List(context.Background(), testKey, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
