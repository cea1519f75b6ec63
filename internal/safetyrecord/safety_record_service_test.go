package safetyrecord_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"go-safety/internal/daterange"
	"go-safety/internal/events"
	"go-safety/internal/messaging/kafka"
	kafkaMock "go-safety/internal/messaging/kafka/mock"
	"go-safety/internal/safetyrecord"
	safetyrecorderrors "go-safety/internal/safetyrecord/errors"
	recordMock "go-safety/internal/safetyrecord/mock"
	"go-safety/internal/shared/apperror"
	"go-safety/internal/shared/contextutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
	"gorm.io/gorm"
)

type serviceDeps struct {
	db      *sql.DB
	sqlMock sqlmock.Sqlmock
	service safetyrecord.Service
	repo    *recordMock.MockRepository
	outbox  *kafkaMock.MockOutboxRepository
	cache   *recordMock.MockCacheInvalidator
}

func setupServiceTest(t *testing.T) *serviceDeps {
	ctrl := gomock.NewController(t)

	db, sqlMock, err := sqlmock.New()
	assert.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := recordMock.NewMockRepository(ctrl)
	outboxRepo := kafkaMock.NewMockOutboxRepository(ctrl)
	cache := recordMock.NewMockCacheInvalidator(ctrl)

	svc := safetyrecord.NewServiceWithOutbox(db, repo, outboxRepo, cache, time.UTC)

	return &serviceDeps{
		db:      db,
		sqlMock: sqlMock,
		service: svc,
		repo:    repo,
		outbox:  outboxRepo,
		cache:   cache,
	}
}

func expectTx(t *testing.T, mock sqlmock.Sqlmock, commit bool) {
	t.Helper()
	mock.ExpectBegin()
	if commit {
		mock.ExpectCommit()
	} else {
		mock.ExpectRollback()
	}
}

func expectOutbox(deps *serviceDeps, eventType string) {
	deps.outbox.EXPECT().WithTx(gomock.Any()).Return(deps.outbox)
	deps.outbox.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, e kafka.OutboxEvent) error {
			if e.EventType != eventType || e.Topic != events.SafetyRecordLifecycleTopic {
				return errors.New("unexpected outbox event " + e.EventType)
			}
			return nil
		})
}

func intPtr(v int) *int       { return &v }
func boolPtr(v bool) *bool    { return &v }
func strPtr(v string) *string { return &v }

func existingRecord() *safetyrecord.SafetyRecord {
	return &safetyrecord.SafetyRecord{
		ID:            uuid.New(),
		Date:          time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		Area:          safetyrecord.AreaWarehouse,
		Department:    "Logistics",
		Name:          "Budi Santoso",
		SafetyShoes:   true,
		SafetyGlasses: true,
		SafetyJacket:  true,
		Strength:      80,
		IsDefaulter:   false,
		CreatedBy:     "admin",
		CreatedAt:     time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC),
		UpdatedAt:     time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC),
	}
}

func TestSafetyRecordService_Create(t *testing.T) {
	t.Run("success - derives defaulter and defaults", func(t *testing.T) {
		deps := setupServiceTest(t)
		ctx := contextutil.WithRequestID(context.Background(), "REQ-1")

		req := safetyrecord.CreateSafetyRecordRequest{
			Date:          "2024-03-10",
			Area:          safetyrecord.AreaProductionFloor,
			Department:    "  Assembly ",
			Name:          " Siti Aminah ",
			SafetyShoes:   true,
			SafetyGlasses: false,
			SafetyJacket:  true,
		}

		expectTx(t, deps.sqlMock, true)
		deps.repo.EXPECT().WithTx(gomock.Any()).Return(deps.repo)
		deps.repo.EXPECT().
			Create(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, r *safetyrecord.SafetyRecord) error {
				assert.Equal(t, "Siti Aminah", r.Name)
				assert.Equal(t, "Assembly", r.Department)
				assert.Equal(t, safetyrecord.DefaultStrength, r.Strength)
				assert.True(t, r.IsDefaulter)
				assert.Equal(t, "user-1", r.CreatedBy)
				assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), r.Date)
				return nil
			})

		deps.outbox.EXPECT().WithTx(gomock.Any()).Return(deps.outbox)
		deps.outbox.EXPECT().
			Create(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, e kafka.OutboxEvent) error {
				assert.Equal(t, "REQ-1", e.RequestID)
				assert.Equal(t, events.SafetyRecordCreated, e.EventType)
				assert.Equal(t, kafka.OutboxStatusPending, e.Status)

				var payload events.SafetyRecordEvent
				assert.NoError(t, json.Unmarshal(e.Payload, &payload))
				assert.True(t, payload.IsDefaulter)
				assert.Equal(t, e.AggregateID, payload.RecordID)
				return nil
			})
		deps.cache.EXPECT().Invalidate(gomock.Any()).Times(1)

		resp, err := deps.service.Create(ctx, "user-1", req)

		assert.NoError(t, err)
		assert.True(t, resp.IsDefaulter)
		assert.Equal(t, float64(67), resp.ComplianceRate)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("explicit strength is kept", func(t *testing.T) {
		deps := setupServiceTest(t)

		expectTx(t, deps.sqlMock, true)
		deps.repo.EXPECT().WithTx(gomock.Any()).Return(deps.repo)
		deps.repo.EXPECT().
			Create(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, r *safetyrecord.SafetyRecord) error {
				assert.Equal(t, 45, r.Strength)
				assert.False(t, r.IsDefaulter)
				return nil
			})
		expectOutbox(deps, events.SafetyRecordCreated)
		deps.cache.EXPECT().Invalidate(gomock.Any())

		_, err := deps.service.Create(context.Background(), "user-1", safetyrecord.CreateSafetyRecordRequest{
			Date: "2024-03-10", Area: safetyrecord.AreaOffice, Department: "HR", Name: "Ani",
			SafetyShoes: true, SafetyGlasses: true, SafetyJacket: true, Strength: intPtr(45),
		})
		assert.NoError(t, err)
	})

	t.Run("invalid date", func(t *testing.T) {
		deps := setupServiceTest(t)

		_, err := deps.service.Create(context.Background(), "user-1", safetyrecord.CreateSafetyRecordRequest{
			Date: "10-03-2024", Area: safetyrecord.AreaOffice, Department: "HR", Name: "Ani",
		})

		assert.ErrorIs(t, err, safetyrecorderrors.ErrInvalidDate)
	})

	t.Run("name too short after trimming", func(t *testing.T) {
		deps := setupServiceTest(t)

		_, err := deps.service.Create(context.Background(), "user-1", safetyrecord.CreateSafetyRecordRequest{
			Date: "2024-03-10", Area: safetyrecord.AreaOffice, Department: "HR", Name: "  A  ",
		})

		assert.ErrorIs(t, err, apperror.ErrValidationFailed)
		var appErr *apperror.AppError
		assert.True(t, errors.As(err, &appErr))
		fields := appErr.Details.([]apperror.FieldError)
		assert.Equal(t, "name", fields[0].Field)
	})

	t.Run("repo error -> rollback", func(t *testing.T) {
		deps := setupServiceTest(t)

		expectTx(t, deps.sqlMock, false)
		deps.repo.EXPECT().WithTx(gomock.Any()).Return(deps.repo)
		deps.repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("db down"))

		_, err := deps.service.Create(context.Background(), "user-1", safetyrecord.CreateSafetyRecordRequest{
			Date: "2024-03-10", Area: safetyrecord.AreaOffice, Department: "HR", Name: "Ani",
		})

		assert.EqualError(t, err, "db down")
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("outbox error -> rollback and no invalidation", func(t *testing.T) {
		deps := setupServiceTest(t)

		expectTx(t, deps.sqlMock, false)
		deps.repo.EXPECT().WithTx(gomock.Any()).Return(deps.repo)
		deps.repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
		deps.outbox.EXPECT().WithTx(gomock.Any()).Return(deps.outbox)
		deps.outbox.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("outbox down"))
		deps.cache.EXPECT().Invalidate(gomock.Any()).Times(0)

		_, err := deps.service.Create(context.Background(), "user-1", safetyrecord.CreateSafetyRecordRequest{
			Date: "2024-03-10", Area: safetyrecord.AreaOffice, Department: "HR", Name: "Ani",
		})

		assert.Error(t, err)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})
}

func TestSafetyRecordService_GetByID(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		deps := setupServiceTest(t)
		rec := existingRecord()

		deps.repo.EXPECT().FindByID(gomock.Any(), rec.ID.String()).Return(rec, nil)

		resp, err := deps.service.GetByID(context.Background(), rec.ID.String())

		assert.NoError(t, err)
		assert.Equal(t, rec.ID.String(), resp.ID)
		assert.Equal(t, float64(100), resp.ComplianceRate)
	})

	t.Run("not found", func(t *testing.T) {
		deps := setupServiceTest(t)
		id := uuid.NewString()

		deps.repo.EXPECT().FindByID(gomock.Any(), id).Return(&safetyrecord.SafetyRecord{}, gorm.ErrRecordNotFound)

		_, err := deps.service.GetByID(context.Background(), id)

		assert.ErrorIs(t, err, safetyrecorderrors.ErrRecordNotFound)
		assert.Equal(t, "Record not found", apperror.ToHTTP(err).Message)
	})

	t.Run("malformed id is not found", func(t *testing.T) {
		deps := setupServiceTest(t)

		_, err := deps.service.GetByID(context.Background(), "not-a-uuid")

		assert.ErrorIs(t, err, safetyrecorderrors.ErrRecordNotFound)
	})
}

func TestSafetyRecordService_List(t *testing.T) {
	t.Run("defaults and custom range", func(t *testing.T) {
		deps := setupServiceTest(t)
		rec := existingRecord()

		var captured safetyrecord.Filter
		deps.repo.EXPECT().
			FindAll(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, f safetyrecord.Filter) ([]safetyrecord.SafetyRecord, error) {
				captured = f
				return []safetyrecord.SafetyRecord{*rec}, nil
			})
		deps.repo.EXPECT().Count(gomock.Any(), gomock.Any()).Return(int64(31), nil)

		res, err := deps.service.List(context.Background(), safetyrecord.ListSafetyRecordsRequest{
			Query: daterange.Query{StartDate: "2024-03-10", EndDate: "2024-03-10"},
		})

		assert.NoError(t, err)
		assert.Len(t, res.Records, 1)
		assert.Equal(t, int64(31), res.Total)
		assert.Equal(t, 1, res.Page)
		assert.Equal(t, 10, res.Limit)

		assert.Equal(t, "date", captured.SortBy)
		assert.True(t, captured.SortDesc)
		assert.Equal(t, 10, captured.Limit)
		assert.Equal(t, 0, captured.Offset)
		assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), captured.Range.Start)
		assert.Equal(t, time.Date(2024, 3, 10, 23, 59, 59, int(999*time.Millisecond), time.UTC), captured.Range.End)
	})

	t.Run("paging and filters pass through", func(t *testing.T) {
		deps := setupServiceTest(t)

		deps.repo.EXPECT().
			FindAll(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, f safetyrecord.Filter) ([]safetyrecord.SafetyRecord, error) {
				assert.Equal(t, 40, f.Offset)
				assert.Equal(t, 20, f.Limit)
				assert.Equal(t, "name", f.SortBy)
				assert.False(t, f.SortDesc)
				assert.True(t, f.DefaultersOnly)
				assert.Equal(t, safetyrecord.AreaWarehouse, f.Area)
				assert.Equal(t, "budi", f.Search)
				assert.Nil(t, f.Range)
				return nil, nil
			})
		deps.repo.EXPECT().Count(gomock.Any(), gomock.Any()).Return(int64(0), nil)

		_, err := deps.service.List(context.Background(), safetyrecord.ListSafetyRecordsRequest{
			Page: 3, Limit: 20, SortBy: "name", SortOrder: "asc",
			DefaultersOnly: true, Area: safetyrecord.AreaWarehouse, Search: "budi",
		})
		assert.NoError(t, err)
	})

	t.Run("invalid range", func(t *testing.T) {
		deps := setupServiceTest(t)

		_, err := deps.service.List(context.Background(), safetyrecord.ListSafetyRecordsRequest{
			Query: daterange.Query{StartDate: "2024-03-11", EndDate: "2024-03-10"},
		})

		assert.ErrorIs(t, err, daterange.ErrInvalidRange)
	})
}

func TestSafetyRecordService_Update(t *testing.T) {
	t.Run("partial patch recomputes defaulter", func(t *testing.T) {
		deps := setupServiceTest(t)
		rec := existingRecord()
		before := rec.UpdatedAt

		expectTx(t, deps.sqlMock, true)
		deps.repo.EXPECT().WithTx(gomock.Any()).Return(deps.repo)
		deps.repo.EXPECT().FindByID(gomock.Any(), rec.ID.String()).Return(rec, nil)
		deps.repo.EXPECT().
			Update(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, r *safetyrecord.SafetyRecord) error {
				assert.False(t, r.SafetyJacket)
				assert.True(t, r.IsDefaulter)
				assert.Equal(t, "Budi Santoso", r.Name)
				assert.Equal(t, 80, r.Strength)
				assert.True(t, r.UpdatedAt.After(before))
				return nil
			})
		expectOutbox(deps, events.SafetyRecordUpdated)
		deps.cache.EXPECT().Invalidate(gomock.Any())

		resp, err := deps.service.Update(context.Background(), rec.ID.String(), safetyrecord.UpdateSafetyRecordRequest{
			SafetyJacket: boolPtr(false),
		})

		assert.NoError(t, err)
		assert.True(t, resp.IsDefaulter)
		assert.Equal(t, "admin", resp.CreatedBy)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("fixing the missing item clears defaulter", func(t *testing.T) {
		deps := setupServiceTest(t)
		rec := existingRecord()
		rec.SafetyGlasses = false
		rec.IsDefaulter = true

		expectTx(t, deps.sqlMock, true)
		deps.repo.EXPECT().WithTx(gomock.Any()).Return(deps.repo)
		deps.repo.EXPECT().FindByID(gomock.Any(), rec.ID.String()).Return(rec, nil)
		deps.repo.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)
		expectOutbox(deps, events.SafetyRecordUpdated)
		deps.cache.EXPECT().Invalidate(gomock.Any())

		resp, err := deps.service.Update(context.Background(), rec.ID.String(), safetyrecord.UpdateSafetyRecordRequest{
			SafetyGlasses: boolPtr(true),
			Department:    strPtr("Outbound"),
		})

		assert.NoError(t, err)
		assert.False(t, resp.IsDefaulter)
		assert.Equal(t, "Outbound", resp.Department)
	})

	t.Run("not found -> rollback", func(t *testing.T) {
		deps := setupServiceTest(t)
		id := uuid.NewString()

		expectTx(t, deps.sqlMock, false)
		deps.repo.EXPECT().WithTx(gomock.Any()).Return(deps.repo)
		deps.repo.EXPECT().FindByID(gomock.Any(), id).Return(&safetyrecord.SafetyRecord{}, gorm.ErrRecordNotFound)

		_, err := deps.service.Update(context.Background(), id, safetyrecord.UpdateSafetyRecordRequest{
			Name: strPtr("Someone"),
		})

		assert.ErrorIs(t, err, safetyrecorderrors.ErrRecordNotFound)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("invalid date", func(t *testing.T) {
		deps := setupServiceTest(t)

		_, err := deps.service.Update(context.Background(), uuid.NewString(), safetyrecord.UpdateSafetyRecordRequest{
			Date: strPtr("yesterday"),
		})

		assert.ErrorIs(t, err, safetyrecorderrors.ErrInvalidDate)
	})
}

func TestSafetyRecordService_Delete(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		deps := setupServiceTest(t)
		rec := existingRecord()

		expectTx(t, deps.sqlMock, true)
		deps.repo.EXPECT().WithTx(gomock.Any()).Return(deps.repo)
		deps.repo.EXPECT().FindByID(gomock.Any(), rec.ID.String()).Return(rec, nil)
		deps.repo.EXPECT().Delete(gomock.Any(), rec.ID.String()).Return(nil)
		expectOutbox(deps, events.SafetyRecordDeleted)
		deps.cache.EXPECT().Invalidate(gomock.Any())

		err := deps.service.Delete(context.Background(), rec.ID.String())

		assert.NoError(t, err)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		deps := setupServiceTest(t)
		id := uuid.NewString()

		expectTx(t, deps.sqlMock, false)
		deps.repo.EXPECT().WithTx(gomock.Any()).Return(deps.repo)
		deps.repo.EXPECT().FindByID(gomock.Any(), id).Return(&safetyrecord.SafetyRecord{}, gorm.ErrRecordNotFound)

		err := deps.service.Delete(context.Background(), id)

		assert.ErrorIs(t, err, safetyrecorderrors.ErrRecordNotFound)
	})
}
