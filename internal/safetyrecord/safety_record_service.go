package safetyrecord

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"go-safety/internal/compliance"
	"go-safety/internal/daterange"
	"go-safety/internal/events"
	"go-safety/internal/messaging/kafka"
	safetyrecorderrors "go-safety/internal/safetyrecord/errors"
	"go-safety/internal/shared/apperror"
	"go-safety/internal/shared/contextutil"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultPage  = 1
	defaultLimit = 10
)

// CacheInvalidator is told after every committed write so that derived
// report results are recomputed.
type CacheInvalidator interface {
	Invalidate(ctx context.Context)
}

//go:generate mockgen -source=safety_record_service.go -destination=mock/safety_record_service_mock.go -package=mock
type Service interface {
	Create(ctx context.Context, actorID string, req CreateSafetyRecordRequest) (SafetyRecordResponse, error)
	GetByID(ctx context.Context, id string) (SafetyRecordResponse, error)
	List(ctx context.Context, req ListSafetyRecordsRequest) (ListSafetyRecordsResult, error)
	Update(ctx context.Context, id string, req UpdateSafetyRecordRequest) (SafetyRecordResponse, error)
	Delete(ctx context.Context, id string) error
}

type service struct {
	db     *sql.DB
	repo   Repository
	outbox kafka.OutboxRepository
	cache  CacheInvalidator
	loc    *time.Location
	now    func() time.Time
	logger *zap.Logger
}

func NewService(db *sql.DB, repo Repository, loc *time.Location, logger ...*zap.Logger) Service {
	return NewServiceWithOutbox(db, repo, nil, nil, loc, logger...)
}

func NewServiceWithOutbox(
	db *sql.DB,
	repo Repository,
	outboxRepo kafka.OutboxRepository,
	cache CacheInvalidator,
	loc *time.Location,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("safetyrecord.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("safetyrecord.service")
	}
	if loc == nil {
		loc = time.UTC
	}
	return &service{
		db:     db,
		repo:   repo,
		outbox: outboxRepo,
		cache:  cache,
		loc:    loc,
		now:    time.Now,
		logger: l,
	}
}

func (s *service) Create(
	ctx context.Context,
	actorID string,
	req CreateSafetyRecordRequest,
) (SafetyRecordResponse, error) {
	rid := contextutil.GetRequestID(ctx)
	s.logger.Debug("create safety record requested",
		zap.String("request_id", rid),
		zap.String("actor_id", actorID),
		zap.String("area", req.Area),
	)

	date, err := daterange.ParseStart(req.Date, s.loc)
	if err != nil {
		s.logger.Warn("create safety record invalid date", zap.String("date", req.Date))
		return SafetyRecordResponse{}, safetyrecorderrors.ErrInvalidDate
	}

	strength := DefaultStrength
	if req.Strength != nil {
		strength = *req.Strength
	}

	now := s.now().UTC()
	record := &SafetyRecord{
		ID:            uuid.New(),
		Date:          date,
		Area:          req.Area,
		Department:    strings.TrimSpace(req.Department),
		Name:          strings.TrimSpace(req.Name),
		SafetyShoes:   req.SafetyShoes,
		SafetyGlasses: req.SafetyGlasses,
		SafetyJacket:  req.SafetyJacket,
		Strength:      strength,
		CreatedBy:     actorID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	record.IsDefaulter = compliance.IsDefaulter(record.SafetyShoes, record.SafetyGlasses, record.SafetyJacket)

	if err := validateRecord(record); err != nil {
		return SafetyRecordResponse{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("create safety record begin tx failed", zap.String("request_id", rid), zap.Error(err))
		return SafetyRecordResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	if err := qtx.Create(ctx, record); err != nil {
		s.logger.Error("create safety record persist failed", zap.Error(err))
		return SafetyRecordResponse{}, mapRepositoryError(err)
	}

	if err := s.queueEvent(ctx, tx, events.SafetyRecordCreated, actorID, record); err != nil {
		s.logger.Error("create safety record outbox persist failed",
			zap.String("record_id", record.ID.String()),
			zap.Error(err),
		)
		return SafetyRecordResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("commit failed", zap.String("request_id", rid), zap.Error(err))
		return SafetyRecordResponse{}, err
	}

	s.invalidate(ctx)
	s.logger.Info("create safety record success",
		zap.String("request_id", rid),
		zap.String("record_id", record.ID.String()),
		zap.Bool("is_defaulter", record.IsDefaulter),
	)

	return mapToResponse(*record), nil
}

func (s *service) GetByID(ctx context.Context, id string) (SafetyRecordResponse, error) {
	s.logger.Debug("get safety record by id requested", zap.String("record_id", id))
	if _, err := uuid.Parse(id); err != nil {
		return SafetyRecordResponse{}, safetyrecorderrors.ErrRecordNotFound
	}

	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		s.logger.Warn("get safety record by id failed", zap.String("record_id", id), zap.Error(err))
		return SafetyRecordResponse{}, mapRepositoryError(err)
	}

	return mapToResponse(*record), nil
}

func (s *service) List(ctx context.Context, req ListSafetyRecordsRequest) (ListSafetyRecordsResult, error) {
	sel, err := req.Query.Resolve(s.now().In(s.loc))
	if err != nil {
		return ListSafetyRecordsResult{}, err
	}

	page := req.Page
	if page < 1 {
		page = defaultPage
	}
	limit := req.Limit
	if limit < 1 {
		limit = defaultLimit
	}
	sortBy := req.SortBy
	if sortBy == "" {
		sortBy = "date"
	}

	filter := Filter{
		Range:          sel.Range,
		Area:           req.Area,
		DefaultersOnly: req.DefaultersOnly,
		Search:         req.Search,
		SortBy:         sortBy,
		SortDesc:       req.SortOrder != "asc",
		Limit:          limit,
		Offset:         (page - 1) * limit,
	}
	s.logger.Debug("list safety records requested",
		zap.String("range", string(sel.Token)),
		zap.String("area", filter.Area),
		zap.Int("page", page),
		zap.Int("limit", limit),
	)

	records, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		s.logger.Error("list safety records failed", zap.Error(err))
		return ListSafetyRecordsResult{}, mapRepositoryError(err)
	}

	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		s.logger.Error("count safety records failed", zap.Error(err))
		return ListSafetyRecordsResult{}, mapRepositoryError(err)
	}

	return ListSafetyRecordsResult{
		Records: mapToListResponse(records),
		Total:   total,
		Page:    page,
		Limit:   limit,
	}, nil
}

func (s *service) Update(
	ctx context.Context,
	id string,
	req UpdateSafetyRecordRequest,
) (SafetyRecordResponse, error) {
	rid := contextutil.GetRequestID(ctx)
	s.logger.Debug("update safety record requested",
		zap.String("request_id", rid),
		zap.String("record_id", id),
	)
	if _, err := uuid.Parse(id); err != nil {
		return SafetyRecordResponse{}, safetyrecorderrors.ErrRecordNotFound
	}

	var date *time.Time
	if req.Date != nil {
		d, err := daterange.ParseStart(*req.Date, s.loc)
		if err != nil {
			s.logger.Warn("update safety record invalid date", zap.String("date", *req.Date))
			return SafetyRecordResponse{}, safetyrecorderrors.ErrInvalidDate
		}
		date = &d
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("update safety record begin tx failed", zap.Error(err))
		return SafetyRecordResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	record, err := qtx.FindByID(ctx, id)
	if err != nil {
		s.logger.Warn("update safety record fetch existing failed", zap.String("record_id", id), zap.Error(err))
		return SafetyRecordResponse{}, mapRepositoryError(err)
	}

	applyPatch(record, req, date)
	record.IsDefaulter = compliance.IsDefaulter(record.SafetyShoes, record.SafetyGlasses, record.SafetyJacket)
	record.UpdatedAt = s.now().UTC()

	if err := validateRecord(record); err != nil {
		return SafetyRecordResponse{}, err
	}

	if err := qtx.Update(ctx, record); err != nil {
		s.logger.Error("update safety record persist failed", zap.Error(err))
		return SafetyRecordResponse{}, mapRepositoryError(err)
	}

	if err := s.queueEvent(ctx, tx, events.SafetyRecordUpdated, contextutil.GetUserID(ctx), record); err != nil {
		s.logger.Error("update safety record outbox persist failed", zap.String("record_id", id), zap.Error(err))
		return SafetyRecordResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("update safety record commit failed", zap.Error(err))
		return SafetyRecordResponse{}, err
	}

	s.invalidate(ctx)
	s.logger.Info("update safety record success", zap.String("record_id", id))

	return mapToResponse(*record), nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	rid := contextutil.GetRequestID(ctx)
	s.logger.Debug("delete safety record requested",
		zap.String("request_id", rid),
		zap.String("record_id", id),
	)
	if _, err := uuid.Parse(id); err != nil {
		return safetyrecorderrors.ErrRecordNotFound
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("delete safety record begin tx failed", zap.Error(err))
		return err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	record, err := qtx.FindByID(ctx, id)
	if err != nil {
		s.logger.Warn("delete safety record fetch existing failed", zap.String("record_id", id), zap.Error(err))
		return mapRepositoryError(err)
	}

	if err := qtx.Delete(ctx, id); err != nil {
		s.logger.Error("delete safety record failed", zap.Error(err))
		return mapRepositoryError(err)
	}

	if err := s.queueEvent(ctx, tx, events.SafetyRecordDeleted, contextutil.GetUserID(ctx), record); err != nil {
		s.logger.Error("delete safety record outbox persist failed", zap.String("record_id", id), zap.Error(err))
		return err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("delete safety record commit failed", zap.Error(err))
		return err
	}

	s.invalidate(ctx)
	s.logger.Info("delete safety record success", zap.String("record_id", id))
	return nil
}

func (s *service) queueEvent(
	ctx context.Context,
	tx *sql.Tx,
	eventType string,
	actorID string,
	record *SafetyRecord,
) error {
	if s.outbox == nil {
		return nil
	}

	rid := contextutil.GetRequestID(ctx)
	payload, err := json.Marshal(events.SafetyRecordEvent{
		EventType:   eventType,
		RequestID:   rid,
		RecordID:    record.ID.String(),
		ActorID:     actorID,
		Date:        record.Date,
		Area:        record.Area,
		Department:  record.Department,
		Name:        record.Name,
		IsDefaulter: record.IsDefaulter,
		OccurredAt:  s.now().UTC(),
	})
	if err != nil {
		return err
	}

	return s.outbox.WithTx(tx).Create(ctx, kafka.OutboxEvent{
		ID:            uuid.NewString(),
		RequestID:     rid,
		AggregateType: "safety_record",
		AggregateID:   record.ID.String(),
		EventType:     eventType,
		Topic:         events.SafetyRecordLifecycleTopic,
		Payload:       payload,
		Status:        kafka.OutboxStatusPending,
	})
}

func (s *service) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
}

func applyPatch(record *SafetyRecord, req UpdateSafetyRecordRequest, date *time.Time) {
	if date != nil {
		record.Date = *date
	}
	if req.Area != nil {
		record.Area = *req.Area
	}
	if req.Department != nil {
		record.Department = strings.TrimSpace(*req.Department)
	}
	if req.Name != nil {
		record.Name = strings.TrimSpace(*req.Name)
	}
	if req.SafetyShoes != nil {
		record.SafetyShoes = *req.SafetyShoes
	}
	if req.SafetyGlasses != nil {
		record.SafetyGlasses = *req.SafetyGlasses
	}
	if req.SafetyJacket != nil {
		record.SafetyJacket = *req.SafetyJacket
	}
	if req.Strength != nil {
		record.Strength = *req.Strength
	}
}

// validateRecord re-checks the rules binding cannot see, such as lengths
// after trimming.
func validateRecord(r *SafetyRecord) error {
	var fields []apperror.FieldError
	if n := utf8.RuneCountInString(r.Name); n < 2 || n > 100 {
		fields = append(fields, apperror.FieldError{Field: "name", Message: "Name must be between 2 and 100 characters"})
	}
	if n := utf8.RuneCountInString(r.Department); n < 2 || n > 100 {
		fields = append(fields, apperror.FieldError{Field: "department", Message: "Department must be between 2 and 100 characters"})
	}
	if !IsValidArea(r.Area) {
		fields = append(fields, apperror.FieldError{Field: "area", Message: "Area must be a known area"})
	}
	if r.Strength < 1 || r.Strength > 1000 {
		fields = append(fields, apperror.FieldError{Field: "strength", Message: "Strength must be between 1 and 1000"})
	}
	if len(fields) > 0 {
		return apperror.Validation(fields...)
	}
	return nil
}

func mapToResponse(r SafetyRecord) SafetyRecordResponse {
	eval := compliance.Evaluate(r.SafetyShoes, r.SafetyGlasses, r.SafetyJacket)
	return SafetyRecordResponse{
		ID:             r.ID.String(),
		Date:           r.Date.Format(time.RFC3339),
		Area:           r.Area,
		Department:     r.Department,
		Name:           r.Name,
		SafetyShoes:    r.SafetyShoes,
		SafetyGlasses:  r.SafetyGlasses,
		SafetyJacket:   r.SafetyJacket,
		Strength:       r.Strength,
		IsDefaulter:    r.IsDefaulter,
		ComplianceRate: eval.ComplianceRate,
		CreatedBy:      r.CreatedBy,
		CreatedAt:      r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      r.UpdatedAt.Format(time.RFC3339),
	}
}

func mapToListResponse(records []SafetyRecord) []SafetyRecordResponse {
	res := make([]SafetyRecordResponse, len(records))
	for i, r := range records {
		res[i] = mapToResponse(r)
	}
	return res
}
