package safetyrecord

import (
	"context"
	"database/sql"
	"strings"

	"go-safety/internal/daterange"

	"gorm.io/gorm"
)

// Filter narrows FindAll and Count. Zero values mean no restriction.
type Filter struct {
	Range          *daterange.Range
	Area           string
	DefaultersOnly bool
	Search         string
	SortBy         string
	SortDesc       bool
	Limit          int
	Offset         int
}

var sortColumns = map[string]string{
	"date":       "date",
	"name":       "name",
	"department": "department",
	"area":       "area",
	"createdAt":  "created_at",
}

//go:generate mockgen -source=safety_record_repo.go -destination=mock/safety_record_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, record *SafetyRecord) error
	FindByID(ctx context.Context, id string) (*SafetyRecord, error)
	FindAll(ctx context.Context, filter Filter) ([]SafetyRecord, error)
	Count(ctx context.Context, filter Filter) (int64, error)
	Update(ctx context.Context, record *SafetyRecord) error
	Delete(ctx context.Context, id string) error
}

type repository struct {
	db *gorm.DB
	tx *sql.Tx
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *sql.Tx) Repository {
	return &repository{
		db: r.db,
		tx: tx,
	}
}

// conn runs statements on the bound *sql.Tx when there is one.
func (r *repository) conn(ctx context.Context) *gorm.DB {
	db := r.db.WithContext(ctx)
	if r.tx != nil {
		db = db.Session(&gorm.Session{})
		db.Statement.ConnPool = r.tx
	}
	return db
}

func (r *repository) Create(ctx context.Context, record *SafetyRecord) error {
	return r.conn(ctx).Create(record).Error
}

func (r *repository) FindByID(ctx context.Context, id string) (*SafetyRecord, error) {
	var record SafetyRecord
	err := r.conn(ctx).First(&record, "id = ?", id).Error
	return &record, err
}

func (r *repository) FindAll(ctx context.Context, filter Filter) ([]SafetyRecord, error) {
	var records []SafetyRecord
	q := r.conn(ctx).Scopes(applyFilter(filter))

	col, ok := sortColumns[filter.SortBy]
	if !ok {
		col = "date"
	}
	dir := " ASC"
	if filter.SortDesc {
		dir = " DESC"
	}
	q = q.Order(col + dir).Order("created_at" + dir)

	if filter.Limit > 0 {
		q = q.Limit(filter.Limit).Offset(filter.Offset)
	}

	err := q.Find(&records).Error
	return records, err
}

func (r *repository) Count(ctx context.Context, filter Filter) (int64, error) {
	var total int64
	err := r.conn(ctx).
		Model(&SafetyRecord{}).
		Scopes(applyFilter(filter)).
		Count(&total).Error
	return total, err
}

func (r *repository) Update(ctx context.Context, record *SafetyRecord) error {
	return r.conn(ctx).Save(record).Error
}

func (r *repository) Delete(ctx context.Context, id string) error {
	res := r.conn(ctx).Delete(&SafetyRecord{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func applyFilter(f Filter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if f.Range != nil {
			db = db.Where("date BETWEEN ? AND ?", f.Range.Start, f.Range.End)
		}
		if f.Area != "" {
			db = db.Where("area = ?", f.Area)
		}
		if f.DefaultersOnly {
			db = db.Where("is_defaulter = ?", true)
		}
		if s := strings.TrimSpace(f.Search); s != "" {
			pattern := "%" + escapeLike(s) + "%"
			db = db.Where("(name ILIKE ? OR department ILIKE ?)", pattern, pattern)
		}
		return db
	}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
