package analytics_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go-safety/internal/analytics"
	analyticsMock "go-safety/internal/analytics/mock"
	"go-safety/internal/daterange"
	"go-safety/internal/safetyrecord"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type serviceDeps struct {
	service analytics.Service
	source  *analyticsMock.MockRecordSource
	clock   *testClock
}

func setupServiceTest(t *testing.T) *serviceDeps {
	ctrl := gomock.NewController(t)
	source := analyticsMock.NewMockRecordSource(ctrl)
	clock := &testClock{now: fixedNow}

	svc := analytics.NewService(source, analytics.Config{
		Location:      time.UTC,
		CacheTTL:      5 * time.Minute,
		CacheCapacity: 5,
		Now:           clock.Now,
	})
	return &serviceDeps{service: svc, source: source, clock: clock}
}

func sampleRecords() []safetyrecord.SafetyRecord {
	return []safetyrecord.SafetyRecord{
		rec("A", "Ops", day(2024, 3, 10), true, false, true),
		rec("A", "Ops", day(2024, 3, 11), true, true, true),
		rec("B", "Ops", day(2024, 3, 12), false, true, true),
	}
}

func TestAnalyticsService_Aggregate_CachesResult(t *testing.T) {
	deps := setupServiceTest(t)
	ctx := context.Background()

	deps.source.EXPECT().
		FindAll(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, f safetyrecord.Filter) ([]safetyrecord.SafetyRecord, error) {
			assert.NotNil(t, f.Range)
			assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), f.Range.Start)
			assert.Zero(t, f.Limit)
			return sampleRecords(), nil
		}).
		Times(1)

	first, err := deps.service.Aggregate(ctx, analytics.DimensionArea, daterange.Query{Range: "week"})
	assert.NoError(t, err)
	second, err := deps.service.Aggregate(ctx, analytics.DimensionArea, daterange.Query{Range: "week"})
	assert.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, daterange.Week, first.Range)
	rows := first.Rows.([]analytics.AggregationResult)
	// 2024-03-10 is a Sunday and falls in the previous week
	assert.Len(t, rows, 2)
	assert.Equal(t, "B", rows[0].GroupKey)
}

func TestAnalyticsService_Aggregate_ExpiresAfterTTL(t *testing.T) {
	deps := setupServiceTest(t)
	ctx := context.Background()

	deps.source.EXPECT().FindAll(gomock.Any(), gomock.Any()).Return(sampleRecords(), nil).Times(2)

	_, err := deps.service.Aggregate(ctx, analytics.DimensionEquipment, daterange.Query{})
	assert.NoError(t, err)

	deps.clock.Advance(4 * time.Minute)
	_, err = deps.service.Aggregate(ctx, analytics.DimensionEquipment, daterange.Query{})
	assert.NoError(t, err)

	deps.clock.Advance(61 * time.Second)
	_, err = deps.service.Aggregate(ctx, analytics.DimensionEquipment, daterange.Query{})
	assert.NoError(t, err)
}

func TestAnalyticsService_Invalidate(t *testing.T) {
	deps := setupServiceTest(t)
	ctx := context.Background()

	deps.source.EXPECT().FindAll(gomock.Any(), gomock.Any()).Return(sampleRecords(), nil).Times(2)

	_, err := deps.service.Aggregate(ctx, analytics.DimensionDepartment, daterange.Query{})
	assert.NoError(t, err)

	deps.service.Invalidate(ctx)

	_, err = deps.service.Aggregate(ctx, analytics.DimensionDepartment, daterange.Query{})
	assert.NoError(t, err)
}

func TestAnalyticsService_CustomBoundsAreSeparateKeys(t *testing.T) {
	deps := setupServiceTest(t)
	ctx := context.Background()

	deps.source.EXPECT().FindAll(gomock.Any(), gomock.Any()).Return(sampleRecords(), nil).Times(2)

	a, err := deps.service.Aggregate(ctx, analytics.DimensionArea, daterange.Query{StartDate: "2024-03-10", EndDate: "2024-03-10"})
	assert.NoError(t, err)
	b, err := deps.service.Aggregate(ctx, analytics.DimensionArea, daterange.Query{StartDate: "2024-03-11", EndDate: "2024-03-12"})
	assert.NoError(t, err)

	assert.Len(t, a.Rows.([]analytics.AggregationResult), 1)
	assert.Len(t, b.Rows.([]analytics.AggregationResult), 2)
	assert.Equal(t, daterange.Custom, a.Range)
}

func TestAnalyticsService_ErrorsAreNotCached(t *testing.T) {
	deps := setupServiceTest(t)
	ctx := context.Background()

	gomock.InOrder(
		deps.source.EXPECT().FindAll(gomock.Any(), gomock.Any()).Return(nil, errors.New("db down")),
		deps.source.EXPECT().FindAll(gomock.Any(), gomock.Any()).Return(sampleRecords(), nil),
	)

	_, err := deps.service.Aggregate(ctx, analytics.DimensionArea, daterange.Query{})
	assert.EqualError(t, err, "db down")

	_, err = deps.service.Aggregate(ctx, analytics.DimensionArea, daterange.Query{})
	assert.NoError(t, err)
}

func TestAnalyticsService_Aggregate_RejectsBadInput(t *testing.T) {
	deps := setupServiceTest(t)
	ctx := context.Background()

	_, err := deps.service.Aggregate(ctx, analytics.Dimension("shift"), daterange.Query{})
	assert.ErrorIs(t, err, analytics.ErrUnsupportedDimension)

	_, err = deps.service.Aggregate(ctx, analytics.DimensionArea, daterange.Query{StartDate: "2024-03-12", EndDate: "2024-03-10"})
	assert.ErrorIs(t, err, daterange.ErrInvalidRange)
}

func TestAnalyticsService_MonthlyTrend(t *testing.T) {
	t.Run("defaults to current year", func(t *testing.T) {
		deps := setupServiceTest(t)

		deps.source.EXPECT().
			FindAll(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, f safetyrecord.Filter) ([]safetyrecord.SafetyRecord, error) {
				assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), f.Range.Start)
				return sampleRecords(), nil
			})

		rep, err := deps.service.MonthlyTrend(context.Background(), 0)

		assert.NoError(t, err)
		rows := rep.Rows.([]analytics.AggregationResult)
		assert.Len(t, rows, 12)
		assert.Equal(t, 3, rows[2].Total)
	})

	t.Run("year out of range", func(t *testing.T) {
		deps := setupServiceTest(t)

		_, err := deps.service.MonthlyTrend(context.Background(), 2019)

		assert.ErrorIs(t, err, analytics.ErrInvalidYear)
	})
}

func TestAnalyticsService_DailyTrend(t *testing.T) {
	t.Run("requires a bounded range", func(t *testing.T) {
		deps := setupServiceTest(t)

		_, err := deps.service.DailyTrend(context.Background(), daterange.Query{Range: "all"}, false)

		assert.ErrorIs(t, err, daterange.ErrInvalidRange)
	})

	t.Run("sparse and dense are cached apart", func(t *testing.T) {
		deps := setupServiceTest(t)
		deps.source.EXPECT().FindAll(gomock.Any(), gomock.Any()).Return(sampleRecords(), nil).Times(2)
		q := daterange.Query{StartDate: "2024-03-01", EndDate: "2024-03-31"}

		sparse, err := deps.service.DailyTrend(context.Background(), q, false)
		assert.NoError(t, err)
		dense, err := deps.service.DailyTrend(context.Background(), q, true)
		assert.NoError(t, err)

		assert.Len(t, sparse.Rows.([]analytics.AggregationResult), 3)
		assert.Len(t, dense.Rows.([]analytics.AggregationResult), 31)
	})
}

func TestAnalyticsService_Dashboard(t *testing.T) {
	deps := setupServiceTest(t)
	deps.source.EXPECT().FindAll(gomock.Any(), gomock.Any()).Return(sampleRecords(), nil).Times(1)

	d, err := deps.service.Dashboard(context.Background(), daterange.Query{})
	assert.NoError(t, err)
	again, err := deps.service.Dashboard(context.Background(), daterange.Query{})
	assert.NoError(t, err)

	assert.Equal(t, d, again)
	assert.Equal(t, 3, d.TotalRecords)
	assert.Equal(t, 2, d.TotalDefaulters)
	assert.Equal(t, daterange.All, d.Range)
	assert.Nil(t, d.Start)
}

func TestAnalyticsService_CancelledCallerDoesNotFailSharedWaiter(t *testing.T) {
	deps := setupServiceTest(t)
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	deps.source.EXPECT().
		FindAll(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ safetyrecord.Filter) ([]safetyrecord.SafetyRecord, error) {
			once.Do(func() { close(started) })
			<-release
			return sampleRecords(), ctx.Err()
		}).
		MinTimes(1).
		MaxTimes(2)

	ctx1, cancel1 := context.WithCancel(context.Background())
	defer cancel1()
	err1 := make(chan error, 1)
	go func() {
		_, err := deps.service.Aggregate(ctx1, analytics.DimensionArea, daterange.Query{})
		err1 <- err
	}()
	<-started

	err2 := make(chan error, 1)
	go func() {
		_, err := deps.service.Aggregate(context.Background(), analytics.DimensionArea, daterange.Query{})
		err2 <- err
	}()
	// let the second caller join the in-flight computation
	time.Sleep(20 * time.Millisecond)

	cancel1()
	assert.ErrorIs(t, <-err1, context.Canceled)

	close(release)
	assert.NoError(t, <-err2)
}

func TestAnalyticsService_WriteDuringComputeIsNotCached(t *testing.T) {
	deps := setupServiceTest(t)
	ctx := context.Background()

	gomock.InOrder(
		deps.source.EXPECT().
			FindAll(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ safetyrecord.Filter) ([]safetyrecord.SafetyRecord, error) {
				// a record write commits while the records are being loaded
				deps.service.Invalidate(ctx)
				return sampleRecords(), nil
			}),
		deps.source.EXPECT().FindAll(gomock.Any(), gomock.Any()).Return(sampleRecords(), nil),
	)

	_, err := deps.service.Aggregate(ctx, analytics.DimensionArea, daterange.Query{})
	assert.NoError(t, err)
	_, err = deps.service.Aggregate(ctx, analytics.DimensionArea, daterange.Query{})
	assert.NoError(t, err)
}
