package portfolioService

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/arjundixit/portfolio_tracker/config"
	"github.com/arjundixit/portfolio_tracker/data/cache"
	"github.com/arjundixit/portfolio_tracker/data/repository"
	"github.com/arjundixit/portfolio_tracker/internal/fx/rateResolver"
	"github.com/arjundixit/portfolio_tracker/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type fakeRepo struct {
	holdings    []model.Holding
	snapshots   map[string]model.Snapshot
	uploads     []model.UploadRecord
	failUpsert  bool
	failInserts bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{snapshots: make(map[string]model.Snapshot)}
}

func dateKey(date time.Time) string {
	return date.Format(time.DateOnly)
}

func (r *fakeRepo) WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error {
	holdingsBackup := append([]model.Holding(nil), r.holdings...)
	snapshotsBackup := make(map[string]model.Snapshot, len(r.snapshots))
	for k, v := range r.snapshots {
		snapshotsBackup[k] = v
	}

	if err := tFunc(ctx); err != nil {
		r.holdings = holdingsBackup
		r.snapshots = snapshotsBackup
		return err
	}
	return nil
}

func (r *fakeRepo) InsertHoldings(ctx context.Context, holdings []model.Holding) error {
	if r.failInserts {
		return errors.New("insert failed")
	}
	r.holdings = append(r.holdings, holdings...)
	return nil
}

func (r *fakeRepo) DeleteHoldingsByTypes(ctx context.Context, date time.Time, types []model.AssetType) (int64, error) {
	var kept []model.Holding
	var deleted int64
	for _, h := range r.holdings {
		if h.SnapshotDate.Equal(date) && containsType(types, h.AssetType) {
			deleted++
			continue
		}
		kept = append(kept, h)
	}
	r.holdings = kept
	return deleted, nil
}

func (r *fakeRepo) GetHoldingsByDate(ctx context.Context, date time.Time) ([]model.Holding, error) {
	var res []model.Holding
	for _, h := range r.holdings {
		if h.SnapshotDate.Equal(date) {
			res = append(res, h)
		}
	}
	return res, nil
}

func (r *fakeRepo) GetLatestSnapshotDate(ctx context.Context) (time.Time, error) {
	var latest time.Time
	for _, s := range r.snapshots {
		if s.SnapshotDate.After(latest) {
			latest = s.SnapshotDate
		}
	}
	if latest.IsZero() {
		return time.Time{}, repository.ErrNotFound
	}
	return latest, nil
}

func (r *fakeRepo) UpsertSnapshot(ctx context.Context, snapshot model.Snapshot) error {
	if r.failUpsert {
		return errors.New("upsert failed")
	}
	r.snapshots[dateKey(snapshot.SnapshotDate)] = snapshot
	return nil
}

func (r *fakeRepo) GetSnapshot(ctx context.Context, date time.Time) (model.Snapshot, error) {
	s, ok := r.snapshots[dateKey(date)]
	if !ok {
		return model.Snapshot{}, repository.ErrNotFound
	}
	return s, nil
}

func (r *fakeRepo) GetSnapshots(ctx context.Context, limit int) ([]model.Snapshot, error) {
	res := make([]model.Snapshot, 0, len(r.snapshots))
	for _, s := range r.snapshots {
		res = append(res, s)
	}
	return res, nil
}

func (r *fakeRepo) DeleteSnapshot(ctx context.Context, date time.Time) error {
	var kept []model.Holding
	for _, h := range r.holdings {
		if !h.SnapshotDate.Equal(date) {
			kept = append(kept, h)
		}
	}
	r.holdings = kept
	delete(r.snapshots, dateKey(date))
	return nil
}

func (r *fakeRepo) InsertUploadRecord(ctx context.Context, record model.UploadRecord) error {
	r.uploads = append(r.uploads, record)
	return nil
}

func (r *fakeRepo) GetUploadRecords(ctx context.Context, limit int) ([]model.UploadRecord, error) {
	return r.uploads, nil
}

func containsType(types []model.AssetType, t model.AssetType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

type fakeCache struct {
	overviews map[string]model.PortfolioOverview
}

func newFakeCache() *fakeCache {
	return &fakeCache{overviews: make(map[string]model.PortfolioOverview)}
}

func (c *fakeCache) GetOverview(ctx context.Context, date time.Time) (model.PortfolioOverview, error) {
	o, ok := c.overviews[dateKey(date)]
	if !ok {
		return model.PortfolioOverview{}, cache.ErrCacheMiss
	}
	return o, nil
}

func (c *fakeCache) SetOverview(ctx context.Context, overview model.PortfolioOverview) error {
	c.overviews[dateKey(overview.Snapshot.SnapshotDate)] = overview
	return nil
}

func (c *fakeCache) FlushOverview(ctx context.Context, date time.Time) error {
	delete(c.overviews, dateKey(date))
	return nil
}

type fakeRates struct {
	resolution rateResolver.Resolution
}

func (r *fakeRates) Resolve(ctx context.Context, from, to string) rateResolver.Resolution {
	return r.resolution
}

func testConfig() *config.Config {
	return &config.Config{
		ReportingCurrency: "INR",
		Rates: config.Rates{
			ForeignCurrency: "USD",
			CacheTTL:        5 * time.Minute,
			FallbackRate:    83.0,
		},
	}
}

func newTestService(repo *fakeRepo) (*PortfolioService, *fakeCache) {
	c := newFakeCache()
	rates := &fakeRates{resolution: rateResolver.Resolution{
		Rate:   decimal.NewFromFloat(90.17),
		Origin: rateResolver.OriginLive,
	}}
	return New(testConfig(), repo, c, nil, rates, nil, nil), c
}

func makeHoldings(date time.Time, assetType model.AssetType, count int) []model.Holding {
	holdings := make([]model.Holding, 0, count)
	for i := 0; i < count; i++ {
		invested := decimal.NewFromInt(int64(1000 * (i + 1)))
		current := invested.Mul(decimal.NewFromFloat(1.1))
		holdings = append(holdings, model.Holding{
			SnapshotDate:  date,
			AssetType:     assetType,
			Name:          fmt.Sprintf("%s-%d", assetType, i),
			Units:         decimal.NewFromInt(10),
			AvgPrice:      invested.Div(decimal.NewFromInt(10)),
			InvestedValue: invested,
			CurrentPrice:  current.Div(decimal.NewFromInt(10)),
			CurrentValue:  current,
			UnrealizedPL:  current.Sub(invested),
		})
	}
	return holdings
}

func TestIngestHoldings_SelectiveMerge(t *testing.T) {
	ctx := context.Background()
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	srv, _ := newTestService(repo)

	_, err := srv.IngestHoldings(ctx, date, makeHoldings(date, model.AssetDomesticEquity, 25), []model.AssetType{model.AssetDomesticEquity})
	require.NoError(t, err)

	_, err = srv.IngestHoldings(ctx, date, makeHoldings(date, model.AssetMutualFund, 13), []model.AssetType{model.AssetMutualFund})
	require.NoError(t, err)

	snapshot, err := srv.IngestHoldings(ctx, date, makeHoldings(date, model.AssetForeignEquity, 15), []model.AssetType{model.AssetForeignEquity})
	require.NoError(t, err)

	all, err := repo.GetHoldingsByDate(ctx, date)
	require.NoError(t, err)
	assert.Len(t, all, 53)

	counts := map[model.AssetType]int{}
	for _, h := range all {
		counts[h.AssetType]++
	}
	assert.Equal(t, 25, counts[model.AssetDomesticEquity])
	assert.Equal(t, 13, counts[model.AssetMutualFund])
	assert.Equal(t, 15, counts[model.AssetForeignEquity])

	expected := model.BuildSnapshot(date, all)
	assert.True(t, snapshot.TotalValue.Equal(expected.TotalValue), "snapshot equals aggregate over the full holding set")
	assert.True(t, snapshot.DomesticEquityValue.Equal(expected.DomesticEquityValue))
}

func TestIngestHoldings_ReplaceIsIdempotent(t *testing.T) {
	ctx := context.Background()
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	srv, _ := newTestService(repo)

	holdings := makeHoldings(date, model.AssetDomesticEquity, 25)
	types := []model.AssetType{model.AssetDomesticEquity}

	first, err := srv.IngestHoldings(ctx, date, holdings, types)
	require.NoError(t, err)

	second, err := srv.IngestHoldings(ctx, date, holdings, types)
	require.NoError(t, err)

	all, _ := repo.GetHoldingsByDate(ctx, date)
	assert.Len(t, all, 25, "re-upload replaces, never accumulates")
	assert.True(t, first.TotalValue.Equal(second.TotalValue))
}

func TestIngestHoldings_EmptySetStillDeletes(t *testing.T) {
	ctx := context.Background()
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	srv, _ := newTestService(repo)

	types := []model.AssetType{model.AssetDomesticEquity}
	_, err := srv.IngestHoldings(ctx, date, makeHoldings(date, model.AssetDomesticEquity, 5), types)
	require.NoError(t, err)

	snapshot, err := srv.IngestHoldings(ctx, date, nil, types)
	require.NoError(t, err)

	all, _ := repo.GetHoldingsByDate(ctx, date)
	assert.Empty(t, all, "empty upload is an explicit replace-with-nothing")
	assert.True(t, snapshot.TotalValue.IsZero())
}

func TestIngestHoldings_RollbackOnPersistenceError(t *testing.T) {
	ctx := context.Background()
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	srv, _ := newTestService(repo)

	_, err := srv.IngestHoldings(ctx, date, makeHoldings(date, model.AssetDomesticEquity, 5), []model.AssetType{model.AssetDomesticEquity})
	require.NoError(t, err)

	repo.failUpsert = true
	_, err = srv.IngestHoldings(ctx, date, makeHoldings(date, model.AssetDomesticEquity, 2), []model.AssetType{model.AssetDomesticEquity})
	require.Error(t, err)

	all, _ := repo.GetHoldingsByDate(ctx, date)
	assert.Len(t, all, 5, "failed transaction leaves prior state intact")
}

func TestIngestHoldings_RejectsTypeOutsideReplacedSet(t *testing.T) {
	ctx := context.Background()
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	srv, _ := newTestService(repo)

	cryptoHoldings := makeHoldings(date, model.AssetCrypto, 2)
	types := []model.AssetType{model.AssetDomesticEquity}

	_, err := srv.IngestHoldings(ctx, date, cryptoHoldings, types)
	require.Error(t, err, "a holding outside the replaced types must be rejected")

	_, err = srv.IngestHoldings(ctx, date, cryptoHoldings, types)
	require.Error(t, err)

	all, _ := repo.GetHoldingsByDate(ctx, date)
	assert.Empty(t, all, "rejected uploads must not accumulate holdings")
}

func TestIngestHoldings_RejectsMismatchedDate(t *testing.T) {
	ctx := context.Background()
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	srv, _ := newTestService(repo)

	holdings := makeHoldings(date.AddDate(0, 0, 1), model.AssetCrypto, 1)
	_, err := srv.IngestHoldings(ctx, date, holdings, []model.AssetType{model.AssetCrypto})
	assert.Error(t, err)
}

func foreignStatement(t *testing.T) io.Reader {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetName("Sheet1", "User Details"))
	require.NoError(t, f.SetSheetRow("User Details", "A1", &[]any{"Period", "2024-01-01 to 2024-03-15"}))

	_, err := f.NewSheet("Unrealized P&L - Summary ")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Unrealized P&L - Summary ", "A1",
		&[]any{"Security", "Quantity", "Cost Basis (USD)", "Market Value (USD)", "Profit/Loss (USD)", "Profit/Loss (%)", "Market Price (USD)"}))
	require.NoError(t, f.SetSheetRow("Unrealized P&L - Summary ", "A2",
		&[]any{"AAPL", "5", "750.00", "850.00", "100.00", "13.33", "170.00"}))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	return bytes.NewReader(buf.Bytes())
}

func TestIngestStatement_ForeignEquity(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	srv, _ := newTestService(repo)

	res, err := srv.IngestStatement(ctx, model.SourceUSStocks, "us_statement.xlsx", foreignStatement(t))
	require.NoError(t, err)

	assert.Equal(t, model.AssetForeignEquity, res.AssetType)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), res.SnapshotDate)
	assert.Equal(t, 1, res.Accepted)
	assert.Equal(t, 0, res.Rejected)
	assert.Equal(t, string(rateResolver.OriginLive), res.RateOrigin)

	all, _ := repo.GetHoldingsByDate(ctx, res.SnapshotDate)
	require.Len(t, all, 1)
	assert.True(t, all[0].InvestedValue.Equal(decimal.NewFromFloat(67627.50)), "values converted into the reporting currency")
	assert.True(t, all[0].CurrentValue.Equal(decimal.NewFromFloat(76644.50)))

	require.Len(t, repo.uploads, 1)
	record := repo.uploads[0]
	assert.Equal(t, model.UploadStatusSuccess, record.Status)
	assert.Equal(t, 1, record.RowCount)
	require.NotNil(t, record.SnapshotDate)
	assert.Nil(t, record.FailureReason)
}

func TestIngestStatement_FormatErrorRecordsFailure(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	srv, _ := newTestService(repo)

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"nothing useful"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = srv.IngestStatement(ctx, model.SourceUSStocks, "broken.xlsx", bytes.NewReader(buf.Bytes()))
	require.Error(t, err)

	assert.Empty(t, repo.holdings, "failed ingestion commits nothing")
	require.Len(t, repo.uploads, 1)
	record := repo.uploads[0]
	assert.Equal(t, model.UploadStatusFailed, record.Status)
	require.NotNil(t, record.FailureReason)
	assert.NotEmpty(t, *record.FailureReason)
}

func TestIngestStatement_UnknownSource(t *testing.T) {
	repo := newFakeRepo()
	srv, _ := newTestService(repo)

	_, err := srv.IngestStatement(context.Background(), model.StatementSource("bonds"), "bonds.xlsx", bytes.NewReader(nil))
	assert.Error(t, err)
}

func TestGetPortfolioOverview_LatestDate(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	srv, _ := newTestService(repo)

	older := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	_, err := srv.IngestHoldings(ctx, older, makeHoldings(older, model.AssetDomesticEquity, 2), []model.AssetType{model.AssetDomesticEquity})
	require.NoError(t, err)
	_, err = srv.IngestHoldings(ctx, newer, makeHoldings(newer, model.AssetDomesticEquity, 3), []model.AssetType{model.AssetDomesticEquity})
	require.NoError(t, err)

	overview, err := srv.GetPortfolioOverview(ctx, nil)
	require.NoError(t, err)

	assert.Equal(t, newer, overview.Snapshot.SnapshotDate)
	assert.Len(t, overview.Holdings, 3)
}

func TestGetPortfolioOverview_NoSnapshots(t *testing.T) {
	repo := newFakeRepo()
	srv, _ := newTestService(repo)

	_, err := srv.GetPortfolioOverview(context.Background(), nil)
	assert.Error(t, err)
}

func TestDeleteSnapshot(t *testing.T) {
	ctx := context.Background()
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	srv, _ := newTestService(repo)

	_, err := srv.IngestHoldings(ctx, date, makeHoldings(date, model.AssetDomesticEquity, 3), []model.AssetType{model.AssetDomesticEquity})
	require.NoError(t, err)

	require.NoError(t, srv.DeleteSnapshot(ctx, date))

	all, _ := repo.GetHoldingsByDate(ctx, date)
	assert.Empty(t, all)
	_, err = repo.GetSnapshot(ctx, date)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
