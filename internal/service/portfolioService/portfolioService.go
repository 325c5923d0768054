package portfolioService

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/arjundixit/portfolio_tracker/config"
	"github.com/arjundixit/portfolio_tracker/data/cache"
	"github.com/arjundixit/portfolio_tracker/data/repository"
	"github.com/arjundixit/portfolio_tracker/internal/fx/rateResolver"
	"github.com/arjundixit/portfolio_tracker/internal/model"
	"github.com/arjundixit/portfolio_tracker/internal/model/yahooModel"
	"github.com/arjundixit/portfolio_tracker/internal/parser/statementParser"
	"github.com/arjundixit/portfolio_tracker/internal/service"
	"github.com/arjundixit/portfolio_tracker/internal/standardizer"
	"github.com/arjundixit/portfolio_tracker/utils"
)

const (
	niftySymbol  = "^NSEI"
	sensexSymbol = "^BSESN"

	snapshotsDefaultLimit = 50
)

type Repository interface {
	WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error
	InsertHoldings(ctx context.Context, holdings []model.Holding) error
	DeleteHoldingsByTypes(ctx context.Context, date time.Time, types []model.AssetType) (int64, error)
	GetHoldingsByDate(ctx context.Context, date time.Time) ([]model.Holding, error)
	GetLatestSnapshotDate(ctx context.Context) (time.Time, error)
	UpsertSnapshot(ctx context.Context, snapshot model.Snapshot) error
	GetSnapshot(ctx context.Context, date time.Time) (model.Snapshot, error)
	GetSnapshots(ctx context.Context, limit int) ([]model.Snapshot, error)
	DeleteSnapshot(ctx context.Context, date time.Time) error
	InsertUploadRecord(ctx context.Context, record model.UploadRecord) error
	GetUploadRecords(ctx context.Context, limit int) ([]model.UploadRecord, error)
}

type Cache interface {
	GetOverview(ctx context.Context, date time.Time) (model.PortfolioOverview, error)
	SetOverview(ctx context.Context, overview model.PortfolioOverview) error
	FlushOverview(ctx context.Context, date time.Time) error
}

type MarketApi interface {
	GetQuote(ctx context.Context, symbol string) (yahooModel.Quote, error)
}

type RateResolver interface {
	Resolve(ctx context.Context, from, to string) rateResolver.Resolution
}

type ReportGenerator interface {
	Generate(ctx context.Context, overview model.PortfolioOverview) (content []byte, ext string, err error)
}

type CloudStorage interface {
	UploadFile(ctx context.Context, reader io.Reader, filename string) (downloadLink string, err error)
	DeleteOldFiles(ctx context.Context) error
}

type PortfolioService struct {
	cfg          *config.Config
	repo         Repository
	cache        Cache
	marketApi    MarketApi
	rateResolver RateResolver
	reportGen    ReportGenerator
	cloudStorage CloudStorage
}

func New(
	cfg *config.Config,
	repo Repository,
	cache Cache,
	marketApi MarketApi,
	rates RateResolver,
	reportGen ReportGenerator,
	cloudStorage CloudStorage,
) *PortfolioService {
	return &PortfolioService{
		cfg:          cfg,
		repo:         repo,
		cache:        cache,
		marketApi:    marketApi,
		rateResolver: rates,
		reportGen:    reportGen,
		cloudStorage: cloudStorage,
	}
}

// IngestStatement runs the full pipeline for one uploaded statement file:
// parse, normalize currency, standardize, reconcile into the date's snapshot.
// Every attempt leaves an audit row behind, including failed ones.
func (s *PortfolioService) IngestStatement(ctx context.Context, source model.StatementSource, filename string, r io.Reader) (res model.IngestResult, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.IngestStatement"

	slog.Info("IngestStatement start", slog.String("rqID", rqID), slog.String("op", op), slog.String("source", string(source)), slog.String("filename", filename))
	defer func() {
		s.recordUpload(context.WithoutCancel(ctx), source, filename, res, err)
		if err != nil {
			slog.Error("IngestStatement failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("filename", filename), slog.String("err", err.Error()))
		} else {
			slog.Info(
				"IngestStatement completed",
				slog.String("rqID", rqID),
				slog.String("op", op),
				slog.String("filename", filename),
				slog.Time("snapshotDate", res.SnapshotDate),
				slog.Int("accepted", res.Accepted),
				slog.Int("rejected", res.Rejected),
				slog.String("rateOrigin", res.RateOrigin),
			)
		}
	}()

	assetType := source.AssetType()
	if assetType == "" {
		return model.IngestResult{}, service.ErrUnknownSource
	}
	res.AssetType = assetType

	parsed, err := s.parse(ctx, source, r)
	if err != nil {
		return res, err
	}
	res.SnapshotDate = parsed.SnapshotDate
	res.Rejected = parsed.Rejected

	rows := parsed.Rows
	if assetType == model.AssetForeignEquity {
		resolution := s.rateResolver.Resolve(ctx, s.cfg.Rates.ForeignCurrency, s.cfg.ReportingCurrency)
		res.RateOrigin = string(resolution.Origin)
		for i := range rows {
			rows[i] = standardizer.ConvertCurrency(rows[i], resolution.Rate)
		}
	}

	holdings, rejected := standardizer.Standardize(parsed.SnapshotDate, rows, assetType)
	res.Rejected += rejected
	res.Accepted = len(holdings)

	snapshot, err := s.reconcile(ctx, parsed.SnapshotDate, holdings, []model.AssetType{assetType})
	if err != nil {
		return res, err
	}
	res.Snapshot = snapshot

	return res, nil
}

// IngestHoldings reconciles already-standardized holdings, all of one date.
// This is the entry point for sources with no statement file, e.g. crypto
// balances collected elsewhere.
func (s *PortfolioService) IngestHoldings(ctx context.Context, date time.Time, holdings []model.Holding, types []model.AssetType) (model.Snapshot, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.IngestHoldings"

	slog.Info("IngestHoldings start", slog.String("rqID", rqID), slog.String("op", op), slog.Time("date", date), slog.Int("count", len(holdings)))

	for _, t := range types {
		if !t.Valid() {
			return model.Snapshot{}, service.ErrInvalidAssetType
		}
	}

	for _, h := range holdings {
		if !h.SnapshotDate.Equal(date) {
			return model.Snapshot{}, fmt.Errorf("holding %q has snapshot date %s, expected %s", h.Name, h.SnapshotDate.Format(time.DateOnly), date.Format(time.DateOnly))
		}
		// a holding outside the replaced types would survive its own re-upload
		// and accumulate, so reject the mismatch up front
		if !typeTargeted(types, h.AssetType) {
			return model.Snapshot{}, fmt.Errorf("holding %q has asset type %s outside the replaced types", h.Name, h.AssetType)
		}
	}

	snapshot, err := s.reconcile(ctx, date, holdings, types)
	if err != nil {
		slog.Error("IngestHoldings failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Snapshot{}, err
	}

	slog.Info("IngestHoldings completed", slog.String("rqID", rqID), slog.String("op", op), slog.Time("date", date))

	return snapshot, nil
}

// reconcile is the selective-merge core: within one transaction it replaces
// the date's holdings of the touched asset types, leaves every other type in
// place and recomputes the snapshot aggregate from the full remaining set.
func (s *PortfolioService) reconcile(ctx context.Context, date time.Time, newHoldings []model.Holding, types []model.AssetType) (snapshot model.Snapshot, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.reconcile"

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		deleted, err := s.repo.DeleteHoldingsByTypes(ctx, date, types)
		if err != nil {
			return fmt.Errorf("delete holdings: %w", err)
		}
		slog.Debug("replaced holdings", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("deleted", deleted), slog.Int("inserted", len(newHoldings)))

		if err = s.repo.InsertHoldings(ctx, newHoldings); err != nil {
			return fmt.Errorf("insert holdings: %w", err)
		}

		allHoldings, err := s.repo.GetHoldingsByDate(ctx, date)
		if err != nil {
			return fmt.Errorf("get holdings: %w", err)
		}

		snapshot = model.BuildSnapshot(date, allHoldings)
		s.attachBenchmarks(ctx, &snapshot)

		if err = s.repo.UpsertSnapshot(ctx, snapshot); err != nil {
			return fmt.Errorf("upsert snapshot: %w", err)
		}

		return nil
	})
	if err != nil {
		return model.Snapshot{}, err
	}

	if cacheErr := s.cache.FlushOverview(context.WithoutCancel(ctx), date); cacheErr != nil {
		slog.Warn("failed to flush overview cache", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", cacheErr.Error()))
	}

	return snapshot, nil
}

// attachBenchmarks fills the index levels when quotes are reachable. Missing
// quotes leave the fields nil, never fail the ingestion.
func (s *PortfolioService) attachBenchmarks(ctx context.Context, snapshot *model.Snapshot) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	if s.marketApi == nil {
		return
	}

	if quote, err := s.marketApi.GetQuote(ctx, niftySymbol); err == nil {
		snapshot.BenchmarkNifty = &quote.Price
	} else {
		slog.Warn("nifty quote unavailable", slog.String("rqID", rqID), slog.String("err", err.Error()))
	}

	if quote, err := s.marketApi.GetQuote(ctx, sensexSymbol); err == nil {
		snapshot.BenchmarkSensex = &quote.Price
	} else {
		slog.Warn("sensex quote unavailable", slog.String("rqID", rqID), slog.String("err", err.Error()))
	}
}

func typeTargeted(types []model.AssetType, t model.AssetType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

func (s *PortfolioService) parse(ctx context.Context, source model.StatementSource, r io.Reader) (statementParser.Result, error) {
	switch source {
	case model.SourceStocks:
		return statementParser.ParseDomesticEquity(ctx, r)
	case model.SourceMutualFunds:
		return statementParser.ParseMutualFund(ctx, r)
	case model.SourceUSStocks:
		return statementParser.ParseForeignEquity(ctx, r)
	}
	return statementParser.Result{}, service.ErrUnknownSource
}

func (s *PortfolioService) recordUpload(ctx context.Context, source model.StatementSource, filename string, res model.IngestResult, ingestErr error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	record := model.UploadRecord{
		UploadedAt: time.Now().UTC(),
		Filename:   filename,
		AssetType:  source.AssetType(),
		RowCount:   res.Accepted,
		Status:     model.UploadStatusSuccess,
	}

	if !res.SnapshotDate.IsZero() {
		date := res.SnapshotDate
		record.SnapshotDate = &date
	}

	if ingestErr != nil {
		record.Status = model.UploadStatusFailed
		reason := ingestErr.Error()
		record.FailureReason = &reason
	}

	if err := s.repo.InsertUploadRecord(ctx, record); err != nil {
		slog.Error("failed to insert upload record", slog.String("rqID", rqID), slog.String("filename", filename), slog.String("err", err.Error()))
	}
}

// GetPortfolioOverview returns the snapshot and holdings for date, or for the
// latest stored date when date is nil.
func (s *PortfolioService) GetPortfolioOverview(ctx context.Context, date *time.Time) (overview model.PortfolioOverview, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GetPortfolioOverview"

	slog.Debug("GetPortfolioOverview start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		if err != nil && !errors.Is(err, service.ErrNotFound) && !errors.Is(err, service.ErrNoSnapshots) {
			slog.Error("GetPortfolioOverview failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetPortfolioOverview finished", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	var target time.Time
	if date != nil {
		target = *date
	} else {
		target, err = s.repo.GetLatestSnapshotDate(ctx)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return model.PortfolioOverview{}, service.ErrNoSnapshots
			}
			return model.PortfolioOverview{}, err
		}
	}

	overview, err = s.cache.GetOverview(ctx, target)
	if err == nil {
		return overview, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		slog.Warn("overview cache read failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	snapshot, err := s.repo.GetSnapshot(ctx, target)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.PortfolioOverview{}, service.ErrNotFound
		}
		return model.PortfolioOverview{}, err
	}

	holdings, err := s.repo.GetHoldingsByDate(ctx, target)
	if err != nil {
		return model.PortfolioOverview{}, err
	}

	overview = model.PortfolioOverview{Snapshot: snapshot, Holdings: holdings}

	go func() {
		if cacheErr := s.cache.SetOverview(context.WithoutCancel(ctx), overview); cacheErr != nil {
			slog.Warn("overview cache write failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", cacheErr.Error()))
		}
	}()

	return overview, nil
}

func (s *PortfolioService) GetSnapshots(ctx context.Context, limit int) ([]model.Snapshot, error) {
	if limit <= 0 {
		limit = snapshotsDefaultLimit
	}
	return s.repo.GetSnapshots(ctx, limit)
}

func (s *PortfolioService) GetUploadRecords(ctx context.Context, limit int) ([]model.UploadRecord, error) {
	if limit <= 0 {
		limit = snapshotsDefaultLimit
	}
	return s.repo.GetUploadRecords(ctx, limit)
}

// DeleteSnapshot removes a date entirely: holdings and the aggregate row.
func (s *PortfolioService) DeleteSnapshot(ctx context.Context, date time.Time) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.DeleteSnapshot"

	slog.Info("DeleteSnapshot start", slog.String("rqID", rqID), slog.String("op", op), slog.Time("date", date))
	defer func() {
		if err != nil {
			slog.Error("DeleteSnapshot failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Info("DeleteSnapshot completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		return s.repo.DeleteSnapshot(ctx, date)
	})
	if err != nil {
		return err
	}

	if cacheErr := s.cache.FlushOverview(context.WithoutCancel(ctx), date); cacheErr != nil {
		slog.Warn("failed to flush overview cache", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", cacheErr.Error()))
	}

	return nil
}

// ExportLatestReport renders the latest overview to a workbook and pushes it
// to cloud storage when that is configured.
func (s *PortfolioService) ExportLatestReport(ctx context.Context) error {
	return s.ExportReport(ctx, nil)
}

func (s *PortfolioService) ExportReport(ctx context.Context, date *time.Time) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.ExportReport"

	slog.Info("ExportReport start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		if err != nil {
			slog.Error("ExportReport failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Info("ExportReport completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	overview, err := s.GetPortfolioOverview(ctx, date)
	if err != nil {
		return err
	}

	content, ext, err := s.reportGen.Generate(ctx, overview)
	if err != nil {
		return fmt.Errorf("generate report: %w", err)
	}

	if s.cloudStorage == nil {
		slog.Info("cloud storage disabled, skipping report upload", slog.String("rqID", rqID), slog.String("op", op))
		return nil
	}

	filename := fmt.Sprintf("portfolio_report_%s%s", overview.Snapshot.SnapshotDate.Format(time.DateOnly), ext)
	downloadLink, err := s.cloudStorage.UploadFile(ctx, bytes.NewReader(content), filename)
	if err != nil {
		return fmt.Errorf("upload report: %w", err)
	}
	slog.Info("report uploaded", slog.String("rqID", rqID), slog.String("op", op), slog.String("downloadLink", downloadLink))

	if err = s.cloudStorage.DeleteOldFiles(ctx); err != nil {
		slog.Warn("failed to clean old report files", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	return nil
}
