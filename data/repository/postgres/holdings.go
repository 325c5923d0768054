package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/arjundixit/portfolio_tracker/data/repository"
	"github.com/arjundixit/portfolio_tracker/internal/converter/dbConverter"
	"github.com/arjundixit/portfolio_tracker/internal/model"
	"github.com/arjundixit/portfolio_tracker/internal/model/dbModel"
	"github.com/arjundixit/portfolio_tracker/utils"
	"github.com/jmoiron/sqlx"
)

const holdingCols = 12

func (r *Postgres) InsertHoldings(ctx context.Context, holdings []model.Holding) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.InsertHoldings"

	if len(holdings) == 0 {
		return nil
	}

	slog.Debug("InsertHoldings start", slog.String("rqID", rqID), slog.String("op", op), slog.Int("count", len(holdings)))
	defer func() {
		if err != nil {
			slog.Error("InsertHoldings failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertHoldings completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	sb := strings.Builder{}
	args := make([]any, 0, len(holdings)*holdingCols)

	sb.WriteString(`
		INSERT INTO holdings (
			snapshot_date, asset_type, name, symbol, external_id, units,
			avg_price, invested_value, current_price, current_value,
			unrealized_pl, unrealized_pl_pct
		) VALUES `)

	for i, h := range holdings {
		args = append(args,
			h.SnapshotDate, string(h.AssetType), h.Name, h.Symbol, h.ExternalID, h.Units,
			h.AvgPrice, h.InvestedValue, h.CurrentPrice, h.CurrentValue,
			h.UnrealizedPL, h.UnrealizedPLPct,
		)

		start := i*holdingCols + 1
		sb.WriteString("(")
		for j := 0; j < holdingCols; j++ {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(fmt.Sprintf("$%d", start+j))
		}
		sb.WriteString(")")

		if i < len(holdings)-1 {
			sb.WriteString(",")
		}
	}

	_, err = r.txOrDb(ctx).ExecContext(ctx, sb.String(), args...)
	return err
}

func (r *Postgres) DeleteHoldingsByTypes(ctx context.Context, date time.Time, types []model.AssetType) (deleted int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.DeleteHoldingsByTypes"

	slog.Debug("DeleteHoldingsByTypes start", slog.String("rqID", rqID), slog.String("op", op), slog.Time("date", date), slog.Any("types", types))
	defer func() {
		if err != nil {
			slog.Error("DeleteHoldingsByTypes failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("DeleteHoldingsByTypes completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("deleted", deleted))
		}
	}()

	if len(types) == 0 {
		return 0, nil
	}

	typeStrs := make([]string, 0, len(types))
	for _, t := range types {
		typeStrs = append(typeStrs, string(t))
	}

	query, args, err := sqlx.In(`DELETE FROM holdings WHERE snapshot_date = ? AND asset_type IN (?)`, date, typeStrs)
	if err != nil {
		return 0, err
	}

	q := r.txOrDb(ctx)
	res, err := q.ExecContext(ctx, q.Rebind(query), args...)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

func (r *Postgres) GetHoldingsByDate(ctx context.Context, date time.Time) (holdings []model.Holding, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetHoldingsByDate"
	query := `
		SELECT holding_id, snapshot_date, asset_type, name, symbol, external_id, units,
			avg_price, invested_value, current_price, current_value,
			unrealized_pl, unrealized_pl_pct
		FROM holdings
		WHERE snapshot_date = $1
		ORDER BY asset_type, name
		`

	slog.Debug("GetHoldingsByDate start", slog.String("rqID", rqID), slog.String("op", op), slog.Time("date", date))
	defer func() {
		if err != nil {
			slog.Error("GetHoldingsByDate failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetHoldingsByDate completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int("count", len(holdings)))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query, date)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var h dbModel.Holding
		err = rows.StructScan(&h)
		if err != nil {
			return nil, err
		}
		holdings = append(holdings, dbConverter.ConvertHolding(h))
	}

	return holdings, nil
}

func (r *Postgres) GetLatestSnapshotDate(ctx context.Context) (date time.Time, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetLatestSnapshotDate"
	query := `SELECT max(snapshot_date) FROM snapshots`

	slog.Debug("GetLatestSnapshotDate start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			slog.Error("GetLatestSnapshotDate failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetLatestSnapshotDate completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	var latest sql.NullTime
	err = r.txOrDb(ctx).QueryRowContext(ctx, query).Scan(&latest)
	if err != nil {
		return time.Time{}, err
	}

	if !latest.Valid {
		return time.Time{}, repository.ErrNotFound
	}

	return latest.Time, nil
}

func (r *Postgres) UpsertSnapshot(ctx context.Context, snapshot model.Snapshot) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.UpsertSnapshot"
	query := `
		INSERT INTO snapshots (
			snapshot_date, total_value, domestic_equity_value, foreign_equity_value,
			fund_value, crypto_value, total_invested, total_pl, total_pl_pct,
			benchmark_nifty, benchmark_sensex
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (snapshot_date) DO UPDATE SET
			total_value = EXCLUDED.total_value,
			domestic_equity_value = EXCLUDED.domestic_equity_value,
			foreign_equity_value = EXCLUDED.foreign_equity_value,
			fund_value = EXCLUDED.fund_value,
			crypto_value = EXCLUDED.crypto_value,
			total_invested = EXCLUDED.total_invested,
			total_pl = EXCLUDED.total_pl,
			total_pl_pct = EXCLUDED.total_pl_pct,
			benchmark_nifty = EXCLUDED.benchmark_nifty,
			benchmark_sensex = EXCLUDED.benchmark_sensex
		`

	slog.Debug("UpsertSnapshot start", slog.String("rqID", rqID), slog.String("op", op), slog.Time("date", snapshot.SnapshotDate))
	defer func() {
		if err != nil {
			slog.Error("UpsertSnapshot failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpsertSnapshot completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(
		ctx,
		query,
		snapshot.SnapshotDate,
		snapshot.TotalValue,
		snapshot.DomesticEquityValue,
		snapshot.ForeignEquityValue,
		snapshot.FundValue,
		snapshot.CryptoValue,
		snapshot.TotalInvested,
		snapshot.TotalPL,
		snapshot.TotalPLPct,
		snapshot.BenchmarkNifty,
		snapshot.BenchmarkSensex,
	)

	return err
}

func (r *Postgres) GetSnapshot(ctx context.Context, date time.Time) (snapshot model.Snapshot, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetSnapshot"
	query := `
		SELECT snapshot_date, total_value, domestic_equity_value, foreign_equity_value,
			fund_value, crypto_value, total_invested, total_pl, total_pl_pct,
			benchmark_nifty, benchmark_sensex
		FROM snapshots
		WHERE snapshot_date = $1
		`

	slog.Debug("GetSnapshot start", slog.String("rqID", rqID), slog.String("op", op), slog.Time("date", date))
	defer func() {
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			slog.Error("GetSnapshot failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetSnapshot completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	dbSnapshot := dbModel.Snapshot{}
	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, date).StructScan(&dbSnapshot)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Snapshot{}, repository.ErrNotFound
		}
		return model.Snapshot{}, err
	}

	return dbConverter.ConvertSnapshot(dbSnapshot), nil
}

func (r *Postgres) GetSnapshots(ctx context.Context, limit int) (snapshots []model.Snapshot, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetSnapshots"
	query := `
		SELECT snapshot_date, total_value, domestic_equity_value, foreign_equity_value,
			fund_value, crypto_value, total_invested, total_pl, total_pl_pct,
			benchmark_nifty, benchmark_sensex
		FROM snapshots
		ORDER BY snapshot_date DESC
		LIMIT $1
		`

	slog.Debug("GetSnapshots start", slog.String("rqID", rqID), slog.String("op", op), slog.Int("limit", limit))
	defer func() {
		if err != nil {
			slog.Error("GetSnapshots failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetSnapshots completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int("count", len(snapshots)))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	snapshots = make([]model.Snapshot, 0, limit)
	for rows.Next() {
		var s dbModel.Snapshot
		err = rows.StructScan(&s)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, dbConverter.ConvertSnapshot(s))
	}

	return snapshots, nil
}

func (r *Postgres) DeleteSnapshot(ctx context.Context, date time.Time) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.DeleteSnapshot"

	slog.Debug("DeleteSnapshot start", slog.String("rqID", rqID), slog.String("op", op), slog.Time("date", date))
	defer func() {
		if err != nil {
			slog.Error("DeleteSnapshot failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("DeleteSnapshot completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	q := r.txOrDb(ctx)

	_, err = q.ExecContext(ctx, `DELETE FROM holdings WHERE snapshot_date = $1`, date)
	if err != nil {
		return err
	}

	_, err = q.ExecContext(ctx, `DELETE FROM snapshots WHERE snapshot_date = $1`, date)
	return err
}

func (r *Postgres) InsertUploadRecord(ctx context.Context, record model.UploadRecord) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.InsertUploadRecord"
	query := `
		INSERT INTO upload_records(uploaded_at, snapshot_date, filename, asset_type, row_count, status, failure_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		`

	slog.Debug("InsertUploadRecord start", slog.String("rqID", rqID), slog.String("op", op), slog.String("filename", record.Filename))
	defer func() {
		if err != nil {
			slog.Error("InsertUploadRecord failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertUploadRecord completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(
		ctx,
		query,
		record.UploadedAt,
		record.SnapshotDate,
		record.Filename,
		string(record.AssetType),
		record.RowCount,
		record.Status,
		record.FailureReason,
	)

	return err
}

func (r *Postgres) GetUploadRecords(ctx context.Context, limit int) (records []model.UploadRecord, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetUploadRecords"
	query := `
		SELECT upload_id, uploaded_at, snapshot_date, filename, asset_type, row_count, status, failure_reason
		FROM upload_records
		ORDER BY uploaded_at DESC
		LIMIT $1
		`

	slog.Debug("GetUploadRecords start", slog.String("rqID", rqID), slog.String("op", op), slog.Int("limit", limit))
	defer func() {
		if err != nil {
			slog.Error("GetUploadRecords failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetUploadRecords completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int("count", len(records)))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	records = make([]model.UploadRecord, 0, limit)
	for rows.Next() {
		var rec dbModel.UploadRecord
		err = rows.StructScan(&rec)
		if err != nil {
			return nil, err
		}
		records = append(records, dbConverter.ConvertUploadRecord(rec))
	}

	return records, nil
}
