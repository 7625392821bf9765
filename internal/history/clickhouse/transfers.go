package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/goodnatureofminers/icwallet/internal/model"
)

// InsertRecords stores transfer records. Re-inserting a record with the same
// id replaces it on merge.
func (r *Repository) InsertRecords(ctx context.Context, records []model.TransferRecord) error {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("insert_records", len(records), err, start)
	}()

	if len(records) == 0 {
		return nil
	}

	const query = `
INSERT INTO wallet_transfers (
	id,
	owner,
	recipient,
	asset,
	mode,
	amount_e8s,
	block_height,
	recorded_at
) VALUES`

	batch, err := r.conn.PrepareBatch(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare records batch: %w", err)
	}

	for _, rec := range records {
		if err = batch.Append(
			rec.ID,
			rec.Owner,
			rec.Recipient,
			string(rec.Asset),
			string(rec.Mode),
			rec.AmountE8s,
			rec.BlockHeight,
			rec.RecordedAt,
		); err != nil {
			return fmt.Errorf("append record: %w", err)
		}
	}

	if err = batch.Send(); err != nil {
		return fmt.Errorf("insert records: %w", err)
	}
	return nil
}

// Records returns the latest limit records sent by owner, newest first.
func (r *Repository) Records(ctx context.Context, owner string, limit int) ([]model.TransferRecord, error) {
	start := time.Now()
	var (
		err     error
		records []model.TransferRecord
	)
	defer func() {
		r.metrics.Observe("records", len(records), err, start)
	}()

	if limit <= 0 {
		return nil, nil
	}

	const query = `
SELECT
	id,
	recipient,
	asset,
	mode,
	amount_e8s,
	block_height,
	recorded_at
FROM wallet_transfers FINAL
WHERE owner = ?
ORDER BY recorded_at DESC, id ASC
LIMIT ?`

	rows, err := r.conn.Query(ctx, query, owner, limit)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close rows: %w", cerr)
		}
	}()

	for rows.Next() {
		var (
			rec   model.TransferRecord
			asset string
			mode  string
		)
		rec.Owner = owner
		if err = rows.Scan(
			&rec.ID,
			&rec.Recipient,
			&asset,
			&mode,
			&rec.AmountE8s,
			&rec.BlockHeight,
			&rec.RecordedAt,
		); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.Asset, rec.Mode = model.Asset(asset), model.Mode(mode)
		records = append(records, rec)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}

	return records, nil
}
