package history

import (
	"context"

	"github.com/goodnatureofminers/icwallet/internal/model"
	"github.com/goodnatureofminers/icwallet/pkg/batcher"
	"go.uber.org/zap"
)

// Archive writes records to a Store in batches.
type Archive struct {
	store   Store
	batcher *batcher.Batcher[model.TransferRecord]
	logger  *zap.Logger
}

func NewArchive(store Store, cfg batcher.Config, logger *zap.Logger) *Archive {
	logger = logger.Named("archive")
	a := &Archive{store: store, logger: logger}
	a.batcher = batcher.New(logger, cfg, store.InsertRecords, a.dropped)
	return a
}

// Start runs the flush loop until ctx is done or Stop is called.
func (a *Archive) Start(ctx context.Context) {
	a.batcher.Start(ctx)
}

// Stop flushes queued records and waits for the loop to exit.
func (a *Archive) Stop() {
	a.batcher.Stop()
}

func (a *Archive) Add(ctx context.Context, rec model.TransferRecord) error {
	return a.batcher.Add(ctx, rec)
}

// Records returns the newest limit archived records of owner.
func (a *Archive) Records(ctx context.Context, owner string, limit int) ([]model.TransferRecord, error) {
	return a.store.Records(ctx, owner, limit)
}

func (a *Archive) dropped(records []model.TransferRecord, err error) {
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	a.logger.Error("archive batch dropped", zap.Strings("ids", ids), zap.Error(err))
}
