// Package history keeps the record of completed sends.
package history

import (
	"context"
	"fmt"

	"github.com/goodnatureofminers/icwallet/internal/model"
	"go.uber.org/zap"
)

// Mirror records a send with the application backend and, when an archive is
// configured, queues a copy for it. The backend result decides the outcome.
type Mirror struct {
	backend Backend
	archive Archiver
	logger  *zap.Logger
}

// NewMirror returns a Mirror; archive may be nil.
func NewMirror(backend Backend, archive Archiver, logger *zap.Logger) *Mirror {
	return &Mirror{backend: backend, archive: archive, logger: logger.Named("history")}
}

func (m *Mirror) Record(ctx context.Context, rec model.TransferRecord) error {
	err := m.backend.Record(ctx, rec)
	if m.archive != nil {
		if aerr := m.archive.Add(ctx, rec); aerr != nil {
			m.logger.Warn("archive enqueue failed", zap.String("id", rec.ID), zap.Error(aerr))
		}
	}
	if err != nil {
		return fmt.Errorf("record transfer %s: %w", rec.ID, err)
	}
	return nil
}
