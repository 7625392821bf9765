package history

import (
	"context"

	"github.com/goodnatureofminers/icwallet/internal/model"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	Backend interface {
		Record(ctx context.Context, rec model.TransferRecord) error
	}

	Store interface {
		InsertRecords(ctx context.Context, records []model.TransferRecord) error
		Records(ctx context.Context, owner string, limit int) ([]model.TransferRecord, error)
	}

	Archiver interface {
		Add(ctx context.Context, rec model.TransferRecord) error
	}
)
