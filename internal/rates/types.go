package rates

import "context"

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	// Source produces a fresh rate table.
	Source interface {
		Fetch(ctx context.Context) (Table, error)
	}

	// TickProvider returns the raw market tick JSON document.
	TickProvider interface {
		CurrentRates(ctx context.Context) (string, error)
	}

	Metrics interface {
		ObserveRefresh(err error)
	}
)
