package model

import "time"

// TransferRecord is a completed send as kept in the transaction history.
type TransferRecord struct {
	ID          string
	Owner       string
	Recipient   string
	Asset       Asset
	Mode        Mode
	AmountE8s   uint64
	BlockHeight *uint64
	RecordedAt  time.Time
}
