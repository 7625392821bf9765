package transport

import (
	"time"

	"github.com/goodnatureofminers/icwallet/internal/backend"
	"github.com/goodnatureofminers/icwallet/internal/balance"
	"github.com/goodnatureofminers/icwallet/internal/bridge"
	"github.com/goodnatureofminers/icwallet/internal/model"
	"github.com/goodnatureofminers/icwallet/internal/transfer"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type healthResponse struct {
	Status        string `json:"status"`
	SignedIn      bool   `json:"signed_in"`
	BitcoinBridge bool   `json:"bitcoin_bridge"`
}

type accountResponse struct {
	Principal string `json:"principal"`
	AccountID string `json:"account_id"`
}

type assetBalance struct {
	Asset     model.Asset `json:"asset"`
	AmountE8s *uint64     `json:"amount_e8s,omitempty"`
	Amount    string      `json:"amount,omitempty"`
	USD       *float64    `json:"usd,omitempty"`
	Error     string      `json:"error,omitempty"`
}

type balancesResponse struct {
	Owner       string         `json:"owner"`
	Balances    []assetBalance `json:"balances"`
	TotalUSD    float64        `json:"total_usd"`
	Gaps        []model.Asset  `json:"gaps,omitempty"`
	Unavailable []model.Asset  `json:"unavailable,omitempty"`
	RatesError  string         `json:"rates_error,omitempty"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func newBalancesResponse(s balance.Snapshot) balancesResponse {
	resp := balancesResponse{
		Owner:       s.Balances.Owner.String(),
		Balances:    make([]assetBalance, 0, len(s.Balances.Results)),
		TotalUSD:    s.Valuation.TotalUSD,
		Gaps:        s.Valuation.Gaps,
		Unavailable: s.Valuation.Unavailable,
		UpdatedAt:   s.UpdatedAt,
	}
	if s.RatesErr != nil {
		resp.RatesError = s.RatesErr.Error()
	}
	for _, r := range s.Balances.Results {
		item := assetBalance{Asset: r.Asset}
		if r.Err != nil {
			item.Error = r.Err.Error()
			resp.Balances = append(resp.Balances, item)
			continue
		}
		amount := r.Amount
		item.AmountE8s = &amount
		item.Amount = transfer.FormatAmount(amount)
		if usd, ok := s.Valuation.PerAsset[r.Asset]; ok {
			item.USD = &usd
		}
		resp.Balances = append(resp.Balances, item)
	}
	return resp
}

type depositAddressResponse struct {
	Address string `json:"address"`
}

type utxoResponse struct {
	State         bridge.DepositState `json:"state"`
	Value         uint64              `json:"value"`
	Confirmations uint32              `json:"confirmations"`
}

type depositStatusResponse struct {
	HasPendingDeposits bool           `json:"has_pending_deposits"`
	Utxos              []utxoResponse `json:"utxos"`
	Errors             []string       `json:"errors,omitempty"`
}

func newDepositStatusResponse(s bridge.DepositStatus) depositStatusResponse {
	resp := depositStatusResponse{
		HasPendingDeposits: s.HasPendingDeposits,
		Utxos:              make([]utxoResponse, 0, len(s.Utxos)),
	}
	for _, u := range s.Utxos {
		resp.Utxos = append(resp.Utxos, utxoResponse{
			State:         u.State,
			Value:         u.Value,
			Confirmations: u.Confirmations,
		})
	}
	for _, err := range s.Errors {
		resp.Errors = append(resp.Errors, err.Error())
	}
	return resp
}

type withdrawalStatusResponse struct {
	ID       uint64                 `json:"id"`
	State    bridge.WithdrawalState `json:"state"`
	TxID     string                 `json:"txid,omitempty"`
	Terminal bool                   `json:"terminal"`
}

type bridgeInfoResponse struct {
	MinWithdrawalAmount uint64 `json:"min_withdrawal_amount"`
	MinConfirmations    uint32 `json:"min_confirmations"`
	Fee                 uint64 `json:"fee"`
}

type transferRequest struct {
	Asset     model.Asset `json:"asset"`
	Mode      model.Mode  `json:"mode"`
	Recipient string      `json:"recipient"`
	Amount    string      `json:"amount"`
	Fee       *uint64     `json:"fee,omitempty"`
}

func (r transferRequest) form() transfer.Form {
	return transfer.Form{
		Asset:     r.Asset,
		Mode:      r.Mode,
		Recipient: r.Recipient,
		Amount:    r.Amount,
		Fee:       r.Fee,
	}
}

type previewResponse struct {
	Asset     model.Asset `json:"asset"`
	Mode      model.Mode  `json:"mode"`
	Recipient string      `json:"recipient"`
	AmountE8s uint64      `json:"amount_e8s"`
	Amount    string      `json:"amount"`
	Fee       *uint64     `json:"fee,omitempty"`
}

func newPreviewResponse(req transfer.Request) previewResponse {
	return previewResponse{
		Asset:     req.Asset,
		Mode:      req.Mode,
		Recipient: req.Recipient,
		AmountE8s: req.AmountE8s,
		Amount:    transfer.FormatAmount(req.AmountE8s),
		Fee:       req.Fee,
	}
}

type transferResponse struct {
	previewResponse
	Memo         string  `json:"memo"`
	BlockIndex   *uint64 `json:"block_index,omitempty"`
	WithdrawalID *uint64 `json:"withdrawal_id,omitempty"`
	Warning      string  `json:"warning,omitempty"`
}

func newTransferResponse(out transfer.Outcome) transferResponse {
	resp := transferResponse{
		previewResponse: newPreviewResponse(out.Request),
		Memo:            out.Memo.String(),
		BlockIndex:      out.BlockIndex,
		WithdrawalID:    out.WithdrawalID,
	}
	if out.Warning != nil {
		resp.Warning = out.Warning.Error()
	}
	return resp
}

type historyItemResponse struct {
	ID          uint64      `json:"id"`
	Asset       model.Asset `json:"asset"`
	Recipient   string      `json:"recipient"`
	Sender      string      `json:"sender"`
	AmountE8s   uint64      `json:"amount_e8s"`
	BlockHeight *uint64     `json:"block_height,omitempty"`
	Timestamp   time.Time   `json:"timestamp"`
}

func newHistoryResponse(items []backend.HistoryItem) []historyItemResponse {
	out := make([]historyItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, historyItemResponse{
			ID:          it.ID,
			Asset:       it.Asset,
			Recipient:   it.Recipient,
			Sender:      it.Sender.String(),
			AmountE8s:   it.AmountE8s,
			BlockHeight: it.BlockHeight,
			Timestamp:   it.Timestamp,
		})
	}
	return out
}

type archivedRecordResponse struct {
	ID          string      `json:"id"`
	Asset       model.Asset `json:"asset"`
	Mode        model.Mode  `json:"mode"`
	Recipient   string      `json:"recipient"`
	AmountE8s   uint64      `json:"amount_e8s"`
	BlockHeight *uint64     `json:"block_height,omitempty"`
	RecordedAt  time.Time   `json:"recorded_at"`
}

func newArchiveResponse(records []model.TransferRecord) []archivedRecordResponse {
	out := make([]archivedRecordResponse, 0, len(records))
	for _, r := range records {
		out = append(out, archivedRecordResponse{
			ID:          r.ID,
			Asset:       r.Asset,
			Mode:        r.Mode,
			Recipient:   r.Recipient,
			AmountE8s:   r.AmountE8s,
			BlockHeight: r.BlockHeight,
			RecordedAt:  r.RecordedAt,
		})
	}
	return out
}

type contactResponse struct {
	ID      uint64 `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

type contactRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}
