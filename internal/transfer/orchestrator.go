// Package transfer drives a user-initiated send from form input to a
// submitted ledger transfer or bridge withdrawal.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goodnatureofminers/icwallet/internal/agent"
	"github.com/goodnatureofminers/icwallet/internal/identity"
	"github.com/goodnatureofminers/icwallet/internal/ledger"
	"github.com/goodnatureofminers/icwallet/internal/model"
	"github.com/goodnatureofminers/icwallet/internal/session"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type State string

const (
	StateForm    State = "form"
	StateConfirm State = "confirm"
	StateSuccess State = "success"
	// StateUnknown is terminal: the operation was sent but its result never
	// arrived. It must be checked in history before sending again.
	StateUnknown State = "unknown"
)

// Form is the raw user input of a send.
type Form struct {
	Asset     model.Asset
	Mode      model.Mode
	Recipient string
	// Amount is a decimal number of whole tokens.
	Amount string
	Fee    *uint64
}

// Request is a validated send awaiting confirmation.
type Request struct {
	Asset     model.Asset
	Mode      model.Mode
	Recipient string
	AmountE8s uint64
	Fee       *uint64
}

// Outcome describes a successful send. Exactly one of BlockIndex and
// WithdrawalID is set. Warning carries a history recording failure that did
// not affect the send itself.
type Outcome struct {
	Request      Request
	BlockIndex   *uint64
	WithdrawalID *uint64
	Memo         uuid.UUID
	Warning      error
}

// Orchestrator creates sends for the signed-in identity.
type Orchestrator struct {
	ledger   Ledger
	bridge   Bridge
	recorder Recorder
	session  Session
	metrics  Metrics
	logger   *zap.Logger
	now      func() time.Time
	newMemo  func() uuid.UUID
}

func NewOrchestrator(ledger Ledger, bridge Bridge, recorder Recorder, sess Session, metrics Metrics, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		ledger:   ledger,
		bridge:   bridge,
		recorder: recorder,
		session:  sess,
		metrics:  metrics,
		logger:   logger.Named("transfer"),
		now:      time.Now,
		newMemo:  uuid.New,
	}
}

// NewSend starts a send in the Form state on behalf of the current identity.
func (o *Orchestrator) NewSend() (*Send, error) {
	token, err := o.session.Current()
	if err != nil {
		return nil, err
	}
	return &Send{o: o, token: token, state: StateForm}, nil
}

// Send is one user-initiated transfer: Form -> Confirm -> Success. A failed
// confirmation stays in Confirm so it can be retried or taken back to Form.
type Send struct {
	o     *Orchestrator
	token session.Token

	mu      sync.Mutex
	state   State
	req     Request
	outcome *Outcome
	lastErr error
}

func (s *Send) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Request returns the validated request once the send left Form.
func (s *Send) Request() Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.req
}

// Outcome returns the result of a successful send, or nil.
func (s *Send) Outcome() *Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome
}

// LastError returns the error of the most recent failed confirmation.
func (s *Send) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Submit validates form and moves to Confirm. Nothing is sent.
func (s *Send) Submit(form Form) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateForm {
		return fmt.Errorf("submit in %s: %w", s.state, ErrInvalidState)
	}
	req, err := s.o.validate(form)
	if err != nil {
		return err
	}
	s.req, s.state, s.lastErr = req, StateConfirm, nil
	return nil
}

// Back returns from Confirm to Form, keeping nothing of the request.
func (s *Send) Back() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateConfirm {
		return fmt.Errorf("back in %s: %w", s.state, ErrInvalidState)
	}
	s.req, s.state, s.lastErr = Request{}, StateForm, nil
	return nil
}

// Confirm performs the one operation the request calls for. On failure the
// send stays in Confirm and the returned *OperationError names the asset and
// operation. A failure wrapping agent.ErrOutcomeUnknown moves the send to
// StateUnknown instead, where it cannot be confirmed again.
func (s *Send) Confirm(ctx context.Context) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateConfirm {
		return Outcome{}, fmt.Errorf("confirm in %s: %w", s.state, ErrInvalidState)
	}
	if !s.o.session.IsCurrent(s.token) {
		return Outcome{}, &OperationError{Asset: s.req.Asset, Op: operation(s.req), Err: ErrIdentityChanged}
	}

	// Once submitted the operation runs to completion even if the caller
	// goes away or the identity changes.
	out, err := s.o.execute(context.WithoutCancel(ctx), s.token.Principal(), s.req)
	if err != nil {
		s.lastErr = err
		if errors.Is(err, agent.ErrOutcomeUnknown) {
			s.o.logger.Warn("send outcome unknown",
				zap.String("asset", string(s.req.Asset)),
				zap.String("mode", string(s.req.Mode)),
				zap.Error(err))
			s.state = StateUnknown
		}
		return Outcome{}, err
	}
	s.state, s.outcome, s.lastErr = StateSuccess, &out, nil
	return out, nil
}

func (o *Orchestrator) validate(form Form) (Request, error) {
	mode := form.Mode
	if mode == "" {
		mode = model.Wrapped
	}
	if _, err := model.ParseAsset(string(form.Asset)); err != nil {
		return Request{}, invalid("asset", "%v", err)
	}
	if _, err := model.ParseMode(string(mode)); err != nil {
		return Request{}, invalid("mode", "%v", err)
	}
	if err := validateRecipient(form.Asset, mode, form.Recipient, o.bridge); err != nil {
		return Request{}, err
	}
	amount, err := ParseAmount(form.Amount)
	if err != nil {
		return Request{}, err
	}
	return Request{
		Asset:     form.Asset,
		Mode:      mode,
		Recipient: strings.TrimSpace(form.Recipient),
		AmountE8s: amount,
		Fee:       form.Fee,
	}, nil
}

func operation(req Request) string {
	if req.Mode == model.Native {
		return "withdrawal"
	}
	return "transfer"
}

func (o *Orchestrator) execute(ctx context.Context, owner identity.Principal, req Request) (out Outcome, err error) {
	started := time.Now()
	defer func() {
		o.metrics.Observe(req.Asset, req.Mode, err, started)
	}()

	logger := o.logger.With(
		zap.String("asset", string(req.Asset)),
		zap.String("mode", string(req.Mode)),
		zap.Uint64("amount_e8s", req.AmountE8s))

	out = Outcome{Request: req, Memo: o.newMemo()}
	var reference string
	switch {
	case req.Mode == model.Wrapped:
		to, perr := identity.ParsePrincipal(req.Recipient)
		if perr != nil {
			return Outcome{}, &OperationError{Asset: req.Asset, Op: operation(req), Err: perr}
		}
		block, terr := o.ledger.Transfer(ctx, req.Asset, ledger.TransferArgs{
			To:        ledger.Account{Owner: to},
			Amount:    req.AmountE8s,
			Fee:       req.Fee,
			Memo:      out.Memo[:],
			CreatedAt: o.now(),
		})
		if terr != nil {
			logger.Info("transfer failed", zap.Error(terr))
			return Outcome{}, &OperationError{Asset: req.Asset, Op: operation(req), Err: terr}
		}
		out.BlockIndex = &block
		reference = strconv.FormatUint(block, 10)
	case req.Asset == model.CkBTC:
		id, werr := o.bridge.Withdraw(ctx, req.Recipient, req.AmountE8s)
		if werr != nil {
			logger.Info("withdrawal failed", zap.Error(werr))
			return Outcome{}, &OperationError{Asset: req.Asset, Op: operation(req), Err: werr}
		}
		out.WithdrawalID = &id
		reference = "withdrawal-" + strconv.FormatUint(id, 10)
	default:
		return Outcome{}, &OperationError{Asset: req.Asset, Op: operation(req), Err: ErrNativeNotSupported}
	}

	logger.Info("send completed", zap.String("reference", reference))
	out.Warning = o.record(ctx, owner, out)
	return out, nil
}

// record keeps a history entry; its failure is reported, not returned as an error.
func (o *Orchestrator) record(ctx context.Context, owner identity.Principal, out Outcome) error {
	height := out.BlockIndex
	if height == nil {
		height = out.WithdrawalID
	}
	rec := model.TransferRecord{
		ID:          out.Memo.String(),
		Owner:       owner.String(),
		Recipient:   out.Request.Recipient,
		Asset:       out.Request.Asset,
		Mode:        out.Request.Mode,
		AmountE8s:   out.Request.AmountE8s,
		BlockHeight: height,
		RecordedAt:  o.now().UTC(),
	}
	if err := o.recorder.Record(ctx, rec); err != nil {
		o.metrics.ObserveHistoryWarning(out.Request.Asset)
		o.logger.Warn("history record failed", zap.String("asset", string(out.Request.Asset)), zap.Error(err))
		return &OperationError{Asset: out.Request.Asset, Op: "history record", Err: err}
	}
	return nil
}
