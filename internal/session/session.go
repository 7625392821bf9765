// Package session tracks the signed-in identity. Every sign-in or sign-out starts a new
// epoch; work started under an older epoch is canceled and its results must be dropped.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/goodnatureofminers/icwallet/internal/identity"
	"go.uber.org/zap"
)

var ErrSignedOut = errors.New("no identity signed in")

// Token pins work to the epoch it was started in.
type Token struct {
	epoch     uint64
	principal identity.Principal
	ctx       context.Context
}

func (t Token) Epoch() uint64 {
	return t.epoch
}

func (t Token) Principal() identity.Principal {
	return t.principal
}

// Done is closed when the epoch ends.
func (t Token) Done() <-chan struct{} {
	return t.ctx.Done()
}

// Bind derives a context from parent that is also canceled when the token's epoch ends.
func (t Token) Bind(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	stop := context.AfterFunc(t.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

type Session struct {
	mu       sync.Mutex
	epoch    uint64
	identity identity.Identity
	ctx      context.Context
	cancel   context.CancelFunc
	logger   *zap.Logger
}

// New returns a signed-out session.
func New(logger *zap.Logger) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return &Session{
		ctx:    ctx,
		cancel: cancel,
		logger: logger.Named("session"),
	}
}

// SignIn replaces the current identity and returns the token of the new epoch.
func (s *Session) SignIn(id identity.Identity) Token {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.advance(id)
	s.logger.Info("identity changed",
		zap.Uint64("epoch", s.epoch),
		zap.String("principal", id.Principal().String()))
	return s.tokenLocked()
}

// SignOut ends the current epoch without starting a usable one.
func (s *Session) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.advance(nil)
	s.logger.Info("signed out", zap.Uint64("epoch", s.epoch))
}

// Current returns the token of the active epoch.
func (s *Session) Current() (Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.identity == nil {
		return Token{}, ErrSignedOut
	}
	return s.tokenLocked(), nil
}

// IsCurrent reports whether results produced under t may still be applied.
func (s *Session) IsCurrent(t Token) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.identity != nil && t.epoch == s.epoch
}

func (s *Session) advance(id identity.Identity) {
	s.cancel()
	s.epoch++
	s.identity = id
	s.ctx, s.cancel = context.WithCancel(context.Background())
	if id == nil {
		s.cancel()
	}
}

func (s *Session) tokenLocked() Token {
	return Token{epoch: s.epoch, principal: s.identity.Principal(), ctx: s.ctx}
}
