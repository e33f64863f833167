package service

import (
	"context"
	"crypto/rand"
	"math/big"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/dormmanager/backend/internal/config"
	"github.com/dormmanager/backend/internal/domain"
	"github.com/dormmanager/backend/internal/notification"
	"github.com/dormmanager/backend/pkg/util"
)

// Verification code bounds, inclusive.
const (
	MinCode = 100000
	MaxCode = 999999
)

var codeSpan = big.NewInt(MaxCode - MinCode + 1)

// GenerateCode returns a uniformly random code in [MinCode, MaxCode].
func GenerateCode() (int, error) {
	n, err := rand.Int(rand.Reader, codeSpan)
	if err != nil {
		return 0, err
	}
	return MinCode + int(n.Int64()), nil
}

// VerificationDependencies lists collaborators of VerificationService.
type VerificationDependencies struct {
	Limiter    RateLimiter
	Codes      CodeStore
	Dispatcher notification.Dispatcher
}

// VerificationService hands out email verification codes.
type VerificationService struct {
	limiter    RateLimiter
	codes      CodeStore
	dispatcher notification.Dispatcher
	codeTTL    time.Duration
	window     time.Duration
	generate   func() (int, error)
	logger     *zap.Logger
}

// NewVerificationService builds the service.
func NewVerificationService(deps VerificationDependencies, cfg config.VerificationConfig, logger *zap.Logger) *VerificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VerificationService{
		limiter:    deps.Limiter,
		codes:      deps.Codes,
		dispatcher: deps.Dispatcher,
		codeTTL:    cfg.CodeTTL(),
		window:     cfg.LimitWindow(),
		generate:   GenerateCode,
		logger:     logger,
	}
}

// WithCodeGenerator replaces the random source. Used by tests.
func (s *VerificationService) WithCodeGenerator(generate func() (int, error)) *VerificationService {
	s.generate = generate
	return s
}

// RequestCode stores a fresh code for email and queues it for delivery.
// Only one request per caller IP is admitted per window.
func (s *VerificationService) RequestCode(ctx context.Context, kind domain.CodeKind, email, ip string) error {
	if !kind.Valid() {
		return util.NewValidationError("invalid request parameters", map[string]any{"type": string(kind)})
	}

	acquired, err := s.limiter.TryAcquire(ctx, ip, s.window)
	if err != nil {
		return util.NewInternalError(err)
	}
	if !acquired {
		return util.NewRateLimited("requests are too frequent, please try again later")
	}

	code, err := s.generate()
	if err != nil {
		return util.NewInternalError(err)
	}

	// the entry must exist before the mail can be delivered
	if err := s.codes.Put(ctx, email, strconv.Itoa(code), s.codeTTL); err != nil {
		return util.NewInternalError(err)
	}

	id, err := s.dispatcher.Dispatch(ctx, notification.Message{Type: kind, Email: email, Code: code})
	if err != nil {
		return util.NewInternalError(err)
	}

	s.logger.Debug("verification code queued",
		zap.String("message_id", id),
		zap.String("type", string(kind)),
		zap.String("email", email))
	return nil
}
