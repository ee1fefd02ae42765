// Package numbering composes rule lookup, sequence issuance and assembly
// into the number generation use case.
package numbering

import (
	"context"
	"fmt"
	"time"

	"serialgen/internal/core/apperror"
	"serialgen/internal/core/numerator"
	"serialgen/internal/domain/prefixrule"
	"serialgen/pkg/logger"
)

// MaxBatch caps GenerateBatch.
const MaxBatch = 100

// RuleRegistry stores and resolves prefix rules.
type RuleRegistry interface {
	Register(ctx context.Context, rule numerator.PrefixRule) error
	Get(ctx context.Context, prefix string) (*numerator.PrefixRule, error)
	Policy() prefixrule.RegistrationPolicy
}

// ServiceConfig configures the numbering service.
type ServiceConfig struct {
	Rules     RuleRegistry
	Issuer    numerator.Issuer
	Assembler *numerator.Assembler
	// TryAgainAfter is the retry hint sent on lease contention.
	// Default is the lock TTL of the issuer or 100ms.
	TryAgainAfter time.Duration
}

// Service provides number generation.
// All returned errors are *apperror.AppError.
type Service struct {
	rules         RuleRegistry
	issuer        numerator.Issuer
	assembler     *numerator.Assembler
	tryAgainAfter time.Duration
}

// NewService creates a new numbering service.
func NewService(cfg ServiceConfig) *Service {
	assembler := cfg.Assembler
	if assembler == nil {
		assembler = numerator.NewAssembler()
	}
	tryAgainAfter := cfg.TryAgainAfter
	if tryAgainAfter <= 0 {
		tryAgainAfter = 100 * time.Millisecond
	}

	return &Service{
		rules:         cfg.Rules,
		issuer:        cfg.Issuer,
		assembler:     assembler,
		tryAgainAfter: tryAgainAfter,
	}
}

// RegisterRule validates rule, seeds its counter from InitialSeq and stores it.
// The counter is seeded first so that a failed call can be repeated unchanged.
func (s *Service) RegisterRule(ctx context.Context, rule numerator.PrefixRule) error {
	if err := rule.Validate(); err != nil {
		return s.mapError(err, rule.PrefixKey)
	}

	// A rejected re-registration must leave the existing counter alone.
	if s.rules.Policy() == prefixrule.PolicyReject {
		existing, err := s.rules.Get(ctx, rule.PrefixKey)
		if err != nil {
			return s.mapError(err, rule.PrefixKey)
		}
		if existing != nil {
			return s.mapError(fmt.Errorf("%w: %s", numerator.ErrAlreadyExists, rule.PrefixKey), rule.PrefixKey)
		}
	}

	if err := s.issuer.Seed(ctx, rule.PrefixKey, rule.InitialSeq); err != nil {
		logger.Warn(ctx, "counter not seeded, prefix rule not registered",
			"prefix", rule.PrefixKey,
			"initial_seq", rule.InitialSeq,
			"error", err,
		)
		return s.mapError(err, rule.PrefixKey)
	}

	if err := s.rules.Register(ctx, rule); err != nil {
		return s.mapError(err, rule.PrefixKey)
	}
	return nil
}

// GetRule returns the registered rule or a not-found error.
func (s *Service) GetRule(ctx context.Context, prefix string) (*numerator.PrefixRule, error) {
	rule, err := s.rules.Get(ctx, prefix)
	if err != nil {
		return nil, s.mapError(err, prefix)
	}
	if rule == nil {
		return nil, apperror.NewNotFound("prefix rule", prefix)
	}
	return rule, nil
}

// Generate issues one formatted number for prefix.
func (s *Service) Generate(ctx context.Context, prefix string) (string, error) {
	rule, err := s.resolve(ctx, prefix)
	if err != nil {
		return "", err
	}
	return s.generate(ctx, prefix, rule)
}

// GenerateBatch issues count numbers for prefix, one sequence value each.
// On failure, numbers issued before the error are not returned and stay unused.
func (s *Service) GenerateBatch(ctx context.Context, prefix string, count int) ([]string, error) {
	if count < 1 || count > MaxBatch {
		return nil, apperror.NewValidation(fmt.Sprintf("count must be between 1 and %d", MaxBatch)).
			WithDetail("count", count)
	}

	rule, err := s.resolve(ctx, prefix)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, count)
	for i := 0; i < count; i++ {
		number, err := s.generate(ctx, prefix, rule)
		if err != nil {
			return nil, err
		}
		out = append(out, number)
	}
	return out, nil
}

func (s *Service) resolve(ctx context.Context, prefix string) (*numerator.PrefixRule, error) {
	rule, err := s.rules.Get(ctx, prefix)
	if err != nil {
		return nil, s.mapError(err, prefix)
	}
	if rule == nil {
		return nil, s.mapError(fmt.Errorf("%w: %s", numerator.ErrPrefixNotRegistered, prefix), prefix)
	}
	return rule, nil
}

func (s *Service) generate(ctx context.Context, prefix string, rule *numerator.PrefixRule) (string, error) {
	seq, err := s.issuer.Next(ctx, prefix)
	if err != nil {
		return "", s.mapError(err, prefix)
	}

	number, err := s.assembler.Assemble(prefix, rule, seq)
	if err != nil {
		return "", s.mapError(err, prefix)
	}
	return number, nil
}
