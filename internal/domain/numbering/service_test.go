package numbering

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serialgen/internal/core/apperror"
	"serialgen/internal/core/numerator"
	"serialgen/internal/domain/prefixrule"
	infranumerator "serialgen/internal/infrastructure/numerator"
	"serialgen/internal/infrastructure/storage/memory"
)

func clock2025() time.Time {
	return time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
}

func newTestService(t *testing.T, issuer numerator.Issuer) (*Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	if issuer == nil {
		issuer = infranumerator.NewDirect(store, numerator.Keyspace{})
	}
	svc := NewService(ServiceConfig{
		Rules:     prefixrule.NewRegistry(store, numerator.Keyspace{}, prefixrule.DefaultConfig()),
		Issuer:    issuer,
		Assembler: numerator.NewAssembler(numerator.WithClock(clock2025)),
	})
	return svc, store
}

func TestService_RegisterAndGenerate(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	require.NoError(t, svc.RegisterRule(ctx, numerator.PrefixRule{
		PrefixKey: "TEST", Format: "TEST-{year}-{SEQ:4}", SeqLength: 4, InitialSeq: 123,
	}))

	number, err := svc.Generate(ctx, "TEST")
	require.NoError(t, err)
	assert.Equal(t, "TEST-2025-0123", number)

	number, err = svc.Generate(ctx, "TEST")
	require.NoError(t, err)
	assert.Equal(t, "TEST-2025-0124", number)
}

func TestService_GenerateUnregistered(t *testing.T) {
	svc, store := newTestService(t, nil)

	_, err := svc.Generate(context.Background(), "NOPE")
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodePrefixNotRegistered, appErr.Code)
	assert.Equal(t, http.StatusNotFound, appErr.HTTPStatus)
	assert.ErrorIs(t, err, numerator.ErrPrefixNotRegistered)

	// No counter was touched.
	_, found, _ := store.Get(context.Background(), "seq:NOPE")
	assert.False(t, found)
}

func TestService_RegisterErrors(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()
	rule := numerator.PrefixRule{PrefixKey: "ORDER", Format: "{prefix}-{SEQ:6}", SeqLength: 6}

	require.NoError(t, svc.RegisterRule(ctx, rule))

	err := svc.RegisterRule(ctx, rule)
	assert.True(t, apperror.HasCode(err, apperror.CodeAlreadyExists))
	assert.Equal(t, http.StatusConflict, apperror.GetHTTPStatus(err))

	err = svc.RegisterRule(ctx, numerator.PrefixRule{PrefixKey: "BAD", Format: "{prefix}", SeqLength: 6})
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidFormat))
	assert.Equal(t, http.StatusBadRequest, apperror.GetHTTPStatus(err))
}

func TestService_GetRule(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.GetRule(ctx, "ORDER")
	assert.True(t, apperror.IsNotFound(err))

	require.NoError(t, svc.RegisterRule(ctx, numerator.PrefixRule{PrefixKey: "ORDER", Format: "{SEQ}", SeqLength: 2}))
	rule, err := svc.GetRule(ctx, "ORDER")
	require.NoError(t, err)
	assert.Equal(t, "{SEQ}", rule.Format)
}

func TestService_GenerateBatch(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()
	require.NoError(t, svc.RegisterRule(ctx, numerator.PrefixRule{PrefixKey: "ORDER", Format: "{prefix}-{SEQ:6}", SeqLength: 6}))

	numbers, err := svc.GenerateBatch(ctx, "ORDER", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"ORDER-000001", "ORDER-000002", "ORDER-000003"}, numbers)

	_, err = svc.GenerateBatch(ctx, "ORDER", 0)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = svc.GenerateBatch(ctx, "ORDER", MaxBatch+1)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestService_IssuerErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		issuerErr  error
		wantCode   string
		wantStatus int
	}{
		{"try again", fmt.Errorf("%w: lock held", numerator.ErrTryAgain), apperror.CodeTryAgain, http.StatusServiceUnavailable},
		{"backend", fmt.Errorf("incr: %w", numerator.ErrBackendUnavailable), apperror.CodeBackendUnavailable, http.StatusServiceUnavailable},
		{"timeout", context.DeadlineExceeded, apperror.CodeBackendUnavailable, http.StatusServiceUnavailable},
		{"corrupt", fmt.Errorf("%w: seq", numerator.ErrCorrupt), apperror.CodeCorrupt, http.StatusInternalServerError},
		{"unknown", fmt.Errorf("boom"), apperror.CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issuer := &numerator.MockIssuer{
				NextFunc: func(ctx context.Context, prefix string) (uint64, error) {
					return 0, tt.issuerErr
				},
			}
			svc, _ := newTestService(t, issuer)
			ctx := context.Background()
			require.NoError(t, svc.RegisterRule(ctx, numerator.PrefixRule{PrefixKey: "ORDER", Format: "{SEQ}", SeqLength: 1}))

			number, err := svc.Generate(ctx, "ORDER")
			require.Error(t, err)
			assert.Empty(t, number, "no number may be fabricated on failure")

			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, appErr.Code)
			assert.Equal(t, tt.wantStatus, appErr.HTTPStatus)
		})
	}
}

func TestService_TryAgainCarriesRetryHint(t *testing.T) {
	issuer := &numerator.MockIssuer{
		NextFunc: func(ctx context.Context, prefix string) (uint64, error) {
			return 0, numerator.ErrTryAgain
		},
	}
	store := memory.New()
	svc := NewService(ServiceConfig{
		Rules:         prefixrule.NewRegistry(store, numerator.Keyspace{}, prefixrule.DefaultConfig()),
		Issuer:        issuer,
		TryAgainAfter: 250 * time.Millisecond,
	})
	ctx := context.Background()
	require.NoError(t, svc.RegisterRule(ctx, numerator.PrefixRule{PrefixKey: "ORDER", Format: "{SEQ}", SeqLength: 1}))

	_, err := svc.Generate(ctx, "ORDER")
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 250*time.Millisecond, appErr.RetryAfter)
}

func TestService_SeedFailureLeavesRuleUnregistered(t *testing.T) {
	store := memory.New()
	direct := infranumerator.NewDirect(store, numerator.Keyspace{})
	seedCalls := 0
	issuer := &numerator.MockIssuer{
		NextFunc: direct.Next,
		SeedFunc: func(ctx context.Context, prefix string, initialSeq uint64) error {
			seedCalls++
			if seedCalls == 1 {
				return fmt.Errorf("seed: %w", numerator.ErrBackendUnavailable)
			}
			return direct.Seed(ctx, prefix, initialSeq)
		},
	}
	svc := NewService(ServiceConfig{
		Rules:  prefixrule.NewRegistry(store, numerator.Keyspace{}, prefixrule.DefaultConfig()),
		Issuer: issuer,
	})
	ctx := context.Background()
	rule := numerator.PrefixRule{PrefixKey: "ORDER", Format: "{SEQ}", SeqLength: 4, InitialSeq: 500}

	err := svc.RegisterRule(ctx, rule)
	assert.True(t, apperror.HasCode(err, apperror.CodeBackendUnavailable))

	_, err = svc.GetRule(ctx, "ORDER")
	assert.True(t, apperror.IsNotFound(err))

	// The identical call succeeds once the backend is back.
	require.NoError(t, svc.RegisterRule(ctx, rule))
	number, err := svc.Generate(ctx, "ORDER")
	require.NoError(t, err)
	assert.Equal(t, "0500", number)
}

func TestService_RejectedRegistrationKeepsCounter(t *testing.T) {
	svc, store := newTestService(t, nil)
	ctx := context.Background()
	rule := numerator.PrefixRule{PrefixKey: "ORDER", Format: "{SEQ}", SeqLength: 4, InitialSeq: 10}
	require.NoError(t, svc.RegisterRule(ctx, rule))

	rule.InitialSeq = 900
	err := svc.RegisterRule(ctx, rule)
	assert.True(t, apperror.HasCode(err, apperror.CodeAlreadyExists))

	raw, _, err := store.Get(ctx, "seq:ORDER")
	require.NoError(t, err)
	assert.Equal(t, "9", raw)
}

func TestService_UpsertRaisesCounter(t *testing.T) {
	store := memory.New()
	cfg := prefixrule.DefaultConfig()
	cfg.Policy = prefixrule.PolicyUpsert
	svc := NewService(ServiceConfig{
		Rules:  prefixrule.NewRegistry(store, numerator.Keyspace{}, cfg),
		Issuer: infranumerator.NewDirect(store, numerator.Keyspace{}),
	})
	ctx := context.Background()
	rule := numerator.PrefixRule{PrefixKey: "ORDER", Format: "{SEQ}", SeqLength: 6, InitialSeq: 1}
	require.NoError(t, svc.RegisterRule(ctx, rule))

	numbers, err := svc.GenerateBatch(ctx, "ORDER", 5)
	require.NoError(t, err)
	assert.Equal(t, "000005", numbers[4])

	rule.InitialSeq = 1000
	require.NoError(t, svc.RegisterRule(ctx, rule))
	number, err := svc.Generate(ctx, "ORDER")
	require.NoError(t, err)
	assert.Equal(t, "001000", number)
}

func TestService_GenerateMalformedKeyIsNotRegistered(t *testing.T) {
	svc, _ := newTestService(t, nil)

	_, err := svc.Generate(context.Background(), "a b")
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodePrefixNotRegistered, appErr.Code)
	assert.Equal(t, http.StatusNotFound, appErr.HTTPStatus)
}
