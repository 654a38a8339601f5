package tenancy

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestFromContext(t *testing.T) {
	ctx := context.Background()

	// No tenant set.
	id, ok := FromContext(ctx)
	assert.False(t, ok)
	assert.Empty(t, id)

	ctx = WithTenant(ctx, "tnt-a")
	id, ok = FromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "tnt-a", id)

	// Empty tenant leaves the scope unchanged.
	same := WithTenant(ctx, "  ")
	id, _ = FromContext(same)
	assert.Equal(t, "tnt-a", id)
}

func TestFromContext_NoCollision(t *testing.T) {
	ctx := context.WithValue(context.Background(), "tenant", "wrong")
	_, ok := FromContext(ctx)
	assert.False(t, ok, "string key must not match the private key type")
}

func TestWithoutTenant(t *testing.T) {
	ctx := WithTenant(context.Background(), "tnt-a")

	unscoped := WithoutTenant(ctx)
	_, ok := FromContext(unscoped)
	assert.False(t, ok)
	assert.ErrorIs(t, errOf(Require(unscoped)), ErrMissingTenantContext)

	// The original scope is untouched.
	id, ok := FromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "tnt-a", id)

	bg := context.Background()
	assert.Equal(t, bg, WithoutTenant(bg))
}

func errOf(_ string, err error) error { return err }

func TestRequire(t *testing.T) {
	_, err := Require(context.Background())
	assert.ErrorIs(t, err, ErrMissingTenantContext)

	id, err := Require(WithTenant(context.Background(), "tnt-a"))
	require.NoError(t, err)
	assert.Equal(t, "tnt-a", id)
}

func TestMustRequire_Panics(t *testing.T) {
	assert.PanicsWithError(t, ErrMissingTenantContext.Error(), func() {
		MustRequire(context.Background())
	})
}

func TestRun_ReturnsResultAndError(t *testing.T) {
	got, err := Run(context.Background(), "tnt-a", func(ctx context.Context) (string, error) {
		return MustRequire(ctx), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "tnt-a", got)

	boom := errors.New("boom")
	_, err = Run(context.Background(), "tnt-a", func(ctx context.Context) (int, error) {
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestRun_RejectsEmptyTenant(t *testing.T) {
	called := false
	err := Do(context.Background(), "", func(ctx context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrInvalidTenantID)
	assert.False(t, called)
}

func TestRun_NestingRestoresOuterScope(t *testing.T) {
	err := Do(context.Background(), "tnt-a", func(outer context.Context) error {
		err := Do(outer, "tnt-b", func(inner context.Context) error {
			assert.Equal(t, "tnt-b", MustRequire(inner))
			return nil
		})
		require.NoError(t, err)

		// The outer scope is untouched by the inner Run.
		assert.Equal(t, "tnt-a", MustRequire(outer))
		return nil
	})
	require.NoError(t, err)

	_, ok := FromContext(context.Background())
	assert.False(t, ok)
}

func TestRun_ConcurrentScopesAreIndependent(t *testing.T) {
	const rounds = 50
	var wg sync.WaitGroup

	observe := func(tenant string, step chan struct{}, other chan struct{}) {
		defer wg.Done()
		err := Do(context.Background(), tenant, func(ctx context.Context) error {
			for i := 0; i < rounds; i++ {
				// Hand control to the other goroutine at every step.
				step <- struct{}{}
				<-other
				if got := MustRequire(ctx); got != tenant {
					t.Errorf("round %d: tenant = %q, want %q", i, got, tenant)
				}
			}
			return nil
		})
		assert.NoError(t, err)
	}

	a, b := make(chan struct{}), make(chan struct{})
	wg.Add(2)
	go observe("tnt-a", a, b)
	go func() {
		defer wg.Done()
		err := Do(context.Background(), "tnt-b", func(ctx context.Context) error {
			for i := 0; i < rounds; i++ {
				<-a
				if got := MustRequire(ctx); got != "tnt-b" {
					t.Errorf("round %d: tenant = %q, want tnt-b", i, got)
				}
				b <- struct{}{}
			}
			return nil
		})
		assert.NoError(t, err)
	}()

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("interleaved scopes did not finish")
	}
}

func TestRun_FanOutInheritsScope(t *testing.T) {
	err := Do(context.Background(), "tnt-a", func(ctx context.Context) error {
		g, gctx := errgroup.WithContext(ctx)
		for i := 0; i < 8; i++ {
			g.Go(func() error {
				if got := MustRequire(gctx); got != "tnt-a" {
					return errors.New("branch observed " + got)
				}
				return nil
			})
		}
		return g.Wait()
	})
	require.NoError(t, err)
}

func TestLogHandler_AddsTenant(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewLogHandler(slog.NewTextHandler(&buf, nil)))

	logger.InfoContext(context.Background(), "unscoped")
	assert.NotContains(t, buf.String(), "tenant_id")

	buf.Reset()
	logger.With("component", "test").InfoContext(WithTenant(context.Background(), "tnt-a"), "scoped")
	out := buf.String()
	assert.True(t, strings.Contains(out, "tenant_id=tnt-a"), out)
	assert.Contains(t, out, "component=test")
}
