package composables

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/stockledger/stockledger/pkg/actor"
)

func TestUseTx_NoPool(t *testing.T) {
	_, err := UseTx(context.Background())
	require.ErrorIs(t, err, ErrNoPool)
}

func TestInTx_RequiresPool(t *testing.T) {
	called := false
	err := InTx(context.Background(), func(ctx context.Context) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, ErrNoPool)
	require.False(t, called)
}

func TestInSavepoint_WithoutTxRunsInline(t *testing.T) {
	boom := errors.New("boom")
	err := InSavepoint(context.Background(), func(ctx context.Context) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
}

func TestUseActor(t *testing.T) {
	_, err := UseActor(context.Background())
	require.ErrorIs(t, err, ErrNoActor)

	ctx := WithActor(context.Background(), actor.New(5, actor.RoleEditor))
	a, err := UseActor(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(5), a.ID)
	require.False(t, a.IsAdmin())
}

func TestUseLogger_PrefersRequestEntry(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := logrus.New()
	logger.SetOutput(buf)
	ctx := WithLogger(context.Background(), logger.WithField("request-id", "r-1"))

	UseLogger(ctx).Info("hello")
	require.Contains(t, buf.String(), "request-id=r-1")
	require.NotNil(t, UseLogger(context.Background()))
}
