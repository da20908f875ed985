package mirror

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"pv-go/internal/pv"
)

func TestMemoryBlob(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	b := NewMemoryBlob("test")

	_, _, err := b.Get(ctx)
	require.ErrorIs(t, err, ErrNoDocument)

	rev, err := b.Put(ctx, []byte("one"), "")
	require.NoError(t, err)
	require.Equal(t, "1", rev)

	data, got, err := b.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "one", string(data))
	require.Equal(t, rev, got)

	_, err = b.Put(ctx, []byte("two"), "")
	require.ErrorIs(t, err, pv.ErrRemoteConflict)

	rev, err = b.Put(ctx, []byte("two"), "1")
	require.NoError(t, err)
	require.Equal(t, "2", rev)
	require.Equal(t, 2, b.Puts())
	require.Equal(t, "two", string(b.Data()))
	require.Equal(t, "memory://test", b.Describe())
}

func TestMemoryBlob_InjectedFailures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	b := NewMemoryBlob("test")
	boom := errors.New("boom")

	b.FailGet(boom)
	_, _, err := b.Get(ctx)
	require.ErrorIs(t, err, boom)
	b.FailGet(nil)

	b.FailPut(boom)
	_, err = b.Put(ctx, []byte("x"), "")
	require.ErrorIs(t, err, boom)
	require.Zero(t, b.Puts())
	b.FailPut(nil)

	_, err = b.Put(ctx, []byte("x"), "")
	require.NoError(t, err)
}
