package mindtree

import (
	"context"
	"testing"

	"github.com/GDG-on-Campus-KNU/4th-SC-TEAM1-FE/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func TestTokenStoreSetWritesBothKeysAtOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	st := newRecordingStorage()
	ts := NewTokenStore(st, slogx.Discard())

	require.NoError(t, ts.Set(ctx, TokenPair{AccessToken: "a1", RefreshToken: "r1"}))

	require.Len(t, st.sets, 1)
	require.Equal(t, map[string]string{KeyAccessToken: "a1", KeyRefreshToken: "r1"}, st.sets[0])
	require.Equal(t, "a1", ts.Access())
}

func TestTokenStoreSetRejectsHalfPair(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	st := newRecordingStorage()
	ts := NewTokenStore(st, slogx.Discard())
	require.NoError(t, ts.Set(ctx, TokenPair{AccessToken: "a1", RefreshToken: "r1"}))

	require.Error(t, ts.Set(ctx, TokenPair{AccessToken: "a2"}))
	require.Error(t, ts.Set(ctx, TokenPair{RefreshToken: "r2"}))

	require.Equal(t, TokenPair{AccessToken: "a1", RefreshToken: "r1"}, ts.Get())
	require.Len(t, st.sets, 1)
}

func TestTokenStoreSetKeepsMemoryWhenPersistFails(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	st := newRecordingStorage()
	st.failSet = errDiskFull
	ts := NewTokenStore(st, slogx.Discard())

	err := ts.Set(ctx, TokenPair{AccessToken: "a1", RefreshToken: "r1"})
	require.ErrorIs(t, err, errDiskFull)
	require.Equal(t, "a1", ts.Access())
}

func TestTokenStoreReplace(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	first := TokenPair{AccessToken: "a1", RefreshToken: "r1"}
	renewed := TokenPair{AccessToken: "a2", RefreshToken: "r2"}

	t.Run("swaps the expected pair", func(t *testing.T) {
		t.Parallel()
		st := newRecordingStorage()
		ts := NewTokenStore(st, slogx.Discard())
		require.NoError(t, ts.Set(ctx, first))

		ok, err := ts.Replace(ctx, first, renewed)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, renewed, ts.Get())
		require.Len(t, st.sets, 2)
	})

	t.Run("refuses after clear", func(t *testing.T) {
		t.Parallel()
		st := newRecordingStorage()
		ts := NewTokenStore(st, slogx.Discard())
		require.NoError(t, ts.Set(ctx, first))
		require.NoError(t, ts.Clear(ctx))

		ok, err := ts.Replace(ctx, first, renewed)
		require.NoError(t, err)
		require.False(t, ok)
		require.False(t, ts.Get().Valid())
		require.Len(t, st.sets, 1)
		require.Empty(t, st.Snapshot())
	})

	t.Run("refuses after a new login", func(t *testing.T) {
		t.Parallel()
		ts := NewTokenStore(newRecordingStorage(), slogx.Discard())
		require.NoError(t, ts.Set(ctx, first))
		other := TokenPair{AccessToken: "b1", RefreshToken: "s1"}
		require.NoError(t, ts.Set(ctx, other))

		ok, err := ts.Replace(ctx, first, renewed)
		require.NoError(t, err)
		require.False(t, ok)
		require.Equal(t, other, ts.Get())
	})

	t.Run("rejects half pair", func(t *testing.T) {
		t.Parallel()
		ts := NewTokenStore(newRecordingStorage(), slogx.Discard())
		require.NoError(t, ts.Set(ctx, first))

		ok, err := ts.Replace(ctx, first, TokenPair{AccessToken: "a2"})
		require.Error(t, err)
		require.False(t, ok)
		require.Equal(t, first, ts.Get())
	})
}

func TestTokenStoreLoad(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("full pair", func(t *testing.T) {
		st := newRecordingStorage()
		require.NoError(t, st.MemoryStorage.SetMany(ctx, map[string]string{KeyAccessToken: "a", KeyRefreshToken: "r"}))

		ts := NewTokenStore(st, slogx.Discard())
		pair, err := ts.Load(ctx)
		require.NoError(t, err)
		require.Equal(t, TokenPair{AccessToken: "a", RefreshToken: "r"}, pair)
		require.Empty(t, st.deletes)
	})

	t.Run("half pair is discarded", func(t *testing.T) {
		st := newRecordingStorage()
		require.NoError(t, st.MemoryStorage.SetMany(ctx, map[string]string{KeyAccessToken: "a"}))

		ts := NewTokenStore(st, slogx.Discard())
		pair, err := ts.Load(ctx)
		require.NoError(t, err)
		require.False(t, pair.Valid())
		require.Empty(t, ts.Access())

		require.Len(t, st.deletes, 1)
		require.ElementsMatch(t, []string{KeyAccessToken, KeyRefreshToken}, st.deletes[0])
		require.Empty(t, st.Snapshot())
	})

	t.Run("nothing stored", func(t *testing.T) {
		st := newRecordingStorage()
		ts := NewTokenStore(st, slogx.Discard())
		pair, err := ts.Load(ctx)
		require.NoError(t, err)
		require.False(t, pair.Valid())
		require.Empty(t, st.deletes)
	})
}

func TestTokenStoreClear(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	st := newRecordingStorage()
	ts := NewTokenStore(st, slogx.Discard())
	require.NoError(t, ts.Set(ctx, TokenPair{AccessToken: "a", RefreshToken: "r"}))
	require.NoError(t, st.MemoryStorage.SetMany(ctx, map[string]string{"other": "x"}))

	require.NoError(t, ts.Clear(ctx))
	require.False(t, ts.Get().Valid())
	require.Equal(t, map[string]string{"other": "x"}, st.Snapshot())
}
