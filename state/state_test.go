package state

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()

	level, err := OpenLevelStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { level.Close() })

	return map[string]Store{
		"mem":     NewMemStore(),
		"leveldb": level,
	}
}

func TestStore_GetApply(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, found, err := s.Get("aa01")
			require.NoError(t, err)
			assert.False(t, found)
			assert.Equal(t, uint64(0), s.Version())

			v, err := s.Apply(map[string][]byte{"aa01": []byte("100"), "aa02": []byte("7")})
			require.NoError(t, err)
			assert.Equal(t, uint64(1), v)

			data, found, err := s.Get("aa01")
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, "100", string(data))

			v, err = s.Apply(nil)
			require.NoError(t, err)
			assert.Equal(t, uint64(1), v, "empty change set must not advance the version")

			v, err = s.Apply(map[string][]byte{"aa01": []byte("150")})
			require.NoError(t, err)
			assert.Equal(t, uint64(2), v)
			assert.Equal(t, uint64(2), s.Version())
		})
	}
}

func TestLevelStore_Reopen(t *testing.T) {
	dir := t.TempDir()

	s, err := OpenLevelStore(dir)
	require.NoError(t, err)
	_, err = s.Apply(map[string][]byte{"ab": []byte("1")})
	require.NoError(t, err)
	_, err = s.Apply(map[string][]byte{"ab": []byte("2")})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = OpenLevelStore(dir)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, uint64(2), s.Version())
	data, found, err := s.Get("ab")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "2", string(data))
}

func TestContext_Authorization(t *testing.T) {
	m := NewManager(NewMemStore())
	c := m.Create([]string{"aa"}, []string{"aa01"})
	ctx := context.Background()

	_, _, err := c.Get(ctx, "bb01")
	assert.True(t, errors.Is(err, ErrUnauthorizedAddress))

	_, found, err := c.Get(ctx, "aa99")
	require.NoError(t, err)
	assert.False(t, found)

	err = c.Set(ctx, "aa02", []byte("x"))
	assert.True(t, errors.Is(err, ErrUnauthorizedAddress))

	require.NoError(t, c.Set(ctx, "aa01ff", []byte("x")))
}

func TestContext_ReadOwnWrites(t *testing.T) {
	store := NewMemStore()
	_, err := store.Apply(map[string][]byte{"aa01": []byte("old")})
	require.NoError(t, err)

	m := NewManager(store)
	c := m.Create([]string{"aa"}, []string{"aa"})
	ctx := context.Background()

	data, _, err := c.Get(ctx, "aa01")
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))

	require.NoError(t, c.Set(ctx, "aa01", []byte("new")))

	data, _, err = c.Get(ctx, "aa01")
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))

	committed, _, err := store.Get("aa01")
	require.NoError(t, err)
	assert.Equal(t, "old", string(committed), "writes must stay buffered until commit")
}

func TestManager_CommitDiscard(t *testing.T) {
	store := NewMemStore()
	m := NewManager(store)
	ctx := context.Background()

	a := m.Create([]string{"aa"}, []string{"aa"})
	b := m.Create([]string{"aa"}, []string{"aa"})
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, 2, m.Len())

	got, err := m.Get(a.ID())
	require.NoError(t, err)
	assert.Same(t, a, got)

	require.NoError(t, a.Set(ctx, "aa01", []byte("1")))
	require.NoError(t, b.Set(ctx, "aa02", []byte("2")))

	v, err := m.Commit(a.ID())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v)

	m.Discard(b.ID())
	assert.Equal(t, 0, m.Len())

	_, found, _ := store.Get("aa01")
	assert.True(t, found)
	_, found, _ = store.Get("aa02")
	assert.False(t, found)

	_, err = m.Commit(a.ID())
	assert.True(t, errors.Is(err, ErrContextNotFound))
	_, err = m.Get(b.ID())
	assert.True(t, errors.Is(err, ErrContextNotFound))
}
