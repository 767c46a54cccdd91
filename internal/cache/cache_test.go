// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/kernel-press/pkg/types"
)

// --- Key ---

func mustKey(t *testing.T, kind string, fields map[string]any) string {
	t.Helper()
	k, err := Key(kind, fields)
	require.NoError(t, err)
	return k
}

func TestKey_Deterministic(t *testing.T) {
	fields := map[string]any{"content": "hello", "oracle": "fake", "attempt": 1}
	k1, err := Key("extract", fields)
	require.NoError(t, err)
	k2, err := Key("extract", map[string]any{"attempt": 1, "oracle": "fake", "content": "hello"})
	require.NoError(t, err)

	assert.Equal(t, k1, k2)
	assert.True(t, strings.HasPrefix(k1, "extract-"))
	assert.Len(t, strings.TrimPrefix(k1, "extract-"), 64)
}

func TestKey_DistinguishesInputs(t *testing.T) {
	base := map[string]any{"content": "hello", "oracle": "fake", "attempt": 1}
	k := mustKey(t, "extract", base)

	tests := []struct {
		name   string
		kind   string
		fields map[string]any
	}{
		{"different attempt", "extract", map[string]any{"content": "hello", "oracle": "fake", "attempt": 2}},
		{"different oracle", "extract", map[string]any{"content": "hello", "oracle": "other", "attempt": 1}},
		{"different content", "extract", map[string]any{"content": "hello!", "oracle": "fake", "attempt": 1}},
		{"different kind", "verify", base},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, k, mustKey(t, tt.kind, tt.fields))
		})
	}
}

func TestKey_NormalizesUnicode(t *testing.T) {
	composed := mustKey(t, "extract", map[string]any{"content": "caf\u00e9"})
	decomposed := mustKey(t, "extract", map[string]any{"content": "cafe\u0301"})
	assert.Equal(t, composed, decomposed)
}

func TestKey_StructInputs(t *testing.T) {
	kernels := []types.ConceptKernel{{ID: "k1", Concept: "x", Category: types.CategoryRule}}
	k1 := mustKey(t, "verify", map[string]any{"kernels": kernels, "content": "c"})
	k2 := mustKey(t, "verify", map[string]any{"kernels": kernels, "content": "c"})
	assert.Equal(t, k1, k2)
}

func TestKey_RejectsInvalidKind(t *testing.T) {
	_, err := Key("Bad Kind", nil)
	assert.Error(t, err)
}

// --- Stores ---

func storeFactories(t *testing.T) map[string]func() Store {
	return map[string]func() Store{
		"files": func() Store {
			s, err := NewFileStore(t.TempDir())
			require.NoError(t, err)
			return s
		},
		"sqlite": func() Store {
			s, err := NewSQLiteStore(t.TempDir())
			require.NoError(t, err)
			return s
		},
		"memory": func() Store { return NewMemoryStore() },
	}
}

func TestStores_RoundTrip(t *testing.T) {
	for name, open := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := open()
			defer s.Close()

			_, ok, err := s.Get("extract-abcdef")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Set("extract-abcdef", []byte(`{"a":1}`)))
			require.NoError(t, s.Set("verify-123456", []byte(`{"b":2}`)))

			v, ok, err := s.Get("extract-abcdef")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, `{"a":1}`, string(v))

			require.NoError(t, s.Set("extract-abcdef", []byte(`{"a":3}`)))
			v, _, err = s.Get("extract-abcdef")
			require.NoError(t, err)
			assert.Equal(t, `{"a":3}`, string(v))

			n, err := s.Len()
			require.NoError(t, err)
			assert.Equal(t, 2, n)

			require.NoError(t, s.Clear())
			n, err = s.Len()
			require.NoError(t, err)
			assert.Equal(t, 0, n)
		})
	}
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	s1, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, s1.Set("press-ff00aa", []byte("data")))

	assert.FileExists(t, filepath.Join(dir, "ff", "press-ff00aa.json"))

	s2, err := NewFileStore(dir)
	require.NoError(t, err)
	v, ok, err := s2.Get("press-ff00aa")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "data", string(v))
}

func TestSQLiteStore_PersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	s1, err := NewSQLiteStore(dir)
	require.NoError(t, err)
	require.NoError(t, s1.Set("cluster-0011", []byte("data")))
	require.NoError(t, s1.Close())

	s2, err := NewSQLiteStore(dir)
	require.NoError(t, err)
	defer s2.Close()
	v, ok, err := s2.Get("cluster-0011")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "data", string(v))
}

func TestOpen(t *testing.T) {
	s, err := Open(types.CacheConfig{Backend: types.CacheMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(types.CacheConfig{Dir: t.TempDir(), Backend: types.CacheFiles})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	_, err = Open(types.CacheConfig{Dir: t.TempDir(), Backend: "redis"})
	assert.True(t, types.IsInputError(err))
}

// --- Memo ---

type payload struct {
	Value string `json:"value"`
}

func TestMemo_MissThenHit(t *testing.T) {
	f := NewFacade(NewMemoryStore(), nil)
	calls := 0
	compute := func(context.Context) (payload, error) {
		calls++
		return payload{Value: "computed"}, nil
	}

	v, hit, err := Memo(context.Background(), f, "extract-01", false, compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "computed", v.Value)

	v, hit, err = Memo(context.Background(), f, "extract-01", false, compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "computed", v.Value)
	assert.Equal(t, 1, calls)
}

func TestMemo_BypassRecomputesAndOverwrites(t *testing.T) {
	store := NewMemoryStore()
	f := NewFacade(store, nil)
	n := 0
	compute := func(context.Context) (payload, error) {
		n++
		return payload{Value: strings.Repeat("x", n)}, nil
	}

	_, _, err := Memo(context.Background(), f, "extract-02", false, compute)
	require.NoError(t, err)
	v, hit, err := Memo(context.Background(), f, "extract-02", true, compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "xx", v.Value)

	v, hit, err = Memo(context.Background(), f, "extract-02", false, compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "xx", v.Value)
}

func TestMemo_ErrorsAreNotCached(t *testing.T) {
	store := NewMemoryStore()
	f := NewFacade(store, nil)

	_, _, err := Memo(context.Background(), f, "verify-03", false, func(context.Context) (payload, error) {
		return payload{}, errors.New("oracle down")
	})
	require.Error(t, err)

	n, _ := store.Len()
	assert.Equal(t, 0, n)
}

func TestMemo_CorruptEntryIsRecomputed(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Set("press-04", []byte("not json")))
	f := NewFacade(store, nil)

	v, hit, err := Memo(context.Background(), f, "press-04", false, func(context.Context) (payload, error) {
		return payload{Value: "fresh"}, nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "fresh", v.Value)
}

// failingStore fails every operation.
type failingStore struct{}

func (failingStore) Get(string) ([]byte, bool, error) { return nil, false, errors.New("disk gone") }
func (failingStore) Set(string, []byte) error         { return errors.New("disk gone") }
func (failingStore) Len() (int, error)                { return 0, errors.New("disk gone") }
func (failingStore) Clear() error                     { return errors.New("disk gone") }
func (failingStore) Close() error                     { return nil }

func TestMemo_StoreFailuresAreNonFatal(t *testing.T) {
	f := NewFacade(failingStore{}, nil)
	v, hit, err := Memo(context.Background(), f, "restore-05", false, func(context.Context) (payload, error) {
		return payload{Value: "ok"}, nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "ok", v.Value)
}

func TestMemo_NilFacadeComputes(t *testing.T) {
	v, hit, err := Memo(context.Background(), nil, "extract-06", false, func(context.Context) (payload, error) {
		return payload{Value: "direct"}, nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "direct", v.Value)
}

func TestFileStore_UnreadableDirIsError(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("permissions are not enforced for root")
	}
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.Set("extract-aa11", []byte("x")))
	require.NoError(t, os.Chmod(filepath.Join(dir, "aa"), 0o000))
	defer os.Chmod(filepath.Join(dir, "aa"), 0o755)

	_, _, err = s.Get("extract-aa11")
	assert.Error(t, err)
}
