package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"options_venue/errs"
)

func TestMemoryLoadMissingKey(t *testing.T) {
	m := NewMemory()

	_, err := m.Load(context.Background(), "nope")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestMemorySaveLoad(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Save(ctx, "balances", []byte(`{"1":{"real":100}}`)))

	raw, err := m.Load(ctx, "balances")
	require.NoError(t, err)
	require.JSONEq(t, `{"1":{"real":100}}`, string(raw))

	require.ElementsMatch(t, []string{"balances"}, m.Keys())
}

func TestMemoryCopiesOnWriteAndRead(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	value := []byte("abc")
	require.NoError(t, m.Save(ctx, "k", value))
	value[0] = 'x'

	raw, err := m.Load(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("abc"), raw, "mutating the saved slice must not leak in")

	raw[0] = 'y'
	again, err := m.Load(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("abc"), again, "mutating a loaded slice must not leak back")
}

func TestLoadJSONSaveJSON(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	type payload struct {
		Name  string  `json:"name"`
		Price float64 `json:"price"`
	}

	in := payload{Name: "BTC/USD", Price: 68420.55}
	require.NoError(t, SaveJSON(ctx, m, "asset", in))

	var out payload
	require.NoError(t, LoadJSON(ctx, m, "asset", &out))
	require.Equal(t, in, out)

	var untouched payload
	err := LoadJSON(ctx, m, "missing", &untouched)
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.Zero(t, untouched)
}

func TestLoadJSONRejectsCorruptPayload(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Save(ctx, "bad", []byte("{not json")))

	var out map[string]any
	err := LoadJSON(ctx, m, "bad", &out)
	require.Error(t, err)
	require.NotErrorIs(t, err, errs.ErrNotFound)
}
