package filecache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type ranking struct {
	Mode   string   `json:"mode"`
	Titles []string `json:"titles"`
}

func producerOf[T any](value T, calls *int) func(context.Context) (T, error) {
	return func(context.Context) (T, error) {
		*calls++
		return value, nil
	}
}

func TestIdempotence(t *testing.T) {
	c := New(t.TempDir())
	ctx := context.Background()

	calls := 0
	produce := producerOf(ranking{Mode: "daily", Titles: []string{"a", "b"}}, &calls)

	first, err := GetOrCompute(ctx, c, "site-ranking-daily-20240101", time.Hour, produce)
	require.NoError(t, err)
	second, err := GetOrCompute(ctx, c, "site-ranking-daily-20240101", time.Hour, produce)
	require.NoError(t, err)

	require.Equal(t, 1, calls)
	require.Equal(t, first, second)
}

func TestStaleFallback(t *testing.T) {
	dir := t.TempDir()
	c := New(dir)
	ctx := context.Background()

	calls := 0
	_, err := GetOrCompute(ctx, c, "entry", time.Hour, producerOf("V", &calls))
	require.NoError(t, err)

	// force the entry past its expiry
	file := filepath.Join(dir, "entry")
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(file, old, old))

	failing := func(context.Context) (string, error) {
		return "", errors.New("upstream broke")
	}
	got, err := GetOrCompute(ctx, c, "entry", time.Hour, failing)
	require.NoError(t, err)
	require.Equal(t, "V", got)
}

func TestMissingEntryPropagatesProducerError(t *testing.T) {
	c := New(t.TempDir())

	failing := func(context.Context) (string, error) {
		return "", errors.New("upstream broke")
	}
	_, err := GetOrCompute(context.Background(), c, "entry", time.Hour, failing)
	require.Error(t, err)
}

func TestExpiryScenario(t *testing.T) {
	dir := t.TempDir()
	c := New(dir)
	ctx := context.Background()

	calls := 0
	produce := producerOf("v1", &calls)
	key := "site-ranking-daily-20240101"

	_, err := GetOrCompute(ctx, c, key, 3600*time.Second, produce)
	require.NoError(t, err)
	require.Equal(t, 1, calls)
	require.FileExists(t, filepath.Join(dir, key))

	// within expiry: cached, producer not invoked
	_, err = GetOrCompute(ctx, c, key, 3600*time.Second, produce)
	require.NoError(t, err)
	require.Equal(t, 1, calls)

	// mtime forced to now-4000s: refresh happens
	old := time.Now().Add(-4000 * time.Second)
	require.NoError(t, os.Chtimes(filepath.Join(dir, key), old, old))
	_, err = GetOrCompute(ctx, c, key, 3600*time.Second, produce)
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func TestInvalidKey(t *testing.T) {
	c := New(t.TempDir())

	calls := 0
	_, err := GetOrCompute(context.Background(), c, "../escape", time.Hour, producerOf("x", &calls))
	require.ErrorIs(t, err, ErrInvalidKey)
	require.Equal(t, 0, calls)

	_, err = GetOrCompute(context.Background(), c, "", time.Hour, producerOf("x", &calls))
	require.ErrorIs(t, err, ErrInvalidKey)
}

func TestDisabledCache(t *testing.T) {
	c := New("")

	calls := 0
	produce := producerOf("x", &calls)
	_, err := GetOrCompute(context.Background(), c, "key", time.Hour, produce)
	require.NoError(t, err)
	_, err = GetOrCompute(context.Background(), c, "key", time.Hour, produce)
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func TestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	c := New(dir)
	ctx := context.Background()

	in := ranking{Mode: "weekly", Titles: []string{"タイトル", "<b>&amp;</b>"}}
	calls := 0
	_, err := GetOrCompute(ctx, c, "rt", time.Hour, producerOf(in, &calls))
	require.NoError(t, err)

	out, err := GetOrCompute(ctx, c, "rt", time.Hour, producerOf(ranking{}, &calls))
	require.NoError(t, err)
	require.Equal(t, 1, calls)
	require.Equal(t, in, out)

	// compact UTF-8 JSON on disk, no HTML escaping
	raw, err := os.ReadFile(filepath.Join(dir, "rt"))
	require.NoError(t, err)
	require.Contains(t, string(raw), "タイトル")
	require.Contains(t, string(raw), "<b>&amp;</b>")
	require.NotContains(t, string(raw), "\n")
	require.NotContains(t, string(raw), ": ")
}
