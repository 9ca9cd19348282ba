package conversion

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/aretw0/hanconv/internal/testutils"
	"github.com/aretw0/hanconv/pkg/domain"
	"github.com/aretw0/hanconv/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scriptPath = "/opt/hanconv/converter.py"

type resolverFunc func() (string, error)

func (f resolverFunc) Resolve() (string, error) { return f() }

func found() ScriptResolver {
	return resolverFunc(func() (string, error) { return scriptPath, nil })
}

type mapCache struct {
	mu      sync.Mutex
	entries map[string]string
}

func (c *mapCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	if !ok {
		return "", ports.ErrCacheMiss
	}
	return v, nil
}

func (c *mapCache) Set(_ context.Context, key, output string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = output
	return nil
}

func newDispatcher(rt *testutils.FakeRuntime, opts ...DispatcherOption) *Dispatcher {
	return NewDispatcher(found(), NewProcess(rt, "python"), opts...)
}

func TestConvert_Simplify(t *testing.T) {
	rt := testutils.NewFakeRuntime().
		On("python -u -X utf8 "+scriptPath+" simplify 簡體字轉換測試", testutils.Exit(0, "简体字转换测试", ""))

	out, err := newDispatcher(rt).Convert(context.Background(), "簡體字轉換測試", domain.ActionSimplify)

	require.NoError(t, err)
	assert.Equal(t, "简体字转换测试", out)
	require.Len(t, rt.Calls(), 1)
}

func TestConvert_MissingModule(t *testing.T) {
	rt := testutils.NewFakeRuntime()
	rt.Default = testutils.Exit(1, "", "Traceback (most recent call last):\nModuleNotFoundError: No module named 'opencc'\n")

	out, err := newDispatcher(rt).Convert(context.Background(), "簡體字", domain.ActionSimplify)

	assert.Empty(t, out)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProcessExitedNonZero)
	assert.Contains(t, err.Error(), "code 1")
	assert.Contains(t, err.Error(), "ModuleNotFoundError: No module named 'opencc'")
}

func TestConvert_NonZeroExitWithStdoutFails(t *testing.T) {
	rt := testutils.NewFakeRuntime()
	rt.Default = testutils.Exit(1, "Hello", "")

	out, err := newDispatcher(rt).Convert(context.Background(), "你好", domain.ActionTranslateEN)

	assert.Empty(t, out)
	assert.Equal(t, domain.KindProcessExitedNonZero, domain.KindOf(err))
}

func TestConvert_InvalidInputNeverSpawns(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		action domain.ActionKind
	}{
		{"Empty Text", "", domain.ActionSimplify},
		{"Whitespace Text", "  \n\t ", domain.ActionSimplify},
		{"Unknown Action", "字", domain.ActionKind("translate_klingon")},
		{"Padded Action", "字", domain.ActionKind(" simplify ")},
		{"Uppercase Action", "字", domain.ActionKind("SIMPLIFY")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := testutils.NewFakeRuntime()

			_, err := newDispatcher(rt).Convert(context.Background(), tt.text, tt.action)

			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.Empty(t, rt.Calls())
		})
	}
}

func TestConvert_ScriptNotFoundNeverSpawns(t *testing.T) {
	rt := testutils.NewFakeRuntime()
	attempted := []string{"(extension directory not reported)", "/usr/local/bin/converter.py", "/home/u/converter.py"}
	resolver := resolverFunc(func() (string, error) {
		return "", domain.ScriptNotFoundError("converter.py", attempted)
	})

	res := NewDispatcher(resolver, NewProcess(rt, "python")).
		Dispatch(context.Background(), domain.ConversionRequest{Text: "字", Action: domain.ActionSimplify})

	require.False(t, res.OK())
	assert.Equal(t, domain.KindScriptNotFound, res.Kind())
	assert.Equal(t, attempted, res.Err.Attempted)
	assert.Empty(t, rt.Calls())
}

func TestDispatch_RequestIDAndHooks(t *testing.T) {
	rt := testutils.NewFakeRuntime()
	rt.Default = testutils.Exit(0, "Hello", "")

	var started, done []*domain.ConvertEvent
	d := newDispatcher(rt,
		WithRequestIDs(func() string { return "req-1" }),
		WithHooks(domain.Hooks{
			OnConvertStart: func(_ context.Context, e *domain.ConvertEvent) { started = append(started, e) },
			OnConvertDone:  func(_ context.Context, e *domain.ConvertEvent) { done = append(done, e) },
		}),
	)

	res := d.Dispatch(context.Background(), domain.ConversionRequest{Text: "你好", Action: domain.ActionTranslateEN})

	require.True(t, res.OK())
	assert.Equal(t, "req-1", res.RequestID)
	require.Len(t, started, 1)
	require.Len(t, done, 1)
	assert.Equal(t, 2, started[0].Chars)
	assert.Equal(t, "req-1", done[0].RequestID)
	assert.Empty(t, done[0].Kind)
}

func TestDispatch_CachesSuccessOnly(t *testing.T) {
	rt := testutils.NewFakeRuntime().
		On("python -u -X utf8 "+scriptPath+" simplify 簡體", testutils.Exit(0, "简体", "")).
		On("python -u -X utf8 "+scriptPath+" traditionalize 简体", testutils.Exit(1, "", "boom"))
	cache := &mapCache{entries: map[string]string{}}
	d := newDispatcher(rt, WithCache(cache))
	ctx := context.Background()

	first := d.Dispatch(ctx, domain.ConversionRequest{Text: "簡體", Action: domain.ActionSimplify})
	second := d.Dispatch(ctx, domain.ConversionRequest{Text: "簡體", Action: domain.ActionSimplify})

	require.True(t, first.OK())
	require.True(t, second.OK())
	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, "简体", second.Output)
	assert.Len(t, rt.Calls(), 1)

	d.Dispatch(ctx, domain.ConversionRequest{Text: "简体", Action: domain.ActionTraditionalize})
	d.Dispatch(ctx, domain.ConversionRequest{Text: "简体", Action: domain.ActionTraditionalize})
	assert.Len(t, rt.Calls(), 3, "failures are not cached")
	assert.Len(t, cache.entries, 1)
}

func TestDispatch_ConcurrentRequestsAreIndependent(t *testing.T) {
	rt := testutils.NewFakeRuntime()
	for i := 0; i < 8; i++ {
		rt.On(fmt.Sprintf("python -u -X utf8 %s translate_en 字%d", scriptPath, i), testutils.Exit(0, fmt.Sprintf("word %d", i), ""))
	}
	d := newDispatcher(rt)

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := d.Convert(context.Background(), fmt.Sprintf("字%d", i), domain.ActionTranslateEN)
			assert.NoError(t, err)
			results[i] = out
		}(i)
	}
	wg.Wait()

	for i, out := range results {
		assert.Equal(t, fmt.Sprintf("word %d", i), out)
	}
}
