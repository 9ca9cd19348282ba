package hanconv_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/hanconv"
	"github.com/aretw0/hanconv/internal/testutils"
	"github.com/aretw0/hanconv/pkg/config"
	"github.com/aretw0/hanconv/pkg/diagnostics"
	"github.com/aretw0/hanconv/pkg/domain"
	"github.com/aretw0/hanconv/pkg/environment"
	"github.com/aretw0/hanconv/pkg/locator"
	"github.com/aretw0/hanconv/pkg/ports"
)

func newConverter(t *testing.T, rt *testutils.FakeRuntime, mutate func(*config.Config), opts ...hanconv.Option) (*hanconv.Converter, string) {
	t.Helper()
	ext := t.TempDir()
	script := testutils.WriteScript(t, ext, locator.DefaultScript)

	cfg := config.Default()
	cfg.ExtensionDir = ext
	if mutate != nil {
		mutate(&cfg)
	}

	empty := t.TempDir()
	opts = append([]hanconv.Option{
		hanconv.WithRuntime(rt),
		hanconv.WithLocatorOptions(
			locator.WithExecutable(func() (string, error) { return filepath.Join(empty, "hanconv"), nil }),
			locator.WithWorkingDir(func() (string, error) { return empty, nil }),
		),
	}, opts...)

	conv, err := hanconv.New(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conv.Close() })
	return conv, script
}

func TestConverter_Convert(t *testing.T) {
	rt := testutils.NewFakeRuntime()
	rt.Default = testutils.Exit(0, "简体字转换测试", "")
	conv, script := newConverter(t, rt, nil)

	out, err := conv.Convert(context.Background(), "簡體字轉換測試", domain.ActionSimplify)

	require.NoError(t, err)
	assert.Equal(t, "简体字转换测试", out)

	calls := rt.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "python", calls[0].Name)
	assert.Equal(t, []string{"-u", "-X", "utf8", script, "simplify", "簡體字轉換測試"}, calls[0].Args)
}

func TestConverter_ConvertFailureKeepsMessage(t *testing.T) {
	rt := testutils.NewFakeRuntime()
	rt.Default = testutils.Exit(1, "", "ModuleNotFoundError: No module named 'opencc'")
	conv, _ := newConverter(t, rt, nil)

	out, err := conv.Convert(context.Background(), "簡體字", domain.ActionSimplify)

	assert.Empty(t, out)
	assert.ErrorIs(t, err, domain.ErrProcessExitedNonZero)
	assert.Contains(t, err.Error(), "No module named 'opencc'")
}

func TestConverter_MemoryCache(t *testing.T) {
	rt := testutils.NewFakeRuntime()
	rt.Default = testutils.Exit(0, "Hello", "")
	conv, _ := newConverter(t, rt, func(c *config.Config) {
		c.Cache.Backend = "memory"
	})
	ctx := context.Background()

	first := conv.Dispatch(ctx, domain.ConversionRequest{Text: "你好", Action: domain.ActionTranslateEN})
	second := conv.Dispatch(ctx, domain.ConversionRequest{Text: "你好", Action: domain.ActionTranslateEN})

	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Len(t, rt.Calls(), 1)
}

func TestConverter_RedisBackends(t *testing.T) {
	mr := miniredis.RunT(t)

	rt := testutils.NewFakeRuntime().
		On("python --version", testutils.Exit(0, "Python 3.12.1", "")).
		On(`python -c "import translate"`, testutils.Exit(1, "", ""))
	rt.Default = testutils.Exit(0, "Xin chào", "")
	conv, _ := newConverter(t, rt, func(c *config.Config) {
		c.Cache.Backend = "redis"
		c.Redis.Addr = mr.Addr()
		c.Redis.LockProvisioning = true
	})
	ctx := context.Background()

	require.NoError(t, conv.Ping(ctx))

	res := conv.Dispatch(ctx, domain.ConversionRequest{Text: "你好", Action: domain.ActionTranslateVI})
	require.True(t, res.OK())
	assert.NotEmpty(t, mr.Keys(), "result stored in redis")

	report := conv.Provision(ctx)
	assert.True(t, report.Ready)
	require.NotNil(t, report.Install)
	assert.False(t, mr.Exists("hanconv:lock:provision"), "lock released after install")
}

func TestConverter_EncryptedCache(t *testing.T) {
	mr := miniredis.RunT(t)

	rt := testutils.NewFakeRuntime()
	rt.Default = testutils.Exit(0, "简体字", "")
	conv, _ := newConverter(t, rt, func(c *config.Config) {
		c.Cache.Backend = "redis"
		c.Redis.Addr = mr.Addr()
		c.Cache.EncryptionKeys = []string{base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{1}, 32))}
	})
	ctx := context.Background()
	req := domain.ConversionRequest{Text: "簡體字", Action: domain.ActionSimplify}

	require.True(t, conv.Dispatch(ctx, req).OK())
	second := conv.Dispatch(ctx, req)
	assert.True(t, second.Cached)
	assert.Equal(t, "简体字", second.Output)

	stored, err := mr.Get("hanconv:result:" + ports.CacheKey(req))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stored, "enc:v1:"))
	assert.NotContains(t, stored, "简体字")
}

func TestNew_InvalidEncryptionKey(t *testing.T) {
	cfg := config.Default()
	cfg.Cache.Backend = "memory"
	cfg.Cache.EncryptionKeys = []string{base64.StdEncoding.EncodeToString([]byte("short"))}

	_, err := hanconv.New(cfg, hanconv.WithRuntime(testutils.NewFakeRuntime()))
	assert.Error(t, err)
}

func TestConverter_StartProvisioningNotifies(t *testing.T) {
	rt := testutils.NewFakeRuntime().On("python --version", testutils.Exit(0, "Python 3.12.1", ""))

	var notices []environment.Notice
	conv, _ := newConverter(t, rt, nil, hanconv.WithNotifier(func(n environment.Notice) {
		notices = append(notices, n)
	}))

	report := <-conv.StartProvisioning(context.Background())

	assert.True(t, report.Ready)
	require.Len(t, notices, 1)
	assert.Equal(t, "All dependencies are ready", notices[0].Message)
}

func TestConverter_Diagnose(t *testing.T) {
	rt := testutils.NewFakeRuntime().
		On("python --version", testutils.Exit(0, "Python 3.12.1", "")).
		On(`python -c "import sys; print(sys.executable)"`, testutils.Exit(0, "/usr/bin/python3", ""))
	rt.On("python -u -X utf8", testutils.Exit(0, "简体字转换测试", ""))

	var events []domain.EventType
	conv, _ := newConverter(t, rt, nil, hanconv.WithHooks(domain.Hooks{
		OnConvertDone: func(_ context.Context, e *domain.ConvertEvent) { events = append(events, e.Type) },
	}))

	report := conv.Diagnose(context.Background())

	assert.True(t, report.Healthy(), report.Text())
	assert.Equal(t, []domain.EventType{domain.EventConvertDone}, events)
}

func TestConverter_DiagnoseBypassesCache(t *testing.T) {
	rt := testutils.NewFakeRuntime().
		On("python --version", testutils.Exit(0, "Python 3.12.1", "")).
		On(`python -c "import sys; print(sys.executable)"`, testutils.Exit(0, "/usr/bin/python3", "")).
		On("python -u -X utf8", testutils.Exit(0, "简体字转换测试", ""))
	conv, _ := newConverter(t, rt, func(c *config.Config) {
		c.Cache.Backend = "memory"
	})
	ctx := context.Background()

	first := conv.Diagnose(ctx)
	check, ok := first.Find(string(diagnostics.TrialAction))
	require.True(t, ok)
	assert.Equal(t, diagnostics.StatusPass, check.Status)

	rt.On("python -u -X utf8", testutils.Exit(1, "", "ModuleNotFoundError: No module named 'opencc'"))

	second := conv.Diagnose(ctx)
	check, ok = second.Find(string(diagnostics.TrialAction))
	require.True(t, ok)
	assert.Equal(t, diagnostics.StatusFail, check.Status)
	assert.Contains(t, check.Message, "opencc")
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Interpreter = ""

	_, err := hanconv.New(cfg)
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	assert.NotEmpty(t, hanconv.Version)
}
