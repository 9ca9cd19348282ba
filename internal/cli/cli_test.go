package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/hanconv"
	"github.com/aretw0/hanconv/internal/testutils"
	"github.com/aretw0/hanconv/pkg/diagnostics"
	"github.com/aretw0/hanconv/pkg/domain"
	"github.com/aretw0/hanconv/pkg/environment"
)

// stubService answers every dispatch with fn and records requests.
type stubService struct {
	fn        func(domain.ConversionRequest) domain.ConversionResult
	requests  []domain.ConversionRequest
	report    *diagnostics.Report
	provision environment.ProvisionReport
}

func (s *stubService) Dispatch(_ context.Context, req domain.ConversionRequest) domain.ConversionResult {
	s.requests = append(s.requests, req)
	return s.fn(req)
}

func (s *stubService) Diagnose(context.Context) *diagnostics.Report { return s.report }

func (s *stubService) Provision(context.Context) environment.ProvisionReport { return s.provision }

func upper(req domain.ConversionRequest) domain.ConversionResult {
	return domain.Success(strings.ToUpper(req.Text))
}

func TestReadInput(t *testing.T) {
	ctx := context.Background()

	t.Run("Args are joined", func(t *testing.T) {
		text, err := ReadInput(ctx, []string{"簡體字", "轉換"}, strings.NewReader("ignored"), false)
		require.NoError(t, err)
		assert.Equal(t, "簡體字 轉換", text)
	})

	t.Run("Piped stdin", func(t *testing.T) {
		text, err := ReadInput(ctx, nil, strings.NewReader("第一行\n第二行\n"), false)
		require.NoError(t, err)
		assert.Equal(t, "第一行\n第二行\n", text)
	})

	t.Run("Terminal without args", func(t *testing.T) {
		_, err := ReadInput(ctx, nil, strings.NewReader(""), true)
		assert.ErrorIs(t, err, ErrNoInput)
	})

	t.Run("Cancelled while reading", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := ReadInput(cctx, nil, strings.NewReader("text"), false)
		assert.True(t, isInterrupted(err))
		assert.NoError(t, handleExecutionError(err))
	})
}

func TestRunConvert(t *testing.T) {
	ctx := context.Background()

	t.Run("Success adds trailing newline", func(t *testing.T) {
		svc := &stubService{fn: upper}
		var out, errOut bytes.Buffer

		err := RunConvert(ctx, svc, "hello", ConvertOptions{Action: "translate_en"}, &out, &errOut)

		require.NoError(t, err)
		assert.Equal(t, "HELLO\n", out.String())
		assert.Empty(t, errOut.String())
		assert.Equal(t, domain.ActionTranslateEN, svc.requests[0].Action)
	})

	t.Run("Failure never echoes input", func(t *testing.T) {
		svc := &stubService{fn: func(domain.ConversionRequest) domain.ConversionResult {
			return domain.Failure(domain.NewError(domain.KindEmptyResult, "no result produced"))
		}}
		var out, errOut bytes.Buffer

		err := RunConvert(ctx, svc, "你好", ConvertOptions{Action: "simplify"}, &out, &errOut)

		assert.ErrorIs(t, err, domain.ErrEmptyResult)
		assert.Empty(t, out.String())
		assert.Contains(t, errOut.String(), "no result produced")
	})

	t.Run("Unknown action is rejected before dispatch", func(t *testing.T) {
		svc := &stubService{fn: upper}

		err := RunConvert(ctx, svc, "hello", ConvertOptions{Action: "shout"}, &bytes.Buffer{}, &bytes.Buffer{})

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Empty(t, svc.requests)
	})

	t.Run("JSON output", func(t *testing.T) {
		svc := &stubService{fn: func(req domain.ConversionRequest) domain.ConversionResult {
			res := domain.Failure(domain.NewError(domain.KindTimeout, "conversion timed out after 30s"))
			res.RequestID = "req-1"
			return res
		}}
		var out bytes.Buffer

		err := RunConvert(ctx, svc, "hello", ConvertOptions{Action: "translate_de", JSON: true}, &out, &bytes.Buffer{})

		assert.ErrorIs(t, err, domain.ErrTimeout)
		var got map[string]any
		require.NoError(t, json.Unmarshal(out.Bytes(), &got))
		assert.Equal(t, "req-1", got["request_id"])
		assert.Equal(t, "timeout", got["kind"])
	})

	t.Run("Lines mode dispatches each non-blank line", func(t *testing.T) {
		svc := &stubService{fn: upper}
		var out bytes.Buffer

		err := RunConvert(ctx, svc, "a\n\n  \nb\n", ConvertOptions{Action: "simplify", Lines: true}, &out, &bytes.Buffer{})

		require.NoError(t, err)
		assert.Equal(t, "A\nB\n", out.String())
		assert.Len(t, svc.requests, 2)
	})
}

func TestRunProvision(t *testing.T) {
	ctx := context.Background()
	lib := domain.LibrarySpec{ImportName: "opencc", PackageSpec: "opencc-python-reimplemented"}

	t.Run("Ready", func(t *testing.T) {
		svc := &stubService{provision: environment.ProvisionReport{
			RuntimeVersion: "Python 3.12.1",
			Libraries:      []environment.LibraryStatus{{Library: lib, Present: true}},
			Ready:          true,
		}}
		var out bytes.Buffer

		require.NoError(t, RunProvision(ctx, svc, &out))
		assert.Contains(t, out.String(), "Python 3.12.1")
		assert.Contains(t, out.String(), "opencc-python-reimplemented")
	})

	t.Run("Missing without install", func(t *testing.T) {
		svc := &stubService{provision: environment.ProvisionReport{
			RuntimeVersion: "Python 3.12.1",
			Libraries:      []environment.LibraryStatus{{Library: lib}},
		}}
		var out bytes.Buffer

		assert.ErrorIs(t, RunProvision(ctx, svc, &out), ErrNotReady)
		assert.Contains(t, out.String(), "missing")
	})

	t.Run("Runtime unavailable", func(t *testing.T) {
		svc := &stubService{provision: environment.ProvisionReport{
			RuntimeErr: domain.NewError(domain.KindRuntimeUnavailable, "python not found"),
		}}

		assert.ErrorIs(t, RunProvision(ctx, svc, &bytes.Buffer{}), domain.ErrRuntimeUnavailable)
	})
}

func TestRunDiagnose(t *testing.T) {
	ctx := context.Background()
	report := &diagnostics.Report{
		Checks: []diagnostics.Check{
			{Section: diagnostics.SectionRuntime, Name: "Python", Status: diagnostics.StatusPass, Message: "Python 3.12.1"},
		},
		Summary: diagnostics.Summary{Pass: 1},
	}
	svc := &stubService{report: report}

	var text bytes.Buffer
	require.NoError(t, RunDiagnose(ctx, svc, FormatText, false, &text))
	assert.Contains(t, text.String(), "Python 3.12.1")

	var md bytes.Buffer
	require.NoError(t, RunDiagnose(ctx, svc, FormatMarkdown, false, &md))
	assert.Contains(t, md.String(), "## Runtime")

	var js bytes.Buffer
	require.NoError(t, RunDiagnose(ctx, svc, FormatJSON, false, &js))
	var decoded diagnostics.Report
	require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
	assert.Equal(t, 1, decoded.Summary.Pass)

	assert.Error(t, RunDiagnose(ctx, svc, "yaml", false, &bytes.Buffer{}))

	report.Summary.Fail = 1
	assert.ErrorIs(t, RunDiagnose(ctx, svc, FormatText, false, &bytes.Buffer{}), ErrUnhealthy)
}

func TestRunActions(t *testing.T) {
	var text bytes.Buffer
	require.NoError(t, RunActions(&text, false))
	for _, name := range domain.ActionNames() {
		assert.Contains(t, text.String(), name)
	}

	var js bytes.Buffer
	require.NoError(t, RunActions(&js, true))
	var actions []map[string]any
	require.NoError(t, json.Unmarshal(js.Bytes(), &actions))
	assert.Len(t, actions, len(domain.ActionNames()))
	assert.Equal(t, "zh-Hans", actions[0]["target"])
}

func TestLoadConfig(t *testing.T) {
	t.Run("Flags override defaults", func(t *testing.T) {
		cfg, err := LoadConfig(Options{
			ExtensionDir: "/opt/ext",
			Python:       "python3",
			Timeout:      5 * time.Second,
			CacheBackend: "memory",
		})
		require.NoError(t, err)
		assert.Equal(t, "/opt/ext", cfg.ExtensionDir)
		assert.Equal(t, "python3", cfg.Interpreter)
		assert.Equal(t, 5*time.Second, cfg.Timeout.Std())
		assert.Equal(t, "memory", cfg.Cache.Backend)
	})

	t.Run("Explicit file must exist", func(t *testing.T) {
		_, err := LoadConfig(Options{ConfigPath: filepath.Join(t.TempDir(), "missing.yaml")})
		assert.Error(t, err)
	})

	t.Run("Invalid cache backend", func(t *testing.T) {
		_, err := LoadConfig(Options{CacheBackend: "disk"})
		assert.Error(t, err)
	})

	t.Run("Invalid log level", func(t *testing.T) {
		_, _, err := NewConverter(Options{LogLevel: "loud"})
		assert.Error(t, err)
	})
}

func TestBuildServer(t *testing.T) {
	ext := t.TempDir()
	testutils.WriteScript(t, ext, "converter.py")
	t.Setenv("HANCONV_EXTENSION_DIR", ext)

	rt := testutils.NewFakeRuntime()
	rt.Default = testutils.Exit(0, "简体字转换测试", "")

	handler, conv, _, err := BuildServer(Options{}, hanconv.WithRuntime(rt))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conv.Close() })

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/convert", strings.NewReader(`{"text":"簡體字轉換測試","action":"simplify"}`))
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "简体字转换测试")

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `hanconv_conversions_total{action="simplify",kind=""} 1`)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestHandleExecutionError(t *testing.T) {
	assert.NoError(t, handleExecutionError(nil))
	assert.NoError(t, handleExecutionError(context.Canceled))
	assert.NoError(t, handleExecutionError(errInterrupted))

	boom := errors.New("boom")
	assert.Equal(t, boom, handleExecutionError(boom))
}
