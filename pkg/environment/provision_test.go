package environment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/hanconv/internal/testutils"
	"github.com/aretw0/hanconv/pkg/domain"
	"github.com/aretw0/hanconv/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noticeRecorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *noticeRecorder) notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *noticeRecorder) last() Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.notices[len(r.notices)-1]
}

type fakeLocker struct {
	err      error
	locked   int
	unlocked int
}

func (l *fakeLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	if l.err != nil {
		return nil, l.err
	}
	l.locked++
	return func(context.Context) error {
		l.unlocked++
		return nil
	}, nil
}

func newProvisioner(rt *testutils.FakeRuntime, rec *noticeRecorder, opts ...ProvisionerOption) *Provisioner {
	opts = append([]ProvisionerOption{WithNotifier(rec.notify)}, opts...)
	return NewProvisioner(NewProbe(rt, "python"), NewInstaller(rt, "pip"), domain.DefaultLibraries(), opts...)
}

func TestProvisioner_AllPresent(t *testing.T) {
	rt := testutils.NewFakeRuntime().On("python --version", testutils.Exit(0, "Python 3.12.1", ""))
	rec := &noticeRecorder{}

	report := newProvisioner(rt, rec).Run(context.Background())

	assert.True(t, report.Ready)
	assert.Equal(t, "Python 3.12.1", report.RuntimeVersion)
	assert.Nil(t, report.Install)
	assert.Len(t, rt.Calls(), 5, "runtime probe plus one probe per library")
	for _, line := range rt.CallLines() {
		assert.NotContains(t, line, "pip")
	}
	assert.Equal(t, SeverityInfo, rec.last().Severity)
}

func TestProvisioner_InstallsExactlyMissing(t *testing.T) {
	rt := testutils.NewFakeRuntime().
		On("python --version", testutils.Exit(0, "Python 3.12.1", "")).
		On(`python -c "import opencc"`, testutils.Exit(1, "", "ModuleNotFoundError")).
		On(`python -c "import deep_translator"`, testutils.Exit(1, "", "ModuleNotFoundError"))
	rec := &noticeRecorder{}

	report := newProvisioner(rt, rec).Run(context.Background())

	require.NotNil(t, report.Install)
	assert.True(t, report.Ready)

	var installs []domain.Command
	for _, c := range rt.Calls() {
		if c.Name == "pip" {
			installs = append(installs, c)
		}
	}
	require.Len(t, installs, 1, "one batched install")
	assert.Equal(t, []string{"install", "opencc-python-reimplemented", "deep-translator"}, installs[0].Args)
	assert.Equal(t, []string{"opencc", "deep_translator"}, importNames(report.Missing()))
}

func TestProvisioner_InstallFailureNotifiesManualSteps(t *testing.T) {
	rt := testutils.NewFakeRuntime().
		On("python --version", testutils.Exit(0, "Python 3.12.1", "")).
		On(`python -c "import opencc"`, testutils.Exit(1, "", "")).
		On(`python -c "import deep_translator"`, testutils.Exit(1, "", "")).
		On("pip install", testutils.Exit(1, "", "Permission denied"))
	rec := &noticeRecorder{}

	report := newProvisioner(rt, rec).Run(context.Background())

	assert.False(t, report.Ready)
	notice := rec.last()
	assert.Equal(t, SeverityError, notice.Severity)
	assert.Contains(t, notice.Message, "pip install opencc-python-reimplemented deep-translator")
	assert.Equal(t, []string{"pip install opencc-python-reimplemented", "pip install deep-translator"}, notice.Manual)
}

func TestProvisioner_RuntimeMissingStops(t *testing.T) {
	rt := testutils.NewFakeRuntime().On("python --version", testutils.SpawnError(errors.New("not found")))
	rec := &noticeRecorder{}

	report := newProvisioner(rt, rec).Run(context.Background())

	assert.False(t, report.Ready)
	require.NotNil(t, report.RuntimeErr)
	assert.Equal(t, domain.KindRuntimeUnavailable, report.RuntimeErr.Kind)
	assert.Len(t, rt.Calls(), 1)
	assert.Equal(t, SeverityError, rec.last().Severity)
}

func TestProvisioner_AutoInstallDisabled(t *testing.T) {
	rt := testutils.NewFakeRuntime().
		On("python --version", testutils.Exit(0, "Python 3.12.1", "")).
		On(`python -c "import translate"`, testutils.Exit(1, "", ""))
	rec := &noticeRecorder{}

	report := newProvisioner(rt, rec, WithAutoInstall(false)).Run(context.Background())

	assert.False(t, report.Ready)
	assert.Nil(t, report.Install)
	assert.Equal(t, SeverityWarning, rec.last().Severity)
	assert.Equal(t, []string{"pip install translate"}, rec.last().Manual)
}

func TestProvisioner_LockGuardsInstall(t *testing.T) {
	rt := testutils.NewFakeRuntime().
		On("python --version", testutils.Exit(0, "Python 3.12.1", "")).
		On(`python -c "import translate"`, testutils.Exit(1, "", ""))
	locker := &fakeLocker{}

	report := newProvisioner(rt, &noticeRecorder{}, WithLocker(locker, time.Minute)).Run(context.Background())

	require.NotNil(t, report.Install)
	assert.Equal(t, 1, locker.locked)
	assert.Equal(t, 1, locker.unlocked)
	assert.Len(t, report.Libraries, 4)
}

func TestProvisioner_LockFailureSkipsInstall(t *testing.T) {
	rt := testutils.NewFakeRuntime().
		On("python --version", testutils.Exit(0, "Python 3.12.1", "")).
		On(`python -c "import translate"`, testutils.Exit(1, "", ""))
	rec := &noticeRecorder{}

	report := newProvisioner(rt, rec, WithLocker(&fakeLocker{err: context.DeadlineExceeded}, 0)).Run(context.Background())

	assert.Nil(t, report.Install)
	assert.False(t, report.Ready)
	assert.Equal(t, SeverityWarning, rec.last().Severity)
}

func TestProvisioner_StartRunsInBackground(t *testing.T) {
	release := make(chan struct{})
	rt := testutils.NewFakeRuntime().On("python --version", testutils.Exit(0, "Python 3.12.1", ""))
	rt.Hook = func(ctx context.Context, cmd domain.Command) {
		<-release
	}

	ch := newProvisioner(rt, &noticeRecorder{}).Start(context.Background())

	select {
	case <-ch:
		t.Fatal("provisioning should still be blocked")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	select {
	case report, ok := <-ch:
		require.True(t, ok)
		assert.True(t, report.Ready)
	case <-time.After(2 * time.Second):
		t.Fatal("provisioning did not finish")
	}

	_, ok := <-ch
	assert.False(t, ok, "channel closed after the report")
}
