package environment

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/hanconv/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockRuntime implements ports.ExternalRuntime
type MockRuntime struct {
	mock.Mock
}

func (m *MockRuntime) Run(ctx context.Context, cmd domain.Command) (domain.ProcessOutcome, error) {
	args := m.Called(ctx, cmd)
	return args.Get(0).(domain.ProcessOutcome), args.Error(1)
}

var missingPair = []domain.LibrarySpec{
	{ImportName: "opencc", PackageSpec: "opencc-python-reimplemented"},
	{ImportName: "deep_translator", PackageSpec: "deep-translator"},
}

func TestInstaller_Success(t *testing.T) {
	rt := new(MockRuntime)
	rt.On("Run", mock.Anything, domain.Command{
		Name: "pip",
		Args: []string{"install", "opencc-python-reimplemented", "deep-translator"},
	}).Return(domain.ProcessOutcome{ExitCode: domain.ExitStatus(0), Stdout: "Successfully installed"}, nil).Once()

	var events []*domain.InstallEvent
	inst := NewInstaller(rt, "pip", WithInstallerHooks(domain.Hooks{
		OnInstall: func(_ context.Context, e *domain.InstallEvent) { events = append(events, e) },
	}))

	outcome := inst.Install(context.Background(), missingPair)

	assert.True(t, outcome.Success)
	assert.Nil(t, outcome.Err)
	assert.Empty(t, outcome.Manual)
	assert.Equal(t, "pip install opencc-python-reimplemented deep-translator", outcome.Command)
	require.Len(t, events, 1)
	assert.True(t, events[0].Success)
	rt.AssertExpectations(t)
}

func TestInstaller_Failure(t *testing.T) {
	rt := new(MockRuntime)
	rt.On("Run", mock.Anything, mock.Anything).
		Return(domain.ProcessOutcome{ExitCode: domain.ExitStatus(1), Stderr: "ERROR: Could not find a version"}, nil).Once()

	outcome := NewInstaller(rt, "pip").Install(context.Background(), missingPair)

	assert.False(t, outcome.Success)
	require.NotNil(t, outcome.Err)
	assert.ErrorIs(t, outcome.Err, domain.ErrInstallFailed)
	assert.Equal(t, "ERROR: Could not find a version", outcome.Stderr)
	assert.Equal(t, []string{
		"pip install opencc-python-reimplemented",
		"pip install deep-translator",
	}, outcome.Manual)
	rt.AssertNumberOfCalls(t, "Run", 1)
}

func TestInstaller_SpawnFailure(t *testing.T) {
	rt := new(MockRuntime)
	rt.On("Run", mock.Anything, mock.Anything).
		Return(domain.ProcessOutcome{}, errors.New("exec: \"pip\": executable file not found in $PATH"))

	outcome := NewInstaller(rt, "pip").Install(context.Background(), missingPair)

	assert.False(t, outcome.Success)
	assert.ErrorIs(t, outcome.Err, domain.ErrInstallFailed)
	assert.Len(t, outcome.Manual, 2)
	assert.Contains(t, outcome.Manual[0], "opencc-python-reimplemented")
	assert.Contains(t, outcome.Manual[1], "deep-translator")
}

func TestInstaller_EmptyIsNoop(t *testing.T) {
	rt := new(MockRuntime)

	outcome := NewInstaller(rt, "pip").Install(context.Background(), nil)

	assert.True(t, outcome.Success)
	assert.Empty(t, outcome.Command)
	rt.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}

func TestInstaller_KeepsVersionPins(t *testing.T) {
	rt := new(MockRuntime)
	rt.On("Run", mock.Anything, mock.Anything).Return(domain.ProcessOutcome{ExitCode: domain.ExitStatus(0)}, nil)

	outcome := NewInstaller(rt, "pip").Install(context.Background(), []domain.LibrarySpec{
		{ImportName: "googletrans", PackageSpec: "googletrans==4.0.0rc1"},
	})

	assert.Equal(t, "pip install googletrans==4.0.0rc1", outcome.Command)
}
