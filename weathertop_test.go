package weathertop

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/weathertop/types"
)

// trackedMockPipeline counts runs and signals each one.
type trackedMockPipeline struct {
	mock.Mock
	runCount atomic.Int32
	runCh    chan struct{}
}

func newTrackedMockPipeline() *trackedMockPipeline {
	return &trackedMockPipeline{runCh: make(chan struct{}, 100)}
}

func (m *trackedMockPipeline) Run(ctx context.Context) (*types.RunReport, error) {
	m.runCount.Add(1)
	args := m.Called()
	select {
	case m.runCh <- struct{}{}:
	default:
	}
	report, _ := args.Get(0).(*types.RunReport)
	return report, args.Error(1)
}

func (m *trackedMockPipeline) waitForRuns(ctx context.Context, count int32) bool {
	timeoutCtx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		if m.runCount.Load() >= count {
			return true
		}
		select {
		case <-m.runCh:
		case <-ticker.C:
		case <-timeoutCtx.Done():
			return false
		}
	}
}

func reportWithFailures(failed int) *types.RunReport {
	return &types.RunReport{
		SchemaVersion: types.SchemaVersion,
		RunID:         "run",
		Results: types.Results{
			Tool:    "go",
			Summary: types.Summary{Services: 1, Tests: 4, Passed: 4 - failed, Failed: failed},
		},
	}
}

func setupService(t *testing.T) (*trackedMockPipeline, *weathertop, context.Context, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	p := newTrackedMockPipeline()
	w := &weathertop{
		ctx: ctx,
		config: &Config{
			Ecosystem:   types.EcosystemGo,
			Log:         log.New(),
			RunInterval: 25 * time.Millisecond,
		},
		pipeline:         p,
		done:             make(chan struct{}),
		shutdownCallback: func(error) {},
	}
	return p, w, ctx, cancel
}

func teardownService(t *testing.T, w *weathertop, cancel context.CancelFunc) {
	t.Helper()
	cancel()
	if !w.Stopped() {
		assert.NoError(t, w.Stop(context.Background()))
	}
	ctx, cancelWait := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancelWait()
	if err := w.WaitForShutdown(ctx); err != nil {
		t.Logf("Warning: service did not shut down cleanly: %v", err)
	}
}

func TestStartRunsImmediately(t *testing.T) {
	p, w, ctx, cancel := setupService(t)
	defer teardownService(t, w, cancel)
	p.On("Run").Return(reportWithFailures(0), nil)

	require.NoError(t, w.Start(ctx))
	require.True(t, p.waitForRuns(ctx, 1))
	assert.NotNil(t, w.LastReport())
}

func TestStartRunsPeriodically(t *testing.T) {
	p, w, ctx, cancel := setupService(t)
	defer teardownService(t, w, cancel)
	p.On("Run").Return(reportWithFailures(0), nil)

	require.NoError(t, w.Start(ctx))
	require.True(t, p.waitForRuns(ctx, 3))
	assert.GreaterOrEqual(t, p.runCount.Load(), int32(3))
}

func TestContinuousModeSurvivesRunErrors(t *testing.T) {
	p, w, ctx, cancel := setupService(t)
	defer teardownService(t, w, cancel)
	p.On("Run").Return(nil, errors.New("clone failed"))

	require.NoError(t, w.Start(ctx))
	require.True(t, p.waitForRuns(ctx, 2))
	assert.False(t, w.Stopped())
}

func TestContextCancellationStopsRuns(t *testing.T) {
	p, w, ctx, cancel := setupService(t)
	defer teardownService(t, w, cancel)
	p.On("Run").Return(reportWithFailures(0), nil)

	require.NoError(t, w.Start(ctx))
	require.True(t, p.waitForRuns(ctx, 1))

	cancel()
	time.Sleep(50 * time.Millisecond)
	assert.True(t, w.Stopped())

	before := p.runCount.Load()
	time.Sleep(3 * w.config.RunInterval)
	assert.Equal(t, before, p.runCount.Load())
}

func TestRunOnceMode(t *testing.T) {
	tests := []struct {
		name        string
		failOnTests bool
		report      *types.RunReport
		runErr      error
		check       func(t *testing.T, err error)
		shutdown    bool
	}{
		{
			name:     "success",
			report:   reportWithFailures(0),
			check:    func(t *testing.T, err error) { assert.NoError(t, err) },
			shutdown: true,
		},
		{
			name:     "failures ignored by default",
			report:   reportWithFailures(2),
			check:    func(t *testing.T, err error) { assert.NoError(t, err) },
			shutdown: true,
		},
		{
			name:        "failures fail the run when asked",
			failOnTests: true,
			report:      reportWithFailures(2),
			check: func(t *testing.T, err error) {
				var failure *TestFailureError
				require.ErrorAs(t, err, &failure)
				assert.Equal(t, "run", failure.RunID)
				assert.Equal(t, types.EcosystemGo, failure.Ecosystem)
				assert.Equal(t, 2, failure.Failed)
				assert.Contains(t, err.Error(), "2 of 4 tests failed")
			},
		},
		{
			name:   "runtime error",
			runErr: errors.New("discovery failed"),
			check: func(t *testing.T, err error) {
				var runtimeErr *RuntimeError
				require.ErrorAs(t, err, &runtimeErr)
				assert.Equal(t, types.EcosystemGo, runtimeErr.Ecosystem)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, w, ctx, cancel := setupService(t)
			defer cancel()
			w.config.RunOnce = true
			w.config.FailOnTestFailure = tt.failOnTests

			shutdownCalled := make(chan struct{}, 1)
			w.shutdownCallback = func(error) { shutdownCalled <- struct{}{} }
			p.On("Run").Return(tt.report, tt.runErr).Once()

			err := w.Start(ctx)
			tt.check(t, err)
			assert.True(t, w.Stopped())

			if tt.shutdown {
				select {
				case <-shutdownCalled:
				case <-time.After(time.Second):
					t.Fatal("shutdown callback not called")
				}
			}

			time.Sleep(3 * w.config.RunInterval)
			p.AssertNumberOfCalls(t, "Run", 1)
		})
	}
}

func TestStopIsIdempotent(t *testing.T) {
	p, w, ctx, cancel := setupService(t)
	defer cancel()
	p.On("Run").Return(reportWithFailures(0), nil)

	require.NoError(t, w.Start(ctx))
	require.NoError(t, w.Stop(context.Background()))
	assert.True(t, w.Stopped())
	require.NoError(t, w.Stop(context.Background()))
}

func TestNewRequiresConfig(t *testing.T) {
	_, err := New(context.Background(), nil, "v0", func(error) {})
	assert.Error(t, err)
}
