package metrics

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestErrToLabel(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "nil error", err: nil},
		{name: "simple error", err: errors.New("test error")},
		{name: "error with special chars", err: errors.New("test@error#123")},
		{name: "error with multiple spaces", err: errors.New("test   error")},
		{name: "error with multiple underscores", err: errors.New("test__error")},
	}

	validLabelRegex := regexp.MustCompile(`[a-zA-Z_][a-zA-Z0-9_]*`)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := errToLabel(tt.err)
			assert.Regexp(t, validLabelRegex, result)
		})
	}
}

func TestRecordError(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordError("test_error")
		RecordErrorDetails("clone", errors.New("repository not found"))
		RecordErrorDetails("clone", nil)
	})
}

func TestRecordService(t *testing.T) {
	RecordService("rust", OutcomeFailed, 4, 1, 2, 3*time.Second)
	RecordService("rust", OutcomeNoTests, 0, 0, 0, 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(servicesTotal.WithLabelValues("rust", OutcomeFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(servicesTotal.WithLabelValues("rust", OutcomeNoTests)))
	assert.Equal(t, 4.0, testutil.ToFloat64(testsTotal.WithLabelValues("rust", OutcomePassed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(testsTotal.WithLabelValues("rust", OutcomeFailed)))
	assert.Equal(t, 2.0, testutil.ToFloat64(testsTotal.WithLabelValues("rust", "skipped")))
}

func TestRecordRun(t *testing.T) {
	RecordRun("cpp", "run-1", OutcomePassed, 0.875, time.Minute)
	assert.Equal(t, 1.0, testutil.ToFloat64(runResult.WithLabelValues("cpp", "run-1", OutcomePassed)))
	assert.Equal(t, 0.875, testutil.ToFloat64(runPassRate.WithLabelValues("cpp")))
	assert.Equal(t, 60.0, testutil.ToFloat64(runDuration.WithLabelValues("cpp")))
}

func TestRecordUploadError(t *testing.T) {
	RecordUploadError("php")
	RecordUploadError("php")
	assert.Equal(t, 2.0, testutil.ToFloat64(uploadErrorsTotal.WithLabelValues("php")))
}
