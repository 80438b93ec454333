package metrics

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	MetricsNamespace = "weathertop"
)

// Service outcomes used as the outcome label.
const (
	OutcomePassed  = "passed"
	OutcomeFailed  = "failed"
	OutcomeNoTests = "no_tests"
)

var (
	Debug                bool = true
	nonAlphanumericRegex      = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	servicesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "services_total",
		Help:      "Count of services processed, by outcome",
	}, []string{
		"ecosystem",
		"outcome",
	})

	testsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "tests_total",
		Help:      "Count of tests observed, by result",
	}, []string{
		"ecosystem",
		"result",
	})

	serviceDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: MetricsNamespace,
		Name:      "service_duration_seconds",
		Help:      "Wall time spent running one service",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
	}, []string{
		"ecosystem",
	})

	runResult = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_result",
		Help:      "Result of the most recent run (1 for the current result)",
	}, []string{
		"ecosystem",
		"run_id",
		"result",
	})

	runPassRate = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_pass_rate",
		Help:      "Pass rate of the most recent run as a fraction of tests",
	}, []string{
		"ecosystem",
	})

	runDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_duration_seconds",
		Help:      "Duration of the most recent run",
	}, []string{
		"ecosystem",
	})

	uploadErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "upload_errors_total",
		Help:      "Count of failed report uploads",
	}, []string{
		"ecosystem",
	})
)

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func RecordError(error string) {
	if Debug {
		log.Debug("metric inc",
			"m", "errors_total",
			"error", error,
		)
	}
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	RecordError(label)
}

// RecordService counts one finished service and its tests.
func RecordService(ecosystem, outcome string, passed, failed, skipped int, duration time.Duration) {
	if Debug {
		log.Debug("metric inc",
			"m", "services_total",
			"ecosystem", ecosystem,
			"outcome", outcome,
			"passed", passed,
			"failed", failed,
			"skipped", skipped)
	}
	servicesTotal.WithLabelValues(ecosystem, outcome).Inc()
	if outcome == OutcomeNoTests {
		return
	}
	testsTotal.WithLabelValues(ecosystem, OutcomePassed).Add(float64(passed))
	testsTotal.WithLabelValues(ecosystem, OutcomeFailed).Add(float64(failed))
	testsTotal.WithLabelValues(ecosystem, "skipped").Add(float64(skipped))
	serviceDuration.WithLabelValues(ecosystem).Observe(duration.Seconds())
}

// RecordRun publishes the outcome of a completed run.
func RecordRun(ecosystem, runID, result string, passRate float64, duration time.Duration) {
	runResult.WithLabelValues(ecosystem, runID, result).Set(1)
	runPassRate.WithLabelValues(ecosystem).Set(passRate)
	runDuration.WithLabelValues(ecosystem).Set(duration.Seconds())
}

func RecordUploadError(ecosystem string) {
	uploadErrorsTotal.WithLabelValues(ecosystem).Inc()
}
