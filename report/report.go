package report

import (
	"errors"
	"sort"

	"github.com/rs/zerolog"
)

// Metrics is a named summary of one training update, e.g. its loss
type Metrics map[string]float64

// Keys returns the metric names in sorted order
func (m Metrics) Keys() []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Merge returns the union of metrics. A later name overrides an earlier one.
func Merge(metrics ...Metrics) Metrics {
	merged := Metrics{}
	for _, m := range metrics {
		for key, value := range m {
			merged[key] = value
		}
	}
	return merged
}

// Sink receives progress reports. Reporting is best-effort: the training loop
// logs a failed Emit and carries on.
type Sink interface {
	Emit(step int, metrics Metrics) error
}

type logSink struct {
	logger zerolog.Logger
}

// NewLogSink returns a sink that writes one structured log line per report
func NewLogSink(logger zerolog.Logger) Sink {
	return logSink{logger: logger}
}

func (s logSink) Emit(step int, metrics Metrics) error {
	event := s.logger.Info().Int("step", step)
	for _, key := range metrics.Keys() {
		event = event.Float64(key, metrics[key])
	}
	event.Msg("training progress")
	return nil
}

type multiSink []Sink

// NewMultiSink fans a report out to every sink. All sinks are called even if
// one fails; the failures are joined.
func NewMultiSink(sinks ...Sink) Sink {
	return multiSink(sinks)
}

func (s multiSink) Emit(step int, metrics Metrics) error {
	var errs []error
	for _, sink := range s {
		if err := sink.Emit(step, metrics); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
