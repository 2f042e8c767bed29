package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// CSVSink appends one row per report to a CSV file. The columns are fixed by
// the header: the existing one when appending to a resumed run, otherwise
// "step", "time" and the metric names of the first report.
type CSVSink struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
	header []string
}

func NewCSVSink(path string) (*CSVSink, error) {
	err := os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open metrics file: %w", err)
	}

	header, err := csv.NewReader(f).Read()
	if err != nil && err != io.EOF {
		f.Close()
		return nil, fmt.Errorf("failed to read metrics header: %w", err)
	}

	return &CSVSink{
		file:   f,
		writer: csv.NewWriter(f),
		header: header,
	}, nil
}

func (s *CSVSink) Emit(step int, metrics Metrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.header == nil {
		s.header = append([]string{"step", "time"}, metrics.Keys()...)
		if err := s.writer.Write(s.header); err != nil {
			return fmt.Errorf("failed to write metrics header: %w", err)
		}
	}

	row := make([]string, len(s.header))
	for i, column := range s.header {
		switch column {
		case "step":
			row[i] = strconv.Itoa(step)
		case "time":
			row[i] = time.Now().UTC().Format(time.RFC3339)
		default:
			if value, ok := metrics[column]; ok {
				row[i] = strconv.FormatFloat(value, 'g', -1, 64)
			}
		}
	}
	if err := s.writer.Write(row); err != nil {
		return fmt.Errorf("failed to write metrics row: %w", err)
	}

	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		return fmt.Errorf("failed to flush metrics row: %w", err)
	}
	return nil
}

func (s *CSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.writer.Flush()
	return s.file.Close()
}
