package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full configuration of a run
type Config struct {
	Board    Board
	Training Training
}

// file mirrors the on-disk keys. Pointers tell a missing key from a zero value.
type file struct {
	BoardSize            *int     `yaml:"board_size"`
	LearnRate            *float64 `yaml:"learn_rate"`
	TrainingSteps        *int     `yaml:"training_steps"`
	TrainingStepsVerbose *int     `yaml:"training_steps_verbose"`
	MaxTrainingSteps     *int     `yaml:"max_training_steps"`
}

// Default returns the built-in configuration.
func Default() Config {
	board, err := NewBoard(DefaultBoardSize)
	if err != nil {
		panic(err)
	}
	training, err := NewTraining(DefaultLearnRate, DefaultCheckpointInterval, DefaultVerboseInterval, DefaultMaxSteps)
	if err != nil {
		panic(err)
	}
	return Config{Board: board, Training: training}
}

// Load reads a YAML config file. Keys missing from the file keep their
// defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	return Decode(f)
}

// Decode parses a YAML config document, see Load.
func Decode(r io.Reader) (Config, error) {
	var raw file
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}

	side := valueOr(raw.BoardSize, DefaultBoardSize)
	board, err := NewBoard(side)
	if err != nil {
		return Config{}, fmt.Errorf("board_size: %w", err)
	}

	training, err := NewTraining(
		valueOr(raw.LearnRate, DefaultLearnRate),
		valueOr(raw.TrainingSteps, DefaultCheckpointInterval),
		valueOr(raw.TrainingStepsVerbose, DefaultVerboseInterval),
		valueOr(raw.MaxTrainingSteps, DefaultMaxSteps),
	)
	if err != nil {
		return Config{}, fmt.Errorf("training: %w", err)
	}

	return Config{Board: board, Training: training}, nil
}

func valueOr[T any](value *T, fallback T) T {
	if value == nil {
		return fallback
	}
	return *value
}
