package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ErrExists is returned when a checkpoint for the step was already exported.
// Checkpoints are append-only: an existing file is never overwritten.
var ErrExists = errors.New("checkpoint: step already exported")

const (
	prefix = "network-"
	suffix = ".json"
)

type record[N any] struct {
	Step    int       `json:"step"`
	Created time.Time `json:"created"`
	Network N         `json:"network"`
}

// Store keeps one JSON file per exported step in a directory
type Store[N any] struct {
	dir string
}

func NewStore[N any](dir string) (*Store[N], error) {
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}
	return &Store[N]{dir: dir}, nil
}

func (s *Store[N]) Path(step int) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s%08d%s", prefix, step, suffix))
}

// Export writes net as the checkpoint of step. The file appears atomically
// under its final name or not at all.
func (s *Store[N]) Export(ctx context.Context, net N, step int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if step < 0 {
		return fmt.Errorf("cannot export negative step %d", step)
	}

	tmp, err := os.CreateTemp(s.dir, ".network-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create checkpoint file: %w", err)
	}
	defer os.Remove(tmp.Name())

	encoder := json.NewEncoder(tmp)
	err = encoder.Encode(record[N]{Step: step, Created: time.Now().UTC(), Network: net})
	if err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close checkpoint: %w", err)
	}

	// Link fails instead of replacing an existing checkpoint
	err = os.Link(tmp.Name(), s.Path(step))
	if errors.Is(err, os.ErrExist) {
		return fmt.Errorf("%w: %d", ErrExists, step)
	}
	if err != nil {
		return fmt.Errorf("failed to publish checkpoint: %w", err)
	}
	return nil
}

func (s *Store[N]) Load(step int) (N, error) {
	var rec record[N]
	f, err := os.Open(s.Path(step))
	if err != nil {
		return rec.Network, fmt.Errorf("failed to open checkpoint: %w", err)
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(&rec); err != nil {
		return rec.Network, fmt.Errorf("failed to decode checkpoint %d: %w", step, err)
	}
	if rec.Step != step {
		return rec.Network, fmt.Errorf("checkpoint file for step %d records step %d", step, rec.Step)
	}
	return rec.Network, nil
}

// Steps returns the exported steps in increasing order
func (s *Store[N]) Steps() ([]int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}

	steps := []int{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, suffix) {
			continue
		}
		step, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, prefix), suffix))
		if err != nil || step < 0 {
			continue
		}
		steps = append(steps, step)
	}
	sort.Ints(steps)
	return steps, nil
}

// Latest returns the highest exported step, found is false for an empty store
func (s *Store[N]) Latest() (step int, found bool, err error) {
	steps, err := s.Steps()
	if err != nil || len(steps) == 0 {
		return 0, false, err
	}
	return steps[len(steps)-1], true, nil
}
