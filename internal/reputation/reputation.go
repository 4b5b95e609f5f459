// Package reputation supplies the agent reputation signal used to rank agents.
// The signal is owned by the agent-identity registry; this package only reads it.
package reputation

import (
	"context"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Source returns reputation scores for the given agent ids. Missing ids are
// simply absent from the result.
type Source interface {
	Scores(ctx context.Context, ids []uint64) (map[uint64]float64, error)
}

// Static is an in-memory Source.
type Static struct {
	mu     sync.RWMutex
	scores map[uint64]float64
}

func NewStatic(scores map[uint64]float64) *Static {
	s := &Static{scores: make(map[uint64]float64, len(scores))}
	for id, v := range scores {
		s.scores[id] = v
	}
	return s
}

// Set replaces one agent's score.
func (s *Static) Set(id uint64, score float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores[id] = score
}

func (s *Static) Scores(_ context.Context, ids []uint64) (map[uint64]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[uint64]float64, len(ids))
	for _, id := range ids {
		if v, ok := s.scores[id]; ok {
			out[id] = v
		}
	}
	return out, nil
}

type file struct {
	Agents map[uint64]float64 `yaml:"agents"`
}

// LoadFile reads a YAML score file of the form "agents: {1: 87.5}".
// A missing file yields an empty source.
func LoadFile(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewStatic(nil), nil
		}
		return nil, fmt.Errorf("read reputation file: %w", err)
	}
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse reputation file: %w", err)
	}
	return NewStatic(f.Agents), nil
}
