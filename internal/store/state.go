// Package store persists the full treasury snapshot as a JSON state file.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"AgentTreasury/internal/model"
)

// LoadState reads the state file. ok is false if the file does not exist.
func LoadState(filePath string) (state model.State, ok bool, err error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return model.State{}, false, nil
		}
		return model.State{}, false, fmt.Errorf("read state: %w", err)
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return model.State{}, false, fmt.Errorf("decode state: %w", err)
	}
	return state, true, nil
}

// SaveState writes the state file through a temp file and rename, so a crash
// never leaves a half-written snapshot behind.
func SaveState(filePath string, state model.State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("create temp state: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp state: %w", err)
	}
	if err := os.Rename(tmp.Name(), filePath); err != nil {
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}

// Snapshotter is anything that can produce a full state snapshot.
type Snapshotter interface {
	Snapshot() model.State
}

// Persister saves a fresh snapshot whenever it is told about a committed event.
type Persister struct {
	mu       sync.Mutex
	filePath string
	src      Snapshotter
	log      *zap.Logger
	lastSeq  uint64
}

func NewPersister(filePath string, src Snapshotter, log *zap.Logger) *Persister {
	if log == nil {
		log = zap.NewNop()
	}
	return &Persister{filePath: filePath, src: src, log: log.Named("store")}
}

// Handle is an events.Handler. Snapshots already covering evt are skipped.
func (p *Persister) Handle(evt model.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if evt.Seq != 0 && evt.Seq <= p.lastSeq {
		return
	}
	if err := p.save(); err != nil {
		p.log.Error("failed to save treasury state", zap.Uint64("seq", evt.Seq), zap.Error(err))
	}
}

// Flush saves the current snapshot unconditionally.
func (p *Persister) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.save()
}

func (p *Persister) save() error {
	st := p.src.Snapshot()
	if err := SaveState(p.filePath, st); err != nil {
		return err
	}
	p.lastSeq = st.Seq
	return nil
}
