package recorder

import "AgentTreasury/internal/model"

// NoopRecorder is used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordEvent(_ model.Event) error     { return nil }
func (n *NoopRecorder) RecordSnapshot(_ Snapshot) error     { return nil }
func (n *NoopRecorder) Recent(_ int) ([]model.Event, error) { return nil, nil }
func (n *NoopRecorder) Close() error                        { return nil }
