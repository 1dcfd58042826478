package pipeline

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rankward/siteaudit/internal/model"
)

// Progress tracks the running state of one audit: the current phase, the
// tasks finished so far, and an append-only log. Safe for concurrent use by
// the parallel enrichment waves.
type Progress struct {
	mu        sync.Mutex
	phase     string
	current   string
	completed []string
	entries   []model.LogEntry

	log *zap.Logger
}

func newProgress(log *zap.Logger) *Progress {
	if log == nil {
		log = zap.NewNop()
	}
	return &Progress{log: log}
}

// SetPhase records a phase transition.
func (p *Progress) SetPhase(phase string) {
	p.mu.Lock()
	p.phase = phase
	p.current = ""
	p.mu.Unlock()
	p.append(model.LogInfo, "phase: "+phase)
}

// StartTask marks a named task as in progress.
func (p *Progress) StartTask(name string) {
	p.mu.Lock()
	p.current = name
	p.mu.Unlock()
}

// CompleteTask marks a named task as finished and logs it.
func (p *Progress) CompleteTask(name string) {
	p.mu.Lock()
	if p.current == name {
		p.current = ""
	}
	p.completed = append(p.completed, name)
	p.mu.Unlock()
	p.append(model.LogSuccess, name)
}

// Info appends an informational log line.
func (p *Progress) Info(msg string) { p.append(model.LogInfo, msg) }

// Warn appends a warning log line.
func (p *Progress) Warn(msg string) { p.append(model.LogWarning, msg) }

// Error appends an error log line.
func (p *Progress) Error(msg string) { p.append(model.LogError, msg) }

func (p *Progress) append(level model.LogLevel, msg string) {
	entry := model.LogEntry{At: time.Now().UTC(), Level: level, Message: msg}
	p.mu.Lock()
	p.entries = append(p.entries, entry)
	p.mu.Unlock()

	switch level {
	case model.LogWarning:
		p.log.Warn(msg)
	case model.LogError:
		p.log.Error(msg)
	default:
		p.log.Info(msg)
	}
}

// CompletedTasks returns a copy of the finished task names in order.
func (p *Progress) CompletedTasks() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.completed))
	copy(out, p.completed)
	return out
}

// Entries returns a copy of the log so far.
func (p *Progress) Entries() []model.LogEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.LogEntry, len(p.entries))
	copy(out, p.entries)
	return out
}

// snapshot is the checkpoint wire format.
type snapshot struct {
	Phase          string           `json:"phase"`
	CurrentTask    string           `json:"current_task,omitempty"`
	CompletedTasks []string         `json:"completed_tasks"`
	Log            []model.LogEntry `json:"log"`
}

// Snapshot serializes the progress state for checkpointing.
func (p *Progress) Snapshot() []byte {
	p.mu.Lock()
	s := snapshot{
		Phase:          p.phase,
		CurrentTask:    p.current,
		CompletedTasks: append([]string(nil), p.completed...),
		Log:            append([]model.LogEntry(nil), p.entries...),
	}
	p.mu.Unlock()

	data, err := json.Marshal(s)
	if err != nil {
		return nil
	}
	return data
}
