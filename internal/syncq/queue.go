package syncq

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	KindDayResult = "day_result"
	KindSaveState = "save_state"
)

// Command is one remote write that could not be delivered when it was made.
type Command struct {
	Kind     string          `json:"kind"`
	Body     json.RawMessage `json:"body,omitempty"`
	QueuedAt time.Time       `json:"queued_at"`
	Attempts int             `json:"attempts"`
}

func NewCommand(kind string, body any) (Command, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return Command{}, err
	}
	return Command{
		Kind:     kind,
		Body:     raw,
		QueuedAt: time.Now().UTC(),
	}, nil
}

// Queue is a JSON file of pending commands, oldest first.
type Queue struct {
	mu   sync.Mutex
	path string
}

func New(dir string) *Queue {
	return &Queue{path: filepath.Join(dir, "queue.json")}
}

func (q *Queue) Load() ([]Command, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.load()
}

func (q *Queue) load() ([]Command, error) {
	raw, err := os.ReadFile(q.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Command{}, nil
		}
		return nil, err
	}
	if len(raw) == 0 {
		return []Command{}, nil
	}
	var out []Command
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode queue: %w", err)
	}
	return out, nil
}

func (q *Queue) save(commands []Command) error {
	if err := os.MkdirAll(filepath.Dir(q.path), 0o700); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(commands, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(q.path, raw, 0o600)
}

func (q *Queue) Push(cmd Command) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	commands, err := q.load()
	if err != nil {
		return err
	}
	commands = append(commands, cmd)
	return q.save(commands)
}

func (q *Queue) Len() (int, error) {
	commands, err := q.Load()
	return len(commands), err
}

// Replay hands each pending command to send in order. Delivered commands
// are dropped; the first failure stops the replay and keeps it and
// everything after it queued. Replay reports how many were delivered.
func (q *Queue) Replay(send func(Command) error) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	commands, err := q.load()
	if err != nil {
		return 0, err
	}
	sent := 0
	var sendErr error
	for i := range commands {
		if err := send(commands[i]); err != nil {
			commands[i].Attempts++
			sendErr = err
			break
		}
		sent++
	}
	if err := q.save(commands[sent:]); err != nil {
		return sent, err
	}
	return sent, sendErr
}
