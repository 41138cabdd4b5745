package agentbrain

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Reminder is a single scheduled alarm/reminder entry.
type Reminder struct {
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Scheduler is in-memory reminder bookkeeping with the same best-effort
// snapshot policy as Memory, grounded on the original scheduler.py.
type Scheduler struct {
	mu        sync.Mutex
	reminders []Reminder
}

func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Add records a new reminder.
func (s *Scheduler) Add(text string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reminders = append(s.reminders, Reminder{Text: text, At: at})
}

// Due returns reminders at or before now and removes them from the
// schedule.
func (s *Scheduler) Due(now time.Time) []Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due, remaining []Reminder
	for _, r := range s.reminders {
		if !r.At.After(now) {
			due = append(due, r)
		} else {
			remaining = append(remaining, r)
		}
	}
	s.reminders = remaining
	return due
}

// Upcoming renders the first pending reminder, in the order reminders were
// added, as a short reference string, or empty if none are scheduled.
func (s *Scheduler) Upcoming() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.reminders) == 0 {
		return ""
	}
	return fmt.Sprintf("Upcoming reminder: %q at %s", s.reminders[0].Text, s.reminders[0].At.Format("15:04"))
}

func (s *Scheduler) Backup(path string) error {
	s.mu.Lock()
	data, err := json.MarshalIndent(s.reminders, "", "  ")
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (s *Scheduler) Restore(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	var reminders []Reminder
	if err := json.Unmarshal(data, &reminders); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reminders = reminders
	return nil
}
