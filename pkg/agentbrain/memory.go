// Package agentbrain supplies the memory/emotion/info/scheduler
// collaborators that sit behind the agent adapter's opaque AgentBrain
// interface: bodies for what the distilled spec treats as one façade.
package agentbrain

import (
	"encoding/json"
	"os"
	"regexp"
	"strings"
	"sync"
)

// importantKeywords flags transcript sentences worth remembering across
// turns, mirroring the keyword-triggered capture the original assistant
// used instead of scoring every utterance through the LLM.
var importantKeywords = []string{
	"내 이름", "제 이름", "my name is", "i am", "생일", "birthday",
	"좋아하는", "favorite", "i like", "i love", "싫어하는", "i hate",
}

var whitespaceRE = regexp.MustCompile(`\s+`)

// Memory is a bounded store of important facts extracted from
// conversation, with best-effort JSON snapshotting to disk.
type Memory struct {
	mu       sync.RWMutex
	facts    []string
	capacity int
}

// NewMemory returns a memory bounded at capacity facts (oldest dropped
// first).
func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = 50
	}
	return &Memory{capacity: capacity}
}

// ExtractImportant records text if it matches an important-fact keyword,
// returning whether it was captured.
func (m *Memory) ExtractImportant(text string) bool {
	lower := strings.ToLower(text)
	matched := false
	for _, kw := range importantKeywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}

	cleaned := strings.TrimSpace(whitespaceRE.ReplaceAllString(text, " "))
	m.mu.Lock()
	defer m.mu.Unlock()
	m.facts = append(m.facts, cleaned)
	if len(m.facts) > m.capacity {
		m.facts = m.facts[len(m.facts)-m.capacity:]
	}
	return true
}

// Facts returns a copy of the currently remembered facts.
func (m *Memory) Facts() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.facts))
	copy(out, m.facts)
	return out
}

// Summary renders the remembered facts as a short system-prompt block, or
// empty if nothing has been captured yet.
func (m *Memory) Summary() string {
	facts := m.Facts()
	if len(facts) == 0 {
		return ""
	}
	return "Things you remember about the user: " + strings.Join(facts, "; ")
}

type memorySnapshot struct {
	Facts []string `json:"facts"`
}

// Backup writes the current facts to path as JSON. Failures are returned,
// not panicked on; callers treat persistence as best-effort per
// spec.md §1's "best-effort file snapshots".
func (m *Memory) Backup(path string) error {
	m.mu.RLock()
	snap := memorySnapshot{Facts: append([]string{}, m.facts...)}
	m.mu.RUnlock()

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Restore loads facts from a prior Backup. A missing file is not an error:
// the memory simply starts empty.
func (m *Memory) Restore(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	var snap memorySnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.facts = snap.Facts
	return nil
}
