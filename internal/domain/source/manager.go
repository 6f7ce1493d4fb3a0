package source

import (
	"net/url"
	"sort"
	"strings"

	"github.com/felixgeelhaar/extkit/internal/domain/extension"
)

// blockedTokens are matched as raw substrings of a custom source URL.
// This is not address parsing: "http://2130706433", "https://[::1]" or
// "https://127.1" are not caught, and neither is any 10.x address unless it
// literally contains one of these tokens.
var blockedTokens = []string{
	"localhost",
	"127.0.0.1",
	"0.0.0.0",
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
}

// BlockedTokens returns the custom source blocklist.
func BlockedTokens() []string {
	return append([]string(nil), blockedTokens...)
}

// Manager owns the set of configured sources. It does no locking; callers
// serialize access.
type Manager struct {
	reservedID string
	sources    map[string]Source
	order      []string
}

// NewManager creates a manager holding only the policy's reserved source.
func NewManager(policy Policy) *Manager {
	m := &Manager{
		reservedID: policy.Reserved.ID,
		sources:    make(map[string]Source),
	}
	m.sources[policy.Reserved.ID] = policy.Reserved
	m.order = append(m.order, policy.Reserved.ID)
	return m
}

// ReservedID returns the id of the source that can never be removed.
func (m *Manager) ReservedID() string {
	return m.reservedID
}

// Add inserts a new source after validating it.
func (m *Manager) Add(s Source) error {
	if _, exists := m.sources[s.ID]; exists {
		return &extension.ValidationError{Reason: "Source with this ID already exists"}
	}
	if err := ValidateSource(s); err != nil {
		return err
	}
	m.sources[s.ID] = s
	m.order = append(m.order, s.ID)
	return nil
}

// Remove deletes the source with id. Removing the reserved source fails;
// removing an unknown id is a no-op.
func (m *Manager) Remove(id string) error {
	if id == m.reservedID {
		return &extension.ValidationError{Reason: "Cannot remove reserved source"}
	}
	if _, ok := m.sources[id]; !ok {
		return nil
	}
	delete(m.sources, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// Update replaces an existing source. The reserved source must stay
// official. The source keeps its original insertion position.
func (m *Manager) Update(s Source) error {
	if _, ok := m.sources[s.ID]; !ok {
		return &extension.ValidationError{Reason: "Source not found"}
	}
	if s.ID == m.reservedID && s.Type != TypeOfficial {
		return &extension.ValidationError{Reason: "Cannot change type of reserved source"}
	}
	if err := ValidateSource(s); err != nil {
		return err
	}
	m.sources[s.ID] = s
	return nil
}

// State is an opaque copy of a Manager's sources and their insertion order.
type State struct {
	sources map[string]Source
	order   []string
}

// State captures the current contents for a later Restore.
func (m *Manager) State() State {
	st := State{
		sources: make(map[string]Source, len(m.sources)),
		order:   append([]string(nil), m.order...),
	}
	for id, s := range m.sources {
		st.sources[id] = s
	}
	return st
}

// Restore puts back the contents captured by State, including insertion
// order.
func (m *Manager) Restore(st State) {
	m.sources = make(map[string]Source, len(st.sources))
	for id, s := range st.sources {
		m.sources[id] = s
	}
	m.order = append([]string(nil), st.order...)
}

// Get returns the source with id.
func (m *Manager) Get(id string) (Source, bool) {
	s, ok := m.sources[id]
	return s, ok
}

// List returns all sources by ascending priority. Sources with equal
// priority keep insertion order.
func (m *Manager) List() []Source {
	out := make([]Source, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.sources[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority < out[j].Priority
	})
	return out
}

// Enabled returns the enabled sources in List order.
func (m *Manager) Enabled() []Source {
	var out []Source
	for _, s := range m.List() {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}

// ValidateSource checks a source against the trust policy.
func ValidateSource(s Source) error {
	if strings.TrimSpace(s.Name) == "" {
		return &extension.ValidationError{Reason: "Source name cannot be empty"}
	}
	if strings.TrimSpace(s.BaseURL) == "" {
		if s.Type != TypeOfficial {
			return &extension.ValidationError{Reason: "Base URL cannot be empty"}
		}
		return nil
	}
	if !wellFormed(s.BaseURL) {
		return &extension.ValidationError{Reason: "Invalid URL format"}
	}
	if s.Type == TypeCustom {
		return ValidateCustomURL(s.BaseURL)
	}
	return nil
}

// ValidateCustomURL applies the extra rules for custom sources: the URL must
// start with "https://" and contain none of BlockedTokens.
func ValidateCustomURL(raw string) error {
	if !strings.HasPrefix(raw, "https://") {
		return &extension.SecurityError{Reason: "Custom sources must use HTTPS"}
	}
	for _, token := range blockedTokens {
		if strings.Contains(raw, token) {
			return &extension.SecurityError{Reason: "Blocked domain: " + token}
		}
	}
	return nil
}

func wellFormed(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return false
	}
	if (u.Scheme == "http" || u.Scheme == "https") && u.Host == "" {
		return false
	}
	return true
}
