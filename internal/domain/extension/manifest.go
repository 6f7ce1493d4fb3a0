package extension

// Manifest is the declarative description of an extension as published in
// manifest.json.
type Manifest struct {
	Name         string            `json:"name"`
	Version      string            `json:"version"`
	Author       string            `json:"author,omitempty"`
	Description  string            `json:"description,omitempty"`
	Type         Type              `json:"type"`
	EntryPoint   string            `json:"entry_point"`
	Permissions  []string          `json:"permissions"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
	Hooks        []string          `json:"hooks,omitempty"`
	APIs         *APIs             `json:"apis,omitempty"`
	MenuItems    []MenuItem        `json:"menuItems,omitempty"`
}

// APIs lists the host APIs an extension provides and requires.
type APIs struct {
	Provided []string `json:"provided,omitempty"`
	Required []string `json:"required,omitempty"`
}

// MenuItem is a top-level menu entry contributed by an extension.
type MenuItem struct {
	Title string        `json:"title"`
	URL   string        `json:"url"`
	Icon  string        `json:"icon,omitempty"`
	Items []MenuSubItem `json:"items,omitempty"`
}

// MenuSubItem is a nested menu entry.
type MenuSubItem struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// HasPermission reports whether the manifest requests perm.
func (m *Manifest) HasPermission(perm string) bool {
	for _, p := range m.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// Info projects the manifest into a registry record for id.
func (m *Manifest) Info(id string, enabled bool) Info {
	return Info{
		ID:          id,
		Name:        m.Name,
		Version:     m.Version,
		Author:      m.Author,
		Description: m.Description,
		Type:        m.Type.String(),
		Enabled:     enabled,
	}
}
