package podio

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"

	"wchic_backend/platform/config"
)

//go:embed mappings/*.json
var mappingFS embed.FS

// ErrUnknownWorkspace is returned when a key or app id has no mapping.
var ErrUnknownWorkspace = errors.New("unknown podio workspace")

// Registry holds the immutable mappings of every configured workspace.
type Registry struct {
	byKey   map[WorkspaceKey]*WorkspaceMapping
	byAppID map[int64]*WorkspaceMapping
}

// LoadRegistry parses and validates the embedded workspace mappings.
func LoadRegistry() (*Registry, error) {
	entries, err := mappingFS.ReadDir("mappings")
	if err != nil {
		return nil, fmt.Errorf("read embedded mappings: %w", err)
	}

	mappings := make([]*WorkspaceMapping, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		raw, err := mappingFS.ReadFile(path.Join("mappings", entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		m, err := ParseMapping(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", entry.Name(), err)
		}
		mappings = append(mappings, m)
	}
	return NewRegistry(mappings...)
}

// ParseMapping decodes and validates one workspace mapping document.
func ParseMapping(raw []byte) (*WorkspaceMapping, error) {
	var m WorkspaceMapping
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode mapping: %w", err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// NewRegistry indexes already validated mappings. The head office must be present.
func NewRegistry(mappings ...*WorkspaceMapping) (*Registry, error) {
	r := &Registry{
		byKey:   make(map[WorkspaceKey]*WorkspaceMapping, len(mappings)),
		byAppID: make(map[int64]*WorkspaceMapping, len(mappings)),
	}
	for _, m := range mappings {
		if _, dup := r.byKey[m.WorkspaceKey]; dup {
			return nil, fmt.Errorf("duplicate workspace %s", m.WorkspaceKey)
		}
		if other, dup := r.byAppID[m.AppID]; dup {
			return nil, fmt.Errorf("app id %d used by %s and %s", m.AppID, other.WorkspaceKey, m.WorkspaceKey)
		}
		r.byKey[m.WorkspaceKey] = m
		r.byAppID[m.AppID] = m
	}
	if _, ok := r.byKey[HeadOffice]; !ok {
		return nil, fmt.Errorf("head office workspace %s has no mapping", HeadOffice)
	}
	return r, nil
}

// Workspace returns the mapping for key.
func (r *Registry) Workspace(key WorkspaceKey) (*WorkspaceMapping, error) {
	m, ok := r.byKey[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownWorkspace, key)
	}
	return m, nil
}

// ByAppID resolves the workspace whose app emitted a webhook or owns a franchise.
func (r *Registry) ByAppID(appID int64) (*WorkspaceMapping, bool) {
	m, ok := r.byAppID[appID]
	return m, ok
}

// ByAppIDString accepts the textual app id stored on franchises.
func (r *Registry) ByAppIDString(appID string) (*WorkspaceMapping, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(appID), 10, 64)
	if err != nil {
		return nil, false
	}
	return r.ByAppID(id)
}

// CheckAppIDs fails when a configured app id differs from the one in the
// workspace mapping. Empty ids are left to the client, which refuses them.
func (r *Registry) CheckAppIDs(apps map[string]config.PodioAppCredentials) error {
	var problems []string
	for key, creds := range apps {
		configured := strings.TrimSpace(creds.AppID)
		if configured == "" {
			continue
		}
		m, ok := r.byKey[WorkspaceKey(key)]
		if !ok {
			problems = append(problems, fmt.Sprintf("%s: no mapping for configured app %s", key, configured))
			continue
		}
		if configured != strconv.FormatInt(m.AppID, 10) {
			problems = append(problems, fmt.Sprintf("%s: configured app %s, mapping has %d", key, configured, m.AppID))
		}
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return fmt.Errorf("podio app ids out of step with mappings: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Keys lists the workspace keys in stable order, head office first.
func (r *Registry) Keys() []WorkspaceKey {
	keys := make([]WorkspaceKey, 0, len(r.byKey))
	for key := range r.byKey {
		if key != HeadOffice {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return append([]WorkspaceKey{HeadOffice}, keys...)
}
