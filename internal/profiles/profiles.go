package profiles

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"reel/internal/queue"
	"reel/internal/services"
)

//go:embed defaults.toml
var defaultsTOML []byte

// Profile names one operation together with the parameters to submit it with.
type Profile struct {
	Description string         `toml:"description" json:"description"`
	Operation   string         `toml:"operation" json:"operation"`
	Parameters  map[string]any `toml:"parameters" json:"parameters"`
}

// Params returns a copy of the profile parameters in the queue's type.
func (p Profile) Params() queue.Params {
	return queue.Params(p.Parameters).Clone()
}

// Workflow is an ordered list of profile names submitted as one job each.
type Workflow struct {
	Description string   `toml:"description" json:"description"`
	Profiles    []string `toml:"profiles" json:"profiles"`
}

// Catalog holds the merged profile and workflow definitions.
type Catalog struct {
	Profiles  map[string]Profile  `toml:"profiles"`
	Workflows map[string]Workflow `toml:"workflows"`
}

// Load returns the built-in catalog with the user file at path merged over
// it. An empty path or a missing file yields the defaults alone. User entries
// replace same-named built-ins wholesale.
func Load(path string) (*Catalog, error) {
	catalog := &Catalog{}
	if err := toml.Unmarshal(defaultsTOML, catalog); err != nil {
		return nil, fmt.Errorf("decode built-in profiles: %w", err)
	}
	if path != "" {
		if err := mergeUserFile(catalog, path); err != nil {
			return nil, err
		}
	}
	if err := catalog.validate(); err != nil {
		return nil, err
	}
	return catalog, nil
}

func mergeUserFile(catalog *Catalog, path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read profiles file %s: %w", path, err)
	}
	overrides := Catalog{}
	if err := toml.Unmarshal(data, &overrides); err != nil {
		return fmt.Errorf("parse profiles file %s: %w", path, err)
	}
	for name, profile := range overrides.Profiles {
		catalog.Profiles[strings.ToLower(name)] = profile
	}
	for name, workflow := range overrides.Workflows {
		catalog.Workflows[strings.ToLower(name)] = workflow
	}
	return nil
}

func (c *Catalog) validate() error {
	for name, profile := range c.Profiles {
		if strings.TrimSpace(profile.Operation) == "" {
			return services.Wrap(services.ErrConfiguration, "profiles", fmt.Sprintf("profile %q has no operation", name), nil)
		}
	}
	for name, workflow := range c.Workflows {
		if len(workflow.Profiles) == 0 {
			return services.Wrap(services.ErrConfiguration, "profiles", fmt.Sprintf("workflow %q lists no profiles", name), nil)
		}
		for _, profileName := range workflow.Profiles {
			if _, ok := c.Profile(profileName); !ok {
				return services.Wrap(services.ErrConfiguration, "profiles",
					fmt.Sprintf("workflow %q references unknown profile %q", name, profileName), nil)
			}
		}
	}
	return nil
}

// Profile looks up a profile by name, case-insensitively.
func (c *Catalog) Profile(name string) (Profile, bool) {
	profile, ok := c.Profiles[strings.ToLower(strings.TrimSpace(name))]
	return profile, ok
}

// Workflow looks up a workflow by name, case-insensitively.
func (c *Catalog) Workflow(name string) (Workflow, bool) {
	workflow, ok := c.Workflows[strings.ToLower(strings.TrimSpace(name))]
	return workflow, ok
}

// ProfileNames returns the sorted profile names.
func (c *Catalog) ProfileNames() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WorkflowNames returns the sorted workflow names.
func (c *Catalog) WorkflowNames() []string {
	names := make([]string, 0, len(c.Workflows))
	for name := range c.Workflows {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
