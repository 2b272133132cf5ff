// Package config loads and persists the forgeport configuration file: the
// API credentials for both services plus the optional identity and status
// mappings used during conversion. The file is TOML, written with owner
// permissions only since it holds secrets.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/forgeport/forgeport/internal/dump"
)

// DefaultPath is the configuration location used when --auth is not given.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".forgeport", "auth.toml"), nil
}

// Config is the full configuration file.
type Config struct {
	Assembla AssemblaAuth `toml:"assembla"`
	GitHub   GitHubAuth   `toml:"github"`

	// Identities seeds the user directory with known names and emails,
	// keyed by source user id.
	Identities map[string]Identity `toml:"identities"`

	// Statuses overrides the default ticket-status to issue-state mapping,
	// keyed by status name ("open" or "closed").
	Statuses map[string]string `toml:"statuses"`

	// Logins maps source user ids to GitHub logins for issue assignment.
	Logins map[string]string `toml:"logins"`
}

// AssemblaAuth holds the source API credentials.
type AssemblaAuth struct {
	Key    string `toml:"key"`
	Secret string `toml:"secret"`
}

// GitHubAuth holds the target API credentials.
type GitHubAuth struct {
	Token string `toml:"token"`
}

// Identity is a known (name, email) pair for a source user id.
type Identity struct {
	Name  string `toml:"name"`
	Email string `toml:"email"`
}

// MissingFieldsError reports required configuration fields that are not
// set. It is distinct from parse failures so the CLI can tell the user
// exactly what to add.
type MissingFieldsError struct {
	Path   string
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("config: missing required fields: %s (set them in %s)",
		strings.Join(e.Fields, ", "), e.Path)
}

// Load reads the configuration from path. A missing file yields an empty
// configuration: credentials are only required by the commands that use
// them.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to path with restricted permissions,
// creating the parent directory when needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// RequireAssembla fails with a user-actionable error unless the source
// API credentials are configured.
func (c *Config) RequireAssembla(path string) error {
	var missing []string
	if c.Assembla.Key == "" {
		missing = append(missing, "assembla.key")
	}
	if c.Assembla.Secret == "" {
		missing = append(missing, "assembla.secret")
	}
	return missingError(path, missing)
}

// RequireGitHub fails with a user-actionable error unless the target API
// token is configured.
func (c *Config) RequireGitHub(path string) error {
	var missing []string
	if c.GitHub.Token == "" {
		missing = append(missing, "github.token")
	}
	return missingError(path, missing)
}

// SeedUsers converts the configured identities into user directory seeds,
// in deterministic id order.
func (c *Config) SeedUsers() []dump.User {
	ids := make([]string, 0, len(c.Identities))
	for id := range c.Identities {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	seeds := make([]dump.User, 0, len(ids))
	for _, id := range ids {
		identity := c.Identities[id]
		seeds = append(seeds, dump.User{ID: id, Name: identity.Name, Email: identity.Email})
	}
	return seeds
}

func missingError(path string, fields []string) error {
	if len(fields) == 0 {
		return nil
	}
	return &MissingFieldsError{Path: path, Fields: fields}
}
