// Package config loads the flat, sectioned configuration file that lists
// which climate products are enabled and how each connects to its
// backing store, in the familiar [section]/key=value ini shape.
package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lnashier/viper"
)

// Connection is one [<connectionAlias>] block: the parameters the
// external connection layer needs to open a backing-store handle. The
// core never interprets these beyond passing them through; which keys
// matter depends on the driver the alias is used with.
type Connection struct {
	Alias    string
	Host     string
	Port     string
	User     string
	Password string
	Schema   string
	Path     string // sqlite-style file path, when Host is empty
}

// Simulation is one [<simId>] override block.
type Simulation struct {
	ID               string
	Enabled          bool
	UsedRealizations []string
	DefaultScenario  string
	// Overrides holds any remaining keys verbatim (table/schema name
	// overrides for the DD family), since the core does not need to know
	// their names to pass them through to the connection layer.
	Overrides map[string]string
}

// Config is the parsed configuration: which simulations are active, their
// per-simulation overrides, and the named connections they reference.
type Config struct {
	// ActiveSchemas lists the simulation ids enabled by
	// [active-climate-db-schemas]; section values are ignored, only keys
	// name enabled simulations.
	ActiveSchemas []string
	Simulations   map[string]Simulation
	Connections   map[string]Connection
}

// Load reads a configuration file at path using viper's key=value section
// parsing (ini format).
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("ini")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	return FromViper(v)
}

// FromViper builds a Config from an already-populated *viper.Viper,
// letting callers (tests, or a process that merges several config
// sources) skip the file I/O in Load.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Simulations: make(map[string]Simulation),
		Connections: make(map[string]Connection),
	}

	if active := v.Sub("active-climate-db-schemas"); active != nil {
		for key := range active.AllSettings() {
			cfg.ActiveSchemas = append(cfg.ActiveSchemas, key)
		}
	}

	for sectionName, raw := range v.AllSettings() {
		if sectionName == "active-climate-db-schemas" {
			continue
		}
		settings, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		if looksLikeConnection(settings) {
			cfg.Connections[sectionName] = parseConnection(sectionName, settings)
			continue
		}
		cfg.Simulations[sectionName] = parseSimulation(sectionName, settings)
	}

	for _, id := range cfg.ActiveSchemas {
		if sim, ok := cfg.Simulations[id]; ok {
			sim.Enabled = true
			cfg.Simulations[id] = sim
		} else {
			cfg.Simulations[id] = Simulation{ID: id, Enabled: true, Overrides: map[string]string{}}
		}
	}

	return cfg, nil
}

func looksLikeConnection(settings map[string]interface{}) bool {
	for _, key := range []string{"host", "user", "password", "schema", "port", "path"} {
		if _, ok := settings[key]; ok {
			return true
		}
	}
	return false
}

func parseConnection(alias string, settings map[string]interface{}) Connection {
	c := Connection{Alias: alias}
	c.Host = stringSetting(settings, "host")
	c.Port = stringSetting(settings, "port")
	c.User = stringSetting(settings, "user")
	c.Password = stringSetting(settings, "password")
	c.Schema = stringSetting(settings, "schema")
	c.Path = stringSetting(settings, "path")
	return c
}

func parseSimulation(id string, settings map[string]interface{}) Simulation {
	sim := Simulation{ID: id, Overrides: map[string]string{}}
	for key, val := range settings {
		switch key {
		case "used-realizations":
			sim.UsedRealizations = splitComma(stringify(val))
		case "default-scenario":
			sim.DefaultScenario = stringify(val)
		default:
			sim.Overrides[key] = stringify(val)
		}
	}
	return sim
}

func stringSetting(settings map[string]interface{}, key string) string {
	v, ok := settings[key]
	if !ok {
		return ""
	}
	return stringify(v)
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}

func splitComma(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
