// Package config loads server fleets from JSON or YAML documents.
//
// The document shape follows the mcpServers convention used by MCP host
// applications:
//
//	{
//	  "manager": {
//	    "defaultTimeoutMs": 10000,
//	    "maxFailureCount": 3,
//	    "autoReconnect": false
//	  },
//	  "mcpServers": {
//	    "filesystem": {"command": "npx", "args": ["-y", "@modelcontextprotocol/server-filesystem", "/tmp"]},
//	    "web": {"url": "https://mcp.example.com/mcp", "headers": {"Authorization": "Bearer ..."}}
//	  }
//	}
//
// Each mcpServers entry declares either a command (stdio transport) or a url
// (HTTP transport), never both. The manager block is optional; absent fields
// fall back to the manager package defaults. Viper folds configuration keys to
// lower case, so server names are case-insensitive.
package config

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/viper"

	mcperrors "github.com/ajitpratap0/mcp-connect-go/pkg/errors"
	"github.com/ajitpratap0/mcp-connect-go/pkg/manager"
	"github.com/ajitpratap0/mcp-connect-go/pkg/transport"
)

// ManagerSettings carries the tunable manager knobs of a config document.
type ManagerSettings struct {
	DefaultTimeoutMs int  `mapstructure:"defaultTimeoutMs"`
	MaxFailureCount  int  `mapstructure:"maxFailureCount"`
	AutoReconnect    bool `mapstructure:"autoReconnect"`
}

// Apply copies the settings onto a manager config. Zero values are left
// untouched so the manager defaults survive a sparse document.
func (s ManagerSettings) Apply(cfg *manager.Config) {
	if s.DefaultTimeoutMs > 0 {
		cfg.DefaultTimeout = time.Duration(s.DefaultTimeoutMs) * time.Millisecond
	}
	if s.MaxFailureCount > 0 {
		cfg.MaxFailureCount = s.MaxFailureCount
	}
	cfg.AutoReconnect = s.AutoReconnect
}

// File is a parsed config document: the manager settings plus one validated
// ServerConfig per mcpServers entry, sorted by ID.
type File struct {
	Manager ManagerSettings
	Servers []manager.ServerConfig
}

// serverEntry is the raw wire form of a single mcpServers value before the
// transport kind is inferred.
type serverEntry struct {
	Command string            `mapstructure:"command"`
	Args    []string          `mapstructure:"args"`
	Env     map[string]string `mapstructure:"env"`
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`
}

type document struct {
	Manager ManagerSettings        `mapstructure:"manager"`
	Servers map[string]serverEntry `mapstructure:"mcpServers"`
}

// Load reads and parses the document at path. The format is inferred from the
// file extension (.json, .yaml, .yml).
func Load(path string) (*File, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, mcperrors.Wrap(mcperrors.CategoryConfiguration,
			fmt.Sprintf("reading config file %s", path), err)
	}
	return LoadWith(v)
}

// LoadWith parses an already-read viper instance. It is the seam for callers
// that layer environment overrides or remote sources on top of the file.
func LoadWith(v *viper.Viper) (*File, error) {
	v.SetDefault("manager.defaultTimeoutMs", 10000)
	v.SetDefault("manager.maxFailureCount", 3)
	v.SetDefault("manager.autoReconnect", false)

	var doc document
	if err := v.Unmarshal(&doc); err != nil {
		return nil, mcperrors.Wrap(mcperrors.CategoryConfiguration, "parsing config document", err)
	}
	if doc.Manager.DefaultTimeoutMs < 0 {
		return nil, mcperrors.New(mcperrors.CategoryConfiguration, "manager.defaultTimeoutMs must not be negative")
	}
	if doc.Manager.MaxFailureCount < 0 {
		return nil, mcperrors.New(mcperrors.CategoryConfiguration, "manager.maxFailureCount must not be negative")
	}

	file := &File{Manager: doc.Manager}
	for name, entry := range doc.Servers {
		server, err := entry.toServerConfig(name)
		if err != nil {
			return nil, err
		}
		file.Servers = append(file.Servers, server)
	}
	sort.Slice(file.Servers, func(i, j int) bool {
		return file.Servers[i].ID < file.Servers[j].ID
	})
	return file, nil
}

// toServerConfig infers the transport kind from which of command and url is
// present and validates the result.
func (e serverEntry) toServerConfig(name string) (manager.ServerConfig, error) {
	var spec transport.Spec
	switch {
	case e.Command != "" && e.URL != "":
		return manager.ServerConfig{}, mcperrors.New(mcperrors.CategoryConfiguration,
			fmt.Sprintf("server %q specifies both command and url", name))
	case e.Command != "":
		spec = transport.StdioSpec{Command: e.Command, Args: e.Args, Env: e.Env}
	case e.URL != "":
		spec = transport.HTTPSpec{URL: e.URL, Headers: e.Headers}
	default:
		return manager.ServerConfig{}, mcperrors.New(mcperrors.CategoryConfiguration,
			fmt.Sprintf("server %q specifies neither command nor url", name))
	}

	server := manager.ServerConfig{ID: name, Name: name, Transport: spec}
	if err := server.Validate(); err != nil {
		return manager.ServerConfig{}, err
	}
	return server, nil
}
