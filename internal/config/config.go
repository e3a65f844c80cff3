// Package config handles loading tareas.toml configuration files and
// environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/amonks/tareas/internal/paths"
)

// ProjectFile is the name of the per-directory config file.
const ProjectFile = "tareas.toml"

// Environment variables that override file settings.
const (
	EnvDataDir   = "TAREAS_DATA_DIR"
	EnvAddr      = "TAREAS_ADDR"
	EnvJWTSecret = "TAREAS_JWT_SECRET"
)

// Defaults applied to unset values.
const (
	DefaultAddr            = "127.0.0.1:8000"
	DefaultLoginLimit      = 5
	DefaultLoginWindow     = time.Minute
	DefaultAccessTTL       = 30 * time.Minute
	DefaultRefreshTTL      = 7 * 24 * time.Hour
	DefaultMinPassword     = 4
	DefaultGeneratedLength = 12
)

// Config represents the tareas.toml configuration file.
type Config struct {
	Data     Data     `toml:"data"`
	Server   Server   `toml:"server"`
	Auth     Auth     `toml:"auth"`
	Password Password `toml:"password"`
}

// Data locates the persisted users, tasks and archive.
type Data struct {
	// Dir holds the data files. Relative paths are resolved against the
	// directory the config was loaded for; empty means that directory.
	Dir string `toml:"dir"`

	UsersFile   string `toml:"users-file"`
	TasksFile   string `toml:"tasks-file"`
	ArchiveFile string `toml:"archive-file"`
}

// Server configures the REST server.
type Server struct {
	Addr        string        `toml:"addr"`
	LoginLimit  int           `toml:"login-limit"`
	LoginWindow time.Duration `toml:"login-window"`
}

// Auth configures token lifetimes. The signing secret is only read from
// the environment.
type Auth struct {
	AccessTTL  time.Duration `toml:"access-ttl"`
	RefreshTTL time.Duration `toml:"refresh-ttl"`
	Secret     string        `toml:"-"`
}

// Password configures password rules.
type Password struct {
	MinLength       int `toml:"min-length"`
	GeneratedLength int `toml:"generated-length"`
}

// Load loads configuration for dir from the global config file and
// dir/tareas.toml, then applies dir/.env and environment overrides.
// Returns defaults if no config files exist.
func Load(dir string) (*Config, error) {
	globalPath, err := paths.GlobalConfigPath()
	if err != nil {
		return nil, err
	}

	globalCfg, globalMeta, err := loadConfigFile(globalPath)
	if err != nil {
		return nil, err
	}

	projectCfg, projectMeta, err := loadConfigFile(filepath.Join(dir, ProjectFile))
	if err != nil {
		return nil, err
	}

	if err := loadDotenv(filepath.Join(dir, ".env")); err != nil {
		return nil, err
	}

	merged := mergeConfigs(globalCfg, projectCfg, globalMeta, projectMeta)
	applyEnv(merged)
	applyDefaults(merged)
	merged.Data.Dir = resolveDir(dir, merged.Data.Dir)
	return merged, nil
}

func loadConfigFile(path string) (*Config, toml.MetaData, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Config{}, toml.MetaData{}, nil
	}
	if err != nil {
		return nil, toml.MetaData{}, fmt.Errorf("read config file %s: %w", path, err)
	}

	var cfg Config
	meta, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, toml.MetaData{}, fmt.Errorf("parse config file %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, toml.MetaData{}, fmt.Errorf("parse config file %s: unknown key %s", path, undecoded[0])
	}

	return &cfg, meta, nil
}

// loadDotenv reads a .env file without overriding variables that are
// already set.
func loadDotenv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func mergeConfigs(globalCfg, projectCfg *Config, globalMeta, projectMeta toml.MetaData) *Config {
	if globalCfg == nil {
		globalCfg = &Config{}
	}
	if projectCfg == nil {
		projectCfg = &Config{}
	}

	merged := Config{}
	merged.Data.Dir = mergeString(projectMeta.IsDefined("data", "dir"), projectCfg.Data.Dir, globalCfg.Data.Dir)
	merged.Data.UsersFile = mergeString(projectMeta.IsDefined("data", "users-file"), projectCfg.Data.UsersFile, globalCfg.Data.UsersFile)
	merged.Data.TasksFile = mergeString(projectMeta.IsDefined("data", "tasks-file"), projectCfg.Data.TasksFile, globalCfg.Data.TasksFile)
	merged.Data.ArchiveFile = mergeString(projectMeta.IsDefined("data", "archive-file"), projectCfg.Data.ArchiveFile, globalCfg.Data.ArchiveFile)

	merged.Server.Addr = mergeString(projectMeta.IsDefined("server", "addr"), projectCfg.Server.Addr, globalCfg.Server.Addr)
	merged.Server.LoginLimit = mergeValue(projectMeta.IsDefined("server", "login-limit"), projectCfg.Server.LoginLimit, globalCfg.Server.LoginLimit)
	merged.Server.LoginWindow = mergeValue(projectMeta.IsDefined("server", "login-window"), projectCfg.Server.LoginWindow, globalCfg.Server.LoginWindow)

	merged.Auth.AccessTTL = mergeValue(projectMeta.IsDefined("auth", "access-ttl"), projectCfg.Auth.AccessTTL, globalCfg.Auth.AccessTTL)
	merged.Auth.RefreshTTL = mergeValue(projectMeta.IsDefined("auth", "refresh-ttl"), projectCfg.Auth.RefreshTTL, globalCfg.Auth.RefreshTTL)

	merged.Password.MinLength = mergeValue(projectMeta.IsDefined("password", "min-length"), projectCfg.Password.MinLength, globalCfg.Password.MinLength)
	merged.Password.GeneratedLength = mergeValue(projectMeta.IsDefined("password", "generated-length"), projectCfg.Password.GeneratedLength, globalCfg.Password.GeneratedLength)

	return &merged
}

func mergeString(projectDefined bool, projectValue, globalValue string) string {
	return strings.TrimSpace(mergeValue(projectDefined, projectValue, globalValue))
}

func mergeValue[T any](projectDefined bool, projectValue, globalValue T) T {
	if projectDefined {
		return projectValue
	}
	return globalValue
}

func applyEnv(cfg *Config) {
	if value := strings.TrimSpace(os.Getenv(EnvDataDir)); value != "" {
		cfg.Data.Dir = value
	}
	if value := strings.TrimSpace(os.Getenv(EnvAddr)); value != "" {
		cfg.Server.Addr = value
	}
	cfg.Auth.Secret = os.Getenv(EnvJWTSecret)
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = DefaultAddr
	}
	if cfg.Server.LoginLimit <= 0 {
		cfg.Server.LoginLimit = DefaultLoginLimit
	}
	if cfg.Server.LoginWindow <= 0 {
		cfg.Server.LoginWindow = DefaultLoginWindow
	}
	if cfg.Auth.AccessTTL <= 0 {
		cfg.Auth.AccessTTL = DefaultAccessTTL
	}
	if cfg.Auth.RefreshTTL <= 0 {
		cfg.Auth.RefreshTTL = DefaultRefreshTTL
	}
	if cfg.Password.MinLength <= 0 {
		cfg.Password.MinLength = DefaultMinPassword
	}
	if cfg.Password.GeneratedLength <= 0 {
		cfg.Password.GeneratedLength = DefaultGeneratedLength
	}
}

func resolveDir(base, dir string) string {
	if dir == "" {
		return base
	}
	if strings.HasPrefix(dir, "~/") {
		if home, err := paths.HomeDir(); err == nil {
			return filepath.Join(home, dir[2:])
		}
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(base, dir)
}
