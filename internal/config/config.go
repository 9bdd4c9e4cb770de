package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultFile = "db2batch.yaml"

type Connection struct {
	Name      string `yaml:"name"`
	Database  string `yaml:"database"`
	Alias     string `yaml:"alias,omitempty"`
	User      string `yaml:"user"`
	Password  string `yaml:"password,omitempty"`
	Profile   string `yaml:"profile,omitempty"`
	Protected bool   `yaml:"protected"`
}

type Settings struct {
	WorkDir        string        `yaml:"work_dir"`
	Tool           string        `yaml:"tool"`
	Launcher       string        `yaml:"launcher"`
	CommitCount    int           `yaml:"commit_count"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	CheckInterval  time.Duration `yaml:"check_interval"`
	MaxChecks      int           `yaml:"max_checks"`
	Timeout        time.Duration `yaml:"timeout"`
	KeyringService string        `yaml:"keyring_service"`
}

type Item struct {
	Name      string `yaml:"name"`
	Statement string `yaml:"statement"`
}

type Grant struct {
	To     string `yaml:"to"`
	Select bool   `yaml:"select"`
	Insert bool   `yaml:"insert"`
	Update bool   `yaml:"update"`
	Delete bool   `yaml:"delete"`
}

// Job is a named, repeatable run. Items is a list so script order is the
// order written in the file.
type Job struct {
	Name       string   `yaml:"name"`
	Op         string   `yaml:"op"`
	Connection string   `yaml:"connection"`
	Run        string   `yaml:"run,omitempty"`
	Dir        string   `yaml:"dir,omitempty"`
	UseAlias   bool     `yaml:"use_alias,omitempty"`
	Items      []Item   `yaml:"items,omitempty"`
	Tables     []string `yaml:"tables,omitempty"`
	Grant      *Grant   `yaml:"grant,omitempty"`
}

type Config struct {
	Settings    Settings     `yaml:"settings"`
	Connections []Connection `yaml:"connections"`
	Jobs        []Job        `yaml:"jobs,omitempty"`
}

var Defaults = Settings{
	WorkDir:        ".",
	Tool:           "db2",
	Launcher:       "db2cmd",
	CommitCount:    20000,
	PollInterval:   5 * time.Second,
	CheckInterval:  6 * time.Second,
	MaxChecks:      10,
	Timeout:        30 * time.Minute,
	KeyringService: "db2batch",
}

func EnsureExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		def := Config{
			Settings: Defaults,
			Connections: []Connection{
				{
					Name:      "example",
					Database:  "SAMPLE",
					User:      "db2inst1",
					Profile:   "/home/db2inst1/sqllib/db2profile",
					Protected: true,
				},
			},
			Jobs: []Job{
				{
					Name:       "nightly-stats",
					Op:         "runstats",
					Connection: "example",
					Tables:     []string{"DB2INST1.EMPLOYEE", "DB2INST1.DEPARTMENT"},
				},
			},
		}
		if err := Save(path, def); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, err
}

// Load reads the config at path. A .env file next to it is loaded first
// so ${VAR} references in connection fields can be resolved from it.
func Load(path string) (Config, error) {
	var c Config
	dotenv := filepath.Join(filepath.Dir(path), ".env")
	if _, err := os.Stat(dotenv); err == nil {
		if err := godotenv.Load(dotenv); err != nil {
			return c, fmt.Errorf("load %s: %w", dotenv, err)
		}
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, fmt.Errorf("parse %s: %w", path, err)
	}
	c.applyDefaults()
	for i := range c.Connections {
		c.Connections[i].expand()
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

func Save(path string, c Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0600)
}

func (c *Config) applyDefaults() {
	s := &c.Settings
	if s.WorkDir == "" {
		s.WorkDir = Defaults.WorkDir
	}
	if s.Tool == "" {
		s.Tool = Defaults.Tool
	}
	if s.Launcher == "" {
		s.Launcher = Defaults.Launcher
	}
	if s.CommitCount <= 0 {
		s.CommitCount = Defaults.CommitCount
	}
	if s.PollInterval <= 0 {
		s.PollInterval = Defaults.PollInterval
	}
	if s.CheckInterval <= 0 {
		s.CheckInterval = Defaults.CheckInterval
	}
	if s.MaxChecks <= 0 {
		s.MaxChecks = Defaults.MaxChecks
	}
	if s.Timeout <= 0 {
		s.Timeout = Defaults.Timeout
	}
	if s.KeyringService == "" {
		s.KeyringService = Defaults.KeyringService
	}
}

func (conn *Connection) expand() {
	conn.Database = os.ExpandEnv(conn.Database)
	conn.Alias = os.ExpandEnv(conn.Alias)
	conn.User = os.ExpandEnv(conn.User)
	conn.Password = os.ExpandEnv(conn.Password)
	conn.Profile = os.ExpandEnv(conn.Profile)
}

func (c Config) Validate() error {
	if len(c.Connections) == 0 {
		return errors.New("config has no connections")
	}
	seen := map[string]bool{}
	for i, conn := range c.Connections {
		if strings.TrimSpace(conn.Name) == "" {
			return fmt.Errorf("connection[%d]: name is required", i)
		}
		if seen[conn.Name] {
			return fmt.Errorf("connection %q defined twice", conn.Name)
		}
		seen[conn.Name] = true
		if strings.TrimSpace(conn.Database) == "" {
			return fmt.Errorf("connection %q: database is required", conn.Name)
		}
		if strings.TrimSpace(conn.User) == "" {
			return fmt.Errorf("connection %q: user is required", conn.Name)
		}
	}
	for i, job := range c.Jobs {
		if strings.TrimSpace(job.Name) == "" {
			return fmt.Errorf("job[%d]: name is required", i)
		}
		if !seen[job.Connection] {
			return fmt.Errorf("job %q: unknown connection %q", job.Name, job.Connection)
		}
		if len(job.Items) == 0 && len(job.Tables) == 0 {
			return fmt.Errorf("job %q: no items or tables", job.Name)
		}
	}
	return nil
}

func (c Config) Connection(name string) (*Connection, error) {
	for i := range c.Connections {
		if c.Connections[i].Name == name {
			return &c.Connections[i], nil
		}
	}
	return nil, fmt.Errorf("unknown connection %q", name)
}

func (c Config) Job(name string) (*Job, error) {
	for i := range c.Jobs {
		if c.Jobs[i].Name == name {
			return &c.Jobs[i], nil
		}
	}
	return nil, fmt.Errorf("unknown job %q", name)
}

func (c Config) ConnectionNames() []string {
	names := make([]string, len(c.Connections))
	for i, conn := range c.Connections {
		names[i] = conn.Name
	}
	return names
}
