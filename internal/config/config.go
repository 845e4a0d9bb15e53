package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// DefaultStdioHosts are BBS packages known to hand doors a redirected
// stdin/stdout instead of a socket handle.
var DefaultStdioHosts = []string{"Mystic", "WWIV", "Enigma", "Talisman"}

// DefaultSysOpThreshold is the security level that opens the SysOp console
// when nothing else is configured.
const DefaultSysOpThreshold = 100

// Config holds the door's operator settings.
type Config struct {
	Paths     PathsConfig     `yaml:"paths"`
	Log       LogConfig       `yaml:"log"`
	Transport TransportConfig `yaml:"transport"`
	Terminal  TerminalConfig  `yaml:"terminal"`
	SysOp     SysOpConfig     `yaml:"sysop"`
}

// PathsConfig holds filesystem locations.
type PathsConfig struct {
	SaveRoot string `yaml:"save_root" env:"DOOR_SAVE_ROOT"`
	Data     string `yaml:"data" env:"DOOR_DATA_DIR"`
	Database string `yaml:"database" env:"DOOR_DATABASE"`
	Display  string `yaml:"display" env:"DOOR_DISPLAY_DIR"`
}

// LogConfig controls the diagnostic log. It never reaches the caller.
type LogConfig struct {
	File    string `yaml:"file" env:"DOOR_LOG_FILE"`
	Verbose bool   `yaml:"verbose" env:"DOOR_VERBOSE"`
}

// TransportConfig holds transport selection settings.
type TransportConfig struct {
	StdioHosts   []string `yaml:"stdio_hosts" env:"DOOR_STDIO_HOSTS" envSeparator:","`
	TelnetIAC    bool     `yaml:"telnet_iac" env:"DOOR_TELNET_IAC"`
	WriteRetries int      `yaml:"write_retries" env:"DOOR_WRITE_RETRIES"`
}

// TerminalConfig holds terminal adapter settings.
type TerminalConfig struct {
	UTF8Local  bool `yaml:"utf8_local" env:"DOOR_UTF8_LOCAL"`
	MaxLine    int  `yaml:"max_line" env:"DOOR_MAX_LINE"`
	PageHeight int  `yaml:"page_height" env:"DOOR_PAGE_HEIGHT"`
}

// SysOpConfig holds the console gate.
type SysOpConfig struct {
	DefaultThreshold int `yaml:"default_threshold" env:"DOOR_SYSOP_THRESHOLD"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			SaveRoot: "./saves",
			Data:     "./data",
			Database: "./data/door.db",
			Display:  "./assets/text",
		},
		Transport: TransportConfig{
			StdioHosts:   append([]string(nil), DefaultStdioHosts...),
			WriteRetries: 3,
		},
		Terminal: TerminalConfig{
			UTF8Local:  true,
			MaxLine:    255,
			PageHeight: 24,
		},
		SysOp: SysOpConfig{
			DefaultThreshold: DefaultSysOpThreshold,
		},
	}
}

// Load reads a YAML config file over the defaults and then applies DOOR_*
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Paths.SaveRoot == "" {
		return fmt.Errorf("paths.save_root must be set")
	}
	if c.Transport.WriteRetries < 1 {
		return fmt.Errorf("transport.write_retries must be at least 1")
	}
	if c.SysOp.DefaultThreshold < 0 {
		return fmt.Errorf("sysop.default_threshold must not be negative")
	}
	if c.Terminal.MaxLine < 1 {
		c.Terminal.MaxLine = 255
	}
	return nil
}
