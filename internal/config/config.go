package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Storage   StorageConfig   `yaml:"storage"`
	Relay     RelayConfig     `yaml:"relay"`
	Translate TranslateConfig `yaml:"translate"`
	Staff     []StaffSeed     `yaml:"staff"`
}

type ServerConfig struct {
	Name    string `yaml:"name"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	BaseURL string `yaml:"base_url"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type AuthConfig struct {
	JWTSecret      string        `yaml:"jwt_secret"`
	AccessTokenTTL time.Duration `yaml:"access_token_ttl"`
}

type StorageConfig struct {
	BlobRoot       string `yaml:"blob_root"`
	UploadMaxBytes int64  `yaml:"upload_max_bytes"`
}

type RelayConfig struct {
	SMTP         SMTPConfig `yaml:"smtp"`
	AnnounceList []string   `yaml:"announce_list"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type TranslateConfig struct {
	URL     string        `yaml:"url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// StaffSeed provisions a crew member at startup. AccessKey is the shared
// secret the member logs in with; only its hash is stored.
type StaffSeed struct {
	DisplayName string   `yaml:"display_name"`
	Email       string   `yaml:"email"`
	Roles       []string `yaml:"roles"`
	AccessKey   string   `yaml:"access_key"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	cfg.setDefaults()

	return &cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SHOWDESK_JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("SHOWDESK_SMTP_PASSWORD"); v != "" {
		c.Relay.SMTP.Password = v
	}
	if v := os.Getenv("SHOWDESK_TRANSLATE_API_KEY"); v != "" {
		c.Translate.APIKey = v
	}
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters")
	}
	if c.Relay.SMTP.Host != "" {
		if c.Relay.SMTP.Port == 0 {
			return fmt.Errorf("relay.smtp.port is required when relay.smtp.host is set")
		}
		if c.Relay.SMTP.From == "" {
			return fmt.Errorf("relay.smtp.from is required when relay.smtp.host is set")
		}
	}
	for i, seed := range c.Staff {
		if seed.Email == "" {
			return fmt.Errorf("staff[%d].email is required", i)
		}
		if seed.DisplayName == "" {
			return fmt.Errorf("staff[%d].display_name is required", i)
		}
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Name == "" {
		c.Server.Name = "Showdesk"
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = fmt.Sprintf("http://%s:%d", c.Server.Host, c.Server.Port)
	}
	if c.Database.Path == "" {
		c.Database.Path = "./data/showdesk.db"
	}
	if c.Auth.AccessTokenTTL == 0 {
		c.Auth.AccessTokenTTL = 12 * time.Hour
	}
	if c.Storage.BlobRoot == "" {
		c.Storage.BlobRoot = "./data/blobs"
	}
	if c.Storage.UploadMaxBytes == 0 {
		c.Storage.UploadMaxBytes = 25 << 20 // 25 MB
	}
	if c.Translate.Timeout == 0 {
		c.Translate.Timeout = 15 * time.Second
	}
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// RelayEnabled reports whether an SMTP relay is configured.
func (c *Config) RelayEnabled() bool {
	return c.Relay.SMTP.Host != ""
}
