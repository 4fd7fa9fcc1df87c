package config

import (
	"os"
	"strconv"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Auth         AuthConfig         `yaml:"auth"`
	History      HistoryConfig      `yaml:"history"`
	Notification NotificationConfig `yaml:"notification"`
	Portal       PortalConfig       `yaml:"portal"`
	Seed         SeedConfig         `yaml:"seed"`
}

type ServerConfig struct {
	Port          string `yaml:"port"`
	Mode          string `yaml:"mode"`           // debug, release
	Timezone      string `yaml:"timezone"`       // 日期筛选按该时区切分自然日
	DefaultLocale string `yaml:"default_locale"` // en, th
}

type DatabaseConfig struct {
	Type string `yaml:"type"` // sqlite, mysql, postgres
	DSN  string `yaml:"dsn"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type HistoryConfig struct {
	PageSize int `yaml:"page_size"`
}

type NotificationConfig struct {
	PageSize   int    `yaml:"page_size"`
	LinkPrefix string `yaml:"link_prefix"`
}

// PortalConfig 表单提交后跳转的页面地址
type PortalConfig struct {
	SubmitterDashboard string `yaml:"submitter_dashboard"`
	FormDetail         string `yaml:"form_detail"`
}

type SeedConfig struct {
	DefaultTemplates bool `yaml:"default_templates"`
}

var (
	cfg  *Config
	once sync.Once
)

func GetConfig() *Config {
	once.Do(func() {
		cfg = loadConfig()
	})
	return cfg
}

// Default 返回内置默认配置
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:          "8080",
			Mode:          "debug",
			Timezone:      "Asia/Bangkok",
			DefaultLocale: "en",
		},
		Database: DatabaseConfig{
			Type: "sqlite",
			DSN:  "./data/cpmail.db",
		},
		Auth: AuthConfig{
			JWTSecret: "change-me",
			TokenTTL:  24 * time.Hour,
		},
		History: HistoryConfig{
			PageSize: 10,
		},
		Notification: NotificationConfig{
			PageSize:   20,
			LinkPrefix: "/student/forms/",
		},
		Portal: PortalConfig{
			SubmitterDashboard: "/student",
			FormDetail:         "/student/forms",
		},
		Seed: SeedConfig{
			DefaultTemplates: true,
		},
	}
}

func loadConfig() *Config {
	config := Default()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err == nil {
		yaml.Unmarshal(data, config)
	}

	// 环境变量优先级高于配置文件
	if port := os.Getenv("SERVER_PORT"); port != "" {
		config.Server.Port = port
	}
	if mode := os.Getenv("SERVER_MODE"); mode != "" {
		config.Server.Mode = mode
	}
	if tz := os.Getenv("TIMEZONE"); tz != "" {
		config.Server.Timezone = tz
	}
	if locale := os.Getenv("DEFAULT_LOCALE"); locale != "" {
		config.Server.DefaultLocale = locale
	}

	// 数据库环境变量
	if dbType := os.Getenv("DB_TYPE"); dbType != "" {
		config.Database.Type = dbType
	}
	if dbDSN := os.Getenv("DB_DSN"); dbDSN != "" {
		config.Database.DSN = dbDSN
	}

	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.Auth.JWTSecret = secret
	}
	if size := os.Getenv("HISTORY_PAGE_SIZE"); size != "" {
		if n, err := strconv.Atoi(size); err == nil && n > 0 {
			config.History.PageSize = n
		}
	}

	if config.History.PageSize <= 0 {
		config.History.PageSize = 10
	}
	if config.Notification.PageSize <= 0 {
		config.Notification.PageSize = 20
	}

	return config
}

// Location 返回配置的时区，解析失败时回落到 UTC
func (c *Config) Location() *time.Location {
	if c.Server.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Server.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func UpdateConfig(newCfg *Config) {
	cfg = newCfg
}
