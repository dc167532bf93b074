package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"

	IDModeLegacy = "legacy"
	IDModeStrict = "strict"
)

type Config struct {
	Mode   string       `mapstructure:"mode"`
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	Store  StoreConfig  `mapstructure:"store"`
	DB     DBConfig     `mapstructure:"db"`
	Mongo  MongoConfig  `mapstructure:"mongo"`
	Rooms  RoomsConfig  `mapstructure:"rooms"`
}

type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver"`
}

type DBConfig struct {
	Host     string `mapstructure:"host"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	Port     int    `mapstructure:"port"`
	SSLMode  string `mapstructure:"sslmode"`
	TimeZone string `mapstructure:"timezone"`
}

type MongoConfig struct {
	URI            string        `mapstructure:"uri"`
	Database       string        `mapstructure:"database"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// RoomsConfig 控制房間分配與更新行為
type RoomsConfig struct {
	Size              int    `mapstructure:"size"`
	IDMode            string `mapstructure:"id_mode"`
	MaxUpdateAttempts int    `mapstructure:"max_update_attempts"`
	KeyLength         int    `mapstructure:"key_length"`
}

// New 建立帶有預設值與環境變數綁定的 viper 實例
func New() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("PHILO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("mode", "release")
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.shutdown_timeout", "5s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.console", true)
	v.SetDefault("store.driver", DriverPostgres)
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.name", "philo_rooms")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "philo_rooms")
	v.SetDefault("mongo.connect_timeout", "10s")
	v.SetDefault("rooms.size", 10)
	v.SetDefault("rooms.id_mode", IDModeLegacy)
	v.SetDefault("rooms.max_update_attempts", 5)
	v.SetDefault("rooms.key_length", 12)

	return v
}

// Load 讀取設定檔（可選）並套用預設值
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 檢查設定值是否合理
func (c *Config) Validate() error {
	switch c.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("unknown mode: %q", c.Mode)
	}
	switch c.Store.Driver {
	case DriverPostgres, DriverMongo, DriverMemory:
	default:
		return fmt.Errorf("unknown store driver: %q", c.Store.Driver)
	}
	switch c.Rooms.IDMode {
	case IDModeLegacy, IDModeStrict:
	default:
		return fmt.Errorf("unknown rooms.id_mode: %q", c.Rooms.IDMode)
	}
	if c.Rooms.Size < 1 {
		return fmt.Errorf("rooms.size must be positive: %d", c.Rooms.Size)
	}
	if c.Rooms.MaxUpdateAttempts < 1 {
		return fmt.Errorf("rooms.max_update_attempts must be positive: %d", c.Rooms.MaxUpdateAttempts)
	}
	if c.Rooms.KeyLength < 4 {
		return fmt.Errorf("rooms.key_length too short: %d", c.Rooms.KeyLength)
	}
	return nil
}
