package config

import (
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	defaultAddress        = ":9090"
	defaultContextTimeout = 30
	defaultStorageTimeout = 5
	defaultCacheDB        = 0
	defaultBloomBitSize   = 10000000
	defaultBloomHashes    = 3
	defaultBloomReseed    = "@every 1h"
	defaultEventChannel   = "comment:events"
	defaultEventBuffer    = 1024
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Cache    CacheConfig    `yaml:"cache"`
	Auth     AuthConfig     `yaml:"auth"`
	Events   EventsConfig   `yaml:"events"`
}

type ServerConfig struct {
	Address        string   `yaml:"address"`
	ContextTimeout int      `yaml:"context_timeout"` // 秒
	AllowedOrigins []string `yaml:"allowed_origins"`
	LogLevel       string   `yaml:"log_level"`
	SnowflakeNode  int64    `yaml:"snowflake_node"`
}

type DatabaseConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	User           string `yaml:"user"`
	Pass           string `yaml:"pass"`
	Name           string `yaml:"name"`
	Timezone       string `yaml:"timezone"`
	StorageTimeout int    `yaml:"storage_timeout"` // 秒
}

type CacheConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	Pass         string `yaml:"pass"`
	DB           int    `yaml:"db"`
	BloomBitSize uint64 `yaml:"bloom_bit_size"`
	BloomHashes  int    `yaml:"bloom_hashes"`
	// cron 表达式，空字符串表示不定时重建
	BloomReseed string `yaml:"bloom_reseed"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

type EventsConfig struct {
	Channel    string `yaml:"channel"`
	BufferSize int    `yaml:"buffer_size"`
}

// Load reads the optional yaml file at path, then applies environment
// overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Address:        defaultAddress,
			ContextTimeout: defaultContextTimeout,
			LogLevel:       "info",
			SnowflakeNode:  1,
		},
		Database: DatabaseConfig{
			Host:           "localhost",
			Port:           3306,
			Timezone:       "UTC",
			StorageTimeout: defaultStorageTimeout,
		},
		Cache: CacheConfig{
			Host:         "localhost",
			Port:         6379,
			DB:           defaultCacheDB,
			BloomBitSize: defaultBloomBitSize,
			BloomHashes:  defaultBloomHashes,
			BloomReseed:  defaultBloomReseed,
		},
		Events: EventsConfig{
			Channel:    defaultEventChannel,
			BufferSize: defaultEventBuffer,
		},
	}

	if path != "" {
		if data, err := os.ReadFile(path); err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Server.Address, "SERVER_ADDRESS")
	setInt(&c.Server.ContextTimeout, "CONTEXT_TIMEOUT")
	setString(&c.Server.LogLevel, "LOG_LEVEL")
	if v := os.Getenv("SNOWFLAKE_NODE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Server.SnowflakeNode = n
		} else {
			logrus.Warnf("failed to parse SNOWFLAKE_NODE %q, using %d", v, c.Server.SnowflakeNode)
		}
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		c.Server.AllowedOrigins = SplitOrigins(v)
	}

	setString(&c.Database.Host, "DATABASE_HOST")
	setInt(&c.Database.Port, "DATABASE_PORT")
	setString(&c.Database.User, "DATABASE_USER")
	setString(&c.Database.Pass, "DATABASE_PASS")
	setString(&c.Database.Name, "DATABASE_NAME")
	setString(&c.Database.Timezone, "DATABASE_TIMEZONE")
	setInt(&c.Database.StorageTimeout, "STORAGE_TIMEOUT")

	setString(&c.Cache.Host, "CACHE_HOST")
	setInt(&c.Cache.Port, "CACHE_PORT")
	setString(&c.Cache.Pass, "CACHE_PASS")
	setInt(&c.Cache.DB, "CACHE_DB")
	if v := os.Getenv("BLOOM_FILTER_SIZE"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil && n > 0 {
			c.Cache.BloomBitSize = n
		} else {
			logrus.Warnf("failed to parse BLOOM_FILTER_SIZE %q, using %d", v, c.Cache.BloomBitSize)
		}
	}
	setInt(&c.Cache.BloomHashes, "BLOOM_FILTER_HASHES")
	if v, ok := os.LookupEnv("BLOOM_RESEED_SCHEDULE"); ok {
		c.Cache.BloomReseed = strings.TrimSpace(v)
	}

	setString(&c.Auth.JWTSecret, "JWT_SECRET")

	setString(&c.Events.Channel, "EVENT_CHANNEL")
	setInt(&c.Events.BufferSize, "EVENT_BUFFER_SIZE")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logrus.Warnf("failed to parse %s %q, using %d", key, v, *dst)
		return
	}
	*dst = n
}

// SplitOrigins parses a comma separated origin list
func SplitOrigins(s string) []string {
	var res []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			res = append(res, o)
		}
	}
	return res
}

// DSN builds the MySQL data source name with parseTime enabled
func (d DatabaseConfig) DSN() string {
	cfg := mysql.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Pass
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
	cfg.DBName = d.Name
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	if d.Timezone != "" {
		if loc, err := time.LoadLocation(d.Timezone); err == nil {
			cfg.Loc = loc
		} else {
			logrus.Warnf("unknown database timezone %q, using UTC", d.Timezone)
		}
	}
	return cfg.FormatDSN()
}

func (s ServerConfig) RequestTimeout() time.Duration {
	if s.ContextTimeout <= 0 {
		return defaultContextTimeout * time.Second
	}
	return time.Duration(s.ContextTimeout) * time.Second
}

func (d DatabaseConfig) Timeout() time.Duration {
	if d.StorageTimeout <= 0 {
		return defaultStorageTimeout * time.Second
	}
	return time.Duration(d.StorageTimeout) * time.Second
}

func (c CacheConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
