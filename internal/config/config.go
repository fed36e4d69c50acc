package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/JoeShih716/go-bank-ledger/pkg/mysql"
)

// 儲存層與鎖的實作選項
const (
	StoreMemory = "memory"
	StoreMySQL  = "mysql"

	LockerMemory = "memory"
	LockerRedis  = "redis"
)

// Config 服務設定，來源優先序: 環境變數 > .env > YAML 檔 > 預設值
type Config struct {
	Store   string        `yaml:"store"`
	Locker  string        `yaml:"locker"`
	GRPC    GRPCConfig    `yaml:"grpc"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
	WAL     WALConfig     `yaml:"wal"`
	Ledger  LedgerConfig  `yaml:"ledger"`
	MySQL   mysql.Config  `yaml:"mysql"`
	Redis   RedisConfig   `yaml:"redis"`
	Kafka   KafkaConfig   `yaml:"kafka"`
}

type GRPCConfig struct {
	Addr string `yaml:"addr"`
}

// MetricsConfig Addr 為空時不啟動 /metrics
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

type WALConfig struct {
	Path string `yaml:"path"`
}

type LedgerConfig struct {
	LockTimeout     time.Duration `yaml:"lock_timeout"`
	HistoryLimit    int           `yaml:"history_limit"`
	InterestWorkers int           `yaml:"interest_workers"`
}

type RedisConfig struct {
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	PoolSize  int           `yaml:"pool_size"`
	LockLease time.Duration `yaml:"lock_lease"`
}

type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// Load 讀取設定
//
// 參數:
//
//	path: YAML 設定檔路徑，空字串時只使用環境變數與預設值
//	envFiles: 要載入的 .env 檔，不存在時略過
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	for _, f := range envFiles {
		// godotenv 不覆蓋已存在的環境變數
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", f, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	num := func(key string, dst *int) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	flag := func(key string, dst *bool) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	str("LEDGER_STORE", &c.Store)
	str("LEDGER_LOCKER", &c.Locker)
	str("LEDGER_GRPC_ADDR", &c.GRPC.Addr)
	str("LEDGER_METRICS_ADDR", &c.Metrics.Addr)
	str("LEDGER_LOG_LEVEL", &c.Log.Level)
	flag("LEDGER_LOG_DEVELOPMENT", &c.Log.Development)
	str("LEDGER_WAL_PATH", &c.WAL.Path)
	dur("LEDGER_LOCK_TIMEOUT", &c.Ledger.LockTimeout)
	num("LEDGER_HISTORY_LIMIT", &c.Ledger.HistoryLimit)
	num("LEDGER_INTEREST_WORKERS", &c.Ledger.InterestWorkers)

	str("MYSQL_HOST", &c.MySQL.Host)
	num("MYSQL_PORT", &c.MySQL.Port)
	str("MYSQL_USER", &c.MySQL.User)
	str("MYSQL_PASSWORD", &c.MySQL.Password)
	str("MYSQL_DATABASE", &c.MySQL.DBName)

	str("REDIS_ADDR", &c.Redis.Addr)
	str("REDIS_PASSWORD", &c.Redis.Password)
	num("REDIS_DB", &c.Redis.DB)
	dur("REDIS_LOCK_LEASE", &c.Redis.LockLease)

	flag("KAFKA_ENABLED", &c.Kafka.Enabled)
	if v, ok := os.LookupEnv("KAFKA_BROKERS"); ok && v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	str("KAFKA_TOPIC", &c.Kafka.Topic)

	return errors.Join(errs...)
}

// applyDefaults 補全未設定的欄位
func (c *Config) applyDefaults() {
	if c.Store == "" {
		c.Store = StoreMemory
	}
	if c.Locker == "" {
		c.Locker = LockerMemory
	}
	if c.GRPC.Addr == "" {
		c.GRPC.Addr = ":50051"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.WAL.Path == "" {
		c.WAL.Path = "wal.log"
	}
	if c.Ledger.LockTimeout == 0 {
		c.Ledger.LockTimeout = 3 * time.Second
	}
	if c.Ledger.HistoryLimit == 0 {
		c.Ledger.HistoryLimit = 100
	}
	if c.Ledger.InterestWorkers == 0 {
		c.Ledger.InterestWorkers = 8
	}
	c.MySQL = c.MySQL.WithDefaults()
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = 10
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "ledger.transactions"
	}
	for i := range c.Kafka.Brokers {
		c.Kafka.Brokers[i] = strings.TrimSpace(c.Kafka.Brokers[i])
	}
}

// Validate 檢查設定組合
func (c *Config) Validate() error {
	switch c.Store {
	case StoreMemory, StoreMySQL:
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}
	switch c.Locker {
	case LockerMemory, LockerRedis:
	default:
		return fmt.Errorf("unknown locker %q", c.Locker)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka enabled without brokers")
	}
	if c.Ledger.LockTimeout < 0 {
		return errors.New("ledger.lock_timeout must be positive")
	}
	return nil
}
