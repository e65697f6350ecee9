package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080" validate:"gt=0,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Kalshi struct {
		BaseURL        string        `yaml:"base_url" default:"https://api.elections.kalshi.com/trade-api/v2" validate:"url"`
		WebSocketURL   string        `yaml:"websocket_url" default:"wss://api.elections.kalshi.com/trade-api/ws/v2"`
		APIKey         string        `yaml:"api_key"`
		Timeout        time.Duration `yaml:"timeout" default:"15s"`
		RateLimit      int           `yaml:"rate_limit" default:"10" validate:"gt=0"`
		ContractsTTL   time.Duration `yaml:"contracts_ttl" default:"1m"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"5s"`
		PingInterval   time.Duration `yaml:"ping_interval" default:"10s"`
	} `yaml:"kalshi"`
	OpenAI struct {
		APIKey      string        `yaml:"api_key"`
		BaseURL     string        `yaml:"base_url" default:"https://api.openai.com/v1" validate:"url"`
		Model       string        `yaml:"model" default:"gpt-4"`
		Temperature float64       `yaml:"temperature" default:"0.3" validate:"gte=0,lte=2"`
		MaxTokens   int           `yaml:"max_tokens" default:"2000" validate:"gt=0"`
		Timeout     time.Duration `yaml:"timeout" default:"60s"`
	} `yaml:"openai"`
	Strategy struct {
		ContractIDs     []string      `yaml:"contract_ids"`
		Interval        time.Duration `yaml:"interval" default:"5m"`
		MinConfidence   float64       `yaml:"min_confidence" default:"0.7" validate:"gte=0,lte=1"`
		MaxPositionSize float64       `yaml:"max_position_size" default:"0.05" validate:"gt=0,lte=1"`
		PaperTrading    bool          `yaml:"paper_trading" default:"true"`
	} `yaml:"strategy"`
	Risk struct {
		MaxPositionSize float64 `yaml:"max_position_size" default:"0.05" validate:"gt=0,lte=1"`
		MaxDrawdown     float64 `yaml:"max_drawdown" default:"0.20" validate:"gt=0,lte=1"`
		VarLimit        float64 `yaml:"var_limit" default:"0.02" validate:"gt=0,lte=1"`
		MaxCorrelation  float64 `yaml:"max_correlation" default:"0.7" validate:"gt=0,lte=1"`
	} `yaml:"risk"`
	Backend struct {
		Type         string        `yaml:"type" default:"none" validate:"oneof=kafka clickhouse none"`
		BatchSize    int           `yaml:"batch_size" default:"100" validate:"gt=0"`
		BatchTimeout time.Duration `yaml:"batch_timeout" default:"2s"`
	} `yaml:"backend"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic" default:"kalshipulse.decisions"`
		RequiredAcks int      `yaml:"required_acks" default:"1"`
		Compression  string   `yaml:"compression" default:"snappy"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"50ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"kalshipulse"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert" default:"true"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled      bool          `yaml:"enabled"`
		Addr         string        `yaml:"addr" default:"localhost:6379"`
		Password     string        `yaml:"password"`
		DB           int           `yaml:"db"`
		KeyPrefix    string        `yaml:"key_prefix" default:"kalshipulse"`
		PoolSize     int           `yaml:"pool_size" default:"10" validate:"gt=0"`
		MinIdleConns int           `yaml:"min_idle_conns" default:"2"`
		PoolTimeout  time.Duration `yaml:"pool_timeout" default:"4s"`
		MemorySize   int           `yaml:"memory_size" default:"1000" validate:"gt=0"`
	} `yaml:"redis"`
}

// Load reads a YAML configuration file, applies defaults for missing
// fields, and validates the result.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse builds a validated Config from raw YAML.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// Default returns a config with every field at its default value.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML (falling back to defaults when the
// file is absent), after sourcing a .env file if one exists, and then
// overrides selected fields from environment variables. Secrets are
// expected through the environment rather than the YAML file.
func LoadWithEnv(path string) (*Config, error) {
	// Missing .env is fine: plain environment variables still apply.
	_ = godotenv.Load()

	var c *Config
	var err error
	if _, statErr := os.Stat(path); statErr == nil {
		c, err = Load(path)
	} else {
		c, err = Default()
	}
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("KALSHI_API_KEY"); v != "" {
		c.Kalshi.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.OpenAI.APIKey = v
	}
	if v := os.Getenv("CONTRACT_IDS"); v != "" {
		c.Strategy.ContractIDs = strings.Split(v, ",")
	}
	if v := os.Getenv("BACKEND"); v != "" {
		c.Backend.Type = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("ENVIRONMENT"); v != "" {
		c.Environment = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks structural constraints plus the cross-field rules the
// tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if c.Backend.Type == "kafka" && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when backend.type is kafka")
	}
	return nil
}
