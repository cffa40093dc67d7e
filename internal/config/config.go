package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type MatrixConfig struct {
	Env          string `yaml:"env" env:"ENV" env-default:"local"`
	GRPCServer   `yaml:"grpc_server"`
	HTTPServer   `yaml:"http_server"`
	MatrixDB     `yaml:"matrix_db"`
	LogConfig    `yaml:"log_config"`
	KafkaService `yaml:"kafka-service"`
	Worker       `yaml:"worker"`
	Commission   `yaml:"commission"`
}

type GRPCServer struct {
	Host string `yaml:"host" env:"GRPC_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"GRPC_PORT" env-default:"50061"`
}

type HTTPServer struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"8081"`
}

type MatrixDB struct {
	Dsn            string `yaml:"dsn" env:"MATRIX_DB_DSN"`
	AutoMigrate    bool   `yaml:"auto_migrate" env:"MATRIX_DB_AUTO_MIGRATE" env-default:"false"`
	MigrationsPath string `yaml:"migrations_path" env:"MATRIX_DB_MIGRATIONS_PATH" env-default:"migrations"`
	MaxOpenConns   int    `yaml:"max_open_conns" env:"MATRIX_DB_MAX_OPEN_CONNS" env-default:"20"`
}

type LogConfig struct {
	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	LogFormat string `yaml:"log_format" env:"LOG_FORMAT" env-default:"json"`
	LogOutput string `yaml:"log_output" env:"LOG_OUTPUT" env-default:"stdout"`
}

type KafkaService struct {
	Enabled      bool   `yaml:"enabled" env:"KAFKA_ENABLED" env-default:"false"`
	Host         string `yaml:"host" env:"KAFKA_HOST"`
	Port         string `yaml:"port" env:"KAFKA_PORT"`
	Username     string `yaml:"username" env:"KAFKA_USERNAME"`
	Password     string `yaml:"password" env:"KAFKA_PASSWORD"`
	Mechanism    string `yaml:"mechanism" env:"KAFKA_MECHANISM" env-default:"PLAIN"`
	TLSEnabled   bool   `yaml:"tls_enabled" env:"KAFKA_TLS_ENABLED" env-default:"false"`
	TriggerTopic string `yaml:"trigger_topic" env:"KAFKA_TRIGGER_TOPIC" env-default:"activation-triggers"`
	PayoutTopic  string `yaml:"payout_topic" env:"KAFKA_PAYOUT_TOPIC" env-default:"matrix-payouts"`
	GroupID      string `yaml:"group_id" env:"KAFKA_GROUP_ID" env-default:"matrix-service"`
}

type Worker struct {
	Concurrency    int           `yaml:"concurrency" env:"WORKER_CONCURRENCY" env-default:"4"`
	PollInterval   time.Duration `yaml:"poll_interval" env:"WORKER_POLL_INTERVAL" env-default:"1s"`
	MaxAttempts    int           `yaml:"max_attempts" env:"WORKER_MAX_ATTEMPTS" env-default:"5"`
	RetryBackoff   time.Duration `yaml:"retry_backoff" env:"WORKER_RETRY_BACKOFF" env-default:"30s"`
	RetryInterval  time.Duration `yaml:"retry_interval" env:"WORKER_RETRY_INTERVAL" env-default:"15s"`
	StaleAfter     time.Duration `yaml:"stale_after" env:"WORKER_STALE_AFTER" env-default:"10m"`
	ReaperInterval time.Duration `yaml:"reaper_interval" env:"WORKER_REAPER_INTERVAL" env-default:"1m"`
}

type Commission struct {
	ConfigPath string `yaml:"config_path" env:"COMMISSION_CONFIG_PATH" env-default:"config/commission.yaml"`
}

func (k KafkaService) Brokers() []string {
	return []string{k.Host + ":" + k.Port}
}

// Load reads the YAML file at path and applies environment overrides.
func Load(path string) (*MatrixConfig, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}
	var cfg MatrixConfig
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return &cfg, nil
}

func MustLoad() *MatrixConfig {

	// Processing env config variable and file
	configPath := os.Getenv("MATRIX_CONFIG_PATH")

	if configPath == "" {
		log.Fatalf("MATRIX_CONFIG_PATH was not found\n")
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("%v\n", err)
	}

	return cfg
}
