// Package config loads service settings from defaults, an optional YAML file,
// a .env file and the process environment, in that order of precedence.
package config

import (
	"time"

	"houseprice/pkg/artifact"
)

// Config is the complete service configuration.
type Config struct {
	Server ServerConfig `koanf:"server" validate:"required"`
	Model  ModelConfig  `koanf:"model"  validate:"required"`
	Train  TrainConfig  `koanf:"train"  validate:"required"`
	Log    LogConfig    `koanf:"log"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host           string        `koanf:"host"             validate:"required"        env:"SERVER_HOST"`
	Port           int           `koanf:"port"             validate:"min=1,max=65535" env:"SERVER_PORT"`
	CORSOrigins    []string      `koanf:"cors_origins"     validate:"min=1"           env:"CORS_ORIGINS"`
	MaxUploadBytes int64         `koanf:"max_upload_bytes" validate:"gt=0"            env:"SERVER_MAX_UPLOAD_BYTES"`
	ReadTimeout    time.Duration `koanf:"read_timeout"     validate:"gte=0"           env:"SERVER_READ_TIMEOUT"`
	WriteTimeout   time.Duration `koanf:"write_timeout"    validate:"gte=0"           env:"SERVER_WRITE_TIMEOUT"`
}

// ModelConfig controls where the model lives and how it is served.
type ModelConfig struct {
	StorePath     string  `koanf:"store_path"     validate:"required" env:"MODEL_STORE_PATH"`
	FallbackPrice float64 `koanf:"fallback_price" validate:"gt=0"     env:"MODEL_FALLBACK_PRICE"`
	CacheSize     int     `koanf:"cache_size"     validate:"gte=0"    env:"MODEL_CACHE_SIZE"`
}

// TrainConfig holds the random forest and split hyperparameters. Workers
// bounds concurrent tree fits; 0 means GOMAXPROCS.
type TrainConfig struct {
	Estimators      int     `koanf:"estimators"        validate:"min=1"     env:"TRAIN_ESTIMATORS"`
	MaxDepth        int     `koanf:"max_depth"         validate:"gte=0"     env:"TRAIN_MAX_DEPTH"`
	MinSamplesSplit int     `koanf:"min_samples_split" validate:"min=2"     env:"TRAIN_MIN_SAMPLES_SPLIT"`
	MinSamplesLeaf  int     `koanf:"min_samples_leaf"  validate:"min=1"     env:"TRAIN_MIN_SAMPLES_LEAF"`
	MaxFeatures     int     `koanf:"max_features"      validate:"gte=0"     env:"TRAIN_MAX_FEATURES"`
	Bootstrap       bool    `koanf:"bootstrap"                              env:"TRAIN_BOOTSTRAP"`
	TestRatio       float64 `koanf:"test_ratio"        validate:"gt=0,lt=1" env:"TRAIN_TEST_RATIO"`
	Seed            int64   `koanf:"seed"                                   env:"TRAIN_SEED"`
	MinSamples      int     `koanf:"min_samples"       validate:"min=2"     env:"TRAIN_MIN_SAMPLES"`
	Workers         int     `koanf:"workers"           validate:"gte=0"     env:"TRAIN_WORKERS"`
}

// LogConfig mirrors the logger flags.
type LogConfig struct {
	Level  string `koanf:"level"  validate:"omitempty,oneof=debug info warn error disabled" env:"LOG_LEVEL"`
	JSON   bool   `koanf:"json"                                                             env:"LOG_JSON"`
	Source bool   `koanf:"source"                                                           env:"LOG_SOURCE"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8000,
			CORSOrigins:    []string{"*"},
			MaxUploadBytes: 32 << 20,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   5 * time.Minute,
		},
		Model: ModelConfig{
			StorePath:     artifact.DefaultPath,
			FallbackPrice: 200000,
			CacheSize:     1024,
		},
		Train: TrainConfig{
			Estimators:      300,
			MaxDepth:        0,
			MinSamplesSplit: 2,
			MinSamplesLeaf:  1,
			Bootstrap:       true,
			TestRatio:       0.2,
			Seed:            42,
			MinSamples:      2,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
