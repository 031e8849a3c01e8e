// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package xtract

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/sassoftware/viya-doc-xtract/engine"
	"github.com/sassoftware/viya-doc-xtract/logger"
	"github.com/sassoftware/viya-doc-xtract/metrics"
	"gopkg.in/yaml.v3"
)

type EngineName string

const (
	EngineTika       EngineName = "tika"
	EngineTikaServer EngineName = "tika-server"
	EngineDocconv    EngineName = "docconv"
	EngineNative     EngineName = "native"
)

type TikaConfig struct {
	Java          string        `yaml:"java"`
	Jar           string        `yaml:"jar"`
	JavaOpts      []string      `yaml:"java_opts"`
	SpoolAbove    int64         `yaml:"spool_above" validate:"min=0"`
	ServerURL     string        `yaml:"server_url" validate:"omitempty,url"`
	ServerRetries int           `yaml:"server_retries" validate:"min=0,max=5"`
	ServerTimeout time.Duration `yaml:"server_timeout" validate:"min=0"`
}

type FetchConfig struct {
	Timeout    time.Duration `yaml:"timeout" validate:"required"`
	MaxRetries int           `yaml:"max_retries" validate:"min=0,max=5"`
	BaseDelay  time.Duration `yaml:"base_delay" validate:"min=0"`
	UserAgent  string        `yaml:"user_agent"`
}

type Config struct {
	Engine                   EngineName    `yaml:"engine" validate:"oneof=tika tika-server docconv native"`
	MaxConcurrentExtractions int           `yaml:"max_concurrent_extractions" validate:"min=1,max=64"`
	Timeout                  time.Duration `yaml:"timeout" validate:"min=0"`            // per invocation, 0 disables
	MaxDocumentBytes         int64         `yaml:"max_document_bytes" validate:"min=0"` // bytes read into memory, 0 disables
	UseReadability           bool          `yaml:"use_readability"`                     // docconv HTML cleanup
	Tika                     TikaConfig    `yaml:"tika"`
	Fetch                    FetchConfig   `yaml:"fetch"`
	S3                       S3Config      `yaml:"s3"`
	DebugOn                  bool          `yaml:"debug"`

	Logger  logger.LogFunc   `yaml:"-"`
	Metrics metrics.Recorder `yaml:"-"`
	// Backend overrides Engine with a caller supplied implementation.
	Backend engine.Engine `yaml:"-"`
	// Fetcher overrides the default http/https/s3 fetchers.
	Fetcher Fetcher `yaml:"-"`
}

func NewDefaultConfig() *Config {
	return &Config{
		Engine:                   EngineDocconv,
		MaxConcurrentExtractions: 4,
		Timeout:                  2 * time.Minute,
		MaxDocumentBytes:         256 << 20,
		Tika: TikaConfig{
			Java:          "java",
			ServerRetries: 3,
			ServerTimeout: 2 * time.Minute,
		},
		Fetch: FetchConfig{
			Timeout:    60 * time.Second,
			MaxRetries: 2,
			BaseDelay:  time.Second,
			UserAgent:  "viya-doc-xtract",
		},
		DebugOn: false,
	}
}

func (cfg *Config) Validate() error {
	logger.Debug("Validating Config Object")
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return err
	}
	if cfg.Backend != nil {
		return nil
	}
	switch cfg.Engine {
	case EngineTika:
		if cfg.Tika.Jar == "" {
			return errors.New("engine tika requires Tika.Jar")
		}
	case EngineTikaServer:
		if cfg.Tika.ServerURL == "" {
			return errors.New("engine tika-server requires Tika.ServerURL")
		}
	}
	return nil
}

// LoadConfigFile reads a YAML file over the defaults.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := NewDefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigFromEnv loads the given .env files (".env" when none are given,
// missing files are ignored) and overlays XTRACT_* variables on the defaults.
// Without XTRACT_ENGINE the engine follows whichever of TIKA_APP_JAR or
// XTRACT_TIKA_URL is set.
func LoadConfigFromEnv(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := NewDefaultConfig()
	cfg.Tika.Jar = getEnv("XTRACT_TIKA_JAR", os.Getenv("TIKA_APP_JAR"))
	cfg.Tika.Java = getEnv("XTRACT_JAVA", cfg.Tika.Java)
	if opts := os.Getenv("XTRACT_JAVA_OPTS"); opts != "" {
		cfg.Tika.JavaOpts = strings.Fields(opts)
	}
	cfg.Tika.ServerURL = os.Getenv("XTRACT_TIKA_URL")

	switch {
	case os.Getenv("XTRACT_ENGINE") != "":
		cfg.Engine = EngineName(strings.ToLower(os.Getenv("XTRACT_ENGINE")))
	case cfg.Tika.Jar != "":
		cfg.Engine = EngineTika
	case cfg.Tika.ServerURL != "":
		cfg.Engine = EngineTikaServer
	}

	cfg.MaxConcurrentExtractions = getEnvAsInt("XTRACT_MAX_CONCURRENT", cfg.MaxConcurrentExtractions)
	cfg.Timeout = getEnvAsDuration("XTRACT_TIMEOUT", cfg.Timeout)
	cfg.MaxDocumentBytes = int64(getEnvAsInt("XTRACT_MAX_DOCUMENT_BYTES", int(cfg.MaxDocumentBytes)))
	cfg.UseReadability = getEnvAsBool("XTRACT_DOCCONV_READABILITY", cfg.UseReadability)
	cfg.Fetch.Timeout = getEnvAsDuration("XTRACT_FETCH_TIMEOUT", cfg.Fetch.Timeout)
	cfg.Fetch.MaxRetries = getEnvAsInt("XTRACT_FETCH_RETRIES", cfg.Fetch.MaxRetries)
	cfg.S3.Region = getEnv("XTRACT_S3_REGION", os.Getenv("AWS_REGION"))
	cfg.S3.Endpoint = os.Getenv("XTRACT_S3_ENDPOINT")
	cfg.S3.AccessKey = os.Getenv("AWS_ACCESS_KEY_ID")
	cfg.S3.SecretKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
	cfg.DebugOn = getEnvAsBool("XTRACT_DEBUG", cfg.DebugOn)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}
