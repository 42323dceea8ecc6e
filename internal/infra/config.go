package infra

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"frac_ledger/internal/domain"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	defaultInboxSize = 1024
	defaultDumpFile  = "panic_dump.json"
	defaultLogDir    = "logs"
	maxInboxSize     = 1 << 20
)

// Config는 애플리케이션의 모든 설정을 담습니다.
// LoadConfig로 로드된 후에 환경 변수를 통해 민감 내용을 덮어씁니다.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Storage struct {
		Path string `yaml:"path" env:"FRAC_STORAGE_PATH"` // empty: per-user data dir
	} `yaml:"storage"`

	Host struct {
		FeedURL string `yaml:"feed_url" env:"FRAC_FEED_URL"`
		Token   string `yaml:"token" env:"FRAC_FEED_TOKEN"`
	} `yaml:"host"`

	HTTP struct {
		Addr string `yaml:"addr" env:"FRAC_HTTP_ADDR"` // empty: query API disabled
	} `yaml:"http"`

	Sequencer struct {
		InboxSize     int    `yaml:"inbox_size"`
		DumpFile      string `yaml:"dump_file"`
		VerifyOnStart *bool  `yaml:"verify_on_start"` // nil: on
	} `yaml:"sequencer"`

	Logging struct {
		Level string `yaml:"level" env:"FRAC_LOG_LEVEL"`
		Dir   string `yaml:"dir"`
	} `yaml:"logging"`
}

// LoadConfig는 설정 파일을 읽고 파싱합니다.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrConfigNotFound, path)
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// 보안 우선 - 환경 변수 오버라이드 지원
	if err := overrideWithEnv(&cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	// 설정 유효성 검사
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	// Host feed
	url := c.Host.FeedURL
	if url == "" || (!strings.HasPrefix(url, "ws://") && !strings.HasPrefix(url, "wss://")) {
		return &domain.ConfigError{Field: "host.feed_url", Err: fmt.Errorf("%w: %q", domain.ErrInvalidValue, url)}
	}

	// Sequencer
	if c.Sequencer.InboxSize <= 0 || c.Sequencer.InboxSize > maxInboxSize {
		return &domain.ConfigError{Field: "sequencer.inbox_size", Err: fmt.Errorf("%w: %d", domain.ErrInvalidValue, c.Sequencer.InboxSize)}
	}

	// Logging
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return &domain.ConfigError{Field: "logging.level", Err: fmt.Errorf("%w: %q", domain.ErrInvalidValue, c.Logging.Level)}
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.Sequencer.InboxSize == 0 {
		c.Sequencer.InboxSize = defaultInboxSize
	}
	if c.Sequencer.DumpFile == "" {
		c.Sequencer.DumpFile = defaultDumpFile
	}
	if c.Logging.Dir == "" {
		c.Logging.Dir = defaultLogDir
	}
	if c.Sequencer.VerifyOnStart == nil {
		on := true
		c.Sequencer.VerifyOnStart = &on
	}
}

// ShouldVerifyOnStart reports whether the journal is replayed and compared
// with stored state before the sequencer starts.
func (c *Config) ShouldVerifyOnStart() bool {
	return c.Sequencer.VerifyOnStart == nil || *c.Sequencer.VerifyOnStart
}

// overrideWithEnv는 환경 변수가 존재할 경우 설정 값을 덮어씁니다.
func overrideWithEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	return nil
}
