package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultPath = "config/config.yml"

var envConfigPaths = map[string]string{
	EnvironmentProduction: "config/config.production.yml",
	EnvironmentStaging:    "config/config.staging.yml",
}

type Config struct {
	Deripulse DeripulseConfig `yaml:"deripulse"`
	Logging   LoggingConfig   `yaml:"logging"`
	Deribit   DeribitConfig   `yaml:"deribit"`
	Test      TestConfig      `yaml:"test"`
	Channels  ChannelsConfig  `yaml:"channels"`
	Report    ReportConfig    `yaml:"report"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

type DeripulseConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

type DeribitConfig struct {
	WSURL string     `yaml:"ws_url"`
	Auth  AuthConfig `yaml:"auth"`
}

type AuthConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// Enabled reports whether credentials were supplied. Without them the
// sessions run unauthenticated against public channels.
func (a AuthConfig) Enabled() bool {
	return a.ClientID != "" && a.ClientSecret != ""
}

type TestConfig struct {
	Connections        int           `yaml:"connections"`
	Duration           time.Duration `yaml:"duration"`
	DisconnectInterval time.Duration `yaml:"disconnect_interval"`
	RampPerSecond      int           `yaml:"ramp_per_second"`
	Channels           []string      `yaml:"channels"`
	LatencyChannel     string        `yaml:"latency_channel"`
}

// UnmarshalYAML accepts durations in the "60s" form; the yaml package only
// decodes time.Duration from raw nanosecond integers.
func (t *TestConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Connections        int      `yaml:"connections"`
		Duration           string   `yaml:"duration"`
		DisconnectInterval string   `yaml:"disconnect_interval"`
		RampPerSecond      int      `yaml:"ramp_per_second"`
		Channels           []string `yaml:"channels"`
		LatencyChannel     string   `yaml:"latency_channel"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	duration, err := parseDuration(raw.Duration, "test.duration")
	if err != nil {
		return err
	}
	interval, err := parseDuration(raw.DisconnectInterval, "test.disconnect_interval")
	if err != nil {
		return err
	}

	t.Connections = raw.Connections
	t.Duration = duration
	t.DisconnectInterval = interval
	t.RampPerSecond = raw.RampPerSecond
	t.Channels = raw.Channels
	t.LatencyChannel = raw.LatencyChannel
	return nil
}

func parseDuration(s, field string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s '%s': %w", field, s, err)
	}
	return d, nil
}

type ChannelsConfig struct {
	TickBuffer int `yaml:"tick_buffer"`
}

type ReportConfig struct {
	OutputDir string   `yaml:"output_dir"`
	SaveJSON  bool     `yaml:"save_json"`
	S3        S3Config `yaml:"s3"`
}

type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Prefix          string `yaml:"prefix"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type MetricsConfig struct {
	CloudWatch CloudWatchConfig `yaml:"cloudwatch"`
}

type CloudWatchConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Region    string `yaml:"region"`
	Namespace string `yaml:"namespace"`
}

// DefaultChannels is the channel set used when the config and CLI provide
// none, matching Deribit's high-frequency public streams.
var DefaultChannels = []string{
	"ticker.BTC-PERPETUAL.100ms",
	"book.BTC-PERPETUAL.100ms.10",
	"trades.BTC-PERPETUAL.100ms",
}

const DefaultLatencyChannel = "ticker.BTC-PERPETUAL.100ms"
const DefaultWSURL = "wss://test.deribit.com/ws/api/v2"

func LoadConfig(path string) (*Config, error) {
	path = resolveEnvSpecificPath(path, DefaultPath, envConfigPaths)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Config{
		Deribit:  DeribitConfig{WSURL: DefaultWSURL},
		Channels: ChannelsConfig{TickBuffer: 4096},
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(&config)

	if len(config.Test.Channels) == 0 {
		config.Test.Channels = DefaultChannels
	}
	if config.Test.LatencyChannel == "" {
		config.Test.LatencyChannel = DefaultLatencyChannel
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// applyEnvOverrides lets the environment win over the file for the endpoint
// and credentials, so secrets never have to live in the config.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("DERIBIT_WS_URL"); v != "" {
		config.Deribit.WSURL = strings.TrimSpace(v)
	}
	if v := os.Getenv("DERIBIT_CLIENT_ID"); v != "" {
		config.Deribit.Auth.ClientID = strings.TrimSpace(v)
	}
	if v := os.Getenv("DERIBIT_CLIENT_SECRET"); v != "" {
		config.Deribit.Auth.ClientSecret = strings.TrimSpace(v)
	}
	if config.Report.S3.Enabled {
		if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
			config.Report.S3.AccessKeyID = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
			config.Report.S3.SecretAccessKey = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_REGION"); v != "" {
			config.Report.S3.Region = strings.TrimSpace(v)
		}
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Deripulse.Name == "" {
		return fmt.Errorf("deripulse.name is required")
	}

	if cfg.Deripulse.Version == "" {
		return fmt.Errorf("deripulse.version is required")
	}

	if cfg.Deribit.WSURL == "" {
		return fmt.Errorf("deribit.ws_url is required")
	}
	if !strings.HasPrefix(cfg.Deribit.WSURL, "ws://") && !strings.HasPrefix(cfg.Deribit.WSURL, "wss://") {
		return fmt.Errorf("deribit.ws_url '%s' must use a ws:// or wss:// scheme", cfg.Deribit.WSURL)
	}

	if cfg.Test.Connections <= 0 {
		return fmt.Errorf("test.connections must be greater than 0")
	}
	if cfg.Test.Duration <= 0 {
		return fmt.Errorf("test.duration must be greater than 0")
	}
	if cfg.Test.DisconnectInterval <= 0 {
		return fmt.Errorf("test.disconnect_interval must be greater than 0")
	}

	if cfg.Channels.TickBuffer <= 0 {
		return fmt.Errorf("channels.tick_buffer must be greater than 0")
	}

	if cfg.Report.S3.Enabled {
		cfg.Report.S3.Bucket = strings.TrimSpace(cfg.Report.S3.Bucket)
		if cfg.Report.S3.Bucket == "" {
			return fmt.Errorf("report.s3.bucket is required when S3 is enabled")
		}
		if cfg.Report.S3.Region == "" {
			return fmt.Errorf("report.s3.region is required when S3 is enabled")
		}
		if !isValidS3Bucket(cfg.Report.S3.Bucket) {
			return fmt.Errorf("report.s3.bucket '%s' is invalid", cfg.Report.S3.Bucket)
		}
	}

	return nil
}

var s3BucketRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

func isValidS3Bucket(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	if strings.Contains(name, "..") || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return false
	}
	return s3BucketRegexp.MatchString(name)
}
