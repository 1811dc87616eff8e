package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultFileName is looked up in the working directory and next to the
// executable when no config path is given.
const DefaultFileName = "authwatch.yml"

// Config is the root configuration.
type Config struct {
	AuthWatch AuthWatchConfig `yaml:"authwatch"`
}

// AuthWatchConfig is the project configuration.
type AuthWatchConfig struct {
	Input     InputConfig     `yaml:"input"`
	Parser    ParserConfig    `yaml:"parser"`
	Detection DetectionConfig `yaml:"detection"`
	Rules     RulesConfig     `yaml:"rules"`
	Alerts    AlertsConfig    `yaml:"alerts"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Output    OutputConfig    `yaml:"output"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// InputConfig controls where raw lines come from.
type InputConfig struct {
	Mode  string      `yaml:"mode"` // file|redis
	Paths []string    `yaml:"paths"`
	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig controls Redis list input.
type RedisConfig struct {
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	Key          string        `yaml:"key"`
	BlockTimeout time.Duration `yaml:"block_timeout"`
	BatchSize    int           `yaml:"batch_size"`
	MaxLines     int           `yaml:"max_lines"`
}

// ParserConfig controls timestamp resolution.
type ParserConfig struct {
	// Year is applied to every line; zero means the current year.
	Year     int    `yaml:"year"`
	Timezone string `yaml:"timezone"`
}

// DetectionConfig holds detector thresholds.
type DetectionConfig struct {
	BruteForceThreshold   int            `yaml:"brute_force_threshold"`
	TimeWindowMinutes     float64        `yaml:"time_window_minutes"`
	VulnerableAccounts    []string       `yaml:"vulnerable_accounts"`
	VulnerableMinAttempts int            `yaml:"vulnerable_min_attempts"`
	BreachMinFailures     int            `yaml:"breach_min_failures"`
	RegionPrefixes        []RegionPrefix `yaml:"region_prefixes"`
}

// RegionPrefix is one entry of the ordered region table.
type RegionPrefix struct {
	Prefix string `yaml:"prefix"`
	Label  string `yaml:"label"`
}

// RulesConfig controls Sigma rule tagging.
type RulesConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// AlertsConfig controls offender scoring.
type AlertsConfig struct {
	Enabled      bool `yaml:"enabled"`
	Threshold    int  `yaml:"threshold"`
	MaxOffenders int  `yaml:"max_offenders"`
}

// PipelineConfig controls sink retries.
type PipelineConfig struct {
	SinkAttempts int           `yaml:"sink_attempts"`
	SinkBackoff  time.Duration `yaml:"sink_backoff"`
}

// OutputConfig controls sinks. Each sink is enabled independently.
type OutputConfig struct {
	Dir           string                    `yaml:"dir"`
	CSV           CSVOutputConfig           `yaml:"csv"`
	Parquet       ParquetOutputConfig       `yaml:"parquet"`
	JSONL         JSONLOutputConfig         `yaml:"jsonl"`
	ClickHouse    ClickHouseOutputConfig    `yaml:"clickhouse"`
	Kafka         KafkaOutputConfig         `yaml:"kafka"`
	Elasticsearch ElasticsearchOutputConfig `yaml:"elasticsearch"`
	HTTP          HTTPOutputConfig          `yaml:"http"`
}

// CSVOutputConfig writes CSV tables under OutputConfig.Dir.
type CSVOutputConfig struct {
	Enabled bool `yaml:"enabled"`
}

// ParquetOutputConfig writes the event table as Parquet under OutputConfig.Dir.
type ParquetOutputConfig struct {
	Enabled bool `yaml:"enabled"`
}

// JSONLOutputConfig writes a JSON lines stream.
type JSONLOutputConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Path          string `yaml:"path"`
	IncludeEvents bool   `yaml:"include_events"`
}

// ClickHouseOutputConfig config for native ClickHouse batch inserts.
type ClickHouseOutputConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Addr           []string      `yaml:"addr"`
	Database       string        `yaml:"database"`
	Username       string        `yaml:"username"`
	Password       string        `yaml:"password"`
	EventsTable    string        `yaml:"events_table"`
	AnomaliesTable string        `yaml:"anomalies_table"`
	SummaryTable   string        `yaml:"summary_table"`
	DialTimeout    time.Duration `yaml:"dial_timeout"`
	CreateTables   bool          `yaml:"create_tables"`
}

// KafkaOutputConfig publishes anomalies to a topic.
type KafkaOutputConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Brokers      []string      `yaml:"brokers"`
	Topic        string        `yaml:"topic"`
	BatchSize    int           `yaml:"batch_size"`
	BatchTimeout time.Duration `yaml:"batch_timeout"`
}

// ElasticsearchOutputConfig indexes anomalies and summaries.
type ElasticsearchOutputConfig struct {
	Enabled      bool     `yaml:"enabled"`
	Addresses    []string `yaml:"addresses"`
	Username     string   `yaml:"username"`
	Password     string   `yaml:"password"`
	AnomalyIndex string   `yaml:"anomaly_index"`
	SummaryIndex string   `yaml:"summary_index"`
}

// HTTPOutputConfig config for remote report delivery.
type HTTPOutputConfig struct {
	Enabled bool              `yaml:"enabled"`
	URL     string            `yaml:"url"`
	Timeout time.Duration     `yaml:"timeout"`
	Headers map[string]string `yaml:"headers"`
}

// MetricsConfig controls metrics export.
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Textfile string `yaml:"textfile"`
	PushURL  string `yaml:"push_url"`
	Job      string `yaml:"job"`
}

// LoggingConfig controls logging output.
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`
	File    string `yaml:"file"`
	Console bool   `yaml:"console"`
	Format  string `yaml:"format"` // console|json
}

// Default returns the configuration used when no file is found. AUTHWATCH_*
// environment overrides still apply.
func Default() *Config {
	cfg := &Config{}
	cfg.AuthWatch.Output.CSV.Enabled = true
	cfg.AuthWatch.Output.Parquet.Enabled = true
	cfg.AuthWatch.Logging.Enabled = true
	cfg.AuthWatch.Logging.Console = true
	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg
}

// LoadConfig reads and parses a YAML config file, then applies AUTHWATCH_*
// environment overrides and defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Discover resolves the config file to use. An explicit path must exist.
// Otherwise DefaultFileName is looked up in the working directory, then next
// to the executable. An empty result means no file was found.
func Discover(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file %s: %w", explicit, err)
		}
		return explicit, nil
	}

	candidates := []string{DefaultFileName}
	if exe, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(exe), DefaultFileName))
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c, nil
		}
	}
	return "", nil
}

// Validate checks that every enabled component has what it needs.
func (c *Config) Validate() error {
	aw := c.AuthWatch
	var errs []error

	switch aw.Input.Mode {
	case "file", "redis":
	default:
		errs = append(errs, fmt.Errorf("input.mode must be file or redis, got %q", aw.Input.Mode))
	}
	if aw.Input.Mode == "redis" && aw.Input.Redis.Key == "" {
		errs = append(errs, errors.New("input.redis.key is required in redis mode"))
	}
	if aw.Parser.Timezone != "" {
		if _, err := time.LoadLocation(aw.Parser.Timezone); err != nil {
			errs = append(errs, fmt.Errorf("parser.timezone: %w", err))
		}
	}
	for i, p := range aw.Detection.RegionPrefixes {
		if p.Prefix == "" || p.Label == "" {
			errs = append(errs, fmt.Errorf("detection.region_prefixes[%d] needs prefix and label", i))
		}
	}
	if aw.Rules.Enabled && aw.Rules.Path == "" {
		errs = append(errs, errors.New("rules.path is required when rules are enabled"))
	}
	if aw.Output.ClickHouse.Enabled && len(aw.Output.ClickHouse.Addr) == 0 {
		errs = append(errs, errors.New("output.clickhouse.addr is required"))
	}
	if aw.Output.Kafka.Enabled && len(aw.Output.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("output.kafka.brokers is required"))
	}
	if aw.Output.Elasticsearch.Enabled && len(aw.Output.Elasticsearch.Addresses) == 0 {
		errs = append(errs, errors.New("output.elasticsearch.addresses is required"))
	}
	if aw.Output.HTTP.Enabled && aw.Output.HTTP.URL == "" {
		errs = append(errs, errors.New("output.http.url is required"))
	}
	return errors.Join(errs...)
}

// Location returns the parser time zone, UTC when unset.
func (p ParserConfig) Location() *time.Location {
	if p.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func applyDefaults(cfg *Config) {
	aw := &cfg.AuthWatch
	if aw.Input.Mode == "" {
		aw.Input.Mode = "file"
	}
	if aw.Input.Mode == "file" && len(aw.Input.Paths) == 0 {
		aw.Input.Paths = []string{filepath.Join("data", "raw", "ssh_auth.log")}
	}
	if aw.Input.Redis.Addr == "" {
		aw.Input.Redis.Addr = "127.0.0.1:6379"
	}
	if aw.Input.Redis.BlockTimeout == 0 {
		aw.Input.Redis.BlockTimeout = 5 * time.Second
	}
	if aw.Detection.BruteForceThreshold == 0 {
		aw.Detection.BruteForceThreshold = 10
	}
	if aw.Detection.TimeWindowMinutes == 0 {
		aw.Detection.TimeWindowMinutes = 60
	}
	if aw.Alerts.Threshold == 0 {
		aw.Alerts.Threshold = 5
	}
	if aw.Alerts.MaxOffenders == 0 {
		aw.Alerts.MaxOffenders = 50
	}
	if aw.Pipeline.SinkAttempts == 0 {
		aw.Pipeline.SinkAttempts = 3
	}
	if aw.Pipeline.SinkBackoff == 0 {
		aw.Pipeline.SinkBackoff = time.Second
	}
	if aw.Output.Dir == "" {
		aw.Output.Dir = filepath.Join("output", "processed")
	}
	if aw.Output.JSONL.Path == "" {
		aw.Output.JSONL.Path = filepath.Join(aw.Output.Dir, "anomalies.jsonl")
	}
	if aw.Output.HTTP.Timeout == 0 {
		aw.Output.HTTP.Timeout = 5 * time.Second
	}
	if aw.Metrics.Job == "" {
		aw.Metrics.Job = "authwatch"
	}
	if aw.Logging.Level == "" {
		aw.Logging.Level = "info"
	}
}

func applyEnv(cfg *Config) {
	aw := &cfg.AuthWatch
	setString(&aw.Input.Redis.Addr, "AUTHWATCH_REDIS_ADDR")
	setString(&aw.Input.Redis.Password, "AUTHWATCH_REDIS_PASSWORD")
	setList(&aw.Output.ClickHouse.Addr, "AUTHWATCH_CLICKHOUSE_ADDR")
	setString(&aw.Output.ClickHouse.Username, "AUTHWATCH_CLICKHOUSE_USERNAME")
	setString(&aw.Output.ClickHouse.Password, "AUTHWATCH_CLICKHOUSE_PASSWORD")
	setList(&aw.Output.Kafka.Brokers, "AUTHWATCH_KAFKA_BROKERS")
	setList(&aw.Output.Elasticsearch.Addresses, "AUTHWATCH_ES_ADDRESSES")
	setString(&aw.Output.Elasticsearch.Username, "AUTHWATCH_ES_USERNAME")
	setString(&aw.Output.Elasticsearch.Password, "AUTHWATCH_ES_PASSWORD")
	setString(&aw.Output.HTTP.URL, "AUTHWATCH_HTTP_URL")
	setString(&aw.Metrics.PushURL, "AUTHWATCH_PUSHGATEWAY_URL")
	setString(&aw.Logging.Level, "AUTHWATCH_LOG_LEVEL")
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setList(dst *[]string, key string) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*dst = out
}
