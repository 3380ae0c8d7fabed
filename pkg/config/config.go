package config

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"time"

	"SepsisWatch/pkg/util"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Logger struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logger"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Backend struct {
		Type         string        `yaml:"type"` // kafka or clickhouse
		BatchSize    int           `yaml:"batch_size"`
		BatchTimeout time.Duration `yaml:"batch_timeout"`
	} `yaml:"backend"`
	Kafka struct {
		Brokers           []string `yaml:"brokers"`
		ObservationsTopic string   `yaml:"observations_topic"`
		ResultsTopic      string   `yaml:"results_topic"`
		RequiredAcks      int      `yaml:"required_acks"`
		Compression       string   `yaml:"compression"`
		Producer          struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled         bool          `yaml:"enabled"`
		Host            string        `yaml:"host"`
		Port            int           `yaml:"port"`
		Password        string        `yaml:"password"`
		DB              int           `yaml:"db"`
		CacheTTL        time.Duration `yaml:"cache_ttl"`
		QuarantineQueue string        `yaml:"quarantine_queue"`
	} `yaml:"redis"`
	Model struct {
		// Optional external model service; empty URL keeps scoring fully local.
		URL     string        `yaml:"url"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"model"`
	Scoring Scoring `yaml:"scoring"`
}

// Bound is a [Min,Max] plausibility range for a single vital or lab.
type Bound struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Band maps a half-open score interval [Low,High) to a risk level name.
// The last band is treated as closed at 1.0.
type Band struct {
	Name string  `yaml:"name"`
	Low  float64 `yaml:"low"`
	High float64 `yaml:"high"`
}

// Scoring is the declarative risk configuration: plausibility limits for the
// validator, clinical thresholds for the feature engine, and weights/bands for
// the scorer. It is data, not code; Validate runs before any event flows.
type Scoring struct {
	Limits          map[string]Bound   `yaml:"limits"`
	Thresholds      map[string]float64 `yaml:"thresholds"`
	Weights         map[string]float64 `yaml:"weights"`
	Bands           []Band             `yaml:"bands"`
	DampingFactor   float64            `yaml:"damping_factor"`
	AlertThreshold  float64            `yaml:"alert_threshold"` // 0 = alert on any non-LOW band
	MaxContributors int                `yaml:"max_contributors"`
}

// DefaultScoring returns the representative clinical configuration. Values are
// placeholders for site-specific tuning, not validated reference thresholds.
func DefaultScoring() Scoring {
	return Scoring{
		Limits: map[string]Bound{
			"heart_rate":          {Min: 0, Max: 300},
			"respiratory_rate":    {Min: 0, Max: 80},
			"systolic_bp":         {Min: 0, Max: 300},
			"diastolic_bp":        {Min: 0, Max: 200},
			"temperature_celsius": {Min: 25, Max: 45},
			"oxygen_saturation":   {Min: 0, Max: 100},
			"lactate_mmol_l":      {Min: 0, Max: 30},
			"wbc_count":           {Min: 0, Max: 100},
			"creatinine_mg_dl":    {Min: 0, Max: 25},
			"platelets":           {Min: 0, Max: 2000},
		},
		Thresholds: map[string]float64{
			"tachycardia_hr":   110,
			"tachypnea_rr":     22,
			"hypotension_sbp":  90,
			"low_map":          65,
			"fever_c":          38,
			"hypothermia_c":    36,
			"low_spo2":         92,
			"high_lactate":     2.0,
			"high_wbc":         12.0,
			"low_platelets":    150,
			"high_creatinine":  1.5,
			"shock_index_high": 1.0,
		},
		Weights: map[string]float64{
			"flag_elevated_lactate": 2.0,
			"flag_hypotension":      1.8,
			"flag_low_map":          1.6,
			"flag_shock_index_high": 1.2,
			"flag_tachycardia":      0.8,
			"flag_tachypnea":        0.8,
			"flag_fever":            0.7,
			"flag_hypothermia":      0.7,
			"flag_low_spo2":         0.7,
			"flag_high_wbc":         0.5,
			"flag_low_platelets":    0.5,
			"flag_high_creatinine":  0.4,
		},
		Bands: []Band{
			{Name: "LOW", Low: 0, High: 0.3},
			{Name: "MEDIUM", Low: 0.3, High: 0.6},
			{Name: "HIGH", Low: 0.6, High: 1.0},
		},
		DampingFactor:   0.1,
		MaxContributors: 5,
	}
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("SERVER_PORT"); v != "" {
		c.Server.Port = util.ParseIntDefault(v, c.Server.Port)
	}
	if v := os.Getenv("BACKEND"); v != "" {
		c.Backend.Type = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_OBSERVATIONS_TOPIC"); v != "" {
		c.Kafka.ObservationsTopic = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
	}
	if v := os.Getenv("MODEL_URL"); v != "" {
		c.Model.URL = v
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	def := DefaultScoring()
	if len(c.Scoring.Limits) == 0 {
		c.Scoring.Limits = def.Limits
	}
	if len(c.Scoring.Thresholds) == 0 {
		c.Scoring.Thresholds = def.Thresholds
	}
	if len(c.Scoring.Weights) == 0 {
		c.Scoring.Weights = def.Weights
	}
	if len(c.Scoring.Bands) == 0 {
		c.Scoring.Bands = def.Bands
	}
	if c.Scoring.DampingFactor == 0 {
		c.Scoring.DampingFactor = def.DampingFactor
	}
	if c.Scoring.MaxContributors == 0 {
		c.Scoring.MaxContributors = def.MaxContributors
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 10 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.Logger.Format == "" {
		c.Logger.Format = "console"
	}
	if c.Logger.Output == "" {
		c.Logger.Output = "stdout"
	}
}

// Validate checks if the configuration is valid. Configuration problems are
// fatal at startup; no event is processed against an invalid scoring table.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Backend.Type == "" {
		return fmt.Errorf("backend.type is required")
	}
	if c.Backend.Type != "kafka" && c.Backend.Type != "clickhouse" {
		return fmt.Errorf("backend.type must be 'kafka' or 'clickhouse', got '%s'", c.Backend.Type)
	}
	return c.Scoring.Validate()
}

// Validate enforces the invariants the scorer relies on: positive weights,
// ordered exhaustive bands over [0,1], sane damping and contributor cap.
func (s *Scoring) Validate() error {
	if len(s.Weights) == 0 {
		return fmt.Errorf("scoring.weights is required")
	}
	total := 0.0
	for name, w := range s.Weights {
		if w <= 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("scoring.weights[%s] must be a positive finite number, got %v", name, w)
		}
		total += w
	}
	if total <= 0 {
		return fmt.Errorf("scoring.weights must sum to a positive value")
	}

	for name, b := range s.Limits {
		if b.Min >= b.Max {
			return fmt.Errorf("scoring.limits[%s]: min %v must be below max %v", name, b.Min, b.Max)
		}
	}

	if err := validateBands(s.Bands); err != nil {
		return err
	}

	if s.DampingFactor < 0 || s.DampingFactor > 1 {
		return fmt.Errorf("scoring.damping_factor must be in [0,1], got %v", s.DampingFactor)
	}
	if s.MaxContributors < 0 {
		return fmt.Errorf("scoring.max_contributors must be >= 0")
	}

	// An explicit alert threshold must agree with the banding so the two
	// decision paths cannot silently diverge.
	if s.AlertThreshold != 0 {
		firstNonLow := math.NaN()
		for _, b := range s.Bands {
			if b.Name != "LOW" {
				firstNonLow = b.Low
				break
			}
		}
		if s.AlertThreshold != firstNonLow {
			return fmt.Errorf("scoring.alert_threshold %v must equal the first non-LOW band boundary %v", s.AlertThreshold, firstNonLow)
		}
	}

	return nil
}

// riskLevelNames is the vocabulary band names are validated against; a band
// outside this set would surface as an unknown risk_level downstream.
var riskLevelNames = map[string]bool{"LOW": true, "MEDIUM": true, "HIGH": true}

func validateBands(bands []Band) error {
	if len(bands) == 0 {
		return fmt.Errorf("scoring.bands is required")
	}
	sorted := make([]Band, len(bands))
	copy(sorted, bands)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Low < sorted[j].Low })

	if sorted[0].Low != 0 {
		return fmt.Errorf("scoring.bands must start at 0, got %v", sorted[0].Low)
	}
	for i, b := range sorted {
		if b.Name == "" {
			return fmt.Errorf("scoring.bands[%d] name is required", i)
		}
		if !riskLevelNames[b.Name] {
			return fmt.Errorf("scoring.bands[%d] has unknown risk level %q", i, b.Name)
		}
		if b.Low >= b.High {
			return fmt.Errorf("scoring.bands[%s]: low %v must be below high %v", b.Name, b.Low, b.High)
		}
		if i > 0 && b.Low != sorted[i-1].High {
			return fmt.Errorf("scoring.bands[%s] leaves a gap or overlap at %v", b.Name, b.Low)
		}
	}
	if sorted[len(sorted)-1].High != 1.0 {
		return fmt.Errorf("scoring.bands must end at 1.0, got %v", sorted[len(sorted)-1].High)
	}
	return nil
}
