package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel     string `yaml:"log_level"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`
}

type HTTPConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type Config struct {
	RuntimeName string            `yaml:"runtime_name"`
	Environment string            `yaml:"environment"`
	HTTP        HTTPConfig        `yaml:"http"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	Bus         BusConfig         `yaml:"bus"`
	Node        NodeConfig        `yaml:"node"`
	ResultStore ResultStoreConfig `yaml:"result_store"`
	Recognition RecognitionConfig `yaml:"recognition"`
}

type BusConfig struct {
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	StoreDir       string   `yaml:"store_dir"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

type NodeConfig struct {
	ID                string `yaml:"id"`
	Role              string `yaml:"role"`
	HeartbeatInterval int    `yaml:"heartbeat_interval_ms"`
	HeartbeatTimeout  int    `yaml:"heartbeat_timeout_ms"`
}

type ResultStoreConfig struct {
	Path          string `yaml:"path"`
	RetentionMode string `yaml:"retention_mode"`
	RetentionDays int    `yaml:"retention_days"`
	MaxSessions   int    `yaml:"max_sessions"`
	VacuumOnStart bool   `yaml:"vacuum_on_start"`
}

type RecognitionConfig struct {
	Enabled       bool     `yaml:"enabled"`
	Mode          string   `yaml:"mode"` // mock, tesseract, exec
	Command       string   `yaml:"command"`
	Languages     []string `yaml:"languages"`
	TimeoutMS     int      `yaml:"timeout_ms"`
	MinWidth      int      `yaml:"min_width"`
	MinConfidence float64  `yaml:"min_confidence"`
}

func Default() Config {
	return Config{
		RuntimeName: "percept-runtime",
		Environment: "development",
		HTTP: HTTPConfig{
			Bind: "0.0.0.0",
			Port: 8080,
		},
		Telemetry: TelemetryConfig{
			LogLevel:     "info",
			OTLPEndpoint: "",
			OTLPInsecure: true,
		},
		Bus: BusConfig{
			Embedded:       true,
			Port:           4222,
			StoreDir:       "./data/nats",
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
		Node: NodeConfig{
			ID:                "percept-node-1",
			Role:              "runtime",
			HeartbeatInterval: 2000,
			HeartbeatTimeout:  6000,
		},
		ResultStore: ResultStoreConfig{
			Path:          "./data/percept-results.db",
			RetentionMode: "session",
			RetentionDays: 30,
			MaxSessions:   10000,
		},
		Recognition: RecognitionConfig{
			Enabled:       true,
			Mode:          "mock",
			Languages:     []string{"eng"},
			TimeoutMS:     30000,
			MinWidth:      400,
			MinConfidence: 0,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.RuntimeName, "PERCEPT_RUNTIME_NAME")
	overrideString(&cfg.Environment, "PERCEPT_RUNTIME_ENVIRONMENT")
	overrideString(&cfg.HTTP.Bind, "PERCEPT_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "PERCEPT_HTTP_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "PERCEPT_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "PERCEPT_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "PERCEPT_TELEMETRY_OTLP_INSECURE")
	overrideBool(&cfg.Bus.Embedded, "PERCEPT_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "PERCEPT_BUS_PORT")
	overrideString(&cfg.Bus.StoreDir, "PERCEPT_BUS_STORE_DIR")
	overrideStringSlice(&cfg.Bus.Servers, "PERCEPT_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "PERCEPT_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "PERCEPT_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "PERCEPT_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "PERCEPT_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "PERCEPT_BUS_CONNECT_TIMEOUT_MS")
	overrideString(&cfg.Node.ID, "PERCEPT_NODE_ID")
	overrideString(&cfg.Node.Role, "PERCEPT_NODE_ROLE")
	overrideInt(&cfg.Node.HeartbeatInterval, "PERCEPT_NODE_HEARTBEAT_INTERVAL_MS")
	overrideInt(&cfg.Node.HeartbeatTimeout, "PERCEPT_NODE_HEARTBEAT_TIMEOUT_MS")
	overrideString(&cfg.ResultStore.Path, "PERCEPT_RESULT_STORE_PATH")
	overrideString(&cfg.ResultStore.RetentionMode, "PERCEPT_RESULT_STORE_RETENTION_MODE")
	overrideInt(&cfg.ResultStore.RetentionDays, "PERCEPT_RESULT_STORE_RETENTION_DAYS")
	overrideInt(&cfg.ResultStore.MaxSessions, "PERCEPT_RESULT_STORE_MAX_SESSIONS")
	overrideBool(&cfg.ResultStore.VacuumOnStart, "PERCEPT_RESULT_STORE_VACUUM_ON_START")
	overrideBool(&cfg.Recognition.Enabled, "PERCEPT_RECOGNITION_ENABLED")
	overrideString(&cfg.Recognition.Mode, "PERCEPT_RECOGNITION_MODE")
	overrideString(&cfg.Recognition.Command, "PERCEPT_RECOGNITION_COMMAND")
	overrideStringSlice(&cfg.Recognition.Languages, "PERCEPT_RECOGNITION_LANGUAGES")
	overrideInt(&cfg.Recognition.TimeoutMS, "PERCEPT_RECOGNITION_TIMEOUT_MS")
	overrideInt(&cfg.Recognition.MinWidth, "PERCEPT_RECOGNITION_MIN_WIDTH")
	overrideFloat(&cfg.Recognition.MinConfidence, "PERCEPT_RECOGNITION_MIN_CONFIDENCE")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

func validate(cfg Config) error {
	if cfg.RuntimeName == "" {
		return errors.New("runtime_name must not be empty")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	if cfg.Bus.Embedded {
		if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
			return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
		}
	} else {
		if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
	}
	if cfg.Node.ID == "" {
		return errors.New("node.id must not be empty")
	}
	if cfg.Node.HeartbeatInterval <= 0 {
		return errors.New("node.heartbeat_interval_ms must be positive")
	}
	if cfg.Node.HeartbeatTimeout <= cfg.Node.HeartbeatInterval {
		return errors.New("node.heartbeat_timeout_ms must be greater than heartbeat interval")
	}
	if cfg.ResultStore.Path == "" {
		return errors.New("result_store.path must not be empty")
	}
	switch cfg.ResultStore.RetentionMode {
	case "ephemeral", "session", "persistent":
		// ok
	default:
		return errors.New("result_store.retention_mode must be one of ephemeral|session|persistent")
	}
	if cfg.ResultStore.RetentionDays < 0 {
		return errors.New("result_store.retention_days must be >= 0")
	}
	if cfg.Recognition.Enabled {
		switch cfg.Recognition.Mode {
		case "mock", "tesseract", "exec":
		default:
			return errors.New("recognition.mode must be one of mock|tesseract|exec")
		}
		if cfg.Recognition.Mode == "exec" && cfg.Recognition.Command == "" {
			return errors.New("recognition.command must be set when mode=exec")
		}
		if cfg.Recognition.TimeoutMS <= 0 {
			return errors.New("recognition.timeout_ms must be positive")
		}
		if cfg.Recognition.MinWidth < 0 {
			return errors.New("recognition.min_width must be >= 0")
		}
		if cfg.Recognition.MinConfidence < 0 || cfg.Recognition.MinConfidence > 100 {
			return errors.New("recognition.min_confidence must be between 0 and 100")
		}
	}
	return nil
}
