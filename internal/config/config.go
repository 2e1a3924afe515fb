package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
)

const (
	SegmenterRule  = "rule"
	SegmenterSpacy = "spacy"

	SyllableModeText   = "text"
	SyllableModeTokens = "tokens"

	StoryPlaceholder = "placeholder"
	StoryLLM         = "llm"
)

type AppConfig struct {
	Env                Environment
	LogLevel           string
	HttpTimeoutSeconds int
}

type PythonConfig struct {
	ConfigDir              string
	ProcessShutdownTimeout int
	ProcessKillTimeout     int
	SkipInstall            bool
}

type SegmenterConfig struct {
	Backend     string
	Model       string
	WorkerCount int
	TimeoutMs   int
	Python      PythonConfig
}

type ReadabilityConfig struct {
	ThresholdLow  float64
	ThresholdHigh float64
	SyllableMode  string
}

type StoryConfig struct {
	Backend string
}

type LlmConfig struct {
	URL              string
	Token            string
	Model            string
	Temperature      float64
	MaxTokens        int
	FrequencyPenalty float64
	PresencePenalty  float64
	RetryAttempts    int
}

type Config struct {
	App         AppConfig
	Segmenter   SegmenterConfig
	Readability ReadabilityConfig
	Story       StoryConfig
	Llm         LlmConfig
}

// fileConfig mirrors the optional YAML file. Values found there replace the
// built-in defaults; environment variables still win over both.
type fileConfig struct {
	App struct {
		Env      string `yaml:"env"`
		LogLevel string `yaml:"log_level"`
	} `yaml:"app"`
	Segmenter struct {
		Backend     string `yaml:"backend"`
		Model       string `yaml:"model"`
		WorkerCount int    `yaml:"worker_count"`
		TimeoutMs   int    `yaml:"timeout_ms"`
		PythonDir   string `yaml:"python_config_dir"`
	} `yaml:"segmenter"`
	Readability struct {
		ThresholdLow  *float64 `yaml:"threshold_low"`
		ThresholdHigh *float64 `yaml:"threshold_high"`
		SyllableMode  string   `yaml:"syllable_mode"`
	} `yaml:"readability"`
	Story struct {
		Backend string `yaml:"backend"`
	} `yaml:"story"`
	Llm struct {
		URL         string   `yaml:"url"`
		Model       string   `yaml:"model"`
		Temperature *float64 `yaml:"temperature"`
		MaxTokens   int      `yaml:"max_tokens"`
	} `yaml:"llm"`
}

func Load() (*Config, error) {
	return LoadFrom(os.Getenv("STORYTELLER_CONFIG_FILE"))
}

// LoadFrom builds the configuration with the YAML file at path as the base
// layer. An empty path skips the file.
func LoadFrom(path string) (*Config, error) {
	_ = godotenv.Load()

	file, err := loadFile(path)
	if err != nil {
		return nil, err
	}

	appEnv := getEnv("APP_ENV", orDefault(file.App.Env, "development"))
	env := parseEnvironment(appEnv)

	logLevel := getLogLevel(env, file.App.LogLevel)

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	defaultPythonDir := filepath.Join(homeDir, ".config", "storyteller")

	return &Config{
		App: AppConfig{
			Env:                env,
			LogLevel:           logLevel,
			HttpTimeoutSeconds: getEnvInt("APP_HTTP_TIMEOUT_SECONDS", 60),
		},
		Segmenter: SegmenterConfig{
			Backend:     strings.ToLower(getEnv("SEGMENTER_BACKEND", orDefault(file.Segmenter.Backend, SegmenterRule))),
			Model:       getEnv("SEGMENTER_MODEL_NAME", orDefault(file.Segmenter.Model, "en_core_web_sm")),
			WorkerCount: getEnvInt("SEGMENTER_WORKER_COUNT", orDefaultInt(file.Segmenter.WorkerCount, calculateDefaultWorkerCount())),
			TimeoutMs:   getEnvInt("SEGMENTER_TIMEOUT_MS", orDefaultInt(file.Segmenter.TimeoutMs, 10000)),
			Python: PythonConfig{
				ConfigDir:              getEnv("SEGMENTER_PYTHON_CONFIG_DIR", orDefault(file.Segmenter.PythonDir, defaultPythonDir)),
				ProcessShutdownTimeout: getEnvInt("SEGMENTER_PYTHON_PROCESS_SHUTDOWN_TIMEOUT", 5),
				ProcessKillTimeout:     getEnvInt("SEGMENTER_PYTHON_PROCESS_KILL_TIMEOUT", 2),
				SkipInstall:            getEnvBool("SEGMENTER_PYTHON_SKIP_INSTALL", false),
			},
		},
		Readability: ReadabilityConfig{
			ThresholdLow:  getEnvFloat("READABILITY_THRESHOLD_LOW", orDefaultFloat(file.Readability.ThresholdLow, 2.0)),
			ThresholdHigh: getEnvFloat("READABILITY_THRESHOLD_HIGH", orDefaultFloat(file.Readability.ThresholdHigh, 3.0)),
			SyllableMode:  strings.ToLower(getEnv("READABILITY_SYLLABLE_MODE", orDefault(file.Readability.SyllableMode, SyllableModeText))),
		},
		Story: StoryConfig{
			Backend: strings.ToLower(getEnv("STORY_BACKEND", orDefault(file.Story.Backend, StoryPlaceholder))),
		},
		Llm: LlmConfig{
			URL:              getEnv("LLM_URL", file.Llm.URL),
			Token:            getEnv("LLM_TOKEN", ""),
			Model:            getEnv("LLM_MODEL", file.Llm.Model),
			Temperature:      getEnvFloat("LLM_TEMPERATURE", orDefaultFloat(file.Llm.Temperature, 0.8)),
			MaxTokens:        getEnvInt("LLM_MAX_TOKENS", orDefaultInt(file.Llm.MaxTokens, 1200)),
			FrequencyPenalty: getEnvFloat("LLM_FREQUENCY_PENALTY", 0.0),
			PresencePenalty:  getEnvFloat("LLM_PRESENCE_PENALTY", 0.0),
			RetryAttempts:    getEnvInt("LLM_RETRY_ATTEMPTS", 3),
		},
	}, nil
}

// Default returns the configuration used when nothing is set in the
// environment. Tests and library callers that skip Load start from here.
func Default() *Config {
	return &Config{
		App: AppConfig{Env: Development, LogLevel: "info", HttpTimeoutSeconds: 60},
		Segmenter: SegmenterConfig{
			Backend:     SegmenterRule,
			Model:       "en_core_web_sm",
			WorkerCount: 1,
			TimeoutMs:   10000,
			Python: PythonConfig{
				ProcessShutdownTimeout: 5,
				ProcessKillTimeout:     2,
			},
		},
		Readability: ReadabilityConfig{
			ThresholdLow:  2.0,
			ThresholdHigh: 3.0,
			SyllableMode:  SyllableModeText,
		},
		Story: StoryConfig{Backend: StoryPlaceholder},
		Llm:   LlmConfig{Temperature: 0.8, MaxTokens: 1200, RetryAttempts: 3},
	}
}

func (c *Config) Validate() error {
	switch c.Segmenter.Backend {
	case SegmenterRule, SegmenterSpacy:
	default:
		return fmt.Errorf("SEGMENTER_BACKEND must be %q or %q, got %q", SegmenterRule, SegmenterSpacy, c.Segmenter.Backend)
	}
	if c.Segmenter.Backend == SegmenterSpacy && c.Segmenter.WorkerCount < 1 {
		return fmt.Errorf("SEGMENTER_WORKER_COUNT must be at least 1")
	}

	switch c.Readability.SyllableMode {
	case SyllableModeText, SyllableModeTokens:
	default:
		return fmt.Errorf("READABILITY_SYLLABLE_MODE must be %q or %q, got %q", SyllableModeText, SyllableModeTokens, c.Readability.SyllableMode)
	}
	if c.Readability.ThresholdLow > c.Readability.ThresholdHigh {
		return fmt.Errorf("READABILITY_THRESHOLD_LOW (%.2f) is greater than READABILITY_THRESHOLD_HIGH (%.2f)",
			c.Readability.ThresholdLow, c.Readability.ThresholdHigh)
	}

	switch c.Story.Backend {
	case StoryPlaceholder:
	case StoryLLM:
		if c.Llm.URL == "" || c.Llm.Token == "" {
			return fmt.Errorf("LLM_URL and LLM_TOKEN are required when STORY_BACKEND=llm")
		}
	default:
		return fmt.Errorf("STORY_BACKEND must be %q or %q, got %q", StoryPlaceholder, StoryLLM, c.Story.Backend)
	}
	return nil
}

func loadFile(path string) (*fileConfig, error) {
	var fc fileConfig
	if path == "" {
		return &fc, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
	}
	return &fc, nil
}

func parseEnvironment(envStr string) Environment {
	env := Environment(strings.ToLower(envStr))

	switch env {
	case Development, Production:
		return env
	default:
		return Development
	}
}

// calculateDefaultWorkerCount sizes the spaCy pool. en_core_web_sm needs
// roughly 150MB per process once loaded.
func calculateDefaultWorkerCount() int {
	cpuCores := runtime.NumCPU()
	modelMemoryMB := 150

	var availableMemoryMB int64 = 4096

	if memInfo, err := os.ReadFile("/proc/meminfo"); err == nil {
		lines := strings.Split(string(memInfo), "\n")
		for _, line := range lines {
			if strings.HasPrefix(line, "MemTotal:") {
				fields := strings.Fields(line)
				if len(fields) >= 2 {
					if kb, err := strconv.ParseInt(fields[1], 10, 64); err == nil {
						availableMemoryMB = kb / 1024
						break
					}
				}
			}
		}
	}

	workersByCPU := min(cpuCores, 4)

	// leave 2GB for the system and the Go process
	usableMemoryMB := int(availableMemoryMB) - 2048
	if usableMemoryMB < 0 {
		usableMemoryMB = 2048
	}

	workersByMemory := max(min(usableMemoryMB/modelMemoryMB, 4), 1)
	return min(max(min(workersByMemory, workersByCPU), 1), 4)
}

func getLogLevel(env Environment, fileLevel string) string {
	if fileLevel != "" {
		return getEnv("APP_LOG_LEVEL", fileLevel)
	}
	if env == Production {
		return getEnv("APP_LOG_LEVEL", "info")
	}

	return getEnv("APP_LOG_LEVEL", "debug")
}

func orDefault(value, defaultValue string) string {
	if value != "" {
		return value
	}
	return defaultValue
}

func orDefaultInt(value, defaultValue int) int {
	if value != 0 {
		return value
	}
	return defaultValue
}

func orDefaultFloat(value *float64, defaultValue float64) float64 {
	if value != nil {
		return *value
	}
	return defaultValue
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value == "true" {
		return true
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
