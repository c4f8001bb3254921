package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath 是未指定 --config 时读取的位置。
const DefaultPath = "config/config.yaml"

// Config 对应 config.yaml，覆盖模型、生成、路径、渲染、存储与服务端配置。
type Config struct {
	LLM        LLMConfig        `yaml:"api"`
	Generation GenerationConfig `yaml:"generation"`
	Paths      PathsConfig      `yaml:"paths"`
	Render     RenderConfig     `yaml:"render"`
	Storage    StorageConfig    `yaml:"storage"`
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
}

// LLMConfig describes the chat completion endpoint.
type LLMConfig struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	APIKey    string `yaml:"api_key,omitempty"`
	APIKeyEnv string `yaml:"api_key_env,omitempty"`
	BaseURL   string `yaml:"base_url,omitempty"`
}

// GenerationConfig holds the chapter writer sampling parameters and the run limits.
type GenerationConfig struct {
	Temperature   float64       `yaml:"temperature"`
	MaxTokens     int           `yaml:"max_tokens"`
	TopP          float64       `yaml:"top_p"`
	Workers       int           `yaml:"workers"`
	CallTimeout   time.Duration `yaml:"call_timeout"`
	FailureBudget int           `yaml:"failure_budget"`
}

type PathsConfig struct {
	InputDir  string `yaml:"input_dir"`
	OutputDir string `yaml:"output_dir"`
}

// RenderConfig 控制 Mermaid 图片渲染。
type RenderConfig struct {
	MermaidCmd     string        `yaml:"mermaid_cmd"`
	DiagramWidth   int           `yaml:"diagram_width"`
	DiagramHeight  int           `yaml:"diagram_height"`
	DiagramScale   int           `yaml:"diagram_scale"`
	Background     string        `yaml:"background"`
	DiagramTimeout time.Duration `yaml:"diagram_timeout"`
	HTML           bool          `yaml:"html"`
}

// StorageConfig selects where per-chapter text is persisted.
type StorageConfig struct {
	Backend       string        `yaml:"backend"`
	RedisAddr     string        `yaml:"redis_addr,omitempty"`
	RedisPassword string        `yaml:"redis_password,omitempty"`
	RedisDB       int           `yaml:"redis_db,omitempty"`
	RedisPrefix   string        `yaml:"redis_prefix,omitempty"`
	RedisTTL      time.Duration `yaml:"redis_ttl,omitempty"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

const (
	ProviderOpenAI   = "openai"
	ProviderDeepSeek = "deepseek"
	ProviderMock     = "mock"

	BackendFile  = "file"
	BackendRedis = "redis"
)

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		LLM: LLMConfig{
			Provider:  ProviderDeepSeek,
			Model:     "deepseek-chat",
			APIKeyEnv: "DEEPSEEK_API_KEY",
			BaseURL:   "https://api.deepseek.com/v1",
		},
		Generation: GenerationConfig{
			Temperature:   0.7,
			MaxTokens:     4000,
			TopP:          0.9,
			Workers:       DefaultWorkers(),
			CallTimeout:   120 * time.Second,
			FailureBudget: 10,
		},
		Paths: PathsConfig{
			InputDir:  "data/input",
			OutputDir: "data/output",
		},
		Render: RenderConfig{
			MermaidCmd:     "mmdc",
			DiagramWidth:   800,
			DiagramHeight:  600,
			DiagramScale:   3,
			Background:     "transparent",
			DiagramTimeout: 60 * time.Second,
			HTML:           true,
		},
		Storage: StorageConfig{
			Backend:     BackendFile,
			RedisPrefix: "bidgen:chapter:",
		},
		Server: ServerConfig{Addr: ":8080"},
		Log:    LogConfig{Level: "info"},
	}
}

// DefaultWorkers mirrors a thread pool sized to the machine: min(32, NumCPU+4).
func DefaultWorkers() int {
	n := runtime.NumCPU() + 4
	if n > 32 {
		n = 32
	}
	return n
}

// Load reads YAML config from disk. A missing file yields Default().
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg.resolveAPIKey()
			return cfg, nil
		}
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	cfg.resolveAPIKey()
	return cfg, nil
}

// applyDefaults fills zero values a partial file left behind.
func (c *Config) applyDefaults() {
	def := Default()
	if c.Generation.Workers <= 0 {
		c.Generation.Workers = def.Generation.Workers
	}
	if c.Generation.CallTimeout <= 0 {
		c.Generation.CallTimeout = def.Generation.CallTimeout
	}
	if c.Generation.FailureBudget <= 0 {
		c.Generation.FailureBudget = def.Generation.FailureBudget
	}
	if c.Generation.MaxTokens <= 0 {
		c.Generation.MaxTokens = def.Generation.MaxTokens
	}
	if c.Generation.TopP <= 0 {
		c.Generation.TopP = def.Generation.TopP
	}
	if c.Paths.OutputDir == "" {
		c.Paths.OutputDir = def.Paths.OutputDir
	}
	if c.Paths.InputDir == "" {
		c.Paths.InputDir = def.Paths.InputDir
	}
	if c.Render.MermaidCmd == "" {
		c.Render.MermaidCmd = def.Render.MermaidCmd
	}
	if c.Render.DiagramWidth <= 0 {
		c.Render.DiagramWidth = def.Render.DiagramWidth
	}
	if c.Render.DiagramHeight <= 0 {
		c.Render.DiagramHeight = def.Render.DiagramHeight
	}
	if c.Render.DiagramScale <= 0 {
		c.Render.DiagramScale = def.Render.DiagramScale
	}
	if c.Render.Background == "" {
		c.Render.Background = def.Render.Background
	}
	if c.Render.DiagramTimeout <= 0 {
		c.Render.DiagramTimeout = def.Render.DiagramTimeout
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = def.Storage.Backend
	}
	if c.Storage.RedisPrefix == "" {
		c.Storage.RedisPrefix = def.Storage.RedisPrefix
	}
	if c.Server.Addr == "" {
		c.Server.Addr = def.Server.Addr
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
}

// resolveAPIKey 优先使用配置文件中的 api_key，否则读取 api_key_env 指定的环境变量。
func (c *Config) resolveAPIKey() {
	if c.LLM.APIKey != "" || c.LLM.APIKeyEnv == "" {
		return
	}
	if value, ok := os.LookupEnv(c.LLM.APIKeyEnv); ok && value != "" {
		c.LLM.APIKey = value
	}
}

// Validate checks the settings needed to talk to a real model.
func (c Config) Validate() error {
	switch strings.ToLower(c.LLM.Provider) {
	case ProviderMock:
		return c.validateStorage()
	case ProviderOpenAI:
	case ProviderDeepSeek:
		// DeepSeek 提供 OpenAI 兼容接口，需填写 base_url。
		if c.LLM.BaseURL == "" {
			return errors.New("config: llm provider deepseek requires base_url (OpenAI-compatible endpoint)")
		}
	case "":
		return errors.New("config: llm config missing; please set api.provider/model/api_key_env")
	default:
		return fmt.Errorf("config: llm provider %s not supported", c.LLM.Provider)
	}
	if c.LLM.Model == "" {
		return errors.New("config: api.model is required")
	}
	if c.LLM.APIKey == "" {
		return fmt.Errorf("config: api key missing; set api.api_key or $%s", c.LLM.APIKeyEnv)
	}
	return c.validateStorage()
}

func (c Config) validateStorage() error {
	switch c.Storage.Backend {
	case BackendFile:
		return nil
	case BackendRedis:
		if c.Storage.RedisAddr == "" {
			return errors.New("config: storage.redis_addr is required for the redis backend")
		}
		return nil
	default:
		return fmt.Errorf("config: unknown storage backend %q", c.Storage.Backend)
	}
}
