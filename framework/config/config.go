package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config is the central typed configuration struct. Fields carry mapstructure
// tags so a config file can be decoded over the environment defaults.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Log      LogConfig      `mapstructure:"log"`
	Assembly AssemblyConfig `mapstructure:"assembly"`
}

type AppConfig struct {
	Name string `mapstructure:"name" validate:"required"`
	Env  string `mapstructure:"env" validate:"oneof=local production testing"`
	Port string `mapstructure:"port" validate:"required,numeric"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

// AssemblyConfig mirrors the assembly session options.
type AssemblyConfig struct {
	IterationLimit            int    `mapstructure:"iteration_limit" validate:"gte=1"`
	CreateMissingDependencies bool   `mapstructure:"create_missing_dependencies"`
	RetainContext             bool   `mapstructure:"retain_context"`
	RetainProcessors          bool   `mapstructure:"retain_processors"`
	StrictConstructors        bool   `mapstructure:"strict_constructors"`
	Manifest                  string `mapstructure:"manifest"`
}

// Load reads .env (if present) and populates a Config from environment
// variables. Call once at bootstrap: cfg, err := config.Load()
func Load(envFiles ...string) (*Config, error) {
	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	// Non-fatal: .env may not exist in production
	_ = godotenv.Load(files...)

	cfg := &Config{
		App: AppConfig{
			Name: Get("APP_NAME", "go-assemble"),
			Env:  Get("APP_ENV", "local"),
			Port: Get("APP_PORT", "8000"),
		},
		Log: LogConfig{
			Level:  Get("LOG_LEVEL", "info"),
			Format: Get("LOG_FORMAT", "console"),
		},
		Assembly: AssemblyConfig{
			IterationLimit:            GetInt("ASSEMBLY_ITERATION_LIMIT", 100),
			CreateMissingDependencies: GetBool("ASSEMBLY_CREATE_MISSING", true),
			RetainContext:             GetBool("ASSEMBLY_RETAIN_CONTEXT", false),
			RetainProcessors:          GetBool("ASSEMBLY_RETAIN_PROCESSORS", false),
			StrictConstructors:        GetBool("ASSEMBLY_STRICT_CONSTRUCTORS", false),
			Manifest:                  Get("ASSEMBLY_MANIFEST", ""),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks every field against its constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Get returns a raw env value, falling back to defaultVal.
func Get(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// GetInt returns an int env value.
func GetInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

// GetBool returns a bool env value.
func GetBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}
