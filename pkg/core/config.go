// Package core provides the main LlamaKeeper client and memory management functionality.
package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config contains the complete configuration for a LlamaKeeper client.
//
// It includes settings for:
//   - Storage backend (for memory persistence)
//   - LLM provider (for narrative generation)
//   - Memory management (retrieval and forgetting defaults)
//   - HTTP server (used by the serve command)
//
// Example:
//
//	config := &core.Config{
//	    Storage: core.StorageConfig{
//	        Provider: "sqlite",
//	        Config: map[string]interface{}{
//	            "db_path": "./llamakeeper.db",
//	        },
//	    },
//	    LLM: core.LLMConfig{
//	        Provider: "ollama",
//	        Model:    "llama2",
//	    },
//	}
type Config struct {
	// Storage contains storage backend configuration.
	Storage StorageConfig `json:"storage"`

	// LLM contains LLM provider configuration.
	LLM LLMConfig `json:"llm"`

	// Memory contains memory management configuration.
	Memory MemoryConfig `json:"memory"`

	// Server contains HTTP server configuration (optional).
	Server ServerConfig `json:"server,omitempty"`
}

// StorageConfig contains configuration for the storage backend.
//
// Supported providers: sqlite, postgres, mysql
//
// Example:
//
//	storageConfig := core.StorageConfig{
//	    Provider: "sqlite",
//	    Config: map[string]interface{}{
//	        "db_path":    "./llamakeeper.db",
//	        "table_name": "memories",
//	    },
//	}
type StorageConfig struct {
	// Provider is the storage backend name (sqlite, postgres, mysql).
	Provider string `json:"provider"`

	// Config contains provider-specific configuration.
	// For SQLite: db_path, table_name
	// For PostgreSQL: host, port, user, password, db_name, table_name, ssl_mode
	// For MySQL: host, port, user, password, db_name, table_name
	Config map[string]interface{} `json:"config"`
}

// LLMConfig contains configuration for the LLM provider.
//
// Supported providers: ollama, openai
//
// Example:
//
//	llmConfig := core.LLMConfig{
//	    Provider: "ollama",
//	    Model:    "llama2",
//	    BaseURL:  "http://localhost:11434",
//	}
type LLMConfig struct {
	// Provider is the LLM provider name (ollama, openai).
	Provider string `json:"provider"`

	// APIKey is the API key for the provider (optional for local ollama).
	APIKey string `json:"api_key,omitempty"`

	// Model is the model name to use (e.g., "llama2", "gpt-4").
	Model string `json:"model"`

	// BaseURL is the base URL for the API (optional, uses provider default if empty).
	BaseURL string `json:"base_url,omitempty"`
}

// MemoryConfig contains configuration for memory management defaults.
type MemoryConfig struct {
	// TopK is the default number of memories returned by retrieval.
	// Default: 5
	TopK int `json:"top_k,omitempty"`

	// MaxMemories is the default per-character memory cap for forgetting.
	// Default: 100
	MaxMemories int `json:"max_memories,omitempty"`

	// ForgetThreshold is the default importance below which memories are
	// forgotten. Default: 0.2
	ForgetThreshold float64 `json:"forget_threshold,omitempty"`

	// DecayWindowDays is the age in days at which a memory's relevance
	// decays to zero. Default: 30
	DecayWindowDays int `json:"decay_window_days,omitempty"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// Addr is the listen address (e.g., ":8000").
	Addr string `json:"addr,omitempty"`
}

// LoadConfigFromEnv loads configuration from environment variables.
//
// The function:
//  1. Searches for .env or .env.example files (up to 5 directory levels up)
//  2. Loads environment variables from the found file
//  3. Parses environment variables into a Config struct
//
// Supported environment variables:
//   - DATABASE_PROVIDER (sqlite, postgres, mysql)
//   - SQLITE_PATH, SQLITE_TABLE
//   - POSTGRES_HOST, POSTGRES_PORT, POSTGRES_USER, POSTGRES_PASSWORD, etc.
//   - MYSQL_HOST, MYSQL_PORT, MYSQL_USER, MYSQL_PASSWORD, etc.
//   - LLM_PROVIDER, LLM_API_KEY, LLM_MODEL, LLM_BASE_URL, OLLAMA_BASE_URL
//   - MEMORY_TOP_K, MEMORY_MAX_MEMORIES, MEMORY_FORGET_THRESHOLD, MEMORY_DECAY_DAYS
//   - SERVER_ADDR
//
// Returns a Config instance, or an error if loading fails.
//
// Example:
//
//	config, err := core.LoadConfigFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
func LoadConfigFromEnv() (*Config, error) {
	envPath, found := FindEnvFile()
	if found {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	provider := getEnvOrDefault("DATABASE_PROVIDER", "sqlite")

	storageConfig := make(map[string]interface{})

	switch provider {
	case "sqlite":
		storageConfig = map[string]interface{}{
			"db_path":    getEnvOrDefault("SQLITE_PATH", "./llamakeeper.db"),
			"table_name": getEnvOrDefault("SQLITE_TABLE", "memories"),
		}
	case "postgres":
		port, _ := strconv.Atoi(getEnvOrDefault("POSTGRES_PORT", "5432"))

		storageConfig = map[string]interface{}{
			"host":       getEnvOrDefault("POSTGRES_HOST", "localhost"),
			"port":       port,
			"user":       getEnvOrDefault("POSTGRES_USER", "postgres"),
			"password":   os.Getenv("POSTGRES_PASSWORD"),
			"db_name":    getEnvOrDefault("POSTGRES_DATABASE", "llamakeeper"),
			"table_name": getEnvOrDefault("POSTGRES_TABLE", "memories"),
			"ssl_mode":   getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
		}
	case "mysql":
		port, _ := strconv.Atoi(getEnvOrDefault("MYSQL_PORT", "3306"))

		storageConfig = map[string]interface{}{
			"host":       getEnvOrDefault("MYSQL_HOST", "localhost"),
			"port":       port,
			"user":       getEnvOrDefault("MYSQL_USER", "root"),
			"password":   os.Getenv("MYSQL_PASSWORD"),
			"db_name":    getEnvOrDefault("MYSQL_DATABASE", "llamakeeper"),
			"table_name": getEnvOrDefault("MYSQL_TABLE", "memories"),
		}
	}

	llmProvider := getEnvOrDefault("LLM_PROVIDER", "ollama")
	var llmBaseURL string
	var defaultModel string

	switch llmProvider {
	case "openai":
		llmBaseURL = os.Getenv("LLM_BASE_URL")
		defaultModel = "gpt-4"
	default:
		llmBaseURL = os.Getenv("OLLAMA_BASE_URL")
		if llmBaseURL == "" {
			llmBaseURL = "http://localhost:11434"
		}
		defaultModel = "llama2"
	}

	topK, _ := strconv.Atoi(getEnvOrDefault("MEMORY_TOP_K", "5"))
	maxMemories, _ := strconv.Atoi(getEnvOrDefault("MEMORY_MAX_MEMORIES", "100"))
	forgetThreshold, _ := strconv.ParseFloat(getEnvOrDefault("MEMORY_FORGET_THRESHOLD", "0.2"), 64)
	decayDays, _ := strconv.Atoi(getEnvOrDefault("MEMORY_DECAY_DAYS", "30"))

	config := &Config{
		Storage: StorageConfig{
			Provider: provider,
			Config:   storageConfig,
		},
		LLM: LLMConfig{
			Provider: llmProvider,
			APIKey:   os.Getenv("LLM_API_KEY"),
			Model:    getEnvOrDefault("LLM_MODEL", defaultModel),
			BaseURL:  llmBaseURL,
		},
		Memory: MemoryConfig{
			TopK:            topK,
			MaxMemories:     maxMemories,
			ForgetThreshold: forgetThreshold,
			DecayWindowDays: decayDays,
		},
		Server: ServerConfig{
			Addr: getEnvOrDefault("SERVER_ADDR", ":8000"),
		},
	}

	return config, nil
}

// LoadConfigFromJSON loads configuration from a JSON file.
//
// Parameters:
//   - path: Path to the JSON configuration file
//
// Returns a Config instance, or an error if loading or parsing fails.
func LoadConfigFromJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewKeeperError("LoadConfigFromJSON", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, NewKeeperError("LoadConfigFromJSON", err)
	}

	return &config, nil
}

// Validate validates the configuration.
//
// Checks that all required fields are set:
//   - Storage provider must be specified
//   - LLM provider must be specified
//   - Forget threshold must stay within [0, 1]
//
// Returns an error if validation fails, nil otherwise.
func (c *Config) Validate() error {
	if c.Storage.Provider == "" {
		return NewKeeperError("Validate", ErrInvalidConfig)
	}
	if c.LLM.Provider == "" {
		return NewKeeperError("Validate", ErrInvalidConfig)
	}
	if c.Memory.ForgetThreshold < 0 || c.Memory.ForgetThreshold > 1 {
		return NewKeeperError("Validate", fmt.Errorf("%w: forget threshold out of range", ErrInvalidConfig))
	}
	return nil
}

// getEnvOrDefault gets an environment variable or returns the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FindEnvFile searches for .env or .env.example files.
//
// The search:
//  1. Checks the current directory
//  2. Searches up to 5 directory levels up
//  3. Returns the first .env or .env.example file found
//
// Returns:
//   - path: Path to the found file (empty if not found)
//   - found: True if a file was found, false otherwise
func FindEnvFile() (string, bool) {
	if _, err := os.Stat(".env"); err == nil {
		return ".env", true
	}
	if _, err := os.Stat(".env.example"); err == nil {
		return ".env.example", true
	}

	dir, _ := os.Getwd()
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		envExamplePath := filepath.Join(dir, ".env.example")

		if _, err := os.Stat(envPath); err == nil {
			return envPath, true
		}
		if _, err := os.Stat(envExamplePath); err == nil {
			return envExamplePath, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", false
}
