// Package config loads and stores CLI configuration in the XDG config dir.
// Only non-secret settings are kept in the file; warehouse credentials are read
// from the environment (and an optional local .env) once at startup and passed
// to collaborators as an explicit value.
package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"snowdemo/cli/internal/xdg"

	"github.com/joho/godotenv"
	"github.com/tidwall/jsonc"
)

// DefaultTokenPath is where the container runtime drops the short-lived OAuth token.
const DefaultTokenPath = "/snowflake/session/token"

// Config holds CLI settings.
type Config struct {
	LogLevel  string    `json:"log_level"`
	Warehouse Warehouse `json:"-"`
	Chat      Chat      `json:"chat"`
	UI        UI        `json:"ui"`
	DAG       DAG       `json:"dag"`
	History   History   `json:"history"`
}

// Warehouse holds connection settings sourced from SNOWFLAKE_* environment variables.
type Warehouse struct {
	Account   string
	Host      string
	Database  string
	Schema    string
	User      string
	Role      string
	Warehouse string

	PrivateKeyPath       string
	PrivateKeyPath2      string
	PrivateKeyPassphrase string

	// TokenPath is the OAuth token file probed before falling back to key-pair auth.
	TokenPath string
}

// Chat configures the model behind the chat agent.
type Chat struct {
	// Agent selects the node wired into the graph: "cortex" or "test".
	Agent        string  `json:"agent"`
	Model        string  `json:"model"`
	Temperature  float64 `json:"temperature"`
	MaxTokens    int     `json:"max_tokens"`
	SystemPrompt string  `json:"system_prompt"`
	// CortexWarehouse is activated with USE WAREHOUSE before each model call.
	// Empty skips the statement.
	CortexWarehouse string `json:"cortex_warehouse"`
}

// UI configures the web chat page.
type UI struct {
	Title        string `json:"title"`
	Information  string `json:"information"`
	Instructions string `json:"instructions"`
	Addr         string `json:"addr"`
	HealthAddr   string `json:"health_addr"`
}

// DAG configures where the ETL task graph is deployed.
type DAG struct {
	Database  string `json:"database"`
	Schema    string `json:"schema"`
	Warehouse string `json:"warehouse"`
	// ScheduleMinutes of zero means manual execution only.
	ScheduleMinutes int    `json:"schedule_minutes"`
	File            string `json:"file"`
}

// History configures transcript persistence. An empty DSN keeps transcripts in memory.
type History struct {
	DSN string `json:"dsn"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		LogLevel: "info",
		Warehouse: Warehouse{
			TokenPath: DefaultTokenPath,
		},
		Chat: Chat{
			Agent:           "cortex",
			Model:           "claude-3-7-sonnet",
			Temperature:     0.1,
			MaxTokens:       500,
			SystemPrompt:    "You are a helpful AI assistant",
			CortexWarehouse: "container_warehouse",
		},
		UI: UI{
			Title:        "Test App",
			Information:  "Test App Info",
			Instructions: "Instructions",
			Addr:         ":8501",
		},
		DAG: DAG{
			Database:  "LEARNING_DB",
			Schema:    "ETL",
			Warehouse: "COMPUTE_WH",
		},
	}
}

// path returns the path to the config file.
func path() (string, error) {
	dir, err := xdg.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Path returns the location of the config file.
func Path() (string, error) { return path() }

// Load reads configuration once at process start: defaults, then the config
// file (missing file keeps defaults), then a local .env, then the environment.
// The file may carry // comments and trailing commas.
func Load() (Config, error) {
	c := Default()
	p, err := path()
	if err != nil {
		return c, err
	}
	data, err := os.ReadFile(p)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return c, err
	default:
		if err := json.Unmarshal(jsonc.ToJSON(data), &c); err != nil {
			return c, err
		}
	}

	if err := loadDotEnv(".env"); err != nil {
		return c, err
	}
	c.Warehouse = WarehouseFromEnv(os.Getenv)
	return c, nil
}

// Save writes configuration with 0600 permissions.
func Save(c Config) error {
	p, err := path()
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, b, 0o600)
}

// WarehouseFromEnv builds warehouse settings from the given lookup function,
// normally os.Getenv.
func WarehouseFromEnv(getenv func(string) string) Warehouse {
	get := func(key string) string { return strings.TrimSpace(getenv(key)) }
	w := Warehouse{
		Account:              get("SNOWFLAKE_ACCOUNT"),
		Host:                 get("SNOWFLAKE_HOST"),
		Database:             get("SNOWFLAKE_DATABASE"),
		Schema:               get("SNOWFLAKE_SCHEMA"),
		User:                 get("SNOWFLAKE_USER"),
		Role:                 get("SNOWFLAKE_ROLE"),
		Warehouse:            get("SNOWFLAKE_WAREHOUSE"),
		PrivateKeyPath:       get("SNOWFLAKE_PRIVATE_KEY_PATH"),
		PrivateKeyPath2:      get("SNOWFLAKE_PRIVATE_KEY_PATH_2"),
		PrivateKeyPassphrase: getenv("SNOWFLAKE_PRIVATE_KEY_PASSPHRASE"),
		TokenPath:            get("SNOWDEMO_TOKEN_PATH"),
	}
	if w.TokenPath == "" {
		w.TokenPath = DefaultTokenPath
	}
	return w
}

// loadDotEnv populates unset environment variables from a local env file.
// Variables already present in the environment win.
func loadDotEnv(name string) error {
	err := godotenv.Load(name)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
