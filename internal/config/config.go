package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

type Config struct {
	DataDir       string `json:"data_dir"`
	LogLevel      string `json:"log_level"`
	LoggingConfig string `json:"logging_config"`
	MaxConcurrent int    `json:"max_concurrent"`
	UI            struct {
		Title string `json:"title"`
		Icon  string `json:"icon"`
	} `json:"ui"`
	Agent struct {
		BaseURL        string `json:"base_url"`
		APIKey         string `json:"api_key"`
		ID             string `json:"id"`
		AliasID        string `json:"alias_id"`
		Model          string `json:"model"`
		MaxInputTokens int    `json:"max_input_tokens"`
	} `json:"agent"`
	Telegram struct {
		Token string `json:"token"`
	} `json:"telegram"`
	HTTP struct {
		Enabled bool   `json:"enabled"`
		Listen  string `json:"listen"`
	} `json:"http"`
	Session struct {
		SweepSchedule string `json:"sweep_schedule"`
		IdleTTLHours  int    `json:"idle_ttl_hours"`
	} `json:"session"`
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		DataDir:       filepath.Join(os.Getenv("HOME"), ".bedrockchat"),
		MaxConcurrent: 2,
	}
	cfg.LogLevel = "info"
	cfg.UI.Title = "Bedrock Chat"
	cfg.UI.Icon = "🤖"
	cfg.Agent.AliasID = "TSTALIASID"
	cfg.Agent.Model = "gpt-4"
	cfg.Agent.MaxInputTokens = 20000
	cfg.HTTP.Listen = ":8080"
	cfg.Session.SweepSchedule = "@hourly"
	cfg.Session.IdleTTLHours = 24

	// Load from file if exists, otherwise write defaults
	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else if os.IsNotExist(err) {
		if err := Save(path, cfg); err != nil {
			return nil, err
		}
	}

	// Override from env (highest precedence)
	if agentID := os.Getenv("BEDROCK_AGENT_ID"); agentID != "" {
		cfg.Agent.ID = agentID
	}
	if aliasID := os.Getenv("BEDROCK_AGENT_ALIAS_ID"); aliasID != "" {
		cfg.Agent.AliasID = aliasID
	}
	if baseURL := os.Getenv("BEDROCK_AGENT_BASE_URL"); baseURL != "" {
		cfg.Agent.BaseURL = baseURL
	}
	if apiKey := os.Getenv("BEDROCK_API_KEY"); apiKey != "" {
		cfg.Agent.APIKey = apiKey
	}
	if tgToken := os.Getenv("TELEGRAM_BOT_TOKEN"); tgToken != "" {
		cfg.Telegram.Token = tgToken
	}
	if title := os.Getenv("BEDROCK_CHAT_UI_TITLE"); title != "" {
		cfg.UI.Title = title
	}
	if icon := os.Getenv("BEDROCK_CHAT_UI_ICON"); icon != "" {
		cfg.UI.Icon = icon
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	return cfg, nil
}

// Save marshals the config with indentation and writes it atomically,
// creating the parent directory if needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	data = append(data, '\n')
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}
