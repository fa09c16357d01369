package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dyike/StockLens/config"
	"github.com/dyike/StockLens/internal/report"
)

const configFileName = "stocklens.json"

// secretKeys come from the environment only. They are masked when shown and
// never written to a config file.
var secretKeys = map[string]bool{
	"deepseek_api_key":      true,
	"openai_api_key":        true,
	"longport_app_key":      true,
	"longport_app_secret":   true,
	"longport_access_token": true,
}

// ConfigManager reads and edits the JSON config file by key.
type ConfigManager struct {
	config     *config.Config
	configPath string
}

// NewConfigManager manages path, or stocklens.json in the project dir when
// path is empty.
func NewConfigManager(cfg *config.Config, path string) *ConfigManager {
	if path == "" {
		path = DefaultConfigPath(cfg)
	}
	return &ConfigManager{config: cfg, configPath: path}
}

func DefaultConfigPath(cfg *config.Config) string {
	return filepath.Join(cfg.ProjectDir, configFileName)
}

func (cm *ConfigManager) Path() string { return cm.configPath }

func (cm *ConfigManager) values() (map[string]any, error) {
	data, err := json.Marshal(cm.config)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	out := map[string]any{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func formatConfigValue(key string, v any) string {
	if secretKeys[key] {
		if s, _ := v.(string); s != "" {
			return "✅ set"
		}
		return "❌ not set"
	}
	if key == "fetch_timeout" {
		if n, ok := v.(float64); ok {
			return time.Duration(n).String()
		}
	}
	return fmt.Sprint(v)
}

// ListAvailableKeys returns every config key in sorted order.
func (cm *ConfigManager) ListAvailableKeys() []string {
	vals, err := cm.values()
	if err != nil {
		return nil
	}
	keys := make([]string, 0, len(vals))
	for k := range vals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Rows returns key/value pairs ready for display, secrets masked.
func (cm *ConfigManager) Rows() ([][]string, error) {
	vals, err := cm.values()
	if err != nil {
		return nil, err
	}
	var rows [][]string
	for _, k := range cm.ListAvailableKeys() {
		rows = append(rows, []string{k, formatConfigValue(k, vals[k])})
	}
	return rows, nil
}

// GetConfigValue gets a configuration value by key
func (cm *ConfigManager) GetConfigValue(key string) (string, error) {
	vals, err := cm.values()
	if err != nil {
		return "", err
	}
	key = strings.ToLower(key)
	v, ok := vals[key]
	if !ok {
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
	return formatConfigValue(key, v), nil
}

// SetConfigValue parses value for key and applies it. The result must pass
// Validate, otherwise the config is left unchanged.
func (cm *ConfigManager) SetConfigValue(key, value string) error {
	key = strings.ToLower(key)
	if secretKeys[key] {
		return fmt.Errorf("%s is read from the environment only", key)
	}
	vals, err := cm.values()
	if err != nil {
		return err
	}
	current, ok := vals[key]
	if !ok {
		return fmt.Errorf("unknown configuration key: %s", key)
	}

	var parsed any
	switch {
	case key == "fetch_timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for %s: %w", key, err)
		}
		parsed = int64(d)
	default:
		switch current.(type) {
		case bool:
			b, err := strconv.ParseBool(value)
			if err != nil {
				return fmt.Errorf("invalid boolean for %s: %q", key, value)
			}
			parsed = b
		case float64:
			n, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("invalid integer for %s: %q", key, value)
			}
			parsed = n
		default:
			parsed = value
		}
	}

	patch, err := json.Marshal(map[string]any{key: parsed})
	if err != nil {
		return err
	}
	updated := *cm.config
	if err := json.Unmarshal(patch, &updated); err != nil {
		return fmt.Errorf("apply %s: %w", key, err)
	}
	if err := updated.Validate(); err != nil {
		return err
	}
	*cm.config = updated
	return nil
}

// LoadConfig overlays the config file if it exists. A missing file is not an
// error.
func (cm *ConfigManager) LoadConfig() (bool, error) {
	if _, err := os.Stat(cm.configPath); errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err := cm.config.LoadFile(cm.configPath); err != nil {
		return false, err
	}
	return true, nil
}

// SaveConfig writes every non-secret setting to the config file.
func (cm *ConfigManager) SaveConfig() error {
	vals, err := cm.values()
	if err != nil {
		return err
	}
	for k := range secretKeys {
		delete(vals, k)
	}
	data, err := json.MarshalIndent(vals, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(cm.configPath), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return report.WriteFileAtomic(cm.configPath, append(data, '\n'))
}
