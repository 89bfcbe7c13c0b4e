package feed

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// DefaultFeedURL is the EDGAR current-events Atom feed for Form C filings.
const DefaultFeedURL = "https://www.sec.gov/cgi-bin/browse-edgar?action=getcurrent&CIK=&type=C&company=&dateb=&owner=include&start=0&count=100&output=atom"

// DefaultConfigName names the watch built from flags when the watches
// directory has none.
const DefaultConfigName = "form-c"

type ConfigCache struct {
	watchesDir string
	cache      map[string]*Config
	mu         sync.RWMutex
}

func NewConfigCache(watchesDir string) *ConfigCache {
	return &ConfigCache{
		watchesDir: watchesDir,
		cache:      make(map[string]*Config),
	}
}

func (cc *ConfigCache) Run() error {
	if cc.watchesDir == "" {
		return nil
	}
	if _, err := os.Stat(cc.watchesDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(cc.watchesDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		watchName := strings.TrimSuffix(filepath.Base(file), ".yml")

		config, err := cc.LoadConfig(watchName)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Configuration loaded", "watch", watchName, "enabled", config.Settings.Enabled, "refresh_interval", config.Settings.RefreshInterval)
	}

	return nil
}

func (cc *ConfigCache) LoadConfig(watchName string) (*Config, error) {
	configFile := cc.getConfigFilePath(watchName)
	watchConfig, err := cc.parseConfig(configFile)
	if err != nil {
		return nil, err
	}

	watchConfig.Name = watchName

	if err := cc.validateConfig(watchConfig); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configFile, err)
	}

	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.cache[watchConfig.Name] = watchConfig

	return watchConfig, nil
}

// AddConfig registers a watch that did not come from a file.
func (cc *ConfigCache) AddConfig(watchConfig *Config) error {
	if watchConfig == nil {
		return fmt.Errorf("invalid config: watchConfig is nil")
	}

	setDefaults(watchConfig)
	if err := cc.validateConfig(watchConfig); err != nil {
		return fmt.Errorf("invalid config %s: %w", watchConfig.Name, err)
	}

	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.cache[watchConfig.Name] = watchConfig

	return nil
}

func (cc *ConfigCache) GetConfig(watchName string) (*Config, error) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	watchConfig, ok := cc.cache[watchName]
	if !ok {
		return nil, fmt.Errorf("watch config with name '%s' not found", watchName)
	}
	return watchConfig, nil
}

func (cc *ConfigCache) GetConfigs() map[string]*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	configsCopy := make(map[string]*Config, len(cc.cache))
	for k, v := range cc.cache {
		configsCopy[k] = v
	}
	return configsCopy
}

// GetEnabledConfigs returns enabled watches sorted by name.
func (cc *ConfigCache) GetEnabledConfigs() []*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	enabledConfigs := make([]*Config, 0, len(cc.cache))
	for _, v := range cc.cache {
		if v.Settings.Enabled {
			enabledConfigs = append(enabledConfigs, v)
		}
	}
	sort.Slice(enabledConfigs, func(i, j int) bool {
		return enabledConfigs[i].Name < enabledConfigs[j].Name
	})
	return enabledConfigs
}

func (cc *ConfigCache) GetConfigCount() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return len(cc.cache)
}

func (cc *ConfigCache) parseConfig(configFile string) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var watchConfig Config
	if err := yaml.Unmarshal(data, &watchConfig); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	setDefaults(&watchConfig)

	return &watchConfig, nil
}

func setDefaults(watchConfig *Config) {
	if watchConfig.Marker == "" {
		watchConfig.Marker = DefaultMarker
	}
	if watchConfig.Settings.RefreshInterval == 0 {
		watchConfig.Settings.RefreshInterval = 3600
	}
	if watchConfig.Settings.MaxItems == 0 {
		watchConfig.Settings.MaxItems = 100
	}
	if watchConfig.Settings.Timeout == 0 {
		watchConfig.Settings.Timeout = 600
	}
}

func (cc *ConfigCache) validateConfig(watchConfig *Config) error {
	if watchConfig == nil {
		return fmt.Errorf("watchConfig is nil")
	}

	requiredFields := map[string]string{
		"watch name": watchConfig.Name,
		"feed URL":   watchConfig.URL,
	}

	for fieldName, fieldValue := range requiredFields {
		if fieldValue == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
	}

	nonNegativeFields := map[string]int{
		"refresh interval": watchConfig.Settings.RefreshInterval,
		"max items":        watchConfig.Settings.MaxItems,
		"timeout":          watchConfig.Settings.Timeout,
	}

	for fieldName, fieldValue := range nonNegativeFields {
		if fieldValue < 0 {
			return fmt.Errorf("%s must be non-negative", fieldName)
		}
	}

	return nil
}

func (cc *ConfigCache) getConfigFilePath(watchName string) string {
	return filepath.Join(cc.watchesDir, watchName+".yml")
}
