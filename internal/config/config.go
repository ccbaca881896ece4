package config

import (
	"embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed settings.yaml
var settingsYAML embed.FS

// Settings is the immutable runtime configuration for the sync engine.
// It is loaded once at startup and passed by reference; mutation happens
// only through reload, never in place.
type Settings struct {
	API     APISettings     `yaml:"api"`
	Sync    SyncSettings    `yaml:"sync"`
	Filter  FilterSettings  `yaml:"filter"`
	Ollama  OllamaSettings  `yaml:"ollama"`
}

// APISettings configures access to the upstream bid-notice API.
type APISettings struct {
	Endpoint string `yaml:"endpoint"`
	// ServiceKey may arrive raw or already percent-escaped. EncodeKey says whether
	// we should URL-encode it before building queries; double-encoding an escaped
	// key causes a silent auth failure, so this is a toggle, never auto-detected.
	ServiceKey string `yaml:"service_key"`
	EncodeKey  bool   `yaml:"encode_key"`
}

// SyncSettings controls windows and retention for sync runs.
type SyncSettings struct {
	DefaultStartDate string `yaml:"default_start_date"` // YYYY-MM-DD, used when the store is empty
	RetentionDays    int    `yaml:"retention_days"`     // <= 0 means unlimited retention
	SaveOnlyFiltered bool   `yaml:"save_only_filtered"` // pre-filter batches to relevance keywords before persisting
	RegionFilter     string `yaml:"region_filter"`      // applied by the scheduled job only
}

// FilterSettings holds the keyword sets applied over notice titles.
type FilterSettings struct {
	// DefaultKeywords is applied by the aggregator when the caller supplies no
	// keyword. An empty list disables the fallback and returns all records.
	DefaultKeywords []string `yaml:"default_keywords"`
	// RelevanceKeywords gates persistence when sync.save_only_filtered is set.
	RelevanceKeywords []string `yaml:"relevance_keywords"`
}

// OllamaSettings configures the optional local LLM used by the proposal pipeline.
type OllamaSettings struct {
	Host       string `yaml:"host"`
	GenModel   string `yaml:"gen_model"`
	EmbedModel string `yaml:"embed_model"`
}

// Load reads the embedded settings.yaml, expanding ${ENV} references so secrets
// like the service key stay out of the file. The path parameter allows a
// filesystem override for local development.
func Load(path string) (*Settings, error) {
	data, err := settingsYAML.ReadFile("settings.yaml")
	if path != "" {
		if fileData, fileErr := os.ReadFile(path); fileErr == nil {
			data, err = fileData, nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var s Settings
	if err := yaml.Unmarshal([]byte(expanded), &s); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}

	if s.API.Endpoint == "" {
		s.API.Endpoint = "https://apis.data.go.kr/1230000/ao/PubDataOpnStdService/getDataSetOpnStdBidPblancInfo"
	}

	return &s, nil
}
