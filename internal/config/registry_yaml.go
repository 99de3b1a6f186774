package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"veritas-scraper/internal/domain/entity"
)

// sourcesFile is the YAML layout accepted by LoadRegistryFile.
type sourcesFile struct {
	Sources []entity.Source `yaml:"sources"`
}

// LoadRegistryFile reads a source catalog from a YAML file. This replaces the
// built-in catalog wholesale; it is meant for deployments that track site
// layout changes without a rebuild.
//
// Layout:
//
//	sources:
//	  - slug: diken
//	    name: Diken
//	    base_url: https://www.diken.com.tr/
//	    rss_urls:
//	      - https://www.diken.com.tr/feed/
func LoadRegistryFile(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}

	var f sourcesFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse sources file %s: %w", path, err)
	}
	if len(f.Sources) == 0 {
		return nil, fmt.Errorf("sources file %s defines no sources", path)
	}

	return NewRegistry(f.Sources)
}

// LoadRegistry returns the registry from the SOURCES_FILE environment variable
// when set, otherwise the built-in catalog.
func LoadRegistry() (*Registry, error) {
	if path := os.Getenv("SOURCES_FILE"); path != "" {
		return LoadRegistryFile(path)
	}
	return DefaultRegistry(), nil
}
