package core

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"BeaconBot/internal/model"
)

// LoadConfig reads the YAML configuration at path and fills unset fields
// with defaults.
func LoadConfig(path string) (model.Config, error) {
	var cfg model.Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	for _, c := range []*model.AllianceColor{&cfg.Routine.Alliance, &cfg.Routine.DefaultBeacon} {
		if *c == "" {
			continue
		}
		parsed, err := model.ParseAllianceColor(string(*c))
		if err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
		*c = parsed
	}
	cfg.ApplyDefaults()
	return cfg, nil
}
