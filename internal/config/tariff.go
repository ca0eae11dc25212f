package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kitchenhire/booking-engine/internal/pricing"
)

// LoadTariff reads the pricing tables from a YAML file. An empty path
// or a missing file yields the standing rate card; a present but
// unreadable file is a hard error, since silently ignoring a broken
// tariff would misprice quotes.
func LoadTariff(path string) (pricing.Tariff, error) {
	if path == "" {
		return pricing.DefaultTariff(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return pricing.DefaultTariff(), nil
		}
		return pricing.Tariff{}, fmt.Errorf("read tariff file: %w", err)
	}
	var tariff pricing.Tariff
	if err := yaml.Unmarshal(raw, &tariff); err != nil {
		return pricing.Tariff{}, fmt.Errorf("parse tariff file %s: %w", path, err)
	}
	tariff.Normalize()
	return tariff, nil
}
