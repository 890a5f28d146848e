package config

import (
	"fmt"
	"math"

	"github.com/BurntSushi/toml"

	"villabook/internal/domain/shared/money"
	"villabook/internal/domain/units"
)

type unitsFile struct {
	Units []unitEntry `toml:"unit"`
}

type unitEntry struct {
	ID          string  `toml:"id"`
	Name        string  `toml:"name"`
	NightlyRate float64 `toml:"nightly_rate"`
	MaxGuests   int     `toml:"max_guests"`
}

// LoadCatalog reads the unit catalog from a TOML file of [[unit]] tables.
// An empty path yields the default catalog.
func LoadCatalog(path string) (*units.Catalog, error) {
	if path == "" {
		return units.DefaultCatalog(), nil
	}
	var file unitsFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("decode units file %s: %w", path, err)
	}
	return catalogOf(file)
}

func decodeCatalog(raw string) (*units.Catalog, error) {
	var file unitsFile
	if _, err := toml.Decode(raw, &file); err != nil {
		return nil, err
	}
	return catalogOf(file)
}

func catalogOf(file unitsFile) (*units.Catalog, error) {
	if len(file.Units) == 0 {
		return nil, fmt.Errorf("units file declares no units")
	}
	list := make([]units.Unit, 0, len(file.Units))
	for _, e := range file.Units {
		list = append(list, units.Unit{
			ID:          units.UnitID(e.ID),
			Name:        e.Name,
			NightlyRate: money.Must(int64(math.Round(e.NightlyRate*100)), money.DefaultCurrency),
			MaxGuests:   e.MaxGuests,
		})
	}
	return units.NewCatalog(list)
}
