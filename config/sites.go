package config

import (
	"fmt"
	"os"

	"github.com/titanous/json5"
)

// DefaultSites is the compiled-in site table.
func DefaultSites() []SiteConfig {
	return []SiteConfig{
		{Shop: "Sagosa", URL: "https://www.sagosa.com.ar/2665-cemento", Material: "cemento"},
		{Shop: "Sagosa", URL: "https://www.sagosa.com.ar/2723-hierro", Material: "hierro"},
		// aridos are sold by the bag
		{Shop: "Sagosa", URL: "https://www.sagosa.com.ar/2646-aridos", Material: "bolson"},
	}
}

// LoadSites reads a site table from a JSON5 file.
//
//	[
//	  // comments and trailing commas are allowed
//	  {shop: "Sagosa", url: "https://www.sagosa.com.ar/2665-cemento", material: "cemento"},
//	]
func LoadSites(path string) ([]SiteConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read site table %s: %w", path, err)
	}

	var sites []SiteConfig
	if err := json5.Unmarshal(data, &sites); err != nil {
		return nil, fmt.Errorf("parse site table %s: %w", path, err)
	}
	if len(sites) == 0 {
		return nil, fmt.Errorf("site table %s has no entries", path)
	}
	return sites, nil
}
