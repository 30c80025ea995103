// =============================================================================
// mercado - Configuration Module
// =============================================================================
//
// This module loads the main configuration file. It tells mercado:
//   - Where the three input tables live (URL or local path) and how to read
//     them (CSV or XLSX, sheet, header rows, delimiter, encoding)
//   - Which column names to look for in each table
//   - The mass unit, the count units and the unit aliases
//   - The checklist key policy
//   - Where to keep the download cache, the session database and exports
//   - How to display money (locale and currency symbol)
//
// Every setting has a default, so mercado runs without a config file as long
// as the sources are given. Paths may start with "~".
//
// EXAMPLE (config.yaml):
//
//	sources:
//	  requirements:
//	    url: https://docs.google.com/spreadsheets/d/<id>/export?format=csv&gid=0
//	  prices:
//	    path: ~/mercado/precios.xlsx
//	    sheet: Precios
//	  equivalences:
//	    path: ~/mercado/equivalencias.csv
//	    csv_settings:
//	      delimiter: ";"
//	checklist:
//	  key_policy: unit_product
//
// =============================================================================

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ginjaninja78/mercado/internal/checklist"
	homedir "github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

// Table formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	// =========================================================================
	// INPUT TABLES
	// =========================================================================

	// Sources locates the requirements, prices and equivalences tables.
	Sources Sources `yaml:"sources"`

	// Columns names the columns read from each table.
	Columns Columns `yaml:"columns"`

	// =========================================================================
	// DOMAIN SETTINGS
	// =========================================================================

	// Units configures the canonical mass unit, count units and aliases.
	Units UnitSettings `yaml:"units"`

	// Checklist configures checklist identity.
	Checklist ChecklistSettings `yaml:"checklist"`

	// =========================================================================
	// STORAGE SETTINGS
	// =========================================================================

	// CacheDir holds downloaded tables.
	// Default: "~/.mercado/cache"
	CacheDir string `yaml:"cache_dir"`

	// CacheTTL is how long a downloaded table is reused, as a Go duration.
	// "0" disables the cache.
	// Default: "6h"
	CacheTTL string `yaml:"cache_ttl"`

	// StateDB is the sqlite file holding sessions and checklists.
	// Default: "~/.mercado/state.db"
	StateDB string `yaml:"state_db"`

	// ExportDir receives XML and XLSX exports.
	// Default: "./exports"
	ExportDir string `yaml:"export_dir"`

	// =========================================================================
	// NETWORK SETTINGS
	// =========================================================================

	// HTTPTimeout bounds a single download attempt.
	// Default: "30s"
	HTTPTimeout string `yaml:"http_timeout"`

	// RetryMax is the number of retries for a failed download.
	// Default: 3
	RetryMax int `yaml:"retry_max"`

	// =========================================================================
	// DISPLAY AND LOGGING
	// =========================================================================

	// Locale is the BCP 47 tag used to print numbers.
	// Default: "es-PE"
	Locale string `yaml:"locale"`

	// Currency is the symbol printed in front of money values.
	// Default: "S/"
	Currency string `yaml:"currency"`

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`
}

// Sources locates the three input tables.
type Sources struct {
	Requirements TableSource `yaml:"requirements"`
	Prices       TableSource `yaml:"prices"`
	Equivalences TableSource `yaml:"equivalences"`
}

// TableSource describes where a table lives and how to read it.
// Exactly one of URL and Path must be set for the table to be usable.
type TableSource struct {
	// URL is fetched over HTTP (e.g. a spreadsheet CSV export link).
	URL string `yaml:"url"`

	// Path is a local file.
	Path string `yaml:"path"`

	// Format is "csv" or "xlsx". When empty it is inferred from the file
	// extension, falling back to csv.
	Format string `yaml:"format"`

	// Sheet selects the XLSX sheet. Empty selects the first sheet.
	Sheet string `yaml:"sheet"`

	// HeaderRows is the number of header rows.
	// Default: 1
	HeaderRows int `yaml:"header_rows"`

	// DataStartRow is the 1-indexed row where data begins.
	// Default: HeaderRows + 1
	DataStartRow int `yaml:"data_start_row"`

	// CSVSettings applies to CSV tables only.
	CSVSettings CSVSettings `yaml:"csv_settings"`
}

// Location returns the URL or path of the source, whichever is set.
func (s TableSource) Location() string {
	if s.URL != "" {
		return s.URL
	}
	return s.Path
}

// IsRemote reports whether the table is fetched over HTTP.
func (s TableSource) IsRemote() bool {
	return s.URL != ""
}

// SetLocation points the source at a URL (http or https) or a local path and
// infers the format from it.
func (s *TableSource) SetLocation(location string) {
	location = strings.TrimSpace(location)
	lower := strings.ToLower(location)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		s.URL, s.Path = location, ""
	} else {
		s.URL, s.Path = "", expand(location)
	}
	s.Format = inferFormat(location)
}

// Configured reports whether the source points anywhere.
func (s TableSource) Configured() bool {
	return s.URL != "" || s.Path != ""
}

// CSVSettings contains settings for parsing CSV tables.
type CSVSettings struct {
	// Delimiter separates fields. Accepts "," ";" "|" or "tab".
	// Default: ","
	Delimiter string `yaml:"delimiter"`

	// Encoding of the file: "UTF-8", "ISO-8859-1" or "Windows-1252".
	// Default: "UTF-8"
	Encoding string `yaml:"encoding"`
}

// Columns names the columns read from each table. Matching ignores case,
// accents and extra spaces.
type Columns struct {
	Requirements RequirementColumns `yaml:"requirements"`
	Prices       PriceColumns       `yaml:"prices"`
	Equivalences EquivalenceColumns `yaml:"equivalences"`
}

// RequirementColumns names the columns of the requirements table.
type RequirementColumns struct {
	Category string `yaml:"category"`
	Unit     string `yaml:"unit"`
	Product  string `yaml:"product"`
	Quantity string `yaml:"quantity"`
}

// PriceColumns names the product column of the price table. Every other
// column is a date.
type PriceColumns struct {
	Product string `yaml:"product"`
}

// EquivalenceColumns names the columns of the equivalence table.
type EquivalenceColumns struct {
	Product          string `yaml:"product"`
	UnitsPerKilogram string `yaml:"units_per_kilogram"`
}

// UnitSettings configures unit identities.
type UnitSettings struct {
	// Mass is the canonical unit prices are quoted in.
	// Default: "kg"
	Mass string `yaml:"mass"`

	// Count lists units converted through the equivalence table.
	// Default: ["und"]
	Count []string `yaml:"count"`

	// Aliases maps alternative spellings to a unit.
	Aliases map[string]string `yaml:"aliases"`
}

// ChecklistSettings configures checklist identity.
type ChecklistSettings struct {
	// KeyPolicy is "unit_product" or "unit_product_quantity".
	// Default: "unit_product"
	KeyPolicy string `yaml:"key_policy"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// Default returns a configuration with every default applied and no sources.
func Default() *MainConfig {
	config := &MainConfig{}
	applyMainConfigDefaults(config)
	return config
}

// LoadMainConfig loads the main configuration from a YAML file.
//
// PARAMETERS:
//   - configPath: The path to the main configuration file.
//
// RETURNS:
//   - A pointer to the MainConfig struct, defaults applied and validated.
//   - An error if the file cannot be read, parsed or validated.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML document into a validated configuration.
func Parse(data []byte) (*MainConfig, error) {
	var config MainConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyMainConfigDefaults(&config)

	if err := Validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &config, nil
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.CacheDir == "" {
		config.CacheDir = filepath.Join(dataDir(), "cache")
	}
	if config.CacheTTL == "" {
		config.CacheTTL = "6h"
	}
	if config.StateDB == "" {
		config.StateDB = filepath.Join(dataDir(), "state.db")
	}
	if config.ExportDir == "" {
		config.ExportDir = "./exports"
	}
	if config.HTTPTimeout == "" {
		config.HTTPTimeout = "30s"
	}
	if config.RetryMax == 0 {
		config.RetryMax = 3
	}
	if config.Locale == "" {
		config.Locale = "es-PE"
	}
	if config.Currency == "" {
		config.Currency = "S/"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}

	config.CacheDir = expand(config.CacheDir)
	config.StateDB = expand(config.StateDB)
	config.ExportDir = expand(config.ExportDir)

	applySourceDefaults(&config.Sources.Requirements)
	applySourceDefaults(&config.Sources.Prices)
	applySourceDefaults(&config.Sources.Equivalences)

	cols := &config.Columns
	if cols.Requirements.Category == "" {
		cols.Requirements.Category = "Índice"
	}
	if cols.Requirements.Unit == "" {
		cols.Requirements.Unit = "Unidad"
	}
	if cols.Requirements.Product == "" {
		cols.Requirements.Product = "Producto"
	}
	if cols.Requirements.Quantity == "" {
		cols.Requirements.Quantity = "Cantidad"
	}
	if cols.Prices.Product == "" {
		cols.Prices.Product = "Producto"
	}
	if cols.Equivalences.Product == "" {
		cols.Equivalences.Product = "Producto"
	}
	if cols.Equivalences.UnitsPerKilogram == "" {
		cols.Equivalences.UnitsPerKilogram = "Unidades por kg"
	}

	if config.Units.Mass == "" {
		config.Units.Mass = "kg"
	}
	if len(config.Units.Count) == 0 {
		config.Units.Count = []string{"und"}
	}
	if config.Units.Aliases == nil {
		config.Units.Aliases = map[string]string{
			"kilo":       "kg",
			"kilos":      "kg",
			"kgs":        "kg",
			"kilogramo":  "kg",
			"kilogramos": "kg",
			"unidad":     "und",
			"unidades":   "und",
			"u":          "und",
			"un":         "und",
		}
	}

	if config.Checklist.KeyPolicy == "" {
		config.Checklist.KeyPolicy = string(checklist.DefaultPolicy)
	}
}

// applySourceDefaults fills the reading defaults of one table.
func applySourceDefaults(src *TableSource) {
	src.Path = expand(src.Path)
	if src.Format == "" {
		src.Format = inferFormat(src.Location())
	}
	src.Format = strings.ToLower(src.Format)
	if src.HeaderRows == 0 {
		src.HeaderRows = 1
	}
	if src.DataStartRow == 0 {
		src.DataStartRow = src.HeaderRows + 1
	}
	if src.CSVSettings.Delimiter == "" {
		src.CSVSettings.Delimiter = ","
	}
	if src.CSVSettings.Encoding == "" {
		src.CSVSettings.Encoding = "UTF-8"
	}
}

// inferFormat guesses the table format from a path or URL.
func inferFormat(location string) string {
	loc := strings.ToLower(location)
	if i := strings.IndexAny(loc, "?#"); i >= 0 {
		loc = loc[:i]
	}
	if strings.HasSuffix(loc, ".xlsx") || strings.Contains(location, "format=xlsx") {
		return FormatXLSX
	}
	return FormatCSV
}

// Validate checks a configuration after defaults are applied. It is exported
// so callers can re-validate after applying environment overrides.
func Validate(config *MainConfig) error {
	if _, err := checklist.ParsePolicy(config.Checklist.KeyPolicy); err != nil {
		return err
	}

	ttl, err := time.ParseDuration(config.CacheTTL)
	if err != nil {
		return fmt.Errorf("cache_ttl: %w", err)
	}
	if ttl < 0 {
		return fmt.Errorf("cache_ttl must not be negative")
	}
	if _, err := time.ParseDuration(config.HTTPTimeout); err != nil {
		return fmt.Errorf("http_timeout: %w", err)
	}
	if config.RetryMax < 0 {
		return fmt.Errorf("retry_max must not be negative")
	}

	switch strings.ToLower(config.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log_level %q", config.LogLevel)
	}

	tables := map[string]TableSource{
		"requirements": config.Sources.Requirements,
		"prices":       config.Sources.Prices,
		"equivalences": config.Sources.Equivalences,
	}
	for name, src := range tables {
		if src.URL != "" && src.Path != "" {
			return fmt.Errorf("sources.%s: url and path are mutually exclusive", name)
		}
		if src.Format != FormatCSV && src.Format != FormatXLSX {
			return fmt.Errorf("sources.%s: unknown format %q", name, src.Format)
		}
		if src.DataStartRow <= src.HeaderRows {
			return fmt.Errorf("sources.%s: data_start_row must be after the header rows", name)
		}
	}

	if len(config.Units.Count) > 0 {
		for _, c := range config.Units.Count {
			if strings.EqualFold(strings.TrimSpace(c), strings.TrimSpace(config.Units.Mass)) {
				return fmt.Errorf("units: %q cannot be both the mass unit and a count unit", c)
			}
		}
	}

	return nil
}

// =============================================================================
// ACCESSORS
// =============================================================================

// TTL returns the parsed cache TTL. Call only on a validated configuration.
func (c *MainConfig) TTL() time.Duration {
	d, _ := time.ParseDuration(c.CacheTTL)
	return d
}

// Timeout returns the parsed HTTP timeout. Call only on a validated configuration.
func (c *MainConfig) Timeout() time.Duration {
	d, _ := time.ParseDuration(c.HTTPTimeout)
	return d
}

// KeyPolicy returns the configured checklist key policy.
func (c *MainConfig) KeyPolicy() checklist.KeyPolicy {
	p, err := checklist.ParsePolicy(c.Checklist.KeyPolicy)
	if err != nil {
		return checklist.DefaultPolicy
	}
	return p
}

// =============================================================================
// PATH HELPERS
// =============================================================================

// dataDir is the directory holding mercado's own state.
func dataDir() string {
	home, err := homedir.Dir()
	if err != nil {
		return ".mercado"
	}
	return filepath.Join(home, ".mercado")
}

// DefaultConfigPath returns "$HOME/.mercado.yaml", or "" when the home
// directory cannot be determined.
func DefaultConfigPath() string {
	home, err := homedir.Dir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".mercado.yaml")
}

func expand(path string) string {
	if path == "" {
		return ""
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return path
	}
	return expanded
}
