package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Category names used as keys of Config.Classes.
const (
	CategoryGroup    = "group"
	CategoryDistrict = "district"
	CategoryPlayer   = "player"
	CategoryRoom     = "room"
	CategoryExit     = "exit"
	CategoryThing    = "thing"
)

// Categories lists every category in skeleton order.
var Categories = []string{
	CategoryGroup, CategoryDistrict, CategoryPlayer,
	CategoryRoom, CategoryExit, CategoryThing,
}

// Config holds import settings.
// Supports YAML (.yaml/.yml) and a plain "key value" text format (.conf).
type Config struct {
	// --- Classification ---
	CoreCodeParent    string `yaml:"core_code_parent"`
	AccountsKey       string `yaml:"accounts_key"`
	GroupsKey         string `yaml:"groups_key"`
	DistrictAttribute string `yaml:"district_attribute"`

	// --- Admin tiers ---
	AdminAttribute      string `yaml:"admin_attribute"`
	WizardLevel         int    `yaml:"wizard_level"`
	RoyaltyLevel        int    `yaml:"royalty_level"`
	AdminAttributeLevel int    `yaml:"admin_attribute_level"`

	// --- Accounts ---
	PlaceholderPrefix string `yaml:"placeholder_prefix"` // prefix + legacy id for unusable names
	UnassignedName    string `yaml:"unassigned_name"`

	// --- Destination ---
	Classes         map[string]string `yaml:"classes"` // category -> destination class
	ExitSuffixLimit int               `yaml:"exit_suffix_limit"`
	StorePath       string            `yaml:"store_path"`
	LedgerPath      string            `yaml:"ledger_path"` // empty = no ledger
	MetricsFile     string            `yaml:"metrics_file"`

	// --- Logging ---
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // text or json
}

// Default returns a Config with the stock settings.
func Default() *Config {
	return &Config{
		CoreCodeParent:      "Core Code Parent <CCP>",
		AccountsKey:         "COBJ`ACCOUNTS",
		GroupsKey:           "COBJ`GOP",
		DistrictAttribute:   "D`DISTRICT",
		AdminAttribute:      "V`ADMIN",
		WizardLevel:         10,
		RoyaltyLevel:        8,
		AdminAttributeLevel: 6,
		PlaceholderPrefix:   "penn_",
		UnassignedName:      "Unassigned",
		Classes: map[string]string{
			CategoryGroup:    "FACTION",
			CategoryDistrict: "DISTRICT",
			CategoryPlayer:   "PLAYER",
			CategoryRoom:     "ROOM",
			CategoryExit:     "EXIT",
			CategoryThing:    "THING",
		},
		ExitSuffixLimit: 1000,
		StorePath:       "world.db",
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// Load reads a config file over the defaults. Format is picked by extension:
//   - .yaml / .yml  -> YAML
//   - anything else -> "key value" lines
//
// Relative paths in the file resolve against the file's directory.
func Load(path string) (*Config, error) {
	c := Default()
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = c.loadYAML(path)
	default:
		err = c.loadText(path)
	}
	if err != nil {
		return nil, err
	}

	baseDir := filepath.Dir(path)
	for _, p := range []*string{&c.StorePath, &c.LedgerPath, &c.MetricsFile} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(baseDir, *p)
		}
	}
	return c, c.Validate()
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing YAML %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadText(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		key, val := splitKeyVal(line)
		if err := c.set(strings.ToLower(key), val); err != nil {
			return fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
	}
	return scanner.Err()
}

func (c *Config) set(key, val string) error {
	switch key {
	case "core_code_parent":
		c.CoreCodeParent = val
	case "accounts_key":
		c.AccountsKey = val
	case "groups_key":
		c.GroupsKey = val
	case "district_attribute":
		c.DistrictAttribute = val
	case "admin_attribute":
		c.AdminAttribute = val
	case "wizard_level":
		return setInt(&c.WizardLevel, key, val)
	case "royalty_level":
		return setInt(&c.RoyaltyLevel, key, val)
	case "admin_attribute_level":
		return setInt(&c.AdminAttributeLevel, key, val)
	case "placeholder_prefix":
		c.PlaceholderPrefix = val
	case "unassigned_name":
		c.UnassignedName = val
	case "exit_suffix_limit":
		return setInt(&c.ExitSuffixLimit, key, val)
	case "store_path":
		c.StorePath = val
	case "ledger_path":
		c.LedgerPath = val
	case "metrics_file":
		c.MetricsFile = val
	case "log_level":
		c.LogLevel = val
	case "log_format":
		c.LogFormat = val
	default:
		// class_<category> <CLASS>
		if cat, ok := strings.CutPrefix(key, "class_"); ok {
			c.Classes[cat] = val
			return nil
		}
		return fmt.Errorf("unknown key %q", key)
	}
	return nil
}

// Validate checks the settings the importer depends on.
func (c *Config) Validate() error {
	for _, cat := range Categories {
		if c.Classes[cat] == "" {
			return fmt.Errorf("config: no class for category %q", cat)
		}
	}
	if c.PlaceholderPrefix == "" {
		return fmt.Errorf("config: placeholder_prefix must not be empty")
	}
	if c.UnassignedName == "" {
		return fmt.Errorf("config: unassigned_name must not be empty")
	}
	if c.ExitSuffixLimit < 1 {
		return fmt.Errorf("config: exit_suffix_limit must be positive, got %d", c.ExitSuffixLimit)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("config: log_format must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// Logger builds a logrus logger from the log settings.
func (c *Config) Logger() *logrus.Logger {
	log := logrus.New()
	if lvl, err := logrus.ParseLevel(c.LogLevel); err == nil {
		log.SetLevel(lvl)
	}
	if c.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	return log
}

func splitKeyVal(line string) (string, string) {
	idx := strings.IndexAny(line, " \t")
	if idx < 0 {
		return line, ""
	}
	return line[:idx], strings.TrimSpace(line[idx+1:])
}

func setInt(dst *int, key, val string) error {
	n, err := strconv.Atoi(val)
	if err != nil {
		return fmt.Errorf("%s: %q is not a number", key, val)
	}
	*dst = n
	return nil
}
