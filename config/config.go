package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/memtreefs/memtree/internal/util"
	"gopkg.in/yaml.v3"
)

// Config contains runtime configuration values for a mounted volume.
type Config struct {
	MountOptions

	LogLvl util.LogLevel // internal log verbosity

	TotalSize       int64  // volume byte budget (Default 2 GiB, minimum 512)
	CaseInsensitive bool   // names compare ordinal-ignore-case (Default true)
	Label           string // volume label reported to the host driver
	SecuritySDDL    string // SDDL string applied to the root's security descriptor, empty for none
	VolumeID        string // opaque volume identifier attached to the engine's log lines; empty by default (the CLI fills in a fresh uuid)
}

// NewConfig creates a Config from defaults, applying override's non-nil
// fields on top. A nil override returns the defaults unchanged.
func NewConfig(override *ConfigOverride) *Config {
	cfg := createDefaultCfg()
	if override != nil {
		cfg.merge(override)
	}
	return cfg
}

func createDefaultCfg() *Config {
	return &Config{
		MountOptions: MountOptions{
			FsName: DefaultFileSystemName,
			Name:   DefaultLabel,
		},
		LogLvl:          DefaultLogLvl,
		TotalSize:       DefaultTotalSize,
		CaseInsensitive: DefaultCaseInsensitive,
		Label:           DefaultLabel,
	}
}

// ConfigOverride uses pointer fields to distinguish between unset and zero
// values when loading partial configuration. See [Config] for field
// descriptions. LogLvl carries a CLI verbosity level (1-5, as taken by
// the --verbose/-v flag), not a util.LogLevel directly; see verbosityToLevel.
type ConfigOverride struct {
	TotalSize       *int64  `yaml:"total_size,omitempty" json:"total_size,omitempty"`
	CaseInsensitive *bool   `yaml:"case_insensitive,omitempty" json:"case_insensitive,omitempty"`
	Label           *string `yaml:"label,omitempty" json:"label,omitempty"`
	SecuritySDDL    *string `yaml:"security_sddl,omitempty" json:"security_sddl,omitempty"`
	VolumeID        *string `yaml:"volume_id,omitempty" json:"volume_id,omitempty"`
	Debug           *bool   `yaml:"debug,omitempty" json:"debug,omitempty"`
	FsName          *string `yaml:"fs_name,omitempty" json:"fs_name,omitempty"`
	Name            *string `yaml:"name,omitempty" json:"name,omitempty"`
	LogLvl          *int    `yaml:"log_lvl,omitempty" json:"log_lvl,omitempty"`
}

// verbosityToLevel maps a CLI verbosity level (the --verbose/-v value) onto a
// util.LogLevel, clamped to [1,5]: 1=Error .. 5=Trace.
func verbosityToLevel(verbose int) util.LogLevel {
	switch {
	case verbose <= 1:
		return util.ErrorLevel
	case verbose == 2:
		return util.WarnLevel
	case verbose == 3:
		return util.InfoLevel
	case verbose == 4:
		return util.DebugLevel
	default:
		return util.TraceLevel
	}
}

// merge applies non-nil values from override onto this Config.
func (c *Config) merge(override *ConfigOverride) {
	if override.TotalSize != nil {
		c.TotalSize = *override.TotalSize
	}
	if override.CaseInsensitive != nil {
		c.CaseInsensitive = *override.CaseInsensitive
	}
	if override.Label != nil {
		c.Label = *override.Label
	}
	if override.SecuritySDDL != nil {
		c.SecuritySDDL = *override.SecuritySDDL
	}
	if override.VolumeID != nil {
		c.VolumeID = *override.VolumeID
	}
	if override.Debug != nil {
		c.Debug = *override.Debug
	}
	if override.FsName != nil {
		c.FsName = *override.FsName
	}
	if override.Name != nil {
		c.Name = *override.Name
	}
	if override.LogLvl != nil {
		c.LogLvl = verbosityToLevel(*override.LogLvl)
	}
}

// ParseSize parses a decimal byte count with an optional K/M/G/T suffix
// (case-insensitive, per §6). Returns an error on a malformed number or on
// overflow of the suffix's bit shift.
func ParseSize(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}
	mult := int64(1)
	suffix := s[len(s)-1]
	switch suffix {
	case 'k', 'K':
		mult = KB
	case 'm', 'M':
		mult = MB
	case 'g', 'G':
		mult = GB
	case 't', 'T':
		mult = TB
	}
	numPart := s
	if mult != 1 {
		numPart = s[:len(s)-1]
	}
	n, err := strconv.ParseInt(numPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid size %q: negative", s)
	}
	result := n * mult
	if mult != 1 && result/mult != n {
		return 0, fmt.Errorf("invalid size %q: overflow", s)
	}
	return result, nil
}

// LoadConfigOverrideFile loads configuration overrides from a file without
// merging. Supports both YAML (.yaml, .yml) and JSON (.json) formats.
func LoadConfigOverrideFile(path string) (*ConfigOverride, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var override ConfigOverride

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown config file extension: %s", path)
	}

	return &override, nil
}

// NewConfigFromFile creates a new Config by merging file overrides with
// defaults. This is a convenience function combining NewConfig and
// LoadConfigOverrideFile.
func NewConfigFromFile(path string) (*Config, error) {
	override, err := LoadConfigOverrideFile(path)
	if err != nil {
		return nil, err
	}
	return NewConfig(override), nil
}
