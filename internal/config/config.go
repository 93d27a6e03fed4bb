package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/alarm-controller/internal/domain/alarm"
)

// Config holds the settings of the alarm controller daemon.
type Config struct {
	// StateFile is the path to the JSON file storing the current state name.
	StateFile string `yaml:"state_file"`
	// KeypadDevice is the input device node the keypad listener grabs.
	KeypadDevice string `yaml:"keypad_device"`
	// KeyPassword is the numeric keypad password. YAML decoding fails for
	// anything that is not an integer, which aborts startup.
	KeyPassword int `yaml:"key_password"`
	// PipeName is the name of the command FIFO created under the temp directory.
	PipeName string `yaml:"pipe_name"`
	// SecretTable maps pipe secrets to signal names (e.g. "open sesame": "disarm").
	SecretTable map[string]string `yaml:"secret_table"`
	// CountdownSeconds is the duration of the pending-state countdowns.
	CountdownSeconds int `yaml:"countdown_seconds"`
	// USBResetDevice is the sysfs bus identifier of the USB device to
	// power-cycle on startup (e.g. "1-1"). Empty skips the reset.
	USBResetDevice string `yaml:"usb_reset_device"`
	// Volume is the initial sound engine volume (0-100).
	Volume int `yaml:"volume"`
	// LogLevel is the minimum logging level (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`
}

const (
	// DefaultConfigFilename is the default filename for controller settings.
	DefaultConfigFilename = "alarm-controller-settings.yaml"

	// DefaultStateFilename is the default filename for the persisted state JSON.
	DefaultStateFilename = "alarm-controller-state.json"

	// DefaultKeypadDevice is the default keypad input device node.
	DefaultKeypadDevice = "/dev/input/by-id/usb-04d9_1203-event-kbd"

	// DefaultPipeName is the default name of the command FIFO.
	DefaultPipeName = "secret"

	// DefaultCountdownSeconds is the default pending-state countdown duration.
	DefaultCountdownSeconds = 30

	// DefaultVolume is the initial sound engine volume.
	DefaultVolume = 50

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errPasswordRequired is returned when the keypad password is missing or not positive.
	errPasswordRequired = errors.New("keypad password must be a positive integer")
)

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and fills defaults.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.KeyPassword <= 0 {
		return errPasswordRequired
	}

	if cfg.PipeName == "" {
		cfg.PipeName = DefaultPipeName
	}

	if strings.ContainsRune(cfg.PipeName, os.PathSeparator) {
		return fmt.Errorf("pipe name %q must not contain path separators", cfg.PipeName)
	}

	if cfg.StateFile == "" {
		cfg.StateFile = DefaultStateFilename
	}

	if cfg.KeypadDevice == "" {
		cfg.KeypadDevice = DefaultKeypadDevice
	}

	if cfg.CountdownSeconds <= 0 {
		cfg.CountdownSeconds = DefaultCountdownSeconds
	}

	if cfg.Volume <= 0 {
		cfg.Volume = DefaultVolume
	}

	for secret, signalName := range cfg.SecretTable {
		if _, ok := alarm.ParseSignal(signalName); !ok {
			return fmt.Errorf("secret table entry %q maps to unknown signal %q", secret, signalName)
		}
	}

	return nil
}
