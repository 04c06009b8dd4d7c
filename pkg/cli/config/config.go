package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/secmon-lab/asclepius/pkg/domain/model"
	"github.com/secmon-lab/asclepius/pkg/domain/types"
	"github.com/urfave/cli/v3"
)

const (
	defaultPollInterval = 10 * time.Second
	defaultBatchSize    = 20
)

// AppConfig is the TOML file describing the hospital: static capacity,
// the staff callout roster, delivery settings and treatment areas.
type AppConfig struct {
	Capacity     CapacityConfig        `toml:"capacity"`
	Callouts     []model.CalloutTarget `toml:"callout"`
	Notification NotificationConfig    `toml:"notification"`
	Areas        []Area                `toml:"area"`
}

// CapacityEntry is one pool of the static snapshot. Available defaults to Total.
type CapacityEntry struct {
	Total     int  `toml:"total"`
	Available *int `toml:"available"`
}

func (e CapacityEntry) toModel() model.CapacityEntry {
	available := e.Total
	if e.Available != nil {
		available = *e.Available
	}
	return model.CapacityEntry{Total: e.Total, Available: available}
}

func (e CapacityEntry) validate(category types.ResourceCategory) error {
	entry := e.toModel()
	if entry.Total < 0 || entry.Available < 0 || entry.Available > entry.Total {
		return goerr.Wrap(ErrInvalidCapacity, "available must be between 0 and total",
			goerr.V(CategoryKey, category),
			goerr.V("total", entry.Total),
			goerr.V("available", entry.Available))
	}
	return nil
}

// CapacityConfig is used when no hospital information system is configured
type CapacityConfig struct {
	Beds           *CapacityEntry           `toml:"beds"`
	ICUBeds        *CapacityEntry           `toml:"icu_beds"`
	OperatingRooms *CapacityEntry           `toml:"operating_rooms"`
	Blood          map[string]CapacityEntry `toml:"blood"`
	Staff          map[string]CapacityEntry `toml:"staff"`
}

// NotificationConfig tunes the delivery worker and retry budget
type NotificationConfig struct {
	MaxAttempts  int    `toml:"max_attempts"`
	PollInterval string `toml:"poll_interval"`
	BatchSize    int    `toml:"batch_size"`
}

// Area is a treatment area victims can be assigned to
type Area struct {
	ID   string `toml:"id"`
	Name string `toml:"name"`
}

// Snapshot converts the capacity section into a capacity snapshot
func (c *CapacityConfig) Snapshot() model.CapacitySnapshot {
	snap := make(model.CapacitySnapshot)
	if c.Beds != nil {
		snap[types.ResourceBed] = c.Beds.toModel()
	}
	if c.ICUBeds != nil {
		snap[types.ResourceICUBed] = c.ICUBeds.toModel()
	}
	if c.OperatingRooms != nil {
		snap[types.ResourceOperatingRoom] = c.OperatingRooms.toModel()
	}
	for bloodType, e := range c.Blood {
		snap[types.BloodUnit(bloodType)] = e.toModel()
	}
	for role, e := range c.Staff {
		snap[types.Staff(role)] = e.toModel()
	}
	return snap
}

// Validate checks every pool
func (c *CapacityConfig) Validate() error {
	fixed := map[types.ResourceCategory]*CapacityEntry{
		types.ResourceBed:           c.Beds,
		types.ResourceICUBed:        c.ICUBeds,
		types.ResourceOperatingRoom: c.OperatingRooms,
	}
	for category, e := range fixed {
		if e == nil {
			continue
		}
		if err := e.validate(category); err != nil {
			return err
		}
	}

	for bloodType, e := range c.Blood {
		category := types.BloodUnit(bloodType)
		if err := category.Validate(); err != nil {
			return goerr.Wrap(ErrInvalidCapacity, "unknown blood type", goerr.V(CategoryKey, category))
		}
		if err := e.validate(category); err != nil {
			return err
		}
	}
	for role, e := range c.Staff {
		category := types.Staff(role)
		if err := category.Validate(); err != nil {
			return goerr.Wrap(ErrInvalidCapacity, "invalid staff role", goerr.V(CategoryKey, category))
		}
		if err := e.validate(category); err != nil {
			return err
		}
	}
	return nil
}

// Interval returns the worker poll interval, defaulting when unset
func (n *NotificationConfig) Interval() time.Duration {
	if n.PollInterval == "" {
		return defaultPollInterval
	}
	// Validate has already rejected unparsable values
	d, _ := time.ParseDuration(n.PollInterval)
	return d
}

// Batch returns the worker batch size, defaulting when unset
func (n *NotificationConfig) Batch() int {
	if n.BatchSize == 0 {
		return defaultBatchSize
	}
	return n.BatchSize
}

func (n *NotificationConfig) Validate() error {
	if n.MaxAttempts < 0 {
		return goerr.Wrap(ErrInvalidConfig, "max_attempts must not be negative", goerr.V("max_attempts", n.MaxAttempts))
	}
	if n.BatchSize < 0 {
		return goerr.Wrap(ErrInvalidConfig, "batch_size must not be negative", goerr.V("batch_size", n.BatchSize))
	}
	if n.PollInterval != "" {
		d, err := time.ParseDuration(n.PollInterval)
		if err != nil {
			return goerr.Wrap(ErrInvalidConfig, "invalid poll_interval", goerr.V("poll_interval", n.PollInterval))
		}
		if d <= 0 {
			return goerr.Wrap(ErrInvalidConfig, "poll_interval must be positive", goerr.V("poll_interval", n.PollInterval))
		}
	}
	return nil
}

// Validate checks if the AppConfig is valid
func (a *AppConfig) Validate() error {
	if err := a.Capacity.Validate(); err != nil {
		return goerr.Wrap(err, "invalid capacity")
	}
	if err := a.Notification.Validate(); err != nil {
		return goerr.Wrap(err, "invalid notification settings")
	}

	callouts := make(map[string]bool)
	for _, target := range a.Callouts {
		if err := target.Validate(); err != nil {
			return goerr.Wrap(err, "invalid callout")
		}
		if callouts[target.Name] {
			return goerr.Wrap(ErrDuplicateCallout, "callout names must be unique", goerr.V(CalloutKey, target.Name))
		}
		callouts[target.Name] = true
	}

	areas := make(map[string]bool)
	for _, area := range a.Areas {
		if area.ID == "" {
			return goerr.Wrap(ErrMissingName, "area id is required", goerr.V("name", area.Name))
		}
		if areas[area.ID] {
			return goerr.Wrap(ErrDuplicateArea, "area ids must be unique", goerr.V(AreaIDKey, area.ID))
		}
		areas[area.ID] = true
	}

	return nil
}

// AreaIDs returns the configured treatment area IDs in file order
func (a *AppConfig) AreaIDs() []string {
	ids := make([]string, 0, len(a.Areas))
	for _, area := range a.Areas {
		ids = append(ids, area.ID)
	}
	return ids
}

// LoadAppConfiguration loads the application configuration from a TOML file
func LoadAppConfiguration(path string) (*AppConfig, error) {
	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, goerr.Wrap(ErrConfigNotFound, err.Error(), goerr.V(ConfigPathKey, path))
		}
		return nil, goerr.Wrap(err, "failed to read config file", goerr.V(ConfigPathKey, path))
	}

	var config AppConfig
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, goerr.Wrap(ErrInvalidConfig, "failed to parse TOML config: "+err.Error(), goerr.V(ConfigPathKey, path))
	}

	if err := config.Validate(); err != nil {
		return nil, goerr.Wrap(err, "config validation failed", goerr.V(ConfigPathKey, path))
	}

	return &config, nil
}

// App holds the --config flag
type App struct {
	path string
}

func (x *App) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to the hospital configuration file (TOML)",
			Sources:     cli.EnvVars("ASCLEPIUS_CONFIG"),
			Destination: &x.path,
		},
	}
}

// Path returns the configured file path
func (x *App) Path() string {
	return x.path
}

// Configure loads the file. Without --config an empty configuration is used.
func (x *App) Configure() (*AppConfig, error) {
	if x.path == "" {
		return &AppConfig{}, nil
	}
	return LoadAppConfiguration(x.path)
}
