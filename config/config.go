// Package config loads planar configuration from a JSON file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	jsoniter "github.com/json-iterator/go"
	"github.com/milosgajdos/go-planar/calibration"
	"github.com/milosgajdos/go-planar/kinematic"
	"github.com/milosgajdos/go-planar/landmark"
	"github.com/milosgajdos/go-planar/log"
)

// EnvPrefix prefixes every environment variable read by Load
const EnvPrefix = "PLANAR_"

const (
	// DriverMemory keeps the calibration in memory
	DriverMemory = "memory"
	// DriverJSON stores the calibration in a JSON file
	DriverJSON = "json"
	// DriverSQLite stores the calibration in a SQLite database
	DriverSQLite = "sqlite"
	// DriverRedis stores the calibration in Redis
	DriverRedis = "redis"
)

var (
	// ErrInvalidConfig is returned when configuration fails validation
	ErrInvalidConfig = errors.New("invalid config")
)

var json = jsoniter.Config{
	EscapeHTML:             true,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	DisallowUnknownFields:  true,
}.Froze()

// Redis configures the Redis calibration store
type Redis struct {
	Address  string `json:"address" validate:"omitempty,hostname_port"`
	Password string `json:"password"`
	DB       int    `json:"db" validate:"gte=0"`
	Key      string `json:"key"`
}

// Store configures the calibration store
type Store struct {
	// Driver selects the store implementation
	Driver string `json:"driver" validate:"oneof=memory json sqlite redis"`
	// Path is the JSON file or SQLite database path
	Path string `json:"path" validate:"required_if=Driver json,required_if=Driver sqlite"`
	// Name is the SQLite calibration profile
	Name string `json:"name"`
	// Redis configures the redis driver
	Redis Redis `json:"redis"`
}

// Tracker configures the tracking loop
type Tracker struct {
	// TickRate is the tracking loop rate in Hz
	TickRate float64 `json:"tick_rate" validate:"gt=0"`
	// Placement places plane positions into 3D world space
	Placement bool `json:"placement"`
}

// Config is planar configuration
type Config struct {
	Filter  kinematic.Config `json:"filter"`
	Target  calibration.Rect `json:"target"`
	Camera  landmark.Frame   `json:"camera"`
	Tracker Tracker          `json:"tracker"`
	Store   Store            `json:"store"`
	Log     log.Options      `json:"log"`
}

// Default returns default configuration
func Default() Config {
	return Config{
		Filter: kinematic.DefaultConfig(),
		Target: calibration.Rect{Width: 0.6, Height: 0.4},
		Camera: landmark.Frame{Width: 640, Height: 480},
		Tracker: Tracker{
			TickRate: 60,
		},
		Store: Store{
			Driver: DriverMemory,
		},
		Log: log.Options{
			Level: "info",
		},
	}
}

// Load returns configuration read from the JSON file at path overlaid on Default.
// The environment, including optional envFiles (.env when none is given), overrides the file.
// Missing env files are ignored. Empty path skips the JSON file.
// It returns error if any source fails to parse or the result is invalid.
func Load(path string, envFiles ...string) (Config, error) {
	c := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}

		if err := json.Unmarshal(data, &c); err != nil {
			return Config{}, fmt.Errorf("decode config %s: %w", path, err)
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}

	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file %s: %w", f, err)
		}
	}

	if err := c.applyEnv(); err != nil {
		return Config{}, err
	}

	if err := c.Validate(); err != nil {
		return Config{}, err
	}

	return c, nil
}

// Validate validates the configuration
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	// struct tags can not reject NaN or Inf
	if err := c.Filter.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if err := c.Target.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if c.Store.Driver == DriverRedis && c.Store.Redis.Address == "" {
		return fmt.Errorf("%w: redis store requires address", ErrInvalidConfig)
	}

	return nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"LOG_LEVEL":      &c.Log.Level,
		"LOG_FILE":       &c.Log.File,
		"STORE_DRIVER":   &c.Store.Driver,
		"STORE_PATH":     &c.Store.Path,
		"STORE_NAME":     &c.Store.Name,
		"REDIS_ADDRESS":  &c.Store.Redis.Address,
		"REDIS_PASSWORD": &c.Store.Redis.Password,
		"REDIS_KEY":      &c.Store.Redis.Key,
	}

	for name, dst := range strs {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			*dst = v
		}
	}

	floats := map[string]*float64{
		"TARGET_WIDTH":      &c.Target.Width,
		"TARGET_HEIGHT":     &c.Target.Height,
		"CAMERA_WIDTH":      &c.Camera.Width,
		"CAMERA_HEIGHT":     &c.Camera.Height,
		"TRACKER_TICK_RATE": &c.Tracker.TickRate,

		"FILTER_POSITION_TIME_CONSTANT":     &c.Filter.PositionTimeConstant,
		"FILTER_VELOCITY_TIME_CONSTANT":     &c.Filter.VelocityTimeConstant,
		"FILTER_ACCELERATION_TIME_CONSTANT": &c.Filter.AccelerationTimeConstant,
		"FILTER_MAX_DT":                     &c.Filter.MaxDt,
		"FILTER_VELOCITY_DEADZONE":          &c.Filter.VelocityDeadzone,
		"FILTER_ACCELERATION_DEADZONE":      &c.Filter.AccelerationDeadzone,
	}

	for name, dst := range floats {
		v, ok := os.LookupEnv(EnvPrefix + name)
		if !ok {
			continue
		}

		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: %s%s: %v", ErrInvalidConfig, EnvPrefix, name, err)
		}
		*dst = f
	}

	if v, ok := os.LookupEnv(EnvPrefix + "TRACKER_PLACEMENT"); ok {
		placement, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %sTRACKER_PLACEMENT: %v", ErrInvalidConfig, EnvPrefix, err)
		}
		c.Tracker.Placement = placement
	}

	if v, ok := os.LookupEnv(EnvPrefix + "REDIS_DB"); ok {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %sREDIS_DB: %v", ErrInvalidConfig, EnvPrefix, err)
		}
		c.Store.Redis.DB = db
	}

	return nil
}
