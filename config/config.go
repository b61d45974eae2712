package config

import (
	"os"
	"sync"
	"time"

	"emperror.dev/errors"
	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

const DefaultLocation = "/etc/ghostio/config.yml"

var (
	mu      sync.RWMutex
	_config *Configuration
)

// BufferConfiguration controls the buffers attached to streams.
type BufferConfiguration struct {
	// The capacity of a buffer allocated for a stream that has not been given
	// one of its own.
	Size int `default:"8192" yaml:"size" json:"size"`

	// Requests for buffers smaller than this are rounded up to it.
	MinSize int `default:"128" yaml:"min_size" json:"min_size"`
}

// WriteConfiguration controls how hard a stream tries to get buffered bytes
// onto a descriptor that is not accepting them.
type WriteConfiguration struct {
	// The number of times a write that made no progress, or that was
	// interrupted, is attempted again before the stream gives up, flags an
	// error and drops the bytes it could not write.
	Attempts uint64 `default:"3" yaml:"attempts" json:"attempts"`

	// The time to wait between attempts.
	RetryDelay time.Duration `default:"0s" yaml:"retry_delay" json:"retry_delay"`
}

// FileConfiguration defines limits and locations for files opened through
// streams.
type FileConfiguration struct {
	// The maximum number of streams open at the same time, including the three
	// standard streams.
	OpenMax int64 `default:"1024" yaml:"open_max" json:"open_max"`

	// Directory where temporary files are created.
	TmpDirectory string `default:"/tmp" yaml:"tmp_directory" json:"tmp_directory"`

	// Prefix given to the names of temporary files.
	TmpPrefix string `default:"tmp-" yaml:"tmp_prefix" json:"tmp_prefix"`
}

// KlogConfiguration defines the behavior of the kernel log.
type KlogConfiguration struct {
	// Messages longer than this are truncated.
	MaxMessage int `default:"1024" yaml:"max_message" json:"max_message"`

	// The number of bytes per second that may be sent to the kernel log before
	// messages are dropped. Zero disables throttling.
	BytesPerSecond int64 `default:"0" yaml:"bytes_per_second" json:"bytes_per_second"`
}

// ResourceConfiguration defines where named resources are looked up.
type ResourceConfiguration struct {
	Directory string `default:"/system/graphics/fonts" yaml:"directory" json:"directory"`

	// Extension appended to a resource name to find its file.
	Extension string `default:".ttf" yaml:"extension" json:"extension"`

	// The resource returned when a requested one cannot be loaded.
	Default string `default:"default" yaml:"default" json:"default"`

	// How long a loaded resource is kept in memory.
	CacheTTL time.Duration `default:"10m" yaml:"cache_ttl" json:"cache_ttl"`
}

type LogConfiguration struct {
	// When set, log entries are also written to this file, which is reopened
	// when it is rotated away.
	File string `yaml:"file" json:"file"`
}

type Configuration struct {
	// The location from where this configuration instance was instantiated.
	path string

	// Determines if the tool should be running in debug mode. This value is
	// ignored if the debug flag is passed through the command line arguments.
	Debug bool `yaml:"debug" json:"debug"`

	Buffers   BufferConfiguration   `yaml:"buffers" json:"buffers"`
	Writes    WriteConfiguration    `yaml:"writes" json:"writes"`
	Files     FileConfiguration     `yaml:"files" json:"files"`
	Klog      KlogConfiguration     `yaml:"klog" json:"klog"`
	Resources ResourceConfiguration `yaml:"resources" json:"resources"`
	Log       LogConfiguration      `yaml:"log" json:"log"`
}

// NewAtPath creates a new struct and sets the path where it should be stored.
// This function does not modify the currently stored global configuration.
func NewAtPath(path string) (*Configuration, error) {
	var c Configuration
	// Configures the default values for many of the configuration options present
	// in the structs. Values set in the configuration file will be overridden.
	if err := defaults.Set(&c); err != nil {
		return nil, errors.Wrap(err, "config: failed to set defaults")
	}
	c.path = path
	return &c, nil
}

// ReadConfiguration reads the configuration from the provided file and returns
// the configuration object that can then be used. Environment variables within
// the file are replaced with their values from the host system.
func ReadConfiguration(path string) (*Configuration, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	c, err := NewAtPath(path)
	if err != nil {
		return nil, err
	}
	b = []byte(os.ExpandEnv(string(b)))
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, errors.Wrap(err, "config: could not parse configuration file")
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Configuration) validate() error {
	switch {
	case c.Buffers.MinSize <= 0:
		return errors.New("config: buffers.min_size must be positive")
	case c.Buffers.Size < c.Buffers.MinSize:
		return errors.New("config: buffers.size must not be smaller than buffers.min_size")
	case c.Files.OpenMax < 3:
		return errors.New("config: files.open_max must leave room for the standard streams")
	case c.Klog.MaxMessage <= 0:
		return errors.New("config: klog.max_message must be positive")
	}
	return nil
}

// GetPath returns the location of the file this configuration was read from.
func (c *Configuration) GetPath() string {
	return c.path
}

// Set the global configuration instance. This is a blocking operation such that
// anything trying to set a different configuration value, or read the
// configuration will be paused until it is complete.
func Set(c *Configuration) {
	mu.Lock()
	defer mu.Unlock()
	_config = c
}

// SetDebugViaFlag turns on debug mode for the global configuration when the
// debug flag was passed on the command line.
func SetDebugViaFlag(d bool) {
	mu.Lock()
	defer mu.Unlock()
	if _config != nil && d {
		_config.Debug = true
	}
}

// Get returns the global configuration instance. If none has been set a
// configuration holding only the default values is returned. The returned
// value must be treated as read-only.
func Get() *Configuration {
	mu.RLock()
	c := _config
	mu.RUnlock()
	if c != nil {
		return c
	}
	c, err := NewAtPath("")
	if err != nil {
		// Defaults are static struct tags, failing to apply them is a programming
		// error.
		panic(err)
	}
	return c
}
