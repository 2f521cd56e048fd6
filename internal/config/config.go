package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type BlockDim struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

type Config struct {
	Node struct {
		ListenAddress   string        `yaml:"listenAddress"`
		ListenPort      int           `yaml:"listenPort"`
		MaxUploadBytes  int64         `yaml:"maxUploadBytes"`
		ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	} `yaml:"node"`
	Logger struct {
		Verbosity string `yaml:"verbosity"`
		Format    string `yaml:"format"`
	} `yaml:"logger"`
	GPU struct {
		Backend           string   `yaml:"backend"`
		BlockDim          BlockDim `yaml:"blockDim"`
		DeviceMemoryBytes int64    `yaml:"deviceMemoryBytes"`
		DeviceLabel       string   `yaml:"deviceLabel"`
	} `yaml:"gpu"`
	Engine struct {
		VerifyResults   bool    `yaml:"verifyResults"`
		VerifyTolerance float64 `yaml:"verifyTolerance"`
	} `yaml:"engine"`
	Inventory struct {
		Command string        `yaml:"command"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"inventory"`
}

// Default returns the configuration used when a value is not set in the file.
func Default() *Config {
	var c Config
	c.Node.ListenAddress = "0.0.0.0"
	c.Node.ListenPort = 8020
	c.Node.MaxUploadBytes = 1 << 30
	c.Node.ShutdownTimeout = 10 * time.Second
	c.Logger.Verbosity = "info"
	c.Logger.Format = "json"
	c.GPU.Backend = "auto"
	c.GPU.BlockDim = BlockDim{X: 16, Y: 16}
	c.Engine.VerifyTolerance = 1e-6
	c.Inventory.Command = "nvidia-smi"
	c.Inventory.Timeout = 5 * time.Second
	return &c
}

// LoadConfig reads the YAML file at path on top of Default and validates it.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := Default()
	err = yaml.Unmarshal(data, config)
	if err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return config, nil
}

// Address returns the host:port the HTTP server listens on.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Node.ListenAddress, c.Node.ListenPort)
}

func (c *Config) Validate() error {
	var errs []error

	if c.Node.ListenPort < 0 || c.Node.ListenPort > 65535 {
		errs = append(errs, fmt.Errorf("node.listenPort %d out of range", c.Node.ListenPort))
	}
	if c.Node.MaxUploadBytes <= 0 {
		errs = append(errs, fmt.Errorf("node.maxUploadBytes must be positive"))
	}
	if c.Node.ShutdownTimeout < 0 {
		errs = append(errs, fmt.Errorf("node.shutdownTimeout must not be negative"))
	}

	switch c.Logger.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("logger.format must be json or console, got %q", c.Logger.Format))
	}

	switch c.GPU.Backend {
	case "auto", "cpu", "cuda":
	default:
		errs = append(errs, fmt.Errorf("gpu.backend must be auto, cpu or cuda, got %q", c.GPU.Backend))
	}
	if c.GPU.BlockDim.X <= 0 || c.GPU.BlockDim.Y <= 0 {
		errs = append(errs, fmt.Errorf("gpu.blockDim must be positive, got %dx%d", c.GPU.BlockDim.X, c.GPU.BlockDim.Y))
	} else if c.GPU.BlockDim.X*c.GPU.BlockDim.Y > 1024 {
		errs = append(errs, fmt.Errorf("gpu.blockDim %dx%d exceeds 1024 threads", c.GPU.BlockDim.X, c.GPU.BlockDim.Y))
	}
	if c.GPU.DeviceMemoryBytes < 0 {
		errs = append(errs, fmt.Errorf("gpu.deviceMemoryBytes must not be negative"))
	}

	if c.Engine.VerifyTolerance < 0 {
		errs = append(errs, fmt.Errorf("engine.verifyTolerance must not be negative"))
	}

	if c.Inventory.Command == "" {
		errs = append(errs, fmt.Errorf("inventory.command must be set"))
	}
	if c.Inventory.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("inventory.timeout must be positive"))
	}

	return errors.Join(errs...)
}

// DefaultHome returns the directory fxn keeps its config in: $FXN_HOME, or
// ~/.matrix-node.
func DefaultHome() string {
	if home := os.Getenv("FXN_HOME"); home != "" {
		return home
	}
	dir, err := os.UserHomeDir()
	if err != nil {
		return ".matrix-node"
	}
	return filepath.Join(dir, ".matrix-node")
}

// PathIn returns the config file path inside home.
func PathIn(home string) string {
	return filepath.Join(home, "config.yaml")
}
