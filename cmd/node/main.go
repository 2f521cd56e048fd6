package main

import (
	"fmt"
	"os"

	"github.com/fxnlabs/matrix-node/internal/config"
	"github.com/fxnlabs/matrix-node/internal/node"
	"go.uber.org/fx"
)

const defaultConfigPath = "config.yaml"

// configPath returns the config file named by NODE_CONFIG, or config.yaml.
func configPath() string {
	if p := os.Getenv("NODE_CONFIG"); p != "" {
		return p
	}
	return defaultConfigPath
}

// newApp builds the node application for cfg.
func newApp(cfg *config.Config, opts ...fx.Option) *fx.App {
	return fx.New(append([]fx.Option{node.Options(cfg)}, opts...)...)
}

func main() {
	cfg, err := config.LoadConfig(configPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	newApp(cfg).Run()
}
