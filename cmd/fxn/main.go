package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/fxnlabs/matrix-node/internal/config"
	"github.com/fxnlabs/matrix-node/internal/logger"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

// env is filled in by the app's Before hook and shared by every command.
type env struct {
	home   string
	cfg    *config.Config
	log    *zap.Logger
	stdout io.Writer
}

func newApp(e *env) *cli.App {
	return &cli.App{
		Name:  "fxn",
		Usage: "Run and exercise the GPU matrix addition node",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "home",
				Value:       config.DefaultHome(),
				Usage:       "Path to the fxn home directory",
				EnvVars:     []string{"FXN_HOME"},
				Destination: &e.home,
			},
		},
		Before: func(c *cli.Context) error {
			var err error
			e.cfg, err = config.LoadConfig(config.PathIn(e.home))
			if errors.Is(err, fs.ErrNotExist) {
				e.cfg = config.Default()
			} else if err != nil {
				return err
			}
			zapLogger, err := logger.New(e.cfg.Logger.Verbosity, e.cfg.Logger.Format)
			if err != nil {
				return err
			}
			e.log = zapLogger.Named("cli")
			if c.App.Writer != nil {
				e.stdout = c.App.Writer
			}
			return nil
		},
		Commands: []*cli.Command{
			initCommand(e),
			startCommand(e),
			checkCommand(e),
			gpuInfoCommand(e),
			addCommand(e),
			generateCommand(e),
		},
	}
}

func main() {
	e := &env{stdout: os.Stdout}
	app := newApp(e)

	if err := app.Run(os.Args); err != nil {
		if e.log != nil {
			e.log.Fatal("failed to run app", zap.Error(err))
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
}
