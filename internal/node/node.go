// Package node assembles the matrix service as an fx application.
package node

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/fxnlabs/matrix-node/internal/api"
	"github.com/fxnlabs/matrix-node/internal/config"
	"github.com/fxnlabs/matrix-node/internal/gpu"
	"github.com/fxnlabs/matrix-node/internal/inventory"
	"github.com/fxnlabs/matrix-node/internal/logger"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// Module provides every component of a running node. It expects a
// *config.Config to be supplied.
var Module = fx.Module("node",
	fx.Provide(
		NewLogger,
		NewManager,
		NewQuerier,
		NewHandler,
		NewServer,
	),
	fx.Invoke(func(*Server) {}),
)

// Options builds a complete node application for cfg.
func Options(cfg *config.Config) fx.Option {
	return fx.Options(
		fx.Supply(cfg),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		Module,
	)
}

// NewLogger builds the root logger from the logger section of cfg.
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	zapLogger, err := logger.New(cfg.Logger.Verbosity, cfg.Logger.Format)
	if err != nil {
		return nil, err
	}
	return zapLogger.Named("node"), nil
}

// GPUOptions maps the gpu and engine config sections to manager options.
func GPUOptions(cfg *config.Config) gpu.Options {
	return gpu.Options{
		Backend:           cfg.GPU.Backend,
		Block:             gpu.Dim3{X: cfg.GPU.BlockDim.X, Y: cfg.GPU.BlockDim.Y, Z: 1},
		DeviceMemoryBytes: cfg.GPU.DeviceMemoryBytes,
		DeviceLabel:       cfg.GPU.DeviceLabel,
		VerifyResults:     cfg.Engine.VerifyResults,
		VerifyTolerance:   cfg.Engine.VerifyTolerance,
	}
}

// NewManager selects the compute backend and releases it when the app stops.
func NewManager(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*gpu.Manager, error) {
	mgr, err := gpu.NewManager(GPUOptions(cfg), log.Named("gpu"))
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return mgr.Cleanup()
		},
	})
	return mgr, nil
}

func NewQuerier(cfg *config.Config, log *zap.Logger) *inventory.Querier {
	return inventory.New(cfg.Inventory.Command, cfg.Inventory.Timeout, log.Named("inventory"))
}

func NewHandler(cfg *config.Config, log *zap.Logger, mgr *gpu.Manager, querier *inventory.Querier) http.Handler {
	return api.NewRouter(log.Named("api"), mgr, querier, api.Options{
		MaxUploadBytes: cfg.Node.MaxUploadBytes,
	})
}

// Server is the node's HTTP server. It starts listening when the app starts.
type Server struct {
	srv      *http.Server
	listener net.Listener
	log      *zap.Logger
}

// Addr returns the address the server is listening on, or nil before start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func NewServer(lc fx.Lifecycle, cfg *config.Config, handler http.Handler, log *zap.Logger) *Server {
	s := &Server{
		srv: &http.Server{
			Addr:    cfg.Address(),
			Handler: handler,
		},
		log: log.Named("http"),
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", s.srv.Addr)
			if err != nil {
				return err
			}
			s.listener = ln
			s.log.Info("Starting server", zap.String("address", ln.Addr().String()))
			go func() {
				if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					s.log.Error("Server stopped unexpectedly", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cfg.Node.ShutdownTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, cfg.Node.ShutdownTimeout)
				defer cancel()
			}
			s.log.Info("Shutting down server")
			return s.srv.Shutdown(ctx)
		},
	})
	return s
}
