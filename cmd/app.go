package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dyng/subfeed/database"
	"github.com/dyng/subfeed/service"
	"github.com/dyng/subfeed/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/natefinch/lumberjack"
	"github.com/omeid/uconfig"
)

const shutdownTimeout = 10 * time.Second

type Application struct {
	config  *types.Config
	neo4j   *database.Neo4jDb
	store   *database.Neo4jStore
	service *service.Service
	health  *service.HealthMonitor
}

func NewApplication(config *types.Config) *Application {
	// inject dependencies
	neo4j := database.NewNeo4jDb(config)
	store := database.NewNeo4jStore(neo4j)
	health := service.NewHealthMonitor(store)
	svc := service.NewService(config, store)
	return &Application{
		config:  config,
		neo4j:   neo4j,
		store:   store,
		service: svc,
		health:  health,
	}
}

func (app *Application) Run(ctx context.Context) error {
	// connect to neo4j
	if err := app.neo4j.Connect(); err != nil {
		return err
	}
	defer app.neo4j.Close()

	if err := app.store.EnsureSchema(ctx); err != nil {
		log.Warn("Failed to ensure neo4j schema", "err", err)
	}

	// probe the store in background
	if err := app.health.Start(app.config.Health.Schedule); err != nil {
		return fmt.Errorf("invalid health schedule %q: %w", app.config.Health.Schedule, err)
	}
	defer app.health.Stop()

	return app.listenAndServe(ctx)
}

func (app *Application) listenAndServe(ctx context.Context) error {
	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:         app.config.Server.Addr,
		Handler:      NewRouter(app.service, app.health),
		ReadTimeout:  time.Duration(app.config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(app.config.Server.WriteTimeout) * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		log.Info("Server started", "addr", srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server error", "err", err)
			return err
		}
	case <-ctx.Done():
		log.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Server shutdown error", "err", err)
			return err
		}
	}

	log.Info("Server closed")
	return nil
}

func loadConfig() (*types.Config, error) {
	if err := loadDotenv(".env"); err != nil {
		return nil, err
	}

	path := os.Getenv("SUBFEED_CONFIG")
	if path == "" {
		path = "config.json"
	}

	config := &types.Config{}
	files := uconfig.Files{}
	if _, err := os.Stat(path); err == nil {
		files = append(files, uconfig.Files{{path, json.Unmarshal}}...)
	}
	if _, err := uconfig.Classic(config, files); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return config, nil
}

// loadDotenv exports the variables in path. A missing file is fine.
func loadDotenv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load %s: %w", path, err)
}

func initLogger(config *types.Config) error {
	// log to console by default
	var out io.Writer = os.Stdout
	format := log.TerminalFormat(false)

	if path := config.Log.Path; path != "console" {
		out = &lumberjack.Logger{
			Filename:   path,
			MaxSize:    config.Log.MaxSizeMB,
			MaxBackups: config.Log.MaxBackups,
			MaxAge:     config.Log.MaxAgeDays,
		}
		format = log.LogfmtFormat()
	}

	level, err := log.LvlFromString(config.Log.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", config.Log.Level, err)
	}
	handler := log.StreamHandler(out, format)
	log.Root().SetHandler(log.LvlFilterHandler(level, handler))
	return nil
}
