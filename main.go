package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"calorie-tracker/config"
	"calorie-tracker/core"
	"calorie-tracker/durable"
	"calorie-tracker/editstate"
	"calorie-tracker/handlers/api/foods"
	"calorie-tracker/handlers/api/inline"
	"calorie-tracker/handlers/api/navigation"
	appMiddleware "calorie-tracker/middleware"
	"calorie-tracker/notify"
	"calorie-tracker/repository"
	"calorie-tracker/seed"
	"calorie-tracker/stores"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	listenFlag   string
	logLevelFlag string
	rootCmd      = &cobra.Command{
		Use:   "calorie-tracker",
		Short: "Track food items and their calories",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(logLevelFlag)
		},
		SilenceUsage: true,
	}
)

// app is everything a command needs to operate on the food list.
type app struct {
	cfg      config.Config
	repo     *repository.Repository
	adapter  *durable.Adapter
	notifier *notify.Notifier
	closer   io.Closer
}

func (a *app) Close() error {
	a.notifier.Stop()
	return a.closer.Close()
}

func setupLogging(level string) error {
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	logrus.SetLevel(lvl)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	return nil
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newApp(ctx, cfg)
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if listenFlag != "" {
		cfg.ListenAddress = listenFlag
	}
	if logLevelFlag == "" {
		// .env may carry LOG_LEVEL too
		if err := setupLogging(cfg.LogLevel); err != nil {
			return config.Config{}, err
		}
	}
	return cfg, nil
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	medium, closer, err := stores.GetMedium(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var opts []repository.Option
	if cfg.SeedFile != "" {
		markup, err := seed.FromFile(cfg.SeedFile, cfg.SeedListID)
		if err != nil {
			closer.Close()
			return nil, err
		}
		opts = append(opts, repository.WithSeeder(markup))
	}

	adapter := durable.NewAdapter(medium, cfg.StorageKey)
	repo := repository.New(adapter, opts...)
	notifier := notify.New(cfg.StatusTimeout)
	repo.Subscribe(func(c core.Change) {
		if msg := notify.Describe(c); msg != "" {
			notifier.Post(msg)
		}
	})

	items := repo.Load(ctx)
	logrus.WithFields(logrus.Fields{
		"items":   len(items),
		"key":     cfg.StorageKey,
		"durable": repo.Durable(),
	}).Info("Food list loaded")

	return &app{cfg: cfg, repo: repo, adapter: adapter, notifier: notifier, closer: closer}, nil
}

func setupRouter(a *app) (*chi.Mux, func()) {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(appMiddleware.Logger)
	r.Use(appMiddleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Content-Length", "Origin", "X-Requested-With"},
		MaxAge:         300, // Maximum value not ignored by any of major browsers
	}))

	ctrl := editstate.NewInline(a.repo)
	pages := navigation.Pages{Form: a.cfg.FormPage, List: a.cfg.ListPage}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/foods", func(r chi.Router) {
			r.Get("/", foods.HandleList(a.repo))
			r.Post("/", foods.HandleAdd(a.repo))
			r.Route("/{id}", func(r chi.Router) {
				r.Put("/", foods.HandleUpdate(a.repo))
				r.Delete("/", foods.HandleRemove(a.repo))
			})
		})
		r.Get("/status", foods.HandleStatus(a.notifier))
		r.Route("/inline", func(r chi.Router) {
			inline.Routes(r, ctrl, a.repo)
		})
		r.Route("/navigation", func(r chi.Router) {
			navigation.Routes(r, a.repo, pages)
		})
	})
	r.Handle("/metrics", promhttp.Handler())

	return r, ctrl.Close
}

func waitForShutdown(srv *http.Server, a *app) {
	signalC := make(chan os.Signal, 1)
	signal.Notify(signalC, os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
	<-signalC

	logrus.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Warn("Server did not shut down cleanly")
	}
	if err := a.Close(); err != nil {
		logrus.WithError(err).Warn("Failed to close storage")
	}
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the food list over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}

			r, closeCtrl := setupRouter(a)
			defer closeCtrl()

			srv := &http.Server{Addr: a.cfg.ListenAddress, Handler: r}
			logrus.WithField("addr", a.cfg.ListenAddress).Info("starting server")
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logrus.WithField("event", "start server").Fatal(err)
				}
			}()

			logrus.Debug("Server is running in the background")
			waitForShutdown(srv, a)
			return nil
		},
	}
	cmd.Flags().StringVar(&listenFlag, "listen", "", "The address to listen on (overrides LISTEN).")
	return cmd
}

func main() {
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "loglevel", "", "The log level (debug, info, warn, error).")
	rootCmd.AddCommand(newServeCmd())
	addItemCommands(rootCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
