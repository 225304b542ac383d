package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cuemby/timeclock/pkg/auth"
	"github.com/cuemby/timeclock/pkg/client"
	"github.com/cuemby/timeclock/pkg/config"
	"github.com/cuemby/timeclock/pkg/events"
	"github.com/cuemby/timeclock/pkg/geo"
	"github.com/cuemby/timeclock/pkg/log"
	"github.com/cuemby/timeclock/pkg/selfie"
	"github.com/cuemby/timeclock/pkg/storage"
	"github.com/cuemby/timeclock/pkg/timeclock"
	"github.com/cuemby/timeclock/pkg/types"
	"github.com/spf13/cobra"
)

// app wires the client stack for one command invocation
type app struct {
	cfg     *config.Config
	store   *storage.BoltStore
	broker  *events.Broker
	session *auth.Session
	api     *client.Client
	out     io.Writer
	in      *bufio.Reader
}

// loadConfig resolves the configuration and applies global flags on top
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()
	path, _ := flags.GetString("config")

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if flags.Changed("api-url") {
		cfg.APIURL, _ = flags.GetString("api-url")
	}
	if flags.Changed("data-dir") {
		cfg.DataDir, _ = flags.GetString("data-dir")
	}
	if flags.Changed("radius") {
		cfg.RadiusMeters, _ = flags.GetFloat64("radius")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-json") {
		cfg.LogJSON, _ = flags.GetBool("log-json")
	}
	if flags.Changed("timeout") {
		cfg.Timeout, _ = flags.GetDuration("timeout")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	log.Init(log.Config{
		Level:      log.ParseLevel(cfg.LogLevel),
		JSONOutput: cfg.LogJSON,
	})

	store, err := storage.NewBoltStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open local state: %w", err)
	}

	broker := events.NewBroker()
	broker.Start()

	session := auth.NewSession(store, broker)
	api, err := client.NewClient(cfg.APIURL,
		client.WithTokenSource(session),
		client.WithTimeout(cfg.Timeout),
		client.WithUnauthorizedHandler(session.Invalidate),
	)
	if err != nil {
		broker.Stop()
		_ = store.Close()
		return nil, err
	}
	session.Bind(api)

	return &app{
		cfg:     cfg,
		store:   store,
		broker:  broker,
		session: session,
		api:     api,
		out:     cmd.OutOrStdout(),
		in:      bufio.NewReader(cmd.InOrStdin()),
	}, nil
}

func (a *app) close() {
	logger := log.WithComponent("cli")
	if a.cfg.JournalKeep > 0 {
		if n, err := a.store.PruneAttempts(a.cfg.JournalKeep); err != nil {
			logger.Warn().Err(err).Msg("Failed to prune attempt journal")
		} else if n > 0 {
			logger.Debug().Int("removed", n).Msg("Pruned attempt journal")
		}
	}
	a.broker.Stop()
	if err := a.store.Close(); err != nil {
		logger.Warn().Err(err).Msg("Failed to close local state")
	}
}

// withApp runs fn with a wired app and closes it afterwards
func withApp(fn func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()
		return fn(cmd.Context(), a, cmd, args)
	}
}

func (a *app) requireUser(ctx context.Context) (*types.User, error) {
	user, err := a.session.Load(ctx)
	if errors.Is(err, auth.ErrLoginRequired) {
		return nil, fmt.Errorf("not logged in: run 'timeclock login'")
	}
	return user, err
}

func (a *app) requireAdmin(ctx context.Context) (*types.User, error) {
	if _, err := a.requireUser(ctx); err != nil {
		return nil, err
	}
	return a.session.RequireAdmin()
}

func (a *app) newController(locator geo.Locator, camera selfie.Camera) (*timeclock.Controller, error) {
	return timeclock.NewController(timeclock.Config{
		API:     a.api,
		Locator: locator,
		Camera:  camera,
		Notifier: timeclock.Notifiers{
			consoleNotifier{w: os.Stderr},
			timeclock.EventNotifier{Events: a.broker},
		},
		Journal:            a.store,
		Events:             a.broker,
		RadiusMeters:       a.cfg.RadiusMeters,
		SelfieMaxDimension: a.cfg.SelfieMaxDimension,
	})
}

// prompt reads one trimmed line after printing label on stderr
func (a *app) prompt(label string) (string, error) {
	fmt.Fprint(os.Stderr, label)
	line, err := a.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// promptCamera asks for the path of a picture taken with the device camera
func (a *app) promptCamera() selfie.Camera {
	return selfie.CameraFunc(func(ctx context.Context) ([]byte, error) {
		path, err := a.prompt("Take a selfie and enter the image path (empty to cancel): ")
		if err != nil {
			return nil, err
		}
		return selfie.FileCamera{Path: path}.Capture(ctx)
	})
}

// consoleNotifier prints notices for the person at the terminal
type consoleNotifier struct {
	w io.Writer
}

func (n consoleNotifier) Warn(msg string) {
	fmt.Fprintf(n.w, "⚠ %s\n", msg)
}

func (n consoleNotifier) Error(msg string) {
	fmt.Fprintf(n.w, "✗ %s\n", msg)
}

// locatorFlags registers the position source flags on a clock command
func locatorFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("lat", 0, "Current latitude")
	cmd.Flags().Float64("lng", 0, "Current longitude")
	cmd.Flags().String("fix-file", "", "YAML fix file written by a GPS helper")
}

// locatorFor picks the position source: flags first, then the config
func locatorFor(cmd *cobra.Command, cfg *config.Config) (geo.Locator, error) {
	flags := cmd.Flags()
	if path, _ := flags.GetString("fix-file"); path != "" {
		return geo.NewFileLocator(path, cfg.Location.MaxAge), nil
	}
	if flags.Changed("lat") || flags.Changed("lng") {
		if !flags.Changed("lat") || !flags.Changed("lng") {
			return nil, fmt.Errorf("--lat and --lng must be given together")
		}
		lat, _ := flags.GetFloat64("lat")
		lng, _ := flags.GetFloat64("lng")
		return geo.NewStaticLocator(lat, lng), nil
	}
	return cfg.Locator(), nil
}
