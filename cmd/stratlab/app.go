package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jefrnc/stratlab/internal/api"
	"github.com/jefrnc/stratlab/internal/auth"
	"github.com/jefrnc/stratlab/internal/config"
	"github.com/jefrnc/stratlab/internal/session"
)

// app is everything a command needs once configuration is loaded.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	store    *session.Store
	client   *api.Client
	auth     *auth.Service
	registry *prometheus.Registry
	closers  []func() error
}

// globalFlags registers the flags every command shares.
func globalFlags(fs *flag.FlagSet) *config.Overrides {
	o := &config.Overrides{}
	fs.StringVar(&o.APIURL, "api-url", "", "Backend base URL (default: http://localhost:8000)")
	fs.StringVar(&o.DataDir, "data-dir", "", "Data directory (default: ./data)")
	fs.StringVar(&o.LogLevel, "log-level", "", "Log level: debug, info, warn, error")

	// Short aliases
	fs.StringVar(&o.DataDir, "d", "", "")
	return o
}

func usage(fs *flag.FlagSet, synopsis string) {
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: stratlab %s\n\nOptions:\n", synopsis)
		fs.PrintDefaults()
	}
}

func newApp(o *config.Overrides) (*app, error) {
	cfg, err := config.Load(*o)
	if err != nil {
		return nil, err
	}

	logger := setupLogger(cfg.LogLevel)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	a := &app{cfg: cfg, logger: logger}

	var storage session.Storage
	switch cfg.SessionBackend {
	case config.SessionBackendSQLite:
		s, err := session.OpenSQLiteStorage(cfg.DataDir)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, s.Close)
		storage = s
	default:
		storage = session.NewFileStorage(cfg.DataDir)
	}

	a.store = session.NewStore(storage)
	if err := a.store.Load(); err != nil {
		logger.Warn("could not restore session", zap.Error(err))
	}

	a.registry = prometheus.NewRegistry()
	a.client = api.NewClient(cfg.APIURL, cfg.UserAgent, a.store,
		api.WithTimeout(cfg.Timeout),
		api.WithLogger(logger),
		api.WithMetrics(api.NewMetrics(a.registry)),
	)
	a.auth = auth.NewService(a.client, a.store, logger)

	logger.Debug("configuration loaded",
		zap.String("api_url", cfg.APIURL),
		zap.String("data_dir", cfg.DataDir),
		zap.String("session_backend", cfg.SessionBackend))
	return a, nil
}

// Close flushes metrics and releases storage.
func (a *app) Close() {
	if a.cfg.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(a.cfg.MetricsFile, a.registry); err != nil {
			a.logger.Warn("writing metrics file", zap.String("path", a.cfg.MetricsFile), zap.Error(err))
		}
	}
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.logger.Warn("close failed", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

func setupLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	zapConfig := zap.Config{
		Level:       zap.NewAtomicLevelAt(zapLevel),
		Development: false,
		Encoding:    "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "time",
			LevelKey:       "level",
			NameKey:        "logger",
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
		},
		// Tables go to stdout; logs stay out of the way on stderr.
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := zapConfig.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

// splitList splits a comma separated flag value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseIDs(s string) ([]int64, error) {
	var ids []int64
	for _, part := range splitList(s) {
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseID(args []string, what string) (int64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("expected exactly one %s id", what)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s id %q", what, args[0])
	}
	return id, nil
}

// prompter reads answers from stdin line by line.
type prompter struct {
	in *bufio.Reader
}

func newPrompter() *prompter {
	return &prompter{in: bufio.NewReader(os.Stdin)}
}

func (p *prompter) ask(question string) (string, error) {
	fmt.Print(question)
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (p *prompter) confirm(question string) bool {
	answer, err := p.ask(question + " [y/N]: ")
	if err != nil {
		return false
	}
	switch strings.ToLower(answer) {
	case "y", "yes", "はい":
		return true
	}
	return false
}
