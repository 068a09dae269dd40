package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/systemstart/assetpipe/pkg/api"
	"github.com/systemstart/assetpipe/pkg/logging"
	"github.com/systemstart/assetpipe/pkg/processing"
)

var version = "dev"

const (
	_ = iota
	exitNoTask
	exitLoggingInitFailed
	exitDotenvError
	exitLoadConfigurationFailed
	exitUnknownTask
	exitSessionFailed
	exitTaskFailed
	exitServeFailed
)

var (
	configFile  string
	projectDir  string
	port        int
	openBrowser bool
	listTasks   bool
	loggingType string
	logLevel    string
	showVersion bool
)

func init() {
	flag.StringVar(
		&configFile,
		"config",
		api.DefaultConfigFilename,
		"pipeline configuration file, relative to -dir (built-in defaults when absent)")
	flag.StringVar(
		&projectDir,
		"dir",
		".",
		"project directory")
	flag.IntVar(
		&port,
		"port",
		0,
		"development server port (0 = from configuration)")
	flag.BoolVar(
		&openBrowser,
		"open",
		false,
		"open the browser when the development server starts (overrides serve.open; -open=false disables it)")
	flag.BoolVar(
		&listTasks,
		"list",
		false,
		"list runnable tasks and exit")
	flag.StringVar(
		&loggingType,
		"logging-type",
		"tint",
		"logging type: json, text or tint")
	flag.StringVar(
		&logLevel,
		"log-level",
		"info",
		"logging level: debug, info, warn, error")
	flag.BoolVar(
		&showVersion,
		"version",
		false,
		"print version and exit")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <task>\n\n", filepath.Base(os.Args[0]))
		fmt.Fprintf(flag.CommandLine.Output(), "<task> is a step or group name, or %q to build, serve and watch.\n\n", api.StartTask)
		flag.PrintDefaults()
	}
}

func main() {
	flag.Parse()

	if showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	if err := logging.Initialize(os.Stderr, loggingType, logLevel); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitLoggingInitFailed)
	}

	includeEnv()
	cfg := loadConfiguration()

	if listTasks {
		printTasks(cfg)
		os.Exit(0)
	}

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(exitNoTask)
	}
	task := flag.Arg(0)
	checkTask(cfg, task)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := processing.NewSession(cfg, projectDir)
	if err != nil {
		slog.Error("failed to set up pipeline", "error", err)
		os.Exit(exitSessionFailed)
	}
	defer session.Close()

	if task == api.StartTask {
		runStart(ctx, session)
	} else {
		runTask(ctx, session, task)
	}

	slog.Info("done", "task", task)
}

func runTask(ctx context.Context, session *processing.Session, task string) {
	if err := session.RunTask(ctx, task); err != nil {
		slog.Error("task failed", "task", task, "error", err)
		session.Close()
		os.Exit(exitTaskFailed)
	}
}

func runStart(ctx context.Context, session *processing.Session) {
	if port != 0 {
		session.Config.Serve.Port = port
	}
	open := session.Config.Serve.Open
	if flagPassed("open") {
		open = openBrowser
	}
	err := session.Start(ctx, processing.StartOptions{OpenBrowser: open})
	if err != nil {
		slog.Error("development server failed", "error", err)
		session.Close()
		os.Exit(exitServeFailed)
	}
}

func loadConfiguration() *api.Config {
	filename := configFile
	if !filepath.IsAbs(filename) {
		filename = filepath.Join(projectDir, filename)
	}

	cfg, err := api.LoadConfigOrDefault(filename, flagPassed("config"))
	if err != nil {
		var cfgErr *api.ConfigError
		if errors.As(err, &cfgErr) {
			slog.Error("invalid configuration", "filename", filename, "error", err)
		} else {
			slog.Error("failed to load configuration", "filename", filename, "error", err)
		}
		os.Exit(exitLoadConfigurationFailed)
	}

	if cfg.FilePath == "" {
		slog.Debug("using built-in configuration")
	} else {
		slog.Debug("using configuration file", "filename", cfg.FilePath)
	}
	return cfg
}

func checkTask(cfg *api.Config, task string) {
	if task == api.StartTask {
		return
	}
	if _, err := cfg.Expand(task); err != nil {
		slog.Error("unknown task", "task", task, "available", cfg.TaskNames())
		os.Exit(exitUnknownTask)
	}
}

func printTasks(cfg *api.Config) {
	for _, name := range cfg.TaskNames() {
		plan, _ := cfg.Expand(name)
		if _, isGroup := cfg.Groups[name]; isGroup {
			fmt.Printf("%-20s group: %v\n", name, plan)
			continue
		}
		step, _ := cfg.Step(name)
		fmt.Printf("%-20s %s\n", name, step.Type)
	}
	fmt.Printf("%-20s %s, then serve and watch\n", api.StartTask, cfg.Serve.Before)
}

func flagPassed(name string) bool {
	passed := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			passed = true
		}
	})
	return passed
}

func includeEnv() {
	err := godotenv.Load(filepath.Join(projectDir, ".env"))
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Error("failed to load .env", "error", err)
			os.Exit(exitDotenvError)
		}
		slog.Debug("no .env file found")
	} else {
		slog.Info("using .env file")
	}
}
