// Package main is an entrypoint for application
package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"golang.org/x/exp/slog"

	"github.com/beargentino/marketbot/app/cmd"
	"github.com/beargentino/marketbot/pkg/logx"
)

var opts struct {
	Run      cmd.Run   `command:"run" description:"run marketbot"`
	Links    cmd.Links `command:"links" description:"print deep links for all active listings and exit"`
	JSONLogs bool      `long:"json-logs" env:"JSON_LOGS" description:"turn on json logs"`
	Debug    bool      `long:"dbg" env:"DEBUG" description:"turn on debug mode"`
}

var version = "unknown"

func getVersion() string {
	v, ok := debug.ReadBuildInfo()
	if !ok || v.Main.Version == "(devel)" {
		return version
	}
	return v.Main.Version
}

func main() {
	fmt.Printf("marketbot, version: %s\n", getVersion())

	// bothost deployments keep the token and admin list in a .env file
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Printf("failed to load .env file: %v\n", err)
	}

	p := flags.NewParser(&opts, flags.Default)
	p.CommandHandler = func(cmd flags.Commander, args []string) error {
		setupLog()

		if err := cmd.Execute(args); err != nil {
			slog.Error("failed to execute command", slog.Any("err", err))
			os.Exit(1)
		}

		return nil
	}

	// after failure command does not return non-zero code
	if _, err := p.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		} else {
			slog.Error("failed to parse flags", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

func setupLog() {
	handler := slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelInfo,
		ReplaceAttr: nil,
	}

	if opts.Debug {
		handler.Level = slog.LevelDebug
		handler.AddSource = true
	}

	var h slog.Handler
	if opts.JSONLogs {
		h = handler.NewJSONHandler(os.Stderr)
	} else {
		h = handler.NewTextHandler(os.Stderr)
	}

	slog.SetDefault(slog.New(logx.RequestIDHandler{Handler: h}))
}
