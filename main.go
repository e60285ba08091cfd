package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/phusion/zangetsu/internal/cli"
	"github.com/phusion/zangetsu/internal/config"

	"github.com/google/subcommands"
	"github.com/lmittmann/tint"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	cli.Register(subcommands.DefaultCommander)
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(int(subcommands.ExitUsageError))
		}
		cfg = loaded
	}

	// validated by Load
	level, _ := cfg.Level()
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
	})))

	os.Exit(int(subcommands.Execute(context.Background(), cfg)))
}
