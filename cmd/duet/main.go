package main

import (
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/duetdev/duet/internal/config"
	"github.com/duetdev/duet/internal/logging"
)

func secondsToDuration(s int) time.Duration {
	return time.Duration(s) * time.Second
}

func main() {
	// Best effort; config and environment take over from here.
	godotenv.Load()

	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("duet"),
		kong.Description("Two-agent role-playing dialogue engine."),
		kong.UsageOnError(),
	)

	cfg, err := config.LoadFile(cli.Config)
	if err != nil {
		kctx.FatalIfErrorf(err)
	}

	logger := logging.New()
	if cli.Verbose {
		logger.SetLevel(logging.LevelDebug)
	}

	err = kctx.Run(&runContext{cfg: cfg, logger: logger})
	if err != nil {
		logger.Error("command failed", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
}
