package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"quicdemo/internal/app"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to config file (.toml/.yaml/.yml/.json). If empty, auto-detect quicdemo.toml > quicdemo.yaml > quicdemo.yml > quicdemo.json")
		verbose    = flag.Bool("v", false, "Enable debug logging")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, app.Options{ConfigPath: *configPath, Verbose: *verbose}); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
