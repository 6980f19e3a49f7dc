package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/growtradenfts/platform/internal/accounts"
	"github.com/growtradenfts/platform/internal/app"
	"github.com/growtradenfts/platform/internal/config"
	"github.com/growtradenfts/platform/internal/logging"

	log "github.com/sirupsen/logrus"
)

// main runs the CLI entrypoint and exits on unrecoverable command errors.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	errRun := run(ctx, os.Args[1:])
	stop()
	if errRun != nil {
		if errors.Is(errRun, flag.ErrHelp) {
			return
		}
		log.WithError(errRun).Error("command failed")
		os.Exit(1)
	}
}

// run dispatches to serve (default), migrate or create-admin.
func run(ctx context.Context, args []string) error {
	command := "serve"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		command, args = args[0], args[1:]
	}

	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	cfgPath := fs.String("config", "", "config file path (or env CONFIG_PATH)")
	envFile := fs.String("env-file", "", "dotenv file loaded before config (or env ENV_FILE)")
	port := fs.Int("port", 8318, "server port when the config omits one")
	var admin accounts.AdminAccount
	if command == "create-admin" {
		fs.StringVar(&admin.Email, "email", "", "admin email")
		fs.StringVar(&admin.Password, "password", "", "admin password")
		fs.StringVar(&admin.Name, "name", "Administrator", "admin display name")
		fs.StringVar(&admin.WalletAddress, "wallet", "", "admin wallet address (0x + 40 hex)")
	}
	if errParse := fs.Parse(args); errParse != nil {
		return errParse
	}
	if errValidate := validatePort(*port); errValidate != nil {
		return errValidate
	}
	if errEnv := config.LoadEnvFile(*envFile); errEnv != nil {
		return errEnv
	}

	appCfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}
	if strings.TrimSpace(*cfgPath) != "" {
		appCfg.ConfigPath = config.ResolveConfigPath(*cfgPath)
	}
	configPath := config.ResolveConfigPath(appCfg.ConfigPath)

	logCfg, errLogCfg := config.LoadLogConfig(configPath)
	if errLogCfg != nil {
		return errLogCfg
	}
	closer, errLog := logging.Setup(logCfg)
	if errLog != nil {
		return errLog
	}
	defer func() { _ = closer.Close() }()

	switch command {
	case "serve":
		if _, errEnsure := app.EnsureConfig(configPath, *port); errEnsure != nil {
			return errEnsure
		}
		return app.RunServer(ctx, appCfg, *port)
	case "migrate":
		return app.Migrate(ctx, appCfg)
	case "create-admin":
		if strings.TrimSpace(admin.Email) == "" || admin.Password == "" {
			return fmt.Errorf("create-admin requires -email and -password")
		}
		return app.CreateAdmin(ctx, appCfg, admin)
	default:
		return fmt.Errorf("unknown command %q (want serve, migrate or create-admin)", command)
	}
}

func validatePort(port int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("invalid port: %d", port)
	}
	return nil
}
