package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"secmonitor/internal/config"
	"secmonitor/internal/pkg/logger"
)

// version 构建时通过 -ldflags 注入
var version = "dev"

// globalOptions 所有子命令共享的参数
type globalOptions struct {
	configPath string
	env        string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "secmonitor",
		Short: "Continuous security posture monitoring",
		Long: `secmonitor ingests completed security assessment snapshots,
evaluates per-tenant alert thresholds, dispatches notifications and
serves dashboards and trend analysis over HTTP.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config directory (default $SECMONITOR_CONFIG_PATH or ./configs)")
	cmd.PersistentFlags().StringVarP(&opts.env, "env", "e", "", "environment: development, test, production (default $SECMONITOR_ENV)")

	cmd.AddCommand(newServeCmd(opts), newMigrateCmd(opts))
	cmd.CompletionOptions.DisableDefaultCmd = true
	cmd.SetVersionTemplate(fmt.Sprintf("secmonitor version %s\n", version))
	return cmd
}

// loadRuntime 加载配置并初始化日志
func loadRuntime(opts *globalOptions) (*config.Config, *logger.LoggerManager, error) {
	cfg, err := config.LoadConfig(opts.configPath, opts.env)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.App.Version == "" {
		cfg.App.Version = version
	}

	lm, err := logger.InitLogger(&cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, lm, nil
}
