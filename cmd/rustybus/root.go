package main

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"rustybus/internal/config"
	"rustybus/internal/dispatch"
	"rustybus/internal/invocation"
	"rustybus/internal/logging"
)

const (
	envLogLevel  = "RUSTYBUS_LOG_LEVEL"
	envLogFormat = "RUSTYBUS_LOG_FORMAT"
	envLogFile   = "RUSTYBUS_LOG_FILE"
)

type rootFlags struct {
	config      string
	envFile     string
	backend     string
	gracePeriod time.Duration
	properties  bool
	logLevel    string
	logFormat   string
	logFile     string
}

func newRootCommand() *cobra.Command {
	var flags rootFlags
	ctx := newCommandContext(&flags)

	rootCmd := &cobra.Command{
		Use:   invocation.Usage,
		Short: "Send, receive, or peek at one message on a queue",
		Long: "Send piped stdin as a message, or receive or peek at the next message\n" +
			"on a queue. Received bodies are printed as compact JSON.",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := logging.Options{
				Level:  firstSet(flags.logLevel, os.Getenv(envLogLevel)),
				Format: firstSet(flags.logFormat, os.Getenv(envLogFormat)),
				Writer: cmd.ErrOrStderr(),
			}
			if file := firstSet(flags.logFile, os.Getenv(envLogFile)); file != "" {
				opts.OutputPaths = []string{file}
			}
			logger, err := logging.New(opts)
			if err != nil {
				return err
			}

			graceSet := cmd.Flags().Changed("grace-period")
			d := &dispatch.Dispatcher{
				Stdin:  cmd.InOrStdin(),
				Stdout: cmd.OutOrStdout(),
				Logger: logger,
				ResolveGracePeriod: func() time.Duration {
					return ctx.gracePeriod(flags.gracePeriod, graceSet)
				},
				LoadConfig:     ctx.ensureConfig,
				ShowProperties: flags.properties,
			}
			return d.Run(cmd.Context(), append([]string{"rustybus"}, args...))
		},
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.config, "config", "c", "", "Configuration file path")
	pf.StringVar(&flags.envFile, "env-file", ".env", "Dotenv file with queue credentials")
	pf.StringVar(&flags.backend, "backend", "", "Queue backend ("+strings.Join(config.Backends(), ", ")+")")
	pf.DurationVar(&flags.gracePeriod, "grace-period", dispatch.DefaultGracePeriod, "How long to wait for piped input")
	pf.BoolVar(&flags.properties, "properties", false, "Print message properties after the body")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&flags.logFormat, "log-format", "", "Log format (console, json)")
	pf.StringVar(&flags.logFile, "log-file", "", "Write logs to this file instead of stderr")

	return rootCmd
}

func firstSet(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
