// Command talk is the terminal client: account, topic browsing, history and live
// conversations against a parley server.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/parley-app/parley/internal/config"
	"github.com/parley-app/parley/internal/service/api"
	"github.com/parley-app/parley/internal/service/credential"
)

// app carries what every subcommand needs once configuration is loaded.
type app struct {
	cfg    config.ClientConfig
	store  credential.Store
	client *api.Client
	in     io.Reader
	out    io.Writer
}

func newApp(cfg config.ClientConfig, in io.Reader, out io.Writer) (*app, error) {
	path := cfg.TokenPath
	if path == "" {
		defaultPath, err := credential.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = defaultPath
	}
	return &app{
		cfg:    cfg,
		store:  credential.NewFileStore(path),
		client: api.NewClient(cfg.APIBaseURL),
		in:     in,
		out:    out,
	}, nil
}

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	var (
		a       = &app{in: in, out: out}
		debug   bool
		apiURL  string
		envFile string
	)

	root := &cobra.Command{
		Use:           "talk",
		Short:         "Practice conversations with a parley server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(envFile); err != nil && cmd.Flags().Changed("env-file") {
				return fmt.Errorf("load %s: %w", envFile, err)
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if debug || cfg.Debug {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
			if apiURL != "" {
				cfg.Client.APIBaseURL = apiURL
			}

			loaded, err := newApp(cfg.Client, in, out)
			if err != nil {
				return err
			}
			*a = *loaded
			return nil
		},
	}

	root.PersistentFlags().BoolVar(&debug, "debug", false, "log connection details to stderr")
	root.PersistentFlags().StringVar(&apiURL, "api", "", "server base URL (overrides PARLEY_API_URL)")
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")

	root.AddCommand(
		newSignupCmd(a),
		newLoginCmd(a),
		newLogoutCmd(a),
		newForgotPasswordCmd(a),
		newResetPasswordCmd(a),
		newTopicsCmd(a),
		newHistoryCmd(a),
		newStatsCmd(a),
		newChatCmd(a),
	)
	return root
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdin, os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
