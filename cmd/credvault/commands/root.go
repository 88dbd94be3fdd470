package commands

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"credvault/internal/app"
)

var (
	home        string
	backend     string
	keyStrategy string
	logLevel    string
	vault       *app.Wire
)

// Execute runs the CLI against os.Args.
func Execute() error {
	return execute(newRootCmd())
}

// execute runs root and closes the vault whether or not the command failed.
func execute(root *cobra.Command) error {
	err := root.Execute()
	if vault != nil {
		err = errors.Join(err, vault.Close())
		vault = nil
	}
	return err
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "credvault",
		Short:        "Device-local credential vault",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if home == "" {
				home = os.Getenv("CREDVAULT_HOME")
			}
			if home == "" {
				dir, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				home = filepath.Join(dir, ".credvault")
			}
			if err := os.MkdirAll(home, 0o700); err != nil {
				return err
			}

			cfg, err := app.LoadConfig(home)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("backend") {
				cfg.Backend = backend
			}
			if flags.Changed("key-strategy") {
				cfg.KeyStrategy = keyStrategy
			}
			if flags.Changed("log-level") {
				cfg.LogLevel = logLevel
			}

			logger, err := app.NewLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			logger.SetOutput(cmd.ErrOrStderr())

			vault, err = app.NewWire(cfg, logger)
			return err
		},
	}

	root.PersistentFlags().StringVar(&home, "home", "", "vault dir (default $CREDVAULT_HOME or ~/.credvault)")
	root.PersistentFlags().StringVar(&backend, "backend", app.BackendFile, "storage backend: file, badger or memory")
	root.PersistentFlags().StringVar(&keyStrategy, "key-strategy", app.StrategyAuto, "key strategy: auto, mlkem768-x25519, x25519 or rsa-oaep")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level")

	root.AddCommand(
		persistCmd(),
		listCmd(),
		resumeCmd(),
		removeCmd(),
		removeAllCmd(),
		rotateCmd(),
		statusCmd(),
		agreeCmd(),
	)
	return root
}
