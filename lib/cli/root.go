// Package cli implements the bcgident command line.
package cli

import (
	"errors"

	"github.com/samber/oops"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/xcs-tools/bcg-ident/lib/config"
	"github.com/xcs-tools/bcg-ident/lib/history"
	"github.com/xcs-tools/bcg-ident/lib/util/logger"
)

var log = logger.GetLogger()

// app carries state shared by subcommands once configuration is loaded.
type app struct {
	fs    afero.Fs
	cfg   *config.ProjectConfig
	guard *history.Guard
}

// NewRootCommand builds the command tree. History records are read from and
// written to fsys.
func NewRootCommand(fsys afero.Fs) *cobra.Command {
	a := &app{fs: fsys}

	root := &cobra.Command{
		Use:   "bcgident",
		Short: "Set up and guard a BCG identification project",
		Long: `bcgident records the configuration of a brightest cluster galaxy
identification project (input sample, cosmology, image side length and
imaging missions) in a history file, and refuses to continue when the
declared configuration no longer matches it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}

	root.PersistentFlags().StringVar(&config.CfgFile, "config", "", "config file (default ./bcgident.yaml)")
	root.PersistentFlags().String("history-dir", "", "directory holding the project history record")
	if err := viper.BindPFlag("history.dir", root.PersistentFlags().Lookup("history-dir")); err != nil {
		log.WithError(err).Warn("could not bind history-dir flag")
	}

	root.AddCommand(
		newSetupCommand(a),
		newCheckCommand(a),
		newShowCommand(a),
		newUpdateCommand(a),
		newConfigCommand(a),
		newMissionsCommand(a),
	)
	return root
}

func (a *app) load() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	guard, err := cfg.Guard(a.fs)
	if err != nil {
		return oops.Wrapf(err, "building history guard")
	}
	a.cfg = cfg
	a.guard = guard
	log.WithFields(logger.Fields{
		"at":      "app.load",
		"project": cfg.ProjectName(),
		"history": guard.Path(),
	}).Debug("configuration loaded")
	return nil
}

// Execute runs the command line against the real filesystem.
func Execute() error {
	return execute(NewRootCommand(afero.NewOsFs()))
}

// execute runs root and prints errors that no command has already explained,
// so each failure reaches the user once.
func execute(root *cobra.Command) error {
	err := root.Execute()
	var reported *reportedError
	if err != nil && !errors.As(err, &reported) {
		root.PrintErrln(failStyle.Render("Error:"), err)
	}
	return err
}
