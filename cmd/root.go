package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Tiliavir/rsg-workblocks/internal/config"
	"github.com/Tiliavir/rsg-workblocks/internal/credentials"
	"github.com/Tiliavir/rsg-workblocks/internal/logging"
	"github.com/Tiliavir/rsg-workblocks/internal/note"
	"github.com/Tiliavir/rsg-workblocks/internal/rsgapi"
	"github.com/Tiliavir/rsg-workblocks/internal/storage"
	"github.com/Tiliavir/rsg-workblocks/internal/submit"
)

// app carries state shared by all commands of one invocation.
type app struct {
	cfgFile string
	cfg     config.Config
	log     zerolog.Logger
}

// flag name -> viper key
var boundFlags = map[string]string{
	"url":        config.KeyURL,
	"rse":        config.KeyRSE,
	"token-file": config.KeyTokenFile,
	"log-level":  config.KeyLogLevel,
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var (
		noteFile string
		dryRun   bool
	)

	root := &cobra.Command{
		Use:   "submit-workblocks",
		Short: "Submit completed workblocks to the RSG-Admin API from daily notes",
		Long: `submit-workblocks reads the YAML front matter of a daily note
(a date and a mapping of project slug to effort rate) and creates one
workblock per project for the given RSE.

Workblocks are rejected if any have already been registered for that day.`,
		Example:           "  submit-workblocks -r jdoe -f notes/2024-01-05.md -u https://rsg.example.org",
		Args:              cobra.NoArgs,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSubmit(cmd, noteFile, dryRun)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default: ./config.yaml or ~/.workblocks/config.yaml)")
	pf.StringP("rse", "r", "", "RSE to submit as (LDAP `username`)")
	pf.StringP("url", "u", config.DefaultURL, "API base URL")
	pf.String("token-file", storage.DefaultTokenFile, "file caching the API token")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")

	root.Flags().StringVarP(&noteFile, "file", "f", "", "daily note to submit")
	root.Flags().BoolVar(&dryRun, "dry-run", false, "validate the note against the API without creating workblocks")
	_ = root.MarkFlagRequired("file")

	root.AddCommand(newStatusCmd(a))
	root.AddCommand(newListCmd(a))
	root.AddCommand(newReportCmd(a))
	root.AddCommand(newLoginCmd(a))
	root.AddCommand(newLogoutCmd(a))
	return root
}

// Execute is the entry point called from main.
func Execute() {
	_ = godotenv.Load()
	if err := execute(context.Background(), os.Args[1:], os.Stderr); err != nil {
		os.Exit(1)
	}
}

func execute(ctx context.Context, args []string, stderr io.Writer) error {
	root := newRootCmd()
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(stderr, err)
	}
	return err
}

// setup resolves configuration (flags > env > config file > defaults) and the logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	v, err := config.NewViper(a.cfgFile)
	if err != nil {
		return err
	}
	for name, key := range boundFlags {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
			return fmt.Errorf("binding --%s: %w", name, err)
		}
	}
	a.cfg = config.Load(v)

	a.log, err = logging.New(cmd.ErrOrStderr(), a.cfg.LogLevel)
	return err
}

// submitter authenticates and resolves the configured RSE.
func (a *app) submitter(cmd *cobra.Command, dryRun bool) (*submit.Submitter, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}
	client := rsgapi.NewClient(a.cfg.URL, &http.Client{Timeout: a.cfg.Timeout})
	creds := &credentials.Provider{
		Cache:    storage.NewTokenFile(a.cfg.TokenFile),
		Prompter: credentials.NewTerminal(cmd.InOrStdin(), cmd.ErrOrStderr()),
	}
	return submit.New(cmd.Context(), client, creds, a.cfg.RSE, submit.Options{
		WorkblockType: a.cfg.WorkblockType,
		DryRun:        dryRun,
		Logger:        a.log,
	})
}

func (a *app) runSubmit(cmd *cobra.Command, noteFile string, dryRun bool) error {
	// Parse first so a broken note never costs a login prompt.
	n, err := note.Load(noteFile)
	if err != nil {
		return err
	}

	s, err := a.submitter(cmd, dryRun)
	if err != nil {
		return err
	}

	created, err := s.SubmitNote(cmd.Context(), n)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if dryRun {
		fmt.Fprintf(out, "Dry run: %d workblock(s) for %s validated, nothing submitted.\n", len(n.Projects), n.Date)
		return nil
	}
	fmt.Fprintf(out, "Submitted %d workblock(s) for %s.\n", len(created), n.Date)
	return nil
}
