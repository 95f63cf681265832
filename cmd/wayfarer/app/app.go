// Package app wires configuration, logging, and the wayfarer client into the
// CLI command tree.
package app

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	wayfarer "github.com/wayfarerhq/wayfarer"
	"github.com/wayfarerhq/wayfarer/internal/blob"
	"github.com/wayfarerhq/wayfarer/pkg/logging"
)

// App is the CLI application: configuration plus a lazily-constructed client.
type App struct {
	config  *Config
	client  wayfarer.Client
	version string
	commit  string
	date    string
}

// New creates the application, loading configuration from the environment.
func New(version, commit, date string) (*App, error) {
	config, err := LoadConfig()
	if err != nil {
		return nil, err
	}

	a := &App{
		config:  config,
		version: version,
		commit:  commit,
		date:    date,
	}
	a.configureLogging()
	return a, nil
}

// Execute runs the root command with the given arguments.
func (a *App) Execute(ctx context.Context, args []string) error {
	root := a.rootCommand()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// Client returns the wayfarer client, constructing it on first use.
func (a *App) Client() (wayfarer.Client, error) {
	if a.client != nil {
		return a.client, nil
	}

	opts := []wayfarer.Option{
		wayfarer.WithDatabase(a.config.DatabasePath),
		wayfarer.WithOnline(!a.config.Offline),
	}
	if a.config.ServerURL != "" {
		opts = append(opts, wayfarer.WithRemoteServer(a.config.ServerURL, a.config.ServerAPIKey))
	}
	if a.config.OwnerID != "" {
		opts = append(opts, wayfarer.WithOwnerID(a.config.OwnerID))
	}
	if a.config.BlobEndpoint != "" {
		opts = append(opts, wayfarer.WithObjectStore(blob.Config{
			Endpoint:  a.config.BlobEndpoint,
			AccessKey: a.config.BlobAccessKey,
			SecretKey: a.config.BlobSecretKey,
			Bucket:    a.config.BlobBucket,
			Region:    a.config.BlobRegion,
			UseSSL:    true,
		}))
	}

	client, err := wayfarer.New(opts...)
	if err != nil {
		return nil, err
	}
	a.client = client
	return client, nil
}

// Shutdown closes the client if one was constructed.
func (a *App) Shutdown() {
	if a.client == nil {
		return
	}
	if err := a.client.Close(); err != nil {
		logging.Warn().Err(err).Msg("Closing client failed")
	}
	a.client = nil
}

func (a *App) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "wayfarer",
		Short: "Offline-first place record keeping",
		Long: `Wayfarer keeps a canonical local catalog of places merged from
heterogeneous upstream records, and reconciles offline mutations against the
server of record once connectivity returns.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", a.version, a.commit, a.date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.configureLogging()
		},
	}

	flags := root.PersistentFlags()
	flags.BoolVarP(&a.config.Verbose, "verbose", "v", a.config.Verbose, "enable debug logging")
	flags.BoolVarP(&a.config.Quiet, "quiet", "q", a.config.Quiet, "suppress non-error logging")
	flags.StringVarP(&a.config.Output, "output", "o", a.config.Output, "output format: table, json, yaml")
	flags.StringVar(&a.config.DatabasePath, "db", a.config.DatabasePath, "path of the local database")
	flags.StringVar(&a.config.ServerURL, "server", a.config.ServerURL, "base URL of the server of record")
	flags.StringVar(&a.config.OwnerID, "owner", a.config.OwnerID, "owner id for attachment storage paths")
	flags.BoolVar(&a.config.Offline, "offline", a.config.Offline, "start in offline mode")

	root.AddCommand(
		a.placesCommand(),
		a.tripsCommand(),
		a.queueCommand(),
		a.syncCommand(),
		a.observeCommand(),
	)
	return root
}

func (a *App) configureLogging() {
	level := a.config.LogLevel
	if a.config.Verbose {
		level = "debug"
	}
	if a.config.Quiet {
		level = "error"
	}

	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)

	if a.config.LogFormat == "json" {
		logging.SetDefault(logging.New(os.Stderr))
	} else {
		logging.SetDefault(logging.NewConsole())
	}
}

// ExitOnError prints the error to stderr and exits nonzero.
func ExitOnError(err error) {
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(1)
}
