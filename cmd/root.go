package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/nikogura/resume-intake/pkg/api"
	"github.com/nikogura/resume-intake/pkg/config"
	"github.com/nikogura/resume-intake/pkg/identity"
	"github.com/nikogura/resume-intake/pkg/profile"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var verbose bool

//nolint:gochecknoglobals // Cobra boilerplate
var configFile string

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "resume-intake",
	Short: "Keep your candidate profile in sync with the resume service",
	Long: `resume-intake manages the candidate profile stored by the resume service.

Upload a resume PDF to have it parsed, review the merged draft, save it,
and maintain the project and work experience entries on your profile.
The profile is created on first use for the configured identity.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is $HOME/.resume-intake/config.json)")
}

// getVerbose returns the verbose flag value.
func getVerbose() (result bool) {
	result = verbose
	return result
}

// getConfigFile returns the config file path.
func getConfigFile() (result string) {
	result = configFile
	return result
}

// newLogger builds the console logger. --verbose forces debug.
func newLogger(level zerolog.Level) (logger zerolog.Logger) {
	if getVerbose() {
		level = zerolog.DebugLevel
	}
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	logger = zerolog.New(output).Level(level).With().Timestamp().Logger()
	return logger
}

// session bundles everything a backend command needs.
type session struct {
	cfg        config.Config
	logger     zerolog.Logger
	who        identity.Session
	client     *api.Client
	reconciler *profile.Reconciler
}

// openClient loads config, resolves the identity, and builds the API client.
func openClient() (s session, err error) {
	s.cfg, err = config.Load(getConfigFile())
	if err != nil {
		err = errors.Wrap(err, "failed to load config")
		return s, err
	}

	s.logger = newLogger(s.cfg.Level())

	s.who, err = s.cfg.Session()
	if err != nil {
		return s, err
	}

	opts := []api.Option{
		api.WithTimeout(s.cfg.Timeout()),
		api.WithLogger(s.logger),
	}
	if s.who.Token != "" {
		opts = append(opts, api.WithBearerToken(s.who.Token))
	}
	s.client = api.NewClient(s.cfg.APIURL, opts...)

	return s, err
}

// openSession is openClient plus a bootstrapped profile reconciler.
func openSession(ctx context.Context) (s session, err error) {
	s, err = openClient()
	if err != nil {
		return s, err
	}

	s.reconciler = profile.New(s.client, s.who, profile.WithLogger(s.logger))

	s.logger.Debug().Str("api", s.cfg.APIURL).Str("identity", s.who.IdentityKey).Msg("loading profile")

	_, err = s.reconciler.Bootstrap(ctx)
	if err != nil {
		err = errors.Wrap(err, "failed to load profile")
		return s, err
	}

	return s, err
}

// commandContext returns the context every backend command runs under.
func commandContext() (ctx context.Context, cancel context.CancelFunc) {
	ctx, cancel = context.WithTimeout(context.Background(), 2*time.Minute)
	return ctx, cancel
}

func printLines(lines []string) {
	for _, line := range lines {
		fmt.Println(line)
	}
}
