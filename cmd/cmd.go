// Package cmd implements the davexplorer command
//
// It is in a sub package so it's internals can be re-used elsewhere
package cmd

import (
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"runtime"
	"sync"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/davexplorer/davexplorer/config"
	"github.com/davexplorer/davexplorer/dav"
	"github.com/davexplorer/davexplorer/explorer"
	"github.com/davexplorer/davexplorer/lib/log"
	"github.com/davexplorer/davexplorer/share"
)

// Version of the program
const Version = "v1.1.0"

// Globals
var (
	// Flags
	configPath = Root.PersistentFlags().StringP("config", "", "", "Path to the configuration file")
	gatewayURL = Root.PersistentFlags().StringP("url", "", "", "URL of the gateway serving the WebDAV share")
	username   = Root.PersistentFlags().StringP("user", "u", "", "Username for basic auth")
	password   = Root.PersistentFlags().StringP("pass", "p", "", "Password for basic auth")
	xsrfToken  = Root.PersistentFlags().StringP("xsrf-token", "", "", "Anti-forgery token sent with every request")
	readWrite  = Root.PersistentFlags().BoolP("read-write", "w", false, "Allow operations which modify the share")
	version    bool
	// Errors
	errorCommandNotFound    = errors.New("command not found")
	errorNotEnoughArguments = errors.New("not enough arguments")
	errorTooManyArguments   = errors.New("too many arguments")
)

const (
	exitCodeSuccess = iota
	exitCodeUsageError
	exitCodeUncategorizedError
)

// Root is the main davexplorer command
var Root = &cobra.Command{
	Use:   "davexplorer",
	Short: "Browse and manage files on a WebDAV share behind a self-hosted gateway.",
	Long: `
Davexplorer is a command line program to browse and manage the files of
a WebDAV share served behind a self-hosted gateway.  It can list and
preview files, upload with progress, move, copy and delete entries, and
issue time-limited share links.

Run it with no arguments for this help, with "explore" for the
interactive terminal explorer, or with one of the subcommands below for
one-shot operations.
`,
	Run: func(cmd *cobra.Command, args []string) {
		if version {
			ShowVersion()
			os.Exit(exitCodeSuccess)
		}
		_ = cmd.Usage()
		if len(args) > 0 {
			_, _ = fmt.Fprintf(os.Stderr, "Command not found.\n")
			resolveExitCode(errorCommandNotFound)
		}
		resolveExitCode(nil)
	},
}

func init() {
	Root.Flags().BoolVarP(&version, "version", "V", false, "Print the version number")
	Root.PersistentFlags().VarP(&log.Opt.Level, "log-level", "", "Log level DEBUG|INFO|NOTICE|ERROR")
	Root.PersistentFlags().BoolVarP(&log.Opt.UseJSONLog, "use-json-log", "", false, "Use json log format")
	cobra.OnInitialize(initConfig)
}

// ShowVersion prints the version to stdout
func ShowVersion() {
	fmt.Printf("davexplorer %s\n", Version)
	fmt.Printf("- os/type: %s\n", runtime.GOOS)
	fmt.Printf("- os/arch: %s\n", runtime.GOARCH)
	fmt.Printf("- go/version: %s\n", runtime.Version())
}

// initConfig is run by cobra after initialising the flags
func initConfig() {
	log.InitLogging()
	log.Debugf("davexplorer", "Version %q starting with parameters %q", Version, os.Args)
}

var (
	configOnce   sync.Once
	loadedConfig *config.Config
)

// GetConfig returns the validated configuration, loading it on first
// use.  Command line flags override values from the file and the
// environment.  Exits on invalid configuration.
func GetConfig() *config.Config {
	configOnce.Do(func() {
		cfg, err := config.Load(*configPath)
		if err != nil {
			stdlog.Fatalf("Failed to load config: %v", err)
		}
		if *gatewayURL != "" {
			cfg.URL = *gatewayURL
			cfg.GatewayURL = *gatewayURL
		}
		if *username != "" {
			cfg.Username = *username
		}
		if *password != "" {
			cfg.Password = *password
		}
		if *xsrfToken != "" {
			cfg.XSRFToken = *xsrfToken
		}
		if *readWrite {
			cfg.ReadWrite = true
		}
		if err := cfg.Validate(); err != nil {
			stdlog.Fatalf("Failed to load config: %v", err)
		}
		// flags win over the logging section of the config
		if !Root.PersistentFlags().Changed("log-level") {
			_ = log.Opt.Level.Set(cfg.Logging.Level)
		}
		if !Root.PersistentFlags().Changed("use-json-log") && cfg.Logging.JSON {
			log.Opt.UseJSONLog = true
		}
		log.InitLogging()
		loadedConfig = cfg
	})
	return loadedConfig
}

// errorReadOnly is returned by mutating commands when read-write mode
// is off.
var errorReadOnly = errors.New("share is mounted read-only (use --read-write)")

// CheckWritable errors unless read-write mode is enabled, gating the
// commands which modify the share.
func CheckWritable() error {
	if !GetConfig().ReadWrite {
		return errorReadOnly
	}
	return nil
}

// NewDav creates a dav.Client for the configured share.  Exits on
// failure as the command can't do anything without one.
func NewDav() *dav.Client {
	cfg := GetConfig()
	c, err := dav.New(&http.Client{}, dav.Options{
		URL:       cfg.URL,
		User:      cfg.Username,
		Pass:      cfg.Password,
		XSRFToken: cfg.XSRFToken,
	})
	if err != nil {
		stdlog.Fatalf("Failed to connect to %q: %v", cfg.URL, err)
	}
	return c
}

// NewIssuer creates a share.Issuer talking to the configured gateway.
func NewIssuer() *share.Issuer {
	cfg := GetConfig()
	return share.NewIssuer(&http.Client{}, cfg.GatewayURL, cfg.XSRFToken)
}

// NewExplorer creates an Explorer over the configured share.
func NewExplorer() *explorer.Explorer {
	cfg := GetConfig()
	return explorer.New(explorer.Config{
		Dav:               NewDav(),
		Issuer:            NewIssuer(),
		GatewayURL:        cfg.GatewayURL,
		User:              cfg.Username,
		ReadWrite:         cfg.ReadWrite,
		ShareLifespanDays: cfg.ShareLifespanDays,
	})
}

// CheckArgs checks there are enough arguments and prints a message if not
func CheckArgs(MinArgs, MaxArgs int, cmd *cobra.Command, args []string) {
	if len(args) < MinArgs {
		_ = cmd.Usage()
		_, _ = fmt.Fprintf(os.Stderr, "Command %s needs %d arguments minimum: you provided %d non flag arguments: %q\n", cmd.Name(), MinArgs, len(args), args)
		resolveExitCode(errorNotEnoughArguments)
	} else if len(args) > MaxArgs {
		_ = cmd.Usage()
		_, _ = fmt.Fprintf(os.Stderr, "Command %s needs %d arguments maximum: you provided %d non flag arguments: %q\n", cmd.Name(), MaxArgs, len(args), args)
		resolveExitCode(errorTooManyArguments)
	}
}

// Run the function f once, logging the error and setting the exit
// code.  Failed operations are reported, never retried.
func Run(cmd *cobra.Command, f func() error) {
	err := f()
	if err != nil {
		stdlog.Printf("Failed to %s: %v", cmd.Name(), err)
	}
	resolveExitCode(err)
}

func resolveExitCode(err error) {
	switch {
	case err == nil:
		os.Exit(exitCodeSuccess)
	case errors.Is(err, errorCommandNotFound),
		errors.Is(err, errorNotEnoughArguments),
		errors.Is(err, errorTooManyArguments):
		os.Exit(exitCodeUsageError)
	default:
		os.Exit(exitCodeUncategorizedError)
	}
}

// Main runs davexplorer interpreting flags and commands out of os.Args
func Main() {
	if err := Root.Execute(); err != nil {
		stdlog.Fatalf("Fatal error: %v", err)
	}
}
