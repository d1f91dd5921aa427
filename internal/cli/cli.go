// Package cli provides the command line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/nbkit/internal/config"
	"github.com/temirov/nbkit/internal/output"
	"github.com/temirov/nbkit/internal/services/clipboard"
	"github.com/temirov/nbkit/internal/types"
	"github.com/temirov/nbkit/internal/utils"
)

const (
	configFlagName         = "config"
	verboseFlagName        = "verbose"
	versionFlagName        = "version"
	formatFlagName         = "format"
	versionTemplate        = "nbkit version: %s\n"
	defaultRootPath        = "."
	rootUse                = "nbkit"
	rootShortDescription   = "nbkit maintains tutorial script and notebook collections"
	rootLongDescription    = `nbkit finds tutorial scripts and notebooks below a directory and acts on them.
It lists the worklist, converts scripts to notebooks, removes generated scripts,
and executes every tutorial as its own test case.
Settings are read from ~/.nbkit/config.yaml and ./.nbkit.yaml (or --config); flags override them.`
	configFlagDescription  = "configuration file to load instead of ./" + utils.LocalConfigFileName
	verboseFlagDescription = "log per-file progress"
	versionFlagDescription = "display application version"
	formatFlagDescription  = "output format: raw, json or xml"

	logCollectedMessage = "collected worklist"
	logFieldCommand     = "command"
	logFieldRoot        = "root"
	logFieldCount       = "count"

	invalidFormatMessage        = "invalid format value '%s'"
	errorLoadConfigurationFmt   = "load configuration: %w"
	errorLoggerFormat           = "initialize logger: %w"
	errorCollectFormat          = "collect %s: %w"
	errorRenderFormat           = "render %s output: %w"
	errorCopyToClipboardFormat  = "copy to clipboard: %w"
	errorResolveSkipPolicyFmt   = "resolve skip policy: %w"
	errorLoadExcludePatternsFmt = "load exclude patterns: %w"
)

var errVersionShown = errors.New("version shown")

// Dependencies are the external collaborators of the command tree. Zero
// values select the process environment.
type Dependencies struct {
	WorkingDirectory string
	HomeDirectory    string
	Copier           clipboard.Copier
	NewLogger        func(verbose bool) (*zap.Logger, error)
}

type application struct {
	dependencies  Dependencies
	configPath    string
	verbose       bool
	showVersion   bool
	configuration config.ApplicationConfiguration
	logger        *zap.Logger
}

// Execute runs the nbkit application. SIGINT and SIGTERM cancel running subprocesses.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return ExecuteCommand(ctx, NewRootCommand(Dependencies{}), os.Args[1:])
}

// ExecuteCommand executes a command tree built by NewRootCommand with the given arguments.
func ExecuteCommand(ctx context.Context, rootCommand *cobra.Command, arguments []string) error {
	rootCommand.SetArgs(normalizeToggleArguments(rootCommand, arguments))
	executionError := rootCommand.ExecuteContext(ctx)
	if errors.Is(executionError, errVersionShown) {
		return nil
	}
	return executionError
}

// NewRootCommand builds the root Cobra command.
func NewRootCommand(dependencies Dependencies) *cobra.Command {
	if dependencies.Copier == nil {
		dependencies.Copier = clipboard.NewService()
	}
	if dependencies.NewLogger == nil {
		dependencies.NewLogger = utils.NewConsoleLogger
	}
	app := &application{dependencies: dependencies, logger: zap.NewNop()}

	rootCommand := &cobra.Command{
		Use:           rootUse,
		Short:         rootShortDescription,
		Long:          rootLongDescription,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
		PersistentPreRunE: app.prepare,
		PersistentPostRun: func(command *cobra.Command, arguments []string) {
			_ = app.logger.Sync()
		},
	}
	rootCommand.PersistentFlags().StringVar(&app.configPath, configFlagName, "", configFlagDescription)
	registerToggleFlag(rootCommand.PersistentFlags(), &app.verbose, verboseFlagName, false, verboseFlagDescription)
	registerToggleFlag(rootCommand.PersistentFlags(), &app.showVersion, versionFlagName, false, versionFlagDescription)
	rootCommand.AddCommand(
		app.createListCommand(),
		app.createConvertCommand(),
		app.createCleanCommand(),
		app.createTestCommand(),
		app.createInitCommand(),
	)
	rootCommand.InitDefaultHelpCmd()
	rootCommand.InitDefaultCompletionCmd()
	return rootCommand
}

// prepare runs before every command: it answers --version, builds the logger
// and loads the layered configuration.
func (app *application) prepare(command *cobra.Command, arguments []string) error {
	if app.showVersion {
		fmt.Fprintf(command.OutOrStdout(), versionTemplate, utils.GetApplicationVersion())
		return errVersionShown
	}
	logger, loggerError := app.dependencies.NewLogger(app.verbose)
	if loggerError != nil {
		return fmt.Errorf(errorLoggerFormat, loggerError)
	}
	app.logger = logger

	if command.Name() == initCommandName {
		return nil
	}
	configuration, loadError := config.LoadApplicationConfiguration(config.LoadOptions{
		WorkingDirectory: app.dependencies.WorkingDirectory,
		ExplicitFilePath: app.configPath,
		HomeDirectory:    app.dependencies.HomeDirectory,
	})
	if loadError != nil {
		return fmt.Errorf(errorLoadConfigurationFmt, loadError)
	}
	app.configuration = configuration
	return nil
}

// rootArgument returns the collection root. A relative root is joined with
// the injected working directory so it matches the loaded configuration.
func (app *application) rootArgument(arguments []string) string {
	root := defaultRootPath
	if len(arguments) > 0 && strings.TrimSpace(arguments[0]) != "" {
		root = arguments[0]
	}
	if app.dependencies.WorkingDirectory != "" && !filepath.IsAbs(root) {
		return filepath.Join(app.dependencies.WorkingDirectory, root)
	}
	return root
}

// resolveFormat picks the flag value when set, then the configured value,
// then raw.
func resolveFormat(command *cobra.Command, flagValue string, configured string) (string, error) {
	format := types.FormatRaw
	switch {
	case command.Flags().Changed(formatFlagName):
		format = flagValue
	case configured != "":
		format = configured
	}
	format = strings.ToLower(strings.TrimSpace(format))
	if !output.IsSupportedFormat(format) {
		return "", fmt.Errorf(invalidFormatMessage, format)
	}
	return format, nil
}

// resolveToggle picks the flag value when set, then the configured value,
// then the flag default.
func resolveToggle(command *cobra.Command, flagName string, flagValue bool, configured *bool) bool {
	if command.Flags().Changed(flagName) || configured == nil {
		return flagValue
	}
	return *configured
}
