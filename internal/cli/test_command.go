package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/nbkit/internal/collector"
	"github.com/temirov/nbkit/internal/config"
	"github.com/temirov/nbkit/internal/execute"
	"github.com/temirov/nbkit/internal/output"
	"github.com/temirov/nbkit/internal/types"
)

const (
	testUse              = "test [root]"
	testAlias            = "t"
	testShortDescription = "execute every tutorial as a test case (" + testAlias + ")"
	testLongDescription  = `Execute every tutorial below root end to end and report one test case per file.
Scripts run with the interpreter; notebooks run through "jupyter nbconvert --execute" with a per-notebook timeout.
A failing tutorial fails only its own case. The command exits non-zero when any case did not pass.`
	testUsageExample = `  # Run the tutorial scripts below tutorials
  nbkit test tutorials

  # Run notebooks four at a time with a ten minute budget each
  nbkit t tutorials --suffix .ipynb --jobs 4 --timeout 10m

  # Stop at the first failure and print a JSON report
  nbkit test --fail-fast --format json`

	jobsFlagName                  = "jobs"
	jobsFlagDescription           = "number of tutorials run at the same time"
	timeoutFlagName               = "timeout"
	timeoutFlagDescription        = "execution budget of a single notebook"
	scriptTimeoutFlagName         = "script-timeout"
	scriptTimeoutFlagDescription  = "execution budget of a single script, 0 disables the limit"
	interpreterFlagName           = "interpreter"
	interpreterFlagDescription    = "executable running tutorial scripts"
	notebookCommandFlagName       = "notebook-command"
	notebookCommandDescription    = "executable providing nbconvert"
	failFastFlagName              = "fail-fast"
	failFastFlagDescription       = "stop starting tutorials after the first failure"
	runInDirectoryFlagName        = "run-in-dir"
	runInDirectoryFlagDescription = "start every tutorial in its own directory"
	noProgressFlagName            = "no-progress"
	noProgressFlagDescription     = "do not draw a progress bar on a terminal"

	logRunStartedMessage = "running tutorials"
	logFieldJobs         = "jobs"
)

var testDefaults = collectDefaults{
	suffixes: []string{".py"},
	policy:   collector.SkipHiddenAndUnderscored,
}

func (app *application) createTestCommand() *cobra.Command {
	var flags collectFlags
	var outputFormat string
	var runnerOptions execute.Options
	var noProgress bool

	testCommand := &cobra.Command{
		Use:     testUse,
		Aliases: []string{testAlias},
		Short:   testShortDescription,
		Long:    testLongDescription,
		Example: testUsageExample,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			section := app.configuration.Test
			format, formatError := resolveFormat(command, outputFormat, section.Format)
			if formatError != nil {
				return formatError
			}
			root := app.rootArgument(arguments)
			worklist, collectError := app.collectWorklist(command, &flags, root, testDefaults, collectSettings{
				suffixes:   section.Suffixes,
				skipPolicy: section.SkipPolicy,
			})
			if collectError != nil {
				return collectError
			}

			options := resolveRunnerOptions(command, runnerOptions, section)
			runner := execute.NewRunner(options, app.logger)
			var reporter *progressReporter
			progressEnabled := !noProgress
			if !command.Flags().Changed(noProgressFlagName) && section.Progress != nil {
				progressEnabled = *section.Progress
			}
			if progressEnabled && worklist.Len() > 0 && isTerminalWriter(command.ErrOrStderr()) {
				reporter = newProgressReporter(command.ErrOrStderr(), worklist.Len())
				runner.WithProgress(reporter)
			}

			app.logger.Info(logRunStartedMessage, zap.String(logFieldRoot, root), zap.Int(logFieldCount, worklist.Len()), zap.Int(logFieldJobs, options.Jobs))
			report, runError := runner.Run(command.Context(), worklist)
			if reporter != nil {
				reporter.Finish()
			}

			if renderError := output.RenderTestReport(command.OutOrStdout(), format, root, report); renderError != nil {
				return errors.Join(runError, fmt.Errorf(errorRenderFormat, types.CommandTest, renderError))
			}
			if runError != nil {
				return runError
			}
			return report.Err()
		},
	}

	addCollectFlags(testCommand, &flags, testDefaults, true)
	testCommand.Flags().StringVar(&outputFormat, formatFlagName, types.FormatRaw, formatFlagDescription)
	testCommand.Flags().IntVar(&runnerOptions.Jobs, jobsFlagName, 1, jobsFlagDescription)
	testCommand.Flags().DurationVar(&runnerOptions.NotebookTimeout, timeoutFlagName, execute.DefaultNotebookTimeout, timeoutFlagDescription)
	testCommand.Flags().DurationVar(&runnerOptions.ScriptTimeout, scriptTimeoutFlagName, 0, scriptTimeoutFlagDescription)
	testCommand.Flags().StringVar(&runnerOptions.Interpreter, interpreterFlagName, execute.DefaultInterpreter, interpreterFlagDescription)
	testCommand.Flags().StringVar(&runnerOptions.NotebookCommand, notebookCommandFlagName, execute.DefaultNotebookCommand, notebookCommandDescription)
	registerToggleFlag(testCommand.Flags(), &runnerOptions.FailFast, failFastFlagName, false, failFastFlagDescription)
	registerToggleFlag(testCommand.Flags(), &runnerOptions.RunInFileDirectory, runInDirectoryFlagName, false, runInDirectoryFlagDescription)
	registerToggleFlag(testCommand.Flags(), &noProgress, noProgressFlagName, false, noProgressFlagDescription)
	return testCommand
}

// resolveRunnerOptions layers changed flags over the test configuration over
// the flag defaults.
func resolveRunnerOptions(command *cobra.Command, flagOptions execute.Options, section config.TestConfiguration) execute.Options {
	options := flagOptions
	changed := command.Flags().Changed

	if !changed(interpreterFlagName) && section.Interpreter != "" {
		options.Interpreter = section.Interpreter
	}
	options.InterpreterArguments = section.InterpreterArguments
	if !changed(notebookCommandFlagName) && section.NotebookCommand != "" {
		options.NotebookCommand = section.NotebookCommand
	}
	if !changed(timeoutFlagName) && section.Timeout != nil {
		options.NotebookTimeout = time.Duration(*section.Timeout) * time.Second
	}
	if !changed(scriptTimeoutFlagName) && section.ScriptTimeout != nil {
		options.ScriptTimeout = time.Duration(*section.ScriptTimeout) * time.Second
	}
	if !changed(jobsFlagName) && section.Jobs != nil {
		options.Jobs = *section.Jobs
	}
	options.FailFast = resolveToggle(command, failFastFlagName, flagOptions.FailFast, section.FailFast)
	options.RunInFileDirectory = resolveToggle(command, runInDirectoryFlagName, flagOptions.RunInFileDirectory, section.RunInFileDirectory)
	return options
}
