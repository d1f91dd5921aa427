package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/nbkit/internal/collector"
	"github.com/temirov/nbkit/internal/convert"
	"github.com/temirov/nbkit/internal/output"
	"github.com/temirov/nbkit/internal/types"
)

const (
	convertUse              = "convert [root]"
	convertShortDescription = "convert tutorial scripts to notebooks"
	convertLongDescription  = `Run the converter once per tutorial script below root.
The default converter is "jupytext --to ipynb <file>". A failing conversion is reported and the run continues;
the command exits non-zero when any file failed.`
	convertUsageExample = `  # Convert every script below tutorials
  nbkit convert tutorials

  # Show what would be converted
  nbkit convert tutorials --dry-run`

	cleanUse              = "clean [root]"
	cleanAlias            = "rm"
	cleanShortDescription = "delete generated tutorial scripts (" + cleanAlias + ")"
	cleanLongDescription  = `Delete every tutorial script below root. Entries named _test are never touched.
Use --dry-run to list the files that would be removed.`
	cleanUsageExample = `  # Remove scripts after converting them
  nbkit convert . && nbkit clean .

  # Preview the removal as JSON
  nbkit rm --dry-run --format json`

	commandFlagName            = "command"
	commandFlagDescription     = "converter executable"
	argumentFlagName           = "arg"
	argumentFlagDescription    = "converter argument placed before the file, repeatable"
	dryRunFlagName             = "dry-run"
	convertDryRunDescription   = "report the files without converting them"
	cleanDryRunFlagDescription = "report the files without deleting them"

	logActionFinishedMessage = "action finished"
	logFieldProcessed        = "processed"
	logFieldFailed           = "failed"
)

var (
	convertDefaults = collectDefaults{
		suffixes: []string{".py"},
		policy:   collector.SkipHidden,
	}
	cleanDefaults = collectDefaults{
		suffixes:      []string{".py"},
		policy:        collector.SkipHidden,
		excludedNames: convert.CleanExcludedNames,
	}
)

func (app *application) createConvertCommand() *cobra.Command {
	var flags collectFlags
	var outputFormat string
	var converterCommand string
	var converterArguments []string
	var dryRun bool

	convertCommand := &cobra.Command{
		Use:     convertUse,
		Short:   convertShortDescription,
		Long:    convertLongDescription,
		Example: convertUsageExample,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			section := app.configuration.Convert
			format, formatError := resolveFormat(command, outputFormat, section.Format)
			if formatError != nil {
				return formatError
			}
			root := app.rootArgument(arguments)
			worklist, collectError := app.collectWorklist(command, &flags, root, convertDefaults, collectSettings{
				skipPolicy: app.configuration.Collect.SkipPolicy,
			})
			if collectError != nil {
				return collectError
			}

			converterOptions := convert.ConverterOptions{
				Command:   section.Command,
				Arguments: section.Arguments,
				DryRun:    resolveToggle(command, dryRunFlagName, dryRun, section.DryRun),
			}
			if command.Flags().Changed(commandFlagName) {
				converterOptions.Command = converterCommand
			}
			if command.Flags().Changed(argumentFlagName) {
				converterOptions.Arguments = converterArguments
			}

			summary, convertError := convert.NewConverter(converterOptions, app.logger).Convert(command.Context(), worklist)
			return app.finishAction(command, types.CommandConvert, format, root, converterOptions.DryRun, summary, convertError)
		},
	}

	addCollectFlags(convertCommand, &flags, convertDefaults, false)
	convertCommand.Flags().StringVar(&outputFormat, formatFlagName, types.FormatRaw, formatFlagDescription)
	convertCommand.Flags().StringVar(&converterCommand, commandFlagName, convert.DefaultConverterCommand, commandFlagDescription)
	convertCommand.Flags().StringArrayVar(&converterArguments, argumentFlagName, nil, argumentFlagDescription)
	registerToggleFlag(convertCommand.Flags(), &dryRun, dryRunFlagName, false, convertDryRunDescription)
	return convertCommand
}

func (app *application) createCleanCommand() *cobra.Command {
	var flags collectFlags
	var outputFormat string
	var dryRun bool

	cleanCommand := &cobra.Command{
		Use:     cleanUse,
		Aliases: []string{cleanAlias},
		Short:   cleanShortDescription,
		Long:    cleanLongDescription,
		Example: cleanUsageExample,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			section := app.configuration.Clean
			format, formatError := resolveFormat(command, outputFormat, section.Format)
			if formatError != nil {
				return formatError
			}
			root := app.rootArgument(arguments)
			worklist, collectError := app.collectWorklist(command, &flags, root, cleanDefaults, collectSettings{
				skipPolicy: app.configuration.Collect.SkipPolicy,
			})
			if collectError != nil {
				return collectError
			}

			cleanerOptions := convert.CleanerOptions{DryRun: resolveToggle(command, dryRunFlagName, dryRun, section.DryRun)}
			summary, cleanError := convert.NewCleaner(cleanerOptions, app.logger).Clean(command.Context(), worklist)
			return app.finishAction(command, types.CommandClean, format, root, cleanerOptions.DryRun, summary, cleanError)
		},
	}

	addCollectFlags(cleanCommand, &flags, cleanDefaults, false)
	cleanCommand.Flags().StringVar(&outputFormat, formatFlagName, types.FormatRaw, formatFlagDescription)
	registerToggleFlag(cleanCommand.Flags(), &dryRun, dryRunFlagName, false, cleanDryRunFlagDescription)
	return cleanCommand
}

// finishAction renders the summary and returns the action error. A rendering
// failure is joined with it.
func (app *application) finishAction(command *cobra.Command, commandName string, format string, root string, dryRun bool, summary convert.Summary, actionError error) error {
	app.logger.Info(logActionFinishedMessage,
		zap.String(logFieldCommand, commandName),
		zap.Int(logFieldProcessed, len(summary.Processed)),
		zap.Int(logFieldFailed, len(summary.Failures)),
	)
	document := output.BuildActionOutput(commandName, root, dryRun, summary)
	if renderError := output.RenderAction(command.OutOrStdout(), format, document); renderError != nil {
		return errors.Join(actionError, fmt.Errorf(errorRenderFormat, commandName, renderError))
	}
	return actionError
}
