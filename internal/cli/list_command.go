package cli

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/temirov/nbkit/internal/collector"
	"github.com/temirov/nbkit/internal/output"
	"github.com/temirov/nbkit/internal/types"
)

const (
	listUse              = "list [root]"
	listAlias            = "ls"
	listShortDescription = "print the worklist (" + listAlias + ")"
	listLongDescription  = `List every file below root whose name ends with a target suffix.
Entries starting with . are always skipped; --skip-underscored also skips entries starting with _.
Use --format to select raw, json, or xml output and --copy to place the output on the clipboard.`
	listUsageExample = `  # List tutorial scripts below the current directory
  nbkit list

  # List scripts and notebooks, skipping _build and figures, as JSON
  nbkit ls tutorials --suffix .py --suffix .ipynb --skip-underscored --exclude '**/figures/**' --format json`

	absoluteFlagName        = "absolute"
	absoluteFlagDescription = "print paths joined with the root"
	copyFlagName            = "copy"
	copyFlagDescription     = "copy the output to the system clipboard"
)

var listDefaults = collectDefaults{
	suffixes: []string{".py"},
	policy:   collector.SkipHidden,
}

func (app *application) createListCommand() *cobra.Command {
	var flags collectFlags
	var outputFormat string
	var absolutePaths bool
	var copyEnabled bool

	listCommand := &cobra.Command{
		Use:     listUse,
		Aliases: []string{listAlias},
		Short:   listShortDescription,
		Long:    listLongDescription,
		Example: listUsageExample,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			section := app.configuration.Collect
			format, formatError := resolveFormat(command, outputFormat, section.Format)
			if formatError != nil {
				return formatError
			}
			root := app.rootArgument(arguments)
			options, resolveError := app.resolveCollectOptions(command, &flags, root, listDefaults, collectSettings{
				suffixes:   section.Suffixes,
				skipPolicy: section.SkipPolicy,
			})
			if resolveError != nil {
				return resolveError
			}
			options.Absolute = resolveToggle(command, absoluteFlagName, absolutePaths, section.Absolute)

			worklist, collectError := app.collect(root, options)
			if collectError != nil {
				return collectError
			}

			var rendered bytes.Buffer
			if renderError := output.RenderWorklist(&rendered, format, worklist); renderError != nil {
				return fmt.Errorf(errorRenderFormat, types.CommandList, renderError)
			}
			if _, writeError := command.OutOrStdout().Write(rendered.Bytes()); writeError != nil {
				return writeError
			}
			if resolveToggle(command, copyFlagName, copyEnabled, section.Clipboard) {
				if copyError := app.dependencies.Copier.Copy(rendered.String()); copyError != nil {
					return fmt.Errorf(errorCopyToClipboardFormat, copyError)
				}
			}
			return nil
		},
	}

	addCollectFlags(listCommand, &flags, listDefaults, true)
	listCommand.Flags().StringVar(&outputFormat, formatFlagName, types.FormatRaw, formatFlagDescription)
	registerToggleFlag(listCommand.Flags(), &absolutePaths, absoluteFlagName, false, absoluteFlagDescription)
	registerToggleFlag(listCommand.Flags(), &copyEnabled, copyFlagName, false, copyFlagDescription)
	return listCommand
}
