package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/temirov/nbkit/internal/config"
)

const (
	initCommandName      = "init"
	initShortDescription = "write the default configuration file"
	initLongDescription  = `Write a commented default configuration to ./.nbkit.yaml, or to ~/.nbkit/config.yaml with --global.
An existing file is kept unless --force is given.`
	initUsageExample = `  # Create a project configuration
  nbkit init

  # Replace the user configuration
  nbkit init --global --force`

	globalFlagName        = "global"
	globalFlagDescription = "write the user configuration instead of the project one"
	forceFlagName         = "force"
	forceFlagDescription  = "overwrite an existing configuration file"
	initWrittenFormat     = "configuration written to %s\n"
)

func (app *application) createInitCommand() *cobra.Command {
	var globalTarget bool
	var force bool

	initCommand := &cobra.Command{
		Use:     initCommandName,
		Short:   initShortDescription,
		Long:    initLongDescription,
		Example: initUsageExample,
		Args:    cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			target := config.InitTargetLocal
			if globalTarget {
				target = config.InitTargetGlobal
			}
			destinationPath, initError := config.InitializeConfiguration(config.InitOptions{
				Target:           target,
				Force:            force,
				WorkingDirectory: app.dependencies.WorkingDirectory,
				HomeDirectory:    app.dependencies.HomeDirectory,
			})
			if initError != nil {
				return initError
			}
			_, writeError := fmt.Fprintf(command.OutOrStdout(), initWrittenFormat, destinationPath)
			return writeError
		},
	}

	registerToggleFlag(initCommand.Flags(), &globalTarget, globalFlagName, false, globalFlagDescription)
	registerToggleFlag(initCommand.Flags(), &force, forceFlagName, false, forceFlagDescription)
	return initCommand
}
