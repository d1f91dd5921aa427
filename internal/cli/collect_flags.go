package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/nbkit/internal/collector"
	"github.com/temirov/nbkit/internal/config"
)

const (
	suffixFlagName          = "suffix"
	skipUnderscoredFlagName = "skip-underscored"
	excludeFlagName         = "exclude"
	noExcludeFileFlagName   = "no-exclude-file"

	suffixFlagDescription          = "target file suffix, repeatable"
	skipUnderscoredFlagDescription = "also skip entries whose name starts with _"
	excludeFlagDescription         = "doublestar glob of paths to exclude, repeatable"
	noExcludeFileFlagDescription   = "do not read the exclude file at the collection root"
)

// collectFlags holds the collection flags of a command.
type collectFlags struct {
	suffixes        []string
	skipUnderscored bool
	exclude         []string
	noExcludeFile   bool
}

// collectDefaults are the built-in collection settings of a command.
type collectDefaults struct {
	suffixes      []string
	policy        collector.SkipPolicy
	excludedNames []string
}

// collectSettings are the configured collection settings of a command.
type collectSettings struct {
	suffixes   []string
	skipPolicy string
}

func addCollectFlags(command *cobra.Command, flags *collectFlags, defaults collectDefaults, withSuffix bool) {
	if withSuffix {
		command.Flags().StringSliceVar(&flags.suffixes, suffixFlagName, defaults.suffixes, suffixFlagDescription)
	}
	registerToggleFlag(command.Flags(), &flags.skipUnderscored, skipUnderscoredFlagName, defaults.policy == collector.SkipHiddenAndUnderscored, skipUnderscoredFlagDescription)
	command.Flags().StringArrayVar(&flags.exclude, excludeFlagName, nil, excludeFlagDescription)
	registerToggleFlag(command.Flags(), &flags.noExcludeFile, noExcludeFileFlagName, false, noExcludeFileFlagDescription)
}

// resolveCollectOptions layers flags over configuration over defaults. Exclude
// patterns accumulate: the configured list, the exclude file, then flags.
func (app *application) resolveCollectOptions(command *cobra.Command, flags *collectFlags, root string, defaults collectDefaults, settings collectSettings) (collector.Options, error) {
	options := collector.Options{
		Suffixes:      defaults.suffixes,
		Policy:        defaults.policy,
		ExcludedNames: defaults.excludedNames,
	}

	switch {
	case command.Flags().Changed(suffixFlagName):
		options.Suffixes = flags.suffixes
	case len(settings.suffixes) > 0:
		options.Suffixes = settings.suffixes
	}

	switch {
	case command.Flags().Changed(skipUnderscoredFlagName):
		options.Policy = collector.SkipHidden
		if flags.skipUnderscored {
			options.Policy = collector.SkipHiddenAndUnderscored
		}
	case settings.skipPolicy != "":
		policy, parseError := collector.ParseSkipPolicy(settings.skipPolicy)
		if parseError != nil {
			return collector.Options{}, fmt.Errorf(errorResolveSkipPolicyFmt, parseError)
		}
		options.Policy = policy
	}

	collectSection := app.configuration.Collect
	useExcludeFile := !flags.noExcludeFile
	if !command.Flags().Changed(noExcludeFileFlagName) && collectSection.UseExcludeFile != nil {
		useExcludeFile = *collectSection.UseExcludeFile
	}
	requestedPatterns := append(append([]string{}, collectSection.Exclude...), flags.exclude...)
	excludePatterns, loadError := config.LoadExcludePatterns(root, requestedPatterns, useExcludeFile)
	if loadError != nil {
		return collector.Options{}, fmt.Errorf(errorLoadExcludePatternsFmt, loadError)
	}
	options.ExcludePatterns = excludePatterns
	return options, nil
}

// collectWorklist resolves options and walks root.
func (app *application) collectWorklist(command *cobra.Command, flags *collectFlags, root string, defaults collectDefaults, settings collectSettings) (collector.Worklist, error) {
	options, resolveError := app.resolveCollectOptions(command, flags, root, defaults, settings)
	if resolveError != nil {
		return collector.Worklist{}, resolveError
	}
	return app.collect(root, options)
}

func (app *application) collect(root string, options collector.Options) (collector.Worklist, error) {
	worklist, collectError := collector.Collect(root, options)
	if collectError != nil {
		return collector.Worklist{}, fmt.Errorf(errorCollectFormat, root, collectError)
	}
	app.logger.Debug(logCollectedMessage, zap.String(logFieldRoot, root), zap.Int(logFieldCount, worklist.Len()))
	return worklist, nil
}
