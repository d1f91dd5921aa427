package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/temirov/nbkit/internal/utils"
)

// LoadOptions controls how application configuration is discovered.
type LoadOptions struct {
	WorkingDirectory string
	ExplicitFilePath string
	// HomeDirectory overrides the user home directory used for the global file.
	HomeDirectory string
}

// ApplicationConfiguration holds command-specific configuration defaults.
type ApplicationConfiguration struct {
	Collect CollectConfiguration `mapstructure:"collect"`
	Convert ConvertConfiguration `mapstructure:"convert"`
	Clean   CleanConfiguration   `mapstructure:"clean"`
	Test    TestConfiguration    `mapstructure:"test"`
}

// CollectConfiguration holds the collection defaults shared by every command.
type CollectConfiguration struct {
	Suffixes       []string `mapstructure:"suffixes"`
	SkipPolicy     string   `mapstructure:"skip_policy"`
	Exclude        []string `mapstructure:"exclude"`
	UseExcludeFile *bool    `mapstructure:"use_exclude_file"`
	Absolute       *bool    `mapstructure:"absolute"`
	Format         string   `mapstructure:"format"`
	Clipboard      *bool    `mapstructure:"clipboard"`
}

// ConvertConfiguration defines defaults for the convert command.
type ConvertConfiguration struct {
	Command   string   `mapstructure:"command"`
	Arguments []string `mapstructure:"arguments"`
	DryRun    *bool    `mapstructure:"dry_run"`
	Format    string   `mapstructure:"format"`
}

// CleanConfiguration defines defaults for the clean command.
type CleanConfiguration struct {
	DryRun *bool  `mapstructure:"dry_run"`
	Format string `mapstructure:"format"`
}

// TestConfiguration defines defaults for the test command. Timeouts are in seconds.
type TestConfiguration struct {
	Suffixes             []string `mapstructure:"suffixes"`
	SkipPolicy           string   `mapstructure:"skip_policy"`
	Interpreter          string   `mapstructure:"interpreter"`
	InterpreterArguments []string `mapstructure:"interpreter_arguments"`
	NotebookCommand      string   `mapstructure:"notebook_command"`
	Timeout              *int     `mapstructure:"timeout"`
	ScriptTimeout        *int     `mapstructure:"script_timeout"`
	Jobs                 *int     `mapstructure:"jobs"`
	FailFast             *bool    `mapstructure:"fail_fast"`
	RunInFileDirectory   *bool    `mapstructure:"run_in_file_directory"`
	Progress             *bool    `mapstructure:"progress"`
	Format               string   `mapstructure:"format"`
}

// LoadApplicationConfiguration loads configuration from the global file and
// then from the local or explicit file. Values set later win field by field.
func LoadApplicationConfiguration(options LoadOptions) (ApplicationConfiguration, error) {
	workingDirectory := options.WorkingDirectory
	if workingDirectory == "" {
		currentDirectory, err := os.Getwd()
		if err != nil {
			return ApplicationConfiguration{}, fmt.Errorf("determine working directory: %w", err)
		}
		workingDirectory = currentDirectory
	}

	var merged ApplicationConfiguration

	homeDirectory := options.HomeDirectory
	if homeDirectory == "" {
		if resolvedHome, err := os.UserHomeDir(); err == nil {
			homeDirectory = resolvedHome
		}
	}
	if homeDirectory != "" {
		globalPath := filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName, utils.GlobalConfigFileName)
		globalConfig, loadErr := loadConfigurationFromPath(globalPath, false)
		if loadErr != nil {
			return ApplicationConfiguration{}, loadErr
		}
		merged = merged.Merge(globalConfig)
	}

	localPath := resolveLocalConfigPath(workingDirectory, options.ExplicitFilePath)
	localConfig, loadErr := loadConfigurationFromPath(localPath, options.ExplicitFilePath != "")
	if loadErr != nil {
		return ApplicationConfiguration{}, loadErr
	}
	merged = merged.Merge(localConfig)

	merged.Collect.Exclude = utils.DeduplicatePatterns(merged.Collect.Exclude)

	return merged, nil
}

func resolveLocalConfigPath(workingDirectory, explicitPath string) string {
	if explicitPath == "" {
		return filepath.Join(workingDirectory, utils.LocalConfigFileName)
	}
	if filepath.IsAbs(explicitPath) {
		return explicitPath
	}
	return filepath.Join(workingDirectory, explicitPath)
}

// loadConfigurationFromPath reads one YAML file. A missing file is only an
// error when required is set.
func loadConfigurationFromPath(path string, required bool) (ApplicationConfiguration, error) {
	info, statErr := os.Stat(path)
	if statErr != nil {
		if os.IsNotExist(statErr) && !required {
			return ApplicationConfiguration{}, nil
		}
		return ApplicationConfiguration{}, fmt.Errorf("stat configuration %s: %w", path, statErr)
	}
	if info.IsDir() {
		return ApplicationConfiguration{}, fmt.Errorf("configuration path %s is a directory", path)
	}

	reader := viper.New()
	reader.SetConfigFile(path)
	reader.SetConfigType("yaml")
	if readErr := reader.ReadInConfig(); readErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("read configuration from %s: %w", path, readErr)
	}
	var config ApplicationConfiguration
	if decodeErr := reader.Unmarshal(&config); decodeErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("decode configuration from %s: %w", path, decodeErr)
	}
	return config, nil
}

// Merge overlays override onto the receiver returning the combined configuration.
func (config ApplicationConfiguration) Merge(override ApplicationConfiguration) ApplicationConfiguration {
	result := config
	result.Collect = result.Collect.merge(override.Collect)
	result.Convert = result.Convert.merge(override.Convert)
	result.Clean = result.Clean.merge(override.Clean)
	result.Test = result.Test.merge(override.Test)
	return result
}

func (config CollectConfiguration) merge(override CollectConfiguration) CollectConfiguration {
	result := config
	if len(override.Suffixes) > 0 {
		result.Suffixes = append([]string{}, override.Suffixes...)
	}
	if override.SkipPolicy != "" {
		result.SkipPolicy = override.SkipPolicy
	}
	if len(override.Exclude) > 0 {
		result.Exclude = append([]string{}, utils.DeduplicatePatterns(override.Exclude)...)
	}
	if override.UseExcludeFile != nil {
		result.UseExcludeFile = cloneBool(override.UseExcludeFile)
	}
	if override.Absolute != nil {
		result.Absolute = cloneBool(override.Absolute)
	}
	if override.Format != "" {
		result.Format = override.Format
	}
	if override.Clipboard != nil {
		result.Clipboard = cloneBool(override.Clipboard)
	}
	return result
}

func (config ConvertConfiguration) merge(override ConvertConfiguration) ConvertConfiguration {
	result := config
	if override.Command != "" {
		result.Command = override.Command
	}
	if len(override.Arguments) > 0 {
		result.Arguments = append([]string{}, override.Arguments...)
	}
	if override.DryRun != nil {
		result.DryRun = cloneBool(override.DryRun)
	}
	if override.Format != "" {
		result.Format = override.Format
	}
	return result
}

func (config CleanConfiguration) merge(override CleanConfiguration) CleanConfiguration {
	result := config
	if override.DryRun != nil {
		result.DryRun = cloneBool(override.DryRun)
	}
	if override.Format != "" {
		result.Format = override.Format
	}
	return result
}

func (config TestConfiguration) merge(override TestConfiguration) TestConfiguration {
	result := config
	if len(override.Suffixes) > 0 {
		result.Suffixes = append([]string{}, override.Suffixes...)
	}
	if override.SkipPolicy != "" {
		result.SkipPolicy = override.SkipPolicy
	}
	if override.Interpreter != "" {
		result.Interpreter = override.Interpreter
	}
	if len(override.InterpreterArguments) > 0 {
		result.InterpreterArguments = append([]string{}, override.InterpreterArguments...)
	}
	if override.NotebookCommand != "" {
		result.NotebookCommand = override.NotebookCommand
	}
	if override.Timeout != nil {
		result.Timeout = cloneInt(override.Timeout)
	}
	if override.ScriptTimeout != nil {
		result.ScriptTimeout = cloneInt(override.ScriptTimeout)
	}
	if override.Jobs != nil {
		result.Jobs = cloneInt(override.Jobs)
	}
	if override.FailFast != nil {
		result.FailFast = cloneBool(override.FailFast)
	}
	if override.RunInFileDirectory != nil {
		result.RunInFileDirectory = cloneBool(override.RunInFileDirectory)
	}
	if override.Progress != nil {
		result.Progress = cloneBool(override.Progress)
	}
	if override.Format != "" {
		result.Format = override.Format
	}
	return result
}

func cloneBool(value *bool) *bool {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}

func cloneInt(value *int) *int {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}
