package commands

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/pelletier/go-toml/v2"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/teranos/rfbridge/am"
	"github.com/teranos/rfbridge/display"
	"github.com/teranos/rfbridge/errors"
	"github.com/teranos/rfbridge/sym"
)

// AmCmd represents the am (configuration) command
var AmCmd = &cobra.Command{
	Use:   "am",
	Short: sym.AM + " Manage rfbridge configuration",
	Long: sym.AM + ` am - Manage rfbridge configuration ("I am")

Configuration sources (in order of precedence):
1. Environment variables (RFBRIDGE_* prefix)
2. Project config (./am.toml, searched upwards)
3. User config (~/.rfbridge/am.toml)
4. System config (/etc/rfbridge/config.toml)
5. Default values

Examples:
  rfbridge am show                      # Show current configuration
  rfbridge am show --format json        # Show configuration in JSON format
  rfbridge am get bridge.fft_size       # Get specific config value
  rfbridge am set bridge.fft_size 512   # Persist a value to the user config
  rfbridge am validate                  # Validate current configuration`,
}

var amShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  "Display the merged rfbridge configuration from all sources",
	RunE:  runAmShow,
}

var amGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a specific configuration value",
	Long:  "Get a specific configuration value using dot notation (e.g., bridge.fft_size, stream.recv_timeout_ms)",
	Args:  cobra.ExactArgs(1),
	RunE:  runAmGet,
}

var amSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Persist a configuration value",
	Long: `Write a configuration value to the active config file, or to
~/.rfbridge/am.toml when only defaults apply. The result is validated before
it is written and the previous file is kept as a .back1 backup.

A running 'rfbridge run' picks up bridge.fft_size and bridge.magnitude_out
changes without a restart.`,
	Args: cobra.ExactArgs(2),
	RunE: runAmSet,
}

var amValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate current configuration",
	Long:  "Validate the merged configuration and report keys the active file sets that rfbridge does not recognise",
	RunE:  runAmValidate,
}

var amWhereCmd = &cobra.Command{
	Use:   "where",
	Short: "Show where configuration is loaded from",
	Long:  "List the configuration cascade and the source of every active setting.",
	RunE:  runAmWhere,
}

var configFormat string

func init() {
	amShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format: toml, json, yaml")

	AmCmd.AddCommand(amShowCmd)
	AmCmd.AddCommand(amGetCmd)
	AmCmd.AddCommand(amSetCmd)
	AmCmd.AddCommand(amValidateCmd)
	AmCmd.AddCommand(amWhereCmd)
}

func runAmShow(cmd *cobra.Command, args []string) error {
	if _, err := am.Load(); err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	settings := am.GetViper().AllSettings()
	out := cmd.OutOrStdout()

	switch configFormat {
	case "json":
		return display.OutputJSON(out, settings)

	case "yaml":
		data, err := yaml.Marshal(settings)
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to YAML")
		}
		fmt.Fprintf(out, "# rfbridge configuration\n%s", data)

	case "toml":
		data, err := toml.Marshal(settings)
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to TOML")
		}
		fmt.Fprintf(out, "# rfbridge configuration\n%s", data)

	default:
		return errors.Newf("unsupported format: %s (supported: toml, json, yaml)", configFormat)
	}
	return nil
}

func runAmGet(cmd *cobra.Command, args []string) error {
	key := args[0]
	if _, err := am.Load(); err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	if !am.GetViper().IsSet(key) {
		return errors.Newf("configuration key %q not found", key)
	}
	fmt.Fprintln(cmd.OutOrStdout(), am.Get(key))
	return nil
}

func runAmSet(cmd *cobra.Command, args []string) error {
	key, raw := args[0], args[1]

	path := am.ActiveConfigFile()
	if path == "" {
		path = am.GetUserConfigPath()
	}
	if path == "" {
		return errors.New("no writable config location, set HOME or create ./am.toml")
	}

	if err := am.SaveSetting(path, key, parseValue(raw)); err != nil {
		return err
	}
	am.Reset()

	pterm.Success.Printfln("%s = %s written to %s", key, raw, path)
	return nil
}

// parseValue turns a command-line value into the TOML type it most likely
// means.
func parseValue(raw string) interface{} {
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}

func runAmValidate(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "configuration validation failed")
	}

	if path := am.ActiveConfigFile(); path != "" {
		unknown, err := am.CheckUnknownKeys(path)
		if err != nil {
			return err
		}
		for _, key := range unknown {
			pterm.Warning.Printfln("%s: unknown key %q is ignored", path, key)
		}
	}

	pterm.Success.Println("Configuration is valid")
	return nil
}

func runAmWhere(cmd *cobra.Command, args []string) error {
	intro, err := am.GetConfigIntrospection()
	if err != nil {
		return errors.Wrap(err, "failed to get config introspection")
	}
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "Configuration cascade (later overrides earlier):")
	fmt.Fprintln(out, "  1. [DEFAULT]  Built-in defaults")
	fmt.Fprintf(out, "  2. [SYSTEM]   %s\n", am.SystemConfigPath)
	fmt.Fprintf(out, "  3. [USER]     %s\n", am.GetUserConfigPath())
	fmt.Fprintln(out, "  4. [PROJECT]  ./am.toml (searches up directories)")
	fmt.Fprintf(out, "  5. [ENV]      %s_* environment variables\n", am.EnvPrefix)
	fmt.Fprintln(out)

	if intro.ConfigFile != "" {
		fmt.Fprintf(out, "Active file: %s\n\n", intro.ConfigFile)
	}

	bySource := make(map[am.ConfigSource][]am.SettingInfo)
	for _, s := range intro.Settings {
		bySource[s.Source] = append(bySource[s.Source], s)
	}

	order := []am.ConfigSource{am.SourceDefault, am.SourceSystem, am.SourceUser, am.SourceProject, am.SourceEnvironment}
	fmt.Fprintln(out, "Active configuration:")
	for _, source := range order {
		settings := bySource[source]
		if len(settings) == 0 {
			continue
		}
		sort.Slice(settings, func(i, j int) bool { return settings[i].Key < settings[j].Key })

		fmt.Fprintf(out, "\n%s: %d settings\n", source, len(settings))
		for _, s := range settings {
			value := fmt.Sprintf("%v", s.Value)
			if len(value) > 50 {
				value = value[:47] + "..."
			}
			from := ""
			if source != am.SourceDefault {
				from = pterm.Gray("  (" + s.SourcePath + ")")
			}
			fmt.Fprintf(out, "  %s = %s%s\n", s.Key, value, from)
		}
	}
	return nil
}
