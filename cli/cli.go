package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	configLookupAllowed = "configLookupAllowed" // flag level annotation that allows a lookup via environment or config file
	envPrefix           = "GO_BPMNDT"
	program             = "go-bpmndt"
)

func New(version string) *Cli {
	cli := Cli{version: version}

	cli.rootCmd = newRootCmd(&cli)

	return &cli
}

type Cli struct {
	version string

	rootCmd *cobra.Command

	logger       *zap.Logger
	debugEnabled bool
	configFile   string
}

func (c *Cli) Execute() int {
	if err := c.rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func (c *Cli) help(cmd *cobra.Command, args []string) error {
	return cmd.Help()
}

// configure sets the values of all flags, which are not changed, but allowed to be configured via an environment
// variable or the config file.
func (c *Cli) configure(cmd *cobra.Command) error {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if c.configFile != "" {
		v.SetConfigFile(c.configFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %v", c.configFile, err)
		}
	}

	var err error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if err != nil || f.Changed {
			return
		}
		if _, ok := f.Annotations[configLookupAllowed]; !ok {
			return
		}

		// e.g. max-paths -> GO_BPMNDT_MAX_PATHS
		if bindErr := v.BindPFlag(f.Name, f); bindErr != nil {
			err = bindErr
			return
		}
		if !v.IsSet(f.Name) {
			return
		}

		var value string
		switch f.Value.Type() {
		case "stringSlice":
			value = strings.Join(v.GetStringSlice(f.Name), ",")
		default:
			value = v.GetString(f.Name)
		}

		if value == f.Value.String() {
			return
		}
		if setErr := cmd.Flags().Set(f.Name, value); setErr != nil {
			err = fmt.Errorf("invalid value %q for flag %s: %v", value, f.Name, setErr)
		}
	})

	return err
}

func newLogger(debugEnabled bool) (*zap.Logger, error) {
	config := zap.NewDevelopmentConfig()
	config.DisableStacktrace = true
	config.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	if !debugEnabled {
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return config.Build()
}

func newRootCmd(cli *Cli) *cobra.Command {
	c := cobra.Command{
		Use:   program,
		Short: "Generates and runs test cases for BPMN processes",
		PersistentPreRunE: func(c *cobra.Command, _ []string) error {
			c.SilenceUsage = true

			if err := cli.configure(c); err != nil {
				return err
			}

			if cli.logger != nil {
				return nil // skip logger creation when testing
			}

			logger, err := newLogger(cli.debugEnabled)
			if err != nil {
				return fmt.Errorf("failed to create logger: %v", err)
			}

			cli.logger = logger
			return nil
		},
		RunE: cli.help,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if cli.logger != nil {
				_ = cli.logger.Sync()
			}
		},
	}

	c.PersistentFlags().StringVar(&cli.configFile, "config", "", "Path to a YAML, TOML or JSON config file")
	c.PersistentFlags().BoolVar(&cli.debugEnabled, "debug", false, "Enable debug logging")

	c.PersistentFlags().SetAnnotation("debug", configLookupAllowed, nil)

	c.AddCommand(newGenerateCmd(cli))
	c.AddCommand(newPathsCmd(cli))
	c.AddCommand(newVersionCmd(cli))

	return &c
}

func newVersionCmd(cli *Cli) *cobra.Command {
	c := cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(c *cobra.Command, _ []string) {
			c.Println(cli.version)
		},
	}

	return &c
}
