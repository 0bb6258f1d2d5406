package cmd

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/josephlewis42/mumsh/core"
	"github.com/josephlewis42/mumsh/core/config"
	"github.com/josephlewis42/mumsh/core/logger"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var (
	cfgPath      string
	logFile      string
	noJobControl bool
	command      string

	// exitCode is the status of the shell, set by the root command.
	exitCode int
)

func defaultConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(dir, logger.Name)
}

// loadConfig reads the configuration, falling back to the defaults if there
// isn't one. The returned path is empty when the defaults are used.
func loadConfig() (*config.Configuration, string, error) {
	configuration, err := config.Load(afero.NewOsFs(), cfgPath)
	if errors.Is(err, fs.ErrNotExist) {
		return config.Default(), "", nil
	}
	if err != nil {
		return nil, "", err
	}

	return configuration, config.Path(cfgPath), nil
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mumsh [-c COMMAND]",
	Short: "A small interactive shell with job control.",
	Long: `mumsh reads command lines made of pipelines joined by &&, || and ;,
runs them with output redirections and tracks background and suspended
jobs. Without -c it reads commands from standard input.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		cfg, path, err := loadConfig()
		if err != nil {
			return err
		}
		if noJobControl {
			cfg.JobControl = false
		}

		logPath := cfg.Log.Path
		if logFile != "" {
			logPath = logFile
		}
		home, _ := os.UserHomeDir()
		log, err := logger.New(config.ExpandHome(logPath, home), cfg.Log.Level)
		if err != nil {
			return err
		}
		defer log.Sync()

		interactive := !cmd.Flags().Changed("command")
		s, err := core.NewShell(core.Options{
			Config:      cfg,
			ConfigPath:  path,
			Stdin:       os.Stdin,
			Stdout:      os.Stdout,
			Stderr:      os.Stderr,
			Log:         log,
			Interactive: interactive,
		})
		if err != nil {
			return err
		}
		defer s.Close()

		if interactive {
			exitCode = s.Run()
			return nil
		}

		s.RunLine(command)
		exitCode = s.ExitCode()
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
	os.Exit(exitCode)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", defaultConfigDir(), "config path")
	rootCmd.Flags().StringVarP(&command, "command", "c", "", "run COMMAND and exit")
	rootCmd.Flags().StringVar(&logFile, "log-file", "", "write a debug log to this file")
	rootCmd.Flags().BoolVar(&noJobControl, "no-job-control", false, "run every pipeline in the shell's process group")
}
