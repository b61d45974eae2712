package cmd

import (
	"os"
	"path"
	"strings"

	"emperror.dev/errors"
	"github.com/NYTimes/logrotate"
	"github.com/apex/log"
	"github.com/apex/log/handlers/multi"
	"github.com/spf13/cobra"

	"github.com/ghostkernel/ghostio/config"
	"github.com/ghostkernel/ghostio/loggers/cli"
	"github.com/ghostkernel/ghostio/stdio"
	"github.com/ghostkernel/ghostio/system"
)

var (
	configPath = ""
	debug      = false
)

var root = &cobra.Command{
	Use:           "ghostio",
	Short:         "Buffered standard I/O streams and formatted conversions",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := readConfiguration()
		if err != nil {
			return err
		}
		config.Set(c)
		config.SetDebugViaFlag(debug)
		return configureLogging(config.Get())
	},
}

func init() {
	root.PersistentFlags().StringVar(&configPath, "config", "", "set the location for the configuration file (default $GHOSTIO_CONFIG or "+config.DefaultLocation+")")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "pass in order to run in debug mode")

	root.AddCommand(printfCmd)
	root.AddCommand(scanfCmd)
	root.AddCommand(catCmd)
	root.AddCommand(resourcesCmd)
	root.AddCommand(configCmd)
	root.AddCommand(versionCmd)
}

// Execute runs the command line and tears down the standard streams of the
// process, exiting with a non-zero code if anything failed.
func Execute() {
	if err := root.Execute(); err != nil {
		_, _ = stdio.Stderr().Printf("ghostio: %s\n", err.Error())
		stdio.Exit(1)
	}
	stdio.Exit(0)
}

// configurationPath returns the configuration file to load: the --config flag,
// then the GHOSTIO_CONFIG environment variable, then the default location.
func configurationPath() string {
	return system.FirstNotEmpty(configPath, os.Getenv("GHOSTIO_CONFIG"), config.DefaultLocation)
}

// readConfiguration loads the configuration file. The default location is
// allowed to be missing, in which case the default values are used.
func readConfiguration() (*config.Configuration, error) {
	name := configurationPath()
	p := name
	if !strings.HasPrefix(p, "/") {
		d, err := os.Getwd()
		if err != nil {
			return nil, err
		}

		p = path.Clean(path.Join(d, name))
	}

	if s, err := os.Stat(p); err != nil {
		if errors.Is(err, os.ErrNotExist) && name == config.DefaultLocation {
			return config.NewAtPath(p)
		}
		return nil, errors.WithStack(err)
	} else if s.IsDir() {
		return nil, errors.New("cannot use directory as configuration file path")
	}

	return config.ReadConfiguration(p)
}

// configureLogging sends log entries to the diagnostic stream and, when a log
// file is configured, to that file as well.
func configureLogging(c *config.Configuration) error {
	if c.Debug {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}

	handler := cli.New(stdio.Stderr(), true)
	if c.Log.File == "" {
		log.SetHandler(handler)
		return nil
	}

	w, err := logrotate.NewFile(c.Log.File)
	if err != nil {
		return errors.WithMessage(err, "failed to open process log file")
	}
	log.SetHandler(multi.New(
		handler,
		cli.New(w.File, false),
	))
	log.WithField("path", c.Log.File).Debug("writing log files to disk")
	return nil
}
