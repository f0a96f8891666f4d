package flakechartlib

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func NoArgs(cmd *cobra.Command, args []string) error {
	for _, arg := range args {
		if len(arg) > 0 {
			return fmt.Errorf("%q does not take any arguments, got %q", cmd.CommandPath(), args)
		}
	}
	return nil
}

// LogLevelFlag binds --log-level and applies it to the standard logger.
type LogLevelFlag struct {
	Level string
}

func (f *LogLevelFlag) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&f.Level, "log-level", logrus.InfoLevel.String(), "log level: panic, fatal, error, warning, info, debug or trace")
}

func (f *LogLevelFlag) Apply() error {
	level, err := logrus.ParseLevel(f.Level)
	if err != nil {
		return fmt.Errorf("invalid --log-level: %w", err)
	}
	logrus.SetLevel(level)
	return nil
}
