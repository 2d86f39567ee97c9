package main

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hammamikhairi/kidzstage/internal/config"
	"github.com/hammamikhairi/kidzstage/internal/logger"
)

var rootFlags struct {
	configPath string
	verbose    bool
	quiet      bool
	logFile    string
	noSpeech   bool
}

var rootCmd = &cobra.Command{
	Use:           "kidzstage",
	Short:         "Animated question-and-answer stage for kids",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&rootFlags.configPath, "config", "c", "", "config file (default ./kidzstage.yaml)")
	pf.BoolVar(&rootFlags.verbose, "verbose", false, "enable verbose/debug logging")
	pf.BoolVar(&rootFlags.quiet, "quiet", false, "disable all logging")
	pf.StringVar(&rootFlags.logFile, "log-file", "", "file to write logs to, \"stderr\" logs to the console (overrides log.file)")
	pf.BoolVar(&rootFlags.noSpeech, "no-speech", false, "disable text-to-speech even if Azure keys are set")
}

// setup loads the configuration and opens the log output. The returned
// closer releases the log file.
func setup() (*config.Loader, *logger.Logger, func(), error) {
	// Bootstrap logger for config problems; replaced once the file is known.
	boot := logger.New(logger.LevelOff, io.Discard)
	loader, err := config.Load(rootFlags.configPath, boot)
	if err != nil {
		return nil, nil, nil, err
	}
	cfg := loader.Config()

	level := logger.ParseLevel(cfg.Log.Level)
	if rootFlags.verbose {
		level = logger.LevelVerbose
	}
	if rootFlags.quiet {
		level = logger.LevelOff
	}

	logPath := cfg.Log.File
	if rootFlags.logFile != "" {
		logPath = rootFlags.logFile
	}

	// Logs go to a file by default so the terminal UI stays clean.
	var out io.Writer = os.Stderr
	closer := func() {}
	if logPath != "" && logPath != "stderr" {
		if dir := filepath.Dir(logPath); dir != "" && dir != "." {
			_ = os.MkdirAll(dir, 0o755)
		}
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not open log file %s: %v (falling back to stderr)\n", logPath, err)
		} else {
			out = f
			closer = func() { f.Close() }
		}
	}

	// The whisper transcriber logs through the standard log package.
	stdlog.SetOutput(out)
	stdlog.SetFlags(stdlog.Ltime)

	log := logger.New(level, out)
	loader.SetLogger(log.With("config"))
	if file := loader.File(); file != "" {
		log.Info("config: loaded %s", file)
	}
	return loader, log, closer, nil
}
