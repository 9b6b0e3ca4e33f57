package internal

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var (
	DefaultAppName         = "dprep"
	DefaultConfigPath      = filepath.Join(getHomeDir(), ".config", DefaultAppName)
	DefaultConfigName      = "config"
	DefaultEnvPrefix       = "DPREP"
	DefaultSystemConfigDir = filepath.Join("/etc", DefaultAppName)

	// Pipeline defaults
	DefaultMaxLength       = 10
	DefaultHeldOutFraction = 0.2
	DefaultOutputPath      = "preprocessed_data.json"
	DefaultPadToken        = "<PAD>"
	DefaultCorpusFormat    = "convokit"
	DefaultLogLevel        = "info"
)

func getHomeDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		cwd, cwdErr := os.Getwd()
		if cwdErr != nil {
			log.Printf("Unable to get home or working directory, using /tmp: %v", err)
			return "/tmp"
		}
		log.Printf("Unable to get home directory, using current working directory: %v", err)
		return cwd
	}
	return homeDir
}

// NewLogger builds a logger writing to w (stderr when nil) at the given level. Unknown
// levels fall back to info. pretty switches to the human readable console writer.
func NewLogger(w io.Writer, level string, pretty bool) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	out := w
	if pretty {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Str("app", DefaultAppName).Logger()
}
