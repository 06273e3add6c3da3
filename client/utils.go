package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/sanity-io/litter"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/writer"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/burntcarrot/treepad/commons"
	"github.com/burntcarrot/treepad/crdt"
)

// Flags represents the settings passed to treepad, from flags, the environment or treepad.yaml.
type Flags struct {
	Debug       bool   `mapstructure:"debug"`
	Pretty      bool   `mapstructure:"pretty"`
	JSON        bool   `mapstructure:"json"`
	LogDir      string `mapstructure:"log-dir"`
	Arity       int    `mapstructure:"arity"`
	Lookahead   int    `mapstructure:"lookahead"`
	LargeLine   int    `mapstructure:"large-line"`
	MaxDepth    int    `mapstructure:"max-depth"`
	Strategy    string `mapstructure:"strategy"`
	MergePolicy string `mapstructure:"merge-policy"`
}

// parseFlags parses command-line flags and layers them over the environment and the config file.
// It returns the remaining positional arguments.
func parseFlags(args []string) (Flags, []string, error) {
	flagSet := pflag.NewFlagSet("treepad", pflag.ContinueOnError)
	flagSet.Usage = func() { fmt.Fprint(os.Stderr, usage) }

	flagSet.Bool("debug", false, "Enable debugging mode to show more verbose logs")
	flagSet.Bool("pretty", false, "Also print a human-readable diff")
	flagSet.Bool("json", false, "Print the edit script as an operations message")
	flagSet.String("log-dir", "", "Directory for log files (default ~/.treepad)")
	flagSet.Int("arity", crdt.DefaultArity, "Number of children per node of the position tree")
	flagSet.Int("lookahead", crdt.DefaultLookahead, "Sibling slots scanned before the allocator descends")
	flagSet.Int("large-line", crdt.DefaultLargeLine, "Documents shorter than this are fully reallocated on compact")
	flagSet.Int("max-depth", crdt.DefaultMaxDepth, "Maximum length of an allocated position")
	flagSet.String("strategy", "left", "Allocation strategy (left, right)")
	flagSet.String("merge-policy", "overwrite", "What merge does on colliding positions (overwrite, reject)")

	if err := flagSet.Parse(args); err != nil {
		return Flags{}, nil, err
	}

	v := viper.New()
	v.SetConfigName("treepad")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if homeDir, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(homeDir, ".treepad"))
	}
	v.SetEnvPrefix("treepad")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(flagSet); err != nil {
		return Flags{}, nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Flags{}, nil, fmt.Errorf("read config: %w", err)
		}
	}

	var flags Flags
	if err := v.Unmarshal(&flags); err != nil {
		return Flags{}, nil, fmt.Errorf("decode config: %w", err)
	}

	return flags, flagSet.Args(), nil
}

// docConfig builds the document configuration described by the flags.
func (f Flags) docConfig(logger *logrus.Logger) (crdt.Config, error) {
	strategy, err := crdt.ParseStrategy(f.Strategy)
	if err != nil {
		return crdt.Config{}, err
	}
	policy, err := crdt.ParseMergePolicy(f.MergePolicy)
	if err != nil {
		return crdt.Config{}, err
	}

	return crdt.Config{
		Arity:       f.Arity,
		Lookahead:   f.Lookahead,
		LargeLine:   f.LargeLine,
		MaxDepth:    f.MaxDepth,
		Strategy:    strategy,
		MergePolicy: policy,
		Logger:      logger,
	}, nil
}

// ensureDirExists ensures that a directory exists, and if it isn't present, it tries to create a new one.
func ensureDirExists(path string) (bool, error) {
	// Check if the directory exists
	if _, err := os.Stat(path); err == nil {
		return true, nil
	}

	// Create the directory
	err := os.MkdirAll(path, 0700)
	if err != nil {
		return false, err
	}

	return true, nil
}

// setupLogger initializes the logger (logrus) to write JSON entries into dir.
// An empty dir means ~/.treepad, falling back to the working directory.
func setupLogger(logger *logrus.Logger, dir string, debug bool) (*os.File, *os.File, error) {
	logPath := "treepad.log"
	debugLogPath := "treepad-debug.log"

	if dir == "" {
		if homeDir, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(homeDir, ".treepad")
		}
	}

	if dir != "" {
		dirExists, err := ensureDirExists(dir)
		if err != nil {
			return nil, nil, err
		}
		if dirExists {
			logPath = filepath.Join(dir, logPath)
			debugLogPath = filepath.Join(dir, debugLogPath)
		}
	}

	// Open the log file and create if it does not exist.
	logFile, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644) // skipcq: GSC-G302
	if err != nil {
		return nil, nil, err
	}

	// Create a separate log file for verbose logs.
	debugLogFile, err := os.OpenFile(debugLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644) // skipcq: GSC-G302
	if err != nil {
		logFile.Close()
		return nil, nil, err
	}

	logger.SetOutput(io.Discard)
	logger.SetFormatter(&logrus.JSONFormatter{})
	if debug {
		logger.SetLevel(logrus.DebugLevel)
	}
	logger.AddHook(&writer.Hook{
		Writer: logFile,
		LogLevels: []logrus.Level{
			logrus.WarnLevel,
			logrus.ErrorLevel,
			logrus.FatalLevel,
			logrus.PanicLevel,
		},
	})
	logger.AddHook(&writer.Hook{
		Writer: debugLogFile,
		LogLevels: []logrus.Level{
			logrus.TraceLevel,
			logrus.DebugLevel,
			logrus.InfoLevel,
		},
	})

	return logFile, debugLogFile, nil
}

// closeLogFiles closes the log files created by setupLogger.
// closeLogFiles is meant to be used for defer calls.
func closeLogFiles(logFile, debugLogFile *os.File) {
	if err := logFile.Close(); err != nil {
		fmt.Printf("Failed to close log file: %s", err)
		return
	}

	if err := debugLogFile.Close(); err != nil {
		fmt.Printf("Failed to close debug log file: %s", err)
		return
	}
}

// docState is the debug view of a document.
type docState struct {
	Replica    string
	Content    string
	Stored     int
	Tombstones int
	Positions  []string
}

func newDocState(id uuid.UUID, doc *crdt.Document) docState {
	stored, tombstones := doc.Stats()
	state := docState{
		Replica:    id.String(),
		Content:    doc.Content(),
		Stored:     stored,
		Tombstones: tombstones,
	}
	for _, p := range doc.Positions() {
		state.Positions = append(state.Positions, p.String())
	}
	return state
}

// dumpDoc renders the document state for debugging.
func dumpDoc(id uuid.UUID, doc *crdt.Document) string {
	return litter.Options{StripPackageNames: true}.Sdump(newDocState(id, doc))
}

// loadState reads the replica stored at path. A missing file yields a fresh replica.
func loadState(path string, cfg crdt.Config) (uuid.UUID, *crdt.Document, error) {
	doc := crdt.NewWithConfig(cfg)

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return uuid.New(), doc, nil
	}
	if err != nil {
		return uuid.Nil, nil, err
	}

	var msg commons.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return uuid.Nil, nil, fmt.Errorf("load %s: %w", path, err)
	}
	if msg.Type != commons.SnapshotMessage || msg.Snapshot == nil {
		return uuid.Nil, nil, fmt.Errorf("load %s: not a snapshot message", path)
	}

	if err := doc.Merge(*msg.Snapshot); err != nil {
		return uuid.Nil, nil, fmt.Errorf("load %s: %w", path, err)
	}

	return msg.ID, doc, nil
}

// saveState writes the replica to path as a snapshot message.
func saveState(path string, id uuid.UUID, doc *crdt.Document) error {
	data, err := json.Marshal(commons.NewSnapshotMessage(id, doc))
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644) // skipcq: GSC-G306
}
