package util

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"tablekv/lib/checkpoints"
	"tablekv/lib/logging"
	"tablekv/lib/store/pebbledb"
	"tablekv/lib/tables"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// InitConfig initializes configuration from dotenv files and environment
// variables. Flags beat environment variables beat dotenv entries.
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("tablekv")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// SetupStoreFlags adds the store location and engine tuning flags to a
// command. Every flag is also reachable as TABLEKV_<FLAG> in the
// environment.
func SetupStoreFlags(cmd *cobra.Command) {
	key := "data-dir"
	cmd.PersistentFlags().String(key, "./data", WrapString("Root directory for persistent table data"))

	key = "table"
	cmd.PersistentFlags().String(key, "default", WrapString("Name of the table to operate on"))

	key = "checkpoints"
	cmd.PersistentFlags().String(key, "", WrapString("Path of the bbolt checkpoint file for recovery offsets (optional)"))

	key = "max-open-files"
	cmd.PersistentFlags().Int(key, 0, WrapString("Max file handles the engine may hold open (0 = default)"))

	key = "write-buffer-size"
	cmd.PersistentFlags().Int(key, 0, WrapString("Engine write buffer size in bytes (0 = default)"))

	key = "write-buffer-count"
	cmd.PersistentFlags().Int(key, 0, WrapString("Queued write buffers before writes stall (0 = default)"))

	key = "target-file-size"
	cmd.PersistentFlags().Int64(key, 0, WrapString("Target size of on-disk table files in bytes (0 = default)"))

	key = "block-cache-size"
	cmd.PersistentFlags().Int64(key, 0, WrapString("Uncompressed block cache budget in bytes (0 = default)"))

	key = "block-cache-compressed-size"
	cmd.PersistentFlags().Int64(key, 0, WrapString("Compressed block cache budget in bytes (0 = default)"))

	key = "bloom-bits-per-key"
	cmd.PersistentFlags().Int(key, 0, WrapString("Bloom filter bits per key, negative disables the membership probe (0 = default)"))
}

// InitLogging configures slog from the resolved log flags.
func InitLogging() {
	logging.Init(viper.GetString("log-level"), viper.GetString("log-format"))
}

// GetEngineOptions reads the engine tuning from viper. Zero values keep the
// engine defaults.
func GetEngineOptions() *pebbledb.Options {
	return &pebbledb.Options{
		MaxOpenFiles:             viper.GetInt("max-open-files"),
		WriteBufferSize:          viper.GetInt("write-buffer-size"),
		MaxWriteBufferNumber:     viper.GetInt("write-buffer-count"),
		TargetFileSizeBase:       viper.GetInt64("target-file-size"),
		BlockCacheSize:           viper.GetInt64("block-cache-size"),
		BlockCacheCompressedSize: viper.GetInt64("block-cache-compressed-size"),
		BloomFilterBitsPerKey:    viper.GetInt("bloom-bits-per-key"),
	}
}

// GetCheckpoints opens the configured checkpoint store, or returns nil if
// none is configured. The caller owns the returned store.
func GetCheckpoints() (*checkpoints.Bolt, error) {
	path := viper.GetString("checkpoints")
	if path == "" {
		return nil, nil
	}
	cp, err := checkpoints.OpenBolt(path)
	if err != nil {
		return nil, fmt.Errorf("opening checkpoints at %s: %w", path, err)
	}
	return cp, nil
}

// GetManager builds the table manager from the resolved configuration: the
// data directory, the engine tuning and, if configured, the checkpoint file
// as the offset source of every store.
func GetManager() (*tables.Manager, *checkpoints.Bolt, error) {
	cp, err := GetCheckpoints()
	if err != nil {
		return nil, nil, err
	}

	opts := GetEngineOptions()
	if cp != nil {
		opts.Offsets = cp
	}

	m := tables.NewManager(viper.GetString("data-dir"), tables.WithEngineOptions(opts))
	return m, cp, nil
}

// GetTableName retrieves the configured table name
func GetTableName() string {
	return viper.GetString("table")
}
