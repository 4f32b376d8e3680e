package util

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hackingbutlegal/lockbox/lib/chunk"
	"github.com/hackingbutlegal/lockbox/lib/codec"
	"github.com/hackingbutlegal/lockbox/lib/core"
	"github.com/hackingbutlegal/lockbox/lib/emergency"
	"github.com/hackingbutlegal/lockbox/lib/lockbox"
	"github.com/hackingbutlegal/lockbox/lib/recovery"
	"github.com/hackingbutlegal/lockbox/lib/storage"
	"github.com/hackingbutlegal/lockbox/lib/tier"

	"github.com/joho/godotenv"
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

// InitConfig initializes configuration from environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("lockbox")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// GetCodec creates a record codec based on configuration
func GetCodec() (codec.ICodec, error) {
	switch viper.GetString("codec") {
	case "json":
		return codec.NewJSONCodec(), nil
	case "gob":
		return codec.NewGOBCodec(), nil
	case "binary":
		return codec.NewBinaryCodec(), nil
	default:
		return nil, fmt.Errorf("invalid codec %s", viper.GetString("codec"))
	}
}

// GetOwner retrieves the configured vault owner identity
func GetOwner() (core.Identity, error) {
	owner := viper.GetString("owner")
	if owner == "" {
		return "", fmt.Errorf("no owner configured (use --owner or LOCKBOX_OWNER)")
	}
	return core.Identity(owner), nil
}

// GetDataPath retrieves the configured snapshot file path
func GetDataPath() string {
	return viper.GetString("data")
}

// OpenService creates a service over an in-memory store and loads the
// snapshot file if one exists at the configured path.
func OpenService() (*lockbox.Service, error) {
	c, err := GetCodec()
	if err != nil {
		return nil, err
	}

	logger := zerolog.Nop()
	if viper.GetBool("verbose") {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			With().Timestamp().Logger()
	}

	svc, err := lockbox.New(lockbox.Options{
		Store:  storage.NewMemStore(),
		Codec:  c,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}

	path := GetDataPath()
	if _, err := os.Stat(path); err == nil {
		if err := svc.LoadFile(path); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	return svc, nil
}

// Persist writes the service state back to the snapshot file
func Persist(svc *lockbox.Service) error {
	if err := svc.SaveFile(GetDataPath()); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Argument Parsing
// --------------------------------------------------------------------------

// ParseTier parses a subscription tier name
func ParseTier(s string) (tier.Tier, error) {
	switch s {
	case "free":
		return tier.Free, nil
	case "basic":
		return tier.Basic, nil
	case "premium":
		return tier.Premium, nil
	case "enterprise":
		return tier.Enterprise, nil
	default:
		return 0, fmt.Errorf("invalid tier %s (free, basic, premium, enterprise)", s)
	}
}

// ParseEntryType parses an entry type name
func ParseEntryType(s string) (chunk.EntryType, error) {
	switch s {
	case "login":
		return chunk.EntryLogin, nil
	case "credit-card":
		return chunk.EntryCreditCard, nil
	case "secure-note":
		return chunk.EntrySecureNote, nil
	case "identity":
		return chunk.EntryIdentity, nil
	case "api-key":
		return chunk.EntryAPIKey, nil
	case "ssh-key":
		return chunk.EntrySSHKey, nil
	case "crypto-wallet":
		return chunk.EntryCryptoWallet, nil
	default:
		return 0, fmt.Errorf("invalid entry type %s", s)
	}
}

// ParseStorageType parses a chunk storage type name
func ParseStorageType(s string) (chunk.StorageType, error) {
	switch s {
	case "passwords":
		return chunk.StoragePasswords, nil
	case "shared-items":
		return chunk.StorageSharedItems, nil
	case "search-index":
		return chunk.StorageSearchIndex, nil
	case "audit-logs":
		return chunk.StorageAuditLogs, nil
	default:
		return 0, fmt.Errorf("invalid storage type %s", s)
	}
}

// ParseProtocol parses a recovery protocol name
func ParseProtocol(s string) (recovery.Protocol, error) {
	switch s {
	case "shares":
		return recovery.ProtocolShares, nil
	case "challenge":
		return recovery.ProtocolChallenge, nil
	default:
		return 0, fmt.Errorf("invalid protocol %s (shares, challenge)", s)
	}
}

// ParseAccessLevel parses an emergency access level name
func ParseAccessLevel(s string) (emergency.AccessLevel, error) {
	switch s {
	case "read-only":
		return emergency.AccessReadOnly, nil
	case "full":
		return emergency.AccessFull, nil
	default:
		return 0, fmt.Errorf("invalid access level %s (read-only, full)", s)
	}
}

// ParseHash32 parses a hex-encoded 32 byte digest
func ParseHash32(s string) ([32]byte, error) {
	var out [32]byte
	raw, err := hex.DecodeString(s)
	if err != nil {
		return out, fmt.Errorf("invalid hex digest: %w", err)
	}
	if len(raw) != 32 {
		return out, fmt.Errorf("digest must be 32 bytes, got %d", len(raw))
	}
	copy(out[:], raw)
	return out, nil
}
