package chunk

import "github.com/hackingbutlegal/lockbox/lib/core"

// --------------------------------------------------------------------------
// Entry Types
// --------------------------------------------------------------------------

// EntryType tags the kind of record stored in an entry. The discriminant
// values are persisted and must never be renumbered or reused.
type EntryType uint8

const (
	EntryLogin        EntryType = 0
	EntryCreditCard   EntryType = 1
	EntrySecureNote   EntryType = 2
	EntryIdentity     EntryType = 3
	EntryAPIKey       EntryType = 4
	EntrySSHKey       EntryType = 5
	EntryCryptoWallet EntryType = 6
)

func (t EntryType) String() string {
	switch t {
	case EntryLogin:
		return "login"
	case EntryCreditCard:
		return "credit-card"
	case EntrySecureNote:
		return "secure-note"
	case EntryIdentity:
		return "identity"
	case EntryAPIKey:
		return "api-key"
	case EntrySSHKey:
		return "ssh-key"
	case EntryCryptoWallet:
		return "crypto-wallet"
	default:
		return "unknown"
	}
}

// Valid reports whether t is a known entry type.
func (t EntryType) Valid() bool {
	return t <= EntryCryptoWallet
}

// StorageType tags the kind of data a whole chunk holds. Persisted, stable.
type StorageType uint8

const (
	StoragePasswords   StorageType = 0
	StorageSharedItems StorageType = 1
	StorageSearchIndex StorageType = 2
	StorageAuditLogs   StorageType = 3
)

func (t StorageType) String() string {
	switch t {
	case StoragePasswords:
		return "passwords"
	case StorageSharedItems:
		return "shared-items"
	case StorageSearchIndex:
		return "search-index"
	case StorageAuditLogs:
		return "audit-logs"
	default:
		return "unknown"
	}
}

// --------------------------------------------------------------------------
// Entry Header
// --------------------------------------------------------------------------

// Entry flag bits.
const (
	FlagFavorite uint8 = 0x01
	FlagArchived uint8 = 0x02
)

// EntryHeader locates and describes one encrypted record within a chunk.
// Offset and Size are maintained exclusively by the chunk operations.
type EntryHeader struct {
	EntryID      uint64         // Globally unique, monotonic per vault
	Offset       uint32         // Byte offset into the owning chunk's arena
	Size         uint32         // Length of the record in bytes
	Type         EntryType      // Kind of record
	CategoryID   uint32         // User-defined category (0 = uncategorized)
	TitleHash    [32]byte       // Opaque fingerprint of the encrypted title (blind search)
	CreatedAt    core.Timestamp // Creation time
	LastModified core.Timestamp // Last mutation time
	AccessCount  uint32         // Read counter, bumped by the caller on retrieval
	Flags        uint8          // Favorite/archived bits
}

// IsFavorite reports whether the favorite flag is set.
func (h *EntryHeader) IsFavorite() bool {
	return h.Flags&FlagFavorite != 0
}

// IsArchived reports whether the archived flag is set.
func (h *EntryHeader) IsArchived() bool {
	return h.Flags&FlagArchived != 0
}

// SetFavorite sets or clears the favorite flag.
func (h *EntryHeader) SetFavorite(v bool) {
	if v {
		h.Flags |= FlagFavorite
	} else {
		h.Flags &^= FlagFavorite
	}
}

// SetArchived sets or clears the archived flag.
func (h *EntryHeader) SetArchived(v bool) {
	if v {
		h.Flags |= FlagArchived
	} else {
		h.Flags &^= FlagArchived
	}
}
