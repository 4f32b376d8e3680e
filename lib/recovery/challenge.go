package recovery

import (
	"crypto/rand"
	"crypto/sha256"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/hackingbutlegal/lockbox/lib/core"
)

// --------------------------------------------------------------------------
// Challenge Blob Format
// --------------------------------------------------------------------------

// The encrypted challenge is a fixed 80-byte blob:
//
//	[ 0:32]  nonce block (first 24 bytes are the XChaCha20-Poly1305 nonce)
//	[32:64]  ciphertext of the 32-byte challenge plaintext
//	[64:80]  Poly1305 tag

const (
	// ChallengePlaintextSize is the size of the random challenge value.
	ChallengePlaintextSize = 32

	// ChallengeBlobSize is the fixed on-record size of an encrypted challenge.
	ChallengeBlobSize = 32 + ChallengePlaintextSize + 16

	nonceBlockSize = 32
)

// SealChallenge generates a random challenge plaintext and encrypts it under
// key (the master secret, or a key derived from it). The plaintext is
// returned so the caller can compute the binding commitment; it must not be
// stored anywhere.
func SealChallenge(key []byte) (blob [ChallengeBlobSize]byte, plaintext []byte, err error) {
	if len(key) != chacha20poly1305.KeySize {
		return blob, nil, core.NewError(core.KindValidationError,
			"challenge key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	plaintext = make([]byte, ChallengePlaintextSize)
	if _, err := rand.Read(plaintext); err != nil {
		return blob, nil, core.NewError(core.KindValidationError, "entropy source failed: %v", err)
	}
	var nonceBlock [nonceBlockSize]byte
	if _, err := rand.Read(nonceBlock[:]); err != nil {
		return blob, nil, core.NewError(core.KindValidationError, "entropy source failed: %v", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return blob, nil, core.NewError(core.KindValidationError, "cipher init failed: %v", err)
	}
	sealed := aead.Seal(nil, nonceBlock[:chacha20poly1305.NonceSizeX], plaintext, nil)
	copy(blob[:nonceBlockSize], nonceBlock[:])
	copy(blob[nonceBlockSize:], sealed)
	return blob, plaintext, nil
}

// OpenChallenge decrypts a challenge blob with key and returns the
// plaintext. Authentication failure yields an IntegrityViolation.
func OpenChallenge(blob [ChallengeBlobSize]byte, key []byte) ([]byte, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, core.NewError(core.KindValidationError,
			"challenge key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, core.NewError(core.KindValidationError, "cipher init failed: %v", err)
	}
	plaintext, err := aead.Open(nil,
		blob[:chacha20poly1305.NonceSizeX],
		blob[nonceBlockSize:], nil)
	if err != nil {
		return nil, core.NewError(core.KindIntegrityViolation, "challenge authentication failed")
	}
	return plaintext, nil
}

// --------------------------------------------------------------------------
// Commitments
// --------------------------------------------------------------------------

// Fingerprint is SHA-256 of the challenge plaintext. Stored on the session
// at initiation and compared at completion.
func Fingerprint(plaintext []byte) [32]byte {
	return sha256.Sum256(plaintext)
}

// SecretCommitment is SHA-256 of the master secret. Stored on the
// configuration so completion can verify the requester reconstructed the
// right secret without the store ever holding it.
func SecretCommitment(secret []byte) [32]byte {
	return sha256.Sum256(secret)
}

// BindingCommitment is SHA-256 of the challenge plaintext concatenated with
// the master secret. It ties a completion proof to both values at once, so
// a captured plaintext alone is not enough to finish someone else's
// recovery.
func BindingCommitment(plaintext, secret []byte) [32]byte {
	h := sha256.New()
	h.Write(plaintext)
	h.Write(secret)
	var sum [32]byte
	copy(sum[:], h.Sum(nil))
	return sum
}

// ShareCommitment is SHA-256 of a share concatenated with the holding
// guardian's identity, preventing one guardian from replaying another's
// share.
func ShareCommitment(share []byte, guardian core.Identity) [32]byte {
	h := sha256.New()
	h.Write(share)
	h.Write([]byte(guardian))
	var sum [32]byte
	copy(sum[:], h.Sum(nil))
	return sum
}
