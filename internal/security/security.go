// Package security collects the hashing/signing/compression helpers
// ClawCity needs, adapted from pkg/core/security.go. The relative-
// import style that package used ("../core", "../types") does not
// survive the move into a normal internal package, so every dependency
// here is a regular module import.
package security

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
	"lukechampine.com/blake3"
)

// Hash returns the hex-encoded BLAKE3-256 digest of data. Used for
// content fingerprints (world seed, snapshot digests) where no
// particular algorithm is mandated.
func Hash(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// KeyHash returns the hex-encoded SHA-256 digest of a plaintext API
// key. agentKeyHash is always SHA-256 specifically, so this is kept
// separate from Hash.
func KeyHash(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// Compress LZ4-compresses src, used by internal/snapshot before
// persisting a world snapshot blob.
func Compress(src []byte) []byte {
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	zw.Write(src)
	zw.Close()
	return buf.Bytes()
}

// Decompress reverses Compress.
func Decompress(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	zr := lz4.NewReader(bytes.NewReader(src))
	if _, err := io.Copy(&buf, zr); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Sign signs msg with the node's ed25519 key, for tamper-evidence on
// exported snapshots (not for any client-facing protocol).
func Sign(priv ed25519.PrivateKey, msg []byte) []byte {
	return ed25519.Sign(priv, msg)
}

// Verify checks a signature produced by Sign.
func Verify(pub ed25519.PublicKey, msg, sig []byte) bool {
	return ed25519.Verify(pub, msg, sig)
}

// Chance derives a deterministic pseudo-random value in [0,1) from an
// arbitrary seed string. Outcome-bearing actions (crime success,
// gambling, arrest sampling) build the seed from the triggering
// requestId/tick/agentId rather than reaching for math/rand, so a
// replayed idempotent request or a reconstructed history always
// samples the same draw.
func Chance(seedParts ...any) float64 {
	var seed string
	for _, p := range seedParts {
		seed += fmt.Sprintf("|%v", p)
	}
	sum := blake3.Sum256([]byte(seed))
	n := binary.BigEndian.Uint64(sum[:8])
	return float64(n) / float64(^uint64(0))
}
