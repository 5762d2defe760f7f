// Package digest wraps the two hash functions the mining search compares:
// SHA-1 (the git object hash) and BLAKE2b-512 (the cosmetic partner hash).
// Both are streaming, byte-exact, and bit-for-bit compatible with the
// standard algorithms.
package digest

import (
	"crypto/sha1"
	"hash"

	fasthex "github.com/tmthrgd/go-hex"
	"golang.org/x/crypto/blake2b"
)

const (
	// SHA1Size is the digest length of SHA-1, in bytes.
	SHA1Size = sha1.Size
	// Blake2bSize is the digest length of BLAKE2b with default (64-byte,
	// unkeyed) parameters.
	Blake2bSize = blake2b.Size
)

// Sha1Digest is a streaming SHA-1 hash matching spec.md's HashDigest
// contract: Update any number of times, then Finalize.
type Sha1Digest struct {
	h      hash.Hash
	result [SHA1Size]byte
	done   bool
}

// NewSha1 returns a fresh, empty SHA-1 digest.
func NewSha1() *Sha1Digest {
	return &Sha1Digest{h: sha1.New()}
}

// Update feeds more bytes into the digest. It panics if called after
// Finalize, matching the "immutable after finalize" contract in spec.md §3.
func (d *Sha1Digest) Update(p []byte) {
	if d.done {
		panic("digest: Update called after Finalize")
	}
	d.h.Write(p)
}

// Finalize completes the digest and returns the 20-byte result.
func (d *Sha1Digest) Finalize() [SHA1Size]byte {
	if !d.done {
		d.h.Sum(d.result[:0])
		d.done = true
	}
	return d.result
}

// Hex returns the finalized digest as lowercase hex.
func (d *Sha1Digest) Hex() string {
	r := d.Finalize()
	return fasthex.EncodeToString(r[:])
}

// Blake2bDigest is a streaming BLAKE2b-512 hash (unkeyed, 64-byte output),
// matching the reference "b2sum"/blake2b_init(NULL key) behavior.
type Blake2bDigest struct {
	h      hash.Hash
	result [Blake2bSize]byte
	done   bool
}

// NewBlake2b returns a fresh, empty BLAKE2b-512 digest.
func NewBlake2b() *Blake2bDigest {
	h, err := blake2b.New512(nil)
	if err != nil {
		// blake2b.New512(nil) only fails for an oversized key; nil never does.
		panic(err)
	}
	return &Blake2bDigest{h: h}
}

// Update feeds more bytes into the digest.
func (d *Blake2bDigest) Update(p []byte) {
	if d.done {
		panic("digest: Update called after Finalize")
	}
	d.h.Write(p)
}

// Finalize completes the digest and returns the 64-byte result.
func (d *Blake2bDigest) Finalize() [Blake2bSize]byte {
	if !d.done {
		d.h.Sum(d.result[:0])
		d.done = true
	}
	return d.result
}

// Hex returns the finalized digest as lowercase hex.
func (d *Blake2bDigest) Hex() string {
	r := d.Finalize()
	return fasthex.EncodeToString(r[:])
}

// Sha1Sum computes the SHA-1 digest of data in one call, for hot paths
// (the search loop) that don't need the streaming interface.
func Sha1Sum(data []byte) [SHA1Size]byte {
	return sha1.Sum(data)
}

// Blake2bSum computes the BLAKE2b-512 digest of data in one call.
func Blake2bSum(data []byte) [Blake2bSize]byte {
	return blake2b.Sum512(data)
}
