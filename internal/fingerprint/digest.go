package fingerprint

import (
	"encoding/hex"
	"fmt"
	"iter"

	"github.com/ipfs/go-cid"
	"github.com/minio/sha256-simd"
	"github.com/multiformats/go-multihash"
)

// Digest is the sha2-256 multihash of a video's normalized frame sequence.
// The underlying string holds the raw multihash bytes, which keeps Digest
// comparable and usable as a map key.
type Digest string

// NewDigest wraps a raw sha-256 sum into a Digest.
func NewDigest(sum []byte) (Digest, error) {
	mh, err := multihash.Encode(sum, multihash.SHA2_256)
	if err != nil {
		return "", fmt.Errorf("encode multihash: %w", err)
	}
	return Digest(mh), nil
}

// ParseDigest parses the text form produced by Digest.String.
func ParseDigest(s string) (Digest, error) {
	c, err := cid.Decode(s)
	if err != nil {
		return "", fmt.Errorf("parse digest %q: %w", s, err)
	}
	pref := c.Prefix()
	if pref.Codec != cid.Raw || pref.MhType != multihash.SHA2_256 {
		return "", fmt.Errorf("parse digest %q: not a raw sha2-256 cid", s)
	}
	return Digest(c.Hash()), nil
}

// String returns the CIDv1 (raw codec) text form of d.
func (d Digest) String() string {
	if d == "" {
		return ""
	}
	return cid.NewCidV1(cid.Raw, multihash.Multihash(d)).String()
}

// Bytes returns a copy of the multihash bytes.
func (d Digest) Bytes() []byte {
	return []byte(d)
}

// Hex returns the hex encoding of the bare sha-256 sum.
func (d Digest) Hex() string {
	decoded, err := multihash.Decode(multihash.Multihash(d))
	if err != nil {
		return ""
	}
	return hex.EncodeToString(decoded.Digest)
}

// Generate folds frames, in order, into a Digest. Only the pixel bytes are
// hashed, so the result does not depend on container, codec or filename.
// A sequence without frames fails with ErrNoFrames.
func Generate(frames iter.Seq2[Frame, error]) (Digest, error) {
	h := sha256.New()
	n := 0
	for f, err := range frames {
		if err != nil {
			return "", asDecodeError("frames", err)
		}
		h.Write(f.Pix)
		n++
	}
	if n == 0 {
		return "", &DecodeError{Op: "frames", Err: ErrNoFrames}
	}
	return NewDigest(h.Sum(nil))
}
