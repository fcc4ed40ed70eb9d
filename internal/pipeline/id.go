package pipeline

import (
	"crypto/rand"
	"encoding/binary"
	"sync"
	"time"
)

// Job IDs are ULIDs: 26-character Crockford Base32 strings with a
// millisecond timestamp prefix, so IDs sort by submission time.

var (
	ulidMu  sync.Mutex
	lastTS  uint64
	lastSeq uint16
)

const crockford = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

func newJobID() string {
	ulidMu.Lock()
	defer ulidMu.Unlock()

	ts := uint64(time.Now().UnixMilli())
	if ts == lastTS {
		lastSeq++
	} else {
		lastTS = ts
		lastSeq = 0
	}

	var b [16]byte
	// Timestamp in first 6 bytes (big-endian 48-bit).
	b[0] = byte(ts >> 40)
	b[1] = byte(ts >> 32)
	b[2] = byte(ts >> 24)
	b[3] = byte(ts >> 16)
	b[4] = byte(ts >> 8)
	b[5] = byte(ts)
	// Random in remaining 10 bytes, with a sequence counter in bytes 6-7
	// so two IDs in the same millisecond never collide.
	rand.Read(b[6:])
	binary.BigEndian.PutUint16(b[6:8], lastSeq)

	return encodeBase32(b)
}

// encodeBase32 packs 128 bits into 26 Crockford Base32 characters,
// MSB-first with two leading zero bits of padding.
func encodeBase32(b [16]byte) string {
	var out [26]byte
	// Treat the 16 bytes as a 130-bit stream (2 pad bits + 128 data bits)
	// and peel off 5 bits per character.
	var acc uint64
	bits := 2 // leading pad
	idx := 0
	for i := 0; i < 26; i++ {
		for bits < 5 && idx < 16 {
			acc = acc<<8 | uint64(b[idx])
			bits += 8
			idx++
		}
		shift := bits - 5
		out[i] = crockford[(acc>>shift)&31]
		acc &= (1 << shift) - 1
		bits = shift
	}
	return string(out[:])
}
