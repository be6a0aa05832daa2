// Package program binds the deployed on-chain voting program: account
// layout, instruction discriminators and argument encoding. The layout is
// a fixed external schema versioned independently of this service.
package program

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// DefaultProgramID is the devnet deployment of the voting program.
const DefaultProgramID = "HQ24JdiocERDsdbnKxc5YM6Chr2wX4QDPWGYDhzsitcm"

// InstructionDiscriminator computes the 8-byte Anchor discriminator
// for a global instruction, e.g. InstructionDiscriminator("vote").
func InstructionDiscriminator(name string) []byte {
	hash := sha256.Sum256([]byte("global:" + name))
	return hash[:8]
}

// AccountDiscriminator computes the 8-byte Anchor discriminator for an
// account type, e.g. AccountDiscriminator("Poll").
func AccountDiscriminator(name string) []byte {
	hash := sha256.Sum256([]byte("account:" + name))
	return hash[:8]
}

// Borsh encoding helpers. Anchor serializes instruction arguments and
// account data with borsh: little-endian integers, u32 length prefixes.

func appendU32(out []byte, v uint32) []byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	return append(out, buf[:]...)
}

func appendU64(out []byte, v uint64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return append(out, buf[:]...)
}

func appendI64(out []byte, v int64) []byte {
	return appendU64(out, uint64(v))
}

func appendString(out []byte, s string) []byte {
	out = appendU32(out, uint32(len(s)))
	return append(out, []byte(s)...)
}

func appendStringVec(out []byte, items []string) []byte {
	out = appendU32(out, uint32(len(items)))
	for _, s := range items {
		out = appendString(out, s)
	}
	return out
}

// borshReader walks borsh-encoded account data.
type borshReader struct {
	data []byte
	pos  int
}

func (r *borshReader) remaining() int {
	return len(r.data) - r.pos
}

func (r *borshReader) skip(n int) error {
	if r.remaining() < n {
		return fmt.Errorf("borsh: need %d bytes at offset %d, have %d", n, r.pos, r.remaining())
	}
	r.pos += n
	return nil
}

func (r *borshReader) readBytes(n int) ([]byte, error) {
	if r.remaining() < n {
		return nil, fmt.Errorf("borsh: need %d bytes at offset %d, have %d", n, r.pos, r.remaining())
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *borshReader) readU8() (byte, error) {
	b, err := r.readBytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *borshReader) readU32() (uint32, error) {
	b, err := r.readBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *borshReader) readU64() (uint64, error) {
	b, err := r.readBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *borshReader) readI64() (int64, error) {
	v, err := r.readU64()
	return int64(v), err
}

func (r *borshReader) readString() (string, error) {
	n, err := r.readU32()
	if err != nil {
		return "", err
	}
	b, err := r.readBytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}
