package solana

import (
	"crypto/sha256"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Well-known program IDs.
const (
	SystemProgramID          = "11111111111111111111111111111111"
	TokenProgramID           = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	AssociatedTokenProgramID = "ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL"
)

// DerivePDA derives a Program Derived Address using the Solana algorithm:
// append a bump seed to the seeds, then the program ID and the
// "ProgramDerivedAddress" marker, SHA256 the whole thing, and take the
// first bump (searching from 255 down) whose hash is off the ed25519 curve.
func DerivePDA(seeds [][]byte, programID string) (string, error) {
	programBytes, err := DecodePubkey(programID)
	if err != nil {
		return "", err
	}

	for bump := byte(255); bump > 0; bump-- {
		data := make([]byte, 0)
		for _, seed := range seeds {
			data = append(data, seed...)
		}
		data = append(data, bump)
		data = append(data, programBytes...)
		data = append(data, []byte("ProgramDerivedAddress")...)

		hash := sha256.Sum256(data)

		if !isOnCurve(hash[:]) {
			return base58.Encode(hash[:]), nil
		}
	}

	return "", fmt.Errorf("no viable bump seed for program %s", programID)
}

// DeriveAssociatedTokenAddress derives the associated token account
// address for (mint, owner). Pure function of its inputs.
func DeriveAssociatedTokenAddress(mint, owner string) (string, error) {
	ownerBytes, err := DecodePubkey(owner)
	if err != nil {
		return "", err
	}
	mintBytes, err := DecodePubkey(mint)
	if err != nil {
		return "", err
	}
	tokenProgramBytes, err := DecodePubkey(TokenProgramID)
	if err != nil {
		return "", err
	}

	seeds := [][]byte{ownerBytes, tokenProgramBytes, mintBytes}
	return DerivePDA(seeds, AssociatedTokenProgramID)
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
