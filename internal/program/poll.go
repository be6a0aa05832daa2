package program

import (
	"bytes"
	"fmt"

	"github.com/mr-tron/base58"

	"solana-vote-server/internal/domain"
)

// Poll account bounds enforced by the on-chain program.
const (
	MinCandidates   = 2
	MaxCandidates   = 5
	MaxTitleLen     = 40
	MaxCandidateLen = 20
)

// PollDiscriminator is the 8-byte prefix of every Poll account.
var PollDiscriminator = AccountDiscriminator("Poll")

// PollDiscriminatorBase58 is the memcmp filter value for getProgramAccounts.
func PollDiscriminatorBase58() string {
	return base58.Encode(PollDiscriminator)
}

// DecodePoll decodes a borsh-encoded Poll account.
// Layout: discriminator(8) | title: string | candidates: vec<string> |
// votes: vec<u64> | owner: pubkey | deadline: i64 | required_mint: pubkey |
// is_closed: bool.
func DecodePoll(pubkey string, data []byte) (*domain.Poll, error) {
	r := &borshReader{data: data}

	disc, err := r.readBytes(8)
	if err != nil {
		return nil, fmt.Errorf("poll %s: %w", pubkey, err)
	}
	if !bytes.Equal(disc, PollDiscriminator) {
		return nil, fmt.Errorf("poll %s: not a Poll account", pubkey)
	}

	title, err := r.readString()
	if err != nil {
		return nil, fmt.Errorf("poll %s: title: %w", pubkey, err)
	}

	numCandidates, err := r.readU32()
	if err != nil {
		return nil, fmt.Errorf("poll %s: candidates: %w", pubkey, err)
	}
	if numCandidates > MaxCandidates {
		return nil, fmt.Errorf("poll %s: %d candidates exceeds maximum %d", pubkey, numCandidates, MaxCandidates)
	}
	candidates := make([]string, 0, numCandidates)
	for i := uint32(0); i < numCandidates; i++ {
		c, err := r.readString()
		if err != nil {
			return nil, fmt.Errorf("poll %s: candidate %d: %w", pubkey, i, err)
		}
		candidates = append(candidates, c)
	}

	numVotes, err := r.readU32()
	if err != nil {
		return nil, fmt.Errorf("poll %s: votes: %w", pubkey, err)
	}
	if numVotes != numCandidates {
		return nil, fmt.Errorf("poll %s: %d votes for %d candidates", pubkey, numVotes, numCandidates)
	}
	votes := make([]uint64, 0, numVotes)
	for i := uint32(0); i < numVotes; i++ {
		v, err := r.readU64()
		if err != nil {
			return nil, fmt.Errorf("poll %s: vote %d: %w", pubkey, i, err)
		}
		votes = append(votes, v)
	}

	ownerBytes, err := r.readBytes(32)
	if err != nil {
		return nil, fmt.Errorf("poll %s: owner: %w", pubkey, err)
	}

	deadline, err := r.readI64()
	if err != nil {
		return nil, fmt.Errorf("poll %s: deadline: %w", pubkey, err)
	}

	mintBytes, err := r.readBytes(32)
	if err != nil {
		return nil, fmt.Errorf("poll %s: required mint: %w", pubkey, err)
	}

	isClosed, err := r.readU8()
	if err != nil {
		return nil, fmt.Errorf("poll %s: is_closed: %w", pubkey, err)
	}

	return &domain.Poll{
		Pubkey:       pubkey,
		Title:        title,
		Candidates:   candidates,
		Votes:        votes,
		Owner:        base58.Encode(ownerBytes),
		Deadline:     deadline,
		RequiredMint: base58.Encode(mintBytes),
		IsClosed:     isClosed != 0,
	}, nil
}

// EncodePoll encodes a Poll into account data bytes. Used by tests and
// tooling; the program itself owns the on-chain encoding.
func EncodePoll(p *domain.Poll) ([]byte, error) {
	ownerBytes, err := base58.Decode(p.Owner)
	if err != nil || len(ownerBytes) != 32 {
		return nil, fmt.Errorf("encode poll: bad owner %q", p.Owner)
	}
	mintBytes, err := base58.Decode(p.RequiredMint)
	if err != nil || len(mintBytes) != 32 {
		return nil, fmt.Errorf("encode poll: bad required mint %q", p.RequiredMint)
	}

	out := append([]byte{}, PollDiscriminator...)
	out = appendString(out, p.Title)
	out = appendStringVec(out, p.Candidates)

	out = appendU32(out, uint32(len(p.Votes)))
	for _, v := range p.Votes {
		out = appendU64(out, v)
	}

	out = append(out, ownerBytes...)
	out = appendI64(out, p.Deadline)
	out = append(out, mintBytes...)
	if p.IsClosed {
		out = append(out, 1)
	} else {
		out = append(out, 0)
	}
	return out, nil
}
