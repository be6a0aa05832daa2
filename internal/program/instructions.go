package program

import (
	"solana-vote-server/internal/solana"
)

// NewCreatePollInstruction builds the create_poll instruction.
// The poll account is freshly generated and must co-sign with the
// authority, which pays for the account.
func NewCreatePollInstruction(programID, poll, authority, title string, candidates []string, deadline int64, requiredMint string) (solana.Instruction, error) {
	mintBytes, err := solana.DecodePubkey(requiredMint)
	if err != nil {
		return solana.Instruction{}, err
	}

	data := append([]byte{}, InstructionDiscriminator("create_poll")...)
	data = appendString(data, title)
	data = appendStringVec(data, candidates)
	data = appendI64(data, deadline)
	data = append(data, mintBytes...)

	return solana.Instruction{
		ProgramID: programID,
		Accounts: []solana.AccountMeta{
			{Pubkey: poll, IsSigner: true, IsWritable: true},
			{Pubkey: authority, IsSigner: true, IsWritable: true},
			{Pubkey: solana.SystemProgramID},
		},
		Data: data,
	}, nil
}

// NewVoteInstruction builds the vote instruction. The candidate index is
// packaged as-is; an out-of-range value is rejected by the program, not
// here.
func NewVoteInstruction(programID, poll, voter, voterTokenAccount, pollVault string, candidateIndex uint8, amount uint64) solana.Instruction {
	data := append([]byte{}, InstructionDiscriminator("vote")...)
	data = append(data, candidateIndex)
	data = appendU64(data, amount)

	return solana.Instruction{
		ProgramID: programID,
		Accounts: []solana.AccountMeta{
			{Pubkey: poll, IsWritable: true},
			{Pubkey: voter, IsSigner: true},
			{Pubkey: voterTokenAccount, IsWritable: true},
			{Pubkey: pollVault, IsWritable: true},
			{Pubkey: solana.TokenProgramID},
		},
		Data: data,
	}
}

// NewResetPollInstruction builds the reset_poll instruction, authorized
// by the poll owner.
func NewResetPollInstruction(programID, poll, owner string) solana.Instruction {
	return solana.Instruction{
		ProgramID: programID,
		Accounts: []solana.AccountMeta{
			{Pubkey: poll, IsWritable: true},
			{Pubkey: owner, IsSigner: true},
		},
		Data: InstructionDiscriminator("reset_poll"),
	}
}
