package solana

import "encoding/binary"

// SPL token instruction tags.
const tokenInstructionTransfer = 3

// NewTransferInstruction builds an SPL token Transfer instruction
// moving amount base units from source to dest, authorized by owner.
func NewTransferInstruction(source, dest, owner string, amount uint64) Instruction {
	data := make([]byte, 9)
	data[0] = tokenInstructionTransfer
	binary.LittleEndian.PutUint64(data[1:], amount)

	return Instruction{
		ProgramID: TokenProgramID,
		Accounts: []AccountMeta{
			{Pubkey: source, IsWritable: true},
			{Pubkey: dest, IsWritable: true},
			{Pubkey: owner, IsSigner: true},
		},
		Data: data,
	}
}

// NewCreateAssociatedTokenAccountInstruction builds an instruction that
// creates the associated token account for (mint, owner), funded by payer.
// Creation is idempotent at the cluster level only in the sense that a
// second create for the same address is rejected by the program, not by us.
func NewCreateAssociatedTokenAccountInstruction(payer, ata, owner, mint string) Instruction {
	return Instruction{
		ProgramID: AssociatedTokenProgramID,
		Accounts: []AccountMeta{
			{Pubkey: payer, IsSigner: true, IsWritable: true},
			{Pubkey: ata, IsWritable: true},
			{Pubkey: owner},
			{Pubkey: mint},
			{Pubkey: SystemProgramID},
			{Pubkey: TokenProgramID},
		},
	}
}
