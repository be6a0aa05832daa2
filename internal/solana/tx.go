package solana

import (
	"encoding/base64"
	"fmt"

	"github.com/mr-tron/base58"
)

// AccountMeta describes one account referenced by an instruction.
type AccountMeta struct {
	Pubkey     string
	IsSigner   bool
	IsWritable bool
}

// Instruction is a single program invocation.
type Instruction struct {
	ProgramID string
	Accounts  []AccountMeta
	Data      []byte
}

// Transaction is a legacy-format Solana transaction under construction.
// Instructions execute in order; signatures are collected per signer
// and zero-filled placeholders are emitted for missing ones, so a
// partially signed or fully unsigned transaction can be serialized.
type Transaction struct {
	FeePayer        string
	RecentBlockhash string
	Instructions    []Instruction

	signatures map[string][]byte // pubkey -> 64-byte signature
}

// NewTransaction creates a transaction with the given fee payer,
// recent blockhash and ordered instructions.
func NewTransaction(feePayer, recentBlockhash string, instructions ...Instruction) *Transaction {
	return &Transaction{
		FeePayer:        feePayer,
		RecentBlockhash: recentBlockhash,
		Instructions:    instructions,
		signatures:      make(map[string][]byte),
	}
}

// compiledMessage is the flattened account table plus header counts.
type compiledMessage struct {
	accounts            []AccountMeta // deduplicated, privilege-ordered, fee payer first
	numRequiredSigs     int
	numReadonlySigned   int
	numReadonlyUnsigned int
}

// compile builds the account table. Order: fee payer, then writable
// signers, readonly signers, writable non-signers, readonly non-signers.
// Duplicate references merge with a privilege union.
func (t *Transaction) compile() (*compiledMessage, error) {
	if t.FeePayer == "" {
		return nil, fmt.Errorf("transaction has no fee payer")
	}
	if t.RecentBlockhash == "" {
		return nil, fmt.Errorf("transaction has no recent blockhash")
	}
	if len(t.Instructions) == 0 {
		return nil, fmt.Errorf("transaction has no instructions")
	}

	merged := make(map[string]*AccountMeta)
	order := []string{}

	add := func(m AccountMeta) {
		existing, ok := merged[m.Pubkey]
		if !ok {
			metaCopy := m
			merged[m.Pubkey] = &metaCopy
			order = append(order, m.Pubkey)
			return
		}
		existing.IsSigner = existing.IsSigner || m.IsSigner
		existing.IsWritable = existing.IsWritable || m.IsWritable
	}

	add(AccountMeta{Pubkey: t.FeePayer, IsSigner: true, IsWritable: true})
	for _, ix := range t.Instructions {
		for _, m := range ix.Accounts {
			add(m)
		}
		add(AccountMeta{Pubkey: ix.ProgramID})
	}

	var writableSigners, readonlySigners, writableOthers, readonlyOthers []AccountMeta
	for _, pk := range order {
		m := *merged[pk]
		if pk == t.FeePayer {
			continue // always first
		}
		switch {
		case m.IsSigner && m.IsWritable:
			writableSigners = append(writableSigners, m)
		case m.IsSigner:
			readonlySigners = append(readonlySigners, m)
		case m.IsWritable:
			writableOthers = append(writableOthers, m)
		default:
			readonlyOthers = append(readonlyOthers, m)
		}
	}

	accounts := make([]AccountMeta, 0, len(order))
	accounts = append(accounts, *merged[t.FeePayer])
	accounts = append(accounts, writableSigners...)
	accounts = append(accounts, readonlySigners...)
	accounts = append(accounts, writableOthers...)
	accounts = append(accounts, readonlyOthers...)

	return &compiledMessage{
		accounts:            accounts,
		numRequiredSigs:     1 + len(writableSigners) + len(readonlySigners),
		numReadonlySigned:   len(readonlySigners),
		numReadonlyUnsigned: len(readonlyOthers),
	}, nil
}

// Message serializes the transaction message (the signed payload).
func (t *Transaction) Message() ([]byte, error) {
	msg, err := t.compile()
	if err != nil {
		return nil, err
	}
	return t.serializeMessage(msg)
}

func (t *Transaction) serializeMessage(msg *compiledMessage) ([]byte, error) {
	indexOf := make(map[string]int, len(msg.accounts))
	for i, m := range msg.accounts {
		indexOf[m.Pubkey] = i
	}

	out := []byte{
		byte(msg.numRequiredSigs),
		byte(msg.numReadonlySigned),
		byte(msg.numReadonlyUnsigned),
	}

	out = appendCompactU16(out, len(msg.accounts))
	for _, m := range msg.accounts {
		raw, err := DecodePubkey(m.Pubkey)
		if err != nil {
			return nil, err
		}
		out = append(out, raw...)
	}

	blockhash, err := base58.Decode(t.RecentBlockhash)
	if err != nil {
		return nil, fmt.Errorf("decode blockhash: %w", err)
	}
	if len(blockhash) != 32 {
		return nil, fmt.Errorf("blockhash: expected 32 bytes, got %d", len(blockhash))
	}
	out = append(out, blockhash...)

	out = appendCompactU16(out, len(t.Instructions))
	for _, ix := range t.Instructions {
		out = append(out, byte(indexOf[ix.ProgramID]))
		out = appendCompactU16(out, len(ix.Accounts))
		for _, m := range ix.Accounts {
			out = append(out, byte(indexOf[m.Pubkey]))
		}
		out = appendCompactU16(out, len(ix.Data))
		out = append(out, ix.Data...)
	}

	return out, nil
}

// Sign signs the message with each keypair and records the signatures.
// Signers that are not required by the message are rejected.
func (t *Transaction) Sign(keypairs ...*Keypair) error {
	msg, err := t.compile()
	if err != nil {
		return err
	}
	payload, err := t.serializeMessage(msg)
	if err != nil {
		return err
	}

	required := make(map[string]bool, msg.numRequiredSigs)
	for _, m := range msg.accounts[:msg.numRequiredSigs] {
		required[m.Pubkey] = true
	}

	for _, kp := range keypairs {
		if !required[kp.PublicKey()] {
			return fmt.Errorf("signer %s is not required by this transaction", kp.PublicKey())
		}
		t.signatures[kp.PublicKey()] = kp.Sign(payload)
	}
	return nil
}

// SignatureCount returns the number of signatures collected so far.
func (t *Transaction) SignatureCount() int {
	return len(t.signatures)
}

// Signature returns the fee payer's signature, which doubles as the
// transaction signature, base58-encoded. Empty if not yet signed.
func (t *Transaction) Signature() string {
	sig, ok := t.signatures[t.FeePayer]
	if !ok {
		return ""
	}
	return base58.Encode(sig)
}

// Serialize emits the wire-format transaction. Missing signatures are
// zero-filled; no completeness or verification check is performed, so
// an unsigned transaction serializes cleanly for client-side signing.
func (t *Transaction) Serialize() ([]byte, error) {
	msg, err := t.compile()
	if err != nil {
		return nil, err
	}
	payload, err := t.serializeMessage(msg)
	if err != nil {
		return nil, err
	}

	out := appendCompactU16(nil, msg.numRequiredSigs)
	for _, m := range msg.accounts[:msg.numRequiredSigs] {
		sig, ok := t.signatures[m.Pubkey]
		if !ok {
			sig = make([]byte, 64)
		}
		out = append(out, sig...)
	}
	out = append(out, payload...)

	return out, nil
}

// SerializeBase64 emits the wire-format transaction as base64.
func (t *Transaction) SerializeBase64() (string, error) {
	raw, err := t.Serialize()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// appendCompactU16 appends a compact-u16 length prefix (shortvec).
func appendCompactU16(out []byte, v int) []byte {
	for v >= 0x80 {
		out = append(out, byte(v&0x7f)|0x80)
		v >>= 7
	}
	return append(out, byte(v))
}
