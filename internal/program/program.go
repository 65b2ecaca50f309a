// Package program is the on-chain entrypoint around the vault verifier. It
// splits instruction data into signature and message, reads the owner's public
// key from account data, and maps every failure onto a ProgramError code.
package program

import (
	"context"
	"errors"
	"fmt"

	"github.com/mahdiidarabi/latticevault/internal/logging"
	"github.com/mahdiidarabi/latticevault/pkg/latticevault"
)

// ProgramError is a runtime rejection code. Builtin codes live in the upper 32
// bits; custom codes are the raw value in the lower 32 bits.
type ProgramError uint64

const builtinShift = 32

const (
	CustomZero             ProgramError = 1 << builtinShift
	InvalidArgument        ProgramError = 2 << builtinShift
	InvalidInstructionData ProgramError = 3 << builtinShift
	InvalidAccountData     ProgramError = 4 << builtinShift
	NotEnoughAccountKeys   ProgramError = 11 << builtinShift
)

var builtinNames = map[ProgramError]string{
	CustomZero:             "custom program error: 0x0",
	InvalidArgument:        "invalid argument",
	InvalidInstructionData: "invalid instruction data",
	InvalidAccountData:     "invalid account data",
	NotEnoughAccountKeys:   "not enough account keys",
}

// Custom returns the code for a program-specific error.
func Custom(code uint32) ProgramError {
	if code == 0 {
		return CustomZero
	}
	return ProgramError(code)
}

// FromKind maps a vault error kind onto its custom code.
func FromKind(k latticevault.Kind) ProgramError {
	return Custom(k.Code())
}

// CustomCode reports the custom code carried by e, if any.
func (e ProgramError) CustomCode() (uint32, bool) {
	if e == CustomZero {
		return 0, true
	}
	if e>>builtinShift != 0 {
		return 0, false
	}
	return uint32(e), true
}

func (e ProgramError) Error() string {
	if name, ok := builtinNames[e]; ok {
		return name
	}
	if code, ok := e.CustomCode(); ok {
		return fmt.Sprintf("custom program error: %#x", code)
	}
	return fmt.Sprintf("program error %#x", uint64(e))
}

// AccountInfo is the slice of account state the entrypoint reads.
type AccountInfo struct {
	Key  string
	Data []byte
}

// Processor verifies vault instructions.
type Processor struct {
	vault  *latticevault.Vault
	logger logging.Logger
}

// NewProcessor binds a Processor to v. A nil logger discards output.
func NewProcessor(v *latticevault.Vault, logger logging.Logger) *Processor {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Processor{vault: v, logger: logger.With("component", "program")}
}

// ProcessInstruction expects accounts [vault, owner]. Instruction data is a
// fixed-length signature followed by the message; the owner account holds the
// encoded public key.
func (p *Processor) ProcessInstruction(ctx context.Context, accounts []AccountInfo, instruction []byte) error {
	if len(accounts) < 2 {
		return NotEnoughAccountKeys
	}
	owner := accounts[1]

	sigLen := p.vault.SignatureSize()
	if len(instruction) < sigLen {
		p.logger.Debug(ctx, "instruction too short", "len", len(instruction), "want", sigLen)
		return InvalidInstructionData
	}
	sig, err := p.vault.ParseSignature(instruction[:sigLen])
	if err != nil {
		p.logger.Debug(ctx, "signature decode failed", "err", err)
		return InvalidInstructionData
	}
	message := instruction[sigLen:]

	pk, err := p.vault.ParsePublicKey(owner.Data)
	if err != nil {
		p.logger.Debug(ctx, "public key decode failed", "account", owner.Key, "err", err)
		return InvalidAccountData
	}

	if err := p.vault.Verify(pk, message, sig); err != nil {
		return toProgramError(err)
	}
	p.logger.Info(ctx, "lattice-bound signature verified", "vault", accounts[0].Key, "owner", owner.Key)
	return nil
}

func toProgramError(err error) ProgramError {
	var perr ProgramError
	if errors.As(err, &perr) {
		return perr
	}
	if kind, ok := latticevault.KindOf(err); ok {
		return FromKind(kind)
	}
	return InvalidArgument
}

// Instruction builds instruction data for sig over message.
func Instruction(sig *latticevault.Signature, message []byte) []byte {
	enc := sig.Bytes()
	out := make([]byte, 0, len(enc)+len(message))
	out = append(out, enc...)
	return append(out, message...)
}
