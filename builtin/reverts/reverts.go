// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reverts

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Kind classifies why a contract call reverted.
type Kind uint8

const (
	Unauthorized Kind = iota + 1
	InvalidParameter
	InsufficientFunds
	LockedPeriod
	AlreadyMigrated
	MigrationComplete
	ZeroAmount
	Reentrant
)

var kindNames = map[Kind]string{
	Unauthorized:      "unauthorized",
	InvalidParameter:  "invalid parameter",
	InsufficientFunds: "insufficient funds",
	LockedPeriod:      "locked period",
	AlreadyMigrated:   "already migrated",
	MigrationComplete: "migration complete",
	ZeroAmount:        "zero amount",
	Reentrant:         "reentrant call",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ErrRevert aborts a contract call. All state changes of the call are discarded.
type ErrRevert struct {
	kind    Kind
	message string
}

func New(kind Kind, message string) *ErrRevert {
	return &ErrRevert{
		kind:    kind,
		message: message,
	}
}

// Newf is New with a formatted message.
func Newf(kind Kind, format string, args ...any) *ErrRevert {
	return New(kind, fmt.Sprintf(format, args...))
}

func (e *ErrRevert) Error() string {
	return e.message
}

func (e *ErrRevert) Kind() Kind {
	return e.kind
}

// Is matches another revert of the same kind, so errors.Is(err, reverts.New(k, "")) tests the kind.
func (e *ErrRevert) Is(target error) bool {
	var other *ErrRevert
	if errors.As(target, &other) {
		return other.kind == e.kind
	}
	return false
}

var stringArgs = func() abi.Arguments {
	typ, _ := abi.NewType("string", "", nil)
	return abi.Arguments{{Type: typ}}
}()

// revertSelector is the 4-byte selector for Error(string)
var revertSelector = []byte{0x08, 0xc3, 0x79, 0xa0}

// Bytes returns the reason ABI-encoded as Error(string).
func (e *ErrRevert) Bytes() []byte {
	if e == nil {
		return nil
	}
	packed, err := stringArgs.Pack(e.message)
	if err != nil {
		return nil
	}
	return append(append([]byte(nil), revertSelector...), packed...)
}

// IsRevertErr reports whether err carries a revert.
func IsRevertErr(err any) bool {
	if err == nil {
		return false
	}
	e, ok := err.(error)
	if !ok {
		return false
	}
	var ve *ErrRevert
	if errors.As(e, &ve) {
		return ve != nil
	}
	return false
}

// KindOf returns the revert kind carried by err, or zero.
func KindOf(err error) Kind {
	var ve *ErrRevert
	if errors.As(err, &ve) && ve != nil {
		return ve.kind
	}
	return 0
}

// Is reports whether err carries a revert of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
