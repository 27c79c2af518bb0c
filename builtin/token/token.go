// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package token

import (
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/paiswap/paifarm/abi"
	"github.com/paiswap/paifarm/builtin/access"
	"github.com/paiswap/paifarm/builtin/gen"
	"github.com/paiswap/paifarm/builtin/reverts"
	"github.com/paiswap/paifarm/builtin/solidity"
	"github.com/paiswap/paifarm/farm"
	"github.com/paiswap/paifarm/log"
	"github.com/paiswap/paifarm/state"
	"github.com/paiswap/paifarm/xenv"
)

// Kind is recorded as the code of a deployed token.
const Kind = "token"

var (
	logger = log.WithContext("pkg", "token")

	ABI           = abi.MustNew(gen.MustABI("token"))
	eventTransfer = ABI.MustEventByName("Transfer")
	eventApproval = ABI.MustEventByName("Approval")

	slotMetadata    = solidity.Slot("token.metadata")
	slotBalances    = solidity.Slot("token.balances")
	slotAllowances  = solidity.Slot("token.allowances")
	slotTotalSupply = solidity.Slot("token.totalSupply")

	maxAllowance = new(uint256.Int).SetAllOne()
)

// Metadata describes a token.
type Metadata struct {
	Name     string
	Symbol   string
	Decimals uint8
}

type allowanceKey = solidity.PairKey[farm.Address, farm.Address]

// Token is a fungible token. The owner is the only minter.
type Token struct {
	addr        farm.Address
	state       *state.State
	metadata    *solidity.Raw[Metadata]
	balances    *solidity.Mapping[farm.Address, *uint256.Int]
	allowances  *solidity.Mapping[allowanceKey, *uint256.Int]
	totalSupply *solidity.Uint256
	owner       *access.Ownable
}

// New creates a view of the token at addr.
func New(addr farm.Address, state *state.State) *Token {
	ctx := solidity.NewContext(addr, state)
	return &Token{
		addr:        addr,
		state:       state,
		metadata:    solidity.NewRaw[Metadata](ctx, slotMetadata),
		balances:    solidity.NewMapping[farm.Address, *uint256.Int](ctx, slotBalances),
		allowances:  solidity.NewMapping[allowanceKey, *uint256.Int](ctx, slotAllowances),
		totalSupply: solidity.NewUint256(ctx, slotTotalSupply),
		owner:       access.NewOwnable(ctx),
	}
}

// Deploy creates a token at addr owned by the caller.
func Deploy(env *xenv.Environment, addr farm.Address, metadata Metadata) (*Token, error) {
	if err := solidity.Claim(env.State(), addr, Kind); err != nil {
		return nil, err
	}
	t := New(addr, env.State())
	if err := t.Init(env, metadata, env.Caller()); err != nil {
		return nil, err
	}
	return t, nil
}

// Init writes the metadata and the first owner of a freshly claimed address.
func (t *Token) Init(env *xenv.Environment, metadata Metadata, owner farm.Address) error {
	if err := t.metadata.Set(metadata); err != nil {
		return err
	}
	if err := t.owner.Init(env, owner); err != nil {
		return err
	}
	logger.Debug("deployed token", "address", t.addr, "symbol", metadata.Symbol, "owner", owner)
	return nil
}

func (t *Token) Address() farm.Address {
	return t.addr
}

func (t *Token) Metadata() (Metadata, error) {
	return t.metadata.Get()
}

func (t *Token) Owner() (farm.Address, error) {
	return t.owner.Owner()
}

// TransferOwnership hands minting rights to newOwner.
func (t *Token) TransferOwnership(env *xenv.Environment, newOwner farm.Address) error {
	return t.owner.TransferOwnership(env, newOwner)
}

// Getters

func (t *Token) BalanceOf(addr farm.Address) (*uint256.Int, error) {
	return t.balances.Get(addr)
}

func (t *Token) TotalSupply() (*uint256.Int, error) {
	return t.totalSupply.Get()
}

func (t *Token) Allowance(owner, spender farm.Address) (*uint256.Int, error) {
	return t.allowances.Get(solidity.NewPairKey(owner, spender))
}

// Transfers

// Transfer moves amount from the caller to to.
func (t *Token) Transfer(env *xenv.Environment, to farm.Address, amount *uint256.Int) error {
	return t.transfer(env, env.Caller(), to, amount)
}

// TransferUpTo moves amount from the caller to to, or the caller's whole balance
// when it holds less. It returns the amount moved.
func (t *Token) TransferUpTo(env *xenv.Environment, to farm.Address, amount *uint256.Int) (*uint256.Int, error) {
	balance, err := t.balances.Get(env.Caller())
	if err != nil {
		return nil, err
	}
	sent := new(uint256.Int).Set(amount)
	if balance.Lt(sent) {
		sent.Set(balance)
	}
	if sent.IsZero() {
		return sent, nil
	}
	if err := t.transfer(env, env.Caller(), to, sent); err != nil {
		return nil, err
	}
	return sent, nil
}

// TransferFrom moves amount from from to to, spending the caller's allowance.
func (t *Token) TransferFrom(env *xenv.Environment, from, to farm.Address, amount *uint256.Int) error {
	key := solidity.NewPairKey(from, env.Caller())
	allowance, err := t.allowances.Get(key)
	if err != nil {
		return err
	}
	if allowance.Lt(amount) {
		return reverts.Newf(reverts.InsufficientFunds, "token: insufficient allowance %v < %v", allowance.Dec(), amount.Dec())
	}
	if !allowance.Eq(maxAllowance) {
		if err := t.allowances.Set(key, new(uint256.Int).Sub(allowance, amount)); err != nil {
			return err
		}
	}
	return t.transfer(env, from, to, amount)
}

// Approve sets the allowance of spender over the caller's tokens.
func (t *Token) Approve(env *xenv.Environment, spender farm.Address, amount *uint256.Int) error {
	if spender.IsZero() {
		return reverts.New(reverts.InvalidParameter, "token: approve to the zero address")
	}
	if err := t.allowances.Set(solidity.NewPairKey(env.Caller(), spender), amount); err != nil {
		return err
	}
	return env.Log(eventApproval, t.addr, []farm.Bytes32{xenv.AddressTopic(env.Caller()), xenv.AddressTopic(spender)}, amount.ToBig())
}

func (t *Token) transfer(env *xenv.Environment, from, to farm.Address, amount *uint256.Int) error {
	if to.IsZero() {
		return reverts.New(reverts.InvalidParameter, "token: transfer to the zero address")
	}
	fromBalance, err := t.balances.Get(from)
	if err != nil {
		return err
	}
	if fromBalance.Lt(amount) {
		return reverts.Newf(reverts.InsufficientFunds, "token: insufficient balance %v < %v", fromBalance.Dec(), amount.Dec())
	}
	if err := t.balances.Set(from, new(uint256.Int).Sub(fromBalance, amount)); err != nil {
		return err
	}
	toBalance, err := t.balances.Get(to)
	if err != nil {
		return err
	}
	if err := t.balances.Set(to, new(uint256.Int).Add(toBalance, amount)); err != nil {
		return err
	}
	logger.Trace("transfer", "token", t.addr, "from", from, "to", to, "amount", amount)
	return env.Log(eventTransfer, t.addr, []farm.Bytes32{xenv.AddressTopic(from), xenv.AddressTopic(to)}, amount.ToBig())
}

// Supply

// Mint creates amount tokens for to. Only the owner may mint.
func (t *Token) Mint(env *xenv.Environment, to farm.Address, amount *uint256.Int) error {
	if err := t.owner.OnlyOwner(env.Caller()); err != nil {
		return err
	}
	if to.IsZero() {
		return reverts.New(reverts.InvalidParameter, "token: mint to the zero address")
	}
	supply, err := t.totalSupply.Get()
	if err != nil {
		return err
	}
	if _, overflow := new(uint256.Int).AddOverflow(supply, amount); overflow {
		return reverts.New(reverts.InvalidParameter, "token: supply overflow")
	}
	if err := t.totalSupply.Add(amount); err != nil {
		return err
	}
	balance, err := t.balances.Get(to)
	if err != nil {
		return err
	}
	if err := t.balances.Set(to, new(uint256.Int).Add(balance, amount)); err != nil {
		return err
	}
	return env.Log(eventTransfer, t.addr, []farm.Bytes32{xenv.AddressTopic(farm.Address{}), xenv.AddressTopic(to)}, amount.ToBig())
}

// Burn destroys amount of the caller's tokens.
func (t *Token) Burn(env *xenv.Environment, amount *uint256.Int) error {
	from := env.Caller()
	balance, err := t.balances.Get(from)
	if err != nil {
		return err
	}
	if balance.Lt(amount) {
		return reverts.Newf(reverts.InsufficientFunds, "token: burn exceeds balance %v < %v", balance.Dec(), amount.Dec())
	}
	if err := t.balances.Set(from, new(uint256.Int).Sub(balance, amount)); err != nil {
		return err
	}
	if err := t.totalSupply.Sub(amount); err != nil {
		return errors.Wrap(err, "token: burn")
	}
	return env.Log(eventTransfer, t.addr, []farm.Bytes32{xenv.AddressTopic(from), xenv.AddressTopic(farm.Address{})}, amount.ToBig())
}
