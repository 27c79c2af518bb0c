// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package farm

import "github.com/holiman/uint256"

// Constants of the reward engine.
const (
	// AccPrecision scales every reward-per-share accumulator.
	AccPrecision uint64 = 1e12

	// BonusMultiplier is the emission multiplier inside the bonus window.
	BonusMultiplier uint64 = 2

	// DefaultBonusLength and DefaultFarmLength are measured in blocks from the start block.
	DefaultBonusLength uint64 = 64000
	DefaultFarmLength  uint64 = 128000

	// MinWithdrawInterval is the number of blocks after a deposit during which a withdrawal pays the LP fee.
	MinWithdrawInterval uint64 = 100
	// LPFeePercent is the percentage of LP charged on an early withdrawal.
	LPFeePercent uint64 = 1

	// MaxFeeRatio bounds the fee taken on the forwarded secondary reward, in percent.
	MaxFeeRatio uint64 = 10
	// DefaultFeeRatio is the initial fee on the forwarded secondary reward, in percent.
	DefaultFeeRatio uint64 = 10

	// MinimumLiquidity is locked forever by a pair on its first mint.
	MinimumLiquidity uint64 = 1000

	// DefaultRewardsDuration is the length in blocks of a staking reward period.
	DefaultRewardsDuration uint64 = 40320
)

var (
	// Ether is 1e18 base units.
	Ether = uint256.NewInt(1e18)

	// DefaultWithdrawInterval is the lock vault release period in blocks.
	DefaultWithdrawInterval uint64 = 28800
	// DefaultWithdrawHalfThreshold is the balance above which the lock vault releases half at a time.
	DefaultWithdrawHalfThreshold = new(uint256.Int).Mul(uint256.NewInt(50000), Ether)

	// BurnAddress receives tokens that leave circulation.
	BurnAddress = BytesToAddress([]byte{1})
)

// Units converts a whole number of tokens into base units.
func Units(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), Ether)
}
