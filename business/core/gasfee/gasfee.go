// Package gasfee formats the gas metrics of a confirmed transaction. All
// arithmetic is fixed point over 256 bit integers and rounds half up.
package gasfee

import (
	"errors"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
)

// Scaling of wei into the displayed units.
const (
	gweiDecimals  = 9
	etherDecimals = 18

	gasPricePlaces = 4
	totalFeePlaces = 6
)

// Set of error variables for the metric computation.
var (
	ErrMissingPrice = errors.New("gas price missing")
	ErrNegative     = errors.New("gas price is negative")
	ErrOverflow     = errors.New("value exceeds 256 bits")
)

// Metrics is the displayed form of the gas consumed by a transaction.
type Metrics struct {
	GasUsed  string `json:"gas_used"`
	GasPrice string `json:"gas_price"`
	TotalFee string `json:"total_fee"`
}

// Compute derives the displayed metrics from the gas used and the gas price
// in wei.
func Compute(gasUsed uint64, gasPrice *big.Int) (Metrics, error) {
	price, err := toUint256(gasPrice)
	if err != nil {
		return Metrics{}, err
	}

	fee, err := FormatTotalFee(gasUsed, price)
	if err != nil {
		return Metrics{}, err
	}

	m := Metrics{
		GasUsed:  FormatGasUsed(gasUsed),
		GasPrice: FormatGasPrice(price),
		TotalFee: fee,
	}

	return m, nil
}

// FromReceipt computes the metrics from the cumulative gas used and the
// effective gas price of the receipt. Nodes that do not report an effective
// gas price fall back to the price the transaction was sent with.
func FromReceipt(receipt *types.Receipt, tx *types.Transaction) (Metrics, error) {
	price := receipt.EffectiveGasPrice
	if price == nil && tx != nil {
		price = tx.GasPrice()
	}

	return Compute(receipt.CumulativeGasUsed, price)
}

// FormatGasUsed returns the gas units unscaled.
func FormatGasUsed(gasUsed uint64) string {
	return strconv.FormatUint(gasUsed, 10)
}

// FormatGasPrice returns the gas price in gwei with 4 decimal places.
func FormatGasPrice(gasPrice *uint256.Int) string {
	return scale(gasPrice, gweiDecimals, gasPricePlaces)
}

// FormatTotalFee returns gas used times gas price in ether with 6 decimal
// places.
func FormatTotalFee(gasUsed uint64, gasPrice *uint256.Int) (string, error) {
	fee, overflow := new(uint256.Int).MulOverflow(uint256.NewInt(gasUsed), gasPrice)
	if overflow {
		return "", ErrOverflow
	}

	return scale(fee, etherDecimals, totalFeePlaces), nil
}

// =============================================================================

// scale divides value by 10^decimals and renders the result with the given
// number of places, rounding half up. places must not exceed decimals.
func scale(value *uint256.Int, decimals int, places int) string {
	divisor := pow10(decimals - places)

	quo, rem := new(uint256.Int).DivMod(value, divisor, new(uint256.Int))
	if new(uint256.Int).Lsh(rem, 1).Cmp(divisor) >= 0 {
		quo.AddUint64(quo, 1)
	}

	digits := quo.Dec()
	if len(digits) <= places {
		digits = strings.Repeat("0", places-len(digits)+1) + digits
	}

	point := len(digits) - places
	return digits[:point] + "." + digits[point:]
}

// pow10 returns 10^n.
func pow10(n int) *uint256.Int {
	ten := uint256.NewInt(10)
	v := uint256.NewInt(1)
	for i := 0; i < n; i++ {
		v.Mul(v, ten)
	}
	return v
}

// toUint256 converts a wei amount reported by the node.
func toUint256(v *big.Int) (*uint256.Int, error) {
	switch {
	case v == nil:
		return nil, ErrMissingPrice
	case v.Sign() < 0:
		return nil, ErrNegative
	}

	u, overflow := uint256.FromBig(v)
	if overflow {
		return nil, ErrOverflow
	}

	return u, nil
}
