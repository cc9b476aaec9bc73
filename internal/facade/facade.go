// Package facade composes expanders, converters and multiplexers into the
// board-level devices callers talk to. Facades validate channel bounds and
// values before touching a register and translate the boards' wiring into
// active-high logical semantics.
package facade

import (
	"strconv"

	"github.com/KevinKickass/OpenMachineIO/internal/types"
)

// Device is the part every facade shares.
type Device interface {
	Family() types.Family
	ChannelCount() int
	String() string
	Close() error
}

func checkChannel(channel, count int) error {
	return types.CheckRange("channel", channel, 0, count-1)
}

// round3 rounds to three decimals the way a "%.3f" rendering does.
func round3(v float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 3, 64), 64)
	if err != nil {
		return v
	}
	return r
}
