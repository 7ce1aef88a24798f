package events

import (
	"strconv"

	"tierstake/crypto"
)

func zeroAddress(addr [20]byte) bool {
	return addr == [20]byte{}
}

func formatAddress(addr [20]byte) string {
	if zeroAddress(addr) {
		return ""
	}
	return crypto.FromRaw(addr).String()
}

func formatUint(v uint64) string {
	return strconv.FormatUint(v, 10)
}
