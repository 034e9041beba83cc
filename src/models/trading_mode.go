package models

import (
	"fmt"
	"strings"
)

// TradingMode selects which snapshot assembly path serves an account.
type TradingMode int

const (
	TradingModePaper TradingMode = iota
	TradingModeTestnet
	TradingModeMainnet
)

// ParseTradingMode accepts paper, testnet or mainnet (case-insensitive).
func ParseTradingMode(s string) (TradingMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "paper":
		return TradingModePaper, nil
	case "testnet":
		return TradingModeTestnet, nil
	case "mainnet":
		return TradingModeMainnet, nil
	}
	return TradingModePaper, fmt.Errorf("unknown trading mode %q", s)
}

func (m TradingMode) String() string {
	switch m {
	case TradingModeTestnet:
		return "testnet"
	case TradingModeMainnet:
		return "mainnet"
	default:
		return "paper"
	}
}

// Environment is the exchange environment backing the mode. Paper accounts
// price against mainnet data.
func (m TradingMode) Environment() string {
	if m == TradingModeTestnet {
		return "testnet"
	}
	return "mainnet"
}
