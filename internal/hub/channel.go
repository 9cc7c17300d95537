package hub

import "strings"

// Channels without an id component.
const (
	ChannelPlatform = "platform"
	ChannelMarket   = "market"
)

// minChannelIDLen is the minimum id length for scoped channels. Base58
// Solana public keys are 43-44 characters.
const minChannelIDLen = 40

// ValidChannel reports whether name matches the channel grammar. The
// grammar is a fixed whitelist: platform, market, agent:<id>, user:<id>,
// trades:<id>, portfolio:<id>, where <id> is alphanumeric with at least
// minChannelIDLen characters. No wildcards.
func ValidChannel(name string) bool {
	if name == ChannelPlatform || name == ChannelMarket {
		return true
	}

	prefix, id, ok := strings.Cut(name, ":")
	if !ok {
		return false
	}

	switch prefix {
	case "agent", "user", "trades", "portfolio":
	default:
		return false
	}

	return validChannelID(id)
}

func validChannelID(id string) bool {
	if len(id) < minChannelIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' {
			continue
		}
		return false
	}
	return true
}

// AgentChannel returns the per-agent channel name for a mint address.
func AgentChannel(mint string) string { return "agent:" + mint }

// UserChannel returns the per-user channel name for a wallet address.
func UserChannel(addr string) string { return "user:" + addr }

// TradesChannel returns the trade-feed channel name for a mint address.
func TradesChannel(mint string) string { return "trades:" + mint }

// PortfolioChannel returns the portfolio channel name for a wallet address.
func PortfolioChannel(addr string) string { return "portfolio:" + addr }
