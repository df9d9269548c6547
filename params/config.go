package params

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Settlement struct {
	// ChainID scopes EIP-712 signatures to one deployment.
	ChainID int64
	// OwnerKey is the hex-encoded secp256k1 private key of the parameter
	// owner. Devnet only; production deployments keep the owner key offline
	// and submit owner actions through signed requests.
	OwnerKey string
	// SelfAddress overrides the router identity derived from the owner key.
	SelfAddress string
}

type Token struct {
	DBPath string
	Name   string
	Symbol string
}

type Node struct {
	APIAddr string
	// GossipListen is the libp2p multiaddr the node listens on. Empty
	// disables event gossip.
	GossipListen string
	// GossipBootstrap is a comma-separated list of peer multiaddrs to dial
	// at startup.
	GossipBootstrap []string
	LogFile         string
	// EventLogPath points the persistent event log at a pebble directory.
	// Empty disables event history.
	EventLogPath string
}

type Config struct {
	Settlement Settlement
	Token      Token
	Node       Node
}

func Default() Config {
	return Config{
		Settlement: Settlement{
			ChainID: 1337,
		},
		Token: Token{
			DBPath: "data/incentive-token",
			Name:   "SwapCover Incentive",
			Symbol: "SCI",
		},
		Node: Node{
			APIAddr:      ":8080",
			EventLogPath: "data/events",
		},
	}
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > defaults
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	// Try to load .env file (optional - won't fail if not exists)
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load() // loads .env from current directory
	}

	if chainID := os.Getenv("CHAIN_ID"); chainID != "" {
		if id, err := strconv.ParseInt(chainID, 10, 64); err == nil {
			cfg.Settlement.ChainID = id
		}
	}
	cfg.Settlement.OwnerKey = getEnv("OWNER_KEY", cfg.Settlement.OwnerKey)
	cfg.Settlement.SelfAddress = getEnv("SELF_ADDRESS", cfg.Settlement.SelfAddress)

	cfg.Token.DBPath = getEnv("TOKEN_DB_PATH", cfg.Token.DBPath)
	cfg.Token.Name = getEnv("TOKEN_NAME", cfg.Token.Name)
	cfg.Token.Symbol = getEnv("TOKEN_SYMBOL", cfg.Token.Symbol)

	cfg.Node.APIAddr = getEnv("API_ADDR", cfg.Node.APIAddr)
	cfg.Node.GossipListen = getEnv("GOSSIP_LISTEN", cfg.Node.GossipListen)
	if bs := os.Getenv("GOSSIP_BOOTSTRAP"); bs != "" {
		cfg.Node.GossipBootstrap = strings.Split(bs, ",")
	}
	cfg.Node.LogFile = getEnv("LOG_FILE", cfg.Node.LogFile)
	cfg.Node.EventLogPath = getEnv("EVENT_LOG_PATH", cfg.Node.EventLogPath)

	return cfg
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
