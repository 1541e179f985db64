package config

import (
	"flag"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

var portCmd = flag.Int("port", 3000, "HTTP server port")

// Config carries the storage engine's tunables (spec.md §6) plus the
// HTTP transport's own port, loaded from the environment/.env with
// hard-coded defaults matching the spec's worked examples.
type Config struct {
	ServerPort int

	PageSize               int
	PageFillPct            float64
	MemtableFlushThreshold int
	IOThreshold            int
	MaxDeferrals           int
	ReorgSearchRadius      int
	BackoffSaturate        int
}

func LoadConfig() Config {
	godotenv.Load(".env")
	return Config{
		ServerPort: *portCmd,

		PageSize:               envInt("PAGE_SIZE", 64*1024),
		PageFillPct:            envFloat("PAGE_FILL_PCT", 0.9),
		MemtableFlushThreshold: envInt("MEMTABLE_FLUSH_THRESHOLD", 8*1024*1024),
		IOThreshold:            envInt("IO_THRESHOLD", 4),
		MaxDeferrals:           envInt("MAX_DEFERRALS", 3),
		ReorgSearchRadius:      envInt("REORG_SEARCH_RADIUS", 2),
		BackoffSaturate:        envInt("BACKOFF_SATURATE", 12),
	}
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}
