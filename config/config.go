package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/kysee/maze/utils"
	"github.com/kysee/maze/zk-maze/circuit"
	"github.com/kysee/maze/zk-maze/types"
)

type Config struct {
	TreeDepth       uint8
	Hasher          utils.HasherID
	LogLevel        string
	LogConsole      bool
	KeyDir          string
	MaxRetries      int
	MaxProofs       int
	ScanParallelism int
}

func Default() *Config {
	return &Config{
		TreeDepth:       20,
		Hasher:          utils.HasherMiMC,
		LogLevel:        "info",
		LogConsole:      true,
		KeyDir:          "keys",
		MaxRetries:      3,
		MaxProofs:       runtime.GOMAXPROCS(0),
		ScanParallelism: 8,
	}
}

func (c *Config) Params() types.CircuitParams {
	return types.CircuitParams{Depth: c.TreeDepth, Hasher: c.Hasher}
}

// Load reads the given env files (".env" when none), then the MAZE_* variables.
// A missing env file is not an error; a variable that does not parse is.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := Default()
	if v, ok := os.LookupEnv("MAZE_TREE_DEPTH"); ok {
		d, err := strconv.ParseUint(v, 10, 8)
		if err != nil || d == 0 || d > types.MaxTreeDepth {
			return nil, fmt.Errorf("MAZE_TREE_DEPTH: want 1..%d, got %q", types.MaxTreeDepth, v)
		}
		cfg.TreeDepth = uint8(d)
	}
	if v, ok := os.LookupEnv("MAZE_HASHER"); ok {
		h, err := utils.ParseHasherID(v)
		if err != nil {
			return nil, fmt.Errorf("MAZE_HASHER: %w", err)
		}
		cfg.Hasher = h
	}
	if err := circuit.CheckParams(cfg.Params()); err != nil {
		return nil, fmt.Errorf("MAZE_TREE_DEPTH/MAZE_HASHER: %w", err)
	}
	if v, ok := os.LookupEnv("MAZE_LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
	if v, ok := os.LookupEnv("MAZE_LOG_CONSOLE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("MAZE_LOG_CONSOLE: %w", err)
		}
		cfg.LogConsole = b
	}
	if v, ok := os.LookupEnv("MAZE_KEY_DIR"); ok && v != "" {
		cfg.KeyDir = v
	}

	ints := []struct {
		name string
		dst  *int
		min  int
	}{
		{"MAZE_MAX_RETRIES", &cfg.MaxRetries, 0},
		{"MAZE_MAX_PROOFS", &cfg.MaxProofs, 1},
		{"MAZE_SCAN_PARALLELISM", &cfg.ScanParallelism, 1},
	}
	for _, it := range ints {
		v, ok := os.LookupEnv(it.name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < it.min {
			return nil, fmt.Errorf("%s: want integer >= %d, got %q", it.name, it.min, v)
		}
		*it.dst = n
	}
	return cfg, nil
}
