package main

import (
	"context"
	"flag"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/zkvote/zkvote/ledger"
	"github.com/zkvote/zkvote/service"
	"github.com/zkvote/zkvote/sponsor"
	"github.com/zkvote/zkvote/zkproof"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"
	"go.vocdoni.io/dvote/log"
)

func main() {
	var (
		dataDir      = flag.String("datadir", ".zkvote", "data directory")
		dbType       = flag.String("dbtype", db.TypePebble, "key-value database type")
		host         = flag.String("host", "0.0.0.0", "API host")
		port         = flag.Int("port", 8080, "API port")
		logLevel     = flag.String("loglevel", "info", "log level (debug, info, warn, error)")
		chainID      = flag.Uint64("chainid", 1, "chain id of the host ledger")
		deployment   = flag.String("deployment", "", "deployment address (hex), part of the scope derivation")
		vkeysDir     = flag.String("vkeys", "vkeys", "directory with snarkjs verification keys, one per tree depth")
		sponsorOwner = flag.String("sponsor-owner", "", "sponsorship validator owner address (hex)")
		sponsorAcct  = flag.String("sponsor-account", "", "allow-listed sponsored account address (hex)")
	)
	flag.Parse()
	log.Init(*logLevel, "stdout", nil)

	vkeys, err := loadVerificationKeys(*vkeysDir)
	if err != nil {
		log.Fatalf("could not load verification keys: %v", err)
	}
	verifier, err := zkproof.NewGroth16Verifier(vkeys)
	if err != nil {
		log.Fatalf("could not build proof verifier: %v", err)
	}

	database, err := metadb.New(*dbType, filepath.Join(*dataDir, "db"))
	if err != nil {
		log.Fatalf("could not open database: %v", err)
	}

	l, err := ledger.New(ledger.Config{
		DB:                database,
		Verifier:          verifier,
		ChainID:           *chainID,
		DeploymentAddress: common.HexToAddress(*deployment),
		Entropy:           entropyFromEnv(),
	})
	if err != nil {
		log.Fatalf("could not open voting ledger: %v", err)
	}

	var sponsorValidator *sponsor.Validator
	if *sponsorOwner != "" && *sponsorAcct != "" {
		sponsorValidator = sponsor.New(
			common.HexToAddress(*sponsorOwner),
			common.HexToAddress(*sponsorAcct),
			common.HexToAddress(*deployment),
			l,
		)
	}

	apiService := service.NewAPI(l, sponsorValidator, *host, *port)
	if err := apiService.Start(context.Background()); err != nil {
		log.Fatalf("could not start API service: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("shutting down")
	apiService.Stop()
}

// loadVerificationKeys reads every "vkey-<depth>.json" file in dir and
// returns the raw keys indexed by tree depth.
func loadVerificationKeys(dir string) (map[int][]byte, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	vkeys := make(map[int][]byte)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "vkey-") || !strings.HasSuffix(name, ".json") {
			continue
		}
		depth, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, "vkey-"), ".json"))
		if err != nil {
			return nil, fmt.Errorf("unexpected verification key name %q: %w", name, err)
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		vkeys[depth] = data
	}
	if len(vkeys) == 0 {
		return nil, fmt.Errorf("no verification keys found in %s", dir)
	}
	return vkeys, nil
}

// entropyFromEnv lets deployments pin the scope entropy instead of using
// fresh randomness, which is needed to reproduce an instance exactly.
func entropyFromEnv() []byte {
	v := os.Getenv("ZKVOTE_SCOPE_ENTROPY")
	if v == "" {
		return nil
	}
	e, ok := new(big.Int).SetString(v, 16)
	if !ok {
		log.Fatalf("ZKVOTE_SCOPE_ENTROPY must be a hex string")
	}
	return e.Bytes()
}
