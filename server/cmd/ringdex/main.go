// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"strings"

	"decred.org/ringdex/server/asset"
	dexsrv "decred.org/ringdex/server/dex"
)

func mainCore(ctx context.Context) error {
	// Parse the configuration file, and setup logger.
	cfg, opts, err := loadConfig()
	if err != nil {
		fmt.Printf("Failed to load ringdex config: %s\n", err.Error())
		return err
	}
	defer func() {
		if logRotator != nil {
			logRotator.Close()
		}
	}()

	if opts.CPUProfile != "" {
		var f *os.File
		f, err = os.Create(opts.CPUProfile)
		if err != nil {
			return err
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	// Display app version.
	log.Infof("%s version %v (Go version %s)", appName, Version, runtime.Version())
	log.Infof("ringdex starting for network: %s", cfg.DexConf.Network)

	// Load the registered assets and initial balances.
	if _, err := os.Stat(cfg.GenesisPath); err == nil {
		cfg.DexConf.Genesis, err = asset.LoadGenesis(cfg.GenesisPath)
		if err != nil {
			return err
		}
		log.Infof("Loaded genesis file %q with %d assets, for network %s", cfg.GenesisPath,
			len(cfg.DexConf.Genesis.Assets), strings.ToUpper(cfg.DexConf.Network.String()))
	} else if errors.Is(err, os.ErrNotExist) {
		log.Warnf("No genesis file found at %q. Starting with no assets.", cfg.GenesisPath)
	} else {
		return fmt.Errorf("unable to read genesis file: %w", err)
	}

	batch, err := dexsrv.LoadBatch(cfg.BatchPath)
	if err != nil {
		return err
	}

	// Create the DEX manager.
	dexMan, err := dexsrv.NewDEX(cfg.DexConf)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("Stopping ring engine...")
		dexMan.Stop()
		log.Info("Bye!")
	}()

	log.Infof("Processing %d operations from %q. Hit CTRL+C to abort...",
		len(batch.Ops), cfg.BatchPath)
	results, batchErr := dexMan.RunBatch(ctx, batch)
	if batchErr != nil {
		log.Errorf("Batch aborted after %d of %d operations: %v", len(results), len(batch.Ops), batchErr)
	}
	for _, res := range results {
		b, err := json.Marshal(res)
		if err != nil {
			return fmt.Errorf("error encoding result %d: %w", res.Index, err)
		}
		log.Infof("Result %d: %s", res.Index, b)
	}

	if cfg.ResultsPath != "" {
		b, err := json.MarshalIndent(results, "", "    ")
		if err != nil {
			return fmt.Errorf("error encoding results: %w", err)
		}
		if err := os.WriteFile(cfg.ResultsPath, b, 0600); err != nil {
			return fmt.Errorf("error writing results: %w", err)
		}
		log.Infof("Wrote %d results to %q", len(results), cfg.ResultsPath)
	}

	return batchErr
}

func main() {
	// Create a context that is canceled when a shutdown signal is received.
	ctx := withShutdownCancel(context.Background())
	// Listen for interrupt signals (e.g. CTRL+C).
	go shutdownListener()

	err := mainCore(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(0)
}
