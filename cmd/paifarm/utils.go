// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/paiswap/paifarm/log"
	"github.com/paiswap/paifarm/logdb"
	"github.com/paiswap/paifarm/lvldb"
)

var logger = log.WithContext("pkg", "paifarm")

// clockKey holds the block number reached by the last run.
var clockKey = []byte("paifarm.clock")

func initLogger(ctx *cli.Context) error {
	level := log.LevelFromVerbosity(ctx.Int(verbosityFlag.Name))
	handler, err := log.NewHandler(ctx.String(logFormatFlag.Name), os.Stdout, level)
	if err != nil {
		return errors.WithMessage(err, "-"+logFormatFlag.Name)
	}
	log.SetDefault(handler)
	return nil
}

// makeDataDir returns the data dir, empty when the databases live in memory.
func makeDataDir(ctx *cli.Context) (string, error) {
	dataDir := ctx.String(dataDirFlag.Name)
	if dataDir == "" {
		return "", nil
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return "", errors.Wrapf(err, "create data dir [%v]", dataDir)
	}
	return dataDir, nil
}

func openMainDB(dataDir string) (*lvldb.LevelDB, error) {
	if dataDir == "" {
		return lvldb.NewMem()
	}
	dir := filepath.Join(dataDir, "main.db")
	db, err := lvldb.New(dir, lvldb.Options{CacheSize: 128, OpenFilesCacheCapacity: 64})
	if err != nil {
		return nil, errors.Wrapf(err, "open main database [%v]", dir)
	}
	return db, nil
}

func openLogDB(dataDir string) (*logdb.LogDB, error) {
	if dataDir == "" {
		return logdb.NewMem()
	}
	dir := filepath.Join(dataDir, "logs.db")
	db, err := logdb.New(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "open log database [%v]", dir)
	}
	return db, nil
}

// loadClock returns the block the previous run stopped at, 0 for a new store.
func loadClock(db *lvldb.LevelDB) (uint64, error) {
	val, err := db.Get(clockKey)
	if err != nil {
		if db.IsNotFound(err) {
			return 0, nil
		}
		return 0, err
	}
	if len(val) != 8 {
		return 0, errors.Errorf("corrupted clock: %x", val)
	}
	return binary.BigEndian.Uint64(val), nil
}

type clockStore interface {
	Put(key, value []byte) error
}

func saveClock(db clockStore, block uint64) error {
	return db.Put(clockKey, binary.BigEndian.AppendUint64(nil, block))
}

// handleExitSignal returns a context canceled on interrupt or termination.
func handleExitSignal() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func printStartupMessage(dataDir string, block uint64, apiURL, metricsURL string) {
	if dataDir == "" {
		dataDir = "Memory"
	}
	if apiURL == "" {
		apiURL = "off"
	}
	if metricsURL == "" {
		metricsURL = "off"
	}
	fmt.Printf(`Starting %v
    Block       [ #%v ]
    Data dir    [ %v ]
    API portal  [ %v ]
    Metrics     [ %v ]
`,
		"PaiFarm "+fullVersion(),
		block,
		dataDir,
		apiURL,
		metricsURL)
}
