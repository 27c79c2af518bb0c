// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/paiswap/paifarm/api"
	"github.com/paiswap/paifarm/cmd/paifarm/httpserver"
	"github.com/paiswap/paifarm/cmd/paifarm/scenario"
	"github.com/paiswap/paifarm/logdb"
	"github.com/paiswap/paifarm/metrics"
	"github.com/paiswap/paifarm/runtime"
	"github.com/paiswap/paifarm/state"
)

var (
	version   string
	gitCommit string
	gitTag    string
)

func fullVersion() string {
	versionMeta := "release"
	if gitTag == "" {
		versionMeta = "dev"
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, versionMeta)
}

func main() {
	app := cli.App{
		Version:   fullVersion(),
		Name:      "PaiFarm",
		Usage:     "Yield farming suite of PaiSwap",
		Copyright: "2025 The PaiFarm developers",
		Flags: []cli.Flag{
			dataDirFlag,
			scenarioFlag,
			apiAddrFlag,
			apiCorsFlag,
			apiTimeoutFlag,
			apiLogsLimitFlag,
			enableAPILogsFlag,
			apiSlowQueriesThresholdFlag,
			apiLog5xxErrorsFlag,
			skipLogsFlag,
			blockIntervalFlag,
			verbosityFlag,
			logFormatFlag,
			enableMetricsFlag,
			metricsAddrFlag,
		},
		Action: defaultAction,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultAction(ctx *cli.Context) error {
	if err := initLogger(ctx); err != nil {
		return err
	}
	defer func() { logger.Info("exited") }()

	// the scenario is checked before anything is opened
	var sc *scenario.Scenario
	if path := ctx.String(scenarioFlag.Name); path != "" {
		var err error
		if sc, err = scenario.Load(path); err != nil {
			return errors.WithMessage(err, "-"+scenarioFlag.Name)
		}
	}

	if ctx.Bool(enableMetricsFlag.Name) {
		metrics.InitializePrometheusMetrics()
	}

	dataDir, err := makeDataDir(ctx)
	if err != nil {
		return err
	}
	mainDB, err := openMainDB(dataDir)
	if err != nil {
		return err
	}
	defer func() { logger.Info("closing main database..."); mainDB.Close() }()

	block, err := loadClock(mainDB)
	if err != nil {
		return err
	}
	rt := runtime.New(state.New(mainDB), block)

	var logDB *logdb.LogDB
	if !ctx.Bool(skipLogsFlag.Name) {
		if logDB, err = openLogDB(dataDir); err != nil {
			return err
		}
		defer func() { logger.Info("closing log database..."); logDB.Close() }()
	}

	exitCtx, stop := handleExitSignal()
	defer stop()
	runCtx, cancel := context.WithCancel(exitCtx)
	defer cancel()
	g, runCtx := errgroup.WithContext(runCtx)

	if logDB != nil {
		ix := newIndexer(logDB, rt)
		g.Go(func() error { return ix.run(runCtx) })
	}

	var apiURL, metricsURL string
	if addr := ctx.String(apiAddrFlag.Name); addr != "" {
		enableReqLogger := &atomic.Bool{}
		enableReqLogger.Store(ctx.Bool(enableAPILogsFlag.Name))
		handler := api.New(rt, logDB, api.Options{
			AllowedOrigins:       ctx.String(apiCorsFlag.Name),
			EnableReqLogger:      enableReqLogger,
			SlowQueriesThreshold: time.Duration(ctx.Uint64(apiSlowQueriesThresholdFlag.Name)) * time.Millisecond,
			Log5xxErrors:         ctx.Bool(apiLog5xxErrorsFlag.Name),
			EnableMetrics:        ctx.Bool(enableMetricsFlag.Name),
			LogsLimit:            ctx.Uint64(apiLogsLimitFlag.Name),
		})
		var closeAPI func()
		timeout := time.Duration(ctx.Uint64(apiTimeoutFlag.Name)) * time.Millisecond
		if apiURL, closeAPI, err = httpserver.StartAPIServer(addr, handler, timeout); err != nil {
			return err
		}
		defer func() { logger.Info("stopping API server..."); closeAPI() }()
	}
	if ctx.Bool(enableMetricsFlag.Name) {
		var closeMetrics func()
		if metricsURL, closeMetrics, err = httpserver.StartMetricsServer(ctx.String(metricsAddrFlag.Name)); err != nil {
			return err
		}
		defer func() { logger.Info("stopping metrics server..."); closeMetrics() }()
	}

	printStartupMessage(dataDir, rt.BlockNumber(), apiURL, metricsURL)

	g.Go(func() error {
		if sc != nil {
			if err := scenario.NewReplayer(rt).Replay(runCtx, sc); err != nil {
				return err
			}
			if err := commit(rt, mainDB); err != nil {
				return err
			}
		}
		if apiURL == "" {
			// nothing left to serve
			cancel()
			return nil
		}
		return runClock(runCtx, rt, mainDB, ctx.Duration(blockIntervalFlag.Name))
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return commit(rt, mainDB)
}

func commit(rt *runtime.Runtime, db clockStore) error {
	if err := rt.Commit(); err != nil {
		return err
	}
	return saveClock(db, rt.BlockNumber())
}

// runClock mines a block per interval until ctx is done. The state is
// committed after every block.
func runClock(ctx context.Context, rt *runtime.Runtime, db clockStore, interval time.Duration) error {
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			block := rt.Mine(1)
			logger.Debug("block mined", "block", block)
			if err := commit(rt, db); err != nil {
				return err
			}
		}
	}
}
