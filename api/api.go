// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package api assembles the http interface of the farm.
package api

import (
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/paiswap/paifarm/api/events"
	"github.com/paiswap/paifarm/api/middleware"
	"github.com/paiswap/paifarm/api/node"
	"github.com/paiswap/paifarm/api/pools"
	"github.com/paiswap/paifarm/api/voting"
	"github.com/paiswap/paifarm/builtin"
	"github.com/paiswap/paifarm/log"
	"github.com/paiswap/paifarm/logdb"
	"github.com/paiswap/paifarm/runtime"
)

var logger = log.WithContext("pkg", "api")

type Options struct {
	AllowedOrigins       string
	EnableReqLogger      *atomic.Bool
	SlowQueriesThreshold time.Duration
	Log5xxErrors         bool
	EnableMetrics        bool
	LogsLimit            uint64
}

// New return api router. The log routes are skipped without a log db.
func New(rt *runtime.Runtime, logDB *logdb.LogDB, opts Options) http.HandlerFunc {
	origins := strings.Split(strings.TrimSpace(opts.AllowedOrigins), ",")
	for i, o := range origins {
		origins[i] = strings.ToLower(strings.TrimSpace(o))
	}

	router := mux.NewRouter()

	pools.New(rt, builtin.Master.Address).
		Mount(router, "/pools")
	voting.New(rt, builtin.Voter.Address).
		Mount(router, "/voting")
	if logDB != nil {
		events.New(rt, logDB, opts.LogsLimit).
			Mount(router, "/logs")
	}
	node.New(rt, logDB).
		Mount(router, "/node")

	if opts.EnableMetrics {
		router.Use(metricsMiddleware)
	}

	enabled := opts.EnableReqLogger
	if enabled == nil {
		enabled = &atomic.Bool{}
	}
	router.Use(middleware.RequestLoggerMiddleware(logger, enabled, opts.SlowQueriesThreshold, opts.Log5xxErrors))

	handler := handlers.CompressHandler(router)
	handler = handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedHeaders([]string{"content-type"}),
	)(handler)

	return handler.ServeHTTP
}
