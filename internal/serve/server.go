/*
Copyright © 2020 A. Jensen <jensen.aaro@gmail.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

// Package serve exposes the read side of the price store as a JSON API for
// the dashboard.
package serve

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/logging"
	"github.com/shopspring/decimal"

	"github.com/ajjensen13/idxstocks/internal/model"
	"github.com/ajjensen13/idxstocks/internal/query"
	"github.com/ajjensen13/idxstocks/internal/util"
)

const maxMovingAverages = 5

// Reads is the aggregator surface the API depends on.
type Reads interface {
	ListTickers(ctx context.Context) (model.Catalog, error)
	Series(ctx context.Context, symbol string) ([]model.Bar, error)
	Summary(ctx context.Context) (model.Summary, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Config struct {
	ListenAddr      string
	APIKey          string
	CORSAllowOrigin string
}

type Server struct {
	reads      Reads
	db         Pinger
	apiKey     string
	httpServer *http.Server
}

// NewServer wires the routes. Request contexts derive from ctx so handlers
// log through its logger.
func NewServer(ctx context.Context, reads Reads, db Pinger, cfg Config) *Server {
	s := &Server{
		reads:  reads,
		db:     db,
		apiKey: cfg.APIKey,
	}
	base := util.WithLoggerValue(ctx, "action", "serve")

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/tickers", s.handleTickers)
	mux.HandleFunc("GET /v1/summary", s.handleSummary)
	mux.HandleFunc("GET /v1/series/{symbol}", s.handleSeries)
	mux.HandleFunc("GET /v1/kpi/{symbol}", s.handleKPI)

	// no auth
	mux.HandleFunc("GET /health", s.handleHealth)

	addr := cfg.ListenAddr
	if addr == "" {
		addr = ":8080"
	}

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.authMiddleware(corsMiddleware(mux, cfg.CORSAllowOrigin)),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return base },
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start blocks until the server stops. A clean Shutdown returns nil.
func (s *Server) Start(ctx context.Context) error {
	util.Logf(ctx, logging.Info, "api listening on %s (auth enabled: %v)", s.httpServer.Addr, s.apiKey != "")
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// --- middleware ---

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" || r.URL.Path == "/health" || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		auth := r.Header.Get("Authorization")
		if auth == "" {
			writeError(w, http.StatusUnauthorized, "missing Authorization header")
			return
		}

		token := strings.TrimPrefix(auth, "Bearer ")
		if token == auth || token != s.apiKey {
			writeError(w, http.StatusUnauthorized, "invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler, allowOrigin string) http.Handler {
	if allowOrigin == "" {
		allowOrigin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, dbStatus, code := "ok", "ok", http.StatusOK
	if err := s.db.Ping(r.Context()); err != nil {
		util.Logf(r.Context(), logging.Warning, "health check failed: %v", err)
		status, dbStatus, code = "degraded", "unavailable", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"services":  map[string]string{"database": dbStatus},
	})
}

func (s *Server) handleTickers(w http.ResponseWriter, r *http.Request) {
	cat, err := s.reads.ListTickers(r.Context())
	if err != nil {
		s.readFailed(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cat)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.reads.Summary(r.Context())
	if err != nil {
		s.readFailed(w, r, err)
		return
	}
	resp := summaryResponse{Tickers: sum.Tickers, Rows: sum.Rows}
	if !sum.LastUpdate.IsZero() {
		resp.LastUpdate = sum.LastUpdate.Format(dateLayout)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	periods, err := parsePeriods(r.URL.Query().Get("ma"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	symbol, ok := s.resolve(w, r)
	if !ok {
		return
	}

	bars, err := s.reads.Series(r.Context(), symbol)
	if err != nil {
		s.readFailed(w, r, err)
		return
	}

	resp := seriesResponse{Symbol: symbol, Bars: make([]barResponse, len(bars))}
	for i, b := range bars {
		resp.Bars[i] = newBarResponse(b)
	}
	if len(periods) > 0 {
		resp.MovingAverages = make(map[string][]decimal.NullDecimal, len(periods))
		for _, p := range periods {
			resp.MovingAverages[strconv.Itoa(p)] = query.MovingAverage(bars, p)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleKPI(w http.ResponseWriter, r *http.Request) {
	symbol, ok := s.resolve(w, r)
	if !ok {
		return
	}

	bars, err := s.reads.Series(r.Context(), symbol)
	if err != nil {
		s.readFailed(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, kpiResponse{Symbol: symbol, KPI: query.ComputeKPI(bars)})
}

// resolve maps the {symbol} path value, display name or canonical, to the
// stored symbol. Unknown symbols pass through so they read as empty series.
func (s *Server) resolve(w http.ResponseWriter, r *http.Request) (string, bool) {
	name := strings.TrimSpace(r.PathValue("symbol"))
	if name == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return "", false
	}

	cat, err := s.reads.ListTickers(r.Context())
	if err != nil {
		s.readFailed(w, r, err)
		return "", false
	}
	if symbol, ok := cat.Resolve(name); ok {
		return symbol, true
	}
	return name, true
}

func (s *Server) readFailed(w http.ResponseWriter, r *http.Request, err error) {
	util.Logf(r.Context(), logging.Error, "read failed: %v", err)
	writeError(w, http.StatusInternalServerError, "failed to read price data: "+err.Error())
}

func parsePeriods(raw string) ([]int, error) {
	if raw == "" {
		return nil, nil
	}
	seen := map[int]bool{}
	var ret []int
	for _, f := range strings.Split(raw, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		n, err := strconv.Atoi(f)
		if err != nil || n <= 0 || n > 500 {
			return nil, errors.New("ma must be a comma separated list of periods between 1 and 500")
		}
		if !seen[n] {
			seen[n] = true
			ret = append(ret, n)
		}
	}
	if len(ret) > maxMovingAverages {
		return nil, errors.New("too many moving averages requested")
	}
	sort.Ints(ret)
	return ret, nil
}

// --- response helpers ---

const dateLayout = "2006-01-02"

type barResponse struct {
	Date   string          `json:"date"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume int64           `json:"volume"`
}

func newBarResponse(b model.Bar) barResponse {
	return barResponse{
		Date:   b.Date.Format(dateLayout),
		Open:   b.Open,
		High:   b.High,
		Low:    b.Low,
		Close:  b.Close,
		Volume: b.Volume,
	}
}

type seriesResponse struct {
	Symbol         string                           `json:"symbol"`
	Bars           []barResponse                    `json:"bars"`
	MovingAverages map[string][]decimal.NullDecimal `json:"moving_averages,omitempty"`
}

type kpiResponse struct {
	Symbol string `json:"symbol"`
	model.KPI
}

type summaryResponse struct {
	LastUpdate string `json:"last_update,omitempty"`
	Tickers    int    `json:"tickers"`
	Rows       int64  `json:"rows"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
