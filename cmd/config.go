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

package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/ajjensen13/config"
)

const (
	dbSecretName  = "idxstocks-db-secret.json"
	appConfigName = "idxstocks-config-cm.json"
	apiSecretName = "idxstocks-api-secret.json"
)

var defaultTickers = []string{
	"ARCI.JK", "BBCA.JK", "BBRI.JK", "BMRI.JK", "BUMI.JK",
	"BULL.JK", "BKSL.JK", "GOTO.JK", "MINA.JK", "PANI.JK",
}

type appConfig struct {
	Tickers            []string `json:"tickers"`
	ExchangeSuffix     string   `json:"exchange_suffix"`
	Provider           string   `json:"provider"`
	Resolution         string   `json:"resolution"`
	Timezone           string   `json:"timezone"`
	LookbackDays       int      `json:"ingest_lookback_days"`
	BackfillStart      string   `json:"backfill_start"`
	RequestInterval    duration `json:"request_interval"`
	DataSourceName     string   `json:"data_source_name"`
	MigrationSourceURL string   `json:"migration_source_url"`
	Schedule           string   `json:"schedule"`
	ListenAddr         string   `json:"listen_addr"`
	CatalogTTL         duration `json:"catalog_ttl"`
	SeriesTTL          duration `json:"series_ttl"`
	CORSAllowOrigin    string   `json:"cors_allow_origin"`
	LockWait           duration `json:"lock_wait"`
	YahooBaseURL       string   `json:"yahoo_base_url"`
}

type appSecrets struct {
	FinnhubApiKey string `json:"finnhub_api_key"`
	ApiKey        string `json:"api_key"`
}

// duration reads "90s" style strings from json.
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string such as \"5m\": %w", err)
	}
	if s == "" {
		d.Duration = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

var ErrMissingDataSource = errors.New("database connection string is not configured")

// loadAppConfig reads the config file when present, applies environment
// overrides and defaults, and validates the result.
func loadAppConfig() (*appConfig, error) {
	var result appConfig
	err := config.InterfaceJson(appConfigName, &result)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read %s: %w", appConfigName, err)
	}

	result.applyEnv(os.LookupEnv)
	result.applyDefaults()
	if err := result.validate(); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *appConfig) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup("DATABASE_URL"); ok && v != "" {
		c.DataSourceName = v
	}
	if v, ok := lookup("IDXSTOCKS_PROVIDER"); ok && v != "" {
		c.Provider = v
	}
	if v, ok := lookup("IDXSTOCKS_TICKERS"); ok && v != "" {
		c.Tickers = nil
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				c.Tickers = append(c.Tickers, t)
			}
		}
	}
}

func (c *appConfig) applyDefaults() {
	if len(c.Tickers) == 0 {
		c.Tickers = append([]string(nil), defaultTickers...)
	}
	if c.ExchangeSuffix == "" {
		c.ExchangeSuffix = ".JK"
	}
	if c.Provider == "" {
		c.Provider = "yahoo"
	}
	c.Provider = strings.ToLower(c.Provider)
	if c.Resolution == "" {
		c.Resolution = "D"
	}
	if c.Timezone == "" {
		c.Timezone = "Asia/Jakarta"
	}
	if c.LookbackDays == 0 {
		c.LookbackDays = 30
	}
	if c.BackfillStart == "" {
		c.BackfillStart = "2025-01-01"
	}
	if c.RequestInterval.Duration == 0 && c.Provider == "finnhub" {
		c.RequestInterval.Duration = time.Second
	}
	if c.MigrationSourceURL == "" {
		c.MigrationSourceURL = "file://migrations"
	}
	if c.Schedule == "" {
		c.Schedule = "0 18 * * 1-5"
	}
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
	if c.CatalogTTL.Duration == 0 {
		c.CatalogTTL.Duration = time.Hour
	}
	if c.SeriesTTL.Duration == 0 {
		c.SeriesTTL.Duration = 5 * time.Minute
	}
}

var dsnPlaceholders = []string{"PASTE_YOUR", "<password>", "YOUR_PASSWORD"}

func (c *appConfig) validate() error {
	var errs []error

	switch {
	case strings.TrimSpace(c.DataSourceName) == "":
		errs = append(errs, ErrMissingDataSource)
	default:
		for _, p := range dsnPlaceholders {
			if strings.Contains(c.DataSourceName, p) {
				errs = append(errs, fmt.Errorf("%w: connection string still contains the placeholder %q", ErrMissingDataSource, p))
				break
			}
		}
	}

	if c.Provider != "yahoo" && c.Provider != "finnhub" {
		errs = append(errs, fmt.Errorf("unknown provider %q (use yahoo or finnhub)", c.Provider))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err))
	}
	if _, err := time.Parse("2006-01-02", c.BackfillStart); err != nil {
		errs = append(errs, fmt.Errorf("invalid backfill_start %q: %w", c.BackfillStart, err))
	}
	if c.LookbackDays < 0 {
		errs = append(errs, fmt.Errorf("ingest_lookback_days must not be negative"))
	}
	seen := make(map[string]bool, len(c.Tickers))
	for _, t := range c.Tickers {
		if strings.TrimSpace(t) == "" || strings.ContainsAny(t, " \t/") {
			errs = append(errs, fmt.Errorf("invalid ticker %q", t))
			continue
		}
		if k := strings.ToUpper(t); seen[k] {
			errs = append(errs, fmt.Errorf("duplicate ticker %q", t))
		} else {
			seen[k] = true
		}
	}
	if c.RequestInterval.Duration < 0 || c.LockWait.Duration < 0 {
		errs = append(errs, fmt.Errorf("request_interval and lock_wait must not be negative"))
	}

	return errors.Join(errs...)
}

func loadAppSecrets() (*appSecrets, error) {
	var result appSecrets
	err := config.InterfaceJson(apiSecretName, &result)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read %s: %w", apiSecretName, err)
	}

	if v := os.Getenv("FINNHUB_API_KEY"); v != "" {
		result.FinnhubApiKey = v
	}
	if v := os.Getenv("IDXSTOCKS_API_KEY"); v != "" {
		result.ApiKey = v
	}
	return &result, nil
}
