// Copyright (c) 2025 ADBC Drivers Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//         http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sqlwrapper

import (
	"database/sql"
	"strconv"
	"time"

	"github.com/adbc-drivers/jdbc/jdbcerr"
)

// Database options tuning the database/sql connection pool. Every pooled
// connection holds an open java.sql.Connection in the JVM.
const (
	OptionKeyMaxOpenConns    = "adbc.jdbc.pool.max_open_conns"
	OptionKeyMaxIdleConns    = "adbc.jdbc.pool.max_idle_conns"
	OptionKeyConnMaxLifetime = "adbc.jdbc.pool.conn_max_lifetime"
)

// PoolConfig holds connection pool limits.
type PoolConfig struct {
	MaxOpen     int
	MaxIdle     int
	MaxLifetime time.Duration
}

// PoolOption adjusts a PoolConfig.
type PoolOption func(*PoolConfig)

func WithMaxOpenConns(n int) PoolOption {
	return func(c *PoolConfig) { c.MaxOpen = n }
}

func WithMaxIdleConns(n int) PoolOption {
	return func(c *PoolConfig) { c.MaxIdle = n }
}

func WithConnMaxLifetime(d time.Duration) PoolOption {
	return func(c *PoolConfig) { c.MaxLifetime = d }
}

// NewPoolConfig returns the defaults with opts applied.
func NewPoolConfig(opts ...PoolOption) PoolConfig {
	cfg := PoolConfig{MaxOpen: 10, MaxIdle: 5, MaxLifetime: 30 * time.Minute}
	for _, o := range opts {
		o(&cfg)
	}
	return cfg
}

// PoolOptionsFromMap reads the pool options out of ADBC database options.
func PoolOptionsFromMap(opts map[string]string) ([]PoolOption, error) {
	const op = "read pool options"
	var out []PoolOption
	for _, key := range []string{OptionKeyMaxOpenConns, OptionKeyMaxIdleConns} {
		v, ok := opts[key]
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, jdbcerr.Configuration(op, "%s must be a non-negative integer, got %q", key, v)
		}
		if key == OptionKeyMaxOpenConns {
			out = append(out, WithMaxOpenConns(n))
		} else {
			out = append(out, WithMaxIdleConns(n))
		}
	}
	if v, ok := opts[OptionKeyConnMaxLifetime]; ok {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return nil, jdbcerr.Configuration(op, "%s must be a non-negative duration, got %q", OptionKeyConnMaxLifetime, v)
		}
		out = append(out, WithConnMaxLifetime(d))
	}
	return out, nil
}

// Apply sets the limits on db. Zero means unlimited, as in database/sql.
func (c PoolConfig) Apply(db *sql.DB) {
	db.SetMaxOpenConns(c.MaxOpen)
	db.SetMaxIdleConns(c.MaxIdle)
	db.SetConnMaxLifetime(c.MaxLifetime)
}
