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

package jdbc

import (
	"context"
	"database/sql/driver"
	"log/slog"
	"maps"

	"github.com/adbc-drivers/jdbc/jdbcerr"
	"github.com/adbc-drivers/jdbc/jdbcurl"
	"github.com/adbc-drivers/jdbc/jvm"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// ConnConfig collects the connector settings.
type ConnConfig struct {
	// URL is the abstract connection URL translated by jdbcurl.
	URL string
	// Spec, when set, is used instead of translating URL.
	Spec *jdbcurl.ConnectionSpec
	// Properties are merged over any properties from the URL.
	Properties map[string]string
	// Session defaults to jvm.Default().
	Session        *jvm.Session
	Logger         *slog.Logger
	TracerProvider trace.TracerProvider
}

type ConnOption func(c *ConnConfig)

func WithURL(url string) ConnOption {
	return func(c *ConnConfig) {
		c.URL = url
	}
}

func WithSpec(spec *jdbcurl.ConnectionSpec) ConnOption {
	return func(c *ConnConfig) {
		c.Spec = spec
	}
}

func WithProperties(properties map[string]string) ConnOption {
	return func(c *ConnConfig) {
		if c.Properties == nil {
			c.Properties = make(map[string]string)
		}
		maps.Copy(c.Properties, properties)
	}
}

func WithSession(session *jvm.Session) ConnOption {
	return func(c *ConnConfig) {
		c.Session = session
	}
}

func WithLogger(logger *slog.Logger) ConnOption {
	return func(c *ConnConfig) {
		c.Logger = logger
	}
}

func WithTracerProvider(tp trace.TracerProvider) ConnOption {
	return func(c *ConnConfig) {
		c.TracerProvider = tp
	}
}

// Connector opens connections for sql.OpenDB.
type Connector struct {
	spec    *jdbcurl.ConnectionSpec
	session *jvm.Session
	logger  *slog.Logger
	tracer  trace.Tracer
}

var _ driver.Connector = (*Connector)(nil)

// NewConnector translates and validates the configuration. No JVM work
// happens until the first Connect.
func NewConnector(options ...ConnOption) (*Connector, error) {
	cfg := &ConnConfig{}
	for _, opt := range options {
		opt(cfg)
	}

	var spec *jdbcurl.ConnectionSpec
	switch {
	case cfg.Spec != nil:
		spec = cfg.Spec.Clone()
	case cfg.URL != "":
		var err error
		if spec, err = jdbcurl.Translate(cfg.URL); err != nil {
			return nil, err
		}
	default:
		return nil, jdbcerr.Configuration("new connector", "a URL or a connection spec is required")
	}
	if len(cfg.Properties) > 0 {
		if spec.Properties == nil {
			spec.Properties = make(map[string]string, len(cfg.Properties))
		}
		maps.Copy(spec.Properties, cfg.Properties)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	c := &Connector{
		spec:    spec,
		session: cfg.Session,
		logger:  cfg.Logger,
		tracer:  otel.Tracer(tracerName),
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if cfg.TracerProvider != nil {
		c.tracer = cfg.TracerProvider.Tracer(tracerName)
	}
	return c, nil
}

// Spec returns a copy of the translated connection spec.
func (c *Connector) Spec() *jdbcurl.ConnectionSpec {
	return c.spec.Clone()
}

func (c *Connector) Connect(ctx context.Context) (driver.Conn, error) {
	session := c.session
	if session == nil {
		var err error
		if session, err = jvm.Default(); err != nil {
			return nil, err
		}
	}
	f := Factory{Session: session, Logger: c.logger, Tracer: c.tracer}
	raw, err := f.Connect(ctx, c.spec)
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	c.logger.Debug("JDBC connection opened", slog.String("conn_id", id), slog.String("driver_class", c.spec.DriverClass))
	return &conn{
		id:      id,
		session: session,
		raw:     raw,
		logger:  c.logger.With(slog.String("conn_id", id)),
	}, nil
}

func (c *Connector) Driver() driver.Driver {
	return &Driver{}
}
