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
	"log/slog"

	"github.com/adbc-drivers/jdbc/jdbcerr"
	"github.com/adbc-drivers/jdbc/jdbcurl"
	"github.com/adbc-drivers/jdbc/jvm"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/adbc-drivers/jdbc/jdbc"

// Factory opens raw JDBC connections inside a JVM session.
type Factory struct {
	Session *jvm.Session
	Logger  *slog.Logger
	Tracer  trace.Tracer
}

// Connect opens a connection with the default logger and tracer.
func Connect(ctx context.Context, session *jvm.Session, spec *jdbcurl.ConnectionSpec) (jvm.Conn, error) {
	f := Factory{Session: session}
	return f.Connect(ctx, spec)
}

// Connect starts the JVM if needed, loads spec.DriverClass and asks
// java.sql.DriverManager for a connection to spec.URL.
//
// A driver class that cannot be loaded is reported as jdbcerr.ErrDriverLoad;
// a failed JVM start or a rejected URL or credentials as jdbcerr.ErrConnection.
func (f *Factory) Connect(ctx context.Context, spec *jdbcurl.ConnectionSpec) (jvm.Conn, error) {
	const op = "connect"
	logger := f.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tracer := f.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}

	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if f.Session == nil {
		return nil, jdbcerr.Connection(op, nil, "no JVM session")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "jdbc.connect", trace.WithAttributes(
		attribute.String("jdbc.driver_class", spec.DriverClass),
	))
	defer span.End()

	conn, err := f.connect(ctx, spec, logger)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "connect")
		logger.Error("JDBC connect failed",
			slog.String("driver_class", spec.DriverClass),
			slog.Any("error", err))
		return nil, err
	}
	return conn, nil
}

func (f *Factory) connect(ctx context.Context, spec *jdbcurl.ConnectionSpec, logger *slog.Logger) (jvm.Conn, error) {
	const op = "connect"
	jars, err := jdbcurl.Normalize(spec.Jars)
	if err != nil {
		return nil, err
	}
	libs, err := jdbcurl.Normalize(spec.Libs)
	if err != nil {
		return nil, err
	}
	args, err := jdbcurl.Normalize(spec.DriverArgs)
	if err != nil {
		return nil, err
	}

	if err := f.Session.EnsureStarted(ctx, jvm.StartOptions{
		Jars:    jars,
		Libs:    libs,
		JVMPath: spec.JVMPath,
		JVMArgs: spec.JVMArgs,
	}); err != nil {
		return nil, err
	}

	return jvm.Call(f.Session, func(b jvm.Bridge) (jvm.Conn, error) {
		if err := f.Session.Types().EnsureLoaded(b); err != nil {
			return nil, jdbcerr.Connection(op, err, "load SQL type constants")
		}
		if err := b.LoadClass(spec.DriverClass); err != nil {
			return nil, jdbcerr.DriverLoad(op, err, "load driver class %s", spec.DriverClass)
		}

		var props map[string]string
		if len(spec.Properties) > 0 {
			props = spec.Properties
			args = nil
		}
		logger.Debug("opening JDBC connection",
			slog.String("driver_class", spec.DriverClass),
			slog.Int("properties", len(props)),
			slog.Int("driver_args", len(args)))
		conn, err := b.Connect(spec.URL, props, args)
		if err != nil {
			return nil, jdbcerr.Connection(op, err, "driver %s rejected the connection", spec.DriverClass)
		}
		return conn, nil
	})
}
