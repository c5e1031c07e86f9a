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

package jvm

import (
	"context"
	"log/slog"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/adbc-drivers/jdbc/jdbcerr"
	"github.com/puzpuzpuz/xsync/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/adbc-drivers/jdbc/jvm"

// State is the lifecycle position of a Session.
type State int32

const (
	StateNotStarted State = iota
	StateStarting
	StateStarted
	// StateFailed is terminal: a JVM that failed to boot cannot be started
	// again in the same process.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not started"
	case StateStarting:
		return "starting"
	case StateStarted:
		return "started"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// StartOptions configure the JVM. They only take effect on the call that
// actually boots it.
type StartOptions struct {
	Jars    []string
	Libs    []string
	JVMPath string
	JVMArgs []string
}

// Config is the configuration a session was started with.
type Config struct {
	JVMPath   string
	Classpath []string
	Libs      []string
	JVMArgs   []string
	Flags     StartFlags
}

// Session owns the process's JVM: it boots it once and attaches OS threads to
// it on demand.
type Session struct {
	bridge Bridge
	logger *slog.Logger
	tracer trace.Tracer

	mu               sync.Mutex
	state            atomic.Int32
	startErr         error
	defaultClasspath []string
	config           Config

	// attached is keyed by OS thread id and never pruned. A thread that exits
	// while locked to a goroutine can have its id reused by a new thread,
	// which is then wrongly treated as attached.
	attached *xsync.Map[int, struct{}]
	types    TypeConstants
}

type SessionOption func(*Session)

func WithLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithTracerProvider(tp trace.TracerProvider) SessionOption {
	return func(s *Session) {
		if tp != nil {
			s.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithDefaultClasspath replaces the default classpath, which otherwise comes
// from the CLASSPATH environment variable.
func WithDefaultClasspath(paths ...string) SessionOption {
	return func(s *Session) {
		s.defaultClasspath = slices.Clone(paths)
	}
}

// NewSession wraps a bridge. Most callers want Default; separate sessions are
// only meaningful with bridges that are not backed by a real JVM.
func NewSession(b Bridge, opts ...SessionOption) *Session {
	s := &Session{
		bridge:           b,
		logger:           slog.Default(),
		tracer:           otel.Tracer(tracerName),
		defaultClasspath: envClasspath(),
		attached:         xsync.NewMap[int, struct{}](),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Bridge returns the underlying bridge.
func (s *Session) Bridge() Bridge {
	return s.bridge
}

// Types returns the session's java.sql.Types cache.
func (s *Session) Types() *TypeConstants {
	return &s.types
}

func (s *Session) State() State {
	return State(s.state.Load())
}

// Config returns the configuration the JVM was started with. It is the zero
// value until the session has started.
func (s *Session) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config
}

// AddDefaultClasspath registers classpath entries included in every start.
// Entries added after the JVM is running have no effect.
func (s *Session) AddDefaultClasspath(paths ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.State() == StateStarted {
		s.logger.Warn("JVM already started; ignoring default classpath entries", slog.Any("paths", paths))
		return
	}
	s.defaultClasspath = append(s.defaultClasspath, paths...)
}

// EnsureStarted boots the JVM if this is the first call. Later calls return
// immediately; options that differ from the running JVM are ignored. If the
// first start failed, every later call returns that same error.
func (s *Session) EnsureStarted(ctx context.Context, opts StartOptions) error {
	if s.State() == StateStarted {
		s.warnIgnored(s.Config(), opts)
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.State() {
	case StateStarted:
		s.warnIgnored(s.config, opts)
		return nil
	case StateFailed:
		return s.startErr
	}

	s.state.Store(int32(StateStarting))
	_, span := s.tracer.Start(ctx, "jvm.start")
	defer span.End()

	cfg := Config{
		JVMPath:   opts.JVMPath,
		Classpath: mergePaths(opts.Jars, s.defaultClasspath),
		Libs:      mergePaths(opts.Libs),
		JVMArgs:   slices.Clone(opts.JVMArgs),
		Flags:     startFlagsFor(s.bridge.Version()),
	}
	if cfg.JVMPath == "" {
		path, err := s.bridge.DefaultJVMPath()
		if err != nil {
			// Nothing touched the JVM yet, so a later call may try again.
			s.state.Store(int32(StateNotStarted))
			span.RecordError(err)
			span.SetStatus(codes.Error, "locate JVM")
			return jdbcerr.Connection("start jvm", err, "locate JVM")
		}
		cfg.JVMPath = path
	}

	args := buildArgs(cfg.Classpath, cfg.Libs, cfg.JVMArgs)
	span.SetAttributes(
		attribute.String("jvm.path", cfg.JVMPath),
		attribute.Int("jvm.classpath.entries", len(cfg.Classpath)),
		attribute.String("jvm.bridge.version", s.bridge.Version()),
	)
	s.logger.Info("starting JVM",
		slog.String("path", cfg.JVMPath),
		slog.Any("classpath", cfg.Classpath),
		slog.Any("libs", cfg.Libs),
		slog.Bool("ignore_unrecognized", cfg.Flags.IgnoreUnrecognized))

	if err := s.bridge.StartJVM(cfg.JVMPath, args, cfg.Flags); err != nil {
		s.startErr = jdbcerr.Connection("start jvm", err, "start JVM at %s", cfg.JVMPath)
		s.state.Store(int32(StateFailed))
		span.RecordError(err)
		span.SetStatus(codes.Error, "start JVM")
		return s.startErr
	}
	s.config = cfg
	s.state.Store(int32(StateStarted))
	return nil
}

// warnIgnored logs the parts of opts the running JVM cannot honor.
func (s *Session) warnIgnored(cfg Config, opts StartOptions) {
	var attrs []any
	if missing := notIn(opts.Jars, cfg.Classpath); len(missing) > 0 {
		attrs = append(attrs, slog.Any("jars", missing))
	}
	if missing := notIn(opts.Libs, cfg.Libs); len(missing) > 0 {
		attrs = append(attrs, slog.Any("libs", missing))
	}
	if missing := notIn(opts.JVMArgs, cfg.JVMArgs); len(missing) > 0 {
		attrs = append(attrs, slog.Any("jvm_args", missing))
	}
	if opts.JVMPath != "" && opts.JVMPath != cfg.JVMPath {
		attrs = append(attrs, slog.String("jvm_path", opts.JVMPath))
	}
	if len(attrs) > 0 {
		s.logger.Warn("JVM already started; ignoring settings that differ from the running JVM", attrs...)
	}
}

func notIn(want, have []string) []string {
	var out []string
	for _, w := range want {
		if w != "" && !slices.Contains(have, w) {
			out = append(out, w)
		}
	}
	return out
}

// EnsureThreadAttached attaches the current OS thread to the JVM and points
// its context class loader at the system class loader. The caller must hold
// runtime.LockOSThread; see Run.
func (s *Session) EnsureThreadAttached() error {
	if s.State() != StateStarted {
		return jdbcerr.Connection("attach thread", nil, "JVM is %s", s.State())
	}
	tid, known := currentThreadID()
	if known {
		if _, ok := s.attached.Load(tid); ok {
			return nil
		}
	}
	if err := s.bridge.AttachCurrentThread(); err != nil {
		return jdbcerr.Connection("attach thread", err, "attach thread to JVM")
	}
	if err := s.bridge.UseSystemClassLoader(); err != nil {
		return jdbcerr.Connection("attach thread", err, "set context class loader")
	}
	if known {
		s.attached.Store(tid, struct{}{})
	}
	return nil
}

// AttachedThreads returns how many OS threads this session has attached.
func (s *Session) AttachedThreads() int {
	return s.attached.Size()
}

// Run pins the goroutine to its OS thread, attaches the thread and calls fn.
func (s *Session) Run(fn func(Bridge) error) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := s.EnsureThreadAttached(); err != nil {
		return err
	}
	return fn(s.bridge)
}

// Call is Run for functions that return a value.
func Call[T any](s *Session, fn func(Bridge) (T, error)) (T, error) {
	var out T
	err := s.Run(func(b Bridge) error {
		var err error
		out, err = fn(b)
		return err
	})
	return out, err
}

var (
	defaultMu      sync.Mutex
	defaultBridge  Bridge
	defaultSession *Session
)

// RegisterBridge installs the bridge used by Default. Registering after
// Default has created the session has no effect.
func RegisterBridge(b Bridge) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultBridge = b
}

// Default returns the process-wide session.
func Default() (*Session, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultSession != nil {
		return defaultSession, nil
	}
	if defaultBridge == nil {
		return nil, jdbcerr.Connection("jvm", nil, "no JVM bridge is compiled in (build with -tags jni)")
	}
	defaultSession = NewSession(defaultBridge)
	return defaultSession, nil
}
