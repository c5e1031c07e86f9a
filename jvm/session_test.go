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

package jvm_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"runtime"
	"sync"
	"testing"

	"github.com/adbc-drivers/jdbc/jdbcerr"
	"github.com/adbc-drivers/jdbc/jvm"
	"github.com/adbc-drivers/jdbc/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"golang.org/x/sync/errgroup"
)

type SessionTest struct {
	suite.Suite
	bridge  *testutil.FakeBridge
	logs    bytes.Buffer
	session *jvm.Session
}

func TestSession(t *testing.T) {
	suite.Run(t, &SessionTest{})
}

func (s *SessionTest) SetupTest() {
	s.bridge = testutil.NewFakeBridge()
	s.logs.Reset()
	s.session = jvm.NewSession(s.bridge,
		jvm.WithLogger(testutil.CaptureLogger(&s.logs)),
		jvm.WithDefaultClasspath("/opt/default.jar"))
}

func (s *SessionTest) TestStartOnce() {
	ctx := context.Background()
	s.Equal(jvm.StateNotStarted, s.session.State())

	s.Require().NoError(s.session.EnsureStarted(ctx, jvm.StartOptions{Jars: []string{"/opt/a.jar"}}))
	s.Require().NoError(s.session.EnsureStarted(ctx, jvm.StartOptions{Jars: []string{"/opt/b.jar"}}))

	s.Equal(jvm.StateStarted, s.session.State())
	starts := s.bridge.Starts()
	s.Require().Len(starts, 1)
	sep := string(os.PathListSeparator)
	s.Equal([]string{"-Djava.class.path=/opt/a.jar" + sep + "/opt/default.jar"}, starts[0].Args)
	s.Equal(s.bridge.JVMPath, starts[0].JVMPath)
	s.True(starts[0].Flags.IgnoreUnrecognized)
	s.True(starts[0].Flags.ConvertStrings)

	cfg := s.session.Config()
	s.Equal([]string{"/opt/a.jar", "/opt/default.jar"}, cfg.Classpath)
	s.NotContains(cfg.Classpath, "/opt/b.jar")
	s.Contains(s.logs.String(), "ignoring settings")
	s.Contains(s.logs.String(), "/opt/b.jar")
}

func (s *SessionTest) TestStartOptions() {
	s.Require().NoError(s.session.EnsureStarted(context.Background(), jvm.StartOptions{
		JVMPath: "/opt/jdk/lib/server/libjvm.so",
		Libs:    []string{"/opt/native"},
		JVMArgs: []string{"-Xmx512m"},
	}))
	starts := s.bridge.Starts()
	s.Require().Len(starts, 1)
	s.Equal("/opt/jdk/lib/server/libjvm.so", starts[0].JVMPath)
	s.Equal([]string{
		"-Djava.class.path=/opt/default.jar",
		"-Djava.library.path=/opt/native",
		"-Xmx512m",
	}, starts[0].Args)
}

func (s *SessionTest) TestOldBridgeGetsNoFlags() {
	s.bridge.VersionString = "0.6.3"
	s.Require().NoError(s.session.EnsureStarted(context.Background(), jvm.StartOptions{}))
	s.Equal(jvm.StartFlags{}, s.bridge.Starts()[0].Flags)
}

func (s *SessionTest) TestStartFailureIsTerminal() {
	s.bridge.StartErr = errors.New("JNI_CreateJavaVM returned -1")
	ctx := context.Background()

	err := s.session.EnsureStarted(ctx, jvm.StartOptions{})
	s.Require().Error(err)
	s.ErrorIs(err, jdbcerr.ErrConnection)
	s.ErrorContains(err, "JNI_CreateJavaVM")
	s.Equal(jvm.StateFailed, s.session.State())

	s.bridge.StartErr = nil
	again := s.session.EnsureStarted(ctx, jvm.StartOptions{})
	s.Same(err, again)
	s.Len(s.bridge.Starts(), 1)
}

func (s *SessionTest) TestLocateFailureIsRetryable() {
	s.bridge.JVMPathErr = errors.New("JAVA_HOME is not set")
	ctx := context.Background()

	err := s.session.EnsureStarted(ctx, jvm.StartOptions{})
	s.ErrorIs(err, jdbcerr.ErrConnection)
	s.Equal(jvm.StateNotStarted, s.session.State())
	s.Empty(s.bridge.Starts())

	s.bridge.JVMPathErr = nil
	s.Require().NoError(s.session.EnsureStarted(ctx, jvm.StartOptions{}))
	s.Equal(jvm.StateStarted, s.session.State())
}

func (s *SessionTest) TestAttachRequiresStart() {
	err := s.session.Run(func(jvm.Bridge) error { return nil })
	s.ErrorIs(err, jdbcerr.ErrConnection)
	s.Zero(s.bridge.Attaches())
}

func (s *SessionTest) TestAttachOncePerThread() {
	s.Require().NoError(s.session.EnsureStarted(context.Background(), jvm.StartOptions{}))

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	s.Require().NoError(s.session.EnsureThreadAttached())
	s.Require().NoError(s.session.EnsureThreadAttached())

	if runtime.GOOS == "linux" {
		s.Equal(1, s.bridge.Attaches())
		s.Equal(1, s.bridge.ClassLoaderSets())
		s.Equal(1, s.session.AttachedThreads())
	} else {
		s.Equal(2, s.bridge.Attaches())
	}
}

func (s *SessionTest) TestAttachFailure() {
	s.Require().NoError(s.session.EnsureStarted(context.Background(), jvm.StartOptions{}))
	s.bridge.AttachErr = errors.New("AttachCurrentThread failed")

	err := s.session.Run(func(jvm.Bridge) error { return nil })
	s.ErrorIs(err, jdbcerr.ErrConnection)
	s.Zero(s.session.AttachedThreads())
}

func (s *SessionTest) TestCall() {
	s.Require().NoError(s.session.EnsureStarted(context.Background(), jvm.StartOptions{}))
	version, err := jvm.Call(s.session, func(b jvm.Bridge) (string, error) {
		return b.Version(), nil
	})
	s.Require().NoError(err)
	s.Equal("1.5.0", version)
}

func (s *SessionTest) TestAddDefaultClasspath() {
	s.session.AddDefaultClasspath("/opt/extra.jar")
	s.Require().NoError(s.session.EnsureStarted(context.Background(), jvm.StartOptions{}))
	s.session.AddDefaultClasspath("/opt/late.jar")

	s.Equal([]string{"/opt/default.jar", "/opt/extra.jar"}, s.session.Config().Classpath)
	s.Contains(s.logs.String(), "/opt/late.jar")
}

func TestSessionConcurrentStart(t *testing.T) {
	b := testutil.NewFakeBridge()
	b.StartGate = make(chan struct{})
	session := jvm.NewSession(b, jvm.WithDefaultClasspath())

	const workers = 2
	var inside sync.WaitGroup
	inside.Add(workers)

	var g errgroup.Group
	for range workers {
		g.Go(func() error {
			if err := session.EnsureStarted(context.Background(), jvm.StartOptions{Jars: []string{"/opt/a.jar"}}); err != nil {
				return err
			}
			return session.Run(func(jvm.Bridge) error {
				// Hold both threads at once so each one is attached separately.
				inside.Done()
				inside.Wait()
				return nil
			})
		})
	}
	close(b.StartGate)
	require.NoError(t, g.Wait())

	assert.Len(t, b.Starts(), 1)
	assert.Equal(t, jvm.StateStarted, session.State())
	assert.Equal(t, workers, b.Attaches())
	if runtime.GOOS == "linux" {
		assert.Equal(t, workers, session.AttachedThreads())
	}
}

func TestSessionStartSpan(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	b := testutil.NewFakeBridge()
	session := jvm.NewSession(b, jvm.WithTracerProvider(tp), jvm.WithDefaultClasspath())
	require.NoError(t, session.EnsureStarted(context.Background(), jvm.StartOptions{}))
	require.NoError(t, session.EnsureStarted(context.Background(), jvm.StartOptions{}))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "jvm.start", spans[0].Name())
}
