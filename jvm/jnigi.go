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

//go:build jni && linux

package jvm

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/adbc-drivers/jdbc/jdbcerr"
	"github.com/puzpuzpuz/xsync/v4"
	"tekao.net/jnigi"
)

// jnigiVersion is the bridge API level this adapter implements.
const jnigiVersion = "1.0"

func init() {
	RegisterBridge(newJnigiBridge())
}

// jnigiBridge hosts the JVM through JNI. JNI environments are bound to OS
// threads, so one is kept per attached thread.
type jnigiBridge struct {
	mu   sync.Mutex
	jvm  *jnigi.JVM
	// envs is keyed by OS thread id and never pruned; see Session.attached.
	envs *xsync.Map[int, *jnigi.Env]
}

func newJnigiBridge() *jnigiBridge {
	return &jnigiBridge{envs: xsync.NewMap[int, *jnigi.Env]()}
}

func (b *jnigiBridge) Version() string {
	return jnigiVersion
}

func (b *jnigiBridge) DefaultJVMPath() (string, error) {
	path := jnigi.AttemptToFindJVMLibPath()
	if path == "" {
		return "", errors.New("could not locate libjvm; set JAVA_HOME or pass _jvm_path")
	}
	return path, nil
}

func (b *jnigiBridge) StartJVM(jvmPath string, args []string, flags StartFlags) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.jvm != nil {
		return errors.New("JVM is already running")
	}
	if err := jnigi.LoadJVMLib(jvmPath); err != nil {
		return fmt.Errorf("load %s: %w", jvmPath, err)
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	jvm, env, err := jnigi.CreateJVM(jnigi.NewJVMInitArgs(flags.IgnoreUnrecognized, true, jnigi.DEFAULT_VERSION, args))
	if err != nil {
		return err
	}
	env.ExceptionHandler = sqlExceptionHandler{}
	b.jvm = jvm
	if tid, ok := currentThreadID(); ok {
		b.envs.Store(tid, env)
	}
	return nil
}

func (b *jnigiBridge) AttachCurrentThread() error {
	b.mu.Lock()
	jvm := b.jvm
	b.mu.Unlock()
	if jvm == nil {
		return errors.New("JVM is not running")
	}
	tid, _ := currentThreadID()
	if _, ok := b.envs.Load(tid); ok {
		return nil
	}
	env := jvm.AttachCurrentThread()
	if env == nil {
		return errors.New("AttachCurrentThread returned no environment")
	}
	env.ExceptionHandler = sqlExceptionHandler{}
	b.envs.Store(tid, env)
	return nil
}

// env returns the JNI environment of the calling thread.
func (b *jnigiBridge) env() (*jnigi.Env, error) {
	tid, _ := currentThreadID()
	if env, ok := b.envs.Load(tid); ok {
		return env, nil
	}
	if err := b.AttachCurrentThread(); err != nil {
		return nil, err
	}
	env, _ := b.envs.Load(tid)
	return env, nil
}

func (b *jnigiBridge) UseSystemClassLoader() error {
	env, err := b.env()
	if err != nil {
		return err
	}
	thread := jnigi.NewObjectRef("java/lang/Thread")
	if err := env.CallStaticMethod("java/lang/Thread", "currentThread", thread); err != nil {
		return err
	}
	defer env.DeleteLocalRef(thread)
	loader := jnigi.NewObjectRef("java/lang/ClassLoader")
	if err := env.CallStaticMethod("java/lang/ClassLoader", "getSystemClassLoader", loader); err != nil {
		return err
	}
	defer env.DeleteLocalRef(loader)
	return thread.CallMethod(env, "setContextClassLoader", nil, loader)
}

func (b *jnigiBridge) StaticFields(className string) (map[string]int32, error) {
	env, err := b.env()
	if err != nil {
		return nil, err
	}
	class, err := b.forName(env, className)
	if err != nil {
		return nil, err
	}
	defer env.DeleteLocalRef(class)

	arr := jnigi.NewObjectArrayRef("java/lang/reflect/Field")
	if err := class.CallMethod(env, "getFields", arr); err != nil {
		return nil, err
	}
	defer env.DeleteLocalRef(arr)

	internal := strings.ReplaceAll(className, ".", "/")
	out := make(map[string]int32)
	for _, field := range env.FromObjectArray(arr) {
		name, err := stringResult(env, field, "getName")
		env.DeleteLocalRef(field)
		if err != nil {
			return nil, err
		}
		var v int
		if err := env.GetStaticField(internal, name, &v); err != nil {
			// Not an int constant.
			continue
		}
		out[name] = int32(v)
	}
	return out, nil
}

func (b *jnigiBridge) LoadClass(className string) error {
	env, err := b.env()
	if err != nil {
		return err
	}
	class, err := b.forName(env, className)
	if err != nil {
		return err
	}
	env.DeleteLocalRef(class)
	return nil
}

// forName loads and initializes className through the context class loader.
func (b *jnigiBridge) forName(env *jnigi.Env, className string) (*jnigi.ObjectRef, error) {
	name, err := jstring(env, className)
	if err != nil {
		return nil, err
	}
	defer env.DeleteLocalRef(name)

	thread := jnigi.NewObjectRef("java/lang/Thread")
	if err := env.CallStaticMethod("java/lang/Thread", "currentThread", thread); err != nil {
		return nil, err
	}
	defer env.DeleteLocalRef(thread)
	loader := jnigi.NewObjectRef("java/lang/ClassLoader")
	if err := thread.CallMethod(env, "getContextClassLoader", loader); err != nil {
		return nil, err
	}
	defer env.DeleteLocalRef(loader)

	class := jnigi.NewObjectRef("java/lang/Class")
	if err := env.CallStaticMethod("java/lang/Class", "forName", class, name, true, loader); err != nil {
		return nil, err
	}
	return class, nil
}

func (b *jnigiBridge) Connect(url string, props map[string]string, args []string) (Conn, error) {
	env, err := b.env()
	if err != nil {
		return nil, err
	}
	jurl, err := jstring(env, url)
	if err != nil {
		return nil, err
	}
	defer env.DeleteLocalRef(jurl)

	callArgs := []any{jurl}
	switch {
	case props != nil:
		p, err := env.NewObject("java/util/Properties")
		if err != nil {
			return nil, err
		}
		defer env.DeleteLocalRef(p)
		for k, v := range props {
			jk, err := jstring(env, k)
			if err != nil {
				return nil, err
			}
			jv, err := jstring(env, v)
			if err != nil {
				return nil, err
			}
			prev := jnigi.NewObjectRef("java/lang/Object")
			err = p.CallMethod(env, "setProperty", prev, jk, jv)
			env.DeleteLocalRef(jk)
			env.DeleteLocalRef(jv)
			env.DeleteLocalRef(prev)
			if err != nil {
				return nil, err
			}
		}
		callArgs = append(callArgs, p)
	default:
		for _, a := range args {
			ja, err := jstring(env, a)
			if err != nil {
				return nil, err
			}
			defer env.DeleteLocalRef(ja)
			callArgs = append(callArgs, ja)
		}
	}

	conn := jnigi.NewObjectRef("java/sql/Connection")
	if err := env.CallStaticMethod("java/sql/DriverManager", "getConnection", conn, callArgs...); err != nil {
		return nil, err
	}
	defer env.DeleteLocalRef(conn)
	return &jnigiConn{b: b, ref: env.NewGlobalRef(conn)}, nil
}

// jnigiConn holds a global reference so it can be used from any attached thread.
type jnigiConn struct {
	b   *jnigiBridge
	ref *jnigi.ObjectRef
}

func (c *jnigiConn) call(method string, dest any, args ...any) error {
	env, err := c.b.env()
	if err != nil {
		return err
	}
	return c.ref.CallMethod(env, method, dest, args...)
}

func (c *jnigiConn) Prepare(query string) (Statement, error) {
	env, err := c.b.env()
	if err != nil {
		return nil, err
	}
	q, err := jstring(env, query)
	if err != nil {
		return nil, err
	}
	defer env.DeleteLocalRef(q)
	stmt := jnigi.NewObjectRef("java/sql/PreparedStatement")
	if err := c.ref.CallMethod(env, "prepareStatement", stmt, q); err != nil {
		return nil, err
	}
	defer env.DeleteLocalRef(stmt)
	return &jnigiStatement{b: c.b, ref: env.NewGlobalRef(stmt)}, nil
}

func (c *jnigiConn) SetAutoCommit(enabled bool) error {
	return c.call("setAutoCommit", nil, enabled)
}

func (c *jnigiConn) SetReadOnly(readOnly bool) error {
	return c.call("setReadOnly", nil, readOnly)
}

func (c *jnigiConn) SetTransactionIsolation(level int) error {
	return c.call("setTransactionIsolation", nil, level)
}

func (c *jnigiConn) TransactionIsolation() (int, error) {
	var level int
	err := c.call("getTransactionIsolation", &level)
	return level, err
}

func (c *jnigiConn) Commit() error {
	return c.call("commit", nil)
}

func (c *jnigiConn) Rollback() error {
	return c.call("rollback", nil)
}

func (c *jnigiConn) IsValid(timeout time.Duration) (bool, error) {
	var ok bool
	err := c.call("isValid", &ok, int(timeout/time.Second))
	return ok, err
}

func (c *jnigiConn) Close() error {
	env, err := c.b.env()
	if err != nil {
		return err
	}
	err = c.ref.CallMethod(env, "close", nil)
	env.DeleteGlobalRef(c.ref)
	return err
}

type jnigiStatement struct {
	b   *jnigiBridge
	ref *jnigi.ObjectRef
}

func (s *jnigiStatement) NumParams() int {
	env, err := s.b.env()
	if err != nil {
		return -1
	}
	meta := jnigi.NewObjectRef("java/sql/ParameterMetaData")
	if err := s.ref.CallMethod(env, "getParameterMetaData", meta); err != nil || meta.IsNil() {
		return -1
	}
	defer env.DeleteLocalRef(meta)
	var n int
	if err := meta.CallMethod(env, "getParameterCount", &n); err != nil {
		return -1
	}
	return n
}

func (s *jnigiStatement) SetParam(index int, value any) error {
	env, err := s.b.env()
	if err != nil {
		return err
	}
	switch v := value.(type) {
	case nil:
		return s.ref.CallMethod(env, "setObject", nil, index, jnigi.NewObjectRef("java/lang/Object"))
	case int64:
		return s.ref.CallMethod(env, "setLong", nil, index, v)
	case float64:
		return s.ref.CallMethod(env, "setDouble", nil, index, v)
	case bool:
		return s.ref.CallMethod(env, "setBoolean", nil, index, v)
	case []byte:
		return s.ref.CallMethod(env, "setBytes", nil, index, v)
	case string:
		js, err := jstring(env, v)
		if err != nil {
			return err
		}
		defer env.DeleteLocalRef(js)
		return s.ref.CallMethod(env, "setString", nil, index, js)
	case time.Time:
		js, err := jstring(env, v.Format("2006-01-02 15:04:05.999999999"))
		if err != nil {
			return err
		}
		defer env.DeleteLocalRef(js)
		ts := jnigi.NewObjectRef("java/sql/Timestamp")
		if err := env.CallStaticMethod("java/sql/Timestamp", "valueOf", ts, js); err != nil {
			return err
		}
		defer env.DeleteLocalRef(ts)
		return s.ref.CallMethod(env, "setTimestamp", nil, index, ts)
	default:
		return fmt.Errorf("unsupported parameter type %T", value)
	}
}

func (s *jnigiStatement) ExecuteUpdate() (int64, error) {
	env, err := s.b.env()
	if err != nil {
		return 0, err
	}
	var n int
	err = s.ref.CallMethod(env, "executeUpdate", &n)
	return int64(n), err
}

func (s *jnigiStatement) ExecuteQuery() (ResultSet, error) {
	env, err := s.b.env()
	if err != nil {
		return nil, err
	}
	rs := jnigi.NewObjectRef("java/sql/ResultSet")
	if err := s.ref.CallMethod(env, "executeQuery", rs); err != nil {
		return nil, err
	}
	defer env.DeleteLocalRef(rs)
	return &jnigiResultSet{b: s.b, ref: env.NewGlobalRef(rs)}, nil
}

func (s *jnigiStatement) Close() error {
	env, err := s.b.env()
	if err != nil {
		return err
	}
	err = s.ref.CallMethod(env, "close", nil)
	env.DeleteGlobalRef(s.ref)
	return err
}

type jnigiResultSet struct {
	b   *jnigiBridge
	ref *jnigi.ObjectRef
}

func (r *jnigiResultSet) Columns() ([]Column, error) {
	env, err := r.b.env()
	if err != nil {
		return nil, err
	}
	meta := jnigi.NewObjectRef("java/sql/ResultSetMetaData")
	if err := r.ref.CallMethod(env, "getMetaData", meta); err != nil {
		return nil, err
	}
	defer env.DeleteLocalRef(meta)

	var n int
	if err := meta.CallMethod(env, "getColumnCount", &n); err != nil {
		return nil, err
	}
	cols := make([]Column, n)
	for i := range cols {
		idx := i + 1
		col := &cols[i]
		if col.Name, err = stringResult(env, meta, "getColumnLabel", idx); err != nil {
			return nil, err
		}
		if col.TypeName, err = stringResult(env, meta, "getColumnTypeName", idx); err != nil {
			return nil, err
		}
		var code, precision, scale, nullable int
		if err := meta.CallMethod(env, "getColumnType", &code, idx); err != nil {
			return nil, err
		}
		if err := meta.CallMethod(env, "getPrecision", &precision, idx); err != nil {
			return nil, err
		}
		if err := meta.CallMethod(env, "getScale", &scale, idx); err != nil {
			return nil, err
		}
		if err := meta.CallMethod(env, "isNullable", &nullable, idx); err != nil {
			return nil, err
		}
		col.TypeCode = int32(code)
		col.Precision = int64(precision)
		col.Scale = int64(scale)
		col.Nullable = nullable
	}
	return cols, nil
}

func (r *jnigiResultSet) Next() (bool, error) {
	env, err := r.b.env()
	if err != nil {
		return false, err
	}
	var ok bool
	err = r.ref.CallMethod(env, "next", &ok)
	return ok, err
}

func (r *jnigiResultSet) Get(index int, kind ValueKind) (any, error) {
	env, err := r.b.env()
	if err != nil {
		return nil, err
	}
	var out any
	switch kind {
	case KindString:
		s := jnigi.NewObjectRef("java/lang/String")
		if err := r.ref.CallMethod(env, "getString", s, index); err != nil {
			return nil, err
		}
		if s.IsNil() {
			return nil, nil
		}
		defer env.DeleteLocalRef(s)
		return goString(env, s)
	case KindInt64:
		var v int64
		err = r.ref.CallMethod(env, "getLong", &v, index)
		out = v
	case KindFloat64:
		var v float64
		err = r.ref.CallMethod(env, "getDouble", &v, index)
		out = v
	case KindBool:
		var v bool
		err = r.ref.CallMethod(env, "getBoolean", &v, index)
		out = v
	case KindBytes:
		var v []byte
		err = r.ref.CallMethod(env, "getBytes", &v, index)
		out = v
	default:
		return nil, fmt.Errorf("unknown value kind %d", kind)
	}
	if err != nil {
		return nil, err
	}
	var null bool
	if err := r.ref.CallMethod(env, "wasNull", &null); err != nil {
		return nil, err
	}
	if null {
		return nil, nil
	}
	return out, nil
}

func (r *jnigiResultSet) Close() error {
	env, err := r.b.env()
	if err != nil {
		return err
	}
	err = r.ref.CallMethod(env, "close", nil)
	env.DeleteGlobalRef(r.ref)
	return err
}

func jstring(env *jnigi.Env, s string) (*jnigi.ObjectRef, error) {
	charset, err := env.NewObject("java/lang/String", []byte("UTF-8"))
	if err != nil {
		return nil, err
	}
	defer env.DeleteLocalRef(charset)
	return env.NewObject("java/lang/String", []byte(s), charset)
}

func goString(env *jnigi.Env, s *jnigi.ObjectRef) (string, error) {
	charset, err := env.NewObject("java/lang/String", []byte("UTF-8"))
	if err != nil {
		return "", err
	}
	defer env.DeleteLocalRef(charset)
	var b []byte
	if err := s.CallMethod(env, "getBytes", &b, charset); err != nil {
		return "", err
	}
	return string(b), nil
}

// stringResult calls a method returning java.lang.String.
func stringResult(env *jnigi.Env, obj *jnigi.ObjectRef, method string, args ...any) (string, error) {
	s := jnigi.NewObjectRef("java/lang/String")
	if err := obj.CallMethod(env, method, s, args...); err != nil {
		return "", err
	}
	if s.IsNil() {
		return "", nil
	}
	defer env.DeleteLocalRef(s)
	return goString(env, s)
}

// sqlExceptionHandler turns java.sql.SQLException into *jdbcerr.SQLException
// and any other Throwable into its toString form.
type sqlExceptionHandler struct{}

func (sqlExceptionHandler) CatchException(env *jnigi.Env, exception *jnigi.ObjectRef) error {
	isSQL, err := exception.IsInstanceOf(env, "java/sql/SQLException")
	if err != nil || !isSQL {
		return jnigi.ThrowableToStringExceptionHandler.CatchException(env, exception)
	}
	out := &jdbcerr.SQLException{}
	class := jnigi.NewObjectRef("java/lang/Class")
	if err := exception.CallMethod(env, "getClass", class); err == nil {
		out.ClassName, _ = stringResult(env, class, "getName")
		env.DeleteLocalRef(class)
	}
	out.Message, _ = stringResult(env, exception, "getMessage")
	out.SQLState, _ = stringResult(env, exception, "getSQLState")
	var code int
	if err := exception.CallMethod(env, "getErrorCode", &code); err == nil {
		out.VendorCode = int32(code)
	}
	return out
}
