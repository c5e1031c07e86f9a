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

package testutil

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/adbc-drivers/jdbc/jdbcerr"
	"github.com/adbc-drivers/jdbc/jvm"
)

// StartCall records one StartJVM invocation.
type StartCall struct {
	JVMPath string
	Args    []string
	Flags   jvm.StartFlags
}

// ConnectCall records one Connect invocation.
type ConnectCall struct {
	URL   string
	Props map[string]string
	Args  []string
}

// FakeBridge is an in-memory jvm.Bridge. Configure the exported fields before
// handing it to a session; read what happened through the accessor methods.
type FakeBridge struct {
	VersionString string
	JVMPath       string
	JVMPathErr    error
	StartErr      error
	// StartGate, when set, blocks StartJVM until it is closed.
	StartGate chan struct{}
	Fields    map[string]int32
	FieldsErr error
	AttachErr error
	// Classes lists the driver classes on the fake classpath.
	Classes    []string
	ConnectErr error
	// Password, when set, is required on every Connect.
	Password string
	DB       *FakeDB

	mu              sync.Mutex
	started         bool
	starts          []StartCall
	attaches        int
	classLoaderSets int
	fieldLoads      int
	loaded          []string
	connects        []ConnectCall
	conns           []*FakeConn
}

var _ jvm.Bridge = (*FakeBridge)(nil)

// NewFakeBridge returns a bridge reporting version 1.5.0 with the standard
// java.sql.Types constants and an empty database.
func NewFakeBridge(classes ...string) *FakeBridge {
	return &FakeBridge{
		VersionString: "1.5.0",
		JVMPath:       "/usr/lib/jvm/default/lib/server/libjvm.so",
		Fields:        JDBCTypes(),
		Classes:       classes,
		DB:            NewFakeDB(),
	}
}

func (b *FakeBridge) Version() string {
	return b.VersionString
}

func (b *FakeBridge) DefaultJVMPath() (string, error) {
	if b.JVMPathErr != nil {
		return "", b.JVMPathErr
	}
	return b.JVMPath, nil
}

func (b *FakeBridge) StartJVM(jvmPath string, args []string, flags jvm.StartFlags) error {
	if b.StartGate != nil {
		<-b.StartGate
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.starts = append(b.starts, StartCall{JVMPath: jvmPath, Args: slices.Clone(args), Flags: flags})
	if b.started {
		return errors.New("JVM cannot be restarted")
	}
	if b.StartErr != nil {
		return b.StartErr
	}
	b.started = true
	return nil
}

func (b *FakeBridge) AttachCurrentThread() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.started {
		return errors.New("JVM is not running")
	}
	if b.AttachErr != nil {
		return b.AttachErr
	}
	b.attaches++
	return nil
}

func (b *FakeBridge) UseSystemClassLoader() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.classLoaderSets++
	return nil
}

func (b *FakeBridge) StaticFields(className string) (map[string]int32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fieldLoads++
	if b.FieldsErr != nil {
		return nil, b.FieldsErr
	}
	if className != jvm.SQLTypesClass {
		return nil, fmt.Errorf("java.lang.ClassNotFoundException: %s", className)
	}
	return maps.Clone(b.Fields), nil
}

func (b *FakeBridge) LoadClass(className string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !slices.Contains(b.Classes, className) {
		return fmt.Errorf("java.lang.ClassNotFoundException: %s", className)
	}
	b.loaded = append(b.loaded, className)
	return nil
}

func (b *FakeBridge) Connect(url string, props map[string]string, args []string) (jvm.Conn, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connects = append(b.connects, ConnectCall{URL: url, Props: maps.Clone(props), Args: slices.Clone(args)})
	if b.ConnectErr != nil {
		return nil, b.ConnectErr
	}
	if len(b.loaded) == 0 {
		return nil, &jdbcerr.SQLException{
			ClassName: "java.sql.SQLException",
			Message:   "No suitable driver found for " + url,
			SQLState:  "08001",
		}
	}
	if b.Password != "" {
		password := props["password"]
		if props == nil && len(args) == 2 {
			password = args[1]
		}
		if password != b.Password {
			return nil, &jdbcerr.SQLException{
				ClassName:  "java.sql.SQLInvalidAuthorizationSpecException",
				Message:    "Access denied",
				SQLState:   "28000",
				VendorCode: 1045,
			}
		}
	}
	conn := &FakeConn{db: b.DB, autoCommit: true, isolation: jvm.TransactionReadCommitted}
	b.conns = append(b.conns, conn)
	return conn, nil
}

// Starts returns every StartJVM call, including failed ones.
func (b *FakeBridge) Starts() []StartCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.starts)
}

func (b *FakeBridge) Attaches() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attaches
}

func (b *FakeBridge) ClassLoaderSets() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.classLoaderSets
}

func (b *FakeBridge) FieldLoads() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fieldLoads
}

// LoadedClasses returns the classes passed to successful LoadClass calls.
func (b *FakeBridge) LoadedClasses() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.loaded)
}

func (b *FakeBridge) Connects() []ConnectCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.connects)
}

// Conns returns the connections opened so far.
func (b *FakeBridge) Conns() []*FakeConn {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.conns)
}

// FakeResult is a canned query result.
type FakeResult struct {
	Columns []jvm.Column
	Rows    [][]any
}

// Exec records one executed statement and its bound parameters.
type Exec struct {
	Query  string
	Params []any
}

// FakeDB answers statements by exact query text.
type FakeDB struct {
	mu      sync.Mutex
	results map[string]FakeResult
	updates map[string]int64
	errs    map[string]error
	execs   []Exec
}

func NewFakeDB() *FakeDB {
	return &FakeDB{
		results: make(map[string]FakeResult),
		updates: make(map[string]int64),
		errs:    make(map[string]error),
	}
}

// SetResult makes query return res from ExecuteQuery.
func (db *FakeDB) SetResult(query string, res FakeResult) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.results[query] = res
}

// SetUpdate makes query report n affected rows from ExecuteUpdate.
func (db *FakeDB) SetUpdate(query string, n int64) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.updates[query] = n
}

// SetError makes executing query fail with err.
func (db *FakeDB) SetError(query string, err error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.errs[query] = err
}

// Execs returns every executed statement in order.
func (db *FakeDB) Execs() []Exec {
	db.mu.Lock()
	defer db.mu.Unlock()
	return slices.Clone(db.execs)
}

func (db *FakeDB) record(query string, params []any) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.execs = append(db.execs, Exec{Query: query, Params: params})
	return db.errs[query]
}

// FakeConn is an in-memory java.sql.Connection.
type FakeConn struct {
	db *FakeDB

	mu            sync.Mutex
	autoCommitErr error
	autoCommit    bool
	readOnly      bool
	isolation     int
	commits       int
	rollbacks     int
	closed        bool
}

var _ jvm.Conn = (*FakeConn)(nil)

func (c *FakeConn) Prepare(query string) (jvm.Statement, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, closedError("Connection")
	}
	return &FakeStatement{db: c.db, query: query, params: make(map[int]any)}, nil
}

func (c *FakeConn) SetAutoCommit(enabled bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !enabled && c.autoCommitErr != nil {
		return c.autoCommitErr
	}
	c.autoCommit = enabled
	return nil
}

// FailDisableAutoCommit makes every later SetAutoCommit(false) return err.
func (c *FakeConn) FailDisableAutoCommit(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.autoCommitErr = err
}

func (c *FakeConn) SetReadOnly(readOnly bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readOnly = readOnly
	return nil
}

func (c *FakeConn) SetTransactionIsolation(level int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch level {
	case jvm.TransactionReadUncommitted, jvm.TransactionReadCommitted,
		jvm.TransactionRepeatableRead, jvm.TransactionSerializable:
		c.isolation = level
		return nil
	}
	return &jdbcerr.SQLException{ClassName: "java.sql.SQLException", Message: "unsupported isolation level " + strconv.Itoa(level)}
}

func (c *FakeConn) TransactionIsolation() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isolation, nil
}

func (c *FakeConn) Commit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.autoCommit {
		return &jdbcerr.SQLException{ClassName: "java.sql.SQLException", Message: "Cannot commit when autoCommit is enabled."}
	}
	c.commits++
	return nil
}

func (c *FakeConn) Rollback() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.autoCommit {
		return &jdbcerr.SQLException{ClassName: "java.sql.SQLException", Message: "Cannot rollback when autoCommit is enabled."}
	}
	c.rollbacks++
	return nil
}

func (c *FakeConn) IsValid(time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed, nil
}

func (c *FakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *FakeConn) AutoCommit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.autoCommit
}

func (c *FakeConn) ReadOnly() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readOnly
}

func (c *FakeConn) Isolation() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isolation
}

func (c *FakeConn) Commits() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.commits
}

func (c *FakeConn) Rollbacks() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rollbacks
}

func (c *FakeConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// FakeStatement is an in-memory java.sql.PreparedStatement. Its parameter
// count is the number of '?' in the query.
type FakeStatement struct {
	db     *FakeDB
	query  string
	params map[int]any
	closed bool
}

var _ jvm.Statement = (*FakeStatement)(nil)

func (s *FakeStatement) NumParams() int {
	return strings.Count(s.query, "?")
}

func (s *FakeStatement) SetParam(index int, value any) error {
	if index < 1 || index > s.NumParams() {
		return &jdbcerr.SQLException{
			ClassName: "java.sql.SQLException",
			Message:   fmt.Sprintf("parameter index out of range: %d", index),
			SQLState:  "07009",
		}
	}
	s.params[index] = value
	return nil
}

func (s *FakeStatement) bound() []any {
	out := make([]any, s.NumParams())
	for i := range out {
		out[i] = s.params[i+1]
	}
	return out
}

func (s *FakeStatement) ExecuteUpdate() (int64, error) {
	if s.closed {
		return 0, closedError("PreparedStatement")
	}
	if err := s.db.record(s.query, s.bound()); err != nil {
		return 0, err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return s.db.updates[s.query], nil
}

func (s *FakeStatement) ExecuteQuery() (jvm.ResultSet, error) {
	if s.closed {
		return nil, closedError("PreparedStatement")
	}
	if err := s.db.record(s.query, s.bound()); err != nil {
		return nil, err
	}
	s.db.mu.Lock()
	res, ok := s.db.results[s.query]
	s.db.mu.Unlock()
	if !ok {
		return nil, &jdbcerr.SQLException{
			ClassName: "java.sql.SQLException",
			Message:   "statement did not return a result set",
		}
	}
	return &FakeResultSet{result: res, row: -1}, nil
}

func (s *FakeStatement) Close() error {
	s.closed = true
	return nil
}

// FakeResultSet iterates a FakeResult.
type FakeResultSet struct {
	result FakeResult
	row    int
	closed bool
}

var _ jvm.ResultSet = (*FakeResultSet)(nil)

func (r *FakeResultSet) Columns() ([]jvm.Column, error) {
	return slices.Clone(r.result.Columns), nil
}

func (r *FakeResultSet) Next() (bool, error) {
	if r.closed {
		return false, closedError("ResultSet")
	}
	if r.row+1 >= len(r.result.Rows) {
		r.row = len(r.result.Rows)
		return false, nil
	}
	r.row++
	return true, nil
}

func (r *FakeResultSet) Get(index int, kind jvm.ValueKind) (any, error) {
	if r.row < 0 || r.row >= len(r.result.Rows) {
		return nil, &jdbcerr.SQLException{ClassName: "java.sql.SQLException", Message: "no current row"}
	}
	row := r.result.Rows[r.row]
	if index < 1 || index > len(row) {
		return nil, &jdbcerr.SQLException{
			ClassName: "java.sql.SQLException",
			Message:   fmt.Sprintf("column index out of range: %d", index),
		}
	}
	return convert(row[index-1], kind)
}

func (r *FakeResultSet) Close() error {
	r.closed = true
	return nil
}

// convert mimics the coercions the typed ResultSet getters perform.
func convert(v any, kind jvm.ValueKind) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch kind {
	case jvm.KindString:
		switch v := v.(type) {
		case string:
			return v, nil
		case []byte:
			return string(v), nil
		case time.Time:
			return v.Format("2006-01-02 15:04:05.999999999"), nil
		}
		return fmt.Sprint(v), nil
	case jvm.KindInt64:
		switch v := v.(type) {
		case int:
			return int64(v), nil
		case int32:
			return int64(v), nil
		case int64:
			return v, nil
		case bool:
			if v {
				return int64(1), nil
			}
			return int64(0), nil
		case string:
			return strconv.ParseInt(v, 10, 64)
		}
	case jvm.KindFloat64:
		switch v := v.(type) {
		case float32:
			return float64(v), nil
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		case int64:
			return float64(v), nil
		case string:
			return strconv.ParseFloat(v, 64)
		}
	case jvm.KindBool:
		switch v := v.(type) {
		case bool:
			return v, nil
		case int:
			return v != 0, nil
		case int64:
			return v != 0, nil
		case string:
			return strconv.ParseBool(v)
		}
	case jvm.KindBytes:
		switch v := v.(type) {
		case []byte:
			return slices.Clone(v), nil
		case string:
			return []byte(v), nil
		}
	}
	return nil, &jdbcerr.SQLException{
		ClassName: "java.sql.SQLException",
		Message:   fmt.Sprintf("cannot convert %T to kind %d", v, kind),
		SQLState:  "22018",
	}
}

func closedError(what string) error {
	return &jdbcerr.SQLException{
		ClassName: "java.sql.SQLException",
		Message:   what + " is closed",
		SQLState:  "08003",
	}
}
