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

package jdbc_test

import (
	"bytes"
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/adbc-drivers/jdbc/jdbc"
	"github.com/adbc-drivers/jdbc/jdbcerr"
	"github.com/adbc-drivers/jdbc/jvm"
	"github.com/adbc-drivers/jdbc/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const (
	h2URL       = "jdbc+h2://localhost/mem:test?_driver=h2:tcp&_class=org.h2.Driver&_jars=/opt/h2.jar"
	selectQuery = "SELECT id, name, created, price, active, payload FROM items WHERE id > ?"
	updateQuery = "UPDATE items SET name = ? WHERE id = ?"
)

var itemColumns = []jvm.Column{
	{Name: "id", TypeCode: -5, TypeName: "bigint", Nullable: jvm.ColumnNoNulls},
	{Name: "name", TypeCode: 12, TypeName: "varchar", Precision: 64, Nullable: jvm.ColumnNullable},
	{Name: "created", TypeCode: 93, TypeName: "timestamp", Nullable: jvm.ColumnNoNulls},
	{Name: "price", TypeCode: 3, TypeName: "decimal", Precision: 10, Scale: 2, Nullable: jvm.ColumnNullable},
	{Name: "active", TypeCode: 16, TypeName: "boolean", Nullable: jvm.ColumnNullableUnknown},
	{Name: "payload", TypeCode: -3, TypeName: "varbinary", Precision: 16, Nullable: jvm.ColumnNullable},
}

type SQLTest struct {
	suite.Suite
	bridge *testutil.FakeBridge
	db     *sql.DB
	logs   bytes.Buffer
}

func TestSQL(t *testing.T) {
	suite.Run(t, &SQLTest{})
}

func (s *SQLTest) SetupTest() {
	s.bridge = testutil.NewFakeBridge("org.h2.Driver")
	s.bridge.DB.SetResult(selectQuery, testutil.FakeResult{
		Columns: itemColumns,
		Rows: [][]any{
			{int64(1), "alice", "2024-01-02 03:04:05.5", "12.50", true, []byte{1, 2}},
			{int64(2), nil, "2024-02-03 00:00:00.0", nil, false, nil},
		},
	})
	s.bridge.DB.SetUpdate(updateQuery, 1)

	s.logs.Reset()
	session := jvm.NewSession(s.bridge, jvm.WithDefaultClasspath())
	connector, err := jdbc.NewConnector(
		jdbc.WithURL(h2URL),
		jdbc.WithSession(session),
		jdbc.WithLogger(testutil.CaptureLogger(&s.logs)))
	s.Require().NoError(err)
	s.db = sql.OpenDB(connector)
	s.db.SetMaxOpenConns(1)
}

func (s *SQLTest) TearDownTest() {
	s.NoError(s.db.Close())
}

func (s *SQLTest) TestQuery() {
	rows, err := s.db.QueryContext(context.Background(), selectQuery, 0)
	s.Require().NoError(err)
	defer func() { s.NoError(rows.Close()) }()

	cols, err := rows.Columns()
	s.Require().NoError(err)
	s.Equal([]string{"id", "name", "created", "price", "active", "payload"}, cols)

	type item struct {
		id      int64
		name    sql.NullString
		created time.Time
		price   sql.NullString
		active  bool
		payload []byte
	}
	var got []item
	for rows.Next() {
		var it item
		s.Require().NoError(rows.Scan(&it.id, &it.name, &it.created, &it.price, &it.active, &it.payload))
		got = append(got, it)
	}
	s.Require().NoError(rows.Err())
	s.Require().Len(got, 2)

	s.Equal(int64(1), got[0].id)
	s.Equal(sql.NullString{String: "alice", Valid: true}, got[0].name)
	s.Equal(time.Date(2024, 1, 2, 3, 4, 5, 500_000_000, time.UTC), got[0].created)
	s.Equal("12.50", got[0].price.String)
	s.True(got[0].active)
	s.Equal([]byte{1, 2}, got[0].payload)

	s.False(got[1].name.Valid)
	s.False(got[1].price.Valid)
	s.Nil(got[1].payload)

	execs := s.bridge.DB.Execs()
	s.Require().Len(execs, 1)
	s.Equal([]any{int64(0)}, execs[0].Params)
}

func (s *SQLTest) TestColumnTypes() {
	rows, err := s.db.Query(selectQuery, 0)
	s.Require().NoError(err)
	defer func() { s.NoError(rows.Close()) }()

	types, err := rows.ColumnTypes()
	s.Require().NoError(err)
	s.Require().Len(types, 6)

	s.Equal("BIGINT", types[0].DatabaseTypeName())
	nullable, ok := types[0].Nullable()
	s.True(ok)
	s.False(nullable)
	s.Equal("int64", types[0].ScanType().String())

	s.Equal("VARCHAR", types[1].DatabaseTypeName())
	length, ok := types[1].Length()
	s.True(ok)
	s.EqualValues(64, length)
	s.Equal("sql.NullString", types[1].ScanType().String())

	precision, scale, ok := types[3].DecimalSize()
	s.True(ok)
	s.EqualValues(10, precision)
	s.EqualValues(2, scale)

	_, ok = types[4].Nullable()
	s.False(ok)

	_, _, ok = types[0].DecimalSize()
	s.False(ok)
}

func (s *SQLTest) TestExec() {
	res, err := s.db.Exec(updateQuery, "bob", 1)
	s.Require().NoError(err)
	n, err := res.RowsAffected()
	s.Require().NoError(err)
	s.EqualValues(1, n)
	_, err = res.LastInsertId()
	s.Error(err)

	execs := s.bridge.DB.Execs()
	s.Require().Len(execs, 1)
	s.Equal(updateQuery, execs[0].Query)
	s.Equal([]any{"bob", int64(1)}, execs[0].Params)
}

func (s *SQLTest) TestPrepared() {
	stmt, err := s.db.Prepare(updateQuery)
	s.Require().NoError(err)
	defer func() { s.NoError(stmt.Close()) }()

	for i := range 3 {
		_, err := stmt.Exec("name", i)
		s.Require().NoError(err)
	}
	s.Len(s.bridge.DB.Execs(), 3)

	// Parameter count comes from the driver.
	_, err = stmt.Exec("only one")
	s.Error(err)
}

func (s *SQLTest) TestNamedParameters() {
	_, err := s.db.Exec(updateQuery, sql.Named("name", "bob"), sql.Named("id", 1))
	s.ErrorContains(err, "named parameter")
}

func (s *SQLTest) TestCommit() {
	ctx := context.Background()
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable, ReadOnly: true})
	s.Require().NoError(err)

	conn := s.bridge.Conns()[0]
	s.False(conn.AutoCommit())
	s.True(conn.ReadOnly())
	s.Equal(jvm.TransactionSerializable, conn.Isolation())

	_, err = tx.ExecContext(ctx, updateQuery, "bob", 1)
	s.Require().NoError(err)
	s.Require().NoError(tx.Commit())

	s.Equal(1, conn.Commits())
	s.True(conn.AutoCommit())
	s.False(conn.ReadOnly())
	s.Equal(jvm.TransactionReadCommitted, conn.Isolation())
}

func (s *SQLTest) TestRollback() {
	tx, err := s.db.Begin()
	s.Require().NoError(err)
	_, err = tx.Exec(updateQuery, "bob", 1)
	s.Require().NoError(err)
	s.Require().NoError(tx.Rollback())

	conn := s.bridge.Conns()[0]
	s.Equal(1, conn.Rollbacks())
	s.Zero(conn.Commits())
	s.True(conn.AutoCommit())
}

func (s *SQLTest) TestRollbackRestoresIsolation() {
	ctx := context.Background()
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	s.Require().NoError(err)
	conn := s.bridge.Conns()[0]
	s.Equal(jvm.TransactionRepeatableRead, conn.Isolation())
	s.Require().NoError(tx.Rollback())
	s.Equal(jvm.TransactionReadCommitted, conn.Isolation())

	// The pooled connection runs later statements at its original level.
	_, err = s.db.ExecContext(ctx, updateQuery, "bob", 1)
	s.Require().NoError(err)
	s.Len(s.bridge.Conns(), 1)
	s.Equal(jvm.TransactionReadCommitted, conn.Isolation())
}

func (s *SQLTest) TestFailedBeginRestoresState() {
	ctx := context.Background()
	s.Require().NoError(s.db.PingContext(ctx))
	conn := s.bridge.Conns()[0]
	conn.FailDisableAutoCommit(&jdbcerr.SQLException{Message: "auto-commit is locked"})

	_, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable, ReadOnly: true})
	s.ErrorContains(err, "auto-commit is locked")
	s.False(conn.ReadOnly())
	s.True(conn.AutoCommit())
	s.Equal(jvm.TransactionReadCommitted, conn.Isolation())
}

func (s *SQLTest) TestUnsupportedIsolation() {
	_, err := s.db.BeginTx(context.Background(), &sql.TxOptions{Isolation: sql.LevelSnapshot})
	s.ErrorContains(err, "not supported")
}

func (s *SQLTest) TestQueryError() {
	s.bridge.DB.SetError("SELECT broken", &jdbcerr.SQLException{Message: "syntax error", SQLState: "42000"})
	_, err := s.db.Query("SELECT broken")
	s.ErrorContains(err, "syntax error")
}

func (s *SQLTest) TestPingAndClose() {
	s.Require().NoError(s.db.Ping())
	s.Require().Len(s.bridge.Conns(), 1)
	s.Require().NoError(s.db.Close())
	s.True(s.bridge.Conns()[0].Closed())
}

func TestNewConnectorErrors(t *testing.T) {
	for name, opts := range map[string][]jdbc.ConnOption{
		"nothing":        nil,
		"no driver":      {jdbc.WithURL("jdbc://db?_class=org.h2.Driver")},
		"no class":       {jdbc.WithURL("jdbc://db?_driver=h2")},
		"props and args": {jdbc.WithURL("jdbc://db?_driver=h2&_class=C&_dargs=u&_dargs=p"), jdbc.WithProperties(map[string]string{"user": "u"})},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := jdbc.NewConnector(opts...)
			assert.ErrorIs(t, err, jdbcerr.ErrConfiguration)
		})
	}
}

func TestConnectorSpec(t *testing.T) {
	c, err := jdbc.NewConnector(
		jdbc.WithURL("jdbc://alice@db/app?_driver=postgresql&_class=org.postgresql.Driver"),
		jdbc.WithProperties(map[string]string{"password": "secret", "ssl": "true"}))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"user": "alice", "password": "secret", "ssl": "true"}, c.Spec().Properties)
	assert.Equal(t, "jdbc:postgresql://db/app", c.Spec().URL)
}
