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

package jdbcurl

import (
	"net/url"
	"testing"

	"github.com/adbc-drivers/jdbc/jdbcerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateOracle(t *testing.T) {
	spec, err := Translate("jdbc+oracle://db.example.com?_driver=oracle:thin&_class=oracle.jdbc.OracleDriver&user=alice&port=1521")
	require.NoError(t, err)
	assert.Equal(t, "jdbc:oracle:thin://db.example.com?user=alice&port=1521", spec.URL)
	assert.Equal(t, "oracle.jdbc.OracleDriver", spec.DriverClass)
	assert.Empty(t, spec.DriverArgs)
	assert.Nil(t, spec.Properties)
	assert.NoError(t, spec.Validate())
}

func TestTranslateMissingDriver(t *testing.T) {
	for _, raw := range []string{
		"jdbc://db.example.com",
		"jdbc://db.example.com?_class=org.h2.Driver&user=alice",
		"jdbc://db.example.com?_driver=&_class=org.h2.Driver",
	} {
		t.Run(raw, func(t *testing.T) {
			spec, err := Translate(raw)
			assert.Nil(t, spec)
			assert.ErrorIs(t, err, jdbcerr.ErrConfiguration)
			assert.ErrorContains(t, err, "_driver")
		})
	}
}

func TestTranslateMalformed(t *testing.T) {
	for _, raw := range []string{
		"db.example.com",
		"://db.example.com",
		"jdbc://db?_driver=h2&bad=%zz",
		"jdbc://db?_driver=h2&_raw_host=maybe",
	} {
		t.Run(raw, func(t *testing.T) {
			_, err := Translate(raw)
			assert.ErrorIs(t, err, jdbcerr.ErrConfiguration)
		})
	}
}

func TestTranslateJarsAndLibs(t *testing.T) {
	spec, err := Translate("jdbc://h?_driver=h2&_jars=/a/x.jar,/b/y.jar&_libs=%2Fopt%2Fnative&_jars=/c/z.jar")
	require.NoError(t, err)
	assert.Equal(t, []string{"/a/x.jar", "/b/y.jar", "/c/z.jar"}, spec.Jars)
	assert.Equal(t, []string{"/opt/native"}, spec.Libs)

	// Double-encoded commas are decoded before splitting.
	spec, err = Translate("jdbc://h?_driver=h2&_jars=/a/x.jar%252C/b/y.jar")
	require.NoError(t, err)
	assert.Equal(t, []string{"/a/x.jar", "/b/y.jar"}, spec.Jars)
}

func TestTranslateControlKeys(t *testing.T) {
	spec, err := Translate("jdbc://h:9092/mem?_driver=h2:tcp&_class=org.h2.Driver" +
		"&_dargs=sa&_dargs=secret&_jvmpath=/opt/jdk/lib/server/libjvm.so" +
		"&_jvmargs=-Xmx1g&_jvmargs=-Duser.timezone%3DUTC")
	require.NoError(t, err)
	assert.Equal(t, &ConnectionSpec{
		DriverClass: "org.h2.Driver",
		URL:         "jdbc:h2:tcp://h:9092/mem",
		DriverArgs:  []string{"sa", "secret"},
		JVMPath:     "/opt/jdk/lib/server/libjvm.so",
		JVMArgs:     []string{"-Xmx1g", "-Duser.timezone=UTC"},
	}, spec)
	assert.NoError(t, spec.Validate())
}

func TestTranslateFormatKeys(t *testing.T) {
	spec, err := Translate("jdbc+sqlserver://db:1433?_driver=sqlserver&_start=%3B&_sep=%3B&_end=%3B" +
		"&databaseName=sales&encrypt=true")
	require.NoError(t, err)
	assert.Equal(t, "jdbc:sqlserver://db:1433;databaseName=sales;encrypt=true;", spec.URL)

	spec, err = Translate("jdbc://db?_driver=x&_assoc=%3A&a=1&b=2")
	require.NoError(t, err)
	assert.Equal(t, "jdbc:x://db?a:1&b:2", spec.URL)

	// _end is appended even when nothing is forwarded.
	spec, err = Translate("jdbc://db?_driver=x&_end=%3B")
	require.NoError(t, err)
	assert.Equal(t, "jdbc:x://db;", spec.URL)
}

func TestTranslateRawHost(t *testing.T) {
	raw := `jdbc+sqlserver://db\prod:1433;instance=a?_driver=sqlserver&_raw_host=true&user=bob`
	spec, err := Translate(raw)
	require.NoError(t, err)
	assert.Equal(t, `jdbc:sqlserver://db\prod:1433;instance=a?user=bob`, spec.URL)

	spec, err = Translate("jdbc+x://alice@h1,h2:5000?_driver=x&_raw_host=1")
	require.NoError(t, err)
	assert.Equal(t, "jdbc:x://alice@h1,h2:5000", spec.URL)
	assert.Nil(t, spec.Properties)

	_, err = Translate("jdbc://db?_driver=x&_raw_host=true&_start=")
	assert.ErrorIs(t, err, jdbcerr.ErrConfiguration)
}

func TestTranslateRawHostUserInfo(t *testing.T) {
	spec, err := Translate("jdbc+x://alice:s3cret@h1,h2:5000?_driver=x&_class=C&_raw_host=true")
	require.NoError(t, err)
	assert.Equal(t, "jdbc:x://alice:s3cret@h1,h2:5000", spec.URL)
	assert.Nil(t, spec.Properties)

	redacted := spec.Redacted()
	assert.Equal(t, "jdbc:x://alice:****@h1,h2:5000", redacted.URL)
	assert.NotContains(t, redacted.URL, "s3cret")
	assert.Equal(t, "jdbc:x://alice:s3cret@h1,h2:5000", spec.URL)
}

func TestRedactURL(t *testing.T) {
	for in, want := range map[string]string{
		"jdbc:x://db:5432/app":              "jdbc:x://db:5432/app",
		"jdbc:x://alice@db":                 "jdbc:x://alice@db",
		"jdbc:x://alice:pw@db/app?ssl=true": "jdbc:x://alice:****@db/app?ssl=true",
		"jdbc:x://alice:p/w@db?note=a@b":    "jdbc:x://alice:****@db?note=a@b",
		"jdbc:oracle:thin:@db:1521/ORCL":    "jdbc:oracle:thin:@db:1521/ORCL",
	} {
		assert.Equal(t, want, redactURL(in), in)
	}
}

func TestTranslateSlashInPassword(t *testing.T) {
	spec, err := Translate("jdbc://u:p/w@db/app?_driver=x&_class=C")
	require.NoError(t, err)
	assert.Equal(t, "jdbc:x://db/app", spec.URL)
	assert.Equal(t, map[string]string{"user": "u", "password": "p/w"}, spec.Properties)
	assert.NotContains(t, spec.Redacted().URL, "p/w")
}

func TestTranslateRoundTrip(t *testing.T) {
	for _, value := range []string{
		"plain",
		"with space",
		"a+b",
		"50%",
		"%41 literal",
		"x&y=z",
		"ünïcødé",
		"semi;colon?question#hash",
	} {
		t.Run(value, func(t *testing.T) {
			raw := "jdbc://db?_driver=x&v=" + url.QueryEscape(value)
			spec, err := Translate(raw)
			require.NoError(t, err)
			assert.Equal(t, "jdbc:x://db?v="+value, spec.URL)
		})
	}
}

func TestTranslateIsPure(t *testing.T) {
	raw := "jdbc://alice:s3cret@db/app?_driver=postgresql&_class=org.postgresql.Driver&_jars=/a.jar&sslmode=require&b=2"
	first, err := Translate(raw)
	require.NoError(t, err)
	for range 5 {
		again, err := Translate(raw)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestTranslateUserInfo(t *testing.T) {
	spec, err := Translate("jdbc://alice:p%40ss@db:5432/app?_driver=postgresql&_class=org.postgresql.Driver")
	require.NoError(t, err)
	assert.Equal(t, "jdbc:postgresql://db:5432/app", spec.URL)
	assert.Equal(t, map[string]string{"user": "alice", "password": "p@ss"}, spec.Properties)

	redacted := spec.Redacted()
	assert.Equal(t, "****", redacted.Properties["password"])
	assert.Equal(t, "p@ss", spec.Properties["password"])

	// Properties and positional arguments cannot both be used.
	spec, err = Translate("jdbc://alice@db?_driver=x&_class=C&_dargs=u&_dargs=p")
	require.NoError(t, err)
	assert.ErrorIs(t, spec.Validate(), jdbcerr.ErrConfiguration)
}

func TestValidate(t *testing.T) {
	ok := ConnectionSpec{DriverClass: "org.h2.Driver", URL: "jdbc:h2:mem:"}
	assert.NoError(t, ok.Validate())

	for name, spec := range map[string]ConnectionSpec{
		"no class":    {URL: "jdbc:h2:mem:"},
		"no url":      {DriverClass: "org.h2.Driver"},
		"one arg":     {DriverClass: "org.h2.Driver", URL: "jdbc:h2:mem:", DriverArgs: []string{"sa"}},
		"three args":  {DriverClass: "org.h2.Driver", URL: "jdbc:h2:mem:", DriverArgs: []string{"a", "b", "c"}},
		"both styles": {DriverClass: "org.h2.Driver", URL: "jdbc:h2:mem:", DriverArgs: []string{"a", "b"}, Properties: map[string]string{"user": "a"}},
	} {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, spec.Validate(), jdbcerr.ErrConfiguration)
		})
	}
}

func TestNormalize(t *testing.T) {
	for _, tc := range []struct {
		in   any
		want []string
	}{
		{nil, []string{}},
		{"", []string{}},
		{"/a.jar", []string{"/a.jar"}},
		{[]string(nil), []string{}},
		{[]string{"/a.jar", "/b.jar"}, []string{"/a.jar", "/b.jar"}},
		{[]any{"/a.jar"}, []string{"/a.jar"}},
	} {
		got, err := Normalize(tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}

	_, err := Normalize(42)
	assert.ErrorIs(t, err, jdbcerr.ErrConfiguration)
	_, err = Normalize([]any{"a", 1})
	assert.ErrorIs(t, err, jdbcerr.ErrConfiguration)
}

func TestUnquote(t *testing.T) {
	assert.Equal(t, "a b", unquote("a%20b"))
	assert.Equal(t, "a+b", unquote("a+b"))
	assert.Equal(t, "100%", unquote("100%"))
	assert.Equal(t, "%zz", unquote("%zz"))
	assert.Equal(t, "%2", unquote("%2"))
	assert.Equal(t, "é", unquote("%C3%A9"))
}

func TestParseOrder(t *testing.T) {
	u, err := Parse("jdbc://db?b=2&a=1&b=3&flag")
	require.NoError(t, err)
	assert.Equal(t, []Param{{"b", "2"}, {"a", "1"}, {"b", "3"}, {"flag", ""}}, u.Query)
	v, ok := u.Get("b")
	assert.True(t, ok)
	assert.Equal(t, "3", v)
}
