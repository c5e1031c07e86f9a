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
	"context"
	"database/sql/driver"
	"errors"
	"strings"

	"github.com/adbc-drivers/driverbase-go/driverbase"
	"github.com/adbc-drivers/jdbc/jdbcerr"
	"github.com/apache/arrow-adbc/go/adbc"
)

// ErrorInspector maps bridge failures and JVM SQLExceptions onto ADBC status
// codes, carrying the SQLState and vendor code through.
type ErrorInspector struct{}

var _ driverbase.ErrorInspector = ErrorInspector{}

func (ErrorInspector) InspectError(err error, defaultStatus adbc.Status) driverbase.ErrorInfo {
	info := driverbase.ErrorInfo{Status: defaultStatus}

	var jerr *jdbcerr.Error
	if errors.As(err, &jerr) {
		switch jerr.Kind {
		case jdbcerr.KindConfiguration:
			info.Status = adbc.StatusInvalidArgument
		case jdbcerr.KindDriverLoad:
			info.Status = adbc.StatusNotFound
		case jdbcerr.KindConnection:
			info.Status = adbc.StatusIO
		}
		info.SqlState = jerr.SQLState
		info.VendorCode = jerr.VendorCode
	}

	var sqlErr *jdbcerr.SQLException
	if info.SqlState == "" && errors.As(err, &sqlErr) {
		info.SqlState = sqlErr.SQLState
		info.VendorCode = sqlErr.VendorCode
	}
	if status, ok := statusForSQLState(info.SqlState); ok {
		info.Status = status
	}

	switch {
	case errors.Is(err, context.Canceled):
		info.Status = adbc.StatusCancelled
	case errors.Is(err, context.DeadlineExceeded):
		info.Status = adbc.StatusTimeout
	case errors.Is(err, driver.ErrBadConn):
		info.Status = adbc.StatusIO
	}
	return info
}

// statusForSQLState maps the SQLSTATE classes defined by SQL:2011 (and the
// common vendor extensions) to an ADBC status.
func statusForSQLState(state string) (adbc.Status, bool) {
	if len(state) < 2 {
		return 0, false
	}
	switch {
	case state == "42S02" || state == "42P01" || state == "42S22":
		return adbc.StatusNotFound, true
	case state == "42S01" || state == "42P07":
		return adbc.StatusAlreadyExists, true
	}
	switch strings.ToUpper(state[:2]) {
	case "08":
		return adbc.StatusIO, true
	case "0A":
		return adbc.StatusNotImplemented, true
	case "22":
		return adbc.StatusInvalidData, true
	case "23":
		return adbc.StatusIntegrity, true
	case "28":
		return adbc.StatusUnauthenticated, true
	case "42":
		return adbc.StatusInvalidArgument, true
	case "HY":
		if state == "HYT00" || state == "HYT01" {
			return adbc.StatusTimeout, true
		}
	}
	return 0, false
}
