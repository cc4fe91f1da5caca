package store

import (
	"database/sql"
	"fmt"
	"regexp"
	"sync"

	"github.com/mattn/go-sqlite3"
)

// driverName is the database/sql driver used by Open. It is the stock
// go-sqlite3 driver with a regexp() function on every connection, which
// SQLite needs for the REGEXP operator.
const driverName = "sqlite3_dataservice"

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("regexp", matchRegexp, true)
		},
	})
}

// patterns caches compiled expressions across connections and queries.
var patterns sync.Map // map[string]*regexp.Regexp

// matchRegexp implements regexp(pattern, value). SQLite rewrites
// "X REGEXP Y" into regexp(Y, X). A NULL value never matches; go-sqlite3
// delivers NULL as a nil []byte.
func matchRegexp(pattern string, value any) (bool, error) {
	var s string
	switch v := value.(type) {
	case nil:
		return false, nil
	case string:
		s = v
	case []byte:
		if v == nil {
			return false, nil
		}
		s = string(v)
	default:
		s = fmt.Sprint(v)
	}

	re, err := compilePattern(pattern)
	if err != nil {
		return false, err
	}
	return re.MatchString(s), nil
}

func compilePattern(pattern string) (*regexp.Regexp, error) {
	if cached, ok := patterns.Load(pattern); ok {
		return cached.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regular expression %q: %w", pattern, err)
	}
	patterns.Store(pattern, re)
	return re, nil
}
