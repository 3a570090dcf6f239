package config

import (
	"fmt"
	"strings"
	"time"

	mysqlDriver "github.com/go-sql-driver/mysql"
)

// DSNValue returns the explicit DSN when set, otherwise one built from the
// individual fields.
func (c MySQLConfig) DSNValue() string {
	if v := strings.TrimSpace(c.DSN); v != "" {
		return v
	}

	dc := mysqlDriver.NewConfig()
	dc.User = c.User
	dc.Passwd = c.Password
	dc.Net = "tcp"
	dc.Addr = fmt.Sprintf("%s:%d", c.Host, c.Port)
	dc.DBName = c.Name
	dc.ParseTime = true
	dc.Loc = time.UTC
	dc.Params = map[string]string{}
	charset := c.Charset
	if charset == "" {
		charset = defaultDBCharset
	}
	dc.Params["charset"] = charset
	for k, v := range c.Params {
		if k != "" && v != "" {
			dc.Params[k] = v
		}
	}
	return dc.FormatDSN()
}
