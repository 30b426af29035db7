package dbclient

import (
	"net"
	"net/url"
	"strconv"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"datadesk/internal/domain"
)

// ── DSN builders ───────────────────────────────────────────
// The password comes from the SecretStore and never touches TableSettings.

func hostPort(cfg domain.TableSettings, defaultPort int) string {
	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}
	return net.JoinHostPort(cfg.Host, strconv.Itoa(port))
}

// mysqlDSN uses clientFoundRows so an UPDATE that changes nothing still
// counts its matched row.
func mysqlDSN(cfg domain.TableSettings, password string) string {
	mc := mysql.NewConfig()
	mc.User = cfg.Username
	mc.Passwd = password
	mc.Net = "tcp"
	mc.Addr = hostPort(cfg, 3306)
	mc.DBName = cfg.Database
	mc.ParseTime = true
	mc.ClientFoundRows = true
	mc.Params = map[string]string{"charset": "utf8mb4"}
	if cfg.SSLMode == "require" {
		mc.TLSConfig = "true"
	}
	return mc.FormatDSN()
}

// postgresDSN builds a postgres:// URL so credentials are escaped.
func postgresDSN(cfg domain.TableSettings, password string) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	u := url.URL{
		Scheme:   "postgres",
		Host:     hostPort(cfg, 5432),
		Path:     "/" + cfg.Database,
		RawQuery: url.Values{"sslmode": {sslMode}}.Encode(),
	}
	if cfg.Username != "" {
		u.User = url.UserPassword(cfg.Username, password)
	}
	return u.String()
}

// sqliteDSN opens the file at cfg.Host in WAL mode with a busy timeout.
func sqliteDSN(cfg domain.TableSettings) string {
	return cfg.Host + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}
