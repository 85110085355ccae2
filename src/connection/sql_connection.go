// Package connection contains the SQLConnection type and methods for manipulating and querying the connection
package connection

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	// go-mssqldb registers the mssql driver but isn't used in code
	_ "github.com/microsoft/go-mssqldb"
	"github.com/newrelic/infra-integrations-sdk/v3/log"

	"github.com/newrelic/nri-sqlguard/src/args"
	"github.com/newrelic/nri-sqlguard/src/retrymechanism"
)

// tlsConfigName is the name the custom CA configuration is registered under
const tlsConfigName = "nri-sqlguard"

var (
	ErrReadCertificate  = errors.New("unable to read certificate file")
	ErrParseCertificate = errors.New("no certificate found in certificate file")
)

// SQLConnection represents a wrapper around a database connection
type SQLConnection struct {
	Connection *sqlx.DB
	Host       string
	Driver     string
}

// NewConnection opens a connection from args and pings the server, retrying up
// to ConnectRetries times.
func NewConnection(al *args.ArgumentList) (*SQLConnection, error) {
	dataSourceName, err := CreateDataSourceName(al)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(driverName(al.Driver), dataSourceName)
	if err != nil {
		return nil, err
	}

	var retryMechanism retrymechanism.RetryMechanism = &retrymechanism.RetryMechanismImpl{
		MaxRetries: al.ConnectRetries,
		Delay:      time.Second,
	}
	if err := retryMechanism.Retry(db.Ping); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to reach %s: %w", al.Hostname, err)
	}

	return &SQLConnection{
		Connection: db,
		Host:       al.Hostname,
		Driver:     al.Driver,
	}, nil
}

// Close closes the SQL connection. If an error occurs
// it is logged as a warning.
func (sc SQLConnection) Close() {
	if err := sc.Connection.Close(); err != nil {
		log.Warn("Unable to close SQL Connection: %s", err.Error())
	}
}

// Query runs a query and loads results into v
func (sc SQLConnection) Query(v interface{}, query string) error {
	log.Debug("Running query: %s", query)
	return sc.Connection.Select(v, query)
}

// Queryx runs a query and returns a set of rows
func (sc SQLConnection) Queryx(query string) (*sqlx.Rows, error) {
	return sc.Connection.Queryx(query)
}

// driverName maps the configured driver to a registered database/sql driver.
// go-mssqldb only accepts ? placeholders under its mssql name.
func driverName(driver string) string {
	if driver == args.DriverSQLServer {
		return "mssql"
	}
	return driver
}

// CreateDataSourceName returns the data source name for the configured driver.
// All args should be validated before calling this.
func CreateDataSourceName(al *args.ArgumentList) (string, error) {
	if al.Driver == args.DriverSQLServer {
		return CreateConnectionURL(al), nil
	}
	return CreateDSN(al)
}

// CreateDSN builds a go-sql-driver/mysql DSN from args.
func CreateDSN(al *args.ArgumentList) (string, error) {
	cfg := mysql.NewConfig()
	cfg.User = al.Username
	cfg.Passwd = al.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(al.Hostname, al.Port)
	cfg.DBName = al.Database
	cfg.ParseTime = true

	if seconds, err := strconv.Atoi(al.Timeout); err == nil && seconds > 0 {
		cfg.Timeout = time.Duration(seconds) * time.Second
	}

	if al.ExtraConnectionURLArgs != "" {
		extraArgsMap, err := url.ParseQuery(al.ExtraConnectionURLArgs)
		if err == nil {
			if cfg.Params == nil {
				cfg.Params = make(map[string]string, len(extraArgsMap))
			}
			for k, v := range extraArgsMap {
				cfg.Params[k] = v[0]
			}
		} else {
			log.Warn("Could not successfully parse ExtraConnectionURLArgs: %s", err.Error())
		}
	}

	if al.EnableTLS {
		if al.TrustServerCertificate {
			cfg.TLSConfig = "skip-verify"
		} else {
			if err := registerCertificate(al.CertificateLocation); err != nil {
				return "", err
			}
			cfg.TLSConfig = tlsConfigName
		}
	}

	return cfg.FormatDSN(), nil
}

// registerCertificate makes the CA at path available to the mysql driver under
// tlsConfigName.
func registerCertificate(path string) error {
	pem, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrReadCertificate, err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return fmt.Errorf("%w: %s", ErrParseCertificate, path)
	}

	return mysql.RegisterTLSConfig(tlsConfigName, &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12})
}

// CreateConnectionURL tags in args and creates the sqlserver connection string.
// All args should be validated before calling this.
func CreateConnectionURL(al *args.ArgumentList) string {
	connectionURL := &url.URL{
		Scheme: "sqlserver",
		User:   url.UserPassword(al.Username, al.Password),
		Host:   fmt.Sprintf("%s:%s", al.Hostname, al.Port),
	}

	// Format query parameters
	query := url.Values{}
	if al.Database != "" {
		query.Add("database", al.Database)
	}
	query.Add("dial timeout", al.Timeout)
	query.Add("connection timeout", al.Timeout)

	if al.ExtraConnectionURLArgs != "" {
		extraArgsMap, err := url.ParseQuery(al.ExtraConnectionURLArgs)
		if err == nil {
			for k, v := range extraArgsMap {
				query.Add(k, v[0])
			}
		} else {
			log.Warn("Could not successfully parse ExtraConnectionURLArgs: %s", err.Error())
		}
	}

	if al.EnableTLS {
		query.Add("encrypt", "true")
		query.Add("TrustServerCertificate", strconv.FormatBool(al.TrustServerCertificate))
		if !al.TrustServerCertificate {
			query.Add("certificate", al.CertificateLocation)
		}
	}

	connectionURL.RawQuery = query.Encode()
	return connectionURL.String()
}
