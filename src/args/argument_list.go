// Package args contains the argument list, defined as a struct, along with a method that validates passed-in args
package args

import (
	"errors"
	"strconv"

	sdkArgs "github.com/newrelic/infra-integrations-sdk/v3/args"
	"github.com/newrelic/infra-integrations-sdk/v3/log"

	"github.com/newrelic/nri-sqlguard/src/guard"
)

const (
	// DriverMySQL enables plan analysis.
	DriverMySQL = "mysql"
	// DriverSQLServer only records statement timings; SQL Server plans do not
	// have the MySQL EXPLAIN shape.
	DriverSQLServer = "sqlserver"
)

var (
	ErrMissingUsername = errors.New("invalid configuration: must specify a username")
	ErrMissingHostname = errors.New("invalid configuration: must specify a hostname")
	ErrUnknownDriver   = errors.New("invalid configuration: driver must be mysql or sqlserver")
	ErrMissingCA       = errors.New("invalid configuration: must specify a certificate file when using TLS and not trusting server certificate")
)

// ArgumentList struct that holds all guard arguments
type ArgumentList struct {
	sdkArgs.DefaultArgumentList
	Driver                 string `default:"mysql" help:"Database driver, mysql or sqlserver. Plan analysis is only available for mysql"`
	Username               string `default:"" help:"The database connection user name"`
	Password               string `default:"" help:"The database connection password"`
	Hostname               string `default:"127.0.0.1" help:"The database connection host name"`
	Port                   string `default:"" help:"The database port to connect to. Defaults to 3306 for mysql and 1433 for sqlserver"`
	Database               string `default:"" help:"The database (schema) statements run against"`
	EnableTLS              bool   `default:"false" help:"If true will use TLS encryption, false will not use encryption"`
	TrustServerCertificate bool   `default:"false" help:"If true server certificate is not verified for TLS. If false certificate will be verified against supplied certificate"`
	CertificateLocation    string `default:"" help:"Certificate file to verify TLS encryption against"`
	ExtraConnectionURLArgs string `default:"" help:"Appends additional parameters to the connection DSN, e.g. 'sql_mode=TRADITIONAL&autocommit=1'"`
	Timeout                string `default:"30" help:"Timeout in seconds for dialing the server. Set 0 for no timeout"`
	ConnectRetries         int    `default:"3" help:"Number of attempts when opening the connection"`
	SQLTimeThreshold       string `default:"100.0" help:"Elapsed time in milliseconds at which a statement gets a TIME warning"`
	SQLKeyLengthThreshold  int    `default:"256" help:"Chosen key length in bytes at which a plan row gets a KEY_LEN_VALUE warning"`
	SQLRowsThreshold       int    `default:"1000" help:"Estimated rows examined at which a plan row gets a ROWS warning"`
	EscapeStringBindings   bool   `default:"false" help:"If true, single quotes inside string bindings are doubled when inlining statements"`
	AnonymizeQueries       bool   `default:"true" help:"If true, literals in the inlined query reported with each finding are replaced by ?"`
	ReplayFile             string `default:"" help:"YAML file with the statements to run through the guard"`
}

// Validate validates guard specific arguments
func (al *ArgumentList) Validate() error {
	switch al.Driver {
	case DriverMySQL, DriverSQLServer:
	default:
		return ErrUnknownDriver
	}

	if al.Username == "" {
		return ErrMissingUsername
	}

	if al.Hostname == "" {
		return ErrMissingHostname
	}

	if al.Port == "" {
		if al.Driver == DriverSQLServer {
			al.Port = "1433"
		} else {
			al.Port = "3306"
		}
		log.Info("Port was not specified, using default port %s", al.Port)
	}

	if al.EnableTLS && (!al.TrustServerCertificate && al.CertificateLocation == "") {
		return ErrMissingCA
	}

	if al.ConnectRetries < 1 {
		al.ConnectRetries = 1
	}

	return nil
}

// AnalyzesPlans reports whether the configured driver supports plan analysis
func (al ArgumentList) AnalyzesPlans() bool {
	return al.Driver == DriverMySQL
}

// Thresholds builds the threshold configuration. Non-positive values fall back
// to their defaults.
func (al ArgumentList) Thresholds() guard.ThresholdConfig {
	cfg := guard.DefaultThresholdConfig()

	if timeThreshold, err := strconv.ParseFloat(al.SQLTimeThreshold, 64); err == nil && timeThreshold > 0 {
		cfg.TimeThresholdMillis = timeThreshold
	} else if al.SQLTimeThreshold != "" {
		log.Warn("SQL time threshold is not a positive number, using default value: %.2f", guard.DefaultTimeThresholdMillis)
	}

	if al.SQLKeyLengthThreshold > 0 {
		cfg.KeyLengthThreshold = int64(al.SQLKeyLengthThreshold)
	} else {
		log.Warn("SQL key length threshold is not positive, using default value: %d", guard.DefaultKeyLengthThreshold)
	}

	if al.SQLRowsThreshold > 0 {
		cfg.RowsThreshold = int64(al.SQLRowsThreshold)
	} else {
		log.Warn("SQL rows threshold is not positive, using default value: %d", guard.DefaultRowsThreshold)
	}

	return cfg
}

// InlineOptions returns how bindings are rendered into statements
func (al ArgumentList) InlineOptions() guard.InlineOptions {
	return guard.InlineOptions{EscapeQuotes: al.EscapeStringBindings}
}
