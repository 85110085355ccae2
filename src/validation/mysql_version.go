package validation

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/blang/semver/v4"
	"github.com/newrelic/infra-integrations-sdk/v3/log"

	"github.com/newrelic/nri-sqlguard/src/connection"
)

const (
	versionRegexPattern  = `\b(\d+\.\d+\.\d+)`
	getMySQLVersionQuery = "select version()"
)

var (
	versionRegex = regexp.MustCompile(versionRegexPattern)

	// MinimumMySQLVersion is the first release whose EXPLAIN reports
	// partitions and filtered for every statement.
	MinimumMySQLVersion = semver.MustParse("5.7.0")

	ErrEmptyVersion      = errors.New("server version is empty")
	ErrUnparsableVersion = errors.New("could not parse version from server version string")
)

// checkMySQLVersion reports whether the server is recent enough for plan analysis
func checkMySQLVersion(sqlConnection *connection.SQLConnection) (bool, error) {
	var serverVersion string
	if err := sqlConnection.Connection.Get(&serverVersion, getMySQLVersionQuery); err != nil {
		return false, err
	}

	version, err := parseServerVersion(serverVersion)
	if err != nil {
		return false, err
	}
	log.Debug("Parsed semantic version: %s", version)

	return version.GE(MinimumMySQLVersion), nil
}

// parseServerVersion extracts the release from strings such as
// "8.0.36-0ubuntu0.22.04.1" or "10.11.6-MariaDB-log".
func parseServerVersion(serverVersion string) (semver.Version, error) {
	if serverVersion == "" {
		return semver.Version{}, ErrEmptyVersion
	}

	versionStr := versionRegex.FindString(serverVersion)
	if versionStr == "" {
		return semver.Version{}, fmt.Errorf("%w: %s", ErrUnparsableVersion, serverVersion)
	}

	return semver.ParseTolerant(versionStr)
}
