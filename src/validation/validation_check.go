// Package validation checks that the target server can serve plan analysis
package validation

import (
	"github.com/newrelic/infra-integrations-sdk/v3/log"

	"github.com/newrelic/nri-sqlguard/src/args"
	"github.com/newrelic/nri-sqlguard/src/connection"
	"github.com/newrelic/nri-sqlguard/src/explain"
)

// planAccessQuery is the cheapest plan request; it fails when the account
// cannot run EXPLAIN at all.
var planAccessQuery = explain.PlanQuery("select 1")

// ValidatePreConditions checks if the server is compatible with plan analysis.
// Drivers without plan analysis always pass.
func ValidatePreConditions(sqlConnection *connection.SQLConnection) bool {
	if sqlConnection.Driver == args.DriverSQLServer {
		log.Debug("Plan analysis is disabled for %s, skipping pre-requisite validation", sqlConnection.Driver)
		return true
	}

	log.Debug("Starting pre-requisite validation")

	isSupported, err := checkMySQLVersion(sqlConnection)
	if err != nil {
		log.Error("Error checking server version: %s", err.Error())
		return false
	}
	if !isSupported {
		log.Error("Unsupported MySQL version. Plan analysis requires MySQL %s or later", MinimumMySQLVersion)
		return false
	}

	if !checkPlanAccess(sqlConnection) {
		return false
	}

	log.Debug("Pre-requisite validation completed successfully")
	return true
}

func checkPlanAccess(sqlConnection *connection.SQLConnection) bool {
	rows, err := sqlConnection.Queryx(planAccessQuery)
	if err != nil {
		log.Error("Unable to request execution plans: %s", err.Error())
		return false
	}
	defer rows.Close()
	return true
}
