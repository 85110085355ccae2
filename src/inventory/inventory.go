// Package inventory contains all the code used to collect inventory items from the target
package inventory

import (
	"strconv"

	"github.com/newrelic/infra-integrations-sdk/v3/integration"
	"github.com/newrelic/infra-integrations-sdk/v3/log"

	"github.com/newrelic/nri-sqlguard/src/args"
	"github.com/newrelic/nri-sqlguard/src/connection"
	"github.com/newrelic/nri-sqlguard/src/guard"
)

const (
	// Server settings that change which plans the optimizer picks
	mysqlVariablesQuery = "SHOW GLOBAL VARIABLES WHERE Variable_name IN ('version', 'optimizer_switch', 'sql_mode', 'innodb_stats_persistent', 'eq_range_index_dive_limit')"
	sysConfigQuery      = "select name, value from sys.configurations"
)

// VariableRow represents a row in the table returned by mysqlVariablesQuery
type VariableRow struct {
	Name  string `db:"Variable_name"`
	Value string `db:"Value"`
}

// ConfigQueryRow represents a row in the table returned by sysConfigQuery
type ConfigQueryRow struct {
	Name  string `db:"name"`
	Value int    `db:"value"`
}

// PopulateInventory records the guard configuration and the server settings
// that influence execution plans.
func PopulateInventory(instanceEntity *integration.Entity, connection *connection.SQLConnection, al args.ArgumentList, thresholds guard.ThresholdConfig) {
	populateGuardItems(instanceEntity, al, thresholds)

	switch connection.Driver {
	case args.DriverSQLServer:
		if err := populateSysConfigItems(instanceEntity, connection); err != nil {
			log.Error("Error collecting inventory items from sys.configurations: %s", err.Error())
		}
	default:
		if err := populateVariableItems(instanceEntity, connection); err != nil {
			log.Error("Error collecting inventory items from global variables: %s", err.Error())
		}
	}
}

func populateGuardItems(instanceEntity *integration.Entity, al args.ArgumentList, thresholds guard.ThresholdConfig) {
	setItemOrLog(instanceEntity, "thresholds/time_ms", strconv.FormatFloat(thresholds.TimeThresholdMillis, 'f', 2, 64))
	setItemOrLog(instanceEntity, "thresholds/key_length", thresholds.KeyLengthThreshold)
	setItemOrLog(instanceEntity, "thresholds/rows", thresholds.RowsThreshold)
	setItemOrLog(instanceEntity, "config/driver", al.Driver)
	setItemOrLog(instanceEntity, "config/plan_analysis", al.AnalyzesPlans())
	setItemOrLog(instanceEntity, "config/escape_string_bindings", al.EscapeStringBindings)
	setItemOrLog(instanceEntity, "config/anonymize_queries", al.AnonymizeQueries)
}

// populateVariableItems collects the optimizer related MySQL variables
func populateVariableItems(instanceEntity *integration.Entity, connection *connection.SQLConnection) error {
	variableRows := make([]*VariableRow, 0)
	if err := connection.Query(&variableRows, mysqlVariablesQuery); err != nil {
		return err
	}

	for _, row := range variableRows {
		setItemOrLog(instanceEntity, "variables/"+row.Name, row.Value)
	}

	return nil
}

// populateSysConfigItems collect inventory items from sys.configurations
func populateSysConfigItems(instanceEntity *integration.Entity, connection *connection.SQLConnection) error {
	configRows := make([]*ConfigQueryRow, 0)
	if err := connection.Query(&configRows, sysConfigQuery); err != nil {
		return err
	}

	for _, row := range configRows {
		setItemOrLog(instanceEntity, row.Name+"/config_value", row.Value)
	}

	return nil
}

// setItemOrLog attempts to set and inventory item. If there
// is an error it is logged as such
func setItemOrLog(instanceEntity *integration.Entity, key string, value interface{}) {
	if err := instanceEntity.SetInventoryItem(key, "value", value); err != nil {
		log.Error("Error setting inventory item '%s': %s", key, err.Error())
	}
}
