// Package instance contains helper methods for identifying the monitored server
package instance

import (
	"database/sql"
	"fmt"

	"github.com/newrelic/infra-integrations-sdk/v3/integration"

	"github.com/newrelic/nri-sqlguard/src/args"
	"github.com/newrelic/nri-sqlguard/src/connection"
)

// EntityNamespace is the namespace of the instance entity
const EntityNamespace = "sqlguard-instance"

const (
	mysqlInstanceNameQuery     = "select @@hostname as instance_name"
	sqlServerInstanceNameQuery = "select @@SERVERNAME as instance_name"
)

// NameRow is a row result in the instance name query
type NameRow struct {
	Name sql.NullString `db:"instance_name"`
}

func instanceNameQuery(driver string) string {
	if driver == args.DriverSQLServer {
		return sqlServerInstanceNameQuery
	}
	return mysqlInstanceNameQuery
}

// CreateInstanceEntity runs a query to get the instance. When the server reports
// no name the connection host is used instead.
func CreateInstanceEntity(i *integration.Integration, con *connection.SQLConnection) (*integration.Entity, error) {
	instanceRows := make([]*NameRow, 0)
	if err := con.Query(&instanceRows, instanceNameQuery(con.Driver)); err != nil {
		return nil, err
	}

	if length := len(instanceRows); length != 1 {
		return nil, fmt.Errorf("expected 1 row for instance name got %d", length)
	}

	name := con.Host
	if instanceRows[0].Name.Valid && instanceRows[0].Name.String != "" {
		name = instanceRows[0].Name.String
	}

	endpointIDAttr := integration.NewIDAttribute("endpoint", con.Host)
	return i.EntityReportedVia(con.Host, name, EntityNamespace, endpointIDAttr)
}
