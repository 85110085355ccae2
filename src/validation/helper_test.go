package validation

import (
	"errors"
	"regexp"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"gopkg.in/DATA-DOG/go-sqlmock.v1"

	"github.com/newrelic/nri-sqlguard/src/args"
	"github.com/newrelic/nri-sqlguard/src/connection"
)

var errQueryError = errors.New("query error")

func setupMockDB(t *testing.T, driver string) (*connection.SQLConnection, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	sqlConnection := &connection.SQLConnection{Connection: sqlx.NewDb(db, "sqlmock"), Driver: driver}
	return sqlConnection, mock
}

func mockVersion(mock sqlmock.Sqlmock, version string) {
	mock.ExpectQuery(regexp.QuoteMeta(getMySQLVersionQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"version()"}).AddRow(version))
}

func mockPlanAccess(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(regexp.QuoteMeta(planAccessQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "select_type", "table"}).AddRow(1, "SIMPLE", nil))
}

func newMySQLConnection(t *testing.T) (*connection.SQLConnection, sqlmock.Sqlmock) {
	return setupMockDB(t, args.DriverMySQL)
}
