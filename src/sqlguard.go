package main

import (
	"context"
	"os"

	"github.com/newrelic/infra-integrations-sdk/v3/integration"
	"github.com/newrelic/infra-integrations-sdk/v3/log"

	"github.com/newrelic/nri-sqlguard/src/args"
	"github.com/newrelic/nri-sqlguard/src/connection"
	"github.com/newrelic/nri-sqlguard/src/explain"
	"github.com/newrelic/nri-sqlguard/src/guard"
	"github.com/newrelic/nri-sqlguard/src/ingestion"
	"github.com/newrelic/nri-sqlguard/src/instance"
	"github.com/newrelic/nri-sqlguard/src/inventory"
	"github.com/newrelic/nri-sqlguard/src/observer"
	"github.com/newrelic/nri-sqlguard/src/replay"
	"github.com/newrelic/nri-sqlguard/src/validation"
)

const (
	integrationName    = "com.newrelic.nri-sqlguard"
	integrationVersion = "0.1.0"
)

var (
	arguments args.ArgumentList
)

func main() {
	// Create Integration
	i, err := integration.New(integrationName, integrationVersion, integration.Args(&arguments))
	if err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}

	// Setup logging with verbose
	log.SetupLogging(arguments.Verbose)

	// Validate arguments
	if err := arguments.Validate(); err != nil {
		log.Error("Configuration error: %s", err.Error())
		os.Exit(1)
	}

	con, err := connection.NewConnection(&arguments)
	if err != nil {
		log.Error("Error creating connection to %s: %s", arguments.Driver, err.Error())
		os.Exit(1)
	}

	if err := run(context.Background(), i, con, arguments); err != nil {
		log.Error(err.Error())
		con.Close()
		os.Exit(1)
	}
	con.Close()

	if err = i.Publish(); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, i *integration.Integration, con *connection.SQLConnection, al args.ArgumentList) error {
	instanceEntity, err := instance.CreateInstanceEntity(i, con)
	if err != nil {
		return err
	}

	thresholds := al.Thresholds()
	if al.HasInventory() {
		inventory.PopulateInventory(instanceEntity, con, al, thresholds)
	}

	evaluator := guard.NewEvaluator(newPlanFetcher(con, al), newSink(instanceEntity, con.Host, al), thresholds, al.InlineOptions())
	db := observer.New(con.Connection, evaluator)

	if al.ReplayFile == "" {
		log.Debug("No replay file configured, nothing to evaluate")
		return nil
	}

	statements, err := replay.LoadStatements(al.ReplayFile)
	if err != nil {
		return err
	}

	summary, err := replay.Run(ctx, db, statements)
	if err != nil {
		return err
	}

	stats := db.Stats()
	log.Info("Replayed %d statements (%d failed): %d analyzed, %d warnings, %d plans unavailable",
		summary.Executed+summary.Failed, summary.Failed, stats.Analyzed, stats.Warnings, stats.AnalysisErrors)
	return nil
}

// newPlanFetcher returns nil when plans cannot be analyzed, which leaves the
// evaluator writing baseline records only.
func newPlanFetcher(con *connection.SQLConnection, al args.ArgumentList) guard.PlanFetcher {
	if !al.AnalyzesPlans() {
		log.Info("Plan analysis is not available for %s, only statement timings are recorded", al.Driver)
		return nil
	}

	if !validation.ValidatePreConditions(con) {
		log.Warn("Server failed plan analysis pre-requisites, only statement timings are recorded")
		return nil
	}

	return explain.NewFetcher(con.Connection)
}

func newSink(instanceEntity *integration.Entity, host string, al args.ArgumentList) guard.Sink {
	sink := guard.MultiSink{guard.NewLogSink(log.NewStdErr(al.Verbose))}
	if al.HasMetrics() {
		sink = append(sink, ingestion.NewEntitySink(instanceEntity, host, al.AnonymizeQueries))
	}
	return sink
}
