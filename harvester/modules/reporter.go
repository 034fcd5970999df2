package modules

import (
	"context"
	"time"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/sirupsen/logrus"

	"github.com/papermux/papermux/harvester"
	Logger "github.com/papermux/papermux/utils/log"
)

type ReporterConfig struct {
	Name string
}

// Reporter's job is to listen to fetch outcomes and aggregate results,
// sending to Datadog (or other service if there's any) for monitoring
// purpose.
type Reporter struct {
	Config ReporterConfig

	Statsd *statsd.Client

	EventBus *gochannel.GoChannel
}

// Return a new instance of Reporter.
func NewReporter(config ReporterConfig, statsdClient *statsd.Client, e *gochannel.GoChannel) *Reporter {
	return &Reporter{
		Config:   config,
		Statsd:   statsdClient,
		EventBus: e,
	}
}

// Report one fetch outcome to datadog. A nil client disables reporting,
// which is the dev setup without a local agent.
func ReportFetchOutcome(outcome *harvester.FetchOutcome, client *statsd.Client) {
	if client == nil {
		return
	}

	tags := []string{
		"status:" + outcome.Status,
		"trigger:" + outcome.Trigger,
	}
	if err := client.Incr(harvester.DDOG_FETCH_COUNTER, tags, 1); err != nil {
		Logger.Log.Infoln("cannot report fetch counter")
	}
	if err := client.Count(harvester.DDOG_NEW_PAPERS_COUNT, int64(outcome.NewPapers), tags, 1); err != nil {
		Logger.Log.Infoln("cannot report new papers count")
	}
	if err := client.Timing(harvester.DDOG_FETCH_LATENCY, time.Duration(outcome.ExecutionTimeMs)*time.Millisecond, tags, 1); err != nil {
		Logger.Log.Infoln("cannot report fetch latency")
	}
}

func (r *Reporter) RunModule(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	messages, err := r.EventBus.Subscribe(ctx, harvester.TopicFetchOutcome)
	if err != nil {
		return err
	}

	for msg := range messages {
		msg.Ack()

		outcome, err := harvester.DecodeFetchOutcome(msg.Payload)
		if err != nil {
			Logger.Log.Errorf("dropping undecodable fetch outcome: %v", err)
			continue
		}

		ReportFetchOutcome(outcome, r.Statsd)
		Logger.Log.WithFields(logrus.Fields{
			"journal_id": outcome.JournalID,
			"status":     outcome.Status,
			"new_papers": outcome.NewPapers,
			"trigger":    outcome.Trigger,
		}).Info("fetch outcome reported")
	}

	return nil
}

func (r *Reporter) Name() string {
	return r.Config.Name
}
