package modules

import (
	"context"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/papermux/papermux/fetcher"
	"github.com/papermux/papermux/harvester"
	Logger "github.com/papermux/papermux/utils/log"
)

type WorkerConfig struct {
	// Name of the worker instance.
	Name string

	// Upper bound on fetches running at the same time.
	Concurrency int
}

// Worker consumes pending fetch jobs, runs them through the fetch service and
// publishes the outcome for the reporter.
type Worker struct {
	Config WorkerConfig

	Service *fetcher.Service

	EventBus *gochannel.GoChannel
}

// Return a new instance of Worker.
func NewWorker(config WorkerConfig, service *fetcher.Service, e *gochannel.GoChannel) *Worker {
	return &Worker{
		Config:   config,
		Service:  service,
		EventBus: e,
	}
}

func (w *Worker) RunModule(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	messages, err := w.EventBus.Subscribe(ctx, harvester.TopicPendingFetch)
	if err != nil {
		return err
	}

	concurrency := w.Config.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	slots := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for msg := range messages {
		msg.Ack()

		job, err := harvester.DecodeFetchJob(msg.Payload)
		if err != nil {
			Logger.Log.Errorf("dropping undecodable fetch job: %v", err)
			continue
		}

		slots <- struct{}{}
		wg.Add(1)
		go func(job *harvester.FetchJob) {
			defer wg.Done()
			defer func() { <-slots }()
			w.processJob(ctx, job)
		}(job)
	}

	// Bus closed, drain in-flight fetches before returning.
	wg.Wait()
	return nil
}

func (w *Worker) processJob(ctx context.Context, job *harvester.FetchJob) {
	result, err := w.Service.FetchJournalByID(ctx, job.JournalID)
	if err != nil {
		// The journal disappeared between scheduling and pickup.
		Logger.Log.Warnf("fetch job %s for journal %s dropped: %v", job.JobId, job.JournalID, err)
		return
	}

	if err := w.publishOutcome(job, result); err != nil {
		Logger.Log.Errorf("fail to publish fetch outcome for journal %s: %v", job.JournalID, err)
	}
}

func (w *Worker) publishOutcome(job *harvester.FetchJob, result *fetcher.FetchResult) error {
	data, err := harvester.EncodeFetchOutcome(&harvester.FetchOutcome{
		JobId:           job.JobId,
		JournalID:       result.JournalID,
		Trigger:         job.Trigger,
		Status:          result.Status,
		PapersFetched:   result.PapersFetched,
		NewPapers:       result.NewPapers,
		ExecutionTimeMs: result.ExecutionTimeMs,
	})
	if err != nil {
		return err
	}
	return w.EventBus.Publish(harvester.TopicFetchOutcome, message.NewMessage(watermill.NewUUID(), data))
}

func (w *Worker) Name() string {
	return w.Config.Name
}
