package modules

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/papermux/papermux/harvester"
	"github.com/papermux/papermux/model"
	"github.com/papermux/papermux/store"
	Logger "github.com/papermux/papermux/utils/log"
)

type SchedulerConfig struct {
	// Name of the scheduler instance.
	Name string

	// How often the journal table is polled for due journals.
	PollInterval time.Duration

	// A journal becomes due once its last fetch is at least this old. A
	// journal that has never been fetched is always due.
	FetchInterval time.Duration
}

// Scheduler periodically scans active journals and publishes a FetchJob for
// every journal that is due. Workers own the actual fetching, so a slow
// source never delays the scan.
type Scheduler struct {
	Config SchedulerConfig

	Store store.Store

	EventBus *gochannel.GoChannel
}

// Return a new instance of Scheduler.
func NewScheduler(config SchedulerConfig, st store.Store, e *gochannel.GoChannel) *Scheduler {
	return &Scheduler{
		Config:   config,
		Store:    st,
		EventBus: e,
	}
}

// DueJournals filters journals down to the ones whose last fetch is at least
// fetchInterval old. The fetch service applies its own interval guard on top,
// so an overly eager schedule degrades to skipped fetches instead of
// refetching.
func DueJournals(journals []model.Journal, fetchInterval time.Duration, now time.Time) []model.Journal {
	due := make([]model.Journal, 0, len(journals))
	for _, journal := range journals {
		if journal.LastFetchedAt == nil || now.Sub(*journal.LastFetchedAt) >= fetchInterval {
			due = append(due, journal)
		}
	}
	return due
}

func (s *Scheduler) scheduleOnce(ctx context.Context) error {
	journals, err := s.Store.ListActiveJournals(ctx)
	if err != nil {
		return err
	}

	due := DueJournals(journals, s.Config.FetchInterval, time.Now())
	for i := range due {
		if err := s.publishJob(&due[i]); err != nil {
			return err
		}
	}

	if len(due) > 0 {
		Logger.Log.WithFields(logrus.Fields{
			"scheduled": len(due),
			"active":    len(journals),
		}).Info("scheduled due journals")
	}
	return nil
}

func (s *Scheduler) publishJob(journal *model.Journal) error {
	data, err := harvester.EncodeFetchJob(&harvester.FetchJob{
		JobId:     uuid.NewString(),
		JournalID: journal.Id,
		Trigger:   harvester.TriggerSchedule,
	})
	if err != nil {
		return err
	}
	return s.EventBus.Publish(harvester.TopicPendingFetch, message.NewMessage(watermill.NewUUID(), data))
}

func (s *Scheduler) RunModule(ctx context.Context) error {
	ticker := time.NewTicker(s.Config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			// A failed pass is logged and retried on the next tick rather
			// than restarting the module.
			if err := s.scheduleOnce(ctx); err != nil {
				Logger.Log.Errorf("scheduler pass failed: %v", err)
			}
		}
	}
}

func (s *Scheduler) Name() string {
	return s.Config.Name
}
