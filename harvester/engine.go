package harvester

import (
	"context"
	"sync"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	Logger "github.com/papermux/papermux/utils/log"
)

// Engine manages shared resources and execution lifecycle of each module. It
// maintains a shared event bus.
type Engine struct {
	// A list of modules that will be run in this Engine. Module's lifetime is
	// bound to Engine's lifetime. Each Module will be ran in a separate routine.
	Modules []Module

	// The EventBus this engine manages. For now we use a golang channel
	// implementation for the EventBus, but later when needed we could
	// substitute it with a Kafka-based EventBus.
	EventBus *gochannel.GoChannel
}

// Create a new Engine given the provided modules and event bus.
func NewEngine(ms []Module, e *gochannel.GoChannel) *Engine {
	return &Engine{
		Modules:  ms,
		EventBus: e,
	}
}

// Execute all Engine modules and wait until all modules finish execution.
// Canceling ctx starts the shutdown: the bus is closed so that subscribing
// modules drain and return.
func (e *Engine) Run(ctx context.Context) {
	var wg sync.WaitGroup

	for idx := range e.Modules {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			Logger.Log.Infof("start engine module %s", e.Modules[index].Name())
			RunModuleWithGracefulRestart(ctx, e.Modules[index])
			Logger.Log.Infof("module %s finished execution", e.Modules[index].Name())
		}(idx)
	}

	<-ctx.Done()
	if err := e.EventBus.Close(); err != nil {
		Logger.Log.Errorf("closing event bus: %v", err)
	}

	// Block until all goroutines finished execution.
	wg.Wait()
}
