package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/job-hunter/internal/types"
)

// Runner executes a full pipeline run
type Runner interface {
	Run(ctx context.Context, inputs types.RunInputs) (*types.CrewResult, error)
}

// Dispatcher runs pipeline runs on background workers and records their outcome.
type Dispatcher struct {
	store  *Store
	runner Runner
	group  errgroup.Group
}

// NewDispatcher creates a dispatcher writing to store.
func NewDispatcher(store *Store, runner Runner) *Dispatcher {
	return &Dispatcher{store: store, runner: runner}
}

// Store returns the dispatcher's task store.
func (d *Dispatcher) Store() *Store {
	return d.store
}

// Dispatch creates a running task and starts its worker. It returns without
// waiting for the run. Runs are not cancellable once started.
func (d *Dispatcher) Dispatch(inputs types.RunInputs) string {
	rec := d.store.Create()
	d.group.Go(func() error {
		d.work(rec.ID, inputs)
		return nil
	})
	return rec.ID
}

// Wait blocks until every dispatched worker has finished.
func (d *Dispatcher) Wait() {
	_ = d.group.Wait()
}

func (d *Dispatcher) work(id string, inputs types.RunInputs) {
	result, err := d.run(inputs)
	if err == nil && result == nil {
		err = fmt.Errorf("run returned no result")
	}

	if err != nil {
		slog.Error("task failed", "task_id", id, "error", err)
		err = d.store.Fail(id, err.Error())
	} else {
		err = d.store.Complete(id, result)
	}
	if err != nil {
		slog.Error("failed to record task outcome", "task_id", id, "error", err)
	}
}

func (d *Dispatcher) run(inputs types.RunInputs) (result *types.CrewResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("run panicked: %v", r)
		}
	}()
	return d.runner.Run(context.Background(), inputs)
}
