package worker

import (
	"context"
	"time"

	"github.com/hibiken/asynq"

	"jobscout/internal/logger"
)

type Mux struct {
	mux *asynq.ServeMux
	log *logger.Logger
}

func NewMux() *Mux {
	m := &Mux{mux: asynq.NewServeMux(), log: logger.New("Worker")}
	m.mux.Use(m.logging)
	return m
}

func (m *Mux) HandleFunc(t string, h func(ctx context.Context, task *asynq.Task) error) {
	m.mux.HandleFunc(t, h)
}

func (m *Mux) Mux() *asynq.ServeMux { return m.mux }

func (m *Mux) logging(next asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
		start := time.Now()
		id, _ := asynq.GetTaskID(ctx)
		retry, _ := asynq.GetRetryCount(ctx)
		m.log.LogDebugf("task %s (%s) started, attempt %d", id, t.Type(), retry+1)
		err := next.ProcessTask(ctx, t)
		if err != nil {
			m.log.LogWarnf("task %s (%s) failed after %v: %v", id, t.Type(), time.Since(start), err)
			return err
		}
		m.log.LogInfof("task %s (%s) done in %v", id, t.Type(), time.Since(start))
		return nil
	})
}
