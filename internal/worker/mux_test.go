package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
)

func TestMuxRoutesThroughMiddleware(t *testing.T) {
	m := NewMux()
	var got []string
	m.HandleFunc("pipeline:run", func(_ context.Context, task *asynq.Task) error {
		got = append(got, string(task.Payload()))
		return nil
	})
	m.HandleFunc("pipeline:fail", func(context.Context, *asynq.Task) error {
		return errors.New("boom")
	})

	err := m.Mux().ProcessTask(context.Background(), asynq.NewTask("pipeline:run", []byte("a")))
	assert.NoError(t, err)
	assert.Equal(t, []string{"a"}, got)

	err = m.Mux().ProcessTask(context.Background(), asynq.NewTask("pipeline:fail", nil))
	assert.EqualError(t, err, "boom")

	err = m.Mux().ProcessTask(context.Background(), asynq.NewTask("unknown", nil))
	assert.Error(t, err)
}
