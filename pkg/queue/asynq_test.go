package queue

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	ie "github.com/voidshard/b2b/pkg/errors"
	"github.com/voidshard/b2b/pkg/structs"
)

func TestNewRunTask(t *testing.T) {
	req := &structs.RunRequest{
		JobName:    "home-to-nas",
		Parameters: structs.JobParameters{"source.root": "/home", "target.port": 8200},
	}

	task, err := newRunTask(req)

	assert.Nil(t, err)
	assert.Equal(t, TaskRun, task.Type())

	meta, err := decodeRunTask(task)
	assert.Nil(t, err)
	assert.Equal(t, "home-to-nas", meta.Request.JobName)
	assert.Equal(t, "/home", meta.Request.Parameters.String("source.root"))
	assert.Equal(t, "8200", meta.Request.Parameters.String("target.port"))
}

func TestRunTaskKeepsJobKey(t *testing.T) {
	params := structs.JobParameters{
		"source.root": "/home",
		"since":       time.Date(2024, 3, 1, 11, 0, 0, 0, time.FixedZone("CET", 3600)),
		"big":         int64(1<<60 + 1),
	}

	task, err := newRunTask(&structs.RunRequest{JobName: "nightly", Parameters: params})
	assert.Nil(t, err)
	meta, err := decodeRunTask(task)
	assert.Nil(t, err)

	assert.Equal(t, structs.JobKey(params), structs.JobKey(meta.Request.Parameters))
	assert.Equal(t, "2024-03-01T10:00:00Z", meta.Request.Parameters.String("since"))
	assert.Equal(t, "1152921504606846977", meta.Request.Parameters.String("big"))
}

func TestNewRunTaskInvalid(t *testing.T) {
	cases := []struct {
		Name  string
		Given *structs.RunRequest
	}{
		{"Nil", nil},
		{"NoJobName", &structs.RunRequest{Parameters: structs.JobParameters{"a": 1}}},
	}

	for _, c := range cases {
		t.Run(c.Name, func(t *testing.T) {
			_, err := newRunTask(c.Given)
			assert.ErrorIs(t, err, ie.ErrInvalidArg)
		})
	}
}

func TestDecodeRunTaskInvalid(t *testing.T) {
	cases := []struct {
		Name  string
		Given []byte
	}{
		{"Empty", []byte{}},
		{"NotJson", []byte("|1¬2")},
		{"NoJobName", []byte(`{"parameters": {"a": 1}}`)},
	}

	for _, c := range cases {
		t.Run(c.Name, func(t *testing.T) {
			_, err := decodeRunTask(asynq.NewTask(TaskRun, c.Given))
			assert.ErrorIs(t, err, ie.ErrInvalidArg)
		})
	}
}

func TestProcess(t *testing.T) {
	a := &Asynq{log: zap.NewNop()}
	task, err := newRunTask(&structs.RunRequest{JobName: "nightly"})
	assert.Nil(t, err)

	cases := []struct {
		Name      string
		Handler   Handler
		ExpectErr error
		SkipRetry bool
	}{
		{
			"Success",
			func(ctx context.Context, m *Meta) { m.SetMessage("ok") },
			nil,
			false,
		},
		{
			"Error",
			func(ctx context.Context, m *Meta) { m.SetError(ie.ErrTransfer) },
			ie.ErrTransfer,
			false,
		},
		{
			"Skip",
			func(ctx context.Context, m *Meta) {
				m.SetError(fmt.Errorf("%w job nightly", ie.ErrAlreadyRunning))
				m.SetSkip()
			},
			ie.ErrAlreadyRunning,
			true,
		},
	}

	for _, c := range cases {
		t.Run(c.Name, func(t *testing.T) {
			var seen *Meta
			err := a.process(context.Background(), task, func(ctx context.Context, m *Meta) {
				seen = m
				c.Handler(ctx, m)
			})

			assert.NotNil(t, seen)
			assert.Equal(t, "nightly", seen.Request.JobName)
			if c.ExpectErr == nil {
				assert.Nil(t, err)
				return
			}
			assert.ErrorIs(t, err, c.ExpectErr)
			assert.Equal(t, c.SkipRetry, errors.Is(err, asynq.SkipRetry))
		})
	}
}

func TestProcessBadPayload(t *testing.T) {
	a := &Asynq{log: zap.NewNop()}
	called := false

	err := a.process(context.Background(), asynq.NewTask(TaskRun, []byte("nope")), func(context.Context, *Meta) {
		called = true
	})

	assert.False(t, called)
	assert.ErrorIs(t, err, ie.ErrInvalidArg)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestRunWithoutRegister(t *testing.T) {
	a := &Asynq{}
	assert.ErrorIs(t, a.Run(), ie.ErrInvalidState)
}

func TestNewAsynqQueueRequiresURL(t *testing.T) {
	_, err := NewAsynqQueue(&Options{})
	assert.ErrorIs(t, err, ie.ErrInvalidArg)
}
