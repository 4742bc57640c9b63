package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/voidshard/b2b/pkg/errors"
	"github.com/voidshard/b2b/pkg/structs"
)

const (
	// TaskRun is the asynq task type of a backup run
	TaskRun = "b2b:run"

	asynqRunQueue = "b2b:runs"
)

type Asynq struct {
	opts *Options
	log  *zap.Logger

	// the asynq client & inspector
	ins *asynq.Inspector
	cli *asynq.Client

	// if register is called we're intended to start a server
	lock sync.Mutex
	mux  *asynq.ServeMux
	srv  *asynq.Server
	done chan struct{}
	once sync.Once
}

func NewAsynqQueue(opts *Options) (*Asynq, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("%w redis address required", errors.ErrInvalidArg)
	}
	opts.setDefaults()
	return &Asynq{
		opts: opts,
		log:  opts.Logger,
		ins:  asynq.NewInspector(opts.redisOpt()),
		cli:  asynq.NewClient(opts.redisOpt()),
		done: make(chan struct{}),
	}, nil
}

func (a *Asynq) Close() error {
	a.once.Do(func() { close(a.done) })
	a.lock.Lock()
	srv := a.srv
	a.lock.Unlock()
	if srv != nil {
		srv.Stop()
		srv.Shutdown()
	}
	err := a.cli.Close()
	if ierr := a.ins.Close(); err == nil {
		err = ierr
	}
	return err
}

func (a *Asynq) Register(handler Handler) error {
	a.buildServer()
	a.mux.HandleFunc(TaskRun, func(ctx context.Context, t *asynq.Task) error {
		return a.process(ctx, t, handler)
	})
	return nil
}

// Run processes queued runs until Close is called
func (a *Asynq) Run() error {
	a.lock.Lock()
	srv, mux := a.srv, a.mux
	a.lock.Unlock()
	if srv == nil {
		return fmt.Errorf("%w no handler registered", errors.ErrInvalidState)
	}
	err := srv.Start(mux)
	if err != nil {
		return err
	}
	<-a.done
	return nil
}

func (a *Asynq) Kill(queuedTaskID string) error {
	// Best effort cancel; asynq can't guarantee this will kill it
	return a.ins.CancelProcessing(queuedTaskID)
}

func (a *Asynq) Enqueue(ctx context.Context, req *structs.RunRequest) (string, error) {
	qtask, err := newRunTask(req)
	if err != nil {
		return "", err
	}
	info, err := a.cli.EnqueueContext(
		ctx,
		qtask,
		asynq.Queue(asynqRunQueue),
		asynq.MaxRetry(a.opts.MaxRetry),
		asynq.Timeout(a.opts.Timeout),
	)
	if err != nil {
		return "", err
	}
	a.log.Debug("run enqueued", zap.String("task", info.ID), zap.String("job", req.JobName))
	return info.ID, nil
}

// process decodes a run & hands it to the handler
func (a *Asynq) process(ctx context.Context, t *asynq.Task, handler Handler) error {
	meta, err := decodeRunTask(t)
	if err != nil {
		// retrying a payload we can't read won't help
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}
	meta.TaskID, _ = asynq.GetTaskID(ctx)
	meta.Retried, _ = asynq.GetRetryCount(ctx)
	meta.MaxRetry, _ = asynq.GetMaxRetry(ctx)

	handler(ctx, meta)

	err = meta.result()
	if err != nil {
		a.log.Warn("run failed", zap.String("task", meta.TaskID), zap.String("job", meta.Request.JobName), zap.Int("retried", meta.Retried), zap.Bool("skip", meta.skip), zap.Error(err))
	}
	return err
}

func (a *Asynq) buildServer() {
	a.lock.Lock()
	defer a.lock.Unlock()
	if a.mux != nil {
		// someone locked and set this first
		return
	}
	a.srv = asynq.NewServer(
		a.opts.redisOpt(),
		asynq.Config{
			Concurrency: a.opts.Concurrency,
			Queues:      map[string]int{asynqRunQueue: 1},
			Logger:      a.log.Sugar(),
		},
	)
	a.mux = asynq.NewServeMux()
}

// newRunTask validates & encodes a run request
func newRunTask(req *structs.RunRequest) (*asynq.Task, error) {
	if req == nil || req.JobName == "" {
		return nil, fmt.Errorf("%w run request requires a job name", errors.ErrInvalidArg)
	}
	payload, err := json.Marshal(&structs.RunRequest{JobName: req.JobName, Parameters: req.Parameters.Normalize()})
	if err != nil {
		return nil, fmt.Errorf("%w %v", errors.ErrInvalidArg, err)
	}
	return asynq.NewTask(TaskRun, payload), nil
}

func decodeRunTask(t *asynq.Task) (*Meta, error) {
	req := &structs.RunRequest{}
	d := json.NewDecoder(bytes.NewReader(t.Payload()))
	d.UseNumber() // ints above 2^53 survive
	err := d.Decode(req)
	if err != nil {
		return nil, fmt.Errorf("%w bad run payload: %v", errors.ErrInvalidArg, err)
	}
	if req.JobName == "" {
		return nil, fmt.Errorf("%w run payload has no job name", errors.ErrInvalidArg)
	}
	return &Meta{Request: req}, nil
}
