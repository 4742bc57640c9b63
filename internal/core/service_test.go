package core

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	gomock "go.uber.org/mock/gomock"

	"github.com/voidshard/b2b/internal/mocks/pkg/queue_mock"
	"github.com/voidshard/b2b/pkg/database"
	ie "github.com/voidshard/b2b/pkg/errors"
	"github.com/voidshard/b2b/pkg/repository"
	"github.com/voidshard/b2b/pkg/structs"
)

func validParams(root string) structs.JobParameters {
	return structs.JobParameters{
		structs.ParamSourceRoot:     root,
		structs.ParamTargetHostname: "nas.local",
		structs.ParamTargetPort:     8200,
	}
}

func newTestService(t *testing.T, qu *queue_mock.MockQueue, opts *Options) (*Service, *repository.Repository) {
	repo := repository.New(database.NewMemory(), &repository.Options{ConflictInterval: time.Millisecond})
	var svc *Service
	var err error
	if qu == nil {
		svc, err = NewService(repo, nil, opts)
	} else {
		svc, err = NewService(repo, qu, opts)
	}
	assert.Nil(t, err)
	return svc, repo
}

func saveExecution(t *testing.T, repo *repository.Repository, root string, status structs.Status, created time.Time) *structs.JobExecution {
	ctx := context.Background()
	in, err := repo.GetInstance(ctx, "nightly", validParams(root))
	assert.Nil(t, err)
	if in == nil {
		in, err = repo.CreateInstance(ctx, "nightly", validParams(root))
		assert.Nil(t, err)
	}
	exec := structs.NewJobExecution(in.ID, created)
	exec.Status = status
	assert.Nil(t, repo.SaveExecution(ctx, exec))
	return exec
}

func TestNewServiceRequiresRepository(t *testing.T) {
	_, err := NewService(nil, nil, nil)
	assert.ErrorIs(t, err, ie.ErrInvalidArg)
}

func TestQueries(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t, nil, nil)
	exec := saveExecution(t, repo, "/data", structs.STARTING, time.Now())

	names, err := svc.JobNames(ctx)
	assert.Nil(t, err)
	assert.Equal(t, []string{"nightly"}, names)

	instances, err := svc.Instances(ctx, "nightly", 0, 10)
	assert.Nil(t, err)
	assert.Len(t, instances, 1)

	running, err := svc.RunningExecutions(ctx, "nightly")
	assert.Nil(t, err)
	assert.Len(t, running, 1)
	assert.Equal(t, exec.ID, running[0].ID)

	execs, err := svc.Executions(ctx, exec.InstanceID)
	assert.Nil(t, err)
	assert.Len(t, execs, 1)

	got, err := svc.Execution(ctx, exec.ID)
	assert.Nil(t, err)
	assert.Equal(t, exec.ID, got.ID)
}

func TestQueriesNotFound(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil, nil)

	_, err := svc.Executions(ctx, 99)
	assert.ErrorIs(t, err, ie.ErrNotFound)

	_, err = svc.Execution(ctx, 99)
	assert.ErrorIs(t, err, ie.ErrNotFound)

	_, err = svc.Instances(ctx, "", 0, 10)
	assert.ErrorIs(t, err, ie.ErrInvalidArg)

	_, err = svc.RunningExecutions(ctx, "")
	assert.ErrorIs(t, err, ie.ErrInvalidArg)

	instances, err := svc.Instances(ctx, "nope", 0, 10)
	assert.Nil(t, err)
	assert.Len(t, instances, 0)
}

func TestStopAndAbandon(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t, nil, nil)
	exec := saveExecution(t, repo, "/data", structs.STARTED, time.Now())

	_, err := svc.Abandon(ctx, exec.ID)
	assert.ErrorIs(t, err, ie.ErrInvalidState)

	stopped, err := svc.Stop(ctx, exec.ID)
	assert.Nil(t, err)
	assert.Equal(t, structs.STOPPING, stopped.Status)

	abandoned, err := svc.Abandon(ctx, exec.ID)
	assert.Nil(t, err)
	assert.Equal(t, structs.ABANDONED, abandoned.Status)
	assert.False(t, abandoned.IsRunning())
}

func TestRun(t *testing.T) {
	qu := queue_mock.NewMockQueue(gomock.NewController(t))
	svc, _ := newTestService(t, qu, nil)
	req := &structs.RunRequest{JobName: "nightly", Parameters: validParams("/data")}

	qu.EXPECT().Enqueue(gomock.Any(), req).Return("task-1", nil)

	resp, err := svc.Run(context.Background(), req)

	assert.Nil(t, err)
	assert.Equal(t, "task-1", resp.QueueTaskID)
}

func TestRunQueueError(t *testing.T) {
	qu := queue_mock.NewMockQueue(gomock.NewController(t))
	svc, _ := newTestService(t, qu, nil)
	req := &structs.RunRequest{JobName: "nightly", Parameters: validParams("/data")}

	qu.EXPECT().Enqueue(gomock.Any(), req).Return("", fmt.Errorf("redis down"))

	_, err := svc.Run(context.Background(), req)

	assert.EqualError(t, err, "redis down")
}

func TestRunInvalid(t *testing.T) {
	longName := make([]byte, maxJobNameLength+1)
	for i := range longName {
		longName[i] = 'a'
	}

	cases := []struct {
		Name   string
		Given  *structs.RunRequest
		Expect error
	}{
		{"Nil", nil, ie.ErrInvalidArg},
		{"NoName", &structs.RunRequest{Parameters: validParams("/data")}, ie.ErrInvalidArg},
		{"LongName", &structs.RunRequest{JobName: string(longName), Parameters: validParams("/data")}, ie.ErrInvalidArg},
		{"NoRoot", &structs.RunRequest{JobName: "nightly", Parameters: structs.JobParameters{structs.ParamTargetHostname: "nas", structs.ParamTargetPort: 1}}, ie.ErrInvalidArg},
		{"BadTarget", &structs.RunRequest{JobName: "nightly", Parameters: structs.JobParameters{structs.ParamSourceRoot: "/data", structs.ParamTargetType: "s3"}}, ie.ErrNotSupported},
	}

	for _, c := range cases {
		t.Run(c.Name, func(t *testing.T) {
			// nothing may be enqueued
			qu := queue_mock.NewMockQueue(gomock.NewController(t))
			svc, _ := newTestService(t, qu, nil)

			_, err := svc.Run(context.Background(), c.Given)

			assert.ErrorIs(t, err, c.Expect)
		})
	}
}

func TestRunNoQueue(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)

	_, err := svc.Run(context.Background(), &structs.RunRequest{JobName: "nightly", Parameters: validParams("/data")})

	assert.ErrorIs(t, err, ie.ErrNotSupported)
}

func TestReap(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t, nil, &Options{MaxRunTime: time.Hour, TidyFrequency: time.Minute})

	base := time.Now()
	defer func() { timeNow = time.Now }()
	timeNow = func() time.Time { return base.Add(2 * time.Hour) }

	overlong := saveExecution(t, repo, "/a", structs.STARTED, base.Add(-3*time.Hour))
	recent := saveExecution(t, repo, "/b", structs.STARTED, base.Add(90*time.Minute))
	stuck := saveExecution(t, repo, "/c", structs.STARTED, base.Add(-3*time.Hour))
	_, err := repo.Stop(ctx, stuck.ID)
	assert.Nil(t, err)
	finished := saveExecution(t, repo, "/d", structs.STARTED, base.Add(-3*time.Hour))
	err = repo.Mutate(ctx, finished, func(e *structs.JobExecution) error {
		e.Status = structs.COMPLETED
		end := base
		e.EndTime = &end
		return nil
	})
	assert.Nil(t, err)

	err = svc.Reap(ctx)
	assert.Nil(t, err)

	cases := []struct {
		Name   string
		ID     int64
		Expect structs.Status
	}{
		{"Overlong", overlong.ID, structs.STOPPING},
		{"Recent", recent.ID, structs.STARTED},
		{"Stuck", stuck.ID, structs.ABANDONED},
		{"Finished", finished.ID, structs.COMPLETED},
	}

	for _, c := range cases {
		t.Run(c.Name, func(t *testing.T) {
			got, err := repo.GetExecution(ctx, c.ID)
			assert.Nil(t, err)
			assert.Equal(t, c.Expect, got.Status)
		})
	}
}

func TestReapForeverDisabled(t *testing.T) {
	svc, _ := newTestService(t, nil, &Options{})

	// returns immediately rather than blocking
	svc.ReapForever(context.Background())
}
