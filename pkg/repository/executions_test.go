package repository

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	gomock "go.uber.org/mock/gomock"

	"github.com/voidshard/b2b/internal/mocks/pkg/database_mock"
	"github.com/voidshard/b2b/pkg/errors"
	"github.com/voidshard/b2b/pkg/structs"
)

func newSavedExecution(t *testing.T, repo *Repository, job string, created time.Time) (*structs.JobInstance, *structs.JobExecution) {
	return newSavedExecutionWith(t, repo, job, structs.JobParameters{"source.root": "/" + job}, created)
}

func newSavedExecutionWith(t *testing.T, repo *Repository, job string, params structs.JobParameters, created time.Time) (*structs.JobInstance, *structs.JobExecution) {
	ctx := context.Background()

	in, err := repo.GetInstance(ctx, job, params)
	assert.Nil(t, err)
	if in == nil {
		in, err = repo.CreateInstance(ctx, job, params)
		assert.Nil(t, err)
	}

	exec := structs.NewJobExecution(in.ID, created)
	assert.Nil(t, repo.SaveExecution(ctx, exec))
	return in, exec
}

// finishExecution completes a saved execution so another can be opened for the instance
func finishExecution(t *testing.T, repo *Repository, exec *structs.JobExecution) {
	end := exec.CreateTime.Add(time.Second)
	exec.Status = structs.COMPLETED
	exec.EndTime = &end
	assert.Nil(t, repo.UpdateExecution(context.Background(), exec))
}

// newFinishedExecution returns an unsaved execution that has already ended
func newFinishedExecution(instanceID int64, created time.Time) *structs.JobExecution {
	exec := structs.NewJobExecution(instanceID, created)
	end := created.Add(time.Second)
	exec.Status = structs.COMPLETED
	exec.EndTime = &end
	return exec
}

func TestSaveExecution(t *testing.T) {
	repo := newTestRepository()

	_, exec := newSavedExecution(t, repo, "nightly", time.Now())

	assert.NotZero(t, exec.ID)
	assert.Equal(t, int32(0), exec.Version)
	assert.Equal(t, exec.CreateTime, exec.LastUpdated)
}

func TestSaveExecutionInvalid(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository()
	in, _ := repo.CreateInstance(ctx, "nightly", structs.JobParameters{})
	now := time.Now()

	cases := []struct {
		Name  string
		Given *structs.JobExecution
	}{
		{"NoInstance", &structs.JobExecution{Status: structs.STARTING, CreateTime: now}},
		{"UnknownInstance", &structs.JobExecution{InstanceID: in.ID + 1, Status: structs.STARTING, CreateTime: now}},
		{"NoStatus", &structs.JobExecution{InstanceID: in.ID, CreateTime: now}},
		{"BadStatus", &structs.JobExecution{InstanceID: in.ID, Status: "RUNNING", CreateTime: now}},
		{"NoCreateTime", &structs.JobExecution{InstanceID: in.ID, Status: structs.STARTING}},
		{"AlreadySaved", &structs.JobExecution{ID: 3, InstanceID: in.ID, Status: structs.STARTING, CreateTime: now}},
	}

	for _, c := range cases {
		t.Run(c.Name, func(t *testing.T) {
			err := repo.SaveExecution(ctx, c.Given)
			assert.ErrorIs(t, err, errors.ErrInvalidArg)
		})
	}
}

func TestSaveExecutionAlreadyRunning(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository()
	now := time.Now()
	in, first := newSavedExecution(t, repo, "nightly", now)

	second := structs.NewJobExecution(in.ID, now.Add(time.Second))
	err := repo.SaveExecution(ctx, second)
	assert.ErrorIs(t, err, errors.ErrAlreadyRunning)

	finishExecution(t, repo, first)
	assert.Nil(t, repo.SaveExecution(ctx, second))
	assert.NotZero(t, second.ID)
}

func TestUpdateExecutionVersions(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository()
	_, exec := newSavedExecution(t, repo, "nightly", time.Now())

	for i := 1; i <= 3; i++ {
		exec.ExitMessage = "update"
		assert.Nil(t, repo.UpdateExecution(ctx, exec))
		assert.Equal(t, int32(i), exec.Version)
	}

	stored, err := repo.GetExecution(ctx, exec.ID)
	assert.Nil(t, err)
	assert.Equal(t, int32(3), stored.Version)
}

func TestUpdateExecutionStale(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository()
	_, exec := newSavedExecution(t, repo, "nightly", time.Now())

	mine := exec.Copy()
	theirs := exec.Copy()

	theirs.Status = structs.STOPPING
	assert.Nil(t, repo.UpdateExecution(ctx, theirs))

	mine.Status = structs.STARTED
	err := repo.UpdateExecution(ctx, mine)

	assert.ErrorIs(t, err, errors.ErrOptimisticLock)
	var lockErr *errors.OptimisticLockError
	assert.True(t, stderrors.As(err, &lockErr))
	assert.Equal(t, exec.ID, lockErr.ID)
	assert.Equal(t, int32(0), lockErr.Expected)
	assert.Equal(t, int32(1), lockErr.Actual)
	assert.Equal(t, int32(0), mine.Version)

	stored, _ := repo.GetExecution(ctx, exec.ID)
	assert.Equal(t, structs.STOPPING, stored.Status)
	assert.Equal(t, int32(1), stored.Version)
}

func TestUpdateExecutionUnknown(t *testing.T) {
	repo := newTestRepository()
	exec := structs.NewJobExecution(1, time.Now())

	err := repo.UpdateExecution(context.Background(), exec)
	assert.ErrorIs(t, err, errors.ErrInvalidArg)

	exec.ID = 1234
	err = repo.UpdateExecution(context.Background(), exec)
	assert.ErrorIs(t, err, errors.ErrNoSuchExecution)
}

func TestUpdateExecutionConflictReadsStoredVersion(t *testing.T) {
	db := database_mock.NewMockDatabase(gomock.NewController(t))
	repo := New(db, nil)

	exec := structs.NewJobExecution(1, time.Now())
	exec.ID = 7
	exec.Version = 2
	stored := exec.Copy()
	stored.Version = 5

	db.EXPECT().Executions(gomock.Any(), gomock.Any()).Return([]*structs.JobExecution{stored}, nil).Times(2)
	db.EXPECT().UpdateExecution(gomock.Any(), gomock.Any(), int32(2)).DoAndReturn(
		func(ctx context.Context, in *structs.JobExecution, expect int32) (int64, error) {
			assert.Equal(t, int32(3), in.Version)
			return 0, nil
		},
	)

	err := repo.UpdateExecution(context.Background(), exec)

	var lockErr *errors.OptimisticLockError
	assert.True(t, stderrors.As(err, &lockErr))
	assert.Equal(t, int32(2), lockErr.Expected)
	assert.Equal(t, int32(5), lockErr.Actual)
}

func TestMutateRetriesOnConflict(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository()
	_, exec := newSavedExecution(t, repo, "nightly", time.Now())

	other := exec.Copy()
	other.ExitMessage = "someone else"
	assert.Nil(t, repo.UpdateExecution(ctx, other))

	calls := 0
	err := repo.Mutate(ctx, exec, func(e *structs.JobExecution) error {
		calls++
		e.Status = e.Status.Upgrade(structs.STARTED)
		return nil
	})

	assert.Nil(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, int32(2), exec.Version)
	assert.Equal(t, "someone else", exec.ExitMessage)
	assert.Equal(t, structs.STARTED, exec.Status)
}

func TestMutateAbortsOnError(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository()
	_, exec := newSavedExecution(t, repo, "nightly", time.Now())

	err := repo.Mutate(ctx, exec, func(e *structs.JobExecution) error {
		return errors.ErrInvalidState
	})

	assert.ErrorIs(t, err, errors.ErrInvalidState)
	stored, _ := repo.GetExecution(ctx, exec.ID)
	assert.Equal(t, int32(0), stored.Version)
}

func TestFindExecutions(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository()
	now := time.Now()

	in, a := newSavedExecution(t, repo, "nightly", now)
	finishExecution(t, repo, a)
	_, b := newSavedExecution(t, repo, "nightly", now.Add(time.Second))
	newSavedExecution(t, repo, "weekly", now)

	found, err := repo.FindExecutions(ctx, in)

	assert.Nil(t, err)
	assert.Len(t, found, 2)
	assert.Equal(t, b.ID, found[0].ID)
	assert.Equal(t, a.ID, found[1].ID)
}

func TestGetLastExecution(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository()
	now := time.Now()

	in, err := repo.CreateInstance(ctx, "nightly", structs.JobParameters{"source.root": "/nightly"})
	assert.Nil(t, err)

	last, err := repo.GetLastExecution(ctx, in)
	assert.Nil(t, err)
	assert.Nil(t, last)

	// saved out of create time order
	latest := structs.NewJobExecution(in.ID, now.Add(time.Hour))
	assert.Nil(t, repo.SaveExecution(ctx, latest))
	for i := 0; i < 3; i++ {
		assert.Nil(t, repo.SaveExecution(ctx, newFinishedExecution(in.ID, now.Add(time.Duration(i)*time.Minute))))
	}

	last, err = repo.GetLastExecution(ctx, in)
	assert.Nil(t, err)
	assert.Equal(t, latest.ID, last.ID)
}

func TestGetLastExecutionDuplicateCreateTime(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository()
	now := time.Now()

	in, first := newSavedExecution(t, repo, "nightly", now)
	finishExecution(t, repo, first)
	newSavedExecution(t, repo, "nightly", now)

	last, err := repo.GetLastExecution(ctx, in)

	assert.Nil(t, last)
	assert.ErrorIs(t, err, errors.ErrInvariantViolation)
}

func TestFindRunningExecutions(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository()
	now := time.Now()

	_, a := newSavedExecution(t, repo, "nightly", now)
	_, b := newSavedExecutionWith(t, repo, "nightly", structs.JobParameters{"source.root": "/srv"}, now.Add(time.Second))
	newSavedExecution(t, repo, "weekly", now)

	running, err := repo.FindRunningExecutions(ctx, "nightly")
	assert.Nil(t, err)
	assert.Len(t, running, 2)
	assert.Equal(t, b.ID, running[0].ID)

	a.Status = structs.COMPLETED
	end := now.Add(time.Minute)
	a.EndTime = &end
	assert.Nil(t, repo.UpdateExecution(ctx, a))

	running, err = repo.FindRunningExecutions(ctx, "nightly")
	assert.Nil(t, err)
	assert.Len(t, running, 1)
	assert.Equal(t, b.ID, running[0].ID)

	running, err = repo.FindRunningExecutions(ctx, "hourly")
	assert.Nil(t, err)
	assert.Len(t, running, 0)
}

func TestFindRunningExecutionsDeduplicates(t *testing.T) {
	db := database_mock.NewMockDatabase(gomock.NewController(t))
	repo := New(db, nil)
	exec := structs.NewJobExecution(1, time.Now())
	exec.ID = 3

	db.EXPECT().Instances(gomock.Any(), gomock.Any()).Return([]*structs.JobInstance{{ID: 1, Name: "nightly"}}, nil)
	db.EXPECT().Executions(gomock.Any(), gomock.Any()).Return([]*structs.JobExecution{exec, exec.Copy()}, nil)

	running, err := repo.FindRunningExecutions(context.Background(), "nightly")

	assert.Nil(t, err)
	assert.Len(t, running, 1)
}

func TestSynchronizeStatus(t *testing.T) {
	cases := []struct {
		Name          string
		Local         structs.Status
		Stored        structs.Status
		Expect        structs.Status
		ExpectVersion int32
	}{
		{"AdoptStopping", structs.STARTED, structs.STOPPING, structs.STOPPING, 1},
		{"NeverBackwards", structs.FAILED, structs.STARTED, structs.FAILED, 1},
		{"AdoptAbandoned", structs.STARTED, structs.ABANDONED, structs.ABANDONED, 1},
	}

	for _, c := range cases {
		t.Run(c.Name, func(t *testing.T) {
			ctx := context.Background()
			repo := newTestRepository()
			_, exec := newSavedExecution(t, repo, "nightly", time.Now())

			other := exec.Copy()
			other.Status = c.Stored
			assert.Nil(t, repo.UpdateExecution(ctx, other))

			exec.Status = c.Local
			err := repo.SynchronizeStatus(ctx, exec)

			assert.Nil(t, err)
			assert.Equal(t, c.Expect, exec.Status)
			assert.Equal(t, c.ExpectVersion, exec.Version)
		})
	}
}

func TestSynchronizeStatusSameVersion(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository()
	_, exec := newSavedExecution(t, repo, "nightly", time.Now())

	exec.Status = structs.STARTED
	assert.Nil(t, repo.SynchronizeStatus(ctx, exec))

	assert.Equal(t, structs.STARTED, exec.Status)
	assert.Equal(t, int32(0), exec.Version)
}

func TestSynchronizeStatusUnsaved(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository()
	in, err := repo.CreateInstance(ctx, "nightly", structs.JobParameters{"source.root": "/nightly"})
	assert.Nil(t, err)

	exec := structs.NewJobExecution(in.ID, time.Now())
	exec.ID = 42

	assert.Nil(t, repo.SynchronizeStatus(ctx, exec))

	stored, err := repo.GetExecution(ctx, 42)
	assert.Nil(t, err)
	assert.Equal(t, structs.STARTING, stored.Status)

	// new ids are allocated past the explicit one
	finishExecution(t, repo, exec)
	_, next := newSavedExecution(t, repo, "nightly", time.Now())
	assert.Equal(t, int64(43), next.ID)
}

func TestSynchronizeStatusUnknownInstance(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository()
	exec := structs.NewJobExecution(1, time.Now())
	exec.ID = 42

	err := repo.SynchronizeStatus(ctx, exec)

	assert.ErrorIs(t, err, errors.ErrInvalidArg)
	stored, err := repo.GetExecution(ctx, 42)
	assert.Nil(t, err)
	assert.Nil(t, stored)
}
