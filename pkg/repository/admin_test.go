package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/voidshard/b2b/pkg/errors"
	"github.com/voidshard/b2b/pkg/structs"
)

func TestStop(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository()
	_, exec := newSavedExecution(t, repo, "nightly", time.Now())

	stopped, err := repo.Stop(ctx, exec.ID)

	assert.Nil(t, err)
	assert.Equal(t, structs.STOPPING, stopped.Status)
	assert.Equal(t, int32(1), stopped.Version)

	_, err = repo.Stop(ctx, exec.ID+10)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestStopFinished(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository()
	_, exec := newSavedExecution(t, repo, "nightly", time.Now())

	end := time.Now()
	exec.Status = structs.COMPLETED
	exec.EndTime = &end
	assert.Nil(t, repo.UpdateExecution(ctx, exec))

	_, err := repo.Stop(ctx, exec.ID)
	assert.ErrorIs(t, err, errors.ErrInvalidState)
}

func TestAbandon(t *testing.T) {
	cases := []struct {
		Name      string
		Status    structs.Status
		ExpectErr error
	}{
		{"Starting", structs.STARTING, errors.ErrInvalidState},
		{"Started", structs.STARTED, errors.ErrInvalidState},
		{"Completed", structs.COMPLETED, errors.ErrInvalidState},
		{"Stopping", structs.STOPPING, nil},
		{"Stopped", structs.STOPPED, nil},
		{"Failed", structs.FAILED, nil},
	}

	for _, c := range cases {
		t.Run(c.Name, func(t *testing.T) {
			ctx := context.Background()
			repo := newTestRepository()
			_, exec := newSavedExecution(t, repo, "nightly", time.Now())

			exec.Status = c.Status
			assert.Nil(t, repo.UpdateExecution(ctx, exec))

			result, err := repo.Abandon(ctx, exec.ID)

			if c.ExpectErr != nil {
				assert.ErrorIs(t, err, c.ExpectErr)
				return
			}
			assert.Nil(t, err)
			assert.Equal(t, structs.ABANDONED, result.Status)
			assert.NotNil(t, result.EndTime)

			running, _ := repo.FindRunningExecutions(ctx, "nightly")
			assert.Len(t, running, 0)
		})
	}
}
