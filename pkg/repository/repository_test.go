package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	gomock "go.uber.org/mock/gomock"

	"github.com/voidshard/b2b/internal/mocks/pkg/database_mock"
	"github.com/voidshard/b2b/pkg/database"
	"github.com/voidshard/b2b/pkg/errors"
	"github.com/voidshard/b2b/pkg/structs"
)

func newTestRepository() *Repository {
	return New(database.NewMemory(), &Options{ConflictInterval: time.Millisecond})
}

func TestCreateInstance(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository()
	params := structs.JobParameters{"source.root": "/home", "target.port": 8200}

	in, err := repo.CreateInstance(ctx, "nightly", params)

	assert.Nil(t, err)
	assert.NotZero(t, in.ID)
	assert.Equal(t, structs.JobKey(params), in.JobKey)
	assert.Equal(t, int32(0), in.Version)

	_, err = repo.CreateInstance(ctx, "nightly", structs.JobParameters{"target.port": 8200, "source.root": "/home"})
	assert.ErrorIs(t, err, errors.ErrAlreadyExists)

	// same params, different job
	other, err := repo.CreateInstance(ctx, "weekly", params)
	assert.Nil(t, err)
	assert.Greater(t, other.ID, in.ID)
}

func TestCreateInstanceNoName(t *testing.T) {
	_, err := newTestRepository().CreateInstance(context.Background(), "", structs.JobParameters{})
	assert.ErrorIs(t, err, errors.ErrInvalidArg)
}

func TestCreateInstanceConcurrent(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository()
	params := structs.JobParameters{"source.root": "/home"}

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.CreateInstance(ctx, "nightly", params)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, errors.ErrAlreadyExists)
		}
	}
	assert.Equal(t, 1, ok)
}

func TestGetInstance(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository()
	params := structs.JobParameters{"source.root": "/home"}

	found, err := repo.GetInstance(ctx, "nightly", params)
	assert.Nil(t, err)
	assert.Nil(t, found)

	in, _ := repo.CreateInstance(ctx, "nightly", params)

	found, err = repo.GetInstance(ctx, "nightly", params)
	assert.Nil(t, err)
	assert.Equal(t, in.ID, found.ID)

	found, err = repo.GetInstanceByID(ctx, in.ID)
	assert.Nil(t, err)
	assert.Equal(t, "nightly", found.Name)

	found, err = repo.GetInstanceByID(ctx, in.ID+100)
	assert.Nil(t, err)
	assert.Nil(t, found)
}

func TestListInstances(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository()

	ids := []int64{}
	for _, root := range []string{"/a", "/b", "/c"} {
		in, err := repo.CreateInstance(ctx, "nightly", structs.JobParameters{"source.root": root})
		assert.Nil(t, err)
		ids = append(ids, in.ID)
	}
	repo.CreateInstance(ctx, "weekly", structs.JobParameters{"source.root": "/a"})

	cases := []struct {
		Name   string
		Job    string
		Offset int
		Limit  int
		Expect []int64
	}{
		{"All", "nightly", 0, 10, []int64{ids[2], ids[1], ids[0]}},
		{"FirstPage", "nightly", 0, 2, []int64{ids[2], ids[1]}},
		{"SecondPage", "nightly", 2, 2, []int64{ids[0]}},
		{"UnknownJob", "hourly", 0, 10, []int64{}},
	}

	for _, c := range cases {
		t.Run(c.Name, func(t *testing.T) {
			found, err := repo.ListInstances(ctx, c.Job, c.Offset, c.Limit)
			assert.Nil(t, err)

			result := []int64{}
			for _, in := range found {
				result = append(result, in.ID)
			}
			assert.Equal(t, c.Expect, result)
		})
	}
}

func TestListJobNamesAndCount(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository()

	repo.CreateInstance(ctx, "weekly", structs.JobParameters{"source.root": "/a"})
	repo.CreateInstance(ctx, "nightly", structs.JobParameters{"source.root": "/a"})
	repo.CreateInstance(ctx, "nightly", structs.JobParameters{"source.root": "/b"})

	names, err := repo.ListJobNames(ctx)
	assert.Nil(t, err)
	assert.Equal(t, []string{"nightly", "weekly"}, names)

	count, err := repo.InstanceCount(ctx, "nightly")
	assert.Nil(t, err)
	assert.Equal(t, 2, count)

	count, err = repo.InstanceCount(ctx, "hourly")
	assert.Nil(t, err)
	assert.Equal(t, 0, count)
}

func TestGetInstanceForExecution(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository()

	in, _ := repo.CreateInstance(ctx, "nightly", structs.JobParameters{"source.root": "/a"})
	exec := structs.NewJobExecution(in.ID, time.Now())
	assert.Nil(t, repo.SaveExecution(ctx, exec))

	found, err := repo.GetInstanceForExecution(ctx, exec.ID)
	assert.Nil(t, err)
	assert.Equal(t, in.ID, found.ID)

	found, err = repo.GetInstanceForExecution(ctx, exec.ID+1)
	assert.Nil(t, err)
	assert.Nil(t, found)
}

func TestGetInstanceDatabaseError(t *testing.T) {
	db := database_mock.NewMockDatabase(gomock.NewController(t))
	repo := New(db, nil)
	oops := fmt.Errorf("connection refused")

	db.EXPECT().Instances(gomock.Any(), gomock.Any()).Return(nil, oops)

	found, err := repo.GetInstance(context.Background(), "nightly", structs.JobParameters{})

	assert.Nil(t, found)
	assert.Equal(t, oops, err)
}

func TestClose(t *testing.T) {
	db := database_mock.NewMockDatabase(gomock.NewController(t))
	repo := New(db, nil)

	db.EXPECT().Close().Return(nil)

	assert.Nil(t, repo.Close())
}
