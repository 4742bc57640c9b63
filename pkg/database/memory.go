package database

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/voidshard/b2b/pkg/errors"
	"github.com/voidshard/b2b/pkg/structs"
)

// Memory is a Database held entirely in process memory. Nothing is persisted;
// it's intended for tests & single shot local runs.
type Memory struct {
	lock sync.RWMutex

	nextInstanceID  int64
	nextExecutionID int64

	instances  map[int64]*structs.JobInstance
	executions map[int64]*structs.JobExecution
	versions   map[string][]*structs.FileVersion // by sourceID + path
}

// NewMemory returns a new empty in memory database
func NewMemory() *Memory {
	return &Memory{
		instances:  map[int64]*structs.JobInstance{},
		executions: map[int64]*structs.JobExecution{},
		versions:   map[string][]*structs.FileVersion{},
	}
}

func (m *Memory) Close() error {
	return nil
}

func (m *Memory) InsertInstance(ctx context.Context, in *structs.JobInstance) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	for _, i := range m.instances {
		if i.Name == in.Name && i.JobKey == in.JobKey {
			return fmt.Errorf("%w job instance %s with key %s", errors.ErrAlreadyExists, in.Name, in.JobKey)
		}
	}

	m.nextInstanceID++
	in.ID = m.nextInstanceID

	cp := *in
	cp.Parameters = in.Parameters.Copy()
	m.instances[cp.ID] = &cp
	return nil
}

func (m *Memory) Instances(ctx context.Context, q *structs.Query) ([]*structs.JobInstance, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	found := []*structs.JobInstance{}
	for _, i := range m.instances {
		if !matchString(q.JobNames, i.Name) || !matchString(q.JobKeys, i.JobKey) || !matchInt64(q.InstanceIDs, i.ID) {
			continue
		}
		cp := *i
		cp.Parameters = i.Parameters.Copy()
		found = append(found, &cp)
	}
	sort.Slice(found, func(a, b int) bool { return found[a].ID > found[b].ID })

	return page(found, q.Limit, q.Offset), nil
}

func (m *Memory) JobNames(ctx context.Context) ([]string, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	seen := map[string]bool{}
	names := []string{}
	for _, i := range m.instances {
		if seen[i.Name] {
			continue
		}
		seen[i.Name] = true
		names = append(names, i.Name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *Memory) InsertExecution(ctx context.Context, in *structs.JobExecution) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if in.ID != 0 {
		if _, ok := m.executions[in.ID]; ok {
			return nil
		}
	}
	if in.EndTime == nil {
		for _, e := range m.executions {
			if e.InstanceID == in.InstanceID && e.EndTime == nil {
				return fmt.Errorf("%w instance %d has open execution %d", errors.ErrAlreadyRunning, in.InstanceID, e.ID)
			}
		}
	}

	if in.ID == 0 {
		m.nextExecutionID++
		in.ID = m.nextExecutionID
	} else if in.ID > m.nextExecutionID {
		m.nextExecutionID = in.ID
	}

	m.executions[in.ID] = in.Copy()
	return nil
}

func (m *Memory) UpdateExecution(ctx context.Context, in *structs.JobExecution, expectVersion int32) (int64, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	stored, ok := m.executions[in.ID]
	if !ok || stored.Version != expectVersion {
		return 0, nil
	}
	if in.EndTime == nil && stored.EndTime != nil {
		for _, e := range m.executions {
			if e.ID != in.ID && e.InstanceID == in.InstanceID && e.EndTime == nil {
				return 0, fmt.Errorf("%w instance %d has open execution %d", errors.ErrAlreadyRunning, in.InstanceID, e.ID)
			}
		}
	}
	m.executions[in.ID] = in.Copy()
	return 1, nil
}

func (m *Memory) Executions(ctx context.Context, q *structs.Query) ([]*structs.JobExecution, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	found := []*structs.JobExecution{}
	for _, e := range m.executions {
		if !matchInt64(q.InstanceIDs, e.InstanceID) || !matchInt64(q.ExecutionIDs, e.ID) {
			continue
		}
		if !matchStatus(q.Statuses, e.Status) {
			continue
		}
		if q.Running && e.EndTime != nil {
			continue
		}
		found = append(found, e.Copy())
	}

	if q.Sort == structs.SortCreateTimeDesc {
		sort.Slice(found, func(a, b int) bool {
			if found[a].CreateTime.Equal(found[b].CreateTime) {
				return found[a].ID > found[b].ID
			}
			return found[a].CreateTime.After(found[b].CreateTime)
		})
	} else {
		sort.Slice(found, func(a, b int) bool { return found[a].ID > found[b].ID })
	}

	return page(found, q.Limit, q.Offset), nil
}

func (m *Memory) LatestFileVersion(ctx context.Context, sourceID, path string) (*structs.FileVersion, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	all := m.versions[versionKey(sourceID, path)]
	if len(all) == 0 {
		return nil, fmt.Errorf("%w file version %s %s", errors.ErrNotFound, sourceID, path)
	}

	// later inserts win ties
	latest := all[0]
	for _, v := range all[1:] {
		if !v.LastBackedUpAt.Before(latest.LastBackedUpAt) {
			latest = v
		}
	}
	cp := *latest
	return &cp, nil
}

func (m *Memory) InsertFileVersion(ctx context.Context, in *structs.FileVersion) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	cp := *in
	key := versionKey(in.SourceID, in.Path)
	m.versions[key] = append(m.versions[key], &cp)
	return nil
}

func versionKey(sourceID, path string) string {
	return sourceID + "\x00" + path
}

// page applies a limit & offset to a result set. A limit <= 0 means no limit.
func page[T any](in []T, limit, offset int) []T {
	if offset >= len(in) {
		return []T{}
	}
	if offset > 0 {
		in = in[offset:]
	}
	if limit > 0 && limit < len(in) {
		in = in[:limit]
	}
	return in
}

func matchString(want []string, have string) bool {
	if len(want) == 0 {
		return true
	}
	for _, w := range want {
		if w == have {
			return true
		}
	}
	return false
}

func matchInt64(want []int64, have int64) bool {
	if len(want) == 0 {
		return true
	}
	for _, w := range want {
		if w == have {
			return true
		}
	}
	return false
}

func matchStatus(want []structs.Status, have structs.Status) bool {
	if len(want) == 0 {
		return true
	}
	for _, w := range want {
		if w == have {
			return true
		}
	}
	return false
}
