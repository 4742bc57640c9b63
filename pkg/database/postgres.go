package database

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voidshard/b2b/pkg/errors"
	"github.com/voidshard/b2b/pkg/structs"
)

const (
	tableInstance    = "job_instance"
	tableExecution   = "job_execution"
	tableFileVersion = "file_version"

	// postgres unique_violation
	pgUniqueViolation = "23505"

	// partial unique index allowing one execution without an end time per instance
	constraintOpenExecution = "job_execution_open_key"

	executionColumns = "id, instance_id, status, exit_code, exit_message, create_time, start_time, end_time, last_updated, version"
)

// Postgres is a b2b database implementation that uses postgres.
type Postgres struct {
	opts *Options
	pool *pgxpool.Pool
}

// NewPostgres returns a new Postgres database connection.
func NewPostgres(opts *Options) (*Postgres, error) {
	pool, err := pgxpool.New(context.Background(), opts.resolvedURL())
	return &Postgres{pool: pool, opts: opts}, err
}

// Close shuts down the database connection.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// InsertInstance inserts a job instance. The unique index on (name, job_key) means
// racing creators of the same instance will see exactly one winner.
func (p *Postgres) InsertInstance(ctx context.Context, in *structs.JobInstance) error {
	params, err := json.Marshal(in.Parameters)
	if err != nil {
		return err
	}
	if in.Parameters == nil {
		params = []byte(`{}`)
	}

	qstr := fmt.Sprintf(`INSERT INTO %s (name, job_key, version, parameters) VALUES ($1, $2, $3, $4) RETURNING id;`, tableInstance)

	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	err = conn.QueryRow(ctx, qstr, in.Name, in.JobKey, in.Version, params).Scan(&in.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w job instance %s with key %s", errors.ErrAlreadyExists, in.Name, in.JobKey)
	}
	return err
}

// Instances returns instances matching the given query
func (p *Postgres) Instances(ctx context.Context, q *structs.Query) ([]*structs.JobInstance, error) {
	where, args := toSqlQuery(map[string][]interface{}{
		"name":    toListInterface(q.JobNames),
		"job_key": toListInterface(q.JobKeys),
		"id":      int64sToInterface(q.InstanceIDs),
	})
	args = append(args, q.Limit, q.Offset)

	qstr := fmt.Sprintf(`SELECT id, name, job_key, version, parameters FROM %s %s ORDER BY id DESC LIMIT $%d OFFSET $%d;`,
		tableInstance, where, len(args)-1, len(args),
	)

	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, qstr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	instances := []*structs.JobInstance{}
	for rows.Next() {
		i := structs.JobInstance{}
		var params []byte
		err = rows.Scan(
			&i.ID,
			&i.Name,
			&i.JobKey,
			&i.Version,
			&params,
		)
		if err != nil {
			return nil, err
		}
		if len(params) > 0 {
			d := json.NewDecoder(bytes.NewReader(params))
			d.UseNumber()
			err = d.Decode(&i.Parameters)
			if err != nil {
				return nil, err
			}
		}
		instances = append(instances, &i)
	}

	return instances, rows.Err()
}

// JobNames returns all distinct job names
func (p *Postgres) JobNames(ctx context.Context) ([]string, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, fmt.Sprintf(`SELECT DISTINCT name FROM %s ORDER BY name;`, tableInstance))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		err = rows.Scan(&name)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// InsertExecution inserts an execution. An execution with an ID already set is only
// written if there's no record with that ID. An instance may have only one execution
// without an end time; a second is refused with ErrAlreadyRunning.
func (p *Postgres) InsertExecution(ctx context.Context, in *structs.JobExecution) error {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if in.ID == 0 {
		qstr := fmt.Sprintf(`INSERT INTO %s (instance_id, status, exit_code, exit_message, create_time, start_time, end_time, last_updated, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id;`, tableExecution)
		err = conn.QueryRow(ctx, qstr, toExecutionSqlArgs(in)[1:]...).Scan(&in.ID)
		return toExecutionWriteError(err, in)
	}

	qstr := fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) ON CONFLICT (id) DO NOTHING;`,
		tableExecution, executionColumns,
	)
	info, err := conn.Exec(ctx, qstr, toExecutionSqlArgs(in)...)
	if err != nil {
		return toExecutionWriteError(err, in)
	}
	if info.RowsAffected() == 0 {
		return nil
	}

	// an explicit id doesn't advance the sequence, move it past the id so later inserts don't collide
	qstr = fmt.Sprintf(`SELECT setval(pg_get_serial_sequence('%s', 'id'), GREATEST($1, nextval(pg_get_serial_sequence('%s', 'id'))));`,
		tableExecution, tableExecution,
	)
	_, err = conn.Exec(ctx, qstr, in.ID)
	return err
}

// UpdateExecution sets all fields of the execution where the stored version is expectVersion
func (p *Postgres) UpdateExecution(ctx context.Context, in *structs.JobExecution, expectVersion int32) (int64, error) {
	qstr := fmt.Sprintf(`UPDATE %s SET instance_id=$2, status=$3, exit_code=$4, exit_message=$5, create_time=$6,
	start_time=$7, end_time=$8, last_updated=$9, version=$10 WHERE id=$1 AND version=$11;`, tableExecution)
	args := append(toExecutionSqlArgs(in), expectVersion)

	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Release()

	info, err := conn.Exec(ctx, qstr, args...)
	if err != nil {
		return 0, toExecutionWriteError(err, in)
	}
	return info.RowsAffected(), nil
}

// Executions returns executions matching the given query
func (p *Postgres) Executions(ctx context.Context, q *structs.Query) ([]*structs.JobExecution, error) {
	extra := []string{}
	if q.Running {
		extra = append(extra, "end_time IS NULL")
	}
	where, args := toSqlQuery(map[string][]interface{}{
		"instance_id": int64sToInterface(q.InstanceIDs),
		"id":          int64sToInterface(q.ExecutionIDs),
		"status":      toListInterface(statusToStrings(q.Statuses)),
	}, extra...)
	args = append(args, q.Limit, q.Offset)

	qstr := fmt.Sprintf(`SELECT %s FROM %s %s ORDER BY %s LIMIT $%d OFFSET $%d;`,
		executionColumns, tableExecution, where, toSqlOrder(q.Sort), len(args)-1, len(args),
	)

	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, qstr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	execs := []*structs.JobExecution{}
	for rows.Next() {
		e := structs.JobExecution{}
		var status, exitCode string
		err = rows.Scan(
			&e.ID,
			&e.InstanceID,
			&status,
			&exitCode,
			&e.ExitMessage,
			&e.CreateTime,
			&e.StartTime,
			&e.EndTime,
			&e.LastUpdated,
			&e.Version,
		)
		if err != nil {
			return nil, err
		}
		e.Status = structs.ToStatus(status)
		e.ExitCode = structs.ExitCode(exitCode)
		execs = append(execs, &e)
	}

	return execs, rows.Err()
}

// LatestFileVersion returns the latest recorded version of a path
func (p *Postgres) LatestFileVersion(ctx context.Context, sourceID, path string) (*structs.FileVersion, error) {
	qstr := fmt.Sprintf(`SELECT source_id, path, content_digest, size, last_backed_up_at FROM %s
	WHERE source_id=$1 AND path=$2 ORDER BY last_backed_up_at DESC, id DESC LIMIT 1;`, tableFileVersion)

	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	v := structs.FileVersion{}
	err = conn.QueryRow(ctx, qstr, sourceID, path).Scan(
		&v.SourceID,
		&v.Path,
		&v.ContentDigest,
		&v.Size,
		&v.LastBackedUpAt,
	)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("%w file version %s %s", errors.ErrNotFound, sourceID, path)
	} else if err != nil {
		return nil, err
	}
	return &v, nil
}

// InsertFileVersion records a backed up file version
func (p *Postgres) InsertFileVersion(ctx context.Context, in *structs.FileVersion) error {
	qstr := fmt.Sprintf(`INSERT INTO %s (source_id, path, content_digest, size, last_backed_up_at) VALUES ($1, $2, $3, $4, $5);`, tableFileVersion)

	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, qstr, in.SourceID, in.Path, in.ContentDigest, in.Size, in.LastBackedUpAt)
	return err
}

// isUniqueViolation returns if the error is postgres complaining about a unique constraint
func isUniqueViolation(err error) bool {
	pgErr, ok := err.(*pgconn.PgError)
	return ok && pgErr.Code == pgUniqueViolation
}

// toExecutionWriteError maps a violation of the one open execution per instance rule
// to ErrAlreadyRunning
func toExecutionWriteError(err error, in *structs.JobExecution) error {
	if !isUniqueViolation(err) {
		return err
	}
	if err.(*pgconn.PgError).ConstraintName != constraintOpenExecution {
		return err
	}
	return fmt.Errorf("%w instance %d already has an open execution", errors.ErrAlreadyRunning, in.InstanceID)
}

// toSqlQuery converts query data into a SQL WHERE string & args.
// Extra clauses are ANDed on as given (they must not take args).
func toSqlQuery(in map[string][]interface{}, extra ...string) (string, []interface{}) {
	if in == nil {
		in = map[string][]interface{}{}
	}
	fields := []string{}
	for k := range in {
		fields = append(fields, k)
	}
	sort.Strings(fields) // stable arg order

	and := []string{}
	args := []interface{}{}
	for _, k := range fields {
		v := in[k]
		if len(v) == 0 {
			continue
		}
		s, a := toSqlIn(len(args)+1, k, v)
		and = append(and, s)
		args = append(args, a...)
	}
	and = append(and, extra...)
	if len(and) == 0 {
		return "", args
	}
	return fmt.Sprintf("WHERE %s", strings.Join(and, " AND ")), args
}

// toSqlIn converts a list of values into a SQL IN clause
func toSqlIn(offset int, field string, args []interface{}) (string, []interface{}) {
	if len(args) == 0 {
		return "", []interface{}{}
	}
	vals := []string{}
	for i := range args {
		vals = append(vals, fmt.Sprintf("$%d", i+offset))
	}
	return fmt.Sprintf("%s IN (%s)", field, strings.Join(vals, ", ")), args
}

// toSqlOrder returns the ORDER BY clause for a sort
func toSqlOrder(s structs.Sort) string {
	if s == structs.SortCreateTimeDesc {
		return "create_time DESC, id DESC"
	}
	return "id DESC"
}

// toListInterface converts a list of strings into a list of interfaces.
func toListInterface(in []string) []interface{} {
	l := make([]interface{}, len(in))
	for i, v := range in {
		l[i] = v
	}
	return l
}

// int64sToInterface converts a list of int64s into a list of interfaces.
func int64sToInterface(in []int64) []interface{} {
	l := make([]interface{}, len(in))
	for i, v := range in {
		l[i] = v
	}
	return l
}

// toExecutionSqlArgs converts an execution into args in executionColumns order
func toExecutionSqlArgs(e *structs.JobExecution) []interface{} {
	return []interface{}{
		e.ID,
		e.InstanceID,
		string(e.Status),
		string(e.ExitCode),
		e.ExitMessage,
		e.CreateTime,
		e.StartTime,
		e.EndTime,
		e.LastUpdated,
		e.Version,
	}
}

// statusToStrings converts a list of statuses into a list of strings
func statusToStrings(in []structs.Status) []string {
	if len(in) == 0 {
		return nil
	}
	out := []string{}
	for _, s := range in {
		out = append(out, string(s))
	}
	return out
}
