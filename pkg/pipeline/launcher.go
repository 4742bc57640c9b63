// Package pipeline runs backups: collect files under a source root, filter out those
// unchanged since their last backup & send the rest to a peer, one at a time, while
// recording the run as a JobExecution.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	ie "github.com/voidshard/b2b/pkg/errors"
	"github.com/voidshard/b2b/pkg/files"
	"github.com/voidshard/b2b/pkg/peer"
	"github.com/voidshard/b2b/pkg/repository"
	"github.com/voidshard/b2b/pkg/structs"
)

const tracerName = "github.com/voidshard/b2b/pkg/pipeline"

var (
	timeNow = time.Now

	errStopped = fmt.Errorf("run stopped")
)

// Sender transmits one file & returns the receiver's acknowledgement
type Sender interface {
	Send(ctx context.Context, item *peer.Item) (*peer.Ack, error)
}

// Stats count what a run did
type Stats struct {
	Collected int
	Changed   int
	Sent      int
	Bytes     int64
}

func (s *Stats) String() string {
	return fmt.Sprintf("collected=%d changed=%d sent=%d bytes=%d", s.Collected, s.Changed, s.Sent, s.Bytes)
}

// Launcher runs backup jobs
type Launcher struct {
	repo     *repository.Repository
	versions files.VersionStore
	listener *Listener
	opts     *Options
	log      *zap.Logger
	tracer   trace.Tracer
}

// NewLauncher returns a launcher recording runs in repo & file versions in versions
func NewLauncher(repo *repository.Repository, versions files.VersionStore, opts *Options) *Launcher {
	if opts == nil {
		opts = OptionsDefault()
	}
	opts.setDefaults()
	return &Launcher{
		repo:     repo,
		versions: versions,
		listener: NewListener(repo, opts.Logger),
		opts:     opts,
		log:      opts.Logger,
		tracer:   otel.Tracer(tracerName),
	}
}

// Run backs up according to the job parameters (see structs.ToBackupConfig) as a new
// execution of the job instance the parameters identify.
//
// Returns ErrAlreadyRunning if the instance's last execution hasn't finished. A run
// that is stopped (by ctx or an administrator) ends STOPPED and isn't an error; a run
// that fails ends FAILED and its error is returned. Either way the execution is returned
// if one was created.
func (l *Launcher) Run(ctx context.Context, jobName string, params structs.JobParameters) (*structs.JobExecution, error) {
	cfg, err := structs.ToBackupConfig(params)
	if err != nil {
		return nil, err
	}
	hasher, err := files.NewHasher(cfg.HashAlgorithm)
	if err != nil {
		return nil, err
	}

	params = params.Normalize()
	params[structs.ParamTargetType] = string(structs.KindPeer)

	instance, err := l.getOrCreateInstance(ctx, jobName, params)
	if err != nil {
		return nil, err
	}

	last, err := l.repo.GetLastExecution(ctx, instance)
	if err != nil {
		return nil, err
	}
	if last != nil && last.IsRunning() {
		return nil, fmt.Errorf("%w job %s instance %d execution %d is %s", ie.ErrAlreadyRunning, jobName, instance.ID, last.ID, last.Status)
	}

	exec := structs.NewJobExecution(instance.ID, timeNow())
	err = l.repo.SaveExecution(ctx, exec)
	if err != nil {
		return nil, err
	}

	log := l.log.With(zap.String("job", jobName), zap.Int64("instance", instance.ID), zap.Int64("execution", exec.ID))
	ctx, span := l.tracer.Start(ctx, "backup.run", trace.WithAttributes(
		attribute.String("job", jobName),
		attribute.Int64("execution", exec.ID),
		attribute.String("source.root", cfg.Source.Root),
		attribute.String("target", cfg.Target.ID),
	))
	defer span.End()

	err = l.listener.BeforeJob(ctx, exec)
	if err != nil {
		return exec, err
	}

	log.Info("backup started", zap.String("root", cfg.Source.Root), zap.String("target", cfg.Target.ID))
	start := timeNow()
	stats, runErr := l.execute(ctx, exec, cfg, hasher, log)

	status, code, msg := structs.COMPLETED, structs.ExitCompleted, stats.String()
	switch {
	case errors.Is(runErr, errStopped):
		status, code = structs.STOPPED, structs.ExitStopped
		runErr = nil
	case runErr != nil:
		status, code, msg = structs.FAILED, structs.ExitFailed, fmt.Sprintf("%v; %s", runErr, stats)
		span.RecordError(runErr)
		span.SetStatus(codes.Error, runErr.Error())
	case stats.Changed == 0:
		code = structs.ExitNoop
	}

	// record the outcome even if we were stopped by ctx
	err = l.listener.AfterJob(context.WithoutCancel(ctx), exec, status, code, msg)
	if runErr == nil {
		runErr = err
	}

	if l.opts.Metrics != nil {
		l.opts.Metrics.runs.WithLabelValues(string(exec.Status)).Inc()
		l.opts.Metrics.runDuration.Observe(timeNow().Sub(start).Seconds())
	}
	log.Info("backup finished", zap.String("status", string(exec.Status)), zap.String("summary", msg))
	return exec, runErr
}

// getOrCreateInstance returns the instance of the job for the params, creating it if needed
func (l *Launcher) getOrCreateInstance(ctx context.Context, jobName string, params structs.JobParameters) (*structs.JobInstance, error) {
	in, err := l.repo.GetInstance(ctx, jobName, params)
	if err != nil || in != nil {
		return in, err
	}
	in, err = l.repo.CreateInstance(ctx, jobName, params)
	if errors.Is(err, ie.ErrAlreadyExists) {
		// someone else created it first
		return l.repo.GetInstance(ctx, jobName, params)
	}
	return in, err
}

// execute walks, filters & sends, one file at a time. A file's version is recorded
// only once the peer has acknowledged it.
func (l *Launcher) execute(ctx context.Context, exec *structs.JobExecution, cfg *structs.BackupConfig, hasher *files.Hasher, log *zap.Logger) (*Stats, error) {
	stats := &Stats{}

	collector := files.NewCollector(l.opts.Fs, log)
	filter := files.NewChangeFilter(l.opts.Fs, l.versions, hasher, cfg.Source.ID, log)
	sender := l.opts.NewSender(l.opts.Fs, cfg, l.opts)

	found, total := collector.Walk(cfg.Source.Root)
	stats.Collected = len(found)
	if l.opts.Metrics != nil {
		l.opts.Metrics.filesCollected.Add(float64(len(found)))
	}
	log.Debug("collected files", zap.Int("count", len(found)), zap.Int64("bytes", total))

	lastCheck := timeNow()
	for _, f := range found {
		err := l.checkStop(ctx, exec, &lastCheck)
		if err != nil {
			return stats, err
		}

		digest, changed, err := filter.Changed(ctx, f)
		if err != nil {
			return stats, err
		}
		if !changed {
			if l.opts.Metrics != nil {
				l.opts.Metrics.filesSkipped.Inc()
			}
			continue
		}
		stats.Changed++

		ack, err := l.send(ctx, sender, &peer.Item{File: f, Digest: digest, Algorithm: hasher.Algorithm(), SourceID: cfg.Source.ID})
		if err != nil {
			if ctx.Err() != nil {
				return stats, errStopped
			}
			return stats, err
		}

		err = l.versions.InsertFileVersion(ctx, &structs.FileVersion{
			Path:           f.Rel,
			ContentDigest:  digest,
			Size:           ack.Size,
			LastBackedUpAt: timeNow(),
			SourceID:       cfg.Source.ID,
		})
		if err != nil {
			return stats, err
		}

		stats.Sent++
		stats.Bytes += ack.Size
	}

	return stats, nil
}

// send transmits a single item in its own span
func (l *Launcher) send(ctx context.Context, sender Sender, item *peer.Item) (*peer.Ack, error) {
	ctx, span := l.tracer.Start(ctx, "backup.send", trace.WithAttributes(
		attribute.String("path", item.File.Rel),
		attribute.Int64("size", item.File.Size),
	))
	defer span.End()

	ack, err := sender.Send(ctx, item)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if l.opts.Metrics != nil {
			l.opts.Metrics.sendFailures.Inc()
		}
		return nil, err
	}

	if l.opts.Metrics != nil {
		l.opts.Metrics.filesSent.Inc()
		l.opts.Metrics.bytesSent.Add(float64(ack.Size))
	}
	return ack, nil
}

// checkStop returns errStopped if ctx is done or the stored execution has been moved to
// STOPPING. The store is consulted at most once per StopCheckInterval.
func (l *Launcher) checkStop(ctx context.Context, exec *structs.JobExecution, lastCheck *time.Time) error {
	if ctx.Err() != nil {
		return errStopped
	}

	now := timeNow()
	if now.Sub(*lastCheck) < l.opts.StopCheckInterval {
		return nil
	}
	*lastCheck = now

	err := l.repo.SynchronizeStatus(ctx, exec)
	if err != nil {
		return err
	}
	if exec.Status == structs.STOPPING || !structs.IsRunningStatus(exec.Status) {
		return errStopped
	}
	return nil
}
