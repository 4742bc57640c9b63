package main

import (
	"fmt"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/voidshard/b2b/pkg/api/http/client"
	"github.com/voidshard/b2b/pkg/config"
	"github.com/voidshard/b2b/pkg/pipeline"
	"github.com/voidshard/b2b/pkg/structs"
)

const (
	docRun = `Run a backup job now, or queue it via the API with --remote`
)

type optsRun struct {
	optsGeneral
	optsDatabase

	Config string `long:"config" env:"CONFIG" description:"Path to backup config file; the job is looked up by name"`

	Root     string `long:"root" description:"Source directory (if not using --config)"`
	SourceID string `long:"source-id" description:"Stable ID of the source, defaults to a digest of the root"`
	Host     string `long:"host" description:"Peer hostname (if not using --config)"`
	Port     int    `long:"port" description:"Peer port (if not using --config)" default:"8200"`
	Hash     string `long:"hash" description:"Content hash algorithm (md5, sha1, sha256, xxhash)"`

	SendTimeout time.Duration `long:"send-timeout" env:"SEND_TIMEOUT" description:"Max time to send one file" default:"10m"`

	Remote string `long:"remote" env:"REMOTE" description:"Queue the run via the b2b API at this URL rather than running it here"`

	Args struct {
		Job string `positional-arg-name:"job" required:"yes"`
	} `positional-args:"yes"`
}

func (c *optsRun) Execute(args []string) error {
	log := newLogger(c.Debug)
	defer log.Sync()

	params, err := c.parameters()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	if c.Remote != "" {
		cli, err := client.New(c.Remote, nil)
		if err != nil {
			return err
		}
		resp, err := cli.Run(ctx, &structs.RunRequest{JobName: c.Args.Job, Parameters: params})
		if err != nil {
			return err
		}
		log.Info("run queued", zap.String("job", c.Args.Job), zap.String("task", resp.QueueTaskID))
		return nil
	}

	repo, db, err := c.openRepository(log)
	if err != nil {
		return err
	}
	defer repo.Close()

	launcher := pipeline.NewLauncher(repo, db, &pipeline.Options{
		Logger:      log,
		SendTimeout: c.SendTimeout,
	})

	exec, err := launcher.Run(ctx, c.Args.Job, params)
	if exec != nil {
		log.Info("execution finished",
			zap.Int64("execution", exec.ID),
			zap.String("status", string(exec.Status)),
			zap.String("exit_code", string(exec.ExitCode)),
			zap.String("summary", exec.ExitMessage),
		)
	}
	return err
}

// parameters returns the job parameters from the config file, or from flags
func (c *optsRun) parameters() (structs.JobParameters, error) {
	if c.Config != "" {
		cfg, err := config.Load(afero.NewOsFs(), c.Config)
		if err != nil {
			return nil, err
		}
		return cfg.JobParameters(c.Args.Job)
	}

	if c.Root == "" || c.Host == "" {
		return nil, fmt.Errorf("either --config or both --root and --host are required")
	}
	params := structs.JobParameters{
		structs.ParamSourceRoot:     c.Root,
		structs.ParamTargetHostname: c.Host,
		structs.ParamTargetPort:     c.Port,
	}
	if c.SourceID != "" {
		params[structs.ParamSourceID] = c.SourceID
	}
	if c.Hash != "" {
		params[structs.ParamHashAlgorithm] = c.Hash
	}
	return params, nil
}
