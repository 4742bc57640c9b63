package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/voidshard/b2b/pkg/api/http/client"
	"github.com/voidshard/b2b/pkg/structs"
)

const (
	docStatus = `Show job executions, or stop / abandon one, via the API`
)

type optsStatus struct {
	Addr string `long:"addr" env:"B2B_API" description:"URL of the b2b API" default:"http://localhost:8100"`

	Execution int64 `long:"execution" description:"Show this execution"`
	Instance  int64 `long:"instance" description:"Show the executions of this instance"`
	Stop      int64 `long:"stop" description:"Ask this execution to stop"`
	Abandon   int64 `long:"abandon" description:"Abandon this (stopped or failed) execution"`

	Args struct {
		Job string `positional-arg-name:"job"`
	} `positional-args:"yes"`
}

// jobStatus is what we print for a single job
type jobStatus struct {
	Instances []*structs.JobInstance  `json:"instances"`
	Running   []*structs.JobExecution `json:"running"`
}

func (c *optsStatus) Execute(args []string) error {
	cli, err := client.New(c.Addr, nil)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	out, err := c.query(ctx, cli)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func (c *optsStatus) query(ctx context.Context, cli *client.Client) (interface{}, error) {
	switch {
	case c.Stop > 0:
		return cli.Stop(ctx, c.Stop)
	case c.Abandon > 0:
		return cli.Abandon(ctx, c.Abandon)
	case c.Execution > 0:
		return cli.Execution(ctx, c.Execution)
	case c.Instance > 0:
		return cli.Executions(ctx, c.Instance)
	case c.Args.Job != "":
		instances, err := cli.Instances(ctx, c.Args.Job, 0, 0)
		if err != nil {
			return nil, err
		}
		running, err := cli.RunningExecutions(ctx, c.Args.Job)
		if err != nil {
			return nil, err
		}
		return &jobStatus{Instances: instances, Running: running}, nil
	}
	return cli.JobNames(ctx)
}
