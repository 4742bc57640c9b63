package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/voidshard/b2b/pkg/api/http/common"
	"github.com/voidshard/b2b/pkg/structs"
)

type Client struct {
	url  *url.URL
	http *http.Client
}

// New returns a client of the b2b API at address. If httpClient is nil http.DefaultClient
// is used.
func New(address string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(address)
	if err != nil {
		return nil, err
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{url: u, http: httpClient}, nil
}

func (c *Client) JobNames(ctx context.Context) ([]string, error) {
	addr := c.addr(common.API_JOBS)
	var out []string
	return out, c.genericGet(ctx, addr, &out)
}

func (c *Client) Instances(ctx context.Context, name string, offset, limit int) ([]*structs.JobInstance, error) {
	addr := c.addr(common.API_JOB_INSTANCES, "{name}", name)
	setPage(addr, offset, limit)
	var out []*structs.JobInstance
	return out, c.genericGet(ctx, addr, &out)
}

func (c *Client) RunningExecutions(ctx context.Context, name string) ([]*structs.JobExecution, error) {
	addr := c.addr(common.API_JOB_RUNNING, "{name}", name)
	var out []*structs.JobExecution
	return out, c.genericGet(ctx, addr, &out)
}

func (c *Client) Executions(ctx context.Context, instanceID int64) ([]*structs.JobExecution, error) {
	addr := c.addr(common.API_INSTANCE_EXECUTIONS, "{id}", idString(instanceID))
	var out []*structs.JobExecution
	return out, c.genericGet(ctx, addr, &out)
}

func (c *Client) Execution(ctx context.Context, id int64) (*structs.JobExecution, error) {
	addr := c.addr(common.API_EXECUTION, "{id}", idString(id))
	var out structs.JobExecution
	err := c.genericGet(ctx, addr, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Stop(ctx context.Context, id int64) (*structs.JobExecution, error) {
	addr := c.addr(common.API_STOP, "{id}", idString(id))
	var out structs.JobExecution
	err := c.genericPatch(ctx, addr, nil, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Abandon(ctx context.Context, id int64) (*structs.JobExecution, error) {
	addr := c.addr(common.API_ABANDON, "{id}", idString(id))
	var out structs.JobExecution
	err := c.genericPatch(ctx, addr, nil, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Run(ctx context.Context, req *structs.RunRequest) (*structs.RunResponse, error) {
	addr := c.addr(common.API_RUNS)
	if req == nil {
		req = &structs.RunRequest{}
	}
	var out structs.RunResponse
	err := c.genericPost(ctx, addr, &structs.RunRequest{JobName: req.JobName, Parameters: req.Parameters.Normalize()}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// addr returns the URL of path with {var}, value pairs substituted
func (c *Client) addr(path string, vars ...string) *url.URL {
	for i := 0; i+1 < len(vars); i += 2 {
		path = strings.ReplaceAll(path, vars[i], url.PathEscape(vars[i+1]))
	}
	return &url.URL{Scheme: c.url.Scheme, Host: c.url.Host, Path: path}
}

func idString(id int64) string {
	return fmt.Sprintf("%d", id)
}

func setPage(u *url.URL, offset, limit int) {
	values := u.Query()
	if offset > 0 {
		values.Set("offset", strconv.Itoa(offset))
	}
	if limit > 0 {
		values.Set("limit", strconv.Itoa(limit))
	}
	u.RawQuery = values.Encode()
}
