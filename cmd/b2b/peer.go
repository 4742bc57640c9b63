package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/afero"

	"github.com/voidshard/b2b/pkg/blob"
	"github.com/voidshard/b2b/pkg/peer"
)

const (
	docPeer = `Receive backups from other machines`
)

type optsPeer struct {
	optsGeneral

	Addr        string        `long:"addr" env:"ADDR" description:"Address to bind to" default:":8200"`
	ReadTimeout time.Duration `long:"read-timeout" env:"READ_TIMEOUT" description:"Max time to receive one file" default:"30m"`

	StoreDir string `long:"store-dir" env:"STORE_DIR" description:"Store received files under this directory"`

	MinioEndpoint  string `long:"minio-endpoint" env:"MINIO_ENDPOINT" description:"Store received files in MinIO / S3 at this endpoint"`
	MinioAccessKey string `long:"minio-access-key" env:"MINIO_ACCESS_KEY" description:"MinIO access key"`
	MinioSecretKey string `long:"minio-secret-key" env:"MINIO_SECRET_KEY" description:"MinIO secret key"`
	MinioBucket    string `long:"minio-bucket" env:"MINIO_BUCKET" description:"MinIO bucket" default:"b2b-backups"`
	MinioSSL       bool   `long:"minio-ssl" env:"MINIO_SSL" description:"Use TLS to talk to MinIO"`
}

func (c *optsPeer) Execute(args []string) error {
	log := newLogger(c.Debug)
	defer log.Sync()

	ctx, cancel := signalContext()
	defer cancel()

	store, err := c.store(ctx)
	if err != nil {
		return err
	}

	srv, err := peer.NewServer(store, &peer.ServerOptions{
		Addr:        c.Addr,
		ReadTimeout: c.ReadTimeout,
		Logger:      log,
		Registry:    newRegistry(),
	})
	if err != nil {
		return err
	}
	return srv.ServeForever(ctx)
}

func (c *optsPeer) store(ctx context.Context) (blob.BlobStore, error) {
	switch {
	case c.MinioEndpoint != "":
		return blob.NewMinio(ctx, &blob.MinioOptions{
			Endpoint:  c.MinioEndpoint,
			AccessKey: c.MinioAccessKey,
			SecretKey: c.MinioSecretKey,
			Bucket:    c.MinioBucket,
			UseSSL:    c.MinioSSL,
		})
	case c.StoreDir != "":
		return blob.NewFilesystem(afero.NewOsFs(), c.StoreDir)
	}
	return nil, fmt.Errorf("one of --store-dir or --minio-endpoint is required")
}
