package pipeline

import (
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/voidshard/b2b/pkg/peer"
	"github.com/voidshard/b2b/pkg/structs"
)

const (
	defStopCheckInterval = 2 * time.Second
)

// SenderFactory builds the Sender a run transmits files with
type SenderFactory func(fs afero.Fs, cfg *structs.BackupConfig, opts *Options) Sender

// Options for a Launcher
type Options struct {
	// Fs is the filesystem backed up from, defaults to the OS filesystem
	Fs afero.Fs

	Logger *zap.Logger

	// StopCheckInterval is how often (at most) a run checks the store to see if an
	// administrator has asked it to stop.
	StopCheckInterval time.Duration

	// SendTimeout bounds the transfer of one file (see peer.WriterOptions)
	SendTimeout time.Duration

	// Metrics, if set, are updated as runs progress
	Metrics *Collector

	// NewSender defaults to a peer.Writer to the configured target
	NewSender SenderFactory
}

// OptionsDefault returns default launcher options
func OptionsDefault() *Options {
	o := &Options{}
	o.setDefaults()
	return o
}

func (o *Options) setDefaults() {
	if o.Fs == nil {
		o.Fs = afero.NewOsFs()
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.StopCheckInterval <= 0 {
		o.StopCheckInterval = defStopCheckInterval
	}
	if o.NewSender == nil {
		o.NewSender = newPeerSender
	}
}

func newPeerSender(fs afero.Fs, cfg *structs.BackupConfig, opts *Options) Sender {
	return peer.NewWriter(fs, &peer.WriterOptions{
		Hostname:    cfg.Target.Hostname,
		Port:        cfg.Target.Port,
		SendTimeout: opts.SendTimeout,
		Logger:      opts.Logger,
	})
}
