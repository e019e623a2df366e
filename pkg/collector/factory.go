package collector

import (
	"log/slog"
	"time"
)

// Factory creates collectors bound to kubeconfig contexts. The runner depends
// on this interface so tests can inject collectors backed by fake clientsets.
type Factory interface {
	Create(contextName string) (*Collector, error)
}

// DefaultFactory builds collectors with real clientsets from a kubeconfig.
type DefaultFactory struct {
	Kubeconfig string
	Namespace  string
	Timeout    time.Duration
	Logger     *slog.Logger
}

func (f *DefaultFactory) Create(contextName string) (*Collector, error) {
	client, metrics, cfg, err := BuildClients(f.Kubeconfig, contextName)
	if err != nil {
		return nil, err
	}

	return &Collector{
		Client:    client,
		Metrics:   metrics,
		Context:   contextName,
		Server:    cfg.Host,
		Namespace: f.Namespace,
		Timeout:   f.Timeout,
		Logger:    f.Logger,
	}, nil
}
