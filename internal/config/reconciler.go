package config

import (
	"time"

	"gitlab.com/distributed_lab/figure/v3"
	"gitlab.com/distributed_lab/kit/comfig"
	"gitlab.com/distributed_lab/kit/kv"
	"gitlab.com/distributed_lab/logan/v3/errors"

	"github.com/brfiscal/nfe-issuer-svc/internal/reconciler"
)

type ReconcilerConfiger interface {
	ReconcilerConfig() ReconcilerConfig
}

type ReconcilerConfig struct {
	Interval   time.Duration `fig:"interval"`
	StaleAfter time.Duration `fig:"stale_after"`
	Disabled   bool          `fig:"disabled"`
}

func NewReconcilerConfiger(getter kv.Getter) ReconcilerConfiger {
	return &reconcilerConfig{
		getter: getter,
	}
}

type reconcilerConfig struct {
	getter kv.Getter
	once   comfig.Once
}

func (c *reconcilerConfig) ReconcilerConfig() ReconcilerConfig {
	return c.once.Do(func() interface{} {
		result := ReconcilerConfig{
			Interval:   reconciler.DefaultInterval,
			StaleAfter: reconciler.DefaultStaleAfter,
		}

		raw, err := c.getter.GetStringMap("reconciler")
		if err != nil {
			panic(errors.Wrap(err, "failed to get reconciler config"))
		}
		if raw == nil {
			return result
		}

		err = figure.Out(&result).From(raw).Please()
		if err != nil {
			panic(errors.Wrap(err, "failed to figure out reconciler config"))
		}

		return result
	}).(ReconcilerConfig)
}
