package config

import (
	"gitlab.com/distributed_lab/kit/comfig"
	"gitlab.com/distributed_lab/kit/copus"
	"gitlab.com/distributed_lab/kit/copus/types"
	"gitlab.com/distributed_lab/kit/kv"
	"gitlab.com/distributed_lab/kit/pgdb"
)

type Config interface {
	comfig.Logger
	pgdb.Databaser
	types.Copuser
	comfig.Listenerer

	SefazConfiger
	VaultConfiger
	ReconcilerConfiger
}

type config struct {
	comfig.Logger
	pgdb.Databaser
	types.Copuser
	comfig.Listenerer

	SefazConfiger
	VaultConfiger
	ReconcilerConfiger

	getter kv.Getter
}

func New(getter kv.Getter) Config {
	return &config{
		getter:             getter,
		Logger:             comfig.NewLogger(getter, comfig.LoggerOpts{}),
		Databaser:          pgdb.NewDatabaser(getter),
		Copuser:            copus.NewCopuser(getter),
		Listenerer:         comfig.NewListenerer(getter),
		SefazConfiger:      NewSefazConfiger(getter),
		VaultConfiger:      NewVaultConfiger(getter),
		ReconcilerConfiger: NewReconcilerConfiger(getter),
	}
}
