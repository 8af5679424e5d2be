package config

import (
	"os"
	"reflect"

	vaultapi "github.com/hashicorp/vault/api"
	"gitlab.com/distributed_lab/figure/v3"
	"gitlab.com/distributed_lab/kit/comfig"
	"gitlab.com/distributed_lab/kit/kv"
	"gitlab.com/distributed_lab/logan/v3/errors"

	"github.com/brfiscal/nfe-issuer-svc/internal/vault"
)

type VaultConfiger interface {
	CertificateVault() vault.CertificateVault
}

// VaultConfig locates the KVv2 engine certificate bundles live under.
// VAULT_ADDR and VAULT_TOKEN come from the standard vault environment.
type VaultConfig struct {
	MountPath  string `fig:"mount_path,required"`
	SecretPath string `fig:"secret_path,required"`
}

func NewVaultConfiger(getter kv.Getter) VaultConfiger {
	return &vaultConfig{
		getter: getter,
	}
}

type vaultConfig struct {
	getter kv.Getter
	once   comfig.Once
}

func (c *vaultConfig) CertificateVault() vault.CertificateVault {
	return c.once.Do(func() interface{} {
		cfg := VaultConfig{
			MountPath:  os.Getenv("VAULT_MOUNT_PATH"),
			SecretPath: os.Getenv("VAULT_SECRET_PATH"),
		}

		if cfg.MountPath == "" || cfg.SecretPath == "" {
			err := figure.
				Out(&cfg).
				From(kv.MustGetStringMap(c.getter, "vault")).
				Please()
			if err != nil {
				panic(errors.Wrap(err, "failed to figure out vault config"))
			}
		}

		client, err := vaultapi.NewClient(vaultapi.DefaultConfig())
		if err != nil {
			panic(errors.Wrap(err, "failed to initialize vault client"))
		}

		return vault.NewKVv2(client, cfg.MountPath, cfg.SecretPath)
	}).(vault.CertificateVault)
}

var MapHooks = figure.Hooks{
	"map[string]interface{}": func(value interface{}) (reflect.Value, error) {
		if value == nil {
			return reflect.Value{}, nil
		}

		var params map[string]interface{}
		switch s := value.(type) {
		case map[interface{}]interface{}:
			params = make(map[string]interface{})
			for key, v := range s {
				params[key.(string)] = v
			}
		case map[string]interface{}:
			params = s
		default:
			return reflect.Value{}, errors.New("unexpected type while figure map[string]interface{}")
		}

		return reflect.ValueOf(params), nil
	},
}
