package config

import (
	"time"

	"gitlab.com/distributed_lab/figure/v3"
	"gitlab.com/distributed_lab/kit/comfig"
	"gitlab.com/distributed_lab/kit/kv"
	"gitlab.com/distributed_lab/logan/v3/errors"

	"github.com/brfiscal/nfe-issuer-svc/internal/sefaz"
	"github.com/brfiscal/nfe-issuer-svc/internal/types"
)

type SefazConfiger interface {
	SefazConfig() SefazConfig
}

type SefazConfig struct {
	Timeout   time.Duration
	Endpoints sefaz.Endpoints
}

func NewSefazConfiger(getter kv.Getter) SefazConfiger {
	return &sefazConfig{
		getter: getter,
	}
}

type sefazConfig struct {
	getter kv.Getter
	once   comfig.Once
}

func (c *sefazConfig) SefazConfig() SefazConfig {
	return c.once.Do(func() interface{} {
		var disk struct {
			Timeout   time.Duration          `fig:"timeout"`
			Endpoints map[string]interface{} `fig:"endpoints,required"`
		}

		err := figure.
			Out(&disk).
			With(figure.BaseHooks, MapHooks).
			From(kv.MustGetStringMap(c.getter, "sefaz")).
			Please()
		if err != nil {
			panic(errors.Wrap(err, "failed to figure out sefaz config"))
		}

		endpoints, err := parseEndpoints(disk.Endpoints)
		if err != nil {
			panic(errors.Wrap(err, "failed to parse sefaz endpoints"))
		}

		if disk.Timeout <= 0 {
			disk.Timeout = sefaz.DefaultTimeout
		}

		return SefazConfig{
			Timeout:   disk.Timeout,
			Endpoints: endpoints,
		}
	}).(SefazConfig)
}

// parseEndpoints converts the raw yaml tree environment -> UF -> service
// URLs into the typed endpoint table the transport is built on.
func parseEndpoints(raw map[string]interface{}) (sefaz.Endpoints, error) {
	endpoints := make(sefaz.Endpoints)

	for envName, ufsRaw := range raw {
		env, ok := types.IsValidEnvironment(envName)
		if !ok {
			return nil, errors.Errorf("unknown environment %q", envName)
		}

		ufs, err := toStringMap(ufsRaw)
		if err != nil {
			return nil, errors.Wrap(err, "invalid UF table", map[string]interface{}{"environment": envName})
		}

		endpoints[env] = make(map[string]sefaz.ServiceURLs)
		for uf, urlsRaw := range ufs {
			urls, err := toStringMap(urlsRaw)
			if err != nil {
				return nil, errors.Wrap(err, "invalid service URLs", map[string]interface{}{"uf": uf})
			}

			serviceURLs := sefaz.ServiceURLs{
				Authorization: stringAt(urls, "authorization"),
				Query:         stringAt(urls, "query"),
				Event:         stringAt(urls, "event"),
			}
			if serviceURLs.Authorization == "" || serviceURLs.Query == "" || serviceURLs.Event == "" {
				return nil, errors.Errorf("incomplete service URLs for %s/%s", envName, uf)
			}

			endpoints[env][uf] = serviceURLs
		}
	}

	return endpoints, nil
}

func toStringMap(value interface{}) (map[string]interface{}, error) {
	switch m := value.(type) {
	case map[string]interface{}:
		return m, nil
	case map[interface{}]interface{}:
		result := make(map[string]interface{}, len(m))
		for key, v := range m {
			s, ok := key.(string)
			if !ok {
				return nil, errors.Errorf("non-string key %v", key)
			}
			result[s] = v
		}
		return result, nil
	default:
		return nil, errors.Errorf("expected a map, got %T", value)
	}
}

func stringAt(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}
