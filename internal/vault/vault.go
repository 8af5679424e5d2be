package vault

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	vault "github.com/hashicorp/vault/api"
	"gitlab.com/distributed_lab/logan/v3/errors"
)

// CertificateVault keeps PKCS#12 bundles and their passwords out of the
// database. The rest of the service only ever holds them for the duration
// of a single operation.
type CertificateVault interface {
	Store(ctx context.Context, handle string, bundle []byte, password string) error
	Retrieve(ctx context.Context, handle string) (*Secret, error)
	Delete(ctx context.Context, handle string) error
}

type Secret struct {
	Bundle   []byte
	Password string
}

const (
	bundleField   = "bundle"
	passwordField = "password"
)

func NewKVv2(client *vault.Client, mountPath, basePath string) CertificateVault {
	return &kvVault{
		client:    client,
		mountPath: mountPath,
		basePath:  strings.TrimSuffix(basePath, "/"),
	}
}

type kvVault struct {
	client    *vault.Client
	mountPath string
	basePath  string
}

func (v *kvVault) path(handle string) string {
	return fmt.Sprintf("%s/%s", v.basePath, handle)
}

func (v *kvVault) Store(ctx context.Context, handle string, bundle []byte, password string) error {
	_, err := v.client.KVv2(v.mountPath).Put(ctx, v.path(handle), map[string]interface{}{
		bundleField:   base64.StdEncoding.EncodeToString(bundle),
		passwordField: password,
	})
	if err != nil {
		return errors.Wrap(err, "failed to put secret")
	}

	return nil
}

func (v *kvVault) Retrieve(ctx context.Context, handle string) (*Secret, error) {
	secret, err := v.client.KVv2(v.mountPath).Get(ctx, v.path(handle))
	if err != nil {
		return nil, errors.Wrap(err, "failed to get secret")
	}

	encoded, ok := secret.Data[bundleField].(string)
	if !ok {
		return nil, errors.New("secret has no bundle field")
	}
	password, ok := secret.Data[passwordField].(string)
	if !ok {
		return nil, errors.New("secret has no password field")
	}

	bundle, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode bundle")
	}

	return &Secret{Bundle: bundle, Password: password}, nil
}

func (v *kvVault) Delete(ctx context.Context, handle string) error {
	err := v.client.KVv2(v.mountPath).Delete(ctx, v.path(handle))
	if err != nil {
		return errors.Wrap(err, "failed to delete secret")
	}

	return nil
}
