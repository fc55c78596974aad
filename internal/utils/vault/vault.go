package vault

import (
	"fmt"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

const kubernetesTokenPath = "/var/run/secrets/kubernetes.io/serviceaccount/token"

// VaultClient reads service secrets (signing service api key, BRLA credentials) from a KV v2 mount.
type VaultClient struct {
	client       *resty.Client
	kvSecretPath string
	role         string
	token        string
}

type loginResponse struct {
	Auth *struct {
		ClientToken string `json:"client_token"`
	} `json:"auth"`
	Errors []string `json:"errors"`
}

type kvResponse struct {
	Data *struct {
		Data map[string]interface{} `json:"data"`
	} `json:"data"`
	Errors []string `json:"errors"`
}

// New logs into Vault. A static token (VAULT_TOKEN) wins over kubernetes service account auth.
func New(addr, kvSecretPath, role, staticToken string) (*VaultClient, error) {
	vc := &VaultClient{
		client:       resty.New().SetBaseURL(addr).SetTimeout(10 * time.Second),
		role:         role,
		kvSecretPath: kvSecretPath,
		token:        staticToken,
	}
	if vc.token != "" {
		return vc, nil
	}

	k8sToken, err := os.ReadFile(kubernetesTokenPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read service account token")
	}

	vc.token, err = vc.login(string(k8sToken))
	if err != nil {
		return nil, err
	}
	return vc, nil
}

func (vc *VaultClient) login(jwt string) (string, error) {
	var result loginResponse
	resp, err := vc.client.R().
		SetBody(map[string]string{"jwt": jwt, "role": vc.role}).
		SetResult(&result).
		SetError(&result).
		Post("/v1/auth/kubernetes/login")
	if err != nil {
		return "", errors.Wrap(err, "vault login request failed")
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("vault authentication failed with status %d: %v", resp.StatusCode(), result.Errors)
	}
	if result.Auth == nil || result.Auth.ClientToken == "" {
		return "", errors.New("vault returned empty client_token")
	}

	return result.Auth.ClientToken, nil
}

// GetKV retrieves a single string secret from the configured KV v2 path.
func (vc *VaultClient) GetKV(secretKey string) (string, error) {
	var result kvResponse
	resp, err := vc.client.R().
		SetHeader("X-Vault-Token", vc.token).
		SetResult(&result).
		SetError(&result).
		Get("/v1/" + vc.kvSecretPath)
	if err != nil {
		return "", errors.Wrap(err, "vault kv request failed")
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("vault KV get failed with status %d: %v", resp.StatusCode(), result.Errors)
	}
	if result.Data == nil || result.Data.Data == nil {
		return "", errors.New("vault response missing nested 'data' field")
	}

	raw, ok := result.Data.Data[secretKey]
	if !ok {
		return "", fmt.Errorf("secret key '%s' not found", secretKey)
	}
	secret, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("secret value for key '%s' is not a string", secretKey)
	}

	return secret, nil
}
