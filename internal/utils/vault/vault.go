package vault

import (
	"fmt"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultServiceAccountTokenPath = "/var/run/secrets/kubernetes.io/serviceaccount/token"

// VaultClient reads secrets from a Vault KV v2 mount after a Kubernetes login.
type VaultClient struct {
	client       *resty.Client
	kvSecretPath string
	role         string
	tokenPath    string
	token        string
	secrets      map[string]string
}

type Option func(*VaultClient)

// WithServiceAccountTokenPath changes where the Kubernetes token is read from.
func WithServiceAccountTokenPath(path string) Option {
	return func(vc *VaultClient) {
		vc.tokenPath = path
	}
}

type vaultErrorResponse struct {
	Errors []string `json:"errors"`
}

type loginResponse struct {
	Auth *struct {
		ClientToken string `json:"client_token"`
	} `json:"auth"`
}

type kvResponse struct {
	Data *struct {
		Data map[string]interface{} `json:"data"`
	} `json:"data"`
}

// New logs in to Vault and returns a client ready to read kvSecretPath.
func New(addr, kvSecretPath, role string, opts ...Option) (*VaultClient, error) {
	vc := &VaultClient{
		client: resty.New().
			SetBaseURL(addr).
			SetTimeout(10*time.Second).
			SetHeader("Content-Type", "application/json"),
		kvSecretPath: kvSecretPath,
		role:         role,
		tokenPath:    defaultServiceAccountTokenPath,
	}
	for _, opt := range opts {
		opt(vc)
	}

	token, err := vc.login()
	if err != nil {
		return nil, err
	}
	vc.token = token
	return vc, nil
}

// GetKubernetesToken reads the Kubernetes service account token
func (vc *VaultClient) GetKubernetesToken() (string, error) {
	token, err := os.ReadFile(vc.tokenPath)
	if err != nil {
		return "", fmt.Errorf("failed to read token: %v", err)
	}
	return string(token), nil
}

func (vc *VaultClient) login() (string, error) {
	k8sToken, err := vc.GetKubernetesToken()
	if err != nil {
		return "", err
	}

	var (
		result    loginResponse
		errResult vaultErrorResponse
	)
	resp, err := vc.client.R().
		SetBody(map[string]string{
			"jwt":  k8sToken,
			"role": vc.role,
		}).
		SetResult(&result).
		SetError(&errResult).
		Post("/v1/auth/kubernetes/login")
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", fmt.Errorf("vault authentication failed with status %d: %v", resp.StatusCode(), errResult.Errors)
	}
	if result.Auth == nil || result.Auth.ClientToken == "" {
		return "", fmt.Errorf("vault returned empty client_token")
	}
	return result.Auth.ClientToken, nil
}

// GetKV returns one key of the KV secret. The secret is fetched once and kept
// for later lookups.
func (vc *VaultClient) GetKV(secretKey string) (string, error) {
	if vc.secrets == nil {
		secrets, err := vc.fetchKV()
		if err != nil {
			return "", err
		}
		vc.secrets = secrets
	}

	secret, ok := vc.secrets[secretKey]
	if !ok {
		return "", fmt.Errorf("secret key '%s' not found", secretKey)
	}
	return secret, nil
}

func (vc *VaultClient) fetchKV() (map[string]string, error) {
	var (
		result    kvResponse
		errResult vaultErrorResponse
	)
	resp, err := vc.client.R().
		SetHeader("X-Vault-Token", vc.token).
		SetResult(&result).
		SetError(&errResult).
		Get("/v1/" + vc.kvSecretPath)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("vault KV get failed with status %d: %v", resp.StatusCode(), errResult.Errors)
	}
	if result.Data == nil || result.Data.Data == nil {
		return nil, fmt.Errorf("vault response missing nested 'data' field")
	}

	secrets := make(map[string]string, len(result.Data.Data))
	for k, v := range result.Data.Data {
		if s, ok := v.(string); ok {
			secrets[k] = s
		}
	}
	return secrets, nil
}
