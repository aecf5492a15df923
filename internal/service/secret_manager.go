package service

import (
	"context"
	"fmt"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/api/option"
)

// SecretManagerService reads application secrets such as the Gemini API key.
type SecretManagerService interface {
	AccessSecret(ctx context.Context, name string) (string, error)
	Close() error
}

type secretManagerService struct {
	client    *secretmanager.Client
	projectID string
}

func NewSecretManagerService(ctx context.Context, projectID, credentialsFile string) (SecretManagerService, error) {
	if projectID == "" {
		return nil, fmt.Errorf("GCP Project ID is not set")
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Secret Manager client: %w", err)
	}

	return &secretManagerService{
		client:    client,
		projectID: projectID,
	}, nil
}

// AccessSecret returns the latest version of a secret. name may be a short
// secret id or a full resource path.
func (s *secretManagerService) AccessSecret(ctx context.Context, name string) (string, error) {
	resourceName := name
	if !strings.HasPrefix(name, "projects/") {
		resourceName = fmt.Sprintf("projects/%s/secrets/%s/versions/latest", s.projectID, name)
	}

	result, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: resourceName,
	})
	if err != nil {
		return "", fmt.Errorf("failed to access secret version: %w", err)
	}
	return strings.TrimSpace(string(result.Payload.Data)), nil
}

func (s *secretManagerService) Close() error {
	return s.client.Close()
}

// ResolveAPIKey returns direct when set, and otherwise reads secretName from
// the secret manager.
func ResolveAPIKey(ctx context.Context, direct, secretName string, secrets SecretManagerService) (string, error) {
	if direct != "" {
		return direct, nil
	}
	if secretName == "" {
		return "", fmt.Errorf("no API key or secret name configured")
	}
	if secrets == nil {
		return "", fmt.Errorf("secret %q configured but secret manager is unavailable", secretName)
	}
	return secrets.AccessSecret(ctx, secretName)
}
