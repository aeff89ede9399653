package secrets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type fakeClient struct {
	values map[string]string
	calls  []string
}

func (f *fakeClient) AccessSecretVersion(_ context.Context, req *secretmanagerpb.AccessSecretVersionRequest, _ ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	f.calls = append(f.calls, req.GetName())
	value, ok := f.values[req.GetName()]
	if !ok {
		return nil, status.Error(codes.NotFound, "missing")
	}
	return &secretmanagerpb.AccessSecretVersionResponse{
		Payload: &secretmanagerpb.SecretPayload{Data: []byte(value)},
	}, nil
}

func (f *fakeClient) Close() error { return nil }

func TestResolveFromSecretManagerIsCached(t *testing.T) {
	client := &fakeClient{values: map[string]string{
		"projects/ciphera/secrets/web-session/versions/latest": "s3cr3t",
	}}
	r := NewResolver(context.Background(), "ciphera", withClient(client), WithFallbackFile(""))

	for i := 0; i < 2; i++ {
		got, err := r.ResolveSecret(context.Background(), "secret://web/session")
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if got != "s3cr3t" {
			t.Fatalf("unexpected value %q", got)
		}
	}
	if len(client.calls) != 1 {
		t.Fatalf("expected one remote call, got %d", len(client.calls))
	}
}

func TestResolvePinnedVersion(t *testing.T) {
	client := &fakeClient{values: map[string]string{
		"projects/ciphera/secrets/relay-token/versions/3": "v3",
	}}
	r := NewResolver(context.Background(), "ciphera", withClient(client), WithFallbackFile(""))

	got, err := r.ResolveSecret(context.Background(), "sm://relay-token#3")
	if err != nil || got != "v3" {
		t.Fatalf("expected pinned version, got %q err=%v", got, err)
	}
}

func TestResolveFallsBackToLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".secrets.local")
	if err := os.WriteFile(path, []byte("captcha-secret=local-value\n"), 0o600); err != nil {
		t.Fatalf("write fallback: %v", err)
	}
	r := NewResolver(context.Background(), "ciphera", withClient(&fakeClient{}), WithFallbackFile(path))

	got, err := r.ResolveSecret(context.Background(), "secret://captcha-secret")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != "local-value" {
		t.Fatalf("unexpected fallback value %q", got)
	}

	_, err = r.ResolveSecret(context.Background(), "secret://unknown")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestParseReference(t *testing.T) {
	if _, _, err := parseReference("https://example.com"); err == nil {
		t.Fatalf("expected unsupported scheme error")
	}
	if _, _, err := parseReference("secret://"); err == nil {
		t.Fatalf("expected empty name error")
	}
	name, version, err := parseReference("secret://web/session#7")
	if err != nil || name != "web-session" || version != "7" {
		t.Fatalf("unexpected parse result %q %q %v", name, version, err)
	}
}
