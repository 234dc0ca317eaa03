package bridgeclient

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"daonbridge/internal/infra/crypto"
	"daonbridge/internal/infra/webhooks"
)

func TestHashContent(t *testing.T) {
	hash := HashContent([]byte("chapter one"))
	if !strings.HasPrefix(hash, "sha256:") || len(hash) != 71 {
		t.Fatalf("hash = %q", hash)
	}
	if hash != HashContent([]byte("chapter one")) {
		t.Fatal("hash not deterministic")
	}
}

func TestRegisterContentSendsCredentialsAndSignature(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	var gotAuth, gotSignature string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotSignature = r.Header.Get("X-Payload-Signature")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"content": map[string]any{
				"content_hash": "sha256:" + strings.Repeat("a", 64),
				"owner":        "alice@ao3.org",
				"license":      "cc_by",
			},
			"duplicate": false,
		})
	}))
	defer srv.Close()

	client := New(srv.URL, "db_cafebabe_secret")
	client.PrivateKey = priv

	record, duplicate, err := client.RegisterContent(context.Background(), RegisterContentParams{
		Username: "alice",
		Content:  "chapter one",
		License:  "cc_by",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if duplicate {
		t.Fatal("unexpected duplicate flag")
	}
	if record.Owner != "alice@ao3.org" {
		t.Fatalf("owner = %q", record.Owner)
	}
	if gotAuth != "Bearer db_cafebabe_secret" {
		t.Fatalf("authorization = %q", gotAuth)
	}
	if err := crypto.VerifyPayloadSignature(gotBody, gotSignature, pub); err != nil {
		t.Fatalf("signature does not verify against sent body: %v", err)
	}
}

func TestAPIErrorDecoding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]any{
			"code":    "DOMAIN_MISMATCH",
			"message": "transfer claimed owner outside broker domain",
		})
	}))
	defer srv.Close()

	client := New(srv.URL, "db_cafebabe_secret")
	_, err := client.TransferOwnership(context.Background(), "sha256:"+strings.Repeat("b", 64), TransferParams{
		CurrentOwner: "alice@ao3.org",
		NewOwner:     "bob@ao3.org",
	})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusForbidden || apiErr.Code != "DOMAIN_MISMATCH" {
		t.Fatalf("apiErr = %+v", apiErr)
	}
}

func TestVerifyWebhookSignature(t *testing.T) {
	secret := strings.Repeat("s", 32)
	body := []byte(`{"event":"content.protected"}`)
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	timestamp := now.Unix()

	header := http.Header{}
	header.Set(webhooks.HeaderTimestamp, strconv.FormatInt(timestamp, 10))
	header.Set(webhooks.HeaderSignature, webhooks.Sign(secret, timestamp, body))

	if !VerifyWebhookSignature(secret, header, body, now) {
		t.Fatal("valid delivery rejected")
	}
	if VerifyWebhookSignature("wrong-secret-wrong-secret-wrong!", header, body, now) {
		t.Fatal("wrong secret accepted")
	}
	if VerifyWebhookSignature(secret, header, append(body, ' '), now) {
		t.Fatal("mutated body accepted")
	}
	if VerifyWebhookSignature(secret, header, body, now.Add(webhooks.MaxSignatureAge+time.Second)) {
		t.Fatal("stale delivery accepted")
	}
}
