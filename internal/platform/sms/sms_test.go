package sms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/rs/zerolog"
)

func gatewayResponse(status string) string {
	return `{"SMSMessageData":{"Recipients":[{"number":"+243812345678","status":"` + status + `","statusCode":101}]}}`
}

func TestClient_Send(t *testing.T) {
	var gotForm map[string]string
	var gotAPIKey string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		gotForm = map[string]string{
			"username": r.PostFormValue("username"),
			"to":       r.PostFormValue("to"),
			"message":  r.PostFormValue("message"),
			"from":     r.PostFormValue("from"),
		}
		gotAPIKey = r.Header.Get("apiKey")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(gatewayResponse("Success")))
	}))
	defer srv.Close()

	logger := zerolog.New(os.Stderr)
	c := NewClient("test-key", "clinic", "CLINIC", srv.URL, logger)

	err := c.Send(context.Background(), "+243812345678", "Reminder: appointment tomorrow")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotAPIKey != "test-key" {
		t.Errorf("expected apiKey header, got %q", gotAPIKey)
	}
	if gotForm["username"] != "clinic" {
		t.Errorf("expected username 'clinic', got %q", gotForm["username"])
	}
	if gotForm["to"] != "+243812345678" {
		t.Errorf("unexpected recipient: %q", gotForm["to"])
	}
	if gotForm["from"] != "CLINIC" {
		t.Errorf("expected sender ID, got %q", gotForm["from"])
	}
}

func TestClient_Send_RecipientFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(gatewayResponse("InvalidPhoneNumber")))
	}))
	defer srv.Close()

	c := NewClient("key", "clinic", "", srv.URL, zerolog.New(os.Stderr))
	if err := c.Send(context.Background(), "+243812345678", "hi"); err == nil {
		t.Fatal("expected error for failed recipient status")
	}
}

func TestClient_Send_GatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient("bad-key", "clinic", "", srv.URL, zerolog.New(os.Stderr))
	if err := c.Send(context.Background(), "+243812345678", "hi"); err == nil {
		t.Fatal("expected error for non-2xx status")
	}
}

func TestNoopSender(t *testing.T) {
	s := &NoopSender{Logger: zerolog.New(os.Stderr)}
	if err := s.Send(context.Background(), "+243812345678", "hi"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
