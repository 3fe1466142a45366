package delivery

import (
	"testing"

	"github.com/user/bedrockchat/internal/types"
)

func TestRegistryDeliver(t *testing.T) {
	reg := NewRegistry()

	var gotKey types.SessionKey
	var gotReply string
	reg.Register("test:", func(key types.SessionKey, reply string) error {
		gotKey = key
		gotReply = reply
		return nil
	})

	err := reg.Deliver(types.SessionKey("test:123"), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotKey != "test:123" {
		t.Errorf("expected session key %q, got %q", "test:123", gotKey)
	}
	if gotReply != "hello" {
		t.Errorf("expected reply %q, got %q", "hello", gotReply)
	}
}

func TestRegistryNoHandler(t *testing.T) {
	reg := NewRegistry()

	err := reg.Deliver(types.SessionKey("unknown:123"), "hello")
	if err == nil {
		t.Fatal("expected error for unregistered prefix, got nil")
	}
}

func TestRegistryMultiplePrefixes(t *testing.T) {
	reg := NewRegistry()

	var telegramCalls, httpCalls int
	reg.Register("telegram:", func(key types.SessionKey, reply string) error {
		telegramCalls++
		return nil
	})
	reg.Register("http:", func(key types.SessionKey, reply string) error {
		httpCalls++
		return nil
	})

	if err := reg.Deliver(types.SessionKey("telegram:42:100"), "msg1"); err != nil {
		t.Fatalf("telegram deliver error: %v", err)
	}
	if err := reg.Deliver(types.SessionKey("http:client-7"), "msg2"); err != nil {
		t.Fatalf("http deliver error: %v", err)
	}

	if telegramCalls != 1 {
		t.Errorf("expected 1 telegram call, got %d", telegramCalls)
	}
	if httpCalls != 1 {
		t.Errorf("expected 1 http call, got %d", httpCalls)
	}
}
