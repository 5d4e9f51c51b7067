package credential

import (
	"errors"
	"testing"

	"github.com/99designs/keyring"
)

func TestStoreRoundTrip(t *testing.T) {
	t.Parallel()
	s := NewWithKeyring(keyring.NewArrayKeyring(nil))

	if _, err := s.Get(KeyJWTSecret); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get on empty keyring = %v, want ErrNotFound", err)
	}
	if err := s.Set(KeyJWTSecret, "s3cret"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Get(KeyJWTSecret)
	if err != nil || got != "s3cret" {
		t.Fatalf("Get = %q, %v", got, err)
	}
	if err := s.Delete(KeyJWTSecret); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(KeyJWTSecret); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after Delete = %v", err)
	}
}

func TestSetUnknownKey(t *testing.T) {
	t.Parallel()
	s := NewWithKeyring(keyring.NewArrayKeyring(nil))
	if err := s.Set("password", "x"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()
	s := NewWithKeyring(keyring.NewArrayKeyring([]keyring.Item{
		{Key: KeyMongoURI, Data: []byte("mongodb://ring")},
	}))

	tests := []struct {
		name, value, key, want string
		wantErr                bool
	}{
		{"config wins", "mongodb://config", KeyMongoURI, "mongodb://config", false},
		{"keyring fallback", "", KeyMongoURI, "mongodb://ring", false},
		{"missing", "", KeyJWTSecret, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Resolve(tt.value, tt.key)
			if (err != nil) != tt.wantErr || got != tt.want {
				t.Errorf("Resolve() = %q, %v", got, err)
			}
		})
	}
}
