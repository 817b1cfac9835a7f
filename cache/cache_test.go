package cache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// TestCacheKey_Validation tests key validation rules.
func TestCacheKey_Validation(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr error
	}{
		{"empty key", "", ErrInvalidKey},
		{"valid key", "doc_42_metadata", nil},
		{"too long", strings.Repeat("x", MaxKeyLength+1), ErrKeyTooLong},
		{"contains newline", "key\nwith\nnewlines", ErrInvalidKey},
		{"contains carriage return", "key\rwith\rreturns", ErrInvalidKey},
		{"contains space", "doc 42", ErrInvalidKey},
		{"whitespace only", "   ", ErrInvalidKey},
		{"max length exactly", strings.Repeat("x", MaxKeyLength), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateKey(tt.key)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateKey(%q) = %v, want nil", tt.key, err)
				}
			} else if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateKey(%q) = %v, want %v", tt.key, err, tt.wantErr)
			}
		})
	}
}

// TestStoreInterface_CompileCheck verifies the Store interface contract.
func TestStoreInterface_CompileCheck(t *testing.T) {
	var _ Store = (*mockStore)(nil)
}

// mockStore is a test double that implements Store.
type mockStore struct{}

func (m *mockStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, nil
}

func (m *mockStore) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	return map[string][]byte{}, nil
}

func (m *mockStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return nil
}

func (m *mockStore) Touch(ctx context.Context, key string, ttl time.Duration) error {
	return nil
}

func (m *mockStore) Delete(ctx context.Context, key string) error {
	return nil
}

// TestSentinelErrors verifies sentinel errors are distinct and have expected messages.
func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{"ErrNilStore", ErrNilStore, "cache: store is nil"},
		{"ErrInvalidKey", ErrInvalidKey, "cache: key is invalid"},
		{"ErrKeyTooLong", ErrKeyTooLong, "cache: key exceeds max length"},
		{"ErrInvalidTTL", ErrInvalidTTL, "cache: ttl must not be negative"},
		{"ErrStoreUnavailable", ErrStoreUnavailable, "cache: store unavailable"},
		{"ErrStoreTimeout", ErrStoreTimeout, "cache: store operation timed out"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("%s.Error() = %q, want %q", tt.name, got, tt.wantMsg)
			}
		})
	}

	for i := range tests {
		for j := i + 1; j < len(tests); j++ {
			if errors.Is(tests[i].err, tests[j].err) {
				t.Errorf("%s and %s should be distinct", tests[i].name, tests[j].name)
			}
		}
	}
}
