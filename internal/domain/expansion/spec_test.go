package expansion

import (
	"errors"
	"testing"

	"github.com/kailas-cloud/docdex/internal/domain"
)

func TestNew_Defaults(t *testing.T) {
	s, err := New("order", "orders", "order_id", "", false, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.ToField() != DefaultToField {
		t.Errorf("ToField() = %q, want %q", s.ToField(), DefaultToField)
	}
	if !s.Projects("anything") {
		t.Error("unprojected spec should project every field")
	}
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name, specName, target, from string
	}{
		{"no name", "", "orders", "order_id"},
		{"dotted name", "a.b", "orders", "order_id"},
		{"no target", "order", " ", "order_id"},
		{"no from field", "order", "orders", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.specName, tt.target, tt.from, "", false, nil)
			if !errors.Is(err, domain.ErrInvalidRequest) {
				t.Errorf("err = %v, want ErrInvalidRequest", err)
			}
		})
	}
}

func TestSpec_Projects(t *testing.T) {
	s, _ := New("customer", "customers", "customer_id", "id", false, []string{"name", "email"})
	if !s.Projects("email") {
		t.Error("expected email projected")
	}
	if s.Projects("id") {
		t.Error("id is not projected")
	}
}
