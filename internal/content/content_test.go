package content

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

type stubHandler struct{ caption string }

func (s *stubHandler) Snapshot(ctx context.Context, chatID int64) (Reference, error) {
	return Reference{Caption: s.caption}, nil
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	t.Parallel()
	r := NewRegistry()

	if err := r.Register("market", &stubHandler{"m"}); err != nil {
		t.Fatal(err)
	}
	if err := r.Register("market", &stubHandler{"again"}); err == nil {
		t.Error("duplicate registration accepted")
	}

	h, err := r.Lookup("market")
	if err != nil {
		t.Fatal(err)
	}
	ref, err := h.Snapshot(context.Background(), 7)
	if err != nil || ref.Caption != "m" {
		t.Errorf("Snapshot = %+v, %v", ref, err)
	}

	if _, err := r.Lookup("nope"); !errors.Is(err, ErrUnknownCategory) {
		t.Errorf("Lookup(nope) err = %v, want ErrUnknownCategory", err)
	}
}

func TestRegistryNamesSorted(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	for _, name := range []string{"network", "lightning", "market"} {
		if err := r.Register(name, &stubHandler{name}); err != nil {
			t.Fatal(err)
		}
	}
	want := []string{"lightning", "market", "network"}
	if got := r.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
}
