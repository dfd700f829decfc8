package actorctx

import (
	"context"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	ctx := With(context.Background(), Actor{ID: "u1", Email: "a@b.c", Role: "admin"})

	a, ok := From(ctx)
	if !ok || a.Role != "admin" {
		t.Fatalf("expected actor, got %+v ok=%v", a, ok)
	}

	if _, ok := UserIDFrom(context.Background()); ok {
		t.Fatalf("empty context must carry no actor")
	}

	if _, ok := From(With(context.Background(), Actor{})); ok {
		t.Fatalf("actor without id must not count")
	}
}
