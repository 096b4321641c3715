package capabilities

import (
	"context"
	"testing"
)

func TestWithAvailabilityEvaluatesPredicatesOnDemand(t *testing.T) {
	calls := 0
	reg := New([]Descriptor{
		{
			Name: "email",
			Available: func(context.Context) bool {
				calls++
				return calls%2 == 1 // flips every call: proves it is never cached
			},
		},
	})

	first := reg.WithAvailability(context.Background())
	second := reg.WithAvailability(context.Background())

	if !first[0].Available {
		t.Fatalf("expected first snapshot to report available")
	}
	if second[0].Available {
		t.Fatalf("expected second snapshot to report unavailable, proving the predicate is re-evaluated, not cached")
	}
	if calls != 2 {
		t.Fatalf("expected predicate invoked once per snapshot, got %d calls", calls)
	}
}

func TestWithAvailabilityDefaultsNilPredicateToAvailable(t *testing.T) {
	reg := New([]Descriptor{{Name: "browser"}})
	status := reg.WithAvailability(context.Background())
	if !status[0].Available {
		t.Fatalf("expected a family with no Available predicate to default to available")
	}
}

func TestActionByNameFindsDeclaredAction(t *testing.T) {
	reg := New(Default(
		func(context.Context) bool { return true },
		func(context.Context) bool { return false },
	))

	family, action, ok := reg.ActionByName("archive")
	if !ok || family.Name != FamilyEmail || action.ForwardedTool != "gmail_archive" {
		t.Fatalf("expected to resolve the archive action under the email family, got family=%+v action=%+v ok=%v", family, action, ok)
	}

	if _, _, ok := reg.ActionByName("no_such_action"); ok {
		t.Fatalf("expected unknown action name to report not found")
	}
}

func TestDefaultWiresProviderAvailability(t *testing.T) {
	families := Default(
		func(context.Context) bool { return false },
		func(context.Context) bool { return true },
	)
	reg := New(families)
	status := reg.WithAvailability(context.Background())

	var email, dev FamilyStatus
	for _, s := range status {
		switch s.Name {
		case FamilyEmail:
			email = s
		case FamilyDevelopment:
			dev = s
		}
	}
	if email.Available {
		t.Fatalf("expected email family unavailable when mail predicate returns false")
	}
	if !dev.Available {
		t.Fatalf("expected development family available when repo predicate returns true")
	}
}
