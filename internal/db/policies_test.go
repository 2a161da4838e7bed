package db

import (
	"errors"
	"testing"
)

func TestSetActivePolicySingleActive(t *testing.T) {
	database := testDB(t)

	v1 := &Policy{Version: "v1", FinalK: 3, MaxPerArtist: 1, ExcludeSeedArtist: true, RetrievalDepthK: 50}
	if err := database.SetActivePolicy(v1); err != nil {
		t.Fatalf("setting v1: %v", err)
	}
	v2 := &Policy{Version: "v2", FinalK: 5, MaxPerArtist: 2, RetrievalDepthK: 100}
	if err := database.SetActivePolicy(v2); err != nil {
		t.Fatalf("setting v2: %v", err)
	}

	active, err := database.GetActivePolicy()
	if err != nil {
		t.Fatalf("getting active: %v", err)
	}
	if active.Version != "v2" {
		t.Errorf("active = %s, want v2", active.Version)
	}

	// The older version survives, inactive and unchanged.
	old, err := database.GetPolicy("v1")
	if err != nil {
		t.Fatalf("getting v1: %v", err)
	}
	if old.IsActive {
		t.Error("v1 still active alongside v2")
	}
	if old.FinalK != 3 || !old.ExcludeSeedArtist {
		t.Errorf("v1 mutated: %+v", old)
	}
}

func TestSetActivePolicyDuplicateVersion(t *testing.T) {
	database := testDB(t)

	p := &Policy{Version: "v1", FinalK: 3, MaxPerArtist: 1, RetrievalDepthK: 50}
	if err := database.SetActivePolicy(p); err != nil {
		t.Fatalf("setting v1: %v", err)
	}

	// Versions are immutable: re-registering v1 with different knobs fails.
	again := &Policy{Version: "v1", FinalK: 10, MaxPerArtist: 3, RetrievalDepthK: 200}
	err := database.SetActivePolicy(again)
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("error = %v, want ErrDuplicate", err)
	}
}

func TestActivatePolicyRollback(t *testing.T) {
	database := testDB(t)

	for _, p := range []*Policy{
		{Version: "v1", FinalK: 3, MaxPerArtist: 1, RetrievalDepthK: 50},
		{Version: "v2", FinalK: 5, MaxPerArtist: 2, RetrievalDepthK: 100},
	} {
		if err := database.SetActivePolicy(p); err != nil {
			t.Fatalf("setting %s: %v", p.Version, err)
		}
	}

	if err := database.ActivatePolicy("v1"); err != nil {
		t.Fatalf("re-activating v1: %v", err)
	}
	active, err := database.GetActivePolicy()
	if err != nil {
		t.Fatalf("getting active: %v", err)
	}
	if active.Version != "v1" {
		t.Errorf("active = %s, want v1", active.Version)
	}

	if err := database.ActivatePolicy("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown version error = %v, want ErrNotFound", err)
	}
}

func TestGetActivePolicyEmpty(t *testing.T) {
	database := testDB(t)
	if _, err := database.GetActivePolicy(); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}
