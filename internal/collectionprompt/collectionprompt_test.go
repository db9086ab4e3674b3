package collectionprompt_test

import (
	"testing"

	"github.com/eykd/outlinesync/internal/collectionprompt"
	"github.com/eykd/outlinesync/internal/model"
)

func TestSelect_NoCollections_Errors(t *testing.T) {
	_, err := collectionprompt.Select(nil)
	if err == nil {
		t.Fatal("expected error for empty collection list")
	}
}

func TestSelect_SingleCollection_SkipsPrompt(t *testing.T) {
	got, err := collectionprompt.Select([]model.Collection{{ID: "c1", Name: "Only"}})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if got != "c1" {
		t.Errorf("got %q, want c1", got)
	}
}
