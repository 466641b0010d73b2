package repository_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kjannette/rate-tracker/internal/models"
	"github.com/kjannette/rate-tracker/internal/repository"
)

func TestStateRepo_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "currencies.json")
	repo := repository.NewStateRepo(path)

	entries := []models.CurrencyEntry{
		{Code: "usd", Name: "US Dollar", LastPrice: models.Float(41.1), CurrentPrice: models.Float(41.25)},
		{Code: "eur", Name: "Євро", CurrentPrice: models.Float(44.9)},
		{Code: "pln", Name: "Polish Zloty"},
	}
	if err := repo.Save(entries); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := repo.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got) != len(entries) {
		t.Fatalf("expected %d entries, got %d", len(entries), len(got))
	}
	for i := range entries {
		if !got[i].Equal(entries[i]) {
			t.Fatalf("entry %d: got %+v, want %+v", i, got[i], entries[i])
		}
	}

	raw, _ := os.ReadFile(path)
	if !strings.Contains(string(raw), "Євро") {
		t.Fatal("non-ASCII names should be written as UTF-8, not escaped")
	}
	if !strings.Contains(string(raw), `"last_price": null`) {
		t.Fatalf("missing prices should serialize as null:\n%s", raw)
	}
}

func TestStateRepo_LoadFallsBackToDefault(t *testing.T) {
	cases := map[string]string{
		"malformed json":  `{"currencies": [`,
		"missing code":    `{"currencies": [{"name": "US Dollar"}]}`,
		"missing name":    `{"currencies": [{"code": "usd"}, {"code": "eur", "name": "Euro"}]}`,
		"empty list":      `{"currencies": []}`,
		"wrong shape":     `["usd", "eur"]`,
		"duplicate codes": `{"currencies": [{"code": "usd", "name": "a"}, {"code": "USD", "name": "b"}]}`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "currencies.json")
			if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
				t.Fatal(err)
			}
			repo := repository.NewStateRepo(path)

			if _, err := repo.Read(); !errors.Is(err, models.ErrValidation) {
				t.Fatalf("Read: expected ErrValidation, got %v", err)
			}

			got := repo.Load()
			want := repository.DefaultEntries()
			if len(got) != 1 || !got[0].Equal(want[0]) {
				t.Fatalf("expected single default entry, got %+v", got)
			}
		})
	}
}

func TestStateRepo_MissingFile(t *testing.T) {
	repo := repository.NewStateRepo(filepath.Join(t.TempDir(), "nope", "currencies.json"))

	_, err := repo.Read()
	if !errors.Is(err, models.ErrValidation) || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected ErrValidation wrapping ErrNotExist, got %v", err)
	}
	if got := repo.Load(); len(got) != 1 || got[0].Code != "usd" {
		t.Fatalf("expected default, got %+v", got)
	}

	// Save creates the directory
	if err := repo.Save(repository.DefaultEntries()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := repo.Read(); err != nil {
		t.Fatalf("Read after save: %v", err)
	}
}

func TestStateRepo_SaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	repo := repository.NewStateRepo(filepath.Join(dir, "currencies.json"))
	for i := 0; i < 3; i++ {
		if err := repo.Save(repository.DefaultEntries()); err != nil {
			t.Fatal(err)
		}
	}
	files, _ := os.ReadDir(dir)
	if len(files) != 1 {
		t.Fatalf("expected only the state file, got %d entries", len(files))
	}
}

func TestStateRepo_TrimsLoadedCodes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "currencies.json")
	raw := `{"currencies":[{"code":" USD ","name":"US Dollar","last_price":27.0,"current_price":27.5}]}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write state: %v", err)
	}

	entries, err := repository.NewStateRepo(path).Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if entries[0].Code != "USD" {
		t.Fatalf("expected trimmed code, got %q", entries[0].Code)
	}
}
