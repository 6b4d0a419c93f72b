package config

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleScenario = `
total_steps: 50
seed: 7
use_game_theory: true
banks:
  - name: Alpha
    starting_cash: 1000
    risk_appetite: 0.5
  - name: Beta
    starting_cash: 800
    risk_appetite: 0.4
markets:
  - id: M1
    name: Index
    initial_price: 100
connections:
  - from: 1
    to: 2
    amount: 50
`

func TestLoadScenarioParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.yaml")
	if err := os.WriteFile(path, []byte(sampleScenario), 0o644); err != nil {
		t.Fatalf("write scenario: %v", err)
	}

	sc, err := LoadScenario(path)
	if err != nil {
		t.Fatalf("LoadScenario() error: %v", err)
	}
	if len(sc.Banks) != 2 || len(sc.Markets) != 1 || len(sc.Connections) != 1 {
		t.Fatalf("unexpected scenario shape: %+v", sc)
	}
	if sc.Banks[0].Name != "Alpha" {
		t.Fatalf("Banks[0].Name=%q, want Alpha", sc.Banks[0].Name)
	}
}

func TestToSessionConfigTranslatesScenario(t *testing.T) {
	sc := Scenario{
		TotalSteps: 20, Seed: 3,
		Banks:   []ScenarioBank{{Name: "Alpha", StartingCash: 500}},
		Markets: []ScenarioMarket{{ID: "M1", Name: "Index", InitialPrice: 50}},
	}
	cfg := sc.ToSessionConfig()
	if cfg.TotalSteps != 20 || cfg.Seed != 3 {
		t.Fatalf("cfg=%+v, want TotalSteps=20 Seed=3", cfg)
	}
	if len(cfg.Banks) != 1 || cfg.Banks[0].Name != "Alpha" {
		t.Fatalf("Banks=%+v", cfg.Banks)
	}
}
