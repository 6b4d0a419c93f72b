package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"banksim/internal/bank"
	"banksim/internal/session"
)

// Scenario is the YAML file shape for a session loaded at server start from
// SCENARIO_PATH, as an alternative to a session.Config sent to the `init`
// endpoint — bank/market/connection lists plus the kernel knobs.
type Scenario struct {
	TotalSteps    int                `yaml:"total_steps"`
	Seed          int64              `yaml:"seed"`
	UseGameTheory bool               `yaml:"use_game_theory"`
	Banks         []ScenarioBank     `yaml:"banks"`
	Markets       []ScenarioMarket   `yaml:"markets"`
	Connections   []ScenarioConn     `yaml:"connections"`
}

type ScenarioBank struct {
	Name           string  `yaml:"name"`
	StartingCash   float64 `yaml:"starting_cash"`
	TargetLeverage float64 `yaml:"target_leverage"`
	TargetLiquidity float64 `yaml:"target_liquidity"`
	TargetExposure float64 `yaml:"target_exposure"`
	RiskAppetite   float64 `yaml:"risk_appetite"`
}

type ScenarioMarket struct {
	ID           string  `yaml:"id"`
	Name         string  `yaml:"name"`
	InitialPrice float64 `yaml:"initial_price"`
}

type ScenarioConn struct {
	From   int     `yaml:"from"`
	To     int     `yaml:"to"`
	Amount float64 `yaml:"amount"`
}

// LoadScenario reads and parses a YAML scenario file.
func LoadScenario(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return Scenario{}, err
	}
	return sc, nil
}

// ToSessionConfig converts a parsed Scenario into a session.Config ready
// for Manager.Init.
func (sc Scenario) ToSessionConfig() session.Config {
	cfg := session.Config{TotalSteps: sc.TotalSteps, Seed: sc.Seed, UseGameTheory: sc.UseGameTheory}
	for _, b := range sc.Banks {
		cfg.Banks = append(cfg.Banks, session.BankConfig{
			Name: b.Name, StartingCash: b.StartingCash, RiskAppetite: b.RiskAppetite,
			Targets: bank.Targets{Leverage: b.TargetLeverage, LiquidityRatio: b.TargetLiquidity, MarketExposure: b.TargetExposure},
		})
	}
	for _, m := range sc.Markets {
		cfg.Markets = append(cfg.Markets, session.MarketConfig{ID: m.ID, Name: m.Name, InitialPrice: m.InitialPrice})
	}
	for _, c := range sc.Connections {
		cfg.Connections = append(cfg.Connections, session.ConnectionConfig{FromID: c.From, ToID: c.To, Amount: c.Amount})
	}
	return cfg
}
