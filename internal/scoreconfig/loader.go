package scoreconfig

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML file and returns the validated Config with its raw
// bytes. KnownFields(true) fails fast on typos and unused fields.
func Load(path string) (*Config, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, nil, err
	}

	if err := Validate(&cfg); err != nil {
		return nil, data, err
	}

	return &cfg, data, nil
}

// Default returns the built-in scoring parameters used when no config
// file is supplied.
func Default() *Config {
	return &Config{
		Meta: Meta{
			ConfigID: "default-scoring",
			Version:  "1.0",
		},
		Scoring: Scoring{
			Bedrooms:       []int{1, 2, 3, 4},
			DefaultTaxRate: 0.011,
		},
		Demand: Demand{
			BonusMax:   0.05,
			PenaltyMax: 0.30,
		},
		Solver: Solver{
			LoanTermYears:      30,
			AnnualInterestRate: 0.065,
			DownPaymentPct:     0.20,
			InsuranceMonthly:   100,
			HOAMonthly:         0,
		},
		Aggregation: Aggregation{
			MinZIPCount: 1,
		},
	}
}

// Hash generates a SHA256 hash from the Config (canonical JSON). Using
// a struct rather than a map keeps the hash reproducible.
func Hash(cfg *Config) (string, error) {
	jsonBytes, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}

// NewSnapshot creates a snapshot for batch bookkeeping
func NewSnapshot(cfg *Config, yamlData []byte) (*Snapshot, error) {
	hash, err := Hash(cfg)
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		ConfigHash: hash,
		ConfigYAML: string(yamlData),
		ConfigID:   cfg.Meta.ConfigID,
		CreatedAt:  time.Now(),
	}, nil
}
