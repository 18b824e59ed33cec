package application

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Settings is the mutable account configuration surfaced through the API.
type Settings struct {
	AccountType          string  `json:"accountType"`
	RequestedSwarmAgents int     `json:"requestedSwarmAgents"`
	RefreshIntervalSec   int     `json:"refreshIntervalSec"`
	SlippageTolerancePct float64 `json:"slippageTolerancePct"`
	BankrollUsd          float64 `json:"bankrollUsd"`
	MaxRiskPerTradePct   float64 `json:"maxRiskPerTradePct"`
}

// DefaultSettings seeds a fresh installation.
func DefaultSettings() Settings {
	return Settings{
		AccountType:          "private",
		RequestedSwarmAgents: 3,
		RefreshIntervalSec:   20,
		SlippageTolerancePct: 1.5,
		BankrollUsd:          1000,
		MaxRiskPerTradePct:   1,
	}
}

// SettingsPatch is a partial update; nil fields are left unchanged.
type SettingsPatch struct {
	AccountType          *string  `json:"accountType"`
	RequestedSwarmAgents *int     `json:"requestedSwarmAgents"`
	RefreshIntervalSec   *int     `json:"refreshIntervalSec"`
	SlippageTolerancePct *float64 `json:"slippageTolerancePct"`
	BankrollUsd          *float64 `json:"bankrollUsd"`
	MaxRiskPerTradePct   *float64 `json:"maxRiskPerTradePct"`
}

// SettingsStore persists settings as JSON under the data directory. Safe for
// concurrent use; writes are atomic (temp file + rename).
type SettingsStore struct {
	mu   sync.Mutex
	path string
}

// NewSettingsStore creates a store rooted at dataDir.
func NewSettingsStore(dataDir string) *SettingsStore {
	return &SettingsStore{path: filepath.Join(dataDir, "settings.json")}
}

// Get loads the current settings, seeding the file with defaults on first use.
func (s *SettingsStore) Get() (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Update applies a patch to the stored settings and persists the result.
func (s *SettingsStore) Update(patch SettingsPatch) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.load()
	if err != nil {
		return Settings{}, err
	}

	if patch.AccountType != nil {
		cur.AccountType = *patch.AccountType
	}
	if patch.RequestedSwarmAgents != nil {
		cur.RequestedSwarmAgents = *patch.RequestedSwarmAgents
	}
	if patch.RefreshIntervalSec != nil {
		cur.RefreshIntervalSec = *patch.RefreshIntervalSec
	}
	if patch.SlippageTolerancePct != nil {
		cur.SlippageTolerancePct = *patch.SlippageTolerancePct
	}
	if patch.BankrollUsd != nil {
		cur.BankrollUsd = *patch.BankrollUsd
	}
	if patch.MaxRiskPerTradePct != nil {
		cur.MaxRiskPerTradePct = *patch.MaxRiskPerTradePct
	}

	if err := s.save(cur); err != nil {
		return Settings{}, err
	}
	return cur, nil
}

func (s *SettingsStore) load() (Settings, error) {
	b, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		defaults := DefaultSettings()
		if err := s.save(defaults); err != nil {
			return Settings{}, err
		}
		return defaults, nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read settings: %w", err)
	}

	var settings Settings
	if err := json.Unmarshal(b, &settings); err != nil {
		return Settings{}, fmt.Errorf("failed to decode settings: %w", err)
	}
	return settings, nil
}

func (s *SettingsStore) save(settings Settings) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create settings dir: %w", err)
	}

	b, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0644); err != nil {
		return fmt.Errorf("failed to write settings temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace settings file: %w", err)
	}
	return nil
}
