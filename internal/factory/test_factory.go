package factory

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/codeduel-go/internal/config"
	"github.com/mcoot/codeduel-go/internal/dependencies/mocks"
	"github.com/mcoot/codeduel-go/internal/model"
	"github.com/mcoot/codeduel-go/internal/storage/memory"
	"github.com/mcoot/codeduel-go/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
	MockGrader *mocks.MockGrader
	Storage    *memory.Storage
}

// TestConfig returns the configuration NewTestApp uses
func TestConfig() config.AppConfig {
	return config.AppConfig{
		Server: config.ServerConfig{
			Port:           8080,
			SendBuffer:     256,
			AllowedOrigins: []string{"*"},
		},
		Storage: config.StorageConfig{
			Type:         config.StorageTypeMemory,
			WriteTimeout: time.Second,
		},
		Match: config.MatchConfig{
			AttackCooldown: model.DefaultAttackCooldown,
			MaxAmmo:        model.DefaultMaxAmmo,
		},
	}
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()
	mockGrader := mocks.NewMockGrader()

	app := newWithDependencies(TestConfig(), store, mockGrader, mockClock, mockRandom,
		mocks.NewMockIDs("id"), testutil.NopLogger())
	app.Recorder.SetHashCost(bcrypt.MinCost)

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
		MockGrader: mockGrader,
		Storage:    store,
	}
}
