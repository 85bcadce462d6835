package factory

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/quizcore/internal/dependencies/mocks"
	"github.com/mcoot/quizcore/internal/realtime/ws"
	"github.com/mcoot/quizcore/internal/services/auth"
	"github.com/mcoot/quizcore/internal/storage/memory"
	"github.com/mcoot/quizcore/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// NewTestApp creates an App configured for testing with mocked dependencies.
// Background loops are not started; call Start when a test needs them.
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	authCfg := auth.DefaultConfig()
	authCfg.BcryptCost = bcrypt.MinCost
	authCfg.JanitorInterval = 0

	app := newWithDependencies(store, mockClock, mockRandom, authCfg, ws.Config{}, testutil.NopLogger())

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
	}
}
