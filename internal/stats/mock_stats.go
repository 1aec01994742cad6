package stats

import "github.com/stretchr/testify/mock"

var _ StatsProvider = (*MockStatsUpdater)(nil)

// MockStatsUpdater records counter updates. Tests that do not care about
// stats register Incr and Decr with Maybe.
type MockStatsUpdater struct {
	mock.Mock
}

func (m *MockStatsUpdater) Incr(name string) {
	m.Called(name)
}

func (m *MockStatsUpdater) Decr(name string) {
	m.Called(name)
}

func (m *MockStatsUpdater) RegisterMetric(name string) {
	m.Called(name)
}

func (m *MockStatsUpdater) Run() {
	m.Called()
}
