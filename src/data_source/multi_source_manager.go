package datasource

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"market-stream/src/interfaces"
	"market-stream/src/logger"
	"market-stream/src/models"
)

// MultiSourceManager routes candle fetches to the source registered for the
// key's exchange. It satisfies ICandleFetcher itself so the backfill engine
// never needs to know which exchanges exist.
type MultiSourceManager struct {
	Sources map[string]interfaces.ICandleFetcher
	Logger  *logger.Logger
	mu      sync.RWMutex
}

// -----------------------------------------------------------------------------

func NewMultiSourceManager(sources []interfaces.ICandleFetcher, log *logger.Logger) *MultiSourceManager {
	m := &MultiSourceManager{
		Sources: make(map[string]interfaces.ICandleFetcher),
		Logger:  log,
	}

	for _, s := range sources {
		m.Sources[s.Name()] = s
	}

	return m
}

// -----------------------------------------------------------------------------

func (m *MultiSourceManager) Name() string {
	return "multi"
}

// -----------------------------------------------------------------------------

// AddSource registers a fetcher under its exchange name
func (m *MultiSourceManager) AddSource(source interfaces.ICandleFetcher) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := source.Name()
	if _, exists := m.Sources[name]; exists {
		return fmt.Errorf("source %s already exists", name)
	}

	m.Sources[name] = source
	if m.Logger != nil {
		m.Logger.Info("Added source: %s", name)
	}
	return nil
}

// -----------------------------------------------------------------------------

// RemoveSource unregisters a fetcher
func (m *MultiSourceManager) RemoveSource(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.Sources[name]; !exists {
		return fmt.Errorf("source %s not found", name)
	}

	delete(m.Sources, name)
	if m.Logger != nil {
		m.Logger.Info("Removed source: %s", name)
	}
	return nil
}

// -----------------------------------------------------------------------------

// GetSource retrieves a source by name
func (m *MultiSourceManager) GetSource(name string) (interfaces.ICandleFetcher, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	source, exists := m.Sources[name]
	if !exists {
		return nil, fmt.Errorf("source %s not found", name)
	}
	return source, nil
}

// -----------------------------------------------------------------------------

// SourceNames lists registered exchanges, sorted
func (m *MultiSourceManager) SourceNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.Sources))
	for name := range m.Sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// -----------------------------------------------------------------------------

// FetchCandles dispatches to the source for key.Exchange. The lock is released
// before the fetch so slow exchanges do not block registration.
func (m *MultiSourceManager) FetchCandles(ctx context.Context, key models.MSeriesKey, start, end int64) ([]models.MCandle, error) {
	source, err := m.GetSource(key.Exchange)
	if err != nil {
		return nil, err
	}
	return source.FetchCandles(ctx, key, start, end)
}
