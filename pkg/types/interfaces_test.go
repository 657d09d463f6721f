package types

import (
	"context"
	"testing"
	"time"
)

// TestInterfaces verifies that our interfaces are properly structured
func TestInterfaces(t *testing.T) {
	var (
		_ Accessor         = (*mockAccessor)(nil)
		_ Sizer            = (*mockAccessor)(nil)
		_ Backend          = (*mockBackend)(nil)
		_ MetricsCollector = (*mockMetricsCollector)(nil)
	)
}

func TestItemBounds(t *testing.T) {
	item := &Item{Path: "a", Start: 10, Data: []byte("hello")}
	if item.End() != 15 {
		t.Errorf("End() = %d, want 15", item.End())
	}
	if item.Len() != 5 {
		t.Errorf("Len() = %d, want 5", item.Len())
	}

	empty := &Item{Start: 7}
	if empty.End() != 7 || empty.Len() != 0 {
		t.Errorf("empty item bounds = [%d,%d), want [7,7)", empty.Start, empty.End())
	}
}

type mockAccessor struct{}

func (m *mockAccessor) Read(ctx context.Context, start, size int64) ([]byte, error) {
	return nil, nil
}

func (m *mockAccessor) Write(ctx context.Context, items []Item) error {
	return nil
}

func (m *mockAccessor) Truncate(ctx context.Context, size int64) error {
	return nil
}

func (m *mockAccessor) Size(ctx context.Context) (int64, error) {
	return 0, nil
}

type mockBackend struct{}

func (m *mockBackend) GetObject(ctx context.Context, key string, offset, size int64) ([]byte, error) {
	return nil, nil
}

func (m *mockBackend) PutObject(ctx context.Context, key string, data []byte) error {
	return nil
}

func (m *mockBackend) HeadObject(ctx context.Context, key string) (*ObjectInfo, error) {
	return nil, nil
}

func (m *mockBackend) HealthCheck(ctx context.Context) error {
	return nil
}

type mockMetricsCollector struct{}

func (m *mockMetricsCollector) RecordOperation(operation string, duration time.Duration, size int64, success bool) {
}

func (m *mockMetricsCollector) RecordCacheHit(tier string, size int64)  {}
func (m *mockMetricsCollector) RecordCacheMiss(tier string, size int64) {}
func (m *mockMetricsCollector) RecordEviction(tier string, size int64)  {}
func (m *mockMetricsCollector) UpdateCacheSize(tier string, size int64) {}
