package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLowStockScan(t *testing.T) {
	f := newFixture(t)
	f.addProduct(t, "Plenty", "1", 10)
	low := f.addProduct(t, "Scarce", "1", 1)

	monitor := NewLowStockMonitor(f.store, f.keys, time.Minute)
	products, err := monitor.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, low.ID(), products[0].ID())

	products, err = monitor.Scan(context.Background())
	require.NoError(t, err)
	assert.Len(t, products, 1, "the lock is released after each scan")
}

func TestLowStockScanSkipsWhenLocked(t *testing.T) {
	f := newFixture(t)
	f.addProduct(t, "Scarce", "1", 1)

	_, acquired, err := f.keys.AcquireLock(context.Background(), lowStockLockKey, time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	monitor := NewLowStockMonitor(f.store, f.keys, time.Minute)
	products, err := monitor.Scan(context.Background())
	require.NoError(t, err)
	assert.Nil(t, products)
}
