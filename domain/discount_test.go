package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBatchDiscount_IsCurrent(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	open := BatchDiscount{ExpiresAt: &future}
	assert.True(t, open.IsCurrent(now))

	superseded := BatchDiscount{ValidTo: &past, ExpiresAt: &future}
	assert.False(t, superseded.IsCurrent(now))

	// Batch expired but the maintenance pass has not closed the row yet.
	stale := BatchDiscount{ExpiresAt: &past}
	assert.False(t, stale.IsCurrent(now))

	unbounded := BatchDiscount{}
	assert.True(t, unbounded.IsCurrent(now))
}
