package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRound(t *testing.T) {
	assert.Equal(t, 0.1, Round(0.1))
	assert.Equal(t, 0.3, Round(0.1+0.2))
	assert.Equal(t, 100.0, Round(100.004))
	assert.Equal(t, 12.35, Round(12.351))
	assert.Equal(t, 0.0, Round(0.001))
}

func TestRepeatedMutationsDoNotDrift(t *testing.T) {
	balance := 0.0
	for i := 0; i < 1000; i++ {
		balance = Round(balance + 0.1)
	}
	assert.Equal(t, 100.0, balance)

	for i := 0; i < 1000; i++ {
		balance = Round(balance - 0.1)
	}
	assert.Equal(t, 0.0, balance)
}

func TestGTE(t *testing.T) {
	assert.True(t, GTE(100.0000001, 100))
	assert.True(t, GTE(100, 100))
	assert.False(t, GTE(99.99, 100))
}
