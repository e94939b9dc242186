package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition_LinearPipeline(t *testing.T) {
	order := []ProspectStatus{
		StatusScanned, StatusScheduled, StatusTesting, StatusTested,
		StatusScored, StatusReadyAssets, StatusReadyToSend, StatusSentManual,
	}
	for i := 0; i < len(order)-1; i++ {
		assert.True(t, CanTransition(order[i], order[i+1]),
			"%s -> %s must be legal", order[i], order[i+1])
	}
}

func TestCanTransition_RejectsSkipsAndBackwards(t *testing.T) {
	tests := []struct {
		from, to ProspectStatus
	}{
		{StatusScanned, StatusScored},
		{StatusScanned, StatusTesting},
		{StatusTested, StatusTesting},
		{StatusScored, StatusScheduled},
		{StatusSentManual, StatusScanned},
		{StatusSentManual, StatusSentManual},
		{StatusScheduled, StatusScheduled},
	}
	for _, tt := range tests {
		assert.False(t, CanTransition(tt.from, tt.to), "%s -> %s must be illegal", tt.from, tt.to)
	}
}

func TestCanTransition_UnknownStatus(t *testing.T) {
	assert.False(t, CanTransition(ProspectStatus("BOGUS"), StatusScheduled))
	assert.False(t, CanTransition(StatusScanned, ProspectStatus("BOGUS")))
}
