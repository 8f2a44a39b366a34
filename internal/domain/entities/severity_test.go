package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelForScore(t *testing.T) {
	tests := []struct {
		score int
		want  SeverityLevel
	}{
		{0, SeverityLow},
		{25, SeverityLow},
		{40, SeverityLow},
		{41, SeverityMedium},
		{50, SeverityMedium},
		{60, SeverityMedium},
		{61, SeverityHigh},
		{75, SeverityHigh},
		{80, SeverityHigh},
		{81, SeverityCritical},
		{90, SeverityCritical},
		{100, SeverityCritical},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, LevelForScore(tt.score), "score %d", tt.score)
	}
}

func TestFacilityForLevel(t *testing.T) {
	tests := []struct {
		level SeverityLevel
		want  FacilityType
	}{
		{SeverityLow, FacilityASHA},
		{SeverityMedium, FacilityPHC},
		{SeverityHigh, FacilityCHC},
		{SeverityCritical, FacilityEmergency},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FacilityForLevel(tt.level), "level %s", tt.level)
	}
}

func TestPriorityForLevel(t *testing.T) {
	assert.Equal(t, PriorityLow, PriorityForLevel(SeverityLow))
	assert.Equal(t, PriorityMedium, PriorityForLevel(SeverityMedium))
	assert.Equal(t, PriorityHigh, PriorityForLevel(SeverityHigh))
	assert.Equal(t, PriorityCritical, PriorityForLevel(SeverityCritical))
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0, ClampScore(-5))
	assert.Equal(t, 0, ClampScore(0))
	assert.Equal(t, 57, ClampScore(57))
	assert.Equal(t, 100, ClampScore(100))
	assert.Equal(t, 100, ClampScore(140))
}

func TestFacilityTypeWorkerType(t *testing.T) {
	assert.Equal(t, WorkerASHA, FacilityASHA.WorkerType())
	assert.Equal(t, WorkerPHCDoctor, FacilityPHC.WorkerType())
	assert.Equal(t, WorkerCHCDoctor, FacilityCHC.WorkerType())
	assert.Equal(t, WorkerEmergency, FacilityEmergency.WorkerType())
}

func TestDegradedResult(t *testing.T) {
	result := DegradedResult("please try again")
	assert.True(t, result.IsDegraded())
	assert.Empty(t, result.Symptoms)
	assert.Equal(t, "please try again", result.RawReply)
}
