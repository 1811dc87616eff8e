package detect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authwatch/pkg/models"
)

func TestBreachAfterSixFailures(t *testing.T) {
	events := failures("103.75.201.12", "root", 6, base, time.Minute)
	events = append(events, event("103.75.201.12", "oracle", models.StatusAccepted, base.Add(10*time.Minute)))

	got := NewBreachDetector(0).Detect(events)
	require.Len(t, got, 1)
	assert.Equal(t, 6, got[0].FailedAttemptsBeforeSuccess)
	assert.Equal(t, models.SeverityHigh, got[0].Severity)
	assert.Equal(t, "oracle", got[0].Username)
	assert.True(t, got[0].BreachTimestamp.Equal(base.Add(10*time.Minute)))
	assert.Equal(t, models.AnomalyBreach, got[0].AnomalyType)
}

func TestBreachRequiresSuccess(t *testing.T) {
	assert.Empty(t, NewBreachDetector(0).Detect(failures("103.75.201.12", "root", 40, base, time.Second)))
}

func TestBreachCountsOnlyBeforeFirstSuccess(t *testing.T) {
	events := failures("45.1.1.1", "root", 3, base, time.Minute)
	events = append(events, event("45.1.1.1", "root", models.StatusAccepted, base.Add(5*time.Minute)))
	events = append(events, failures("45.1.1.1", "root", 10, base.Add(6*time.Minute), time.Minute)...)
	events = append(events, event("45.1.1.1", "root", models.StatusAccepted, base.Add(20*time.Minute)))

	assert.Empty(t, NewBreachDetector(0).Detect(events))
}

func TestBreachSortsChronologically(t *testing.T) {
	// Input order puts the success first, but it happened last.
	events := models.EventSet{event("45.1.1.1", "admin", models.StatusAccepted, base.Add(time.Hour))}
	events = append(events, failures("45.1.1.1", "admin", 5, base, time.Minute)...)

	got := NewBreachDetector(0).Detect(events)
	require.Len(t, got, 1)
	assert.Equal(t, 5, got[0].FailedAttemptsBeforeSuccess)
}

func TestBreachEqualTimestampsKeepInputOrder(t *testing.T) {
	var events models.EventSet
	for i := 0; i < 5; i++ {
		events = append(events, event("45.1.1.1", "admin", models.StatusFailed, base))
	}
	events = append(events, event("45.1.1.1", "admin", models.StatusAccepted, base))
	events = append(events, event("45.1.1.1", "admin", models.StatusFailed, base))

	got := NewBreachDetector(0).Detect(events)
	require.Len(t, got, 1)
	assert.Equal(t, 5, got[0].FailedAttemptsBeforeSuccess)

	reordered := models.EventSet{event("45.1.1.1", "admin", models.StatusAccepted, base)}
	reordered = append(reordered, events[:5]...)
	assert.Empty(t, NewBreachDetector(0).Detect(reordered))
}

func TestBreachCriticalAboveTwenty(t *testing.T) {
	events := failures("45.1.1.1", "root", 21, base, time.Second)
	events = append(events, event("45.1.1.1", "root", models.StatusAccepted, base.Add(time.Hour)))

	got := NewBreachDetector(0).Detect(events)
	require.Len(t, got, 1)
	assert.Equal(t, models.SeverityCritical, got[0].Severity)
}
