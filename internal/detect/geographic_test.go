package detect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authwatch/pkg/models"
)

func TestGeographicFirstMatchWins(t *testing.T) {
	d := NewGeographicAnomalyDetector([]RegionPrefix{
		{Prefix: "45.", Label: "first"},
		{Prefix: "45.142.", Label: "second"},
	})
	label, ok := d.Match("45.142.212.61")
	require.True(t, ok)
	assert.Equal(t, "first", label)

	_, ok = d.Match("145.1.1.1")
	assert.False(t, ok)
}

func TestGeographicAggregatesAllEventsOncePerIP(t *testing.T) {
	var events models.EventSet
	events = append(events, failures("41.60.232.191", "admin", 11, base, time.Minute)...)
	events = append(events, event("41.60.232.191", "devops", models.StatusAccepted, base.Add(time.Hour)))
	events = append(events, event("41.60.232.191", "devops", models.StatusAccepted, base.Add(2*time.Hour)))
	events = append(events, event("91.108.56.190", "support", models.StatusAccepted, base))
	events = append(events, event("8.8.8.8", "root", models.StatusFailed, base))

	got := NewGeographicAnomalyDetector(nil).Detect(events)
	require.Len(t, got, 2)

	assert.Equal(t, "41.60.232.191", got[0].SourceIP)
	assert.Equal(t, "Africa", got[0].Location)
	assert.Equal(t, 13, got[0].TotalAttempts)
	assert.Equal(t, 11, got[0].FailedAttempts)
	assert.Equal(t, 2, got[0].SuccessAttempts)
	assert.Equal(t, models.SeverityHigh, got[0].Severity)

	assert.Equal(t, "91.108.56.190", got[1].SourceIP)
	assert.Equal(t, "Central Asia", got[1].Location)
	assert.Equal(t, models.SeverityMedium, got[1].Severity)
	assert.Equal(t, 1, got[1].SuccessAttempts)
}

func TestGeographicSkipsInternal(t *testing.T) {
	d := NewGeographicAnomalyDetector([]RegionPrefix{{Prefix: "10.", Label: "lab"}})
	assert.Empty(t, d.Detect(failures("10.0.0.5", "root", 20, base, time.Second)))
}

func TestGeographicTableIsCopied(t *testing.T) {
	table := []RegionPrefix{{Prefix: "45.", Label: "a"}}
	d := NewGeographicAnomalyDetector(table)
	table[0].Label = "changed"
	label, _ := d.Match("45.1.1.1")
	assert.Equal(t, "a", label)
}
