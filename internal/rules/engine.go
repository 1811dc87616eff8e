package rules

import "authwatch/pkg/models"

// Engine applies detection rules to a single event.
type Engine interface {
	Apply(event *models.Event) []models.RuleTag
}

// NoopEngine returns no tags.
type NoopEngine struct{}

// Apply returns an empty tag list.
func (n *NoopEngine) Apply(event *models.Event) []models.RuleTag {
	return nil
}

// MatchAll applies engine to every event and returns the tagged ones in
// input order.
func MatchAll(engine Engine, events models.EventSet) []models.RuleMatch {
	if engine == nil || len(events) == 0 {
		return nil
	}
	var out []models.RuleMatch
	for i := range events {
		ev := events[i]
		tags := engine.Apply(&ev)
		if len(tags) == 0 {
			continue
		}
		out = append(out, models.RuleMatch{
			Timestamp:  ev.Timestamp,
			SourceIP:   ev.SourceIP,
			Username:   ev.Username,
			Status:     ev.Status,
			EventIndex: i,
			Tags:       tags,
		})
	}
	return out
}
