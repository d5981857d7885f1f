package ctxbuilder

import (
	"fmt"
	"time"

	"novasynth/internal/core"
)

const (
	maxChronologyEvents  = 5
	maxKeyPoints         = 5
	maxEntitiesTracked   = 5
	maxMentionsPerEntity = 3
	maxContradictionHist = 3
)

// HistoricalContext is the assembled memory of a story that an update-mode
// synthesis is written against.
type HistoricalContext struct {
	Chronology         []core.TimelineEvent
	KeyPoints          []string
	EntityMentions     map[string][]string
	RecentContradictions []Contradiction
	Arc                core.NarrativeArc
	ArcInstruction     string
}

var arcInstructions = map[core.NarrativeArc]string{
	core.ArcEmerging:   "Frame this as a new story just coming into view; avoid overstating certainty.",
	core.ArcDeveloping: "Build on prior coverage, emphasizing what is newly confirmed since the last update.",
	core.ArcPeak:       "This story is at its most active; prioritize breadth of developments over speculation.",
	core.ArcDeclining:  "Coverage has slowed; note what remains unresolved rather than manufacturing urgency.",
	core.ArcResolved:   "Treat this as a closing update; summarize the outcome and what it settled.",
}

// DeriveNarrativeArc applies 4.L's fixed arc-derivation rules.
func DeriveNarrativeArc(priorCount int, lastUpdate time.Time, currentArticles int, now time.Time) core.NarrativeArc {
	switch {
	case priorCount <= 1:
		return core.ArcEmerging
	case !lastUpdate.IsZero() && now.Sub(lastUpdate) > 7*24*time.Hour:
		return core.ArcResolved
	case priorCount >= 4 && currentArticles >= 5:
		return core.ArcPeak
	case !lastUpdate.IsZero() && now.Sub(lastUpdate) > 3*24*time.Hour && currentArticles < 3:
		return core.ArcDeclining
	default:
		return core.ArcDeveloping
	}
}

// BuildHistoricalContext assembles 4.L step 5's memory block for an
// update-mode synthesis from the chain of past syntheses for a story.
func BuildHistoricalContext(past []core.Synthesis, currentArticles int, now time.Time) HistoricalContext {
	ordered := sortSynthesesByCreatedAt(past)

	var chronology []core.TimelineEvent
	start := 0
	if len(ordered) > maxChronologyEvents {
		start = len(ordered) - maxChronologyEvents
	}
	for _, s := range ordered[start:] {
		summary := s.Introduction
		if len(summary) > 200 {
			summary = summary[:200]
		}
		chronology = append(chronology, core.TimelineEvent{Date: s.CreatedAt, Title: s.Title, Summary: summary})
	}

	var keyPoints []string
	for i := len(ordered) - 1; i >= 0 && len(keyPoints) < maxKeyPoints; i-- {
		for _, kp := range ordered[i].KeyPoints {
			if len(keyPoints) >= maxKeyPoints {
				break
			}
			keyPoints = append(keyPoints, kp)
		}
	}

	entityMentions := map[string][]string{}
	for i := len(ordered) - 1; i >= 0 && len(entityMentions) < maxEntitiesTracked; i-- {
		for _, e := range ordered[i].KeyEntities {
			if len(entityMentions) >= maxEntitiesTracked {
				break
			}
			if len(entityMentions[e]) >= maxMentionsPerEntity {
				continue
			}
			entityMentions[e] = append(entityMentions[e], fmt.Sprintf("%s: %s", ordered[i].CreatedAt.Format("2006-01-02"), ordered[i].Title))
		}
	}

	var lastUpdate time.Time
	if len(ordered) > 0 {
		lastUpdate = ordered[len(ordered)-1].CreatedAt
	}
	arc := DeriveNarrativeArc(len(ordered), lastUpdate, currentArticles, now)

	return HistoricalContext{
		Chronology:     chronology,
		KeyPoints:      keyPoints,
		EntityMentions: entityMentions,
		Arc:            arc,
		ArcInstruction: arcInstructions[arc],
	}
}

func sortSynthesesByCreatedAt(syntheses []core.Synthesis) []core.Synthesis {
	ordered := make([]core.Synthesis, len(syntheses))
	copy(ordered, syntheses)
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && ordered[j].CreatedAt.Before(ordered[j-1].CreatedAt); j-- {
			ordered[j], ordered[j-1] = ordered[j-1], ordered[j]
		}
	}
	return ordered
}
