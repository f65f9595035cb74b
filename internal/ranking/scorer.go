// Package ranking orders tools by how often and how recently they were used.
package ranking

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/khanglvm/devtools-hub/internal/storage"
)

const (
	// frequencyWeight is the weight for frequency in the score (0.6 = 60%).
	frequencyWeight = 0.6

	// recencyWeight is the weight for recency in the score (0.4 = 40%).
	recencyWeight = 0.4

	// recencyHalfLife is the half-life for exponential decay (24 hours).
	recencyHalfLife = 24 * time.Hour
)

// ToolScore is a tool with its ranking score.
type ToolScore struct {
	Tool     string  `json:"tool"`
	Count    int     `json:"count"`
	LastUsed int64   `json:"lastUsed"`
	Score    float64 `json:"score"`
}

// Scorer ranks tools from their history statistics.
type Scorer struct {
	// Saturation is the entry count at which frequency reaches 1.
	// It matches the history retention cap.
	Saturation int

	// Now is the reference time for recency. Defaults to time.Now.
	Now func() time.Time
}

// NewScorer creates a scorer whose frequency saturates at saturation entries.
func NewScorer(saturation int) *Scorer {
	if saturation <= 0 {
		saturation = 1
	}
	return &Scorer{Saturation: saturation, Now: time.Now}
}

// Score calculates a tool's score.
// Formula: 0.6*frequency + 0.4*recency
func (s *Scorer) Score(stat storage.ToolStat) float64 {
	if stat.Count <= 0 {
		return 0
	}
	return frequencyWeight*s.frequency(stat) + recencyWeight*s.recency(stat)
}

// frequency is the retained entry count normalized to 0-1.
func (s *Scorer) frequency(stat storage.ToolStat) float64 {
	return math.Min(float64(stat.Count)/float64(s.Saturation), 1.0)
}

// recency decays exponentially with the age of the last use.
// After 24 hours: 0.5, after 48 hours: 0.25.
func (s *Scorer) recency(stat storage.ToolStat) float64 {
	age := s.now().Sub(time.UnixMilli(stat.LastUsed))
	if age < 0 {
		age = 0
	}
	return math.Exp(-math.Ln2 * age.Hours() / recencyHalfLife.Hours())
}

func (s *Scorer) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// Rank scores stats and sorts them by score, descending. Ties keep the most
// recently used tool first, then tool name.
func (s *Scorer) Rank(stats []storage.ToolStat) []ToolScore {
	scores := make([]ToolScore, 0, len(stats))
	for _, st := range stats {
		scores = append(scores, ToolScore{
			Tool:     st.Tool,
			Count:    st.Count,
			LastUsed: st.LastUsed,
			Score:    s.Score(st),
		})
	}

	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		if scores[i].LastUsed != scores[j].LastUsed {
			return scores[i].LastUsed > scores[j].LastUsed
		}
		return scores[i].Tool < scores[j].Tool
	})
	return scores
}

// StatsSource is the part of the store the ranker reads.
type StatsSource interface {
	ToolStats(ctx context.Context) ([]storage.ToolStat, error)
}

// RankTools loads tool statistics from src and ranks them. A positive limit
// truncates the result.
func (s *Scorer) RankTools(ctx context.Context, src StatsSource, limit int) ([]ToolScore, error) {
	stats, err := src.ToolStats(ctx)
	if err != nil {
		return nil, err
	}
	scores := s.Rank(stats)
	if limit > 0 && len(scores) > limit {
		scores = scores[:limit]
	}
	return scores, nil
}
