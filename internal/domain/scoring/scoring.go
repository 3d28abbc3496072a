// Package scoring turns participant ballots into a community ranking using a
// Copeland tournament evaluated under two policies.
//
// Consensus reads a participant's silence on a song as ranking it below every
// song they did rank. Discovery only counts comparisons a participant actually
// made. Songs whose Discovery rank is far better than their Consensus rank, and
// that only a small share of participants ranked, are flagged as hidden gems.
package scoring

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/okian/encore/internal/domain/model"
)

// Input is everything one calculation needs. Ballots must be ordered by
// position, most preferred first.
type Input struct {
	EventID string
	Songs   []model.Song
	Ballots []model.Ballot
	Config  model.EventScoringConfig
}

// Result is a full snapshot for the event's rankable songs, ordered by
// Consensus rank. Records is empty when there are no songs or no participants.
type Result struct {
	Records           []model.ScoreRecord
	TotalParticipants int
	Activated         bool
}

// Engine computes tournament results.
type Engine interface {
	// Calculate is pure: identical input yields identical output.
	Calculate(ctx context.Context, in Input) (Result, error)
}

// CopelandEngine implements Engine.
type CopelandEngine struct{}

// NewCopelandEngine creates the engine.
func NewCopelandEngine() *CopelandEngine {
	return &CopelandEngine{}
}

type tally struct {
	wins   int
	losses int
}

func (t tally) copeland() int { return t.wins - t.losses }

func (t tally) winRate() float64 {
	if t.wins+t.losses == 0 {
		return 0
	}
	return float64(t.wins) / float64(t.wins+t.losses)
}

type songTally struct {
	song          model.Song
	consensus     tally
	discovery     tally
	rankers       int
	positionSum   int
	positionCount int
}

func (s *songTally) avgPosition() model.AvgPosition {
	if s.positionCount == 0 {
		return model.AvgPosition{}
	}
	return model.AvgPosition{Value: float64(s.positionSum) / float64(s.positionCount), Valid: true}
}

// Calculate runs both tournaments and classifies hidden gems.
func (e *CopelandEngine) Calculate(ctx context.Context, in Input) (Result, error) {
	if len(in.Songs) == 0 || len(in.Ballots) == 0 {
		return Result{}, nil
	}

	tallies := make([]songTally, len(in.Songs))
	index := make(map[string]int, len(in.Songs))
	for i, s := range in.Songs {
		tallies[i].song = s
		index[s.ID] = i
	}

	// stamp[i] == ballot number marks song i as ranked by the current ballot.
	stamp := make([]int, len(in.Songs))
	ranked := make([]int, 0, in.Config.RankingDepth)
	participants := 0

	for n, ballot := range in.Ballots {
		if err := ctx.Err(); err != nil {
			return Result{}, fmt.Errorf("context cancelled: %w", err)
		}
		mark := n + 1
		ranked = ranked[:0]
		for _, r := range ballot.Rankings {
			i, ok := index[r.SongID]
			if !ok || stamp[i] == mark {
				continue
			}
			stamp[i] = mark
			ranked = append(ranked, i)
			tallies[i].rankers++
			tallies[i].positionSum += r.Position
			tallies[i].positionCount++
		}
		if len(ranked) == 0 {
			continue
		}
		participants++

		// Explicit preferences count in both tallies.
		for a := 0; a < len(ranked); a++ {
			for b := a + 1; b < len(ranked); b++ {
				w, l := ranked[a], ranked[b]
				tallies[w].consensus.wins++
				tallies[l].consensus.losses++
				tallies[w].discovery.wins++
				tallies[l].discovery.losses++
			}
		}

		// Consensus only: every ranked song beats every song this participant left out.
		unranked := len(in.Songs) - len(ranked)
		for _, i := range ranked {
			tallies[i].consensus.wins += unranked
		}
		for i := range tallies {
			if stamp[i] != mark {
				tallies[i].consensus.losses += len(ranked)
			}
		}
	}

	if participants == 0 {
		return Result{}, nil
	}

	consensusRank := rankOrder(tallies, func(s *songTally) tally { return s.consensus })
	discoveryRank := rankOrder(tallies, func(s *songTally) tally { return s.discovery })

	activated := participants >= in.Config.MinParticipantsForActivation
	records := make([]model.ScoreRecord, len(tallies))
	for i := range tallies {
		t := &tallies[i]
		rec := model.ScoreRecord{
			EventID: in.EventID,
			SongID:  t.song.ID,
			Consensus: model.ModeResult{
				Copeland: t.consensus.copeland(),
				Wins:     t.consensus.wins,
				Losses:   t.consensus.losses,
				WinRate:  t.consensus.winRate(),
				Rank:     consensusRank[i],
			},
			Discovery: model.ModeResult{
				Copeland: t.discovery.copeland(),
				Wins:     t.discovery.wins,
				Losses:   t.discovery.losses,
				WinRate:  t.discovery.winRate(),
				Rank:     discoveryRank[i],
			},
			RankerCount:       t.rankers,
			AvgPosition:       t.avgPosition(),
			TotalParticipants: participants,
		}
		rec.IsHiddenGem = activated && IsHiddenGem(rec, in.Config)
		records[i] = rec
	}
	slices.SortFunc(records, func(a, b model.ScoreRecord) int {
		return cmp.Compare(a.Consensus.Rank, b.Consensus.Rank)
	})

	return Result{Records: records, TotalParticipants: participants, Activated: activated}, nil
}

// rankOrder returns the 1-based rank of each song under the given tally.
// Order: copeland desc, rankers desc, avg position asc (no data last),
// submission time asc, then song id for a total order.
func rankOrder(tallies []songTally, pick func(*songTally) tally) []int {
	order := make([]int, len(tallies))
	for i := range order {
		order[i] = i
	}
	slices.SortFunc(order, func(a, b int) int {
		sa, sb := &tallies[a], &tallies[b]
		if c := cmp.Compare(pick(sb).copeland(), pick(sa).copeland()); c != 0 {
			return c
		}
		if c := cmp.Compare(sb.rankers, sa.rankers); c != 0 {
			return c
		}
		if c := sa.avgPosition().Compare(sb.avgPosition()); c != 0 {
			return c
		}
		if c := sa.song.CreatedAt.Compare(sb.song.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(sa.song.ID, sb.song.ID)
	})
	ranks := make([]int, len(tallies))
	for pos, i := range order {
		ranks[i] = pos + 1
	}
	return ranks
}

// IsHiddenGem applies the rank-delta and ranker-share thresholds. A song nobody
// ranked is never a gem.
func IsHiddenGem(rec model.ScoreRecord, cfg model.EventScoringConfig) bool {
	return rec.RankerCount > 0 &&
		rec.RankDelta() >= cfg.MinRankDelta &&
		rec.RankerPercentage() < cfg.MaxRankerPercentage
}

// HiddenGems returns the flagged records, largest rank delta first.
func HiddenGems(records []model.ScoreRecord) []model.ScoreRecord {
	var gems []model.ScoreRecord
	for _, r := range records {
		if r.IsHiddenGem {
			gems = append(gems, r)
		}
	}
	slices.SortFunc(gems, func(a, b model.ScoreRecord) int {
		if c := cmp.Compare(b.RankDelta(), a.RankDelta()); c != 0 {
			return c
		}
		return cmp.Compare(a.Discovery.Rank, b.Discovery.Rank)
	})
	return gems
}

// SortByMode orders records by the rank of the given mode.
func SortByMode(records []model.ScoreRecord, mode model.ScoringMode) {
	slices.SortFunc(records, func(a, b model.ScoreRecord) int {
		return cmp.Compare(a.Result(mode).Rank, b.Result(mode).Rank)
	})
}
