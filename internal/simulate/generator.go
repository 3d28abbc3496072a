package simulate

import (
	crand "crypto/rand"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/google/uuid"
)

// newRand returns a generator seeded from seed, or from crypto/rand when seed is zero.
func newRand(seed uint64) (*rand.Rand, error) {
	if seed != 0 {
		return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), nil
	}
	var key [32]byte
	if _, err := crand.Read(key[:]); err != nil {
		return nil, fmt.Errorf("failed to seed generator: %w", err)
	}
	return rand.New(rand.NewChaCha8(key)), nil
}

// SongIDs returns the ids of the mainstream songs followed by the niche song.
func SongIDs(songs int) []string {
	ids := make([]string, 0, songs+1)
	for i := 1; i <= songs; i++ {
		ids = append(ids, fmt.Sprintf("%s%03d", songIDPrefix, i))
	}
	return append(ids, nicheSongID)
}

// NicheSongID is the song only niche participants rank.
func NicheSongID() string { return nicheSongID }

// GenerateBallots builds one list per participant. Mainstream songs are drawn
// without replacement with weights falling linearly from the first song to the
// last. The first round(NicheShare*Participants) participants put the niche
// song at the top of their list.
func GenerateBallots(config *Config) ([]Ballot, error) {
	if config.Songs < 1 {
		return nil, fmt.Errorf("songs must be positive, got %d", config.Songs)
	}
	if config.MaxDepth < 1 {
		return nil, fmt.Errorf("max depth must be positive, got %d", config.MaxDepth)
	}
	if config.NicheShare < 0 || config.NicheShare > 1 {
		return nil, fmt.Errorf("niche share must be within [0, 1], got %v", config.NicheShare)
	}

	rng, err := newRand(config.Seed)
	if err != nil {
		return nil, err
	}

	mainstream := SongIDs(config.Songs)[:config.Songs]
	niche := int(math.Round(config.NicheShare * float64(config.Participants)))

	ballots := make([]Ballot, config.Participants)
	for i := range ballots {
		depth := 1 + rng.IntN(config.MaxDepth)
		var list []string
		if i < niche {
			list = append(list, nicheSongID)
			depth--
		}
		list = append(list, weightedSample(rng, mainstream, depth)...)
		ballots[i] = Ballot{ParticipantID: uuid.NewString(), SongIDs: list}
	}
	return ballots, nil
}

// weightedSample draws up to n distinct ids; earlier ids are more likely.
func weightedSample(rng *rand.Rand, ids []string, n int) []string {
	if n > len(ids) {
		n = len(ids)
	}
	pool := append([]string(nil), ids...)
	weights := make([]int, len(pool))
	total := 0
	for i := range weights {
		weights[i] = len(pool) - i
		total += weights[i]
	}

	out := make([]string, 0, n)
	for len(out) < n {
		pick := rng.IntN(total)
		for i, w := range weights {
			if pick < w {
				out = append(out, pool[i])
				total -= w
				pool = append(pool[:i], pool[i+1:]...)
				weights = append(weights[:i], weights[i+1:]...)
				break
			}
			pick -= w
		}
	}
	return out
}
