package simulate

import (
	"errors"
	"fmt"
)

var (
	ErrListMismatch      = errors.New("stored list does not match submitted list")
	ErrListGap           = errors.New("stored list is not gapless")
	ErrBoardInconsistent = errors.New("scoreboard is inconsistent")
)

// VerifyList checks that the stored list holds exactly the submitted songs at
// positions 1..n.
func VerifyList(ballot Ballot, got []RankingEntry) error {
	for i, e := range got {
		if e.Position != i+1 {
			return fmt.Errorf("%w: participant %s has position %d at index %d", ErrListGap, ballot.ParticipantID, e.Position, i)
		}
	}
	if len(got) != len(ballot.SongIDs) {
		return fmt.Errorf("%w: participant %s has %d entries, submitted %d", ErrListMismatch, ballot.ParticipantID, len(got), len(ballot.SongIDs))
	}
	for i, e := range got {
		if e.SongID != ballot.SongIDs[i] {
			return fmt.Errorf("%w: participant %s position %d is %s, submitted %s", ErrListMismatch, ballot.ParticipantID, i+1, e.SongID, ballot.SongIDs[i])
		}
	}
	return nil
}

// VerifyScoreboard checks that a board ranks every song once, that both rank
// columns are permutations of 1..n and that the gem list agrees with the flags.
func VerifyScoreboard(board Scoreboard, songs int) error {
	if len(board.Entries) != songs {
		return fmt.Errorf("%w: %s board has %d entries, want %d", ErrBoardInconsistent, board.Mode, len(board.Entries), songs)
	}

	seenSong := make(map[string]bool, songs)
	seenConsensus := make([]bool, songs+1)
	seenDiscovery := make([]bool, songs+1)
	flagged := make(map[string]bool)
	for i, e := range board.Entries {
		if e.Rank != i+1 {
			return fmt.Errorf("%w: %s board has rank %d at row %d", ErrBoardInconsistent, board.Mode, e.Rank, i+1)
		}
		if seenSong[e.SongID] {
			return fmt.Errorf("%w: song %s appears twice", ErrBoardInconsistent, e.SongID)
		}
		seenSong[e.SongID] = true
		for _, r := range []struct {
			rank int
			seen []bool
		}{{e.ConsensusRank, seenConsensus}, {e.DiscoveryRank, seenDiscovery}} {
			if r.rank < 1 || r.rank > songs || r.seen[r.rank] {
				return fmt.Errorf("%w: song %s has invalid mode rank %d", ErrBoardInconsistent, e.SongID, r.rank)
			}
			r.seen[r.rank] = true
		}
		if e.IsHiddenGem {
			flagged[e.SongID] = true
		}
	}

	if len(board.HiddenGems) != len(flagged) {
		return fmt.Errorf("%w: %d gems listed, %d flagged", ErrBoardInconsistent, len(board.HiddenGems), len(flagged))
	}
	for _, g := range board.HiddenGems {
		if !flagged[g.SongID] {
			return fmt.Errorf("%w: gem %s is not flagged", ErrBoardInconsistent, g.SongID)
		}
		if g.RankDelta != g.ConsensusRank-g.DiscoveryRank {
			return fmt.Errorf("%w: gem %s has delta %d", ErrBoardInconsistent, g.SongID, g.RankDelta)
		}
	}
	return nil
}
