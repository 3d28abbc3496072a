package simulate

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestVerifyList(t *testing.T) {
	Convey("Given a submitted list", t, func() {
		ballot := Ballot{ParticipantID: "p1", SongIDs: []string{"a", "b", "c"}}

		Convey("Then a matching gapless list passes", func() {
			got := []RankingEntry{{1, "a"}, {2, "b"}, {3, "c"}}
			So(VerifyList(ballot, got), ShouldBeNil)
		})

		Convey("Then a gap is reported", func() {
			got := []RankingEntry{{1, "a"}, {3, "b"}, {4, "c"}}
			So(errors.Is(VerifyList(ballot, got), ErrListGap), ShouldBeTrue)
		})

		Convey("Then a different order is a mismatch", func() {
			got := []RankingEntry{{1, "b"}, {2, "a"}, {3, "c"}}
			So(errors.Is(VerifyList(ballot, got), ErrListMismatch), ShouldBeTrue)
		})

		Convey("Then a short list is a mismatch", func() {
			got := []RankingEntry{{1, "a"}}
			So(errors.Is(VerifyList(ballot, got), ErrListMismatch), ShouldBeTrue)
		})
	})
}

func TestVerifyScoreboard(t *testing.T) {
	Convey("Given a consistent board", t, func() {
		board := Scoreboard{
			Mode: "consensus",
			Entries: []ScoreEntry{
				{Rank: 1, SongID: "a", ConsensusRank: 1, DiscoveryRank: 2},
				{Rank: 2, SongID: "b", ConsensusRank: 2, DiscoveryRank: 3},
				{Rank: 3, SongID: "x", ConsensusRank: 3, DiscoveryRank: 1, IsHiddenGem: true},
			},
			HiddenGems: []HiddenGem{{SongID: "x", ConsensusRank: 3, DiscoveryRank: 1, RankDelta: 2}},
		}
		So(VerifyScoreboard(board, 3), ShouldBeNil)

		Convey("Then a missing song is reported", func() {
			So(errors.Is(VerifyScoreboard(board, 4), ErrBoardInconsistent), ShouldBeTrue)
		})

		Convey("Then a repeated mode rank is reported", func() {
			board.Entries[1].DiscoveryRank = 2
			So(errors.Is(VerifyScoreboard(board, 3), ErrBoardInconsistent), ShouldBeTrue)
		})

		Convey("Then a gem without a flag is reported", func() {
			board.Entries[2].IsHiddenGem = false
			So(errors.Is(VerifyScoreboard(board, 3), ErrBoardInconsistent), ShouldBeTrue)
		})

		Convey("Then a wrong delta is reported", func() {
			board.HiddenGems[0].RankDelta = 5
			So(errors.Is(VerifyScoreboard(board, 3), ErrBoardInconsistent), ShouldBeTrue)
		})

		Convey("Then a skipped row rank is reported", func() {
			board.Entries[2].Rank = 4
			So(errors.Is(VerifyScoreboard(board, 3), ErrBoardInconsistent), ShouldBeTrue)
		})
	})
}
