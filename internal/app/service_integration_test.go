package service_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	service "github.com/okian/encore/internal/app"
	"github.com/okian/encore/internal/adapters/repository"
	"github.com/okian/encore/internal/domain/model"
	"github.com/okian/encore/internal/domain/types"
	"github.com/okian/encore/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

// countingStore counts snapshot rebuilds.
type countingStore struct {
	repository.Store
	rebuilds atomic.Int32
}

func (c *countingStore) RebuildScores(ctx context.Context, eventID string, compute repository.ComputeFunc) error {
	c.rebuilds.Add(1)
	return c.Store.RebuildScores(ctx, eventID, compute)
}

func entryIDs(entries []types.ScoreEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.SongID
	}
	return out
}

func TestScoreStaleness(t *testing.T) {
	Convey("Given an event with rankings and a controllable clock", t, func() {
		ctx := context.Background()
		clock := newFakeClock()
		svc := startService(t, service.WithClock(clock.Now))
		seedSongs(svc, "ev", `{"refreshIntervalSeconds": 30}`, "a", "b")
		So(svc.ReplaceRankings(ctx, "ev", "p1", []string{"b", "a"}), ShouldBeNil)

		Convey("Then scores are stale before any calculation", func() {
			stale, err := svc.ScoresAreStale(ctx, "ev")
			So(err, ShouldBeNil)
			So(stale, ShouldBeTrue)
		})

		Convey("When scores are calculated", func() {
			So(svc.CalculateScores(ctx, "ev"), ShouldBeNil)

			Convey("Then they are fresh right away", func() {
				stale, err := svc.ScoresAreStale(ctx, "ev")
				So(err, ShouldBeNil)
				So(stale, ShouldBeFalse)
			})

			Convey("Then they are fresh at exactly the refresh interval", func() {
				clock.Advance(30 * time.Second)
				stale, err := svc.ScoresAreStale(ctx, "ev")
				So(err, ShouldBeNil)
				So(stale, ShouldBeFalse)
			})

			Convey("Then they go stale once the interval has passed", func() {
				clock.Advance(31 * time.Second)
				stale, err := svc.ScoresAreStale(ctx, "ev")
				So(err, ShouldBeNil)
				So(stale, ShouldBeTrue)
			})
		})

		Convey("When rankings change within the refresh interval", func() {
			first, err := svc.GetScores(ctx, "ev", "")
			So(err, ShouldBeNil)
			So(entryIDs(first.Entries), ShouldResemble, []string{"b", "a"})

			clock.Advance(10 * time.Second)
			So(svc.ReplaceRankings(ctx, "ev", "p2", []string{"a"}), ShouldBeNil)
			So(svc.ReplaceRankings(ctx, "ev", "p3", []string{"a"}), ShouldBeNil)

			Convey("Then reads keep serving the previous snapshot", func() {
				board, err := svc.GetScores(ctx, "ev", "")
				So(err, ShouldBeNil)
				So(board.CalculatedAt.Equal(*first.CalculatedAt), ShouldBeTrue)
				So(board.TotalParticipants, ShouldEqual, 1)
			})

			Convey("Then the next read after the interval recomputes", func() {
				clock.Advance(25 * time.Second)
				board, err := svc.GetScores(ctx, "ev", "")
				So(err, ShouldBeNil)
				So(board.CalculatedAt.Equal(clock.Now()), ShouldBeTrue)
				So(board.TotalParticipants, ShouldEqual, 3)
				So(entryIDs(board.Entries), ShouldResemble, []string{"a", "b"})
			})

			Convey("Then an operator refresh recomputes immediately", func() {
				board, err := svc.RefreshScores(ctx, "ev")
				So(err, ShouldBeNil)
				So(board.TotalParticipants, ShouldEqual, 3)
			})
		})
	})

	Convey("Given an event nobody ranked", t, func() {
		ctx := context.Background()
		svc := startService(t)
		seedSongs(svc, "ev", `{}`, "a")

		Convey("Then reads return an empty board and stay stale", func() {
			board, err := svc.GetScores(ctx, "ev", "")
			So(err, ShouldBeNil)
			So(board.Entries, ShouldBeEmpty)
			So(board.HiddenGems, ShouldBeEmpty)
			So(board.CalculatedAt, ShouldBeNil)

			stale, err := svc.ScoresAreStale(ctx, "ev")
			So(err, ShouldBeNil)
			So(stale, ShouldBeTrue)
		})
	})
}

func TestHiddenGemEndToEnd(t *testing.T) {
	Convey("Given ten participants where only one ranks song X", t, func() {
		ctx := context.Background()
		svc := startService(t)
		seedSongs(svc, "ev", `{}`, "A", "B", "C", "D", "E", "F", "G", "H", "X")

		ballots := map[string][]string{
			"p1": {"X", "H"},
			"p2": {"A", "B", "C"}, "p3": {"A", "B", "C"}, "p4": {"A", "B", "C"},
			"p5": {"D", "E", "F"}, "p6": {"D", "E", "F"}, "p7": {"D", "E", "F"},
			"p8": {"G", "H", "B"}, "p9": {"G", "H", "B"}, "p10": {"G", "H", "B"},
		}
		for p, ids := range ballots {
			So(svc.ReplaceRankings(ctx, "ev", p, ids), ShouldBeNil)
		}

		Convey("When the consensus board is read", func() {
			board, err := svc.GetScores(ctx, "ev", "")
			So(err, ShouldBeNil)

			Convey("Then X ranks last and is the only hidden gem", func() {
				So(board.Mode, ShouldEqual, "consensus")
				So(board.TotalParticipants, ShouldEqual, 10)
				So(board.Activated, ShouldBeTrue)
				So(entryIDs(board.Entries), ShouldResemble, []string{"B", "H", "A", "D", "G", "E", "C", "F", "X"})
				for i, e := range board.Entries {
					So(e.Rank, ShouldEqual, i+1)
				}
				So(board.Entries[0].Title, ShouldEqual, "Title B")

				So(board.HiddenGems, ShouldHaveLength, 1)
				gem := board.HiddenGems[0]
				So(gem.SongID, ShouldEqual, "X")
				So(gem.ConsensusRank, ShouldEqual, 9)
				So(gem.DiscoveryRank, ShouldEqual, 4)
				So(gem.RankDelta, ShouldEqual, 5)
				So(gem.RankerPercentage, ShouldEqual, 10)
			})
		})

		Convey("When the discovery board is read", func() {
			board, err := svc.GetScores(ctx, "ev", "discovery")
			So(err, ShouldBeNil)

			Convey("Then X climbs to fourth", func() {
				So(board.Mode, ShouldEqual, "discovery")
				So(entryIDs(board.Entries), ShouldResemble, []string{"A", "D", "G", "X", "E", "H", "B", "C", "F"})
				So(board.Entries[3].IsHiddenGem, ShouldBeTrue)
				So(board.Entries[3].Copeland, ShouldEqual, 1)
			})
		})

		Convey("When X is played and leaves the rankable set", func() {
			_, err := svc.GetScores(ctx, "ev", "")
			So(err, ShouldBeNil)
			So(svc.PutSong(ctx, model.Song{ID: "X", EventID: "ev", CreatedAt: epoch.Add(8 * time.Minute)}, "played"), ShouldBeNil)

			Convey("Then it disappears from rankings and scores at once", func() {
				list, err := svc.GetParticipantRankings(ctx, "ev", "p1")
				So(err, ShouldBeNil)
				So(list, ShouldHaveLength, 1)
				So(list[0].SongID, ShouldEqual, "H")
				So(list[0].Position, ShouldEqual, 1)

				board, err := svc.GetScores(ctx, "ev", "")
				So(err, ShouldBeNil)
				So(board.Entries, ShouldHaveLength, 8)
				So(entryIDs(board.Entries), ShouldNotContain, "X")
			})
		})
	})
}

func TestRankingOperations(t *testing.T) {
	Convey("Given an event with four songs", t, func() {
		ctx := context.Background()
		svc := startService(t)
		seedSongs(svc, "ev", `{}`, "a", "b", "c", "d")

		Convey("When songs are added, inserted and reordered", func() {
			pos, err := svc.AddRanking(ctx, "ev", "p1", "a", nil)
			So(err, ShouldBeNil)
			So(pos, ShouldEqual, 1)
			pos, err = svc.AddRanking(ctx, "ev", "p1", "b", nil)
			So(err, ShouldBeNil)
			So(pos, ShouldEqual, 2)
			first := 1
			pos, err = svc.AddRanking(ctx, "ev", "p1", "c", &first)
			So(err, ShouldBeNil)
			So(pos, ShouldEqual, 1)
			So(svc.Reorder(ctx, "ev", "p1", []string{"a", "b", "c"}), ShouldBeNil)
			So(svc.RemoveRanking(ctx, "ev", "p1", "b"), ShouldBeNil)

			Convey("Then the list is gapless with song details", func() {
				list, err := svc.GetParticipantRankings(ctx, "ev", "p1")
				So(err, ShouldBeNil)
				So(list, ShouldResemble, []types.RankingEntry{
					{Position: 1, SongID: "a", Title: "Title a"},
					{Position: 2, SongID: "c", Title: "Title c"},
				})
			})
		})

		Convey("When a song is removed from every list", func() {
			for _, p := range []string{"p1", "p2", "p3"} {
				So(svc.ReplaceRankings(ctx, "ev", p, []string{"d", "a", "b"}), ShouldBeNil)
			}
			n, err := svc.RemoveSongGlobally(ctx, "ev", "a")

			Convey("Then each affected participant is counted once", func() {
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 3)
				list, err := svc.GetParticipantRankings(ctx, "ev", "p2")
				So(err, ShouldBeNil)
				So(list, ShouldHaveLength, 2)
				So(list[1].SongID, ShouldEqual, "b")
				So(list[1].Position, ShouldEqual, 2)
			})
		})
	})
}

func TestConcurrentStaleReads(t *testing.T) {
	Convey("Given a stale event read by many callers at once", t, func() {
		ctx := context.Background()
		st, err := repository.Open(ctx, memoryPath(), repository.WithLogger(logger.Discard()))
		So(err, ShouldBeNil)
		defer func() { _ = st.Close() }()
		counting := &countingStore{Store: st}

		clock := newFakeClock()
		svc := service.New(
			service.WithStore(counting),
			service.WithClock(clock.Now),
			service.WithLogger(logger.Discard()),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		seedSongs(svc, "ev", `{}`, "a", "b", "c")
		So(svc.ReplaceRankings(ctx, "ev", "p1", []string{"c", "a"}), ShouldBeNil)

		const readers = 16
		var (
			wg     sync.WaitGroup
			mu     sync.Mutex
			boards []types.Scoreboard
			errs   []error
		)
		for i := 0; i < readers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				board, err := svc.GetScores(ctx, "ev", "")
				mu.Lock()
				defer mu.Unlock()
				boards = append(boards, board)
				errs = append(errs, err)
			}()
		}
		wg.Wait()

		Convey("Then the snapshot is rebuilt exactly once", func() {
			So(counting.rebuilds.Load(), ShouldEqual, 1)
			for i := range boards {
				So(errs[i], ShouldBeNil)
				So(entryIDs(boards[i].Entries), ShouldResemble, []string{"c", "a", "b"})
			}
		})

		Convey("Then a forced refresh always rebuilds", func() {
			_, err := svc.RefreshScores(ctx, "ev")
			So(err, ShouldBeNil)
			So(counting.rebuilds.Load(), ShouldEqual, 2)
		})
	})
}
