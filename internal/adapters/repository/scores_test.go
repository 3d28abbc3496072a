package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/encore/internal/domain/model"
	"github.com/okian/encore/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

// recordPerSong writes one placeholder record per rankable song.
func recordPerSong(songs []model.Song, _ []model.Ballot) ([]model.ScoreRecord, error) {
	out := make([]model.ScoreRecord, len(songs))
	for i, s := range songs {
		out[i] = model.ScoreRecord{
			EventID:      s.EventID,
			SongID:       s.ID,
			Consensus:    model.ModeResult{Rank: i + 1},
			Discovery:    model.ModeResult{Rank: len(songs) - i},
			CalculatedAt: epoch,
		}
	}
	return out, nil
}

func copeland(at time.Time) ComputeFunc {
	return func(songs []model.Song, ballots []model.Ballot) ([]model.ScoreRecord, error) {
		res, err := scoring.NewCopelandEngine().Calculate(context.Background(), scoring.Input{
			EventID: "ev",
			Songs:   songs,
			Ballots: ballots,
			Config:  model.DefaultScoringConfig(),
		})
		if err != nil {
			return nil, err
		}
		for i := range res.Records {
			res.Records[i].CalculatedAt = at
		}
		return res.Records, nil
	}
}

func withoutTimestamps(recs []model.ScoreRecord) []model.ScoreRecord {
	out := make([]model.ScoreRecord, len(recs))
	for i, r := range recs {
		r.CalculatedAt = time.Time{}
		out[i] = r
	}
	return out
}

func TestRebuildScores(t *testing.T) {
	Convey("Given rankings over a mix of rankable and played songs", t, func() {
		s := newTestStore(t)
		ctx := context.Background()
		seedEvent(s, "ev", "", "a", "b", "c", "d")
		So(s.ReplaceRankings(ctx, "ev", "p2", []string{"b"}, 10), ShouldBeNil)
		So(s.ReplaceRankings(ctx, "ev", "p1", []string{"a", "b", "d"}, 10), ShouldBeNil)
		So(s.PutSong(ctx, model.Song{ID: "d", EventID: "ev"}, model.SongPlayed), ShouldBeNil)

		Convey("When the snapshot is rebuilt", func() {
			var (
				gotSongs   []model.Song
				gotBallots []model.Ballot
			)
			err := s.RebuildScores(ctx, "ev", func(songs []model.Song, ballots []model.Ballot) ([]model.ScoreRecord, error) {
				gotSongs, gotBallots = songs, ballots
				return recordPerSong(songs, ballots)
			})
			So(err, ShouldBeNil)

			Convey("Then compute sees rankable songs oldest first", func() {
				So(gotSongs, ShouldHaveLength, 3)
				So(gotSongs[0].ID, ShouldEqual, "a")
				So(gotSongs[2].ID, ShouldEqual, "c")
				So(gotSongs[0].CreatedAt.Equal(epoch), ShouldBeTrue)
			})

			Convey("Then ballots are grouped per participant in position order", func() {
				So(gotBallots, ShouldHaveLength, 2)
				So(gotBallots[0].ParticipantID, ShouldEqual, "p1")
				So(songIDsOf(gotBallots[0].Rankings), ShouldResemble, []string{"a", "b"})
				So(gotBallots[1].ParticipantID, ShouldEqual, "p2")
				So(songIDsOf(gotBallots[1].Rankings), ShouldResemble, []string{"b"})
			})

			Convey("Then the snapshot is readable in Consensus order", func() {
				recs, err := s.Scores(ctx, "ev")
				So(err, ShouldBeNil)
				So(recs, ShouldHaveLength, 3)
				So(recs[0].SongID, ShouldEqual, "a")
				So(recs[2].Discovery.Rank, ShouldEqual, 1)

				at, ok, err := s.LatestCalculatedAt(ctx, "ev")
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(at.Equal(epoch), ShouldBeTrue)
			})

			Convey("And a song leaves before the next rebuild", func() {
				So(s.PutSong(ctx, model.Song{ID: "c", EventID: "ev"}, model.SongRejected), ShouldBeNil)
				So(s.PutSong(ctx, model.Song{ID: "b", EventID: "ev"}, model.SongDeleted), ShouldBeNil)
				So(s.RebuildScores(ctx, "ev", recordPerSong), ShouldBeNil)

				Convey("Then only current songs keep rows", func() {
					recs, _ := s.Scores(ctx, "ev")
					So(recs, ShouldHaveLength, 1)
					So(recs[0].SongID, ShouldEqual, "a")
				})
			})

			Convey("And compute fails on the next rebuild", func() {
				boom := errors.New("boom")
				err := s.RebuildScores(ctx, "ev", func([]model.Song, []model.Ballot) ([]model.ScoreRecord, error) {
					return nil, boom
				})

				Convey("Then the error surfaces as a storage failure and the old snapshot stays", func() {
					So(errors.Is(err, boom), ShouldBeTrue)
					So(errors.Is(err, model.ErrStorage), ShouldBeTrue)
					recs, _ := s.Scores(ctx, "ev")
					So(recs, ShouldHaveLength, 3)
				})
			})

			Convey("And compute returns nothing", func() {
				So(s.RebuildScores(ctx, "ev", func([]model.Song, []model.Ballot) ([]model.ScoreRecord, error) {
					return nil, nil
				}), ShouldBeNil)

				Convey("Then the snapshot is cleared", func() {
					recs, _ := s.Scores(ctx, "ev")
					So(recs, ShouldBeEmpty)
					_, ok, err := s.LatestCalculatedAt(ctx, "ev")
					So(err, ShouldBeNil)
					So(ok, ShouldBeFalse)
				})
			})
		})
	})
}

func TestRebuildIdempotence(t *testing.T) {
	Convey("Given an event scored with the Copeland engine", t, func() {
		s := newTestStore(t)
		ctx := context.Background()
		seedEvent(s, "ev", "", "a", "b", "c", "d", "e")
		So(s.ReplaceRankings(ctx, "ev", "p1", []string{"a", "c"}, 10), ShouldBeNil)
		So(s.ReplaceRankings(ctx, "ev", "p2", []string{"e", "a", "b"}, 10), ShouldBeNil)
		So(s.ReplaceRankings(ctx, "ev", "p3", []string{"d"}, 10), ShouldBeNil)

		So(s.RebuildScores(ctx, "ev", copeland(epoch)), ShouldBeNil)
		first, err := s.Scores(ctx, "ev")
		So(err, ShouldBeNil)

		Convey("When it is recomputed without any ranking change", func() {
			later := epoch.Add(time.Minute)
			So(s.RebuildScores(ctx, "ev", copeland(later)), ShouldBeNil)
			second, err := s.Scores(ctx, "ev")
			So(err, ShouldBeNil)

			Convey("Then every row is identical apart from its timestamp", func() {
				So(withoutTimestamps(second), ShouldResemble, withoutTimestamps(first))
				So(second[0].CalculatedAt.Equal(later), ShouldBeTrue)
			})

			Convey("Then the stored average positions survive the round trip", func() {
				byID := map[string]model.ScoreRecord{}
				for _, r := range second {
					byID[r.SongID] = r
				}
				So(byID["a"].AvgPosition, ShouldResemble, model.AvgPosition{Value: 1.5, Valid: true})
				So(byID["d"].RankerCount, ShouldEqual, 1)
				So(byID["a"].TotalParticipants, ShouldEqual, 3)
			})
		})
	})
}

func TestLatestCalculatedAtWithoutRows(t *testing.T) {
	Convey("Given an event that was never scored", t, func() {
		s := newTestStore(t)
		seedEvent(s, "ev", "", "a")

		at, ok, err := s.LatestCalculatedAt(context.Background(), "ev")

		So(err, ShouldBeNil)
		So(ok, ShouldBeFalse)
		So(at.IsZero(), ShouldBeTrue)
	})
}
