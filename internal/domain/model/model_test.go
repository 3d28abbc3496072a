package model_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/okian/encore/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestParseScoringConfig(t *testing.T) {
	Convey("Given the default scoring settings", t, func() {
		defaults := model.DefaultScoringConfig()

		Convey("When the settings blob is empty", func() {
			cfg, err := model.ParseScoringConfig(nil, defaults)

			Convey("Then the defaults apply", func() {
				So(err, ShouldBeNil)
				So(cfg.RankingDepth, ShouldEqual, 10)
				So(cfg.PrimaryScoringMode, ShouldEqual, model.ModeConsensus)
				So(cfg.MinRankDelta, ShouldEqual, 5)
				So(cfg.MaxRankerPercentage, ShouldEqual, 20)
				So(cfg.MinParticipantsForActivation, ShouldEqual, 5)
				So(cfg.RefreshIntervalSeconds, ShouldEqual, 30)
				So(cfg.RefreshInterval(), ShouldEqual, 30*time.Second)
			})
		})

		Convey("When the blob overrides some keys", func() {
			raw := []byte(`{"rankingDepth": 3, "primaryScoringMode": "discovery", "somethingElse": true}`)
			cfg, err := model.ParseScoringConfig(raw, defaults)

			Convey("Then only those keys change", func() {
				So(err, ShouldBeNil)
				So(cfg.RankingDepth, ShouldEqual, 3)
				So(cfg.PrimaryScoringMode, ShouldEqual, model.ModeDiscovery)
				So(cfg.MinRankDelta, ShouldEqual, 5)
			})
		})

		Convey("When the blob is not JSON", func() {
			_, err := model.ParseScoringConfig([]byte(`{depth`), defaults)

			Convey("Then a validation error is returned", func() {
				So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
			})
		})

		Convey("When a value is out of range", func() {
			for _, raw := range []string{
				`{"rankingDepth": 0}`,
				`{"rankingDepth": 101}`,
				`{"primaryScoringMode": "popularity"}`,
				`{"maxRankerPercentage": 120}`,
				`{"minRankDelta": -1}`,
				`{"refreshIntervalSeconds": -5}`,
			} {
				_, err := model.ParseScoringConfig([]byte(raw), defaults)
				So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
			}
		})
	})
}

func TestScoringMode(t *testing.T) {
	Convey("Given mode names", t, func() {
		m, err := model.ParseScoringMode(" Discovery ")
		So(err, ShouldBeNil)
		So(m, ShouldEqual, model.ModeDiscovery)

		_, err = model.ParseScoringMode("hype")
		So(err, ShouldNotBeNil)
	})
}

func TestSongStatus(t *testing.T) {
	Convey("Given song statuses", t, func() {
		So(model.SongQueued.Rankable(), ShouldBeTrue)
		So(model.SongPending.Rankable(), ShouldBeTrue)
		So(model.SongPlayed.Rankable(), ShouldBeFalse)
		So(model.SongRejected.Rankable(), ShouldBeFalse)
		So(model.SongDeleted.Rankable(), ShouldBeFalse)
		So(model.SongPlayed.Valid(), ShouldBeTrue)
		So(model.SongStatus("archived").Valid(), ShouldBeFalse)
	})
}

func TestAvgPosition(t *testing.T) {
	Convey("Given average positions", t, func() {
		none := model.AvgPosition{}
		one := model.AvgPosition{Value: 1, Valid: true}
		two := model.AvgPosition{Value: 2, Valid: true}

		Convey("Then real values sort ascending and no-data sorts last", func() {
			So(one.Compare(two), ShouldEqual, -1)
			So(two.Compare(one), ShouldEqual, 1)
			So(two.Compare(none), ShouldEqual, -1)
			So(none.Compare(one), ShouldEqual, 1)
			So(none.Compare(none), ShouldEqual, 0)
		})

		Convey("Then the pointer form round-trips", func() {
			So(none.Ptr(), ShouldBeNil)
			So(model.AvgPositionFrom(two.Ptr()), ShouldResemble, two)
			So(model.AvgPositionFrom(nil), ShouldResemble, none)
		})

		Convey("Then no-data marshals as null", func() {
			b, err := json.Marshal(none)
			So(err, ShouldBeNil)
			So(string(b), ShouldEqual, "null")
			b, err = json.Marshal(two)
			So(err, ShouldBeNil)
			So(string(b), ShouldEqual, "2")
		})
	})
}

func TestScoreRecordDerived(t *testing.T) {
	Convey("Given a score record", t, func() {
		rec := model.ScoreRecord{
			Consensus:         model.ModeResult{Rank: 9},
			Discovery:         model.ModeResult{Rank: 2},
			RankerCount:       1,
			TotalParticipants: 10,
		}

		So(rec.RankDelta(), ShouldEqual, 7)
		So(rec.RankerPercentage(), ShouldEqual, 10)
		So(rec.Result(model.ModeDiscovery).Rank, ShouldEqual, 2)
		So(rec.Result(model.ModeConsensus).Rank, ShouldEqual, 9)
		So(model.ScoreRecord{}.RankerPercentage(), ShouldEqual, 0)
	})
}

func TestErrorKinds(t *testing.T) {
	Convey("Given classified errors", t, func() {
		cause := errors.New("disk full")

		Convey("Then kinds and causes are both matchable", func() {
			err := model.WrapKind("op", model.ErrStorage, cause)
			So(errors.Is(err, model.ErrStorage), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "op: storage failure: disk full")
		})

		Convey("Then Storage keeps an existing kind", func() {
			v := model.Validationf("add", "depth %d reached", 10)
			So(model.Storage("tx", v), ShouldEqual, v)
			So(errors.Is(model.Storage("tx", cause), model.ErrStorage), ShouldBeTrue)
			So(model.Storage("tx", nil), ShouldBeNil)
		})

		Convey("Then a bare kind prints without a cause", func() {
			So(model.NewKind("get", model.ErrNotFound).Error(), ShouldEqual, "get: not found")
			So(errors.Is(model.NotFoundf("get", "song %s", "x"), model.ErrNotFound), ShouldBeTrue)
		})
	})
}
