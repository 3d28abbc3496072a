package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with custom options on a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 10, 100}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then metrics are registered under the custom names", func() {
				manager.rankingMutations.WithLabelValues("add", "ok").Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "test_unit_mutations_total")
			})
		})

		Convey("When empty options are given", func() {
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)

			Convey("Then the defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "encore")
				So(manager.subsystem, ShouldEqual, "rankings")
				So(manager.histogramBuckets, ShouldNotBeEmpty)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics", t, func() {
		Convey("When a ranking mutation is recorded", func() {
			before := testutil.ToFloat64(globalManager.rankingMutations.WithLabelValues("reorder", "ok"))
			RecordRankingMutation("reorder", "ok")

			Convey("Then the labelled counter grows", func() {
				So(testutil.ToFloat64(globalManager.rankingMutations.WithLabelValues("reorder", "ok")), ShouldEqual, before+1)
			})
		})

		Convey("When compaction writes are recorded", func() {
			before := testutil.ToFloat64(globalManager.compactionWrites)
			RecordCompactionWrites(0)
			RecordCompactionWrites(3)

			Convey("Then only real writes count", func() {
				So(testutil.ToFloat64(globalManager.compactionWrites), ShouldEqual, before+3)
			})
		})

		Convey("When a recompute is recorded", func() {
			RecordScoreRecompute(12.5, 40, 25, 2)

			Convey("Then the last-recompute gauges reflect it", func() {
				So(testutil.ToFloat64(globalManager.scoredSongs), ShouldEqual, 40)
				So(testutil.ToFloat64(globalManager.scoredParticipants), ShouldEqual, 25)
				So(testutil.ToFloat64(globalManager.hiddenGems), ShouldEqual, 2)
			})
		})

		Convey("When the remaining recorders are called", func() {
			So(func() {
				RecordIdempotentReplay()
				RecordSongRemoved()
				RecordScoreRead("fresh")
				RecordConfigCacheLookup("hit")
				RecordRepositoryQueryLatency("add_ranking", 1.2)
				RecordSlowQuery()
				RecordHTTPRequest("/healthz", "GET", "200")
				RecordHTTPRequestDuration("/healthz", "GET", "200", 0.4)
				RecordErrorByComponent("repository", "storage")
				RecordErrorByType("validation", "warning")
				RecordErrorByEndpoint("/events/{eventID}/scores", "GET", "not_found")
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.3)
			}, ShouldNotPanic)
		})

		Convey("Then the custom registry is exposed", func() {
			So(GetRegistry(), ShouldNotBeNil)
			_, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
		})
	})
}
