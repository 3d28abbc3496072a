package api_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/okian/encore/internal/adapters/http/api"
	service "github.com/okian/encore/internal/app"
	"github.com/okian/encore/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestAPIWithService(t *testing.T) {
	Convey("Given the API backed by a real service", t, func() {
		ctx := context.Background()
		svc := service.New(
			service.WithDatabasePath("file:api-"+uuid.NewString()+"?mode=memory&cache=shared"),
			service.WithLogger(logger.Discard()),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		server := api.NewServer(svc, svc, api.WithLogger(logger.Discard()))
		mux := http.NewServeMux()
		server.Register(ctx, mux)

		So(do(mux, "PUT", "/events/ev", `{"name": "Friday", "settings": {"minParticipantsForActivation": 1}}`).Code, ShouldEqual, http.StatusOK)
		for i, id := range []string{"a", "b", "c"} {
			body := fmt.Sprintf(`{"title": "Song %s", "created_at": "2025-06-01T20:0%d:00Z"}`, id, i)
			So(do(mux, "PUT", "/events/ev/songs/"+id, body).Code, ShouldEqual, http.StatusNoContent)
		}

		Convey("When participants submit lists and scores are read", func() {
			So(do(mux, "PUT", "/events/ev/participants/p1/rankings", `{"song_ids": ["c", "a"]}`).Code, ShouldEqual, http.StatusOK)
			So(do(mux, "PUT", "/events/ev/participants/p2/rankings", `{"song_ids": ["c"]}`).Code, ShouldEqual, http.StatusOK)
			w := do(mux, "GET", "/events/ev/scores", "")

			Convey("Then the consensus board is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode(w)
				So(body["mode"], ShouldEqual, "consensus")
				So(body["total_participants"], ShouldEqual, 2.0)
				So(body["activated"], ShouldEqual, true)
				entries := body["entries"].([]any)
				So(entries, ShouldHaveLength, 3)
				So(entries[0].(map[string]any)["song_id"], ShouldEqual, "c")
				So(entries[0].(map[string]any)["title"], ShouldEqual, "Song c")
				So(entries[2].(map[string]any)["avg_position"], ShouldBeNil)
			})
		})

		Convey("When a song is ranked twice by one participant", func() {
			So(do(mux, "POST", "/events/ev/participants/p1/rankings", `{"song_id": "a"}`).Code, ShouldEqual, http.StatusCreated)
			w := do(mux, "POST", "/events/ev/participants/p1/rankings", `{"song_id": "a"}`)

			Convey("Then the second is a validation error", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decode(w)["code"], ShouldEqual, "validation_error")
			})
		})

		Convey("When a ranking targets an unknown event", func() {
			w := do(mux, "POST", "/events/nope/participants/p1/rankings", `{"song_id": "a"}`)

			Convey("Then it is not found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When a ranked song is deleted", func() {
			So(do(mux, "PUT", "/events/ev/participants/p1/rankings", `{"song_ids": ["b", "a", "c"]}`).Code, ShouldEqual, http.StatusOK)
			So(do(mux, "DELETE", "/events/ev/songs/a", "").Code, ShouldEqual, http.StatusOK)
			w := do(mux, "GET", "/events/ev/participants/p1/rankings", "")

			Convey("Then the list closes the gap", func() {
				list := decode(w)["rankings"].([]any)
				So(list, ShouldHaveLength, 2)
				So(list[1].(map[string]any)["song_id"], ShouldEqual, "c")
				So(list[1].(map[string]any)["position"], ShouldEqual, 2.0)
			})
		})
	})
}
