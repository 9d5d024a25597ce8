package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/ktc/internal/adapters/http/api"
	"github.com/okian/ktc/internal/adapters/repository"
	service "github.com/okian/ktc/internal/app"
	"github.com/okian/ktc/internal/domain/model"
	"github.com/okian/ktc/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func newMux(deps api.Dependencies, stats api.StatsProvider) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, stats).Register(context.Background(), mux)
	return mux
}

func do(mux *http.ServeMux, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if s, ok := body.(string); ok {
		buf.WriteString(s)
	} else if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode[T any](w *httptest.ResponseRecorder) T {
	var v T
	So(json.Unmarshal(w.Body.Bytes(), &v), ShouldBeNil)
	return v
}

func TestServer_VotingFlow(t *testing.T) {
	Convey("Given an API server over a synchronous service", t, func() {
		svc := service.New(
			service.WithSynchronousRecompute(true),
			service.WithRandomSeed(3),
			service.WithMaxRankingsLimit(10),
		)
		mux := newMux(svc, svc)

		Convey("When fewer than three items exist", func() {
			w := do(mux, http.MethodPost, "/sessions", nil)
			So(w.Code, ShouldEqual, http.StatusCreated)
			sid := decode[map[string]string](w)["session_id"]

			w = do(mux, http.MethodGet, "/sessions/"+sid+"/matchup", nil)

			Convey("Then no matchup can be selected", func() {
				So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
				So(decode[map[string]string](w)["code"], ShouldEqual, "insufficient_items")
			})
		})

		Convey("When three items are created and a vote is cast", func() {
			for _, name := range []string{"Azure", "Blush", "Coral"} {
				w := do(mux, http.MethodPost, "/items", map[string]string{"name": name, "color": "#112233"})
				So(w.Code, ShouldEqual, http.StatusCreated)
			}

			w := do(mux, http.MethodPost, "/sessions", nil)
			sid := decode[map[string]string](w)["session_id"]

			w = do(mux, http.MethodGet, "/sessions/"+sid+"/matchup", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			m := decode[types.Matchup](w)
			So(m.SessionID, ShouldEqual, sid)
			So(m.Items, ShouldHaveLength, 3)

			vote := map[string]string{
				"vote_id": "vote-1",
				"keep":    m.Items[0].ItemID,
				"trade":   m.Items[1].ItemID,
				"cut":     m.Items[2].ItemID,
			}
			w = do(mux, http.MethodPost, "/sessions/"+sid+"/votes", vote)

			Convey("Then the vote is accepted and recorded against each item", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				r := decode[types.VoteReceipt](w)
				So(r.VoteID, ShouldEqual, "vote-1")
				So(r.Duplicate, ShouldBeFalse)

				w = do(mux, http.MethodGet, "/rankings?limit=2", nil)
				So(w.Code, ShouldEqual, http.StatusOK)
				entries := decode[[]types.Entry](w)
				So(entries, ShouldHaveLength, 2)
				// A first ballot carries no confidence, so ties fall back to name order.
				So(entries[0].Name, ShouldEqual, "Azure")
				So(entries[0].Rank, ShouldEqual, 1)
				So(entries[0].Rating, ShouldEqual, 50.0)

				w = do(mux, http.MethodGet, "/items/"+m.Items[2].ItemID, nil)
				So(w.Code, ShouldEqual, http.StatusOK)
				d := decode[types.ItemDetail](w)
				So(d.CutVotes, ShouldEqual, 1)
				So(d.KeepVotes, ShouldEqual, 0)
				So(d.TotalVotes, ShouldEqual, 1)
				So(d.Rank, ShouldBeBetweenOrEqual, 1, 3)
			})

			Convey("Then replaying the vote id is acknowledged as a duplicate", func() {
				w = do(mux, http.MethodPost, "/sessions/"+sid+"/votes", vote)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode[types.VoteReceipt](w).Duplicate, ShouldBeTrue)
			})

			Convey("Then a second vote without a new matchup conflicts", func() {
				vote["vote_id"] = "vote-2"
				w = do(mux, http.MethodPost, "/sessions/"+sid+"/votes", vote)
				So(w.Code, ShouldEqual, http.StatusConflict)
				So(decode[map[string]string](w)["code"], ShouldEqual, "no_matchup")
			})
		})

		Convey("When a vote repeats an item", func() {
			for _, name := range []string{"Azure", "Blush", "Coral"} {
				_, err := svc.CreateItem(context.Background(), name, "")
				So(err, ShouldBeNil)
			}
			sid := svc.NewSession(context.Background())
			m, err := svc.NextMatchup(context.Background(), sid)
			So(err, ShouldBeNil)

			w := do(mux, http.MethodPost, "/sessions/"+sid+"/votes", map[string]string{
				"keep": m.Items[0].ItemID, "trade": m.Items[0].ItemID, "cut": m.Items[2].ItemID,
			})

			Convey("Then it is rejected as a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decode[map[string]string](w)["code"], ShouldEqual, "duplicate_selection")
			})

			Convey("Then an item outside the matchup is rejected", func() {
				w = do(mux, http.MethodPost, "/sessions/"+sid+"/votes", map[string]string{
					"keep": m.Items[0].ItemID, "trade": m.Items[1].ItemID, "cut": "elsewhere",
				})
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decode[map[string]string](w)["code"], ShouldEqual, "out_of_set")
			})
		})

		Convey("When resources are unknown", func() {
			Convey("Then an unknown item is not found", func() {
				w := do(mux, http.MethodGet, "/items/missing", nil)
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(decode[map[string]string](w)["code"], ShouldEqual, "item_not_found")
			})

			Convey("Then an unknown session is not found", func() {
				w := do(mux, http.MethodGet, "/sessions/missing/matchup", nil)
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(decode[map[string]string](w)["code"], ShouldEqual, "session_not_found")
			})
		})

		Convey("When requests are malformed", func() {
			Convey("Then bad JSON is rejected", func() {
				w := do(mux, http.MethodPost, "/items", "{")
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("Then an invalid color is rejected", func() {
				w := do(mux, http.MethodPost, "/items", map[string]string{"name": "Azure", "color": "blue"})
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("Then an unnamed item is rejected", func() {
				w := do(mux, http.MethodPost, "/items", map[string]string{"name": " "})
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("Then a non-numeric limit is rejected", func() {
				w := do(mux, http.MethodGet, "/rankings?limit=ten", nil)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("Then a wrong method is refused", func() {
				w := do(mux, http.MethodDelete, "/rankings", nil)
				So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
			})
		})

		Convey("When stats and health are requested", func() {
			w := do(mux, http.MethodGet, "/stats", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			stats := decode[map[string]any](w)
			So(stats["synchronous"], ShouldEqual, true)

			w = do(mux, http.MethodGet, "/healthz", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "ktc_")
		})
	})
}

type failingDeps struct{ err error }

func (f failingDeps) CreateItem(context.Context, string, string) (types.Entry, error) {
	return types.Entry{}, f.err
}

func (f failingDeps) Item(context.Context, string) (types.ItemDetail, error) {
	return types.ItemDetail{}, f.err
}

func (f failingDeps) Rankings(context.Context, int) ([]types.Entry, error) { return nil, f.err }

func (f failingDeps) NewSession(context.Context) string { return "s" }

func (f failingDeps) NextMatchup(context.Context, string) (types.Matchup, error) {
	return types.Matchup{}, f.err
}

func (f failingDeps) SubmitVote(context.Context, string, string, model.Vote) (types.VoteReceipt, error) {
	return types.VoteReceipt{}, f.err
}

func (f failingDeps) GetStats() map[string]any { return map[string]any{} }

func TestServer_ErrorMapping(t *testing.T) {
	Convey("Given dependencies that fail", t, func() {
		Convey("When the failure is unexpected", func() {
			mux := newMux(failingDeps{err: errors.New("disk on fire")}, failingDeps{})
			w := do(mux, http.MethodGet, "/rankings", nil)

			Convey("Then it is an internal error", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				body := decode[map[string]string](w)
				So(body["code"], ShouldEqual, "internal_error")
				So(body["message"], ShouldContainSubstring, "api.get_rankings")
				So(body["message"], ShouldContainSubstring, "disk on fire")
			})
		})

		Convey("When an outcome is invalid", func() {
			mux := newMux(failingDeps{err: model.ErrInvalidOutcome}, failingDeps{})
			w := do(mux, http.MethodPost, "/sessions/s/votes", `{"keep":"a","trade":"b","cut":"c"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode[map[string]string](w)["code"], ShouldEqual, "invalid_outcome")
		})

		Convey("When an item is a duplicate", func() {
			mux := newMux(failingDeps{err: repository.ErrDuplicateItem}, failingDeps{})
			w := do(mux, http.MethodPost, "/items", `{"name":"a"}`)
			So(w.Code, ShouldEqual, http.StatusConflict)
		})
	})
}

func TestKindError(t *testing.T) {
	Convey("Given a kind error wrapping a cause", t, func() {
		cause := errors.New("boom")
		err := api.WrapKind("api.op", api.ErrBadRequest, cause)

		Convey("Then both the kind and the cause match", func() {
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.op: bad request: boom")
		})

		Convey("Then a bare kind omits the cause", func() {
			So(api.NewKind("api.op", api.ErrInternal).Error(), ShouldEqual, "api.op: internal error")
			So(api.Wrap("api.op", nil), ShouldBeNil)
			So(strings.HasPrefix(api.Wrap("api.op", cause).Error(), "api.op: "), ShouldBeTrue)
		})
	})
}
