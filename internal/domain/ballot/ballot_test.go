package ballot_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/ktc/internal/domain/ballot"
	"github.com/okian/ktc/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestValidate(t *testing.T) {
	Convey("Given the offered triplet {A, B, C}", t, func() {
		offered := model.Triplet{"A", "B", "C"}
		at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

		Convey("When the vote repeats an item", func() {
			_, err := ballot.Validate(model.Vote{Keep: "A", Trade: "A", Cut: "B"}, offered, "v1", at)

			Convey("Then it fails with ErrDuplicateSelection", func() {
				So(errors.Is(err, ballot.ErrDuplicateSelection), ShouldBeTrue)
			})
		})

		Convey("When the vote names an item outside the triplet", func() {
			_, err := ballot.Validate(model.Vote{Keep: "A", Trade: "B", Cut: "D"}, offered, "v1", at)

			Convey("Then it fails with ErrOutOfSet", func() {
				So(errors.Is(err, ballot.ErrOutOfSet), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "D")
			})
		})

		Convey("When the vote is a duplicate and out of set", func() {
			_, err := ballot.Validate(model.Vote{Keep: "D", Trade: "D", Cut: "A"}, offered, "v1", at)

			Convey("Then the duplicate check wins", func() {
				So(errors.Is(err, ballot.ErrDuplicateSelection), ShouldBeTrue)
			})
		})

		Convey("When the vote is a permutation of the triplet", func() {
			ballots, err := ballot.Validate(model.Vote{Keep: "C", Trade: "A", Cut: "B"}, offered, "v1", at)

			Convey("Then three ballots are emitted", func() {
				So(err, ShouldBeNil)
				So(len(ballots), ShouldEqual, 3)
				So(ballots[0].ItemID, ShouldEqual, "C")
				So(ballots[0].Outcome, ShouldEqual, model.Keep)
				So(ballots[1].ItemID, ShouldEqual, "A")
				So(ballots[1].Outcome, ShouldEqual, model.Trade)
				So(ballots[2].ItemID, ShouldEqual, "B")
				So(ballots[2].Outcome, ShouldEqual, model.Cut)
				for _, b := range ballots {
					So(b.VoteID, ShouldEqual, "v1")
					So(b.CreatedAt, ShouldEqual, at)
					So(b.ID, ShouldNotBeEmpty)
				}
				So(ballots[0].ID, ShouldNotEqual, ballots[1].ID)
			})
		})
	})
}

func TestFromLegacy(t *testing.T) {
	Convey("Given legacy vote rows out of order", t, func() {
		t0 := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
		votes := []model.LegacyVote{
			{Keep: "2", Trade: "3", Cut: "4", CreatedAt: t0.Add(2 * time.Hour)},
			{Keep: "1", Trade: "2", Cut: "3", CreatedAt: t0},
			{Keep: "1", Trade: "", Cut: "5", CreatedAt: t0.Add(time.Hour)},
		}

		ballots := ballot.FromLegacy(votes)

		Convey("Then they expand chronologically with fixed offsets", func() {
			So(len(ballots), ShouldEqual, 8)

			So(ballots[0].ItemID, ShouldEqual, "1")
			So(ballots[0].Outcome, ShouldEqual, model.Keep)
			So(ballots[0].CreatedAt, ShouldEqual, t0)
			So(ballots[1].CreatedAt, ShouldEqual, t0.Add(time.Second))
			So(ballots[2].CreatedAt, ShouldEqual, t0.Add(2*time.Second))

			// Second vote (index 1) skips the empty trade slot.
			So(ballots[3].CreatedAt, ShouldEqual, t0.Add(time.Hour+3*time.Second))
			So(ballots[4].Outcome, ShouldEqual, model.Cut)
			So(ballots[4].CreatedAt, ShouldEqual, t0.Add(time.Hour+5*time.Second))

			So(ballots[5].CreatedAt, ShouldEqual, t0.Add(2*time.Hour+6*time.Second))
			So(ballots[5].VoteID, ShouldEqual, ballots[7].VoteID)
			So(ballots[5].VoteID, ShouldNotEqual, ballots[0].VoteID)
		})

		Convey("And the input is not reordered", func() {
			So(votes[0].Keep, ShouldEqual, "2")
		})
	})
}
