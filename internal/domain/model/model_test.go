package model_test

import (
	"errors"
	"testing"

	"github.com/okian/ktc/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestParseOutcome(t *testing.T) {
	Convey("Given outcome tags", t, func() {
		Convey("When the tag is known", func() {
			for _, tag := range []string{"keep", "Trade", " CUT "} {
				o, err := model.ParseOutcome(tag)
				So(err, ShouldBeNil)
				So(o.Valid(), ShouldBeTrue)
			}
		})

		Convey("When the tag is unknown", func() {
			_, err := model.ParseOutcome("love")

			Convey("Then it should fail with ErrInvalidOutcome", func() {
				So(errors.Is(err, model.ErrInvalidOutcome), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "love")
			})
		})
	})
}

func TestItemEffectiveRating(t *testing.T) {
	Convey("Given items with and without a stored rating", t, func() {
		r := 72.5
		rated := model.Item{ID: "a", Rating: &r}
		fresh := model.Item{ID: "b"}

		So(rated.EffectiveRating(50), ShouldEqual, 72.5)
		So(fresh.EffectiveRating(50), ShouldEqual, 50)
	})

	Convey("Given a zero rating", t, func() {
		zero := 0.0
		item := model.Item{ID: "c", Rating: &zero}

		Convey("Then it is kept rather than replaced by the base", func() {
			So(item.EffectiveRating(50), ShouldEqual, 0)
		})
	})
}

func TestTripletContains(t *testing.T) {
	Convey("Given a triplet", t, func() {
		tr := model.Triplet{"a", "b", "c"}
		So(tr.Contains("b"), ShouldBeTrue)
		So(tr.Contains("d"), ShouldBeFalse)
		So(model.Vote{Keep: "a", Trade: "b", Cut: "c"}.IDs(), ShouldResemble, [3]string{"a", "b", "c"})
	})
}
