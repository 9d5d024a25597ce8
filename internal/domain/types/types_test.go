package types_test

import (
	"encoding/json"
	"testing"

	types "github.com/okian/ktc/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestItemDetailJSON(t *testing.T) {
	Convey("Given an item detail", t, func() {
		d := types.ItemDetail{
			Entry: types.Entry{
				Rank:       2,
				ItemID:     "item-1",
				Name:       "Ocean Blue",
				Color:      "#0066CC",
				Rating:     61.5,
				Confidence: 0.4,
				TotalVotes: 8,
			},
			KeepVotes:  5,
			TradeVotes: 2,
			CutVotes:   1,
		}

		Convey("When encoded", func() {
			raw, err := json.Marshal(d)
			So(err, ShouldBeNil)

			var flat map[string]any
			So(json.Unmarshal(raw, &flat), ShouldBeNil)

			Convey("Then the embedded entry fields are flattened", func() {
				So(flat["item_id"], ShouldEqual, "item-1")
				So(flat["rank"], ShouldEqual, 2.0)
				So(flat["keep_votes"], ShouldEqual, 5.0)
				So(flat, ShouldNotContainKey, "Entry")
			})
		})
	})
}
