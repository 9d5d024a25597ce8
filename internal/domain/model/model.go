// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidOutcome is returned when an outcome tag is not keep, trade or cut.
var ErrInvalidOutcome = errors.New("invalid outcome")

// Outcome is the three-way preference signal carried by a ballot.
type Outcome string

// Known outcomes.
const (
	Keep  Outcome = "keep"
	Trade Outcome = "trade"
	Cut   Outcome = "cut"
)

// Outcomes lists the known outcomes in ballot order.
var Outcomes = [3]Outcome{Keep, Trade, Cut}

// Valid reports whether o is one of the known outcomes.
func (o Outcome) Valid() bool {
	switch o {
	case Keep, Trade, Cut:
		return true
	}
	return false
}

// ParseOutcome converts a tag into an Outcome. Matching is case-insensitive
// and ignores surrounding whitespace.
func ParseOutcome(s string) (Outcome, error) {
	o := Outcome(strings.ToLower(strings.TrimSpace(s)))
	if !o.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidOutcome, s)
	}
	return o, nil
}

// Item is a votable entity. Rating and TotalVotes are projections of the
// ballot log and may be regenerated at any time.
type Item struct {
	ID         string
	Name       string
	Color      string   // hex color, e.g. "#0066CC"
	Rating     *float64 // nil means never rated
	TotalVotes int
	CreatedAt  time.Time
}

// EffectiveRating returns the stored rating, or base when unset.
func (i Item) EffectiveRating(base float64) float64 {
	if i.Rating == nil {
		return base
	}
	return *i.Rating
}

// Ballot is one immutable entry of the append-only log.
type Ballot struct {
	ID        string
	VoteID    string // groups the three ballots of one submission
	ItemID    string
	Outcome   Outcome
	CreatedAt time.Time
}

// Vote is a proposed three-outcome submission.
type Vote struct {
	Keep  string
	Trade string
	Cut   string
}

// IDs returns the vote's item ids in keep, trade, cut order.
func (v Vote) IDs() [3]string {
	return [3]string{v.Keep, v.Trade, v.Cut}
}

// Triplet is an ordered set of three item ids shown together.
type Triplet [3]string

// Contains reports whether id is a member of t.
func (t Triplet) Contains(id string) bool {
	for _, m := range t {
		if m == id {
			return true
		}
	}
	return false
}

// LegacyVote is a vote row written before the per-item ballot log existed.
// Empty slots are allowed and simply produce no ballot.
type LegacyVote struct {
	Keep      string    `yaml:"color_keep"`
	Trade     string    `yaml:"color_trade"`
	Cut       string    `yaml:"color_cut"`
	CreatedAt time.Time `yaml:"created_at"`
}
