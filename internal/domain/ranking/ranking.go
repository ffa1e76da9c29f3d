package ranking

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/gravadigital/eventsoft-api/internal/domain/common"
	"github.com/gravadigital/eventsoft-api/internal/domain/enrollment"
	"github.com/gravadigital/eventsoft-api/internal/logger"
)

// Entry is a participant to be ranked
type Entry struct {
	ParticipantID uuid.UUID
	Name          string
	Document      string
	Email         string
	Score         float64
	RegisteredAt  time.Time
}

// Standing is a ranked entry
type Standing struct {
	Rank          int       `json:"rank"`
	ParticipantID uuid.UUID `json:"participant_id"`
	Name          string    `json:"name"`
	Document      string    `json:"document"`
	Email         string    `json:"-"`
	Score         float64   `json:"score"`
}

// cents compares scores at their persisted two-decimal precision
func cents(score float64) int64 {
	return int64(math.Round(score * 100))
}

// Rank orders entries by score descending and assigns competition ranks:
// equal scores share a rank and the next distinct score skips the tied positions (1, 1, 3).
// Equal scores are ordered by registration time, then participant id.
func Rank(entries []Entry) []Standing {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if ca, cb := cents(a.Score), cents(b.Score); ca != cb {
			return ca > cb
		}
		if !a.RegisteredAt.Equal(b.RegisteredAt) {
			return a.RegisteredAt.Before(b.RegisteredAt)
		}
		return bytes.Compare(a.ParticipantID[:], b.ParticipantID[:]) < 0
	})

	standings := make([]Standing, len(sorted))
	for i, e := range sorted {
		rank := i + 1
		if i > 0 && cents(e.Score) == cents(sorted[i-1].Score) {
			rank = standings[i-1].Rank
		}
		standings[i] = Standing{
			Rank:          rank,
			ParticipantID: e.ParticipantID,
			Name:          e.Name,
			Document:      e.Document,
			Email:         e.Email,
			Score:         e.Score,
		}
	}
	return standings
}

type Participants interface {
	List(ctx context.Context, filter enrollment.Filter) ([]*enrollment.Member, error)
}

// Backfiller computes a missing aggregate
type Backfiller interface {
	RecomputeAggregate(ctx context.Context, participantID, eventID uuid.UUID) (float64, error)
}

// Board ranks the approved participants of an event
type Board struct {
	participants Participants
	scores       Backfiller
	log          *log.Logger
}

func NewBoard(participants Participants, scores Backfiller) *Board {
	return &Board{
		participants: participants,
		scores:       scores,
		log:          logger.Scoring(),
	}
}

// Rank loads the approved participants, filling in aggregates that were never computed or were invalidated
func (b *Board) Rank(ctx context.Context, eventID uuid.UUID) ([]Standing, error) {
	approved := enrollment.StateApproved
	members, err := b.participants.List(ctx, enrollment.Filter{
		EventID: eventID,
		Kind:    common.KindParticipant,
		State:   &approved,
	})
	if err != nil {
		return nil, fmt.Errorf("Board.Rank -> %w", err)
	}

	entries := make([]Entry, 0, len(members))
	backfilled := 0
	for _, m := range members {
		var score float64
		if m.Enrollment.AggregateScore != nil {
			score = *m.Enrollment.AggregateScore
		} else {
			score, err = b.scores.RecomputeAggregate(ctx, m.Enrollment.ProfileID, eventID)
			if err != nil {
				return nil, fmt.Errorf("Board.Rank -> %w", err)
			}
			backfilled++
		}
		entries = append(entries, Entry{
			ParticipantID: m.Enrollment.ProfileID,
			Name:          m.User.FullName(),
			Document:      m.User.Document,
			Email:         m.User.Email,
			Score:         score,
			RegisteredAt:  m.Enrollment.RegisteredAt,
		})
	}

	b.log.Debug("Ranking computed", "event_id", eventID, "participants", len(entries), "backfilled", backfilled)
	return Rank(entries), nil
}
