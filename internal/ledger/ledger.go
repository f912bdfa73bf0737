// Package ledger tracks recommendations through their full lifecycle:
// created, acted on (or ignored), then measured. The recorded outcomes feed
// back into later scoring passes, which is the only way the system learns
// whether its advice actually worked.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"marketing-signal-lab/internal/domain"
	"marketing-signal-lab/internal/storage"
)

// OutcomeCheckMinDays is how long after an action before measuring outcome.
const OutcomeCheckMinDays = 7

// outcomeThreshold is the relative change that counts as a real move in an
// efficiency metric. Smaller moves are noise.
const outcomeThreshold = 0.05

var (
	// ErrInvalidStatus means the status value is outside the fixed enum.
	ErrInvalidStatus = errors.New("invalid recommendation status")

	// ErrInvalidTransition means the requested status change violates the
	// lifecycle: pending may move anywhere, partial may complete to done,
	// done and ignored are terminal.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// CreateParams is the input for a new ledger entry.
type CreateParams struct {
	Type       string
	Action     string
	Channel    string
	Campaign   string
	CampaignID string

	BudgetChangeAmount  float64
	BudgetChangePercent float64

	Reason      string
	Confidence  domain.Confidence
	SignalsUsed []string

	Metrics domain.MetricsSnapshot

	LinkedChangeEvents []int64
}

// Ledger manages recommendation lifecycle over a RecommendationStore.
// Writes to the same recommendation id are serialized through per-id locks
// so concurrent status updates and outcome recordings cannot lose data.
type Ledger struct {
	store  storage.RecommendationStore
	now    func() time.Time
	logger *log.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a ledger. The clock is injectable for tests; nil means time.Now.
func New(store storage.RecommendationStore, now func() time.Time, logger *log.Logger) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{
		store:  store,
		now:    now,
		logger: logger,
		locks:  make(map[string]*sync.Mutex),
	}
}

func (l *Ledger) lockFor(id string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	return m
}

// Create stores a new pending recommendation and returns it. The metrics
// snapshot is captured now and never rewritten.
func (l *Ledger) Create(ctx context.Context, p CreateParams) (*domain.Recommendation, error) {
	now := l.now()
	rec := &domain.Recommendation{
		ID:                      newID(now),
		CreatedAt:               now,
		Type:                    p.Type,
		Action:                  p.Action,
		Channel:                 p.Channel,
		Campaign:                p.Campaign,
		CampaignID:              p.CampaignID,
		BudgetChangeAmount:      p.BudgetChangeAmount,
		BudgetChangePercent:     p.BudgetChangePercent,
		Reason:                  p.Reason,
		Confidence:              p.Confidence,
		SignalsUsed:             p.SignalsUsed,
		MetricsAtRecommendation: p.Metrics,
		Status:                  domain.StatusPending,
		Outcome:                 domain.OutcomePending,
		LinkedChangeEvents:      p.LinkedChangeEvents,
	}

	if err := l.store.Insert(ctx, rec); err != nil {
		return nil, fmt.Errorf("create recommendation: %w", err)
	}
	if l.logger != nil {
		l.logger.Printf("created recommendation %s (%s, %s)", rec.ID, rec.Type, rec.Channel)
	}
	return rec.Clone(), nil
}

// newID derives an id from the creation time, with nanoseconds appended so
// entries created inside the same second stay distinct.
func newID(now time.Time) string {
	return fmt.Sprintf("rec_%s_%d", now.Format("20060102_150405"), now.Nanosecond())
}

// Transition moves a recommendation to a new status and records when. The
// lifecycle is enforced: pending can go anywhere, partial can complete to
// done, done and ignored are terminal.
func (l *Ledger) Transition(ctx context.Context, id string, status domain.RecommendationStatus, actionTaken, reasonNotFollowed string) (*domain.Recommendation, error) {
	if !domain.ValidStatus(status) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	lock := l.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	rec, err := l.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("transition %s: %w", id, err)
	}

	if !validTransition(rec.Status, status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, rec.Status, status)
	}

	rec.Status = status
	rec.StatusUpdatedAt = l.now()
	if actionTaken != "" {
		rec.ActionTaken = actionTaken
	}
	if reasonNotFollowed != "" {
		rec.ReasonNotFollowed = reasonNotFollowed
	}

	if err := l.store.Update(ctx, rec); err != nil {
		return nil, fmt.Errorf("transition %s: %w", id, err)
	}
	return rec.Clone(), nil
}

func validTransition(from, to domain.RecommendationStatus) bool {
	switch from {
	case domain.StatusPending:
		return to != domain.StatusPending
	case domain.StatusPartial:
		return to == domain.StatusDone
	default:
		// done and ignored are terminal
		return false
	}
}

// Pending returns recommendations not yet acted on, created within the last
// N days, newest first.
func (l *Ledger) Pending(ctx context.Context, days int) ([]*domain.Recommendation, error) {
	recs, err := l.store.GetByStatus(ctx, domain.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("load pending: %w", err)
	}
	cutoff := l.now().AddDate(0, 0, -days)
	var out []*domain.Recommendation
	for _, r := range recs {
		if !r.CreatedAt.Before(cutoff) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Recent returns up to limit recommendations from the last N days, newest
// first.
func (l *Ledger) Recent(ctx context.Context, days, limit int) ([]*domain.Recommendation, error) {
	return l.store.GetSince(ctx, l.now().AddDate(0, 0, -days), limit)
}

// NeedsOutcomeCheck returns acted-upon recommendations whose outcome window
// has elapsed but whose after-metrics are still unrecorded. minDays moves
// the age threshold only; the recorded-check slot is always the 7-day
// offset, which is where RecordOutcome classifies.
func (l *Ledger) NeedsOutcomeCheck(ctx context.Context, minDays int) ([]*domain.Recommendation, error) {
	if minDays <= 0 {
		minDays = OutcomeCheckMinDays
	}

	recs, err := l.store.GetByStatus(ctx, domain.StatusDone, domain.StatusPartial)
	if err != nil {
		return nil, fmt.Errorf("load acted-upon: %w", err)
	}

	now := l.now()
	var out []*domain.Recommendation
	for _, r := range recs {
		if _, recorded := r.MetricsAfter[OutcomeCheckMinDays]; recorded {
			continue
		}
		if r.StatusUpdatedAt.IsZero() {
			continue
		}
		if int(now.Sub(r.StatusUpdatedAt).Hours()/24) >= minDays {
			out = append(out, r)
		}
	}
	return out, nil
}

// RecordOutcome stores after-metrics for a day offset. Each offset is
// written once; a repeat call for an already-recorded offset is a no-op
// returning the stored entry. The outcome classification runs at the 7-day
// offset against the creation-time snapshot and is never revised. A first
// check arriving past day 7 is recorded under the 7-day slot, so a missed
// cadence still classifies instead of stranding the entry as due forever.
func (l *Ledger) RecordOutcome(ctx context.Context, id string, after domain.MetricsSnapshot, daysAfter int) (*domain.Recommendation, error) {
	lock := l.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	rec, err := l.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("record outcome %s: %w", id, err)
	}

	if daysAfter > OutcomeCheckMinDays {
		if _, recorded := rec.MetricsAfter[OutcomeCheckMinDays]; !recorded {
			daysAfter = OutcomeCheckMinDays
		}
	}

	if _, recorded := rec.MetricsAfter[daysAfter]; recorded {
		return rec, nil
	}

	if rec.MetricsAfter == nil {
		rec.MetricsAfter = make(map[int]domain.MetricsSnapshot)
	}
	rec.MetricsAfter[daysAfter] = after

	if daysAfter == OutcomeCheckMinDays && rec.Outcome == domain.OutcomePending {
		rec.Outcome = ClassifyOutcome(rec.MetricsAtRecommendation, after)
		rec.OutcomeNotes = describeChange(rec.MetricsAtRecommendation, after)
	}

	if err := l.store.Update(ctx, rec); err != nil {
		return nil, fmt.Errorf("record outcome %s: %w", id, err)
	}
	if l.logger != nil {
		l.logger.Printf("recorded %dd outcome for %s: %s", daysAfter, id, rec.Outcome)
	}
	return rec.Clone(), nil
}

// ClassifyOutcome compares efficiency metrics before and after an action.
// Three signals, each needing a 5% relative move to count: MER (higher is
// better), NCAC (lower is better), CAM per order (higher is better).
func ClassifyOutcome(before, after domain.MetricsSnapshot) domain.Outcome {
	merImproved := after.MER > before.MER*(1+outcomeThreshold)
	merDeclined := after.MER < before.MER*(1-outcomeThreshold)
	ncacImproved := after.NCAC < before.NCAC*(1-outcomeThreshold)
	ncacWorsened := after.NCAC > before.NCAC*(1+outcomeThreshold)
	camImproved := after.CAMPerOrder > before.CAMPerOrder*(1+outcomeThreshold)
	camDeclined := after.CAMPerOrder < before.CAMPerOrder*(1-outcomeThreshold)

	positive := count(merImproved, ncacImproved, camImproved)
	negative := count(merDeclined, ncacWorsened, camDeclined)

	switch {
	case positive >= 2 && negative == 0:
		return domain.OutcomePositive
	case negative >= 2 && positive == 0:
		return domain.OutcomeNegative
	case positive > negative:
		return domain.OutcomePositive
	case negative > positive:
		return domain.OutcomeNegative
	default:
		return domain.OutcomeNeutral
	}
}

func count(flags ...bool) int {
	n := 0
	for _, f := range flags {
		if f {
			n++
		}
	}
	return n
}

func describeChange(before, after domain.MetricsSnapshot) string {
	var parts []string
	if before.MER > 0 {
		parts = append(parts, fmt.Sprintf("MER %+.1f%%", (after.MER-before.MER)/before.MER*100))
	}
	if before.NCAC > 0 {
		parts = append(parts, fmt.Sprintf("NCAC %+.1f%%", (after.NCAC-before.NCAC)/before.NCAC*100))
	}
	if before.CAMPerOrder > 0 {
		parts = append(parts, fmt.Sprintf("CAM/order %+.1f%%", (after.CAMPerOrder-before.CAMPerOrder)/before.CAMPerOrder*100))
	}
	if len(parts) == 0 {
		return "No metrics comparison available"
	}
	out := parts[0]
	for _, p := range parts[1:] {
		out += ", " + p
	}
	return out
}

// TypeStats aggregates outcomes for one recommendation type or channel.
type TypeStats struct {
	Done     int // done + partial
	Ignored  int
	Positive int
	Negative int
	Neutral  int
}

// Example is one concrete past recommendation surfaced in the summary.
type Example struct {
	Kind          string // success, failure, ignored
	Action        string
	Channel       string
	Reason        string
	MetricsChange string
	ReasonIgnored string
}

// Summary is the aggregated ledger history used to inform future passes.
type Summary struct {
	Total     int
	Acted     int
	Ignored   int
	Pending   int
	Outcomes  map[domain.Outcome]int
	ByType    map[string]*TypeStats
	ByChannel map[string]*TypeStats
	Patterns  []string
	Examples  []Example
}

// Summarize aggregates the last N days of recommendations: outcome counts
// per type and channel, repeat patterns worth calling out, and a handful of
// concrete examples of what worked and what did not.
func (l *Ledger) Summarize(ctx context.Context, days int) (*Summary, error) {
	recs, err := l.Recent(ctx, days, 100)
	if err != nil {
		return nil, fmt.Errorf("summarize ledger: %w", err)
	}

	s := &Summary{
		Total:     len(recs),
		Outcomes:  make(map[domain.Outcome]int),
		ByType:    make(map[string]*TypeStats),
		ByChannel: make(map[string]*TypeStats),
	}

	var successful, failed, ignored []*domain.Recommendation
	for _, r := range recs {
		acted := r.Status == domain.StatusDone || r.Status == domain.StatusPartial

		byType := statsFor(s.ByType, r.Type)
		byChannel := statsFor(s.ByChannel, r.Channel)

		switch {
		case acted:
			s.Acted++
			byType.Done++
			byChannel.Done++
		case r.Status == domain.StatusIgnored:
			s.Ignored++
			byType.Ignored++
			byChannel.Ignored++
		case r.Status == domain.StatusPending:
			s.Pending++
		}

		s.Outcomes[r.Outcome]++
		switch r.Outcome {
		case domain.OutcomePositive:
			byType.Positive++
			byChannel.Positive++
		case domain.OutcomeNegative:
			byType.Negative++
			byChannel.Negative++
		case domain.OutcomeNeutral:
			byType.Neutral++
		}

		switch {
		case acted && r.Outcome == domain.OutcomePositive:
			successful = append(successful, r)
		case acted && r.Outcome == domain.OutcomeNegative:
			failed = append(failed, r)
		case r.Status == domain.StatusIgnored:
			ignored = append(ignored, r)
		}
	}

	// A pattern needs at least 3 acted-upon entries of a type to mean
	// anything.
	types := make([]string, 0, len(s.ByType))
	for t := range s.ByType {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		st := s.ByType[t]
		if st.Done < 3 {
			continue
		}
		rate := float64(st.Positive) / float64(st.Done)
		if rate >= 0.7 {
			s.Patterns = append(s.Patterns, fmt.Sprintf("'%s' recommendations have been successful (%d/%d positive outcomes)", t, st.Positive, st.Done))
		} else if rate <= 0.3 && st.Negative >= 2 {
			s.Patterns = append(s.Patterns, fmt.Sprintf("'%s' recommendations have often backfired (%d/%d negative outcomes)", t, st.Negative, st.Done))
		}
	}

	for _, r := range capSlice(successful, 3) {
		s.Examples = append(s.Examples, Example{
			Kind:          "success",
			Action:        r.Action,
			Channel:       r.Channel,
			Reason:        r.Reason,
			MetricsChange: describeChange(r.MetricsAtRecommendation, r.MetricsAfter[OutcomeCheckMinDays]),
		})
	}
	for _, r := range capSlice(failed, 3) {
		s.Examples = append(s.Examples, Example{
			Kind:          "failure",
			Action:        r.Action,
			Channel:       r.Channel,
			Reason:        r.Reason,
			MetricsChange: describeChange(r.MetricsAtRecommendation, r.MetricsAfter[OutcomeCheckMinDays]),
		})
	}
	for _, r := range capSlice(ignored, 2) {
		reason := r.ReasonNotFollowed
		if reason == "" {
			reason = "No reason provided"
		}
		s.Examples = append(s.Examples, Example{
			Kind:          "ignored",
			Action:        r.Action,
			Channel:       r.Channel,
			ReasonIgnored: reason,
		})
	}

	return s, nil
}

func statsFor(m map[string]*TypeStats, key string) *TypeStats {
	if key == "" {
		key = "unknown"
	}
	st, ok := m[key]
	if !ok {
		st = &TypeStats{}
		m[key] = st
	}
	return st
}

func capSlice(recs []*domain.Recommendation, n int) []*domain.Recommendation {
	if len(recs) > n {
		return recs[:n]
	}
	return recs
}
