// Package ingest coordinates pulling a report's fights and event streams,
// deriving the metric families, and persisting the results.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/raidlens/raidlens/internal/core"
	"github.com/raidlens/raidlens/internal/core/client"
	"github.com/raidlens/raidlens/internal/core/metrics"
	appmetrics "github.com/raidlens/raidlens/internal/metrics"
)

// Event stream kinds requested from the remote service.
const (
	dataTypeCasts     = "Casts"
	dataTypeDamage    = "DamageDone"
	dataTypeResources = "Resources"
	dataTypeBuffs     = "Buffs"
)

const defaultWorkers = 3

// MetricsWriter is the slice of the store the runner needs.
type MetricsWriter interface {
	ReplaceFightMetrics(ctx context.Context, fm *core.FightMetrics) error
	RecordIngestRun(ctx context.Context, run core.IngestRun) error
	SaveRateBudget(ctx context.Context, snap core.RateBudgetSnapshot) error
}

// Options selects what to ingest and which lookup tables apply.
type Options struct {
	ReportCode string

	// FightIDs restricts ingestion; empty means every fight in the report.
	FightIDs []int

	// Class and Spec select the cooldown, DoT, and rotation tables. Both
	// are optional; without them only the class-agnostic families are
	// computed.
	Class string
	Spec  string

	// SourceID focuses class-specific families on one player. Zero means
	// all players for cooldowns and the most active player for rotation.
	SourceID int

	Workers      int
	TopCancelled int
	ToolVersion  string
}

// Runner executes one report ingestion end to end.
type Runner struct {
	Client    *client.Client
	Store     MetricsWriter
	PageLimit int
	Logger    *zap.Logger

	// Clock is injectable for tests; nil means time.Now.
	Clock func() time.Time
}

// Result summarizes one completed run.
type Result struct {
	Run    core.IngestRun
	Fights []*core.FightMetrics
}

// Run ingests the report described by opts. Fights are processed
// concurrently; all workers share the runner's client and therefore its
// token provider and rate budget.
func (r *Runner) Run(ctx context.Context, opts Options) (*Result, error) {
	if r == nil || r.Client == nil {
		return nil, errors.New("ingest runner requires a client")
	}
	if opts.ReportCode == "" {
		return nil, errors.New("report code is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	startedAt := r.now()

	var requests int64
	prevHook := r.Client.OnRequest
	r.Client.OnRequest = func() {
		atomic.AddInt64(&requests, 1)
		if prevHook != nil {
			prevHook()
		}
	}
	defer func() { r.Client.OnRequest = prevHook }()

	fights, err := r.Client.Fights(ctx, opts.ReportCode)
	if err != nil {
		return nil, fmt.Errorf("fetch fights: %w", err)
	}
	fights = filterFights(fights, opts.FightIDs)
	if len(fights) == 0 {
		return nil, fmt.Errorf("report %s has no matching fights", opts.ReportCode)
	}

	var pages int64
	results, err := r.processFights(ctx, opts, fights, &pages)
	if err != nil {
		return nil, err
	}

	run := core.IngestRun{
		ID:          uuid.New().String(),
		ReportCode:  opts.ReportCode,
		StartedAt:   startedAt,
		CompletedAt: r.now(),
		Fights:      len(results),
		Pages:       int(atomic.LoadInt64(&pages)),
		Requests:    int(atomic.LoadInt64(&requests)),
		ToolVersion: opts.ToolVersion,
	}

	if r.Store != nil {
		if err := r.Store.RecordIngestRun(ctx, run); err != nil {
			return nil, err
		}
		if r.Client.Budget != nil {
			if err := r.Store.SaveRateBudget(ctx, r.Client.Budget.Snapshot()); err != nil {
				return nil, err
			}
		}
	}

	r.log("report ingested",
		zap.String("report", opts.ReportCode),
		zap.Int("fights", run.Fights),
		zap.Int("pages", run.Pages),
		zap.Int("requests", run.Requests))

	return &Result{Run: run, Fights: results}, nil
}

func (r *Runner) processFights(ctx context.Context, opts Options, fights []core.Fight, pages *int64) ([]*core.FightMetrics, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]*core.FightMetrics, len(fights))
	jobs := make(chan int)

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)

	setErr := func(err error) {
		if err == nil {
			return
		}
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	worker := func() {
		defer wg.Done()
		for idx := range jobs {
			if ctx.Err() != nil {
				return
			}
			fm, fightPages, err := r.processFight(ctx, opts, fights[idx])
			if err != nil {
				setErr(fmt.Errorf("fight %d: %w", fights[idx].ID, err))
				return
			}
			atomic.AddInt64(pages, int64(fightPages))
			results[idx] = fm
		}
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	if workers > len(fights) {
		workers = len(fights)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go worker()
	}

sendLoop:
	for i := range fights {
		select {
		case <-ctx.Done():
			break sendLoop
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}

// processFight pulls the event streams for one fight and derives every
// applicable metric family.
func (r *Runner) processFight(ctx context.Context, opts Options, fight core.Fight) (*core.FightMetrics, int, error) {
	pager := &client.Pager{Client: r.Client, PageLimit: r.PageLimit, Logger: r.Logger}
	duration := fight.DurationMs()

	baseQuery := client.ReportQuery{
		Code:      opts.ReportCode,
		FightID:   fight.ID,
		StartTime: fight.StartTime,
		EndTime:   fight.EndTime,
	}

	totalPages := 0
	fetch := func(dataType string) ([]core.Event, error) {
		q := baseQuery
		q.DataType = dataType
		events, pages, err := pager.FetchEvents(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("fetch %s events: %w", dataType, err)
		}
		totalPages += pages
		appmetrics.RecordPagesFetched(dataType, pages)
		return events, nil
	}

	casts, err := fetch(dataTypeCasts)
	if err != nil {
		return nil, totalPages, err
	}
	damage, err := fetch(dataTypeDamage)
	if err != nil {
		return nil, totalPages, err
	}
	resources, err := fetch(dataTypeResources)
	if err != nil {
		return nil, totalPages, err
	}

	fm := &core.FightMetrics{ReportCode: opts.ReportCode, Fight: fight}

	players := distinctSources(casts)
	for _, source := range players {
		fm.CastActivity = append(fm.CastActivity,
			metrics.ComputeCastActivity(source, castsBy(casts, source), duration))
	}

	if opts.Class != "" {
		for _, source := range cooldownTargets(players, opts.SourceID) {
			sourceCasts := castsBy(casts, source)
			fm.CooldownUsage = append(fm.CooldownUsage,
				metrics.ComputeCooldownUsage(opts.Class, source, sourceCasts, duration)...)
			fm.CooldownWindows = append(fm.CooldownWindows,
				metrics.ComputeCooldownWindows(opts.Class, source, sourceCasts, damageBy(damage, source), duration)...)
		}
	}

	fm.CancelledCasts = metrics.ComputeCancelledCasts(casts, opts.TopCancelled)
	fm.Resources = metrics.ComputeResourceMetrics(resources, duration)

	phases := metrics.DetectPhases(fight.EncounterName, duration)
	fm.PhaseMetrics = metrics.ComputePhaseMetrics(phases, casts, damage)

	if opts.Spec != "" {
		fm.DotRefresh = metrics.ComputeDotRefresh(opts.Spec, casts)

		focus := opts.SourceID
		if focus == 0 {
			focus = mostActiveSource(casts, players)
		}
		if focus != 0 {
			input := metrics.RotationInput{
				SourceID:        focus,
				Casts:           castsBy(casts, focus),
				FightDurationMs: duration,
			}
			if specNeedsBuffs(opts.Spec) {
				buffs, err := fetch(dataTypeBuffs)
				if err != nil {
					return nil, totalPages, err
				}
				input.BuffUptimePct = buffUptimes(buffs, focus, duration)
			}
			report := metrics.EvaluateRotation(opts.Spec, input)
			fm.Rotation = &report
		}
	}

	if r.Store != nil {
		if err := r.Store.ReplaceFightMetrics(ctx, fm); err != nil {
			return nil, totalPages, err
		}
	}

	appmetrics.RecordFightIngested(fight.EncounterName)

	r.log("fight processed",
		zap.String("report", opts.ReportCode),
		zap.Int("fight", fight.ID),
		zap.String("encounter", fight.EncounterName),
		zap.Int("players", len(players)),
		zap.Int("pages", totalPages))

	return fm, totalPages, nil
}

func filterFights(fights []core.Fight, ids []int) []core.Fight {
	if len(ids) == 0 {
		return fights
	}
	want := make(map[int]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	kept := make([]core.Fight, 0, len(ids))
	for _, f := range fights {
		if want[f.ID] {
			kept = append(kept, f)
		}
	}
	return kept
}

func distinctSources(events []core.Event) []int {
	seen := make(map[int]bool)
	for _, ev := range events {
		if ev.Type == core.EventCast && ev.SourceID != 0 {
			seen[ev.SourceID] = true
		}
	}
	sources := make([]int, 0, len(seen))
	for id := range seen {
		sources = append(sources, id)
	}
	sort.Ints(sources)
	return sources
}

// castsBy returns one player's completed casts. Begincast events stay out
// so a hardcast (begincast + cast pair) counts once; the cancelled-cast
// family reads the unfiltered stream instead.
func castsBy(events []core.Event, source int) []core.Event {
	out := make([]core.Event, 0)
	for _, ev := range events {
		if ev.SourceID == source && ev.Type == core.EventCast {
			out = append(out, ev)
		}
	}
	return out
}

func damageBy(events []core.Event, source int) []core.Event {
	out := make([]core.Event, 0)
	for _, ev := range events {
		if ev.SourceID == source && ev.Type == core.EventDamage {
			out = append(out, ev)
		}
	}
	return out
}

func cooldownTargets(players []int, focus int) []int {
	if focus == 0 {
		return players
	}
	return []int{focus}
}

func mostActiveSource(casts []core.Event, players []int) int {
	counts := make(map[int]int)
	for _, ev := range casts {
		if ev.Type == core.EventCast {
			counts[ev.SourceID]++
		}
	}
	best, bestCount := 0, -1
	for _, p := range players {
		if counts[p] > bestCount {
			best, bestCount = p, counts[p]
		}
	}
	return best
}

func specNeedsBuffs(spec string) bool {
	for _, rule := range metrics.RotationRulesForSpec(spec) {
		if rule.Type == metrics.RuleUptime {
			return true
		}
	}
	return false
}

// buffUptimes derives per-buff uptime percentages for one player from an
// aura event stream. Aura events toggle: the first event for a buff marks
// it applied, the next marks it removed. A buff still active at fight end
// counts until the end.
func buffUptimes(events []core.Event, source int, durationMs int64) map[int]float64 {
	if durationMs <= 0 {
		return nil
	}

	type state struct {
		active  bool
		since   int64
		totalMs int64
	}
	buffs := make(map[int]*state)

	for _, ev := range events {
		if ev.Type != core.EventAura || ev.TargetID != source {
			continue
		}
		st := buffs[ev.AbilityID]
		if st == nil {
			st = &state{}
			buffs[ev.AbilityID] = st
		}
		if st.active {
			if ev.Timestamp > st.since {
				st.totalMs += ev.Timestamp - st.since
			}
			st.active = false
		} else {
			st.active = true
			st.since = ev.Timestamp
		}
	}

	uptimes := make(map[int]float64, len(buffs))
	for id, st := range buffs {
		total := st.totalMs
		if st.active && durationMs > st.since {
			total += durationMs - st.since
		}
		uptimes[id] = float64(total) / float64(durationMs) * 100
	}
	return uptimes
}

func (r *Runner) now() time.Time {
	if r != nil && r.Clock != nil {
		return r.Clock()
	}
	return time.Now().UTC()
}

func (r *Runner) log(msg string, fields ...zap.Field) {
	if r == nil || r.Logger == nil {
		return
	}
	r.Logger.Info(msg, fields...)
}
