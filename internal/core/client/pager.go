package client

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/raidlens/raidlens/internal/core"
)

// defaultPageLimit is the hard page-count ceiling per fetch. Hitting it is
// a soft stop, not an error.
const defaultPageLimit = 25

const eventsQuery = `
query FightEvents($code: String!, $fightIDs: [Int], $startTime: Float!, $endTime: Float!, $dataType: EventDataType, $sourceID: Int) {
  reportData {
    report(code: $code) {
      events(fightIDs: $fightIDs, startTime: $startTime, endTime: $endTime, dataType: $dataType, sourceID: $sourceID) {
        data
        nextPageTimestamp
      }
    }
  }
}`

const fightsQuery = `
query ReportFights($code: String!) {
  reportData {
    report(code: $code) {
      fights {
        id
        name
        startTime
        endTime
        kill
      }
    }
  }
}`

// ReportQuery identifies one (target, time-range, event-kind) fetch.
type ReportQuery struct {
	Code      string
	FightID   int
	StartTime int64
	EndTime   int64
	DataType  string
	SourceID  int
}

// Pager turns a report query into a finite sequence of event pages,
// advancing the server's continuation cursor between fetches. Each Pager
// is pulled by a single task; many pagers may share one Client.
type Pager struct {
	Client    *Client
	PageLimit int
	Logger    *zap.Logger
}

// EachPage fetches pages until the stream ends and hands each non-empty
// page to fn as soon as it is received. A cursor that fails to advance or
// a hit page ceiling stops the fetch quietly, keeping what was collected.
func (p *Pager) EachPage(ctx context.Context, q ReportQuery, fn func(core.EventPage) error) error {
	limit := p.PageLimit
	if limit <= 0 {
		limit = defaultPageLimit
	}

	start := q.StartTime
	for pages := 0; pages < limit; pages++ {
		page, err := p.fetchPage(ctx, q, start)
		if err != nil {
			return err
		}

		if len(page.Events) > 0 {
			if err := fn(page); err != nil {
				return err
			}
		}

		next := page.NextPageTimestamp
		if next == 0 {
			return nil
		}
		if next <= start {
			p.log("pagination cursor did not advance, stopping",
				zap.String("report", q.Code),
				zap.Int("fight", q.FightID),
				zap.Int64("cursor", next),
				zap.Int64("start", start))
			return nil
		}
		start = next
	}

	p.log("page ceiling reached, stopping",
		zap.String("report", q.Code),
		zap.Int("fight", q.FightID),
		zap.Int("limit", limit))
	return nil
}

// FetchEvents collects every page of a query into one slice.
func (p *Pager) FetchEvents(ctx context.Context, q ReportQuery) ([]core.Event, int, error) {
	var events []core.Event
	pages := 0
	err := p.EachPage(ctx, q, func(page core.EventPage) error {
		events = append(events, page.Events...)
		pages++
		return nil
	})
	if err != nil {
		return nil, pages, err
	}
	return events, pages, nil
}

func (p *Pager) fetchPage(ctx context.Context, q ReportQuery, start int64) (core.EventPage, error) {
	variables := map[string]any{
		"code":      q.Code,
		"startTime": start,
		"endTime":   q.EndTime,
	}
	if q.FightID > 0 {
		variables["fightIDs"] = []int{q.FightID}
	}
	if q.DataType != "" {
		variables["dataType"] = q.DataType
	}
	if q.SourceID > 0 {
		variables["sourceID"] = q.SourceID
	}

	data, err := p.Client.Query(ctx, eventsQuery, variables)
	if err != nil {
		return core.EventPage{}, err
	}

	var payload struct {
		ReportData struct {
			Report struct {
				Events core.EventPage `json:"events"`
			} `json:"report"`
		} `json:"reportData"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return core.EventPage{}, fmt.Errorf("decode event page: %w", err)
	}

	return payload.ReportData.Report.Events, nil
}

// Fights lists the fights recorded in a report.
func (c *Client) Fights(ctx context.Context, code string) ([]core.Fight, error) {
	data, err := c.Query(ctx, fightsQuery, map[string]any{"code": code})
	if err != nil {
		return nil, err
	}

	var payload struct {
		ReportData struct {
			Report struct {
				Fights []core.Fight `json:"fights"`
			} `json:"report"`
		} `json:"reportData"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode fights: %w", err)
	}

	return payload.ReportData.Report.Fights, nil
}

func (p *Pager) log(msg string, fields ...zap.Field) {
	if p.Logger == nil {
		return
	}
	p.Logger.Warn(msg, fields...)
}
