package views

import (
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func genEvent() gopter.Gen {
	return gopter.CombineGens(
		gen.IntRange(0, len(ViewableTypes)-1),
		gen.IntRange(0, 4),
		gen.IntRange(1, 6),
		gen.IntRange(1, 8),
		gen.Int64Range(0, 40*24*3600),
	).Map(func(values []interface{}) ViewEvent {
		var userID *string
		if u := values[1].(int); u > 0 {
			userID = strPtr(fmt.Sprintf("user-%d", u))
		}
		return newEvent(
			"",
			userID,
			ViewableTypes[values[0].(int)],
			fmt.Sprintf("%d", values[2].(int)),
			fmt.Sprintf("10.0.%d.1", values[3].(int)),
			testBase.Add(time.Duration(values[4].(int64))*time.Second),
		)
	})
}

func genEvents() gopter.Gen {
	return gen.SliceOf(genEvent()).Map(func(events []ViewEvent) []ViewEvent {
		for i := range events {
			events[i].ID = fmt.Sprintf("v%d", i)
		}
		return events
	})
}

func genCriteria() gopter.Gen {
	return gopter.CombineGens(
		gen.IntRange(-1, len(ViewableTypes)-1),
		gen.OneConstOf("", "user-1", "user-3"),
		gen.OneConstOf("", "1", "4"),
		gen.OneConstOf("", "10.0.2", "USER 2", "example.com"),
		gen.Int64Range(-1, 40*24*3600),
	).Map(func(values []interface{}) Criteria {
		criteria := Criteria{
			UserID:     values[1].(string),
			ViewableID: values[2].(string),
			Search:     values[3].(string),
		}
		if i := values[0].(int); i >= 0 {
			criteria.Type = ViewableTypes[i]
		}
		if offset := values[4].(int64); offset >= 0 {
			start := testBase.Add(time.Duration(offset) * time.Second)
			end := start.Add(5 * 24 * time.Hour)
			criteria.Start = &start
			criteria.End = &end
		}
		return criteria
	})
}

func isSubsequence(sub, full []ViewEvent) bool {
	j := 0
	for _, event := range full {
		if j < len(sub) && sub[j].ID == event.ID {
			j++
		}
	}
	return j == len(sub)
}

func TestProperty_Aggregation(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("filter result is an order-preserving subsequence", prop.ForAll(
		func(events []ViewEvent, criteria Criteria) bool {
			return isSubsequence(Filter(events, criteria), events)
		},
		genEvents(),
		genCriteria(),
	))

	properties.Property("filter without criteria keeps every event in order", prop.ForAll(
		func(events []ViewEvent) bool {
			got := Filter(events, Criteria{})
			if len(got) != len(events) {
				return false
			}
			for i := range got {
				if got[i].ID != events[i].ID {
					return false
				}
			}
			return true
		},
		genEvents(),
	))

	properties.Property("sort is idempotent", prop.ForAll(
		func(events []ViewEvent, oldest bool) bool {
			order := SortRecent
			if oldest {
				order = SortOldest
			}
			once := Sort(events, order)
			twice := Sort(once, order)
			for i := range once {
				if once[i].ID != twice[i].ID {
					return false
				}
			}
			return len(once) == len(twice)
		},
		genEvents(),
		gen.Bool(),
	))

	properties.Property("day groups partition the input", prop.ForAll(
		func(events []ViewEvent) bool {
			seen := make(map[string]int)
			total := 0
			for _, day := range GroupByDay(events, time.UTC) {
				if day.Count != len(day.Events) {
					return false
				}
				total += day.Count
				for _, event := range day.Events {
					seen[event.ID]++
				}
			}
			if total != len(events) || len(seen) != len(events) {
				return false
			}
			for _, count := range seen {
				if count != 1 {
					return false
				}
			}
			return true
		},
		genEvents(),
	))

	properties.Property("summary totals are consistent", prop.ForAll(
		func(events []ViewEvent) bool {
			summary := Summarize(events, testBase.Add(20*24*time.Hour), time.UTC)
			byDay := 0
			for _, count := range summary.ViewsByDay {
				byDay += count
			}
			return summary.Total == len(events) &&
				summary.Authenticated+summary.Anonymous == len(events) &&
				byDay == len(events) &&
				summary.UniqueVisitors <= summary.UniqueUsers+summary.UniqueIPs &&
				len(summary.TopViewers) <= 10 &&
				len(summary.RecentViews) <= 10
		},
		genEvents(),
	))

	properties.Property("fingerprint tracks appended events", prop.ForAll(
		func(events []ViewEvent) bool {
			extended := append(cloneEvents(events), newEvent("extra", nil, TypePost, "1", "1.1.1.1", testBase))
			return Fingerprint(events) == Fingerprint(cloneEvents(events)) &&
				Fingerprint(events) != Fingerprint(extended)
		},
		genEvents(),
	))

	properties.TestingRun(t)
}
