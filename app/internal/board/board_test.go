package board

import (
	"testing"
	"time"

	"github.com/guregu/null/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statusboard/app/internal/chart"
	"statusboard/app/internal/classify"
	"statusboard/app/internal/models"
	"statusboard/app/internal/series"
)

var now = time.Date(2025, time.June, 1, 10, 0, 0, 0, time.UTC)

func newBoard(t *testing.T, anonymize bool) *Board {
	t.Helper()
	return New(Options{
		Window:    series.Window60,
		Renderer:  chart.NewRenderer(classify.New(classify.DefaultThreshold), classify.DefaultPalette()),
		Anonymize: anonymize,
		Location:  time.UTC,
	})
}

func monitors() []models.MonitorStatus {
	return []models.MonitorStatus{
		{ID: 1, Name: "API", Status: models.StatusUp, Uptime: 99.98, StatusClass: "success", LastCheck: "2025-06-01 09:59:00"},
		{ID: 2, Name: "Web", Status: models.StatusUp, Uptime: 100, StatusClass: "success", LastCheck: "2025-06-01 09:59:00"},
	}
}

func TestSeed(t *testing.T) {
	b := newBoard(t, false)
	history := series.Source{Ranges: []series.Range{{Start: now.AddDate(0, 0, -30), End: now, Up: true}}}

	require.NoError(t, b.Seed(monitors(), map[int64]series.Source{1: history}, now))

	snap := b.Snapshot()
	require.Len(t, snap.Cards, 2)
	assert.Equal(t, "API", snap.Cards[0].Name)
	assert.Equal(t, "1", snap.Cards[0].Key)
	assert.Equal(t, "99.980%", snap.Cards[0].UptimeText)
	assert.Equal(t, "bg-success", snap.Cards[0].BadgeClass)
	require.Len(t, snap.Cards[0].Chart.Bars, series.Window60)
	assert.Equal(t, classify.NoData, snap.Cards[0].Chart.Bars[0].Category)
	assert.Equal(t, classify.Up, snap.Cards[0].Chart.Bars[59].Category)

	// no history: only today carries the live value
	counts := snap.Cards[1].Chart.Counts()
	assert.Equal(t, 59, counts[classify.NoData])
	assert.Equal(t, 1, counts[classify.Up])

	assert.Equal(t, StateOperational, snap.Aggregate.State)
	assert.Equal(t, "10:00:00 AM", snap.LastUpdate)
}

func TestApply_PatchesTodayOnly(t *testing.T) {
	b := newBoard(t, false)
	history := series.Source{Ranges: []series.Range{{Start: now.AddDate(0, 0, -90), End: now, Up: true}}}
	require.NoError(t, b.Seed(monitors(), map[int64]series.Source{1: history, 2: history}, now))

	before := b.Points(1)

	polled := monitors()
	polled[0].Status = models.StatusDown
	polled[0].StatusClass = "danger"
	polled[0].Uptime = 0
	b.Apply(polled, now.Add(time.Minute))

	after := b.Points(1)
	require.Len(t, after, len(before))
	assert.Equal(t, before[:59], after[:59])
	assert.Equal(t, null.FloatFrom(0), after[59].Value)

	c, ok := b.Card(1)
	require.True(t, ok)
	assert.Equal(t, "Down", c.Badge)
	assert.Equal(t, "bg-danger", c.BadgeClass)
	assert.True(t, c.UptimeDanger)
	assert.Equal(t, classify.Down, c.Chart.Bars[59].Category)
	assert.Equal(t, classify.Up, c.Chart.Bars[58].Category)

	assert.Equal(t, StatePartialOutage, b.Snapshot().Aggregate.State)
}

func TestApply_LastPointTracksLatestPoll(t *testing.T) {
	b := newBoard(t, false)
	require.NoError(t, b.Seed(monitors(), nil, now))

	statuses := []string{models.StatusDown, models.StatusUp, models.StatusPaused, models.StatusSeemsDown}
	for i, st := range statuses {
		polled := monitors()
		polled[1].Status = st
		b.Apply(polled, now.Add(time.Duration(i+1)*time.Minute))

		pts := b.Points(2)
		assert.Equal(t, series.LiveValue(polled[1]), pts[len(pts)-1].Value, "after poll %d", i)
	}
}

func TestApply_DayRolloverKeepsWindow(t *testing.T) {
	b := newBoard(t, false)
	require.NoError(t, b.Seed(monitors(), nil, now))

	b.Apply(monitors(), now.AddDate(0, 0, 1))

	pts := b.Points(1)
	require.Len(t, pts, series.Window60)
	assert.Equal(t, series.Day(now.AddDate(0, 0, 1)), pts[59].Date)
	assert.Equal(t, null.FloatFrom(100), pts[58].Value)
	assert.Equal(t, null.FloatFrom(100), pts[59].Value)

	c, _ := b.Card(1)
	assert.Equal(t, pts[0].Key(), c.Chart.Bars[0].Label)
}

func TestApply_UnknownMonitorIgnored(t *testing.T) {
	b := newBoard(t, false)
	require.NoError(t, b.Seed(monitors(), nil, now))

	polled := append(monitors(), models.MonitorStatus{ID: 99, Status: models.StatusDown})
	b.Apply(polled, now)

	_, ok := b.Card(99)
	assert.False(t, ok)
	assert.Len(t, b.Snapshot().Cards, 2)
}

func TestAggregate(t *testing.T) {
	b := newBoard(t, false)
	assert.Equal(t, StateOperational, b.Snapshot().Aggregate.State)

	require.NoError(t, b.Seed(monitors(), nil, now))
	assert.Equal(t, StateOperational, b.Snapshot().Aggregate.State)

	all := monitors()
	all[0].Status = models.StatusDown
	b.Apply(all, now)
	a := b.Snapshot().Aggregate
	assert.Equal(t, StatePartialOutage, a.State)
	assert.Equal(t, "warning", a.Class)
	assert.Equal(t, 1, a.Up)

	all[1].Status = models.StatusPaused
	b.Apply(all, now)
	a = b.Snapshot().Aggregate
	assert.Equal(t, StateFullOutage, a.State)
	assert.Equal(t, "danger", a.Class)
}

func TestAggregate_CountsCardsOnly(t *testing.T) {
	b := newBoard(t, false)

	// nothing seeded: polled monitors have no cards and must not move the banner
	b.Apply([]models.MonitorStatus{{ID: 9, Status: models.StatusDown}}, now)
	a := b.Snapshot().Aggregate
	assert.Equal(t, 0, a.Total)
	assert.Equal(t, StateOperational, a.State)

	require.NoError(t, b.Seed(monitors(), nil, now))
	polled := append(monitors(), models.MonitorStatus{ID: 9, Status: models.StatusDown})
	b.Apply(polled, now)
	a = b.Snapshot().Aggregate
	assert.Equal(t, 2, a.Total)
	assert.Equal(t, 2, a.Up)
	assert.Equal(t, StateOperational, a.State)
}

func TestAnonymizedNames(t *testing.T) {
	b := newBoard(t, true)
	require.NoError(t, b.Seed(monitors(), nil, now))

	snap := b.Snapshot()
	assert.Equal(t, "System 01", snap.Cards[0].Name)
	assert.Equal(t, "System 02", snap.Cards[1].Name)
}

func TestSubscribe(t *testing.T) {
	b := newBoard(t, false)

	var got []Snapshot
	cancel := b.Subscribe(func(s Snapshot) { got = append(got, s) })

	require.NoError(t, b.Seed(monitors(), nil, now))
	b.Apply(monitors(), now)
	_, err := b.Rebuild(1, series.Source{}, now)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, CauseSeed, got[0].Cause)
	assert.Equal(t, CausePoll, got[1].Cause)
	assert.Equal(t, CauseRebuild, got[2].Cause)
	assert.Empty(t, b.Snapshot().Cause)

	cancel()
	b.Apply(monitors(), now)
	assert.Len(t, got, 3)
}

func TestSnapshotIsACopy(t *testing.T) {
	b := newBoard(t, false)
	require.NoError(t, b.Seed(monitors(), nil, now))

	snap := b.Snapshot()
	snap.Cards[0].Chart.Bars[59].Color = "mutated"

	c, _ := b.Card(1)
	assert.NotEqual(t, "mutated", c.Chart.Bars[59].Color)
}

func TestRebuild_AppliesIncidentAndKeepsToday(t *testing.T) {
	b := newBoard(t, false)
	require.NoError(t, b.Seed(monitors(), nil, now))

	down := monitors()
	down[1].Status = models.StatusDown
	b.Apply(down, now)

	incidentDay := series.Day(now).AddDate(0, 0, -10)
	ok, err := b.Rebuild(2, series.Source{
		Incidents: map[string]float64{incidentDay.Format(series.DateKey): 42},
	}, now)
	require.NoError(t, err)
	require.True(t, ok)

	points := b.Points(2)
	require.Len(t, points, series.Window60)
	assert.Equal(t, null.FloatFrom(42), points[49].Value)
	assert.Equal(t, null.FloatFrom(0), points[59].Value, "today keeps the polled value")

	card, _ := b.Card(2)
	assert.Equal(t, classify.Down, card.Chart.Bars[49].Category)
}

func TestRebuild_UnknownMonitor(t *testing.T) {
	b := newBoard(t, false)
	require.NoError(t, b.Seed(monitors(), nil, now))
	ok, err := b.Rebuild(99, series.Source{}, now)
	require.NoError(t, err)
	assert.False(t, ok)
}
