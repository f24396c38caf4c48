package alloc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhiltv/tripforge/core/model"
	"github.com/nikhiltv/tripforge/core/pool"
	"github.com/nikhiltv/tripforge/core/slots"
	"github.com/nikhiltv/tripforge/infra/logger"
)

var testDate = time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

func testDepot() model.Depot {
	return model.Depot{ID: "d1", Code: "EKM", District: "Ernakulam", Status: model.DepotActive}
}

func testRoute() model.Route {
	return model.Route{
		ID: "r1", DepotID: "d1", OriginDistrict: "Ernakulam", DestinationDistrict: "Ernakulam",
		DistanceKm: 60, DurationMin: 120, BaseFare: 40, FarePerKm: 1.5, Status: model.RouteActive,
	}
}

func testPool(nBuses, nDrivers, nConductors int) *pool.Pool {
	var buses []model.Bus
	for i := 0; i < nBuses; i++ {
		buses = append(buses, model.Bus{ID: string(rune('a'+i)) + "-bus", DepotID: "d1",
			Capacity: 45, Status: model.BusActive})
	}
	var drivers []model.Driver
	for i := 0; i < nDrivers; i++ {
		drivers = append(drivers, model.Driver{Crew: model.Crew{ID: string(rune('a'+i)) + "-drv",
			DepotID: "d1", Status: model.CrewActive}})
	}
	var conductors []model.Conductor
	for i := 0; i < nConductors; i++ {
		conductors = append(conductors, model.Conductor{Crew: model.Crew{ID: string(rune('a'+i)) + "-cnd",
			DepotID: "d1", Status: model.CrewActive}})
	}
	return pool.Load("d1", buses, drivers, conductors, logger.NopLogger{})
}

func slot(start string) slots.Slot {
	kind, mult := slots.Classify(start)
	return slots.Slot{Date: testDate, Start: start, Kind: kind, Multiplier: mult}
}

func TestAllocateBuildsTrip(t *testing.T) {
	a := New(testDepot(), testPool(2, 2, 2), nil, Config{}, logger.NopLogger{})
	st := NewState(1)

	st, trip, short, err := a.Allocate(st, Tuple{Route: testRoute(), Date: testDate, Slot: slot("06:00")}, time.Now())
	require.NoError(t, err)
	require.Nil(t, short)
	require.NotNil(t, trip)

	assert.Equal(t, "r1", trip.RouteID)
	assert.Equal(t, "d1", trip.DepotID)
	assert.NotEmpty(t, trip.BusID)
	assert.NotEmpty(t, trip.DriverID)
	assert.NotEmpty(t, trip.ConductorID)
	assert.Equal(t, model.TripScheduled, trip.Status)
	assert.Equal(t, "06:00", trip.StartTime)
	assert.Equal(t, "08:00", trip.EndTime)
	assert.Equal(t, 45, trip.Capacity)
	assert.Equal(t, 45, trip.AvailableSeats)
	assert.Equal(t, 0, trip.BookedSeats)
	assert.True(t, trip.BookingOpen)
	// 40 + 60*1.5 = 130 at the neutral morning multiplier.
	assert.Equal(t, 130.0, trip.Fare)
	assert.Equal(t, "EKM-250303-001", trip.Code)
	assert.Equal(t, 1, st.Seq)
	assert.Equal(t, 1, st.Local)
}

func TestAllocateShortfallOnExhaustedPool(t *testing.T) {
	a := New(testDepot(), testPool(0, 2, 2), nil, Config{}, logger.NopLogger{})
	st := NewState(1)

	st, trip, short, err := a.Allocate(st, Tuple{Route: testRoute(), Date: testDate, Slot: slot("06:00")}, time.Now())
	require.NoError(t, err, "pool exhaustion is not an error")
	assert.Nil(t, trip)
	require.NotNil(t, short)
	assert.Equal(t, pool.KindBus, short.Resource)
	assert.Equal(t, "r1", short.RouteID)
	assert.Equal(t, 0, st.Seq)
}

func TestAllocateCrewShortfall(t *testing.T) {
	a := New(testDepot(), testPool(2, 1, 1), nil, Config{}, logger.NopLogger{})
	st := NewState(1)

	tup := Tuple{Route: testRoute(), Date: testDate, Slot: slot("06:00")}
	st, trip, short, err := a.Allocate(st, tup, time.Now())
	require.NoError(t, err)
	require.NotNil(t, trip)
	require.Nil(t, short)

	// Same window again: a second bus exists but the only crew pair is taken.
	_, trip, short, err = a.Allocate(st, tup, time.Now())
	require.NoError(t, err)
	assert.Nil(t, trip)
	require.NotNil(t, short)
	assert.Equal(t, pool.KindDriver, short.Resource)
}

func TestAllocateReleasesPartialAcquisition(t *testing.T) {
	p := testPool(2, 1, 1)
	a := New(testDepot(), p, nil, Config{}, logger.NopLogger{})
	st := NewState(1)

	tup := Tuple{Route: testRoute(), Date: testDate, Slot: slot("06:00")}
	st, trip, short, err := a.Allocate(st, tup, time.Now())
	require.NoError(t, err)
	require.NotNil(t, trip)
	require.Nil(t, short)

	// The second tuple reserves the spare bus and then hits the driver
	// shortfall; the bus reservation must be rolled back with it.
	_, trip, short, err = a.Allocate(st, tup, time.Now())
	require.NoError(t, err)
	assert.Nil(t, trip)
	require.NotNil(t, short)
	assert.Equal(t, pool.KindDriver, short.Resource)

	w := model.TimeWindow{Start: testDate.Add(6 * time.Hour), End: testDate.Add(8 * time.Hour)}
	_, err = p.NextBus(w)
	assert.NoError(t, err, "spare bus carries no trip and must stay available")
}

func TestAllocateNoDoubleBookingAcrossSlots(t *testing.T) {
	a := New(testDepot(), testPool(3, 3, 3), nil, Config{}, logger.NopLogger{})
	st := NewState(1)

	var trips []model.Trip
	for _, start := range []string{"06:00", "06:30", "07:00", "09:00", "12:00", "18:00"} {
		var trip *model.Trip
		var err error
		st, trip, _, err = a.Allocate(st, Tuple{Route: testRoute(), Date: testDate, Slot: slot(start)}, time.Now())
		require.NoError(t, err)
		if trip != nil {
			trips = append(trips, *trip)
		}
	}

	for i := 0; i < len(trips); i++ {
		wi, err := trips[i].Window()
		require.NoError(t, err)
		for j := i + 1; j < len(trips); j++ {
			wj, err := trips[j].Window()
			require.NoError(t, err)
			if !wi.Overlaps(wj) {
				continue
			}
			assert.NotEqual(t, trips[i].BusID, trips[j].BusID, "bus double-booked")
			assert.NotEqual(t, trips[i].DriverID, trips[j].DriverID, "driver double-booked")
			assert.NotEqual(t, trips[i].ConductorID, trips[j].ConductorID, "conductor double-booked")
		}
	}
}

func TestAllocateInterstateClass(t *testing.T) {
	r := testRoute()
	r.DestinationDistrict = "Coimbatore"
	a := New(testDepot(), testPool(1, 1, 1), nil, Config{}, logger.NopLogger{})
	st := NewState(1)

	st, trip, _, err := a.Allocate(st, Tuple{Route: r, Date: testDate, Slot: slot("06:00")}, time.Now())
	require.NoError(t, err)
	require.NotNil(t, trip)
	assert.Equal(t, model.FareInterstate, trip.FareClass)
	assert.Equal(t, 1, st.Interstate)
	assert.Equal(t, 0, st.Local)
}

func TestAllocateDepotFallback(t *testing.T) {
	other := pool.Load("d2", []model.Bus{{ID: "fb", DepotID: "d2", Capacity: 50, Status: model.BusActive}},
		[]model.Driver{{Crew: model.Crew{ID: "fd", DepotID: "d2", Status: model.CrewActive}}},
		[]model.Conductor{{Crew: model.Crew{ID: "fc", DepotID: "d2", Status: model.CrewActive}}},
		logger.NopLogger{})

	a := New(testDepot(), testPool(0, 0, 0), other, Config{AllowDepotFallback: true}, logger.NopLogger{})
	st := NewState(1)
	_, trip, short, err := a.Allocate(st, Tuple{Route: testRoute(), Date: testDate, Slot: slot("06:00")}, time.Now())
	require.NoError(t, err)
	require.Nil(t, short)
	require.NotNil(t, trip)
	assert.Equal(t, "fb", trip.BusID)
}

func TestAllocateDeterministicForSeed(t *testing.T) {
	run := func() []model.Trip {
		a := New(testDepot(), testPool(3, 3, 3), nil, Config{}, logger.NopLogger{})
		st := NewState(99)
		now := time.Date(2025, 3, 3, 5, 0, 0, 0, time.UTC)
		var out []model.Trip
		for _, start := range []string{"06:00", "12:00", "18:00"} {
			var trip *model.Trip
			var err error
			st, trip, _, err = a.Allocate(st, Tuple{Route: testRoute(), Date: testDate, Slot: slot(start)}, now)
			require.NoError(t, err)
			require.NotNil(t, trip)
			out = append(out, *trip)
		}
		return out
	}
	a, b := run(), run()
	require.Len(t, b, len(a))
	for i := range a {
		assert.Equal(t, a[i].BusID, b[i].BusID)
		assert.Equal(t, a[i].DriverID, b[i].DriverID)
		assert.Equal(t, a[i].Fare, b[i].Fare)
		assert.Equal(t, a[i].FareClass, b[i].FareClass)
		assert.Equal(t, a[i].Code, b[i].Code)
	}
}
