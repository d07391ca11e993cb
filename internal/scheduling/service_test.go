package scheduling_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roombooking/internal/audit"
	"roombooking/internal/booking"
	"roombooking/internal/claims"
	"roombooking/internal/room"
	"roombooking/internal/scheduling"
	"roombooking/internal/store/memstore"
)

var (
	now = time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)

	u1 = claims.Principal{UserID: "u1", DisplayName: "Ani", Role: claims.RoleRequester, Label: "Mahasiswa"}
	u2 = claims.Principal{UserID: "u2", DisplayName: "Budi", Role: claims.RoleRequester, Label: "Dosen"}
	a1 = claims.Principal{UserID: "a1", DisplayName: "Admin", Role: claims.RoleApprover, Label: "Admin"}
)

func at(hhmm string) time.Time {
	t, err := time.Parse(time.RFC3339, "2025-01-10T"+hhmm+":00Z")
	if err != nil {
		panic(err)
	}
	return t
}

type fixture struct {
	svc   *scheduling.Service
	store *memstore.Store
	rooms *room.MemoryCatalog
}

func newFixture(t *testing.T, policy scheduling.PurgePolicy) fixture {
	t.Helper()
	store := memstore.New()
	return newFixtureWithStore(t, store, store, policy)
}

func newFixtureWithStore(t *testing.T, mem *memstore.Store, store scheduling.Store, policy scheduling.PurgePolicy) fixture {
	t.Helper()
	rooms := room.NewMemoryCatalog(
		room.Room{ID: "R101", Name: "R101", Capacity: 40, Type: room.TypeClassroom, Building: "A", IsAvailable: true},
		room.Room{ID: "R102", Name: "R102", Capacity: 20, Type: room.TypeLaboratory, Building: "A", IsAvailable: true},
		room.Room{ID: "AUD", Name: "Main Hall", Capacity: 300, Type: room.TypeAuditorium, Building: "B", IsAvailable: false},
	)
	svc := scheduling.NewService(store, rooms, scheduling.Options{
		Now:         func() time.Time { return now },
		PurgePolicy: policy,
	})
	require.NoError(t, svc.Warm(context.Background()))
	return fixture{svc: svc, store: mem, rooms: rooms}
}

func submit(f fixture, p claims.Principal, roomID, from, to string) (*booking.Booking, error) {
	return f.svc.Submit(context.Background(), p, scheduling.SubmitInput{
		RoomID:  roomID,
		Start:   at(from),
		End:     at(to),
		Purpose: "study group",
	})
}

func auditActions(t *testing.T, f fixture, bookingID string) []audit.Action {
	t.Helper()
	entries, err := f.store.AuditByBooking(context.Background(), bookingID)
	require.NoError(t, err)
	out := make([]audit.Action, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Action)
	}
	return out
}

func TestR101Scenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, scheduling.PurgePreserveAudit)

	b1, err := submit(f, u1, "R101", "09:00", "10:00")
	require.NoError(t, err)
	assert.Equal(t, booking.StatusPending, b1.Status)
	assert.Equal(t, "u1", b1.RequesterID)

	_, err = submit(f, u2, "R101", "09:30", "10:30")
	require.ErrorIs(t, err, booking.ErrConflict)

	approved, err := f.svc.Approve(ctx, a1, b1.ID, "")
	require.NoError(t, err)
	assert.Equal(t, booking.StatusApproved, approved.Status)
	assert.Equal(t, []audit.Action{audit.ActionCreated, audit.ActionApproved}, auditActions(t, f, b1.ID))

	cancelled, err := f.svc.Cancel(ctx, u1, b1.ID, "")
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCancelled, cancelled.Status)
	assert.Equal(t, "Cancelled by Mahasiswa", cancelled.DecisionNotes)

	b2, err := submit(f, u2, "R101", "09:30", "10:30")
	require.NoError(t, err)
	assert.Equal(t, booking.StatusPending, b2.Status)

	logs, err := f.svc.RoomLogs(ctx, a1, "R101")
	require.NoError(t, err)
	require.Len(t, logs, 4)
	assert.Equal(t, audit.ActionCancelled, logs[2].Action)
	assert.Equal(t, "Cancelled by Mahasiswa", logs[2].Notes)
}

func TestSubmit_TouchingIntervalsBothSucceed(t *testing.T) {
	f := newFixture(t, "")
	_, err := submit(f, u1, "R101", "09:00", "10:00")
	require.NoError(t, err)
	_, err = submit(f, u2, "R101", "10:00", "11:00")
	require.NoError(t, err)
	_, err = submit(f, u2, "R101", "08:00", "09:00")
	require.NoError(t, err)
}

func TestSubmit_StaleIndexFromOtherInstanceDoesNotConflict(t *testing.T) {
	ctx := context.Background()
	mem := memstore.New()
	a := newFixtureWithStore(t, mem, mem, "")
	b := newFixtureWithStore(t, mem, mem, "")

	first, err := submit(a, u1, "R101", "09:00", "10:00")
	require.NoError(t, err)
	_, err = b.svc.Cancel(ctx, u1, first.ID, "")
	require.NoError(t, err)

	// a still holds 09:00-10:00 in its index; storage has nothing active.
	second, err := submit(a, u2, "R101", "09:30", "10:30")
	require.NoError(t, err)
	assert.Equal(t, booking.StatusPending, second.Status)

	_, err = submit(a, u1, "R101", "09:00", "09:45")
	assert.ErrorIs(t, err, booking.ErrConflict)
	_, err = submit(b, u1, "R101", "10:00", "10:45")
	assert.ErrorIs(t, err, booking.ErrConflict, "b learns of the booking from storage")
	_, err = submit(a, u1, "R101", "08:00", "09:30")
	require.NoError(t, err, "stale interval was dropped")
}

func TestSubmit_ValidationFailures(t *testing.T) {
	f := newFixture(t, "")

	_, err := submit(f, u1, "R101", "10:00", "10:00")
	assert.ErrorIs(t, err, booking.ErrInvalidInterval)

	_, err = submit(f, u1, "R101", "11:00", "10:00")
	assert.ErrorIs(t, err, booking.ErrInvalidInterval)

	_, err = f.svc.Submit(context.Background(), u1, scheduling.SubmitInput{
		RoomID: "R101", Start: now.Add(-time.Hour), End: now.Add(time.Hour),
	})
	assert.ErrorIs(t, err, booking.ErrPastBooking)

	_, err = submit(f, u1, "AUD", "09:00", "10:00")
	assert.ErrorIs(t, err, booking.ErrRoomUnavailable)

	_, err = submit(f, u1, "NOPE", "09:00", "10:00")
	assert.ErrorIs(t, err, booking.ErrNotFound)

	_, err = submit(f, claims.Principal{UserID: "x"}, "R101", "09:00", "10:00")
	assert.ErrorIs(t, err, booking.ErrForbidden)

	_, err = f.svc.Submit(context.Background(), u1, scheduling.SubmitInput{
		RoomID: "R101", RequesterID: "u2", Start: at("09:00"), End: at("10:00"),
	})
	assert.ErrorIs(t, err, booking.ErrForbidden)

	all, err := f.svc.AllBookings(context.Background(), a1, nil)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSubmit_ApproverOnBehalfOfRequester(t *testing.T) {
	b, err := newFixture(t, "").svc.Submit(context.Background(), a1, scheduling.SubmitInput{
		RoomID: "R101", RequesterID: "u2", Start: at("09:00"), End: at("10:00"), Purpose: "thesis defense",
	})
	require.NoError(t, err)
	assert.Equal(t, "u2", b.RequesterID)
}

func TestTransitions_EmitExactlyOneAuditEntry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "")

	b, err := submit(f, u1, "R101", "09:00", "10:00")
	require.NoError(t, err)
	assert.Len(t, auditActions(t, f, b.ID), 1)

	_, err = f.svc.Reject(ctx, a1, b.ID, "")
	require.ErrorIs(t, err, booking.ErrNotesRequired)
	assert.Len(t, auditActions(t, f, b.ID), 1)

	rejected, err := f.svc.Reject(ctx, a1, b.ID, "room reserved for exams")
	require.NoError(t, err)
	assert.Equal(t, "room reserved for exams", rejected.DecisionNotes)
	assert.Equal(t, []audit.Action{audit.ActionCreated, audit.ActionRejected}, auditActions(t, f, b.ID))

	// The window is free again once rejected.
	_, err = submit(f, u2, "R101", "09:00", "10:00")
	require.NoError(t, err)
}

func TestTransitions_IllegalSourceState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "")

	b, err := submit(f, u1, "R101", "09:00", "10:00")
	require.NoError(t, err)
	_, err = f.svc.Reject(ctx, a1, b.ID, "no")
	require.NoError(t, err)

	_, err = f.svc.Approve(ctx, a1, b.ID, "")
	assert.ErrorIs(t, err, booking.ErrInvalidTransition)
	_, err = f.svc.Cancel(ctx, u1, b.ID, "")
	assert.ErrorIs(t, err, booking.ErrInvalidTransition)
	_, err = f.svc.Decide(ctx, a1, b.ID, booking.StatusPending, "")
	assert.ErrorIs(t, err, booking.ErrInvalidTransition)
	assert.Len(t, auditActions(t, f, b.ID), 2)

	_, err = f.svc.Approve(ctx, a1, "missing", "")
	assert.ErrorIs(t, err, booking.ErrNotFound)
}

func TestTransitions_Authorization(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "")

	b, err := submit(f, u1, "R101", "09:00", "10:00")
	require.NoError(t, err)

	_, err = f.svc.Approve(ctx, u1, b.ID, "")
	assert.ErrorIs(t, err, booking.ErrForbidden)
	_, err = f.svc.Cancel(ctx, u2, b.ID, "")
	assert.ErrorIs(t, err, booking.ErrForbidden)

	got, err := f.svc.Cancel(ctx, a1, b.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "Cancelled by Admin", got.DecisionNotes)
}

func TestSubmit_ConcurrentOverlappingExactlyOneWins(t *testing.T) {
	f := newFixture(t, "")
	const n = 32

	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		conflicts atomic.Int32
		start     = make(chan struct{})
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := claims.Principal{UserID: fmt.Sprintf("u%d", i), Role: claims.RoleRequester}
			<-start
			// Every window contains 09:31-10:00, so all pairs overlap.
			from := at("09:00").Add(time.Duration(i) * time.Minute)
			_, err := f.svc.Submit(context.Background(), p, scheduling.SubmitInput{
				RoomID: "R101", Start: from, End: at("10:00").Add(time.Duration(i) * time.Minute),
			})
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, booking.ErrConflict):
				conflicts.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	assert.EqualValues(t, 1, successes.Load())
	assert.EqualValues(t, n-1, conflicts.Load())

	active, err := f.store.ActiveBookings(context.Background())
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestSubmit_DifferentRoomsDoNotInterfere(t *testing.T) {
	f := newFixture(t, "")
	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, id := range []string{"R101", "R102"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := submit(f, u1, id, "09:00", "10:00")
			errs <- err
		}(id)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}

// faultyStore fails every audit append while armed.
type faultyStore struct {
	scheduling.Store
	armed atomic.Bool
}

func (s *faultyStore) WithRoomTx(ctx context.Context, roomID string, fn func(scheduling.Tx) error) error {
	return s.Store.WithRoomTx(ctx, roomID, func(tx scheduling.Tx) error {
		if s.armed.Load() {
			return fn(faultyTx{tx})
		}
		return fn(tx)
	})
}

type faultyTx struct{ scheduling.Tx }

func (faultyTx) AppendAudit(context.Context, audit.Entry) error {
	return errors.New("audit storage unavailable")
}

func TestAuditFailureRollsBackTransition(t *testing.T) {
	ctx := context.Background()
	mem := memstore.New()
	faulty := &faultyStore{Store: mem}
	f := newFixtureWithStore(t, mem, faulty, "")

	faulty.armed.Store(true)
	_, err := submit(f, u1, "R101", "09:00", "10:00")
	require.ErrorIs(t, err, scheduling.ErrInternal)
	assert.Equal(t, booking.Kind(""), booking.KindOf(err))

	all, err := mem.AllBookings(ctx)
	require.NoError(t, err)
	assert.Empty(t, all, "booking must not survive a failed audit append")

	faulty.armed.Store(false)
	b, err := submit(f, u1, "R101", "09:00", "10:00")
	require.NoError(t, err, "failed submit must not hold the window")

	faulty.armed.Store(true)
	_, err = f.svc.Approve(ctx, a1, b.ID, "")
	require.ErrorIs(t, err, scheduling.ErrInternal)
	_, err = f.svc.Cancel(ctx, u1, b.ID, "")
	require.ErrorIs(t, err, scheduling.ErrInternal)

	got, err := mem.Booking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusPending, got.Status)
	assert.Equal(t, []audit.Action{audit.ActionCreated}, auditActions(t, f, b.ID))

	_, err = submit(f, u2, "R101", "09:30", "10:30")
	assert.ErrorIs(t, err, booking.ErrConflict, "failed cancel must keep the window held")
}

func TestPurge(t *testing.T) {
	for _, tc := range []struct {
		policy      scheduling.PurgePolicy
		wantEntries int
	}{
		{scheduling.PurgePreserveAudit, 2},
		{scheduling.PurgeDeleteAudit, 0},
	} {
		t.Run(string(tc.policy), func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, tc.policy)

			b, err := submit(f, u1, "R101", "09:00", "10:00")
			require.NoError(t, err)

			assert.ErrorIs(t, f.svc.Purge(ctx, a1, b.ID), booking.ErrInvalidTransition)

			_, err = f.svc.Cancel(ctx, u1, b.ID, "plans changed")
			require.NoError(t, err)

			assert.ErrorIs(t, f.svc.Purge(ctx, u1, b.ID), booking.ErrForbidden)
			require.NoError(t, f.svc.Purge(ctx, a1, b.ID))

			_, err = f.store.Booking(ctx, b.ID)
			assert.ErrorIs(t, err, booking.ErrNotFound)
			assert.Len(t, auditActions(t, f, b.ID), tc.wantEntries)

			assert.ErrorIs(t, f.svc.Purge(ctx, a1, b.ID), booking.ErrNotFound)
		})
	}
}

func TestQueries(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "")

	b1, err := submit(f, u1, "R101", "13:00", "14:00")
	require.NoError(t, err)
	b2, err := submit(f, u2, "R101", "09:00", "10:00")
	require.NoError(t, err)
	_, err = f.svc.Reject(ctx, a1, b2.ID, "exam")
	require.NoError(t, err)

	schedule, err := f.svc.RoomSchedule(ctx, "R101", false)
	require.NoError(t, err)
	require.Len(t, schedule, 2)
	assert.Equal(t, b2.ID, schedule[0].ID, "ordered by start time")

	active, err := f.svc.RoomSchedule(ctx, "R101", true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, b1.ID, active[0].ID)

	_, err = f.svc.RoomSchedule(ctx, "NOPE", false)
	assert.ErrorIs(t, err, booking.ErrNotFound)

	mine, err := f.svc.RequesterBookings(ctx, u1, "u1")
	require.NoError(t, err)
	assert.Len(t, mine, 1)
	_, err = f.svc.RequesterBookings(ctx, u1, "u2")
	assert.ErrorIs(t, err, booking.ErrForbidden)
	theirs, err := f.svc.RequesterBookings(ctx, a1, "u2")
	require.NoError(t, err)
	assert.Len(t, theirs, 1)

	_, err = f.svc.Booking(ctx, u2, b1.ID)
	assert.ErrorIs(t, err, booking.ErrForbidden, "same outcome as cancelling it")
	_, err = f.svc.BookingLogs(ctx, u2, b1.ID)
	assert.ErrorIs(t, err, booking.ErrForbidden)
	_, err = f.svc.Booking(ctx, u2, "missing")
	assert.ErrorIs(t, err, booking.ErrNotFound)
	logs, err := f.svc.BookingLogs(ctx, u1, b1.ID)
	require.NoError(t, err)
	assert.Len(t, logs, 1)

	_, err = f.svc.RoomLogs(ctx, u1, "R101")
	assert.ErrorIs(t, err, booking.ErrForbidden)

	rejected := booking.StatusRejected
	onlyRejected, err := f.svc.AllBookings(ctx, a1, &rejected)
	require.NoError(t, err)
	require.Len(t, onlyRejected, 1)
	assert.Equal(t, b2.ID, onlyRejected[0].ID)
	_, err = f.svc.AllBookings(ctx, u1, nil)
	assert.ErrorIs(t, err, booking.ErrForbidden)
}

func TestWarm_RebuildsIndexFromStore(t *testing.T) {
	mem := memstore.New()
	first := newFixtureWithStore(t, mem, mem, "")
	_, err := submit(first, u1, "R101", "09:00", "10:00")
	require.NoError(t, err)

	restarted := newFixtureWithStore(t, mem, mem, "")
	_, err = submit(restarted, u2, "R101", "09:30", "10:30")
	assert.ErrorIs(t, err, booking.ErrConflict)
}

func TestParsePurgePolicy(t *testing.T) {
	p, err := scheduling.ParsePurgePolicy("")
	require.NoError(t, err)
	assert.Equal(t, scheduling.PurgePreserveAudit, p)
	p, err = scheduling.ParsePurgePolicy(" PURGE ")
	require.NoError(t, err)
	assert.Equal(t, scheduling.PurgeDeleteAudit, p)
	_, err = scheduling.ParsePurgePolicy("shred")
	assert.Error(t, err)
}
