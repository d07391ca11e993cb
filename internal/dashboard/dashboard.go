// Package dashboard summarizes a requester's bookings for the landing page.
package dashboard

import (
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"roombooking/internal/api"
	"roombooking/internal/booking"
	"roombooking/internal/scheduling"
)

const upcomingLimit = 5

type Summary struct {
	MyActiveBookings    int               `json:"myActiveBookings"`
	MyTotalBookings     int               `json:"myTotalBookings"`
	MyRejectedBookings  int               `json:"myRejectedBookings"`
	MyPendingBookings   int               `json:"myPendingBookings"`
	MyApprovedBookings  int               `json:"myApprovedBookings"`
	MyCancelledBookings int               `json:"myCancelledBookings"`
	ApprovedHours       decimal.Decimal   `json:"approvedHours"`
	Upcoming            []booking.Booking `json:"upcoming"`
}

// Summarize counts bookings per status and lists the next approved ones
// starting at or after now.
func Summarize(list []booking.Booking, now time.Time) Summary {
	s := Summary{MyTotalBookings: len(list), ApprovedHours: decimal.Zero, Upcoming: []booking.Booking{}}
	for _, b := range list {
		switch b.Status {
		case booking.StatusPending:
			s.MyPendingBookings++
		case booking.StatusApproved:
			s.MyApprovedBookings++
			s.ApprovedHours = s.ApprovedHours.Add(hours(b.Duration()))
			if !b.StartTime.Before(now) {
				s.Upcoming = append(s.Upcoming, b)
			}
		case booking.StatusRejected:
			s.MyRejectedBookings++
		case booking.StatusCancelled:
			s.MyCancelledBookings++
		}
	}
	s.MyActiveBookings = s.MyPendingBookings + s.MyApprovedBookings
	s.ApprovedHours = s.ApprovedHours.Round(2)

	sort.Slice(s.Upcoming, func(i, j int) bool { return s.Upcoming[i].StartTime.Before(s.Upcoming[j].StartTime) })
	if len(s.Upcoming) > upcomingLimit {
		s.Upcoming = s.Upcoming[:upcomingLimit]
	}
	return s
}

func hours(d time.Duration) decimal.Decimal {
	return decimal.NewFromInt(int64(d / time.Second)).Div(decimal.NewFromInt(3600))
}

type Handlers struct {
	Service *scheduling.Service
	Logger  *slog.Logger
	Now     func() time.Time
}

func (h Handlers) Student(w http.ResponseWriter, r *http.Request) {
	p := api.PrincipalFromContext(r.Context())
	list, err := h.Service.RequesterBookings(r.Context(), p, p.UserID)
	if err != nil {
		api.WriteDomainError(w, r, h.Logger, err)
		return
	}
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	api.WriteJSON(w, http.StatusOK, Summarize(list, now()))
}
