package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ds0903/cosmetology-bot-backend/internal/availability"
	"github.com/ds0903/cosmetology-bot-backend/internal/timeparse"
	"github.com/ds0903/cosmetology-bot-backend/pkg/logging"
)

// doubleSpecialists validates and canonicalizes the two-specialist list.
func doubleSpecialists(req Request) ([]string, Result) {
	if len(req.Intent.Specialists) < 2 {
		return nil, failValidation("a double booking needs two specialists")
	}
	specs := make([]string, 0, 2)
	for _, name := range req.Intent.Specialists[:2] {
		canonical, ok := req.Config.CanonicalSpecialist(name)
		if !ok {
			return nil, failValidation(fmt.Sprintf("specialist %q is not on the roster", name))
		}
		specs = append(specs, canonical)
	}
	return specs, Result{}
}

// createDouble books both specialists or neither. Availability is checked
// per leg before any write, and the two rows are inserted in one
// transaction.
func (s *Service) createDouble(ctx context.Context, req Request, log *logging.Logger) Result {
	specs, res := doubleSpecialists(req)
	if specs == nil {
		return res
	}
	date, ok := timeparse.ParseDateAt(req.Intent.TargetDate, s.now())
	if !ok {
		return failValidation(fmt.Sprintf("cannot understand the date %q", req.Intent.TargetDate))
	}
	times, ok := doubleTimes(req.Intent, specs)
	if !ok {
		return failValidation("cannot work out a time for each specialist")
	}
	servicePhrases := doubleServices(req.Intent, len(specs))

	unit := req.Config.SlotUnit()
	appts := make([]*Appointment, 0, len(specs))
	for i, spec := range specs {
		service, slots := s.resolveService(ctx, req.Config, servicePhrases[i], log)

		free, err := s.checkSlot(ctx, availability.CheckRequest{
			ProjectID:       req.ProjectID,
			Specialist:      spec,
			Date:            date,
			Start:           times[i],
			DurationSlots:   slots,
			SlotUnitMinutes: unit,
		})
		if err != nil {
			log.Error("availability check failed", "specialist", spec, "error", err)
			return feedUnavailableResult()
		}
		if !free {
			return failConflict(slotTakenMessage(spec, date, times[i]))
		}
		if err := s.finalCheck(ctx, spec, date, times[i], slots, unit); err != nil {
			if errors.Is(err, availability.ErrSlotCollision) {
				return failConflict(slotTakenMessage(spec, date, times[i]))
			}
			log.Error("final collision check failed", "error", err)
			return feedUnavailableResult()
		}

		appts = append(appts, &Appointment{
			ProjectID:       req.ProjectID,
			ClientID:        req.ClientID,
			Specialist:      spec,
			Date:            date,
			Start:           times[i],
			DurationMinutes: slots * unit,
			Service:         service,
			ClientName:      req.Intent.ClientName,
			ClientPhone:     req.Intent.ClientPhone,
		})
	}

	if err := s.repo.InsertPair(ctx, appts[0], appts[1]); err != nil {
		log.Error("double insert failed", "error", err)
		return Result{Success: false, Reason: ReasonError, Message: "could not save the bookings, please try again"}
	}

	ids := make([]uuid.UUID, 0, len(appts))
	var parts []string
	for _, appt := range appts {
		ids = append(ids, appt.ID)
		slots := appt.DurationSlots(unit)
		s.syncReserve(ctx, req.ProjectID, availability.Reservation{
			Specialist:    appt.Specialist,
			Date:          appt.Date,
			Start:         appt.Start,
			DurationSlots: slots,
			ClientID:      appt.ClientID,
			ClientName:    appt.ClientName,
			ClientPhone:   appt.ClientPhone,
			Service:       appt.Service,
		}, log)
		s.enqueueReminder(ctx, appt, log)
		parts = append(parts, fmt.Sprintf("%s at %s", appt.Specialist, appt.Start))
	}

	log.Info("double booking created",
		"booking_ids", ids, "date", timeparse.FormatDate(date))

	return Result{
		Success:    true,
		Message:    fmt.Sprintf("booked %s on %s", strings.Join(parts, " and "), timeparse.FormatDate(date)),
		BookingIDs: ids,
	}
}

// cancelDouble cancels each leg independently. One failed leg does not roll
// back the other; the per-leg outcomes are itemized.
func (s *Service) cancelDouble(ctx context.Context, req Request, log *logging.Logger) Result {
	specs, res := doubleSpecialists(req)
	if specs == nil {
		return res
	}
	sourceTimes := doubleSourceTimes(req.Intent, len(specs))

	var ids []uuid.UUID
	var details []string
	for i, spec := range specs {
		legReq := req
		legReq.Intent.Specialist = spec
		legReq.Intent.SourceTime = sourceTimes[i]

		legRes := s.cancelSingle(ctx, legReq, log)
		if !legRes.Success {
			details = append(details, fmt.Sprintf("%s: %s", spec, legRes.Message))
			continue
		}
		ids = append(ids, legRes.BookingIDs...)
		details = append(details, fmt.Sprintf("%s: cancelled", spec))
	}

	return doubleLegOutcome(ids, details, len(specs), "cancelled %d of %d bookings")
}

// rescheduleDouble moves each leg independently. New times come from the
// explicit per-leg list, then the shared target time for both legs, and
// otherwise each booking keeps its own time.
func (s *Service) rescheduleDouble(ctx context.Context, req Request, log *logging.Logger) Result {
	specs, res := doubleSpecialists(req)
	if specs == nil {
		return res
	}
	times := doubleTargetTimes(req.Intent, len(specs))
	sourceTimes := doubleSourceTimes(req.Intent, len(specs))

	var ids []uuid.UUID
	var details []string
	for i, spec := range specs {
		legReq := req
		legReq.Intent.Specialist = spec
		legReq.Intent.SourceTime = sourceTimes[i]
		legReq.Intent.TargetTime = times[i]

		legRes := s.rescheduleSingle(ctx, legReq, log)
		if !legRes.Success {
			details = append(details, fmt.Sprintf("%s: %s", spec, legRes.Message))
			continue
		}
		ids = append(ids, legRes.BookingIDs...)
		if times[i] != "" {
			details = append(details, fmt.Sprintf("%s: moved to %s", spec, times[i]))
		} else {
			details = append(details, fmt.Sprintf("%s: moved", spec))
		}
	}

	return doubleLegOutcome(ids, details, len(specs), "moved %d of %d bookings")
}

func doubleLegOutcome(ids []uuid.UUID, details []string, legs int, format string) Result {
	if len(ids) == 0 {
		return Result{
			Success: false,
			Reason:  ReasonNotFound,
			Message: "none of the bookings could be processed",
			Details: details,
		}
	}
	return Result{
		Success:    true,
		Message:    fmt.Sprintf(format, len(ids), legs),
		BookingIDs: ids,
		Partial:    len(ids) < legs,
		Details:    details,
	}
}
