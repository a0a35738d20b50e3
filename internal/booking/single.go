package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ds0903/cosmetology-bot-backend/internal/availability"
	"github.com/ds0903/cosmetology-bot-backend/internal/timeparse"
	"github.com/ds0903/cosmetology-bot-backend/pkg/logging"
)

// createSingle books one appointment with one specialist.
func (s *Service) createSingle(ctx context.Context, req Request, log *logging.Logger) Result {
	cfg := req.Config

	specialist, ok := cfg.CanonicalSpecialist(req.Intent.Specialist)
	if !ok {
		return failValidation(fmt.Sprintf("specialist %q is not on the roster", req.Intent.Specialist))
	}
	date, ok := timeparse.ParseDateAt(req.Intent.TargetDate, s.now())
	if !ok {
		return failValidation(fmt.Sprintf("cannot understand the date %q", req.Intent.TargetDate))
	}
	start, ok := timeparse.ParseTime(req.Intent.TargetTime)
	if !ok {
		return failValidation(fmt.Sprintf("cannot understand the time %q", req.Intent.TargetTime))
	}

	service, slots := s.resolveService(ctx, cfg, req.Intent.Service, log)
	unit := cfg.SlotUnit()

	free, err := s.checkSlot(ctx, availability.CheckRequest{
		ProjectID:       req.ProjectID,
		Specialist:      specialist,
		Date:            date,
		Start:           start,
		DurationSlots:   slots,
		SlotUnitMinutes: unit,
	})
	if err != nil {
		log.Error("availability check failed", "specialist", specialist, "error", err)
		return feedUnavailableResult()
	}
	if !free {
		return failConflict(slotTakenMessage(specialist, date, start))
	}

	// Re-read the reserved sets immediately before the write. The snapshot
	// used for the primary check can be stale.
	if err := s.finalCheck(ctx, specialist, date, start, slots, unit); err != nil {
		if errors.Is(err, availability.ErrSlotCollision) {
			log.Info("slot collided between check and write", "specialist", specialist, "time", start.String())
			return failConflict(slotTakenMessage(specialist, date, start))
		}
		log.Error("final collision check failed", "error", err)
		return feedUnavailableResult()
	}

	appt := &Appointment{
		ProjectID:       req.ProjectID,
		ClientID:        req.ClientID,
		Specialist:      specialist,
		Date:            date,
		Start:           start,
		DurationMinutes: slots * unit,
		Service:         service,
		ClientName:      req.Intent.ClientName,
		ClientPhone:     req.Intent.ClientPhone,
	}
	if err := s.repo.Insert(ctx, appt); err != nil {
		log.Error("booking insert failed", "error", err)
		return Result{Success: false, Reason: ReasonError, Message: "could not save the booking, please try again"}
	}

	s.syncReserve(ctx, req.ProjectID, availability.Reservation{
		Specialist:    specialist,
		Date:          date,
		Start:         start,
		DurationSlots: slots,
		ClientID:      req.ClientID,
		ClientName:    req.Intent.ClientName,
		ClientPhone:   req.Intent.ClientPhone,
		Service:       service,
	}, log)
	s.enqueueReminder(ctx, appt, log)

	log.Info("booking created",
		"booking_id", appt.ID, "specialist", specialist,
		"date", timeparse.FormatDate(date), "time", start.String(), "slots", slots)

	return Result{
		Success: true,
		Message: fmt.Sprintf("booked %s on %s at %s", specialist, timeparse.FormatDate(date), start),
		BookingIDs: []uuid.UUID{appt.ID},
	}
}

// cancelSingle cancels the booking the intent points at.
func (s *Service) cancelSingle(ctx context.Context, req Request, log *logging.Logger) Result {
	appt, res := s.locateSource(ctx, req, req.Intent.TargetDate)
	if appt == nil {
		return res
	}

	if err := s.repo.Cancel(ctx, appt.ID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return failNotFound("the booking was already cancelled")
		}
		log.Error("cancel failed", "booking_id", appt.ID, "error", err)
		return Result{Success: false, Reason: ReasonError, Message: "could not cancel the booking, please try again"}
	}

	unit := req.Config.SlotUnit()
	slots := appt.DurationSlots(unit)
	s.syncClear(ctx, req.ProjectID, appt.Specialist, appt.Date, appt.Start, slots, log)
	s.syncLogCancellation(ctx, req.ProjectID, availability.CancellationRecord{
		Date:       appt.Date,
		Start:      appt.Start,
		ClientID:   appt.ClientID,
		ClientName: appt.ClientName,
		Service:    appt.Service,
		Specialist: appt.Specialist,
	}, log)

	log.Info("booking cancelled",
		"booking_id", appt.ID, "specialist", appt.Specialist,
		"date", timeparse.FormatDate(appt.Date), "time", appt.Start.String())

	return Result{
		Success: true,
		Message: fmt.Sprintf("cancelled the booking with %s on %s at %s",
			appt.Specialist, timeparse.FormatDate(appt.Date), appt.Start),
		BookingIDs: []uuid.UUID{appt.ID},
	}
}

// rescheduleSingle moves a booking to a new date/time. When the intent names
// a source date but no specialist and no times, every booking the client
// holds on that date is transferred to the target date instead.
func (s *Service) rescheduleSingle(ctx context.Context, req Request, log *logging.Logger) Result {
	targetDate, ok := timeparse.ParseDateAt(req.Intent.TargetDate, s.now())
	if !ok {
		return failValidation(fmt.Sprintf("cannot understand the new date %q", req.Intent.TargetDate))
	}

	if req.Intent.Specialist == "" && req.Intent.SourceTime == "" && req.Intent.SourceDate != "" && req.Intent.TargetTime == "" {
		return s.transferDate(ctx, req, targetDate, log)
	}

	// The target date is only a stand-in for a missing source date when a
	// source time anchors the lookup. Otherwise a specialist with no source
	// coordinates means their most recent booking.
	fallbackDate := req.Intent.TargetDate
	if req.Intent.SourceTime == "" {
		fallbackDate = ""
	}
	appt, res := s.locateSource(ctx, req, fallbackDate)
	if appt == nil {
		return res
	}

	// An omitted new time keeps the booking's own time.
	targetStart := appt.Start
	if req.Intent.TargetTime != "" {
		targetStart, ok = timeparse.ParseTime(req.Intent.TargetTime)
		if !ok {
			return failValidation(fmt.Sprintf("cannot understand the new time %q", req.Intent.TargetTime))
		}
	}

	specialist := appt.Specialist
	if req.Intent.Specialist != "" {
		if canonical, ok := req.Config.CanonicalSpecialist(req.Intent.Specialist); ok {
			specialist = canonical
		}
	}

	unit := req.Config.SlotUnit()
	slots := appt.DurationSlots(unit)
	if req.Intent.Service != "" {
		appt.Service, slots = s.resolveService(ctx, req.Config, req.Intent.Service, log)
	}

	moved, res := s.moveAppointment(ctx, req, appt, specialist, targetDate, targetStart, slots, log)
	if !moved {
		return res
	}

	return Result{
		Success: true,
		Message: fmt.Sprintf("moved the booking with %s to %s at %s",
			specialist, timeparse.FormatDate(targetDate), targetStart),
		BookingIDs: []uuid.UUID{appt.ID},
	}
}

// transferDate moves every active booking on the source date to the target
// date, keeping each booking's time. Legs that no longer fit are skipped and
// itemized.
func (s *Service) transferDate(ctx context.Context, req Request, targetDate time.Time, log *logging.Logger) Result {
	sourceDate, ok := timeparse.ParseDateAt(req.Intent.SourceDate, s.now())
	if !ok {
		return failValidation(fmt.Sprintf("cannot understand the date %q", req.Intent.SourceDate))
	}

	all, err := s.repo.ListActiveOn(ctx, req.ProjectID, req.ClientID, sourceDate)
	if err != nil {
		log.Error("transfer listing failed", "error", err)
		return Result{Success: false, Reason: ReasonError, Message: "could not look up the bookings, please try again"}
	}
	if len(all) == 0 {
		return failNotFound(fmt.Sprintf("no bookings found on %s", timeparse.FormatDate(sourceDate)))
	}

	var moved []uuid.UUID
	var details []string
	for i := range all {
		appt := all[i]
		unit := req.Config.SlotUnit()
		slots := appt.DurationSlots(unit)
		ok, res := s.moveAppointment(ctx, req, &appt, appt.Specialist, targetDate, appt.Start, slots, log)
		if !ok {
			details = append(details, fmt.Sprintf("%s at %s: %s", appt.Specialist, appt.Start, res.Message))
			continue
		}
		moved = append(moved, appt.ID)
		details = append(details, fmt.Sprintf("%s at %s: moved", appt.Specialist, appt.Start))
	}

	if len(moved) == 0 {
		return Result{
			Success: false,
			Reason:  ReasonConflict,
			Message: fmt.Sprintf("no bookings could be moved to %s", timeparse.FormatDate(targetDate)),
			Details: details,
		}
	}
	return Result{
		Success:    true,
		Message:    fmt.Sprintf("moved %d booking(s) to %s", len(moved), timeparse.FormatDate(targetDate)),
		BookingIDs: moved,
		Partial:    len(moved) < len(all),
		Details:    details,
	}
}

// moveAppointment validates the target slot, rewrites the row and syncs the
// ledger. On failure the booking is untouched.
func (s *Service) moveAppointment(ctx context.Context, req Request, appt *Appointment, specialist string, targetDate time.Time, targetStart timeparse.TimeOfDay, slots int, log *logging.Logger) (bool, Result) {
	unit := req.Config.SlotUnit()

	free, err := s.checkSlot(ctx, availability.CheckRequest{
		ProjectID:       req.ProjectID,
		Specialist:      specialist,
		Date:            targetDate,
		Start:           targetStart,
		DurationSlots:   slots,
		SlotUnitMinutes: unit,
	})
	if err != nil {
		log.Error("availability check failed", "specialist", specialist, "error", err)
		return false, feedUnavailableResult()
	}
	if !free {
		return false, failConflict(slotTakenMessage(specialist, targetDate, targetStart))
	}
	if err := s.finalCheck(ctx, specialist, targetDate, targetStart, slots, unit); err != nil {
		if errors.Is(err, availability.ErrSlotCollision) {
			return false, failConflict(slotTakenMessage(specialist, targetDate, targetStart))
		}
		log.Error("final collision check failed", "error", err)
		return false, feedUnavailableResult()
	}

	oldSpecialist := appt.Specialist
	oldDate := appt.Date
	oldStart := appt.Start
	oldSlots := appt.DurationSlots(unit)

	appt.Specialist = specialist
	appt.Date = targetDate
	appt.Start = targetStart
	appt.DurationMinutes = slots * unit
	if req.Intent.ClientName != "" {
		appt.ClientName = req.Intent.ClientName
	}
	if req.Intent.ClientPhone != "" {
		appt.ClientPhone = req.Intent.ClientPhone
	}

	if err := s.repo.UpdateSchedule(ctx, appt); err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, failNotFound("the booking was cancelled in the meantime")
		}
		log.Error("reschedule update failed", "booking_id", appt.ID, "error", err)
		return false, Result{Success: false, Reason: ReasonError, Message: "could not move the booking, please try again"}
	}

	s.syncClear(ctx, req.ProjectID, oldSpecialist, oldDate, oldStart, oldSlots, log)
	s.syncReserve(ctx, req.ProjectID, availability.Reservation{
		Specialist:    specialist,
		Date:          targetDate,
		Start:         targetStart,
		DurationSlots: slots,
		ClientID:      appt.ClientID,
		ClientName:    appt.ClientName,
		ClientPhone:   appt.ClientPhone,
		Service:       appt.Service,
	}, log)
	s.syncLogTransfer(ctx, req.ProjectID, availability.TransferRecord{
		OldDate:       oldDate,
		OldStart:      oldStart,
		NewDate:       targetDate,
		NewStart:      targetStart,
		ClientID:      appt.ClientID,
		ClientName:    appt.ClientName,
		Service:       appt.Service,
		OldSpecialist: oldSpecialist,
		NewSpecialist: specialist,
	}, log)

	log.Info("booking moved",
		"booking_id", appt.ID,
		"from", fmt.Sprintf("%s %s", timeparse.FormatDate(oldDate), oldStart),
		"to", fmt.Sprintf("%s %s", timeparse.FormatDate(targetDate), targetStart))
	return true, Result{}
}

// locateSource finds the booking the reject/change fields point at.
// fallbackDate fills in for a missing source date; callers pass "" when the
// specialist's most recent booking should win instead. A nil appointment
// means the returned Result is the failure to surface.
func (s *Service) locateSource(ctx context.Context, req Request, fallbackDate string) (*Appointment, Result) {
	intent := req.Intent

	dateStr := intent.SourceDate
	if dateStr == "" {
		dateStr = fallbackDate
	}
	timeStr := intent.SourceTime

	var specialist string
	if intent.Specialist != "" {
		canonical, ok := req.Config.CanonicalSpecialist(intent.Specialist)
		if !ok {
			return nil, failValidation(fmt.Sprintf("specialist %q is not on the roster", intent.Specialist))
		}
		specialist = canonical
	}

	var (
		appt *Appointment
		err  error
	)
	switch {
	case dateStr != "" && timeStr != "":
		date, ok := timeparse.ParseDateAt(dateStr, s.now())
		if !ok {
			return nil, failValidation(fmt.Sprintf("cannot understand the date %q", dateStr))
		}
		start, ok := timeparse.ParseTime(timeStr)
		if !ok {
			return nil, failValidation(fmt.Sprintf("cannot understand the time %q", timeStr))
		}
		if specialist != "" {
			appt, err = s.repo.FindActiveBySpecialistAt(ctx, req.ProjectID, req.ClientID, specialist, date, start)
		} else {
			appt, err = s.repo.FindActiveAt(ctx, req.ProjectID, req.ClientID, date, start)
		}
	case dateStr != "" && specialist != "":
		date, ok := timeparse.ParseDateAt(dateStr, s.now())
		if !ok {
			return nil, failValidation(fmt.Sprintf("cannot understand the date %q", dateStr))
		}
		appt, err = s.repo.FindActiveBySpecialistOn(ctx, req.ProjectID, req.ClientID, specialist, date)
	case specialist != "":
		appt, err = s.repo.LatestActiveBySpecialist(ctx, req.ProjectID, req.ClientID, specialist)
	default:
		return nil, failValidation("need a date and time, or a specialist name, to find the booking")
	}

	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, failNotFound("no matching booking found")
		}
		return nil, Result{Success: false, Reason: ReasonError, Message: "could not look up the booking, please try again"}
	}
	return appt, Result{}
}
