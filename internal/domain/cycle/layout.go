package cycle

import "math"

const menstruationDays = 6

var phaseStyles = map[Phase]struct {
	description string
	color       string
}{
	PhaseMenstruation: {"Shedding of the uterine lining.", "red"},
	PhaseFollicular:   {"Hormones prepare an egg for release.", "blue"},
	PhaseFertile:      {"The days you're most likely to conceive.", "green"},
	PhaseLuteal:       {"Hormones prepare the body for pregnancy or restart.", "orange"},
}

// LayoutPhases lays the four phases of p out on a timeline.
//
// Menstruation lasts six days and starts a rounded cycle length before the
// next cycle. Follicular runs from menstruation end to the day before the
// fertile window, and luteal from the day after the fertile window to the next
// cycle start. Inputs are not validated: a fertile window that precedes
// menstruation yields inverted ranges.
func LayoutPhases(p Prediction) Timeline {
	cycleLength := int(math.Round(p.PredictedCycleLength))
	next := p.PredictedNextCycle

	menstruationStart := next.AddDays(-cycleLength)
	menstruationEnd := menstruationStart.AddDays(menstruationDays - 1)
	follicularEnd := p.FertileWindowStart.AddDays(-1)
	fertileDays := p.FertileWindowStart.DaysUntil(p.FertileWindowEnd) + 1
	lutealStart := p.FertileWindowEnd.AddDays(1)

	follicularEndDay := (menstruationDays - 1) + menstruationEnd.DaysUntil(follicularEnd)

	segments := []Segment{
		newSegment(PhaseMenstruation, menstruationStart, menstruationEnd, 0, menstruationDays-1),
		newSegment(PhaseFollicular, menstruationEnd, follicularEnd, menstruationDays-1, follicularEndDay),
		newSegment(PhaseFertile, p.FertileWindowStart, p.FertileWindowEnd, follicularEndDay, follicularEndDay+fertileDays-1),
		newSegment(PhaseLuteal, lutealStart, next, follicularEndDay+fertileDays, cycleLength),
	}

	return Timeline{
		Prediction:  p,
		CycleLength: cycleLength,
		FertileDays: fertileDays,
		Segments:    segments,
	}
}

func newSegment(phase Phase, start, end Date, startDay, endDay int) Segment {
	style := phaseStyles[phase]
	return Segment{
		Phase:       phase,
		Description: style.description,
		Color:       style.color,
		Start:       start,
		End:         end,
		StartDay:    startDay,
		EndDay:      endDay,
	}
}
