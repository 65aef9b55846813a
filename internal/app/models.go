package app

import "schedule-service/internal/schedule"

type TimeInterval struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type TimeSlot struct {
	Day   string `json:"day"`
	Start string `json:"start"`
	End   string `json:"end"`
}

type ErrorResponse struct {
	Detail    string `json:"detail"`
	Error     string `json:"error,omitempty"`
	ErrorType string `json:"error_type,omitempty"`
	Path      string `json:"path,omitempty"`
}

type ReadyResponse struct {
	Status   string   `json:"status"`
	Failures []string `json:"failures,omitempty"`
}

func IntervalDTO(i schedule.TimeInterval) TimeInterval {
	return TimeInterval{Start: i.Start.String(), End: i.End.String()}
}

func IntervalDTOs(in []schedule.TimeInterval) []TimeInterval {
	out := make([]TimeInterval, 0, len(in))
	for _, i := range in {
		out = append(out, IntervalDTO(i))
	}
	return out
}

func SlotDTO(s schedule.TimeSlot) TimeSlot {
	return TimeSlot{Day: s.Day.String(), Start: s.Interval.Start.String(), End: s.Interval.End.String()}
}
