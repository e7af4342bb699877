package clinic

// DefaultBufferMinutes is the idle time inserted after each session.
const DefaultBufferMinutes = 10

// DefaultServices is the catalog used until an admin saves one.
func DefaultServices() []Service {
	return []Service{
		{ID: "s1", Name: "Initial consultation", Description: "First listening session to understand the demand and agree on the therapeutic path.", Price: 170, Duration: 60, Type: ServiceInitial},
		{ID: "s2", Name: "Essential package (4 sessions)", Description: "For the start of the therapeutic process.", Price: 540, Duration: 50, Type: ServicePlan},
		{ID: "s3", Name: "Continuity package (8 sessions)", Description: "For deepening the analytic work.", Price: 1040, Duration: 50, Type: ServicePlan},
		{ID: "s4", Name: "Process package (12 sessions)", Description: "For a continuous, long-term process.", Price: 1500, Duration: 50, Type: ServicePlan},
	}
}

// DefaultSettings mirrors the schedule the clinic opens with: weekdays
// 09:00-12:00 and an afternoon period, weekends closed.
func DefaultSettings() Settings {
	weekday := func(day int, afternoonEnd string) WorkingDay {
		return WorkingDay{Day: day, IsOpen: true, Periods: []WorkingPeriod{
			{Start: "09:00", End: "12:00"},
			{Start: "13:30", End: afternoonEnd},
		}}
	}

	return Settings{
		DefaultSessionDuration: 50,
		BufferMinutes:          DefaultBufferMinutes,
		WorkingDays: []WorkingDay{
			{Day: 0, IsOpen: false, Periods: []WorkingPeriod{{Start: "09:00", End: "18:00"}}},
			weekday(1, "19:00"),
			weekday(2, "19:00"),
			weekday(3, "19:00"),
			weekday(4, "19:00"),
			weekday(5, "18:00"),
			{Day: 6, IsOpen: false, Periods: []WorkingPeriod{{Start: "09:00", End: "13:00"}}},
		},
		Integrations: Integrations{
			WhatsAppEnabled:  true,
			RemindersEnabled: true,
			ReminderChannel:  ReminderWhatsApp,
			ReminderHours:    24,
		},
		PatientSummaries: map[string]string{},
	}
}
