package event

// Severity is an OTLP log severity number. The ordinals follow the OTLP
// data model: each named level spans four numbers (TRACE=1..4, DEBUG=5..8,
// up to FATAL=21..24).
type Severity int

const (
	SeverityTrace Severity = 1
	SeverityDebug Severity = 5
	SeverityInfo  Severity = 9
	SeverityWarn  Severity = 13
	SeverityError Severity = 17
	SeverityFatal Severity = 21
)

// Valid reports whether the severity falls inside the OTLP ordinal range.
func (s Severity) Valid() bool { return s >= 1 && s <= 24 }

// Text returns the OTLP severity text for the number's level bucket.
func (s Severity) Text() string {
	switch {
	case s >= 21 && s <= 24:
		return "FATAL"
	case s >= 17:
		return "ERROR"
	case s >= 13:
		return "WARN"
	case s >= 9:
		return "INFO"
	case s >= 5:
		return "DEBUG"
	case s >= 1:
		return "TRACE"
	}
	return "UNSPECIFIED"
}
