package event

// SourceLegacyScraper marks events ingested from the legacy calendar dump,
// whose timestamps were written with a fixed +2-hour offset from UTC. The
// correction lives here, applied once at the store boundary, so no query
// code ever adjusts timestamps itself (double-correction is the classic bug).
const SourceLegacyScraper = "forex_factory_legacy"

// legacySkewMs is the fixed offset the legacy source adds to UTC
const legacySkewMs int64 = 2 * 60 * 60 * 1000

// CorrectSkew returns the true UTC timestamp for a stored event timestamp
func CorrectSkew(source string, timestampMs int64) int64 {
	if source == SourceLegacyScraper {
		return timestampMs - legacySkewMs
	}
	return timestampMs
}

// CorrectedTimestamp returns the event's true UTC timestamp
func (e *Event) CorrectedTimestamp() int64 {
	return CorrectSkew(e.Source, e.Timestamp)
}

// WidenRange expands a UTC query range so that a pre-correction filter over
// mixed-source rows cannot drop legacy rows near the boundary. Callers filter
// again on corrected timestamps after reading.
func WidenRange(fromMs, toMs int64) (int64, int64) {
	return fromMs - legacySkewMs, toMs + legacySkewMs
}
