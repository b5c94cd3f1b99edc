package kafka

// Topic definitions for Kafka ingestion
const (
	// TopicCalendarRows carries raw scraped calendar rows for bulk ingestion.
	// Payloads use the same shape as the HTTP bulk-ingest endpoint.
	TopicCalendarRows = "calendar.rows"
)
