package internal

// CreateTestRow builds a Row from alternating header/value pairs.
func CreateTestRow(pairs ...string) Row {
	headers := make([]string, 0, len(pairs)/2)
	values := make([]string, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		headers = append(headers, pairs[i])
		values = append(values, pairs[i+1])
	}
	return NewRow(headers, values)
}

// CreateTestRecord creates a record with only the grouping fields set.
func CreateTestRecord(id, sessionID, timestamp string) *StandardRecord {
	return &StandardRecord{
		ID:          id,
		SessionID:   sessionID,
		Timestamp:   timestamp,
		UserID:      "user-" + id,
		InputMedia:  []MediaReference{},
		OutputMedia: []MediaReference{},
		StepLog:     StepLog{Steps: []StepRecord{}},
	}
}
