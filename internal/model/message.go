// Package model defines the core data structures for the SMS payment engine.
package model

import "time"

// Message is a raw text notification as delivered by the message source.
type Message struct {
	ID              string `json:"id"`
	SenderAddress   string `json:"address"`
	Body            string `json:"body"`
	TimestampMillis int64  `json:"timestamp"`
}

// Time returns the message timestamp as a time.Time.
func (m Message) Time() time.Time {
	return time.UnixMilli(m.TimestampMillis)
}

// Classified pairs an input message with its accepted analysis.
type Classified struct {
	Message Message
	Result  AnalysisResult
}
