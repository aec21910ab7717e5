// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package telemetry provides OpenTelemetry tracing utilities.
package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the download path.
const (
	// HTTP attributes
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPURLKey        = "http.url"

	// Item attributes
	ItemIDKey        = "dtg.item_id"
	ItemSourceURLKey = "dtg.source_url"

	// Task attributes
	TaskTypeKey    = "dtg.task.type"
	TaskBytesKey   = "dtg.task.bytes"
	TaskAttemptKey = "dtg.task.attempt"
	TaskResumedKey = "dtg.task.resumed"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, url string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPURLKey, url),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// ItemAttributes creates span attributes identifying which item a metadata
// load or task fetch belongs to.
func ItemAttributes(itemID, sourceURL string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 2)
	if itemID != "" {
		attrs = append(attrs, attribute.String(ItemIDKey, itemID))
	}
	if sourceURL != "" {
		attrs = append(attrs, attribute.String(ItemSourceURLKey, sourceURL))
	}
	return attrs
}

// TaskAttributes creates span attributes describing one segment/key/map
// fetch: its type, the bytes written, whether it resumed from a partial
// file, and which retry attempt it was.
func TaskAttributes(taskType string, bytesWritten int64, resumed bool, attempt int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(TaskTypeKey, taskType),
		attribute.Int64(TaskBytesKey, bytesWritten),
		attribute.Bool(TaskResumedKey, resumed),
		attribute.Int(TaskAttemptKey, attempt),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(_ error, errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
