// Package llm provides rate-limited language model clients for stock
// sentiment extraction. It supports multiple providers behind a single
// capability interface, with a dual-window request throttle (sliding
// requests-per-minute plus persisted requests-per-day), response
// normalization across heterogeneous provider payloads, and schema
// validation of the structured records the model emits.
package llm
