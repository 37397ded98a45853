// Package jsonrpc formats and classifies the JSON-RPC 2.0 payloads that
// peers exchange over relay topics.
//
//   - Request and Response are the two outbound shapes.
//   - Payload is the decoded inbound form, classified with IsRequest/IsResponse.
//   - PayloadID produces time-ordered ids unique enough for correlation.
package jsonrpc
