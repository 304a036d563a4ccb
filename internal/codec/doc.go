// Package codec serializes cause chains for run records.
//
// Encode and Decode use nested JSON: an ordered list of records, each tagged
// by kind, with upstream records embedding their snapshot chain inline.
// Decoding never re-applies the truncation policy; records written under an
// older or looser policy come back unchanged.
//
// Canonical and ChainID produce RFC 8785 canonical JSON and a SHA-256
// content address with domain separation, so identical chains hash
// identically across processes.
package codec
