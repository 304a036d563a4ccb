package codec

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/roach88/causetrail/internal/cause"
)

// Domain prefixes for content-addressed identity.
// The version suffix leaves room for algorithm migration.
const (
	DomainChain = "causetrail/chain/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte keeps the domain/data boundary unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Canonical returns the RFC 8785 canonical JSON of a chain.
// Structurally identical chains always produce identical bytes.
func Canonical(c cause.Chain) ([]byte, error) {
	recs, err := ToRecords(c)
	if err != nil {
		return nil, err
	}
	data, err := MarshalCanonical(canonicalList(recs))
	if err != nil {
		return nil, fmt.Errorf("canonical chain: %w", err)
	}
	return data, nil
}

// CanonicalValue returns the chain as the generic list MarshalCanonical
// accepts, for embedding a chain in a larger canonical document.
func CanonicalValue(c cause.Chain) ([]any, error) {
	recs, err := ToRecords(c)
	if err != nil {
		return nil, err
	}
	return canonicalList(recs), nil
}

// ChainID computes the content-addressed ID of a chain.
func ChainID(c cause.Chain) (string, error) {
	data, err := Canonical(c)
	if err != nil {
		return "", fmt.Errorf("ChainID: %w", err)
	}
	return hashWithDomain(DomainChain, data), nil
}

// MustChainID is like ChainID but panics on error.
// Use only in tests or when the chain is known to be valid.
func MustChainID(c cause.Chain) string {
	id, err := ChainID(c)
	if err != nil {
		panic(err)
	}
	return id
}

func canonicalList(recs []Record) []any {
	out := make([]any, len(recs))
	for i, rec := range recs {
		out[i] = canonicalRecord(rec)
	}
	return out
}

// canonicalRecord mirrors the JSON tags of Record, omitting empty fields
// the same way Encode does.
func canonicalRecord(rec Record) map[string]any {
	m := map[string]any{"kind": string(rec.Kind)}
	if rec.Project != "" {
		m["project"] = rec.Project
	}
	if rec.Build != 0 {
		m["build"] = rec.Build
	}
	if rec.URL != "" {
		m["url"] = rec.URL
	}
	if rec.UserID != nil {
		m["user_id"] = *rec.UserID
	}
	if rec.Addr != "" {
		m["addr"] = rec.Addr
	}
	if rec.Note != "" {
		m["note"] = rec.Note
	}
	if len(rec.Causes) > 0 {
		m["causes"] = canonicalList(rec.Causes)
	}
	return m
}
