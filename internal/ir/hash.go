package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainSchedule = "concuerror/schedule/v1"
	DomainTicket   = "concuerror/ticket/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ScheduleHash computes the content-addressed identity of a schedule, given
// as the ordered list of logical process identifiers it chooses.
func ScheduleHash(decisions []string) string {
	// []string always marshals; the error path is unreachable.
	canonical, _ := MarshalCanonical(decisions)
	return hashWithDomain(DomainSchedule, canonical)
}

// TicketID computes the content-addressed identity of a ticket.
//
// The detail text is part of the identity: two failures on the same
// schedule with different messages are different tickets.
func TicketID(target, kind, detail string, decisions []string) (string, error) {
	obj := map[string]any{
		"target":   target,
		"kind":     kind,
		"detail":   detail,
		"schedule": decisions,
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("TicketID: failed to marshal: %w", err)
	}

	return hashWithDomain(DomainTicket, canonical), nil
}

// MustTicketID is like TicketID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustTicketID(target, kind, detail string, decisions []string) string {
	id, err := TicketID(target, kind, detail, decisions)
	if err != nil {
		panic(err)
	}
	return id
}
