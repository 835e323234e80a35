// Package verify implements the legacy license verification protocol served
// to field-deployed trading terminals.
//
// The protocol is unauthenticated and deliberately quiet: every failure
// (missing parameter, no eligible license, database outage) collapses into
// the same single-newline response, so a probing caller learns nothing about
// which condition it hit. Successful responses are two lines of plain text,
// the expiration date and a checksum over a canonical string that the
// deployed binaries hardcode. Both the date format and the checksum are
// frozen wire contracts; do not "improve" either.
package verify
