// Package protocol implements the fragship wire format.
//
// Every datagram starts with a fixed 6-byte ASCII header followed by the
// payload:
//
//	offset 0    kind           '0'=SET '1'=PSH '2'=ACK '3'=RST '8'=SET_MSG
//	offset 1..4 declared size  zero-padded decimal, e.g. "1024"
//	offset 5    checksum       one decimal digit (see Checksum)
//	offset 6..  payload
//
// The header carries no structural validation of its own. Decode accepts any
// input and the checksum digit is the only detector of damaged frames.
//
// # Integrity
//
// The checksum digit is the population count of a CRC remainder computed
// with a small generator polynomial (x^3 + 1 by default). It fits in one
// header byte but is lossy: distinct remainders with the same number of set
// bits produce the same digit, so Verify cannot distinguish them. Callers
// must not treat a positive Verify result as CRC-strength evidence.
//
// # Handshake payloads
//
// Offer describes the first frame of a transfer. A file offer carries the
// destination name immediately followed by the decimal fragment count; a
// text offer carries a one-byte marker and the fragment count.
package protocol
