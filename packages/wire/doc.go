// Package wire implements the HTTP/1.1 message syntax used by the transaction
// engine: serializing a request onto a raw connection and parsing the status
// line, header block and body framing of the response.
//
// Only the syntax lives here (RFC 9112). Deciding what to send, when to stop
// reading and what a response means is left to packages/http.
package wire
