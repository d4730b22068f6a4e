// Package http performs single HTTP/1.1 request/response exchanges over raw
// sockets and always reports the outcome as a Transaction.
//
// Features:
//   - Pluggable scheme to transport registry (plain TCP and TLS built in)
//   - Separate connect and data-idle silence timeouts
//   - Bounded redirect following
//   - gzip, deflate and brotli response decoding, declared or sniffed
//   - Timeouts, aborts and transport errors recorded on Transaction.Info.Error
//     instead of being returned
//
// Only setup problems (unsupported scheme, malformed URI) make Request return
// an error.
package http
