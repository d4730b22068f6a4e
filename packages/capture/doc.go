// Package capture extracts values from finished transactions.
//
// It supports capturing values from:
//   - Response body (gjson paths)
//   - Response headers
//   - Response status code
//   - Transaction duration
package capture
