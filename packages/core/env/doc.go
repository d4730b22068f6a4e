// Package env reads .env files and process environment variables, and
// substitutes {{name}} references in description files.
package env
