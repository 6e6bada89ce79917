// Package issuance is the operator side of licensing: it owns the signing
// key pair, mints device-bound license files and keeps a ledger of every
// license it has produced.
//
// The ledger is advisory. Revoking a record flips its status here but does
// not reach licenses already installed on customer machines.
package issuance
