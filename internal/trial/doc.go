// Package trial tracks the 15-day evaluation period of an installation.
//
// The first launch on a machine records the current time and fingerprint.
// Remaining time, the final-hour warning and expiry are all computed at read
// time from that record; nothing but the first-run date and a forward-only
// last-seen date is ever stored. A fingerprint change is treated as a new
// installation and restarts the trial.
//
// FileStore seals each record with an HMAC and keeps a mirror copy, so
// deleting or editing one file does not reset the evaluation.
package trial
