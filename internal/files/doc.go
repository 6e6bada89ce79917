// Package files provides the file operations shared by the license, trial
// and record stores.
//
// Every persistent document in the system is small JSON rewritten whole, so
// writes go to a sibling temp file that is synced and renamed over the
// target. A crash mid-write leaves either the old or the new document, never
// a truncated one.
//
//	if err := files.WriteJSONAtomic(path, record, 0o600); err != nil {
//	    return err
//	}
package files
