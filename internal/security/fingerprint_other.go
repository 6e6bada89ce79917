//go:build !windows

package security

// machineGUID has no registry equivalent outside Windows; the field stays
// empty so fingerprints remain comparable across releases.
func machineGUID() (string, error) {
	return "", nil
}
