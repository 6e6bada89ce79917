//go:build windows

package security

import (
	"strings"

	"golang.org/x/sys/windows/registry"
)

// machineGUID reads HKLM\SOFTWARE\Microsoft\Cryptography\MachineGuid
func machineGUID() (string, error) {
	k, err := registry.OpenKey(registry.LOCAL_MACHINE, `SOFTWARE\Microsoft\Cryptography`, registry.QUERY_VALUE|registry.WOW64_64KEY)
	if err != nil {
		return "", err
	}
	defer k.Close()

	guid, _, err := k.GetStringValue("MachineGuid")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(guid), nil
}
