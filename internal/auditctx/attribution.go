package auditctx

import (
	"net/netip"
	"strings"
	"unicode"
	"unicode/utf8"

	dErrors "biblioteca/pkg/domain-errors"
	"biblioteca/pkg/requestcontext"
)

const (
	maxUsernameLen  = 254
	maxHostLen      = 255
	maxOperationLen = 100
)

// Attribution is the actor tuple bound to an audited transaction.
type Attribution struct {
	Username  string
	IP        string
	Host      string
	Operation string
}

// Normalize makes the attribution safe to record. A missing username or host
// becomes requestcontext.SystemActor. Values that would corrupt the audit trail
// (control characters, invalid UTF-8, oversized strings, unparsable IPs) are
// replaced as well, and the returned error lists what was replaced. The error
// is informational: the normalized Attribution is always usable.
func (a Attribution) Normalize() (Attribution, error) {
	var replaced []string

	a.Username = strings.TrimSpace(a.Username)
	if a.Username == "" {
		a.Username = requestcontext.SystemActor
	} else if !printable(a.Username, maxUsernameLen) {
		a.Username = requestcontext.SystemActor
		replaced = append(replaced, "username")
	}

	a.Host = strings.TrimSpace(a.Host)
	if a.Host == "" {
		a.Host = requestcontext.SystemActor
	} else if !printable(a.Host, maxHostLen) {
		a.Host = requestcontext.SystemActor
		replaced = append(replaced, "host")
	}

	a.IP = strings.TrimSpace(a.IP)
	if a.IP != "" {
		addr, err := netip.ParseAddr(a.IP)
		if err != nil {
			a.IP = ""
			replaced = append(replaced, "ip")
		} else {
			a.IP = addr.WithZone("").String()
		}
	}

	a.Operation = strings.TrimSpace(a.Operation)
	if !printable(a.Operation, maxOperationLen) {
		a.Operation = ""
		replaced = append(replaced, "operation")
	}

	if len(replaced) > 0 {
		return a, dErrors.New(dErrors.CodeAttribution, "attribution fields replaced: "+strings.Join(replaced, ", "))
	}
	return a, nil
}

func printable(s string, maxLen int) bool {
	if len(s) > maxLen || !utf8.ValidString(s) {
		return false
	}
	for _, r := range s {
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}
