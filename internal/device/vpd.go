package device

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateLayout is how manufacture dates appear in config and on the wire.
const DateLayout = "01/02/2006"

// TimestampLayout is how event log timestamps appear on the wire.
const TimestampLayout = "01/02/2006 15:04:05"

var macRe = regexp.MustCompile(`^([0-9A-Fa-f]{2})[:-]([0-9A-Fa-f]{2})[:-]([0-9A-Fa-f]{2})[:-]([0-9A-Fa-f]{2})[:-]([0-9A-Fa-f]{2})[:-]([0-9A-Fa-f]{2})$`)

// MAC is a 48-bit hardware address.
type MAC [6]byte

// String renders the address as lower-case colon separated hex.
func (m MAC) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", m[0], m[1], m[2], m[3], m[4], m[5])
}

// ParseMAC accepts "aa:bb:cc:dd:ee:ff" or "AA-BB-CC-DD-EE-FF".
func ParseMAC(raw string) (MAC, error) {
	var mac MAC
	m := macRe.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return mac, fmt.Errorf("unable to parse mac address: %q", raw)
	}
	for i := range mac {
		b, err := strconv.ParseUint(m[i+1], 16, 8)
		if err != nil {
			return mac, fmt.Errorf("unable to parse mac address %q: %w", raw, err)
		}
		mac[i] = byte(b)
	}
	return mac, nil
}

// ParseDate parses a manufacture date in MM/DD/YYYY form.
func ParseDate(raw string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("unable to parse date %q: %w", raw, err)
	}
	return t, nil
}

// Identity is the vital product data of the device.
type Identity struct {
	Model           string
	Manufacturer    string
	SerialNumber    string
	ManufactureDate time.Time
	MAC             MAC
	CountryCode     string
}

// Validate checks the fields the snapshot depends on.
func (id Identity) Validate() error {
	if id.Model == "" {
		return fmt.Errorf("vpd: model is required")
	}
	if id.SerialNumber == "" {
		return fmt.Errorf("vpd: serial number is required")
	}
	if len(id.CountryCode) > 3 {
		return fmt.Errorf("vpd: country code %q is too long", id.CountryCode)
	}
	return nil
}
