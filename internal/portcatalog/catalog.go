package portcatalog

import "fmt"

// Port describes a single scan target: a port number, a disambiguating
// special index (for ports probed with more than one payload variant), and
// a human-readable description shown on the results page.
type Port struct {
	PortNum     uint16
	Special     uint8
	Description string
}

// Key returns the encoded port key for p under protocol.
func (p Port) Key(protocol Protocol) uint32 {
	return EncodePortKey(p.PortNum, p.Special, protocol)
}

// DefaultTCPPorts is the compile-time default TCP port list (DEFNUMPORTS).
// Chosen to span common remote-administration, mail, web, and database
// services worth flagging when reachable from the public IPv6 internet.
var DefaultTCPPorts = []Port{
	{21, 0, "FTP"},
	{22, 0, "SSH"},
	{23, 0, "Telnet"},
	{25, 0, "SMTP"},
	{80, 0, "HTTP"},
	{110, 0, "POP3"},
	{143, 0, "IMAP"},
	{443, 0, "HTTPS"},
	{445, 0, "Microsoft-DS/SMB"},
	{993, 0, "IMAPS"},
	{995, 0, "POP3S"},
	{3306, 0, "MySQL"},
	{3389, 0, "RDP"},
	{8080, 0, "HTTP-alt"},
	{11211, 0, "memcache"},
}

// memcacheSpecial marks the memcache port entry probed with the "stats\r\n"
// protocol-exchange case rather than a bare connect.
const memcacheSpecial uint8 = 1

// DefaultUDPPorts is the compile-time default UDP port list (NUMUDPPORTS),
// each probed with an application-aware payload crafted to elicit a
// service-native reply.
var DefaultUDPPorts = []Port{
	{53, 0, "DNS"},
	{67, 0, "DHCPv6 server"},
	{69, 0, "TFTP"},
	{123, 0, "NTP"},
	{137, 0, "NetBIOS-NS"},
	{161, 0, "SNMP"},
	{500, 0, "IKE"},
	{1900, 0, "SSDP"},
	{5353, 0, "mDNS"},
	{5355, 0, "LLMNR"},
}

// defaultTCPSpecial returns the TCP default port list with the memcache
// protocol-exchange special index applied.
func defaultTCPSpecial() []Port {
	ports := make([]Port, len(DefaultTCPPorts))
	copy(ports, DefaultTCPPorts)
	for i := range ports {
		if ports[i].PortNum == 11211 {
			ports[i].Special = memcacheSpecial
		}
	}
	return ports
}

func init() {
	DefaultTCPPorts = defaultTCPSpecial()
}

// IncludeExisting selects Merge's treatment of the default list.
type IncludeExisting int

const (
	// IncludeExistingAppend appends custom ports after the defaults.
	IncludeExistingAppend IncludeExisting = 1
	// IncludeExistingReplace discards the defaults and uses only custom ports.
	IncludeExistingReplace IncludeExisting = -1
)

// Merge combines defaults with custom, honoring includeExisting and
// rejecting duplicate (port, special) pairs and out-of-range port numbers.
// maxCustom caps len(custom) (NUMUSERDEFPORTS).
func Merge(defaults, custom []Port, includeExisting IncludeExisting, maxCustom int) ([]Port, error) {
	if len(custom) > maxCustom {
		return nil, fmt.Errorf("portcatalog: %d custom ports exceeds limit of %d", len(custom), maxCustom)
	}

	var base []Port
	if includeExisting == IncludeExistingAppend {
		base = append(base, defaults...)
	}

	seen := make(map[uint32]struct{}, len(base)+len(custom))
	for _, p := range base {
		seen[p.Key(ProtocolTCP)] = struct{}{}
	}

	merged := base
	for _, p := range custom {
		if p.PortNum < MinValidPort || p.PortNum > MaxValidPort {
			return nil, fmt.Errorf("portcatalog: port %d out of range [%d,%d]", p.PortNum, MinValidPort, MaxValidPort)
		}
		key := p.Key(ProtocolTCP)
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("portcatalog: duplicate port/special (%d,%d)", p.PortNum, p.Special)
		}
		seen[key] = struct{}{}
		merged = append(merged, p)
	}

	return merged, nil
}
