// Package probe implements the TCP connect, UDP application-aware, and
// ICMPv6 echo probes that classify one port or host outcome.
package probe

import "github.com/ipscand/ipscand/internal/portcatalog"

// udpPayload returns the canonical request payload for a default UDP port,
// crafted to elicit a service-native reply. Ports without a known
// application protocol get an empty payload (still useful: some services
// reply to any datagram).
func udpPayload(port portcatalog.Port) []byte {
	switch port.PortNum {
	case 53:
		return dnsProbe()
	case 67:
		return dhcpv6Probe()
	case 69:
		return tftpProbe()
	case 123:
		return ntpProbe()
	case 137:
		return netbiosProbe()
	case 161:
		return snmpProbe()
	case 500:
		return ikeProbe()
	case 1900:
		return ssdpProbe()
	case 5353:
		return mdnsProbe()
	case 5355:
		return llmnrProbe()
	default:
		return nil
	}
}

// dnsProbe builds a standard DNS query for version.bind TXT/CHAOS, which
// most resolvers answer even with recursion disabled.
func dnsProbe() []byte {
	return []byte{
		0x1c, 0x1c, // transaction ID
		0x01, 0x00, // flags: standard query, recursion desired
		0x00, 0x01, // questions: 1
		0x00, 0x00, // answer RRs
		0x00, 0x00, // authority RRs
		0x00, 0x00, // additional RRs
		0x07, 'v', 'e', 'r', 's', 'i', 'o', 'n',
		0x04, 'b', 'i', 'n', 'd',
		0x00,       // root
		0x00, 0x10, // type: TXT
		0x00, 0x03, // class: CHAOS
	}
}

// ntpProbe builds an NTPv3 client-mode request; any SNTP-capable server
// replies with a mode-4 packet.
func ntpProbe() []byte {
	p := make([]byte, 48)
	p[0] = 0x1b // LI=0, VN=3, Mode=3 (client)
	return p
}

// snmpProbe builds an SNMPv2c GetRequest for sysDescr.0 against the
// "public" community, the de facto default read community string.
func snmpProbe() []byte {
	return []byte{
		0x30, 0x29, // SEQUENCE
		0x02, 0x01, 0x01, // version: 1 (v2c)
		0x04, 0x06, 'p', 'u', 'b', 'l', 'i', 'c',
		0xa0, 0x1c, // GetRequest PDU
		0x02, 0x04, 0x00, 0x00, 0x00, 0x01, // request ID
		0x02, 0x01, 0x00, // error status
		0x02, 0x01, 0x00, // error index
		0x30, 0x0e, // varbind list
		0x30, 0x0c,
		0x06, 0x08, 0x2b, 0x06, 0x01, 0x02, 0x01, 0x01, 0x01, 0x00, // OID 1.3.6.1.2.1.1.1.0
		0x05, 0x00, // value: NULL
	}
}

// mdnsProbe builds an mDNS query for _services._dns-sd._udp.local PTR,
// the standard service-enumeration query most mDNS responders answer.
func mdnsProbe() []byte {
	return []byte{
		0x00, 0x00, // transaction ID (0 for multicast-style queries)
		0x00, 0x00, // flags
		0x00, 0x01, // questions: 1
		0x00, 0x00,
		0x00, 0x00,
		0x00, 0x00,
		0x09, '_', 's', 'e', 'r', 'v', 'i', 'c', 'e', 's',
		0x07, '_', 'd', 'n', 's', '-', 's', 'd',
		0x04, '_', 'u', 'd', 'p',
		0x05, 'l', 'o', 'c', 'a', 'l',
		0x00,
		0x00, 0x0c, // type PTR
		0x00, 0x01, // class IN
	}
}

// ssdpProbe builds an SSDP M-SEARCH discovery request targeting the
// all-UPnP-devices service type.
func ssdpProbe() []byte {
	const req = "M-SEARCH * HTTP/1.1\r\n" +
		"HOST: [ff02::c]:1900\r\n" +
		"MAN: \"ssdp:discover\"\r\n" +
		"MX: 2\r\n" +
		"ST: ssdp:all\r\n\r\n"
	return []byte(req)
}

// llmnrProbe builds an LLMNR query with the same wire shape as a DNS query,
// asking for an A/AAAA-style resolution of an unlikely hostname.
func llmnrProbe() []byte {
	return []byte{
		0x00, 0x00, // transaction ID
		0x00, 0x00, // flags: standard query
		0x00, 0x01, // questions: 1
		0x00, 0x00,
		0x00, 0x00,
		0x00, 0x00,
		0x0b, 'i', 'p', 's', 'c', 'a', 'n', 'd', '-', 'l', 'l', 'm',
		0x00,
		0x00, 0x01, // type A
		0x00, 0x01, // class IN
	}
}

// netbiosProbe builds a NetBIOS Name Service node-status query against the
// wildcard name, eliciting a reply from any listening NetBIOS stack.
func netbiosProbe() []byte {
	return []byte{
		0x87, 0x16, // transaction ID
		0x00, 0x00, // flags: standard query
		0x00, 0x01, // questions: 1
		0x00, 0x00,
		0x00, 0x00,
		0x00, 0x00,
		0x20, // name length (encoded)
		'C', 'K', 'A', 'A', 'A', 'A', 'A', 'A', 'A', 'A', 'A', 'A', 'A', 'A', 'A', 'A',
		'A', 'A', 'A', 'A', 'A', 'A', 'A', 'A', 'A', 'A', 'A', 'A', 'A', 'A', 'A', 'A',
		0x00,
		0x00, 0x21, // type: NBSTAT
		0x00, 0x01, // class: IN
	}
}

// tftpProbe builds a TFTP read request for a file unlikely to exist, which
// most servers answer with an error packet rather than silence.
func tftpProbe() []byte {
	const filename = "ipscand-probe"
	const mode = "octet"
	p := make([]byte, 0, 2+len(filename)+1+len(mode)+1)
	p = append(p, 0x00, 0x01) // opcode: RRQ
	p = append(p, filename...)
	p = append(p, 0x00)
	p = append(p, mode...)
	p = append(p, 0x00)
	return p
}

// ikeProbe builds an IKEv1 main-mode initial exchange header; most IPsec
// gateways reply with their own header even without a matching proposal.
func ikeProbe() []byte {
	return []byte{
		0, 0, 0, 0, 0, 0, 0, 0, // initiator cookie
		0, 0, 0, 0, 0, 0, 0, 0, // responder cookie
		0x01,       // next payload: SA
		0x10,       // version 1.0
		0x02,       // exchange type: identity protection (main mode)
		0x00,       // flags
		0, 0, 0, 0, // message ID
		0, 0, 0, 0x1c, // length
	}
}

// dhcpv6Probe builds a DHCPv6 INFORMATION-REQUEST message carrying an
// Elapsed Time option, the minimal well-formed request a DHCPv6 server
// reply requires.
func dhcpv6Probe() []byte {
	return []byte{
		0x0b,             // msg-type: INFORMATION-REQUEST
		0x00, 0x00, 0x01, // transaction ID
		0x00, 0x08, 0x00, 0x02, 0x00, 0x00, // option: elapsed time = 0
	}
}
