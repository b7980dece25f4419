package env

import (
	"net"
	"os"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

const appID = "volknob"

// MachineID retrieves an ID identifying the machine, derived from the
// machine ID so the raw value is not exposed on the broker. It's short
// enough for an MQTT 3.1 client ID. Hostname is used when the machine
// has no ID (e.g. in containers).
func MachineID() string {
	id, err := machineid.ProtectedID(appID)
	if err == nil && len(id) >= 12 {
		return id[:12]
	}
	host, herr := os.Hostname()
	if herr != nil {
		glog.Warningf("no machine id (%v) nor hostname (%v)", err, herr)
		return appID
	}
	return host
}

// LocalAddress returns the first non-loopback IPv4 address, or empty
// if there is none.
func LocalAddress() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		glog.Warningf("interface addresses: %v", err)
		return ""
	}
	return firstIPv4(addrs)
}

func firstIPv4(addrs []net.Addr) string {
	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipnet.IP.To4(); ip4 != nil {
			return ip4.String()
		}
	}
	return ""
}
