// Package addrutil 提供地址分类工具
package addrutil

import (
	"net"
	"strings"
)

// ============================================================================
//                              IP 类型判断工具
// ============================================================================

// IsLoopbackAddr 判断地址是否是回环地址
func IsLoopbackAddr(addr string) bool {
	ip := ExtractIP(addr)
	if ip == nil {
		return false
	}
	return ip.IsLoopback()
}

// IsPrivateAddr 判断地址是否是私网地址
//
// 私网地址范围：
//   - 10.0.0.0/8
//   - 172.16.0.0/12
//   - 192.168.0.0/16
//   - fc00::/7 (IPv6 ULA)
//   - fe80::/10 (IPv6 链路本地)
func IsPrivateAddr(addr string) bool {
	ip := ExtractIP(addr)
	if ip == nil {
		return false
	}
	return ip.IsPrivate() || ip.IsLinkLocalUnicast()
}

// IsLANAddr 判断远端是否与本机处于同一局域网
//
// 回环地址和私网地址都视为局域网。
func IsLANAddr(addr string) bool {
	return IsLoopbackAddr(addr) || IsPrivateAddr(addr)
}

// ExtractIP 从地址字符串中提取 IP 地址
//
// 支持格式：
//   - multiaddr: /ip4/<ip>/..., /ip6/<ip>/...
//   - host:port: 1.2.3.4:4001
//   - [ipv6]:port: [::1]:4001
//   - 纯 IP: 1.2.3.4 / ::1
//
// 无法直接得到 IP 的地址（/dns4/ 等、主机名）返回 nil。
func ExtractIP(addr string) net.IP {
	if addr == "" {
		return nil
	}

	if strings.HasPrefix(addr, "/") {
		parts := strings.Split(addr, "/")
		for i, part := range parts {
			switch part {
			case "ip4", "ip6":
				if i+1 < len(parts) {
					return net.ParseIP(parts[i+1])
				}
			case "dns4", "dns6", "dnsaddr":
				return nil
			}
		}
		return nil
	}

	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return net.ParseIP(addr)
	}
	return net.ParseIP(host)
}
