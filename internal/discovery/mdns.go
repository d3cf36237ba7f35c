// ABOUTME: mDNS service discovery for the router control endpoint
// ABOUTME: Advertises the daemon and browses for routers on the local network
package discovery

import (
	"context"
	"fmt"
	"log"
	"net"
	"strings"
	"time"

	"github.com/Resonate-Protocol/resonate-router/internal/version"
	"github.com/hashicorp/mdns"
)

// ServiceType is the DNS-SD service type routers advertise
const ServiceType = "_resonate-router._tcp"

// Config holds discovery configuration
type Config struct {
	ServiceName string
	Port        int
	Path        string
	Logger      *log.Logger
}

// Manager handles mDNS operations
type Manager struct {
	config  Config
	logger  *log.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	routers chan *RouterInfo

	// query and retryDelay are swapped in tests
	query      func(*mdns.QueryParam) error
	retryDelay time.Duration
}

// RouterInfo describes a discovered router
type RouterInfo struct {
	Name    string
	Host    string
	Port    int
	Path    string
	Product string
	Version string
}

// Addr returns host:port for dialing the control endpoint
func (r *RouterInfo) Addr() string {
	return net.JoinHostPort(r.Host, fmt.Sprintf("%d", r.Port))
}

// NewManager creates a discovery manager
func NewManager(config Config) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	logger := config.Logger
	if logger == nil {
		logger = log.Default()
	}
	if config.Path == "" {
		config.Path = "/router"
	}

	return &Manager{
		config:  config,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		routers: make(chan *RouterInfo, 10),

		query:      mdns.Query,
		retryDelay: 5 * time.Second,
	}
}

// Advertise announces this router until Stop
func (m *Manager) Advertise() error {
	ips, err := getLocalIPs()
	if err != nil {
		return fmt.Errorf("failed to get local IPs: %w", err)
	}

	service, err := mdns.NewMDNSService(
		m.config.ServiceName,
		ServiceType,
		"",
		"",
		m.config.Port,
		ips,
		txtRecords(m.config.Path),
	)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("failed to create mdns server: %w", err)
	}

	m.logger.Printf("Advertising mDNS service: %s on port %d (type: %s)", m.config.ServiceName, m.config.Port, ServiceType)

	go func() {
		<-m.ctx.Done()
		server.Shutdown()
	}()

	return nil
}

// Browse continuously searches for routers until Stop. Results arrive on Routers.
func (m *Manager) Browse() {
	go m.browseLoop()
}

func (m *Manager) browseLoop() {
	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		entries := make(chan *mdns.ServiceEntry, 10)
		done := make(chan struct{})

		go func() {
			defer close(done)
			for entry := range entries {
				info := routerFromEntry(entry)
				if info == nil {
					continue
				}

				m.logger.Printf("Discovered router: %s at %s", info.Name, info.Addr())

				select {
				case m.routers <- info:
				case <-m.ctx.Done():
				}
			}
		}()

		err := m.query(&mdns.QueryParam{
			Service:     ServiceType,
			Domain:      "local",
			Timeout:     3 * time.Second,
			Entries:     entries,
			DisableIPv6: true,
		})
		close(entries)
		<-done

		if err != nil {
			m.logger.Printf("mDNS query failed, retrying in %v: %v", m.retryDelay, err)
			select {
			case <-time.After(m.retryDelay):
			case <-m.ctx.Done():
				return
			}
		}
	}
}

// Routers returns the channel of discovered routers
func (m *Manager) Routers() <-chan *RouterInfo {
	return m.routers
}

// Stop stops advertising and browsing
func (m *Manager) Stop() {
	m.cancel()
}

// Lookup runs one query and returns the routers that answered within timeout
func Lookup(timeout time.Duration) ([]*RouterInfo, error) {
	entries := make(chan *mdns.ServiceEntry, 16)
	var found []*RouterInfo
	done := make(chan struct{})

	go func() {
		defer close(done)
		seen := make(map[string]bool)
		for entry := range entries {
			info := routerFromEntry(entry)
			if info == nil || seen[info.Addr()] {
				continue
			}
			seen[info.Addr()] = true
			found = append(found, info)
		}
	}()

	err := mdns.Query(&mdns.QueryParam{
		Service:     ServiceType,
		Domain:      "local",
		Timeout:     timeout,
		Entries:     entries,
		DisableIPv6: true,
	})
	close(entries)
	<-done

	if err != nil {
		return nil, fmt.Errorf("mdns query failed: %w", err)
	}
	return found, nil
}

// routerFromEntry converts a query answer, ignoring other service types
// that share the multicast group.
func routerFromEntry(entry *mdns.ServiceEntry) *RouterInfo {
	if entry == nil || entry.AddrV4 == nil {
		return nil
	}
	if !strings.Contains(entry.Name, ServiceType) {
		return nil
	}

	return &RouterInfo{
		Name:    instanceName(entry.Name),
		Host:    entry.AddrV4.String(),
		Port:    entry.Port,
		Path:    txtValue(entry.InfoFields, "path", "/router"),
		Product: txtValue(entry.InfoFields, "product", ""),
		Version: txtValue(entry.InfoFields, "version", ""),
	}
}

func txtRecords(path string) []string {
	return []string{
		"path=" + path,
		"product=" + version.Product,
		"version=" + version.Version,
	}
}

func txtValue(fields []string, key, def string) string {
	for _, f := range fields {
		if v, ok := strings.CutPrefix(f, key+"="); ok {
			return v
		}
	}
	return def
}

// instanceName strips the service and domain labels from a full entry name
func instanceName(full string) string {
	if i := strings.Index(full, "."+ServiceType); i >= 0 {
		return strings.ReplaceAll(full[:i], `\ `, " ")
	}
	return full
}

// getLocalIPs returns local IPv4 addresses
func getLocalIPs() ([]net.IP, error) {
	var ips []net.IP

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
				if ipnet.IP.To4() != nil {
					ips = append(ips, ipnet.IP)
				}
			}
		}
	}

	return ips, nil
}
