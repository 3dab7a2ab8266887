package coordinator

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/enbility/zeroconf/v3"
)

const (
	// ServiceType is the mDNS service type of a coordinator
	ServiceType = "_flightplan._tcp"
	// Domain is the mDNS domain
	Domain = "local."
)

// Advertiser publishes a coordinator on the local network
type Advertiser struct {
	server *zeroconf.Server
}

// Advertise registers instance on port. Stop it with Shutdown.
func Advertise(instance string, port int) (*Advertiser, error) {
	server, err := zeroconf.Register(
		instance,
		ServiceType,
		Domain,
		port,
		[]string{"api=1"},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register coordinator service: %w", err)
	}
	return &Advertiser{server: server}, nil
}

// Shutdown stops advertising
func (a *Advertiser) Shutdown() {
	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
}

// Service is a coordinator found on the network
type Service struct {
	Instance string
	Host     string
	Port     int
	Addrs    []string
}

// Address returns host:port for the first known address
func (s Service) Address() string {
	host := s.Host
	if len(s.Addrs) > 0 {
		host = s.Addrs[0]
	}
	return net.JoinHostPort(host, strconv.Itoa(s.Port))
}

// Browse streams coordinators until ctx ends
func Browse(ctx context.Context) (<-chan Service, error) {
	out := make(chan Service)
	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	go func() {
		defer close(out)
		seen := make(map[string]bool)
		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				if seen[entry.Instance] {
					continue
				}
				seen[entry.Instance] = true

				svc := entryToService(entry)
				select {
				case out <- svc:
				case <-ctx.Done():
					return
				}
			case entry, ok := <-removed:
				if ok {
					delete(seen, entry.Instance)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		_ = zeroconf.Browse(ctx, ServiceType, Domain, entries, removed)
	}()

	return out, nil
}

// Discover returns the first coordinator found before ctx ends
func Discover(ctx context.Context) (Service, error) {
	services, err := Browse(ctx)
	if err != nil {
		return Service{}, err
	}
	select {
	case svc, ok := <-services:
		if ok {
			return svc, nil
		}
	case <-ctx.Done():
	}
	return Service{}, fmt.Errorf("no coordinator found: %w", ctx.Err())
}

func entryToService(entry *zeroconf.ServiceEntry) Service {
	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}
	return Service{
		Instance: entry.Instance,
		Host:     entry.HostName,
		Port:     entry.Port,
		Addrs:    addrs,
	}
}
