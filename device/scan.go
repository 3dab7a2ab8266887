package device

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"tinygo.org/x/bluetooth"
)

// MinidronePrefixes are the advertised name prefixes of Parrot minidrones
var MinidronePrefixes = []string{"RS_", "Mambo_", "Swat_", "Travis_", "Maclan_", "Blaze_"}

// Advertisement is one device seen during a BLE scan
type Advertisement struct {
	Name    string
	Address string
	RSSI    int16
}

func (a Advertisement) String() string {
	return fmt.Sprintf("%s (%s, %d dBm)", a.Name, a.Address, a.RSSI)
}

// MatchesPrefix reports whether name starts with one of prefixes
func MatchesPrefix(name string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// Scan listens for BLE advertisements until ctx ends and returns the
// devices whose local name matches one of prefixes, in discovery order.
// With limit > 0 the scan stops as soon as limit devices were found.
func Scan(ctx context.Context, prefixes []string, limit int) ([]Advertisement, error) {
	adapter := bluetooth.DefaultAdapter
	if err := adapter.Enable(); err != nil {
		return nil, fmt.Errorf("failed to enable bluetooth adapter: %w", err)
	}

	var (
		mu    sync.Mutex
		found []Advertisement
		seen  = make(map[string]bool)
		full  = make(chan struct{})
		once  sync.Once
	)

	scanDone := make(chan error, 1)
	go func() {
		scanDone <- adapter.Scan(func(a *bluetooth.Adapter, result bluetooth.ScanResult) {
			name := result.LocalName()
			if !MatchesPrefix(name, prefixes) {
				return
			}

			mu.Lock()
			defer mu.Unlock()
			addr := result.Address.String()
			if seen[addr] {
				return
			}
			seen[addr] = true
			found = append(found, Advertisement{Name: name, Address: addr, RSSI: result.RSSI})
			if limit > 0 && len(found) >= limit {
				once.Do(func() { close(full) })
			}
		})
	}()

	select {
	case <-ctx.Done():
	case <-full:
	case err := <-scanDone:
		if err != nil {
			return nil, fmt.Errorf("bluetooth scan failed: %w", err)
		}
	}
	_ = adapter.StopScan()

	mu.Lock()
	defer mu.Unlock()
	return append([]Advertisement(nil), found...), nil
}
