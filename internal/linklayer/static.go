// Package linklayer reports which stations are currently associated with the
// hub's network. Door nodes are matched against it by MAC address.
package linklayer

import (
	"context"
	"fmt"
	"net"

	"power_windows/internal/config"
	"power_windows/internal/models"
)

// Static is a fixed client list, for wired benches and deployments where the
// access point cannot be queried.
type Static struct {
	clients []models.LinkClient
}

func NewStatic(entries []config.StaticClient) (*Static, error) {
	clients := make([]models.LinkClient, 0, len(entries))
	for _, e := range entries {
		c, err := parseClient(e.MAC, e.IP)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return &Static{clients: clients}, nil
}

func (s *Static) Clients(ctx context.Context) ([]models.LinkClient, error) {
	return append([]models.LinkClient(nil), s.clients...), nil
}

func parseClient(mac, ip string) (models.LinkClient, error) {
	hw, err := net.ParseMAC(mac)
	if err != nil {
		return models.LinkClient{}, fmt.Errorf("parse client mac %q: %w", mac, err)
	}
	addr := net.ParseIP(ip)
	if addr == nil {
		return models.LinkClient{}, fmt.Errorf("parse client ip %q: invalid address", ip)
	}
	return models.LinkClient{MAC: hw, IP: addr}, nil
}
