package app

import (
	"github.com/charlesng35/classroom/internal/pairing"
)

// RegistryOptions converts PairingConfig into registry options.
func (c PairingConfig) RegistryOptions() []pairing.Option {
	return []pairing.Option{
		pairing.WithWindow(c.Window),
		pairing.WithShards(c.Shards),
	}
}

// QRRenderer builds the QR renderer described by the configuration.
func (c PairingConfig) QRRenderer() (*pairing.QRRenderer, error) {
	return pairing.NewQRRenderer(c.QR.Size, c.QR.Recovery, c.QR.ContentPrefix)
}
