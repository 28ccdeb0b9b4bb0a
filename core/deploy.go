package core

import (
	"fmt"

	"github.com/stellar-cctp/forwarder/address"
	"github.com/stellar-cctp/forwarder/core/token"
	"github.com/stellar-cctp/forwarder/core/transmitter"
	"github.com/stellar-cctp/forwarder/core/vm"
)

// Deployment is a wired asset, transmitter and forwarder on one host.
type Deployment struct {
	Host        *vm.Host
	Admin       address.Address
	Asset       *token.Client
	Transmitter *transmitter.Client
	Forwarder   *Client
}

// Deploy sets up a full forwarding stack signed by admin:
//
//  1. deploy the asset with admin as its admin
//  2. deploy the transmitter for that asset
//  3. hand the asset admin role to the transmitter so it can mint
//  4. deploy the forwarder and initialize it with asset and transmitter
func Deploy(host *vm.Host, admin address.Address, cfg Config) (*Deployment, error) {
	if !admin.IsAccount() {
		return nil, fmt.Errorf("deployer must be an account, have %s", admin)
	}
	assetAddr, err := host.Deploy(admin, []byte("asset"), token.Asset, admin, cfg.AssetName)
	if err != nil {
		return nil, fmt.Errorf("deploy asset: %w", err)
	}
	trAddr, err := host.Deploy(admin, []byte("transmitter"), transmitter.Mock, assetAddr, cfg.RejectReplays)
	if err != nil {
		return nil, fmt.Errorf("deploy transmitter: %w", err)
	}
	asset := token.NewClient(host, assetAddr)
	if err := asset.SetAdmin(admin, trAddr); err != nil {
		return nil, fmt.Errorf("set asset admin: %w", err)
	}
	fwdAddr, err := host.Deploy(admin, []byte("forwarder"), NewForwarder(cfg.Variant), assetAddr, trAddr)
	if err != nil {
		return nil, fmt.Errorf("deploy forwarder: %w", err)
	}
	return &Deployment{
		Host:        host,
		Admin:       admin,
		Asset:       asset,
		Transmitter: transmitter.NewClient(host, trAddr),
		Forwarder:   NewClient(host, fwdAddr, cfg.Variant),
	}, nil
}
