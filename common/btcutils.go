package common

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
)

func IsValidBtcAddress(address string, cfg *chaincfg.Params) bool {
	if _, err := btcutil.DecodeAddress(address, cfg); err != nil {
		return false
	}

	return true
}

// DecodeP2PKH decodes a base58check pay-to-pubkey-hash address and makes
// sure it belongs to the given network.
func DecodeP2PKH(address string, cfg *chaincfg.Params) (*btcutil.AddressPubKeyHash, error) {
	addr, err := btcutil.DecodeAddress(address, cfg)
	if err != nil {
		return nil, err
	}
	pkh, ok := addr.(*btcutil.AddressPubKeyHash)
	if !ok {
		return nil, fmt.Errorf("not a p2pkh address: %s", address)
	}
	if !pkh.IsForNet(cfg) {
		return nil, fmt.Errorf("address %s is not for %s", address, cfg.Name)
	}
	return pkh, nil
}

// NetParams maps a chain name used in configuration files to its params.
func NetParams(name string) (*chaincfg.Params, error) {
	switch name {
	case "mainnet":
		return &chaincfg.MainNetParams, nil
	case "testnet", "testnet3":
		return &chaincfg.TestNet3Params, nil
	case "regtest":
		return &chaincfg.RegressionNetParams, nil
	case "simnet":
		return &chaincfg.SimNetParams, nil
	case "signet":
		return &chaincfg.SigNetParams, nil
	}
	return nil, fmt.Errorf("unknown btc chain config: %s", name)
}
