package assembler

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/chaincfg"
)

// DecodeWIF decodes a WIF private key and checks it belongs to network.
// A nil network skips the check.
func DecodeWIF(privKeyStr string, network *chaincfg.Params) (*btcutil.WIF, error) {
	if len(base58.Decode(privKeyStr)) == 0 {
		return nil, fmt.Errorf("invalid private key string (cannot pass base58 decode)")
	}

	wif, err := btcutil.DecodeWIF(privKeyStr)
	if err != nil {
		return nil, err
	}
	if network != nil && !wif.IsForNet(network) {
		return nil, fmt.Errorf("private key is not for %s", network.Name)
	}
	return wif, nil
}

// DecodeAddress decodes an address of network.
func DecodeAddress(addressStr string, network *chaincfg.Params) (btcutil.Address, error) {
	address, err := btcutil.DecodeAddress(addressStr, network)
	if err != nil {
		return nil, err
	}
	if !address.IsForNet(network) {
		return nil, fmt.Errorf("address %s is not for %s", addressStr, network.Name)
	}
	return address, nil
}
