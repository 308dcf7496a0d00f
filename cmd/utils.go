package cmd

import (
	"os"

	btcrpc "github.com/TEENet-io/onebtc-go/btcman/rpc"
)

// FileExists reports whether filePath is a regular file we can open.
func FileExists(filePath string) bool {
	info, err := os.Stat(filePath)
	if err != nil || info.IsDir() {
		return false
	}
	file, err := os.Open(filePath)
	if err != nil {
		return false
	}
	file.Close()
	return true
}

// SetupBtcRpc creates a btc rpc client. No connection is made until the
// first call.
func SetupBtcRpc(server string, port string, username string, password string) (*btcrpc.RpcClient, error) {
	return btcrpc.NewRpcClient(&btcrpc.RpcClientConfig{
		ServerAddr: server,
		Port:       port,
		Username:   username,
		Pwd:        password,
	})
}
