package main

import (
	"fmt"

	"github.com/TEENet-io/onebtc-go/bridge"
	"github.com/TEENet-io/onebtc-go/cmd"
	"github.com/TEENet-io/onebtc-go/common"
	"github.com/TEENet-io/onebtc-go/logconfig"
	"github.com/spf13/viper"
)

const (
	ENV_CONFIG_FILE_PATH = "BRIDGE_CONFIG"
)

func main() {
	// Tool to read environment variables
	viper.AutomaticEnv()
	setDefaults()

	// Accessing an environment variable of configuration file location.
	// Without a file everything comes from the environment.
	_config_file := viper.GetString(ENV_CONFIG_FILE_PATH)
	if _config_file != "" {
		fmt.Printf("Bridge server configuration file = %s\n", _config_file)
		if !cmd.FileExists(_config_file) {
			fmt.Printf("Bridge server configuration file not found: %s\n", _config_file)
			return
		}
		if !initializeViper(_config_file) {
			return
		}
	}

	logconfig.ConfigByName(viper.GetString("LOG_LEVEL"))

	// Make the configuration
	bsc, err := PrepareBridgeServerConfig()
	if err != nil {
		fmt.Printf("Error loading bridge server configuration: %v\n", err)
		return
	}

	fmt.Println("Starting bridge server... press Ctrl+C to kill the server")
	// Start server and block.
	cmd.StartBridgeServerAndWait(bsc)
}

func initializeViper(filePath string) bool {
	viper.SetConfigFile(filePath)
	if err := viper.ReadInConfig(); err != nil {
		fmt.Printf("Error reading configuration file, %s", err)
		return false
	}
	return true
}

// setDefaults mirrors bridge.DefaultConfig so a missing key keeps its default.
func setDefaults() {
	d := bridge.DefaultConfig()

	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("DB_FILE_PATH", "bridge.db")
	viper.SetDefault("RELAY_DB_FILE_PATH", "relay.db")
	viper.SetDefault("BTC_CHAIN_CONFIG", "regtest")
	viper.SetDefault("BTC_START_BLK", -1)
	viper.SetDefault("HTTP_IP", "0.0.0.0")
	viper.SetDefault("HTTP_PORT", "8080")

	viper.SetDefault("MINIMUM_COLLATERAL", d.MinimumCollateral)
	viper.SetDefault("COLLATERAL_RATIO_PERCENT", d.CollateralRatioPercent)
	viper.SetDefault("ISSUE_FEE_BPS", d.IssueFeeBps)
	viper.SetDefault("REDEEM_FEE_BPS", d.RedeemFeeBps)
	viper.SetDefault("REDEEM_PUNISHMENT_BPS", d.RedeemPunishmentBps)
	viper.SetDefault("ISSUE_PERIOD", d.IssuePeriod)
	viper.SetDefault("REDEEM_PERIOD", d.RedeemPeriod)
	viper.SetDefault("CONFIRMATIONS", d.Confirmations)
	viper.SetDefault("CACHE_SIZE", d.CacheSize)
}

// PrepareBridgeServerConfig reads configuration variables and returns a BridgeServerConfig.
func PrepareBridgeServerConfig() (*cmd.BridgeServerConfig, error) {
	// Parse the BTC chain config (e.g., "regtest", "testnet", or "mainnet").
	btcParams, err := common.NetParams(viper.GetString("BTC_CHAIN_CONFIG"))
	if err != nil {
		return nil, err
	}

	bcfg := &bridge.Config{
		Params:                 btcParams,
		MinimumCollateral:      viper.GetUint64("MINIMUM_COLLATERAL"),
		CollateralRatioPercent: viper.GetUint64("COLLATERAL_RATIO_PERCENT"),
		IssueFeeBps:            viper.GetUint64("ISSUE_FEE_BPS"),
		RedeemFeeBps:           viper.GetUint64("REDEEM_FEE_BPS"),
		RedeemPunishmentBps:    viper.GetUint64("REDEEM_PUNISHMENT_BPS"),
		IssuePeriod:            viper.GetDuration("ISSUE_PERIOD"),
		RedeemPeriod:           viper.GetDuration("REDEEM_PERIOD"),
		Confirmations:          viper.GetUint32("CONFIRMATIONS"),
		CacheSize:              viper.GetInt("CACHE_SIZE"),
	}
	if err := bcfg.Validate(); err != nil {
		return nil, err
	}

	return &cmd.BridgeServerConfig{
		// state side
		DbFilePath:      viper.GetString("DB_FILE_PATH"),
		RelayDbFilePath: viper.GetString("RELAY_DB_FILE_PATH"),
		// btc side
		BtcRpcServer:   viper.GetString("BTC_RPC_SERVER"),
		BtcRpcPort:     viper.GetString("BTC_RPC_PORT"),
		BtcRpcUsername: viper.GetString("BTC_RPC_USERNAME"),
		BtcRpcPwd:      viper.GetString("BTC_RPC_PWD"),
		BtcStartBlk:    viper.GetInt64("BTC_START_BLK"),
		Bridge:         bcfg,
		// Http side
		HttpIp:   viper.GetString("HTTP_IP"),
		HttpPort: viper.GetString("HTTP_PORT"),
	}, nil
}
