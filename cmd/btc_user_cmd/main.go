package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/TEENet-io/onebtc-go/cmd"
	"github.com/TEENet-io/onebtc-go/common"
	"github.com/TEENet-io/onebtc-go/reporter"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/spf13/viper"
)

const (
	ENV_CONFIG_FILE_PATH = "BTC_USER_CONFIG"
)

func main() {
	// Tool to read environment variables
	viper.AutomaticEnv()

	// Accessing an environment variable of configuration file location.
	_config_file := viper.GetString(ENV_CONFIG_FILE_PATH)
	fmt.Printf("BTC user configuration file = %s\n", _config_file)

	// See if file exists
	if !cmd.FileExists(_config_file) {
		fmt.Printf("BTC user configuration file not found: %s\n", _config_file)
		return
	}

	// Read from config file.
	if !initializeViper(_config_file) {
		return
	}

	buc, err := PrepareBtcUserConfig()
	if err != nil {
		fmt.Printf("Error prepare BTC user configuration: %s\n", err)
		return
	}

	bu, err := cmd.NewBtcUser(buc)
	if err != nil {
		fmt.Printf("Error creating BTC user: %s\n", err)
		return
	}

	// Talks to the bridge http server as the configured account.
	caller, err := common.ParseAccount(viper.GetString("BRIDGE_ACCOUNT"))
	if err != nil {
		fmt.Printf("Error reading BRIDGE_ACCOUNT: %s\n", err)
		return
	}
	hr := reporter.NewHttpReader(viper.GetString("HTTP_IP"), viper.GetString("HTTP_PORT"), caller)

	fmt.Println(strings.Repeat("=", 30))
	fmt.Println("Welcome to bridge BTC user command line tool.")
	fmt.Printf("Your BTC address: %s\n", bu.Address.EncodeAddress())
	fmt.Printf("Your bridge account: %s\n", caller.Hex())

	// *** user interactive program ***

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handler to catch Ctrl-C.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		_captured := <-sig
		fmt.Printf("\nReceived interrupt signal, shutting down... %v\n", _captured)
		cancel()
		os.Exit(0)
	}()

	scanner := bufio.NewScanner(os.Stdin)
	prompt := func(text string) string {
		fmt.Print(text)
		scanner.Scan()
		return strings.TrimSpace(scanner.Text())
	}

	for {
		select {
		case <-ctx.Done():
			bu.Close()
			return
		default:
		}

		fmt.Println("What to do:")
		fmt.Println("1) Request issue")
		fmt.Println("2) Pay a request on BTC")
		fmt.Println("3) Prove a BTC tx and execute issue")
		fmt.Println("4) Request redeem")
		fmt.Println("5) Prove a BTC tx and execute redeem")
		fmt.Println("6) Derive deposit key (vault only)")
		fmt.Println("7) Tell BTC network to mine blocks (regtest only)")
		fmt.Print("Type option and press Enter: ")

		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())

		switch input {
		case "1":
			amount, err := strconv.ParseUint(prompt("Amount (satoshi, fee included): "), 10, 64)
			if err != nil {
				fmt.Printf("Invalid amount: %s\n", err)
				break
			}
			r, err := hr.RequestIssue(amount, prompt("Vault account: "))
			printResult(r, err)
		case "2":
			txid := prompt("Funding tx id: ")
			prev, err := chainhash.NewHashFromStr(txid)
			if err != nil {
				fmt.Printf("Invalid tx id: %s\n", err)
				break
			}
			vout, err1 := strconv.ParseUint(prompt("Funding output index: "), 10, 32)
			address := prompt("Pay to (BTC address): ")
			amount, err2 := strconv.ParseInt(prompt("Amount (satoshi): "), 10, 64)
			fee, err3 := strconv.ParseInt(prompt("Tx fee (satoshi): "), 10, 64)
			id, err4 := common.ParseHash(prompt("Request id: "))
			if err := firstErr(err1, err2, err3, err4); err != nil {
				fmt.Printf("Invalid input: %s\n", err)
				break
			}
			btcTxID, err := bu.Pay(*prev, uint32(vout), address, amount, fee, id)
			if err != nil {
				fmt.Printf("Error paying: %s\n", err)
				break
			}
			fmt.Printf("Sent BTC tx %s\n", btcTxID)
		case "3":
			sub, err := bu.Prove(prompt("BTC tx id: "))
			if err != nil {
				fmt.Printf("Error proving: %s\n", err)
				break
			}
			r, err := hr.ExecuteIssue(prompt("Issue id: "), sub)
			printResult(r, err)
		case "4":
			amount, err := strconv.ParseUint(prompt("Amount (satoshi, fee included): "), 10, 64)
			if err != nil {
				fmt.Printf("Invalid amount: %s\n", err)
				break
			}
			r, err := hr.RequestRedeem(amount, prompt("Payout BTC address: "), prompt("Vault account: "))
			printResult(r, err)
		case "5":
			sub, err := bu.Prove(prompt("BTC tx id: "))
			if err != nil {
				fmt.Printf("Error proving: %s\n", err)
				break
			}
			r, err := hr.ExecuteRedeem(prompt("Redeem id: "), sub)
			printResult(r, err)
		case "6":
			id, err := common.ParseHash(prompt("Issue id: "))
			if err != nil {
				fmt.Printf("Invalid id: %s\n", err)
				break
			}
			wif, err := cmd.DepositKeyWIF(viper.GetString("BTC_CORE_ACCOUNT_PRIV"), id, buc.BtcChainConfig)
			if err != nil {
				fmt.Printf("Error deriving key: %s\n", err)
				break
			}
			fmt.Printf("Deposit key: %s\n", wif)
		case "7":
			fmt.Println("Only use this option in local regtest mode.")
			_blks, err := bu.MineEnoughBlocks()
			if err != nil {
				fmt.Printf("Error mining blocks: %s\n", err)
			} else {
				fmt.Printf("Mined %d blocks\n", len(_blks))
			}
		default:
			fmt.Println("Unknown option, try again.")
		}
		fmt.Println()
	}
}

func initializeViper(filePath string) bool {
	viper.SetConfigFile(filePath)
	if err := viper.ReadInConfig(); err != nil {
		fmt.Printf("Error reading configuration file, %s", err)
		return false
	}
	return true
}

func PrepareBtcUserConfig() (*cmd.BtcUserConfig, error) {
	btcParams, err := common.NetParams(viper.GetString("BTC_CHAIN_CONFIG"))
	if err != nil {
		return nil, err
	}

	return &cmd.BtcUserConfig{
		BtcRpcServer:       viper.GetString("BTC_RPC_SERVER"),
		BtcRpcPort:         viper.GetString("BTC_RPC_PORT"),
		BtcRpcUsername:     viper.GetString("BTC_RPC_USERNAME"),
		BtcRpcPwd:          viper.GetString("BTC_RPC_PWD"),
		BtcChainConfig:     btcParams,
		BtcCoreAccountPriv: viper.GetString("BTC_CORE_ACCOUNT_PRIV"),
	}, nil
}

func printResult(v any, err error) {
	if err != nil {
		fmt.Printf("Error: %s\n", err)
		return
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
