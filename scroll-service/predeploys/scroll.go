package predeploys

import "github.com/ethereum/go-ethereum/common"

// Scroll system contracts live in the 0x5300... address range and are present from genesis.
const (
	L2MessageQueue   = "0x5300000000000000000000000000000000000000"
	L1GasPriceOracle = "0x5300000000000000000000000000000000000002"
	Whitelist        = "0x5300000000000000000000000000000000000003"
	WrappedEther     = "0x5300000000000000000000000000000000000004"
	L2TxFeeVault     = "0x5300000000000000000000000000000000000005"
)

var (
	L2MessageQueueAddr   = common.HexToAddress(L2MessageQueue)
	L1GasPriceOracleAddr = common.HexToAddress(L1GasPriceOracle)
	WhitelistAddr        = common.HexToAddress(Whitelist)
	WrappedEtherAddr     = common.HexToAddress(WrappedEther)
	L2TxFeeVaultAddr     = common.HexToAddress(L2TxFeeVault)

	Predeploys = make(map[string]*common.Address)
)

func init() {
	Predeploys["L2MessageQueue"] = &L2MessageQueueAddr
	Predeploys["L1GasPriceOracle"] = &L1GasPriceOracleAddr
	Predeploys["Whitelist"] = &WhitelistAddr
	Predeploys["WrappedEther"] = &WrappedEtherAddr
	Predeploys["L2TxFeeVault"] = &L2TxFeeVaultAddr
}

// IsPredeploy reports whether addr is one of the Scroll system contracts.
func IsPredeploy(addr common.Address) bool {
	for _, p := range Predeploys {
		if *p == addr {
			return true
		}
	}
	return false
}
