package utils

import (
	prt "github.com/agorascan/agorascan-node/protocol"
)

// "pool:tx:"
func GetPoolTxKey(txHash prt.Hash) []byte {
	return []byte(prt.PrefixPoolTx + HashToString(txHash))
}

// "pool:addr:"
func GetPoolAddrKey(address prt.Address) []byte {
	return []byte(prt.PrefixPoolByAddr + AddressToString(address))
}

// "pool:seen:"
func GetPoolSeenKey(txHash prt.Hash) []byte {
	return []byte(prt.PrefixPoolSeen + HashToString(txHash))
}
