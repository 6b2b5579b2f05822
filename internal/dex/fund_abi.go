package dex

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const fundABIJSON = `[
  {
    "inputs": [],
    "name": "totalSupply",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "totalInvestment",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "totalAssets",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "address", "name": "owner", "type": "address"}],
    "name": "investmentOf",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "poolsLength",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "manager",
    "outputs": [{"internalType": "address", "name": "", "type": "address"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "token",
    "outputs": [{"internalType": "address", "name": "", "type": "address"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "owner", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "amount", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "share", "type": "uint256"}
    ],
    "name": "Deposit",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "owner", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "amount", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "share", "type": "uint256"}
    ],
    "name": "Withdraw",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "from", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "to", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "value", "type": "uint256"}
    ],
    "name": "Transfer",
    "type": "event"
  }
]`

const controllerABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "token", "type": "address"},
      {"indexed": false, "internalType": "bool", "name": "isVerified", "type": "bool"}
    ],
    "name": "ChangeVerifiedToken",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "token", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "amount", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "burned", "type": "uint256"}
    ],
    "name": "Harvest",
    "type": "event"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "fund", "type": "address"},
      {"internalType": "address", "name": "distToken", "type": "address"},
      {"internalType": "bytes", "name": "path", "type": "bytes"}
    ],
    "name": "setPath",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "token", "type": "address"},
      {"internalType": "bytes", "name": "path", "type": "bytes"}
    ],
    "name": "setHarvestPath",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "fund", "type": "address"},
      {"internalType": "address", "name": "token0", "type": "address"},
      {"internalType": "address", "name": "token1", "type": "address"},
      {"internalType": "uint24", "name": "fee", "type": "uint24"},
      {"internalType": "int24", "name": "tickLower", "type": "int24"},
      {"internalType": "int24", "name": "tickUpper", "type": "int24"},
      {"internalType": "uint256", "name": "amount", "type": "uint256"}
    ],
    "name": "init",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "fund", "type": "address"},
      {"internalType": "uint256", "name": "poolIndex", "type": "uint256"},
      {"internalType": "uint256", "name": "positionIndex", "type": "uint256"},
      {"internalType": "uint256", "name": "amount", "type": "uint256"},
      {"internalType": "bool", "name": "collect", "type": "bool"}
    ],
    "name": "add",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "fund", "type": "address"},
      {"internalType": "uint256", "name": "poolIndex", "type": "uint256"},
      {"internalType": "uint256", "name": "positionIndex", "type": "uint256"},
      {"internalType": "uint256", "name": "proportionX128", "type": "uint256"}
    ],
    "name": "sub",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "fund", "type": "address"},
      {"internalType": "uint256", "name": "poolIndex", "type": "uint256"},
      {"internalType": "uint256", "name": "subIndex", "type": "uint256"},
      {"internalType": "uint256", "name": "addIndex", "type": "uint256"},
      {"internalType": "uint256", "name": "proportionX128", "type": "uint256"}
    ],
    "name": "move",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  }
]`

const stakingABIJSON = `[
  {
    "inputs": [],
    "name": "stakingToken",
    "outputs": [{"internalType": "address", "name": "", "type": "address"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "rewardsToken",
    "outputs": [{"internalType": "address", "name": "", "type": "address"}],
    "stateMutability": "view",
    "type": "function"
  }
]`

var (
	fundABI     abi.ABI
	fundABIOnce sync.Once
	fundABIErr  error

	controllerABI     abi.ABI
	controllerABIOnce sync.Once
	controllerABIErr  error

	stakingABI     abi.ABI
	stakingABIOnce sync.Once
	stakingABIErr  error
)

// FundABI returns the parsed fund vault ABI.
func FundABI() (abi.ABI, error) {
	fundABIOnce.Do(func() {
		fundABI, fundABIErr = abi.JSON(strings.NewReader(fundABIJSON))
	})
	return fundABI, fundABIErr
}

// ControllerABI returns the parsed controller ABI.
func ControllerABI() (abi.ABI, error) {
	controllerABIOnce.Do(func() {
		controllerABI, controllerABIErr = abi.JSON(strings.NewReader(controllerABIJSON))
	})
	return controllerABI, controllerABIErr
}

// StakingABI returns the parsed staking rewards ABI.
func StakingABI() (abi.ABI, error) {
	stakingABIOnce.Do(func() {
		stakingABI, stakingABIErr = abi.JSON(strings.NewReader(stakingABIJSON))
	})
	return stakingABI, stakingABIErr
}
